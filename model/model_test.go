package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSnapshotFromPayload(t *testing.T) {
	payload, err := DecodePayload([]byte(`{
		"client_name": "Alice",
		"timestamp": "2024-01-01T10:00:00",
		"cpu_percent": 42.5,
		"gpu_percent": null,
		"ram": {"used_gb": 7.5, "total_gb": 16, "percent": 46.9},
		"ping_ms": 12,
		"internet_connected": true,
		"disk": {"free_gb": 100}
	}`))
	require.NoError(t, err)

	s := SnapshotFromPayload(payload)

	require.Equal(t, "Alice", s.ClientName)
	require.Equal(t, "2024-01-01T10:00:00", s.Timestamp)
	require.NotNil(t, s.CPUPercent)
	require.InDelta(t, 42.5, *s.CPUPercent, 1e-9)
	require.Nil(t, s.GPUPercent)
	require.NotNil(t, s.RAM)
	require.InDelta(t, 46.9, *s.RAMPercent(), 1e-9)
	require.InDelta(t, 16, *s.RAM.TotalGB, 1e-9)
	require.InDelta(t, 12, *s.PingMS, 1e-9)
	require.True(t, *s.InternetConnected)
	require.Contains(t, s.Raw, "disk")
}

func TestSnapshotFromPayload_WrongTypes(t *testing.T) {
	s := SnapshotFromPayload(map[string]any{
		FieldCPUPercent:        "not a number",
		FieldRAM:               "16GB",
		FieldInternetConnected: "yes",
		FieldTimestamp:         json.Number("1704103200"),
	})

	require.Nil(t, s.CPUPercent)
	require.Nil(t, s.RAM)
	require.Nil(t, s.RAMPercent())
	require.Nil(t, s.InternetConnected)
	require.Equal(t, "1704103200", s.Timestamp)
}

func TestSnapshot_MarshalJSON(t *testing.T) {
	payload, err := DecodePayload([]byte(`{"client_id":"sent-id","client_name":"A","big":9007199254740993,"nested":{"k":[1,2]}}`))
	require.NoError(t, err)

	s := SnapshotFromPayload(payload)
	s.ClientID = "A"

	out, err := json.Marshal(s)
	require.NoError(t, err)
	require.JSONEq(t, `{"client_id":"A","client_name":"A","big":9007199254740993,"nested":{"k":[1,2]}}`, string(out))

	require.Equal(t, "sent-id", s.Raw[FieldClientID], "payload must not be mutated")
}

func TestSnapshot_DisplayName(t *testing.T) {
	require.Equal(t, "id", Snapshot{ClientID: "id"}.DisplayName())
	require.Equal(t, "name", Snapshot{ClientID: "id", ClientName: "name"}.DisplayName())
}

func TestDecodePayload_NotObject(t *testing.T) {
	_, err := DecodePayload([]byte(`[1,2,3]`))
	require.Error(t, err)
}

func TestDecodePayload_TrailingData(t *testing.T) {
	for _, body := range []string{
		`{"a":1} trailing garbage`,
		`{"a":1}{"b":2}`,
		`{"a":1} 2`,
	} {
		_, err := DecodePayload([]byte(body))
		require.Error(t, err, body)
	}

	payload, err := DecodePayload([]byte("{\"a\":1}\n  "))
	require.NoError(t, err)
	require.Contains(t, payload, "a")
}
