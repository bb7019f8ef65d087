// Package storagetest holds the behaviour checks every storage backend must
// pass.
package storagetest

import (
	"context"
	"fmt"
	"testing"

	"github.com/and161185/health-dashboard/model"
	"github.com/and161185/health-dashboard/storage"
	"github.com/stretchr/testify/require"
)

// NewSnapshot builds a snapshot the way the ingestion gateway would.
func NewSnapshot(t testing.TB, clientID string, payload string) *model.Snapshot {
	t.Helper()
	raw, err := model.DecodePayload([]byte(payload))
	require.NoError(t, err)
	if _, ok := raw[model.FieldReceivedAt]; !ok {
		raw[model.FieldReceivedAt] = "2024-01-01T00:00:00"
	}
	s := model.SnapshotFromPayload(raw)
	s.ClientID = clientID
	return &s
}

// Run executes the shared checks. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) storage.Storage) {
	t.Run("round_trip", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()

		in := NewSnapshot(t, "Alice", `{
			"client_name":"Alice","client_id":"host-1",
			"timestamp":"2024-01-01T10:00:00","received_at":"2024-01-01T10:00:01.5",
			"cpu_percent":42.5,"gpu_percent":null,
			"ram":{"used_gb":8,"total_gb":16,"percent":50},
			"ping_ms":12.25,"internet_connected":true,
			"extra":{"disks":[1,2]}}`)
		require.NoError(t, st.Insert(ctx, in))

		got, err := st.Recent(ctx, 10, "")
		require.NoError(t, err)
		require.Len(t, got, 1)

		s := got[0]
		require.Equal(t, "Alice", s.ClientID)
		require.Equal(t, "Alice", s.ClientName)
		require.Equal(t, "2024-01-01T10:00:00", s.Timestamp)
		require.Equal(t, "2024-01-01T10:00:01.5", s.ReceivedAt)
		require.InDelta(t, 42.5, *s.CPUPercent, 1e-9)
		require.Nil(t, s.GPUPercent)
		require.InDelta(t, 50, *s.RAMPercent(), 1e-9)
		require.InDelta(t, 12.25, *s.PingMS, 1e-9)
		require.True(t, *s.InternetConnected)
		require.Contains(t, s.Raw, "extra")
		require.Equal(t, "host-1", fmt.Sprint(s.Raw[model.FieldClientID]))
	})

	t.Run("recent_order_limit_filter", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()

		for _, ts := range []string{"2024-01-01T10:00:05", "2024-01-01T10:00:01", "2024-01-01T10:00:09"} {
			require.NoError(t, st.Insert(ctx, NewSnapshot(t, "A", `{"timestamp":"`+ts+`"}`)))
		}
		require.NoError(t, st.Insert(ctx, NewSnapshot(t, "B", `{"timestamp":"2024-01-01T10:00:07"}`)))

		got, err := st.Recent(ctx, 3, "")
		require.NoError(t, err)
		require.Len(t, got, 3)
		require.Equal(t, "2024-01-01T10:00:09", got[0].Timestamp)
		require.Equal(t, "2024-01-01T10:00:07", got[1].Timestamp)
		require.Equal(t, "2024-01-01T10:00:05", got[2].Timestamp)

		onlyA, err := st.Recent(ctx, 10, "A")
		require.NoError(t, err)
		require.Len(t, onlyA, 3)
		for _, s := range onlyA {
			require.Equal(t, "A", s.ClientID)
		}
		require.Equal(t, "2024-01-01T10:00:01", onlyA[2].Timestamp)

		none, err := st.Recent(ctx, 10, "nobody")
		require.NoError(t, err)
		require.Empty(t, none)
	})

	t.Run("no_dedup", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()

		for i := 1; i <= 3; i++ {
			require.NoError(t, st.Insert(ctx, NewSnapshot(t, "A", `{"timestamp":"2024-01-01T10:00:00","cpu_percent":1}`)))
			n, err := st.CountSnapshots(ctx)
			require.NoError(t, err)
			require.EqualValues(t, i, n)
		}
	})

	t.Run("count_clients", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()

		n, err := st.CountClients(ctx)
		require.NoError(t, err)
		require.Zero(t, n)

		for _, id := range []string{"c", "a", "b", "a", "c", "c"} {
			require.NoError(t, st.Insert(ctx, NewSnapshot(t, id, `{"timestamp":"2024-01-01T10:00:00"}`)))
		}
		n, err = st.CountClients(ctx)
		require.NoError(t, err)
		require.EqualValues(t, 3, n)

		total, err := st.CountSnapshots(ctx)
		require.NoError(t, err)
		require.EqualValues(t, 6, total)
	})

	t.Run("clients_rollup", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()

		require.NoError(t, st.Insert(ctx, NewSnapshot(t, "Alice", `{"client_name":"Alice","cpu_percent":42.5,"timestamp":"2024-01-01T10:00:00"}`)))
		require.NoError(t, st.Insert(ctx, NewSnapshot(t, "Alice", `{"client_name":"Alice","cpu_percent":55.0,"timestamp":"2024-01-01T10:00:05"}`)))

		clients, err := st.Clients(ctx)
		require.NoError(t, err)
		require.Equal(t, []model.ClientRollup{
			{ClientID: "Alice", ClientName: "Alice", LastSeen: "2024-01-01T10:00:05", MetricCount: 2},
		}, clients)
	})

	t.Run("clients_without_name", func(t *testing.T) {
		st := newStore(t)
		ctx := context.Background()

		require.NoError(t, st.Insert(ctx, NewSnapshot(t, "10.0.0.7", `{"timestamp":"2024-01-01T09:00:00"}`)))

		clients, err := st.Clients(ctx)
		require.NoError(t, err)
		require.Len(t, clients, 1)
		require.Equal(t, "10.0.0.7", clients[0].ClientID)
		require.Empty(t, clients[0].ClientName)
		require.EqualValues(t, 1, clients[0].MetricCount)
	})

	t.Run("rejects_incomplete", func(t *testing.T) {
		st := newStore(t)
		err := st.Insert(context.Background(), &model.Snapshot{ClientID: "A", Raw: map[string]any{}})
		require.ErrorIs(t, err, storage.ErrIncomplete)
	})

	t.Run("ping", func(t *testing.T) {
		st := newStore(t)
		require.NoError(t, st.Ping(context.Background()))
	})
}
