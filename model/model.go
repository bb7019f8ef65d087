// Package model contains core data types for the project.
package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Payload field names understood by the service. Anything else in a
// submission is kept verbatim in Snapshot.Raw.
const (
	FieldClientID          = "client_id"
	FieldClientName        = "client_name"
	FieldTimestamp         = "timestamp"
	FieldReceivedAt        = "received_at"
	FieldCPUPercent        = "cpu_percent"
	FieldGPUPercent        = "gpu_percent"
	FieldRAM               = "ram"
	FieldPingMS            = "ping_ms"
	FieldInternetConnected = "internet_connected"
)

// RAM is the memory part of a snapshot.
type RAM struct {
	UsedGB  *float64 `json:"used_gb,omitempty"`  // Memory in use, GiB.
	TotalGB *float64 `json:"total_gb,omitempty"` // Installed memory, GiB.
	Percent *float64 `json:"percent,omitempty"`  // Utilization, nominally 0-100.
}

// Snapshot is one health measurement submitted by a client.
//
// The typed fields are a projection of Raw, which holds the submission as
// received. Readers always rebuild a Snapshot from Raw, so fields unknown to
// this version survive a store round trip.
type Snapshot struct {
	ClientID          string
	ClientName        string
	Timestamp         string
	ReceivedAt        string
	CPUPercent        *float64
	GPUPercent        *float64
	RAM               *RAM
	PingMS            *float64
	InternetConnected *bool
	Raw               map[string]any
}

// ClientRollup is the per-client aggregate shown in the roster.
type ClientRollup struct {
	ClientID    string `json:"client_id"`
	ClientName  string `json:"client_name"`
	LastSeen    string `json:"last_seen"`
	MetricCount int64  `json:"metric_count"`
}

// Summary holds the dashboard headline numbers.
type Summary struct {
	TotalClients     int64    `json:"total_clients"`
	TotalMetrics     int64    `json:"total_metrics"`
	LatestCPU        *float64 `json:"latest_cpu"`
	LatestRAMPercent *float64 `json:"latest_ram_percent"`
}

// SnapshotFromPayload projects a raw submission onto a Snapshot. ClientID is
// taken from the payload as is; callers that resolved it differently set it
// afterwards.
func SnapshotFromPayload(payload map[string]any) Snapshot {
	s := Snapshot{
		ClientID:          stringOf(payload[FieldClientID]),
		ClientName:        stringOf(payload[FieldClientName]),
		Timestamp:         stringOf(payload[FieldTimestamp]),
		ReceivedAt:        stringOf(payload[FieldReceivedAt]),
		CPUPercent:        floatOf(payload[FieldCPUPercent]),
		GPUPercent:        floatOf(payload[FieldGPUPercent]),
		PingMS:            floatOf(payload[FieldPingMS]),
		InternetConnected: boolOf(payload[FieldInternetConnected]),
		Raw:               payload,
	}
	if ram, ok := payload[FieldRAM].(map[string]any); ok {
		s.RAM = &RAM{
			UsedGB:  floatOf(ram["used_gb"]),
			TotalGB: floatOf(ram["total_gb"]),
			Percent: floatOf(ram["percent"]),
		}
	}
	return s
}

// DecodePayload parses a stored or submitted JSON object. Numbers are kept as
// json.Number so integers of any size re-encode unchanged. Anything after the
// object other than whitespace is an error.
func DecodePayload(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("decode payload: unexpected data after JSON object")
	}
	return payload, nil
}

// Payload returns the raw submission with the resolved client_id attached.
func (s Snapshot) Payload() map[string]any {
	out := make(map[string]any, len(s.Raw)+1)
	for k, v := range s.Raw {
		out[k] = v
	}
	out[FieldClientID] = s.ClientID
	return out
}

// MarshalJSON encodes the snapshot the way API clients see it: the submitted
// payload plus client_id.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Payload())
}

// RAMPercent returns ram.percent when present.
func (s Snapshot) RAMPercent() *float64 {
	if s.RAM == nil {
		return nil
	}
	return s.RAM.Percent
}

// DisplayName is the client name, or the client id when no name was sent.
func (s Snapshot) DisplayName() string {
	if s.ClientName != "" {
		return s.ClientName
	}
	return s.ClientID
}

func stringOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func floatOf(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	return &f
}

func boolOf(v any) *bool {
	b, ok := v.(bool)
	if !ok {
		return nil
	}
	return &b
}
