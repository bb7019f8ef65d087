package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/and161185/health-dashboard/model"
)

// ErrIncomplete is returned for snapshots missing a mandatory field.
var ErrIncomplete = errors.New("snapshot requires client_id, timestamp and received_at")

// Columns is the relational projection of a snapshot used by the SQL
// backends. RawData is authoritative; the other columns exist for indexing
// and ad hoc queries.
type Columns struct {
	ClientID          string
	ClientName        *string
	Timestamp         string
	ReceivedAt        string
	CPUPercent        *float64
	GPUPercent        *float64
	RAMJSON           *string
	PingMS            *float64
	InternetConnected *bool
	RawData           string
}

// Validate checks the fields every persisted snapshot must carry.
func Validate(s *model.Snapshot) error {
	if s == nil || s.ClientID == "" || s.Timestamp == "" || s.ReceivedAt == "" {
		return ErrIncomplete
	}
	return nil
}

// ColumnsOf serializes a snapshot into column values.
func ColumnsOf(s *model.Snapshot) (Columns, error) {
	if err := Validate(s); err != nil {
		return Columns{}, err
	}

	raw, err := json.Marshal(s.Raw)
	if err != nil {
		return Columns{}, fmt.Errorf("marshal raw payload: %w", err)
	}

	c := Columns{
		ClientID:          s.ClientID,
		Timestamp:         s.Timestamp,
		ReceivedAt:        s.ReceivedAt,
		CPUPercent:        s.CPUPercent,
		GPUPercent:        s.GPUPercent,
		PingMS:            s.PingMS,
		InternetConnected: s.InternetConnected,
		RawData:           string(raw),
	}
	if s.ClientName != "" {
		name := s.ClientName
		c.ClientName = &name
	}
	if ram, ok := s.Raw[model.FieldRAM]; ok && ram != nil {
		b, err := json.Marshal(ram)
		if err != nil {
			return Columns{}, fmt.Errorf("marshal ram: %w", err)
		}
		ramJSON := string(b)
		c.RAMJSON = &ramJSON
	}
	return c, nil
}

// SnapshotFromRow rebuilds a snapshot from its stored raw payload.
func SnapshotFromRow(clientID, rawData string) (model.Snapshot, error) {
	raw, err := model.DecodePayload([]byte(rawData))
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("row of %s: %w", clientID, err)
	}
	s := model.SnapshotFromPayload(raw)
	s.ClientID = clientID
	return s, nil
}
