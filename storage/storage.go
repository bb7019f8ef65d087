// Package storage declares the snapshot store contract implemented by the
// backends in its subpackages.
package storage

//go:generate mockgen -destination=mocks/mock_storage.go -package=mocks github.com/and161185/health-dashboard/storage Storage

import (
	"context"

	"github.com/and161185/health-dashboard/model"
)

// Storage persists snapshots and answers the dashboard queries.
//
// Recent orders by the raw timestamp string, newest first. Clients groups by
// (client_id, client_name) with last_seen = max(timestamp).
type Storage interface {
	Insert(ctx context.Context, s *model.Snapshot) error
	Recent(ctx context.Context, limit int, clientID string) ([]model.Snapshot, error)
	CountClients(ctx context.Context) (int64, error)
	CountSnapshots(ctx context.Context) (int64, error)
	Clients(ctx context.Context) ([]model.ClientRollup, error)
	Ping(ctx context.Context) error
	Close() error
}
