// Package recorder wraps a storage backend with the service's failure policy:
// a failed write is returned to the caller, a failed read is logged and
// reported as an empty result so the dashboard keeps rendering.
package recorder

import (
	"context"

	"github.com/and161185/health-dashboard/internal/errs"
	"github.com/and161185/health-dashboard/model"
	"github.com/and161185/health-dashboard/storage"
	"go.uber.org/zap"
)

type Recorder struct {
	storage storage.Storage
	logger  *zap.SugaredLogger
}

func New(st storage.Storage, logger *zap.SugaredLogger) *Recorder {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Recorder{storage: st, logger: logger}
}

// Insert persists s. Failures come back as *errs.StorageError.
func (r *Recorder) Insert(ctx context.Context, s *model.Snapshot) error {
	if err := r.storage.Insert(ctx, s); err != nil {
		r.logger.Errorf("failed to insert snapshot [client=%s]: %v", s.ClientID, err)
		return &errs.StorageError{Op: "insert", ClientID: s.ClientID, Err: err}
	}
	r.logger.Debugf("snapshot stored [client=%s]", s.ClientID)
	return nil
}

// QueryRecent returns up to limit snapshots, newest first, optionally for a
// single client. It never fails; an unreachable store yields an empty slice.
func (r *Recorder) QueryRecent(ctx context.Context, limit int, clientID string) []model.Snapshot {
	if limit <= 0 {
		return []model.Snapshot{}
	}
	snaps, err := r.storage.Recent(ctx, limit, clientID)
	if err != nil {
		r.logger.Errorf("failed to query recent snapshots [client=%s limit=%d]: %v", orAll(clientID), limit, err)
		return []model.Snapshot{}
	}
	if snaps == nil {
		return []model.Snapshot{}
	}
	return snaps
}

// CountDistinctClients returns 0 when the store fails.
func (r *Recorder) CountDistinctClients(ctx context.Context) int64 {
	n, err := r.storage.CountClients(ctx)
	if err != nil {
		r.logger.Errorf("failed to count clients: %v", err)
		return 0
	}
	return n
}

// CountAll returns 0 when the store fails.
func (r *Recorder) CountAll(ctx context.Context) int64 {
	n, err := r.storage.CountSnapshots(ctx)
	if err != nil {
		r.logger.Errorf("failed to count snapshots: %v", err)
		return 0
	}
	return n
}

// ListClients returns an empty slice when the store fails.
func (r *Recorder) ListClients(ctx context.Context) []model.ClientRollup {
	clients, err := r.storage.Clients(ctx)
	if err != nil {
		r.logger.Errorf("failed to list clients: %v", err)
		return []model.ClientRollup{}
	}
	if clients == nil {
		return []model.ClientRollup{}
	}
	return clients
}

// Ping reports store reachability; unlike the read paths it does not hide
// the failure.
func (r *Recorder) Ping(ctx context.Context) error {
	if err := r.storage.Ping(ctx); err != nil {
		return &errs.StorageError{Op: "ping", Err: err}
	}
	return nil
}

func orAll(clientID string) string {
	if clientID == "" {
		return "all"
	}
	return clientID
}
