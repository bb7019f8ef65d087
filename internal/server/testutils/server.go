// Package testutils builds servers for handler tests.
package testutils

import (
	"context"

	"github.com/and161185/health-dashboard/internal/config"
	"github.com/and161185/health-dashboard/internal/server"
	"github.com/and161185/health-dashboard/storage"
	"github.com/and161185/health-dashboard/storage/inmemory"
	"go.uber.org/zap"
)

// NewTestServer returns a server over an empty in-memory store.
func NewTestServer(ctx context.Context) *server.Server {
	return NewTestServerWithStorage(inmemory.NewMemStorage(ctx))
}

// NewTestServerWithStorage returns a server over st with a silent logger.
func NewTestServerWithStorage(st storage.Storage) *server.Server {
	return server.NewServer(st, &config.ServerConfig{
		Addr:            "127.0.0.1:0",
		StoreInterval:   1,
		FileStoragePath: "",
		Logger:          zap.NewNop().Sugar(),
	})
}
