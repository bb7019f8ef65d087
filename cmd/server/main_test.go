package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/and161185/health-dashboard/internal/config"
	"github.com/and161185/health-dashboard/storage/inmemory"
	"github.com/and161185/health-dashboard/storage/sqlite"
	"github.com/stretchr/testify/require"
)

func TestOpenStorage(t *testing.T) {
	ctx := context.Background()

	st, err := openStorage(ctx, &config.ServerConfig{DBDriver: config.DriverMemory})
	require.NoError(t, err)
	require.IsType(t, &inmemory.MemStorage{}, st)

	path := filepath.Join(t.TempDir(), "h.db")
	st, err = openStorage(ctx, &config.ServerConfig{DBDriver: config.DriverSQLite, DatabaseDsn: path})
	require.NoError(t, err)
	require.IsType(t, &sqlite.SQLiteStorage{}, st)
	require.NoError(t, st.Close())

	_, err = openStorage(ctx, &config.ServerConfig{DBDriver: config.DriverPostgres})
	require.Error(t, err)

	_, err = openStorage(ctx, &config.ServerConfig{DBDriver: config.DriverMySQL})
	require.Error(t, err)

	_, err = openStorage(ctx, &config.ServerConfig{DBDriver: "oracle"})
	require.ErrorContains(t, err, "unknown storage driver")
}
