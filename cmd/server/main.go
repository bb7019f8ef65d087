package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/and161185/health-dashboard/internal/buildinfo"
	"github.com/and161185/health-dashboard/internal/config"
	"github.com/and161185/health-dashboard/internal/server"
	"github.com/and161185/health-dashboard/storage"
	"github.com/and161185/health-dashboard/storage/inmemory"
	"github.com/and161185/health-dashboard/storage/mysql"
	"github.com/and161185/health-dashboard/storage/postgres"
	"github.com/and161185/health-dashboard/storage/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.NewServerConfig()
	defer func() { _ = cfg.Logger.Sync() }()
	buildinfo.Log(cfg.Logger, "server")

	cfg.Logger.Infof("Server config: Addr=%s, DB=%s", cfg.Addr, cfg.DBTarget())

	st, err := openStorage(ctx, cfg)
	if err != nil {
		cfg.Logger.Fatal(err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			cfg.Logger.Errorf("failed to close storage: %v", err)
		}
	}()

	srv := server.NewServer(st, cfg)
	if err := srv.Run(ctx); err != nil {
		cfg.Logger.Error(err)
	}
}

func openStorage(ctx context.Context, cfg *config.ServerConfig) (storage.Storage, error) {
	switch cfg.DBDriver {
	case config.DriverMemory:
		return inmemory.NewMemStorage(ctx), nil
	case config.DriverPostgres:
		if cfg.DatabaseDsn == "" {
			return nil, fmt.Errorf("postgres storage needs DATABASE_DSN or DB_HOST")
		}
		return postgres.NewPostgresStorage(ctx, cfg.DatabaseDsn)
	case config.DriverMySQL:
		if cfg.DatabaseDsn == "" {
			return nil, fmt.Errorf("mysql storage needs DATABASE_DSN or DB_HOST")
		}
		return mysql.NewMySQLStorage(ctx, cfg.DatabaseDsn)
	case config.DriverSQLite:
		return sqlite.NewSQLiteStorage(ctx, cfg.DatabaseDsn)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.DBDriver)
	}
}
