// Package postgres implements storage.Storage on PostgreSQL via pgxpool.
package postgres

import (
	"context"
	"fmt"

	"github.com/and161185/health-dashboard/internal/utils"
	"github.com/and161185/health-dashboard/model"
	"github.com/and161185/health-dashboard/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS metrics (
		id BIGSERIAL PRIMARY KEY,
		client_id VARCHAR(255) NOT NULL,
		client_name VARCHAR(255),
		"timestamp" VARCHAR(50) NOT NULL,
		received_at VARCHAR(50) NOT NULL,
		cpu_percent DOUBLE PRECISION,
		gpu_percent DOUBLE PRECISION,
		ram_json TEXT,
		ping_ms DOUBLE PRECISION,
		internet_connected BOOLEAN,
		raw_data TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_client_id ON metrics (client_id)`,
	`CREATE INDEX IF NOT EXISTS idx_timestamp ON metrics ("timestamp" DESC)`,
}

type PostgresStorage struct {
	db *pgxpool.Pool
}

// NewPostgresStorage connects to DatabaseDsn and makes sure the metrics table
// and its indexes exist.
func NewPostgresStorage(ctx context.Context, DatabaseDsn string) (*PostgresStorage, error) {
	db, err := pgxpool.New(ctx, DatabaseDsn)
	if err != nil {
		return nil, err
	}
	store := &PostgresStorage{db: db}

	err = utils.WithRetry(ctx, func() error {
		return store.bootstrap(ctx)
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}
	return store, nil
}

func (store *PostgresStorage) bootstrap(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := store.db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (store *PostgresStorage) Insert(ctx context.Context, s *model.Snapshot) error {
	c, err := storage.ColumnsOf(s)
	if err != nil {
		return err
	}

	_, err = store.db.Exec(ctx, `
		INSERT INTO metrics
			(client_id, client_name, "timestamp", received_at, cpu_percent, gpu_percent,
			 ram_json, ping_ms, internet_connected, raw_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ClientID, c.ClientName, c.Timestamp, c.ReceivedAt, c.CPUPercent, c.GPUPercent,
		c.RAMJSON, c.PingMS, c.InternetConnected, c.RawData)
	return err
}

func (store *PostgresStorage) Recent(ctx context.Context, limit int, clientID string) ([]model.Snapshot, error) {
	query := `SELECT client_id, raw_data FROM metrics ORDER BY "timestamp" DESC LIMIT $1`
	args := []any{limit}
	if clientID != "" {
		query = `SELECT client_id, raw_data FROM metrics WHERE client_id = $2 ORDER BY "timestamp" DESC LIMIT $1`
		args = append(args, clientID)
	}

	rows, err := store.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Snapshot
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		s, err := storage.SnapshotFromRow(id, raw)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (store *PostgresStorage) CountClients(ctx context.Context) (int64, error) {
	var n int64
	err := store.db.QueryRow(ctx, `SELECT COUNT(DISTINCT client_id) FROM metrics`).Scan(&n)
	return n, err
}

func (store *PostgresStorage) CountSnapshots(ctx context.Context) (int64, error) {
	var n int64
	err := store.db.QueryRow(ctx, `SELECT COUNT(*) FROM metrics`).Scan(&n)
	return n, err
}

func (store *PostgresStorage) Clients(ctx context.Context) ([]model.ClientRollup, error) {
	rows, err := store.db.Query(ctx, `
		SELECT client_id, COALESCE(client_name, ''), MAX("timestamp"), COUNT(*)
		FROM metrics
		GROUP BY client_id, client_name
		ORDER BY client_id, client_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.ClientRollup
	for rows.Next() {
		var c model.ClientRollup
		if err := rows.Scan(&c.ClientID, &c.ClientName, &c.LastSeen, &c.MetricCount); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (store *PostgresStorage) Ping(ctx context.Context) error {
	return store.db.Ping(ctx)
}

func (store *PostgresStorage) Close() error {
	store.db.Close()
	return nil
}
