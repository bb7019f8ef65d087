// Package sqlite implements storage.Storage on an embedded SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/and161185/health-dashboard/model"
	"github.com/and161185/health-dashboard/storage"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS metrics (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	client_id TEXT NOT NULL,
	client_name TEXT,
	timestamp TEXT NOT NULL,
	received_at TEXT NOT NULL,
	cpu_percent REAL,
	gpu_percent REAL,
	ram_json TEXT,
	ping_ms REAL,
	internet_connected INTEGER,
	raw_data TEXT NOT NULL,
	created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_client_id ON metrics(client_id);
CREATE INDEX IF NOT EXISTS idx_timestamp ON metrics(timestamp DESC);`

type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens (creating if needed) the database file at path.
func NewSQLiteStorage(ctx context.Context, path string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

func (store *SQLiteStorage) Insert(ctx context.Context, s *model.Snapshot) error {
	c, err := storage.ColumnsOf(s)
	if err != nil {
		return err
	}

	_, err = store.db.ExecContext(ctx, `
		INSERT INTO metrics
			(client_id, client_name, timestamp, received_at, cpu_percent, gpu_percent,
			 ram_json, ping_ms, internet_connected, raw_data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ClientID, c.ClientName, c.Timestamp, c.ReceivedAt, c.CPUPercent, c.GPUPercent,
		c.RAMJSON, c.PingMS, c.InternetConnected, c.RawData)
	return err
}

func (store *SQLiteStorage) Recent(ctx context.Context, limit int, clientID string) ([]model.Snapshot, error) {
	query := `SELECT client_id, raw_data FROM metrics ORDER BY timestamp DESC LIMIT ?`
	args := []any{limit}
	if clientID != "" {
		query = `SELECT client_id, raw_data FROM metrics WHERE client_id = ? ORDER BY timestamp DESC LIMIT ?`
		args = []any{clientID, limit}
	}

	rows, err := store.db.QueryContext(ctx, query, args...)
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

func (store *SQLiteStorage) CountClients(ctx context.Context) (int64, error) {
	var n int64
	err := store.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT client_id) FROM metrics`).Scan(&n)
	return n, err
}

func (store *SQLiteStorage) CountSnapshots(ctx context.Context) (int64, error) {
	var n int64
	err := store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM metrics`).Scan(&n)
	return n, err
}

func (store *SQLiteStorage) Clients(ctx context.Context) ([]model.ClientRollup, error) {
	rows, err := store.db.QueryContext(ctx, `
		SELECT client_id, COALESCE(client_name, ''), MAX(timestamp), COUNT(*)
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

func (store *SQLiteStorage) Ping(ctx context.Context) error {
	return store.db.PingContext(ctx)
}

func (store *SQLiteStorage) Close() error {
	return store.db.Close()
}
