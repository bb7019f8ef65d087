// Package mysql implements storage.Storage on MySQL through GORM.
package mysql

import (
	"context"
	"fmt"
	"time"

	"github.com/and161185/health-dashboard/internal/utils"
	"github.com/and161185/health-dashboard/model"
	"github.com/and161185/health-dashboard/storage"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type metricRow struct {
	ID                uint64    `gorm:"primaryKey;autoIncrement"`
	ClientID          string    `gorm:"type:varchar(255);not null;index:idx_client_id"`
	ClientName        *string   `gorm:"type:varchar(255)"`
	Timestamp         string    `gorm:"column:timestamp;type:varchar(50);not null;index:idx_timestamp,sort:desc"`
	ReceivedAt        string    `gorm:"type:varchar(50);not null"`
	CPUPercent        *float64  `gorm:"column:cpu_percent"`
	GPUPercent        *float64  `gorm:"column:gpu_percent"`
	RAMJSON           *string   `gorm:"column:ram_json;type:text"`
	PingMS            *float64  `gorm:"column:ping_ms"`
	InternetConnected *bool     `gorm:"column:internet_connected"`
	RawData           string    `gorm:"column:raw_data;type:longtext;not null"`
	CreatedAt         time.Time `gorm:"autoCreateTime"`
}

func (metricRow) TableName() string { return "metrics" }

type MySQLStorage struct {
	db *gorm.DB
}

// NewMySQLStorage connects using a go-sql-driver DSN and migrates the
// metrics table.
func NewMySQLStorage(ctx context.Context, dsn string) (*MySQLStorage, error) {
	cfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	var db *gorm.DB
	err := utils.WithRetry(ctx, func() error {
		var err error
		db, err = gorm.Open(gormmysql.Open(dsn), cfg)
		return err
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)

	if err := db.WithContext(ctx).AutoMigrate(&metricRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &MySQLStorage{db: db}, nil
}

func (store *MySQLStorage) Insert(ctx context.Context, s *model.Snapshot) error {
	c, err := storage.ColumnsOf(s)
	if err != nil {
		return err
	}

	row := metricRow{
		ClientID:          c.ClientID,
		ClientName:        c.ClientName,
		Timestamp:         c.Timestamp,
		ReceivedAt:        c.ReceivedAt,
		CPUPercent:        c.CPUPercent,
		GPUPercent:        c.GPUPercent,
		RAMJSON:           c.RAMJSON,
		PingMS:            c.PingMS,
		InternetConnected: c.InternetConnected,
		RawData:           c.RawData,
	}
	return store.db.WithContext(ctx).Create(&row).Error
}

func (store *MySQLStorage) Recent(ctx context.Context, limit int, clientID string) ([]model.Snapshot, error) {
	q := store.db.WithContext(ctx).
		Model(&metricRow{}).
		Select("client_id", "raw_data").
		Order("timestamp DESC").
		Limit(limit)
	if clientID != "" {
		q = q.Where("client_id = ?", clientID)
	}

	var rows []struct {
		ClientID string
		RawData  string
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]model.Snapshot, 0, len(rows))
	for _, r := range rows {
		s, err := storage.SnapshotFromRow(r.ClientID, r.RawData)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, nil
}

func (store *MySQLStorage) CountClients(ctx context.Context) (int64, error) {
	var n int64
	err := store.db.WithContext(ctx).Model(&metricRow{}).Distinct("client_id").Count(&n).Error
	return n, err
}

func (store *MySQLStorage) CountSnapshots(ctx context.Context) (int64, error) {
	var n int64
	err := store.db.WithContext(ctx).Model(&metricRow{}).Count(&n).Error
	return n, err
}

func (store *MySQLStorage) Clients(ctx context.Context) ([]model.ClientRollup, error) {
	var result []model.ClientRollup
	err := store.db.WithContext(ctx).
		Model(&metricRow{}).
		Select("client_id, COALESCE(client_name, '') AS client_name, MAX(timestamp) AS last_seen, COUNT(*) AS metric_count").
		Group("client_id, client_name").
		Order("client_id, client_name").
		Scan(&result).Error
	return result, err
}

func (store *MySQLStorage) Ping(ctx context.Context) error {
	sqlDB, err := store.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (store *MySQLStorage) Close() error {
	sqlDB, err := store.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
