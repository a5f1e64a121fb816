package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// PostgresStore implements HashStore on a single hash_entries table.
type PostgresStore struct {
	db *gorm.DB
}

// NewPostgresStore opens a GORM connection using a PostgreSQL URL and
// migrates the hash_entries table.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	dsn := strings.TrimSpace(databaseURL)
	if dsn == "" {
		return nil, errors.New("APP_DATABASE_URL is required (PostgreSQL URL)")
	}
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return nil, errors.New("APP_DATABASE_URL must be a postgres:// or postgresql:// URL")
	}

	// PrepareStmt: true prevents the GORM postgres migrator from forcing simple protocol
	// for "SELECT * FROM table LIMIT 1", which would otherwise trigger "insufficient arguments".
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		PrepareStmt: true,
		Logger:      logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&HashEntry{}); err != nil {
		return nil, err
	}

	return &PostgresStore{db: db}, nil
}

func (ps *PostgresStore) HSet(ctx context.Context, namespace, field, value string) (bool, error) {
	if namespace == "" {
		return false, errEmptyNamespace
	}
	created := false
	err := ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&HashEntry{}).
			Where("namespace = ? AND field = ?", namespace, field).
			Count(&count).Error; err != nil {
			return err
		}
		created = count == 0

		now := time.Now()
		entry := HashEntry{Namespace: namespace, Field: field, Value: value, CreatedAt: now, UpdatedAt: now}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "namespace"}, {Name: "field"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&entry).Error
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

func (ps *PostgresStore) HGet(ctx context.Context, namespace, field string) (string, bool, error) {
	var entries []HashEntry
	if err := ps.db.WithContext(ctx).
		Where("namespace = ? AND field = ?", namespace, field).
		Limit(1).Find(&entries).Error; err != nil {
		return "", false, err
	}
	if len(entries) == 0 {
		return "", false, nil
	}
	return entries[0].Value, true, nil
}

func (ps *PostgresStore) HGetAll(ctx context.Context, namespace string) (map[string]string, error) {
	var entries []HashEntry
	if err := ps.db.WithContext(ctx).Where("namespace = ?", namespace).Find(&entries).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		out[e.Field] = e.Value
	}
	return out, nil
}

func (ps *PostgresStore) HDel(ctx context.Context, namespace, field string) (bool, error) {
	res := ps.db.WithContext(ctx).
		Where("namespace = ? AND field = ?", namespace, field).
		Delete(&HashEntry{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (ps *PostgresStore) HExists(ctx context.Context, namespace, field string) (bool, error) {
	var count int64
	if err := ps.db.WithContext(ctx).Model(&HashEntry{}).
		Where("namespace = ? AND field = ?", namespace, field).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (ps *PostgresStore) Ping(ctx context.Context) error {
	sqlDB, err := ps.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (ps *PostgresStore) Close() error {
	sqlDB, err := ps.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
