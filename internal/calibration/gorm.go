package calibration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// CacheEntry is the row model for GormStore
type CacheEntry struct {
	Key        string `gorm:"primaryKey;type:text"`
	FloatValue *float64
	TimeValue  *time.Time `gorm:"type:timestamptz"`
	UpdatedAt  time.Time
}

// TableName implements the gorm.Tabler interface
func (CacheEntry) TableName() string {
	return "calibration_cache"
}

// GormStore is a Store kept in PostgreSQL through gorm, for deployments
// that already run a database for their other state.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore connects to PostgreSQL and migrates the cache table
func NewGormStore(connectionString string, log *zap.SugaredLogger) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(connectionString), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to calibration database: %w", err)
	}
	if err := db.AutoMigrate(&CacheEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate calibration_cache: %w", err)
	}
	if log != nil {
		log.Debugf("calibration cache table ready in PostgreSQL")
	}
	return &GormStore{db: db}, nil
}

func (g *GormStore) get(ctx context.Context, key string) (*CacheEntry, error) {
	var entry CacheEntry
	err := g.db.WithContext(ctx).Where("key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return &entry, nil
}

// upsert writes one column of entry. The other value column of an existing
// row is left alone so a pressure and its timestamp can share a key.
func (g *GormStore) upsert(ctx context.Context, entry CacheEntry, column string) error {
	if err := g.insert(ctx, entry, column).Error; err != nil {
		return fmt.Errorf("failed to write %s: %w", entry.Key, err)
	}
	return nil
}

func (g *GormStore) insert(ctx context.Context, entry CacheEntry, column string) *gorm.DB {
	entry.UpdatedAt = time.Now()
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{column, "updated_at"}),
	}).Create(&entry)
}

func (g *GormStore) GetFloat(ctx context.Context, key string) (float64, bool, error) {
	entry, err := g.get(ctx, key)
	if err != nil || entry == nil || entry.FloatValue == nil {
		return 0, false, err
	}
	return *entry.FloatValue, true, nil
}

func (g *GormStore) PutFloat(ctx context.Context, key string, value float64) error {
	return g.upsert(ctx, CacheEntry{Key: key, FloatValue: &value}, "float_value")
}

func (g *GormStore) GetTime(ctx context.Context, key string) (time.Time, bool, error) {
	entry, err := g.get(ctx, key)
	if err != nil || entry == nil || entry.TimeValue == nil {
		return time.Time{}, false, err
	}
	return *entry.TimeValue, true, nil
}

func (g *GormStore) PutTime(ctx context.Context, key string, value time.Time) error {
	return g.upsert(ctx, CacheEntry{Key: key, TimeValue: &value}, "time_value")
}

func (g *GormStore) Remove(ctx context.Context, key string) error {
	if err := g.db.WithContext(ctx).Where("key = ?", key).Delete(&CacheEntry{}).Error; err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

func (g *GormStore) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
