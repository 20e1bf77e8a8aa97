package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/newsdigest-agent/internal/models"
	"github.com/newsdigest-agent/internal/storage"
)

// Repository implements storage.Repository using SQLite
type Repository struct {
	db *gorm.DB
}

// New creates a new SQLite repository
func New(dsn string) (*Repository, error) {
	// Ensure directory exists
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Repository{db: db}, nil
}

// Migrate runs database migrations
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(
		&models.DigestConfig{},
		&models.DeliveryLog{},
	)
}

// Close closes the database connection
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Digest configuration operations

func (r *Repository) GetActiveConfig(ctx context.Context) (*models.DigestConfig, error) {
	var cfg models.DigestConfig
	err := r.db.WithContext(ctx).Where("active = ?", true).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// UpsertActiveConfig creates the first configuration row or mutates the
// existing active row in place. The single-active invariant is enforced
// here, not by callers.
func (r *Repository) UpsertActiveConfig(ctx context.Context, cfg *models.DigestConfig) error {
	cfg.Normalize()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.DigestConfig
		err := tx.Where("active = ?", true).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			cfg.Active = true
			return tx.Create(cfg).Error
		}
		if err != nil {
			return err
		}

		existing.Topic = cfg.Topic
		existing.Recipient = cfg.Recipient
		existing.Country = cfg.Country
		existing.Language = cfg.Language
		existing.IntervalMinutes = cfg.IntervalMinutes
		existing.ArticleCount = cfg.ArticleCount
		existing.Provider = cfg.Provider
		existing.FeedURL = cfg.FeedURL
		existing.Active = true
		if err := tx.Save(&existing).Error; err != nil {
			return err
		}
		*cfg = existing
		return nil
	})
}

// Delivery log operations

func (r *Repository) AppendLog(ctx context.Context, entry *models.DeliveryLog) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *Repository) ListRecentLogs(ctx context.Context, limit int) ([]*models.DeliveryLog, error) {
	if limit <= 0 {
		limit = 10
	}
	var logs []*models.DeliveryLog
	err := r.db.WithContext(ctx).
		Order("timestamp DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *Repository) ClearLogs(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Where("1 = 1").
		Delete(&models.DeliveryLog{}).Error
}

func (r *Repository) PruneLogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("timestamp < ?", cutoff).
		Delete(&models.DeliveryLog{})
	return res.RowsAffected, res.Error
}

// Ensure Repository implements storage.Repository
var _ storage.Repository = (*Repository)(nil)
