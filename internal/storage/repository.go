package storage

import (
	"context"
	"time"

	"github.com/newsdigest-agent/internal/models"
)

// Repository defines the interface for data persistence
type Repository interface {
	// Digest configuration operations. GetActiveConfig returns
	// (nil, nil) when no configuration has been created yet.
	// UpsertActiveConfig normalizes the given fields and either
	// creates the first row or mutates the single active row in
	// place; it never produces a second active row.
	GetActiveConfig(ctx context.Context) (*models.DigestConfig, error)
	UpsertActiveConfig(ctx context.Context, cfg *models.DigestConfig) error

	// Delivery log operations. Entries are append-only; ListRecentLogs
	// orders by timestamp descending.
	AppendLog(ctx context.Context, entry *models.DeliveryLog) error
	ListRecentLogs(ctx context.Context, limit int) ([]*models.DeliveryLog, error)
	ClearLogs(ctx context.Context) error
	PruneLogsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Maintenance
	Close() error
	Migrate() error
}
