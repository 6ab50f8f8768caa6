package spending

import (
	"context"
	"time"

	"belegwerk/internal/core/types"
)

// Repository defines data access for the spending register.
type Repository interface {
	// Add accumulates amount into the month's bucket, creating it on
	// first use. Implementations must be upsert-safe under concurrency.
	Add(ctx context.Context, year int, month time.Month, amount types.Money) error

	// Get returns the bucket for a month, or nil when nothing was booked.
	Get(ctx context.Context, year int, month time.Month) (*Record, error)

	// ListYear returns all buckets of a year ordered by month.
	ListYear(ctx context.Context, year int) ([]*Record, error)
}
