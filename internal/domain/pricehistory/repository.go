package pricehistory

import (
	"context"

	"belegwerk/internal/core/id"
)

// Repository defines data access for the price register.
type Repository interface {
	// Append inserts a new price point.
	Append(ctx context.Context, rec *Record) error

	// Latest returns the most recent price point for the product name and
	// supplier, or nil when none has been recorded yet.
	Latest(ctx context.Context, productName string, supplierID id.ID) (*Record, error)

	// ListByProduct returns price points for a product name across all
	// suppliers, newest first.
	ListByProduct(ctx context.Context, productName string, limit int) ([]*Record, error)
}
