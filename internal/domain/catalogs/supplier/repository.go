package supplier

import (
	"context"

	"belegwerk/internal/domain"
)

// Repository defines data access for suppliers.
type Repository interface {
	domain.CatalogRepository[*Supplier]

	// FindByName returns the supplier with exactly this name,
	// or nil when no such supplier exists.
	FindByName(ctx context.Context, name string) (*Supplier, error)
}
