package product

import (
	"context"

	"belegwerk/internal/core/id"
	"belegwerk/internal/domain"
)

// Repository defines data access for products.
type Repository interface {
	domain.CatalogRepository[*Product]

	// FindByNameFold returns the product whose name matches case-insensitively,
	// or nil when the catalog has no such product.
	FindByNameFold(ctx context.Context, name string) (*Product, error)

	// ListBelowMinStock returns all products whose current stock is
	// strictly below their minimum stock level.
	ListBelowMinStock(ctx context.Context) ([]*Product, error)

	// ListBySupplier returns products last sourced from the given supplier.
	ListBySupplier(ctx context.Context, supplierID id.ID) ([]*Product, error)
}
