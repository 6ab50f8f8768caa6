package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"belegwerk/internal/core/apperror"
	"belegwerk/internal/domain/catalogs/supplier"
	"belegwerk/internal/infrastructure/storage/postgres"
)

var supplierColumns = []string{
	"id", "deletion_mark", "version",
	"code", "name",
	"contact_person", "phone", "email", "address", "notes",
}

// SupplierRepo implements supplier.Repository.
type SupplierRepo struct {
	*BaseCatalogRepo[*supplier.Supplier]
}

var _ supplier.Repository = (*SupplierRepo)(nil)

// NewSupplierRepo creates a new supplier repository.
func NewSupplierRepo(txManager *postgres.TxManager) *SupplierRepo {
	return &SupplierRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txManager,
			"suppliers",
			supplierColumns,
			func() *supplier.Supplier { return &supplier.Supplier{} },
		),
	}
}

// FindByName returns the supplier with exactly this name, or nil when
// no such supplier exists. The match is case-sensitive.
func (r *SupplierRepo) FindByName(ctx context.Context, name string) (*supplier.Supplier, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"name": name}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	s, err := r.FindOne(ctx, q)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}
