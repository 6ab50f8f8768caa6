package anomaly

import (
	"context"

	"belegwerk/internal/core/id"
	"belegwerk/internal/domain"
)

// ListFilter extends the common filter with anomaly-specific criteria.
type ListFilter struct {
	domain.ListFilter

	Type       Type
	Severity   Severity
	Resolved   *bool
	DocumentID *id.ID
	ProductID  *id.ID
	SupplierID *id.ID
}

// Repository defines data access for anomalies.
//
// The store enforces the de-duplication invariant with partial unique
// indexes over the unresolved subset: Create maps a uniqueness violation
// to an apperror duplicate, which detectors treat as "already flagged".
type Repository interface {
	// Create inserts an anomaly. Returns a duplicate error when an
	// unresolved anomaly with the same (type, document) or (type,
	// product) key already exists.
	Create(ctx context.Context, a *Anomaly) error

	// GetByID returns an anomaly.
	GetByID(ctx context.Context, anomalyID id.ID) (*Anomaly, error)

	// Update persists changes with optimistic locking.
	Update(ctx context.Context, a *Anomaly) error

	// ExistsUnresolved reports whether an unresolved anomaly of the type
	// references the given document or product. Either subject may be nil.
	ExistsUnresolved(ctx context.Context, typ Type, documentID, productID *id.ID) (bool, error)

	// ExistsForSupplier reports whether any anomaly of the type references
	// the supplier, resolved or not.
	ExistsForSupplier(ctx context.Context, typ Type, supplierID id.ID) (bool, error)

	// ListUnresolvedByProduct returns unresolved anomalies of the type for
	// a product.
	ListUnresolvedByProduct(ctx context.Context, typ Type, productID id.ID) ([]*Anomaly, error)

	// List returns anomalies matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Anomaly], error)
}
