package document

import (
	"context"
	"time"

	"belegwerk/internal/core/id"
	"belegwerk/internal/domain"
)

// ListFilter extends the common filter with document-specific criteria.
type ListFilter struct {
	domain.ListFilter

	Kind       Kind
	Status     Status
	SupplierID *id.ID
	DateFrom   *time.Time
	DateTo     *time.Time
}

// Repository defines data access for documents and their items.
type Repository interface {
	// Create inserts the document header.
	Create(ctx context.Context, doc *Document) error

	// GetByID returns the document header (without items).
	GetByID(ctx context.Context, docID id.ID) (*Document, error)

	// Update persists header changes with optimistic locking.
	Update(ctx context.Context, doc *Document) error

	// UpdateStatus persists just the status transition.
	UpdateStatus(ctx context.Context, docID id.ID, status Status) error

	// SetSupplier binds the resolved supplier to the document.
	SetSupplier(ctx context.Context, docID id.ID, supplierID id.ID) error

	// Delete removes the document and cascades to its items.
	Delete(ctx context.Context, docID id.ID) error

	// ReplaceItems deletes and re-inserts the document's items.
	ReplaceItems(ctx context.Context, docID id.ID, items []Item) error

	// GetItems returns the document's items ordered by line number.
	GetItems(ctx context.Context, docID id.ID) ([]Item, error)

	// List returns document headers matching the filter.
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Document], error)

	// CountBySupplier counts all documents referencing the supplier.
	CountBySupplier(ctx context.Context, supplierID id.ID) (int64, error)

	// FindInvoiceDuplicates returns other invoices of the same supplier
	// carrying the same invoice number.
	FindInvoiceDuplicates(ctx context.Context, supplierID id.ID, invoiceNumber string, excludeID id.ID) ([]*Document, error)

	// ListApprovedInvoicesBefore returns approved invoices whose document
	// date is strictly before the cutoff.
	ListApprovedInvoicesBefore(ctx context.Context, cutoff time.Time) ([]*Document, error)

	// HasDeliveryNoteInWindow reports whether the supplier has any delivery
	// note dated within [from, to].
	HasDeliveryNoteInWindow(ctx context.Context, supplierID id.ID, from, to time.Time) (bool, error)
}
