// Package document implements supplier documents (invoices and delivery
// notes), their line items and the status lifecycle driving approval.
package document

import (
	"context"
	"strings"
	"time"

	"belegwerk/internal/core/apperror"
	"belegwerk/internal/core/entity"
	"belegwerk/internal/core/id"
	"belegwerk/internal/core/types"
)

// Kind distinguishes the two document types the pipeline ingests.
type Kind string

const (
	KindInvoice      Kind = "invoice"
	KindDeliveryNote Kind = "delivery_note"
)

// ValidKind reports whether k is a known document kind.
func ValidKind(k Kind) bool {
	return k == KindInvoice || k == KindDeliveryNote
}

// Status is the document lifecycle state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAnalyzed Status = "analyzed"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ValidStatus reports whether s is a known status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusAnalyzed, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Document is a supplier invoice or delivery note.
// Line items live in Items and are persisted separately.
type Document struct {
	entity.BaseDocument

	Kind   Kind   `db:"kind" json:"kind"`
	Status Status `db:"status" json:"status"`

	// FileID references the uploaded source file (image or PDF).
	FileID string `db:"file_id" json:"fileId,omitempty"`

	// InvoiceNumber is the supplier's own document number. Optional:
	// delivery notes and poorly extracted invoices may not carry one.
	InvoiceNumber string `db:"invoice_number" json:"invoiceNumber,omitempty"`

	// SupplierName is the extracted free-text vendor name. SupplierID is
	// bound lazily, at the latest during approval.
	SupplierName string `db:"supplier_name" json:"supplierName"`
	SupplierID   *id.ID `db:"supplier_id" json:"supplierId,omitempty"`

	DocumentDate time.Time  `db:"document_date" json:"documentDate"`
	DueDate      *time.Time `db:"due_date" json:"dueDate,omitempty"`

	NetAmount   types.Money `db:"net_amount" json:"netAmount"`
	TaxAmount   types.Money `db:"tax_amount" json:"taxAmount"`
	TotalAmount types.Money `db:"total_amount" json:"totalAmount"`

	// Items are the document lines, ordered by line number.
	Items []Item `db:"-" json:"items"`
}

// Item is a single document line.
type Item struct {
	ID         id.ID          `db:"id" json:"id"`
	DocumentID id.ID          `db:"document_id" json:"-"`
	LineNo     int            `db:"line_no" json:"lineNo"`
	Name       string         `db:"name" json:"name"`
	Quantity   types.Quantity `db:"quantity" json:"quantity"`
	Unit       string         `db:"unit" json:"unit"`
	UnitPrice  types.Money    `db:"unit_price" json:"unitPrice"`
	TotalPrice types.Money    `db:"total_price" json:"totalPrice"`
}

// NewDocument creates a document in pending state.
func NewDocument(kind Kind) *Document {
	return &Document{
		BaseDocument: entity.NewBaseDocument(),
		Kind:         kind,
		Status:       StatusPending,
	}
}

// Validate implements entity.Validatable.
func (d *Document) Validate(ctx context.Context) error {
	if !ValidKind(d.Kind) {
		return apperror.NewValidation("unknown document kind").
			WithDetail("field", "kind").
			WithDetail("value", string(d.Kind))
	}
	if !ValidStatus(d.Status) {
		return apperror.NewValidation("unknown document status").
			WithDetail("field", "status").
			WithDetail("value", string(d.Status))
	}
	if strings.TrimSpace(d.SupplierName) == "" {
		return apperror.NewValidation("supplier name is required").
			WithDetail("field", "supplierName")
	}
	if d.DocumentDate.IsZero() {
		return apperror.NewValidation("document date is required").
			WithDetail("field", "documentDate")
	}
	for i := range d.Items {
		item := &d.Items[i]
		if strings.TrimSpace(item.Name) == "" {
			return apperror.NewValidation("item name is required").
				WithDetail("field", "items").
				WithDetail("line", item.LineNo)
		}
		if item.Quantity.IsNegative() {
			return apperror.NewValidation("item quantity cannot be negative").
				WithDetail("field", "items").
				WithDetail("line", item.LineNo)
		}
	}
	return nil
}

// IsApproved reports whether the document has been approved.
func (d *Document) IsApproved() bool {
	return d.Status == StatusApproved
}

// CanModify reports whether content edits are still allowed.
// Approved documents are frozen: their effects are already booked.
func (d *Document) CanModify() bool {
	return d.Status != StatusApproved
}
