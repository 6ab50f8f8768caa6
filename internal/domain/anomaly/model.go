// Package anomaly implements anomaly records, their resolve lifecycle and
// the detectors that emit them from document, product and price state.
package anomaly

import (
	"context"
	"time"

	"belegwerk/internal/core/apperror"
	"belegwerk/internal/core/entity"
	"belegwerk/internal/core/id"
)

// Type is the closed catalogue of detectable irregularities.
type Type string

const (
	TypePriceIncrease       Type = "price_increase"
	TypePriceDecrease       Type = "price_decrease"
	TypeUnusualQuantity     Type = "unusual_quantity"
	TypeMissingDelivery     Type = "missing_delivery"
	TypeMissingDeliveryNote Type = "missing_delivery_note"
	TypeDuplicateInvoice    Type = "duplicate_invoice"
	TypeNewSupplier         Type = "new_supplier"
	TypeLowStock            Type = "low_stock"
)

// ValidType reports whether t is a known anomaly type.
func ValidType(t Type) bool {
	switch t {
	case TypePriceIncrease, TypePriceDecrease, TypeUnusualQuantity,
		TypeMissingDelivery, TypeMissingDeliveryNote, TypeDuplicateInvoice,
		TypeNewSupplier, TypeLowStock:
		return true
	}
	return false
}

// Severity classifies an anomaly's urgency.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Anomaly is a detected irregularity awaiting review.
// At most one unresolved anomaly per (type, document) or (type, product)
// pair exists at a time; resolved ones are kept for history.
type Anomaly struct {
	entity.BaseEntity

	Type     Type     `db:"type" json:"type"`
	Severity Severity `db:"severity" json:"severity"`

	Title       string `db:"title" json:"title"`
	Description string `db:"description" json:"description"`

	DocumentID *id.ID `db:"document_id" json:"documentId,omitempty"`
	ProductID  *id.ID `db:"product_id" json:"productId,omitempty"`
	SupplierID *id.ID `db:"supplier_id" json:"supplierId,omitempty"`

	DetectedAt time.Time  `db:"detected_at" json:"detectedAt"`
	Resolved   bool       `db:"resolved" json:"resolved"`
	ResolvedBy string     `db:"resolved_by" json:"resolvedBy,omitempty"`
	ResolvedAt *time.Time `db:"resolved_at" json:"resolvedAt,omitempty"`
}

// New creates an unresolved anomaly.
func New(typ Type, severity Severity, title, description string) *Anomaly {
	return &Anomaly{
		BaseEntity:  entity.NewBaseEntity(),
		Type:        typ,
		Severity:    severity,
		Title:       title,
		Description: description,
		DetectedAt:  time.Now().UTC(),
	}
}

// Validate implements entity.Validatable.
func (a *Anomaly) Validate(ctx context.Context) error {
	if !ValidType(a.Type) {
		return apperror.NewValidation("unknown anomaly type").
			WithDetail("field", "type").
			WithDetail("value", string(a.Type))
	}
	switch a.Severity {
	case SeverityLow, SeverityMedium, SeverityHigh:
	default:
		return apperror.NewValidation("unknown anomaly severity").
			WithDetail("field", "severity").
			WithDetail("value", string(a.Severity))
	}
	if a.Title == "" {
		return apperror.NewValidation("anomaly title is required").
			WithDetail("field", "title")
	}
	return nil
}

// Resolve marks the anomaly resolved. Resolution is one-way: a resolved
// anomaly stays resolved, re-detection creates a fresh record.
func (a *Anomaly) Resolve(resolvedBy string) error {
	if a.Resolved {
		return apperror.NewBusinessRule(apperror.CodeAnomalyResolved,
			"Anomaly is already resolved")
	}
	now := time.Now().UTC()
	a.Resolved = true
	a.ResolvedBy = resolvedBy
	a.ResolvedAt = &now
	a.Touch()
	return nil
}
