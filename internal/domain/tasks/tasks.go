// Package tasks defines the detector tasks the approval flow enqueues and
// the background worker drains. Tasks are persisted through the
// transactional outbox so a crash between approval and detection never
// loses a scheduled check.
package tasks

import (
	"context"

	"belegwerk/internal/core/id"
)

// Type identifies a detector task.
type Type string

const (
	TypePriceCheck            Type = "anomaly.price_check"
	TypeLowStockCheck         Type = "anomaly.low_stock_check"
	TypeDuplicateInvoiceCheck Type = "anomaly.duplicate_invoice_check"
	TypeNewSupplierCheck      Type = "anomaly.new_supplier_check"
)

// PriceCheck asks the price-change detector to inspect an approved invoice.
type PriceCheck struct {
	DocumentID id.ID `json:"documentId"`
}

// LowStockCheck asks the low-stock detector to inspect a single product.
type LowStockCheck struct {
	ProductID id.ID `json:"productId"`
}

// DuplicateInvoiceCheck asks the duplicate detector to inspect an invoice.
type DuplicateInvoiceCheck struct {
	DocumentID id.ID `json:"documentId"`
}

// NewSupplierCheck asks the new-supplier detector to inspect a supplier,
// optionally linking the triggering document.
type NewSupplierCheck struct {
	SupplierID id.ID  `json:"supplierId"`
	DocumentID *id.ID `json:"documentId,omitempty"`
}

// Task is a unit of detector work bound to an aggregate.
type Task struct {
	Type          Type
	AggregateType string // "Document", "Product", "Supplier"
	AggregateID   id.ID
	Payload       any
}

// Queue accepts tasks for asynchronous execution.
// Implementations MUST persist the task within the caller's transaction.
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
}
