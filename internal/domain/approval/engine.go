// Package approval implements the document approval orchestrator: the
// status state machine and the type-conditional side effects booked when
// a document is approved.
package approval

import (
	"context"
	"fmt"
	"time"

	"belegwerk/internal/core/apperror"
	"belegwerk/internal/core/id"
	"belegwerk/internal/core/tx"
	"belegwerk/internal/core/types"
	"belegwerk/internal/domain/catalogs/product"
	"belegwerk/internal/domain/catalogs/supplier"
	"belegwerk/internal/domain/documents/document"
	"belegwerk/internal/domain/spending"
	"belegwerk/internal/domain/tasks"
	"belegwerk/pkg/logger"
)

// DocumentStore is the slice of document storage the engine needs.
type DocumentStore interface {
	GetByID(ctx context.Context, docID id.ID) (*document.Document, error)
	GetItems(ctx context.Context, docID id.ID) ([]document.Item, error)
	UpdateStatus(ctx context.Context, docID id.ID, status document.Status) error
	SetSupplier(ctx context.Context, docID id.ID, supplierID id.ID) error
}

// ProductStore is the slice of product storage the engine needs.
type ProductStore interface {
	FindByNameFold(ctx context.Context, name string) (*product.Product, error)
	Create(ctx context.Context, p *product.Product) error
	Update(ctx context.Context, p *product.Product) error
}

// SupplierResolver binds free-text vendor names to supplier records.
type SupplierResolver interface {
	ResolveByName(ctx context.Context, name string) (*supplier.Supplier, bool, error)
}

// SpendingRegister accumulates approved invoice totals per month.
type SpendingRegister interface {
	Add(ctx context.Context, year int, month time.Month, amount types.Money) error
}

// StockResolver auto-resolves open low-stock anomalies after restocking.
type StockResolver interface {
	AutoResolveLowStock(ctx context.Context, productID id.ID) error
}

// AuditTrail records approval decisions for the audit log. Optional.
type AuditTrail interface {
	Record(ctx context.Context, action string, entityID id.ID, details map[string]any) error
}

// Engine drives document status transitions and their side effects.
//
// The whole transition runs in one transaction: status change, supplier
// binding, stock and spending mutations and the enqueued detector tasks
// commit together or not at all. Detector tasks go through the outbox, so
// the heavier checks run asynchronously but are never lost.
type Engine struct {
	documents DocumentStore
	products  ProductStore
	suppliers SupplierResolver
	spending  SpendingRegister
	stock     StockResolver
	queue     tasks.Queue
	audit     AuditTrail
	txManager tx.Manager
	log       *logger.Logger
}

// Config wires the engine's collaborators.
type Config struct {
	Documents DocumentStore
	Products  ProductStore
	Suppliers SupplierResolver
	Spending  SpendingRegister
	Stock     StockResolver
	Queue     tasks.Queue
	Audit     AuditTrail
	TxManager tx.Manager
	Logger    *logger.Logger
}

// NewEngine creates an approval engine.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		documents: cfg.Documents,
		products:  cfg.Products,
		suppliers: cfg.Suppliers,
		spending:  cfg.Spending,
		stock:     cfg.Stock,
		queue:     cfg.Queue,
		audit:     cfg.Audit,
		txManager: cfg.TxManager,
		log:       cfg.Logger.WithComponent("approval.engine"),
	}
}

// TransitionStatus moves a document to a new status. The new status is
// always persisted; side effects run only on the first transition into
// approved — re-approving an already-approved document changes nothing.
func (e *Engine) TransitionStatus(ctx context.Context, documentID id.ID, newStatus document.Status) (*document.Document, error) {
	if !document.ValidStatus(newStatus) {
		return nil, apperror.NewValidation("unknown document status").
			WithDetail("field", "status").
			WithDetail("value", string(newStatus))
	}

	var doc *document.Document
	err := e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = e.documents.GetByID(ctx, documentID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewNotFound("Document", documentID.String())
			}
			return err
		}

		prev := doc.Status
		if err := e.documents.UpdateStatus(ctx, documentID, newStatus); err != nil {
			return fmt.Errorf("persist status: %w", err)
		}
		doc.Status = newStatus

		if newStatus != document.StatusApproved || prev == document.StatusApproved {
			return nil
		}
		return e.applyApproval(ctx, doc)
	})
	if err != nil {
		return nil, err
	}

	e.log.WithContext(ctx).Infow("document status changed",
		"document_id", documentID.String(),
		"kind", string(doc.Kind),
		"status", string(newStatus),
	)
	e.recordAudit(ctx, doc, newStatus)
	return doc, nil
}

// applyApproval books the type-conditional effects of a first approval.
// Inventory is touched only by delivery notes, spending only by invoices.
func (e *Engine) applyApproval(ctx context.Context, doc *document.Document) error {
	items, err := e.documents.GetItems(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("load items: %w", err)
	}

	if doc.SupplierID == nil {
		sup, created, err := e.suppliers.ResolveByName(ctx, doc.SupplierName)
		if err != nil {
			return fmt.Errorf("resolve supplier: %w", err)
		}
		supID := sup.ID
		if err := e.documents.SetSupplier(ctx, doc.ID, supID); err != nil {
			return fmt.Errorf("bind supplier: %w", err)
		}
		doc.SupplierID = &supID

		if created {
			docID := doc.ID
			if err := e.queue.Enqueue(ctx, tasks.Task{
				Type:          tasks.TypeNewSupplierCheck,
				AggregateType: "Supplier",
				AggregateID:   supID,
				Payload:       tasks.NewSupplierCheck{SupplierID: supID, DocumentID: &docID},
			}); err != nil {
				return fmt.Errorf("enqueue new supplier check: %w", err)
			}
		}
	}

	switch doc.Kind {
	case document.KindDeliveryNote:
		return e.applyDeliveryNote(ctx, doc, items)
	case document.KindInvoice:
		return e.applyInvoice(ctx, doc)
	default:
		return apperror.NewValidation("unknown document kind").
			WithDetail("value", string(doc.Kind))
	}
}

type touchedProduct struct {
	productID id.ID
	wasLow    bool
}

// applyDeliveryNote books received quantities into the product catalog.
// Unknown product names create catalog entries on the fly.
func (e *Engine) applyDeliveryNote(ctx context.Context, doc *document.Document, items []document.Item) error {
	var touched []touchedProduct
	seen := map[id.ID]bool{}

	for _, item := range items {
		p, err := e.products.FindByNameFold(ctx, item.Name)
		if err != nil {
			return fmt.Errorf("match product %q: %w", item.Name, err)
		}

		if p == nil {
			p = product.NewFromReceipt(item.Name, item.Unit, item.Quantity,
				item.UnitPrice, doc.SupplierID, doc.DocumentDate)
			if err := e.products.Create(ctx, p); err != nil {
				return fmt.Errorf("create product %q: %w", item.Name, err)
			}
			touched = append(touched, touchedProduct{productID: p.ID})
		} else {
			wasLow := p.IsLowStock()
			p.ApplyReceipt(item.Quantity, item.UnitPrice, doc.DocumentDate)
			if err := e.products.Update(ctx, p); err != nil {
				return fmt.Errorf("update product %q: %w", item.Name, err)
			}
			if !seen[p.ID] {
				touched = append(touched, touchedProduct{productID: p.ID, wasLow: wasLow})
			}
		}
		seen[p.ID] = true
	}

	for _, t := range touched {
		if t.wasLow {
			if err := e.stock.AutoResolveLowStock(ctx, t.productID); err != nil {
				return fmt.Errorf("auto-resolve low stock: %w", err)
			}
		}
		// Re-check unconditionally: stock may still be short, and brand-new
		// products can start below their minimum.
		if err := e.queue.Enqueue(ctx, tasks.Task{
			Type:          tasks.TypeLowStockCheck,
			AggregateType: "Product",
			AggregateID:   t.productID,
			Payload:       tasks.LowStockCheck{ProductID: t.productID},
		}); err != nil {
			return fmt.Errorf("enqueue low stock check: %w", err)
		}
	}

	return nil
}

// applyInvoice books the invoice total into the document month's spending
// bucket and schedules price-change detection.
func (e *Engine) applyInvoice(ctx context.Context, doc *document.Document) error {
	year, month := spending.Period(doc.DocumentDate)
	if err := e.spending.Add(ctx, year, month, doc.TotalAmount); err != nil {
		return fmt.Errorf("book spending: %w", err)
	}

	if err := e.queue.Enqueue(ctx, tasks.Task{
		Type:          tasks.TypePriceCheck,
		AggregateType: "Document",
		AggregateID:   doc.ID,
		Payload:       tasks.PriceCheck{DocumentID: doc.ID},
	}); err != nil {
		return fmt.Errorf("enqueue price check: %w", err)
	}
	return nil
}

func (e *Engine) recordAudit(ctx context.Context, doc *document.Document, status document.Status) {
	if e.audit == nil {
		return
	}

	action := "document.status_changed"
	switch status {
	case document.StatusApproved:
		action = "document.approved"
	case document.StatusRejected:
		action = "document.rejected"
	}

	err := e.audit.Record(ctx, action, doc.ID, map[string]any{
		"kind":   string(doc.Kind),
		"status": string(status),
	})
	if err != nil {
		e.log.WithContext(ctx).Warnw("audit record failed",
			"document_id", doc.ID.String(),
			"error", err,
		)
	}
}
