package anomaly

import (
	"context"
	"fmt"
	"time"

	"belegwerk/internal/core/apperror"
	"belegwerk/internal/core/id"
	"belegwerk/internal/core/types"
	"belegwerk/internal/domain/catalogs/product"
	"belegwerk/internal/domain/catalogs/supplier"
	"belegwerk/internal/domain/documents/document"
	"belegwerk/internal/domain/pricehistory"
	"belegwerk/pkg/logger"
)

// Price-change thresholds. Compared with decimals so that a change of
// exactly 10% lands on the low side of the boundary, not below it.
var (
	priceThresholdLow    = types.MustMoney("0.10")
	priceThresholdMedium = types.MustMoney("0.20")
	priceThresholdHigh   = types.MustMoney("0.30")
)

// Age and search window of the missing-delivery-note sweep.
const (
	invoiceMinAge      = 14 * 24 * time.Hour
	deliveryWindowBack = 30 * 24 * time.Hour
	deliveryWindowFwd  = 7 * 24 * time.Hour
)

// DocumentSource is the slice of document storage the detectors read.
type DocumentSource interface {
	GetByID(ctx context.Context, docID id.ID) (*document.Document, error)
	GetItems(ctx context.Context, docID id.ID) ([]document.Item, error)
	CountBySupplier(ctx context.Context, supplierID id.ID) (int64, error)
	FindInvoiceDuplicates(ctx context.Context, supplierID id.ID, invoiceNumber string, excludeID id.ID) ([]*document.Document, error)
	ListApprovedInvoicesBefore(ctx context.Context, cutoff time.Time) ([]*document.Document, error)
	HasDeliveryNoteInWindow(ctx context.Context, supplierID id.ID, from, to time.Time) (bool, error)
}

// ProductSource is the slice of product storage the detectors read.
type ProductSource interface {
	GetByID(ctx context.Context, productID id.ID) (*product.Product, error)
	ListBelowMinStock(ctx context.Context) ([]*product.Product, error)
}

// SupplierSource looks up suppliers for anomaly descriptions.
type SupplierSource interface {
	GetByID(ctx context.Context, supplierID id.ID) (*supplier.Supplier, error)
}

// Detector runs the anomaly detection rules. Each method is a stateless,
// idempotent function of current store contents: the unresolved-twin
// existence check (backed by a store-level constraint) guarantees at most
// one unresolved anomaly per (type, subject).
type Detector struct {
	anomalies Repository
	prices    pricehistory.Repository
	products  ProductSource
	documents DocumentSource
	suppliers SupplierSource
	log       *logger.Logger
}

// NewDetector creates a detector over the given stores.
func NewDetector(
	anomalies Repository,
	prices pricehistory.Repository,
	products ProductSource,
	documents DocumentSource,
	suppliers SupplierSource,
	log *logger.Logger,
) *Detector {
	return &Detector{
		anomalies: anomalies,
		prices:    prices,
		products:  products,
		documents: documents,
		suppliers: suppliers,
		log:       log.WithComponent("anomaly.detector"),
	}
}

// insert stores the anomaly, treating an unresolved twin as success.
func (d *Detector) insert(ctx context.Context, a *Anomaly) error {
	if err := d.anomalies.Create(ctx, a); err != nil {
		if apperror.IsDuplicate(err) {
			d.log.WithContext(ctx).Debugw("anomaly already flagged",
				"type", string(a.Type))
			return nil
		}
		return err
	}

	d.log.WithContext(ctx).Infow("anomaly detected",
		"anomaly_id", a.ID.String(),
		"type", string(a.Type),
		"severity", string(a.Severity),
	)
	return nil
}

// CheckPrices compares every priced line of an approved invoice against
// the latest recorded price for the same (name, supplier) pair, then
// appends a fresh price point per line. The very first price for a pair
// never fires: there is nothing to compare against.
func (d *Detector) CheckPrices(ctx context.Context, documentID id.ID) error {
	doc, err := d.documents.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if doc.SupplierID == nil {
		d.log.WithContext(ctx).Warnw("price check skipped, no supplier bound",
			"document_id", documentID.String())
		return nil
	}
	supplierID := *doc.SupplierID

	items, err := d.documents.GetItems(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load items: %w", err)
	}

	for _, item := range items {
		if !item.UnitPrice.IsPositive() {
			continue
		}

		prev, err := d.prices.Latest(ctx, item.Name, supplierID)
		if err != nil {
			return fmt.Errorf("load latest price for %q: %w", item.Name, err)
		}

		if prev != nil && prev.UnitPrice.IsPositive() {
			change := item.UnitPrice.Sub(prev.UnitPrice).Div(prev.UnitPrice)
			if change.Abs().GreaterThanOrEqual(priceThresholdLow) {
				if err := d.emitPriceChange(ctx, doc, item, prev.UnitPrice, change); err != nil {
					return err
				}
			}
		}

		rec := pricehistory.NewRecord(item.Name, supplierID, item.UnitPrice,
			item.Quantity, item.Unit, doc.ID, doc.DocumentDate)
		if err := d.prices.Append(ctx, rec); err != nil {
			return fmt.Errorf("append price history for %q: %w", item.Name, err)
		}
	}

	return nil
}

func (d *Detector) emitPriceChange(ctx context.Context, doc *document.Document, item document.Item, oldPrice, change types.Money) error {
	typ := TypePriceDecrease
	title := fmt.Sprintf("Preissenkung: %s", item.Name)
	if change.IsPositive() {
		typ = TypePriceIncrease
		title = fmt.Sprintf("Preisanstieg: %s", item.Name)
	}

	exists, err := d.anomalies.ExistsUnresolved(ctx, typ, &doc.ID, nil)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	var severity Severity
	switch {
	case change.Abs().GreaterThanOrEqual(priceThresholdHigh):
		severity = SeverityHigh
	case change.Abs().GreaterThanOrEqual(priceThresholdMedium):
		severity = SeverityMedium
	default:
		severity = SeverityLow
	}

	percent := change.Mul(types.MustMoney("100")).Round(1)
	a := New(typ, severity, title, fmt.Sprintf(
		"Preis für %s hat sich um %s%% geändert: %s → %s (Lieferant: %s)",
		item.Name, percent.String(), oldPrice.StringFixed(2),
		item.UnitPrice.StringFixed(2), doc.SupplierName))
	docID := doc.ID
	a.DocumentID = &docID
	a.SupplierID = doc.SupplierID

	return d.insert(ctx, a)
}

// CheckLowStock flags a single product whose stock fell below its minimum.
func (d *Detector) CheckLowStock(ctx context.Context, productID id.ID) error {
	p, err := d.products.GetByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("load product: %w", err)
	}
	return d.emitLowStock(ctx, p)
}

// LowStockSweep applies the low-stock rule to every under-stocked product.
// Runs on a daily schedule, independent of document events.
func (d *Detector) LowStockSweep(ctx context.Context) error {
	low, err := d.products.ListBelowMinStock(ctx)
	if err != nil {
		return fmt.Errorf("list low stock products: %w", err)
	}

	for _, p := range low {
		if err := d.emitLowStock(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (d *Detector) emitLowStock(ctx context.Context, p *product.Product) error {
	if !p.IsLowStock() {
		return nil
	}

	exists, err := d.anomalies.ExistsUnresolved(ctx, TypeLowStock, nil, &p.ID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	severity := SeverityMedium
	if p.CurrentStock.IsZero() {
		severity = SeverityHigh
	}

	a := New(TypeLowStock, severity,
		fmt.Sprintf("Niedriger Bestand: %s", p.Name),
		fmt.Sprintf("Aktueller Bestand %s %s liegt unter dem Mindestbestand von %s %s",
			p.CurrentStock.String(), p.Unit, p.MinStock.String(), p.Unit))
	productID := p.ID
	a.ProductID = &productID
	a.SupplierID = p.SupplierID

	return d.insert(ctx, a)
}

// AutoResolveLowStock resolves every open low-stock anomaly of a product
// once its stock is back at or above the minimum. No-op while still low.
func (d *Detector) AutoResolveLowStock(ctx context.Context, productID id.ID) error {
	p, err := d.products.GetByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("load product: %w", err)
	}
	if p.IsLowStock() {
		return nil
	}

	open, err := d.anomalies.ListUnresolvedByProduct(ctx, TypeLowStock, productID)
	if err != nil {
		return err
	}

	for _, a := range open {
		if err := a.Resolve("system"); err != nil {
			return err
		}
		if err := d.anomalies.Update(ctx, a); err != nil {
			return err
		}
		d.log.WithContext(ctx).Infow("low stock anomaly auto-resolved",
			"anomaly_id", a.ID.String(),
			"product_id", productID.String(),
		)
	}
	return nil
}

// CheckDuplicateInvoice flags an invoice whose supplier already has
// another invoice with the identical invoice number.
func (d *Detector) CheckDuplicateInvoice(ctx context.Context, documentID id.ID) error {
	doc, err := d.documents.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if doc.Kind != document.KindInvoice || doc.InvoiceNumber == "" || doc.SupplierID == nil {
		return nil
	}

	dups, err := d.documents.FindInvoiceDuplicates(ctx, *doc.SupplierID, doc.InvoiceNumber, doc.ID)
	if err != nil {
		return fmt.Errorf("find duplicates: %w", err)
	}
	if len(dups) == 0 {
		return nil
	}

	// One open anomaly covers the whole duplicate set: skip if this
	// document or any of its twins is already flagged.
	exists, err := d.anomalies.ExistsUnresolved(ctx, TypeDuplicateInvoice, &doc.ID, nil)
	if err != nil {
		return err
	}
	for _, dup := range dups {
		if exists {
			break
		}
		dupID := dup.ID
		exists, err = d.anomalies.ExistsUnresolved(ctx, TypeDuplicateInvoice, &dupID, nil)
		if err != nil {
			return err
		}
	}
	if exists {
		return nil
	}

	a := New(TypeDuplicateInvoice, SeverityHigh,
		fmt.Sprintf("Doppelte Rechnung: %s", doc.InvoiceNumber),
		fmt.Sprintf("Rechnung %s von %s existiert bereits (%d weitere mit gleicher Nummer)",
			doc.InvoiceNumber, doc.SupplierName, len(dups)))
	docID := doc.ID
	a.DocumentID = &docID
	a.SupplierID = doc.SupplierID

	return d.insert(ctx, a)
}

// CheckNewSupplier emits a one-time informational anomaly when a supplier
// receives its first document. The existence check is supplier-scoped and
// ignores the resolved flag, so it fires at most once per supplier.
func (d *Detector) CheckNewSupplier(ctx context.Context, supplierID id.ID, documentID *id.ID) error {
	count, err := d.documents.CountBySupplier(ctx, supplierID)
	if err != nil {
		return fmt.Errorf("count supplier documents: %w", err)
	}
	if count > 1 {
		return nil
	}

	exists, err := d.anomalies.ExistsForSupplier(ctx, TypeNewSupplier, supplierID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	sup, err := d.suppliers.GetByID(ctx, supplierID)
	if err != nil {
		return fmt.Errorf("load supplier: %w", err)
	}

	a := New(TypeNewSupplier, SeverityLow,
		fmt.Sprintf("Neuer Lieferant: %s", sup.Name),
		fmt.Sprintf("Erstes Dokument von %s eingegangen. Stammdaten prüfen.", sup.Name))
	supID := supplierID
	a.SupplierID = &supID
	a.DocumentID = documentID

	return d.insert(ctx, a)
}

// MissingDeliveryNoteSweep flags approved invoices older than two weeks
// with no delivery note from the same supplier dated within
// [invoice date - 30d, invoice date + 7d]. Runs on a daily schedule.
func (d *Detector) MissingDeliveryNoteSweep(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-invoiceMinAge)
	invoices, err := d.documents.ListApprovedInvoicesBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list aged invoices: %w", err)
	}

	for _, inv := range invoices {
		if inv.SupplierID == nil {
			continue
		}

		from := inv.DocumentDate.Add(-deliveryWindowBack)
		to := inv.DocumentDate.Add(deliveryWindowFwd)
		has, err := d.documents.HasDeliveryNoteInWindow(ctx, *inv.SupplierID, from, to)
		if err != nil {
			return fmt.Errorf("search delivery notes: %w", err)
		}
		if has {
			continue
		}

		exists, err := d.anomalies.ExistsUnresolved(ctx, TypeMissingDeliveryNote, &inv.ID, nil)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		a := New(TypeMissingDeliveryNote, SeverityMedium,
			fmt.Sprintf("Fehlender Lieferschein: Rechnung %s", inv.InvoiceNumber),
			fmt.Sprintf("Zur Rechnung vom %s von %s wurde kein Lieferschein gefunden",
				inv.DocumentDate.Format("02.01.2006"), inv.SupplierName))
		invID := inv.ID
		a.DocumentID = &invID
		a.SupplierID = inv.SupplierID

		if err := d.insert(ctx, a); err != nil {
			return err
		}
	}
	return nil
}
