package anomaly

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"belegwerk/internal/core/apperror"
	"belegwerk/internal/core/entity"
	"belegwerk/internal/core/id"
	"belegwerk/internal/core/types"
	"belegwerk/internal/domain"
	"belegwerk/internal/domain/catalogs/product"
	"belegwerk/internal/domain/catalogs/supplier"
	"belegwerk/internal/domain/documents/document"
	"belegwerk/internal/domain/pricehistory"
	"belegwerk/pkg/logger"
)

// --- In-memory fakes ---

type fakeAnomalyRepo struct {
	items []*Anomaly
}

func (r *fakeAnomalyRepo) Create(ctx context.Context, a *Anomaly) error {
	for _, e := range r.items {
		if e.Resolved || e.Type != a.Type {
			continue
		}
		if a.DocumentID != nil && e.DocumentID != nil && *e.DocumentID == *a.DocumentID {
			return apperror.NewDuplicate("Anomaly", "document", a.DocumentID.String())
		}
		if a.ProductID != nil && e.ProductID != nil && *e.ProductID == *a.ProductID {
			return apperror.NewDuplicate("Anomaly", "product", a.ProductID.String())
		}
	}
	r.items = append(r.items, a)
	return nil
}

func (r *fakeAnomalyRepo) GetByID(ctx context.Context, anomalyID id.ID) (*Anomaly, error) {
	for _, a := range r.items {
		if a.ID == anomalyID {
			return a, nil
		}
	}
	return nil, apperror.NewNotFound("Anomaly", anomalyID.String())
}

func (r *fakeAnomalyRepo) Update(ctx context.Context, a *Anomaly) error {
	for i, e := range r.items {
		if e.ID == a.ID {
			r.items[i] = a
			return nil
		}
	}
	return apperror.NewNotFound("Anomaly", a.ID.String())
}

func (r *fakeAnomalyRepo) ExistsUnresolved(ctx context.Context, typ Type, documentID, productID *id.ID) (bool, error) {
	for _, a := range r.items {
		if a.Resolved || a.Type != typ {
			continue
		}
		if documentID != nil && a.DocumentID != nil && *a.DocumentID == *documentID {
			return true, nil
		}
		if productID != nil && a.ProductID != nil && *a.ProductID == *productID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeAnomalyRepo) ExistsForSupplier(ctx context.Context, typ Type, supplierID id.ID) (bool, error) {
	for _, a := range r.items {
		if a.Type == typ && a.SupplierID != nil && *a.SupplierID == supplierID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeAnomalyRepo) ListUnresolvedByProduct(ctx context.Context, typ Type, productID id.ID) ([]*Anomaly, error) {
	var out []*Anomaly
	for _, a := range r.items {
		if !a.Resolved && a.Type == typ && a.ProductID != nil && *a.ProductID == productID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAnomalyRepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Anomaly], error) {
	return domain.ListResult[*Anomaly]{Items: r.items, TotalCount: int64(len(r.items))}, nil
}

func (r *fakeAnomalyRepo) unresolved() []*Anomaly {
	var out []*Anomaly
	for _, a := range r.items {
		if !a.Resolved {
			out = append(out, a)
		}
	}
	return out
}

type fakePriceRepo struct {
	records []*pricehistory.Record
}

func (r *fakePriceRepo) Append(ctx context.Context, rec *pricehistory.Record) error {
	r.records = append(r.records, rec)
	return nil
}

func (r *fakePriceRepo) Latest(ctx context.Context, productName string, supplierID id.ID) (*pricehistory.Record, error) {
	for i := len(r.records) - 1; i >= 0; i-- {
		rec := r.records[i]
		if rec.ProductName == productName && rec.SupplierID == supplierID {
			return rec, nil
		}
	}
	return nil, nil
}

func (r *fakePriceRepo) ListByProduct(ctx context.Context, productName string, limit int) ([]*pricehistory.Record, error) {
	var out []*pricehistory.Record
	for _, rec := range r.records {
		if rec.ProductName == productName {
			out = append(out, rec)
		}
	}
	return out, nil
}

type fakeProductSource struct {
	products map[id.ID]*product.Product
}

func (s *fakeProductSource) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	if p, ok := s.products[productID]; ok {
		return p, nil
	}
	return nil, apperror.NewNotFound("Product", productID.String())
}

func (s *fakeProductSource) ListBelowMinStock(ctx context.Context) ([]*product.Product, error) {
	var out []*product.Product
	for _, p := range s.products {
		if p.IsLowStock() {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeDocumentSource struct {
	docs  map[id.ID]*document.Document
	items map[id.ID][]document.Item
}

func (s *fakeDocumentSource) GetByID(ctx context.Context, docID id.ID) (*document.Document, error) {
	if d, ok := s.docs[docID]; ok {
		return d, nil
	}
	return nil, apperror.NewNotFound("Document", docID.String())
}

func (s *fakeDocumentSource) GetItems(ctx context.Context, docID id.ID) ([]document.Item, error) {
	return s.items[docID], nil
}

func (s *fakeDocumentSource) CountBySupplier(ctx context.Context, supplierID id.ID) (int64, error) {
	var n int64
	for _, d := range s.docs {
		if d.SupplierID != nil && *d.SupplierID == supplierID {
			n++
		}
	}
	return n, nil
}

func (s *fakeDocumentSource) FindInvoiceDuplicates(ctx context.Context, supplierID id.ID, invoiceNumber string, excludeID id.ID) ([]*document.Document, error) {
	var out []*document.Document
	for _, d := range s.docs {
		if d.ID == excludeID || d.Kind != document.KindInvoice {
			continue
		}
		if d.SupplierID != nil && *d.SupplierID == supplierID && d.InvoiceNumber == invoiceNumber {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *fakeDocumentSource) ListApprovedInvoicesBefore(ctx context.Context, cutoff time.Time) ([]*document.Document, error) {
	var out []*document.Document
	for _, d := range s.docs {
		if d.Kind == document.KindInvoice && d.Status == document.StatusApproved && d.DocumentDate.Before(cutoff) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *fakeDocumentSource) HasDeliveryNoteInWindow(ctx context.Context, supplierID id.ID, from, to time.Time) (bool, error) {
	for _, d := range s.docs {
		if d.Kind != document.KindDeliveryNote || d.SupplierID == nil || *d.SupplierID != supplierID {
			continue
		}
		if !d.DocumentDate.Before(from) && !d.DocumentDate.After(to) {
			return true, nil
		}
	}
	return false, nil
}

type fakeSupplierSource struct {
	suppliers map[id.ID]*supplier.Supplier
}

func (s *fakeSupplierSource) GetByID(ctx context.Context, supplierID id.ID) (*supplier.Supplier, error) {
	if sup, ok := s.suppliers[supplierID]; ok {
		return sup, nil
	}
	return nil, apperror.NewNotFound("Supplier", supplierID.String())
}

// --- Test fixture ---

type fixture struct {
	anomalies *fakeAnomalyRepo
	prices    *fakePriceRepo
	products  *fakeProductSource
	docs      *fakeDocumentSource
	suppliers *fakeSupplierSource
	detector  *Detector
}

func newFixture() *fixture {
	f := &fixture{
		anomalies: &fakeAnomalyRepo{},
		prices:    &fakePriceRepo{},
		products:  &fakeProductSource{products: map[id.ID]*product.Product{}},
		docs:      &fakeDocumentSource{docs: map[id.ID]*document.Document{}, items: map[id.ID][]document.Item{}},
		suppliers: &fakeSupplierSource{suppliers: map[id.ID]*supplier.Supplier{}},
	}
	f.detector = NewDetector(f.anomalies, f.prices, f.products, f.docs, f.suppliers, logger.Default())
	return f
}

func (f *fixture) addSupplier(name string) id.ID {
	sup := supplier.NewSupplier(name)
	f.suppliers.suppliers[sup.ID] = sup
	return sup.ID
}

func (f *fixture) addInvoice(supplierID id.ID, invoiceNumber string, date time.Time, items ...document.Item) *document.Document {
	doc := document.NewDocument(document.KindInvoice)
	doc.Status = document.StatusApproved
	doc.InvoiceNumber = invoiceNumber
	doc.SupplierName = "Testlieferant"
	doc.SupplierID = &supplierID
	doc.DocumentDate = date
	f.docs.docs[doc.ID] = doc
	f.docs.items[doc.ID] = items
	return doc
}

func (f *fixture) addDeliveryNote(supplierID id.ID, date time.Time) *document.Document {
	doc := document.NewDocument(document.KindDeliveryNote)
	doc.Status = document.StatusApproved
	doc.SupplierName = "Testlieferant"
	doc.SupplierID = &supplierID
	doc.DocumentDate = date
	f.docs.docs[doc.ID] = doc
	return doc
}

func (f *fixture) addProduct(name string, stock, minStock int64) *product.Product {
	p := &product.Product{
		Catalog:      entity.NewCatalog("", name),
		Unit:         "kg",
		CurrentStock: types.NewQuantityFromInt(stock),
		MinStock:     types.NewQuantityFromInt(minStock),
	}
	f.products.products[p.ID] = p
	return p
}

func item(name string, price string) document.Item {
	return document.Item{
		ID:        id.New(),
		Name:      name,
		Quantity:  types.NewQuantityFromInt(1),
		Unit:      "kg",
		UnitPrice: types.MustMoney(price),
	}
}

func (f *fixture) seedPrice(name string, supplierID id.ID, price string) {
	rec := pricehistory.NewRecord(name, supplierID, types.MustMoney(price),
		types.NewQuantityFromInt(1), "kg", id.New(), time.Now().UTC())
	f.prices.records = append(f.prices.records, rec)
}

// --- Price-change detector ---

func TestCheckPricesFirstPriceNoAnomaly(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	supID := f.addSupplier("Metro AG")
	doc := f.addInvoice(supID, "RE-1001", time.Now().UTC(), item("Tomaten", "2.50"))

	require.NoError(t, f.detector.CheckPrices(ctx, doc.ID))

	assert.Empty(t, f.anomalies.items, "first price must not fire")
	require.Len(t, f.prices.records, 1, "price history is appended even on first sight")
	assert.Equal(t, "Tomaten", f.prices.records[0].ProductName)
}

func TestCheckPricesThresholds(t *testing.T) {
	tests := []struct {
		name     string
		newPrice string
		wantType Type
		wantSev  Severity
		none     bool
	}{
		{"9.9 percent is below threshold", "10.99", "", "", true},
		{"exactly 10 percent is low", "11.00", TypePriceIncrease, SeverityLow, false},
		{"exactly 20 percent is medium", "12.00", TypePriceIncrease, SeverityMedium, false},
		{"exactly 30 percent is high", "13.00", TypePriceIncrease, SeverityHigh, false},
		{"decrease picks price_decrease", "8.00", TypePriceDecrease, SeverityMedium, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			ctx := context.Background()
			supID := f.addSupplier("Metro AG")
			f.seedPrice("Tomaten", supID, "10.00")
			doc := f.addInvoice(supID, "RE-1002", time.Now().UTC(), item("Tomaten", tt.newPrice))

			require.NoError(t, f.detector.CheckPrices(ctx, doc.ID))

			if tt.none {
				assert.Empty(t, f.anomalies.items)
			} else {
				require.Len(t, f.anomalies.items, 1)
				a := f.anomalies.items[0]
				assert.Equal(t, tt.wantType, a.Type)
				assert.Equal(t, tt.wantSev, a.Severity)
				require.NotNil(t, a.DocumentID)
				assert.Equal(t, doc.ID, *a.DocumentID)
			}

			// One new record on top of the seeded one, regardless of outcome.
			assert.Len(t, f.prices.records, 2)
		})
	}
}

func TestCheckPricesSkipsUnpricedItems(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	supID := f.addSupplier("Metro AG")
	doc := f.addInvoice(supID, "RE-1003", time.Now().UTC(), item("Pfand", "0.00"))

	require.NoError(t, f.detector.CheckPrices(ctx, doc.ID))

	assert.Empty(t, f.anomalies.items)
	assert.Empty(t, f.prices.records, "zero-priced items leave no price history")
}

// --- Low-stock detector ---

func TestCheckLowStockSeverity(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	empty := f.addProduct("Mehl", 0, 5)
	low := f.addProduct("Reis", 2, 5)
	ok := f.addProduct("Zucker", 5, 5)

	require.NoError(t, f.detector.CheckLowStock(ctx, empty.ID))
	require.NoError(t, f.detector.CheckLowStock(ctx, low.ID))
	require.NoError(t, f.detector.CheckLowStock(ctx, ok.ID))

	require.Len(t, f.anomalies.items, 2, "stock at minimum must not fire")

	byProduct := map[id.ID]*Anomaly{}
	for _, a := range f.anomalies.items {
		byProduct[*a.ProductID] = a
	}
	assert.Equal(t, SeverityHigh, byProduct[empty.ID].Severity, "zero stock is high")
	assert.Equal(t, SeverityMedium, byProduct[low.ID].Severity)
}

func TestLowStockSweepIsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.addProduct("Mehl", 1, 5)
	f.addProduct("Reis", 0, 3)

	require.NoError(t, f.detector.LowStockSweep(ctx))
	require.Len(t, f.anomalies.unresolved(), 2)

	// Second run against unchanged state inserts nothing.
	require.NoError(t, f.detector.LowStockSweep(ctx))
	assert.Len(t, f.anomalies.unresolved(), 2)
}

func TestAutoResolveLowStockRoundTrip(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.addProduct("Mehl", 1, 5)

	require.NoError(t, f.detector.CheckLowStock(ctx, p.ID))
	require.Len(t, f.anomalies.unresolved(), 1)
	first := f.anomalies.items[0]

	// Restock above minimum: the open anomaly resolves.
	p.CurrentStock = types.NewQuantityFromInt(10)
	require.NoError(t, f.detector.AutoResolveLowStock(ctx, p.ID))
	assert.Empty(t, f.anomalies.unresolved())
	assert.True(t, first.Resolved)
	assert.Equal(t, "system", first.ResolvedBy)
	require.NotNil(t, first.ResolvedAt)

	// Deplete again: a fresh anomaly is created, not the old one reopened.
	p.CurrentStock = types.NewQuantityFromInt(2)
	require.NoError(t, f.detector.CheckLowStock(ctx, p.ID))
	require.Len(t, f.anomalies.items, 2)
	second := f.anomalies.items[1]
	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, second.Resolved)
}

func TestAutoResolveLowStockNoopWhileLow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.addProduct("Mehl", 1, 5)

	require.NoError(t, f.detector.CheckLowStock(ctx, p.ID))
	require.NoError(t, f.detector.AutoResolveLowStock(ctx, p.ID))

	assert.Len(t, f.anomalies.unresolved(), 1, "still below minimum, nothing resolves")
}

// --- Duplicate-invoice detector ---

func TestCheckDuplicateInvoice(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	supID := f.addSupplier("Metro AG")
	now := time.Now().UTC()

	first := f.addInvoice(supID, "RE-2001", now)
	require.NoError(t, f.detector.CheckDuplicateInvoice(ctx, first.ID))
	assert.Empty(t, f.anomalies.items, "single invoice is no duplicate")

	second := f.addInvoice(supID, "RE-2001", now)
	require.NoError(t, f.detector.CheckDuplicateInvoice(ctx, second.ID))
	require.Len(t, f.anomalies.items, 1)
	a := f.anomalies.items[0]
	assert.Equal(t, TypeDuplicateInvoice, a.Type)
	assert.Equal(t, SeverityHigh, a.Severity)
	assert.Equal(t, second.ID, *a.DocumentID)

	// A third with the same number adds nothing while the first is open.
	third := f.addInvoice(supID, "RE-2001", now)
	require.NoError(t, f.detector.CheckDuplicateInvoice(ctx, third.ID))
	assert.Len(t, f.anomalies.items, 1)
}

func TestCheckDuplicateInvoiceDifferentSuppliers(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	now := time.Now().UTC()

	f.addInvoice(f.addSupplier("Metro AG"), "RE-3001", now)
	other := f.addInvoice(f.addSupplier("Transgourmet"), "RE-3001", now)

	require.NoError(t, f.detector.CheckDuplicateInvoice(ctx, other.ID))
	assert.Empty(t, f.anomalies.items, "same number across suppliers is fine")
}

// --- New-supplier detector ---

func TestCheckNewSupplierFiresOncePerLifetime(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	supID := f.addSupplier("Neuer Hof")
	doc := f.addInvoice(supID, "RE-4001", time.Now().UTC())
	docID := doc.ID

	require.NoError(t, f.detector.CheckNewSupplier(ctx, supID, &docID))
	require.Len(t, f.anomalies.items, 1)
	a := f.anomalies.items[0]
	assert.Equal(t, TypeNewSupplier, a.Type)
	assert.Equal(t, SeverityLow, a.Severity)
	assert.Equal(t, supID, *a.SupplierID)

	// Resolving does not re-arm it: the check is supplier-scoped and
	// ignores the resolved flag.
	require.NoError(t, a.Resolve("chef"))
	require.NoError(t, f.detector.CheckNewSupplier(ctx, supID, &docID))
	assert.Len(t, f.anomalies.items, 1)
}

func TestCheckNewSupplierSkipsEstablished(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	supID := f.addSupplier("Metro AG")
	now := time.Now().UTC()
	f.addInvoice(supID, "RE-5001", now)
	f.addInvoice(supID, "RE-5002", now)

	require.NoError(t, f.detector.CheckNewSupplier(ctx, supID, nil))
	assert.Empty(t, f.anomalies.items)
}

// --- Missing-delivery-note sweep ---

func TestMissingDeliveryNoteSweep(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	supID := f.addSupplier("Metro AG")
	old := time.Now().UTC().Add(-20 * 24 * time.Hour)

	inv := f.addInvoice(supID, "RE-6001", old)

	require.NoError(t, f.detector.MissingDeliveryNoteSweep(ctx))
	require.Len(t, f.anomalies.items, 1)
	assert.Equal(t, TypeMissingDeliveryNote, f.anomalies.items[0].Type)
	assert.Equal(t, SeverityMedium, f.anomalies.items[0].Severity)
	assert.Equal(t, inv.ID, *f.anomalies.items[0].DocumentID)

	// Re-running against unchanged state adds nothing.
	require.NoError(t, f.detector.MissingDeliveryNoteSweep(ctx))
	assert.Len(t, f.anomalies.items, 1)
}

func TestMissingDeliveryNoteSweepFindsNoteInWindow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	supID := f.addSupplier("Metro AG")
	old := time.Now().UTC().Add(-20 * 24 * time.Hour)

	f.addInvoice(supID, "RE-6002", old)
	f.addDeliveryNote(supID, old.Add(3*24*time.Hour))

	require.NoError(t, f.detector.MissingDeliveryNoteSweep(ctx))
	assert.Empty(t, f.anomalies.items)
}

func TestMissingDeliveryNoteSweepIgnoresRecentInvoices(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	supID := f.addSupplier("Metro AG")

	f.addInvoice(supID, "RE-6003", time.Now().UTC().Add(-5*24*time.Hour))

	require.NoError(t, f.detector.MissingDeliveryNoteSweep(ctx))
	assert.Empty(t, f.anomalies.items)
}
