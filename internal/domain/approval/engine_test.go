package approval

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"belegwerk/internal/core/apperror"
	"belegwerk/internal/core/id"
	"belegwerk/internal/core/types"
	"belegwerk/internal/domain/catalogs/product"
	"belegwerk/internal/domain/catalogs/supplier"
	"belegwerk/internal/domain/documents/document"
	"belegwerk/internal/domain/tasks"
	"belegwerk/pkg/logger"
)

// --- In-memory fakes ---

type passthroughTx struct{}

func (passthroughTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeDocStore struct {
	docs  map[id.ID]*document.Document
	items map[id.ID][]document.Item
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{
		docs:  map[id.ID]*document.Document{},
		items: map[id.ID][]document.Item{},
	}
}

func (s *fakeDocStore) GetByID(ctx context.Context, docID id.ID) (*document.Document, error) {
	if d, ok := s.docs[docID]; ok {
		return d, nil
	}
	return nil, apperror.NewNotFound("Document", docID.String())
}

func (s *fakeDocStore) GetItems(ctx context.Context, docID id.ID) ([]document.Item, error) {
	return s.items[docID], nil
}

func (s *fakeDocStore) UpdateStatus(ctx context.Context, docID id.ID, status document.Status) error {
	d, ok := s.docs[docID]
	if !ok {
		return apperror.NewNotFound("Document", docID.String())
	}
	d.Status = status
	return nil
}

func (s *fakeDocStore) SetSupplier(ctx context.Context, docID id.ID, supplierID id.ID) error {
	d, ok := s.docs[docID]
	if !ok {
		return apperror.NewNotFound("Document", docID.String())
	}
	d.SupplierID = &supplierID
	return nil
}

type fakeProductStore struct {
	products []*product.Product
	creates  int
	updates  int
}

func (s *fakeProductStore) FindByNameFold(ctx context.Context, name string) (*product.Product, error) {
	for _, p := range s.products {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return nil, nil
}

func (s *fakeProductStore) Create(ctx context.Context, p *product.Product) error {
	s.products = append(s.products, p)
	s.creates++
	return nil
}

func (s *fakeProductStore) Update(ctx context.Context, p *product.Product) error {
	s.updates++
	return nil
}

type fakeResolver struct {
	known map[string]*supplier.Supplier
}

func (r *fakeResolver) ResolveByName(ctx context.Context, name string) (*supplier.Supplier, bool, error) {
	if sup, ok := r.known[name]; ok {
		return sup, false, nil
	}
	sup := supplier.NewSupplier(name)
	if r.known == nil {
		r.known = map[string]*supplier.Supplier{}
	}
	r.known[name] = sup
	return sup, true, nil
}

type fakeSpending struct {
	bookings map[string]types.Money
}

func (s *fakeSpending) Add(ctx context.Context, year int, month time.Month, amount types.Money) error {
	if s.bookings == nil {
		s.bookings = map[string]types.Money{}
	}
	key := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
	s.bookings[key] = s.bookings[key].Add(amount)
	return nil
}

type fakeStockResolver struct {
	resolved []id.ID
}

func (s *fakeStockResolver) AutoResolveLowStock(ctx context.Context, productID id.ID) error {
	s.resolved = append(s.resolved, productID)
	return nil
}

type fakeQueue struct {
	enqueued []tasks.Task
}

func (q *fakeQueue) Enqueue(ctx context.Context, task tasks.Task) error {
	q.enqueued = append(q.enqueued, task)
	return nil
}

func (q *fakeQueue) ofType(typ tasks.Type) []tasks.Task {
	var out []tasks.Task
	for _, t := range q.enqueued {
		if t.Type == typ {
			out = append(out, t)
		}
	}
	return out
}

// --- Fixture ---

type fixture struct {
	docs     *fakeDocStore
	products *fakeProductStore
	resolver *fakeResolver
	spending *fakeSpending
	stock    *fakeStockResolver
	queue    *fakeQueue
	engine   *Engine
}

func newFixture() *fixture {
	f := &fixture{
		docs:     newFakeDocStore(),
		products: &fakeProductStore{},
		resolver: &fakeResolver{},
		spending: &fakeSpending{},
		stock:    &fakeStockResolver{},
		queue:    &fakeQueue{},
	}
	f.engine = NewEngine(Config{
		Documents: f.docs,
		Products:  f.products,
		Suppliers: f.resolver,
		Spending:  f.spending,
		Stock:     f.stock,
		Queue:     f.queue,
		TxManager: passthroughTx{},
		Logger:    logger.Default(),
	})
	return f
}

func (f *fixture) addDocument(kind document.Kind, items ...document.Item) *document.Document {
	doc := document.NewDocument(kind)
	doc.Status = document.StatusAnalyzed
	doc.SupplierName = "Metro AG"
	doc.DocumentDate = time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	sup, _, _ := f.resolver.ResolveByName(context.Background(), doc.SupplierName)
	supID := sup.ID
	doc.SupplierID = &supID
	f.docs.docs[doc.ID] = doc
	f.docs.items[doc.ID] = items
	return doc
}

func (f *fixture) addProduct(name string, stock, minStock int64, avgPrice string) *product.Product {
	p := product.NewFromReceipt(name, "kg", types.NewQuantityFromInt(stock), types.MustMoney(avgPrice), nil, time.Now().UTC())
	p.MinStock = types.NewQuantityFromInt(minStock)
	f.products.products = append(f.products.products, p)
	return p
}

func receiptItem(name string, qty int64, price string) document.Item {
	return document.Item{
		ID:        id.New(),
		Name:      name,
		Quantity:  types.NewQuantityFromInt(qty),
		Unit:      "kg",
		UnitPrice: types.MustMoney(price),
	}
}

// --- Tests ---

func TestApproveDeliveryNoteCreatesUnknownProduct(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	doc := f.addDocument(document.KindDeliveryNote, receiptItem("Rinderfilet", 10, "24.90"))

	_, err := f.engine.TransitionStatus(ctx, doc.ID, document.StatusApproved)
	require.NoError(t, err)

	require.Equal(t, 1, f.products.creates)
	p := f.products.products[0]
	assert.Equal(t, "Rinderfilet", p.Name)
	assert.Equal(t, product.CategoryFleisch, p.Category)
	assert.Equal(t, types.NewQuantityFromInt(10), p.CurrentStock)
	assert.Equal(t, types.NewQuantityFromInt(3), p.MinStock, "30% of first receipt, rounded up")
	assert.True(t, p.AvgPrice.Equal(types.MustMoney("24.90")))

	// Every touched product gets a low-stock re-check.
	checks := f.queue.ofType(tasks.TypeLowStockCheck)
	require.Len(t, checks, 1)
	assert.Equal(t, p.ID, checks[0].AggregateID)
}

func TestApproveDeliveryNoteWeightedAverage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	existing := f.addProduct("Tomaten", 10, 2, "2.00")
	doc := f.addDocument(document.KindDeliveryNote, receiptItem("tomaten", 10, "4.00"))

	_, err := f.engine.TransitionStatus(ctx, doc.ID, document.StatusApproved)
	require.NoError(t, err)

	assert.Equal(t, 0, f.products.creates, "case-insensitive match hits the existing product")
	assert.Equal(t, types.NewQuantityFromInt(20), existing.CurrentStock)
	assert.True(t, existing.AvgPrice.Equal(types.MustMoney("3.00")),
		"10@2.00 + 10@4.00 blends to 3.00, got %s", existing.AvgPrice)
}

func TestReApprovalDoesNotReapplyEffects(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	existing := f.addProduct("Tomaten", 10, 2, "2.00")
	doc := f.addDocument(document.KindDeliveryNote, receiptItem("Tomaten", 5, "2.00"))

	_, err := f.engine.TransitionStatus(ctx, doc.ID, document.StatusApproved)
	require.NoError(t, err)
	require.Equal(t, types.NewQuantityFromInt(15), existing.CurrentStock)

	_, err = f.engine.TransitionStatus(ctx, doc.ID, document.StatusApproved)
	require.NoError(t, err)

	assert.Equal(t, types.NewQuantityFromInt(15), existing.CurrentStock, "stock applied exactly once")
	assert.Len(t, f.queue.enqueued, 1, "no second round of detector tasks")
	assert.Equal(t, document.StatusApproved, doc.Status)
}

func TestTypeExclusivity(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	invoice := f.addDocument(document.KindInvoice, receiptItem("Tomaten", 10, "2.50"))
	invoice.TotalAmount = types.MustMoney("119.00")
	note := f.addDocument(document.KindDeliveryNote, receiptItem("Gurken", 5, "1.20"))

	_, err := f.engine.TransitionStatus(ctx, invoice.ID, document.StatusApproved)
	require.NoError(t, err)

	// Invoices never touch inventory.
	assert.Equal(t, 0, f.products.creates)
	assert.Empty(t, f.queue.ofType(tasks.TypeLowStockCheck))
	require.Len(t, f.spending.bookings, 1)
	assert.True(t, f.spending.bookings["2026-03"].Equal(types.MustMoney("119.00")))
	require.Len(t, f.queue.ofType(tasks.TypePriceCheck), 1)

	_, err = f.engine.TransitionStatus(ctx, note.ID, document.StatusApproved)
	require.NoError(t, err)

	// Delivery notes never touch spending or price checks.
	assert.Len(t, f.spending.bookings, 1)
	assert.Len(t, f.queue.ofType(tasks.TypePriceCheck), 1)
	assert.Equal(t, 1, f.products.creates)
}

func TestRejectPersistsStatusWithoutEffects(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	doc := f.addDocument(document.KindDeliveryNote, receiptItem("Tomaten", 5, "2.00"))

	updated, err := f.engine.TransitionStatus(ctx, doc.ID, document.StatusRejected)
	require.NoError(t, err)

	assert.Equal(t, document.StatusRejected, updated.Status)
	assert.Equal(t, 0, f.products.creates)
	assert.Empty(t, f.queue.enqueued)
	assert.Empty(t, f.spending.bookings)
}

func TestApproveBindsMissingSupplier(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	doc := f.addDocument(document.KindInvoice)
	doc.SupplierID = nil
	doc.SupplierName = "Neuer Hof"
	doc.TotalAmount = types.MustMoney("50.00")

	_, err := f.engine.TransitionStatus(ctx, doc.ID, document.StatusApproved)
	require.NoError(t, err)

	require.NotNil(t, doc.SupplierID)
	sup := f.resolver.known["Neuer Hof"]
	require.NotNil(t, sup)
	assert.Equal(t, sup.ID, *doc.SupplierID)

	// First sight of this supplier schedules the new-supplier check.
	newSup := f.queue.ofType(tasks.TypeNewSupplierCheck)
	require.Len(t, newSup, 1)
	assert.Equal(t, sup.ID, newSup[0].AggregateID)
}

func TestApproveDeliveryNoteAutoResolvesRestockedProducts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	lowProduct := f.addProduct("Mehl", 1, 5, "0.80")
	doc := f.addDocument(document.KindDeliveryNote, receiptItem("Mehl", 20, "0.80"))

	_, err := f.engine.TransitionStatus(ctx, doc.ID, document.StatusApproved)
	require.NoError(t, err)

	require.Len(t, f.stock.resolved, 1, "previously-low product triggers auto-resolution")
	assert.Equal(t, lowProduct.ID, f.stock.resolved[0])
}

func TestTransitionStatusValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.engine.TransitionStatus(ctx, id.New(), document.Status("archived"))
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)

	_, err = f.engine.TransitionStatus(ctx, id.New(), document.StatusApproved)
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}
