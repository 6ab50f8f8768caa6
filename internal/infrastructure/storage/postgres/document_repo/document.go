// Package document_repo provides the PostgreSQL implementation of the
// document repository.
package document_repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"belegwerk/internal/core/apperror"
	"belegwerk/internal/core/id"
	"belegwerk/internal/domain"
	"belegwerk/internal/domain/documents/document"
	"belegwerk/internal/infrastructure/storage/postgres"
)

const (
	documentsTable     = "documents"
	documentItemsTable = "document_items"
)

var itemColumns = []string{
	"id", "document_id", "line_no", "name",
	"quantity", "unit", "unit_price", "total_price",
}

// DocumentRepo implements document.Repository.
type DocumentRepo struct {
	txManager  *postgres.TxManager
	selectCols []string
}

var _ document.Repository = (*DocumentRepo)(nil)

// NewDocumentRepo creates a new document repository.
func NewDocumentRepo(txManager *postgres.TxManager) *DocumentRepo {
	return &DocumentRepo{
		txManager:  txManager,
		selectCols: postgres.ExtractDBColumns[document.Document](),
	}
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func (r *DocumentRepo) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *DocumentRepo) querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

func (r *DocumentRepo) baseSelect() squirrel.SelectBuilder {
	return r.Builder().
		Select(r.selectCols...).
		From(documentsTable)
}

// Create inserts the document header.
func (r *DocumentRepo) Create(ctx context.Context, doc *document.Document) error {
	data := postgres.StructToMap(doc)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in document")
	}

	filteredData := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if val, ok := data[col]; ok {
			filteredData[col] = val
		}
	}

	q := r.Builder().
		Insert(documentsTable).
		SetMap(filteredData)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	return nil
}

// GetByID returns the document header (without items).
func (r *DocumentRepo) GetByID(ctx context.Context, docID id.ID) (*document.Document, error) {
	doc := &document.Document{}

	q := r.baseSelect().
		Where(squirrel.Eq{"id": docID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.querier(ctx), doc, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("document", docID.String())
		}
		return nil, fmt.Errorf("get document by id: %w", err)
	}

	return doc, nil
}

// Update persists header changes with optimistic locking.
func (r *DocumentRepo) Update(ctx context.Context, doc *document.Document) error {
	data := postgres.StructToMap(doc)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in document")
	}

	version, ok := data["version"].(int)
	if !ok {
		return fmt.Errorf("document has no 'version' field or it is not an int")
	}

	filteredData := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if col == "id" || col == "created_at" || col == "created_by" {
			continue
		}
		if col == "version" || col == "updated_at" {
			continue // managed by repo
		}
		if val, ok := data[col]; ok {
			filteredData[col] = val
		}
	}

	q := r.Builder().
		Update(documentsTable).
		SetMap(filteredData).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": doc.ID}).
		Where(squirrel.Eq{"version": version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("document", doc.ID)
	}

	return nil
}

// UpdateStatus persists just the status transition.
func (r *DocumentRepo) UpdateStatus(ctx context.Context, docID id.ID, status document.Status) error {
	q := r.Builder().
		Update(documentsTable).
		Set("status", status).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": docID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update status: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("document", docID.String())
	}

	return nil
}

// SetSupplier binds the resolved supplier to the document.
func (r *DocumentRepo) SetSupplier(ctx context.Context, docID id.ID, supplierID id.ID) error {
	q := r.Builder().
		Update(documentsTable).
		Set("supplier_id", supplierID).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": docID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build set supplier: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set document supplier: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("document", docID.String())
	}

	return nil
}

// Delete removes the document; items cascade via foreign key.
func (r *DocumentRepo) Delete(ctx context.Context, docID id.ID) error {
	q := r.Builder().
		Delete(documentsTable).
		Where(squirrel.Eq{"id": docID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("document", docID.String())
	}

	return nil
}

// ReplaceItems deletes and re-inserts the document's items.
func (r *DocumentRepo) ReplaceItems(ctx context.Context, docID id.ID, items []document.Item) error {
	querier := r.querier(ctx)

	deleteSQL := "DELETE FROM " + documentItemsTable + " WHERE document_id = $1"
	if _, err := querier.Exec(ctx, deleteSQL, docID); err != nil {
		return fmt.Errorf("delete existing items: %w", err)
	}

	if len(items) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(documentItemsTable).
		Columns(itemColumns...)

	for i := range items {
		item := &items[i]
		itemID := item.ID
		if id.IsNil(itemID) {
			itemID = id.New()
		}
		q = q.Values(
			itemID, docID, item.LineNo, item.Name,
			item.Quantity, item.Unit, item.UnitPrice, item.TotalPrice,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert items: %w", err)
	}

	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert items: %w", err)
	}

	return nil
}

// GetItems returns the document's items ordered by line number.
func (r *DocumentRepo) GetItems(ctx context.Context, docID id.ID) ([]document.Item, error) {
	q := r.Builder().
		Select(itemColumns...).
		From(documentItemsTable).
		Where(squirrel.Eq{"document_id": docID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []document.Item
	if err := pgxscan.Select(ctx, r.querier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}

	return items, nil
}

// List returns document headers matching the filter.
func (r *DocumentRepo) List(ctx context.Context, filter document.ListFilter) (domain.ListResult[*document.Document], error) {
	result := domain.ListResult[*document.Document]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect()

	if !filter.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}

	if filter.Kind != "" {
		q = q.Where(squirrel.Eq{"kind": filter.Kind})
	}

	if filter.Status != "" {
		q = q.Where(squirrel.Eq{"status": filter.Status})
	}

	if filter.SupplierID != nil {
		q = q.Where(squirrel.Eq{"supplier_id": *filter.SupplierID})
	}

	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"document_date": *filter.DateFrom})
	}

	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"document_date": *filter.DateTo})
	}

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"invoice_number": pattern},
			squirrel.ILike{"supplier_name": pattern},
		})
	}

	countQ := r.Builder().Select("COUNT(*)").FromSelect(q, "sub")
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}

	querier := r.querier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count documents: %w", err)
	}

	orderBy, err := r.parseOrderBy(filter.OrderBy)
	if err != nil {
		return result, err
	}
	q = q.OrderBy(orderBy)

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list documents: %w", err)
	}

	return result, nil
}

// CountBySupplier counts all documents referencing the supplier.
func (r *DocumentRepo) CountBySupplier(ctx context.Context, supplierID id.ID) (int64, error) {
	q := r.Builder().
		Select("COUNT(*)").
		From(documentsTable).
		Where(squirrel.Eq{"supplier_id": supplierID})

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}

	var count int64
	if err := r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count by supplier: %w", err)
	}

	return count, nil
}

// FindInvoiceDuplicates returns other invoices of the same supplier
// carrying the same invoice number.
func (r *DocumentRepo) FindInvoiceDuplicates(ctx context.Context, supplierID id.ID, invoiceNumber string, excludeID id.ID) ([]*document.Document, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"kind": document.KindInvoice}).
		Where(squirrel.Eq{"supplier_id": supplierID}).
		Where(squirrel.Eq{"invoice_number": invoiceNumber}).
		Where(squirrel.NotEq{"id": excludeID}).
		Where(squirrel.Eq{"deletion_mark": false}).
		OrderBy("document_date ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var docs []*document.Document
	if err := pgxscan.Select(ctx, r.querier(ctx), &docs, sql, args...); err != nil {
		return nil, fmt.Errorf("find invoice duplicates: %w", err)
	}

	return docs, nil
}

// ListApprovedInvoicesBefore returns approved invoices whose document date
// is strictly before the cutoff.
func (r *DocumentRepo) ListApprovedInvoicesBefore(ctx context.Context, cutoff time.Time) ([]*document.Document, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"kind": document.KindInvoice}).
		Where(squirrel.Eq{"status": document.StatusApproved}).
		Where(squirrel.Lt{"document_date": cutoff}).
		Where(squirrel.Eq{"deletion_mark": false}).
		OrderBy("document_date ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var docs []*document.Document
	if err := pgxscan.Select(ctx, r.querier(ctx), &docs, sql, args...); err != nil {
		return nil, fmt.Errorf("list approved invoices: %w", err)
	}

	return docs, nil
}

// HasDeliveryNoteInWindow reports whether the supplier has any delivery
// note dated within [from, to].
func (r *DocumentRepo) HasDeliveryNoteInWindow(ctx context.Context, supplierID id.ID, from, to time.Time) (bool, error) {
	q := r.Builder().
		Select("1").
		From(documentsTable).
		Where(squirrel.Eq{"kind": document.KindDeliveryNote}).
		Where(squirrel.Eq{"supplier_id": supplierID}).
		Where(squirrel.GtOrEq{"document_date": from}).
		Where(squirrel.LtOrEq{"document_date": to}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var exists int
	err = r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check delivery note window: %w", err)
	}

	return true, nil
}

func (r *DocumentRepo) parseOrderBy(orderBy string) (string, error) {
	if orderBy == "" {
		return "document_date DESC", nil
	}

	direction := "ASC"
	field := orderBy
	if strings.HasPrefix(orderBy, "-") {
		direction = "DESC"
		field = strings.TrimPrefix(orderBy, "-")
	}

	allowed := map[string]struct{}{}
	for _, col := range r.selectCols {
		allowed[col] = struct{}{}
	}
	if _, ok := allowed[field]; !ok {
		return "", apperror.NewValidation("invalid orderBy").
			WithDetail("orderBy", orderBy)
	}

	return field + " " + direction, nil
}
