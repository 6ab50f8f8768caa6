// Package register_repo provides PostgreSQL implementations for the
// price history and monthly spending registers.
package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"belegwerk/internal/core/id"
	"belegwerk/internal/domain/pricehistory"
	"belegwerk/internal/infrastructure/storage/postgres"
)

const priceHistoryTable = "price_history"

var priceHistoryColumns = []string{
	"id", "product_name", "supplier_id",
	"unit_price", "quantity", "unit",
	"document_id", "document_date", "recorded_at",
}

// PriceHistoryRepo implements pricehistory.Repository.
type PriceHistoryRepo struct {
	txManager *postgres.TxManager
}

var _ pricehistory.Repository = (*PriceHistoryRepo)(nil)

// NewPriceHistoryRepo creates a new price history repository.
func NewPriceHistoryRepo(txManager *postgres.TxManager) *PriceHistoryRepo {
	return &PriceHistoryRepo{txManager: txManager}
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func (r *PriceHistoryRepo) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *PriceHistoryRepo) querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

// Append inserts a new price point.
func (r *PriceHistoryRepo) Append(ctx context.Context, rec *pricehistory.Record) error {
	q := r.Builder().
		Insert(priceHistoryTable).
		Columns(priceHistoryColumns...).
		Values(
			rec.ID, rec.ProductName, rec.SupplierID,
			rec.UnitPrice, rec.Quantity, rec.Unit,
			rec.DocumentID, rec.DocumentDate, rec.RecordedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("append price record: %w", err)
	}

	return nil
}

// Latest returns the most recent price point for the product name and
// supplier, or nil when none has been recorded yet.
func (r *PriceHistoryRepo) Latest(ctx context.Context, productName string, supplierID id.ID) (*pricehistory.Record, error) {
	q := r.Builder().
		Select(priceHistoryColumns...).
		From(priceHistoryTable).
		Where(squirrel.Eq{"product_name": productName}).
		Where(squirrel.Eq{"supplier_id": supplierID}).
		OrderBy("recorded_at DESC").
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rec := &pricehistory.Record{}
	if err := pgxscan.Get(ctx, r.querier(ctx), rec, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest price record: %w", err)
	}

	return rec, nil
}

// ListByProduct returns price points for a product name across all
// suppliers, newest first.
func (r *PriceHistoryRepo) ListByProduct(ctx context.Context, productName string, limit int) ([]*pricehistory.Record, error) {
	q := r.Builder().
		Select(priceHistoryColumns...).
		From(priceHistoryTable).
		Where(squirrel.Eq{"product_name": productName}).
		OrderBy("recorded_at DESC")

	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var records []*pricehistory.Record
	if err := pgxscan.Select(ctx, r.querier(ctx), &records, sql, args...); err != nil {
		return nil, fmt.Errorf("list price records: %w", err)
	}

	return records, nil
}
