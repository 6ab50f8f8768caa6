package register_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"belegwerk/internal/core/id"
	"belegwerk/internal/core/types"
	"belegwerk/internal/domain/spending"
	"belegwerk/internal/infrastructure/storage/postgres"
)

const spendingTable = "spending_records"

var spendingColumns = []string{"id", "year", "month", "amount", "updated_at"}

// SpendingRepo implements spending.Repository.
type SpendingRepo struct {
	txManager *postgres.TxManager
}

var _ spending.Repository = (*SpendingRepo)(nil)

// NewSpendingRepo creates a new spending repository.
func NewSpendingRepo(txManager *postgres.TxManager) *SpendingRepo {
	return &SpendingRepo{txManager: txManager}
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func (r *SpendingRepo) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *SpendingRepo) querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

// Add accumulates amount into the month's bucket. The unique (year, month)
// constraint plus ON CONFLICT makes concurrent bookings additive.
func (r *SpendingRepo) Add(ctx context.Context, year int, month time.Month, amount types.Money) error {
	sql := `
		INSERT INTO spending_records (id, year, month, amount, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (year, month)
		DO UPDATE SET
			amount = spending_records.amount + EXCLUDED.amount,
			updated_at = NOW()`

	if _, err := r.querier(ctx).Exec(ctx, sql, id.New(), year, int(month), amount); err != nil {
		return fmt.Errorf("add spending: %w", err)
	}

	return nil
}

// Get returns the bucket for a month, or nil when nothing was booked.
func (r *SpendingRepo) Get(ctx context.Context, year int, month time.Month) (*spending.Record, error) {
	q := r.Builder().
		Select(spendingColumns...).
		From(spendingTable).
		Where(squirrel.Eq{"year": year}).
		Where(squirrel.Eq{"month": int(month)}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rec := &spending.Record{}
	if err := pgxscan.Get(ctx, r.querier(ctx), rec, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get spending: %w", err)
	}

	return rec, nil
}

// ListYear returns all buckets of a year ordered by month.
func (r *SpendingRepo) ListYear(ctx context.Context, year int) ([]*spending.Record, error) {
	q := r.Builder().
		Select(spendingColumns...).
		From(spendingTable).
		Where(squirrel.Eq{"year": year}).
		OrderBy("month ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var records []*spending.Record
	if err := pgxscan.Select(ctx, r.querier(ctx), &records, sql, args...); err != nil {
		return nil, fmt.Errorf("list spending year: %w", err)
	}

	return records, nil
}
