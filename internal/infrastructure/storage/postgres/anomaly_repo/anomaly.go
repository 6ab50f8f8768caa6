// Package anomaly_repo provides the PostgreSQL implementation of the
// anomaly repository.
package anomaly_repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"belegwerk/internal/core/apperror"
	"belegwerk/internal/core/id"
	"belegwerk/internal/domain"
	"belegwerk/internal/domain/anomaly"
	"belegwerk/internal/infrastructure/storage/postgres"
)

const anomaliesTable = "anomalies"

// AnomalyRepo implements anomaly.Repository.
//
// De-duplication of unresolved anomalies is enforced by partial unique
// indexes on (type, document_id) and (type, product_id) over the
// unresolved subset; Create translates the violation into a duplicate
// error so concurrent detectors race safely.
type AnomalyRepo struct {
	txManager  *postgres.TxManager
	selectCols []string
}

var _ anomaly.Repository = (*AnomalyRepo)(nil)

// NewAnomalyRepo creates a new anomaly repository.
func NewAnomalyRepo(txManager *postgres.TxManager) *AnomalyRepo {
	return &AnomalyRepo{
		txManager:  txManager,
		selectCols: postgres.ExtractDBColumns[anomaly.Anomaly](),
	}
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func (r *AnomalyRepo) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *AnomalyRepo) querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

func (r *AnomalyRepo) baseSelect() squirrel.SelectBuilder {
	return r.Builder().
		Select(r.selectCols...).
		From(anomaliesTable)
}

// Create inserts an anomaly. A unique-index violation on the unresolved
// subset is returned as a duplicate error.
func (r *AnomalyRepo) Create(ctx context.Context, a *anomaly.Anomaly) error {
	data := postgres.StructToMap(a)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in anomaly")
	}

	filteredData := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if val, ok := data[col]; ok {
			filteredData[col] = val
		}
	}

	q := r.Builder().
		Insert(anomaliesTable).
		SetMap(filteredData)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperror.NewDuplicate("anomaly", "type", string(a.Type)).WithCause(err)
		}
		return fmt.Errorf("insert anomaly: %w", err)
	}

	return nil
}

// GetByID returns an anomaly.
func (r *AnomalyRepo) GetByID(ctx context.Context, anomalyID id.ID) (*anomaly.Anomaly, error) {
	a := &anomaly.Anomaly{}

	q := r.baseSelect().
		Where(squirrel.Eq{"id": anomalyID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.querier(ctx), a, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("anomaly", anomalyID.String())
		}
		return nil, fmt.Errorf("get anomaly by id: %w", err)
	}

	return a, nil
}

// Update persists changes with optimistic locking.
func (r *AnomalyRepo) Update(ctx context.Context, a *anomaly.Anomaly) error {
	data := postgres.StructToMap(a)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in anomaly")
	}

	version, ok := data["version"].(int)
	if !ok {
		return fmt.Errorf("anomaly has no 'version' field or it is not an int")
	}

	filteredData := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if col == "id" || col == "version" {
			continue
		}
		if val, ok := data[col]; ok {
			filteredData[col] = val
		}
	}

	q := r.Builder().
		Update(anomaliesTable).
		SetMap(filteredData).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": a.ID}).
		Where(squirrel.Eq{"version": version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update anomaly: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("anomaly", a.ID)
	}

	return nil
}

// ExistsUnresolved reports whether an unresolved anomaly of the type
// references the given document or product.
func (r *AnomalyRepo) ExistsUnresolved(ctx context.Context, typ anomaly.Type, documentID, productID *id.ID) (bool, error) {
	q := r.Builder().
		Select("1").
		From(anomaliesTable).
		Where(squirrel.Eq{"type": typ}).
		Where(squirrel.Eq{"resolved": false}).
		Limit(1)

	if documentID != nil {
		q = q.Where(squirrel.Eq{"document_id": *documentID})
	}
	if productID != nil {
		q = q.Where(squirrel.Eq{"product_id": *productID})
	}

	return r.exists(ctx, q)
}

// ExistsForSupplier reports whether any anomaly of the type references
// the supplier, resolved or not.
func (r *AnomalyRepo) ExistsForSupplier(ctx context.Context, typ anomaly.Type, supplierID id.ID) (bool, error) {
	q := r.Builder().
		Select("1").
		From(anomaliesTable).
		Where(squirrel.Eq{"type": typ}).
		Where(squirrel.Eq{"supplier_id": supplierID}).
		Limit(1)

	return r.exists(ctx, q)
}

func (r *AnomalyRepo) exists(ctx context.Context, q squirrel.SelectBuilder) (bool, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var one int
	err = r.querier(ctx).QueryRow(ctx, sql, args...).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("exists: %w", err)
	}

	return true, nil
}

// ListUnresolvedByProduct returns unresolved anomalies of the type for
// a product.
func (r *AnomalyRepo) ListUnresolvedByProduct(ctx context.Context, typ anomaly.Type, productID id.ID) ([]*anomaly.Anomaly, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"type": typ}).
		Where(squirrel.Eq{"product_id": productID}).
		Where(squirrel.Eq{"resolved": false}).
		OrderBy("detected_at DESC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var anomalies []*anomaly.Anomaly
	if err := pgxscan.Select(ctx, r.querier(ctx), &anomalies, sql, args...); err != nil {
		return nil, fmt.Errorf("list unresolved by product: %w", err)
	}

	return anomalies, nil
}

// List returns anomalies matching the filter, newest first.
func (r *AnomalyRepo) List(ctx context.Context, filter anomaly.ListFilter) (domain.ListResult[*anomaly.Anomaly], error) {
	result := domain.ListResult[*anomaly.Anomaly]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect()

	if !filter.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}

	if filter.Type != "" {
		q = q.Where(squirrel.Eq{"type": filter.Type})
	}
	if filter.Severity != "" {
		q = q.Where(squirrel.Eq{"severity": filter.Severity})
	}
	if filter.Resolved != nil {
		q = q.Where(squirrel.Eq{"resolved": *filter.Resolved})
	}
	if filter.DocumentID != nil {
		q = q.Where(squirrel.Eq{"document_id": *filter.DocumentID})
	}
	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
	}
	if filter.SupplierID != nil {
		q = q.Where(squirrel.Eq{"supplier_id": *filter.SupplierID})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"title": pattern},
			squirrel.ILike{"description": pattern},
		})
	}

	countQ := r.Builder().Select("COUNT(*)").FromSelect(q, "sub")
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}

	querier := r.querier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count anomalies: %w", err)
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
		return result, fmt.Errorf("list anomalies: %w", err)
	}

	return result, nil
}

func (r *AnomalyRepo) parseOrderBy(orderBy string) (string, error) {
	if orderBy == "" || orderBy == "name" {
		return "detected_at DESC", nil
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
