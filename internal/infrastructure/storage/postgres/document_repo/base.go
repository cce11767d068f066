// Package document_repo provides PostgreSQL implementations for document repositories.
package document_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"bizdesk/internal/core/apperror"
	"bizdesk/internal/core/id"
	"bizdesk/internal/domain"
	"bizdesk/internal/infrastructure/storage/postgres"
)

// BaseDocumentRepo provides common CRUD operations for document entities.
type BaseDocumentRepo[T any] struct {
	txm        *postgres.TxManager
	tableName  string
	selectCols []string
	newFn      func() T
}

// NewBaseDocumentRepo creates a new base document repository.
func NewBaseDocumentRepo[T any](
	txm *postgres.TxManager,
	tableName string,
	selectCols []string,
	newFn func() T,
) *BaseDocumentRepo[T] {
	return &BaseDocumentRepo[T]{
		txm:        txm,
		tableName:  tableName,
		selectCols: selectCols,
		newFn:      newFn,
	}
}

// Builder returns a new squirrel builder.
func (r *BaseDocumentRepo[T]) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *BaseDocumentRepo[T]) querier(ctx context.Context) postgres.Querier {
	return r.txm.GetQuerier(ctx)
}

// Create inserts a new document.
func (r *BaseDocumentRepo[T]) Create(ctx context.Context, entity T) error {
	sql, args, err := r.buildInsert(entity)
	if err != nil {
		return err
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err) {
			return apperror.NewDuplicate(r.tableName, "number", fmt.Sprint(postgres.StructToMap(entity)["number"]))
		}
		return fmt.Errorf("insert %s: %w", r.tableName, err)
	}

	return nil
}

func (r *BaseDocumentRepo[T]) buildInsert(entity T) (string, []any, error) {
	data := postgres.StructToMap(entity)
	if len(data) == 0 {
		return "", nil, fmt.Errorf("no db tags found in entity")
	}

	filteredData := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if val, ok := data[col]; ok {
			filteredData[col] = val
		}
	}

	sql, args, err := r.Builder().
		Insert(r.tableName).
		SetMap(filteredData).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build insert: %w", err)
	}
	return sql, args, nil
}

// Update updates an existing document with optimistic locking.
func (r *BaseDocumentRepo[T]) Update(ctx context.Context, entity T) error {
	sql, args, entityID, err := r.buildUpdate(entity)
	if err != nil {
		return err
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", r.tableName, err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(r.tableName, entityID)
	}

	return nil
}

func (r *BaseDocumentRepo[T]) buildUpdate(entity T) (string, []any, any, error) {
	data := postgres.StructToMap(entity)
	if len(data) == 0 {
		return "", nil, nil, fmt.Errorf("no db tags found in entity")
	}

	entityID, ok := data["id"]
	if !ok {
		return "", nil, nil, fmt.Errorf("entity has no 'id' field")
	}

	version, ok := data["version"].(int)
	if !ok {
		return "", nil, nil, fmt.Errorf("entity has no 'version' field or it is not an int")
	}

	// Exclude immutable fields
	filteredData := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		switch col {
		case "id", "number", "created_at", "created_by":
			continue
		case "version", "updated_at":
			continue // managed by repo
		}
		if val, ok := data[col]; ok {
			filteredData[col] = val
		}
	}

	sql, args, err := r.Builder().
		Update(r.tableName).
		SetMap(filteredData).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": entityID}).
		Where(squirrel.Eq{"version": version}).
		ToSql()
	if err != nil {
		return "", nil, nil, fmt.Errorf("build update: %w", err)
	}
	return sql, args, entityID, nil
}

// baseSelect creates a SELECT builder.
func (r *BaseDocumentRepo[T]) baseSelect() squirrel.SelectBuilder {
	return r.Builder().
		Select(r.selectCols...).
		From(r.tableName)
}

// GetByID retrieves a document by ID.
func (r *BaseDocumentRepo[T]) GetByID(ctx context.Context, entityID id.ID) (T, error) {
	return r.getOne(ctx, squirrel.Eq{"id": entityID}, entityID.String())
}

// getOne retrieves a single document matching where.
func (r *BaseDocumentRepo[T]) getOne(ctx context.Context, where squirrel.Sqlizer, ref string) (T, error) {
	entity := r.newFn()

	sql, args, err := r.baseSelect().Where(where).ToSql()
	if err != nil {
		return entity, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.querier(ctx), entity, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return entity, apperror.NewNotFound(r.tableName, ref)
		}
		return entity, fmt.Errorf("get %s: %w", r.tableName, err)
	}

	return entity, nil
}

// listQueries builds the page and count queries for filter plus extra conditions.
func (r *BaseDocumentRepo[T]) listQueries(filter domain.ListFilter, where ...squirrel.Sqlizer) (page, count squirrel.SelectBuilder, err error) {
	q := r.baseSelect()

	if !filter.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}
	if len(filter.IDs) > 0 {
		q = q.Where(squirrel.Eq{"id": filter.IDs})
	}
	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"number": "%" + filter.Search + "%"})
	}
	for _, w := range where {
		q = q.Where(w)
	}

	count = r.Builder().Select("COUNT(*)").FromSelect(q, "sub")

	orderBy, err := r.parseOrderBy(filter.OrderBy)
	if err != nil {
		return page, count, err
	}
	page = q.OrderBy(orderBy)

	if filter.Limit > 0 {
		page = page.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		page = page.Offset(uint64(filter.Offset))
	}

	return page, count, nil
}

// list runs the queries built by listQueries.
func (r *BaseDocumentRepo[T]) list(ctx context.Context, filter domain.ListFilter, where ...squirrel.Sqlizer) (domain.ListResult[T], error) {
	result := domain.ListResult[T]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	page, count, err := r.listQueries(filter, where...)
	if err != nil {
		return result, err
	}

	countSQL, countArgs, err := count.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}

	querier := r.querier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	sql, args, err := page.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list: %w", err)
	}

	return result, nil
}

func (r *BaseDocumentRepo[T]) parseOrderBy(orderBy string) (string, error) {
	allowed := make(map[string]struct{}, len(r.selectCols))
	for _, col := range r.selectCols {
		allowed[col] = struct{}{}
	}

	if strings.TrimSpace(orderBy) == "" {
		return "date DESC", nil
	}

	direction := "ASC"
	field := orderBy
	if strings.HasPrefix(orderBy, "-") {
		direction = "DESC"
		field = strings.TrimPrefix(orderBy, "-")
	} else if strings.HasPrefix(orderBy, "+") {
		field = strings.TrimPrefix(orderBy, "+")
	}

	field = strings.TrimSpace(field)
	if field == "" {
		return "", apperror.NewValidation("invalid orderBy").WithDetail("orderBy", orderBy)
	}

	if _, ok := allowed[field]; !ok {
		return "", apperror.NewValidation("invalid orderBy").WithDetail("orderBy", orderBy).WithDetail("field", field)
	}

	return field + " " + direction, nil
}

// tablePart describes a child table keyed by document_id.
type tablePart struct {
	table   string
	columns []string
}

func (p tablePart) selectQuery(b squirrel.StatementBuilderType, docID id.ID) (string, []any, error) {
	return b.Select(p.columns...).
		From(p.table).
		Where(squirrel.Eq{"document_id": docID}).
		OrderBy("line_no").
		ToSql()
}

// insertQuery builds one multi-row INSERT; rows must follow p.columns order.
func (p tablePart) insertQuery(b squirrel.StatementBuilderType, docID id.ID, rows [][]any) (string, []any, error) {
	q := b.Insert(p.table).Columns(append([]string{"document_id"}, p.columns...)...)
	for _, row := range rows {
		q = q.Values(append([]any{docID}, row...)...)
	}
	return q.ToSql()
}

// loadTablePart selects the rows of p for docID.
func loadTablePart[L any](ctx context.Context, querier postgres.Querier, p tablePart, docID id.ID) ([]L, error) {
	sql, args, err := p.selectQuery(squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar), docID)
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows := make([]L, 0)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select %s: %w", p.table, err)
	}
	return rows, nil
}

// replaceTablePart deletes the existing rows of docID and inserts rows.
func (r *BaseDocumentRepo[T]) replaceTablePart(ctx context.Context, p tablePart, docID id.ID, rows [][]any) error {
	querier := r.querier(ctx)

	deleteSQL, deleteArgs, err := r.Builder().Delete(p.table).Where(squirrel.Eq{"document_id": docID}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := querier.Exec(ctx, deleteSQL, deleteArgs...); err != nil {
		return fmt.Errorf("delete existing %s: %w", p.table, err)
	}

	if len(rows) == 0 {
		return nil
	}

	sql, args, err := p.insertQuery(r.Builder(), docID, rows)
	if err != nil {
		return fmt.Errorf("build insert %s: %w", p.table, err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", p.table, err)
	}
	return nil
}
