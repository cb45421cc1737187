// Package catalog stores the admin-managed content (categories, ebooks,
// courses, exams, coupons) behind one generic table repository and serves it
// over HTTP.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/joao-fontenele/courseshop/internal/domain"
	"github.com/joao-fontenele/courseshop/internal/httpx"
)

var (
	ErrConflict = errors.New("record already exists")
	ErrInUse    = errors.New("record is referenced by other records")
)

// Entity describes how one content type maps onto its table.
type Entity[T any] struct {
	Name  string
	Table string
	// Columns are written on create and update, in Values order.
	Columns []string
	// ReadOnly columns are selected after Columns but never written.
	ReadOnly []string
	// Scan returns destinations for id, Columns, ReadOnly, created_at and
	// updated_at, in that order.
	Scan        func(*T) []any
	Values      func(*T) []any
	Validate    func(*T) error
	Active      func(*T) bool
	Searchable  []string
	Sortable    map[string]string
	DefaultSort string
}

func (e Entity[T]) selectColumns() string {
	cols := append([]string{"id"}, e.Columns...)
	cols = append(cols, e.ReadOnly...)
	cols = append(cols, "created_at", "updated_at")
	return strings.Join(cols, ", ")
}

type Repository[T any] struct {
	db     *sql.DB
	entity Entity[T]
}

func NewRepository[T any](db *sql.DB, entity Entity[T]) *Repository[T] {
	return &Repository[T]{db: db, entity: entity}
}

func (r *Repository[T]) Entity() Entity[T] {
	return r.entity
}

func (r *Repository[T]) List(ctx context.Context, q httpx.PageQuery, activeOnly bool) ([]T, int, error) {
	var conds []string
	var args []any

	if activeOnly && r.entity.Active != nil {
		conds = append(conds, "is_active = TRUE")
	}
	if q.Search != "" && len(r.entity.Searchable) > 0 {
		args = append(args, q.SearchPattern())
		var ors []string
		for _, col := range r.entity.Searchable {
			ors = append(ors, fmt.Sprintf(`%s ILIKE $%d ESCAPE '\'`, col, len(args)))
		}
		conds = append(conds, "("+strings.Join(ors, " OR ")+")")
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s %s`, r.entity.Table, where), args...,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, q.PageSize, q.Offset())
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM %s
		%s
		ORDER BY %s, id
		LIMIT $%d OFFSET $%d
	`, r.entity.selectColumns(), r.entity.Table, where, q.OrderBy(), len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	items := []T{}
	for rows.Next() {
		var item T
		if err := rows.Scan(r.entity.Scan(&item)...); err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func (r *Repository[T]) Get(ctx context.Context, id string) (*T, error) {
	var item T
	err := r.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1
	`, r.entity.selectColumns(), r.entity.Table), id).Scan(r.entity.Scan(&item)...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *Repository[T]) Create(ctx context.Context, item *T) error {
	id := uuid.New().String()

	placeholders := make([]string, len(r.entity.Columns)+1)
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	args := append([]any{id}, r.entity.Values(item)...)

	_, err := r.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, %s)
		VALUES (%s)
	`, r.entity.Table, strings.Join(r.entity.Columns, ", "), strings.Join(placeholders, ", ")), args...)
	if err != nil {
		return mapWriteError(err)
	}

	created, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if created == nil {
		return fmt.Errorf("%s %s vanished after insert", r.entity.Name, id)
	}
	*item = *created
	return nil
}

// Update overwrites every writable column. It returns nil, nil when no row
// has the id.
func (r *Repository[T]) Update(ctx context.Context, id string, item *T) (*T, error) {
	sets := make([]string, len(r.entity.Columns))
	for i, col := range r.entity.Columns {
		sets[i] = fmt.Sprintf("%s = $%d", col, i+2)
	}
	args := append([]any{id}, r.entity.Values(item)...)

	result, err := r.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s SET %s, updated_at = NOW()
		WHERE id = $1
	`, r.entity.Table, strings.Join(sets, ", ")), args...)
	if err != nil {
		return nil, mapWriteError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}

	if rowsAffected == 0 {
		return nil, nil
	}

	return r.Get(ctx, id)
}

// Delete reports whether a row was removed.
func (r *Repository[T]) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.entity.Table), id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return false, ErrInUse
		}
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

func mapWriteError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return ErrConflict
		case "23503":
			return domain.Invalid("referenced record does not exist")
		}
	}
	return err
}
