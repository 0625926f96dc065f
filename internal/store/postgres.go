package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"product-service/internal/domain"
	"product-service/internal/query"
)

// PostgreSQL error codes the store translates.
const (
	pqForeignKeyViolation = "23503"
)

// Postgres owns the connection pool shared by the per-entity stores.
type Postgres struct {
	db *sql.DB
}

// NewPostgres wraps an open *sql.DB.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Products() *PostgresStore[domain.Product] {
	return NewPostgresStore(p.db, ProductTable)
}

func (p *Postgres) Media() *PostgresStore[domain.ProductMedia] {
	return NewPostgresStore(p.db, MediaTable)
}

func (p *Postgres) Feedback() *PostgresStore[domain.ProductFeedback] {
	return NewPostgresStore(p.db, FeedbackTable)
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *Postgres) Close() error {
	if p.db == nil {
		return nil
	}
	log.Info().Msg("closing database connection pool")
	if err := p.db.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close database connection pool")
		return err
	}
	log.Info().Msg("database connection pool closed")
	return nil
}

// PostgresStore implements Store for one table using PostgreSQL.
type PostgresStore[T any] struct {
	db    *sql.DB
	table Table[T]
}

// NewPostgresStore creates a new PostgresStore for the given table layout.
func NewPostgresStore[T any](db *sql.DB, table Table[T]) *PostgresStore[T] {
	return &PostgresStore[T]{db: db, table: table}
}

func (s *PostgresStore[T]) selectColumns() string {
	names := make([]string, len(s.table.Columns))
	for i, c := range s.table.Columns {
		names[i] = c.Name
	}
	return strings.Join(names, ", ")
}

func (s *PostgresStore[T]) scanDest(e *T) []any {
	dest := make([]any, len(s.table.Columns))
	for i, c := range s.table.Columns {
		dest[i] = c.Ptr(e)
	}
	return dest
}

func argValue[T any](c Column[T], e *T) any {
	return reflect.ValueOf(c.Ptr(e)).Elem().Interface()
}

func (s *PostgresStore[T]) Insert(ctx context.Context, entity *T) (int64, error) {
	var cols, placeholders []string
	var args []any
	for _, c := range s.table.Columns {
		if !c.Writable {
			continue
		}
		args = append(args, argValue(c, entity))
		cols = append(cols, c.Name)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		s.table.Name, strings.Join(cols, ", "), strings.Join(placeholders, ", "), s.selectColumns())

	if err := s.db.QueryRowContext(ctx, q, args...).Scan(s.scanDest(entity)...); err != nil {
		if isForeignKeyViolation(err) {
			return 0, fmt.Errorf("%w: %s", ErrReferenceNotFound, s.table.Name)
		}
		return 0, fmt.Errorf("store: insert into %s failed: %w", s.table.Name, err)
	}
	return s.table.ID(entity), nil
}

func (s *PostgresStore[T]) GetByID(ctx context.Context, id int64) (*T, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", s.selectColumns(), s.table.Name)
	var e T
	if err := s.db.QueryRowContext(ctx, q, id).Scan(s.scanDest(&e)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: get %s by id failed: %w", s.table.Name, err)
	}
	return &e, nil
}

func (s *PostgresStore[T]) Update(ctx context.Context, entity *T) error {
	var sets []string
	var args []any
	for _, c := range s.table.Columns {
		if !c.Mutable {
			continue
		}
		args = append(args, argValue(c, entity))
		sets = append(sets, fmt.Sprintf("%s = $%d", c.Name, len(args)))
	}
	if s.table.UpdatedAtColumn != "" {
		sets = append(sets, s.table.UpdatedAtColumn+" = CURRENT_TIMESTAMP")
	}
	args = append(args, s.table.ID(entity))
	q := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d RETURNING %s",
		s.table.Name, strings.Join(sets, ", "), len(args), s.selectColumns())

	if err := s.db.QueryRowContext(ctx, q, args...).Scan(s.scanDest(entity)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: %s", ErrReferenceNotFound, s.table.Name)
		}
		return fmt.Errorf("store: update %s failed: %w", s.table.Name, err)
	}
	return nil
}

func (s *PostgresStore[T]) DeleteByID(ctx context.Context, id int64) error {
	q := fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.table.Name)
	result, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("store: delete from %s failed: %w", s.table.Name, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete from %s failed to get rows affected: %w", s.table.Name, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore[T]) List(ctx context.Context, spec query.Spec) ([]T, error) {
	b := query.NewSQLBuilder(s.table.FieldColumns())
	where, err := b.Where(spec.Where)
	if err != nil {
		return nil, err
	}
	order, err := b.OrderBy(spec.OrderBy)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf("SELECT %s FROM %s%s%s", s.selectColumns(), s.table.Name, where, order)
	if spec.Limit > 0 {
		q += " LIMIT " + b.Bind(spec.Limit)
	}
	return s.query(ctx, q, b.Args())
}

func (s *PostgresStore[T]) ListPage(ctx context.Context, spec query.Spec, page, pageSize int) (domain.Page[T], error) {
	result := domain.Page[T]{Records: []T{}, Page: page, PageSize: pageSize}
	if page < 1 || pageSize < 1 {
		return result, ErrInvalidPage
	}

	total, err := s.Count(ctx, spec.Where)
	if err != nil {
		return result, err
	}
	result.Total = total
	if total == 0 {
		return result, nil
	}

	b := query.NewSQLBuilder(s.table.FieldColumns())
	where, err := b.Where(spec.Where)
	if err != nil {
		return result, err
	}
	order, err := b.OrderBy(spec.OrderBy)
	if err != nil {
		return result, err
	}
	q := fmt.Sprintf("SELECT %s FROM %s%s%s LIMIT %s OFFSET %s",
		s.selectColumns(), s.table.Name, where, order, b.Bind(pageSize), b.Bind((page-1)*pageSize))

	records, err := s.query(ctx, q, b.Args())
	if err != nil {
		return result, err
	}
	result.Records = records
	return result, nil
}

func (s *PostgresStore[T]) Count(ctx context.Context, where query.Expr) (int64, error) {
	b := query.NewSQLBuilder(s.table.FieldColumns())
	clause, err := b.Where(where)
	if err != nil {
		return 0, err
	}
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", s.table.Name, clause)
	var total int64
	if err := s.db.QueryRowContext(ctx, q, b.Args()...).Scan(&total); err != nil {
		return 0, fmt.Errorf("store: count %s failed: %w", s.table.Name, err)
	}
	return total, nil
}

func (s *PostgresStore[T]) query(ctx context.Context, q string, args []any) ([]T, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query %s failed: %w", s.table.Name, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var e T
		if err := rows.Scan(s.scanDest(&e)...); err != nil {
			return nil, fmt.Errorf("store: scan %s row failed: %w", s.table.Name, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: %s iteration error: %w", s.table.Name, err)
	}
	return out, nil
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation
}
