package store

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"product-service/internal/domain"
	"product-service/internal/query"
)

// MemoryStore is an in-process Store used for local runs and tests. It
// interprets query.Spec with the same semantics as PostgresStore.
type MemoryStore[T any] struct {
	mu     sync.RWMutex
	table  Table[T]
	rows   map[int64]T
	nextID int64
	now    func() time.Time
	// exists, when set, is consulted on insert/update to emulate foreign keys.
	exists func(ctx context.Context, e *T) bool
}

// NewMemoryStore creates an empty store for the given table layout.
func NewMemoryStore[T any](table Table[T]) *MemoryStore[T] {
	return &MemoryStore[T]{
		table:  table,
		rows:   make(map[int64]T),
		nextID: 1,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the timestamp source.
func (s *MemoryStore[T]) WithClock(now func() time.Time) *MemoryStore[T] {
	s.now = now
	return s
}

// WithReference makes inserts and updates fail with ErrReferenceNotFound when
// exists reports false, mirroring a foreign-key constraint.
func (s *MemoryStore[T]) WithReference(exists func(ctx context.Context, e *T) bool) *MemoryStore[T] {
	s.exists = exists
	return s
}

// ProductExists builds a reference check against a product store, for use
// with WithReference.
func ProductExists[T any](products Store[domain.Product], productID func(*T) int64) func(context.Context, *T) bool {
	return func(ctx context.Context, e *T) bool {
		_, err := products.GetByID(ctx, productID(e))
		return err == nil
	}
}

func (s *MemoryStore[T]) getter(e *T) query.Getter {
	return func(field string) (any, bool) {
		c, ok := s.table.column(field)
		if !ok {
			return nil, false
		}
		return argValue(c, e), true
	}
}

func (s *MemoryStore[T]) Insert(ctx context.Context, entity *T) (int64, error) {
	if s.exists != nil && !s.exists(ctx, entity) {
		return 0, ErrReferenceNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	now := s.now()
	s.table.SetID(entity, id)
	s.table.Stamp(entity, now, now)
	s.rows[id] = *entity
	return id, nil
}

func (s *MemoryStore[T]) GetByID(_ context.Context, id int64) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (s *MemoryStore[T]) Update(ctx context.Context, entity *T) error {
	if s.exists != nil && !s.exists(ctx, entity) {
		return ErrReferenceNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.table.ID(entity)
	existing, ok := s.rows[id]
	if !ok {
		return ErrNotFound
	}
	updated := existing
	for _, c := range s.table.Columns {
		if c.Mutable {
			dst := reflect.ValueOf(c.Ptr(&updated)).Elem()
			dst.Set(reflect.ValueOf(c.Ptr(entity)).Elem())
		}
	}
	var created time.Time
	if c, ok := s.table.column("createdAt"); ok {
		created, _ = argValue(c, &existing).(time.Time)
	}
	s.table.Stamp(&updated, created, s.now())
	s.rows[id] = updated
	*entity = updated
	return nil
}

func (s *MemoryStore[T]) DeleteByID(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

// checkFields rejects unknown fields even when no row would be evaluated.
func (s *MemoryStore[T]) checkFields(fields []string) error {
	for _, f := range fields {
		if _, ok := s.table.column(f); !ok {
			return fmt.Errorf("%w: %q", query.ErrUnknownField, f)
		}
	}
	return nil
}

// matching returns copies of the rows satisfying where, in insertion (id) order.
func (s *MemoryStore[T]) matching(where query.Expr) ([]T, error) {
	if err := s.checkFields(where.Fields()); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.rows))
	for id := range s.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := []T{}
	for _, id := range ids {
		e := s.rows[id]
		ok, err := query.Match(where, s.getter(&e))
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStore[T]) sorted(spec query.Spec) ([]T, error) {
	orderFields := make([]string, len(spec.OrderBy))
	for i, o := range spec.OrderBy {
		orderFields[i] = o.Field
	}
	if err := s.checkFields(orderFields); err != nil {
		return nil, err
	}
	rows, err := s.matching(spec.Where)
	if err != nil {
		return nil, err
	}
	err = query.SortSlice(rows, spec.OrderBy, func(e T) query.Getter { return s.getter(&e) })
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *MemoryStore[T]) List(_ context.Context, spec query.Spec) ([]T, error) {
	rows, err := s.sorted(spec)
	if err != nil {
		return nil, err
	}
	if spec.Limit > 0 && len(rows) > spec.Limit {
		rows = rows[:spec.Limit]
	}
	return rows, nil
}

func (s *MemoryStore[T]) ListPage(_ context.Context, spec query.Spec, page, pageSize int) (domain.Page[T], error) {
	result := domain.Page[T]{Records: []T{}, Page: page, PageSize: pageSize}
	if page < 1 || pageSize < 1 {
		return result, ErrInvalidPage
	}
	rows, err := s.sorted(spec)
	if err != nil {
		return result, err
	}
	result.Total = int64(len(rows))
	start := (page - 1) * pageSize
	if start >= len(rows) {
		return result, nil
	}
	end := min(start+pageSize, len(rows))
	result.Records = rows[start:end]
	return result, nil
}

func (s *MemoryStore[T]) Count(_ context.Context, where query.Expr) (int64, error) {
	rows, err := s.matching(where)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}
