package query

import (
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	id       int64
	name     string
	category *string
	price    decimal.Decimal
	rating   *float64
	created  time.Time
}

func (r row) get(field string) (any, bool) {
	switch field {
	case "id":
		return r.id, true
	case "name":
		return r.name, true
	case "category":
		return r.category, true
	case "price":
		return r.price, true
	case "rating":
		return r.rating, true
	case "createdAt":
		return r.created, true
	}
	return nil, false
}

func ptr[T any](v T) *T { return &v }

var columns = map[string]string{
	"id":        "id",
	"name":      "name",
	"category":  "category",
	"price":     "price",
	"rating":    "rating",
	"createdAt": "create_datetime",
}

func TestAnd_FlattensAndDropsEmpty(t *testing.T) {
	e := And(All(), And(Eq("category", "Pad"), And()), Ne("id", int64(3)))
	require.Equal(t, KindAnd, e.Kind)
	assert.Len(t, e.Args, 2)
	assert.True(t, And().IsAll())
	assert.True(t, And(All(), All()).IsAll())
	assert.Equal(t, []string{"category", "id"}, e.Fields())
	assert.Equal(t, "(category = Pad AND id != 3)", e.String())
}

func TestMatch(t *testing.T) {
	r := row{
		id:       7,
		name:     "Galaxy Tab S9",
		category: ptr("Pad"),
		price:    decimal.RequireFromString("499.90"),
		rating:   ptr(4.5),
	}

	tests := []struct {
		name string
		expr Expr
		want bool
	}{
		{"all", All(), true},
		{"eq string pointer", Eq("category", "Pad"), true},
		{"eq mismatch", Eq("category", "Laptops"), false},
		{"like ignores case", Like("name", "tab s"), true},
		{"like miss", Like("name", "iphone"), false},
		{"range inclusive low", Range("price", decimal.RequireFromString("499.90"), nil), true},
		{"range inclusive high", Range("price", nil, decimal.RequireFromString("499.90")), true},
		{"range outside", Range("price", decimal.NewFromInt(500), decimal.NewFromInt(600)), false},
		{"float vs int bound", Gte("rating", 4), true},
		{"in ids", InInt64("id", []int64{1, 7}), true},
		{"in empty", InInt64("id", nil), false},
		{"not in ids", NotInInt64("id", []int64{1, 7}), false},
		{"not in empty", NotInInt64("id", nil), true},
		{"ne", Ne("id", int64(8)), true},
		{"not null", NotNull("rating"), true},
		{"conjunction", And(Eq("category", "Pad"), Gte("rating", 5.0)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Match(tt.expr, r.get)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatch_NullsNeverSatisfyComparisons(t *testing.T) {
	r := row{id: 1, name: "Plain"}

	for _, e := range []Expr{
		Eq("category", "Pad"),
		Ne("category", "Pad"),
		Gte("rating", 0.0),
		NotNull("rating"),
	} {
		got, err := Match(e, r.get)
		require.NoError(t, err)
		assert.False(t, got, e.String())
	}
}

func TestMatch_UnknownField(t *testing.T) {
	_, err := Match(Eq("colour", "red"), row{}.get)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownField))
}

func TestSortSlice_NullsLastAndStable(t *testing.T) {
	rows := []row{
		{id: 1, rating: ptr(3.0)},
		{id: 2},
		{id: 3, rating: ptr(5.0)},
		{id: 4, rating: ptr(5.0)},
		{id: 5, rating: ptr(1.0)},
	}
	get := func(r row) Getter { return r.get }

	require.NoError(t, SortSlice(rows, []Order{Desc("rating"), Asc("id")}, get))
	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.id
	}
	assert.Equal(t, []int64{3, 4, 1, 5, 2}, ids)

	require.NoError(t, SortSlice(rows, []Order{Asc("rating")}, get))
	assert.Equal(t, int64(5), rows[0].id)
	assert.Equal(t, int64(2), rows[len(rows)-1].id)
}

func TestSQLBuilder_Where(t *testing.T) {
	b := NewSQLBuilder(columns)
	where, err := b.Where(And(
		Like("name", "50%_off"),
		Eq("category", "Pad"),
		Range("price", decimal.NewFromInt(10), decimal.NewFromInt(20)),
		Gte("rating", 4.0),
		NotInInt64("id", []int64{1, 2}),
	))
	require.NoError(t, err)
	assert.Equal(t,
		" WHERE (name ILIKE $1 AND category = $2 AND price >= $3 AND price <= $4 AND rating >= $5 AND id <> ALL($6))",
		where)
	args := b.Args()
	require.Len(t, args, 6)
	assert.Equal(t, `%50\%\_off%`, args[0])
	assert.Equal(t, "Pad", args[1])
	assert.Equal(t, pq.Array([]int64{1, 2}), args[5])
}

func TestSQLBuilder_EmptyWhereAndOrder(t *testing.T) {
	b := NewSQLBuilder(columns)
	where, err := b.Where(All())
	require.NoError(t, err)
	assert.Empty(t, where)

	order, err := b.OrderBy([]Order{Desc("rating"), Asc("id")})
	require.NoError(t, err)
	assert.Equal(t, " ORDER BY rating DESC NULLS LAST, id ASC NULLS LAST", order)
}

func TestSQLBuilder_RejectsUnmappedFields(t *testing.T) {
	b := NewSQLBuilder(columns)
	_, err := b.OrderBy([]Order{Asc("price; DROP TABLE products")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownField))

	_, err = b.Where(Eq("secret", 1))
	assert.True(t, errors.Is(err, ErrUnknownField))
}

func TestSQLBuilder_EmptyInLists(t *testing.T) {
	b := NewSQLBuilder(columns)
	where, err := b.Where(And(InInt64("id", nil), NotInInt64("id", nil)))
	require.NoError(t, err)
	assert.Equal(t, " WHERE (FALSE AND id IS NOT NULL)", where)
	assert.Empty(t, b.Args())
}
