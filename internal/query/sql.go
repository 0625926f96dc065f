package query

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// SQLBuilder renders expressions into PostgreSQL fragments with numbered
// placeholders. Field names are resolved through Columns, so only mapped
// identifiers ever reach the SQL text.
type SQLBuilder struct {
	Columns map[string]string
	args    []any
}

// NewSQLBuilder returns a builder over the given logical-field → column map.
func NewSQLBuilder(columns map[string]string) *SQLBuilder {
	return &SQLBuilder{Columns: columns}
}

// Args returns the positional arguments collected so far.
func (b *SQLBuilder) Args() []any { return b.args }

// Bind appends an argument and returns its placeholder.
func (b *SQLBuilder) Bind(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *SQLBuilder) column(field string) (string, error) {
	col, ok := b.Columns[field]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return col, nil
}

// Where renders e as a " WHERE ..." clause, or "" when e matches everything.
func (b *SQLBuilder) Where(e Expr) (string, error) {
	if e.IsAll() {
		return "", nil
	}
	cond, err := b.condition(e)
	if err != nil {
		return "", err
	}
	return " WHERE " + cond, nil
}

func (b *SQLBuilder) condition(e Expr) (string, error) {
	if e.Kind == KindAnd {
		if len(e.Args) == 0 {
			return "TRUE", nil
		}
		parts := make([]string, 0, len(e.Args))
		for _, a := range e.Args {
			p, err := b.condition(a)
			if err != nil {
				return "", err
			}
			parts = append(parts, p)
		}
		if len(parts) == 1 {
			return parts[0], nil
		}
		return "(" + strings.Join(parts, " AND ") + ")", nil
	}

	col, err := b.column(e.Field)
	if err != nil {
		return "", err
	}

	switch e.Kind {
	case KindEquals:
		return fmt.Sprintf("%s = %s", col, b.Bind(e.Value)), nil
	case KindNotEquals:
		return fmt.Sprintf("%s <> %s", col, b.Bind(e.Value)), nil
	case KindLike:
		sub, _ := e.Value.(string)
		return fmt.Sprintf("%s ILIKE %s", col, b.Bind("%"+EscapeLike(sub)+"%")), nil
	case KindRange:
		var parts []string
		if e.Min != nil {
			parts = append(parts, fmt.Sprintf("%s >= %s", col, b.Bind(e.Min)))
		}
		if e.Max != nil {
			parts = append(parts, fmt.Sprintf("%s <= %s", col, b.Bind(e.Max)))
		}
		if len(parts) == 0 {
			return col + " IS NOT NULL", nil
		}
		return strings.Join(parts, " AND "), nil
	case KindIn:
		if len(e.Values) == 0 {
			return "FALSE", nil
		}
		return fmt.Sprintf("%s = ANY(%s)", col, b.Bind(arrayArg(e.Values))), nil
	case KindNotIn:
		if len(e.Values) == 0 {
			return col + " IS NOT NULL", nil
		}
		return fmt.Sprintf("%s <> ALL(%s)", col, b.Bind(arrayArg(e.Values))), nil
	case KindNotNull:
		return col + " IS NOT NULL", nil
	default:
		return "", fmt.Errorf("query: unsupported expression kind %s", e.Kind)
	}
}

// OrderBy renders " ORDER BY ..." with NULLS LAST on every key, or "".
func (b *SQLBuilder) OrderBy(orders []Order) (string, error) {
	if len(orders) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(orders))
	for _, o := range orders {
		col, err := b.column(o.Field)
		if err != nil {
			return "", err
		}
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		parts = append(parts, fmt.Sprintf("%s %s NULLS LAST", col, dir))
	}
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

// EscapeLike escapes the LIKE metacharacters in s using the default
// backslash escape.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// arrayArg converts homogeneous id or string lists into typed pq arrays.
func arrayArg(values []any) any {
	ints := make([]int64, 0, len(values))
	strs := make([]string, 0, len(values))
	for _, v := range values {
		switch x := v.(type) {
		case int64:
			ints = append(ints, x)
		case int:
			ints = append(ints, int64(x))
		case int32:
			ints = append(ints, int64(x))
		case string:
			strs = append(strs, x)
		}
	}
	switch {
	case len(ints) == len(values):
		return pq.Array(ints)
	case len(strs) == len(values):
		return pq.Array(strs)
	default:
		return pq.Array(values)
	}
}
