package query

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrUnknownField is returned when an expression or order references a field
// the backend does not know about.
var ErrUnknownField = errors.New("query: unknown field")

// Getter reads a logical field from a record. ok is false for unknown fields.
type Getter func(field string) (value any, ok bool)

// Match evaluates e against a single record.
func Match(e Expr, get Getter) (bool, error) {
	if e.Kind == KindAnd {
		for _, a := range e.Args {
			ok, err := Match(a, get)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}

	raw, ok := get(e.Field)
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownField, e.Field)
	}
	v := normalize(raw)

	switch e.Kind {
	case KindEquals:
		c, ok := compare(v, normalize(e.Value))
		return ok && c == 0, nil
	case KindNotEquals:
		// SQL semantics: NULL <> x is not true.
		c, ok := compare(v, normalize(e.Value))
		return ok && c != 0, nil
	case KindLike:
		s, isStr := v.val.(string)
		if v.null || !isStr {
			return false, nil
		}
		sub, _ := e.Value.(string)
		return strings.Contains(strings.ToLower(s), strings.ToLower(sub)), nil
	case KindRange:
		if v.null {
			return false, nil
		}
		if e.Min != nil {
			c, ok := compare(v, normalize(e.Min))
			if !ok || c < 0 {
				return false, nil
			}
		}
		if e.Max != nil {
			c, ok := compare(v, normalize(e.Max))
			if !ok || c > 0 {
				return false, nil
			}
		}
		return true, nil
	case KindIn:
		return containsValue(v, e.Values), nil
	case KindNotIn:
		if v.null {
			return false, nil
		}
		return !containsValue(v, e.Values), nil
	case KindNotNull:
		return !v.null, nil
	default:
		return false, fmt.Errorf("query: unsupported expression kind %s", e.Kind)
	}
}

func containsValue(v normalized, values []any) bool {
	for _, candidate := range values {
		if c, ok := compare(v, normalize(candidate)); ok && c == 0 {
			return true
		}
	}
	return false
}

// SortSlice orders items by the given keys using the same rules as the SQL
// backend: nulls last in both directions, remaining ties keep input order.
func SortSlice[T any](items []T, orders []Order, get func(T) Getter) error {
	if len(orders) == 0 {
		return nil
	}
	var sortErr error
	sort.SliceStable(items, func(i, j int) bool {
		gi, gj := get(items[i]), get(items[j])
		for _, o := range orders {
			ai, ok := gi(o.Field)
			if !ok {
				sortErr = fmt.Errorf("%w: %q", ErrUnknownField, o.Field)
				return false
			}
			aj, _ := gj(o.Field)
			a, b := normalize(ai), normalize(aj)
			switch {
			case a.null && b.null:
				continue
			case a.null:
				return false
			case b.null:
				return true
			}
			c, _ := compare(a, b)
			if c == 0 {
				continue
			}
			if o.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return sortErr
}

type valueKind int

const (
	kindNull valueKind = iota
	kindNumber
	kindString
	kindTime
	kindBool
)

type normalized struct {
	kind valueKind
	null bool
	val  any
}

func normalize(v any) normalized {
	null := normalized{kind: kindNull, null: true}
	num := func(d decimal.Decimal) normalized { return normalized{kind: kindNumber, val: d} }

	switch x := v.(type) {
	case nil:
		return null
	case string:
		return normalized{kind: kindString, val: x}
	case *string:
		if x == nil {
			return null
		}
		return normalized{kind: kindString, val: *x}
	case int:
		return num(decimal.NewFromInt(int64(x)))
	case int32:
		return num(decimal.NewFromInt32(x))
	case int64:
		return num(decimal.NewFromInt(x))
	case *int32:
		if x == nil {
			return null
		}
		return num(decimal.NewFromInt32(*x))
	case *int64:
		if x == nil {
			return null
		}
		return num(decimal.NewFromInt(*x))
	case float64:
		return num(decimal.NewFromFloat(x))
	case *float64:
		if x == nil {
			return null
		}
		return num(decimal.NewFromFloat(*x))
	case decimal.Decimal:
		return num(x)
	case *decimal.Decimal:
		if x == nil {
			return null
		}
		return num(*x)
	case time.Time:
		return normalized{kind: kindTime, val: x}
	case *time.Time:
		if x == nil {
			return null
		}
		return normalized{kind: kindTime, val: *x}
	case bool:
		return normalized{kind: kindBool, val: x}
	default:
		return normalized{kind: kindString, val: fmt.Sprint(x)}
	}
}

// compare returns -1, 0 or 1. ok is false when either side is null or the
// kinds differ.
func compare(a, b normalized) (int, bool) {
	if a.null || b.null || a.kind != b.kind {
		return 0, false
	}
	switch a.kind {
	case kindNumber:
		return a.val.(decimal.Decimal).Cmp(b.val.(decimal.Decimal)), true
	case kindString:
		return strings.Compare(a.val.(string), b.val.(string)), true
	case kindTime:
		return a.val.(time.Time).Compare(b.val.(time.Time)), true
	case kindBool:
		x, y := a.val.(bool), b.val.(bool)
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		default:
			return 1, true
		}
	}
	return 0, false
}
