// Package query holds a small predicate model that catalog code builds and
// storage backends interpret. Expressions are plain values so a query can be
// inspected and evaluated without a database.
package query

import (
	"fmt"
	"strings"
)

// Kind tags the variant held by an Expr.
type Kind int

const (
	// KindAnd is the zero Kind; an And with no children matches everything.
	KindAnd Kind = iota
	KindEquals
	KindNotEquals
	KindLike
	KindRange
	KindIn
	KindNotIn
	KindNotNull
)

func (k Kind) String() string {
	switch k {
	case KindAnd:
		return "and"
	case KindEquals:
		return "eq"
	case KindNotEquals:
		return "ne"
	case KindLike:
		return "like"
	case KindRange:
		return "range"
	case KindIn:
		return "in"
	case KindNotIn:
		return "not_in"
	case KindNotNull:
		return "not_null"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Expr is a predicate over the logical fields of an entity.
//
// Only the members relevant to Kind are set: Value for Equals/NotEquals/Like,
// Min and Max for Range (nil means unbounded, both bounds inclusive), Values
// for In/NotIn and Args for And.
type Expr struct {
	Kind   Kind
	Field  string
	Value  any
	Min    any
	Max    any
	Values []any
	Args   []Expr
}

// All matches every record.
func All() Expr { return Expr{} }

func Eq(field string, value any) Expr {
	return Expr{Kind: KindEquals, Field: field, Value: value}
}

func Ne(field string, value any) Expr {
	return Expr{Kind: KindNotEquals, Field: field, Value: value}
}

// Like matches records whose field contains substr, ignoring case.
func Like(field, substr string) Expr {
	return Expr{Kind: KindLike, Field: field, Value: substr}
}

// Range matches min <= field <= max. Either bound may be nil.
func Range(field string, min, max any) Expr {
	return Expr{Kind: KindRange, Field: field, Min: min, Max: max}
}

// Gte is a Range with only a lower bound.
func Gte(field string, min any) Expr { return Range(field, min, nil) }

func In(field string, values ...any) Expr {
	return Expr{Kind: KindIn, Field: field, Values: values}
}

func NotIn(field string, values ...any) Expr {
	return Expr{Kind: KindNotIn, Field: field, Values: values}
}

// InInt64 is In over a slice of ids.
func InInt64(field string, ids []int64) Expr {
	return In(field, int64sToAny(ids)...)
}

// NotInInt64 is NotIn over a slice of ids.
func NotInInt64(field string, ids []int64) Expr {
	return NotIn(field, int64sToAny(ids)...)
}

func NotNull(field string) Expr {
	return Expr{Kind: KindNotNull, Field: field}
}

// And joins the given expressions. Nested Ands are flattened and empty Ands
// dropped, so And() and And(All()) both match everything.
func And(exprs ...Expr) Expr {
	out := Expr{Kind: KindAnd}
	for _, e := range exprs {
		if e.Kind == KindAnd {
			out.Args = append(out.Args, e.Args...)
			continue
		}
		out.Args = append(out.Args, e)
	}
	return out
}

// IsAll reports whether e places no constraint at all.
func (e Expr) IsAll() bool {
	return e.Kind == KindAnd && len(e.Args) == 0
}

// Fields returns every field name referenced by e, in first-seen order.
func (e Expr) Fields() []string {
	seen := map[string]bool{}
	var out []string
	var walk func(Expr)
	walk = func(x Expr) {
		if x.Kind == KindAnd {
			for _, a := range x.Args {
				walk(a)
			}
			return
		}
		if !seen[x.Field] {
			seen[x.Field] = true
			out = append(out, x.Field)
		}
	}
	walk(e)
	return out
}

func (e Expr) String() string {
	switch e.Kind {
	case KindAnd:
		if len(e.Args) == 0 {
			return "true"
		}
		parts := make([]string, len(e.Args))
		for i, a := range e.Args {
			parts[i] = a.String()
		}
		return "(" + strings.Join(parts, " AND ") + ")"
	case KindEquals:
		return fmt.Sprintf("%s = %v", e.Field, e.Value)
	case KindNotEquals:
		return fmt.Sprintf("%s != %v", e.Field, e.Value)
	case KindLike:
		return fmt.Sprintf("%s LIKE %q", e.Field, e.Value)
	case KindRange:
		return fmt.Sprintf("%s IN [%v, %v]", e.Field, boundString(e.Min), boundString(e.Max))
	case KindIn:
		return fmt.Sprintf("%s IN %v", e.Field, e.Values)
	case KindNotIn:
		return fmt.Sprintf("%s NOT IN %v", e.Field, e.Values)
	case KindNotNull:
		return e.Field + " IS NOT NULL"
	default:
		return e.Kind.String()
	}
}

func boundString(v any) string {
	if v == nil {
		return "*"
	}
	return fmt.Sprint(v)
}

func int64sToAny(ids []int64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

// Order is one sort key. Null values always sort last.
type Order struct {
	Field string
	Desc  bool
}

func Asc(field string) Order  { return Order{Field: field} }
func Desc(field string) Order { return Order{Field: field, Desc: true} }

func (o Order) String() string {
	if o.Desc {
		return o.Field + " DESC"
	}
	return o.Field + " ASC"
}

// Spec is a full read request: filter, ordering and an optional row cap.
// Limit <= 0 means no cap.
type Spec struct {
	Where   Expr
	OrderBy []Order
	Limit   int
}
