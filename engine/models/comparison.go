package models

import "reflect"

// ============================================================================
// COMPARISON - Resolved operator + coerced operands
// ============================================================================

// Kind is the semantic comparison of a resolved condition.
type Kind string

const (
	KindEqual          Kind = "EQUAL"
	KindNotEqual       Kind = "NOT_EQUAL"
	KindContains       Kind = "CONTAINS"
	KindStartsWith     Kind = "STARTS_WITH"
	KindEndsWith       Kind = "ENDS_WITH"
	KindIsNull         Kind = "IS_NULL"
	KindNotNull        Kind = "IS_NOT_NULL"
	KindGreaterThan    Kind = "GREATER_THAN"
	KindGreaterOrEqual Kind = "GREATER_OR_EQUAL"
	KindLessThan       Kind = "LESS_THAN"
	KindLessOrEqual    Kind = "LESS_OR_EQUAL"
	KindIn             Kind = "IN"
	KindBetween        Kind = "BETWEEN"
)

// canonicalKeys names each kind in the plain map rendering of a descriptor.
var canonicalKeys = map[Kind]string{
	KindEqual:          "$eq",
	KindNotEqual:       "$ne",
	KindContains:       "$cont",
	KindStartsWith:     "$starts",
	KindEndsWith:       "$ends",
	KindIsNull:         "$isnull",
	KindNotNull:        "$notnull",
	KindGreaterThan:    "$gt",
	KindGreaterOrEqual: "$gte",
	KindLessThan:       "$lt",
	KindLessOrEqual:    "$lte",
	KindIn:             "$in",
	KindBetween:        "$between",
}

// Value is either a Comparison or an Object wrapping a nested criterion.
type Value interface {
	criterion()
}

// Comparison is a tagged variant. Kind selects which operand field is used:
//   - Operand for scalar kinds and the LIKE pattern of CONTAINS/STARTS_WITH/ENDS_WITH
//   - Operands for IN (members) and BETWEEN (exactly two bounds)
//   - neither for IS_NULL / IS_NOT_NULL
//
// Negated is set by an explicit NOT prefix and is distinct from KindNotEqual.
type Comparison struct {
	Kind     Kind
	Operand  any
	Operands []any
	Negated  bool
}

func (Comparison) criterion() {}

// Eq builds an equality comparison.
func Eq(v any) Comparison { return Comparison{Kind: KindEqual, Operand: v} }

// Ne builds an explicit inequality comparison.
func Ne(v any) Comparison { return Comparison{Kind: KindNotEqual, Operand: v} }

// Cmp builds a single-operand comparison of the given kind.
func Cmp(kind Kind, v any) Comparison { return Comparison{Kind: kind, Operand: v} }

// In builds a membership comparison.
func In(values ...any) Comparison { return Comparison{Kind: KindIn, Operands: values} }

// Between builds an inclusive range comparison.
func Between(lo, hi any) Comparison {
	return Comparison{Kind: KindBetween, Operands: []any{lo, hi}}
}

// IsNull builds a nullness check.
func IsNull() Comparison { return Comparison{Kind: KindIsNull} }

// NotNull builds a non-nullness check.
func NotNull() Comparison { return Comparison{Kind: KindNotNull} }

// Not returns the negation of c. Null checks flip their kind instead of
// carrying the flag.
func (c Comparison) Not() Comparison {
	switch c.Kind {
	case KindIsNull:
		c.Kind = KindNotNull
		return c
	case KindNotNull:
		c.Kind = KindIsNull
		return c
	}
	c.Negated = !c.Negated
	return c
}

// IsInequality reports whether c compiles to a "<>" predicate: an explicit
// $ne or a negated $eq.
func (c Comparison) IsInequality() bool {
	return (c.Kind == KindNotEqual && !c.Negated) || (c.Kind == KindEqual && c.Negated)
}

// ToAny renders c for the plain map form of a descriptor. Plain equality
// renders as the bare operand.
func (c Comparison) ToAny() any {
	var body any
	switch c.Kind {
	case KindEqual:
		if !c.Negated {
			return c.Operand
		}
		body = map[string]any{canonicalKeys[c.Kind]: c.Operand}
	case KindIn, KindBetween:
		body = map[string]any{canonicalKeys[c.Kind]: append([]any(nil), c.Operands...)}
	case KindIsNull, KindNotNull:
		body = map[string]any{canonicalKeys[c.Kind]: true}
	default:
		body = map[string]any{canonicalKeys[c.Kind]: c.Operand}
	}
	if c.Negated {
		return map[string]any{"$not": body}
	}
	return body
}

// ============================================================================
// OBJECT - Nested criterion built from a nested-field path
// ============================================================================

// Object wraps a criterion under one key. "a#b#c||$eq||1" resolves to
// Object{Key: "b", Value: Object{Key: "c", Value: Eq(1)}} stored under "a".
type Object struct {
	Key   string
	Value Value
}

func (Object) criterion() {}

// Path returns the keys from this object down to the innermost comparison.
func (o Object) Path() ([]string, Comparison) {
	keys := []string{o.Key}
	v := o.Value
	for {
		switch n := v.(type) {
		case Object:
			keys = append(keys, n.Key)
			v = n.Value
		case Comparison:
			return keys, n
		default:
			return keys, Comparison{}
		}
	}
}

// ToAny renders o as a single-key map.
func (o Object) ToAny() any {
	return map[string]any{o.Key: valueToAny(o.Value)}
}

func valueToAny(v Value) any {
	switch n := v.(type) {
	case Comparison:
		return n.ToAny()
	case Object:
		return n.ToAny()
	}
	return nil
}

// ============================================================================
// AND-GROUP - One conjunction of the top-level disjunction
// ============================================================================

// Entry is one field/value pair of an AndGroup.
type Entry struct {
	Field string
	Value Value
}

// AndGroup maps field paths to criteria. A field that appears more than once
// keeps every criterion in insertion order. AndGroup is immutable; With
// returns a new group.
type AndGroup struct {
	keys   []string
	values map[string][]Value
}

// NewAndGroup builds a group from entries, coalescing repeated fields.
func NewAndGroup(entries ...Entry) AndGroup {
	var g AndGroup
	for _, e := range entries {
		g = g.With(e.Field, e.Value)
	}
	return g
}

// With returns a copy of g with v added under field.
func (g AndGroup) With(field string, v Value) AndGroup {
	next := AndGroup{
		keys:   make([]string, len(g.keys), len(g.keys)+1),
		values: make(map[string][]Value, len(g.values)+1),
	}
	copy(next.keys, g.keys)
	for k, vs := range g.values {
		next.values[k] = append([]Value(nil), vs...)
	}
	if _, ok := next.values[field]; !ok {
		next.keys = append(next.keys, field)
	}
	next.values[field] = append(next.values[field], v)
	return next
}

// Len returns the number of distinct fields.
func (g AndGroup) Len() int { return len(g.keys) }

// Keys returns the distinct fields in insertion order.
func (g AndGroup) Keys() []string { return append([]string(nil), g.keys...) }

// Get returns every criterion recorded for field.
func (g AndGroup) Get(field string) []Value { return g.values[field] }

// Entries flattens the group into field/value pairs in insertion order.
func (g AndGroup) Entries() []Entry {
	var out []Entry
	for _, k := range g.keys {
		for _, v := range g.values[k] {
			out = append(out, Entry{Field: k, Value: v})
		}
	}
	return out
}

// ToMap renders the group as plain values. Coalesced fields become lists.
func (g AndGroup) ToMap() map[string]any {
	m := make(map[string]any, len(g.keys))
	for _, k := range g.keys {
		vs := g.values[k]
		if len(vs) == 1 {
			m[k] = valueToAny(vs[0])
			continue
		}
		list := make([]any, 0, len(vs))
		for _, v := range vs {
			list = append(list, valueToAny(v))
		}
		m[k] = list
	}
	return m
}

// Equal reports whether both groups hold the same fields and criteria in the
// same order.
func (g AndGroup) Equal(o AndGroup) bool {
	if len(g.keys) != len(o.keys) {
		return false
	}
	for i, k := range g.keys {
		if o.keys[i] != k {
			return false
		}
		if !reflect.DeepEqual(g.values[k], o.values[k]) {
			return false
		}
	}
	return true
}
