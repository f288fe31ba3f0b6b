package models

import "time"

// ============================================================================
// PARAMS - Raw request parameters
// ============================================================================

// Params is the raw parameter bag of one request. Every field is optional;
// an empty string contributes nothing.
type Params struct {
	Select string // comma separated fields, "*" and "relation.*" allowed
	Join   string // comma separated relation paths
	Sort   string // field[,direction[,nulls]] clauses separated by ";"
	Cache  string // "true" / "false"
	Limit  string // row cap
	Page   string // 1-based page number
	Filter string // filter grammar, see parser package

	// Advanced mode only
	Group  string // comma separated GROUP BY fields
	Having string // filter grammar applied to HAVING
}

// IsEmpty reports whether no parameter carries a value.
func (p Params) IsEmpty() bool {
	return p == Params{}
}

// ============================================================================
// DESCRIPTOR - Output of the simple path
// ============================================================================

// Descriptor is the structured query handed to a data layer that accepts
// whole-object filter criteria. Nil / zero fields were not requested.
type Descriptor struct {
	Select    map[string]bool
	Relations []string
	Where     []AndGroup
	Order     []Order
	Skip      *int
	Take      *int
	Cache     *bool
}

// Order is one ORDER BY entry. Order is kept as a slice so that the sort
// clause sequence of the request is preserved.
type Order struct {
	Field     string
	Direction SortDirection
	Nulls     NullsPosition // empty when unset
}

// SortDirection represents sort order
type SortDirection string

const (
	Ascending  SortDirection = "ASC"
	Descending SortDirection = "DESC"
)

// NullsPosition places NULL values in an ordering.
type NullsPosition string

const (
	NullsFirst NullsPosition = "NULLS FIRST"
	NullsLast  NullsPosition = "NULLS LAST"
)

// IsEmpty reports whether the descriptor carries nothing, the equivalent of
// an empty object.
func (d *Descriptor) IsEmpty() bool {
	return d == nil || (d.Select == nil && d.Relations == nil && d.Where == nil &&
		d.Order == nil && d.Skip == nil && d.Take == nil && d.Cache == nil)
}

// OrderMap returns the order entries keyed by field.
func (d *Descriptor) OrderMap() map[string]Order {
	if d == nil || d.Order == nil {
		return nil
	}
	m := make(map[string]Order, len(d.Order))
	for _, o := range d.Order {
		m[o.Field] = o
	}
	return m
}

// ============================================================================
// CONDITION - One parsed assertion
// ============================================================================

// Condition is one field/operator/value assertion as written in the filter
// string, before operator resolution.
type Condition struct {
	Field    string // simple, relation-qualified or nested path
	Operator string // operator token without the NOT prefix
	RawValue string
	Negated  bool
	Position int // byte offset of the condition inside the filter string
}

// ============================================================================
// CACHE
// ============================================================================

// CacheOptions is the cache directive produced by the assembly engine.
type CacheOptions struct {
	Enabled  bool
	Duration time.Duration
}
