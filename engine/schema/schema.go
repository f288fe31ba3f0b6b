// Package schema provides entity metadata consulted during query assembly:
// column lists for wildcard selection and relation join keys.
package schema

import (
	"strings"
	"sync"

	"github.com/jinzhu/inflection"
)

// DefaultColumns is returned for entities nothing is known about.
var DefaultColumns = []string{"id"}

// ColumnLookup returns the ordered column names of an entity or relation.
// Unknown names resolve to DefaultColumns, never an error.
type ColumnLookup interface {
	Columns(name string) []string
}

// RelationLookup resolves how a relation of an entity is joined.
type RelationLookup interface {
	Table(entity string) string
	Relation(entity, name string) Relation
}

// Relation describes the join of Name from its owning entity:
// owner.LocalKey = target.ForeignKey.
type Relation struct {
	Name       string
	Entity     string // target entity
	Table      string // target table
	LocalKey   string
	ForeignKey string
}

// Entity is the registered metadata of one entity.
type Entity struct {
	Name      string
	Table     string
	Columns   []string
	Relations []Relation
}

// Registry is an in-memory ColumnLookup and RelationLookup. Entities may be
// registered at any time; lookups are safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	entities map[string]Entity
}

// NewRegistry creates a registry holding entities.
func NewRegistry(entities ...Entity) *Registry {
	r := &Registry{entities: make(map[string]Entity)}
	for _, e := range entities {
		r.Register(e)
	}
	return r
}

// Register adds or replaces an entity.
func (r *Registry) Register(e Entity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entities[e.Name] = e
}

// Entity returns the registered entity.
func (r *Registry) Entity(name string) (Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[name]
	return e, ok
}

// Columns resolves name as an entity first, then as a relation name of any
// registered entity. Falls back to DefaultColumns.
func (r *Registry) Columns(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.entities[name]; ok && len(e.Columns) > 0 {
		return append([]string(nil), e.Columns...)
	}
	for _, e := range r.entities {
		for _, rel := range e.Relations {
			if rel.Name != name {
				continue
			}
			if target, ok := r.entities[rel.Entity]; ok && len(target.Columns) > 0 {
				return append([]string(nil), target.Columns...)
			}
		}
	}
	return append([]string(nil), DefaultColumns...)
}

// Table returns the table of entity, defaulting to its plural.
func (r *Registry) Table(entity string) string {
	r.mu.RLock()
	e, ok := r.entities[entity]
	r.mu.RUnlock()
	if ok && e.Table != "" {
		return e.Table
	}
	return TableName(entity)
}

// Relation returns the join description of name on entity. Unregistered
// relations are treated as many-to-one: owner.<name>_id = <plural(name)>.id.
func (r *Registry) Relation(entity, name string) Relation {
	r.mu.RLock()
	e, ok := r.entities[entity]
	r.mu.RUnlock()

	rel := Relation{Name: name}
	if ok {
		for _, candidate := range e.Relations {
			if candidate.Name == name {
				rel = candidate
				break
			}
		}
	}
	if rel.Entity == "" {
		rel.Entity = inflection.Singular(name)
	}
	if rel.Table == "" {
		rel.Table = r.Table(rel.Entity)
	}
	if rel.LocalKey == "" {
		rel.LocalKey = name + "_id"
	}
	if rel.ForeignKey == "" {
		rel.ForeignKey = "id"
	}
	return rel
}

// TableName converts an entity name to its conventional table name
func TableName(entity string) string {
	return inflection.Plural(strings.ToLower(entity))
}
