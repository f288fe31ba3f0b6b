// Package redis evaluates query descriptors against Redis hashes. Redis has
// no query language for hash contents, so records are scanned by key pattern
// and filtered, sorted, paged and projected in memory.
package redis

import (
	"sort"
	"strconv"
	"strings"

	"github.com/omniql-engine/crudql/engine/config"
	"github.com/omniql-engine/crudql/engine/models"
	"github.com/omniql-engine/crudql/engine/schema"
	"github.com/omniql-engine/crudql/mapping"
)

// ============================================================================
// REDIS QUERY
// ============================================================================

// Query is a descriptor translated for hashes stored under "{table}:{id}".
type Query struct {
	KeyPattern string
	Where      []models.AndGroup
	Order      []models.Order
	Fields     []string
	Prefixes   []string // "{relation}." of each relation wildcard
	Skip       int
	Take       int // applies when Limited
	Limited    bool
}

// Build translates desc for entity. A nil cfg uses the defaults and tables
// may be nil.
func Build(cfg *config.Config, entity string, desc *models.Descriptor, tables schema.RelationLookup) *Query {
	if cfg == nil {
		cfg = config.Default()
	}
	table := schema.TableName(entity)
	if tables != nil {
		table = tables.Table(entity)
	}
	q := &Query{KeyPattern: table + ":*"}
	if desc == nil {
		return q
	}
	q.Where = desc.Where
	q.Order = desc.Order
	q.Fields, q.Prefixes = selection(cfg, desc.Select)
	if desc.Skip != nil {
		q.Skip = *desc.Skip
	}
	if desc.Take != nil {
		q.Take = *desc.Take
		q.Limited = true
	}
	return q
}

// Matches reports whether hash passes the filter of q.
func (q *Query) Matches(hash map[string]string) bool {
	return MatchesGroups(hash, q.Where)
}

// Apply filters, sorts, pages and projects hashes. The input is not modified.
func (q *Query) Apply(hashes []map[string]string) []map[string]string {
	var out []map[string]string
	for _, h := range hashes {
		if q.Matches(h) {
			out = append(out, h)
		}
	}
	if len(q.Order) > 0 {
		sort.SliceStable(out, func(i, j int) bool {
			return less(out[i], out[j], q.Order)
		})
	}

	if q.Skip >= len(out) {
		out = nil
	} else {
		out = out[q.Skip:]
	}
	if q.Limited && q.Take < len(out) {
		out = out[:q.Take]
	}

	result := make([]map[string]string, 0, len(out))
	for _, h := range out {
		result = append(result, q.Project(h))
	}
	return result
}

// selection splits selected fields into plain names and relation prefixes.
// A root wildcard selects the whole hash, so both come back nil.
func selection(cfg *config.Config, sel map[string]bool) (fields, prefixes []string) {
	wildcard := cfg.Token(mapping.OptWildcard)
	suffix := cfg.Token(mapping.OptRelationDelimiter) + wildcard
	for field, on := range sel {
		switch {
		case !on:
		case field == wildcard:
			return nil, nil
		case strings.HasSuffix(field, suffix):
			prefixes = append(prefixes, strings.TrimSuffix(field, wildcard))
		default:
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)
	sort.Strings(prefixes)
	return fields, prefixes
}

// Project keeps the selected fields of hash. Without a selection the whole
// hash is copied.
func (q *Query) Project(hash map[string]string) map[string]string {
	out := make(map[string]string, len(hash))
	if len(q.Fields) == 0 && len(q.Prefixes) == 0 {
		for k, v := range hash {
			out[k] = v
		}
		return out
	}
	for _, f := range q.Fields {
		if v, ok := hash[f]; ok {
			out[f] = v
		}
	}
	for k, v := range hash {
		for _, p := range q.Prefixes {
			if strings.HasPrefix(k, p) {
				out[k] = v
				break
			}
		}
	}
	return out
}

// less orders two hashes by each sort key in turn. A missing field is a
// null: last ascending and first descending unless a placement is given.
func less(a, b map[string]string, order []models.Order) bool {
	for _, o := range order {
		av, aok := a[o.Field]
		bv, bok := b[o.Field]
		if aok != bok {
			nullsFirst := o.Direction == models.Descending
			switch o.Nulls {
			case models.NullsFirst:
				nullsFirst = true
			case models.NullsLast:
				nullsFirst = false
			}
			return aok != nullsFirst
		}
		if !aok {
			continue
		}
		c := compareNumeric(av, bv)
		if c == 0 {
			continue
		}
		if o.Direction == models.Descending {
			return c > 0
		}
		return c < 0
	}
	return false
}

// Command renders the SCAN that enumerates candidate keys.
func (q *Query) Command() string {
	return "SCAN 0 MATCH " + q.KeyPattern + " COUNT " + strconv.Itoa(ScanCount)
}

// ScanCount is the COUNT hint of each SCAN call.
const ScanCount = 100

// KeyID returns the id part of a "{table}:{id}" key, after any prefix.
func KeyID(key string) string {
	if i := strings.LastIndex(key, ":"); i >= 0 {
		return key[i+1:]
	}
	return key
}
