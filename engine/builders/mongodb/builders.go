// Package mongodb turns a query descriptor into MongoDB filters, find
// options and aggregation pipelines.
package mongodb

import (
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/omniql-engine/crudql/engine/config"
	"github.com/omniql-engine/crudql/engine/models"
	"github.com/omniql-engine/crudql/engine/schema"
	"github.com/omniql-engine/crudql/mapping"
)

const dbType = "MongoDB"

// Query is a descriptor translated for one collection. Pipeline is set
// instead of Find when relations have to be looked up.
type Query struct {
	Collection string
	Filter     bson.M
	Find       *options.FindOptions
	Pipeline   []bson.M
}

// Builder converts descriptors using the delimiters of cfg.
type Builder struct {
	cfg *config.Config
}

// New creates a builder. A nil cfg uses the defaults.
func New(cfg *config.Config) *Builder {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Builder{cfg: cfg}
}

// Build translates desc for entity. rel resolves relation lookups and may be
// nil when desc has no relations.
func (b *Builder) Build(entity string, desc *models.Descriptor, rel schema.RelationLookup) *Query {
	if rel == nil {
		rel = schema.NewRegistry()
	}
	q := &Query{Collection: rel.Table(entity), Filter: bson.M{}}
	if desc == nil {
		q.Find = options.Find()
		return q
	}
	q.Filter = b.Filter(desc.Where)
	if len(desc.Relations) > 0 {
		q.Pipeline = b.Pipeline(entity, desc, rel)
		return q
	}
	q.Find = b.FindOptions(desc)
	return q
}

// ============================================================================
// FILTER
// ============================================================================

// Filter renders AND-groups as a filter document. Several groups become an
// $or; an empty slice matches everything.
func (b *Builder) Filter(groups []models.AndGroup) bson.M {
	var branches bson.A
	for _, g := range groups {
		if f := b.groupFilter(g); f != nil {
			branches = append(branches, f)
		}
	}
	switch len(branches) {
	case 0:
		return bson.M{}
	case 1:
		return branches[0].(bson.M)
	}
	return bson.M{"$or": branches}
}

// groupFilter ANDs every entry of g. A field with several criteria yields one
// conjunct per criterion.
func (b *Builder) groupFilter(g models.AndGroup) bson.M {
	var conds bson.A
	for _, e := range g.Entries() {
		field, c := b.flatten(e.Field, e.Value)
		conds = append(conds, buildSingleConditionFilter(field, c))
	}
	switch len(conds) {
	case 0:
		return nil
	case 1:
		return conds[0].(bson.M)
	}
	return bson.M{"$and": conds}
}

// flatten turns a relation or nested field plus its criterion into a dotted
// document path and the innermost comparison.
func (b *Builder) flatten(field string, v models.Value) (string, models.Comparison) {
	path := b.FieldPath(field)
	switch n := v.(type) {
	case models.Comparison:
		return path, n
	case models.Object:
		keys, c := n.Path()
		return path + "." + strings.Join(keys, "."), c
	}
	return path, models.Comparison{}
}

// FieldPath converts relation and nested delimiters to MongoDB dot notation.
func (b *Builder) FieldPath(field string) string {
	for _, opt := range []string{mapping.OptRelationDelimiter, mapping.OptNestedDelimiter} {
		if d := b.cfg.Token(opt); d != "" && d != "." {
			field = strings.ReplaceAll(field, d, ".")
		}
	}
	return field
}

func buildSingleConditionFilter(field string, c models.Comparison) bson.M {
	switch c.Kind {
	case models.KindIsNull:
		return bson.M{field: bson.M{"$eq": nil}}
	case models.KindNotNull:
		return bson.M{field: bson.M{"$ne": nil}}
	case models.KindIn:
		return bson.M{field: bson.M{operator(c): bson.A(c.Operands)}}
	case models.KindBetween:
		if len(c.Operands) != 2 {
			return bson.M{}
		}
		lo, hi := c.Operands[0], c.Operands[1]
		if c.Negated {
			return bson.M{"$or": bson.A{
				bson.M{field: bson.M{"$lt": lo}},
				bson.M{field: bson.M{"$gt": hi}},
			}}
		}
		return bson.M{field: bson.M{"$gte": lo, "$lte": hi}}
	case models.KindContains, models.KindStartsWith, models.KindEndsWith:
		pattern, _ := c.Operand.(string)
		if c.Negated {
			return bson.M{field: bson.M{"$not": primitive.Regex{Pattern: likeToRegex(pattern), Options: "i"}}}
		}
		return bson.M{field: bson.M{"$regex": likeToRegex(pattern), "$options": "i"}}
	case models.KindEqual:
		if !c.Negated {
			return bson.M{field: c.Operand}
		}
	}
	return bson.M{field: bson.M{operator(c): c.Operand}}
}

// operator returns the query operator of c, honouring negation.
func operator(c models.Comparison) string {
	if c.Negated {
		return mapping.NegatedOperatorMap[dbType][c.Kind]
	}
	return mapping.OperatorMap[dbType][c.Kind]
}

// likeToRegex converts a LIKE pattern into an anchored regular expression.
// "%" matches any run, "_" any single character; the rest is literal.
func likeToRegex(pattern string) string {
	var sb strings.Builder
	sb.WriteByte('^')
	for _, r := range pattern {
		switch r {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteByte('.')
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteByte('$')
	return sb.String()
}

// ============================================================================
// FIND OPTIONS
// ============================================================================

// FindOptions maps projection, sort, skip and take onto options.Find.
// MongoDB always sorts nulls first ascending, so a nulls placement is not
// carried over.
func (b *Builder) FindOptions(desc *models.Descriptor) *options.FindOptions {
	opts := options.Find()
	if desc == nil {
		return opts
	}
	if p := b.Projection(desc.Select); p != nil {
		opts.SetProjection(p)
	}
	if s := b.Sort(desc.Order); len(s) > 0 {
		opts.SetSort(s)
	}
	if desc.Skip != nil {
		opts.SetSkip(int64(*desc.Skip))
	}
	if desc.Take != nil {
		opts.SetLimit(int64(*desc.Take))
	}
	return opts
}

// Projection includes every selected field. A relation wildcard includes the
// relation's subdocument. Nil when nothing was selected or the selection has
// the root wildcard.
func (b *Builder) Projection(sel map[string]bool) bson.M {
	wildcard := b.cfg.Token(mapping.OptWildcard)
	suffix := b.cfg.Token(mapping.OptRelationDelimiter) + wildcard
	p := bson.M{}
	for field, on := range sel {
		switch {
		case !on:
		case field == wildcard:
			return nil
		case strings.HasSuffix(field, suffix):
			p[b.FieldPath(strings.TrimSuffix(field, suffix))] = 1
		default:
			p[b.FieldPath(field)] = 1
		}
	}
	if len(p) == 0 {
		return nil
	}
	return p
}

// Sort keeps the requested order of the sort keys.
func (b *Builder) Sort(order []models.Order) bson.D {
	var sortFields bson.D
	for _, o := range order {
		direction := 1
		if o.Direction == models.Descending {
			direction = -1
		}
		sortFields = append(sortFields, bson.E{Key: b.FieldPath(o.Field), Value: direction})
	}
	return sortFields
}

// ============================================================================
// AGGREGATION PIPELINE
// ============================================================================

// Pipeline builds a $lookup/$unwind stage pair per relation level, followed
// by $match, $sort, $skip, $limit and $project. Relations are looked up
// left-outer, so documents without a related document are kept.
func (b *Builder) Pipeline(entity string, desc *models.Descriptor, rel schema.RelationLookup) []bson.M {
	pipeline := []bson.M{}
	relDelim := b.cfg.Token(mapping.OptRelationDelimiter)
	innerPrefix := b.cfg.Token(mapping.OptInnerJoinPrefix)

	looked := map[string]bool{}
	for _, path := range desc.Relations {
		if innerPrefix != "" {
			path = strings.TrimPrefix(path, innerPrefix)
		}
		parts := strings.Split(path, relDelim)
		owner, prefix := entity, ""
		for _, name := range parts {
			r := rel.Relation(owner, name)
			as := name
			local := r.LocalKey
			if prefix != "" {
				as = prefix + "." + name
				local = prefix + "." + r.LocalKey
			}
			if !looked[as] {
				looked[as] = true
				pipeline = append(pipeline,
					bson.M{"$lookup": bson.M{
						"from":         r.Table,
						"localField":   local,
						"foreignField": r.ForeignKey,
						"as":           as,
					}},
					bson.M{"$unwind": bson.M{"path": "$" + as, "preserveNullAndEmptyArrays": true}},
				)
			}
			owner, prefix = r.Entity, as
		}
	}

	if len(desc.Where) > 0 {
		pipeline = append(pipeline, bson.M{"$match": b.Filter(desc.Where)})
	}
	if s := b.Sort(desc.Order); len(s) > 0 {
		pipeline = append(pipeline, bson.M{"$sort": s})
	}
	if desc.Skip != nil && *desc.Skip > 0 {
		pipeline = append(pipeline, bson.M{"$skip": int64(*desc.Skip)})
	}
	if desc.Take != nil && *desc.Take > 0 {
		pipeline = append(pipeline, bson.M{"$limit": int64(*desc.Take)})
	}
	if p := b.Projection(desc.Select); p != nil {
		pipeline = append(pipeline, bson.M{"$project": p})
	}
	return pipeline
}
