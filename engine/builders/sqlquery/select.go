package sqlquery

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/omniql-engine/crudql/engine/models"
	"github.com/omniql-engine/crudql/engine/schema"
)

// ============================================================================
// SELECT QUERY - QueryBuilder rendered with squirrel
// ============================================================================

type joinClause struct {
	inner bool
	expr  string
}

type orderClause struct {
	expr      string
	direction models.SortDirection
	nulls     models.NullsPosition
}

// SelectQuery is a QueryBuilder that renders a SELECT statement for one
// dialect. Join properties are resolved through a RelationLookup; the alias
// of every joined relation remembers its entity so nested joins resolve.
type SelectQuery struct {
	dialect   string
	table     string
	alias     string
	relations schema.RelationLookup

	entities map[string]string // alias -> entity
	columns  []string
	joins    []joinClause
	where    conditions
	order    []orderClause
	groupBy  []string
	having   sq.Sqlizer
	limit    *int
	offset   *int
	cache    models.CacheOptions
	err      error
}

// NewSelectQuery starts a query on entity under alias. relations may be nil,
// in which case conventional table and key names are used.
func NewSelectQuery(dialect, entity, alias string, relations schema.RelationLookup) *SelectQuery {
	if relations == nil {
		relations = schema.NewRegistry()
	}
	return &SelectQuery{
		dialect:   dialect,
		table:     relations.Table(entity),
		alias:     alias,
		relations: relations,
		entities:  map[string]string{alias: entity},
	}
}

func column(selection, alias string) string {
	if alias == "" {
		return selection
	}
	return selection + " AS " + alias
}

// Select replaces the projection.
func (q *SelectQuery) Select(selection, alias string) {
	q.columns = []string{column(selection, alias)}
}

// AddSelect appends to the projection.
func (q *SelectQuery) AddSelect(selection, alias string) {
	q.columns = append(q.columns, column(selection, alias))
}

// LeftJoin joins a relation property "parentAlias.relation".
func (q *SelectQuery) LeftJoin(property, alias string) { q.join(false, property, alias) }

// InnerJoin joins a relation property that must exist.
func (q *SelectQuery) InnerJoin(property, alias string) { q.join(true, property, alias) }

func (q *SelectQuery) join(inner bool, property, alias string) {
	i := strings.LastIndex(property, ".")
	if i < 0 {
		q.fail(fmt.Errorf("join %q: expected parentAlias.relation", property))
		return
	}
	parent, name := property[:i], property[i+1:]
	owner, ok := q.entities[parent]
	if !ok {
		q.fail(fmt.Errorf("join %q: unknown alias %q", property, parent))
		return
	}

	rel := q.relations.Relation(owner, name)
	q.entities[alias] = rel.Entity
	q.joins = append(q.joins, joinClause{
		inner: inner,
		expr: fmt.Sprintf("%s AS %s ON %s.%s = %s.%s",
			rel.Table, alias, alias, rel.ForeignKey, parent, rel.LocalKey),
	})
}

// Where replaces the WHERE chain.
func (q *SelectQuery) Where(cond sq.Sqlizer) { q.where = conditions{{cond: cond}} }

// AndWhere appends cond with AND.
func (q *SelectQuery) AndWhere(cond sq.Sqlizer) { q.where = append(q.where, clause{cond: cond}) }

// OrWhere appends cond with OR.
func (q *SelectQuery) OrWhere(cond sq.Sqlizer) {
	q.where = append(q.where, clause{or: true, cond: cond})
}

// OrderBy replaces the ordering.
func (q *SelectQuery) OrderBy(sort string, direction models.SortDirection, nulls models.NullsPosition) {
	q.order = []orderClause{{expr: sort, direction: direction, nulls: nulls}}
}

// AddOrderBy appends to the ordering.
func (q *SelectQuery) AddOrderBy(sort string, direction models.SortDirection, nulls models.NullsPosition) {
	q.order = append(q.order, orderClause{expr: sort, direction: direction, nulls: nulls})
}

// GroupBy replaces the grouping.
func (q *SelectQuery) GroupBy(columns ...string) { q.groupBy = columns }

// Having sets the HAVING condition.
func (q *SelectQuery) Having(cond sq.Sqlizer) { q.having = cond }

// Take limits the number of rows.
func (q *SelectQuery) Take(n int) { q.limit = &n }

// Skip offsets the first row.
func (q *SelectQuery) Skip(n int) { q.offset = &n }

// Cache records the cache directive. It is not part of the SQL; executors
// read it through CacheOptions.
func (q *SelectQuery) Cache(opts models.CacheOptions) { q.cache = opts }

// CacheOptions returns the cache directive set by Cache.
func (q *SelectQuery) CacheOptions() models.CacheOptions { return q.cache }

// Dialect returns the database the query renders for.
func (q *SelectQuery) Dialect() string { return q.dialect }

func (q *SelectQuery) fail(err error) {
	if q.err == nil {
		q.err = err
	}
}

// ToSql renders the statement with the dialect's placeholders.
func (q *SelectQuery) ToSql() (string, []interface{}, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	return q.builder().ToSql()
}

// Count renders "SELECT COUNT(*)" with the same joins and conditions but
// without projection, ordering or pagination.
func (q *SelectQuery) Count() (string, []interface{}, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	b := q.statement().Select("COUNT(*)").From(q.table + " AS " + q.alias)
	b = q.filter(b)
	return b.ToSql()
}

func (q *SelectQuery) statement() sq.StatementBuilderType {
	if q.dialect == "PostgreSQL" {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

func (q *SelectQuery) filter(b sq.SelectBuilder) sq.SelectBuilder {
	for _, j := range q.joins {
		if j.inner {
			b = b.JoinClause("INNER JOIN " + j.expr)
		} else {
			b = b.LeftJoin(j.expr)
		}
	}
	if len(q.where) > 0 {
		b = b.Where(q.where)
	}
	if len(q.groupBy) > 0 {
		b = b.GroupBy(q.groupBy...)
	}
	if q.having != nil {
		b = b.Having(q.having)
	}
	return b
}

func (q *SelectQuery) builder() sq.SelectBuilder {
	columns := q.columns
	if len(columns) == 0 {
		columns = []string{q.alias + ".*"}
	}

	b := q.statement().Select(columns...).From(q.table + " AS " + q.alias)
	b = q.filter(b)

	for _, o := range q.order {
		b = b.OrderBy(q.orderExpr(o)...)
	}
	if page := q.pagination(); page != "" {
		b = b.Suffix(page)
	}
	return b
}

// pagination renders LIMIT / OFFSET. MySQL and SQLite need a LIMIT before
// OFFSET, so an offset alone gets the dialect's "no limit" value.
func (q *SelectQuery) pagination() string {
	var parts []string
	switch {
	case q.limit != nil:
		parts = append(parts, fmt.Sprintf("LIMIT %d", *q.limit))
	case q.offset != nil && q.dialect == "MySQL":
		parts = append(parts, "LIMIT 18446744073709551615")
	case q.offset != nil && q.dialect == "SQLite":
		parts = append(parts, "LIMIT -1")
	}
	if q.offset != nil {
		parts = append(parts, fmt.Sprintf("OFFSET %d", *q.offset))
	}
	return strings.Join(parts, " ")
}

// orderExpr renders one ORDER BY entry. MySQL has no NULLS FIRST/LAST, so
// the placement is emulated with a leading IS NULL key.
func (q *SelectQuery) orderExpr(o orderClause) []string {
	dir := o.direction
	if dir == "" {
		dir = models.Ascending
	}
	main := o.expr + " " + string(dir)
	if o.nulls == "" {
		return []string{main}
	}
	if q.dialect == "MySQL" {
		nullKey := o.expr + " IS NULL ASC"
		if o.nulls == models.NullsFirst {
			nullKey = o.expr + " IS NULL DESC"
		}
		return []string{nullKey, main}
	}
	return []string{main + " " + string(o.nulls)}
}

// ToSql lets the WHERE chain be handed to squirrel.
func (c conditions) ToSql() (string, []interface{}, error) { return c.toSql() }
