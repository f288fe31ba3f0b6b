package sqlquery

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/omniql-engine/crudql/engine/models"
	"github.com/omniql-engine/crudql/engine/schema"
)

// recorder is a QueryBuilder that logs every call in order.
type recorder struct {
	calls []string
}

func (r *recorder) add(format string, args ...any) {
	r.calls = append(r.calls, strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (r *recorder) cond(name string, c sq.Sqlizer) {
	sql, args, err := c.ToSql()
	if err != nil {
		r.add("%s error %v", name, err)
		return
	}
	r.add("%s %s %v", name, sql, args)
}

func (r *recorder) Select(selection, alias string)    { r.add("select %s %s", selection, alias) }
func (r *recorder) AddSelect(selection, alias string) { r.add("addSelect %s %s", selection, alias) }
func (r *recorder) LeftJoin(property, alias string)   { r.add("leftJoin %s %s", property, alias) }
func (r *recorder) InnerJoin(property, alias string)  { r.add("innerJoin %s %s", property, alias) }
func (r *recorder) Where(c sq.Sqlizer)                { r.cond("where", c) }
func (r *recorder) AndWhere(c sq.Sqlizer)             { r.cond("andWhere", c) }
func (r *recorder) OrWhere(c sq.Sqlizer)              { r.cond("orWhere", c) }
func (r *recorder) Having(c sq.Sqlizer)               { r.cond("having", c) }
func (r *recorder) GroupBy(columns ...string)         { r.add("groupBy %v", columns) }
func (r *recorder) Take(n int)                        { r.add("take %d", n) }
func (r *recorder) Skip(n int)                        { r.add("skip %d", n) }
func (r *recorder) Cache(o models.CacheOptions)       { r.add("cache %v %s", o.Enabled, o.Duration) }

func (r *recorder) OrderBy(sort string, d models.SortDirection, n models.NullsPosition) {
	r.add("orderBy %s %s %s", sort, d, n)
}

func (r *recorder) AddOrderBy(sort string, d models.SortDirection, n models.NullsPosition) {
	r.add("addOrderBy %s %s %s", sort, d, n)
}

func testRegistry() *schema.Registry {
	return schema.NewRegistry(
		schema.Entity{
			Name:      "post",
			Columns:   []string{"id", "title"},
			Relations: []schema.Relation{{Name: "status", Entity: "status", LocalKey: "status_id"}},
		},
		schema.Entity{
			Name:      "status",
			Table:     "statuses",
			Columns:   []string{"id", "name"},
			Relations: []schema.Relation{{Name: "category", Entity: "category", LocalKey: "category_id"}},
		},
		schema.Entity{Name: "category", Columns: []string{"id", "label"}},
	)
}
