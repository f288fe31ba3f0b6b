// Package sqlquery assembles relational queries from request parameters.
//
// The Assembler populates a QueryBuilder: it resolves relation joins and
// their aliases, deduplicates joins and selected columns, and compiles
// filter groups into parameterized predicates through a FilterCompiler.
// SelectQuery is a QueryBuilder that renders the result with squirrel.
package sqlquery

import (
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/omniql-engine/crudql/engine/models"
)

// QueryBuilder is the mutable query populated by the Assembler. A relation
// property is written "parentAlias.relation"; the joined relation is then
// addressed by alias.
type QueryBuilder interface {
	Select(selection, alias string)
	AddSelect(selection, alias string)
	LeftJoin(property, alias string)
	InnerJoin(property, alias string)
	Where(cond sq.Sqlizer)
	AndWhere(cond sq.Sqlizer)
	OrWhere(cond sq.Sqlizer)
	OrderBy(sort string, direction models.SortDirection, nulls models.NullsPosition)
	AddOrderBy(sort string, direction models.SortDirection, nulls models.NullsPosition)
	GroupBy(columns ...string)
	Having(cond sq.Sqlizer)
	Take(n int)
	Skip(n int)
	Cache(opts models.CacheOptions)
}

// WhereBuilder is the predicate sub-builder filled for one bracketed group.
type WhereBuilder interface {
	Where(cond sq.Sqlizer)
	AndWhere(cond sq.Sqlizer)
	OrWhere(cond sq.Sqlizer)
}

// ============================================================================
// BRACKETS
// ============================================================================

type clause struct {
	or   bool
	cond sq.Sqlizer
}

// conditions is an ordered chain of predicates joined by AND / OR, rendered
// left to right without implicit grouping.
type conditions []clause

func (c conditions) toSql() (string, []interface{}, error) {
	var sb strings.Builder
	var args []interface{}
	for _, cl := range c {
		sql, a, err := cl.cond.ToSql()
		if err != nil {
			return "", nil, err
		}
		if sql == "" {
			continue
		}
		if sb.Len() > 0 {
			if cl.or {
				sb.WriteString(" OR ")
			} else {
				sb.WriteString(" AND ")
			}
		}
		sb.WriteString(sql)
		args = append(args, a...)
	}
	return sb.String(), args, nil
}

// Brackets is a WhereBuilder that renders its chain inside parentheses.
// It implements squirrel.Sqlizer so it can be passed to any Where call.
type Brackets struct {
	chain conditions
}

// NewBrackets creates an empty bracket and lets fill populate it.
func NewBrackets(fill func(WhereBuilder)) *Brackets {
	b := &Brackets{}
	if fill != nil {
		fill(b)
	}
	return b
}

// Where replaces the chain with cond.
func (b *Brackets) Where(cond sq.Sqlizer) { b.chain = conditions{{cond: cond}} }

// AndWhere appends cond with AND.
func (b *Brackets) AndWhere(cond sq.Sqlizer) { b.chain = append(b.chain, clause{cond: cond}) }

// OrWhere appends cond with OR.
func (b *Brackets) OrWhere(cond sq.Sqlizer) { b.chain = append(b.chain, clause{or: true, cond: cond}) }

// Len returns the number of predicates.
func (b *Brackets) Len() int { return len(b.chain) }

// ToSql implements squirrel.Sqlizer.
func (b *Brackets) ToSql() (string, []interface{}, error) {
	sql, args, err := b.chain.toSql()
	if err != nil || sql == "" {
		return sql, args, err
	}
	return "(" + sql + ")", args, nil
}
