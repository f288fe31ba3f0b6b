package translator

import (
	"fmt"

	"github.com/omniql-engine/crudql/engine/builders/sqlquery"
	"github.com/omniql-engine/crudql/engine/models"
	"github.com/omniql-engine/crudql/engine/validator"
)

// RelationalQuery is a rendered SELECT and its row count companion.
type RelationalQuery struct {
	SQL       string
	Args      []any
	CountSQL  string
	CountArgs []any
}

// translateRelational assembles the query with the root entity as alias, so
// relation aliases read "{entity}__{relation}".
func (t *Translator) translateRelational(dbType, entity string, params models.Params) (*Translation, error) {
	q := sqlquery.NewSelectQuery(dbType, entity, entity, t.schema)
	asm := sqlquery.NewAssembler(t.cfg, t.schema,
		sqlquery.WithDialect(dbType),
		sqlquery.WithLogger(t.logger),
	)
	warnings := asm.BuildAdvanced(params, entity, q)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("render %s query: %w", dbType, err)
	}
	countSQL, countArgs, err := q.Count()
	if err != nil {
		return nil, fmt.Errorf("render %s count: %w", dbType, err)
	}

	if t.validate && validator.Supports(dbType) {
		if err := validator.ValidateSQL(sql, dbType); err != nil {
			return nil, err
		}
	}

	return &Translation{
		DBType: dbType,
		Entity: entity,
		Relational: &RelationalQuery{
			SQL:       sql,
			Args:      args,
			CountSQL:  countSQL,
			CountArgs: countArgs,
		},
		Cache:    q.CacheOptions(),
		Warnings: warnings,
	}, nil
}
