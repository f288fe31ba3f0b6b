package sqlquery

import (
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omniql-engine/crudql/engine/config"
	"github.com/omniql-engine/crudql/engine/models"
)

func record(t *testing.T, a *Assembler, params models.Params) []string {
	t.Helper()
	r := &recorder{}
	require.NoError(t, a.BuildAdvanced(params, "post", r))
	return r.calls
}

func TestBuildAdvanced(t *testing.T) {
	a := NewAssembler(nil, testRegistry())

	tests := []struct {
		name   string
		params models.Params
		want   []string
	}{
		{
			name:   "empty params select root",
			params: models.Params{},
			want:   []string{"select post.*"},
		},
		{
			name:   "explicit not equal",
			params: models.Params{Filter: "name||$ne||John"},
			want:   []string{"select post.*", "where (post.name <> ?) [John]"},
		},
		{
			name:   "relation select and join share one join",
			params: models.Params{Select: "status.*,status.name", Join: "status,status"},
			want: []string{
				"leftJoin post.status post__status",
				"select post__status.id post__status_id",
				"addSelect post__status.name post__status_name",
			},
		},
		{
			name: "nested relation alias in select and filter",
			params: models.Params{
				Select: "status.category.name",
				Filter: "status.category.name||$eq||open",
			},
			want: []string{
				"leftJoin post.status post__status",
				"leftJoin post__status.category post__status__category",
				"select post__status__category.name post__status__category_name",
				"where (post__status__category.name = ?) [open]",
			},
		},
		{
			name:   "root wildcard expands columns",
			params: models.Params{Select: "*"},
			want:   []string{"select post.id", "addSelect post.title"},
		},
		{
			name:   "sort fields are added to the projection",
			params: models.Params{Select: "id", Sort: "title,DESC;id;status.name,asc,nulls_first"},
			want: []string{
				"select post.id",
				"addSelect post.title",
				"orderBy post.title DESC",
				"addOrderBy post.id ASC",
				"leftJoin post.status post__status",
				"addSelect post__status.name post__status_name",
				"addOrderBy post__status.name ASC NULLS FIRST",
			},
		},
		{
			name:   "sort covered by root wildcard",
			params: models.Params{Sort: "title"},
			want:   []string{"select post.*", "orderBy post.title ASC"},
		},
		{
			name:   "sort covered by relation wildcard",
			params: models.Params{Join: "status", Sort: "status.name,DESC"},
			want: []string{
				"select post.*",
				"leftJoin post.status post__status",
				"addSelect post__status.id post__status_id",
				"addSelect post__status.name post__status_name",
				"orderBy post__status.name DESC",
			},
		},
		{
			name: "operators and or groups",
			params: models.Params{
				Filter: "id||$in||1,2;age||$between||1,5;title||$starts||Jo;deletedAt||$isnull;tag||!$in||3" +
					"||$or||views||!$gt||10",
			},
			want: []string{
				"select post.*",
				"where (post.id IN (?, ?) AND post.age BETWEEN ? AND ? AND post.title LIKE ? AND post.deletedAt IS NULL AND post.tag NOT IN (?)) [1 2 1 5 Jo% 3]",
				"orWhere (post.views <= ?) [10]",
			},
		},
		{
			name:   "coalesced field becomes separate conjuncts",
			params: models.Params{Filter: "age||$gt||1;age||$lt||10"},
			want:   []string{"select post.*", "where (post.age > ? AND post.age < ?) [1 10]"},
		},
		{
			name:   "negated null check and pattern",
			params: models.Params{Filter: "deletedAt||!$isnull;title||!$cont||x"},
			want:   []string{"select post.*", "where (post.deletedAt IS NOT NULL AND post.title NOT LIKE ?) [%x%]"},
		},
		{
			name:   "nested json field",
			params: models.Params{Filter: "meta#address#city||$eq||Paris"},
			want:   []string{"select post.*", "where (post.meta->'address'->>'city' = ?) [Paris]"},
		},
		{
			name:   "inner join prefix",
			params: models.Params{Join: "!status.category"},
			want: []string{
				"select post.*",
				"innerJoin post.status post__status",
				"addSelect post__status.id post__status_id",
				"addSelect post__status.name post__status_name",
				"innerJoin post__status.category post__status__category",
				"addSelect post__status__category.id post__status__category_id",
				"addSelect post__status__category.label post__status__category_label",
			},
		},
		{
			name:   "group and having",
			params: models.Params{Select: "status.name", Group: "status.name", Having: "id||$gt||1"},
			want: []string{
				"leftJoin post.status post__status",
				"select post__status.name post__status_name",
				"groupBy [post__status.name]",
				"having (post.id > ?) [1]",
			},
		},
		{
			name:   "pagination and cache",
			params: models.Params{Page: "2", Limit: "10", Cache: "true"},
			want:   []string{"select post.*", "take 10", "skip 10", "cache true 1m0s"},
		},
		{
			name:   "page with default limit",
			params: models.Params{Page: "2"},
			want:   []string{"select post.*", "take 25", "skip 25"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, record(t, a, tt.params))
		})
	}
}

func TestNotEqualCompilesIdentically(t *testing.T) {
	a := NewAssembler(nil, testRegistry())

	for _, field := range []string{"name", "status.name", "status.category.name"} {
		t.Run(field, func(t *testing.T) {
			ne := record(t, a, models.Params{Filter: field + "||$ne||John"})
			notEq := record(t, a, models.Params{Filter: field + "||!$eq||John"})
			assert.Equal(t, ne, notEq)
			assert.Contains(t, ne[len(ne)-1], "<> ?")
		})
	}
}

func TestBuildAdvancedIsIdempotent(t *testing.T) {
	a := NewAssembler(nil, testRegistry())
	params := models.Params{
		Select: "id,status.*",
		Join:   "status.category",
		Sort:   "status.category.label,DESC",
		Filter: "status.name||$in||a,b||$or||title||$cont||x",
		Page:   "3",
	}
	assert.Equal(t, record(t, a, params), record(t, a, params))
}

func TestBuildAdvancedSkipsInvalidFields(t *testing.T) {
	a := NewAssembler(nil, testRegistry())
	r := &recorder{}

	err := a.BuildAdvanced(models.Params{
		Select: "id;drop",
		Filter: "bad name||$eq||1;title||$eq||x",
		Limit:  "lots",
	}, "post", r)

	require.Error(t, err)
	assert.Equal(t, []string{"where (post.title = ?) [x]"}, r.calls)
}

func TestBuildAdvancedDialects(t *testing.T) {
	params := models.Params{Filter: "meta#address#city||$eq||Paris"}

	mysql := &recorder{}
	require.NoError(t, NewAssembler(nil, nil, WithDialect("MySQL")).BuildAdvanced(params, "post", mysql))
	assert.Equal(t, "where (JSON_UNQUOTE(JSON_EXTRACT(post.meta, '$.address.city')) = ?) [Paris]", mysql.calls[1])

	sqlite := &recorder{}
	require.NoError(t, NewAssembler(nil, nil, WithDialect("SQLite")).BuildAdvanced(params, "post", sqlite))
	assert.Equal(t, "where (json_extract(post.meta, '$.address.city') = ?) [Paris]", sqlite.calls[1])
}

func TestBuildAdvancedCustomConfig(t *testing.T) {
	cfg, err := config.New(map[string]any{
		"relationDelimiter": "/",
		"cacheDuration":     "5m",
	})
	require.NoError(t, err)

	got := record(t, NewAssembler(cfg, testRegistry()), models.Params{
		Filter: "status/name||$eq||x",
		Cache:  "true",
	})
	assert.Equal(t, []string{
		"select post.*",
		"leftJoin post.status post__status",
		"where (post__status.name = ?) [x]",
		"cache true 5m0s",
	}, got)
}

// fixedCompiler applies the same predicate to every group.
type fixedCompiler struct{}

func (fixedCompiler) Parse(string) ([]models.AndGroup, error) {
	return []models.AndGroup{models.NewAndGroup(models.Entry{Field: "x", Value: models.Eq(1)})}, nil
}

func (fixedCompiler) ApplyToBuilder(_ models.AndGroup, wb WhereBuilder, scope *Scope) error {
	column := scope.Alias() + ".tenant_id"
	wb.Where(sq.Expr(column+" = ?", 7))
	return nil
}

func TestBuildAdvancedWithCompiler(t *testing.T) {
	a := NewAssembler(nil, nil, WithCompiler(fixedCompiler{}))
	assert.Equal(t,
		[]string{"select post.*", "where (post.tenant_id = ?) [7]"},
		record(t, a, models.Params{Filter: "anything"}),
	)
}
