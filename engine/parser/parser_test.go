package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omniql-engine/crudql/engine/config"
	"github.com/omniql-engine/crudql/engine/lexer"
	"github.com/omniql-engine/crudql/engine/models"
)

func group(entries ...models.Entry) models.AndGroup { return models.NewAndGroup(entries...) }

func entry(field string, v models.Value) models.Entry { return models.Entry{Field: field, Value: v} }

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		want   []models.AndGroup
	}{
		{
			name:   "equality",
			filter: "name||$eq||mlad",
			want:   []models.AndGroup{group(entry("name", models.Eq("mlad")))},
		},
		{
			name:   "membership coerces members",
			filter: "id||$in||1,2,3",
			want:   []models.AndGroup{group(entry("id", models.In(int64(1), int64(2), int64(3))))},
		},
		{
			name:   "top level or",
			filter: "name||$eq||John||$or||age||$gt||25",
			want: []models.AndGroup{
				group(entry("name", models.Eq("John"))),
				group(entry("age", models.Cmp(models.KindGreaterThan, int64(25)))),
			},
		},
		{
			name:   "condition delimiter",
			filter: "a||$eq||1;b||$eq||x",
			want:   []models.AndGroup{group(entry("a", models.Eq(int64(1))), entry("b", models.Eq("x")))},
		},
		{
			name:   "and keyword",
			filter: "a||$eq||1||$and||b||$eq||x",
			want:   []models.AndGroup{group(entry("a", models.Eq(int64(1))), entry("b", models.Eq("x")))},
		},
		{
			name:   "mixed and spellings",
			filter: "a||$eq||1;b||$eq||2||$and||c||$eq||3",
			want: []models.AndGroup{group(
				entry("a", models.Eq(int64(1))),
				entry("b", models.Eq(int64(2))),
				entry("c", models.Eq(int64(3))),
			)},
		},
		{
			name:   "wrapped group",
			filter: "(a||$eq||1;b||$eq||2)",
			want:   []models.AndGroup{group(entry("a", models.Eq(int64(1))), entry("b", models.Eq(int64(2))))},
		},
		{
			name:   "group with inner or is distributed",
			filter: "a||$eq||1;(b||$eq||2||$or||c||$eq||3)",
			want: []models.AndGroup{
				group(entry("a", models.Eq(int64(1))), entry("b", models.Eq(int64(2)))),
				group(entry("a", models.Eq(int64(1))), entry("c", models.Eq(int64(3)))),
			},
		},
		{
			name:   "or between groups",
			filter: "(a||$eq||1;b||$eq||2)||$or||(c||$eq||3)",
			want: []models.AndGroup{
				group(entry("a", models.Eq(int64(1))), entry("b", models.Eq(int64(2)))),
				group(entry("c", models.Eq(int64(3)))),
			},
		},
		{
			name:   "repeated field coalesces",
			filter: "age||$gt||1;age||$lt||10",
			want: []models.AndGroup{group(
				entry("age", models.Cmp(models.KindGreaterThan, int64(1))),
				entry("age", models.Cmp(models.KindLessThan, int64(10))),
			)},
		},
		{
			name:   "nested field folds right",
			filter: "user#profile#city||$eq||Paris",
			want: []models.AndGroup{group(entry("user",
				models.Object{Key: "profile", Value: models.Object{Key: "city", Value: models.Eq("Paris")}},
			))},
		},
		{
			name:   "relation field kept verbatim",
			filter: "status.category.name||$cont||op",
			want:   []models.AndGroup{group(entry("status.category.name", models.Cmp(models.KindContains, "%op%")))},
		},
		{
			name:   "isnull without value",
			filter: "deletedAt||$isnull",
			want:   []models.AndGroup{group(entry("deletedAt", models.IsNull()))},
		},
		{
			name:   "negated isnull",
			filter: "deletedAt||!$isnull",
			want:   []models.AndGroup{group(entry("deletedAt", models.NotNull()))},
		},
		{
			name:   "value keeps lookup delimiter",
			filter: "note||$eq||a||b",
			want:   []models.AndGroup{group(entry("note", models.Eq("a||b")))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.filter)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.filter, diff)
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	for _, filter := range []string{"", "   ", "\t", "||$or||", ";;"} {
		got, _ := Parse(filter)
		assert.Nil(t, got, "%q", filter)
	}
}

func TestNegatedEqualityMatchesInequality(t *testing.T) {
	ne, err := Parse("name||$ne||John")
	require.NoError(t, err)
	notEq, err := Parse("name||!$eq||John")
	require.NoError(t, err)

	a := ne[0].Get("name")[0].(models.Comparison)
	b := notEq[0].Get("name")[0].(models.Comparison)
	assert.True(t, a.IsInequality())
	assert.True(t, b.IsInequality())
	assert.Equal(t, a.Operand, b.Operand)
	assert.NotEqual(t, a.Kind, b.Kind, "negation stays distinct from $ne")
}

func tokenErrors(t *testing.T, err error) []*lexer.TokenError {
	t.Helper()
	var merr *multierror.Error
	require.True(t, errors.As(err, &merr), "expected *multierror.Error, got %T", err)
	var out []*lexer.TokenError
	for _, e := range merr.Errors {
		var te *lexer.TokenError
		require.True(t, errors.As(e, &te))
		out = append(out, te)
	}
	return out
}

func TestParseWarnings(t *testing.T) {
	t.Run("malformed condition dropped", func(t *testing.T) {
		got, err := Parse("name;x||$eq||1")
		assert.Equal(t, []models.AndGroup{group(entry("x", models.Eq(int64(1))))}, got)
		warnings := tokenErrors(t, err)
		require.Len(t, warnings, 1)
		assert.Equal(t, 0, warnings[0].Position)
	})

	t.Run("empty field dropped", func(t *testing.T) {
		got, err := Parse("||$eq||1")
		assert.Nil(t, got)
		assert.Len(t, tokenErrors(t, err), 1)
	})

	t.Run("malformed between drops branch", func(t *testing.T) {
		got, err := Parse("a||$between||1||$or||b||$eq||2")
		assert.Equal(t, []models.AndGroup{group(entry("b", models.Eq(int64(2))))}, got)
		assert.Len(t, tokenErrors(t, err), 1)
	})

	t.Run("unknown operator suggests", func(t *testing.T) {
		got, err := Parse("a||$eqq||1")
		assert.Equal(t, []models.AndGroup{group(entry("a", models.Eq(int64(1))))}, got)
		warnings := tokenErrors(t, err)
		require.Len(t, warnings, 1)
		assert.Equal(t, "$eq", warnings[0].Suggestion)
		assert.Contains(t, warnings[0].Error(), "Did you mean '$eq'?")
	})

	t.Run("unbalanced group is literal", func(t *testing.T) {
		got, err := Parse("(a||$eq||1")
		assert.Equal(t, []models.AndGroup{group(entry("(a", models.Eq(int64(1))))}, got)
		assert.Len(t, tokenErrors(t, err), 1)
	})

	t.Run("positions point into the filter", func(t *testing.T) {
		_, err := Parse("a||$eq||1;bad")
		warnings := tokenErrors(t, err)
		require.Len(t, warnings, 1)
		assert.Equal(t, 10, warnings[0].Position)
		assert.Equal(t, "bad", warnings[0].Token)
	})
}

func TestParseCustomConfig(t *testing.T) {
	cfg, err := config.New(map[string]any{
		"lookupDelimiter":    "::",
		"conditionDelimiter": "&",
		"orKeyword":          "or",
		"nestedDelimiter":    "/",
		"notPrefix":          "~",
	})
	require.NoError(t, err)

	got, err := New(cfg).Parse("a::$eq::1&b/c::~$eq::x::or::d::$gt::2")
	require.NoError(t, err)

	want := []models.AndGroup{
		group(
			entry("a", models.Eq(int64(1))),
			entry("b", models.Object{Key: "c", Value: models.Eq("x").Not()}),
		),
		group(entry("d", models.Cmp(models.KindGreaterThan, int64(2)))),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestParseIsIdempotent(t *testing.T) {
	p := New(config.Default())
	filter := "a||$in||1,2;(b||$eq||x||$or||c#d||!$cont||y)"
	first, _ := p.Parse(filter)
	second, _ := p.Parse(filter)
	assert.Empty(t, cmp.Diff(first, second))
}

func TestParseCapsGroupExpansion(t *testing.T) {
	t.Run("default cap", func(t *testing.T) {
		got, err := Parse(strings.Repeat("(a||$eq||1||$or||b||$eq||2);", 30))
		require.Len(t, got, 256)
		assert.Len(t, got[0].Get("a"), 30)
		assert.Empty(t, got[0].Get("b"))

		warnings := tokenErrors(t, err)
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0].Message, "more than 256 groups")
	})

	cfg, err := config.New(map[string]any{"maxGroups": 4})
	require.NoError(t, err)
	p := New(cfg)

	t.Run("distribution keeps the first groups", func(t *testing.T) {
		got, err := p.Parse("(a||$eq||1||$or||b||$eq||2);(c||$eq||3||$or||d||$eq||4);(e||$eq||5||$or||f||$eq||6)")
		want := []models.AndGroup{
			group(entry("a", models.Eq(int64(1))), entry("c", models.Eq(int64(3))), entry("e", models.Eq(int64(5)))),
			group(entry("a", models.Eq(int64(1))), entry("c", models.Eq(int64(3))), entry("f", models.Eq(int64(6)))),
			group(entry("a", models.Eq(int64(1))), entry("d", models.Eq(int64(4))), entry("e", models.Eq(int64(5)))),
			group(entry("a", models.Eq(int64(1))), entry("d", models.Eq(int64(4))), entry("f", models.Eq(int64(6)))),
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
		assert.Len(t, tokenErrors(t, err), 1)
	})

	t.Run("plain or branches", func(t *testing.T) {
		got, err := p.Parse("a||$eq||1||$or||b||$eq||2||$or||c||$eq||3||$or||d||$eq||4||$or||e||$eq||5")
		assert.Len(t, got, 4)
		assert.Len(t, tokenErrors(t, err), 1)
	})

	t.Run("at the cap", func(t *testing.T) {
		got, err := p.Parse("(a||$eq||1||$or||b||$eq||2);(c||$eq||3||$or||d||$eq||4)")
		assert.Len(t, got, 4)
		assert.NoError(t, err)
	})
}
