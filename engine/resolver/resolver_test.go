package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omniql-engine/crudql/engine/config"
	"github.com/omniql-engine/crudql/engine/models"
)

func TestResolve(t *testing.T) {
	cfg := config.Default()

	tests := []struct {
		op   string
		raw  string
		want models.Comparison
	}{
		{"$eq", "mlad", models.Eq("mlad")},
		{"$eq", "42", models.Eq(int64(42))},
		{"$ne", "John", models.Ne("John")},
		{"$cont", "12", models.Cmp(models.KindContains, "%12%")},
		{"$starts", "ab", models.Cmp(models.KindStartsWith, "ab%")},
		{"$ends", "ab", models.Cmp(models.KindEndsWith, "%ab")},
		{"$isnull", "", models.IsNull()},
		{"$isnull", "ignored", models.IsNull()},
		{"$gt", "25", models.Cmp(models.KindGreaterThan, int64(25))},
		{"$gte", "2.5", models.Cmp(models.KindGreaterOrEqual, 2.5)},
		{"$lt", "2020-01-01", models.Cmp(models.KindLessThan, "2020-01-01")},
		{"$lte", "z", models.Cmp(models.KindLessOrEqual, "z")},
		{"$in", "1,2,3", models.In(int64(1), int64(2), int64(3))},
		{"$in", "a,2", models.In("a", int64(2))},
		{"$between", "1,10", models.Between(int64(1), int64(10))},
		{"$between", "2020-01-01,2020-12-31", models.Between("2020-01-01", "2020-12-31")},
	}

	for _, tt := range tests {
		t.Run(tt.op+" "+tt.raw, func(t *testing.T) {
			got, err := Resolve(cfg, tt.op, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveUnknownOperatorFallsBackToEquality(t *testing.T) {
	got, err := Resolve(config.Default(), "$eqq", "7")
	assert.ErrorIs(t, err, ErrUnknownOperator)
	assert.Equal(t, models.Eq(int64(7)), got)
}

func TestResolveMalformedBetween(t *testing.T) {
	for _, raw := range []string{"1", "1,2,3", ""} {
		_, err := Resolve(config.Default(), "$between", raw)
		assert.ErrorIs(t, err, ErrMalformedBetween, raw)
	}
}

func TestResolveCustomTokens(t *testing.T) {
	cfg, err := config.New(map[string]any{"in": "in", "valueDelimiter": "|"})
	require.NoError(t, err)

	got, err := Resolve(cfg, "in", "1|2")
	require.NoError(t, err)
	assert.Equal(t, models.In(int64(1), int64(2)), got)
}

func TestResolveCondition(t *testing.T) {
	cfg := config.Default()

	t.Run("negated equality", func(t *testing.T) {
		got, err := ResolveCondition(cfg, models.Condition{Field: "name", Operator: "$eq", RawValue: "John", Negated: true})
		require.NoError(t, err)
		assert.True(t, got.Negated)
		assert.True(t, got.IsInequality())
	})

	t.Run("negated isnull flips kind", func(t *testing.T) {
		got, err := ResolveCondition(cfg, models.Condition{Field: "deleted", Operator: "$isnull", Negated: true})
		require.NoError(t, err)
		assert.Equal(t, models.NotNull(), got)
	})

	t.Run("unknown operator keeps negation", func(t *testing.T) {
		got, err := ResolveCondition(cfg, models.Condition{Field: "a", Operator: "$nope", RawValue: "x", Negated: true})
		assert.ErrorIs(t, err, ErrUnknownOperator)
		assert.True(t, got.IsInequality())
	})
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		raw  string
		want any
	}{
		{"10", int64(10)},
		{"-3", int64(-3)},
		{"1.5", 1.5},
		{"1e3", 1000.0},
		{"abc", "abc"},
		{"", ""},
		{"   ", "   "},
		{"NaN", "NaN"},
		{"Inf", "Inf"},
		{"0x1F", "0x1F"},
		{"1_000", "1_000"},
		{"2024-02-29", "2024-02-29"},
		{"2024-02-29 10:11:12", "2024-02-29 10:11:12"},
		{"2024-02-29T10:11:12", "2024-02-29T10:11:12"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Coerce(tt.raw), tt.raw)
	}
}
