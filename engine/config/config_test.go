package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omniql-engine/crudql/engine/models"
	"github.com/omniql-engine/crudql/mapping"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, mapping.DefaultOptions, cfg.Get())
	assert.Equal(t, "||$or||", cfg.OrSeparator())
	assert.Equal(t, "||$and||", cfg.AndSeparator())
	assert.Equal(t, 25, cfg.DefaultLimit())
	assert.Equal(t, 0, cfg.MaxLimit())
	assert.Equal(t, 256, cfg.MaxGroups())
	assert.Equal(t, 60*time.Second, cfg.CacheDuration())
}

func TestOverlayKeepsUnsetDefaults(t *testing.T) {
	cfg, err := New(map[string]any{
		mapping.OptLookupDelimiter: "::",
		mapping.OptDefaultLimit:    50,
		mapping.OptEq:              "eq",
		mapping.OptValueDelimiter:  "",
	})
	require.NoError(t, err)

	got := cfg.Get()
	assert.Equal(t, "::", got[mapping.OptLookupDelimiter])
	assert.Equal(t, "50", got[mapping.OptDefaultLimit])
	assert.Equal(t, ",", got[mapping.OptValueDelimiter], "empty override keeps default")
	assert.Equal(t, ".", got[mapping.OptRelationDelimiter])
	assert.Equal(t, "::$or::", cfg.OrSeparator())
	assert.Equal(t, 50, cfg.DefaultLimit())

	kind, ok := cfg.Operator("eq")
	assert.True(t, ok)
	assert.Equal(t, models.KindEqual, kind)
	_, ok = cfg.Operator("$eq")
	assert.False(t, ok)
}

func TestGetReturnsCopy(t *testing.T) {
	cfg := Default()
	m := cfg.Get()
	m[mapping.OptLookupDelimiter] = "mutated"
	assert.Equal(t, "||", cfg.Token(mapping.OptLookupDelimiter))
}

func TestInvalidOptions(t *testing.T) {
	tests := map[string]map[string]any{
		"unknown key":      {"bogus": "x"},
		"negative limit":   {mapping.OptDefaultLimit: "-1"},
		"zero limit":       {mapping.OptDefaultLimit: "0"},
		"non numeric":      {mapping.OptMaxLimit: "many"},
		"bad cache window": {mapping.OptCacheDuration: "soon"},
		"zero group cap":   {mapping.OptMaxGroups: 0},
	}
	for name, overrides := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := New(overrides)
			assert.Error(t, err)
		})
	}
}

func TestOperatorTokensCoverEveryOption(t *testing.T) {
	cfg := Default()
	assert.Len(t, cfg.OperatorTokens(), len(mapping.OperatorOptions))
	for name, kind := range mapping.OperatorOptions {
		got, ok := cfg.Operator(mapping.DefaultOptions[name])
		require.True(t, ok, name)
		assert.Equal(t, kind, got)
	}
}
