// Package crudql turns URL query-string parameters into database queries.
//
// The simple path returns a plain descriptor (select, relations, where,
// order, skip, take, cache) for data layers that accept whole-object
// criteria. The advanced path drives a SQL query builder with aliased
// joins and parameterised predicates. Translate covers both and routes to
// PostgreSQL, MySQL, SQLite, MongoDB or Redis.
package crudql

import (
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/omniql-engine/crudql/engine/builders/descriptor"
	"github.com/omniql-engine/crudql/engine/builders/sqlquery"
	"github.com/omniql-engine/crudql/engine/config"
	"github.com/omniql-engine/crudql/engine/models"
	"github.com/omniql-engine/crudql/engine/schema"
	"github.com/omniql-engine/crudql/engine/translator"
	"github.com/omniql-engine/crudql/mapping"
)

// ============================================================================
// ENGINE
// ============================================================================

// Engine bundles a configuration, an entity schema and a logger. It holds
// no per-request state and is safe for concurrent use.
type Engine struct {
	cfg        *config.Config
	schema     *schema.Registry
	logger     *slog.Logger
	validate   bool
	tenant     string
	descriptor *descriptor.Builder
	translator *translator.Translator
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig replaces the default delimiters and limits.
func WithConfig(cfg *config.Config) Option {
	return func(e *Engine) {
		if cfg != nil {
			e.cfg = cfg
		}
	}
}

// WithSchema supplies entity tables, columns and relations.
func WithSchema(r *schema.Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.schema = r
		}
	}
}

// WithLogger sets the logger that reports dropped input.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithValidation parses generated SQL before returning it.
func WithValidation(on bool) Option {
	return func(e *Engine) { e.validate = on }
}

// WithTenant prefixes Redis key patterns with "tenant:{id}:".
func WithTenant(id string) Option {
	return func(e *Engine) { e.tenant = id }
}

// New creates an engine with the default configuration unless overridden.
func New(opts ...Option) *Engine {
	e := &Engine{
		cfg:    config.Default(),
		schema: schema.NewRegistry(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.descriptor = descriptor.New(e.cfg, descriptor.WithLogger(e.logger))
	e.translator = translator.New(e.cfg,
		translator.WithLogger(e.logger),
		translator.WithSchema(e.schema),
		translator.WithValidation(e.validate),
		translator.WithTenant(e.tenant),
	)
	return e
}

// Config returns the engine configuration.
func (e *Engine) Config() *config.Config { return e.cfg }

// Schema returns the entity registry.
func (e *Engine) Schema() *schema.Registry { return e.schema }

// Build returns the descriptor of params. A non-nil error lists dropped
// input; the descriptor is usable either way.
func (e *Engine) Build(params models.Params) (*models.Descriptor, error) {
	return e.descriptor.Build(params)
}

// BuildAdvanced drives qb for entity aliased as alias.
func (e *Engine) BuildAdvanced(dbType string, params models.Params, alias string, qb sqlquery.QueryBuilder) error {
	asm := sqlquery.NewAssembler(e.cfg, e.schema,
		sqlquery.WithDialect(dbType),
		sqlquery.WithLogger(e.logger),
	)
	return asm.BuildAdvanced(params, alias, qb)
}

// Translate renders params for entity in the query shape of dbType.
func (e *Engine) Translate(dbType, entity string, params models.Params) (*translator.Translation, error) {
	return e.translator.Translate(dbType, entity, params)
}

// ============================================================================
// PARAMETER BAG
// ============================================================================

// ParseValues collects the known parameters of values. Repeated
// occurrences are joined with the parameter's joiner, so "filter" values
// are OR-ed and "select" values are concatenated.
func (e *Engine) ParseValues(values url.Values) models.Params {
	get := func(name string) string {
		return e.joinParam(name, values[name])
	}
	return models.Params{
		Select: get(mapping.ParamSelect),
		Join:   get(mapping.ParamJoin),
		Sort:   get(mapping.ParamSort),
		Cache:  get(mapping.ParamCache),
		Limit:  get(mapping.ParamLimit),
		Page:   get(mapping.ParamPage),
		Filter: get(mapping.ParamFilter),
		Group:  get(mapping.ParamGroup),
		Having: get(mapping.ParamHaving),
	}
}

// ParseQuery parses a raw query string such as "select=id&filter=a||$eq||1".
func (e *Engine) ParseQuery(rawQuery string) (models.Params, error) {
	values, err := url.ParseQuery(strings.TrimPrefix(rawQuery, "?"))
	if err != nil {
		return models.Params{}, err
	}
	return e.ParseValues(values), nil
}

func (e *Engine) joinParam(name string, raw []string) string {
	var parts []string
	for _, v := range raw {
		if strings.TrimSpace(v) != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return ""
	}

	def := mapping.QueryParams[name]
	switch def.Joiner {
	case "":
		// Scalar parameters keep the first value.
		return parts[0]
	case mapping.OptOrKeyword:
		return strings.Join(parts, e.cfg.OrSeparator())
	default:
		return strings.Join(parts, e.cfg.Token(def.Joiner))
	}
}

// ============================================================================
// PACKAGE SHORTCUTS
// ============================================================================

var defaultEngine = New()

// Build returns the descriptor of params using the default configuration.
func Build(params models.Params) (*models.Descriptor, error) {
	return defaultEngine.Build(params)
}

// ParseValues collects parameters using the default delimiters.
func ParseValues(values url.Values) models.Params {
	return defaultEngine.ParseValues(values)
}

// ParseQuery parses a raw query string using the default delimiters.
func ParseQuery(rawQuery string) (models.Params, error) {
	return defaultEngine.ParseQuery(rawQuery)
}
