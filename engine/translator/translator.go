// Package translator routes request parameters to the query shape of one
// database: SQL with arguments, a MongoDB filter or a Redis scan.
package translator

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/omniql-engine/crudql/engine/builders/descriptor"
	"github.com/omniql-engine/crudql/engine/builders/mongodb"
	"github.com/omniql-engine/crudql/engine/builders/redis"
	"github.com/omniql-engine/crudql/engine/config"
	"github.com/omniql-engine/crudql/engine/models"
	"github.com/omniql-engine/crudql/engine/schema"
	"github.com/omniql-engine/crudql/mapping"
)

// ErrUnsupportedDatabase is returned for a database outside
// mapping.SupportedDatabases.
var ErrUnsupportedDatabase = errors.New("unsupported database type")

// Translation is the output for one database family. Exactly one of
// Relational, Document and KeyValue is set.
type Translation struct {
	DBType     string
	Entity     string
	Relational *RelationalQuery
	Document   *mongodb.Query
	KeyValue   *redis.Query
	Cache      models.CacheOptions

	// Warnings describes input that was dropped while translating. It is nil
	// or a *multierror.Error.
	Warnings error
}

// Translator holds the shared configuration of every translation.
type Translator struct {
	cfg      *config.Config
	schema   *schema.Registry
	validate bool
	tenant   string
	logger   *slog.Logger
	describe *descriptor.Builder
}

// Option configures a Translator.
type Option func(*Translator)

// WithLogger sets the logger for dropped input.
func WithLogger(l *slog.Logger) Option {
	return func(t *Translator) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithSchema supplies entity columns, tables and relations.
func WithSchema(r *schema.Registry) Option {
	return func(t *Translator) {
		if r != nil {
			t.schema = r
		}
	}
}

// WithValidation syntax-checks generated SQL for databases that have a
// validator.
func WithValidation(on bool) Option {
	return func(t *Translator) { t.validate = on }
}

// WithTenant scopes Redis key patterns to "tenant:{id}:".
func WithTenant(id string) Option {
	return func(t *Translator) { t.tenant = id }
}

// New creates a translator. A nil cfg uses the defaults.
func New(cfg *config.Config, opts ...Option) *Translator {
	if cfg == nil {
		cfg = config.Default()
	}
	t := &Translator{
		cfg:    cfg,
		schema: schema.NewRegistry(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.describe = descriptor.New(cfg, descriptor.WithLogger(t.logger))
	return t
}

// Config returns the configuration translations are built with.
func (t *Translator) Config() *config.Config { return t.cfg }

// Schema returns the entity registry.
func (t *Translator) Schema() *schema.Registry { return t.schema }

// Translate routes params for entity to the translator of dbType.
func (t *Translator) Translate(dbType, entity string, params models.Params) (*Translation, error) {
	if !mapping.IsSupportedDatabase(dbType) {
		return nil, fmt.Errorf("%w: %s (supported: %v)", ErrUnsupportedDatabase, dbType, mapping.SupportedDatabases)
	}

	switch mapping.DatabaseFamilies[dbType] {
	case "RELATIONAL":
		return t.translateRelational(dbType, entity, params)
	case "DOCUMENT":
		return t.translateDocument(dbType, entity, params)
	case "KEYVALUE":
		return t.translateKeyValue(dbType, entity, params)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDatabase, dbType)
	}
}

// cacheOptions applies the configured window to a descriptor's cache flag.
func (t *Translator) cacheOptions(desc *models.Descriptor) models.CacheOptions {
	if desc == nil || desc.Cache == nil || !*desc.Cache {
		return models.CacheOptions{}
	}
	return models.CacheOptions{Enabled: true, Duration: t.cfg.CacheDuration()}
}
