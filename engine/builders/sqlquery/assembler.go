package sqlquery

import (
	"io"
	"log/slog"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/omniql-engine/crudql/engine/builders/descriptor"
	"github.com/omniql-engine/crudql/engine/config"
	"github.com/omniql-engine/crudql/engine/lexer"
	"github.com/omniql-engine/crudql/engine/models"
	"github.com/omniql-engine/crudql/engine/parser"
	"github.com/omniql-engine/crudql/engine/schema"
	"github.com/omniql-engine/crudql/mapping"
)

// Assembler populates a QueryBuilder from request parameters. It is
// stateless; join and selection state lives in a Scope created per call.
type Assembler struct {
	cfg      *config.Config
	dialect  string
	columns  schema.ColumnLookup
	compiler FilterCompiler
	logger   *slog.Logger
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithLogger sets the logger used for dropped input.
func WithLogger(l *slog.Logger) Option {
	return func(a *Assembler) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithDialect selects the database the predicates are written for.
// Defaults to PostgreSQL.
func WithDialect(dbType string) Option {
	return func(a *Assembler) {
		if mapping.IsRelational(dbType) {
			a.dialect = dbType
		}
	}
}

// WithCompiler replaces the filter compiler.
func WithCompiler(c FilterCompiler) Option {
	return func(a *Assembler) {
		if c != nil {
			a.compiler = c
		}
	}
}

// NewAssembler creates an assembler. A nil cfg uses the defaults; nil
// columns resolve every wildcard to schema.DefaultColumns.
func NewAssembler(cfg *config.Config, columns schema.ColumnLookup, opts ...Option) *Assembler {
	if cfg == nil {
		cfg = config.Default()
	}
	if columns == nil {
		columns = schema.NewRegistry()
	}
	a := &Assembler{
		cfg:     cfg,
		dialect: "PostgreSQL",
		columns: columns,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.compiler == nil {
		a.compiler = NewCompiler(cfg, parser.New(cfg, parser.WithLogger(a.logger)))
	}
	return a
}

// Dialect returns the database the assembler writes predicates for.
func (a *Assembler) Dialect() string { return a.dialect }

// BuildAdvanced populates qb for params, using alias for the root entity.
// The alias also names the root entity when "*" is expanded.
//
// Assembly is lenient like parsing: invalid fields, sort clauses and
// pagination values are skipped, and the returned error, when not nil, is a
// *multierror.Error describing them. qb is usable either way.
func (a *Assembler) BuildAdvanced(params models.Params, alias string, qb QueryBuilder) error {
	var warnings *multierror.Error
	warn := func(err error) {
		if err != nil {
			warnings = multierror.Append(warnings, err)
		}
	}

	s := NewScope(a.cfg, a.dialect, alias, qb)
	valueDelim := a.cfg.Token(mapping.OptValueDelimiter)
	relDelim := a.cfg.Token(mapping.OptRelationDelimiter)
	wildcard := a.cfg.Token(mapping.OptWildcard)

	// ---- joins requested with the inner join prefix ----
	var joins []string
	innerPrefix := a.cfg.Token(mapping.OptInnerJoinPrefix)
	for _, path := range lexer.SplitList(params.Join, valueDelim) {
		if innerPrefix != "" && strings.HasPrefix(path, innerPrefix) {
			path = strings.TrimPrefix(path, innerPrefix)
			s.Require(path)
		}
		joins = append(joins, path)
	}

	// ---- select ----
	fields := lexer.SplitList(params.Select, valueDelim)
	rootWildcard := len(fields) == 0
	if rootWildcard {
		s.Select(alias+"."+wildcard, "")
	}
	for _, f := range fields {
		switch {
		case f == wildcard:
			rootWildcard = true
			for _, col := range a.columns.Columns(alias) {
				s.Select(alias+"."+col, "")
			}
		case strings.HasSuffix(f, relDelim+wildcard):
			warn(a.selectRelation(s, strings.TrimSuffix(f, relDelim+wildcard)))
		default:
			expr, as, err := s.Field(f)
			if err != nil {
				warn(err)
				continue
			}
			s.Select(expr, as)
		}
	}

	// ---- join ----
	for _, path := range joins {
		parts := strings.Split(path, relDelim)
		for i := range parts {
			warn(a.selectRelation(s, strings.Join(parts[:i+1], relDelim)))
		}
	}

	// ---- sort ----
	if params.Sort != "" {
		order, err := descriptor.ParseSort(a.cfg, params.Sort)
		warn(err)
		sorted := 0
		for _, o := range order {
			expr, as, err := s.Field(o.Field)
			if err != nil {
				warn(err)
				continue
			}
			if !a.covered(s, o.Field, expr, rootWildcard) {
				s.Select(expr, as)
			}
			if sorted == 0 {
				qb.OrderBy(expr, o.Direction, o.Nulls)
			} else {
				qb.AddOrderBy(expr, o.Direction, o.Nulls)
			}
			sorted++
		}
	}

	// ---- filter ----
	if strings.TrimSpace(params.Filter) != "" {
		for i, br := range a.brackets(params.Filter, s, warn) {
			if i == 0 {
				qb.Where(br)
			} else {
				qb.OrWhere(br)
			}
		}
	}

	// ---- group / having ----
	if groups := lexer.SplitList(params.Group, valueDelim); len(groups) > 0 {
		var exprs []string
		for _, g := range groups {
			expr, _, err := s.Field(g)
			if err != nil {
				warn(err)
				continue
			}
			exprs = append(exprs, expr)
		}
		if len(exprs) > 0 {
			qb.GroupBy(exprs...)
		}
	}
	if strings.TrimSpace(params.Having) != "" {
		brackets := a.brackets(params.Having, s, warn)
		switch len(brackets) {
		case 0:
		case 1:
			qb.Having(brackets[0])
		default:
			having := &Brackets{}
			for i, br := range brackets {
				if i == 0 {
					having.Where(br)
				} else {
					having.OrWhere(br)
				}
			}
			qb.Having(having)
		}
	}

	// ---- pagination / cache ----
	skip, take, err := descriptor.Paginate(a.cfg, params.Limit, params.Page)
	warn(err)
	if take != nil {
		qb.Take(*take)
	}
	if skip != nil {
		qb.Skip(*skip)
	}

	if params.Cache != "" {
		enabled, err := descriptor.ParseCache(params.Cache)
		warn(err)
		if enabled {
			qb.Cache(models.CacheOptions{Enabled: true, Duration: a.cfg.CacheDuration()})
		}
	}

	if err := warnings.ErrorOrNil(); err != nil {
		a.logger.Debug("advanced query partially assembled", "alias", alias, "error", err)
		return err
	}
	return nil
}

// selectRelation joins path and projects every column of its last level
// once, aliased "{relationAlias}_{column}".
func (a *Assembler) selectRelation(s *Scope, path string) error {
	relAlias, err := s.Join(path)
	if err != nil {
		return err
	}
	if s.wildcard[path] {
		return nil
	}
	s.wildcard[path] = true

	parts := strings.Split(path, a.cfg.Token(mapping.OptRelationDelimiter))
	for _, col := range a.columns.Columns(parts[len(parts)-1]) {
		s.Select(relAlias+"."+col, relAlias+"_"+col)
	}
	return nil
}

// covered reports whether a sort field is already part of the projection.
func (a *Assembler) covered(s *Scope, field, expr string, rootWildcard bool) bool {
	if s.Selected(expr) {
		return true
	}
	if strings.Contains(field, a.cfg.Token(mapping.OptNestedDelimiter)) {
		return false
	}
	relDelim := a.cfg.Token(mapping.OptRelationDelimiter)
	i := strings.LastIndex(field, relDelim)
	if i < 0 {
		return rootWildcard
	}
	return s.wildcard[field[:i]]
}

// brackets parses filter and compiles one bracket per AND-group. Groups left
// without any predicate are skipped.
func (a *Assembler) brackets(filter string, s *Scope, warn func(error)) []*Brackets {
	groups, err := a.compiler.Parse(filter)
	warn(err)

	var out []*Brackets
	for _, g := range groups {
		br := &Brackets{}
		warn(a.compiler.ApplyToBuilder(g, br, s))
		if br.Len() > 0 {
			out = append(out, br)
		}
	}
	return out
}
