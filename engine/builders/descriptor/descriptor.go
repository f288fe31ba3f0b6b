// Package descriptor builds the plain query descriptor handed to data layers
// that take whole-object filter criteria.
package descriptor

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/omniql-engine/crudql/engine/config"
	"github.com/omniql-engine/crudql/engine/lexer"
	"github.com/omniql-engine/crudql/engine/models"
	"github.com/omniql-engine/crudql/engine/parser"
	"github.com/omniql-engine/crudql/mapping"
)

// Builder turns request parameters into a Descriptor.
type Builder struct {
	cfg    *config.Config
	parser *parser.Parser
	logger *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger used for dropped parameters and filter input.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// New creates a builder. A nil cfg uses the defaults.
func New(cfg *config.Config, opts ...Option) *Builder {
	if cfg == nil {
		cfg = config.Default()
	}
	b := &Builder{
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.parser = parser.New(cfg, parser.WithLogger(b.logger))
	return b
}

// Build returns the descriptor of params. Empty parameters contribute
// nothing; an all-empty bag gives an empty descriptor. The error, when not
// nil, is a *multierror.Error listing input that was dropped; the
// descriptor is usable either way.
func (b *Builder) Build(params models.Params) (*models.Descriptor, error) {
	var warnings *multierror.Error
	d := &models.Descriptor{}

	if params.Select != "" {
		if fields := lexer.SplitList(params.Select, b.cfg.Token(mapping.OptValueDelimiter)); len(fields) > 0 {
			d.Select = make(map[string]bool, len(fields))
			for _, f := range fields {
				d.Select[f] = true
			}
		}
	}

	if params.Join != "" {
		d.Relations = lexer.SplitList(params.Join, b.cfg.Token(mapping.OptValueDelimiter))
	}

	if params.Sort != "" {
		order, err := ParseSort(b.cfg, params.Sort)
		if err != nil {
			warnings = multierror.Append(warnings, err)
		}
		d.Order = order
	}

	if params.Cache != "" {
		cache, err := ParseCache(params.Cache)
		if err != nil {
			warnings = multierror.Append(warnings, err)
		} else {
			d.Cache = &cache
		}
	}

	skip, take, err := Paginate(b.cfg, params.Limit, params.Page)
	if err != nil {
		warnings = multierror.Append(warnings, err)
	}
	d.Skip, d.Take = skip, take

	if strings.TrimSpace(params.Filter) != "" {
		where, err := b.parser.Parse(params.Filter)
		if err != nil {
			warnings = multierror.Append(warnings, err)
		}
		d.Where = where
	}

	if err := warnings.ErrorOrNil(); err != nil {
		b.logger.Debug("query parameters partially dropped", "error", err)
		return d, err
	}
	return d, nil
}

// ============================================================================
// PARAMETER READERS - shared with the SQL assembler
// ============================================================================

// ParseSort reads "field[,direction[,nulls]]" clauses. A missing or unknown
// direction is ascending. A repeated field keeps its first position and the
// last clause's direction. Clauses with an empty field are skipped.
func ParseSort(cfg *config.Config, raw string) ([]models.Order, error) {
	var warnings *multierror.Error
	var order []models.Order
	index := map[string]int{}

	for _, clause := range strings.Split(raw, cfg.Token(mapping.OptConditionDelimiter)) {
		parts := strings.Split(clause, cfg.Token(mapping.OptValueDelimiter))
		field := strings.TrimSpace(parts[0])
		if field == "" {
			continue
		}

		o := models.Order{Field: field, Direction: models.Ascending}
		if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
			dir, ok := mapping.SortDirections[strings.ToUpper(strings.TrimSpace(parts[1]))]
			if ok {
				o.Direction = models.SortDirection(dir)
			} else {
				warnings = multierror.Append(warnings,
					fmt.Errorf("sort %q: unknown direction %q, using ASC", field, parts[1]))
			}
		}
		if len(parts) > 2 {
			if nulls := mapping.NormalizeNulls(parts[2]); nulls != "" {
				o.Nulls = models.NullsPosition(nulls)
			} else if strings.TrimSpace(parts[2]) != "" {
				warnings = multierror.Append(warnings,
					fmt.Errorf("sort %q: unknown nulls position %q", field, parts[2]))
			}
		}

		if i, seen := index[field]; seen {
			order[i] = o
			continue
		}
		index[field] = len(order)
		order = append(order, o)
	}
	return order, warnings.ErrorOrNil()
}

// ParseCache reads a case-insensitive "true" or "false".
func ParseCache(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, fmt.Errorf("invalid %s %q", mapping.ParamCache, raw)
}

// Paginate computes skip and take. limit alone sets take. page (1-based)
// sets skip = limit*(page-1) and take = limit, with the default limit when
// limit is absent. Values that are not positive integers are dropped with an
// error, so take is never 0. take is capped by the maxLimit option.
func Paginate(cfg *config.Config, limitRaw, pageRaw string) (skip, take *int, err error) {
	var warnings *multierror.Error

	limit, hasLimit := 0, false
	if strings.TrimSpace(limitRaw) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(limitRaw))
		if err != nil || n < 1 {
			warnings = multierror.Append(warnings, fmt.Errorf("invalid %s %q", mapping.ParamLimit, limitRaw))
		} else {
			limit, hasLimit = n, true
		}
	}
	if capped := cfg.MaxLimit(); capped > 0 && hasLimit && limit > capped {
		limit = capped
	}

	page, hasPage := 0, false
	if strings.TrimSpace(pageRaw) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(pageRaw))
		if err != nil || n < 1 {
			warnings = multierror.Append(warnings, fmt.Errorf("invalid %s %q", mapping.ParamPage, pageRaw))
		} else {
			page, hasPage = n, true
		}
	}

	if hasLimit {
		take = intPtr(limit)
	}
	if hasPage {
		if !hasLimit {
			limit = cfg.DefaultLimit()
			if capped := cfg.MaxLimit(); capped > 0 && limit > capped {
				limit = capped
			}
		}
		skip = intPtr(limit * (page - 1))
		take = intPtr(limit)
	}
	return skip, take, warnings.ErrorOrNil()
}

func intPtr(n int) *int { return &n }
