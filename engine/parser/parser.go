// Package parser reads the filter grammar into a disjunction of AND-groups.
//
//	filter    := branch ( "||$or||" branch )*
//	branch    := term ( ( ";" | "||$and||" ) term )*
//	term      := condition | "(" filter ")"
//	condition := field "||" ["!"] operator [ "||" value ]
//
// Every token is taken from the configuration. A parenthesized term that
// contains an OR is distributed over its branch, so the result is always a
// flat OR of ANDs.
package parser

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/omniql-engine/crudql/engine/config"
	"github.com/omniql-engine/crudql/engine/lexer"
	"github.com/omniql-engine/crudql/engine/models"
	"github.com/omniql-engine/crudql/engine/resolver"
	"github.com/omniql-engine/crudql/mapping"
)

// Parser parses filter strings with one configuration. It holds no state
// between calls.
type Parser struct {
	cfg    *config.Config
	logger *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger reports dropped input through l at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a parser. A nil cfg uses the defaults.
func New(cfg *config.Config, opts ...Option) *Parser {
	if cfg == nil {
		cfg = config.Default()
	}
	p := &Parser{
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse is the package-level entry point using the default configuration.
func Parse(filter string) ([]models.AndGroup, error) {
	return New(nil).Parse(filter)
}

// Parse returns the AND-groups of filter. Parsing is lenient: malformed
// conditions are dropped and the returned error, when not nil, is a
// *multierror.Error of *lexer.TokenError warnings describing what was
// dropped. The groups are valid either way. A filter without any usable
// condition returns nil groups.
func (p *Parser) Parse(filter string) ([]models.AndGroup, error) {
	conjunctions, err := p.ParseConditions(filter)

	var groups []models.AndGroup
	for _, conds := range conjunctions {
		var g models.AndGroup
		for _, rc := range conds {
			g = g.With(rc.key, rc.value)
		}
		if g.Len() > 0 {
			groups = append(groups, g)
		}
	}
	return groups, err
}

// ParseConditions returns the resolved conditions of every OR branch before
// they are folded into groups.
func (p *Parser) ParseConditions(filter string) ([][]Resolved, error) {
	r := &run{Parser: p, grouping: true}
	if strings.TrimSpace(filter) == "" {
		return nil, nil
	}

	open, close := p.cfg.Token(mapping.OptGroupOpen), p.cfg.Token(mapping.OptGroupClose)
	if !lexer.Balanced(filter, open, close) {
		r.grouping = false
		r.warn(lexer.NewTokenError(0, filter, "unbalanced group markers, treated as literal text"))
	}

	var out [][]Resolved
	for _, conds := range r.disjunction(filter, 0) {
		if len(conds) > 0 {
			out = append(out, conds)
		}
	}
	return out, r.warnings.ErrorOrNil()
}

// Resolved is one parsed condition in its group form: the top-level key and
// the criterion stored under it.
type Resolved struct {
	Condition models.Condition
	key       string
	value     models.Value
}

// Key is the AND-group key of the condition. For nested paths it is the
// outermost segment.
func (r Resolved) Key() string { return r.key }

// Value is the comparison, wrapped in objects for nested paths.
func (r Resolved) Value() models.Value { return r.value }

// ============================================================================
// PARSE RUN
// ============================================================================

type run struct {
	*Parser
	grouping  bool
	truncated bool
	warnings  *multierror.Error
}

func (r *run) warn(e *lexer.TokenError) {
	r.warnings = multierror.Append(r.warnings, e)
	r.logger.Debug("filter input dropped",
		"position", e.Position,
		"token", e.Token,
		"reason", e.Message,
	)
}

func (r *run) groupTokens() (string, string) {
	if !r.grouping {
		return "", ""
	}
	return r.cfg.Token(mapping.OptGroupOpen), r.cfg.Token(mapping.OptGroupClose)
}

// disjunction splits on the OR sequence and concatenates the expansion of
// every branch.
func (r *run) disjunction(text string, offset int) [][]Resolved {
	open, close := r.groupTokens()
	splitter := lexer.NewSplitter(open, close, r.cfg.OrSeparator())
	branches, _ := splitter.Split(text, offset)

	var out [][]Resolved
	for _, b := range branches {
		alts := r.conjunction(b.Text, b.Offset)
		if room := r.cfg.MaxGroups() - len(out); len(alts) > room {
			r.truncate(b.Offset, b.Text)
			alts = alts[:room]
		}
		out = append(out, alts...)
	}
	return out
}

// conjunction splits on either AND spelling. Plain conditions are added to
// every alternative; a group multiplies the alternatives by its branches.
func (r *run) conjunction(text string, offset int) [][]Resolved {
	open, close := r.groupTokens()
	splitter := lexer.NewSplitter(open, close,
		r.cfg.AndSeparator(), r.cfg.Token(mapping.OptConditionDelimiter))
	terms, _ := splitter.Split(text, offset)

	alternatives := [][]Resolved{nil}
	for _, term := range terms {
		if strings.TrimSpace(term.Text) == "" {
			continue
		}

		if inner, innerOffset, ok := lexer.Unwrap(term.Text, term.Offset, open, close); ok {
			sub := r.disjunction(inner, innerOffset)
			sub = nonEmpty(sub)
			if len(sub) == 0 {
				continue
			}
			alternatives = r.product(alternatives, sub, term)
			continue
		}

		rc, ok := r.condition(term.Text, term.Offset)
		if !ok {
			continue
		}
		for i := range alternatives {
			alternatives[i] = append(alternatives[i], rc)
		}
	}
	return alternatives
}

// product returns every alternative extended by every branch, in order. The
// result stops at the configured group cap.
func (r *run) product(alternatives, branches [][]Resolved, term lexer.Segment) [][]Resolved {
	limit := r.cfg.MaxGroups()
	size := len(alternatives) * len(branches)
	if size > limit {
		r.truncate(term.Offset, term.Text)
		size = limit
	}
	out := make([][]Resolved, 0, size)
	for _, a := range alternatives {
		for _, b := range branches {
			if len(out) == size {
				return out
			}
			next := make([]Resolved, 0, len(a)+len(b))
			next = append(next, a...)
			next = append(next, b...)
			out = append(out, next)
		}
	}
	return out
}

// truncate records once per parse that groups beyond the cap were dropped.
func (r *run) truncate(offset int, text string) {
	if r.truncated {
		return
	}
	r.truncated = true
	r.warn(lexer.NewTokenError(offset, text,
		fmt.Sprintf("filter expands to more than %d groups, extra groups dropped", r.cfg.MaxGroups())))
}

func nonEmpty(in [][]Resolved) [][]Resolved {
	out := in[:0:0]
	for _, conds := range in {
		if len(conds) > 0 {
			out = append(out, conds)
		}
	}
	return out
}

// ============================================================================
// CONDITION
// ============================================================================

func (r *run) condition(text string, offset int) (Resolved, bool) {
	lead := len(text) - len(strings.TrimLeft(text, " \t\r\n"))
	pos := offset + lead
	text = text[lead:]

	parts := strings.SplitN(text, r.cfg.Token(mapping.OptLookupDelimiter), 3)
	if len(parts) < 2 {
		r.warn(lexer.NewTokenError(pos, text, "condition needs a field and an operator"))
		return Resolved{}, false
	}

	cond := models.Condition{
		Field:    strings.TrimSpace(parts[0]),
		Operator: strings.TrimSpace(parts[1]),
		Position: pos,
	}
	if len(parts) == 3 {
		cond.RawValue = parts[2]
	}
	if cond.Field == "" {
		r.warn(lexer.NewTokenError(pos, text, "condition has an empty field"))
		return Resolved{}, false
	}
	if not := r.cfg.Token(mapping.OptNotPrefix); strings.HasPrefix(cond.Operator, not) {
		cond.Operator = strings.TrimPrefix(cond.Operator, not)
		cond.Negated = true
	}

	cmp, err := resolver.ResolveCondition(r.cfg, cond)
	switch {
	case errors.Is(err, resolver.ErrMalformedBetween):
		r.warn(lexer.NewTokenError(pos, cond.RawValue, err.Error()))
		return Resolved{}, false
	case errors.Is(err, resolver.ErrUnknownOperator):
		r.warn(lexer.NewUnknownOperatorError(pos, cond.Operator, r.cfg.OperatorTokens()))
	}

	key, value := r.nest(cond.Field, cmp)
	return Resolved{Condition: cond, key: key, value: value}, true
}

// nest folds a nested path from the right: "a#b#c" with c resolves to
// key "a" holding Object{b, Object{c, cmp}}.
func (r *run) nest(field string, cmp models.Comparison) (string, models.Value) {
	delim := r.cfg.Token(mapping.OptNestedDelimiter)
	if delim == "" || !strings.Contains(field, delim) {
		return field, cmp
	}
	segments := strings.Split(field, delim)
	var value models.Value = cmp
	for i := len(segments) - 1; i >= 1; i-- {
		value = models.Object{Key: segments[i], Value: value}
	}
	return segments[0], value
}
