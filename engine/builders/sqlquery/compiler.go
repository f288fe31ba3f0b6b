package sqlquery

import (
	"fmt"
	"regexp"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/hashicorp/go-multierror"

	"github.com/omniql-engine/crudql/engine/config"
	"github.com/omniql-engine/crudql/engine/models"
	"github.com/omniql-engine/crudql/engine/parser"
	"github.com/omniql-engine/crudql/mapping"
)

// FilterCompiler parses filters and applies one AND-group to a bracketed
// predicate builder. The Assembler depends only on this interface.
type FilterCompiler interface {
	Parse(filter string) ([]models.AndGroup, error)
	ApplyToBuilder(group models.AndGroup, wb WhereBuilder, scope *Scope) error
}

var (
	identifier  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	jsonKey     = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	paramUnsafe = regexp.MustCompile(`[^A-Za-z0-9_]`)
)

// ============================================================================
// SCOPE - Join/alias state of one assembly
// ============================================================================

// Scope tracks joins, selected columns and parameter names for a single
// BuildAdvanced call. Every path resolves to the same alias for the life of
// the scope: "status.category" joins under "{root}__status__category".
type Scope struct {
	cfg     *config.Config
	dialect string
	alias   string
	qb      QueryBuilder

	joined   map[string]string
	inner    map[string]bool
	selected map[string]bool
	wildcard map[string]bool
	params   int
}

// NewScope creates an empty scope for root alias on qb.
func NewScope(cfg *config.Config, dialect, alias string, qb QueryBuilder) *Scope {
	return &Scope{
		cfg:      cfg,
		dialect:  dialect,
		alias:    alias,
		qb:       qb,
		joined:   map[string]string{},
		inner:    map[string]bool{},
		selected: map[string]bool{},
		wildcard: map[string]bool{},
	}
}

// Alias returns the root alias.
func (s *Scope) Alias() string { return s.alias }

// Dialect returns the database the predicates are written for.
func (s *Scope) Dialect() string { return s.dialect }

func (s *Scope) relationDelimiter() string { return s.cfg.Token(mapping.OptRelationDelimiter) }

// Require marks path and its parents to be joined with INNER JOIN.
func (s *Scope) Require(path string) {
	parts := strings.Split(path, s.relationDelimiter())
	for i := range parts {
		s.inner[strings.Join(parts[:i+1], s.relationDelimiter())] = true
	}
}

// Join joins every level of a relation path not joined yet and returns the
// alias of the last level.
func (s *Scope) Join(path string) (string, error) {
	delim := s.relationDelimiter()
	parts := strings.Split(path, delim)

	parentAlias := s.alias
	for i, part := range parts {
		if !identifier.MatchString(part) {
			return "", fmt.Errorf("invalid relation %q in %q", part, path)
		}
		prefix := strings.Join(parts[:i+1], delim)
		if a, ok := s.joined[prefix]; ok {
			parentAlias = a
			continue
		}
		childAlias := parentAlias + "__" + part
		property := parentAlias + "." + part
		if s.inner[prefix] {
			s.qb.InnerJoin(property, childAlias)
		} else {
			s.qb.LeftJoin(property, childAlias)
		}
		s.joined[prefix] = childAlias
		parentAlias = childAlias
	}
	return parentAlias, nil
}

// Column resolves a plain or relation-qualified field to "alias.column",
// joining relations as needed. It also returns the projection alias used
// for relation columns, "{relationAlias}_{column}".
func (s *Scope) Column(field string) (expr, as string, err error) {
	parts := strings.Split(field, s.relationDelimiter())
	column := parts[len(parts)-1]
	if !identifier.MatchString(column) {
		return "", "", fmt.Errorf("invalid column %q", field)
	}
	if len(parts) == 1 {
		return s.alias + "." + column, "", nil
	}

	relAlias, err := s.Join(strings.Join(parts[:len(parts)-1], s.relationDelimiter()))
	if err != nil {
		return "", "", err
	}
	return relAlias + "." + column, relAlias + "_" + column, nil
}

// Field resolves field like Column and additionally follows a nested path
// ("meta#address#city") into the JSON column.
func (s *Scope) Field(field string) (expr, as string, err error) {
	nested := s.cfg.Token(mapping.OptNestedDelimiter)
	if nested == "" || !strings.Contains(field, nested) {
		return s.Column(field)
	}
	segments := strings.Split(field, nested)
	expr, _, err = s.Column(segments[0])
	if err != nil {
		return "", "", err
	}
	expr, err = JSONPath(s.dialect, expr, segments[1:])
	if err != nil {
		return "", "", err
	}
	return expr, paramUnsafe.ReplaceAllString(field, "_"), nil
}

// Param returns a parameter name unique within the scope.
func (s *Scope) Param(field string) string {
	name := fmt.Sprintf("%s_%d", paramUnsafe.ReplaceAllString(field, "_"), s.params)
	s.params++
	return name
}

// Select adds a column to the projection once. The first column replaces the
// builder's default projection.
func (s *Scope) Select(expr, as string) {
	if s.selected[expr] {
		return
	}
	if len(s.selected) == 0 {
		s.qb.Select(expr, as)
	} else {
		s.qb.AddSelect(expr, as)
	}
	s.selected[expr] = true
}

// Selected reports whether expr is already projected.
func (s *Scope) Selected(expr string) bool { return s.selected[expr] }

// JSONPath renders the SQL expression reading keys inside JSON column.
func JSONPath(dialect, column string, keys []string) (string, error) {
	if len(keys) == 0 {
		return column, nil
	}
	for _, k := range keys {
		if !jsonKey.MatchString(k) {
			return "", fmt.Errorf("invalid nested key %q", k)
		}
	}
	switch dialect {
	case "PostgreSQL":
		var sb strings.Builder
		sb.WriteString(column)
		for i, k := range keys {
			if i == len(keys)-1 {
				sb.WriteString("->>'" + k + "'")
			} else {
				sb.WriteString("->'" + k + "'")
			}
		}
		return sb.String(), nil
	case "MySQL":
		return fmt.Sprintf("JSON_UNQUOTE(JSON_EXTRACT(%s, '$.%s'))", column, strings.Join(keys, ".")), nil
	default:
		return fmt.Sprintf("json_extract(%s, '$.%s')", column, strings.Join(keys, ".")), nil
	}
}

// ============================================================================
// COMPILER
// ============================================================================

// Compiler is the FilterCompiler emitting named-parameter predicates.
type Compiler struct {
	cfg    *config.Config
	parser *parser.Parser
}

// NewCompiler creates a compiler using p for parsing. A nil p parses with cfg.
func NewCompiler(cfg *config.Config, p *parser.Parser) *Compiler {
	if cfg == nil {
		cfg = config.Default()
	}
	if p == nil {
		p = parser.New(cfg)
	}
	return &Compiler{cfg: cfg, parser: p}
}

// Parse implements FilterCompiler.
func (c *Compiler) Parse(filter string) ([]models.AndGroup, error) {
	return c.parser.Parse(filter)
}

// ApplyToBuilder implements FilterCompiler. Each criterion becomes one
// conjunct: the first through Where, the rest through AndWhere. A criterion
// addressing an invalid field is skipped and reported.
func (c *Compiler) ApplyToBuilder(group models.AndGroup, wb WhereBuilder, scope *Scope) error {
	var errs *multierror.Error
	applied := 0
	for _, e := range group.Entries() {
		pred, err := c.Predicate(e.Field, e.Value, scope)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		if applied == 0 {
			wb.Where(pred)
		} else {
			wb.AndWhere(pred)
		}
		applied++
	}
	return errs.ErrorOrNil()
}

// Predicate compiles one criterion. Negated equality and $ne both yield
// "column <> :param".
func (c *Compiler) Predicate(field string, v models.Value, scope *Scope) (sq.Sqlizer, error) {
	var column string
	var cmp models.Comparison

	switch n := v.(type) {
	case models.Comparison:
		expr, _, err := scope.Column(field)
		if err != nil {
			return nil, err
		}
		column, cmp = expr, n
	case models.Object:
		keys, inner := n.Path()
		expr, _, err := scope.Column(field)
		if err != nil {
			return nil, err
		}
		if column, err = JSONPath(scope.Dialect(), expr, keys); err != nil {
			return nil, err
		}
		cmp = inner
	default:
		return nil, fmt.Errorf("field %q: unsupported criterion %T", field, v)
	}

	category := mapping.GetOperatorCategory(cmp.Kind)
	if category == "NULLCHECK" && cmp.Negated {
		cmp.Negated = false
		cmp = cmp.Not()
	}
	op := mapping.SQLOperator(scope.Dialect(), cmp)
	if op == "" {
		return nil, fmt.Errorf("field %q: no operator for %s", field, cmp.Kind)
	}
	name := scope.Param(field)

	switch category {
	case "NULLCHECK":
		return models.NewPredicate(column+" "+op, nil), nil
	case "MULTI_VALUE":
		return models.NewPredicate(
			fmt.Sprintf("%s %s (:...%s)", column, op, name),
			map[string]any{name: cmp.Operands},
		), nil
	case "RANGE":
		if len(cmp.Operands) != 2 {
			return nil, fmt.Errorf("field %q: between needs two bounds, got %d", field, len(cmp.Operands))
		}
		return models.NewPredicate(
			fmt.Sprintf("%s %s :%s_start AND :%s_end", column, op, name, name),
			map[string]any{name + "_start": cmp.Operands[0], name + "_end": cmp.Operands[1]},
		), nil
	}
	return models.NewPredicate(
		fmt.Sprintf("%s %s :%s", column, op, name),
		map[string]any{name: cmp.Operand},
	), nil
}
