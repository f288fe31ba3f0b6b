package reverse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/omniql-engine/crudql/engine/config"
	"github.com/omniql-engine/crudql/engine/models"
	"github.com/omniql-engine/crudql/mapping"
)

// ============================================================================
// REVERSE MAPS
// ============================================================================

// comparisonOptions maps SQL comparison operators to operator option names.
var comparisonOptions = map[string]string{
	"=":  mapping.OptEq,
	"<>": mapping.OptNe,
	"!=": mapping.OptNe,
	">":  mapping.OptGt,
	">=": mapping.OptGte,
	"<":  mapping.OptLt,
	"<=": mapping.OptLte,
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ============================================================================
// TERMS - Predicates in disjunctive normal form
// ============================================================================

// term is one predicate. op is an operator option name such as mapping.OptGt.
type term struct {
	field   string
	op      string
	values  []string
	negated bool
}

// dnf is an OR of AND-ed terms.
type dnf [][]term

func single(t term) dnf { return dnf{{t}} }

// or concatenates the alternatives of a and b.
func (c *Converter) or(a, b dnf) (dnf, error) {
	if len(a)+len(b) > c.cfg.MaxGroups() {
		return nil, c.tooManyGroups()
	}
	return append(append(dnf{}, a...), b...), nil
}

// and distributes a over b. Expansions past the configured group cap are
// rejected, never truncated.
func (c *Converter) and(a, b dnf) (dnf, error) {
	if len(a) == 0 {
		return b, nil
	}
	if len(b) == 0 {
		return a, nil
	}
	if len(a)*len(b) > c.cfg.MaxGroups() {
		return nil, c.tooManyGroups()
	}
	out := make(dnf, 0, len(a)*len(b))
	for _, x := range a {
		for _, y := range b {
			group := append(append([]term{}, x...), y...)
			out = append(out, group)
		}
	}
	return out, nil
}

func (c *Converter) tooManyGroups() error {
	return fmt.Errorf("%w: WHERE expands to more than %d filter groups", ErrNotSupported, c.cfg.MaxGroups())
}

// not negates a single predicate. Negated compound expressions have no
// representation in the filter grammar.
func not(d dnf) (dnf, error) {
	if len(d) != 1 || len(d[0]) != 1 {
		return nil, fmt.Errorf("%w: NOT over a compound condition", ErrNotSupported)
	}
	t := d[0][0]
	t.negated = !t.negated
	return single(t), nil
}

// likeTerm maps a LIKE pattern onto $eq, $cont, $starts or $ends.
func likeTerm(field, pattern string, negated bool) (term, error) {
	t := term{field: field, negated: negated}
	inner := pattern
	lead := strings.HasPrefix(inner, "%")
	inner = strings.TrimPrefix(inner, "%")
	trail := strings.HasSuffix(inner, "%")
	inner = strings.TrimSuffix(inner, "%")
	if strings.ContainsAny(inner, "%_") {
		return t, fmt.Errorf("%w: LIKE pattern %q", ErrNotSupported, pattern)
	}
	switch {
	case lead && trail:
		t.op = mapping.OptCont
	case trail:
		t.op = mapping.OptStarts
	case lead:
		t.op = mapping.OptEnds
	default:
		t.op = mapping.OptEq
	}
	t.values = []string{inner}
	return t, nil
}

// ============================================================================
// STATEMENT - Dialect independent SELECT
// ============================================================================

type join struct {
	path  string
	inner bool
}

type order struct {
	field string
	desc  bool
	nulls models.NullsPosition
}

// statement collects the parts of a SELECT that map onto request parameters.
type statement struct {
	table   string
	columns []string
	joins   []join
	where   dnf
	groupBy []string
	having  dnf
	order   []order
	limit   *int
	offset  *int
}

// scope resolves table qualifiers to relation paths. The root table maps to
// the empty path.
type scope struct {
	relDelim string
	root     string
	paths    map[string]string
}

func newScope(cfg *config.Config, table, alias string) *scope {
	s := &scope{relDelim: cfg.Token(mapping.OptRelationDelimiter), paths: map[string]string{table: ""}}
	s.root = table
	if alias != "" {
		s.root = alias
		s.paths[alias] = ""
	}
	return s
}

// relation registers a joined table and returns its relation path. Aliases of
// the form "{root}__{a}__{b}" give the path "a.b"; otherwise the singular
// table name is used.
func (s *scope) relation(table, alias string) string {
	path := inflection.Singular(strings.ToLower(table))
	if rest, ok := strings.CutPrefix(alias, s.root+"__"); ok && rest != "" {
		path = strings.Join(strings.Split(rest, "__"), s.relDelim)
	}
	s.paths[table] = path
	if alias != "" {
		s.paths[alias] = path
	}
	return path
}

// field converts a possibly qualified column to a field path.
func (s *scope) field(qualifier, column string) (string, error) {
	if !identifier.MatchString(column) {
		return "", fmt.Errorf("%w: column %q", ErrNotSupported, column)
	}
	if qualifier == "" {
		return column, nil
	}
	path, ok := s.paths[qualifier]
	if !ok {
		return "", fmt.Errorf("%w: unknown table reference %q", ErrNotSupported, qualifier)
	}
	if path == "" {
		return column, nil
	}
	return path + s.relDelim + column, nil
}

// ============================================================================
// RENDERING
// ============================================================================

func (c *Converter) params(st *statement) (models.Params, error) {
	cfg := c.cfg
	valueDelim := cfg.Token(mapping.OptValueDelimiter)
	condDelim := cfg.Token(mapping.OptConditionDelimiter)
	var p models.Params

	p.Select = strings.Join(st.columns, valueDelim)

	var joins []string
	seen := map[string]bool{}
	for _, j := range st.joins {
		if seen[j.path] {
			continue
		}
		seen[j.path] = true
		if j.inner {
			joins = append(joins, cfg.Token(mapping.OptInnerJoinPrefix)+j.path)
		} else {
			joins = append(joins, j.path)
		}
	}
	p.Join = strings.Join(joins, valueDelim)

	var err error
	if p.Filter, err = c.filter(st.where); err != nil {
		return p, err
	}
	p.Group = strings.Join(st.groupBy, valueDelim)
	if p.Having, err = c.filter(st.having); err != nil {
		return p, err
	}

	var sorts []string
	for _, o := range st.order {
		clause := o.field + valueDelim + string(models.Ascending)
		if o.desc {
			clause = o.field + valueDelim + string(models.Descending)
		}
		if o.nulls != "" {
			clause += valueDelim + string(o.nulls)
		}
		sorts = append(sorts, clause)
	}
	p.Sort = strings.Join(sorts, condDelim)

	switch {
	case st.limit != nil:
		limit := *st.limit
		p.Limit = strconv.Itoa(limit)
		if st.offset != nil && *st.offset > 0 {
			if limit <= 0 || *st.offset%limit != 0 {
				return p, fmt.Errorf("%w: OFFSET %d is not a page boundary of LIMIT %d", ErrNotSupported, *st.offset, limit)
			}
			p.Page = strconv.Itoa(*st.offset/limit + 1)
		}
	case st.offset != nil && *st.offset > 0:
		return p, fmt.Errorf("%w: OFFSET without LIMIT", ErrNotSupported)
	}
	return p, nil
}

// filter renders d in the filter grammar: groups joined by the OR separator
// and terms by the condition delimiter.
func (c *Converter) filter(d dnf) (string, error) {
	groups := make([]string, 0, len(d))
	for _, g := range d {
		conds := make([]string, 0, len(g))
		for _, t := range g {
			s, err := c.render(t)
			if err != nil {
				return "", err
			}
			conds = append(conds, s)
		}
		groups = append(groups, strings.Join(conds, c.cfg.Token(mapping.OptConditionDelimiter)))
	}
	return strings.Join(groups, c.cfg.OrSeparator()), nil
}

func (c *Converter) render(t term) (string, error) {
	cfg := c.cfg
	lookup := cfg.Token(mapping.OptLookupDelimiter)
	valueDelim := cfg.Token(mapping.OptValueDelimiter)

	var sb strings.Builder
	sb.WriteString(t.field)
	sb.WriteString(lookup)
	if t.negated {
		sb.WriteString(cfg.Token(mapping.OptNotPrefix))
	}
	sb.WriteString(cfg.Token(t.op))
	if t.op == mapping.OptIsNull {
		return sb.String(), nil
	}

	reserved := []string{lookup, cfg.Token(mapping.OptConditionDelimiter)}
	if len(t.values) > 1 || t.op == mapping.OptIn {
		reserved = append(reserved, valueDelim)
	}
	for _, v := range t.values {
		for _, r := range reserved {
			if r != "" && strings.Contains(v, r) {
				return "", fmt.Errorf("%w: value %q contains %q", ErrNotSupported, v, r)
			}
		}
	}
	sb.WriteString(lookup)
	sb.WriteString(strings.Join(t.values, valueDelim))
	return sb.String(), nil
}
