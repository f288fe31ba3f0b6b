package reverse

import (
	"fmt"
	"strconv"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v5"

	"github.com/omniql-engine/crudql/engine/models"
	"github.com/omniql-engine/crudql/mapping"
)

// ============================================================================
// ENTRY POINT
// ============================================================================

func (c *Converter) fromPostgreSQL(sql string) (*statement, error) {
	tree, err := pg_query.Parse(sql)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseError, err)
	}
	if len(tree.Stmts) == 0 {
		return nil, fmt.Errorf("%w: no statements", ErrParseError)
	}
	if len(tree.Stmts) > 1 {
		return nil, fmt.Errorf("%w: multiple statements", ErrNotSupported)
	}

	sel := tree.Stmts[0].Stmt.GetSelectStmt()
	if sel == nil {
		return nil, fmt.Errorf("%w: only SELECT can be reversed", ErrNotSupported)
	}
	if sel.Op != pg_query.SetOperation_SETOP_NONE {
		return nil, fmt.Errorf("%w: set operations", ErrNotSupported)
	}
	if sel.WithClause != nil || len(sel.DistinctClause) > 0 {
		return nil, fmt.Errorf("%w: WITH or DISTINCT", ErrNotSupported)
	}
	return c.convertSelect(sel)
}

// ============================================================================
// SELECT
// ============================================================================

func (c *Converter) convertSelect(stmt *pg_query.SelectStmt) (*statement, error) {
	if len(stmt.FromClause) != 1 {
		return nil, fmt.Errorf("%w: SELECT needs exactly one FROM item", ErrNotSupported)
	}

	st := &statement{}
	s, err := c.extractFromClause(stmt.FromClause[0], st)
	if err != nil {
		return nil, err
	}

	if st.columns, err = c.extractColumns(stmt.TargetList, s); err != nil {
		return nil, err
	}

	if stmt.WhereClause != nil {
		if st.where, err = c.nodeToConditions(stmt.WhereClause, s); err != nil {
			return nil, fmt.Errorf("WHERE: %w", err)
		}
	}

	for _, g := range stmt.GroupClause {
		field, err := c.nodeToField(g, s)
		if err != nil {
			return nil, fmt.Errorf("GROUP BY: %w", err)
		}
		st.groupBy = append(st.groupBy, field)
	}

	if stmt.HavingClause != nil {
		if st.having, err = c.nodeToConditions(stmt.HavingClause, s); err != nil {
			return nil, fmt.Errorf("HAVING: %w", err)
		}
	}

	for _, n := range stmt.SortClause {
		sb := n.GetSortBy()
		if sb == nil {
			continue
		}
		field, err := c.nodeToField(sb.Node, s)
		if err != nil {
			return nil, fmt.Errorf("ORDER BY: %w", err)
		}
		o := order{field: field, desc: sb.SortbyDir == pg_query.SortByDir_SORTBY_DESC}
		switch sb.SortbyNulls {
		case pg_query.SortByNulls_SORTBY_NULLS_FIRST:
			o.nulls = models.NullsFirst
		case pg_query.SortByNulls_SORTBY_NULLS_LAST:
			o.nulls = models.NullsLast
		}
		st.order = append(st.order, o)
	}

	if stmt.LimitCount != nil {
		limit, err := nodeToInt(stmt.LimitCount)
		if err != nil {
			return nil, fmt.Errorf("LIMIT: %w", err)
		}
		st.limit = limit
	}
	if stmt.LimitOffset != nil {
		offset, err := nodeToInt(stmt.LimitOffset)
		if err != nil {
			return nil, fmt.Errorf("OFFSET: %w", err)
		}
		st.offset = offset
	}
	return st, nil
}

// extractFromClause walks a left-deep join tree. The leftmost table is the
// root entity; every joined table becomes a relation.
func (c *Converter) extractFromClause(node *pg_query.Node, st *statement) (*scope, error) {
	if rv := node.GetRangeVar(); rv != nil {
		st.table = rv.Relname
		return newScope(c.cfg, rv.Relname, aliasName(rv)), nil
	}

	je := node.GetJoinExpr()
	if je == nil {
		return nil, fmt.Errorf("%w: unsupported FROM", ErrNotSupported)
	}
	s, err := c.extractFromClause(je.Larg, st)
	if err != nil {
		return nil, err
	}
	rv := je.Rarg.GetRangeVar()
	if rv == nil {
		return nil, fmt.Errorf("%w: join of a non-table", ErrNotSupported)
	}

	var inner bool
	switch je.Jointype {
	case pg_query.JoinType_JOIN_INNER:
		inner = true
	case pg_query.JoinType_JOIN_LEFT:
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotSupported, je.Jointype)
	}
	st.joins = append(st.joins, join{path: s.relation(rv.Relname, aliasName(rv)), inner: inner})
	return s, nil
}

func aliasName(rv *pg_query.RangeVar) string {
	if rv.Alias != nil {
		return rv.Alias.Aliasname
	}
	return ""
}

// extractColumns returns nil for "SELECT *". "rel.*" becomes a relation
// wildcard.
func (c *Converter) extractColumns(targets []*pg_query.Node, s *scope) ([]string, error) {
	var cols []string
	wildcard := c.cfg.Token(mapping.OptWildcard)
	for _, t := range targets {
		rt := t.GetResTarget()
		if rt == nil {
			continue
		}
		if ref := rt.Val.GetColumnRef(); ref != nil && len(ref.Fields) > 0 && ref.Fields[len(ref.Fields)-1].GetAStar() != nil {
			switch len(ref.Fields) {
			case 1:
				if len(targets) == 1 {
					return nil, nil
				}
				cols = append(cols, wildcard)
			case 2:
				q := ref.Fields[0].GetString_()
				if q == nil {
					return nil, fmt.Errorf("%w: select list", ErrNotSupported)
				}
				path, ok := s.paths[q.Sval]
				if !ok {
					return nil, fmt.Errorf("%w: unknown table reference %q", ErrNotSupported, q.Sval)
				}
				if path == "" {
					cols = append(cols, wildcard)
				} else {
					cols = append(cols, path+s.relDelim+wildcard)
				}
			default:
				return nil, fmt.Errorf("%w: select list", ErrNotSupported)
			}
			continue
		}
		field, err := c.nodeToField(rt.Val, s)
		if err != nil {
			return nil, fmt.Errorf("SELECT: %w", err)
		}
		cols = append(cols, field)
	}
	return cols, nil
}

// ============================================================================
// EXPRESSIONS
// ============================================================================

// nodeToField resolves a column reference. JSON navigation with -> and ->>
// becomes a nested path.
func (c *Converter) nodeToField(node *pg_query.Node, s *scope) (string, error) {
	switch {
	case node == nil:
	case node.GetColumnRef() != nil:
		var parts []string
		for _, f := range node.GetColumnRef().Fields {
			str := f.GetString_()
			if str == nil {
				return "", fmt.Errorf("%w: column reference", ErrNotSupported)
			}
			parts = append(parts, str.Sval)
		}
		switch len(parts) {
		case 1:
			return s.field("", parts[0])
		case 2:
			return s.field(parts[0], parts[1])
		}
	case node.GetTypeCast() != nil:
		return c.nodeToField(node.GetTypeCast().Arg, s)
	case node.GetAExpr() != nil:
		expr := node.GetAExpr()
		if op := operatorName(expr); expr.Kind == pg_query.A_Expr_Kind_AEXPR_OP && (op == "->" || op == "->>") {
			base, err := c.nodeToField(expr.Lexpr, s)
			if err != nil {
				return "", err
			}
			key, err := constValue(expr.Rexpr)
			if err != nil {
				return "", err
			}
			return base + c.cfg.Token(mapping.OptNestedDelimiter) + key, nil
		}
	}
	return "", fmt.Errorf("%w: expression is not a column", ErrNotSupported)
}

// constValue renders a literal as it would appear in a filter value.
func constValue(node *pg_query.Node) (string, error) {
	if node == nil {
		return "", fmt.Errorf("%w: missing value", ErrParseError)
	}
	if tc := node.GetTypeCast(); tc != nil {
		return constValue(tc.Arg)
	}
	c := node.GetAConst()
	if c == nil {
		return "", fmt.Errorf("%w: only literal values can be reversed", ErrNotSupported)
	}
	switch {
	case c.GetIval() != nil:
		return strconv.FormatInt(int64(c.GetIval().Ival), 10), nil
	case c.GetFval() != nil:
		return c.GetFval().Fval, nil
	case c.GetSval() != nil:
		return c.GetSval().Sval, nil
	case c.GetBoolval() != nil:
		return strconv.FormatBool(c.GetBoolval().Boolval), nil
	}
	return "", fmt.Errorf("%w: NULL literal", ErrNotSupported)
}

func operatorName(expr *pg_query.A_Expr) string {
	if len(expr.Name) > 0 {
		if str := expr.Name[0].GetString_(); str != nil {
			return str.Sval
		}
	}
	return ""
}

func nodeToInt(node *pg_query.Node) (*int, error) {
	if c := node.GetAConst(); c != nil {
		if c.GetIval() != nil {
			n := int(c.GetIval().Ival)
			return &n, nil
		}
		if c.Isnull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("%w: expected integer", ErrParseError)
}

// ============================================================================
// CONDITIONS
// ============================================================================

func (c *Converter) nodeToConditions(node *pg_query.Node, s *scope) (dnf, error) {
	switch {
	case node.GetBoolExpr() != nil:
		return c.boolExprToConditions(node.GetBoolExpr(), s)
	case node.GetNullTest() != nil:
		nt := node.GetNullTest()
		field, err := c.nodeToField(nt.Arg, s)
		if err != nil {
			return nil, err
		}
		return single(term{
			field:   field,
			op:      mapping.OptIsNull,
			negated: nt.Nulltesttype == pg_query.NullTestType_IS_NOT_NULL,
		}), nil
	case node.GetAExpr() != nil:
		t, err := c.aExprToCondition(node.GetAExpr(), s)
		if err != nil {
			return nil, err
		}
		return single(t), nil
	}
	return nil, fmt.Errorf("%w: unknown condition type", ErrNotSupported)
}

func (c *Converter) boolExprToConditions(be *pg_query.BoolExpr, s *scope) (dnf, error) {
	if be.Boolop == pg_query.BoolExprType_NOT_EXPR {
		if len(be.Args) != 1 {
			return nil, fmt.Errorf("%w: malformed NOT", ErrParseError)
		}
		d, err := c.nodeToConditions(be.Args[0], s)
		if err != nil {
			return nil, err
		}
		return not(d)
	}

	var out dnf
	for i, arg := range be.Args {
		d, err := c.nodeToConditions(arg, s)
		if err != nil {
			return nil, err
		}
		switch {
		case i == 0:
			out = d
		case be.Boolop == pg_query.BoolExprType_AND_EXPR:
			out, err = c.and(out, d)
		default:
			out, err = c.or(out, d)
		}
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (c *Converter) aExprToCondition(expr *pg_query.A_Expr, s *scope) (term, error) {
	field, err := c.nodeToField(expr.Lexpr, s)
	if err != nil {
		return term{}, err
	}
	op := operatorName(expr)
	t := term{field: field}

	switch expr.Kind {
	case pg_query.A_Expr_Kind_AEXPR_IN:
		t.op = mapping.OptIn
		t.negated = op == "<>"
		list := expr.Rexpr.GetList()
		if list == nil {
			return t, fmt.Errorf("%w: IN without a value list", ErrNotSupported)
		}
		for _, item := range list.Items {
			v, err := constValue(item)
			if err != nil {
				return t, err
			}
			t.values = append(t.values, v)
		}
		return t, nil

	case pg_query.A_Expr_Kind_AEXPR_BETWEEN, pg_query.A_Expr_Kind_AEXPR_NOT_BETWEEN:
		t.op = mapping.OptBetween
		t.negated = expr.Kind == pg_query.A_Expr_Kind_AEXPR_NOT_BETWEEN
		list := expr.Rexpr.GetList()
		if list == nil || len(list.Items) != 2 {
			return t, fmt.Errorf("%w: BETWEEN bounds", ErrParseError)
		}
		for _, item := range list.Items {
			v, err := constValue(item)
			if err != nil {
				return t, err
			}
			t.values = append(t.values, v)
		}
		return t, nil

	case pg_query.A_Expr_Kind_AEXPR_LIKE:
		// ~~ is LIKE and !~~ is NOT LIKE
		pattern, err := constValue(expr.Rexpr)
		if err != nil {
			return t, err
		}
		return likeTerm(field, pattern, strings.HasPrefix(op, "!"))

	case pg_query.A_Expr_Kind_AEXPR_OP:
		opt, ok := comparisonOptions[op]
		if !ok {
			return t, fmt.Errorf("%w: operator %s", ErrNotSupported, op)
		}
		v, err := constValue(expr.Rexpr)
		if err != nil {
			return t, err
		}
		t.op = opt
		t.values = []string{v}
		return t, nil
	}
	return t, fmt.Errorf("%w: %s", ErrNotSupported, expr.Kind)
}
