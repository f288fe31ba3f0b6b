package reverse

import (
	"fmt"
	"strconv"

	"github.com/pingcap/tidb/parser"
	"github.com/pingcap/tidb/parser/ast"
	"github.com/pingcap/tidb/parser/opcode"
	"github.com/pingcap/tidb/parser/test_driver"

	"github.com/omniql-engine/crudql/mapping"
)

// ============================================================================
// ENTRY POINT
// ============================================================================

func (c *Converter) fromMySQL(sql string) (*statement, error) {
	p := parser.New()
	stmts, _, err := p.Parse(sql, "", "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseError, err)
	}
	if len(stmts) == 0 {
		return nil, fmt.Errorf("%w: empty statement", ErrParseError)
	}
	if len(stmts) > 1 {
		return nil, fmt.Errorf("%w: multiple statements", ErrNotSupported)
	}

	stmt, ok := stmts[0].(*ast.SelectStmt)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported MySQL statement type %T", ErrNotSupported, stmts[0])
	}
	if stmt.With != nil || stmt.Distinct {
		return nil, fmt.Errorf("%w: WITH or DISTINCT", ErrNotSupported)
	}
	return c.convertMySQLSelect(stmt)
}

// ============================================================================
// SELECT
// ============================================================================

func (c *Converter) convertMySQLSelect(stmt *ast.SelectStmt) (*statement, error) {
	if stmt.From == nil || stmt.From.TableRefs == nil {
		return nil, fmt.Errorf("%w: SELECT without FROM", ErrNotSupported)
	}

	st := &statement{}
	s, err := c.extractMySQLFrom(stmt.From.TableRefs, st)
	if err != nil {
		return nil, err
	}

	if stmt.Fields != nil {
		if st.columns, err = c.extractMySQLFields(stmt.Fields.Fields, s); err != nil {
			return nil, err
		}
	}

	if stmt.Where != nil {
		if st.where, err = c.mysqlExprToConditions(stmt.Where, s); err != nil {
			return nil, fmt.Errorf("WHERE: %w", err)
		}
	}

	if stmt.GroupBy != nil {
		for _, item := range stmt.GroupBy.Items {
			field, err := c.mysqlField(item.Expr, s)
			if err != nil {
				return nil, fmt.Errorf("GROUP BY: %w", err)
			}
			st.groupBy = append(st.groupBy, field)
		}
	}

	if stmt.Having != nil {
		if st.having, err = c.mysqlExprToConditions(stmt.Having.Expr, s); err != nil {
			return nil, fmt.Errorf("HAVING: %w", err)
		}
	}

	if stmt.OrderBy != nil {
		for _, item := range stmt.OrderBy.Items {
			field, err := c.mysqlField(item.Expr, s)
			if err != nil {
				return nil, fmt.Errorf("ORDER BY: %w", err)
			}
			st.order = append(st.order, order{field: field, desc: item.Desc})
		}
	}

	if stmt.Limit != nil {
		if stmt.Limit.Count != nil {
			if st.limit, err = mysqlInt(stmt.Limit.Count); err != nil {
				return nil, fmt.Errorf("LIMIT: %w", err)
			}
		}
		if stmt.Limit.Offset != nil {
			if st.offset, err = mysqlInt(stmt.Limit.Offset); err != nil {
				return nil, fmt.Errorf("OFFSET: %w", err)
			}
		}
	}
	return st, nil
}

// extractMySQLFrom walks a left-deep join tree. The leftmost table is the
// root entity; an ON-less join of a single table is the root itself.
func (c *Converter) extractMySQLFrom(node ast.ResultSetNode, st *statement) (*scope, error) {
	switch n := node.(type) {
	case *ast.TableSource:
		tn, ok := n.Source.(*ast.TableName)
		if !ok {
			return nil, fmt.Errorf("%w: derived table", ErrNotSupported)
		}
		st.table = tn.Name.O
		return newScope(c.cfg, tn.Name.O, n.AsName.O), nil

	case *ast.Join:
		s, err := c.extractMySQLFrom(n.Left, st)
		if err != nil {
			return nil, err
		}
		if n.Right == nil {
			return s, nil
		}
		ts, ok := n.Right.(*ast.TableSource)
		if !ok {
			return nil, fmt.Errorf("%w: nested join", ErrNotSupported)
		}
		tn, ok := ts.Source.(*ast.TableName)
		if !ok {
			return nil, fmt.Errorf("%w: derived table", ErrNotSupported)
		}

		var inner bool
		switch n.Tp {
		case ast.LeftJoin:
		case ast.CrossJoin:
			// INNER JOIN ... ON parses as a cross join with a condition
			if n.On == nil {
				return nil, fmt.Errorf("%w: cross join", ErrNotSupported)
			}
			inner = true
		default:
			return nil, fmt.Errorf("%w: join type", ErrNotSupported)
		}
		st.joins = append(st.joins, join{path: s.relation(tn.Name.O, ts.AsName.O), inner: inner})
		return s, nil
	}
	return nil, fmt.Errorf("%w: unsupported FROM", ErrNotSupported)
}

func (c *Converter) extractMySQLFields(fields []*ast.SelectField, s *scope) ([]string, error) {
	var cols []string
	wildcard := c.cfg.Token(mapping.OptWildcard)
	for _, f := range fields {
		if f.WildCard != nil {
			q := f.WildCard.Table.O
			if q == "" {
				if len(fields) == 1 {
					return nil, nil
				}
				cols = append(cols, wildcard)
				continue
			}
			path, ok := s.paths[q]
			if !ok {
				return nil, fmt.Errorf("%w: unknown table reference %q", ErrNotSupported, q)
			}
			if path == "" {
				cols = append(cols, wildcard)
			} else {
				cols = append(cols, path+s.relDelim+wildcard)
			}
			continue
		}
		field, err := c.mysqlField(f.Expr, s)
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

func (c *Converter) mysqlField(expr ast.ExprNode, s *scope) (string, error) {
	switch e := expr.(type) {
	case *ast.ColumnNameExpr:
		return s.field(e.Name.Table.O, e.Name.Name.O)
	case *ast.ParenthesesExpr:
		return c.mysqlField(e.Expr, s)
	}
	return "", fmt.Errorf("%w: expression is not a column", ErrNotSupported)
}

// mysqlValue renders a literal as it would appear in a filter value.
func mysqlValue(expr ast.ExprNode) (string, error) {
	switch e := expr.(type) {
	case *test_driver.ValueExpr:
		d := e.Datum
		switch d.Kind() {
		case test_driver.KindInt64:
			return strconv.FormatInt(d.GetInt64(), 10), nil
		case test_driver.KindUint64:
			return strconv.FormatUint(d.GetUint64(), 10), nil
		case test_driver.KindFloat64:
			return strconv.FormatFloat(d.GetFloat64(), 'f', -1, 64), nil
		case test_driver.KindString:
			return d.GetString(), nil
		case test_driver.KindBytes:
			return string(d.GetBytes()), nil
		case test_driver.KindNull:
			return "", fmt.Errorf("%w: NULL literal", ErrNotSupported)
		}
		return fmt.Sprintf("%v", d.GetValue()), nil
	case *ast.UnaryOperationExpr:
		if e.Op == opcode.Minus {
			v, err := mysqlValue(e.V)
			if err != nil {
				return "", err
			}
			return "-" + v, nil
		}
	case *ast.ParenthesesExpr:
		return mysqlValue(e.Expr)
	}
	return "", fmt.Errorf("%w: only literal values can be reversed", ErrNotSupported)
}

func mysqlInt(expr ast.ExprNode) (*int, error) {
	v, err := mysqlValue(expr)
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, fmt.Errorf("%w: expected integer", ErrParseError)
	}
	return &n, nil
}

// ============================================================================
// CONDITIONS
// ============================================================================

func (c *Converter) mysqlExprToConditions(expr ast.ExprNode, s *scope) (dnf, error) {
	switch e := expr.(type) {
	case *ast.BinaryOperationExpr:
		switch e.Op {
		case opcode.LogicAnd, opcode.LogicOr:
			left, err := c.mysqlExprToConditions(e.L, s)
			if err != nil {
				return nil, err
			}
			right, err := c.mysqlExprToConditions(e.R, s)
			if err != nil {
				return nil, err
			}
			if e.Op == opcode.LogicAnd {
				return c.and(left, right)
			}
			return c.or(left, right)
		}
		t, err := c.buildMySQLCondition(e, s)
		if err != nil {
			return nil, err
		}
		return single(t), nil

	case *ast.UnaryOperationExpr:
		if e.Op != opcode.Not {
			return nil, fmt.Errorf("%w: unary %s", ErrNotSupported, e.Op)
		}
		d, err := c.mysqlExprToConditions(e.V, s)
		if err != nil {
			return nil, err
		}
		return not(d)

	case *ast.PatternInExpr:
		if e.Sel != nil {
			return nil, fmt.Errorf("%w: IN subquery", ErrNotSupported)
		}
		field, err := c.mysqlField(e.Expr, s)
		if err != nil {
			return nil, err
		}
		t := term{field: field, op: mapping.OptIn, negated: e.Not}
		for _, item := range e.List {
			v, err := mysqlValue(item)
			if err != nil {
				return nil, err
			}
			t.values = append(t.values, v)
		}
		return single(t), nil

	case *ast.PatternLikeOrIlikeExpr:
		if !e.IsLike {
			return nil, fmt.Errorf("%w: ILIKE", ErrNotSupported)
		}
		field, err := c.mysqlField(e.Expr, s)
		if err != nil {
			return nil, err
		}
		pattern, err := mysqlValue(e.Pattern)
		if err != nil {
			return nil, err
		}
		t, err := likeTerm(field, pattern, e.Not)
		if err != nil {
			return nil, err
		}
		return single(t), nil

	case *ast.BetweenExpr:
		field, err := c.mysqlField(e.Expr, s)
		if err != nil {
			return nil, err
		}
		lo, err := mysqlValue(e.Left)
		if err != nil {
			return nil, err
		}
		hi, err := mysqlValue(e.Right)
		if err != nil {
			return nil, err
		}
		return single(term{field: field, op: mapping.OptBetween, values: []string{lo, hi}, negated: e.Not}), nil

	case *ast.IsNullExpr:
		field, err := c.mysqlField(e.Expr, s)
		if err != nil {
			return nil, err
		}
		return single(term{field: field, op: mapping.OptIsNull, negated: e.Not}), nil

	case *ast.ParenthesesExpr:
		return c.mysqlExprToConditions(e.Expr, s)
	}
	return nil, fmt.Errorf("%w: unsupported condition type %T", ErrNotSupported, expr)
}

func (c *Converter) buildMySQLCondition(e *ast.BinaryOperationExpr, s *scope) (term, error) {
	var op string
	switch e.Op {
	case opcode.EQ:
		op = "="
	case opcode.NE:
		op = "<>"
	case opcode.LT:
		op = "<"
	case opcode.GT:
		op = ">"
	case opcode.LE:
		op = "<="
	case opcode.GE:
		op = ">="
	default:
		return term{}, fmt.Errorf("%w: operator %s", ErrNotSupported, e.Op)
	}

	field, err := c.mysqlField(e.L, s)
	if err != nil {
		return term{}, err
	}
	v, err := mysqlValue(e.R)
	if err != nil {
		return term{}, err
	}
	return term{field: field, op: comparisonOptions[op], values: []string{v}}, nil
}
