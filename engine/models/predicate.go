package models

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

// ============================================================================
// PREDICATE - SQL fragment with named parameters
// ============================================================================

// namedParam matches ":name" and the spread form ":...name".
var namedParam = regexp.MustCompile(`:(\.\.\.)?([A-Za-z_][A-Za-z0-9_]*)`)

// Predicate is a boolean SQL fragment using named parameters, for example
// "u.age BETWEEN :age_0_start AND :age_0_end" or "u.id IN (:...id_1)".
// A spread parameter expands a slice into a comma separated list.
//
// ToSql renders "?" placeholders so a Predicate can be handed to any
// squirrel builder, which rewrites them for the target dialect.
type Predicate struct {
	SQL    string
	Params map[string]any
}

// NewPredicate creates a predicate.
func NewPredicate(sql string, params map[string]any) Predicate {
	return Predicate{SQL: sql, Params: params}
}

// ToSql implements squirrel.Sqlizer.
func (p Predicate) ToSql() (string, []interface{}, error) {
	var args []interface{}
	var err error

	out := namedParam.ReplaceAllStringFunc(p.SQL, func(m string) string {
		if err != nil {
			return m
		}
		sub := namedParam.FindStringSubmatch(m)
		spread, name := sub[1] != "", sub[2]

		v, ok := p.Params[name]
		if !ok {
			err = fmt.Errorf("predicate %q: missing parameter %q", p.SQL, name)
			return m
		}
		if !spread {
			args = append(args, v)
			return "?"
		}

		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice || rv.Len() == 0 {
			err = fmt.Errorf("predicate %q: spread parameter %q needs a non-empty slice", p.SQL, name)
			return m
		}
		marks := make([]string, rv.Len())
		for i := range marks {
			marks[i] = "?"
			args = append(args, rv.Index(i).Interface())
		}
		return strings.Join(marks, ", ")
	})
	if err != nil {
		return "", nil, err
	}
	return out, args, nil
}
