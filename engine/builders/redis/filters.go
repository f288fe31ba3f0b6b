package redis

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/omniql-engine/crudql/engine/models"
	"github.com/omniql-engine/crudql/mapping"
)

// MatchesGroups reports whether hash satisfies at least one AND-group. No
// groups match every hash.
func MatchesGroups(hash map[string]string, groups []models.AndGroup) bool {
	if len(groups) == 0 {
		return true
	}
	for _, g := range groups {
		if MatchesGroup(hash, g) {
			return true
		}
	}
	return false
}

// MatchesGroup reports whether hash satisfies every entry of g.
func MatchesGroup(hash map[string]string, g models.AndGroup) bool {
	for _, e := range g.Entries() {
		field, c := flatten(e.Field, e.Value)
		if !evaluateCondition(hash, field, c) {
			return false
		}
	}
	return true
}

// flatten maps a nested criterion onto a dotted hash field.
func flatten(field string, v models.Value) (string, models.Comparison) {
	switch n := v.(type) {
	case models.Comparison:
		return field, n
	case models.Object:
		keys, c := n.Path()
		return field + "." + strings.Join(keys, "."), c
	}
	return field, models.Comparison{}
}

// evaluateCondition evaluates a single comparison against hash
func evaluateCondition(hash map[string]string, field string, c models.Comparison) bool {
	actual, exists := hash[field]
	category := mapping.GetOperatorCategory(c.Kind)

	// Handle NULLCHECK (no value needed)
	if category == "NULLCHECK" {
		return matchNullCheck(exists, c.Kind)
	}

	// A missing field only satisfies an inequality
	if !exists {
		return c.IsInequality() || (c.Negated && c.Kind == models.KindIn)
	}

	var matched bool
	switch category {
	case "MULTI_VALUE":
		matched = matchMultiValue(actual, c.Operands)
	case "RANGE":
		matched = matchRange(actual, c.Operands)
	case "PATTERN":
		pattern, _ := c.Operand.(string)
		matched = matchLike(actual, pattern, false)
	default:
		matched = matchComparison(actual, c.Kind, c.Operand)
	}
	if c.Negated {
		return !matched
	}
	return matched
}

// matchNullCheck handles IS_NULL / IS_NOT_NULL
func matchNullCheck(exists bool, kind models.Kind) bool {
	switch kind {
	case models.KindIsNull:
		return !exists
	case models.KindNotNull:
		return exists
	}
	return false
}

// matchComparison handles =, <>, >, <, >=, <=
func matchComparison(actual string, kind models.Kind, expected any) bool {
	switch kind {
	case models.KindEqual:
		return compareValue(actual, expected) == 0
	case models.KindNotEqual:
		return compareValue(actual, expected) != 0
	case models.KindGreaterThan:
		return compareValue(actual, expected) > 0
	case models.KindLessThan:
		return compareValue(actual, expected) < 0
	case models.KindGreaterOrEqual:
		return compareValue(actual, expected) >= 0
	case models.KindLessOrEqual:
		return compareValue(actual, expected) <= 0
	}
	return false
}

// matchMultiValue handles IN
func matchMultiValue(actual string, values []any) bool {
	for _, v := range values {
		if compareValue(actual, v) == 0 {
			return true
		}
	}
	return false
}

// matchRange handles BETWEEN; bounds are inclusive
func matchRange(actual string, bounds []any) bool {
	if len(bounds) != 2 {
		return false
	}
	return compareValue(actual, bounds[0]) >= 0 && compareValue(actual, bounds[1]) <= 0
}

// matchLike performs LIKE pattern matching. "%" matches any run and "_" a
// single character.
func matchLike(actual, pattern string, caseSensitive bool) bool {
	if !caseSensitive {
		actual = strings.ToLower(actual)
		pattern = strings.ToLower(pattern)
	}
	return likeMatch([]rune(actual), []rune(pattern))
}

func likeMatch(s, p []rune) bool {
	for len(p) > 0 {
		switch p[0] {
		case '%':
			for len(p) > 0 && p[0] == '%' {
				p = p[1:]
			}
			if len(p) == 0 {
				return true
			}
			for i := 0; i <= len(s); i++ {
				if likeMatch(s[i:], p) {
					return true
				}
			}
			return false
		case '_':
			if len(s) == 0 {
				return false
			}
		default:
			if len(s) == 0 || s[0] != p[0] {
				return false
			}
		}
		s, p = s[1:], p[1:]
	}
	return len(s) == 0
}

// compareValue compares a stored string with a resolved operand.
func compareValue(actual string, expected any) int {
	return compareNumeric(actual, toString(expected))
}

func toString(v any) string {
	switch n := v.(type) {
	case string:
		return n
	case int64:
		return strconv.FormatInt(n, 10)
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

// compareNumeric compares two values numerically, falls back to string
func compareNumeric(a, b string) int {
	aNum, err1 := strconv.ParseFloat(a, 64)
	bNum, err2 := strconv.ParseFloat(b, 64)

	if err1 != nil || err2 != nil {
		return strings.Compare(a, b)
	}
	if aNum < bNum {
		return -1
	}
	if aNum > bNum {
		return 1
	}
	return 0
}
