package mapping

import (
	"github.com/omniql-engine/crudql/engine/models"
)

// OperatorOptions - option name holding the token of each comparison kind.
// Kinds without an entry (IS_NOT_NULL) are only reachable through negation.
var OperatorOptions = map[string]models.Kind{
	OptEq:      models.KindEqual,
	OptNe:      models.KindNotEqual,
	OptCont:    models.KindContains,
	OptStarts:  models.KindStartsWith,
	OptEnds:    models.KindEndsWith,
	OptIsNull:  models.KindIsNull,
	OptGt:      models.KindGreaterThan,
	OptGte:     models.KindGreaterOrEqual,
	OptLt:      models.KindLessThan,
	OptLte:     models.KindLessOrEqual,
	OptIn:      models.KindIn,
	OptBetween: models.KindBetween,
}

// OperatorMap - Runtime mapping for predicate compilers
// Usage: OperatorMap["MongoDB"][models.KindGreaterThan] returns "$gt"
var OperatorMap = map[string]map[models.Kind]string{
	"PostgreSQL": {
		models.KindEqual:          "=",
		models.KindNotEqual:       "<>",
		models.KindGreaterThan:    ">",
		models.KindGreaterOrEqual: ">=",
		models.KindLessThan:       "<",
		models.KindLessOrEqual:    "<=",
		models.KindContains:       "LIKE",
		models.KindStartsWith:     "LIKE",
		models.KindEndsWith:       "LIKE",
		models.KindIn:             "IN",
		models.KindBetween:        "BETWEEN",
		models.KindIsNull:         "IS NULL",
		models.KindNotNull:        "IS NOT NULL",
	},
	"MySQL": {
		models.KindEqual:          "=",
		models.KindNotEqual:       "<>",
		models.KindGreaterThan:    ">",
		models.KindGreaterOrEqual: ">=",
		models.KindLessThan:       "<",
		models.KindLessOrEqual:    "<=",
		models.KindContains:       "LIKE",
		models.KindStartsWith:     "LIKE",
		models.KindEndsWith:       "LIKE",
		models.KindIn:             "IN",
		models.KindBetween:        "BETWEEN",
		models.KindIsNull:         "IS NULL",
		models.KindNotNull:        "IS NOT NULL",
	},
	"SQLite": {
		models.KindEqual:          "=",
		models.KindNotEqual:       "<>",
		models.KindGreaterThan:    ">",
		models.KindGreaterOrEqual: ">=",
		models.KindLessThan:       "<",
		models.KindLessOrEqual:    "<=",
		models.KindContains:       "LIKE",
		models.KindStartsWith:     "LIKE",
		models.KindEndsWith:       "LIKE",
		models.KindIn:             "IN",
		models.KindBetween:        "BETWEEN",
		models.KindIsNull:         "IS NULL",
		models.KindNotNull:        "IS NOT NULL",
	},
	"MongoDB": {
		models.KindEqual:          "$eq",
		models.KindNotEqual:       "$ne",
		models.KindGreaterThan:    "$gt",
		models.KindGreaterOrEqual: "$gte",
		models.KindLessThan:       "$lt",
		models.KindLessOrEqual:    "$lte",
		models.KindContains:       "$regex",
		models.KindStartsWith:     "$regex",
		models.KindEndsWith:       "$regex",
		models.KindIn:             "$in",
		models.KindBetween:        "$gte/$lte", // Requires two conditions
		models.KindIsNull:         "$eq:null",
		models.KindNotNull:        "$ne:null",
	},
}

// NegatedOperatorMap - operator used when a comparison carries the NOT prefix.
// Negated equality and explicit inequality share "<>".
var NegatedOperatorMap = map[string]map[models.Kind]string{
	"SQL": {
		models.KindEqual:          "<>",
		models.KindNotEqual:       "=",
		models.KindGreaterThan:    "<=",
		models.KindGreaterOrEqual: "<",
		models.KindLessThan:       ">=",
		models.KindLessOrEqual:    ">",
		models.KindContains:       "NOT LIKE",
		models.KindStartsWith:     "NOT LIKE",
		models.KindEndsWith:       "NOT LIKE",
		models.KindIn:             "NOT IN",
		models.KindBetween:        "NOT BETWEEN",
	},
	"MongoDB": {
		models.KindEqual:          "$ne",
		models.KindNotEqual:       "$eq",
		models.KindGreaterThan:    "$lte",
		models.KindGreaterOrEqual: "$lt",
		models.KindLessThan:       "$gte",
		models.KindLessOrEqual:    "$gt",
		models.KindContains:       "$not",
		models.KindStartsWith:     "$not",
		models.KindEndsWith:       "$not",
		models.KindIn:             "$nin",
		models.KindBetween:        "$lt/$gt",
	},
}

// OperatorCategories - SSOT for operator shapes
var OperatorCategories = map[models.Kind]string{
	models.KindIn:      "MULTI_VALUE",
	models.KindBetween: "RANGE",

	models.KindIsNull:  "NULLCHECK",
	models.KindNotNull: "NULLCHECK",

	models.KindContains:   "PATTERN",
	models.KindStartsWith: "PATTERN",
	models.KindEndsWith:   "PATTERN",

	models.KindEqual:          "COMPARISON",
	models.KindNotEqual:       "COMPARISON",
	models.KindGreaterThan:    "COMPARISON",
	models.KindGreaterOrEqual: "COMPARISON",
	models.KindLessThan:       "COMPARISON",
	models.KindLessOrEqual:    "COMPARISON",
}

// PatternFormats wraps a raw value into a LIKE pattern.
var PatternFormats = map[models.Kind]string{
	models.KindContains:   "%%%s%%",
	models.KindStartsWith: "%s%%",
	models.KindEndsWith:   "%%%s",
}

// GetOperatorCategory returns the category for a kind
func GetOperatorCategory(kind models.Kind) string {
	return OperatorCategories[kind]
}

// SQLOperator returns the SQL operator of c for dbType, honouring negation.
func SQLOperator(dbType string, c models.Comparison) string {
	if c.Negated {
		if op, ok := NegatedOperatorMap["SQL"][c.Kind]; ok {
			return op
		}
	}
	ops, ok := OperatorMap[dbType]
	if !ok {
		ops = OperatorMap["PostgreSQL"]
	}
	return ops[c.Kind]
}
