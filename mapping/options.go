package mapping

// ============================================================================
// OPTION NAMES
// ============================================================================

// Option names accepted by the delimiter configuration.
const (
	OptLookupDelimiter    = "lookupDelimiter"
	OptRelationDelimiter  = "relationDelimiter"
	OptNestedDelimiter    = "nestedDelimiter"
	OptConditionDelimiter = "conditionDelimiter"
	OptValueDelimiter     = "valueDelimiter"
	OptOrKeyword          = "orKeyword"
	OptAndKeyword         = "andKeyword"
	OptNotPrefix          = "notPrefix"
	OptGroupOpen          = "groupOpen"
	OptGroupClose         = "groupClose"
	OptWildcard           = "wildcard"
	OptInnerJoinPrefix    = "innerJoinPrefix"
	OptDefaultLimit       = "defaultLimit"
	OptMaxLimit           = "maxLimit"
	OptCacheDuration      = "cacheDuration"
	OptMaxGroups          = "maxGroups"

	OptEq      = "eq"
	OptNe      = "ne"
	OptCont    = "cont"
	OptStarts  = "starts"
	OptEnds    = "ends"
	OptIsNull  = "isnull"
	OptGt      = "gt"
	OptGte     = "gte"
	OptLt      = "lt"
	OptLte     = "lte"
	OptIn      = "in"
	OptBetween = "between"
)

// DefaultCacheDuration is the cache window applied when cache=true and no
// cacheDuration option is configured.
const DefaultCacheDuration = "60s"

// DefaultOptions holds the documented default for every option.
var DefaultOptions = map[string]string{
	OptLookupDelimiter:    "||",
	OptRelationDelimiter:  ".",
	OptNestedDelimiter:    "#",
	OptConditionDelimiter: ";",
	OptValueDelimiter:     ",",
	OptOrKeyword:          "$or",
	OptAndKeyword:         "$and",
	OptNotPrefix:          "!",
	OptGroupOpen:          "(",
	OptGroupClose:         ")",
	OptWildcard:           "*",
	OptInnerJoinPrefix:    "!",
	OptDefaultLimit:       "25",
	OptMaxLimit:           "0",
	OptCacheDuration:      DefaultCacheDuration,
	OptMaxGroups:          "256",

	OptEq:      "$eq",
	OptNe:      "$ne",
	OptCont:    "$cont",
	OptStarts:  "$starts",
	OptEnds:    "$ends",
	OptIsNull:  "$isnull",
	OptGt:      "$gt",
	OptGte:     "$gte",
	OptLt:      "$lt",
	OptLte:     "$lte",
	OptIn:      "$in",
	OptBetween: "$between",
}

// IsOption checks if name is a known option
func IsOption(name string) bool {
	_, ok := DefaultOptions[name]
	return ok
}
