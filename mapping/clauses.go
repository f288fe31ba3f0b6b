package mapping

import "strings"

// Request parameter names.
const (
	ParamSelect = "select"
	ParamJoin   = "join"
	ParamSort   = "sort"
	ParamCache  = "cache"
	ParamLimit  = "limit"
	ParamPage   = "page"
	ParamFilter = "filter"
	ParamGroup  = "group"
	ParamHaving = "having"
)

// ParamDefinition defines how a request parameter is read
type ParamDefinition struct {
	Name      string   // The query string key
	Modes     []string // Which builders read it: SIMPLE, ADVANCED
	ValueType string   // LIST, SORT, BOOLEAN, NUMERIC, FILTER
	Joiner    string   // Option whose token joins repeated occurrences
}

// QueryParams defines all available request parameters
var QueryParams = map[string]ParamDefinition{
	ParamSelect: {
		Name:      ParamSelect,
		Modes:     []string{"SIMPLE", "ADVANCED"},
		ValueType: "LIST",
		Joiner:    OptValueDelimiter,
	},
	ParamJoin: {
		Name:      ParamJoin,
		Modes:     []string{"SIMPLE", "ADVANCED"},
		ValueType: "LIST",
		Joiner:    OptValueDelimiter,
	},
	ParamSort: {
		Name:      ParamSort,
		Modes:     []string{"SIMPLE", "ADVANCED"},
		ValueType: "SORT",
		Joiner:    OptConditionDelimiter,
	},
	ParamCache: {
		Name:      ParamCache,
		Modes:     []string{"SIMPLE", "ADVANCED"},
		ValueType: "BOOLEAN",
	},
	ParamLimit: {
		Name:      ParamLimit,
		Modes:     []string{"SIMPLE", "ADVANCED"},
		ValueType: "NUMERIC",
	},
	ParamPage: {
		Name:      ParamPage,
		Modes:     []string{"SIMPLE", "ADVANCED"},
		ValueType: "NUMERIC",
	},
	ParamFilter: {
		Name:      ParamFilter,
		Modes:     []string{"SIMPLE", "ADVANCED"},
		ValueType: "FILTER",
		Joiner:    OptOrKeyword,
	},
	ParamGroup: {
		Name:      ParamGroup,
		Modes:     []string{"ADVANCED"},
		ValueType: "LIST",
		Joiner:    OptValueDelimiter,
	},
	ParamHaving: {
		Name:      ParamHaving,
		Modes:     []string{"ADVANCED"},
		ValueType: "FILTER",
		Joiner:    OptOrKeyword,
	},
}

// ParamsByMode - reverse mapping built from QueryParams
var ParamsByMode map[string][]string

func init() {
	ParamsByMode = make(map[string][]string)

	for name, def := range QueryParams {
		for _, mode := range def.Modes {
			ParamsByMode[mode] = append(ParamsByMode[mode], name)
		}
	}
}

// IsParam checks if a query string key is a known parameter
func IsParam(name string) bool {
	_, ok := QueryParams[strings.ToLower(name)]
	return ok
}

// GetParamsForMode returns the parameters read by a builder mode
func GetParamsForMode(mode string) []string {
	return ParamsByMode[mode]
}

// SortDirections normalizes accepted direction spellings.
var SortDirections = map[string]string{
	"ASC":        "ASC",
	"ASCENDING":  "ASC",
	"DESC":       "DESC",
	"DESCENDING": "DESC",
}

// NullsPositions normalizes accepted nulls placement spellings after upper
// casing and folding "_" to " ".
var NullsPositions = map[string]string{
	"NULLS FIRST": "NULLS FIRST",
	"NULLS LAST":  "NULLS LAST",
}

// NormalizeNulls maps "nulls_last", "NULLS LAST", "Nulls  Last" to the
// canonical spelling. Returns "" when raw is not a nulls placement.
func NormalizeNulls(raw string) string {
	folded := strings.ToUpper(strings.ReplaceAll(raw, "_", " "))
	folded = strings.Join(strings.Fields(folded), " ")
	return NullsPositions[folded]
}
