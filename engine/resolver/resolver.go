// Package resolver turns an operator token and its raw value into a typed
// comparison with coerced operands.
package resolver

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/omniql-engine/crudql/engine/config"
	"github.com/omniql-engine/crudql/engine/models"
	"github.com/omniql-engine/crudql/mapping"
)

var (
	// ErrMalformedBetween is returned when a range value does not split into
	// exactly two bounds. The condition is dropped.
	ErrMalformedBetween = errors.New("between requires exactly two values")

	// ErrUnknownOperator is returned alongside an equality comparison when the
	// operator token is not configured.
	ErrUnknownOperator = errors.New("unknown operator")
)

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
	regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`),
}

// ============================================================================
// OPERATOR RESOLUTION
// ============================================================================

// Resolve maps an operator token (NOT prefix already stripped) and a raw
// value to a comparison.
//
// An unknown token yields an equality comparison on the coerced value together
// with an error wrapping ErrUnknownOperator; callers that ignore the error get
// the lenient result. A malformed $between yields ErrMalformedBetween and a
// zero comparison that must not be used.
func Resolve(cfg *config.Config, operator, raw string) (models.Comparison, error) {
	kind, ok := cfg.Operator(operator)
	if !ok {
		return models.Eq(Coerce(raw)), fmt.Errorf("%w %q", ErrUnknownOperator, operator)
	}

	switch mapping.GetOperatorCategory(kind) {
	case "PATTERN":
		return models.Cmp(kind, fmt.Sprintf(mapping.PatternFormats[kind], raw)), nil

	case "NULLCHECK":
		return models.Comparison{Kind: kind}, nil

	case "MULTI_VALUE":
		parts := strings.Split(raw, cfg.Token(mapping.OptValueDelimiter))
		values := make([]any, 0, len(parts))
		for _, p := range parts {
			values = append(values, Coerce(p))
		}
		return models.In(values...), nil

	case "RANGE":
		parts := strings.Split(raw, cfg.Token(mapping.OptValueDelimiter))
		if len(parts) != 2 {
			return models.Comparison{}, fmt.Errorf("%w: got %d in %q", ErrMalformedBetween, len(parts), raw)
		}
		return models.Between(Coerce(parts[0]), Coerce(parts[1])), nil
	}

	return models.Cmp(kind, Coerce(raw)), nil
}

// ResolveCondition resolves cond and applies its NOT prefix.
func ResolveCondition(cfg *config.Config, cond models.Condition) (models.Comparison, error) {
	c, err := Resolve(cfg, cond.Operator, cond.RawValue)
	if err != nil && errors.Is(err, ErrMalformedBetween) {
		return c, err
	}
	if cond.Negated {
		c = c.Not()
	}
	return c, err
}

// ============================================================================
// VALUE COERCION
// ============================================================================

// Coerce converts raw into an int64 or float64 when it reads as a finite
// decimal number. Date-like values, blanks, hex, NaN and Inf stay strings.
func Coerce(raw string) any {
	if IsDateLike(raw) {
		return raw
	}
	s := strings.TrimSpace(raw)
	if s == "" || strings.ContainsAny(s, "_xXpP") {
		return raw
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return raw
	}
	return f
}

// IsDateLike reports whether raw looks like YYYY-MM-DD or
// YYYY-MM-DD HH:MM:SS.
func IsDateLike(raw string) bool {
	for _, re := range datePatterns {
		if re.MatchString(raw) {
			return true
		}
	}
	return false
}
