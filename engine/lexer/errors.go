package lexer

import (
	"fmt"
	"strings"
)

// TokenError describes a piece of input that was dropped or reinterpreted
// while parsing. It is reported as a warning; parsing continues.
type TokenError struct {
	Message    string
	Position   int
	Token      string
	Suggestion string
}

func (e *TokenError) Error() string {
	msg := fmt.Sprintf("offset %d: %s", e.Position, e.Message)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(". Did you mean '%s'?", e.Suggestion)
	}
	return msg
}

// NewTokenError creates a new token warning
func NewTokenError(position int, token, message string) *TokenError {
	return &TokenError{
		Message:  message,
		Position: position,
		Token:    token,
	}
}

// NewUnknownOperatorError creates a warning with a suggestion taken from the
// known operator tokens.
func NewUnknownOperatorError(position int, token string, known []string) *TokenError {
	e := NewTokenError(position, token,
		fmt.Sprintf("unknown operator '%s', treated as equality", token))
	e.Suggestion = SuggestSimilar(token, known)
	return e
}

// SuggestSimilar finds the closest candidate within two edits.
func SuggestSimilar(unknown string, candidates []string) string {
	unknown = strings.ToLower(unknown)

	var bestMatch string
	bestDistance := 999
	maxDistance := 2

	for _, c := range candidates {
		dist := levenshtein(unknown, strings.ToLower(c))
		if dist <= maxDistance && (dist < bestDistance || (dist == bestDistance && c < bestMatch)) {
			bestDistance = dist
			bestMatch = c
		}
	}

	return bestMatch
}

// levenshtein calculates edit distance between two strings
func levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
		matrix[i][0] = i
	}
	for j := range matrix[0] {
		matrix[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}

	return matrix[len(a)][len(b)]
}
