// Package lexer splits query string values on configurable separator tokens.
package lexer

import (
	"sort"
	"strings"
)

// Segment is a slice of the input together with its byte offset.
type Segment struct {
	Text   string
	Offset int
}

// Splitter splits text on separators that appear outside group markers.
// When several separators match at the same position the longest wins, so
// "||$or||" is found before "||".
type Splitter struct {
	seps  []string
	open  string
	close string
}

// NewSplitter creates a splitter. Empty separators are ignored. An empty
// open or close marker disables grouping.
func NewSplitter(open, close string, seps ...string) *Splitter {
	s := &Splitter{open: open, close: close}
	for _, sep := range seps {
		if sep != "" {
			s.seps = append(s.seps, sep)
		}
	}
	sort.SliceStable(s.seps, func(i, j int) bool { return len(s.seps[i]) > len(s.seps[j]) })
	if open == "" || close == "" {
		s.open, s.close = "", ""
	}
	return s
}

// Split returns the segments of input between separators at depth 0.
// Segments are not trimmed; empty segments are kept. When the group
// markers are unbalanced they are treated as plain text and ok is false.
func (s *Splitter) Split(input string, offset int) (segments []Segment, ok bool) {
	grouping := s.open != ""
	ok = true
	if grouping && !Balanced(input, s.open, s.close) {
		grouping = false
		ok = false
	}

	depth := 0
	start := 0
	pos := 0
	for pos < len(input) {
		if grouping {
			if strings.HasPrefix(input[pos:], s.open) {
				depth++
				pos += len(s.open)
				continue
			}
			if depth > 0 && strings.HasPrefix(input[pos:], s.close) {
				depth--
				pos += len(s.close)
				continue
			}
		}
		if depth == 0 {
			if sep := s.matchAt(input, pos); sep != "" {
				segments = append(segments, Segment{Text: input[start:pos], Offset: offset + start})
				pos += len(sep)
				start = pos
				continue
			}
		}
		pos++
	}
	segments = append(segments, Segment{Text: input[start:], Offset: offset + start})
	return segments, ok
}

func (s *Splitter) matchAt(input string, pos int) string {
	for _, sep := range s.seps {
		if strings.HasPrefix(input[pos:], sep) {
			return sep
		}
	}
	return ""
}

// Balanced reports whether every open marker in input has a matching close
// marker and no close marker appears before its opener.
func Balanced(input, open, close string) bool {
	if open == "" || close == "" {
		return true
	}
	depth := 0
	for pos := 0; pos < len(input); {
		switch {
		case strings.HasPrefix(input[pos:], open):
			depth++
			pos += len(open)
		case strings.HasPrefix(input[pos:], close):
			depth--
			if depth < 0 {
				return false
			}
			pos += len(close)
		default:
			pos++
		}
	}
	return depth == 0
}

// Unwrap strips one pair of group markers when they enclose the whole
// input, e.g. "(a;b)" but not "(a);(b)". Surrounding whitespace is ignored.
// The returned offset is adjusted to the inner text.
func Unwrap(input string, offset int, open, close string) (string, int, bool) {
	if open == "" || close == "" {
		return input, offset, false
	}
	lead := len(input) - len(strings.TrimLeft(input, " \t"))
	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, open) || !strings.HasSuffix(trimmed, close) ||
		len(trimmed) < len(open)+len(close) {
		return input, offset, false
	}
	// the opener must close at the very end
	depth := 0
	for pos := 0; pos < len(trimmed); {
		switch {
		case strings.HasPrefix(trimmed[pos:], open):
			depth++
			pos += len(open)
		case strings.HasPrefix(trimmed[pos:], close):
			depth--
			pos += len(close)
			if depth == 0 && pos != len(trimmed) {
				return input, offset, false
			}
		default:
			pos++
		}
		if depth < 0 {
			return input, offset, false
		}
	}
	if depth != 0 {
		return input, offset, false
	}
	inner := trimmed[len(open) : len(trimmed)-len(close)]
	return inner, offset + lead + len(open), true
}

// SplitList splits a comma-style list, trimming blanks and dropping empty
// items.
func SplitList(input, sep string) []string {
	if sep == "" {
		sep = ","
	}
	var out []string
	for _, item := range strings.Split(input, sep) {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
