// Package matcher finds literal search terms in batches of lines and reports
// each occurrence as a line number plus an absolute character offset from the
// start of the input. Everything in this package is pure and safe to call
// from many goroutines at once.
package matcher

import "fmt"

// Location is the position of one match. Line is 1-based across the whole
// input; Offset is the 0-based character offset of the match's first
// character from the start of the input, not the line.
type Location struct {
	Line   int `json:"line"`
	Offset int `json:"char_offset"`
}

func (l Location) String() string {
	return fmt.Sprintf("[lineOffset=%d, charOffset=%d]", l.Line, l.Offset)
}

// Before reports whether l sorts strictly before other in (Line, Offset) order.
func (l Location) Before(other Location) bool {
	if l.Line != other.Line {
		return l.Line < other.Line
	}
	return l.Offset < other.Offset
}

// MatchSet maps a search term to its locations in ascending order. A term
// with no matches has no key.
type MatchSet map[string][]Location

// Count returns the total number of locations across all terms.
func (ms MatchSet) Count() int {
	n := 0
	for _, locs := range ms {
		n += len(locs)
	}
	return n
}

// Batch is a run of consecutive input lines together with the position of
// its first line in the whole input.
type Batch struct {
	Lines       []string
	StartLine   int
	StartOffset int
}
