package matcher

import (
	"strings"
	"unicode/utf8"
)

// NormalizeTerms drops empty and repeated terms, keeping first occurrences in
// their original order.
func NormalizeTerms(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// FindMatches returns every occurrence of every term in the batch. Overlapping
// occurrences are all reported: after a match starting at character p the
// search resumes at p+1. Terms that never occur are left out of the result.
func FindMatches(b Batch, terms []string) MatchSet {
	matches := make(MatchSet)
	if len(b.Lines) == 0 || len(terms) == 0 {
		return matches
	}
	offsets := LineOffsets(b.Lines, b.StartOffset)
	for i, line := range b.Lines {
		lineNumber := b.StartLine + i
		for _, term := range terms {
			if term == "" || len(term) > len(line) {
				continue
			}
			for _, p := range indexAll(line, term) {
				matches[term] = append(matches[term], Location{
					Line:   lineNumber,
					Offset: offsets[i] + p,
				})
			}
		}
	}
	return matches
}

// indexAll returns the character positions of all, possibly overlapping,
// occurrences of term in line.
func indexAll(line, term string) []int {
	var positions []int
	bytePos, charPos := 0, 0
	for bytePos < len(line) {
		idx := strings.Index(line[bytePos:], term)
		if idx < 0 {
			break
		}
		charPos += utf8.RuneCountInString(line[bytePos : bytePos+idx])
		bytePos += idx
		positions = append(positions, charPos)

		_, size := utf8.DecodeRuneInString(line[bytePos:])
		bytePos += size
		charPos++
	}
	return positions
}
