// Package report renders scan results for people and machines.
package report

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/Adithya-Monish-Kumar-K/textmatcher/internal/matcher"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/internal/scanner"
)

// WriteText prints one line per term, in the order given:
//
//	term --> [[lineOffset=1, charOffset=0][lineOffset=2, charOffset=26]]
//
// Terms without matches print an empty list.
func WriteText(w io.Writer, terms []string, ms matcher.MatchSet) error {
	bw := bufio.NewWriter(w)
	for _, term := range terms {
		bw.WriteString(term)
		bw.WriteString(" --> [")
		for _, loc := range ms[term] {
			bw.WriteString(loc.String())
		}
		bw.WriteString("]\n")
	}
	return bw.Flush()
}

// Document is the JSON form of a scan result. Every term appears in Matches.
type Document struct {
	Terms   []string                      `json:"terms"`
	Matches map[string][]matcher.Location `json:"matches"`
	Stats   StatsDocument                 `json:"stats"`
}

// StatsDocument is scanner.Stats with the duration in milliseconds.
type StatsDocument struct {
	scanner.Stats
	DurationMs int64 `json:"duration_ms"`
}

// NewDocument builds the JSON form of res.
func NewDocument(res *scanner.Result) Document {
	matches := make(map[string][]matcher.Location, len(res.Terms))
	for _, term := range res.Terms {
		locs := res.Matches[term]
		if locs == nil {
			locs = []matcher.Location{}
		}
		matches[term] = locs
	}
	return Document{
		Terms:   res.Terms,
		Matches: matches,
		Stats: StatsDocument{
			Stats:      res.Stats,
			DurationMs: res.Stats.Duration.Milliseconds(),
		},
	}
}

// WriteJSON encodes res as an indented Document.
func WriteJSON(w io.Writer, res *scanner.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewDocument(res))
}
