package report

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textmatcher/internal/matcher"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/internal/scanner"
)

func TestWriteText(t *testing.T) {
	ms := matcher.MatchSet{
		"Timothy": {{Line: 1, Offset: 0}, {Line: 2, Offset: 26}},
	}
	var buf bytes.Buffer
	if err := WriteText(&buf, []string{"home", "Timothy"}, ms); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	want := "home --> []\n" +
		"Timothy --> [[lineOffset=1, charOffset=0][lineOffset=2, charOffset=26]]\n"
	if buf.String() != want {
		t.Fatalf("output:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestWriteJSONIncludesEveryTerm(t *testing.T) {
	res := &scanner.Result{
		Terms:   []string{"a", "b"},
		Matches: matcher.MatchSet{"a": {{Line: 3, Offset: 12}}},
		Stats:   scanner.Stats{Lines: 3, Batches: 1, Chars: 20, Matches: 1, Workers: 2, Duration: 1500 * time.Millisecond},
	}
	var buf bytes.Buffer
	if err := WriteJSON(&buf, res); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var doc struct {
		Terms   []string                    `json:"terms"`
		Matches map[string][]map[string]int `json:"matches"`
		Stats   map[string]int64            `json:"stats"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v\n%s", err, buf.String())
	}
	if got := doc.Matches["b"]; got == nil || len(got) != 0 {
		t.Errorf("b = %v, want empty list", got)
	}
	if got := doc.Matches["a"]; len(got) != 1 || got[0]["line"] != 3 || got[0]["char_offset"] != 12 {
		t.Errorf("a = %v", got)
	}
	if doc.Stats["duration_ms"] != 1500 || doc.Stats["lines"] != 3 || doc.Stats["workers"] != 2 {
		t.Errorf("stats = %v", doc.Stats)
	}
}
