package scanner

import (
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/textmatcher/internal/matcher"
)

func TestMergeKeepsSubmissionOrder(t *testing.T) {
	sets := []matcher.MatchSet{
		{"fox": {{Line: 1, Offset: 4}, {Line: 3, Offset: 30}}},
		{},
		{"dog": {{Line: 1001, Offset: 9000}}, "fox": {{Line: 1002, Offset: 9010}}},
		nil,
		{"fox": {{Line: 2001, Offset: 18000}}},
	}
	want := matcher.MatchSet{
		"fox": {{Line: 1, Offset: 4}, {Line: 3, Offset: 30}, {Line: 1002, Offset: 9010}, {Line: 2001, Offset: 18000}},
		"dog": {{Line: 1001, Offset: 9000}},
	}
	got := Merge(sets)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Merge = %v, want %v", got, want)
	}
}

func TestMergeDoesNotAliasInputs(t *testing.T) {
	first := matcher.MatchSet{"a": make([]matcher.Location, 1, 4)}
	second := matcher.MatchSet{"a": {{Line: 2, Offset: 5}}}
	Merge([]matcher.MatchSet{first, second})
	if len(first["a"]) != 1 {
		t.Fatal("Merge modified an input set")
	}
	if got := first["a"][:2][1]; got != (matcher.Location{}) {
		t.Fatalf("Merge wrote into input backing array: %v", got)
	}
}

func TestMergeEmpty(t *testing.T) {
	if got := Merge(nil); len(got) != 0 {
		t.Fatalf("Merge(nil) = %v", got)
	}
}
