package scanner

import (
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/textmatcher/internal/matcher"
)

func TestBatcherHeaders(t *testing.T) {
	b := NewBatcher(1000)
	var batches []matcher.Batch
	wantOffsets := []int{0}
	offset := 0
	for i := 1; i <= 2500; i++ {
		line := fmt.Sprintf("line %d", i)
		offset = matcher.NextOffset(offset, line)
		if i == 1000 || i == 2000 {
			wantOffsets = append(wantOffsets, offset)
		}
		if batch, ok := b.Add(line); ok {
			batches = append(batches, batch)
		}
	}
	if batch, ok := b.Flush(); ok {
		batches = append(batches, batch)
	}
	if _, ok := b.Flush(); ok {
		t.Fatal("second Flush returned a batch")
	}

	if len(batches) != 3 || b.Batches() != 3 {
		t.Fatalf("got %d batches (counter %d), want 3", len(batches), b.Batches())
	}
	wantStart := []int{1, 1001, 2001}
	wantLen := []int{1000, 1000, 500}
	for i, batch := range batches {
		if batch.StartLine != wantStart[i] || batch.StartOffset != wantOffsets[i] || len(batch.Lines) != wantLen[i] {
			t.Errorf("batch %d: start line %d offset %d len %d, want %d %d %d",
				i, batch.StartLine, batch.StartOffset, len(batch.Lines), wantStart[i], wantOffsets[i], wantLen[i])
		}
	}
	if b.Lines() != 2500 || b.Offset() != offset {
		t.Errorf("Lines/Offset = %d/%d, want 2500/%d", b.Lines(), b.Offset(), offset)
	}
}

func TestBatcherBatchesAreIndependent(t *testing.T) {
	b := NewBatcher(2)
	first, _ := b.Add("a")
	first, ok := b.Add("b")
	if !ok {
		t.Fatal("expected full batch")
	}
	b.Add("c")
	second, _ := b.Flush()
	if first.Lines[0] != "a" || first.Lines[1] != "b" || second.Lines[0] != "c" {
		t.Fatalf("batches share storage: %q %q", first.Lines, second.Lines)
	}
}

func TestBatcherEmpty(t *testing.T) {
	b := NewBatcher(0)
	if _, ok := b.Flush(); ok {
		t.Fatal("empty batcher produced a batch")
	}
	if batch, ok := b.Add("x"); !ok || batch.StartLine != 1 {
		t.Fatalf("size<1 should behave as size 1, got %v %v", batch, ok)
	}
}
