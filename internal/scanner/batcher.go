package scanner

import "github.com/Adithya-Monish-Kumar-K/textmatcher/internal/matcher"

// Batcher groups consecutive lines into batches of a fixed size and stamps
// each batch with the line number and character offset of its first line.
// Offsets advance with matcher.NextOffset, the same rule the matcher uses
// inside a batch, so batch boundaries never move a location.
type Batcher struct {
	size       int
	lineNumber int
	offset     int
	batchStart int
	pending    []string
	batches    int
}

// NewBatcher returns a Batcher emitting batches of size lines.
func NewBatcher(size int) *Batcher {
	if size < 1 {
		size = 1
	}
	return &Batcher{size: size, pending: make([]string, 0, size)}
}

// Add appends line to the pending batch and returns the batch once it is full.
func (b *Batcher) Add(line string) (matcher.Batch, bool) {
	if len(b.pending) == 0 {
		b.batchStart = b.offset
	}
	b.pending = append(b.pending, line)
	b.lineNumber++
	b.offset = matcher.NextOffset(b.offset, line)
	if len(b.pending) < b.size {
		return matcher.Batch{}, false
	}
	return b.cut(), true
}

// Flush returns the partially filled batch, if any.
func (b *Batcher) Flush() (matcher.Batch, bool) {
	if len(b.pending) == 0 {
		return matcher.Batch{}, false
	}
	return b.cut(), true
}

func (b *Batcher) cut() matcher.Batch {
	batch := matcher.Batch{
		Lines:       b.pending,
		StartLine:   b.lineNumber - len(b.pending) + 1,
		StartOffset: b.batchStart,
	}
	b.pending = make([]string, 0, b.size)
	b.batches++
	return batch
}

// Lines returns the number of lines consumed so far.
func (b *Batcher) Lines() int { return b.lineNumber }

// Offset returns the cumulative character offset after the last line.
func (b *Batcher) Offset() int { return b.offset }

// Batches returns the number of batches emitted so far.
func (b *Batcher) Batches() int { return b.batches }
