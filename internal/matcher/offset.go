package matcher

import "unicode/utf8"

// TerminatorWidth is the number of characters counted for the line
// terminator after every line, including the last one.
const TerminatorWidth = 1

// CharLen returns the length of line in characters.
func CharLen(line string) int {
	return utf8.RuneCountInString(line)
}

// NextOffset returns the offset of the line that follows a line starting at
// offset.
func NextOffset(offset int, line string) int {
	return offset + CharLen(line) + TerminatorWidth
}

// LineOffsets returns the starting character offset of every line, given the
// offset of the first one.
func LineOffsets(lines []string, start int) []int {
	offsets := make([]int, len(lines))
	offset := start
	for i, line := range lines {
		offsets[i] = offset
		offset = NextOffset(offset, line)
	}
	return offsets
}
