package text

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// NormalizeNewlines converts CRLF line endings to LF
func NormalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// SplitLines splits on LF after normalizing line endings. An empty string is one empty line.
func SplitLines(s string) []string {
	return strings.Split(NormalizeNewlines(s), "\n")
}

// ExtraLines returns how many lines a text spans beyond its first
func ExtraLines(s string) int {
	return strings.Count(NormalizeNewlines(s), "\n")
}

// SpanText returns the text from (line, col) to the end of line+extraLines, clamped
// to the buffer. Columns are byte offsets. Out-of-range starts yield "".
func SpanText(lines []string, line, col, extraLines int) string {
	if line < 0 || line >= len(lines) {
		return ""
	}
	end := min(line+extraLines, len(lines)-1)

	first := lines[line]
	col = max(0, min(col, len(first)))
	if end == line {
		return first[col:]
	}

	var b strings.Builder
	b.WriteString(first[col:])
	for i := line + 1; i <= end; i++ {
		b.WriteByte('\n')
		b.WriteString(lines[i])
	}
	return b.String()
}

// LineStats counts added and deleted lines going from before to after
func LineStats(before, after string) (additions, deletions int) {
	before, after = NormalizeNewlines(before), NormalizeNewlines(after)
	if before == after {
		return 0, 0
	}

	dmp := diffmatchpatch.New()
	chars1, chars2, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(chars1, chars2, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	for _, d := range diffs {
		n := countLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			additions += n
		case diffmatchpatch.DiffDelete:
			deletions += n
		}
	}
	return additions, deletions
}

// countLines counts lines in a diff chunk; a trailing newline does not start a new line
func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}
