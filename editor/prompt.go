package editor

import (
	"strings"

	"codesuggest/types"
	"codesuggest/utils"
)

// BuildPrompt cuts the text context for a cursor at pos out of the buffer lines.
// With maxTokens > 0 only the lines nearest to the cursor are kept.
func BuildPrompt(lines []string, pos types.Position, maxTokens int) types.Prompt {
	if pos.Line < 0 || pos.Line >= len(lines) {
		return types.Prompt{}
	}

	trimmed, row, col, _ := utils.TrimContentAroundCursor(lines, pos.Line, pos.Column, maxTokens)
	line := trimmed[row]
	col = max(0, min(col, len(line)))

	linePrefix, lineSuffix := line[:col], line[col:]

	var prefix strings.Builder
	for _, l := range trimmed[:row] {
		prefix.WriteString(l)
		prefix.WriteByte('\n')
	}
	prefix.WriteString(linePrefix)

	var suffix strings.Builder
	suffix.WriteString(lineSuffix)
	for _, l := range trimmed[row+1:] {
		suffix.WriteByte('\n')
		suffix.WriteString(l)
	}

	return types.Prompt{
		Prefix:     prefix.String(),
		Suffix:     suffix.String(),
		LinePrefix: linePrefix,
		LineSuffix: lineSuffix,
	}
}
