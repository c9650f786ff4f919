package utils

import (
	"strings"
	"unicode/utf8"
)

// Token estimation constants
const (
	AvgCharsPerToken = 4 // Rough estimation: 1 token ≈ 4 characters
)

// EstimateTokenCount estimates the number of tokens in a slice of strings
func EstimateTokenCount(lines []string) int {
	if len(lines) == 0 {
		return 0
	}

	totalChars := 0
	for _, line := range lines {
		totalChars += len(line) + 1 // +1 for newline
	}

	return (totalChars + AvgCharsPerToken - 1) / AvgCharsPerToken // Ceiling division
}

// EstimateCharsFromTokens estimates the number of characters for a given token count
func EstimateCharsFromTokens(tokens int) int {
	return tokens * AvgCharsPerToken
}

// TrimPrefixToTokens keeps the end of the text before the cursor within maxTokens.
// Whole lines are dropped from the start; a single line that is still too long
// keeps only its tail.
func TrimPrefixToTokens(prefix string, maxTokens int) string {
	maxChars := EstimateCharsFromTokens(maxTokens)
	if maxTokens <= 0 || len(prefix) <= maxChars {
		return prefix
	}

	cut := len(prefix) - maxChars
	for cut < len(prefix) && !utf8.RuneStart(prefix[cut]) {
		cut++
	}
	if i := strings.IndexByte(prefix[cut:], '\n'); i >= 0 && cut+i+1 < len(prefix) {
		return prefix[cut+i+1:]
	}
	return prefix[cut:]
}

// TrimSuffixToTokens keeps the start of the text after the cursor within maxTokens.
func TrimSuffixToTokens(suffix string, maxTokens int) string {
	maxChars := EstimateCharsFromTokens(maxTokens)
	if maxTokens <= 0 || len(suffix) <= maxChars {
		return suffix
	}

	n := maxChars
	for n > 0 && !utf8.RuneStart(suffix[n]) {
		n--
	}
	kept := suffix[:n]
	if i := strings.LastIndexByte(kept, '\n'); i > 0 {
		return kept[:i]
	}
	return kept
}

// TrimContentAroundCursor trims the content to fit within maxTokens while preserving
// context around the cursor position. Returns the trimmed lines, adjusted cursor position, and trim offset.
func TrimContentAroundCursor(lines []string, cursorRow, cursorCol, maxTokens int) ([]string, int, int, int) {
	if maxTokens <= 0 || cursorRow < 0 || cursorRow >= len(lines) {
		return lines, cursorRow, cursorCol, 0
	}

	maxChars := EstimateCharsFromTokens(maxTokens)

	totalChars := 0
	for _, line := range lines {
		totalChars += len(line) + 1 // +1 for newline
	}
	if totalChars <= maxChars {
		return lines, cursorRow, cursorCol, 0
	}

	// Start from cursor line and expand outward, up first
	startLine := cursorRow
	endLine := cursorRow
	currentChars := len(lines[cursorRow]) + 1

	for {
		grew := false
		if startLine > 0 {
			if n := len(lines[startLine-1]) + 1; currentChars+n <= maxChars {
				startLine--
				currentChars += n
				grew = true
			}
		}
		if endLine < len(lines)-1 {
			if n := len(lines[endLine+1]) + 1; currentChars+n <= maxChars {
				endLine++
				currentChars += n
				grew = true
			}
		}
		if !grew {
			break
		}
	}

	trimmedLines := make([]string, endLine-startLine+1)
	copy(trimmedLines, lines[startLine:endLine+1])

	return trimmedLines, cursorRow - startLine, cursorCol, startLine
}
