// Package match decides whether a new cursor position can reuse the most recent
// suggestion instead of fetching a fresh one.
package match

import (
	"strings"

	"codesuggest/suggestion"
	"codesuggest/types"
)

// Decide compares the candidate point against the latest point in history.
// It is pure: neither point is modified.
func Decide(latest, candidate *suggestion.Point, trigger types.TriggerMode) types.Requirement {
	req := decide(latest, candidate)
	// manual invocation always asks for a fresh result
	if trigger == types.TriggerManual && (req.Mode == types.ModePartial || req.Mode == types.ModeCached) {
		return types.Requirement{Mode: types.ModeNewest}
	}
	return req
}

func decide(latest, candidate *suggestion.Point) types.Requirement {
	if latest == nil {
		return types.Requirement{Mode: types.ModeNewest}
	}
	if candidate.IsSamePosition(latest) {
		if latest.Content() == "" {
			return types.Requirement{Mode: types.ModeDontNeed}
		}
		return types.Requirement{Mode: types.ModeCached}
	}
	return MatchCompletion(latest, candidate)
}

// MatchCompletion checks whether the text typed since the latest point is a
// prefix of its suggestion.
//
//	lastPrefix | lastContent .................... |
//	curPrefix  | input ....... | remainder ...... |
func MatchCompletion(latest, candidate *suggestion.Point) types.Requirement {
	lastPrefix := latest.LinePrefix()
	lastContent := latest.Content()
	curPrefix := candidate.LinePrefix()

	if lastPrefix == "" || curPrefix == "" || lastContent == "" || len(curPrefix) < len(lastPrefix) {
		return types.Requirement{Mode: types.ModeNewest}
	}

	input := curPrefix[len(lastPrefix):]
	if input == "" {
		return types.Requirement{Mode: types.ModeCached}
	}
	if len(input) >= len(lastContent) || !strings.HasPrefix(lastContent, input) {
		return types.Requirement{Mode: types.ModeNewest}
	}

	return types.Requirement{
		Mode:      types.ModePartial,
		MatchLen:  len(input),
		Remainder: lastContent[len(input):],
	}
}
