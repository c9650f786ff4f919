package match

import (
	"testing"
	"time"

	"codesuggest/suggestion"
	"codesuggest/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var doc = types.DocumentInfo{Path: "/w/app.py", Language: "python"}

func pointAt(id uint64, line, col int, linePrefix, content string) *suggestion.Point {
	p := suggestion.New(id, doc, types.Position{Line: line, Column: col}, types.Prompt{LinePrefix: linePrefix}, types.TriggerAuto, time.Unix(0, 0))
	if content != "" {
		if err := p.SetContent(content); err != nil {
			panic(err)
		}
	}
	return p
}

// cursor sits at the end of linePrefix
func typed(id uint64, line int, linePrefix string) *suggestion.Point {
	return pointAt(id, line, len(linePrefix), linePrefix, "")
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name      string
		latest    *suggestion.Point
		candidate *suggestion.Point
		trigger   types.TriggerMode
		want      types.Requirement
	}{
		{
			name:      "no latest point",
			latest:    nil,
			candidate: typed(1, 0, "foo."),
			want:      types.Requirement{Mode: types.ModeNewest},
		},
		{
			name:      "same position with content",
			latest:    pointAt(1, 3, 4, "foo.", "bar()"),
			candidate: typed(2, 3, "foo."),
			want:      types.Requirement{Mode: types.ModeCached},
		},
		{
			name:      "same position without content",
			latest:    pointAt(1, 0, 1, "x", ""),
			candidate: typed(2, 0, "x"),
			want:      types.Requirement{Mode: types.ModeDontNeed},
		},
		{
			name:      "typed a prefix of the suggestion",
			latest:    pointAt(1, 3, 4, "foo.", "bar()"),
			candidate: typed(2, 3, "foo.b"),
			want:      types.Requirement{Mode: types.ModePartial, MatchLen: 1, Remainder: "ar()"},
		},
		{
			name:      "typed the whole suggestion",
			latest:    pointAt(1, 3, 4, "foo.", "bar()"),
			candidate: typed(2, 3, "foo.bar()"),
			want:      types.Requirement{Mode: types.ModeNewest},
		},
		{
			name:      "typed beyond the suggestion",
			latest:    pointAt(1, 3, 4, "foo.", "bar()"),
			candidate: typed(2, 3, "foo.bar();x"),
			want:      types.Requirement{Mode: types.ModeNewest},
		},
		{
			name:      "typed text diverges",
			latest:    pointAt(1, 3, 4, "foo.", "bar()"),
			candidate: typed(2, 3, "foo.q"),
			want:      types.Requirement{Mode: types.ModeNewest},
		},
		{
			name:      "cursor moved backward",
			latest:    pointAt(1, 3, 4, "foo.", "bar()"),
			candidate: typed(2, 3, "foo"),
			want:      types.Requirement{Mode: types.ModeNewest},
		},
		{
			name:      "nothing typed on another line with the same prefix",
			latest:    pointAt(1, 3, 4, "foo.", "bar()"),
			candidate: typed(2, 7, "foo."),
			want:      types.Requirement{Mode: types.ModeCached},
		},
		{
			name:      "empty candidate prefix",
			latest:    pointAt(1, 3, 4, "foo.", "bar()"),
			candidate: pointAt(2, 4, 0, "", ""),
			want:      types.Requirement{Mode: types.ModeNewest},
		},
		{
			name:      "empty latest prefix",
			latest:    pointAt(1, 3, 0, "", "bar()"),
			candidate: typed(2, 3, "b"),
			want:      types.Requirement{Mode: types.ModeNewest},
		},
		{
			name:      "latest without content",
			latest:    pointAt(1, 3, 4, "foo.", ""),
			candidate: typed(2, 3, "foo.b"),
			want:      types.Requirement{Mode: types.ModeNewest},
		},
		{
			name:      "manual overrides partial",
			latest:    pointAt(1, 3, 4, "foo.", "bar()"),
			candidate: typed(2, 3, "foo.b"),
			trigger:   types.TriggerManual,
			want:      types.Requirement{Mode: types.ModeNewest},
		},
		{
			name:      "manual overrides cached at the same position",
			latest:    pointAt(1, 3, 4, "foo.", "bar()"),
			candidate: typed(2, 3, "foo."),
			trigger:   types.TriggerManual,
			want:      types.Requirement{Mode: types.ModeNewest},
		},
		{
			name:      "manual at the same position without content",
			latest:    pointAt(1, 0, 1, "x", ""),
			candidate: typed(2, 0, "x"),
			trigger:   types.TriggerManual,
			want:      types.Requirement{Mode: types.ModeDontNeed},
		},
		{
			name:      "manual overrides cached from matching",
			latest:    pointAt(1, 3, 4, "foo.", "bar()"),
			candidate: typed(2, 7, "foo."),
			trigger:   types.TriggerManual,
			want:      types.Requirement{Mode: types.ModeNewest},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.latest, tt.candidate, tt.trigger)
			assert.Equal(t, tt.want, got, "requirement")
		})
	}
}

func TestPartialRoundTrip(t *testing.T) {
	content := "items.append(value)"
	latest := pointAt(1, 2, 4, "    ", content)

	for n := 1; n < len(content); n++ {
		input := content[:n]
		got := Decide(latest, typed(2, 2, "    "+input), types.TriggerAuto)

		require.Equal(t, types.ModePartial, got.Mode, "input %q", input)
		assert.Equal(t, n, got.MatchLen, "match length for %q", input)
		assert.Equal(t, content, input+got.Remainder, "input + remainder reassembles content")
	}
}

func TestDecideIsPure(t *testing.T) {
	latest := pointAt(1, 3, 4, "foo.", "bar()")
	candidate := typed(2, 3, "foo.ba")

	first := Decide(latest, candidate, types.TriggerAuto)
	second := Decide(latest, candidate, types.TriggerAuto)

	assert.Equal(t, first, second, "idempotent")
	assert.Equal(t, "bar()", latest.Content(), "latest content untouched")
	assert.False(t, candidate.HasContent(), "candidate content untouched")
	assert.Equal(t, types.AcceptanceNone, latest.Acceptance())
	assert.Equal(t, types.AcceptanceNone, candidate.Acceptance())
}

func TestManualNeverReuses(t *testing.T) {
	latest := pointAt(1, 3, 4, "foo.", "bar()")
	candidates := []*suggestion.Point{
		typed(2, 3, "foo.b"),
		typed(3, 3, "foo.bar"),
		typed(4, 9, "foo."),
		typed(5, 3, "foo."),
		typed(6, 3, "zzz"),
	}
	for _, c := range candidates {
		got := Decide(latest, c, types.TriggerManual)
		assert.NotEqual(t, types.ModeCached, got.Mode, "candidate %s", c.LinePrefix())
		assert.NotEqual(t, types.ModePartial, got.Mode, "candidate %s", c.LinePrefix())
	}
}
