package types

import (
	"fmt"
	"strings"
)

// TriggerMode is how a suggestion was requested
type TriggerMode int

const (
	TriggerAuto   TriggerMode = iota // typing pause
	TriggerManual                    // explicit shortcut
)

func (m TriggerMode) String() string {
	switch m {
	case TriggerAuto:
		return "auto"
	case TriggerManual:
		return "manual"
	default:
		return "unknown"
	}
}

// ParseTriggerMode parses "auto" or "manual", defaulting to auto
func ParseTriggerMode(s string) TriggerMode {
	if strings.EqualFold(strings.TrimSpace(s), "manual") {
		return TriggerManual
	}
	return TriggerAuto
}

// Acceptance is the user's verdict on a suggestion point
type Acceptance int

const (
	AcceptanceNone     Acceptance = iota // no outcome yet
	AcceptanceCanceled                   // superseded or invalidated before an outcome
	AcceptanceAccepted                   // user took the suggestion
	AcceptanceRejected                   // user left the text as it was
)

func (a Acceptance) String() string {
	switch a {
	case AcceptanceNone:
		return "none"
	case AcceptanceCanceled:
		return "canceled"
	case AcceptanceAccepted:
		return "accepted"
	case AcceptanceRejected:
		return "rejected"
	default:
		return ""
	}
}

// IsTerminal reports whether the acceptance can no longer change
func (a Acceptance) IsTerminal() bool {
	return a == AcceptanceCanceled || a == AcceptanceAccepted || a == AcceptanceRejected
}

// Correction is the post-hoc comparison of the user's text against the suggestion
type Correction int

const (
	CorrectionNone Correction = iota
	CorrectionUnchanged
	CorrectionChanged
)

func (c Correction) String() string {
	switch c {
	case CorrectionNone:
		return "none"
	case CorrectionUnchanged:
		return "unchanged"
	case CorrectionChanged:
		return "changed"
	default:
		return ""
	}
}

// Mode is the reuse decision for a new cursor position
type Mode int

const (
	ModeDontNeed Mode = iota // no suggestion needed
	ModeCached               // show the latest suggestion verbatim
	ModePartial              // show the remainder of the latest suggestion
	ModeNewest               // fetch a fresh suggestion
)

func (m Mode) String() string {
	switch m {
	case ModeDontNeed:
		return "dont_need"
	case ModeCached:
		return "cached"
	case ModePartial:
		return "partial"
	case ModeNewest:
		return "newest"
	default:
		return "unknown"
	}
}

// Requirement is the outcome of matching a candidate point against the latest one.
// MatchLen and Remainder are only meaningful for ModePartial.
type Requirement struct {
	Mode      Mode
	MatchLen  int
	Remainder string
}

// DocumentInfo identifies the document a point was created in
type DocumentInfo struct {
	Path     string
	Language string
}

// Position is a zero-based cursor location
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// IsOrigin reports whether the position is the very start of the document
func (p Position) IsOrigin() bool {
	return p.Line == 0 && p.Column == 0
}

// Prompt is the text context around the cursor at point creation
type Prompt struct {
	Prefix     string // everything before the cursor
	Suffix     string // everything after the cursor
	LinePrefix string // cursor line before the cursor
	LineSuffix string // cursor line after the cursor
}

// Policy decides whether completion is allowed at all for a language
type Policy interface {
	IsCompletionAllowed(language string, mode TriggerMode) bool
}

// DocumentReader samples the editor's current text.
// ReadSpan returns the text from `from` to the end of line from.Line+extraLines,
// clamped to the last line of the document.
type DocumentReader interface {
	ReadSpan(path string, from Position, extraLines int) (string, error)
}
