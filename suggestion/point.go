// Package suggestion holds the suggestion point: one suggestion attempt at one
// cursor position, with its text context, timestamps and outcome.
package suggestion

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"codesuggest/types"
)

// ErrInvalidTransition is returned when a state change is not allowed from the
// point's current state. The point is left untouched.
var ErrInvalidTransition = errors.New("invalid state transition")

// Point is safe for concurrent readers; mutation is expected from a single owner.
type Point struct {
	mu sync.RWMutex

	id      uint64
	doc     types.DocumentInfo
	pos     types.Position
	prompt  types.Prompt
	trigger types.TriggerMode

	createTime     time.Time
	submitTime     time.Time
	fetchStartTime time.Time
	fetchEndTime   time.Time
	handleTime     time.Time

	content    string
	hasContent bool
	acceptance types.Acceptance
	correction types.Correction
	actualCode string
}

// Timestamps is a copy of a point's lifecycle times. Zero values were never set.
type Timestamps struct {
	Create     time.Time
	Submit     time.Time
	FetchStart time.Time
	FetchEnd   time.Time
	Handle     time.Time
}

func New(id uint64, doc types.DocumentInfo, pos types.Position, prompt types.Prompt, trigger types.TriggerMode, now time.Time) *Point {
	return &Point{
		id:         id,
		doc:        doc,
		pos:        pos,
		prompt:     prompt,
		trigger:    trigger,
		createTime: now,
	}
}

func (p *Point) ID() uint64                   { return p.id }
func (p *Point) Document() types.DocumentInfo { return p.doc }
func (p *Point) Position() types.Position     { return p.pos }
func (p *Point) Prompt() types.Prompt         { return p.prompt }
func (p *Point) LinePrefix() string           { return p.prompt.LinePrefix }
func (p *Point) Trigger() types.TriggerMode   { return p.trigger }
func (p *Point) CreateTime() time.Time        { return p.createTime }

// Key identifies the point's location for logging
func (p *Point) Key() string {
	return fmt.Sprintf("%s:%d:%d", p.doc.Path, p.pos.Line, p.pos.Column)
}

func (p *Point) Content() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.content
}

// HasContent reports whether a fetch result (possibly empty) has been stored
func (p *Point) HasContent() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.hasContent
}

func (p *Point) Acceptance() types.Acceptance {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.acceptance
}

func (p *Point) Correction() types.Correction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.correction
}

func (p *Point) ActualCode() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.actualCode
}

func (p *Point) Times() Timestamps {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Timestamps{
		Create:     p.createTime,
		Submit:     p.submitTime,
		FetchStart: p.fetchStartTime,
		FetchEnd:   p.fetchEndTime,
		Handle:     p.handleTime,
	}
}

// IsFinished reports whether the acceptance reached a terminal value
func (p *Point) IsFinished() bool {
	return p.Acceptance().IsTerminal()
}

// IsSubmitted reports whether a fetch was issued for the point
func (p *Point) IsSubmitted() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.submitTime.IsZero()
}

// IsSamePosition compares document path, line and column
func (p *Point) IsSamePosition(other *Point) bool {
	if other == nil {
		return false
	}
	return p.doc.Path == other.doc.Path && p.pos == other.pos
}

// IsStrictSamePosition additionally requires the same trigger mode and cursor line prefix
func (p *Point) IsStrictSamePosition(other *Point) bool {
	return p.IsSamePosition(other) &&
		p.trigger == other.trigger &&
		p.prompt.LinePrefix == other.prompt.LinePrefix
}

// IsSameLine compares document path and line only
func (p *Point) IsSameLine(other *Point) bool {
	if other == nil {
		return false
	}
	return p.doc.Path == other.doc.Path && p.pos.Line == other.pos.Line
}

// latestLocked returns the most recent timestamp set so far
func (p *Point) latestLocked() time.Time {
	latest := p.createTime
	for _, t := range []time.Time{p.submitTime, p.fetchStartTime, p.fetchEndTime, p.handleTime} {
		if t.After(latest) {
			latest = t
		}
	}
	return latest
}

// stampLocked clamps now so timestamps never go backward within a point
func (p *Point) stampLocked(now time.Time) time.Time {
	if latest := p.latestLocked(); now.Before(latest) {
		return latest
	}
	return now
}

// Submit records that a fetch is being issued
func (p *Point) Submit(now time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.submitTime.IsZero() || p.acceptance.IsTerminal() {
		return fmt.Errorf("submit point %d (%s): %w", p.id, p.acceptance, ErrInvalidTransition)
	}
	p.submitTime = p.stampLocked(now)
	return nil
}

func (p *Point) FetchStarted(now time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.fetchStartTime.IsZero() {
		return fmt.Errorf("fetch start of point %d already recorded: %w", p.id, ErrInvalidTransition)
	}
	p.fetchStartTime = p.stampLocked(now)
	return nil
}

func (p *Point) FetchFinished(now time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.fetchEndTime.IsZero() {
		return fmt.Errorf("fetch end of point %d already recorded: %w", p.id, ErrInvalidTransition)
	}
	p.fetchEndTime = p.stampLocked(now)
	return nil
}

// SetContent stores the suggestion text. It can be set once; "" means no suggestion.
func (p *Point) SetContent(content string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.hasContent {
		return fmt.Errorf("content of point %d already set: %w", p.id, ErrInvalidTransition)
	}
	p.content = content
	p.hasContent = true
	return nil
}

func (p *Point) Cancel(now time.Time) error {
	return p.terminate(types.AcceptanceCanceled, now)
}

func (p *Point) Accept(now time.Time) error {
	return p.terminate(types.AcceptanceAccepted, now)
}

func (p *Point) Reject(now time.Time) error {
	return p.terminate(types.AcceptanceRejected, now)
}

func (p *Point) terminate(to types.Acceptance, now time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.acceptance != types.AcceptanceNone {
		return fmt.Errorf("point %d %s -> %s: %w", p.id, p.acceptance, to, ErrInvalidTransition)
	}
	p.acceptance = to
	p.handleTime = p.stampLocked(now)
	return nil
}

// Unchanged marks that the user's text ended up matching what was there
func (p *Point) Unchanged() error {
	return p.correct(types.CorrectionUnchanged, "")
}

// Changed marks that the user authored different code
func (p *Point) Changed(code string) error {
	return p.correct(types.CorrectionChanged, code)
}

func (p *Point) correct(to types.Correction, code string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.acceptance.IsTerminal() || p.correction != types.CorrectionNone {
		return fmt.Errorf("point %d correction %s -> %s (acceptance %s): %w",
			p.id, p.correction, to, p.acceptance, ErrInvalidTransition)
	}
	p.correction = to
	p.actualCode = code
	return nil
}
