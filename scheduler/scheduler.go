// Package scheduler throttles fetches: a single debounce slot whose timer is
// replaced by every new request, with a delay that grows after rejections.
package scheduler

import (
	"sync"
	"time"

	"codesuggest/clock"
	"codesuggest/suggestion"
	"codesuggest/types"
)

// DelayConfig holds the debounce delays
type DelayConfig struct {
	Base      time.Duration // auto trigger delay with no recent rejections
	Manual    time.Duration // manual trigger delay
	Increment time.Duration // added per consecutive rejection on the same line
	Max       time.Duration // cap for auto trigger delay
}

// DefaultDelayConfig returns the stock delays
func DefaultDelayConfig() DelayConfig {
	return DelayConfig{
		Base:      300 * time.Millisecond,
		Manual:    50 * time.Millisecond,
		Increment: 1000 * time.Millisecond,
		Max:       3000 * time.Millisecond,
	}
}

// Delay returns how long to wait before fetching
func (c DelayConfig) Delay(trigger types.TriggerMode, rejections int) time.Duration {
	if trigger == types.TriggerManual {
		return c.Manual
	}
	d := c.Base + time.Duration(rejections)*c.Increment
	if c.Max > 0 && d > c.Max {
		d = c.Max
	}
	return d
}

// LineRejections counts rejected points on cur's line, scanning backward from
// the most recent point until a point on another line or an accepted point.
func LineRejections(points []*suggestion.Point, cur *suggestion.Point) int {
	rejected := 0
	for i := len(points) - 1; i >= 0; i-- {
		p := points[i]
		if !p.IsSameLine(cur) {
			break
		}
		switch p.Acceptance() {
		case types.AcceptanceAccepted:
			return rejected
		case types.AcceptanceRejected:
			rejected++
		}
	}
	return rejected
}

// IsSuperseded reports whether a later point has become the tail
func IsSuperseded(p, tail *suggestion.Point) bool {
	return tail != nil && tail.ID() != p.ID()
}

type slot struct {
	id           uint64
	timer        clock.Timer
	onSuperseded func(id uint64)
}

// Scheduler owns the single pending-fetch slot
type Scheduler struct {
	mu      sync.Mutex
	clock   clock.Clock
	pending *slot
}

func New(c clock.Clock) *Scheduler {
	return &Scheduler{clock: c}
}

// Schedule replaces the pending slot with a timer for id. The previous timer is
// stopped before the new one is installed and its onSuperseded runs afterwards,
// outside the lock. fire runs on the timer goroutine once delay elapses, unless
// the slot has been replaced or cancelled in the meantime.
func (s *Scheduler) Schedule(id uint64, delay time.Duration, fire func(id uint64), onSuperseded func(id uint64)) {
	s.mu.Lock()
	prev := s.releaseLocked()

	sl := &slot{id: id, onSuperseded: onSuperseded}
	sl.timer = s.clock.AfterFunc(delay, func() {
		s.mu.Lock()
		if s.pending != sl {
			s.mu.Unlock()
			return
		}
		s.pending = nil
		s.mu.Unlock()

		fire(id)
	})
	s.pending = sl
	s.mu.Unlock()

	notify(prev)
}

// Cancel drops the pending slot, if any, and reports whether one existed
func (s *Scheduler) Cancel() bool {
	s.mu.Lock()
	prev := s.releaseLocked()
	s.mu.Unlock()

	notify(prev)
	return prev != nil
}

// Pending returns the id waiting in the slot
func (s *Scheduler) Pending() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return 0, false
	}
	return s.pending.id, true
}

func (s *Scheduler) releaseLocked() *slot {
	prev := s.pending
	if prev != nil {
		prev.timer.Stop()
		s.pending = nil
	}
	return prev
}

func notify(sl *slot) {
	if sl != nil && sl.onSuperseded != nil {
		sl.onSuperseded(sl.id)
	}
}
