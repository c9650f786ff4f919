// Package history keeps the ordered, bounded sequence of recent suggestion points.
package history

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"codesuggest/suggestion"
)

// ErrOutOfRange is returned when pruning more points than the history holds
var ErrOutOfRange = errors.New("prune count out of range")

// History is ordered by insertion, which is creation order. Mutation belongs to
// the engine loop; All returns a snapshot any goroutine may read.
type History struct {
	mu        sync.RWMutex
	points    []*suggestion.Point
	maxPoints int
}

// New creates a history holding at most maxPoints points (0 = unbounded)
func New(maxPoints int) *History {
	return &History{maxPoints: maxPoints}
}

// MostRecent returns the tail, or nil when empty
func (h *History) MostRecent() *suggestion.Point {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.points) == 0 {
		return nil
	}
	return h.points[len(h.points)-1]
}

// Append makes p the new tail. When the history is over capacity the oldest
// points are dropped; the number dropped is returned.
func (h *History) Append(p *suggestion.Point) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.points = append(h.points, p)

	evicted := 0
	if h.maxPoints > 0 && len(h.points) > h.maxPoints {
		evicted = len(h.points) - h.maxPoints
		h.dropLocked(evicted)
	}
	return evicted
}

// All returns a copy of the points in insertion order
func (h *History) All() []*suggestion.Point {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*suggestion.Point, len(h.points))
	copy(out, h.points)
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.points)
}

// Find returns the point with the given id, or nil if it is not (or no longer) held
func (h *History) Find(id uint64) *suggestion.Point {
	h.mu.RLock()
	defer h.mu.RUnlock()
	i := sort.Search(len(h.points), func(i int) bool { return h.points[i].ID() >= id })
	if i < len(h.points) && h.points[i].ID() == id {
		return h.points[i]
	}
	return nil
}

// PruneFirst removes the n oldest points
func (h *History) PruneFirst(n int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n < 0 || n > len(h.points) {
		return fmt.Errorf("prune %d of %d points: %w", n, len(h.points), ErrOutOfRange)
	}
	h.dropLocked(n)
	return nil
}

func (h *History) dropLocked(n int) {
	// clear dropped slots so pruned points can be collected
	for i := 0; i < n; i++ {
		h.points[i] = nil
	}
	h.points = h.points[n:]
}
