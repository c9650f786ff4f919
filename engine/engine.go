package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"codesuggest/clock"
	"codesuggest/history"
	"codesuggest/logger"
	"codesuggest/metrics"
	"codesuggest/outcome"
	"codesuggest/scheduler"
	"codesuggest/suggestion"
	"codesuggest/types"
)

var (
	// ErrSuperseded is returned to a caller whose point was replaced by a newer
	// one before its suggestion could be shown. It is not a failure.
	ErrSuperseded = errors.New("suggestion superseded")
	// ErrStopped is returned once the engine has been stopped
	ErrStopped = errors.New("engine stopped")
)

type EngineConfig struct {
	Delays        scheduler.DelayConfig
	CollectDelay  time.Duration // outcome sampling delay after a suggestion is shown
	FlushInterval time.Duration // telemetry export period (0 = off)
	FetchTimeout  time.Duration // per-request timeout (0 = none)
	MaxHistory    int           // history cap (0 = unbounded)
}

// DefaultEngineConfig returns the stock timings
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Delays:        scheduler.DefaultDelayConfig(),
		CollectDelay:  3000 * time.Millisecond,
		FlushInterval: 3000 * time.Millisecond,
		FetchTimeout:  10 * time.Second,
		MaxHistory:    1000,
	}
}

// Deps are the engine's collaborators. Fetcher and Policy are required; without
// a Reader outcomes are not sampled, without a Sink nothing is flushed.
type Deps struct {
	Fetcher types.Fetcher
	Policy  types.Policy
	Reader  types.DocumentReader
	Sink    metrics.Sink
	Clock   clock.Clock
}

// CursorEvent is one qualifying cursor position reported by the editor
type CursorEvent struct {
	Document types.DocumentInfo
	Position types.Position
	Prompt   types.Prompt
	Trigger  types.TriggerMode
}

// Suggestion is what the editor should display. Empty Text means nothing.
type Suggestion struct {
	PointID  uint64
	Text     string
	Position types.Position
	Mode     types.Mode
}

// DocumentChange is the last content change of an edit
type DocumentChange struct {
	Path       string
	RangeStart types.Position
	Text       string
}

type suggestResult struct {
	suggestion Suggestion
	err        error
}

type Engine struct {
	fetcher  types.Fetcher
	policy   types.Policy
	sink     metrics.Sink
	clock    clock.Clock
	counters *metrics.Counters

	history   *history.History
	scheduler *scheduler.Scheduler
	collector *outcome.Collector

	mu        sync.RWMutex
	eventChan chan Event
	nextID    uint64
	waiters   map[uint64]chan suggestResult

	flushTimer clock.Timer
	uploading  bool

	// Main context and cancel for the engine lifecycle
	mainCtx    context.Context
	mainCancel context.CancelFunc
	stopped    bool
	stopOnce   sync.Once

	config EngineConfig
}

func NewEngine(deps Deps, config EngineConfig) (*Engine, error) {
	if deps.Fetcher == nil {
		return nil, fmt.Errorf("engine needs a fetcher")
	}
	if deps.Policy == nil {
		return nil, fmt.Errorf("engine needs a completion policy")
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}

	e := &Engine{
		fetcher:   deps.Fetcher,
		policy:    deps.Policy,
		sink:      deps.Sink,
		clock:     deps.Clock,
		counters:  metrics.NewCounters(),
		history:   history.New(config.MaxHistory),
		scheduler: scheduler.New(deps.Clock),
		eventChan: make(chan Event, 100),
		waiters:   make(map[uint64]chan suggestResult),
		config:    config,
	}
	if deps.Reader != nil {
		e.collector = outcome.NewCollector(deps.Reader, deps.Clock, config.CollectDelay, func(job *outcome.Job) {
			e.post(Event{Type: EventCollect, Data: job})
		})
	}
	return e, nil
}

func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	if e.stopped || e.mainCtx != nil {
		e.mu.Unlock()
		return
	}

	// Create main context for engine lifecycle
	e.mainCtx, e.mainCancel = context.WithCancel(ctx)
	e.startFlushTimer()
	e.mu.Unlock()

	go e.eventLoop(e.mainCtx)
	logger.Info("engine started")
}

// Stop shuts the engine down. Callers still waiting in Suggest get ErrStopped.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		e.mu.Lock()
		defer e.mu.Unlock()

		logger.Info("stopping engine...")

		// Mark as stopped to prevent new operations
		e.stopped = true
		// Cancel main context to stop event loop and in-flight fetches
		if e.mainCancel != nil {
			e.mainCancel()
		}
		for id, reply := range e.waiters {
			reply <- suggestResult{err: ErrStopped}
			delete(e.waiters, id)
		}
		e.scheduler.Cancel()
		if e.collector != nil {
			e.collector.Stop()
		}
		e.stopFlushTimer()

		logger.Info("engine stopped")
	})
}

func (e *Engine) eventLoop(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("event loop panic recovered: %v", r)
			e.eventLoop(ctx) // Restart the event loop
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-e.eventChan:
			// Wrap event handling in its own recovery
			func() {
				defer func() {
					if r := recover(); r != nil {
						logger.Error("event handler panic recovered for event %v: %v", event.Type, r)
					}
				}()
				e.handleEvent(event)
			}()
		}
	}
}

// post hands an event to the loop. Events posted before Start or after Stop
// are dropped. Must not be called with e.mu held.
func (e *Engine) post(event Event) bool {
	e.mu.RLock()
	stopped := e.stopped
	mainCtx := e.mainCtx
	e.mu.RUnlock()

	if stopped || mainCtx == nil {
		return false
	}

	select {
	case e.eventChan <- event:
		return true
	case <-mainCtx.Done():
		return false
	}
}

// done is closed once the engine stops
func (e *Engine) done() <-chan struct{} {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.mainCtx == nil {
		return nil
	}
	return e.mainCtx.Done()
}

// Suggest runs the decision for a cursor event and blocks until a suggestion is
// available, the point is superseded (ErrSuperseded), the fetch fails, or ctx ends.
func (e *Engine) Suggest(ctx context.Context, ev CursorEvent) (Suggestion, error) {
	reply := make(chan suggestResult, 1)
	if !e.post(Event{Type: EventSuggest, Data: &suggestRequest{event: ev, reply: reply}}) {
		return Suggestion{}, ErrStopped
	}

	select {
	case r := <-reply:
		return r.suggestion, r.err
	case <-ctx.Done():
		return Suggestion{}, ctx.Err()
	case <-e.done():
		return Suggestion{}, ErrStopped
	}
}

// DocumentChanged reports the last change of an edit for accept detection
func (e *Engine) DocumentChanged(change DocumentChange) {
	e.post(Event{Type: EventDocumentChanged, Data: change})
}

// ExportFinishedPoints returns records for the finished prefix of history,
// excluding the most recent point. Safe to call from any goroutine.
func (e *Engine) ExportFinishedPoints() []metrics.Record {
	return metrics.Export(e.history.All())
}

// PruneExported drops the n oldest points once their records were consumed.
// It fails with history.ErrOutOfRange if n exceeds the history length.
func (e *Engine) PruneExported(ctx context.Context, n int) error {
	reply := make(chan error, 1)
	if !e.post(Event{Type: EventPrune, Data: &pruneRequest{count: n, reply: reply}}) {
		return ErrStopped
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done():
		return ErrStopped
	}
}

// Counters returns a snapshot of the usage and error counters
func (e *Engine) Counters() metrics.CounterSnapshot {
	return e.counters.Snapshot()
}

func (e *Engine) handleEvent(event Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Double-check we're not stopped while holding the lock
	if e.stopped {
		return
	}

	logger.Debug("handle event: %v", event.Type)

	switch event.Type {
	case EventSuggest:
		e.handleSuggest(event.Data.(*suggestRequest))
	case EventFetchTimer:
		e.handleFetchTimer(event.Data.(uint64))
	case EventFetchDone:
		e.handleFetchDone(event.Data.(*fetchResult))
	case EventDocumentChanged:
		e.handleDocumentChanged(event.Data.(DocumentChange))
	case EventCollect:
		e.handleCollect(event.Data.(*outcome.Job))
	case EventFlush:
		e.handleFlush()
	case EventFlushDone:
		e.handleFlushDone(event.Data.(*flushResult))
	case EventPrune:
		req := event.Data.(*pruneRequest)
		req.reply <- e.history.PruneFirst(req.count)
	}
}

// resolve answers the caller waiting for id, if any
func (e *Engine) resolve(id uint64, s Suggestion, err error) {
	reply, ok := e.waiters[id]
	if !ok {
		return
	}
	delete(e.waiters, id)
	reply <- suggestResult{suggestion: s, err: err}
}

// cancelPoint cancels p if it has no outcome yet
func (e *Engine) cancelPoint(p *suggestion.Point, reason string) {
	if p.Acceptance() != types.AcceptanceNone {
		return
	}
	if err := p.Cancel(e.clock.Now()); err != nil {
		logger.Debug("suggest[%d]: cancel: %v", p.ID(), err)
		return
	}
	if p.IsSubmitted() {
		logger.Debug("suggest[%d]: canceled with a fetch issued (%s)", p.ID(), reason)
		return
	}
	logger.Debug("suggest[%d]: canceled (%s)", p.ID(), reason)
}
