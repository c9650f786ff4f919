package engine

import (
	"strings"

	"codesuggest/logger"
	"codesuggest/match"
	"codesuggest/outcome"
	"codesuggest/scheduler"
	"codesuggest/suggestion"
	"codesuggest/text"
	"codesuggest/types"
)

type EventType string

// Event type constants
const (
	EventSuggest         EventType = "suggest"
	EventFetchTimer      EventType = "fetch_timer"
	EventFetchDone       EventType = "fetch_done"
	EventDocumentChanged EventType = "document_changed"
	EventCollect         EventType = "collect"
	EventFlush           EventType = "flush"
	EventFlushDone       EventType = "flush_done"
	EventPrune           EventType = "prune"
)

type Event struct {
	Type EventType
	Data any
}

type suggestRequest struct {
	event CursorEvent
	reply chan suggestResult
}

type pruneRequest struct {
	count int
	reply chan error
}

func (e *Engine) handleSuggest(req *suggestRequest) {
	ev := req.event
	reply := func(s Suggestion) { req.reply <- suggestResult{suggestion: s} }

	if !e.policy.IsCompletionAllowed(ev.Document.Language, ev.Trigger) {
		reply(Suggestion{Mode: types.ModeDontNeed})
		return
	}
	if ev.Position.IsOrigin() {
		logger.Debug("suggest: nothing before the cursor, skipping")
		reply(Suggestion{Mode: types.ModeDontNeed})
		return
	}

	e.cancelStale()

	now := e.clock.Now()
	e.nextID++
	p := suggestion.New(e.nextID, ev.Document, ev.Position, ev.Prompt, ev.Trigger, now)

	latest := e.history.MostRecent()
	required := match.Decide(latest, p, ev.Trigger)

	switch required.Mode {
	case types.ModeDontNeed:
		logger.Debug("suggest: %s at %s needs nothing", p.Key(), ev.Trigger)
		reply(Suggestion{Mode: types.ModeDontNeed})
		return

	case types.ModeCached:
		logger.Debug("suggest[%d]: reusing at %s", latest.ID(), p.Key())
		reply(Suggestion{
			PointID:  latest.ID(),
			Text:     latest.Content(),
			Position: latest.Position(),
			Mode:     types.ModeCached,
		})
		return

	case types.ModePartial:
		e.history.Append(p)
		if err := p.SetContent(required.Remainder); err != nil {
			logger.Debug("suggest[%d]: %v", p.ID(), err)
		}
		if err := p.FetchFinished(now); err != nil {
			logger.Debug("suggest[%d]: %v", p.ID(), err)
		}
		logger.Debug("suggest[%d]: partial reuse of %d, matched %d", p.ID(), latest.ID(), required.MatchLen)
		reply(Suggestion{
			PointID:  p.ID(),
			Text:     required.Remainder,
			Position: p.Position(),
			Mode:     types.ModePartial,
		})
		return
	}

	if evicted := e.history.Append(p); evicted > 0 {
		logger.Debug("suggest: history full, evicted %d points", evicted)
	}
	delay := e.config.Delays.Delay(ev.Trigger, scheduler.LineRejections(e.history.All(), p))
	logger.Info("suggest[%d]: scheduled, trigger %s, position %s, delay %v", p.ID(), ev.Trigger, ev.Position, delay)

	e.waiters[p.ID()] = req.reply
	e.scheduler.Schedule(p.ID(), delay, func(id uint64) {
		e.post(Event{Type: EventFetchTimer, Data: id})
	}, e.handleSuperseded)
}

// cancelStale cancels every undecided point except the most recent one
func (e *Engine) cancelStale() {
	points := e.history.All()
	for i := 0; i < len(points)-1; i++ {
		e.cancelPoint(points[i], "stale")
	}
}

// handleSuperseded runs when a pending debounce slot is replaced or cleared
func (e *Engine) handleSuperseded(id uint64) {
	if p := e.history.Find(id); p != nil {
		e.cancelPoint(p, "debounce superseded")
	}
	e.resolve(id, Suggestion{}, ErrSuperseded)
}

func (e *Engine) handleDocumentChanged(change DocumentChange) {
	cur := e.history.MostRecent()
	if cur == nil {
		return
	}
	if cur.Document().Path != change.Path || cur.Position() != change.RangeStart {
		return
	}

	inserted := strings.TrimSpace(change.Text)
	content := cur.Content()
	if inserted == "" || content == "" {
		return
	}
	if text.NormalizeNewlines(content) != text.NormalizeNewlines(inserted) {
		return
	}

	if err := cur.Accept(e.clock.Now()); err != nil {
		logger.Debug("suggest[%d]: accept: %v", cur.ID(), err)
		return
	}
	logger.Info("suggest[%d]: accepted: %s", cur.ID(), inserted)
	e.scheduler.Cancel()
}

func (e *Engine) handleCollect(job *outcome.Job) {
	if e.collector == nil {
		return
	}
	if _, err := e.collector.Sample(job); err != nil {
		logger.Warn("suggest[%d]: collect failed: %v", job.Point.ID(), err)
	}
}

// scheduleCollect starts outcome sampling for a shown point
func (e *Engine) scheduleCollect(p *suggestion.Point) {
	if e.collector == nil || p.Content() == "" {
		return
	}
	if _, err := e.collector.Schedule(p); err != nil {
		logger.Warn("suggest[%d]: failed to read origin text: %v", p.ID(), err)
	}
}
