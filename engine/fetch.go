package engine

import (
	"context"
	"errors"

	"codesuggest/logger"
	"codesuggest/scheduler"
	"codesuggest/suggestion"
	"codesuggest/types"
)

type fetchResult struct {
	point    *suggestion.Point
	response *types.FetchResponse
	err      error
}

func (e *Engine) handleFetchTimer(id uint64) {
	p := e.history.Find(id)
	if p == nil {
		// evicted while waiting
		e.resolve(id, Suggestion{}, ErrSuperseded)
		return
	}

	tail := e.history.MostRecent()
	if scheduler.IsSuperseded(p, tail) {
		logger.Info("suggest[%d]: superseded by %d before fetch", p.ID(), tail.ID())
		e.cancelPoint(p, "superseded before fetch")
		e.resolve(id, Suggestion{}, ErrSuperseded)
		return
	}

	now := e.clock.Now()
	if err := p.Submit(now); err != nil {
		logger.Debug("suggest[%d]: %v", p.ID(), err)
		e.resolve(id, Suggestion{}, ErrSuperseded)
		return
	}
	if err := p.FetchStarted(now); err != nil {
		logger.Debug("suggest[%d]: %v", p.ID(), err)
	}
	e.counters.APIRequest()
	e.requestFetch(p)
}

// requestFetch calls the fetcher off the loop and posts the outcome back
func (e *Engine) requestFetch(p *suggestion.Point) {
	ctx, cancel := e.mainCtx, context.CancelFunc(func() {})
	if e.config.FetchTimeout > 0 {
		ctx, cancel = context.WithTimeout(e.mainCtx, e.config.FetchTimeout)
	}

	req := &types.FetchRequest{
		PointID:     p.ID(),
		Document:    p.Document(),
		Position:    p.Position(),
		Prompt:      p.Prompt(),
		TriggerMode: p.Trigger(),
	}

	go func() {
		defer cancel()
		defer logger.Trace("engine.fetch")()

		resp, err := e.fetcher.Fetch(ctx, req)
		e.post(Event{Type: EventFetchDone, Data: &fetchResult{point: p, response: resp, err: err}})
	}()
}

func (e *Engine) handleFetchDone(result *fetchResult) {
	p := result.point
	if err := p.FetchFinished(e.clock.Now()); err != nil {
		logger.Debug("suggest[%d]: %v", p.ID(), err)
	}

	// a later point owns the editor now, whatever this response says
	if tail := e.history.MostRecent(); scheduler.IsSuperseded(p, tail) {
		logger.Info("suggest[%d]: ignoring response, newer point %d at %s", p.ID(), tail.ID(), tail.Key())
		e.counters.APICancel()
		e.cancelPoint(p, "superseded after fetch")
		e.resolve(p.ID(), Suggestion{}, ErrSuperseded)
		return
	}

	if err := result.err; err != nil {
		var te *types.TransportError
		switch {
		case errors.Is(err, context.Canceled):
			logger.Debug("suggest[%d]: fetch canceled: %v", p.ID(), err)
			e.counters.APICancel()
		case errors.As(err, &te):
			logger.Error("suggest[%d]: fetch failed (%s): %v", p.ID(), te.Status(), err)
			e.counters.APIError(te.Status())
		default:
			logger.Error("suggest[%d]: fetch failed: %v", p.ID(), err)
			e.counters.APIError("error")
		}
		e.resolve(p.ID(), Suggestion{}, err)
		return
	}

	e.counters.APISuccess()
	content := ""
	if result.response != nil {
		content = result.response.Content
	}
	if err := p.SetContent(content); err != nil {
		logger.Debug("suggest[%d]: %v", p.ID(), err)
	}
	if content == "" {
		logger.Info("suggest[%d]: no suggestion", p.ID())
	} else {
		logger.Info("suggest[%d]: got %d bytes", p.ID(), len(content))
	}

	e.scheduleCollect(p)
	e.resolve(p.ID(), Suggestion{
		PointID:  p.ID(),
		Text:     content,
		Position: p.Position(),
		Mode:     types.ModeNewest,
	}, nil)
}
