package engine

import (
	"context"
	"errors"

	"codesuggest/logger"
	"codesuggest/metrics"
)

type flushResult struct {
	records int
	lastID  uint64
	err     error
}

func (e *Engine) startFlushTimer() {
	e.stopFlushTimer()
	if e.sink == nil || e.config.FlushInterval <= 0 {
		return
	}
	e.flushTimer = e.clock.AfterFunc(e.config.FlushInterval, func() {
		e.post(Event{Type: EventFlush})
	})
}

func (e *Engine) stopFlushTimer() {
	if e.flushTimer != nil {
		e.flushTimer.Stop()
		e.flushTimer = nil
	}
}

// handleFlush exports the finished prefix and uploads it off the loop. Points
// are pruned only after the sink accepted them.
func (e *Engine) handleFlush() {
	defer e.startFlushTimer()

	if e.uploading {
		return
	}
	records := metrics.Export(e.history.All())
	if len(records) == 0 {
		return
	}

	e.uploading = true
	ctx, sink := e.mainCtx, e.sink
	lastID := records[len(records)-1].ID

	go func() {
		defer logger.Trace("engine.flush")()
		err := sink.Upload(ctx, records)
		e.post(Event{Type: EventFlushDone, Data: &flushResult{records: len(records), lastID: lastID, err: err}})
	}()
}

func (e *Engine) handleFlushDone(result *flushResult) {
	e.uploading = false
	ok := result.err == nil
	e.counters.Memo(result.records, ok)
	e.counters.Upload(ok)

	if !ok {
		if !errors.Is(result.err, context.Canceled) {
			logger.Warn("telemetry: upload of %d records failed: %v", result.records, result.err)
		}
		return
	}

	// eviction may have dropped some exported points in the meantime
	n := 0
	for _, p := range e.history.All() {
		if p.ID() > result.lastID {
			break
		}
		n++
	}
	if err := e.history.PruneFirst(n); err != nil {
		logger.Warn("telemetry: prune %d: %v", n, err)
		return
	}
	logger.Debug("telemetry: uploaded %d records, pruned %d points", result.records, n)
}
