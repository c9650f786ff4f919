// Package metrics turns finished suggestion points into telemetry records and
// keeps the usage and error counters.
package metrics

import (
	"context"
	"time"

	"codesuggest/suggestion"
	"codesuggest/text"
	"codesuggest/types"
)

// Record is the exported view of one finished suggestion point
type Record struct {
	ID             uint64    `json:"id"`
	Path           string    `json:"path"`
	Language       string    `json:"language"`
	TriggerMode    string    `json:"trigger_mode"`
	Acceptance     string    `json:"acceptance"`
	Correction     string    `json:"correction,omitempty"`
	ActualCode     string    `json:"actual_code,omitempty"`
	CreateTime     time.Time `json:"create_time"`
	FetchStartTime time.Time `json:"fetch_start_time,omitzero"`
	FetchEndTime   time.Time `json:"fetch_end_time,omitzero"`
	HandleTime     time.Time `json:"handle_time,omitzero"`
	LatencyMs      int64     `json:"latency_ms"`
	Additions      int       `json:"additions"` // lines the user added relative to the suggestion
	Deletions      int       `json:"deletions"` // suggestion lines the user dropped
}

// NewRecord snapshots a point
func NewRecord(p *suggestion.Point) Record {
	ts := p.Times()
	r := Record{
		ID:             p.ID(),
		Path:           p.Document().Path,
		Language:       p.Document().Language,
		TriggerMode:    p.Trigger().String(),
		Acceptance:     p.Acceptance().String(),
		ActualCode:     p.ActualCode(),
		CreateTime:     ts.Create,
		FetchStartTime: ts.FetchStart,
		FetchEndTime:   ts.FetchEnd,
		HandleTime:     ts.Handle,
		LatencyMs:      Latency(ts).Milliseconds(),
	}
	if c := p.Correction(); c != types.CorrectionNone {
		r.Correction = c.String()
	}
	if p.Correction() == types.CorrectionChanged {
		r.Additions, r.Deletions = text.LineStats(p.Content(), p.ActualCode())
	}
	return r
}

// Latency is the time from creation until the response arrived. Points that
// never finished a fetch report 0.
func Latency(ts suggestion.Timestamps) time.Duration {
	if ts.FetchEnd.IsZero() || ts.FetchEnd.Before(ts.Create) {
		return 0
	}
	return ts.FetchEnd.Sub(ts.Create)
}

// Export returns records for the finished prefix of points. The last point is
// never exported since it may still change, and the scan stops at the first
// point that is not finished so records stay in order.
func Export(points []*suggestion.Point) []Record {
	if len(points) < 2 {
		return nil
	}
	var records []Record
	for _, p := range points[:len(points)-1] {
		if !p.IsFinished() {
			break
		}
		records = append(records, NewRecord(p))
	}
	return records
}

// Sink receives exported batches. Upload must not retain the slice.
type Sink interface {
	Upload(ctx context.Context, records []Record) error
}

// DiscardSink drops everything
type DiscardSink struct{}

func (DiscardSink) Upload(context.Context, []Record) error { return nil }
