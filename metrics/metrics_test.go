package metrics

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"codesuggest/suggestion"
	"codesuggest/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Unix(1700000000, 0).UTC()

func newPoint(id uint64) *suggestion.Point {
	return suggestion.New(id, types.DocumentInfo{Path: "main.go", Language: "go"},
		types.Position{Line: 3, Column: 1}, types.Prompt{LinePrefix: "x"}, types.TriggerAuto, epoch)
}

func finished(t *testing.T, id uint64, content string) *suggestion.Point {
	t.Helper()
	p := newPoint(id)
	require.NoError(t, p.Submit(epoch.Add(300*time.Millisecond)))
	require.NoError(t, p.FetchStarted(epoch.Add(300*time.Millisecond)))
	require.NoError(t, p.FetchFinished(epoch.Add(500*time.Millisecond)))
	require.NoError(t, p.SetContent(content))
	require.NoError(t, p.Accept(epoch.Add(900*time.Millisecond)))
	return p
}

func TestExport(t *testing.T) {
	p1 := finished(t, 1, "a")
	p2 := finished(t, 2, "b")
	open := newPoint(3)
	p4 := finished(t, 4, "d")
	tail := finished(t, 5, "e")

	tests := []struct {
		name   string
		points []*suggestion.Point
		want   []uint64
	}{
		{"empty", nil, nil},
		{"tail only", []*suggestion.Point{tail}, nil},
		{"finished prefix without tail", []*suggestion.Point{p1, p2, tail}, []uint64{1, 2}},
		{"stops at first unfinished", []*suggestion.Point{p1, p2, open, p4, tail}, []uint64{1, 2}},
		{"unfinished first", []*suggestion.Point{open, p1, tail}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []uint64
			for _, r := range Export(tt.points) {
				got = append(got, r.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewRecord(t *testing.T) {
	p := finished(t, 9, "foo()\nbar()")
	require.NoError(t, p.Changed("foo()\nbaz()\nqux()"))

	r := NewRecord(p)
	assert.Equal(t, uint64(9), r.ID)
	assert.Equal(t, "go", r.Language)
	assert.Equal(t, "auto", r.TriggerMode)
	assert.Equal(t, "accepted", r.Acceptance)
	assert.Equal(t, "changed", r.Correction)
	assert.Equal(t, int64(500), r.LatencyMs, "fetch end, not accept time")
	assert.Equal(t, epoch.Add(300*time.Millisecond), r.FetchStartTime)
	assert.Equal(t, 2, r.Additions, "baz and qux")
	assert.Equal(t, 1, r.Deletions, "bar")
}

func TestLatency(t *testing.T) {
	create := epoch
	tests := []struct {
		name string
		ts   suggestion.Timestamps
		want time.Duration
	}{
		{"nothing after create", suggestion.Timestamps{Create: create}, 0},
		{"fetched", suggestion.Timestamps{Create: create, FetchEnd: create.Add(200 * time.Millisecond)}, 200 * time.Millisecond},
		{"accepted long after fetch", suggestion.Timestamps{
			Create:   create,
			FetchEnd: create.Add(500 * time.Millisecond),
			Handle:   create.Add(8 * time.Second),
		}, 500 * time.Millisecond},
		{"canceled before fetch", suggestion.Timestamps{Create: create, Handle: create.Add(time.Second)}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Latency(tt.ts))
		})
	}
}

func TestCounters(t *testing.T) {
	c := NewCounters()
	c.APIRequest()
	c.APIRequest()
	c.APIRequest()
	c.APISuccess()
	c.APICancel()
	c.APIError("http_500")
	c.APIError("http_500")
	c.APIError("timeout")
	c.Memo(3, true)
	c.Memo(2, false)
	c.Upload(true)

	s := c.Snapshot()
	assert.Equal(t, 3, s.APITotal)
	assert.Equal(t, 1, s.APIOK)
	assert.Equal(t, 1, s.APICancel)
	assert.Equal(t, 3, s.APIError)
	assert.Equal(t, map[string]int{"http_500": 2, "timeout": 1}, s.ErrorStatus)
	assert.Equal(t, 3, s.MemoOK)
	assert.Equal(t, 2, s.MemoFailed)
	assert.Equal(t, 1, s.UploadOK)
	assert.Equal(t, 0, s.UploadFailed)

	s.ErrorStatus["timeout"] = 99
	assert.Equal(t, 1, c.Snapshot().ErrorStatus["timeout"], "snapshot is a copy")
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry", "records.jsonl")
	sink := NewFileSink(path)

	records := Export([]*suggestion.Point{finished(t, 1, "a"), finished(t, 2, "b"), newPoint(3)})
	require.Len(t, records, 2)
	require.NoError(t, sink.Upload(context.Background(), records))
	require.NoError(t, sink.Upload(context.Background(), nil), "empty batch is a no-op")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		lines = append(lines, line)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, float64(1), lines[0]["id"])
	assert.Equal(t, "accepted", lines[1]["acceptance"])
	assert.NotEmpty(t, lines[0]["batch"])
	assert.Equal(t, lines[0]["batch"], lines[1]["batch"], "one batch id per upload")
	assert.NotContains(t, lines[0], "correction", "unset correction is omitted")
}

func TestFileSinkCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := NewFileSink(filepath.Join(t.TempDir(), "r.jsonl"))
	err := sink.Upload(ctx, []Record{{ID: 1}})
	assert.ErrorIs(t, err, context.Canceled)
}
