package outcome

import (
	"errors"
	"testing"
	"time"

	"codesuggest/clock"
	"codesuggest/suggestion"
	"codesuggest/text"
	"codesuggest/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Unix(1700000000, 0)

// mockReader serves spans out of in-memory buffers keyed by path
type mockReader struct {
	buffers map[string][]string
	err     error
	reads   int
}

func (r *mockReader) ReadSpan(path string, from types.Position, extraLines int) (string, error) {
	r.reads++
	if r.err != nil {
		return "", r.err
	}
	return text.SpanText(r.buffers[path], from.Line, from.Column, extraLines), nil
}

func shown(id uint64, content string) *suggestion.Point {
	p := suggestion.New(id, types.DocumentInfo{Path: "main.go", Language: "go"},
		types.Position{Line: 1, Column: 4}, types.Prompt{LinePrefix: "\tfoo"}, types.TriggerAuto, epoch)
	if err := p.SetContent(content); err != nil {
		panic(err)
	}
	return p
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name                       string
		completion, origin, actual string
		want                       Verdict
	}{
		{
			name:       "actual matches completion",
			completion: "bar()\n}",
			origin:     "\n}",
			actual:     "bar()\r\n}",
			want:       Verdict{Correction: types.CorrectionUnchanged},
		},
		{
			name:       "nothing changed",
			completion: "bar()",
			origin:     "\n}",
			actual:     "\r\n}",
			want:       Verdict{Reject: true, Correction: types.CorrectionUnchanged},
		},
		{
			name:       "empty completion and empty actual",
			completion: "",
			origin:     "",
			actual:     "",
			want:       Verdict{Reject: true, Correction: types.CorrectionUnchanged},
		},
		{
			name:       "last line is new so everything is authored",
			completion: "bar()\nbaz()",
			origin:     "\n}",
			actual:     "qux()\n}\nreturn nil",
			want:       Verdict{Correction: types.CorrectionChanged, ActualCode: "qux()\n}\nreturn nil"},
		},
		{
			name:       "only non-origin lines are kept",
			completion: "bar()\nbaz()\n",
			origin:     "\n}\n",
			actual:     "qux()\n\tx := 1\n}",
			want:       Verdict{Correction: types.CorrectionChanged, ActualCode: "qux()\n\tx := 1"},
		},
		{
			name:       "lines recurring in origin are not counted",
			completion: "bar()",
			origin:     "a\nb",
			actual:     "b\na",
			want:       Verdict{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.completion, tt.origin, tt.actual))
		})
	}
}

func TestApplyRejectsUndecidedPoint(t *testing.T) {
	p := shown(1, "bar()")

	Apply(p, Verdict{Reject: true, Correction: types.CorrectionUnchanged}, epoch.Add(time.Second))

	assert.Equal(t, types.AcceptanceRejected, p.Acceptance())
	assert.Equal(t, types.CorrectionUnchanged, p.Correction())
	assert.Equal(t, epoch.Add(time.Second), p.Times().Handle)
}

func TestApplyNeverRejectsAccepted(t *testing.T) {
	p := shown(1, "bar()")
	require.NoError(t, p.Accept(epoch))

	Apply(p, Verdict{Reject: true, Correction: types.CorrectionUnchanged}, epoch.Add(time.Second))

	assert.Equal(t, types.AcceptanceAccepted, p.Acceptance(), "accepted stays accepted")
	assert.Equal(t, types.CorrectionUnchanged, p.Correction())
}

func TestApplyChanged(t *testing.T) {
	p := shown(1, "bar()")
	require.NoError(t, p.Accept(epoch))

	Apply(p, Verdict{Correction: types.CorrectionChanged, ActualCode: "baz()"}, epoch)

	assert.Equal(t, types.CorrectionChanged, p.Correction())
	assert.Equal(t, "baz()", p.ActualCode())
}

func TestApplySkipsCorrectionWhileUndecided(t *testing.T) {
	p := shown(1, "bar()")

	Apply(p, Verdict{Correction: types.CorrectionChanged, ActualCode: "baz()"}, epoch)
	Apply(p, Verdict{Correction: types.CorrectionUnchanged}, epoch)

	assert.Equal(t, types.AcceptanceNone, p.Acceptance(), "acceptance untouched")
	assert.Equal(t, types.CorrectionNone, p.Correction(), "correction needs a terminal acceptance")
}

func TestCollectorRejectsUntouchedSpan(t *testing.T) {
	c := clock.NewFake(epoch)
	reader := &mockReader{buffers: map[string][]string{
		"main.go": {"func main() {", "\tfoo", "}"},
	}}

	var posted []*Job
	col := NewCollector(reader, c, 3*time.Second, func(j *Job) { posted = append(posted, j) })

	p := shown(1, "()\n\tbar()")
	job, err := col.Schedule(p)
	require.NoError(t, err)
	assert.Equal(t, "\n}", job.Origin, "origin spans the completion's lines")
	assert.Equal(t, 1, col.Pending())

	c.Advance(2999 * time.Millisecond)
	assert.Empty(t, posted, "not yet due")

	c.Advance(time.Millisecond)
	require.Len(t, posted, 1)
	assert.Equal(t, 0, col.Pending())

	v, err := col.Sample(posted[0])
	require.NoError(t, err)
	assert.True(t, v.Reject)
	assert.Equal(t, types.AcceptanceRejected, p.Acceptance())
	assert.Equal(t, types.CorrectionUnchanged, p.Correction())
}

func TestCollectorRecordsChangedCode(t *testing.T) {
	c := clock.NewFake(epoch)
	reader := &mockReader{buffers: map[string][]string{
		"main.go": {"func main() {", "\tfoo", "}"},
	}}

	var posted []*Job
	col := NewCollector(reader, c, 3*time.Second, func(j *Job) { posted = append(posted, j) })

	p := shown(1, "()\n\tbar()")
	require.NoError(t, p.Accept(epoch))
	_, err := col.Schedule(p)
	require.NoError(t, err)

	// the user edits the accepted text before the sample is taken
	reader.buffers["main.go"] = []string{"func main() {", "\tfoo()", "\tbaz(1)", "}"}
	c.Advance(3 * time.Second)
	require.Len(t, posted, 1)

	v, err := col.Sample(posted[0])
	require.NoError(t, err)
	assert.Equal(t, types.CorrectionChanged, v.Correction)
	assert.Equal(t, "()\n\tbaz(1)", p.ActualCode())
	assert.Equal(t, types.AcceptanceAccepted, p.Acceptance())
}

func TestCollectorOriginReadError(t *testing.T) {
	reader := &mockReader{err: errors.New("buffer gone")}
	col := NewCollector(reader, clock.NewFake(epoch), time.Second, func(*Job) {})

	_, err := col.Schedule(shown(1, "x"))
	assert.Error(t, err)
	assert.Equal(t, 0, col.Pending())
}

func TestCollectorCancelAndStop(t *testing.T) {
	c := clock.NewFake(epoch)
	reader := &mockReader{buffers: map[string][]string{"main.go": {"", "\tfoo"}}}

	var posted int
	col := NewCollector(reader, c, time.Second, func(*Job) { posted++ })

	first, err := col.Schedule(shown(1, "x"))
	require.NoError(t, err)
	_, err = col.Schedule(shown(2, "y"))
	require.NoError(t, err)
	assert.Equal(t, 2, col.Pending())

	assert.True(t, first.Cancel())
	assert.Equal(t, 1, col.Pending())

	col.Stop()
	assert.Equal(t, 0, col.Pending())

	c.Advance(time.Minute)
	assert.Equal(t, 0, posted, "nothing fires after cancel or stop")
}
