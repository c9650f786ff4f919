// Package outcome classifies what the user did with a shown suggestion by
// sampling the document some time after it appeared.
package outcome

import (
	"slices"
	"strings"
	"sync"
	"time"

	"codesuggest/clock"
	"codesuggest/logger"
	"codesuggest/suggestion"
	"codesuggest/text"
	"codesuggest/types"
)

// Verdict is the result of comparing the sampled text with the suggestion
type Verdict struct {
	Reject     bool
	Correction types.Correction
	ActualCode string
}

// Classify compares the span the suggestion would occupy before it was shown
// (origin) and after the delay (actual). The comparison is line-set based: a
// line counts as the user's own when it does not occur anywhere in origin.
func Classify(completion, origin, actual string) Verdict {
	completion = text.NormalizeNewlines(completion)
	origin = text.NormalizeNewlines(origin)
	actual = text.NormalizeNewlines(actual)

	if completion != "" && actual != "" && actual == completion {
		return Verdict{Correction: types.CorrectionUnchanged}
	}
	if actual == origin {
		return Verdict{Reject: true, Correction: types.CorrectionUnchanged}
	}

	actualRows := text.SplitLines(actual)
	originRows := text.SplitLines(origin)

	var authored []string
	if !slices.Contains(originRows, actualRows[len(actualRows)-1]) {
		authored = actualRows
	} else {
		for i := len(actualRows) - 1; i >= 0; i-- {
			if !slices.Contains(originRows, actualRows[i]) {
				authored = append([]string{actualRows[i]}, authored...)
			}
		}
	}
	if len(authored) == 0 {
		return Verdict{}
	}
	return Verdict{Correction: types.CorrectionChanged, ActualCode: strings.Join(authored, "\n")}
}

// Apply performs the verdict's transitions that the point's state allows.
// Corrections need a terminal acceptance; a point still undecided keeps its
// correction unset.
func Apply(p *suggestion.Point, v Verdict, now time.Time) {
	if v.Reject && p.Acceptance() == types.AcceptanceNone {
		if err := p.Reject(now); err != nil {
			logger.Debug("suggest[%d]: reject: %v", p.ID(), err)
		}
	}
	if v.Correction == types.CorrectionNone {
		return
	}
	if !p.IsFinished() || p.Correction() != types.CorrectionNone {
		logger.Debug("suggest[%d]: skip %s correction, acceptance %s", p.ID(), v.Correction, p.Acceptance())
		return
	}

	var err error
	switch v.Correction {
	case types.CorrectionUnchanged:
		err = p.Unchanged()
	case types.CorrectionChanged:
		err = p.Changed(v.ActualCode)
	}
	if err != nil {
		logger.Debug("suggest[%d]: correction: %v", p.ID(), err)
	}
}

// Job is one scheduled sample for one point
type Job struct {
	Point  *suggestion.Point
	Origin string

	collector  *Collector
	timer      clock.Timer
	extraLines int
}

// Cancel stops the job if it has not fired yet
func (j *Job) Cancel() bool {
	j.collector.forget(j)
	return j.timer.Stop()
}

// Collector schedules delayed samples. Sampled jobs are handed to post, which is
// expected to bring them back onto the engine loop and call Sample there.
type Collector struct {
	reader types.DocumentReader
	clock  clock.Clock
	delay  time.Duration
	post   func(*Job)

	mu   sync.Mutex
	jobs map[*Job]struct{}
}

func NewCollector(reader types.DocumentReader, c clock.Clock, delay time.Duration, post func(*Job)) *Collector {
	return &Collector{
		reader: reader,
		clock:  c,
		delay:  delay,
		post:   post,
		jobs:   make(map[*Job]struct{}),
	}
}

// Schedule captures the origin span for p now and samples it again after the delay
func (c *Collector) Schedule(p *suggestion.Point) (*Job, error) {
	extra := text.ExtraLines(p.Content())
	origin, err := c.reader.ReadSpan(p.Document().Path, p.Position(), extra)
	if err != nil {
		return nil, err
	}

	job := &Job{Point: p, Origin: origin, collector: c, extraLines: extra}

	c.mu.Lock()
	c.jobs[job] = struct{}{}
	job.timer = c.clock.AfterFunc(c.delay, func() {
		if c.forget(job) {
			c.post(job)
		}
	})
	c.mu.Unlock()

	logger.Debug("suggest[%d]: collect in %v", p.ID(), c.delay)
	return job, nil
}

// Sample reads the span again, classifies it and applies the verdict
func (c *Collector) Sample(job *Job) (Verdict, error) {
	p := job.Point
	actual, err := c.reader.ReadSpan(p.Document().Path, p.Position(), job.extraLines)
	if err != nil {
		return Verdict{}, err
	}

	v := Classify(p.Content(), job.Origin, actual)
	Apply(p, v, c.clock.Now())

	switch v.Correction {
	case types.CorrectionChanged:
		logger.Info("suggest[%d]: changed to: %s", p.ID(), v.ActualCode)
	case types.CorrectionUnchanged:
		logger.Debug("suggest[%d]: unchanged (rejected=%v)", p.ID(), v.Reject)
	}
	return v, nil
}

// Pending returns the number of jobs not yet fired or cancelled
func (c *Collector) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.jobs)
}

// Stop cancels every outstanding job
func (c *Collector) Stop() {
	c.mu.Lock()
	jobs := c.jobs
	c.jobs = make(map[*Job]struct{})
	c.mu.Unlock()

	for job := range jobs {
		job.timer.Stop()
	}
}

func (c *Collector) forget(job *Job) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.jobs[job]; !ok {
		return false
	}
	delete(c.jobs, job)
	return true
}
