package metrics

import (
	"maps"
	"sync"
)

// Counters tracks generation-service calls and telemetry delivery
type Counters struct {
	mu sync.Mutex

	apiTotal    int
	apiOK       int
	apiCancel   int
	apiError    int
	errorStatus map[string]int

	memoOK       int
	memoFailed   int
	uploadOK     int
	uploadFailed int
}

// CounterSnapshot is a point-in-time copy of Counters
type CounterSnapshot struct {
	APITotal     int            `json:"api_total" yaml:"api_total"`
	APIOK        int            `json:"api_ok" yaml:"api_ok"`
	APICancel    int            `json:"api_cancel" yaml:"api_cancel"`
	APIError     int            `json:"api_error" yaml:"api_error"`
	ErrorStatus  map[string]int `json:"error_status,omitempty" yaml:"error_status,omitempty"`
	MemoOK       int            `json:"memo_ok" yaml:"memo_ok"`
	MemoFailed   int            `json:"memo_failed" yaml:"memo_failed"`
	UploadOK     int            `json:"upload_ok" yaml:"upload_ok"`
	UploadFailed int            `json:"upload_failed" yaml:"upload_failed"`
}

func NewCounters() *Counters {
	return &Counters{errorStatus: make(map[string]int)}
}

// APIRequest counts an issued fetch
func (c *Counters) APIRequest() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiTotal++
}

func (c *Counters) APISuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiOK++
}

// APICancel counts a fetch whose result was discarded or aborted
func (c *Counters) APICancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiCancel++
}

// APIError counts a failed fetch under its status label
func (c *Counters) APIError(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiError++
	c.errorStatus[status]++
}

// Memo counts records handed to the sink
func (c *Counters) Memo(records int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ok {
		c.memoOK += records
	} else {
		c.memoFailed += records
	}
}

// Upload counts one delivery attempt to the sink
func (c *Counters) Upload(ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ok {
		c.uploadOK++
	} else {
		c.uploadFailed++
	}
}

func (c *Counters) Snapshot() CounterSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CounterSnapshot{
		APITotal:     c.apiTotal,
		APIOK:        c.apiOK,
		APICancel:    c.apiCancel,
		APIError:     c.apiError,
		ErrorStatus:  maps.Clone(c.errorStatus),
		MemoOK:       c.memoOK,
		MemoFailed:   c.memoFailed,
		UploadOK:     c.uploadOK,
		UploadFailed: c.uploadFailed,
	}
}
