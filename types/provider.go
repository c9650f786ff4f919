package types

import (
	"context"
	"errors"
	"fmt"
	"net"
)

type ProviderType string

const (
	ProviderTypeGenAPI       ProviderType = "genapi"
	ProviderTypeAutoComplete ProviderType = "autocomplete"
)

type ProviderConfig struct {
	ProviderURL         string
	ProviderModel       string
	ProviderTemperature float64
	ProviderMaxTokens   int
	ProviderTopK        int
	APIKey              string
	TimeoutMs           int
	MaxContextTokens    int // budget for prefix and suffix each (0 = no limit)
	DeviceID            string
	UserAgent           string
}

// FetchRequest is the minimal request shape sent to the generation service
type FetchRequest struct {
	PointID     uint64
	Document    DocumentInfo
	Position    Position
	Prompt      Prompt
	TriggerMode TriggerMode
}

// FetchResponse carries the generated suggestion; empty Content means no suggestion
type FetchResponse struct {
	Content string
}

// Fetcher is the generation-service client. Implementations must honor ctx
// cancellation but the engine never relies on it: stale responses are discarded.
type Fetcher interface {
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResponse, error)
}

// TransportError is a failed call to the generation service
type TransportError struct {
	StatusCode int // HTTP status, 0 when the request never got a response
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport error (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Status returns a short label used to bucket error counters
func (e *TransportError) Status() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("http_%d", e.StatusCode)
	}
	var netErr net.Error
	if errors.Is(e.Err, context.DeadlineExceeded) || (errors.As(e.Err, &netErr) && netErr.Timeout()) {
		return "timeout"
	}
	if errors.Is(e.Err, context.Canceled) {
		return "canceled"
	}
	return "network"
}
