package genapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"codesuggest/logger"
	"codesuggest/types"

	"github.com/andybalholm/brotli"
)

// GenerateRequest is the request format of the generation service
type GenerateRequest struct {
	RequestID   string `json:"request_id"`
	DeviceID    string `json:"device_id,omitempty"`
	Model       string `json:"model,omitempty"`
	Path        string `json:"path"`
	Language    string `json:"language"`
	Line        int    `json:"line"`
	Column      int    `json:"column"`
	Prefix      string `json:"prefix"`
	Suffix      string `json:"suffix"`
	TriggerMode string `json:"trigger_mode"`
	MaxTokens   int    `json:"max_tokens,omitempty"`
}

// GenerateResponse is the response format of the generation service
type GenerateResponse struct {
	Content string `json:"content"`
}

// DefaultURL is the endpoint used when none is configured
const DefaultURL = "http://127.0.0.1:8000/v1/generate"

// maxErrorBody bounds how much of an error body ends up in logs
const maxErrorBody = 4 * 1024

// Client is the HTTP client for the generation service
type Client struct {
	HTTPClient *http.Client
	URL        string
	AuthToken  string
	UserAgent  string
}

// NewClient creates a new client. An empty url means DefaultURL.
func NewClient(url, apiKey string, timeoutMs int) *Client {
	timeout := time.Duration(0)
	if timeoutMs > 0 {
		timeout = time.Duration(timeoutMs) * time.Millisecond
	}
	if url == "" {
		url = DefaultURL
	}

	return &Client{
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		URL:       url,
		AuthToken: apiKey,
	}
}

// Generate sends one request. Transport and status failures come back as
// *types.TransportError; a malformed body is a plain error.
func (c *Client) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	defer logger.Trace("genapi.Generate")()

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	// Compress with brotli (quality 1 for speed)
	var compressedBuf bytes.Buffer
	brotliWriter := brotli.NewWriterLevel(&compressedBuf, 1)
	if _, err := brotliWriter.Write(jsonData); err != nil {
		return nil, fmt.Errorf("failed to compress request: %w", err)
	}
	if err := brotliWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to close brotli writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, &compressedBuf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Content-Encoding", "br")
	httpReq.Header.Set("X-Request-ID", req.RequestID)
	if c.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.UserAgent)
	}
	if c.AuthToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.AuthToken)
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, &types.TransportError{Err: fmt.Errorf("failed to send request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &types.TransportError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("request failed: %s", bytes.TrimSpace(body)),
		}
	}

	var out GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}
