package autocomplete

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"codesuggest/logger"
	"codesuggest/types"
	"codesuggest/utils"
)

// Provider implements types.Fetcher against an OpenAI-compatible completions endpoint
type Provider struct {
	config      *types.ProviderConfig
	httpClient  *http.Client
	url         string
	model       string
	temperature float64
	maxTokens   int
	topK        int
}

// completionRequest matches the OpenAI Completion API format, with the
// fill-in-the-middle suffix field
type completionRequest struct {
	Model       string   `json:"model"`
	Prompt      string   `json:"prompt"`
	Suffix      string   `json:"suffix,omitempty"`
	Temperature float64  `json:"temperature"`
	MaxTokens   int      `json:"max_tokens"`
	TopK        int      `json:"top_k,omitempty"`
	Stop        []string `json:"stop,omitempty"`
	N           int      `json:"n"`
	Echo        bool     `json:"echo"`
	User        string   `json:"user,omitempty"`
}

// completionResponse matches the OpenAI Completion API response format
type completionResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index        int    `json:"index"`
		Text         string `json:"text"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// NewProvider creates a new autocomplete provider instance
func NewProvider(config *types.ProviderConfig) (*Provider, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.ProviderURL == "" {
		return nil, fmt.Errorf("autocomplete provider needs a url")
	}

	timeout := time.Duration(0)
	if config.TimeoutMs > 0 {
		timeout = time.Duration(config.TimeoutMs) * time.Millisecond
	}

	return &Provider{
		config:      config,
		httpClient:  &http.Client{Timeout: timeout},
		url:         strings.TrimSuffix(config.ProviderURL, "/"),
		model:       config.ProviderModel,
		temperature: config.ProviderTemperature,
		maxTokens:   config.ProviderMaxTokens,
		topK:        config.ProviderTopK,
	}, nil
}

// Fetch requests a completion for the prompt. Manual triggers may span several
// lines; automatic ones stop at the end of the line.
func (p *Provider) Fetch(ctx context.Context, req *types.FetchRequest) (*types.FetchResponse, error) {
	defer logger.Trace("autocomplete.Fetch")()

	completionReq := completionRequest{
		Model:       p.model,
		Prompt:      utils.TrimPrefixToTokens(req.Prompt.Prefix, p.config.MaxContextTokens),
		Suffix:      utils.TrimSuffixToTokens(req.Prompt.Suffix, p.config.MaxContextTokens),
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
		TopK:        p.topK,
		N:           1,
		User:        p.config.DeviceID,
	}
	if req.TriggerMode == types.TriggerAuto {
		completionReq.Stop = []string{"\n"}
	}

	reqBody, err := json.Marshal(completionReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url+"/v1/completions", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	}
	if p.config.UserAgent != "" {
		httpReq.Header.Set("User-Agent", p.config.UserAgent)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, &types.TransportError{Err: fmt.Errorf("failed to send request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		return nil, &types.TransportError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("request failed: %s", bytes.TrimSpace(body)),
		}
	}

	var completionResp completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completionResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(completionResp.Choices) == 0 {
		return &types.FetchResponse{}, nil
	}

	text := completionResp.Choices[0].Text
	finishReason := completionResp.Choices[0].FinishReason

	if strings.TrimSpace(text) == "" {
		return &types.FetchResponse{}, nil
	}

	// For single-line completions, finish_reason == "length" means the text was
	// cut off, so it is dropped as incomplete
	if finishReason == "length" && req.TriggerMode == types.TriggerAuto {
		logger.Info("suggest[%d]: autocomplete truncated: rejected (finish_reason=length, output_len=%d chars)", req.PointID, len(text))
		return &types.FetchResponse{}, nil
	}

	// A completion that only repeats what follows the cursor adds nothing
	if text == req.Prompt.LineSuffix {
		return &types.FetchResponse{}, nil
	}

	return &types.FetchResponse{Content: text}, nil
}
