package genapi

import (
	"context"
	"fmt"

	"codesuggest/client/genapi"
	"codesuggest/logger"
	"codesuggest/types"
	"codesuggest/utils"

	"github.com/google/uuid"
)

// Provider implements types.Fetcher over the minimal generation-service protocol
type Provider struct {
	config *types.ProviderConfig
	client *genapi.Client
}

// NewProvider creates a new genapi provider instance
func NewProvider(config *types.ProviderConfig) (*Provider, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	client := genapi.NewClient(config.ProviderURL, config.APIKey, config.TimeoutMs)
	client.UserAgent = config.UserAgent

	return &Provider{
		config: config,
		client: client,
	}, nil
}

func (p *Provider) Fetch(ctx context.Context, req *types.FetchRequest) (*types.FetchResponse, error) {
	requestID := uuid.NewString()

	resp, err := p.client.Generate(ctx, &genapi.GenerateRequest{
		RequestID:   requestID,
		DeviceID:    p.config.DeviceID,
		Model:       p.config.ProviderModel,
		Path:        req.Document.Path,
		Language:    req.Document.Language,
		Line:        req.Position.Line,
		Column:      req.Position.Column,
		Prefix:      utils.TrimPrefixToTokens(req.Prompt.Prefix, p.config.MaxContextTokens),
		Suffix:      utils.TrimSuffixToTokens(req.Prompt.Suffix, p.config.MaxContextTokens),
		TriggerMode: req.TriggerMode.String(),
		MaxTokens:   p.config.ProviderMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("suggest[%d]: genapi %s returned %d bytes", req.PointID, requestID, len(resp.Content))
	return &types.FetchResponse{Content: resp.Content}, nil
}
