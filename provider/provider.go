package provider

import (
	"fmt"

	"codesuggest/provider/autocomplete"
	"codesuggest/provider/genapi"
	"codesuggest/types"
)

// NewProvider creates a new provider instance based on the type
func NewProvider(providerType types.ProviderType, config *types.ProviderConfig) (types.Fetcher, error) {
	switch providerType {
	case types.ProviderTypeGenAPI:
		return genapi.NewProvider(config)
	case types.ProviderTypeAutoComplete:
		return autocomplete.NewProvider(config)
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}
