package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"codesuggest/engine"
	"codesuggest/language"
	"codesuggest/scheduler"
	"codesuggest/types"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix marks environment overrides. Nested keys are separated by a double
// underscore: CODESUGGEST_ENGINE__MAX_HISTORY -> engine.max_history.
const EnvPrefix = "CODESUGGEST_"

// DefaultPath is the config file looked up when none is given
const DefaultPath = "codesuggest.yml"

// DefaultConfig returns the stock configuration
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			Type:             string(types.ProviderTypeGenAPI),
			URL:              "http://127.0.0.1:8000/v1/generate",
			MaxTokens:        128,
			TimeoutMs:        10000,
			MaxContextTokens: 2048,
		},
		Engine: EngineConfig{
			SuggestionDelayMs:    300,
			ManualDelayMs:        50,
			RejectionIncrementMs: 1000,
			RejectionMaxMs:       3000,
			CollectDelayMs:       3000,
			FlushIntervalMs:      3000,
			FetchTimeoutMs:       10000,
			MaxHistory:           1000,
		},
		Languages: LanguagesConfig{
			Enabled: true,
			Allowed: slices.Clone(language.DefaultAllowed),
		},
		Log: LogConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			Enabled: true,
		},
	}
}

// Load reads configuration from the given YAML file, then overlays environment
// overrides (CODESUGGEST_*). Variables from envFiles are exported first; with
// no envFiles a .env in the working directory is used when present.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		_ = godotenv.Load()
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, fmt.Errorf("loading env files: %w", err)
	}

	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// MaskedYAML renders the configuration for display, with the API key hidden
func (c *Config) MaskedYAML() ([]byte, error) {
	masked := *c
	if masked.Provider.APIKey != "" {
		masked.Provider.APIKey = "***"
	}
	data, err := yamlv3.Marshal(&masked)
	if err != nil {
		return nil, fmt.Errorf("marshalling config: %w", err)
	}
	return data, nil
}

var validProviders = map[types.ProviderType]bool{
	types.ProviderTypeGenAPI:       true,
	types.ProviderTypeAutoComplete: true,
}

var validLogLevels = []string{"trace", "debug", "info", "warn", "error"}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if !validProviders[types.ProviderType(c.Provider.Type)] {
		return fmt.Errorf("invalid provider type %q: must be one of genapi, autocomplete", c.Provider.Type)
	}
	if c.Provider.Type == string(types.ProviderTypeAutoComplete) && c.Provider.URL == "" {
		return fmt.Errorf("provider.url is required for the autocomplete provider")
	}
	if c.Provider.TimeoutMs < 0 || c.Provider.MaxTokens < 0 || c.Provider.MaxContextTokens < 0 {
		return fmt.Errorf("provider limits must be non-negative")
	}

	e := c.Engine
	for name, v := range map[string]int{
		"suggestion_delay_ms":    e.SuggestionDelayMs,
		"manual_delay_ms":        e.ManualDelayMs,
		"rejection_increment_ms": e.RejectionIncrementMs,
		"rejection_max_ms":       e.RejectionMaxMs,
		"collect_delay_ms":       e.CollectDelayMs,
		"flush_interval_ms":      e.FlushIntervalMs,
		"fetch_timeout_ms":       e.FetchTimeoutMs,
		"max_history":            e.MaxHistory,
	} {
		if v < 0 {
			return fmt.Errorf("engine.%s must be non-negative", name)
		}
	}
	if e.RejectionMaxMs > 0 && e.RejectionMaxMs < e.SuggestionDelayMs {
		return fmt.Errorf("engine.rejection_max_ms (%d) is below suggestion_delay_ms (%d)", e.RejectionMaxMs, e.SuggestionDelayMs)
	}

	for lang, sw := range c.Languages.Switches {
		if _, err := language.ParseSwitch(sw); err != nil {
			return fmt.Errorf("languages.switches.%s: %w", lang, err)
		}
	}

	if !slices.Contains(validLogLevels, strings.ToLower(c.Log.Level)) {
		return fmt.Errorf("invalid log level %q: must be one of %s", c.Log.Level, strings.Join(validLogLevels, ", "))
	}
	return nil
}

// ResolveStateDir returns the state dir, defaulting to <user cache dir>/codesuggest
func (c *Config) ResolveStateDir() (string, error) {
	if c.StateDir != "" {
		return c.StateDir, nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolving state dir: %w", err)
	}
	return filepath.Join(dir, "codesuggest"), nil
}

// LogPath returns the log file path inside stateDir unless one is configured
func (c *Config) LogPath(stateDir string) string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return filepath.Join(stateDir, "codesuggest.log")
}

// TelemetryPath returns the record sink path inside stateDir unless one is configured
func (c *Config) TelemetryPath(stateDir string) string {
	if c.Telemetry.Path != "" {
		return c.Telemetry.Path
	}
	return filepath.Join(stateDir, "completions.log")
}

// ProviderSettings converts the provider section for provider.NewProvider
func (c *Config) ProviderSettings(deviceID, userAgent string) *types.ProviderConfig {
	return &types.ProviderConfig{
		ProviderURL:         c.Provider.URL,
		ProviderModel:       c.Provider.Model,
		ProviderTemperature: c.Provider.Temperature,
		ProviderMaxTokens:   c.Provider.MaxTokens,
		ProviderTopK:        c.Provider.TopK,
		APIKey:              c.Provider.APIKey,
		TimeoutMs:           c.Provider.TimeoutMs,
		MaxContextTokens:    c.Provider.MaxContextTokens,
		DeviceID:            deviceID,
		UserAgent:           userAgent,
	}
}

// EngineSettings converts the engine section. Telemetry off disables flushing.
func (c *Config) EngineSettings() engine.EngineConfig {
	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }
	e := c.Engine

	cfg := engine.EngineConfig{
		Delays: scheduler.DelayConfig{
			Base:      ms(e.SuggestionDelayMs),
			Manual:    ms(e.ManualDelayMs),
			Increment: ms(e.RejectionIncrementMs),
			Max:       ms(e.RejectionMaxMs),
		},
		CollectDelay:  ms(e.CollectDelayMs),
		FlushInterval: ms(e.FlushIntervalMs),
		FetchTimeout:  ms(e.FetchTimeoutMs),
		MaxHistory:    e.MaxHistory,
	}
	if !c.Telemetry.Enabled {
		cfg.FlushInterval = 0
	}
	return cfg
}

// Policy builds the completion policy. Call Validate first; unknown switches
// are treated as enabled.
func (c *Config) Policy() *language.Policy {
	switches := make(map[string]language.Switch, len(c.Languages.Switches))
	for lang, raw := range c.Languages.Switches {
		sw, _ := language.ParseSwitch(raw)
		switches[lang] = sw
	}
	return language.NewPolicy(c.Languages.Enabled, c.Languages.Allowed, switches)
}
