package config

// Config is the top-level codesuggest configuration, corresponding to codesuggest.yml.
type Config struct {
	Provider  ProviderConfig  `yaml:"provider" koanf:"provider"`
	Engine    EngineConfig    `yaml:"engine" koanf:"engine"`
	Languages LanguagesConfig `yaml:"languages" koanf:"languages"`
	Log       LogConfig       `yaml:"log" koanf:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry" koanf:"telemetry"`
	// StateDir holds the device id, the log file and the telemetry log.
	// Empty means the user cache dir.
	StateDir string `yaml:"state_dir" koanf:"state_dir"`
}

// ProviderConfig selects and configures the generation service adapter.
type ProviderConfig struct {
	Type             string  `yaml:"type" koanf:"type"`
	URL              string  `yaml:"url" koanf:"url"`
	Model            string  `yaml:"model" koanf:"model"`
	APIKey           string  `yaml:"api_key" koanf:"api_key"`
	Temperature      float64 `yaml:"temperature" koanf:"temperature"`
	MaxTokens        int     `yaml:"max_tokens" koanf:"max_tokens"`
	TopK             int     `yaml:"top_k" koanf:"top_k"`
	TimeoutMs        int     `yaml:"timeout_ms" koanf:"timeout_ms"`
	MaxContextTokens int     `yaml:"max_context_tokens" koanf:"max_context_tokens"`
}

// EngineConfig holds the decision engine timings, all in milliseconds.
type EngineConfig struct {
	SuggestionDelayMs    int `yaml:"suggestion_delay_ms" koanf:"suggestion_delay_ms"`
	ManualDelayMs        int `yaml:"manual_delay_ms" koanf:"manual_delay_ms"`
	RejectionIncrementMs int `yaml:"rejection_increment_ms" koanf:"rejection_increment_ms"`
	RejectionMaxMs       int `yaml:"rejection_max_ms" koanf:"rejection_max_ms"`
	CollectDelayMs       int `yaml:"collect_delay_ms" koanf:"collect_delay_ms"`
	FlushIntervalMs      int `yaml:"flush_interval_ms" koanf:"flush_interval_ms"`
	FetchTimeoutMs       int `yaml:"fetch_timeout_ms" koanf:"fetch_timeout_ms"`
	MaxHistory           int `yaml:"max_history" koanf:"max_history"`
}

// LanguagesConfig is the completion policy. Switches map a language to
// enabled, disabled or unsupported.
type LanguagesConfig struct {
	Enabled  bool              `yaml:"enabled" koanf:"enabled"`
	Allowed  []string          `yaml:"allowed" koanf:"allowed"`
	Switches map[string]string `yaml:"switches,omitempty" koanf:"switches"`
}

type LogConfig struct {
	Level string `yaml:"level" koanf:"level"`
	File  string `yaml:"file" koanf:"file"` // empty means <state_dir>/codesuggest.log
}

// TelemetryConfig controls the local record sink.
type TelemetryConfig struct {
	Enabled bool   `yaml:"enabled" koanf:"enabled"`
	Path    string `yaml:"path" koanf:"path"` // empty means <state_dir>/completions.log
}
