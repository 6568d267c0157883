package config

import "time"

type Duration struct {
	Duration time.Duration
}

type HTTPConfig struct {
	Addr              string   `json:"addr" yaml:"addr"`
	ReadHeaderTimeout Duration `json:"read_header_timeout" yaml:"read_header_timeout"`
	IdleTimeout       Duration `json:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout   Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxRequestBytes   int64    `json:"max_request_bytes" yaml:"max_request_bytes"`

	AllowOrigins []string `json:"allow_origins,omitempty" yaml:"allow_origins,omitempty"`

	// AuthSecret enables HS256 bearer auth on /v1 routes when non-empty.
	AuthSecret string `json:"auth_secret,omitempty" yaml:"auth_secret,omitempty"`
}

type EngineConfig struct {
	Type string `json:"type" yaml:"type"`

	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// APIKey wins over APIKeyEnv. The resolved credential is stored back in APIKey.
	APIKey    string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	APIKeyEnv string `json:"api_key_env,omitempty" yaml:"api_key_env,omitempty"`

	ChatCompletionsPath string `json:"chat_completions_path,omitempty" yaml:"chat_completions_path,omitempty"`

	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// PricingConfig is expressed per million tokens.
type PricingConfig struct {
	InputPerMillion  float64 `json:"input_per_million" yaml:"input_per_million"`
	OutputPerMillion float64 `json:"output_per_million" yaml:"output_per_million"`
}

type ModelConfig struct {
	ID string `json:"id" yaml:"id"`

	// UpstreamModel overrides the model name sent to the engine. Defaults to ID.
	UpstreamModel string `json:"upstream_model,omitempty" yaml:"upstream_model,omitempty"`

	Engine  EngineConfig   `json:"engine" yaml:"engine"`
	Pricing *PricingConfig `json:"pricing,omitempty" yaml:"pricing,omitempty"`
}

type Config struct {
	Env          string        `json:"env" yaml:"env"`
	DefaultModel string        `json:"default_model" yaml:"default_model"`
	PromptPath   string        `json:"prompt_path,omitempty" yaml:"prompt_path,omitempty"`
	HTTP         HTTPConfig    `json:"http" yaml:"http"`
	Models       []ModelConfig `json:"models" yaml:"models"`
}
