package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/chartqna/internal/pricing"
)

const (
	DefaultBaseURL   = "https://api.openai.com"
	DefaultAPIKeyEnv = "OPENAI_API_KEY"
)

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		d.Duration = 0
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		u, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		return d.parse(u)
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("duration must be a JSON string like \"5s\" or an int nanoseconds: %w", err)
	}
	d.Duration = time.Duration(n)
	return nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a scalar, got yaml kind %d", node.Kind)
	}
	if node.Tag == "!!int" {
		n, err := strconv.ParseInt(node.Value, 10, 64)
		if err != nil {
			return err
		}
		d.Duration = time.Duration(n)
		return nil
	}
	return d.parse(node.Value)
}

func (d *Duration) parse(s string) error {
	if strings.TrimSpace(s) == "" {
		d.Duration = 0
		return nil
	}
	dd, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	d.Duration = dd
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration.String())
}

func defaultConfig() *Config {
	oai := func(id string) ModelConfig {
		return ModelConfig{ID: id, Engine: EngineConfig{Type: "oai_http"}}
	}
	return &Config{
		Env:          "development",
		DefaultModel: "gpt-4.1",
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: Duration{Duration: 5 * time.Second},
			IdleTimeout:       Duration{Duration: 2 * time.Minute},
			ShutdownTimeout:   Duration{Duration: 15 * time.Second},
			MaxRequestBytes:   10 << 20,
		},
		Models: []ModelConfig{
			oai("gpt-4.1"),
			oai("gpt-4o"),
			oai("gpt-4-turbo"),
			oai("gpt-3.5-turbo"),
			{ID: "mock-1", Engine: EngineConfig{Type: "mock"}},
		},
	}
}

// Load reads an optional .env file, then the config file (if any), then
// environment overrides.
func Load() (*Config, error) {
	envFile := strings.TrimSpace(os.Getenv("CHARTQNA_ENV_FILE"))
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfgPath := strings.TrimSpace(os.Getenv("CHARTQNA_CONFIG_PATH"))
	if cfgPath == "" {
		cfgPath = findConfigFile()
	}
	return LoadFile(cfgPath)
}

// LoadFile behaves like Load without the .env step. An empty path uses the
// built-in defaults.
func LoadFile(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		loaded, err := Parse(b, filepath.Ext(path))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		*cfg = *loaded
	}

	applyEnv(cfg)
	if err := normalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML for .yaml/.yml extensions and JSON otherwise.
func Parse(b []byte, ext string) (*Config, error) {
	var loaded Config
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "yaml", "yml":
		if err := yaml.Unmarshal(b, &loaded); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(b, &loaded); err != nil {
			return nil, err
		}
	}
	return &loaded, nil
}

func findConfigFile() string {
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for _, name := range []string{"config.yaml", "config.yml", "config.json"} {
		p := filepath.Join(wd, "config", name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("LOG_MODE")); v != "" {
		cfg.Env = v
	}
	if v := strings.TrimSpace(os.Getenv("CHARTQNA_HTTP_ADDR")); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("CHARTQNA_DEFAULT_MODEL")); v != "" {
		cfg.DefaultModel = v
	}
	if v := strings.TrimSpace(os.Getenv("CHARTQNA_AUTH_SECRET")); v != "" {
		cfg.HTTP.AuthSecret = v
	}
	if v := strings.TrimSpace(os.Getenv("CHARTQNA_PROMPT_PATH")); v != "" {
		cfg.PromptPath = v
	}
	if v := strings.TrimSpace(os.Getenv("CHARTQNA_ALLOW_ORIGINS")); v != "" {
		cfg.HTTP.AllowOrigins = splitList(v)
	}
}

func normalize(cfg *Config) error {
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if strings.TrimSpace(cfg.HTTP.Addr) == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.HTTP.MaxRequestBytes <= 0 {
		cfg.HTTP.MaxRequestBytes = 10 << 20
	}
	if cfg.HTTP.ReadHeaderTimeout.Duration <= 0 {
		cfg.HTTP.ReadHeaderTimeout = Duration{Duration: 5 * time.Second}
	}
	if cfg.HTTP.IdleTimeout.Duration <= 0 {
		cfg.HTTP.IdleTimeout = Duration{Duration: 2 * time.Minute}
	}
	if cfg.HTTP.ShutdownTimeout.Duration <= 0 {
		cfg.HTTP.ShutdownTimeout = Duration{Duration: 15 * time.Second}
	}
	if len(cfg.HTTP.AllowOrigins) == 0 {
		cfg.HTTP.AllowOrigins = []string{
			"http://localhost:3000",
			"http://localhost:5173",
			"http://127.0.0.1:3000",
			"http://127.0.0.1:5173",
		}
	}
	if len(cfg.Models) == 0 {
		return errors.New("config must define at least one model")
	}

	defaults := pricing.Default()
	seen := map[string]bool{}
	for i := range cfg.Models {
		m := &cfg.Models[i]
		m.ID = strings.TrimSpace(m.ID)
		if m.ID == "" {
			return errors.New("model id is required")
		}
		if seen[m.ID] {
			return fmt.Errorf("duplicate model id: %s", m.ID)
		}
		seen[m.ID] = true

		if strings.TrimSpace(m.UpstreamModel) == "" {
			m.UpstreamModel = m.ID
		}
		if m.Pricing == nil {
			if r, err := defaults.Lookup(m.ID); err == nil {
				m.Pricing = &PricingConfig{InputPerMillion: r.InputPerMillion(), OutputPerMillion: r.OutputPerMillion()}
			}
		}
		if m.Pricing != nil && (m.Pricing.InputPerMillion < 0 || m.Pricing.OutputPerMillion < 0) {
			return fmt.Errorf("model %q has negative pricing", m.ID)
		}

		e := &m.Engine
		e.Type = strings.ToLower(strings.TrimSpace(e.Type))
		if e.Type == "" {
			return fmt.Errorf("model %q missing engine.type", m.ID)
		}
		switch e.Type {
		case "mock":
			continue
		case "openai_http", "oai_http":
			// Normalize type (avoid implying OpenAI-as-provider).
			e.Type = "oai_http"
			if strings.TrimSpace(e.ChatCompletionsPath) == "" {
				e.ChatCompletionsPath = "/v1/chat/completions"
			}
		case "openai_sdk":
		default:
			return fmt.Errorf("model %q unsupported engine.type=%q", m.ID, e.Type)
		}

		e.BaseURL = strings.TrimRight(strings.TrimSpace(e.BaseURL), "/")
		if e.BaseURL == "" {
			e.BaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")), "/")
		}
		if e.BaseURL == "" {
			e.BaseURL = DefaultBaseURL
		}
		if e.Timeout.Duration <= 0 {
			e.Timeout = Duration{Duration: 120 * time.Second}
		}

		e.APIKey = strings.TrimSpace(e.APIKey)
		if e.APIKey == "" {
			name := strings.TrimSpace(e.APIKeyEnv)
			if name == "" {
				name = DefaultAPIKeyEnv
			}
			e.APIKeyEnv = name
			e.APIKey = strings.TrimSpace(os.Getenv(name))
		}
	}

	cfg.DefaultModel = strings.TrimSpace(cfg.DefaultModel)
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = cfg.Models[0].ID
	}
	if !seen[cfg.DefaultModel] {
		return fmt.Errorf("default_model %q is not a configured model", cfg.DefaultModel)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
