// Package config loads service configuration from a YAML file with
// environment-variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Checker names for the language verification strategy.
const (
	CheckerHeuristic = "heuristic"
	CheckerLingua    = "lingua"
)

// Duration wraps time.Duration so YAML accepts "15s"-style values.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config holds application configuration.
type Config struct {
	// Addr is the listen address of the HTTP server.
	Addr string `yaml:"addr"`

	// DBPath is the SQLite database file. ":memory:" keeps everything
	// in process, useful for tests and throwaway runs.
	DBPath string `yaml:"db_path"`

	// AllowedOrigins lists origins CORS responses accept. The literal
	// "chrome-extension://*" admits any browser extension origin.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// LanguageChecker selects the output-language verifier: "heuristic"
	// or "lingua".
	LanguageChecker string `yaml:"language_checker"`

	// MaxRetries is how many corrective rounds a failed generation gets
	// before degrading to raw output.
	MaxRetries int `yaml:"max_retries"`

	// FetchTimeout bounds a single page download end to end.
	FetchTimeout Duration `yaml:"fetch_timeout"`

	OpenAI    ProviderConfig `yaml:"openai"`
	Anthropic ProviderConfig `yaml:"anthropic"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// ProviderConfig configures one LLM backend. An empty APIKey disables
// the provider.
type ProviderConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Addr:            ":8787",
		DBPath:          "clearweb.db",
		AllowedOrigins:  []string{"http://localhost:3000", "chrome-extension://*"},
		LanguageChecker: CheckerHeuristic,
		MaxRetries:      1,
		FetchTimeout:    Duration(15 * time.Second),
		LogLevel:        "info",
	}
}

// Load reads the YAML file at path, overlays it on the defaults, then
// applies environment overrides. A missing file is not an error; an
// empty path skips the file entirely.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("CLEARWEB_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("CLEARWEB_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("CLEARWEB_LANGUAGE_CHECKER"); v != "" {
		c.LanguageChecker = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		c.OpenAI.Model = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.Anthropic.APIKey = v
	}
	if v := os.Getenv("ANTHROPIC_MODEL"); v != "" {
		c.Anthropic.Model = v
	}
}

func (c *Config) validate() error {
	switch c.LanguageChecker {
	case CheckerHeuristic, CheckerLingua:
	default:
		return fmt.Errorf("unknown language_checker %q", c.LanguageChecker)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0, got %d", c.MaxRetries)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch_timeout must be positive, got %s", time.Duration(c.FetchTimeout))
	}
	return nil
}
