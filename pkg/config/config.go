// Package config resolves client settings from defaults, an optional TOML
// file, the process environment (including a .env file) and CLI flags, in
// that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Defaults applied before the config file, environment and flags.
const (
	DefaultBaseURL     = "http://localhost:8000/v1"
	DefaultAPIKey      = "dummy"
	DefaultModel       = "HelpingAI/Dhanishtha-2.0-preview"
	DefaultMaxTokens   = 1000
	DefaultTemperature = 0.7
	DefaultTimeout     = 60 * time.Second
)

// Environment variables read by ApplyEnv.
const (
	EnvBaseURL     = "TOOLCALL_BASE_URL"
	EnvAPIKey      = "TOOLCALL_API_KEY"
	EnvModel       = "TOOLCALL_MODEL"
	EnvMaxTokens   = "TOOLCALL_MAX_TOKENS"
	EnvTemperature = "TOOLCALL_TEMPERATURE"
	EnvTimeout     = "TOOLCALL_TIMEOUT"
	EnvDebug       = "TOOLCALL_DEBUG"
)

// Config is everything the client needs to reach the inference server.
type Config struct {
	BaseURL     string        `toml:"base_url"`
	APIKey      string        `toml:"api_key"`
	Model       string        `toml:"model"`
	MaxTokens   int           `toml:"max_tokens"`
	Temperature float64       `toml:"temperature"`
	Timeout     time.Duration `toml:"timeout"`
	Debug       bool          `toml:"debug"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		BaseURL:     DefaultBaseURL,
		APIKey:      DefaultAPIKey,
		Model:       DefaultModel,
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
		Timeout:     DefaultTimeout,
	}
}

// Load starts from Default, decodes the TOML file at path when path is not
// empty, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from TOOLCALL_* environment variables.
func (c *Config) ApplyEnv() error {
	if v := strings.TrimSpace(os.Getenv(EnvBaseURL)); v != "" {
		c.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAPIKey)); v != "" {
		c.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvModel)); v != "" {
		c.Model = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvMaxTokens)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvMaxTokens, err)
		}
		c.MaxTokens = n
	}
	if v := strings.TrimSpace(os.Getenv(EnvTemperature)); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvTemperature, err)
		}
		c.Temperature = f
	}
	if v := strings.TrimSpace(os.Getenv(EnvTimeout)); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvTimeout, err)
		}
		c.Timeout = d
	}
	if v, ok := os.LookupEnv(EnvDebug); ok {
		c.Debug = ParseBool(v)
	}
	return nil
}

// Validate reports the first setting that would make requests impossible.
func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return errors.New("base URL is required")
	}
	if strings.TrimSpace(c.Model) == "" {
		return errors.New("model is required")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", c.MaxTokens)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}

// LoadEnvFile loads a .env file into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnvFile(path string) (bool, error) {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return true, nil
}

// SaveEnvFile writes values as a .env file readable only by the owner.
func SaveEnvFile(path string, values map[string]string) error {
	content, err := godotenv.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode env file: %w", err)
	}
	if err := os.WriteFile(path, []byte(content+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ParseBool accepts the usual spellings of true; anything else is false.
func ParseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}
