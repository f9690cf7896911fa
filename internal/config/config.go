// ABOUTME: Configuration management for linesense with YAML config loading.
// ABOUTME: Handles provider selection, search tuning, log file paths, env overrides and ~ expansion.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/2389-research/linesense/internal/embeddings"
)

// Defaults applied when the config file leaves a field unset.
const (
	DefaultTopK      = 5
	DefaultBatchSize = 50
)

// Config stores linesense configuration loaded from ~/.config/linesense/config.yaml.
type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Search   SearchConfig   `yaml:"search"`
	Log      LogConfig      `yaml:"log"`
}

// ProviderConfig selects the embedding backend.
type ProviderConfig struct {
	Name      string `yaml:"name"`
	Model     string `yaml:"model,omitempty"`
	APIKey    string `yaml:"api_key,omitempty"`
	BaseURL   string `yaml:"base_url,omitempty"`
	Dimension int    `yaml:"dimension,omitempty"`
}

// SearchConfig tunes ranking and batching.
type SearchConfig struct {
	TopK      int `yaml:"top_k"`
	BatchSize int `yaml:"batch_size"`
}

// LogConfig holds the optional log file destination.
type LogConfig struct {
	File string `yaml:"file,omitempty"`
}

// Default returns a config for the local provider with default tuning.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{Name: embeddings.ProviderLocal},
		Search: SearchConfig{
			TopK:      DefaultTopK,
			BatchSize: DefaultBatchSize,
		},
	}
}

// applyDefaults fills zero values left by a partial config file.
func (c *Config) applyDefaults() {
	if c.Provider.Name == "" {
		c.Provider.Name = embeddings.ProviderLocal
	}
	if c.Search.TopK <= 0 {
		c.Search.TopK = DefaultTopK
	}
	if c.Search.BatchSize <= 0 {
		c.Search.BatchSize = DefaultBatchSize
	}
}

// ApplyEnv overrides file values with LINESENSE_* variables and the
// provider's API key variable.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("LINESENSE_PROVIDER"); v != "" {
		c.Provider.Name = strings.ToLower(v)
	}
	if v := os.Getenv("LINESENSE_MODEL"); v != "" {
		c.Provider.Model = v
	}
	if v := os.Getenv("LINESENSE_BASE_URL"); v != "" {
		c.Provider.BaseURL = v
	}
	if name := APIKeyEnv(c.Provider.Name); name != "" {
		if v := os.Getenv(name); v != "" {
			c.Provider.APIKey = v
		}
	}
}

// APIKeyEnv returns the environment variable holding the key for provider,
// or "" if the provider takes none from the environment.
func APIKeyEnv(provider string) string {
	switch provider {
	case embeddings.ProviderOpenAI:
		return "OPENAI_API_KEY"
	case embeddings.ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}

// Validate checks the provider name.
func (c *Config) Validate() error {
	if !embeddings.IsValidProvider(c.Provider.Name) {
		return fmt.Errorf("unknown provider %q (valid: %s)", c.Provider.Name, strings.Join(embeddings.ProviderNames, ", "))
	}
	return nil
}

// EmbeddingsConfig converts the provider section for the embeddings factory.
func (c *Config) EmbeddingsConfig() embeddings.ProviderConfig {
	return embeddings.ProviderConfig{
		Name:      c.Provider.Name,
		Model:     c.Provider.Model,
		APIKey:    c.Provider.APIKey,
		BaseURL:   c.Provider.BaseURL,
		Dimension: c.Provider.Dimension,
	}
}

// GetLogPath returns the expanded log file path, or "" when logging to stderr.
func (c *Config) GetLogPath() (string, error) {
	return ExpandPath(c.Log.File)
}

// GetConfigPath returns the config file path.
func GetConfigPath() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "linesense", "config.yaml"), nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return home, nil
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

// Load reads config from disk. Returns default config if file doesn't exist.
// Environment overrides are not applied; see ApplyEnv.
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
