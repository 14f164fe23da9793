package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (COINLENS_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: COINLENS_PORT -> port,
	// COINLENS_OPENAI_API_KEY -> openai.api_key, etc.
	if err := k.Load(env.Provider("COINLENS_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "COINLENS_"))
		for _, prefix := range []string{"openai_", "anthropic_", "features_"} {
			if strings.HasPrefix(key, prefix) {
				return strings.TrimSuffix(prefix, "_") + "." + strings.TrimPrefix(key, prefix)
			}
		}
		return key
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Conventional API key variables win over nothing, not over the file.
	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Anthropic.APIKey == "" {
		cfg.Anthropic.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	return cfg, nil
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

// validProviders is the set of recognized provider values.
var validProviders = map[ProviderType]bool{
	ProviderOpenAI:    true,
	ProviderAnthropic: true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if !validProviders[c.PrimaryProvider] {
		return fmt.Errorf("invalid primary_provider %q: must be one of openai, anthropic", c.PrimaryProvider)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.FetchTimeoutSec <= 0 {
		return fmt.Errorf("fetch_timeout_sec must be positive")
	}
	if c.CompletionTimeoutSec <= 0 {
		return fmt.Errorf("completion_timeout_sec must be positive")
	}
	return nil
}

// Secondary returns the provider tried after the primary one.
func (c *Config) Secondary() ProviderType {
	if c.PrimaryProvider == ProviderAnthropic {
		return ProviderOpenAI
	}
	return ProviderAnthropic
}

// Provider returns the provider config for the given provider name.
func (c *Config) Provider(p ProviderType) ProviderConfig {
	if p == ProviderAnthropic {
		return c.Anthropic
	}
	return c.OpenAI
}
