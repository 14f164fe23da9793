package config

// defaultModels maps each provider to the model used when none is configured.
var defaultModels = map[ProviderType]string{
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-haiku-4-5-20251001",
}

// DefaultModel returns the default model for the given provider.
func DefaultModel(provider ProviderType) string {
	return defaultModels[provider]
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:            8085,
		DataDir:         "data",
		PrimaryProvider: ProviderOpenAI,
		OpenAI:          ProviderConfig{Model: defaultModels[ProviderOpenAI]},
		Anthropic:       ProviderConfig{Model: defaultModels[ProviderAnthropic]},
		Features: Features{
			DailySummaries:   true,
			SentimentSignals: true,
			SmartMoney:       true,
			AdaptivePrompts:  true,
		},
		FetchTimeoutSec:      5,
		CompletionTimeoutSec: 45,
	}
}
