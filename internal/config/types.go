package config

// ProviderType identifies a completion provider.
type ProviderType string

const (
	ProviderOpenAI    ProviderType = "openai"
	ProviderAnthropic ProviderType = "anthropic"
)

// UserLevel is the experience tier used to adapt assistant answers.
type UserLevel string

const (
	LevelBeginner     UserLevel = "beginner"
	LevelIntermediate UserLevel = "intermediate"
	LevelPro          UserLevel = "pro"
)

// ProviderConfig holds the credential and model for one completion provider.
// An empty APIKey means the provider is not configured. RPM of zero means
// no client-side rate limit.
type ProviderConfig struct {
	APIKey string `yaml:"api_key" koanf:"api_key"`
	Model  string `yaml:"model" koanf:"model"`
	RPM    int    `yaml:"rpm" koanf:"rpm"`
}

// Features lists the optional data sources of the assistant. The fusion
// engine consults this struct instead of reading the environment mid-request.
type Features struct {
	DailySummaries   bool `yaml:"daily_summaries" koanf:"daily_summaries"`
	SentimentSignals bool `yaml:"sentiment_signals" koanf:"sentiment_signals"`
	SmartMoney       bool `yaml:"smart_money" koanf:"smart_money"`
	AdaptivePrompts  bool `yaml:"adaptive_prompts" koanf:"adaptive_prompts"`
}

// Config is the top-level coinlens configuration, corresponding to .coinlens.yml.
type Config struct {
	Port            int            `yaml:"port" koanf:"port"`
	DataDir         string         `yaml:"data_dir" koanf:"data_dir"`
	AllowAllOrigins bool           `yaml:"allow_all_origins" koanf:"allow_all_origins"`
	PrimaryProvider ProviderType   `yaml:"primary_provider" koanf:"primary_provider"`
	OpenAI          ProviderConfig `yaml:"openai" koanf:"openai"`
	Anthropic       ProviderConfig `yaml:"anthropic" koanf:"anthropic"`
	RedisURL        string         `yaml:"redis_url" koanf:"redis_url"`
	Features        Features       `yaml:"features" koanf:"features"`

	// Timeouts in seconds. Data fetches are short; completion calls are not.
	FetchTimeoutSec      int `yaml:"fetch_timeout_sec" koanf:"fetch_timeout_sec"`
	CompletionTimeoutSec int `yaml:"completion_timeout_sec" koanf:"completion_timeout_sec"`
}
