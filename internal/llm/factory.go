package llm

import (
	"github.com/coinlens/coinlens/internal/config"
)

// NewGatewayFromConfig builds the completion gateway from configuration.
// Providers without a credential are left unconfigured; the gateway itself
// reports ErrNoProviders when neither has one.
func NewGatewayFromConfig(cfg *config.Config, health *HealthState) *Gateway {
	build := func(pt config.ProviderType) Provider {
		pc := cfg.Provider(pt)
		if pc.APIKey == "" {
			return nil
		}
		model := pc.Model
		if model == "" {
			model = config.DefaultModel(pt)
		}
		var p Provider
		switch pt {
		case config.ProviderAnthropic:
			p = NewAnthropicProvider(pc.APIKey, model)
		default:
			p = NewOpenAIProvider(pc.APIKey, model)
		}
		if pc.RPM > 0 {
			p = NewRateLimitedProvider(p, pc.RPM)
		}
		return p
	}

	models := map[string]string{
		string(config.ProviderOpenAI):    cfg.OpenAI.Model,
		string(config.ProviderAnthropic): cfg.Anthropic.Model,
	}

	return NewGateway(build(cfg.PrimaryProvider), build(cfg.Secondary()), models, health)
}
