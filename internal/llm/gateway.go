package llm

import (
	"context"
	"errors"
	"log"
	"time"
)

// cooldownWindow is how long a provider is deprioritized after a failure.
const cooldownWindow = 5 * time.Minute

// ErrNoProviders is returned when neither provider has a credential
// configured. This is a configuration error and is never retried.
var ErrNoProviders = errors.New("no completion provider configured: set an OpenAI or Anthropic API key")

// Result is the outcome of a routed completion call.
type Result struct {
	Content      string `json:"content"`
	TokensUsed   int    `json:"tokens_used,omitempty"`
	ProviderUsed string `json:"provider_used"`
	Model        string `json:"model"`
	LatencyMs    int64  `json:"latency_ms"`
}

// StreamResult is the outcome of a routed streaming call. Chunks yields
// text deltas and a usage frame; it is closed when the stream ends.
type StreamResult struct {
	Chunks       <-chan StreamChunk
	ProviderUsed string
	Model        string
}

// ProviderHealth is the diagnostic view of one provider.
type ProviderHealth struct {
	Name        string  `json:"name"`
	Available   bool    `json:"available"`
	SuccessRate float64 `json:"success_rate"`
	AvgLatency  int64   `json:"avg_latency_ms"`
	LastError   string  `json:"last_error,omitempty"`
}

// Gateway routes completion calls across the primary and secondary provider
// with deterministic failover. Either provider may be nil when its
// credential is missing. Candidate iteration is strictly sequential: trying
// providers concurrently would waste quota and make "first success wins"
// ambiguous.
type Gateway struct {
	primary   Provider
	secondary Provider
	models    map[string]string
	health    *HealthState

	now func() time.Time // injectable for cooldown tests
}

// NewGateway creates a gateway over the given providers. models maps each
// provider name to its configured model identifier, for health reporting
// and defaults.
func NewGateway(primary, secondary Provider, models map[string]string, health *HealthState) *Gateway {
	if health == nil {
		health = NewHealthState()
	}
	return &Gateway{
		primary:   primary,
		secondary: secondary,
		models:    models,
		health:    health,
		now:       time.Now,
	}
}

// Health returns the shared health state.
func (g *Gateway) Health() *HealthState {
	return g.health
}

func (g *Gateway) inCooldown(p Provider) bool {
	last := g.health.LastFailureAt(p.Name())
	return !last.IsZero() && g.now().Sub(last) < cooldownWindow
}

// candidates builds the ordered provider list for the next call: primary
// first, then secondary, skipping providers in their cooldown window. When
// every configured provider is cooling down, the primary is force-included
// as a last resort rather than failing with zero candidates.
func (g *Gateway) candidates() ([]Provider, error) {
	if g.primary == nil && g.secondary == nil {
		return nil, ErrNoProviders
	}

	var list []Provider
	if g.primary != nil && !g.inCooldown(g.primary) {
		list = append(list, g.primary)
	}
	if g.secondary != nil && !g.inCooldown(g.secondary) {
		list = append(list, g.secondary)
	}
	if len(list) == 0 && g.primary != nil {
		list = append(list, g.primary)
	}
	if len(list) == 0 {
		// Only the secondary is configured and it is cooling down; retry it
		// anyway for the same last-resort reason.
		list = append(list, g.secondary)
	}
	return list, nil
}

// Complete routes a completion call through the candidate providers in
// order, returning the first success. Every attempt updates the health
// state before the next candidate is tried. If all candidates fail, the
// last error is returned.
func (g *Gateway) Complete(ctx context.Context, req CompletionRequest) (*Result, error) {
	cands, err := g.candidates()
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, p := range cands {
		start := g.now()
		resp, err := p.Complete(ctx, req)
		latency := g.now().Sub(start)
		if err != nil {
			g.health.RecordFailure(p.Name(), err.Error(), latency)
			log.Printf("llm: provider %s failed, trying next: %v", p.Name(), err)
			lastErr = err
			continue
		}
		g.health.RecordSuccess(p.Name(), latency)

		model := resp.Model
		if model == "" {
			model = g.models[p.Name()]
		}
		return &Result{
			Content:      resp.Content,
			TokensUsed:   resp.TokensUsed(),
			ProviderUsed: p.Name(),
			Model:        model,
			LatencyMs:    latency.Milliseconds(),
		}, nil
	}
	return nil, lastErr
}

// CompleteStream routes a streaming call with the same failover policy as
// Complete. Failover only applies to opening the stream; once chunks are
// flowing, a mid-stream error ends the stream and is reported as a failure
// when the channel drains.
func (g *Gateway) CompleteStream(ctx context.Context, req CompletionRequest) (*StreamResult, error) {
	cands, err := g.candidates()
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, p := range cands {
		start := g.now()
		chunks, err := p.CompleteStream(ctx, req)
		if err != nil {
			g.health.RecordFailure(p.Name(), err.Error(), g.now().Sub(start))
			log.Printf("llm: provider %s stream failed, trying next: %v", p.Name(), err)
			lastErr = err
			continue
		}

		// Watch the stream so mid-flight failures still land in the health
		// state and a clean drain counts as a success. If the caller stops
		// receiving, the watcher drains the provider channel itself so the
		// producer goroutine and the underlying connection are released,
		// and the attempt is still recorded.
		watched := make(chan StreamChunk)
		go func(name string) {
			defer close(watched)
			failed := false
			for c := range chunks {
				if c.Err != nil {
					failed = true
					g.health.RecordFailure(name, c.Err.Error(), g.now().Sub(start))
				}
				select {
				case watched <- c:
				case <-ctx.Done():
					// Errors emitted after the caller leaves are the
					// cancelled context, not a provider fault; ignore them.
					for range chunks {
					}
					if !failed {
						g.health.RecordSuccess(name, g.now().Sub(start))
					}
					return
				}
			}
			if !failed {
				g.health.RecordSuccess(name, g.now().Sub(start))
			}
		}(p.Name())

		return &StreamResult{
			Chunks:       watched,
			ProviderUsed: p.Name(),
			Model:        g.models[p.Name()],
		}, nil
	}
	return nil, lastErr
}

// GetProviderHealth reports, per configured provider, availability
// (credential present and not in cooldown), success rate, and mean latency.
func (g *Gateway) GetProviderHealth() []ProviderHealth {
	var out []ProviderHealth
	for _, p := range []Provider{g.primary, g.secondary} {
		if p == nil {
			continue
		}
		snap := g.health.Snapshot(p.Name())
		out = append(out, ProviderHealth{
			Name:        p.Name(),
			Available:   !g.inCooldown(p),
			SuccessRate: snap.SuccessRate(),
			AvgLatency:  snap.AvgLatency().Milliseconds(),
			LastError:   snap.LastError,
		})
	}
	return out
}
