package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

// mockProvider is a test provider that records calls and returns canned
// responses or failures.
type mockProvider struct {
	name     string
	calls    int
	err      error
	content  string
	chunks   []StreamChunk
	streamed int

	// closed once the stream producer has delivered every chunk, so tests
	// can tell a finished producer from a blocked one.
	producerDone chan struct{}
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &CompletionResponse{
		Content:      m.content,
		InputTokens:  10,
		OutputTokens: 20,
		Model:        m.name + "-model",
		FinishReason: "stop",
	}, nil
}

func (m *mockProvider) CompleteStream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	m.streamed++
	if m.err != nil {
		return nil, m.err
	}
	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		if m.producerDone != nil {
			defer close(m.producerDone)
		}
		for _, c := range m.chunks {
			out <- c
		}
	}()
	return out, nil
}

func testModels() map[string]string {
	return map[string]string{"primary": "primary-model", "secondary": "secondary-model"}
}

func TestCompleteUsesPrimaryWhenHealthy(t *testing.T) {
	primary := &mockProvider{name: "primary", content: "from primary"}
	secondary := &mockProvider{name: "secondary", content: "from secondary"}
	g := NewGateway(primary, secondary, testModels(), NewHealthState())

	res, err := g.Complete(context.Background(), CompletionRequest{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if res.ProviderUsed != "primary" {
		t.Errorf("expected primary, got %q", res.ProviderUsed)
	}
	if res.Content != "from primary" {
		t.Errorf("unexpected content %q", res.Content)
	}
	if secondary.calls != 0 {
		t.Errorf("secondary should not be attempted, got %d calls", secondary.calls)
	}
	if res.TokensUsed != 30 {
		t.Errorf("expected 30 tokens, got %d", res.TokensUsed)
	}
}

func TestCompleteSkipsUnconfiguredSecondary(t *testing.T) {
	primary := &mockProvider{name: "primary", content: "ok"}
	g := NewGateway(primary, nil, testModels(), NewHealthState())

	for i := 0; i < 3; i++ {
		res, err := g.Complete(context.Background(), CompletionRequest{})
		if err != nil {
			t.Fatalf("Complete: %v", err)
		}
		if res.ProviderUsed != "primary" {
			t.Errorf("expected primary, got %q", res.ProviderUsed)
		}
	}
}

func TestCompleteFailsOverToSecondary(t *testing.T) {
	primary := &mockProvider{name: "primary", err: errors.New("rate limited")}
	secondary := &mockProvider{name: "secondary", content: "rescued"}
	health := NewHealthState()
	g := NewGateway(primary, secondary, testModels(), health)

	res, err := g.Complete(context.Background(), CompletionRequest{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if res.ProviderUsed != "secondary" {
		t.Errorf("expected secondary, got %q", res.ProviderUsed)
	}
	if res.Content != "rescued" {
		t.Errorf("unexpected content %q", res.Content)
	}

	if snap := health.Snapshot("primary"); snap.Failures != 1 || snap.Successes != 0 {
		t.Errorf("primary counters: %+v", snap)
	}
	if snap := health.Snapshot("secondary"); snap.Successes != 1 || snap.Failures != 0 {
		t.Errorf("secondary counters: %+v", snap)
	}
}

func TestCompleteSurfacesLastErrorOnExhaustion(t *testing.T) {
	primary := &mockProvider{name: "primary", err: errors.New("primary down")}
	secondary := &mockProvider{name: "secondary", err: errors.New("secondary down")}
	g := NewGateway(primary, secondary, testModels(), NewHealthState())

	_, err := g.Complete(context.Background(), CompletionRequest{})
	if err == nil {
		t.Fatal("expected error when all candidates fail")
	}
	if err.Error() != "secondary down" {
		t.Errorf("expected last error surfaced, got %q", err.Error())
	}
}

func TestCompleteNoProvidersIsConfigurationError(t *testing.T) {
	g := NewGateway(nil, nil, testModels(), NewHealthState())

	_, err := g.Complete(context.Background(), CompletionRequest{})
	if !errors.Is(err, ErrNoProviders) {
		t.Fatalf("expected ErrNoProviders, got %v", err)
	}
}

func TestCooldownSkipsFailedProvider(t *testing.T) {
	primary := &mockProvider{name: "primary", err: errors.New("down")}
	secondary := &mockProvider{name: "secondary", content: "ok"}
	health := NewHealthState()
	g := NewGateway(primary, secondary, testModels(), health)

	// First call fails over and records the primary failure.
	if _, err := g.Complete(context.Background(), CompletionRequest{}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if primary.calls != 1 {
		t.Fatalf("expected 1 primary call, got %d", primary.calls)
	}

	// Second call within the cooldown window must not try the primary.
	if _, err := g.Complete(context.Background(), CompletionRequest{}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if primary.calls != 1 {
		t.Errorf("primary retried during cooldown: %d calls", primary.calls)
	}
	if secondary.calls != 2 {
		t.Errorf("expected 2 secondary calls, got %d", secondary.calls)
	}
}

func TestCooldownExpires(t *testing.T) {
	primary := &mockProvider{name: "primary", content: "recovered"}
	secondary := &mockProvider{name: "secondary", content: "ok"}
	health := NewHealthState()
	health.RecordFailure("primary", "down", 0)
	health.markFailureAt("primary", time.Now().Add(-6*time.Minute))
	g := NewGateway(primary, secondary, testModels(), health)

	res, err := g.Complete(context.Background(), CompletionRequest{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if res.ProviderUsed != "primary" {
		t.Errorf("expected primary after cooldown expiry, got %q", res.ProviderUsed)
	}
}

func TestLastResortRetriesCoolingPrimary(t *testing.T) {
	primary := &mockProvider{name: "primary", content: "last resort"}
	health := NewHealthState()
	health.RecordFailure("primary", "transient", 0)
	g := NewGateway(primary, nil, testModels(), health)

	// Primary is in cooldown but is the only configured provider; it must be
	// tried anyway instead of failing with zero candidates.
	res, err := g.Complete(context.Background(), CompletionRequest{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if res.ProviderUsed != "primary" {
		t.Errorf("expected primary as last resort, got %q", res.ProviderUsed)
	}
}

func TestCompleteStreamFailsOver(t *testing.T) {
	primary := &mockProvider{name: "primary", err: errors.New("stream refused")}
	secondary := &mockProvider{name: "secondary", chunks: []StreamChunk{
		{Delta: "hel"}, {Delta: "lo"}, {TokensUsed: 42},
	}}
	health := NewHealthState()
	g := NewGateway(primary, secondary, testModels(), health)

	res, err := g.CompleteStream(context.Background(), CompletionRequest{})
	if err != nil {
		t.Fatalf("CompleteStream: %v", err)
	}
	if res.ProviderUsed != "secondary" {
		t.Errorf("expected secondary, got %q", res.ProviderUsed)
	}

	var text string
	var tokens int
	for c := range res.Chunks {
		if c.Err != nil {
			t.Fatalf("unexpected chunk error: %v", c.Err)
		}
		text += c.Delta
		if c.TokensUsed > 0 {
			tokens = c.TokensUsed
		}
	}
	if text != "hello" {
		t.Errorf("expected %q, got %q", "hello", text)
	}
	if tokens != 42 {
		t.Errorf("expected usage 42, got %d", tokens)
	}

	if snap := health.Snapshot("secondary"); snap.Successes != 1 {
		t.Errorf("expected stream success recorded, got %+v", snap)
	}
}

func TestGetProviderHealth(t *testing.T) {
	primary := &mockProvider{name: "primary"}
	secondary := &mockProvider{name: "secondary"}
	health := NewHealthState()
	g := NewGateway(primary, secondary, testModels(), health)

	// No attempts yet: success rate defaults to 100%.
	report := g.GetProviderHealth()
	if len(report) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(report))
	}
	for _, ph := range report {
		if ph.SuccessRate != 1.0 {
			t.Errorf("%s: expected success rate 1.0 with no attempts, got %v", ph.Name, ph.SuccessRate)
		}
		if !ph.Available {
			t.Errorf("%s: expected available", ph.Name)
		}
	}

	health.RecordFailure("primary", "boom", 100*time.Millisecond)
	health.RecordSuccess("primary", 300*time.Millisecond)

	report = g.GetProviderHealth()
	if report[0].SuccessRate != 0.5 {
		t.Errorf("expected success rate 0.5, got %v", report[0].SuccessRate)
	}
	if report[0].AvgLatency != 200 {
		t.Errorf("expected avg latency 200ms, got %d", report[0].AvgLatency)
	}
	// The failure stamps lastErrorAt, so the primary reports unavailable
	// until the cooldown window passes.
	if report[0].Available {
		t.Error("expected primary unavailable inside cooldown window")
	}
	if report[0].LastError != "boom" {
		t.Errorf("expected last error %q, got %q", "boom", report[0].LastError)
	}
}

func TestHealthStateReset(t *testing.T) {
	health := NewHealthState()
	health.RecordFailure("primary", "boom", time.Second)
	health.Reset()

	if snap := health.Snapshot("primary"); snap.Failures != 0 || snap.LastError != "" {
		t.Errorf("expected cleared counters, got %+v", snap)
	}
}

// A caller that stops receiving mid-stream must not strand the provider's
// producer goroutine, and the attempt still lands in the health state.
func TestCompleteStreamAbortReleasesProviderAndRecordsHealth(t *testing.T) {
	primary := &mockProvider{
		name: "primary",
		chunks: []StreamChunk{
			{Delta: "a"}, {Delta: "b"}, {Delta: "c"}, {Delta: "d"}, {Delta: "e"},
		},
		producerDone: make(chan struct{}),
	}
	health := NewHealthState()
	g := NewGateway(primary, nil, testModels(), health)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	res, err := g.CompleteStream(ctx, CompletionRequest{})
	if err != nil {
		t.Fatalf("CompleteStream: %v", err)
	}

	// Read one chunk, then walk away.
	<-res.Chunks
	cancel()

	select {
	case <-primary.producerDone:
	case <-time.After(2 * time.Second):
		t.Fatal("provider producer goroutine still blocked after abort")
	}

	// The gateway closes the chunk channel without requiring a drain.
	deadline := time.After(2 * time.Second)
	for open := true; open; {
		select {
		case _, ok := <-res.Chunks:
			open = ok
		case <-deadline:
			t.Fatal("chunk channel never closed after abort")
		}
	}

	// Abort is not a provider fault: the attempt counts as a success.
	snap := health.Snapshot("primary")
	if snap.Successes != 1 || snap.Failures != 0 {
		t.Fatalf("health after abort = %d successes, %d failures, want 1/0", snap.Successes, snap.Failures)
	}
}
