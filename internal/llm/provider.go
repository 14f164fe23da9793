package llm

import "context"

// Provider defines the interface for completion providers.
type Provider interface {
	// Complete sends a completion request and returns the full response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// CompleteStream sends a completion request and returns a channel of
	// incremental chunks. The returned error covers request setup only;
	// failures after streaming begins arrive as StreamChunk.Err.
	CompleteStream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error)
	// Name returns the name of this provider.
	Name() string
}
