package llm

// Role represents the role of a message sender in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single message in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest contains the parameters for a completion request.
// System is kept separate from Messages because the Anthropic API takes
// the system prompt out of band.
type CompletionRequest struct {
	Model       string
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// CompletionResponse contains the result of a completion request.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}

// TokensUsed returns the total token count of the response, or 0 when the
// provider did not report usage.
func (r *CompletionResponse) TokensUsed() int {
	return r.InputTokens + r.OutputTokens
}

// StreamChunk is one frame of a streamed completion. Either Delta carries
// incremental text, TokensUsed carries the usage total reported near the
// end of the stream, or Err carries a mid-stream failure. The chunk channel
// is closed after the last frame.
type StreamChunk struct {
	Delta      string
	TokensUsed int
	Err        error
}
