package rag

import (
	"context"
	"log"
	"time"

	"github.com/coinlens/coinlens/internal/config"
	"github.com/coinlens/coinlens/internal/llm"
)

// Completer is the provider gateway contract the assembler needs.
// Implemented by llm.Gateway.
type Completer interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.Result, error)
	CompleteStream(ctx context.Context, req llm.CompletionRequest) (*llm.StreamResult, error)
}

// HistoryWriter records answered queries. Implemented by HistoryStore.
type HistoryWriter interface {
	Insert(ctx context.Context, rec HistoryRecord) error
}

// Assembler orchestrates classifier, fusion, prompt, and gateway into a
// single answer or a chunked stream.
type Assembler struct {
	gateway           Completer
	fusion            *Engine
	history           HistoryWriter // nil disables the audit trail
	flags             config.Features
	completionTimeout time.Duration
	now               func() time.Time
}

// NewAssembler creates a response assembler.
func NewAssembler(gateway Completer, fusion *Engine, history HistoryWriter, flags config.Features, completionTimeout time.Duration) *Assembler {
	if completionTimeout <= 0 {
		completionTimeout = 45 * time.Second
	}
	return &Assembler{
		gateway:           gateway,
		fusion:            fusion,
		history:           history,
		flags:             flags,
		completionTimeout: completionTimeout,
		now:               time.Now,
	}
}

func (a *Assembler) effectiveLevel(requested config.UserLevel) config.UserLevel {
	if requested == "" {
		requested = config.LevelIntermediate
	}
	return requested
}

func (a *Assembler) promptLevel(requested config.UserLevel) config.UserLevel {
	if !a.flags.AdaptivePrompts {
		return config.LevelIntermediate
	}
	return a.effectiveLevel(requested)
}

func toLLMMessages(history []ChatMessage, query string) []llm.Message {
	var messages []llm.Message
	for _, m := range history {
		role := llm.RoleUser
		if m.Role == "assistant" {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: m.Content})
	}
	return append(messages, llm.Message{Role: llm.RoleUser, Content: query})
}

// Answer runs the full pipeline and returns one complete response. The only
// errors it surfaces are provider exhaustion and missing provider
// configuration; every data-source failure degrades to lower confidence.
func (a *Assembler) Answer(ctx context.Context, query string, history []ChatMessage, opts Options) (*Response, error) {
	start := a.now()
	level := a.effectiveLevel(opts.UserLevel)

	fused := a.fusion.BuildContext(ctx, query, opts)
	system := BuildSystemPrompt(a.promptLevel(opts.UserLevel), fused.Text, a.now())

	callCtx, cancel := context.WithTimeout(ctx, a.completionTimeout)
	defer cancel()

	res, err := a.gateway.Complete(callCtx, llm.CompletionRequest{
		System:      system,
		Messages:    toLLMMessages(history, query),
		Temperature: 0.3,
	})
	if err != nil {
		return nil, err
	}

	resp := a.buildResponse(res.Content, res.TokensUsed, fused, level)
	a.writeHistory(query, fused, resp, a.now().Sub(start), opts)
	return resp, nil
}

// AnswerStream runs the same pipeline in streaming mode. The returned
// channel yields zero or more chunk frames in provider emission order,
// then exactly one metadata frame, and is closed. A cancelled ctx stops
// chunk forwarding; the history write is still attempted with whatever
// was produced.
func (a *Assembler) AnswerStream(ctx context.Context, query string, history []ChatMessage, opts Options) (<-chan Frame, error) {
	start := a.now()
	level := a.effectiveLevel(opts.UserLevel)

	fused := a.fusion.BuildContext(ctx, query, opts)
	system := BuildSystemPrompt(a.promptLevel(opts.UserLevel), fused.Text, a.now())

	stream, err := a.gateway.CompleteStream(ctx, llm.CompletionRequest{
		System:      system,
		Messages:    toLLMMessages(history, query),
		Temperature: 0.3,
	})
	if err != nil {
		return nil, err
	}

	out := make(chan Frame)
	go func() {
		defer close(out)

		tokens := 0
		aborted := false

	recv:
		for chunk := range stream.Chunks {
			if chunk.Err != nil {
				// The provider already delivered partial text; end the chunk
				// stream and let the metadata frame close the exchange.
				log.Printf("rag: stream ended early: %v", chunk.Err)
				break
			}
			if chunk.TokensUsed > 0 {
				tokens = chunk.TokensUsed
			}
			if chunk.Delta == "" {
				continue
			}
			select {
			case out <- Frame{Kind: FrameChunk, Chunk: chunk.Delta}:
			case <-ctx.Done():
				aborted = true
				break recv
			}
		}

		// Metadata is computed only after the stream completes so the usage
		// total from the trailing chunk is captured.
		resp := a.buildResponse("", tokens, fused, level)
		a.writeHistory(query, fused, resp, a.now().Sub(start), opts)

		if !aborted {
			select {
			case out <- Frame{Kind: FrameMetadata, Metadata: resp}:
			case <-ctx.Done():
			}
		}
	}()
	return out, nil
}

func (a *Assembler) buildResponse(answer string, tokens int, fused *FusedContext, level config.UserLevel) *Response {
	return &Response{
		Answer:             answer,
		DataUsed:           append([]string{}, fused.DataUsed...),
		Confidence:         ConfidenceFor(len(fused.DataUsed)),
		TokensUsed:         tokens,
		UserLevel:          level,
		SuggestedQuestions: SuggestQuestions(fused.Intent.Type, fused.DataUsed, fused.Coins, level),
		SourceQuality:      SourceQualityFor(fused.DataUsed),
		MarketSession:      fused.Session,
		QueryType:          fused.Intent.Type,
		Comparison:         fused.Comparison,
	}
}

// writeHistory appends the audit record on a detached goroutine. Failures
// are logged and swallowed; they never affect the response already on its
// way to the caller.
func (a *Assembler) writeHistory(query string, fused *FusedContext, resp *Response, latency time.Duration, opts Options) {
	if a.history == nil {
		return
	}
	rec := HistoryRecord{
		UserID:         opts.UserID,
		Query:          query,
		QueryType:      fused.Intent.Type,
		DataUsed:       fused.DataUsed,
		Confidence:     resp.Confidence,
		UserLevel:      string(resp.UserLevel),
		Coins:          fused.Coins,
		MarketSession:  fused.Session,
		LatencyMs:      latency.Milliseconds(),
		FearGreedValue: fused.FearGreedValue,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.history.Insert(ctx, rec); err != nil {
			log.Printf("rag: history write failed: %v", err)
		}
	}()
}
