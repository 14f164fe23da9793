package rag

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/coinlens/coinlens/internal/llm"
)

// HealthReporter exposes the gateway's per-provider health snapshot.
// Implemented by llm.Gateway.
type HealthReporter interface {
	GetProviderHealth() []llm.ProviderHealth
}

// ChatRequest is the body of POST /api/assistant/chat.
type ChatRequest struct {
	Query   string        `json:"query"`
	History []ChatMessage `json:"history,omitempty"`
	Options
}

// RegisterRoutes mounts the assistant endpoints on the given router.
func RegisterRoutes(r chi.Router, assembler *Assembler, health HealthReporter) {
	r.Post("/api/assistant/chat", chatHandler(assembler))
	r.Post("/api/assistant/chat/stream", streamHandler(assembler))
	r.Get("/api/assistant/health", healthHandler(health))
}

func chatHandler(a *Assembler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeChatRequest(w, r)
		if !ok {
			return
		}
		resp, err := a.Answer(r.Context(), req.Query, req.History, req.Options)
		if err != nil {
			writeAnswerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// streamHandler emits the answer as server-sent events: one "chunk" event
// per delta, then a single "metadata" event, then the stream closes. A
// dropped client stops the event loop; the assembler's history write has
// already been detached by then.
func streamHandler(a *Assembler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeChatRequest(w, r)
		if !ok {
			return
		}

		frames, err := a.AnswerStream(r.Context(), req.Query, req.History, req.Options)
		if err != nil {
			writeAnswerError(w, err)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		rc := http.NewResponseController(w)
		for frame := range frames {
			payload, err := json.Marshal(frame)
			if err != nil {
				continue
			}
			if _, err := w.Write([]byte("event: " + string(frame.Kind) + "\ndata: " + string(payload) + "\n\n")); err != nil {
				// Client gone. Keep draining so the assembler goroutine
				// finishes and the history write still lands.
				for range frames {
				}
				return
			}
			rc.Flush()
		}
	}
}

func healthHandler(health HealthReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"providers": health.GetProviderHealth(),
		})
	}
}

func decodeChatRequest(w http.ResponseWriter, r *http.Request) (*ChatRequest, bool) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return nil, false
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return nil, false
	}
	return &req, true
}

func writeAnswerError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	if errors.Is(err, llm.ErrNoProviders) {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
