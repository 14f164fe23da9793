package rag

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/coinlens/coinlens/internal/config"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsRequest is the incoming WebSocket message format. History is carried by
// the client and replayed with every message; the server keeps no session
// state.
type wsRequest struct {
	Type      string        `json:"type"` // "message"
	Content   string        `json:"content"`
	History   []ChatMessage `json:"history,omitempty"`
	UserLevel string        `json:"user_level,omitempty"`
	Coin      string        `json:"coin,omitempty"`
}

// wsResponse is the outgoing WebSocket message format. Chunk frames carry
// Content only; the final metadata frame carries the envelope.
type wsResponse struct {
	Type     string    `json:"type"` // "chunk", "metadata" or "error"
	Content  string    `json:"content,omitempty"`
	Metadata *Response `json:"metadata,omitempty"`
}

// ChatSocketHandler upgrades the connection and answers each message as a
// chunk stream followed by one metadata frame.
func ChatSocketHandler(assembler *Assembler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("rag: websocket upgrade: %v", err)
			return
		}
		defer conn.Close()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("rag: websocket read: %v", err)
				}
				return
			}

			var req wsRequest
			if err := json.Unmarshal(msg, &req); err != nil {
				sendWSError(conn, "invalid message format")
				continue
			}

			req.Content = strings.TrimSpace(req.Content)
			if req.Content == "" {
				sendWSError(conn, "content is required")
				continue
			}
			if req.Type != "" && req.Type != "message" {
				sendWSError(conn, "unknown message type: "+req.Type)
				continue
			}

			opts := Options{
				UserLevel:  config.UserLevel(req.UserLevel),
				CoinSymbol: req.Coin,
			}
			frames, err := assembler.AnswerStream(r.Context(), req.Content, req.History, opts)
			if err != nil {
				sendWSError(conn, err.Error())
				continue
			}

			for frame := range frames {
				var resp wsResponse
				switch frame.Kind {
				case FrameChunk:
					resp = wsResponse{Type: "chunk", Content: frame.Chunk}
				case FrameMetadata:
					resp = wsResponse{Type: "metadata", Metadata: frame.Metadata}
				}
				if err := conn.WriteJSON(resp); err != nil {
					log.Printf("rag: websocket write: %v", err)
					for range frames {
					}
					break
				}
			}
		}
	}
}

func sendWSError(conn *websocket.Conn, message string) {
	if err := conn.WriteJSON(wsResponse{Type: "error", Content: message}); err != nil {
		log.Printf("rag: websocket write error: %v", err)
	}
}
