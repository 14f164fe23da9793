package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/coinlens/coinlens/internal/config"
	"github.com/coinlens/coinlens/internal/db"
	"github.com/coinlens/coinlens/internal/llm"
	"github.com/coinlens/coinlens/internal/market"
	"github.com/coinlens/coinlens/internal/rag"
	"github.com/coinlens/coinlens/internal/signals"
)

// Server is the coinlens dashboard backend: market-data reads plus the
// conversational assistant.
type Server struct {
	cfg        *config.Config
	db         *db.DB
	gateway    *llm.Gateway
	assembler  *rag.Assembler
	router     chi.Router
	httpServer *http.Server
}

// New wires all dependencies from configuration and an open database.
func New(cfg *config.Config, database *db.DB) *Server {
	var cache market.Cache
	if redisCache := market.NewRedisCache(cfg.RedisURL); redisCache != nil {
		cache = redisCache
	}

	marketStore := market.NewStore(database, cache)
	signalsStore := signals.NewStore(database)

	gateway := llm.NewGatewayFromConfig(cfg, llm.NewHealthState())
	fusion := rag.NewEngine(marketStore, signalsStore, cfg.Features, time.Duration(cfg.FetchTimeoutSec)*time.Second)
	history := rag.NewHistoryStore(database)
	assembler := rag.NewAssembler(gateway, fusion, history, cfg.Features, time.Duration(cfg.CompletionTimeoutSec)*time.Second)

	s := &Server{
		cfg:       cfg,
		db:        database,
		gateway:   gateway,
		assembler: assembler,
	}
	s.router = s.buildRouter(marketStore)
	return s
}

func (s *Server) buildRouter(marketStore *market.Store) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAllOrigins {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	market.RegisterRoutes(r, marketStore)
	rag.RegisterRoutes(r, s.assembler, s.gateway)
	r.Get("/ws/assistant", rag.ChatSocketHandler(s.assembler))

	return r
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() chi.Router { return s.router }

// Database returns the database connection.
func (s *Server) Database() *db.DB { return s.db }

// Start begins listening on the configured port. The write timeout is left
// unset: the assistant stream endpoints hold the response open for as long
// as the provider keeps emitting.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("coinlens server listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
