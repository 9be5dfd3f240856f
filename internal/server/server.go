// Package server exposes the masking engine over HTTP for the dashboards
// and wizards that drive masking jobs.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/raaihank/fieldmask/internal/config"
	"github.com/raaihank/fieldmask/internal/events"
	"github.com/raaihank/fieldmask/internal/keystore"
	"github.com/raaihank/fieldmask/internal/logger"
	"github.com/raaihank/fieldmask/internal/masking"
	"github.com/raaihank/fieldmask/internal/vault"
)

// Server hosts the masking API.
type Server struct {
	config  *config.Config
	logger  *logger.Logger
	keys    keystore.KeyStore
	vault   vault.TokenVault
	router  *mux.Router
	server  *http.Server
	hub     *events.Hub
	limiter *clientLimiter

	mu     sync.RWMutex
	engine *masking.Engine
}

// New creates the API server around an already-constructed engine. The key
// store and vault are the same instances the engine's strategies use, so
// lifecycle calls through the API affect running jobs.
func New(cfg *config.Config, engine *masking.Engine, keys keystore.KeyStore, tokenVault vault.TokenVault, log *logger.Logger) *Server {
	hub := events.NewHub(
		cfg.WebSocket.AllowedOrigins,
		cfg.WebSocket.ReadBufferSize,
		cfg.WebSocket.WriteBufferSize,
		log.WithComponent("events").Logger,
	)

	s := &Server{
		config:  cfg,
		logger:  log.WithComponent("server"),
		engine:  engine,
		keys:    keys,
		vault:   tokenVault,
		router:  mux.NewRouter(),
		hub:     hub,
		limiter: newClientLimiter(cfg.Server.RateLimit.RequestsPerSec, cfg.Server.RateLimit.Burst),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET")

	if s.config.WebSocket.Enabled {
		s.router.HandleFunc(s.config.WebSocket.Path, s.hub.HandleWebSocket).Methods("GET")
	}

	api := s.router.PathPrefix("/v1").Subrouter()
	api.Use(s.loggingMiddleware)
	api.Use(s.rateLimitMiddleware)

	api.HandleFunc("/mask", s.handleMask).Methods("POST")
	api.HandleFunc("/preview", s.handlePreview).Methods("POST")
	api.HandleFunc("/score", s.handleScore).Methods("POST")
	api.HandleFunc("/policy", s.handleGetPolicy).Methods("GET")
	api.HandleFunc("/cache", s.handleClearCache).Methods("DELETE")

	api.HandleFunc("/keys", s.handleRegisterKey).Methods("POST")
	api.HandleFunc("/vaults/{ref}", s.handleInitVault).Methods("POST")
	api.HandleFunc("/vaults/{ref}", s.handleClearVault).Methods("DELETE")
	api.HandleFunc("/vaults/{ref}/tokens/{token}", s.handleDetokenize).Methods("GET")
}

// Engine returns the current engine under the reload lock.
func (s *Server) Engine() *masking.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// SetEngine swaps in a freshly built engine, used on policy hot reload.
func (s *Server) SetEngine(engine *masking.Engine) {
	s.mu.Lock()
	s.engine = engine
	s.mu.Unlock()

	s.logger.Info("Masking engine replaced",
		zap.String("policy_id", engine.Policy().ID))
}

// Hub returns the event hub for broadcasting job activity.
func (s *Server) Hub() *events.Hub {
	return s.hub
}

// Start starts the HTTP server and the event hub.
func (s *Server) Start() error {
	s.logger.Info("Starting fieldmask API server",
		zap.Int("port", s.config.Server.Port),
		zap.String("vault_backend", s.config.Vault.Backend),
	)

	go s.hub.Run()

	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping fieldmask API server")
	return s.server.Shutdown(ctx)
}
