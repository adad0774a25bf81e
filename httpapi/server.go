package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/meepleai/gateway/answercache"
	"github.com/meepleai/gateway/auth"
	"github.com/meepleai/gateway/health"
	"github.com/meepleai/gateway/observe"
	"github.com/meepleai/gateway/ratelimit"
	"github.com/meepleai/gateway/resilience"
	"github.com/meepleai/gateway/sessioncache"
	"github.com/meepleai/gateway/stream"
)

// ServerConfig wires the HTTP surface.
type ServerConfig struct {
	Controller *stream.Controller
	Limiter    *ratelimit.Limiter
	Cache      *answercache.Cache
	Sessions   *sessioncache.Validator
	Codec      *auth.TokenCodec
	Bulkhead   *resilience.Bulkhead
	Health     *health.Registry
	Logger     observe.Logger
}

// Server carries the handler dependencies.
type Server struct {
	controller *stream.Controller
	limiter    *ratelimit.Limiter
	cache      *answercache.Cache
	sessions   *sessioncache.Validator
	codec      *auth.TokenCodec
	bulkhead   *resilience.Bulkhead
	health     *health.Registry
	logger     observe.Logger
}

// NewServer creates the HTTP surface.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Controller == nil || cfg.Limiter == nil || cfg.Cache == nil {
		return nil, errors.New("httpapi: controller, limiter and cache are required")
	}
	if cfg.Sessions == nil || cfg.Codec == nil {
		return nil, errors.New("httpapi: session validator and token codec are required")
	}
	if cfg.Bulkhead == nil {
		cfg.Bulkhead = resilience.NewBulkhead(0)
	}
	if cfg.Health == nil {
		cfg.Health = health.NewRegistry(0)
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}
	return &Server{
		controller: cfg.Controller,
		limiter:    cfg.Limiter,
		cache:      cfg.Cache,
		sessions:   cfg.Sessions,
		codec:      cfg.Codec,
		bulkhead:   cfg.Bulkhead,
		health:     cfg.Health,
		logger:     cfg.Logger.WithComponent("httpapi"),
	}, nil
}

// Routes builds the gateway mux. All routes pass through the session
// middleware except the health probe.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /games/{gameID}/qa/stream", s.handleStream)
	mux.HandleFunc("GET /cache/stats", s.handleCacheStats)
	mux.HandleFunc("POST /cache/invalidate/game/{gameID}", s.handleInvalidateGame)
	mux.HandleFunc("POST /cache/invalidate/tag/{tag}", s.handleInvalidateTag)

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", health.Handler(s.health))
	root.Handle("/", s.withSession(mux))
	return root
}

// apiError is the JSON error body.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiError{Code: code, Message: message})
}
