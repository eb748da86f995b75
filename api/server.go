package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	clog "cosmossdk.io/log"
	"github.com/gorilla/mux"

	"github.com/guru-fund/fundd/api/handlers"
	"github.com/guru-fund/fundd/api/middleware"
	"github.com/guru-fund/fundd/api/types"
	"github.com/guru-fund/fundd/api/websocket"
	"github.com/guru-fund/fundd/metrics"
)

// Server represents the fund API server
type Server struct {
	httpServer *http.Server
	wsServer   *websocket.Server
	config     *Config

	// Services
	fundService types.FundService

	// Handlers
	fundHandler *handlers.FundHandler

	// Rate limiter
	rateLimiter *middleware.RateLimiter

	stopBroadcast chan struct{}
}

// Config contains server configuration
type Config struct {
	Host             string
	Port             int
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	DisableRateLimit bool // For testing purposes

	// ValueBroadcastInterval controls how often the fund value is
	// polled and pushed to websocket subscribers.
	ValueBroadcastInterval time.Duration
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Host:                   "0.0.0.0",
		Port:                   8080,
		ReadTimeout:            30 * time.Second,
		WriteTimeout:           30 * time.Second,
		ValueBroadcastInterval: 2 * time.Second,
	}
}

// NewServer creates an API server backed by an in-memory fund keeper.
func NewServer(config *Config) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}

	service, err := NewKeeperService(clog.NewNopLogger())
	if err != nil {
		return nil, fmt.Errorf("failed to create fund service: %w", err)
	}

	return NewServerWithService(config, service), nil
}

// NewServerWithService creates an API server with a custom fund service
func NewServerWithService(config *Config, service types.FundService) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if config.ValueBroadcastInterval <= 0 {
		config.ValueBroadcastInterval = 2 * time.Second
	}

	wsConfig := websocket.DefaultServerConfig()
	wsConfig.Port = config.Port

	s := &Server{
		config:        config,
		wsServer:      websocket.NewServer(wsConfig),
		fundService:   service,
		rateLimiter:   middleware.NewRateLimiter(middleware.DefaultRateLimitConfig()),
		stopBroadcast: make(chan struct{}),
	}

	s.fundHandler = handlers.NewFundHandler(s.fundService)

	return s
}

// Service returns the underlying fund service
func (s *Server) Service() types.FundService {
	return s.fundService
}

// Start starts the API server
func (s *Server) Start() error {
	r := mux.NewRouter()

	// Health check (support both /health and /v1/health for compatibility)
	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.HandleFunc("/v1/health", s.handleHealth).Methods("GET")

	// Prometheus metrics
	r.Handle("/metrics", metrics.Handler()).Methods("GET")

	// Fund endpoints
	s.fundHandler.RegisterRoutes(r)

	// WebSocket
	r.HandleFunc("/ws", s.wsServer.GetHub().ServeWS)

	// Apply middleware chain: CORS -> RateLimit -> Handler
	var handler http.Handler
	if s.config.DisableRateLimit {
		handler = corsMiddleware(r)
	} else {
		handler = corsMiddleware(
			middleware.RateLimitMiddleware(s.rateLimiter)(r),
		)
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	// Start WebSocket hub
	go s.wsServer.GetHub().Run()

	// Start fund value broadcaster
	go s.runValueBroadcaster()

	log.Printf("fund API server starting on %s", addr)
	if s.config.DisableRateLimit {
		log.Printf("rate limiting DISABLED (for testing)")
	} else {
		log.Printf("rate limiting enabled")
	}
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	close(s.stopBroadcast)
	return s.httpServer.Shutdown(ctx)
}

// runValueBroadcaster polls the fund valuation and pushes updates to
// websocket subscribers on the value channel. Only new observations
// are broadcast.
func (s *Server) runValueBroadcaster() {
	ticker := time.NewTicker(s.config.ValueBroadcastInterval)
	defer ticker.Stop()

	var lastHeight int64
	for {
		select {
		case <-s.stopBroadcast:
			return
		case <-ticker.C:
			latest, err := s.fundService.LatestValue(context.Background())
			if err != nil || latest == nil {
				continue
			}
			if latest.Height <= lastHeight {
				continue
			}
			lastHeight = latest.Height

			s.wsServer.GetHub().BroadcastValue(&websocket.ValueUpdate{
				Height:      latest.Height,
				Timestamp:   latest.Timestamp,
				TotalValue:  latest.TotalValue,
				TotalShares: latest.TotalShares,
			})
		}
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"warning":   "This API uses in-memory storage. For production, connect to a running Cosmos chain.",
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Account-Address")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
