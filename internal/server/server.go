// Package server exposes the pipeline over HTTP and WebSocket.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/flasharb/internal/server/handler"
	"github.com/alanyoungcy/flasharb/internal/server/middleware"
	"github.com/alanyoungcy/flasharb/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // empty disables authentication
}

// Handlers aggregates the route handlers the server registers. Execution and
// Contract may be nil in monitor-only mode; their routes are then omitted.
type Handlers struct {
	Health    *handler.HealthHandler
	Market    *handler.MarketHandler
	Execution *handler.ExecutionHandler
	Contract  *handler.ContractHandler
}

// Server is the headless HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers all routes and builds the middleware chain
// (CORS, logging, auth).
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	mux.HandleFunc("GET /api/prices", handlers.Market.ListPrices)
	mux.HandleFunc("GET /api/prices/{token}", handlers.Market.GetPrice)
	mux.HandleFunc("GET /api/opportunities", handlers.Market.ListOpportunities)
	mux.HandleFunc("GET /api/gas", handlers.Market.GetGas)
	mux.HandleFunc("GET /api/status", handlers.Market.GetStatus)
	mux.HandleFunc("GET /api/calc/profit", handlers.Market.CalcProfit)

	if handlers.Execution != nil {
		mux.HandleFunc("POST /api/execute", handlers.Execution.Execute)
		mux.HandleFunc("GET /api/ledger", handlers.Execution.ListLedger)
		mux.HandleFunc("GET /api/risk/status", handlers.Execution.RiskStatus)
	}

	if handlers.Contract != nil {
		mux.HandleFunc("GET /api/contract/balance/{token}", handlers.Contract.GetBalance)
		mux.HandleFunc("POST /api/contract/withdraw", handlers.Contract.Withdraw)
		mux.HandleFunc("POST /api/contract/pause", handlers.Contract.Pause)
		mux.HandleFunc("POST /api/contract/unpause", handlers.Contract.Unpause)
	}

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      h,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger.With("component", "server"),
	}
}

// Start blocks serving requests until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.logger.Info("listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
