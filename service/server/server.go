package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/solpocket/solpocket/service/db"
	"github.com/solpocket/solpocket/service/metrics"
	chain "github.com/solpocket/solpocket/service/solana"
	"github.com/solpocket/solpocket/service/wallet"
)

// Server exposes the wallet state and transfer operations over HTTP.
type Server struct {
	addr         string
	store        *wallet.Store
	balances     *wallet.BalanceSynchronizer
	history      *wallet.HistorySynchronizer
	orchestrator *wallet.TransferOrchestrator
	reader       chain.ChainReader
	archive      *db.Store
	metrics      *metrics.Metrics
	logger       *slog.Logger
	server       *http.Server
}

// New creates a new HTTP server with the given dependencies.
// The orchestrator is optional - if nil, the transfer endpoint returns 503
// (the daemon has no signing session configured).
// The archive is optional - if nil, the archived-history endpoint is not
// registered.
// The metrics is optional - if nil, no metrics endpoint or middleware is set up.
func New(addr string, store *wallet.Store, balances *wallet.BalanceSynchronizer, history *wallet.HistorySynchronizer, orchestrator *wallet.TransferOrchestrator, reader chain.ChainReader, archive *db.Store, m *metrics.Metrics, logger *slog.Logger) *Server {
	return &Server{
		addr:         addr,
		store:        store,
		balances:     balances,
		history:      history,
		orchestrator: orchestrator,
		reader:       reader,
		archive:      archive,
		metrics:      m,
		logger:       logger,
	}
}

// Handler builds the route table. Exposed separately so tests can drive the
// mux without binding a socket.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Wallet state routes
	mux.Handle("GET /api/v1/balance", handleGetBalance(s.store, s.balances, s.logger))
	mux.Handle("GET /api/v1/history", handleGetHistory(s.store, s.history, s.logger))

	// Transfer routes
	mux.Handle("POST /api/v1/transfers", handleCreateTransfer(s.orchestrator, s.logger))
	mux.Handle("POST /api/v1/transfers/validate", handleValidateTransfer(s.orchestrator, s.store, s.logger))
	mux.Handle("GET /api/v1/transfers/{signature}", handleGetTransferStatus(s.reader, s.logger))

	// Archived history (if a database archive is configured)
	if s.archive != nil {
		mux.Handle("GET /api/v1/archive", handleListArchive(s.archive, s.logger))
		s.logger.Info("archive endpoint enabled")
	}

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics endpoint (if metrics collector is configured)
	var handler http.Handler = mux
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
		handler = metrics.HTTPMetricsMiddleware(s.metrics, "api")(handler)
		s.logger.Info("Prometheus metrics endpoint enabled")
	}

	return corsMiddleware(handler)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		s.logger.Info("shutting down HTTP server")
		return s.server.Shutdown(ctx)
	}
	return nil
}

// corsMiddleware adds CORS headers and handles preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
