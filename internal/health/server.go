package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/abbank/notification-gateway/internal/consumer"
)

// StatsSource exposes the consume-loop counters for the stats endpoint.
type StatsSource interface {
	Snapshot() consumer.Snapshot
}

// ServerOption configures the health server.
type ServerOption func(*Server)

// Server serves the liveness, readiness, and stats endpoints.
//
//	GET /health        200 {"status":"UP"}       when ready, 503 {"status":"DOWN"} otherwise
//	GET /health/live   200 {"status":"ALIVE"}    whenever the process responds
//	GET /health/ready  200 {"status":"READY"}    when ready, 503 {"status":"NOT_READY"} otherwise
//	GET /health/stats  200 counters JSON
type Server struct {
	gate   *Gate
	stats  StatsSource
	srv    *http.Server
	logger *slog.Logger
}

// NewServer creates a health server bound to the given port.
func NewServer(port int, gate *Gate, stats StatsSource, opts ...ServerOption) *Server {
	s := &Server{
		gate:   gate,
		stats:  stats,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/live", s.handleLive)
	mux.HandleFunc("/health/ready", s.handleReady)
	mux.HandleFunc("/health/stats", s.handleStats)

	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// WithServerLogger sets the logger for the health server.
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// Handler returns the HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// ListenAndServe blocks serving health probes until Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.logger.Info("health endpoint listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}

// Shutdown stops the server, waiting for in-flight probes up to ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if s.gate.Ready() {
		writeStatus(w, http.StatusOK, "UP")
		return
	}
	writeStatus(w, http.StatusServiceUnavailable, "DOWN")
}

func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, http.StatusOK, "ALIVE")
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.gate.Ready() {
		writeStatus(w, http.StatusOK, "READY")
		return
	}
	writeStatus(w, http.StatusServiceUnavailable, "NOT_READY")
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.stats == nil {
		w.Write([]byte(`{}`))
		return
	}
	json.NewEncoder(w).Encode(s.stats.Snapshot())
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"status":%q}`, status)
}
