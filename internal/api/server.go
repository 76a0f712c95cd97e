// Package api is the HTTP presentation layer: thin JSON wrappers over the
// admission, availability, recurring and report services.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"bookflow/internal/admission"
	"bookflow/internal/availability"
	"bookflow/internal/recurring"
	"bookflow/internal/report"
)

// Pinger verifies the storage backend is reachable.
type Pinger interface {
	Ping() error
}

// HTTPServer holds the service dependencies behind the HTTP endpoints.
type HTTPServer struct {
	admitter  *admission.Service
	checker   *availability.Checker
	generator *recurring.Generator
	exporter  *report.Exporter
	pinger    Pinger
	logger    *zerolog.Logger
	limiter   *ipRateLimiter
}

// NewHTTPServer wires the endpoints. rps/burst configure the per-client
// token bucket; the generator and exporter may be nil to disable their
// endpoints.
func NewHTTPServer(admitter *admission.Service, checker *availability.Checker, generator *recurring.Generator, exporter *report.Exporter, pinger Pinger, rps float64, burst int, logger *zerolog.Logger) *HTTPServer {
	return &HTTPServer{
		admitter:  admitter,
		checker:   checker,
		generator: generator,
		exporter:  exporter,
		pinger:    pinger,
		logger:    logger,
		limiter:   newIPRateLimiter(rps, burst),
	}
}

// Handler builds the route table.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/bookings", s.handleBookings)
	mux.HandleFunc("/api/bookings/", s.handleBookingByID)
	mux.HandleFunc("/api/quotes", s.handleQuotes)
	mux.HandleFunc("/api/slots", s.handleSlots)
	mux.HandleFunc("/api/recurring", s.handleRecurring)
	mux.HandleFunc("/api/recurring/", s.handleRecurringByID)
	mux.HandleFunc("/api/reports/bookings", s.handleBookingsReport)
	mux.HandleFunc("/health", s.handleHealth)
	return s.limiter.middleware(s.logRequests(mux))
}

// ListenAndServe runs the server until ctx is cancelled.
func (s *HTTPServer) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := s.pinger.Ping(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unhealthy", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *HTTPServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
