package tracking

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/prestige-production/outreach/internal/metrics"
)

// trackingPixel is a 1x1 transparent GIF served on open events.
var trackingPixel = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x04, 0x01, 0x00, 0x3b,
}

// defaultRedirect is used when a click carries no target URL.
const defaultRedirect = "https://prestigeproduction.ch"

// Server is the open/click/bounce tracking HTTP service
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	store      *Store
	addr       string
	logger     *slog.Logger
	metrics    *metrics.Metrics // optional
}

// SetMetrics enables Prometheus counters for tracking events.
func (s *Server) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

func (s *Server) countEvent(kind string) {
	if s.metrics != nil {
		s.metrics.TrackingEventsTotal.WithLabelValues(kind).Inc()
	}
}

// NewServer creates the tracking server.
func NewServer(store *Store, addr string, logger *slog.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		store:  store,
		addr:   addr,
		logger: logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/track/open/{id}", s.handleOpen)
	s.router.Get("/track/click/{id}", s.handleClick)
	s.router.Get("/track/bounce/{id}", s.handleBounce)
	s.router.Get("/api/stats", s.handleStats)
	s.router.Get("/dashboard", s.handleDashboard)
	s.router.Get("/health", s.handleHealth)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting tracking server", "addr", s.addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down tracking server")
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// handleOpen records an open and returns the pixel. The pixel is returned
// even when the ID is unknown so broken links do not render as broken images.
func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.store.RecordOpen(r.Context(), id, r.UserAgent(), r.RemoteAddr); err != nil {
		s.logger.Warn("failed to record open", "tracking_id", id, "error", err)
	} else {
		s.countEvent("open")
	}

	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.WriteHeader(http.StatusOK)
	w.Write(trackingPixel)
}

// handleClick records a click and redirects to the target URL.
func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	target := r.URL.Query().Get("url")
	if target == "" {
		target = defaultRedirect
	}

	if err := s.store.RecordClick(r.Context(), id, r.UserAgent(), r.RemoteAddr); err != nil {
		s.logger.Warn("failed to record click", "tracking_id", id, "error", err)
	} else {
		s.countEvent("click")
	}

	http.Redirect(w, r, target, http.StatusFound)
}

// handleBounce records a bounce reported by the email provider.
func (s *Server) handleBounce(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.store.RecordBounce(r.Context(), id); err != nil {
		s.logger.Warn("failed to record bounce", "tracking_id", id, "error", err)
		s.sendJSON(w, http.StatusNotFound, map[string]string{"status": "unknown tracking id"})
		return
	}

	s.countEvent("bounce")
	s.sendJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// handleStats returns aggregate tracking statistics.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.logger.Error("failed to load tracking stats", "error", err)
		s.sendJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load stats"})
		return
	}
	s.sendJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"remote_addr", r.RemoteAddr,
		)
	})
}
