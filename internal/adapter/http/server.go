package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/storm-plots-service/internal/domain"
	"github.com/couchcryptid/storm-plots-service/internal/imagestore"
	"github.com/couchcryptid/storm-plots-service/internal/observability"
)

// ImageReader is the read side of the image store.
type ImageReader interface {
	Get(ctx context.Context, key imagestore.Key) ([]byte, error)
	Dates(ctx context.Context) ([]string, error)
	Storms(ctx context.Context, date string) ([]string, error)
	Kinds(ctx context.Context, date, stormID string) ([]domain.PlotKind, error)
	Ping(ctx context.Context) error
}

// Server exposes the image API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	images     ImageReader
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewServer creates an HTTP server with the /api routes, /healthz, /readyz,
// and /metrics. Readiness reports whether the image store is reachable.
func NewServer(addr string, images ImageReader, logger *slog.Logger, metrics *observability.Metrics) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		images:  images,
		logger:  logger,
		metrics: metrics,
	}

	s.handle(mux, "GET /api/dates", s.handleDates)
	s.handle(mux, "GET /api/storms", s.handleStorms)
	s.handle(mux, "GET /api/storms/{storm_id}", s.handleStorm)
	s.handle(mux, "GET /api/images/{date}/{storm_id}/{kind}", s.handleImage)

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(storeReadiness{images}))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// handle registers an API route wrapped with request metrics and access logging.
// The route label is the mux pattern, never the raw path.
func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, s.instrument(pattern, h))
}

func (s *Server) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.metrics.APIRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"bytes", rec.bytes,
			"duration", time.Since(start),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

type storeReadiness struct {
	images ImageReader
}

func (s storeReadiness) CheckReadiness(ctx context.Context) error {
	return s.images.Ping(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
