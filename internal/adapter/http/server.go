package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/outage-alert-service/internal/domain"
)

// jsonBodyLimit caps every JSON request body.
const jsonBodyLimit = 1 << 20

// ReportService ingests and lists outage reports. *domain.Ingester
// implements it.
type ReportService interface {
	Ingest(ctx context.Context, in domain.ReportInput) (domain.IngestResult, error)
	ListReports(ctx context.Context, filter domain.ReportFilter) ([]domain.Report, error)
}

// ProfileService manages dashboard state. *domain.ProfileService implements it.
type ProfileService interface {
	Get(ctx context.Context, uid string) (domain.Profile, error)
	SaveLocation(ctx context.Context, uid, label string, place domain.PlaceResult) (domain.Profile, error)
	RemoveLocation(ctx context.Context, uid, label string) (domain.Profile, error)
	UpdatePreferences(ctx context.Context, uid string, update domain.PreferencesUpdate) (domain.Profile, error)
}

// PhotoStore stores uploaded report photos and returns a public URL.
type PhotoStore interface {
	Upload(ctx context.Context, ext, contentType string, size int64, body io.Reader) (string, error)
}

// Services are the collaborators behind the API. Photos may be nil when
// object storage is not configured.
type Services struct {
	Reports  ReportService
	Profiles ProfileService
	Photos   PhotoStore
	Ready    sharedobs.ReadinessChecker
}

// Options tunes the router.
type Options struct {
	CORSOrigins   []string
	PhotoMaxBytes int64
}

// Server exposes the outage API plus health, readiness, and metrics routes.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server listening on addr.
func NewServer(addr string, svc Services, opts Options, logger *slog.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      NewRouter(svc, opts, logger),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// NewRouter builds the chi router with the full middleware stack.
func NewRouter(svc Services, opts Options, logger *slog.Logger) http.Handler {
	h := &handlers{svc: svc, logger: logger, photoMaxBytes: opts.PhotoMaxBytes}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(newSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(newCORSHandler(opts.CORSOrigins))

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(svc.Ready))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(newMaxBodySizeHandler(jsonBodyLimit))

			r.Post("/reports", h.createReport)
			r.Get("/reports", h.listReports)
			r.Post("/address/normalize", h.normalizeAddress)

			r.Route("/profiles/{uid}", func(r chi.Router) {
				r.Get("/", h.getProfile)
				r.Post("/locations", h.saveLocation)
				r.Delete("/locations/{label}", h.removeLocation)
				r.Put("/preferences", h.updatePreferences)
			})
		})

		// Multipart framing needs headroom beyond the file itself.
		r.With(newMaxBodySizeHandler(opts.PhotoMaxBytes+multipartOverhead)).
			Post("/photos", h.uploadPhoto)
	})

	return r
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

type handlers struct {
	svc           Services
	logger        *slog.Logger
	photoMaxBytes int64
}
