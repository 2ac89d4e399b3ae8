// Package httpserver exposes the board over HTTP.
package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/and161185/sorryboard/internal/metrics"
	"github.com/and161185/sorryboard/internal/security"
	"github.com/and161185/sorryboard/internal/service"
)

// Deps groups what the router needs. Metrics may be nil.
type Deps struct {
	Submit   service.SubmissionService
	Browse   service.BrowseService
	Security *security.Logger
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

// NewRouter wires HTTP routes.
func NewRouter(d Deps) http.Handler {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	sec := d.Security
	if sec == nil {
		sec = security.NewLogger(log)
	}
	h := &Handlers{
		submit:  d.Submit,
		browse:  d.Browse,
		sec:     sec,
		metrics: d.Metrics,
		log:     log,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(Logging(log))
	r.Use(Recover(log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Route("/api/messages", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/submit", h.Submit)
		r.Get("/{id}", h.Get)
	})
	return r
}
