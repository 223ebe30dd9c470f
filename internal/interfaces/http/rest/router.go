// Package rest exposes the flow editor over HTTP
package rest

import (
	"expvar"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/avatarflowx/avatarflowx/internal/infrastructure/metrics"
)

// RouterConfig holds the transport settings of the router
type RouterConfig struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
	EnableProfiler bool // mount /debug/pprof; /debug/vars is always served
}

// Router creates and configures the HTTP router
type Router struct {
	handler *Handler
	cfg     RouterConfig
	logger  *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(handler *Handler, cfg RouterConfig, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"http://localhost:3000"}
	}
	return &Router{handler: handler, cfg: cfg, logger: logger}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(Logger(rt.logger))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/healthz", rt.healthCheck)
	router.Handle("/metrics", metrics.PrometheusHandler())
	if rt.cfg.EnableProfiler {
		router.Mount("/debug", chimiddleware.Profiler())
	} else {
		router.Handle("/debug/vars", expvar.Handler())
	}

	h := rt.handler
	router.Route("/api", func(r chi.Router) {
		r.Use(Timeout(rt.cfg.RequestTimeout))

		r.Post("/flows/extract", h.Extract)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", h.OpenSession)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", h.GetSession)
				r.Delete("/", h.CloseSession)
				r.Post("/apply", h.Apply)
				r.Post("/undo", h.Undo)
				r.Post("/redo", h.Redo)
				r.Post("/clear", h.Clear)
				r.Post("/generate", h.Generate)

				r.Post("/checkpoints", h.SaveCheckpoint)
				r.Get("/checkpoints", h.ListCheckpoints)
				r.Post("/checkpoints/{checkpointID}/restore", h.RestoreCheckpoint)
				r.Delete("/checkpoints/{checkpointID}", h.DeleteCheckpoint)
			})
		})

		r.Post("/forms/{formID}/submissions", h.SubmitForm)
		r.Get("/forms/{formID}/submissions", h.ListSubmissions)
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}
