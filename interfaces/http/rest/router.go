// Package rest assembles the control API: a small local HTTP surface for
// the UI layer to observe sync status, trigger syncs and scrape metrics.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	appsync "canvassync/application/sync"
	"canvassync/interfaces/http/rest/handlers"
	"canvassync/interfaces/http/rest/middleware"
	"canvassync/pkg/common"
	"canvassync/pkg/metrics"
)

// Router builds the control-API handler tree.
type Router struct {
	engine     *appsync.Engine
	metrics    *metrics.Sync
	logger     *zap.Logger
	enableCORS bool
}

// NewRouter creates a router around the engine.
func NewRouter(engine *appsync.Engine, m *metrics.Sync, logger *zap.Logger, enableCORS bool) *Router {
	return &Router{
		engine:     engine,
		metrics:    m,
		logger:     logger,
		enableCORS: enableCORS,
	}
}

// Setup configures all routes and middleware.
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.enableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"http://localhost:*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			MaxAge:         300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(
		rt.metrics.Registry(),
		promhttp.HandlerOpts{},
	))

	syncHandler := handlers.NewSyncHandler(rt.engine, rt.logger)
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/sync/status", syncHandler.Status)
		r.Post("/sync/full", syncHandler.FullSync)
		r.Route("/canvases/{canvasID}/sync", func(r chi.Router) {
			r.Post("/push", syncHandler.PushCanvas)
			r.Post("/pull", syncHandler.PullCanvas)
		})
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
