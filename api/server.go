/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. zapLogger:  Structured request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/store-quotas/*   Quota distribution workflow
  /api/schemes/*        Scheme catalogue
  /api/commissions/*    Commission statements
  /api/scenarios/*      What-if comparison
  /api/demos/*          Demo data

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(zapLogger(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Store quota routes
		r.Route("/store-quotas", func(r chi.Router) {
			r.Get("/", h.ListStoreQuotas)
			r.Post("/", h.CreateStoreQuota)
			r.Get("/{id}", h.GetStoreQuota)
			r.Get("/{id}/distribution", h.GetDistribution)
			r.Post("/{id}/distribute", h.Distribute)
			r.Post("/{id}/approve", h.ApproveStoreQuota)
		})

		// Scheme routes
		r.Route("/schemes", func(r chi.Router) {
			r.Get("/", h.ListSchemes)
			r.Post("/", h.CreateScheme)
			r.Get("/{id}", h.GetScheme)
			r.Post("/{id}/approve", h.ApproveScheme)
		})

		r.Post("/commissions/compute", h.ComputeCommission)
		r.Post("/scenarios/compare", h.CompareScenarios)

		// Demo routes
		r.Route("/demos", func(r chi.Router) {
			r.Get("/", h.ListDemos)
			r.Get("/current", h.GetCurrentDemo)
			r.Post("/load", h.LoadDemo)
		})
	})

	return r
}

// zapLogger logs one line per request, at warn for 4xx and error for 5xx.
func zapLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				zap.Int("status", status),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("query", r.URL.RawQuery),
				zap.String("ip", r.RemoteAddr),
				zap.Duration("latency", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			}

			if status >= 500 {
				logger.Error("Server error", fields...)
			} else if status >= 400 {
				logger.Warn("Client error", fields...)
			} else {
				logger.Info("Request", fields...)
			}
		})
	}
}
