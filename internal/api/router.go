package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds each dependency check in /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", s.handleStartConversation)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetConversation)
				r.Delete("/", s.handleEndConversation)
				r.Post("/turns", s.handleTurn)
				r.Post("/confirm", s.handleConfirm)
				r.Post("/submit", s.handleSubmit)
			})
		})

		r.Get("/turns", s.handleListTurns)
		r.Post("/match", s.handleMatch)

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/", s.handleCatalogStats)
			r.Get("/devices", s.handleListDevices)
			r.Get("/devices/{id}", s.handleGetDevice)
			r.Get("/areas", s.handleListAreas)
			r.Get("/floors", s.handleListFloors)
			r.Get("/anomalies", s.handleCatalogAnomalies)
			r.Post("/reload", s.handleCatalogReload)
		})

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status and that of each
// registered dependency. Any failing dependency makes the response 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	components := make(map[string]string, len(s.health))
	for name, checker := range s.health {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := checker.HealthCheck(ctx)
		cancel()
		if err != nil {
			components[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	writeJSON(w, status, map[string]any{
		"status":        overall,
		"version":       s.version,
		"conversations": s.dialogue.Sessions().Len(),
		"components":    components,
	})
}
