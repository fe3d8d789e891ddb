package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/shehryarbajwa/tabtrace/internal/ratelimit"
)

// SetupRoutes configures the activity store routes
func (h *Handler) SetupRoutes(rateLimiter *ratelimit.Limiter, requestsPerHour int) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", Healthz).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	// Ingestion and reads are rate limited per client
	limited := api.PathPrefix("").Subrouter()
	limited.Use(RateLimitMiddleware(rateLimiter, requestsPerHour))
	limited.HandleFunc("/activity", h.CreateActivity).Methods(http.MethodPost, http.MethodOptions)
	limited.HandleFunc("/activities", h.ListActivities).Methods(http.MethodGet, http.MethodOptions)

	// Development endpoints
	api.HandleFunc("/check-store", h.CheckStore).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/debug", h.Debug)
	api.HandleFunc("/test-data", h.SeedTestData).Methods(http.MethodPost, http.MethodOptions)

	r.Use(corsMiddleware)
	r.Use(requestLogger)

	return r
}

// SetupRoutes configures the tracker agent routes. The bridge handler serves
// the extension's WebSocket at /ws.
func (h *ControlHandler) SetupRoutes(bridge http.HandlerFunc) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", Healthz).Methods(http.MethodGet)
	r.HandleFunc("/ws", bridge).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/pause", h.Pause).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/resume", h.Resume).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/status", h.Status).Methods(http.MethodGet, http.MethodOptions)

	r.Use(corsMiddleware)

	return r
}
