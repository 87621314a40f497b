package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docuchat-ai/internal/handlers"
	"docuchat-ai/internal/search"
	"docuchat-ai/internal/service"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	ChatService service.ChatService
	Documents   search.DocumentStore
	// HealthChecks are probed by /api/health, keyed by dependency name.
	HealthChecks map[string]handlers.Pinger
	// RateLimitRPS and RateLimitBurst bound chat requests per client IP.
	// A zero RPS disables limiting.
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(CORS)

	chatHandler := handlers.NewChatHandler(deps.ChatService)
	healthHandler := handlers.NewHealthHandler(deps.HealthChecks)
	documentHandler := handlers.NewDocumentHandler(deps.Documents)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", healthHandler)
		r.Method(http.MethodGet, "/documents/{documentID}", documentHandler)

		r.Group(func(r chi.Router) {
			if deps.RateLimitRPS > 0 {
				r.Use(NewIPRateLimiter(deps.RateLimitRPS, deps.RateLimitBurst).Middleware)
			}
			r.Method(http.MethodPost, "/chat", chatHandler)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
