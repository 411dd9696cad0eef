package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/vikal-platform/vikal/internal/database"
	mw "github.com/vikal-platform/vikal/internal/middleware"
	inats "github.com/vikal-platform/vikal/internal/nats"
	iredis "github.com/vikal-platform/vikal/internal/redis"
)

// HandlerSet holds handler functions injected from main.go to avoid import cycles.
type HandlerSet struct {
	// Study actions
	Explain   http.HandlerFunc
	Solve     http.HandlerFunc
	Summarize http.HandlerFunc
	Chat      http.HandlerFunc

	// Quota
	GetQuota    http.HandlerFunc
	UpgradeUser http.HandlerFunc

	// Stats
	GetDailyStats http.HandlerFunc

	// Billing; nil when no webhook secret is configured
	StripeWebhook http.Handler

	AuthMiddleware  func(http.Handler) http.Handler
	AdminMiddleware func(http.Handler) http.Handler
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	StudyRateLimiter   func(http.Handler) http.Handler
}

// Dependencies probed by the readiness endpoint. Nil entries are reported as
// not configured.
type Probes struct {
	Pool  *pgxpool.Pool
	Redis *redis.Client
	NATS  *inats.Client
}

func NewRouter(probes Probes, cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		JSONRaw(w, http.StatusOK, map[string]string{"message": "API is running", "status": "ok"})
	})

	// Liveness probe: always 200, no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{
			"status":   "healthy",
			"database": "healthy",
			"redis":    "healthy",
			"nats":     "healthy",
		}
		status := http.StatusOK

		degrade := func(name string) {
			health[name] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}

		if probes.Pool == nil {
			health["database"] = "not configured"
		} else if err := database.HealthCheck(r.Context(), probes.Pool); err != nil {
			degrade("database")
		}

		if probes.Redis == nil {
			health["redis"] = "not configured"
		} else if err := iredis.HealthCheck(r.Context(), probes.Redis); err != nil {
			degrade("redis")
		}

		if probes.NATS == nil {
			health["nats"] = "not configured"
		} else if !probes.NATS.Healthy() {
			degrade("nats")
		}

		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if h.StripeWebhook != nil {
			r.Method(http.MethodPost, "/billing/stripe/webhook", h.StripeWebhook)
		}

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)

			r.Group(func(r chi.Router) {
				if cfg.StudyRateLimiter != nil {
					r.Use(cfg.StudyRateLimiter)
				}
				r.Post("/explain", h.Explain)
				r.Post("/solve", h.Solve)
				r.Post("/summarize", h.Summarize)
				r.Post("/chat", h.Chat)
			})

			r.Get("/quota", h.GetQuota)
		})

		// Operator routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(h.AdminMiddleware)
			r.Post("/users/{userID}/upgrade", h.UpgradeUser)
			r.Get("/stats/daily", h.GetDailyStats)
		})
	})

	return r
}
