package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	if len(c.JWT.Secret) < 32 {
		errs = append(errs, "JWT_SECRET must be at least 32 characters")
	}

	if c.LLM.APIKey == "" {
		errs = append(errs, "LLM_API_KEY is required")
	}

	switch c.Quota.Store {
	case QuotaStorePostgres:
		if c.DB.Password == "" {
			errs = append(errs, "DB_PASSWORD is required")
		}
	case QuotaStoreRedis, QuotaStoreMemory:
	default:
		errs = append(errs, fmt.Sprintf("QUOTA_STORE must be postgres, redis or memory, got %q", c.Quota.Store))
	}
	if c.Quota.FreeLimit < 1 {
		errs = append(errs, fmt.Sprintf("QUOTA_FREE_LIMIT must be positive, got %d", c.Quota.FreeLimit))
	}

	if c.Stats.Async && !c.NATS.Enabled {
		errs = append(errs, "STATS_ASYNC requires NATS_ENABLED")
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1-65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1-65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1-65535, got %d", c.Redis.Port))
	}

	if c.Transcript.MaxChars < 0 {
		errs = append(errs, "TRANSCRIPT_MAX_CHARS must not be negative")
	}
	if c.RateLimit.Requests < 1 || c.RateLimit.WindowSec < 1 {
		errs = append(errs, "RATELIMIT_REQUESTS and RATELIMIT_WINDOW_SEC must be positive")
	}

	// Optional surfaces: warn only
	if c.Admin.APIKey == "" {
		slog.Warn("config: ADMIN_API_KEY is empty, admin routes are disabled")
	}
	if c.Stripe.WebhookSecret == "" {
		slog.Warn("config: STRIPE_WEBHOOK_SECRET is empty, billing webhook is disabled")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
