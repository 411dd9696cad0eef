package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/vikal-platform/vikal/internal/api"
	"github.com/vikal-platform/vikal/internal/auth"
	"github.com/vikal-platform/vikal/internal/billing"
	"github.com/vikal-platform/vikal/internal/config"
	"github.com/vikal-platform/vikal/internal/database"
	"github.com/vikal-platform/vikal/internal/governance"
	"github.com/vikal-platform/vikal/internal/governance/quota"
	"github.com/vikal-platform/vikal/internal/llm"
	"github.com/vikal-platform/vikal/internal/memory"
	mw "github.com/vikal-platform/vikal/internal/middleware"
	inats "github.com/vikal-platform/vikal/internal/nats"
	"github.com/vikal-platform/vikal/internal/orchestrator"
	"github.com/vikal-platform/vikal/internal/prompt"
	iredis "github.com/vikal-platform/vikal/internal/redis"
	"github.com/vikal-platform/vikal/internal/server"
	"github.com/vikal-platform/vikal/internal/stats"
	"github.com/vikal-platform/vikal/internal/study"
	"github.com/vikal-platform/vikal/internal/transcript"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// PostgreSQL backs the quota ledger and usage stats unless the quota
	// store says otherwise.
	var pool *pgxpool.Pool
	if cfg.Quota.Store == config.QuotaStorePostgres {
		if err := database.RunMigrations(cfg.DB.DSN(), cfg.Migrations.Path); err != nil {
			slog.Error("running migrations", "error", err)
			os.Exit(1)
		}
		pool, err = database.NewPostgresPool(ctx, cfg.DB)
		if err != nil {
			slog.Error("connecting to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
	}

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// NATS
	var natsClient *inats.Client
	if cfg.NATS.Enabled {
		natsClient, err = inats.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Error("connecting to nats", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()
	}

	// Quota ledger
	var quotaStore quota.Store
	switch cfg.Quota.Store {
	case config.QuotaStoreRedis:
		quotaStore = quota.NewRedisStore(redisClient)
	case config.QuotaStoreMemory:
		quotaStore = quota.NewMemoryStore()
	default:
		quotaStore = quota.NewRepository(pool)
	}
	ledger := quota.NewLedger(quotaStore, cfg.Quota.FreeLimit)

	// Usage stats
	var statsStore stats.Store = stats.NewMemoryStore()
	if pool != nil {
		statsStore = stats.NewRepository(pool)
	}
	statsSvc := stats.NewService(statsStore)

	var usage orchestrator.UsageRecorder = statsSvc
	if cfg.Stats.Async {
		usage = stats.NewAsyncRecorder(inats.NewPublisher(natsClient.JetStream()))
	}

	// Prompts
	registry, err := prompt.NewRegistry()
	if err != nil {
		slog.Error("loading prompt templates", "error", err)
		os.Exit(1)
	}

	// Orchestrator
	orch := orchestrator.NewService(orchestrator.Deps{
		Ledger:   ledger,
		Renderer: registry,
		Completer: llm.NewClient(llm.Config{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.LLM.APIKey,
			Timeout: cfg.LLM.Timeout,
		}),
		Transcripts: transcript.NewCachedFetcher(
			transcript.NewClient(cfg.Transcript.BaseURL, 0),
			redisClient,
			cfg.Transcript.CacheTTL,
		),
		Usage:   usage,
		History: memory.NewHistoryStore(redisClient, cfg.ChatHistory.Turns, cfg.ChatHistory.TTL),
	}, orchestrator.Config{
		Model: cfg.LLM.Model,
		MaxTokens: map[study.Kind]int{
			study.KindExplanation: cfg.LLM.MaxTokens.Explanation,
			study.KindSolution:    cfg.LLM.MaxTokens.Solution,
			study.KindSummary:     cfg.LLM.MaxTokens.Summary,
			study.KindChat:        cfg.LLM.MaxTokens.Chat,
		},
		TranscriptMaxChars: cfg.Transcript.MaxChars,
	})
	orchHandler := orchestrator.NewHandler(orch)
	govHandler := governance.NewHandler(ledger)
	statsHandler := stats.NewHandler(statsSvc)

	var webhook http.Handler
	if cfg.Stripe.WebhookSecret != "" {
		webhook = billing.NewWebhookHandler(cfg.Stripe.WebhookSecret, ledger)
	}

	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, 0)
	limiter := mw.NewRateLimiter(redisClient, "study", cfg.RateLimit.Requests, cfg.RateLimit.WindowSec).
		PerSubject(auth.UserSubject)

	router := api.NewRouter(api.Probes{
		Pool:  pool,
		Redis: redisClient,
		NATS:  natsClient,
	}, api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		StudyRateLimiter:   limiter.Middleware,
	}, api.HandlerSet{
		Explain:   orchHandler.Explain,
		Solve:     orchHandler.Solve,
		Summarize: orchHandler.Summarize,
		Chat:      orchHandler.Chat,

		GetQuota:      govHandler.GetQuota,
		UpgradeUser:   govHandler.Upgrade,
		GetDailyStats: statsHandler.GetDaily,
		StripeWebhook: webhook,

		AuthMiddleware:  auth.Middleware(jwtManager),
		AdminMiddleware: auth.AdminMiddleware(cfg.Admin.APIKey),
	})

	g, gctx := errgroup.WithContext(ctx)

	srv := server.New(cfg.Server, router)
	g.Go(func() error {
		return srv.Run(gctx)
	})

	if cfg.Stats.Async {
		consumer := stats.NewConsumer(statsSvc, inats.NewConsumerManager(natsClient.JetStream()))
		g.Go(func() error {
			return consumer.Start(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
