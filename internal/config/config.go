package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Quota store backends.
const (
	QuotaStorePostgres = "postgres"
	QuotaStoreRedis    = "redis"
	QuotaStoreMemory   = "memory"
)

type Config struct {
	Server      ServerConfig
	DB          DBConfig
	Redis       RedisConfig
	NATS        NATSConfig
	JWT         JWTConfig
	Admin       AdminConfig
	LLM         LLMConfig
	Transcript  TranscriptConfig
	Quota       QuotaConfig
	Stats       StatsConfig
	ChatHistory ChatHistoryConfig
	CORS        CORSConfig
	RateLimit   RateLimitConfig
	Stripe      StripeConfig
	Migrations  MigrationsConfig
	Log         LogConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	WriteTimeout time.Duration
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type NATSConfig struct {
	URL     string
	Enabled bool
}

type JWTConfig struct {
	Secret string
}

type AdminConfig struct {
	APIKey string
}

type LLMConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	Timeout   time.Duration
	MaxTokens MaxTokensConfig
}

type MaxTokensConfig struct {
	Explanation int
	Solution    int
	Summary     int
	Chat        int
}

type TranscriptConfig struct {
	BaseURL  string
	CacheTTL time.Duration
	MaxChars int
}

type QuotaConfig struct {
	Store     string
	FreeLimit int
}

type StatsConfig struct {
	Async bool
}

type ChatHistoryConfig struct {
	Turns int
	TTL   time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RateLimitConfig struct {
	Requests  int
	WindowSec int
}

type StripeConfig struct {
	WebhookSecret string
}

// MigrationsConfig points at an on-disk migrations directory. Empty means
// the migrations built into the binary.
type MigrationsConfig struct {
	Path string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	return load(".env")
}

func load(envFile string) (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(envFile), dotenv.ParserEnv("", ".", envKey))

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", envKey), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: k.String("server.host"),
			Port: k.Int("server.port"),
		},
		DB: DBConfig{
			Host:     k.String("db.host"),
			Port:     k.Int("db.port"),
			User:     k.String("db.user"),
			Password: k.String("db.password"),
			Name:     k.String("db.name"),
			SSLMode:  k.String("db.sslmode"),
			MaxConns: int32(k.Int("db.max.conns")),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		NATS: NATSConfig{
			URL:     k.String("nats.url"),
			Enabled: k.Bool("nats.enabled"),
		},
		JWT: JWTConfig{
			Secret: k.String("jwt.secret"),
		},
		Admin: AdminConfig{
			APIKey: k.String("admin.api.key"),
		},
		LLM: LLMConfig{
			BaseURL: k.String("llm.base.url"),
			APIKey:  k.String("llm.api.key"),
			Model:   k.String("llm.model"),
			MaxTokens: MaxTokensConfig{
				Explanation: k.Int("llm.max.tokens.explanation"),
				Solution:    k.Int("llm.max.tokens.solution"),
				Summary:     k.Int("llm.max.tokens.summary"),
				Chat:        k.Int("llm.max.tokens.chat"),
			},
		},
		Transcript: TranscriptConfig{
			BaseURL:  k.String("transcript.base.url"),
			MaxChars: k.Int("transcript.max.chars"),
		},
		Quota: QuotaConfig{
			Store:     strings.ToLower(k.String("quota.store")),
			FreeLimit: k.Int("quota.free.limit"),
		},
		Stats: StatsConfig{
			Async: k.Bool("stats.async"),
		},
		ChatHistory: ChatHistoryConfig{
			Turns: k.Int("chat.history.turns"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(k.String("cors.allowed.origins")),
		},
		RateLimit: RateLimitConfig{
			Requests:  k.Int("ratelimit.requests"),
			WindowSec: k.Int("ratelimit.window.sec"),
		},
		Stripe: StripeConfig{
			WebhookSecret: k.String("stripe.webhook.secret"),
		},
		Migrations: MigrationsConfig{
			Path: k.String("migrations.path"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	// Apply defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "vikal"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "vikal"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 25
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.NATS.URL == "" {
		cfg.NATS.URL = "nats://localhost:4222"
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o-mini"
	}
	if cfg.LLM.MaxTokens.Explanation == 0 {
		cfg.LLM.MaxTokens.Explanation = 1500
	}
	if cfg.LLM.MaxTokens.Solution == 0 {
		cfg.LLM.MaxTokens.Solution = 1000
	}
	if cfg.LLM.MaxTokens.Summary == 0 {
		cfg.LLM.MaxTokens.Summary = 1000
	}
	if cfg.LLM.MaxTokens.Chat == 0 {
		cfg.LLM.MaxTokens.Chat = 600
	}
	if cfg.Transcript.BaseURL == "" {
		cfg.Transcript.BaseURL = "http://localhost:8090"
	}
	if cfg.Transcript.MaxChars == 0 {
		cfg.Transcript.MaxChars = 12000
	}
	if cfg.Quota.Store == "" {
		cfg.Quota.Store = QuotaStorePostgres
	}
	if cfg.Quota.FreeLimit == 0 {
		cfg.Quota.FreeLimit = 3
	}
	if cfg.ChatHistory.Turns == 0 {
		cfg.ChatHistory.Turns = 10
	}
	if cfg.RateLimit.Requests == 0 {
		cfg.RateLimit.Requests = 30
	}
	if cfg.RateLimit.WindowSec == 0 {
		cfg.RateLimit.WindowSec = 60
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "debug"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	// Parse durations
	durations := []struct {
		key  string
		def  string
		dest *time.Duration
	}{
		{"server.write.timeout", "120s", &cfg.Server.WriteTimeout},
		{"llm.timeout", "90s", &cfg.LLM.Timeout},
		{"transcript.cache.ttl", "24h", &cfg.Transcript.CacheTTL},
		{"chat.history.ttl", "168h", &cfg.ChatHistory.TTL},
	}
	for _, d := range durations {
		raw := k.String(d.key)
		if raw == "" {
			raw = d.def
		}
		*d.dest, err = time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", d.key, err)
		}
	}

	return cfg, nil
}

// envKey maps SERVER_PORT to server.port.
func envKey(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "_", "."))
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
