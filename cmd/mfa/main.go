package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/simple-mfa/pkg/codestore"
	"github.com/tendant/simple-mfa/pkg/config"
	"github.com/tendant/simple-mfa/pkg/notification"
	"github.com/tendant/simple-mfa/pkg/ratelimit"
	"github.com/tendant/simple-mfa/pkg/telegram"
	"github.com/tendant/simple-mfa/pkg/twofa"
	twofaapi "github.com/tendant/simple-mfa/pkg/twofa/api"
)

type Config struct {
	Database  config.DatabaseConfig
	Redis     config.RedisConfig
	Email     config.EmailConfig
	Telegram  config.TelegramConfig
	TwoFactor config.TwoFactorConfig
	RateLimit config.RateLimitConfig
	JWT       config.JWTConfig

	// Server
	AppConfig app.AppConfig
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
	}))
	slog.SetDefault(logger)

	loadEnvFile()

	cfg := Config{}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("Failed to read configuration", "error", err)
		os.Exit(1)
	}
	for _, v := range []interface{ Validate() error }{cfg.TwoFactor, cfg.Telegram, cfg.RateLimit} {
		if err := v.Validate(); err != nil {
			slog.Error("Invalid configuration", "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, closeRepo := newRecordRepository(ctx, cfg)
	defer closeRepo()

	store, closeStore := newCodeStore(ctx, cfg)
	defer closeStore()

	botClient := telegram.NewClient(cfg.Telegram.ToClientConfig())

	notices, err := newNotificationManager(cfg, botClient)
	if err != nil {
		slog.Error("Failed to set up notifications", "error", err)
		os.Exit(1)
	}

	opts := cfg.TwoFactor.ProviderOptions()
	manager, err := twofa.NewManager(repo, []twofa.Provider{
		twofa.NewAuthenticatorProvider(cfg.TwoFactor.Issuer, opts...),
		twofa.NewMailboxProvider(store, notices, opts...),
		twofa.NewBotChannelProvider(store, notices, botClient, opts...),
	}, twofa.WithRecordLease(store, cfg.TwoFactor.RecordLeaseTTL))
	if err != nil {
		slog.Error("Failed to create two-factor manager", "error", err)
		os.Exit(1)
	}

	methods := []string{}
	for _, info := range manager.AvailableMethods() {
		methods = append(methods, string(info.Method))
	}
	slog.Info("Two-factor methods available", "methods", strings.Join(methods, ","))

	handleOpts := []twofaapi.Option{twofaapi.WithWebhookSecret(cfg.Telegram.WebhookSecret)}
	if cfg.RateLimit.Enabled {
		limiter := ratelimit.NewMiddleware(cfg.RateLimit.ToMiddlewareConfig())
		go limiter.Janitor(ctx, 10*time.Minute)
		handleOpts = append(handleOpts, twofaapi.WithRateLimit(limiter))
	}
	if cfg.Telegram.IsConfigured() && cfg.Telegram.WebhookSecret == "" {
		slog.Warn("TELEGRAM_WEBHOOK_SECRET is not set, the bot webhook accepts unauthenticated calls")
	}

	tokenAuth := jwtauth.New("HS256", []byte(cfg.JWT.Secret), nil)
	handle := twofaapi.NewHandle(manager, handleOpts...)

	server := app.DefaultApp()
	app.RegisterHealthzRoutes(server.R)
	server.R.Mount(cfg.TwoFactor.Prefix, twofaapi.TwoFaHandler(handle, tokenAuth))

	slog.Info("Two-factor API mounted", "prefix", cfg.TwoFactor.Prefix)
	server.Run()
}

func newRecordRepository(ctx context.Context, cfg Config) (twofa.RecordRepository, func()) {
	repoConfig := twofa.RepositoryConfig{DataDir: cfg.TwoFactor.DataDir}
	closeFn := func() {}

	switch cfg.TwoFactor.RecordStore {
	case "postgres", "postgresql":
		pool, err := pgxpool.New(ctx, cfg.Database.ToDatabaseURL())
		if err != nil {
			slog.Error("Failed to connect to database",
				"host", cfg.Database.Host,
				"port", cfg.Database.Port,
				"database", cfg.Database.Database,
				"error", err)
			os.Exit(1)
		}
		repoConfig.DB = pool
		closeFn = pool.Close
		slog.Info("Database connected", "database", cfg.Database.Database, "schema", cfg.Database.Schema)
	case "memory", "inmem":
		slog.Warn("Security records are kept in memory and lost on restart")
	}

	repo, err := twofa.NewRecordRepository(cfg.TwoFactor.RecordStore, repoConfig)
	if err != nil {
		slog.Error("Failed to create record repository", "type", cfg.TwoFactor.RecordStore, "error", err)
		os.Exit(1)
	}
	return repo, closeFn
}

func newCodeStore(ctx context.Context, cfg Config) (codestore.Store, func()) {
	storeConfig := codestore.StoreConfig{Prefix: cfg.Redis.Prefix}
	closeFn := func() {}

	if cfg.TwoFactor.CodeStore == "redis" {
		client := redis.NewClient(cfg.Redis.ToOptions())
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			slog.Error("Failed to connect to redis", "addr", cfg.Redis.Addr, "error", err)
			os.Exit(1)
		}
		storeConfig.Client = client
		closeFn = func() {
			if err := client.Close(); err != nil {
				slog.Warn("Failed to close redis client", "error", err)
			}
		}
		slog.Info("Redis connected", "addr", cfg.Redis.Addr)
	}

	store, err := codestore.NewStore(cfg.TwoFactor.CodeStore, storeConfig)
	if err != nil {
		slog.Error("Failed to create code store", "type", cfg.TwoFactor.CodeStore, "error", err)
		os.Exit(1)
	}
	return store, closeFn
}

func newNotificationManager(cfg Config, botClient *telegram.Client) (*notification.NotificationManager, error) {
	opts := []notification.NotificationManagerOption{}
	if cfg.Email.Enabled {
		opts = append(opts, notification.WithSMTP(cfg.Email.ToSMTPConfig()))
		slog.Info("Email notifier configured", "host", cfg.Email.Host, "port", cfg.Email.Port)
	}
	if botClient.IsConfigured() {
		opts = append(opts, notification.WithTelegram(botClient))
		slog.Info("Telegram notifier configured", "bot", cfg.Telegram.BotUsername)
	}
	opts = append(opts, notification.WithDefaultTemplates())
	return notification.NewNotificationManagerWithOptions(opts...)
}

// loadEnvFile loads .env from the executable's directory or the working
// directory. A missing file is not an error.
func loadEnvFile() {
	envFile := ".env"
	if execPath, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(candidate); err == nil {
			envFile = candidate
		}
	}

	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		slog.Debug("No .env file found (using environment variables or defaults)")
		return
	}

	slog.Info("Loading configuration from .env file", "path", envFile)
	if err := godotenv.Load(envFile); err != nil {
		slog.Warn("Failed to load .env file", "error", err)
	}
}
