// Package main is the entrypoint for the recipe API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/recipebox/recipebox/internal/auth"
	"github.com/recipebox/recipebox/internal/cache"
	"github.com/recipebox/recipebox/internal/config"
	"github.com/recipebox/recipebox/internal/handler"
	"github.com/recipebox/recipebox/internal/media"
	"github.com/recipebox/recipebox/internal/metrics"
	"github.com/recipebox/recipebox/internal/middleware"
	"github.com/recipebox/recipebox/internal/repository"
	"github.com/recipebox/recipebox/internal/server"
	"github.com/recipebox/recipebox/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	logger.Info("connected to database")

	cacheClient, err := cache.New(ctx, cfg.RedisURL, cache.Options{
		PoolSize:     cfg.RedisPoolSize,
		MinIdleConns: cfg.RedisMinIdleConns,
		DialTimeout:  cfg.RedisDialTimeout,
	})
	if err != nil {
		repo.Close()
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	logger.Info("connected to Redis")

	images, err := media.NewStore(cfg.MediaRoot, cfg.MaxImageSize)
	if err != nil {
		logger.Error("failed to prepare media root", "error", err, "media_root", cfg.MediaRoot)
		os.Exit(1)
	}

	recorder := metrics.NewInMemory()
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)

	keyEnv := auth.EnvLive
	if !cfg.IsProduction() {
		keyEnv = auth.EnvTest
	}

	router := handler.NewRouter(handler.RouterConfig{
		Logger:      logger,
		Tags:        service.NewTagService(repo, recorder),
		Ingredients: service.NewIngredientService(repo, recorder),
		Recipes:     service.NewRecipeService(repo, repo, repo, images, recorder),
		Users:       service.NewUserService(repo, tokens, recorder),
		APIKeys:     service.NewAPIKeyService(repo, cacheClient, keyEnv),
		Health:      handler.NewHealthHandler(repo, cacheClient),
		Admin:       handler.NewAdminHandler(repo, repo, logger),
		Metrics:     recorder,
		Auth: middleware.AuthConfig{
			Logger:      logger,
			Keys:        repo,
			Users:       repo,
			Cache:       cacheClient,
			Tokens:      tokens,
			Metrics:     recorder,
			MinDuration: middleware.DefaultMinAuthDuration,
		},
		RateLimit: middleware.RateLimitConfig{
			Logger:        logger,
			Limiter:       cacheClient,
			Metrics:       recorder,
			APIEnabled:    cfg.RateLimitAPIEnabled,
			PublicEnabled: cfg.RateLimitPublicEnabled,
			PublicRPS:     cfg.RateLimitPublicRPS,
			PublicBurst:   cfg.RateLimitPublicBurst,
		},
		Media:         images.Handler(cfg.MediaURL),
		MediaURL:      cfg.MediaURL,
		CORSOrigins:   cfg.GetCORSAllowedOrigins(),
		IsDevelopment: cfg.IsDevelopment(),
		MaxBodySize:   cfg.MaxRequestBodySize,
		MaxImageSize:  cfg.MaxImageSize,
	})

	srv := server.New(router, server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// Closed in reverse: Redis first, then Postgres.
	srv.OnShutdown("postgres", func(context.Context) error {
		repo.Close()
		return nil
	})
	srv.OnShutdown("redis", func(context.Context) error {
		return cacheClient.Close()
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"media_root", images.Root(),
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h).With("service", "recipe-api")
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s&]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
