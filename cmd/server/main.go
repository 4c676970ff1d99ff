package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"nexcv-backend/internal/auth"
	"nexcv-backend/internal/billing"
	"nexcv-backend/internal/cache"
	"nexcv-backend/internal/config"
	"nexcv-backend/internal/credits"
	"nexcv-backend/internal/handlers"
	"nexcv-backend/internal/httpserver"
	"nexcv-backend/internal/importer"
	"nexcv-backend/internal/llm"
	"nexcv-backend/internal/metrics"
	"nexcv-backend/internal/store"
	"nexcv-backend/pkg/logging"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}

func run() error {
	// ----- Logger -----
	logger := logging.DefaultLogger()
	defer logger.Sync()

	// ----- Metrics -----
	metrics.Register()

	// ----- Config -----
	cfg := config.Load()

	logger.Info("loaded config",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
		zap.String("cache_backend", cfg.CacheBackend),
		zap.String("redis_addr", cfg.RedisAddr),
		zap.String("llm_base_url", cfg.LLMBaseURL),
		zap.Bool("dev_auth", cfg.DevAuth),
	)

	// ----- Cache store -----
	var cacheStore cache.Store
	if cfg.CacheBackend == "redis" {
		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		})
		cacheStore = cache.NewRedisStore(redisClient, logger)
	} else {
		cacheStore = cache.NewMemoryStore(time.Minute)
	}
	cacheStore = cache.NewLoggingStore(cacheStore)

	cacheSvc := cache.NewService(cacheStore, logger)
	// A dead cache degrades reads to misses and writes to no-ops; the
	// service stays up.
	if err := cacheSvc.Connect(context.Background()); err != nil {
		logger.Warn("cache unavailable, running degraded", zap.Error(err))
	}
	defer cacheSvc.Disconnect(context.Background())

	// ----- Database -----
	db, err := store.Open(cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := store.Migrate(context.Background(), db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	resumes := store.NewResumes(db)
	users := store.NewUsers(db)
	interactions := store.NewInteractions(db)

	// ----- LLM client -----
	if cfg.LLMAPIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required")
	}

	llmClient, err := llm.NewClient(llm.Config{
		BaseURL: cfg.LLMBaseURL,
		APIKey:  cfg.LLMAPIKey,
		Model:   cfg.LLMModel,
	}, logger)
	if err != nil {
		return err
	}
	if closer, ok := llmClient.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	// ----- Auth -----
	if cfg.JWTSecret == "" && !cfg.DevAuth {
		return fmt.Errorf("JWT_SECRET is required unless DEV_AUTH is on")
	}
	resolver := auth.NewResolver(cfg.JWTSecret, cfg.DevAuth)

	// ----- Credits + billing -----
	creditsSvc := credits.NewService(users, logger)

	var provider billing.Provider
	if cfg.StripeSecretKey != "" {
		provider = billing.NewStripeProvider(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.FrontendURL)
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set, purchases disabled")
	}

	// ----- Profile importer -----
	var fetcher handlers.ProfileFetcher
	if cfg.ProxycurlAPIKey != "" {
		importClient, err := importer.NewClient(importer.Config{APIKey: cfg.ProxycurlAPIKey}, logger)
		if err != nil {
			return err
		}
		fetcher = importClient
	} else {
		logger.Warn("PROXYCURL_API_KEY not set, profile import disabled")
	}

	// ----- Router + middleware -----
	r := chi.NewRouter()
	httpserver.SetupRouter(r, logger, httpserver.Handlers{
		Resumes:    handlers.NewResumeHandler(resumes, cacheSvc),
		AI:         handlers.NewAIHandler(cacheSvc, llmClient, interactions),
		Credits:    handlers.NewCreditsHandler(creditsSvc, provider, users),
		Import:     handlers.NewImportHandler(fetcher),
		Auth:       resolver,
		CreditsSvc: creditsSvc,
	})

	// ----- HTTP server -----
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("starting server",
		zap.String("addr", srv.Addr),
		zap.String("cache_backend", cfg.CacheBackend),
	)

	// Start server in background
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	// ----- Graceful shutdown -----
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return err
	}

	logger.Info("server shutdown complete")
	return nil
}
