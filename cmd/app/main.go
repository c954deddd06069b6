package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"packbot/internal/cache"
	"packbot/internal/catalog"
	"packbot/internal/config"
	"packbot/internal/convo"
	"packbot/internal/httpserver"
	"packbot/internal/jobs"
	"packbot/internal/llm"
	"packbot/internal/logging"
	"packbot/internal/media"
	"packbot/internal/metrics"
	"packbot/internal/pay"
	"packbot/internal/rag"
	"packbot/internal/ratelimit"
	"packbot/internal/repo"
	"packbot/internal/search"
	"packbot/internal/session"
	"packbot/internal/vector"
	"packbot/internal/wa"
	"packbot/migrations"

	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.IsProduction())
	logger.Info("starting packbot", "env", cfg.AppEnv)

	if cfg.PublicBaseURL != "" {
		webhookURL := strings.TrimRight(cfg.PublicBaseURL, "/") + "/webhook/whatsapp"
		logger.Info("public base url configured", "base_url", cfg.PublicBaseURL, "webhook_url", webhookURL)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricRegistry := metrics.Registry(cfg.MetricsNamespace)

	repository, err := repo.New(ctx, cfg.DatabaseURL, cfg.DatabaseSchema, logger)
	if err != nil {
		return fmt.Errorf("init repository: %w", err)
	}
	defer repository.Close()

	if err := repository.RunMigrations(ctx, migrations.Files); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrated")

	if err := repository.SyncGeminiKeys(ctx, cfg.GeminiAPIKeys); err != nil {
		return fmt.Errorf("sync gemini keys: %w", err)
	}

	redisClient := cache.New(cache.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		UseTLS:   cfg.RedisTLS,
	}, logger)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("failed closing redis", "error", err)
		}
	}()
	if err := redisClient.Ping(ctx); err != nil {
		logger.Warn("redis ping failed", "error", err)
	}

	llmClient := llm.New(repository, logger, metricRegistry, llm.Config{
		Model:          cfg.GeminiModel,
		EmbeddingModel: cfg.EmbeddingModel,
		Timeout:        cfg.GeminiTimeout,
		Cooldown:       cfg.GeminiCooldown,
	})

	searchClient := search.New(search.Config{
		APIKey:    cfg.SearchAPIKey,
		EngineID:  cfg.SearchEngineID,
		SiteScope: cfg.SearchSiteScope,
	}, logger)

	vectorStore := vector.New(repository.Pool(), logger)

	ragEngine := rag.New(llmClient, llmClient, vectorStore, searchClient, llm.FallbackVector, logger, metricRegistry, rag.Config{
		DefaultNamespace: cfg.RAGNamespace,
		DefaultTopK:      cfg.RAGTopK,
	})
	ragAdmin := rag.NewAdmin(llmClient, vectorStore, llm.FallbackVector, logger)

	sessions := session.New(repository, logger)
	catalogService := catalog.New(repository, redisClient, logger)
	limiter := ratelimit.New(cfg.RateLimitPerMinute)

	messenger := wa.New(wa.Config{
		AccountSID: cfg.TwilioAccountSID,
		AuthToken:  cfg.TwilioAuthToken,
		FromNumber: cfg.TwilioFromNumber,
	}, logger, metricRegistry)

	mediaBase := cfg.MediaBaseURL
	if mediaBase == "" {
		mediaBase = cfg.PublicBaseURL
	}
	mediaFetcher, err := media.New(cfg.MediaDir, mediaBase, cfg.TwilioAccountSID, cfg.TwilioAuthToken, logger)
	if err != nil {
		return fmt.Errorf("init media storage: %w", err)
	}

	convoEngine := convo.New(sessions, catalogService, ragEngine, repository, messenger, limiter, mediaFetcher, metricRegistry, logger, convo.EngineConfig{
		AdminPhones:       cfg.AdminPhones,
		OrderTTL:          cfg.OrderTTL,
		BookingTTL:        cfg.BookingTTL,
		RAGNamespace:      cfg.RAGNamespace,
		RAGTopK:           cfg.RAGTopK,
		PaymentContentSID: firstToken(cfg.TwilioContentSIDs),
		LLMReady:          llmClient.HasActiveKey,
	})

	jobRunner := jobs.NewRunner(repository, vectorStore, llmClient, messenger, logger, jobs.Config{
		SweepInterval:    cfg.SweepInterval,
		ReminderAfter:    cfg.ReminderAfter,
		CatalogSyncEvery: cfg.CatalogSyncEvery,
		RAGNamespace:     cfg.RAGNamespace,
	})
	go jobRunner.Run(ctx)

	adminAPI := httpserver.NewAdminAPI(logger, cfg.AdminAPIKey, ragAdmin, ragEngine, repository, sessions, catalogService, jobRunner, mediaFetcher, cfg.RAGNamespace)

	httpSrv := httpserver.New(cfg.HTTPListenAddr, logger, metricRegistry, httpserver.Handlers{
		WhatsAppWebhook: wa.NewWebhookHandler(logger, metricRegistry, convoEngine),
		StatusCallback:  wa.NewStatusHandler(logger, repository),
		PaymentWebhook:  pay.NewWebhookHandler(logger, metricRegistry, cfg.PaymentSecret, convoEngine),
	}, httpserver.Dependencies{
		Repository: repository,
		Redis:      redisClient,
		LLMReady:   llmClient.HasActiveKey,
		Admin:      adminAPI,
		MediaDir:   cfg.MediaDir,
	}, cfg.HTTPBasePath)

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Start(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	return nil
}

// firstToken returns the first comma-separated token, trimmed.
func firstToken(s string) string {
	if i := strings.Index(s, ","); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
