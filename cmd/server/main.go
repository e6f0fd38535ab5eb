package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tale-forge/internal/ai"
	"tale-forge/internal/auth"
	"tale-forge/internal/billing"
	"tale-forge/internal/config"
	"tale-forge/internal/credits"
	"tale-forge/internal/database"
	"tale-forge/internal/handler"
	"tale-forge/internal/logger"
	"tale-forge/internal/messaging"
	"tale-forge/internal/middleware"
	"tale-forge/internal/repository"
	"tale-forge/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	connectRetries    = 5
	connectRetryDelay = 2 * time.Second
	shutdownTimeout   = 15 * time.Second
)

func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Encoding:    cfg.LogEncoding,
		Service:     "tale-forge",
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("dsn", cfg.MaskedDSN()),
		zap.String("primaryProvider", cfg.AIPrimaryKind),
		zap.String("fallbackProvider", cfg.AIFallbackKind))

	// --- External Connections ---
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := database.Connect(ctx, database.PoolConfig{
		DSN:         cfg.GetDSN(),
		MaxConns:    cfg.DBMaxConns,
		IdleTimeout: cfg.DBIdleTimeout,
		MaxRetries:  connectRetries,
		RetryDelay:  connectRetryDelay,
	}, log)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pool.Close()

	if err := database.ApplyMigrations(pool, log); err != nil {
		log.Fatal("Failed to apply migrations", zap.Error(err))
	}

	rdb, err := database.ConnectRedis(ctx, &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, connectRetries, connectRetryDelay, log)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer rdb.Close()

	mqConn, err := messaging.ConnectRabbitMQ(ctx, cfg.RabbitMQURL, connectRetries, connectRetryDelay, log)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer mqConn.Close()

	publisher, err := messaging.NewRabbitMQMediaPublisher(mqConn, cfg.MediaExchange, log)
	if err != nil {
		log.Fatal("Failed to create media publisher", zap.Error(err))
	}
	defer publisher.Close()

	// --- AI Providers ---
	primary, err := ai.NewProvider(ctx, ai.ProviderConfig{
		Name:    "primary",
		Kind:    cfg.AIPrimaryKind,
		BaseURL: cfg.AIPrimaryBaseURL,
		Model:   cfg.AIPrimaryModel,
		APIKey:  cfg.AIPrimaryAPIKey,
		Timeout: cfg.AITimeout,
	}, log)
	if err != nil {
		log.Fatal("Failed to create primary AI provider", zap.Error(err))
	}
	providers := []ai.TextProvider{primary}
	if cfg.AIFallbackKind != "" {
		fallback, err := ai.NewProvider(ctx, ai.ProviderConfig{
			Name:    "fallback",
			Kind:    cfg.AIFallbackKind,
			BaseURL: cfg.AIFallbackBaseURL,
			Model:   cfg.AIFallbackModel,
			APIKey:  cfg.AIFallbackAPIKey,
			Timeout: cfg.AITimeout,
		}, log)
		if err != nil {
			log.Fatal("Failed to create fallback AI provider", zap.Error(err))
		}
		providers = append(providers, fallback)
	}
	orchestrator, err := ai.NewOrchestrator(providers, ai.OrchestratorOptions{
		Timeout:     cfg.AITimeout,
		Temperature: cfg.AITemperature,
		Tokens:      ai.NewTiktokenCounter(),
	}, log)
	if err != nil {
		log.Fatal("Failed to create AI orchestrator", zap.Error(err))
	}
	defer func() {
		if err := orchestrator.Close(); err != nil {
			log.Warn("Failed to close AI providers", zap.Error(err))
		}
	}()

	// Без ключа Stripe биллинг выключен, entitlements продолжают работать.
	var payments billing.PaymentProvider
	if cfg.StripeSecretKey != "" {
		stripeProvider, err := billing.NewStripeProvider(billing.StripeConfig{
			SecretKey:       cfg.StripeSecretKey,
			SuccessURL:      cfg.StripeSuccessURL,
			CancelURL:       cfg.StripeCancelURL,
			PortalReturnURL: cfg.StripePortalReturnURL,
		}, log)
		if err != nil {
			log.Fatal("Failed to create Stripe provider", zap.Error(err))
		}
		payments = stripeProvider
	} else {
		log.Warn("STRIPE_SECRET_KEY not set, checkout and portal are disabled")
	}

	verifier, err := auth.NewJWTVerifier(cfg.JWTSecret, log)
	if err != nil {
		log.Fatal("Failed to create token verifier", zap.Error(err))
	}

	// --- Dependency Injection ---
	txHelper := database.NewTransactionHelper(pool, log)
	storyRepo := repository.NewPgStoryRepository(pool, log)
	segmentRepo := repository.NewPgSegmentRepository(pool, log)
	creditRepo := repository.NewPgCreditRepository(pool, log)
	customerRepo := repository.NewPgCustomerRepository(pool, log)
	writer := repository.NewSegmentWriter(txHelper, storyRepo, segmentRepo, creditRepo, log)
	gate := credits.NewGate(creditRepo, log)

	respond := handler.NewErrorResponder(log, cfg.ExposeErrorDetails())
	h := handler.NewHandler(handler.Deps{
		Generation: service.NewGenerationService(storyRepo, segmentRepo, customerRepo, gate, orchestrator, writer, log),
		Stories:    service.NewStoryService(txHelper, storyRepo, segmentRepo, log),
		Credits:    service.NewCreditService(txHelper, creditRepo, customerRepo, gate, log),
		Billing:    service.NewBillingService(payments, customerRepo, log),
		Media:      service.NewMediaService(storyRepo, segmentRepo, customerRepo, publisher, log),
		Verifier:   verifier,
		Respond:    respond,
		RateLimit: middleware.RateLimiter(rdb, middleware.RateLimitConfig{
			Requests: uint(cfg.RateLimitRequests),
			Window:   cfg.RateLimitWindow,
		}, respond, log),
		Readiness: []handler.ReadinessCheck{
			{Name: "postgres", Check: pool.Ping},
			{Name: "redis", Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
		},
	}, log)

	// --- HTTP Server Setup (Gin) ---
	gin.SetMode(gin.ReleaseMode)
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	}

	router := newRouter(cfg, h, log)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Генерация может ждать обоих провайдеров.
		WriteTimeout: 2*cfg.AITimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server listen error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("Shutting down server...", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exited")
}
