package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"tastesync/api_content/internal/agents"
	appconfig "tastesync/api_content/internal/config"
	"tastesync/api_content/internal/enhanced"
	"tastesync/api_content/internal/handlers"
	"tastesync/api_content/internal/inflight"
	"tastesync/api_content/internal/memory"
	"tastesync/api_content/internal/metering"
	"tastesync/api_content/internal/research"
	"tastesync/api_content/internal/store"
	"tastesync/pkg/auth"
	"tastesync/pkg/clients"
	"tastesync/pkg/config"
	"tastesync/pkg/database"
	"tastesync/pkg/kafka"
	"tastesync/pkg/llm"
	"tastesync/pkg/logging"
	"tastesync/pkg/mem0"
	"tastesync/pkg/middleware"
	"tastesync/pkg/monitoring"
	"tastesync/pkg/redis"
	"tastesync/pkg/search"
	"tastesync/pkg/server"
	"tastesync/pkg/version"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.NewLoggerWithService(serviceName)
			config.LoadEnv(logger)
			return serve(cmd.Context(), appconfig.Load(), logger)
		},
	}
}

func serve(ctx context.Context, cfg appconfig.Config, logger logging.Logger) error {
	db, err := database.Connect(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		if err := store.Migrate(db, logger); err != nil {
			return err
		}
	}
	st := store.New(db)

	healthChecker := monitoring.NewHealthChecker(serviceName, version.Version)
	metricsCollector := monitoring.NewMetricsCollector(serviceName, version.Version, version.GitCommit)
	healthChecker.AddCheck("database", monitoring.DatabaseHealthCheck(db))
	healthChecker.AddCheck("config", monitoring.ConfigurationHealthCheck(cfg.RequiredSettings()))

	model, err := llm.NewChatModel(cfg.LLM)
	if err != nil {
		return fmt.Errorf("configure chat model: %w", err)
	}

	agentMetrics := &agents.Metrics{
		Runs:       metricsCollector.NewCounter("agent_runs_total", "Agent runs by outcome", []string{"agent", "outcome"}),
		Tokens:     metricsCollector.NewCounter("agent_tokens_total", "Tokens consumed by agent", []string{"agent"}),
		LLMLatency: metricsCollector.NewHistogram("llm_request_duration_seconds", "Chat completion latency", []string{"agent"}, nil),
	}
	suite := agents.NewSuite(model, agents.Options{Logger: logger, Metrics: agentMetrics}, nil)

	researchSvc := research.NewService(newSearchProvider(cfg.Search, logger), research.Options{
		Breaker: clients.NewCircuitBreaker(clients.DefaultCircuitBreakerConfig("search")),
		Logger:  logger,
	})

	memorySvc := memory.NewService(newMemoryRemote(cfg.Mem0, logger), st, logger)

	enhancer := enhanced.NewService(model, researchSvc, memorySvc, enhanced.Options{
		Logger: logger,
		Metrics: &enhanced.Metrics{
			SourceFailures: metricsCollector.NewCounter("enhancement_source_failures_total", "Enhancement sources that failed", []string{"source"}),
			Generations:    metricsCollector.NewCounter("enhanced_generations_total", "Enhanced generations by outcome", []string{"kind", "outcome"}),
		},
	})

	var usage handlers.UsageRecorder
	if cfg.Kafka.Enabled() {
		producer, err := kafka.NewProducer(cfg.Kafka, logger)
		if err != nil {
			return fmt.Errorf("configure kafka: %w", err)
		}
		defer producer.Close()
		healthChecker.AddOptionalCheck("kafka", monitoring.PingHealthCheck("kafka", producer))

		publisher, err := metering.NewPublisher(producer, metering.PublisherConfig{
			Topic:  cfg.UsageTopic,
			Source: serviceName,
			Logger: logger,
		})
		if err != nil {
			return err
		}
		tracker := metering.NewUsageTracker(metering.UsageTrackerConfig{
			Publisher:     publisher,
			Logger:        logger,
			Source:        serviceName,
			FlushInterval: cfg.UsageFlush,
		})
		tracker.Start()
		defer tracker.Stop()
		usage = tracker
	} else {
		logger.Info("KAFKA_BROKERS not set, usage summaries will not be published")
	}

	registry := inflight.NewRegistry()
	var canceller inflight.Canceller = inflight.Local{Registry: registry}
	if cfg.Redis.Enabled() {
		client, err := redis.NewUniversalClient(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("configure redis: %w", err)
		}
		defer client.Close()
		healthChecker.AddOptionalCheck("redis", monitoring.PingHealthCheck("redis", redisPinger{client}))

		broadcaster := inflight.NewBroadcaster(registry, client, logger)
		ready := make(chan struct{})
		go func() {
			if err := broadcaster.Start(ctx, ready); err != nil && ctx.Err() == nil {
				logger.WithError(err).Error("Cancel broadcast subscription ended")
			}
		}()
		select {
		case <-ready:
		case <-time.After(5 * time.Second):
			logger.Warn("Cancel broadcast subscription not ready, continuing")
		}
		canceller = broadcaster
	}

	verifier, err := auth.NewClerkVerifier(cfg.Clerk)
	if err != nil {
		return fmt.Errorf("configure clerk: %w", err)
	}

	serverConfig := server.DefaultConfig(serviceName, cfg.Port)
	serverConfig.CORSOrigins = cfg.CORSOrigins
	app := server.SetupServiceRouter(logger, serverConfig, healthChecker, metricsCollector)

	var rateLimit gin.HandlerFunc
	if cfg.GenerateRateHour > 0 {
		limiter := metering.NewRateLimiter(cfg.GenerateRateHour, time.Hour)
		limiter.StartCleanup(ctx)
		rateLimit = metering.RateLimitMiddleware(limiter)
	}

	h := handlers.New(handlers.Config{
		Store:     st,
		Agents:    suite,
		Enhancer:  enhancer,
		Research:  researchSvc,
		Memory:    memorySvc,
		Usage:     usage,
		Registry:  registry,
		Canceller: canceller,
		Metrics: &handlers.ContentMetrics{
			Generations:    metricsCollector.NewCounter("content_generations_total", "Generation requests by operation and outcome", []string{"operation", "outcome"}),
			CreditsCharged: metricsCollector.NewCounter("credits_charged_total", "Credits deducted by operation", []string{"operation"}),
		},
		Logger:         logger,
		InitialCredits: cfg.InitialCredits,
		ModelLabel:     cfg.ModelLabel(),
	})
	api := app.Group("/api", middleware.BodyLimitMiddleware(cfg.MaxBodyBytes))
	h.Register(api, auth.ClerkAuthMiddleware(verifier), rateLimit)

	logger.WithFields(logging.Fields{
		"llm_provider":  cfg.LLM.Provider,
		"model":         cfg.ModelLabel(),
		"memory_remote": memorySvc.RemoteEnabled(),
		"kafka":         cfg.Kafka.Enabled(),
		"redis":         cfg.Redis.Enabled(),
	}).Info("TasteSync configured")

	return server.Start(ctx, serverConfig, app, logger)
}

// newSearchProvider returns nil when search is not configured; research
// calls then fail and enhanced generation reports them as warnings.
func newSearchProvider(cfg search.Config, logger logging.Logger) search.Provider {
	provider, err := search.NewProvider(cfg)
	if err != nil {
		logger.WithError(err).Warn("Search provider not configured, research is disabled")
		return nil
	}
	return provider
}

// newMemoryRemote returns a nil interface when Mem0 is not configured so the
// memory service falls back to Postgres only.
func newMemoryRemote(cfg mem0.Config, logger logging.Logger) memory.Remote {
	if cfg.APIKey == "" {
		logger.Info("MEM0_API_KEY not set, remote memory is disabled")
		return nil
	}
	client, err := mem0.NewClient(cfg, clients.NewCircuitBreaker(clients.DefaultCircuitBreakerConfig("mem0")))
	if err != nil {
		logger.WithError(err).Warn("Mem0 client not configured, remote memory is disabled")
		return nil
	}
	return client
}

type redisPinger struct {
	client goredis.UniversalClient
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
