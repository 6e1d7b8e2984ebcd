package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"

	"github.com/carewell/scheduling-agent/cmd/mainconfig"
	"github.com/carewell/scheduling-agent/internal/api/router"
	"github.com/carewell/scheduling-agent/internal/calendly"
	appconfig "github.com/carewell/scheduling-agent/internal/config"
	"github.com/carewell/scheduling-agent/internal/conversation"
	"github.com/carewell/scheduling-agent/internal/knowledge"
	"github.com/carewell/scheduling-agent/internal/notify"
	"github.com/carewell/scheduling-agent/internal/observability/metrics"
	"github.com/carewell/scheduling-agent/internal/schedule"
	"github.com/carewell/scheduling-agent/internal/scheduling"
	"github.com/carewell/scheduling-agent/internal/tools"
	"github.com/carewell/scheduling-agent/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting scheduling-agent API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"llm_provider", cfg.LLMProvider,
	)

	ctx := context.Background()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	schedMetrics := metrics.NewSchedulingMetrics(registry)
	convMetrics := metrics.NewConversationMetrics(registry)

	// Clinic schedule: explicit file when present, built-in default otherwise.
	scheduleCfg, err := schedule.Load(cfg.ScheduleFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Error("failed to load schedule", "path", cfg.ScheduleFile, "error", err)
			os.Exit(1)
		}
		logger.Info("schedule file absent, using built-in default", "path", cfg.ScheduleFile)
		scheduleCfg = schedule.Default()
	}

	ledger, err := scheduling.NewLedger(cfg.LedgerFile, logger)
	if err != nil {
		logger.Error("failed to load appointment ledger", "path", cfg.LedgerFile, "error", err)
		os.Exit(1)
	}
	svc := scheduling.NewService(scheduleCfg, ledger, logger, schedMetrics)

	emailer := buildEmailSender(cfg, logger)

	var remote calendly.Provider
	if client := calendly.NewClient(calendly.ClientConfig{
		APIKey:          cfg.CalendlyAPIKey,
		BaseURL:         cfg.CalendlyBaseURL,
		UserURI:         cfg.CalendlyUserURI,
		OrganizationURI: cfg.CalendlyOrganizationURI,
		Timeout:         cfg.CalendlyTimeout,
	}, logger); client != nil {
		remote = client
	}
	adapter := calendly.NewAdapter(svc, remote, emailer, logger, schedMetrics)
	logger.Info("scheduling adapter ready", "mode", adapter.Mode(ctx))

	// Bedrock is used for chat (when selected) and for FAQ embeddings.
	var bedrockClient *bedrockruntime.Client
	if cfg.LLMProvider == "bedrock" || cfg.BedrockEmbeddingModelID != "" {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		bedrockClient = bedrockruntime.NewFromConfig(awsCfg)
	}

	provider, err := buildModelProvider(ctx, cfg, bedrockClient, logger)
	if err != nil {
		logger.Error("failed to build model provider", "error", err)
		os.Exit(1)
	}

	retriever := buildRetriever(ctx, cfg, bedrockClient, logger)

	sessions := buildSessionStore(cfg, logger)

	toolRegistry := tools.NewSchedulingRegistry(adapter, logger, convMetrics)
	orchestrator := conversation.NewOrchestrator(provider, toolRegistry, sessions, retriever, logger, convMetrics, conversation.OrchestratorConfig{
		SystemPrompt: conversation.BuildSystemPrompt(scheduleCfg, cfg.ClinicName, time.Now()),
		CallTimeout:  cfg.LLMCallTimeout,
		MaxTokens:    int32(cfg.LLMMaxTokens),
		Temperature:  float32(cfg.LLMTemperature),
	})

	r := router.New(&router.Config{
		Logger:             logger,
		SchedulingHandler:  calendly.NewHandler(adapter, logger),
		ChatHandler:        conversation.NewHandler(orchestrator, logger),
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		ChatRatePerSecond:  cfg.ChatRatePerSecond,
		ChatBurst:          cfg.ChatBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // chat turns can hold several model calls
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// buildModelProvider selects the chat model from config, with an optional
// Gemini fallback behind whichever primary is chosen.
func buildModelProvider(ctx context.Context, cfg *appconfig.Config, bedrockClient *bedrockruntime.Client, logger *logging.Logger) (conversation.ModelProvider, error) {
	if logger == nil {
		logger = logging.Default()
	}
	var primary conversation.ModelProvider
	switch cfg.LLMProvider {
	case "bedrock":
		primary = conversation.NewBedrockProvider(bedrockClient, cfg.BedrockModelID)
	default:
		primary = conversation.NewOpenAIProvider(openai.NewClient(cfg.OpenAIAPIKey), cfg.LLMModel)
	}

	if cfg.GeminiAPIKey == "" {
		return primary, nil
	}
	gemini, err := conversation.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		logger.Warn("gemini fallback unavailable", "error", err)
		return primary, nil
	}
	return conversation.NewFallbackProvider(primary, gemini, logger), nil
}

// buildRetriever seeds the FAQ retriever from the clinic-info file. Embeddings
// are optional; without Bedrock the retriever scores by keyword overlap.
func buildRetriever(ctx context.Context, cfg *appconfig.Config, bedrockClient *bedrockruntime.Client, logger *logging.Logger) *knowledge.Retriever {
	if logger == nil {
		logger = logging.Default()
	}
	info, err := knowledge.LoadClinicInfo(cfg.ClinicInfoFile)
	if err != nil {
		logger.Error("failed to load clinic info", "path", cfg.ClinicInfoFile, "error", err)
		os.Exit(1)
	}

	var embedder knowledge.Embedder
	if bedrockClient != nil && cfg.BedrockEmbeddingModelID != "" {
		embedder = knowledge.NewBedrockEmbedder(bedrockClient, cfg.BedrockEmbeddingModelID)
	}
	retriever := knowledge.NewRetriever(embedder, logger)
	if err := retriever.AddDocuments(ctx, knowledge.FlattenClinicInfo(info)); err != nil {
		logger.Warn("failed to index clinic info", "error", err)
	}
	logger.Info("clinic knowledge indexed", "documents", retriever.Size())
	return retriever
}

func buildSessionStore(cfg *appconfig.Config, logger *logging.Logger) conversation.SessionStore {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.RedisAddr == "" {
		logger.Info("using in-memory session store", "ttl", cfg.SessionTTL, "max_sessions", cfg.MaxSessions)
		return conversation.NewMemorySessionStore(cfg.SessionTTL, cfg.MaxSessions)
	}
	opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	logger.Info("using redis session store", "addr", cfg.RedisAddr, "ttl", cfg.SessionTTL)
	return conversation.NewRedisSessionStore(redis.NewClient(opts), cfg.SessionTTL)
}

func buildEmailSender(cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	if sender := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sender != nil {
		return sender
	}
	logger.Info("sendgrid not configured, confirmation emails are logged only")
	return notify.NewStubEmailSender(logger)
}
