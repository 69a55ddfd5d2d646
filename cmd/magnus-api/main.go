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

	"go.uber.org/zap"

	"github.com/magnus-flipper/magnus/internal/config"
	dbRedis "github.com/magnus-flipper/magnus/internal/db/redis"
	"github.com/magnus-flipper/magnus/internal/domain/budget"
	logpkg "github.com/magnus-flipper/magnus/internal/logger"
	"github.com/magnus-flipper/magnus/internal/metrics"
	budgetrepo "github.com/magnus-flipper/magnus/internal/repository/budget"
	"github.com/magnus-flipper/magnus/internal/telemetry"
	chiTransport "github.com/magnus-flipper/magnus/internal/transport/chi"
	"github.com/magnus-flipper/magnus/internal/transport/httpclient"
	openaiVal "github.com/magnus-flipper/magnus/internal/transport/openai"
	"github.com/magnus-flipper/magnus/internal/transport/webhook"
	budgetuc "github.com/magnus-flipper/magnus/internal/usecase/budget"
	healthuc "github.com/magnus-flipper/magnus/internal/usecase/health"
	notifyuc "github.com/magnus-flipper/magnus/internal/usecase/notify"
	valuationuc "github.com/magnus-flipper/magnus/internal/usecase/valuation"
	"github.com/magnus-flipper/magnus/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Telemetry.ServiceName, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting magnus API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("budget_source", cfg.Budget.Source),
		zap.String("budget_action", cfg.Budget.Action),
		zap.Bool("budget_fail_open", cfg.Budget.FailOpen),
	)

	ctx := context.Background()

	tp, err := telemetry.Setup(ctx, cfg.Telemetry, env)
	if err != nil {
		logger.Fatal("Failed to set up tracing", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Tracer shutdown failed", zap.Error(err))
		}
	}()

	// Redis and Valkey speak the same protocol; one rueidis store serves both drivers.
	store, err := dbRedis.NewStore(dbRedis.Config{
		URL:      cfg.Database.URL,
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
		Timeout:  time.Duration(cfg.Database.TimeoutMs) * time.Millisecond,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterBudgetMetrics()
	metrics.RegisterOutboundMetrics()

	// Budget limiter and caller-side guard
	var limits budgetuc.LimitsSource
	var static *budgetuc.StaticLimits
	if cfg.Budget.Source == "env" {
		limits = budgetuc.NewEnvLimits()
	} else {
		static = budgetuc.NewStaticLimits(perMinute(cfg.Budget), cfg.Budget.BurstMultiplier)
		limits = static
	}

	counters := budgetrepo.New(store, time.Duration(cfg.Budget.TTLSec)*time.Second)
	limiter := budgetuc.NewLimiter(counters, limits, logger).WithKeyPrefix(cfg.Budget.KeyPrefix)
	guard := budgetuc.NewGuard(limiter, limits, budgetuc.GuardConfig{
		Action:   budgetuc.Action(cfg.Budget.Action),
		FailOpen: cfg.Budget.FailOpen,
	}, logger)

	// Win notification sinks (only the configured ones)
	hc := httpclient.New(httpclient.Options{
		RetryMax: cfg.Notify.RetryMax,
		Timeout:  time.Duration(cfg.Notify.TimeoutSec) * time.Second,
		Logger:   logger,
	})
	var sinks []notifyuc.Sink
	if cfg.Notify.DiscordWebhookURL != "" {
		sinks = append(sinks, webhook.NewDiscord(cfg.Notify.DiscordWebhookURL, hc))
	}
	if cfg.Notify.TelegramBotToken != "" {
		sinks = append(sinks, webhook.NewTelegram(
			cfg.Notify.TelegramBaseURL, cfg.Notify.TelegramBotToken, cfg.Notify.TelegramChatID, hc,
		))
	}
	notifySvc := notifyuc.New(logger, sinks...)
	logger.Info("Notification sinks configured", zap.Strings("sinks", notifySvc.Sinks()))

	healthSvc := healthuc.New(store)

	// Pass nil interface (not typed nil pointer!) if valuation is not configured.
	var appraiser chiTransport.Appraiser
	if cfg.LLM.APIKey != "" {
		valuator := openaiVal.NewValuator(&openaiVal.Config{
			APIKey:    cfg.LLM.APIKey,
			BaseURL:   cfg.LLM.BaseURL,
			Model:     cfg.LLM.Model,
			MaxTokens: cfg.LLM.MaxTokens,
			Logger:    logger,
		})
		appraiser = valuationuc.New(valuator, guard, logger)
		healthSvc = healthSvc.WithCheck("llm", valuator)
		logger.Info("Valuation enabled", zap.String("model", cfg.LLM.Model))
	}

	server := chiTransport.NewServer(limiter, guard, notifySvc, appraiser, healthSvc, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(chiTransport.RouterConfig{APIKeys: cfg.Auth.APIKeys}),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// SIGHUP reloads static limits; SIGINT/SIGTERM shut down.
	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

wait:
	for {
		select {
		case <-reload:
			reloadLimits(env, static, logger)
		case <-quit:
			break wait
		}
	}
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func perMinute(b config.BudgetConfig) map[budget.Kind]int64 {
	return map[budget.Kind]int64{
		budget.KindAlerts: b.AlertsPerMinute,
		budget.KindLLM:    b.LLMTokensPerMinute,
	}
}

// reloadLimits re-reads the config file and swaps the static limits in place.
func reloadLimits(env string, static *budgetuc.StaticLimits, logger *zap.Logger) {
	if static == nil {
		logger.Info("Budget limits come from env vars, nothing to reload")
		return
	}
	cfg, err := config.Load(env)
	if err != nil {
		logger.Error("Config reload failed, keeping current limits", zap.Error(err))
		return
	}
	static.Replace(perMinute(cfg.Budget), cfg.Budget.BurstMultiplier)
	logger.Info("Budget limits reloaded",
		zap.Int64("alerts_per_minute", cfg.Budget.AlertsPerMinute),
		zap.Int64("llm_tokens_per_minute", cfg.Budget.LLMTokensPerMinute),
		zap.Int64("burst_multiplier", cfg.Budget.BurstMultiplier),
	)
}
