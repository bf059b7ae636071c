package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telegram-caller-lookup/internal/config"
	"telegram-caller-lookup/internal/infra/i18n"
	"telegram-caller-lookup/internal/infra/logging"
	"telegram-caller-lookup/internal/infra/metrics"
	red "telegram-caller-lookup/internal/infra/redis"
	tele "telegram-caller-lookup/internal/infra/telegram"
	"telegram-caller-lookup/internal/infra/telemetry"
	"telegram-caller-lookup/internal/infra/truecaller"
	"telegram-caller-lookup/internal/infra/web"
	"telegram-caller-lookup/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()

	convRepo := red.NewConversationRepo(redisClient)
	rateLimiter := red.NewRateLimiter(redisClient)
	memberCounter := red.NewMemberCounter(redisClient)

	// ---- Collaborators ----
	provider := truecaller.NewClient(&cfg.Provider)
	events := telemetry.NewEventReporter(&cfg.Telemetry, logger)
	notifier, err := tele.NewNotifier(&cfg.Bot, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram")
	}

	translator, err := i18n.NewTranslator(i18n.LocalesFS, "fa")
	if err != nil {
		logger.Fatal().Err(err).Msg("i18n")
	}

	// ---- Use case ----
	convUC := usecase.NewConversationUseCase(
		convRepo, provider, provider, rateLimiter, memberCounter,
		events, translator, cfg.Lookup.PerMinute, logger,
	)

	// ---- Metrics & HTTP ----
	metrics.MustRegister()

	srv := web.NewServer(convUC, notifier, translator, cfg.Server.WebhookPath, logger)
	mux := http.NewServeMux()
	srv.Register(mux)

	server := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Server.Port), Handler: mux}
	go func() {
		logger.Info().Str("addr", server.Addr).Str("path", cfg.Server.WebhookPath).Msg("webhook listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
}
