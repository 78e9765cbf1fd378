// Package main is the entry point for the TripFund travel-loan Telegram bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gitlab.com/yelinaung/tripfund-bot/internal/bot"
	"gitlab.com/yelinaung/tripfund-bot/internal/catalog"
	"gitlab.com/yelinaung/tripfund-bot/internal/config"
	"gitlab.com/yelinaung/tripfund-bot/internal/database"
	"gitlab.com/yelinaung/tripfund-bot/internal/events"
	"gitlab.com/yelinaung/tripfund-bot/internal/exchange"
	"gitlab.com/yelinaung/tripfund-bot/internal/gemini"
	"gitlab.com/yelinaung/tripfund-bot/internal/logger"
	"gitlab.com/yelinaung/tripfund-bot/internal/repository"
	"gitlab.com/yelinaung/tripfund-bot/internal/telemetry"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("tripfund-bot %s (commit: %s, built: %s)\n", version, commit, date)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to load config")
	}

	logger.Configure(cfg.LogLevel, cfg.LogFormat)
	logger.InitHashSalt()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.OTelExporter, version)
	if err != nil {
		logger.Log.Fatal().Err(err).Str("exporter", cfg.OTelExporter).Msg("Failed to set up telemetry")
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer flushCancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Log.Warn().Err(err).Msg("Failed to flush telemetry")
		}
	}()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	logger.Log.Info().Msg("Database initialized successfully")

	cat := catalog.New(nil)
	if cfg.RedisAddr != "" {
		rdb, err := catalog.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer func() { _ = rdb.Close() }()

		cat = catalog.New(catalog.NewRedisStore(rdb, cfg.RedisCatalogKey))
		if err := cat.Sync(ctx); err != nil {
			logger.Log.Warn().Err(err).Msg("Failed to sync destination catalog, using built-in destinations")
		}
	}

	var publisher events.Publisher = events.LogPublisher{}
	if cfg.NATSURL != "" {
		natsPub, err := events.ConnectNATS(ctx, cfg.NATSURL, cfg.NATSSubjectPrefix)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to connect to NATS")
		}
		publisher = natsPub
	}
	defer func() { _ = publisher.Close() }()

	metrics, err := telemetry.NewMetrics(nil)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to create metrics")
	}

	deps := bot.Deps{
		Catalog:   cat,
		Users:     repository.NewUserRepository(pool),
		Offers:    repository.NewSavedOfferRepository(pool),
		Accounts:  repository.NewLoanAccountRepository(pool),
		Publisher: publisher,
		Metrics:   metrics,
		Exchange: exchange.NewCachedService(
			exchange.NewFrankfurterClient(cfg.ExchangeRateBaseURL, cfg.ExchangeRateTimeout),
			cfg.ExchangeCacheTTL,
		),
	}

	if cfg.GeminiAPIKey != "" {
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to create Gemini client")
		}
		deps.Assistant = client
	} else {
		logger.Log.Info().Msg("GEMINI_API_KEY not set, voice notes, itinerary uploads and intent detection are disabled")
	}

	telegramBot, err := bot.New(cfg, deps)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to create bot")
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logger.Log.Info().Msg("Shutting down...")
		cancel()
	}()

	telegramBot.Start(ctx)
}
