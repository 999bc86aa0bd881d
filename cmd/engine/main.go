package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/schundi365/IndianTradingbot-sub006/config"
	"github.com/schundi365/IndianTradingbot-sub006/internal/broker"
	"github.com/schundi365/IndianTradingbot-sub006/internal/broker/bridge"
	"github.com/schundi365/IndianTradingbot-sub006/internal/broker/paper"
	"github.com/schundi365/IndianTradingbot-sub006/internal/database"
	"github.com/schundi365/IndianTradingbot-sub006/internal/engine"
	"github.com/schundi365/IndianTradingbot-sub006/internal/events"
	"github.com/schundi365/IndianTradingbot-sub006/internal/notify"
	sig "github.com/schundi365/IndianTradingbot-sub006/internal/signal"
	"github.com/schundi365/IndianTradingbot-sub006/models"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration invalid")
	}
	setupLogging(cfg.LogLevel)

	log.Info().
		Strs("symbols", cfg.Symbols).
		Bool("dry_run", cfg.DryRun).
		Msg("starting position risk engine")

	ctx, cancel := context.WithCancel(context.Background())
	setupSignalHandling(cancel)

	adapter := buildBroker(cfg)
	sinks := buildSinks(cfg)

	eng, err := engine.New(cfg, adapter, sinks, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("engine construction failed")
	}

	signals := sig.NewChannel(16)
	if err := eng.Run(ctx, signals); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("engine stopped")
	}
	log.Info().Msg("engine shut down cleanly")
}

// buildBroker selects the paper simulator in dry-run mode, otherwise the
// bridge sidecar, and wraps either in the rate-limited retry layer.
func buildBroker(cfg *config.Config) broker.Adapter {
	var inner broker.Adapter
	if cfg.DryRun {
		inner = paper.New(
			models.AccountState{Equity: 50_000, FreeMargin: 50_000, Currency: "USD"},
			models.LotConstraints{MinLot: 0.01, LotStep: 0.01, PipValue: 1, ContractSize: 100, MarginPerUnit: 100},
		)
	} else {
		inner = bridge.New(cfg.BridgeURL, time.Duration(cfg.BridgeTimeout)*time.Second)
	}
	return broker.NewRetrying(inner, cfg.BrokerRetries, cfg.BrokerCallDelay)
}

func buildSinks(cfg *config.Config) events.Sink {
	sinks := events.Multi{events.NewLogSink()}

	if cfg.DatabaseURL != "" {
		journal, err := database.New(cfg.DatabaseURL)
		if err != nil {
			log.Error().Err(err).Msg("event journal unavailable, continuing without it")
		} else {
			sinks = append(sinks, journal)
		}
	}

	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		tg, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Error().Err(err).Msg("telegram notifier unavailable, continuing without it")
		} else {
			sinks = append(sinks, tg)
		}
	}

	return sinks
}

// setupSignalHandling configures signal handling for graceful shutdown.
func setupSignalHandling(cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		log.Info().Msg("shutdown signal received, exiting...")
		cancel()
	}()
}

// setupLogging configures the logger.
func setupLogging(logLevel string) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = log.Output(output)

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log.Logger = log.Logger.Level(level)
}
