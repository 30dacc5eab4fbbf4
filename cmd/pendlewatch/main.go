package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rewired-gh/pendlewatch/internal/config"
	"github.com/rewired-gh/pendlewatch/internal/logger"
	"github.com/rewired-gh/pendlewatch/internal/monitor"
	"github.com/rewired-gh/pendlewatch/internal/pendle"
	"github.com/rewired-gh/pendlewatch/internal/storage"
	"github.com/rewired-gh/pendlewatch/internal/telegram"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	// Initialize storage
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal("Failed to initialize %s storage: %v", cfg.Storage.Backend, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	known, err := store.Load(ctx)
	if err != nil {
		var corrupt *storage.CorruptStateError
		if !errors.As(err, &corrupt) {
			logger.Fatal("Failed to load known markets: %v", err)
		}
		logger.Warn("Ignoring unusable state, markets will be reseeded: %v", err)
	}
	logger.Info("Loaded %d known markets from %s storage", known.Cardinality(), cfg.Storage.Backend)

	pendleClient := pendle.NewClient(cfg.Pendle.APIBaseURL, cfg.HTTPTimeout())

	telegramClient := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.APIEndpoint, cfg.HTTPTimeout())
	if telegramClient.Enabled() {
		logger.Info("Telegram notifications enabled")
	} else {
		logger.Debug("Telegram notifications disabled: bot token or chat ID not set")
	}

	mon := monitor.New(pendleClient, telegramClient, store, known, cfg.Pendle.ChainID)

	logger.Info("Starting pendlewatch (chain: %d, interval: %v, state: %s)",
		cfg.Pendle.ChainID, cfg.PollInterval(), mon.State())

	mon.Run(ctx, cfg.PollInterval())

	logger.Info("Service stopped")
}
