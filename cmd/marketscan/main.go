// Command marketscan fetches the active Pendle markets once and shows which of
// them pendlewatch would announce, without sending anything or touching state.
// It reads the same environment as pendlewatch.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/rewired-gh/pendlewatch/internal/config"
	"github.com/rewired-gh/pendlewatch/internal/logger"
	"github.com/rewired-gh/pendlewatch/internal/pendle"
	"github.com/rewired-gh/pendlewatch/internal/storage"
)

var (
	chainID = flag.Int("chain", 0, "Chain ID to scan (default: PENDLE_CHAIN_ID)")
	newOnly = flag.Bool("new", false, "Only list markets that are not in the state yet")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)

	if *chainID != 0 {
		cfg.SetChainID(*chainID)
	}
	chain := cfg.Pendle.ChainID

	ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.HTTPTimeout()+5*time.Second)
	defer cancel()

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal("Failed to open %s storage: %v", cfg.Storage.Backend, err)
	}
	defer store.Close()

	known, err := store.Load(ctx)
	if err != nil {
		logger.Warn("State unusable, treating every market as new: %v", err)
	}

	client := pendle.NewClient(cfg.Pendle.APIBaseURL, cfg.HTTPTimeout())
	markets, err := client.FetchActiveMarkets(ctx, chain)
	if err != nil {
		logger.Fatal("Failed to fetch active markets: %v", err)
	}

	printReport(os.Stdout, buildReport(chain, markets, known), *newOnly)
}
