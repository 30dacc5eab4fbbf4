// Package monitor runs the poll loop that detects newly listed markets.
//
// The monitor has two states. While SEEDING it records every currently active
// market as known without notifying, so the first run does not announce
// markets that existed before the tool was started. It then switches to
// POLLING, where every market with an unseen ID is announced once and
// remembered forever.
package monitor

import (
	"context"
	"fmt"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"

	"github.com/rewired-gh/pendlewatch/internal/logger"
	"github.com/rewired-gh/pendlewatch/internal/models"
	"github.com/rewired-gh/pendlewatch/internal/storage"
)

// Fetcher lists the markets currently active on a chain.
type Fetcher interface {
	FetchActiveMarkets(ctx context.Context, chainID int) ([]models.Market, error)
}

// Notifier announces newly discovered markets.
type Notifier interface {
	NotifyNewMarkets(ctx context.Context, markets []models.Market) error
}

// State is the lifecycle phase of the monitor
type State int

const (
	// StateSeeding means no known markets have been recorded yet.
	StateSeeding State = iota
	// StatePolling is the steady state.
	StatePolling
)

func (s State) String() string {
	switch s {
	case StateSeeding:
		return "seeding"
	case StatePolling:
		return "polling"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// CycleResult summarizes one poll cycle
type CycleResult struct {
	Fetched    int
	NewMarkets []models.Market
	Notified   bool
}

// Monitor handles polling and new-market detection
type Monitor struct {
	fetcher  Fetcher
	notifier Notifier
	store    storage.Store
	known    mapset.Set[string]
	chainID  int
	state    State

	// dirty is set while the in-memory set holds IDs that no save has stored
	dirty bool

	consecutiveFailures int
}

// New creates a Monitor. It starts in StateSeeding when known is empty.
func New(fetcher Fetcher, notifier Notifier, store storage.Store, known mapset.Set[string], chainID int) *Monitor {
	if known == nil {
		known = storage.NewSet()
	}
	state := StatePolling
	if known.Cardinality() == 0 {
		state = StateSeeding
	}
	return &Monitor{
		fetcher:  fetcher,
		notifier: notifier,
		store:    store,
		known:    known,
		chainID:  chainID,
		state:    state,
	}
}

// State returns the current lifecycle phase
func (m *Monitor) State() State {
	return m.state
}

// Known returns the known market IDs in ascending order
func (m *Monitor) Known() []string {
	return storage.Sorted(m.known)
}

// Seed marks every active market as known without notifying and persists the
// result. The monitor moves to StatePolling only once the seeded set has been
// saved; on a fetch or save failure it stays in StateSeeding.
func (m *Monitor) Seed(ctx context.Context) (int, error) {
	markets, err := m.fetcher.FetchActiveMarkets(ctx, m.chainID)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch markets for seeding: %w", err)
	}

	for _, market := range markets {
		m.known.Add(market.ID)
	}

	if err := m.save(ctx); err != nil {
		return len(markets), fmt.Errorf("failed to save seeded markets: %w", err)
	}
	m.state = StatePolling
	return len(markets), nil
}

// RunCycle fetches active markets, announces the unseen ones in a single
// notification and persists the grown known set.
//
// A fetch error returns before anything changes. A notification error is
// logged and does not stop the IDs from being recorded, so a market is never
// announced twice. A save error is returned after the in-memory set has been
// updated, and every later cycle saves again until one succeeds.
func (m *Monitor) RunCycle(ctx context.Context) (CycleResult, error) {
	var result CycleResult

	markets, err := m.fetcher.FetchActiveMarkets(ctx, m.chainID)
	if err != nil {
		return result, fmt.Errorf("failed to fetch markets: %w", err)
	}
	result.Fetched = len(markets)

	seen := make(map[string]bool)
	for _, market := range markets {
		if m.known.Contains(market.ID) || seen[market.ID] {
			continue
		}
		seen[market.ID] = true
		result.NewMarkets = append(result.NewMarkets, market)
	}

	if len(result.NewMarkets) == 0 {
		if m.dirty {
			if err := m.save(ctx); err != nil {
				return result, fmt.Errorf("failed to save known markets: %w", err)
			}
		}
		return result, nil
	}

	if err := m.notifier.NotifyNewMarkets(ctx, result.NewMarkets); err != nil {
		logger.Warn("Failed to send notification for %d new markets: %v", len(result.NewMarkets), err)
	} else {
		result.Notified = true
	}

	for _, market := range result.NewMarkets {
		m.known.Add(market.ID)
	}

	if err := m.save(ctx); err != nil {
		return result, fmt.Errorf("failed to save known markets: %w", err)
	}
	return result, nil
}

func (m *Monitor) save(ctx context.Context) error {
	if err := m.store.Save(ctx, m.known); err != nil {
		m.dirty = true
		return err
	}
	m.dirty = false
	return nil
}

// Step seeds while in StateSeeding and runs a poll cycle otherwise. Errors are
// logged and returned; they never stop the loop.
func (m *Monitor) Step(ctx context.Context) error {
	cycleID := uuid.New().String()[:8]
	startTime := time.Now()
	state := m.state

	var err error
	switch state {
	case StateSeeding:
		logger.Debug("[%s] Seeding known markets for chain %d", cycleID, m.chainID)
		var n int
		n, err = m.Seed(ctx)
		if err == nil {
			logger.Info("[%s] Seeded %d known markets without notifying", cycleID, n)
		}
	default:
		logger.Debug("[%s] Starting poll cycle for chain %d", cycleID, m.chainID)
		var result CycleResult
		result, err = m.RunCycle(ctx)
		for _, market := range result.NewMarkets {
			logger.Info("[%s] New market %s (%s)", cycleID, market.Name, market.ID)
		}
		if err == nil {
			logger.Info("[%s] Poll cycle completed in %v: %d fetched, %d new, %d known",
				cycleID, time.Since(startTime), result.Fetched, len(result.NewMarkets), m.known.Cardinality())
		}
	}

	m.handleStepResult(cycleID, state, err)
	return err
}

func (m *Monitor) handleStepResult(cycleID string, state State, err error) {
	if err != nil {
		m.consecutiveFailures++
		logger.Error("[%s] %s step failed (%d in a row): %v", cycleID, state, m.consecutiveFailures, err)
		return
	}
	if m.consecutiveFailures > 0 {
		logger.Info("[%s] Recovered after %d failed steps", cycleID, m.consecutiveFailures)
	}
	m.consecutiveFailures = 0
}

// Run steps once immediately and then on every tick of interval until ctx is
// cancelled. A step that completes seeding is followed by a poll cycle right
// away, so markets listed during startup are not held back a full interval.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Monitor) tick(ctx context.Context) {
	seeding := m.state == StateSeeding
	if err := m.Step(ctx); err != nil {
		return
	}
	if seeding && m.state == StatePolling && ctx.Err() == nil {
		_ = m.Step(ctx)
	}
}
