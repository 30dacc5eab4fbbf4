// Package storage persists the set of market identifiers that have already
// been seen. The set only ever grows: backends add identifiers and never
// remove them.
//
// Three backends are available. The JSON file backend is the default and
// writes a sorted, indented array of identifiers with an atomic rename.
// SQLite and Redis backends keep the same contract for deployments that
// already run those stores.
package storage

import (
	"context"
	"fmt"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/rewired-gh/pendlewatch/internal/config"
)

// Store loads and saves the known-ID set.
//
// Load always returns a usable set. When persisted state exists but cannot be
// read or parsed, Load returns an empty set together with a
// *CorruptStateError so the caller can log it and start over.
type Store interface {
	Load(ctx context.Context) (mapset.Set[string], error)
	Save(ctx context.Context, known mapset.Set[string]) error
	Close() error
}

// CorruptStateError reports persisted state that exists but is unusable.
type CorruptStateError struct {
	Location string
	Err      error
}

func (e *CorruptStateError) Error() string {
	return fmt.Sprintf("unusable state at %s: %v", e.Location, e.Err)
}

func (e *CorruptStateError) Unwrap() error {
	return e.Err
}

// Open creates the backend selected in cfg.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case config.BackendJSON, "":
		return NewFileStore(cfg.StateFile), nil
	case config.BackendSQLite:
		return NewSQLiteStore(cfg.StateFile)
	case config.BackendRedis:
		return NewRedisStore(ctx, cfg.RedisURL, cfg.RedisKey)
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.Backend)
	}
}

// NewSet returns an empty known-ID set. The poll loop is single-threaded so
// the set does not need its own lock.
func NewSet(ids ...string) mapset.Set[string] {
	return mapset.NewThreadUnsafeSet(ids...)
}

// Sorted returns the identifiers of a set in ascending order.
func Sorted(known mapset.Set[string]) []string {
	ids := known.ToSlice()
	sort.Strings(ids)
	return ids
}
