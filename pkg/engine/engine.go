// Package engine provides the embedded entry point for travelsdb.
//
// It resolves the reference time, builds the in-memory store (Core) and
// bulk-loads the startup archive into it. Every operation is routed through
// the Engine so that outcomes are counted in Prometheus and internal faults
// are logged.
//
// Basic usage:
//
//	opts := engine.DefaultOptions("/tmp/data/data.zip")
//	e, err := engine.Open(opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer e.Close()
package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sanonone/travelsdb/pkg/core"
	"github.com/sanonone/travelsdb/pkg/core/types"
	"github.com/sanonone/travelsdb/pkg/metrics"
)

// Options configures how the Engine is initialized.
type Options struct {
	// DataFile is the zip archive (or directory) holding the initial records.
	// Empty means start with an empty store.
	DataFile string

	// OptionsFile holds the reference timestamp on its first line.
	// If it is missing or unreadable the wall clock is used.
	OptionsFile string

	// Now overrides OptionsFile when non-nil.
	Now *types.Timestamp

	// Logger receives load summaries and internal errors.
	// Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns the standard data drop layout.
//
// Defaults:
//   - DataFile: provided path
//   - OptionsFile: "/tmp/data/options.txt"
func DefaultOptions(dataFile string) Options {
	return Options{
		DataFile:    dataFile,
		OptionsFile: "/tmp/data/options.txt",
	}
}

// Engine is the main entry point for travelsdb.
//
// Use Open() to initialize an Engine and Close() to shut it down.
type Engine struct {
	// DB is the underlying in-memory core.
	// Prefer the Engine methods, which record metrics for each call.
	DB *core.DB

	opts   Options
	logger *slog.Logger

	closeOnce sync.Once
}

// Open initializes a new Engine instance using the provided options.
//
// It performs the following actions:
// 1. Resolves the reference time.
// 2. Loads the archive named by DataFile, if any.
// 3. Publishes the initial entity gauges.
//
// This method blocks until the archive is fully loaded.
func Open(opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var now types.Timestamp
	if opts.Now != nil {
		now = *opts.Now
	} else {
		now = ResolveNow(opts.OptionsFile, logger)
	}
	logger.Info("Reference time resolved", "now", now, "utc", time.Unix(now, 0).UTC().Format(time.RFC3339))

	e := &Engine{
		DB:     core.NewDB(now),
		opts:   opts,
		logger: logger,
	}

	if opts.DataFile != "" {
		start := time.Now()
		summary, err := LoadArchive(e.DB, opts.DataFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load archive %s: %w", opts.DataFile, err)
		}
		summary.record()
		logger.Info("Archive loaded",
			"files", summary.Files,
			"users", summary.Users.Loaded,
			"locations", summary.Locations.Loaded,
			"visits", summary.Visits.Loaded,
			"skipped", summary.Users.Skipped+summary.Locations.Skipped+summary.Visits.Skipped,
			"duration", time.Since(start),
		)
	}

	e.publishStats()
	return e, nil
}

// Close releases the Engine. The store is memory-only, so nothing is flushed.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.logger.Debug("Engine closed")
	})
	return nil
}

// Stats returns the current store counts.
func (e *Engine) Stats() core.Stats {
	return e.DB.Stats()
}

// publishStats sets the entity gauges from a full count.
func (e *Engine) publishStats() {
	s := e.DB.Stats()
	metrics.EntitiesTotal.WithLabelValues(types.EntityUser.String()).Set(float64(s.Users))
	metrics.EntitiesTotal.WithLabelValues(types.EntityLocation.String()).Set(float64(s.Locations))
	metrics.EntitiesTotal.WithLabelValues(types.EntityVisit.String()).Set(float64(s.Visits))
}
