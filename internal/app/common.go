package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/saltmarsh-systems/driftwatch/internal/collector"
	"github.com/saltmarsh-systems/driftwatch/internal/config"
	"github.com/saltmarsh-systems/driftwatch/internal/drift"
	"github.com/saltmarsh-systems/driftwatch/internal/snapshot"
	"github.com/saltmarsh-systems/driftwatch/internal/source"
	"github.com/saltmarsh-systems/driftwatch/internal/store"
)

// openStore opens the database and ensures the schema exists.
func openStore() (*store.Store, error) {
	path, err := getDBPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get database path: %w", err)
	}

	db, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.CreateSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create database schema: %w", err)
	}

	return db, nil
}

// loadConfig reads the surfaces file. A missing file yields the defaults.
func loadConfig() (*config.Config, error) {
	path, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}

// getSnapshotDir returns the directory for snapshot storage.
// Uses $HOME/.driftwatch/snapshots by default.
func getSnapshotDir() string {
	dataDir, err := getDataDir()
	if err != nil {
		// Fallback to current directory
		return "snapshots"
	}

	snapshotDir := filepath.Join(dataDir, "snapshots")
	if err := os.MkdirAll(snapshotDir, 0755); err != nil {
		return "snapshots"
	}

	return snapshotDir
}

// collectOutcome is everything a caller needs after one collection run.
type collectOutcome struct {
	Result *collector.Result
	Diff   drift.DiffResult

	// FirstRun is true when no previous snapshot existed; Diff is empty
	// in that case because there is nothing to compare against.
	FirstRun bool

	// SaveWarning is set when snapshot persistence failed with
	// store.ErrStorageFull. The in-memory result is still valid.
	SaveWarning error
}

// collectSurface runs one full collection for a named surface: build the
// adapter, drive the collector, diff against the previous snapshot, save
// the new one, record the run, and register the surface.
func collectSurface(ctx context.Context, st *store.Store, mgr *snapshot.Manager, cfg *config.Config, name string, onPass func(collector.PassStats)) (*collectOutcome, error) {
	surface, err := cfg.Surface(name)
	if err != nil {
		return nil, err
	}

	src, err := source.New(surface)
	if err != nil {
		return nil, fmt.Errorf("failed to build source for %s: %w", name, err)
	}

	var opts []collector.Option
	if onPass != nil {
		opts = append(opts, collector.WithPassHook(onPass))
	}

	started := time.Now().UTC()
	res, err := collector.New(src, cfg.CollectorConfig(surface), opts...).Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("collection of %s failed: %w", name, err)
	}

	outcome := &collectOutcome{Result: res}

	prev, err := mgr.Load(name)
	switch {
	case errors.Is(err, store.ErrNoSnapshot):
		outcome.FirstRun = true
	case err != nil:
		return nil, fmt.Errorf("failed to load previous snapshot for %s: %w", name, err)
	default:
		outcome.Diff = drift.Diff(prev.Items, res.Items)
	}

	if _, err := mgr.Save(name, res.Items); err != nil {
		if !errors.Is(err, store.ErrStorageFull) {
			return nil, fmt.Errorf("failed to save snapshot for %s: %w", name, err)
		}
		outcome.SaveWarning = err
	}

	run := &store.Run{
		ID:         store.NewRunID(),
		Label:      name,
		StartedAt:  started,
		Duration:   res.Duration,
		Passes:     res.Passes,
		PassErrors: res.PassErrors,
		ItemCount:  res.Items.Len(),
		Added:      len(outcome.Diff.Added),
		Removed:    len(outcome.Diff.Removed),
		Reason:     string(res.Reason),
	}
	if err := st.InsertRun(run); err != nil {
		return nil, err
	}

	endpoint := surface.URL
	if endpoint == "" {
		endpoint = surface.Path
	}
	if err := st.UpsertSurface(&store.Surface{Name: name, Kind: surface.Kind, Endpoint: endpoint}); err != nil {
		return nil, err
	}
	if err := st.TouchSurface(name, time.Now().UTC()); err != nil {
		return nil, err
	}

	return outcome, nil
}
