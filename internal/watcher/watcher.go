// Package watcher schedules recurring collections while `driftwatch
// watch` runs.
//
// Each configured surface with a non-zero interval gets its own ticker.
// File-backed surfaces are additionally registered with an fsnotify
// watcher so a refreshed export triggers a collection immediately instead
// of waiting for the next tick. Collection itself is injected as a
// callback; the watcher owns scheduling only.
//
// Key behaviors:
//   - One goroutine per scheduled surface, plus one for file events
//   - An immediate collection on startup for every scheduled surface
//   - Write bursts on watched files are debounced before collecting
//   - Graceful shutdown: Stop waits for in-flight collections
//   - Daemon mode support with PID file management (see daemon.go)
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow coalesces fsnotify write bursts (editors and exporters
// often emit several events per save) into one collection.
const debounceWindow = 500 * time.Millisecond

// CollectFunc runs one collection for the named surface.
type CollectFunc func(ctx context.Context, surface string) error

// Target is one surface the watcher schedules.
type Target struct {
	// Name of the surface, passed back to the CollectFunc.
	Name string

	// Interval between scheduled collections. Zero disables the ticker;
	// the target then only collects on file events.
	Interval time.Duration

	// Path, when non-empty, is a local file whose changes trigger an
	// immediate collection.
	Path string
}

// Watcher drives scheduled and file-triggered collections.
type Watcher struct {
	targets []Target
	collect CollectFunc
	logger  *slog.Logger

	fsw    *fsnotify.Watcher
	stopCh chan struct{}
	wg     sync.WaitGroup

	mu        sync.Mutex
	debounces map[string]*time.Timer
}

// New creates a Watcher for the given targets.
func New(targets []Target, collect CollectFunc, logger *slog.Logger) (*Watcher, error) {
	if collect == nil {
		return nil, fmt.Errorf("collect function cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		targets:   targets,
		collect:   collect,
		logger:    logger,
		stopCh:    make(chan struct{}),
		debounces: make(map[string]*time.Timer),
	}, nil
}

// Start launches the per-surface tickers and the file-event loop. Every
// scheduled surface is collected once immediately so a freshly started
// watcher has current data.
func (w *Watcher) Start() error {
	paths := make(map[string]string) // file path -> surface name
	for _, t := range w.targets {
		if t.Path != "" {
			paths[t.Path] = t.Name
		}
	}

	if len(paths) > 0 {
		fsw, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to create fsnotify watcher: %w", err)
		}
		w.fsw = fsw

		for path := range paths {
			if err := fsw.Add(path); err != nil {
				w.logger.Warn("cannot watch export file",
					"path", path, "error", err)
			}
		}

		w.wg.Add(1)
		go w.runFileEvents(paths)
	}

	for _, t := range w.targets {
		if t.Interval <= 0 {
			continue
		}
		w.wg.Add(1)
		go w.runSchedule(t)
	}

	return nil
}

// Stop halts all scheduling and waits for in-flight collections.
func (w *Watcher) Stop() error {
	close(w.stopCh)

	if w.fsw != nil {
		w.fsw.Close()
	}

	w.mu.Lock()
	for _, timer := range w.debounces {
		timer.Stop()
	}
	w.mu.Unlock()

	w.wg.Wait()
	return nil
}

// runSchedule collects a surface on its interval.
func (w *Watcher) runSchedule(t Target) {
	defer w.wg.Done()

	w.runCollection(t.Name, "startup")

	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.runCollection(t.Name, "interval")
		case <-w.stopCh:
			return
		}
	}
}

// runFileEvents reacts to export file changes, debounced per path.
func (w *Watcher) runFileEvents(paths map[string]string) {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			surface, ok := paths[event.Name]
			if !ok {
				continue
			}
			w.scheduleDebounced(event.Name, surface)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watch error", "error", err)

		case <-w.stopCh:
			return
		}
	}
}

// scheduleDebounced (re)arms the per-path debounce timer.
func (w *Watcher) scheduleDebounced(path, surface string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.debounces[path]; ok {
		timer.Stop()
	}
	w.debounces[path] = time.AfterFunc(debounceWindow, func() {
		select {
		case <-w.stopCh:
			return
		default:
		}
		w.wg.Add(1)
		defer w.wg.Done()
		w.runCollection(surface, "file-change")
	})
}

// runCollection executes one collection, logging instead of failing: a
// broken surface must not bring the daemon down.
func (w *Watcher) runCollection(surface, trigger string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel the collection promptly when the watcher stops.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-w.stopCh:
			cancel()
		case <-done:
		}
	}()

	w.logger.Info("collection started", "surface", surface, "trigger", trigger)
	if err := w.collect(ctx, surface); err != nil {
		w.logger.Error("collection failed", "surface", surface, "error", err)
		return
	}
	w.logger.Info("collection finished", "surface", surface)
}
