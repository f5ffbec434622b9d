package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/saltmarsh-systems/driftwatch/internal/output"
	"github.com/saltmarsh-systems/driftwatch/internal/snapshot"
	"github.com/saltmarsh-systems/driftwatch/internal/watcher"
)

var (
	watchDaemon      bool
	watchDaemonChild bool
	watchPIDFile     string
	watchLogFile     string
	watchStop        bool

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Re-collect surfaces on their configured intervals",
		Long: `Keep collecting surfaces in the background.

Every surface with an interval in surfaces.yaml is re-collected on that
schedule. File-backed surfaces are additionally watched for changes, so a
refreshed export triggers an immediate collection.

Watch modes:
  • Foreground (default): run in the current terminal, Ctrl+C to stop
  • Daemon: run as a detached background process
  • Stop: stop a running daemon

Every scheduled collection saves a snapshot and records a run, so
'driftwatch history' and 'driftwatch diff' pick up drift as it happens.`,
		Example: `  # Run in foreground (Ctrl+C to stop)
  driftwatch watch

  # Run as background daemon
  driftwatch watch --daemon

  # Stop running daemon
  driftwatch watch --stop`,
		RunE: runWatch,
	}
)

func init() {
	watchCmd.Flags().BoolVar(&watchDaemon, "daemon", false, "run as background daemon")
	watchCmd.Flags().BoolVar(&watchDaemonChild, "daemon-child", false, "internal flag for daemon child process")
	watchCmd.Flags().StringVar(&watchPIDFile, "pid-file", "", "PID file path (default: ~/.driftwatch/watch.pid)")
	watchCmd.Flags().StringVar(&watchLogFile, "log-file", "", "log file path (default: ~/.driftwatch/watch.log)")
	watchCmd.Flags().BoolVar(&watchStop, "stop", false, "stop running daemon")

	// Hide the internal daemon-child flag from help
	watchCmd.Flags().MarkHidden("daemon-child")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchPIDFile == "" {
		defaultPID, err := getDefaultPIDFile()
		if err != nil {
			return fmt.Errorf("failed to get default PID file path: %w", err)
		}
		watchPIDFile = defaultPID
	}

	if watchLogFile == "" {
		defaultLog, err := getDefaultLogFile()
		if err != nil {
			return fmt.Errorf("failed to get default log file path: %w", err)
		}
		watchLogFile = defaultLog
	}

	if watchStop {
		return stopWatchDaemon()
	}

	if watchDaemon {
		if err := watcher.StartDaemon(watchPIDFile, watchLogFile); err != nil {
			return err
		}
		fmt.Printf("✓ Watch daemon started (log: %s)\n", watchLogFile)
		return nil
	}

	w, targets, err := buildWatcher()
	if err != nil {
		return err
	}

	if watchDaemonChild {
		return w.RunDaemon(watchPIDFile)
	}

	fmt.Printf("Watching %d surface(s), Ctrl+C to stop\n", len(targets))
	return w.RunDaemon("")
}

// buildWatcher assembles the watcher from the configured surfaces.
func buildWatcher() (*watcher.Watcher, []watcher.Target, error) {
	st, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	// The store stays open for the lifetime of the process; the watcher's
	// collect callback writes runs and snapshots through it.

	cfg, err := loadConfig()
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	var targets []watcher.Target
	for name, surface := range cfg.Surfaces {
		t := watcher.Target{
			Name:     name,
			Interval: time.Duration(surface.Interval),
		}
		if surface.Kind == "file" {
			t.Path = surface.Path
		}
		if t.Interval <= 0 && t.Path == "" {
			continue
		}
		targets = append(targets, t)
	}
	if len(targets) == 0 {
		st.Close()
		return nil, nil, fmt.Errorf("no watchable surfaces: give at least one surface an interval in surfaces.yaml")
	}

	mgr := snapshot.New(st, getSnapshotDir(), 0)
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	collect := func(ctx context.Context, name string) error {
		outcome, err := collectSurface(ctx, st, mgr, cfg, name, nil)
		if err != nil {
			return err
		}
		if outcome.SaveWarning != nil {
			logger.Warn("snapshot not persisted",
				"surface", name, "error", outcome.SaveWarning)
		}
		logger.Info("drift",
			"surface", name,
			"items", outcome.Result.Items.Len(),
			"added", len(outcome.Diff.Added),
			"removed", len(outcome.Diff.Removed),
			"reason", string(outcome.Result.Reason))
		return nil
	}

	w, err := watcher.New(targets, collect, logger)
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	return w, targets, nil
}

func stopWatchDaemon() error {
	running, err := watcher.IsDaemonRunning(watchPIDFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	if !running {
		fmt.Println("Daemon is not running")
		return nil
	}

	spinner := output.NewSpinner("Stopping daemon...")
	spinner.Start()
	if err := watcher.StopDaemon(watchPIDFile); err != nil {
		spinner.Stop()
		return fmt.Errorf("failed to stop daemon: %w", err)
	}
	spinner.StopWithMessage("✓ Daemon stopped")

	return nil
}
