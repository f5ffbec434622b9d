package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/saltmarsh-systems/driftwatch/internal/config"
)

var (
	dbPath     string
	configPath string

	// RootCmd is the root command for driftwatch
	RootCmd = &cobra.Command{
		Use:   "driftwatch",
		Short: "Track membership drift across web lists and exports",
		Long: `driftwatch repeatedly collects the members of a surface (a paginated
HTML list, a JSON endpoint, or a local export file), snapshots the result,
and reports who was added and who disappeared since the previous run.

Surfaces are declared in a YAML file; see 'driftwatch status' for its
location. Each collection pages through the surface until no new items
appear, then saves a labeled snapshot.

Quick Start:
  1. Declare a surface in surfaces.yaml
  2. driftwatch collect <surface>
  3. Run it again later
  4. driftwatch diff <surface>

Examples:
  # Collect a surface and report drift against the previous run
  driftwatch collect followers

  # Compare the two most recent snapshots without collecting
  driftwatch diff followers

  # Inspect stored snapshots and run history
  driftwatch snapshots list followers
  driftwatch history followers

  # Re-collect surfaces on their configured intervals
  driftwatch watch --daemon`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("driftwatch: track membership drift across web lists and exports")
			fmt.Println()
			fmt.Println("Run 'driftwatch status' to see configured surfaces.")
			fmt.Println("Run 'driftwatch --help' for the full reference.")
			return nil
		},
	}
)

func init() {
	// Global flags
	RootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default: ~/.driftwatch/driftwatch.db)")
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "surfaces file (default: $XDG_CONFIG_HOME/driftwatch/surfaces.yaml)")

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2

	RootCmd.AddCommand(collectCmd)
	RootCmd.AddCommand(diffCmd)
	RootCmd.AddCommand(snapshotsCmd)
	RootCmd.AddCommand(historyCmd)
	RootCmd.AddCommand(watchCmd)
	RootCmd.AddCommand(statusCmd)
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

// getDataDir returns ~/.driftwatch, creating it if needed.
func getDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	dataDir := filepath.Join(home, ".driftwatch")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create driftwatch directory: %w", err)
	}

	return dataDir, nil
}

// getDBPath returns the database path, using the flag value or default.
func getDBPath() (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}

	dataDir, err := getDataDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(dataDir, "driftwatch.db"), nil
}

// getConfigPath returns the surfaces file path, using the flag value or
// the XDG default.
func getConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}

	dir, err := config.Dir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}

	return filepath.Join(dir, "surfaces.yaml"), nil
}

// getDefaultPIDFile returns the default PID file path for the watch daemon.
func getDefaultPIDFile() (string, error) {
	dataDir, err := getDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "watch.pid"), nil
}

// getDefaultLogFile returns the default log file path for the watch daemon.
func getDefaultLogFile() (string, error) {
	dataDir, err := getDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "watch.log"), nil
}
