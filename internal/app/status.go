package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/saltmarsh-systems/driftwatch/internal/output"
	"github.com/saltmarsh-systems/driftwatch/internal/watcher"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration, stored data and daemon state",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfgPath, err := getConfigPath()
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dbFile, err := getDBPath()
	if err != nil {
		return err
	}

	fmt.Println("driftwatch status")
	fmt.Println()

	if _, statErr := os.Stat(cfgPath); os.IsNotExist(statErr) {
		fmt.Printf("Config:    %s (not found, using defaults)\n", cfgPath)
	} else {
		fmt.Printf("Config:    %s\n", cfgPath)
	}
	fmt.Printf("Surfaces:  %d configured\n", len(cfg.Surfaces))
	fmt.Printf("Database:  %s\n", dbFile)

	pidFile, err := getDefaultPIDFile()
	if err != nil {
		return err
	}
	running, err := watcher.IsDaemonRunning(pidFile)
	if err != nil {
		return err
	}
	if running {
		fmt.Println("Daemon:    running")
	} else {
		fmt.Println("Daemon:    not running (start with 'driftwatch watch --daemon')")
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	surfaces, err := st.ListSurfaces()
	if err != nil {
		return err
	}

	snapshots, err := st.ListSnapshots("")
	if err != nil {
		return err
	}
	fmt.Printf("Snapshots: %d stored\n", len(snapshots))

	fmt.Println()
	fmt.Print(output.RenderSurfaceTable(surfaces))

	return nil
}
