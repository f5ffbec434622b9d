package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saltmarsh-systems/driftwatch/internal/output"
)

var (
	historyLimit int

	historyCmd = &cobra.Command{
		Use:   "history [surface]",
		Short: "Show collection run history",
		Long: `Show past collection runs, newest first.

Each row records how a run terminated (stalled, max_passes, max_items or
canceled), how many passes it took, how many pass errors were tolerated,
and the drift it detected.`,
		Example: `  # All runs
  driftwatch history

  # Runs for one surface
  driftwatch history followers --limit 10`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistory,
	}
)

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of runs to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	label := ""
	if len(args) > 0 {
		label = args[0]
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(label, historyLimit)
	if err != nil {
		return err
	}

	fmt.Print(output.RenderRunTable(runs))
	return nil
}
