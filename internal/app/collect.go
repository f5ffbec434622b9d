package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/saltmarsh-systems/driftwatch/internal/collector"
	"github.com/saltmarsh-systems/driftwatch/internal/config"
	"github.com/saltmarsh-systems/driftwatch/internal/output"
	"github.com/saltmarsh-systems/driftwatch/internal/snapshot"
)

var (
	collectQuiet     bool
	collectMaxPasses int
	collectMaxItems  int

	collectCmd = &cobra.Command{
		Use:   "collect <surface>",
		Short: "Collect a surface and report drift against the previous run",
		Long: `Collect all currently reachable items of a configured surface.

The collector repeatedly extracts the surface's visible items and advances
it (next page, wider window) until no new items have appeared for several
passes, or a pass or item cap is hit. Individual pass failures are
tolerated; they count toward the stall budget instead of aborting the run.

The accumulated items are saved as a labeled snapshot and compared against
the previous snapshot of the same surface. Who joined and who disappeared
is printed as the drift report.`,
		Example: `  # Collect the followers surface
  driftwatch collect followers

  # Cap the run for a quick sample
  driftwatch collect followers --max-passes 5 --max-items 200

  # Suppress progress and drift output (exit status only)
  driftwatch collect followers --quiet`,
		Args: cobra.ExactArgs(1),
		RunE: runCollect,
	}
)

func init() {
	collectCmd.Flags().BoolVar(&collectQuiet, "quiet", false, "suppress output")
	collectCmd.Flags().IntVar(&collectMaxPasses, "max-passes", 0, "override the pass cap for this run")
	collectCmd.Flags().IntVar(&collectMaxItems, "max-items", 0, "override the item cap for this run")
}

func runCollect(cmd *cobra.Command, args []string) error {
	name := args[0]

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyCollectOverrides(cfg, name)

	mgr := snapshot.New(st, getSnapshotDir(), 0)

	var spinner *output.Spinner
	var onPass func(collector.PassStats)
	if !collectQuiet {
		spinner = output.NewSpinner(fmt.Sprintf("Collecting %s...", name))
		spinner.Start()
		onPass = func(ps collector.PassStats) {
			spinner.UpdateMessage(fmt.Sprintf("pass %d · %d items (+%d)", ps.Pass, ps.Total, ps.NewItems))
		}
	}

	outcome, err := collectSurface(cmd.Context(), st, mgr, cfg, name, onPass)
	if err != nil {
		if spinner != nil {
			spinner.Stop()
		}
		return err
	}

	if collectQuiet {
		return nil
	}

	res := outcome.Result
	spinner.StopWithMessage(fmt.Sprintf("✓ Collected %d items in %d passes (%s)",
		res.Items.Len(), res.Passes, res.Reason))

	if res.PassErrors > 0 {
		fmt.Printf("  %d pass error(s) tolerated\n", res.PassErrors)
	}
	if outcome.SaveWarning != nil {
		fmt.Fprintf(os.Stderr, "Warning: snapshot not persisted (disk full): %v\n", outcome.SaveWarning)
	}

	fmt.Println()
	if outcome.FirstRun {
		fmt.Printf("First collection for %s; baseline saved. Run again later and use 'driftwatch diff %s'.\n", name, name)
		return nil
	}

	fmt.Print(output.RenderDiff(outcome.Diff, output.IsColorEnabled()))
	return nil
}

// applyCollectOverrides folds the --max-passes/--max-items flags into the
// surface's collector settings so they win over the file values.
func applyCollectOverrides(cfg *config.Config, name string) {
	if collectMaxPasses <= 0 && collectMaxItems <= 0 {
		return
	}

	surface, ok := cfg.Surfaces[name]
	if !ok {
		return // collectSurface reports the unknown surface
	}

	settings := config.CollectorSettings{}
	if surface.Collector != nil {
		settings = *surface.Collector
	}
	if collectMaxPasses > 0 {
		settings.MaxPasses = collectMaxPasses
	}
	if collectMaxItems > 0 {
		settings.MaxItems = collectMaxItems
	}
	surface.Collector = &settings
	cfg.Surfaces[name] = surface
}
