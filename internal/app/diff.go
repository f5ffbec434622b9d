package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saltmarsh-systems/driftwatch/internal/drift"
	"github.com/saltmarsh-systems/driftwatch/internal/output"
	"github.com/saltmarsh-systems/driftwatch/internal/snapshot"
	"github.com/saltmarsh-systems/driftwatch/internal/store"
)

var (
	diffAgainst int64

	diffCmd = &cobra.Command{
		Use:   "diff <surface>",
		Short: "Compare the two most recent snapshots of a surface",
		Long: `Compare stored snapshots of a surface without collecting.

By default the latest snapshot is compared against the one before it.
Use --against to compare the latest snapshot against a specific stored
snapshot instead (IDs come from 'driftwatch snapshots list').

Items present now but not before are reported as added; items present
before but gone now are reported as removed. Order follows each
snapshot's original collection order.`,
		Example: `  # Latest vs previous
  driftwatch diff followers

  # Latest vs a specific stored snapshot
  driftwatch diff followers --against 12`,
		Args: cobra.ExactArgs(1),
		RunE: runDiff,
	}
)

func init() {
	diffCmd.Flags().Int64Var(&diffAgainst, "against", 0, "snapshot ID to compare the latest snapshot against")
}

func runDiff(cmd *cobra.Command, args []string) error {
	label := args[0]

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	mgr := snapshot.New(st, getSnapshotDir(), 0)

	latest, err := mgr.Load(label)
	if errors.Is(err, store.ErrNoSnapshot) {
		return fmt.Errorf("no snapshots for %s yet; run 'driftwatch collect %s' first", label, label)
	}
	if err != nil {
		return err
	}

	var previous *snapshot.Snapshot
	if diffAgainst > 0 {
		previous, err = mgr.LoadByID(diffAgainst)
	} else {
		previous, err = mgr.LoadPrevious(label)
		if errors.Is(err, store.ErrNoSnapshot) {
			return fmt.Errorf("only one snapshot for %s; collect again before diffing", label)
		}
	}
	if err != nil {
		return err
	}

	res := drift.Diff(previous.Items, latest.Items)

	fmt.Printf("%s: %s (%d items) vs %s (%d items)\n\n",
		label,
		previous.SavedAt.Format("2006-01-02 15:04"), previous.Items.Len(),
		latest.SavedAt.Format("2006-01-02 15:04"), latest.Items.Len())
	fmt.Print(output.RenderDiff(res, output.IsColorEnabled()))

	return nil
}
