package app

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/saltmarsh-systems/driftwatch/internal/output"
	"github.com/saltmarsh-systems/driftwatch/internal/snapshot"
)

var (
	snapshotsPruneAge time.Duration

	snapshotsCmd = &cobra.Command{
		Use:   "snapshots",
		Short: "Inspect and prune stored snapshots",
		Long: `Inspect the stored snapshots of your surfaces.

Every collection saves a JSON snapshot file plus a database index row.
Older files are pruned automatically as new snapshots supersede them;
their index rows and item rows survive, so 'snapshots show' works even
for pruned snapshots.`,
	}

	snapshotsListCmd = &cobra.Command{
		Use:   "list [surface]",
		Short: "List stored snapshots, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSnapshotsList,
	}

	snapshotsShowCmd = &cobra.Command{
		Use:   "show <id>",
		Short: "Show the items of a stored snapshot",
		Args:  cobra.ExactArgs(1),
		RunE:  runSnapshotsShow,
	}

	snapshotsPruneCmd = &cobra.Command{
		Use:   "prune",
		Short: "Remove snapshot files older than --older-than",
		Long: `Remove snapshot JSON files older than the given age.

Only the files are removed; index and item rows stay in the database so
history and 'snapshots show' keep working.`,
		Example: `  # Remove snapshot files older than 30 days
  driftwatch snapshots prune --older-than 720h`,
		RunE: runSnapshotsPrune,
	}
)

func init() {
	snapshotsPruneCmd.Flags().DurationVar(&snapshotsPruneAge, "older-than", 30*24*time.Hour, "prune snapshot files older than this age")

	snapshotsCmd.AddCommand(snapshotsListCmd)
	snapshotsCmd.AddCommand(snapshotsShowCmd)
	snapshotsCmd.AddCommand(snapshotsPruneCmd)
}

func runSnapshotsList(cmd *cobra.Command, args []string) error {
	label := ""
	if len(args) > 0 {
		label = args[0]
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.ListSnapshots(label)
	if err != nil {
		return err
	}

	fmt.Print(output.RenderSnapshotTable(records))
	return nil
}

func runSnapshotsShow(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid snapshot ID %q", args[0])
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	mgr := snapshot.New(st, getSnapshotDir(), 0)
	snap, err := mgr.LoadByID(id)
	if err != nil {
		return err
	}

	fmt.Printf("%s · saved %s · %d items\n\n",
		snap.Label, snap.SavedAt.Format("2006-01-02 15:04:05"), snap.Items.Len())
	for _, it := range snap.Items.Items() {
		fmt.Println(it.ID)
	}

	return nil
}

func runSnapshotsPrune(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	mgr := snapshot.New(st, getSnapshotDir(), 0)
	pruned, err := mgr.Prune(snapshotsPruneAge)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Pruned %d snapshot file(s)\n", pruned)
	return nil
}
