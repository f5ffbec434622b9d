package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saltmarsh-systems/driftwatch/internal/store"
)

// setupWorkspace points HOME at a temp dir and writes a surfaces file
// declaring one file-backed surface over the given export path.
func setupWorkspace(t *testing.T, exportPath string) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))

	cfgPath := filepath.Join(home, "surfaces.yaml")
	cfgYAML := `
defaults:
  pass_delay: "1ms"
surfaces:
  exports:
    kind: file
    path: ` + exportPath + `
    id_field: handle
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgYAML), 0644))
	return cfgPath
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	RootCmd.SetArgs(args)
	return RootCmd.Execute()
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	path, err := getDBPath()
	require.NoError(t, err)
	st, err := store.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestCollectEndToEnd(t *testing.T) {
	exportPath := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, os.WriteFile(exportPath,
		[]byte(`[{"handle":"@a"},{"handle":"@b"},{"handle":"@c"}]`), 0644))

	cfgPath := setupWorkspace(t, exportPath)
	resetFlags()
	defer resetFlags()

	require.NoError(t, execute(t, "collect", "exports", "--quiet", "--config", cfgPath))

	// Diffing with a single snapshot is an error with a hint.
	err := execute(t, "diff", "exports", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collect again")

	// @a leaves, @d joins.
	require.NoError(t, os.WriteFile(exportPath,
		[]byte(`[{"handle":"@b"},{"handle":"@c"},{"handle":"@d"}]`), 0644))

	require.NoError(t, execute(t, "collect", "exports", "--quiet", "--config", cfgPath))

	st := openTestStore(t)

	runs, err := st.ListRuns("exports", 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	latest, first := runs[0], runs[1]
	assert.Equal(t, "stalled", latest.Reason)
	assert.Equal(t, 3, latest.ItemCount)
	assert.Equal(t, 1, latest.Added)
	assert.Equal(t, 1, latest.Removed)
	assert.Equal(t, 0, first.Added, "baseline run records no drift")

	snapshots, err := st.ListSnapshots("exports")
	require.NoError(t, err)
	require.Len(t, snapshots, 2)

	surfaces, err := st.ListSurfaces()
	require.NoError(t, err)
	require.Len(t, surfaces, 1)
	assert.Equal(t, "exports", surfaces[0].Name)
	assert.Equal(t, "file", surfaces[0].Kind)
	assert.NotNil(t, surfaces[0].LastRunAt)
}

func TestCollectUnknownSurface(t *testing.T) {
	cfgPath := setupWorkspace(t, filepath.Join(t.TempDir(), "export.json"))
	resetFlags()
	defer resetFlags()

	err := execute(t, "collect", "ghosts", "--quiet", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestDiffAndHistoryAfterCollects(t *testing.T) {
	exportPath := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, os.WriteFile(exportPath, []byte(`[{"handle":"@a"}]`), 0644))

	cfgPath := setupWorkspace(t, exportPath)
	resetFlags()
	defer resetFlags()

	require.NoError(t, execute(t, "collect", "exports", "--quiet", "--config", cfgPath))
	require.NoError(t, os.WriteFile(exportPath, []byte(`[{"handle":"@a"},{"handle":"@b"}]`), 0644))
	require.NoError(t, execute(t, "collect", "exports", "--quiet", "--config", cfgPath))

	assert.NoError(t, execute(t, "diff", "exports", "--config", cfgPath))
	assert.NoError(t, execute(t, "history", "exports", "--config", cfgPath))
	assert.NoError(t, execute(t, "snapshots", "list", "exports", "--config", cfgPath))
	assert.NoError(t, execute(t, "snapshots", "prune", "--config", cfgPath))
	assert.NoError(t, execute(t, "status", "--config", cfgPath))
}

func TestDiffWithoutSnapshots(t *testing.T) {
	cfgPath := setupWorkspace(t, filepath.Join(t.TempDir(), "export.json"))
	resetFlags()
	defer resetFlags()

	err := execute(t, "diff", "exports", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no snapshots")
}

func TestCollectMaxItemsOverride(t *testing.T) {
	exportPath := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, os.WriteFile(exportPath,
		[]byte(`[{"handle":"@a"},{"handle":"@b"},{"handle":"@c"}]`), 0644))

	cfgPath := setupWorkspace(t, exportPath)
	resetFlags()
	defer resetFlags()

	require.NoError(t, execute(t, "collect", "exports", "--quiet",
		"--max-items", "2", "--config", cfgPath))

	st := openTestStore(t)
	runs, err := st.ListRuns("exports", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "max_items", runs[0].Reason)
	assert.Equal(t, 2, runs[0].ItemCount)
}
