package app

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saltmarsh-systems/driftwatch/internal/config"
)

// resetFlags restores the package-level flag variables between test
// executions of the root command.
func resetFlags() {
	dbPath = ""
	configPath = ""
	collectQuiet = false
	collectMaxPasses = 0
	collectMaxItems = 0
	diffAgainst = 0
	historyLimit = 20
	watchDaemon = false
	watchDaemonChild = false
	watchPIDFile = ""
	watchLogFile = ""
	watchStop = false
}

func TestGetDBPathDefault(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	resetFlags()

	path, err := getDBPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".driftwatch", "driftwatch.db"), path)

	// The data directory is created as a side effect.
	assert.DirExists(t, filepath.Join(home, ".driftwatch"))
}

func TestGetDBPathFlag(t *testing.T) {
	resetFlags()
	dbPath = "/tmp/custom.db"
	defer resetFlags()

	path, err := getDBPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.db", path)
}

func TestGetConfigPathDefault(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	resetFlags()

	path, err := getConfigPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/xdg/driftwatch/surfaces.yaml", path)
}

func TestApplyCollectOverrides(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Surfaces["followers"] = config.Surface{
		Kind:         "html",
		URL:          "https://example.com/followers",
		ItemSelector: ".follower",
		Collector:    &config.CollectorSettings{MaxPasses: 50},
	}

	resetFlags()
	collectMaxPasses = 5
	collectMaxItems = 200
	defer resetFlags()

	applyCollectOverrides(cfg, "followers")

	surface := cfg.Surfaces["followers"]
	require.NotNil(t, surface.Collector)
	assert.Equal(t, 5, surface.Collector.MaxPasses)
	assert.Equal(t, 200, surface.Collector.MaxItems)

	// Unknown surfaces are left for collectSurface to report.
	applyCollectOverrides(cfg, "absent")
	assert.NotContains(t, cfg.Surfaces, "absent")
}

func TestRootCommandRegistration(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range RootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"collect", "diff", "snapshots", "history", "watch", "status"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}
