package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saltmarsh-systems/driftwatch/internal/collector"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "surfaces.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Empty(t, cfg.Surfaces)
	assert.Equal(t, collector.DefaultMaxPasses, cfg.Defaults.MaxPasses)
	assert.Equal(t, collector.DefaultStallThreshold, cfg.Defaults.StallThreshold)
}

func TestLoadParsesSurfaces(t *testing.T) {
	path := writeConfig(t, `
defaults:
  max_passes: 40
  stall_threshold: 2
  pass_delay: 500ms
surfaces:
  followers:
    kind: html
    url: https://example.com/followers
    item_selector: "div.follower"
    id_selector: "a.handle"
    id_attr: href
    field_selectors:
      name: "span.name"
    page_param: page
    start_page: 1
    interval: 15m
  exports:
    kind: file
    path: /data/followers.json
    id_field: handle
    window: 100
    collector:
      max_items: 500
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Surfaces, 2)

	followers, err := cfg.Surface("followers")
	require.NoError(t, err)
	assert.Equal(t, "html", followers.Kind)
	assert.Equal(t, "a.handle", followers.IDSelector)
	assert.Equal(t, "span.name", followers.FieldSelectors["name"])
	assert.Equal(t, 15*time.Minute, time.Duration(followers.Interval))

	cc := cfg.CollectorConfig(followers)
	assert.Equal(t, 40, cc.MaxPasses)
	assert.Equal(t, 2, cc.StallThreshold)
	assert.Equal(t, 500*time.Millisecond, cc.PassDelay)
	assert.Equal(t, 0, cc.MaxItems)
}

func TestCollectorOverridesOverlayDefaults(t *testing.T) {
	path := writeConfig(t, `
defaults:
  max_passes: 40
  stall_threshold: 2
  pass_delay: 1s
surfaces:
  exports:
    kind: file
    path: /data/followers.json
    id_field: handle
    collector:
      max_items: 500
      stall_threshold: 5
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	exports, err := cfg.Surface("exports")
	require.NoError(t, err)

	cc := cfg.CollectorConfig(exports)
	assert.Equal(t, 40, cc.MaxPasses)         // inherited
	assert.Equal(t, 5, cc.StallThreshold)     // overridden
	assert.Equal(t, time.Second, cc.PassDelay) // inherited
	assert.Equal(t, 500, cc.MaxItems)         // overridden
}

func TestLoadRejectsInvalidSurfaces(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"missing kind", "surfaces:\n  bad:\n    url: https://example.com\n"},
		{"unknown kind", "surfaces:\n  bad:\n    kind: rss\n    url: https://example.com\n"},
		{"html without selector", "surfaces:\n  bad:\n    kind: html\n    url: https://example.com\n"},
		{"json without id_field", "surfaces:\n  bad:\n    kind: json\n    url: https://example.com\n"},
		{"file without path", "surfaces:\n  bad:\n    kind: file\n    id_field: id\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	_, err := Load(writeConfig(t, "defaults:\n  pass_delay: soon\n"))
	assert.Error(t, err)
}

func TestSurfaceUnknownName(t *testing.T) {
	cfg := DefaultConfig()
	_, err := cfg.Surface("nope")
	assert.Error(t, err)
}
