package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saltmarsh-systems/driftwatch/internal/config"
)

func writeExport(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestFileSourceWindowedExtraction(t *testing.T) {
	path := writeExport(t, `[
		{"handle":"@a"},{"handle":"@b"},{"handle":"@c"},{"handle":"@d"},{"handle":"@e"}
	]`)

	src, err := NewFile(config.Surface{
		Kind:    "file",
		Path:    path,
		IDField: "handle",
		Window:  2,
	})
	require.NoError(t, err)

	ctx := context.Background()

	items, err := src.Extract(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, "@a", items[0].ID)

	require.NoError(t, src.Advance(ctx))
	items, err = src.Extract(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 4)

	require.NoError(t, src.Advance(ctx))
	items, err = src.Extract(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 5) // window past the end reveals everything

	require.NoError(t, src.Advance(ctx))
	items, err = src.Extract(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 5) // stable from here on: the collector stalls out
}

func TestFileSourceEnvelope(t *testing.T) {
	path := writeExport(t, `{"followers":[{"handle":"@a","name":"A"}]}`)

	src, err := NewFile(config.Surface{
		Kind:     "file",
		Path:     path,
		IDField:  "handle",
		ItemsKey: "followers",
	})
	require.NoError(t, err)

	items, err := src.Extract(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "@a", items[0].ID)
	assert.Equal(t, "A", items[0].Fields["name"])
}

func TestFileSourceMissingFile(t *testing.T) {
	src, err := NewFile(config.Surface{
		Kind:    "file",
		Path:    filepath.Join(t.TempDir(), "absent.json"),
		IDField: "handle",
	})
	require.NoError(t, err)

	_, err = src.Extract(context.Background())
	assert.Error(t, err)
}

func TestFileSourceMalformedJSON(t *testing.T) {
	path := writeExport(t, `{not json`)

	src, err := NewFile(config.Surface{Kind: "file", Path: path, IDField: "handle"})
	require.NoError(t, err)

	_, err = src.Extract(context.Background())
	assert.Error(t, err)
}

func TestFileSourceDefaultWindow(t *testing.T) {
	path := writeExport(t, `[{"handle":"@a"}]`)

	src, err := NewFile(config.Surface{Kind: "file", Path: path, IDField: "handle"})
	require.NoError(t, err)

	assert.Equal(t, DefaultWindow, src.window)
}
