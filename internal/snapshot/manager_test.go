package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saltmarsh-systems/driftwatch/internal/drift"
	"github.com/saltmarsh-systems/driftwatch/internal/store"
)

func setupManager(t *testing.T, keepFiles int) (*Manager, *store.Store) {
	t.Helper()

	st, err := store.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.CreateSchema())
	t.Cleanup(func() { st.Close() })

	return New(st, t.TempDir(), keepFiles), st
}

func setOf(ids ...string) *drift.Set {
	s := drift.NewSet()
	for _, id := range ids {
		s.Add(drift.Item{ID: id})
	}
	return s
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	m, _ := setupManager(t, 0)

	items := drift.NewSet()
	items.Add(drift.Item{ID: "u1", Fields: map[string]any{"handle": "@one", "followers": float64(12)}})
	items.Add(drift.Item{ID: "u2"})

	saved, err := m.Save("followers", items)
	require.NoError(t, err)
	assert.Equal(t, "followers", saved.Label)
	assert.False(t, saved.SavedAt.IsZero())

	loaded, err := m.Load("followers")
	require.NoError(t, err)

	assert.Equal(t, "followers", loaded.Label)
	assert.Equal(t, []string{"u1", "u2"}, loaded.Items.IDs())

	it, ok := loaded.Items.Get("u1")
	require.True(t, ok)
	assert.Equal(t, "@one", it.Fields["handle"])
	assert.Equal(t, float64(12), it.Fields["followers"])
}

func TestLoadUnknownLabel(t *testing.T) {
	m, _ := setupManager(t, 0)

	_, err := m.Load("never")
	assert.ErrorIs(t, err, store.ErrNoSnapshot)
}

func TestLoadPreviousReturnsSupersededRun(t *testing.T) {
	m, _ := setupManager(t, 0)

	_, err := m.Save("followers", setOf("u1", "u2", "u3"))
	require.NoError(t, err)
	_, err = m.Save("followers", setOf("u2", "u3", "u4"))
	require.NoError(t, err)

	latest, err := m.Load("followers")
	require.NoError(t, err)
	previous, err := m.LoadPrevious("followers")
	require.NoError(t, err)

	res := drift.Diff(previous.Items, latest.Items)
	addedIDs := make([]string, 0, len(res.Added))
	for _, it := range res.Added {
		addedIDs = append(addedIDs, it.ID)
	}
	removedIDs := make([]string, 0, len(res.Removed))
	for _, it := range res.Removed {
		removedIDs = append(removedIDs, it.ID)
	}

	assert.Equal(t, []string{"u4"}, addedIDs)
	assert.Equal(t, []string{"u1"}, removedIDs)
}

func TestLoadPreviousSingleRun(t *testing.T) {
	m, _ := setupManager(t, 0)

	_, err := m.Save("followers", setOf("u1"))
	require.NoError(t, err)

	_, err = m.LoadPrevious("followers")
	assert.ErrorIs(t, err, store.ErrNoSnapshot)
}

func TestSaveSupersedesOldFilesButKeepsRows(t *testing.T) {
	m, st := setupManager(t, 2)

	for i := 0; i < 4; i++ {
		_, err := m.Save("followers", setOf("u1"))
		require.NoError(t, err)
	}

	records, err := st.ListSnapshots("followers")
	require.NoError(t, err)
	require.Len(t, records, 4)

	// Newest two keep their files, older two are pruned.
	assert.NotEmpty(t, records[0].SnapshotPath)
	assert.NotEmpty(t, records[1].SnapshotPath)
	assert.Empty(t, records[2].SnapshotPath)
	assert.Empty(t, records[3].SnapshotPath)

	_, err = os.Stat(records[0].SnapshotPath)
	assert.NoError(t, err)
}

func TestLoadFallsBackToDatabaseRows(t *testing.T) {
	m, st := setupManager(t, 0)

	_, err := m.Save("followers", setOf("u2", "u1"))
	require.NoError(t, err)

	// Simulate a pruned or lost file.
	rec, err := st.LatestSnapshot("followers")
	require.NoError(t, err)
	require.NoError(t, os.Remove(rec.SnapshotPath))

	loaded, err := m.Load("followers")
	require.NoError(t, err)
	assert.Equal(t, []string{"u2", "u1"}, loaded.Items.IDs())
}

func TestPruneRemovesOldFiles(t *testing.T) {
	m, st := setupManager(t, 10)

	_, err := m.Save("followers", setOf("u1"))
	require.NoError(t, err)

	// Age the row well past the cutoff.
	rec, err := st.LatestSnapshot("followers")
	require.NoError(t, err)
	_, err = st.DB().Exec(`UPDATE snapshots SET saved_at = ? WHERE id = ?`,
		time.Now().AddDate(0, 0, -120).Format(time.RFC3339), rec.ID)
	require.NoError(t, err)

	pruned, err := m.Prune(90 * 24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)

	_, err = os.Stat(rec.SnapshotPath)
	assert.True(t, os.IsNotExist(err))

	// The snapshot stays loadable from its rows.
	loaded, err := m.Load("followers")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, loaded.Items.IDs())
}

func TestDecodeWithoutOrderArray(t *testing.T) {
	data := []byte(`{
		"label": "followers",
		"saved_at": "2026-08-01T10:00:00Z",
		"items": {"u1": {"handle": "@one"}}
	}`)

	snap, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, "followers", snap.Label)
	assert.Equal(t, 1, snap.Items.Len())
	assert.True(t, snap.Items.Has("u1"))
}

func TestSanitizeLabel(t *testing.T) {
	assert.Equal(t, "a-b-c-d", sanitizeLabel("a/b c:d"))
}

func TestSaveWritesCanonicalLayout(t *testing.T) {
	m, st := setupManager(t, 0)

	_, err := m.Save("followers", setOf("u1"))
	require.NoError(t, err)

	rec, err := st.LatestSnapshot("followers")
	require.NoError(t, err)
	assert.Equal(t, filepath.Ext(rec.SnapshotPath), ".json")

	data, err := os.ReadFile(rec.SnapshotPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"saved_at"`)
	assert.Contains(t, string(data), `"items"`)
	assert.Contains(t, string(data), `"u1"`)
}
