package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/saltmarsh-systems/driftwatch/internal/drift"
	"github.com/saltmarsh-systems/driftwatch/internal/store"
)

// DefaultKeepFiles is how many snapshot JSON files are retained per label
// before older files are pruned (their index rows survive as an audit
// record). Two is the minimum that keeps diffing against the previous run
// possible; the default leaves headroom for manual inspection.
const DefaultKeepFiles = 5

// Manager manages snapshot persistence: saving new snapshots, loading
// prior ones, and pruning superseded files.
type Manager struct {
	store     *store.Store
	dir       string
	keepFiles int
}

// New creates a snapshot Manager writing files under dir. keepFiles <= 0
// selects DefaultKeepFiles.
func New(st *store.Store, dir string, keepFiles int) *Manager {
	if keepFiles <= 0 {
		keepFiles = DefaultKeepFiles
	}
	return &Manager{
		store:     st,
		dir:       dir,
		keepFiles: keepFiles,
	}
}

// Save persists a new snapshot for the label and supersedes older ones,
// keeping the newest keepFiles JSON files. The snapshot file and its
// index row are written before any old file is removed, so a crash
// mid-save never leaves the label without a readable snapshot.
//
// Out-of-space failures are reported as store.ErrStorageFull; the caller
// still holds the valid in-memory snapshot and may treat the failure as a
// warning.
func (m *Manager) Save(label string, items *drift.Set) (*Snapshot, error) {
	snap := &Snapshot{
		Label:   label,
		SavedAt: time.Now().UTC().Truncate(time.Second),
		Items:   items,
	}

	labelDir := filepath.Join(m.dir, sanitizeLabel(label))
	if err := os.MkdirAll(labelDir, 0755); err != nil {
		return snap, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	data, err := Encode(snap)
	if err != nil {
		return snap, err
	}

	// Filename: YYYY-MM-DD-HHMMSS-<unix-nanos>.json. The nanos suffix
	// disambiguates two runs landing within the same second.
	filename := fmt.Sprintf("%s-%d.json",
		snap.SavedAt.Format("2006-01-02-150405"), time.Now().UnixNano())
	path := filepath.Join(labelDir, filename)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return snap, storageError(fmt.Errorf("failed to write snapshot file: %w", err))
	}

	id, err := m.store.InsertSnapshot(label, snap.SavedAt, items.Len(), path)
	if err != nil {
		// Clean up the orphaned file if the index insert fails.
		os.Remove(path)
		return snap, err
	}

	if err := m.store.InsertSnapshotItems(id, items.Items()); err != nil {
		return snap, err
	}

	if err := m.supersede(label); err != nil {
		return snap, err
	}

	return snap, nil
}

// Load returns the latest snapshot for a label. It returns
// store.ErrNoSnapshot when the label has never been collected.
func (m *Manager) Load(label string) (*Snapshot, error) {
	rec, err := m.store.LatestSnapshot(label)
	if err != nil {
		return nil, err
	}
	return m.loadRecord(rec)
}

// LoadPrevious returns the snapshot immediately preceding the latest one
// for a label, or store.ErrNoSnapshot when fewer than two runs exist.
func (m *Manager) LoadPrevious(label string) (*Snapshot, error) {
	rec, err := m.store.PreviousSnapshot(label)
	if err != nil {
		return nil, err
	}
	return m.loadRecord(rec)
}

// LoadByID returns a specific stored snapshot.
func (m *Manager) LoadByID(id int64) (*Snapshot, error) {
	rec, err := m.store.GetSnapshot(id)
	if err != nil {
		return nil, err
	}
	return m.loadRecord(rec)
}

// loadRecord reads a snapshot's JSON file, falling back to the database
// item rows when the file has been pruned or lost.
func (m *Manager) loadRecord(rec *store.SnapshotRecord) (*Snapshot, error) {
	if rec.SnapshotPath != "" {
		data, err := os.ReadFile(rec.SnapshotPath)
		if err == nil {
			return Decode(data)
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read snapshot file %s: %w", rec.SnapshotPath, err)
		}
	}

	items, err := m.store.SnapshotItems(rec.ID)
	if err != nil {
		return nil, err
	}

	set := drift.NewSet()
	for _, it := range items {
		set.Add(it)
	}

	return &Snapshot{
		Label:   rec.Label,
		SavedAt: rec.SavedAt,
		Items:   set,
	}, nil
}

// supersede removes snapshot files beyond the newest keepFiles for a
// label. Index and item rows are kept so history stays inspectable.
func (m *Manager) supersede(label string) error {
	records, err := m.store.ListSnapshots(label)
	if err != nil {
		return err
	}

	for i, rec := range records {
		if i < m.keepFiles || rec.SnapshotPath == "" {
			continue
		}
		if err := os.Remove(rec.SnapshotPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove superseded snapshot %s: %w", rec.SnapshotPath, err)
		}
		if err := m.store.ClearSnapshotPath(rec.ID); err != nil {
			return err
		}
	}

	return nil
}

// Prune removes snapshot files older than maxAge across all labels and
// returns how many files were removed. Database rows are retained.
func (m *Manager) Prune(maxAge time.Duration) (int, error) {
	records, err := m.store.ListSnapshots("")
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	pruned := 0

	for _, rec := range records {
		if rec.SnapshotPath == "" || !rec.SavedAt.Before(cutoff) {
			continue
		}
		if err := os.Remove(rec.SnapshotPath); err != nil && !os.IsNotExist(err) {
			return pruned, fmt.Errorf("failed to remove snapshot file %s: %w", rec.SnapshotPath, err)
		}
		if err := m.store.ClearSnapshotPath(rec.ID); err != nil {
			return pruned, err
		}
		pruned++
	}

	return pruned, nil
}

// sanitizeLabel makes a label safe to use as a directory name.
func sanitizeLabel(label string) string {
	replacer := strings.NewReplacer("/", "-", string(filepath.Separator), "-", " ", "-", ":", "-")
	return replacer.Replace(label)
}

// storageError maps out-of-space filesystem failures onto
// store.ErrStorageFull so callers have one error to test for.
func storageError(err error) error {
	if errors.Is(err, syscall.ENOSPC) {
		return errors.Join(store.ErrStorageFull, err)
	}
	return err
}
