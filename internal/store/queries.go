package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/saltmarsh-systems/driftwatch/internal/drift"
)

// Snapshot operations

// InsertSnapshot records a snapshot index row and returns its ID.
func (s *Store) InsertSnapshot(label string, savedAt time.Time, itemCount int, path string) (int64, error) {
	query := `
		INSERT INTO snapshots (label, saved_at, item_count, snapshot_path)
		VALUES (?, ?, ?, ?)
	`

	result, err := s.db.Exec(query, label, savedAt.Format(time.RFC3339), itemCount, path)
	if err != nil {
		return 0, classifyWriteError(fmt.Errorf("failed to insert snapshot for %s: %w", label, err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get snapshot id: %w", err)
	}

	return id, nil
}

// InsertSnapshotItems stores the items of a snapshot in a single
// transaction, preserving their insertion order via the position column.
func (s *Store) InsertSnapshotItems(snapshotID int64, items []drift.Item) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO snapshot_items (snapshot_id, item_id, position, fields)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare item insert: %w", err)
	}
	defer stmt.Close()

	for i, it := range items {
		fieldsJSON, err := json.Marshal(it.Fields)
		if err != nil {
			return fmt.Errorf("failed to marshal fields for %s: %w", it.ID, err)
		}
		if _, err := stmt.Exec(snapshotID, it.ID, i, string(fieldsJSON)); err != nil {
			return classifyWriteError(fmt.Errorf("failed to insert item %s: %w", it.ID, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return classifyWriteError(fmt.Errorf("failed to commit snapshot items: %w", err))
	}

	return nil
}

// LatestSnapshot returns the most recent snapshot record for a label, or
// ErrNoSnapshot if the label has never been collected.
func (s *Store) LatestSnapshot(label string) (*SnapshotRecord, error) {
	return s.snapshotAtOffset(label, 0)
}

// PreviousSnapshot returns the snapshot record immediately preceding the
// latest one for a label, or ErrNoSnapshot when fewer than two exist.
func (s *Store) PreviousSnapshot(label string) (*SnapshotRecord, error) {
	return s.snapshotAtOffset(label, 1)
}

func (s *Store) snapshotAtOffset(label string, offset int) (*SnapshotRecord, error) {
	query := `
		SELECT id, label, saved_at, item_count, snapshot_path
		FROM snapshots
		WHERE label = ?
		ORDER BY saved_at DESC, id DESC
		LIMIT 1 OFFSET ?
	`

	rec, err := scanSnapshot(s.db.QueryRow(query, label, offset))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNoSnapshot, label)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot for %s: %w", label, err)
	}

	return rec, nil
}

// GetSnapshot retrieves a snapshot record by ID.
func (s *Store) GetSnapshot(id int64) (*SnapshotRecord, error) {
	query := `
		SELECT id, label, saved_at, item_count, snapshot_path
		FROM snapshots
		WHERE id = ?
	`

	rec, err := scanSnapshot(s.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot %d: %w", id, err)
	}

	return rec, nil
}

// ListSnapshots returns snapshot records newest first. An empty label
// lists snapshots across all labels.
func (s *Store) ListSnapshots(label string) ([]*SnapshotRecord, error) {
	query := `
		SELECT id, label, saved_at, item_count, snapshot_path
		FROM snapshots
		ORDER BY saved_at DESC, id DESC
	`
	args := []any{}
	if label != "" {
		query = `
			SELECT id, label, saved_at, item_count, snapshot_path
			FROM snapshots
			WHERE label = ?
			ORDER BY saved_at DESC, id DESC
		`
		args = append(args, label)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var records []*SnapshotRecord
	for rows.Next() {
		rec, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return records, nil
}

// SnapshotItems returns the items of a snapshot in their original
// insertion order.
func (s *Store) SnapshotItems(snapshotID int64) ([]drift.Item, error) {
	query := `
		SELECT item_id, fields
		FROM snapshot_items
		WHERE snapshot_id = ?
		ORDER BY position
	`

	rows, err := s.db.Query(query, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to get items for snapshot %d: %w", snapshotID, err)
	}
	defer rows.Close()

	var items []drift.Item
	for rows.Next() {
		var it drift.Item
		var fieldsJSON string
		if err := rows.Scan(&it.ID, &fieldsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		if fieldsJSON != "" && fieldsJSON != "null" {
			if err := json.Unmarshal([]byte(fieldsJSON), &it.Fields); err != nil {
				return nil, fmt.Errorf("failed to unmarshal fields for %s: %w", it.ID, err)
			}
		}
		items = append(items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot items: %w", err)
	}

	return items, nil
}

// DeleteSnapshot removes a snapshot record and, via cascade, its items.
func (s *Store) DeleteSnapshot(id int64) error {
	result, err := s.db.Exec(`DELETE FROM snapshots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot %d: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("snapshot %d not found", id)
	}

	return nil
}

// ClearSnapshotPath marks a snapshot's JSON file as pruned while keeping
// the index row and item rows as an audit record.
func (s *Store) ClearSnapshotPath(id int64) error {
	if _, err := s.db.Exec(`UPDATE snapshots SET snapshot_path = '' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear snapshot path for %d: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*SnapshotRecord, error) {
	var rec SnapshotRecord
	var savedAt string

	if err := row.Scan(&rec.ID, &rec.Label, &savedAt, &rec.ItemCount, &rec.SnapshotPath); err != nil {
		return nil, err
	}

	parsed, err := time.Parse(time.RFC3339, savedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse saved_at: %w", err)
	}
	rec.SavedAt = parsed

	return &rec, nil
}

// Run operations

// NewRunID returns a fresh ULID for a collection run. ULIDs sort
// lexically by creation time, which keeps run history queries simple.
func NewRunID() string {
	return ulid.Make().String()
}

// InsertRun records a completed collection run.
func (s *Store) InsertRun(run *Run) error {
	query := `
		INSERT INTO runs
		(id, label, started_at, duration_ms, passes, pass_errors, item_count, added, removed, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		run.ID,
		run.Label,
		run.StartedAt.Format(time.RFC3339),
		run.Duration.Milliseconds(),
		run.Passes,
		run.PassErrors,
		run.ItemCount,
		run.Added,
		run.Removed,
		run.Reason,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	return nil
}

// ListRuns returns run history newest first. An empty label lists runs
// across all labels; limit <= 0 means no limit.
func (s *Store) ListRuns(label string, limit int) ([]*Run, error) {
	query := `
		SELECT id, label, started_at, duration_ms, passes, pass_errors, item_count, added, removed, reason
		FROM runs
	`
	var args []any
	if label != "" {
		query += ` WHERE label = ?`
		args = append(args, label)
	}
	query += ` ORDER BY started_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var run Run
		var startedAt string
		var durationMS int64

		err := rows.Scan(
			&run.ID,
			&run.Label,
			&startedAt,
			&durationMS,
			&run.Passes,
			&run.PassErrors,
			&run.ItemCount,
			&run.Added,
			&run.Removed,
			&run.Reason,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}

		run.StartedAt, err = time.Parse(time.RFC3339, startedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse started_at for %s: %w", run.ID, err)
		}
		run.Duration = time.Duration(durationMS) * time.Millisecond

		runs = append(runs, &run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// Surface operations

// UpsertSurface inserts or replaces a surface registration.
func (s *Store) UpsertSurface(surface *Surface) error {
	query := `
		INSERT OR REPLACE INTO surfaces (name, kind, endpoint, last_run_at)
		VALUES (?, ?, ?, ?)
	`

	var lastRun any
	if surface.LastRunAt != nil {
		lastRun = surface.LastRunAt.Format(time.RFC3339)
	}

	if _, err := s.db.Exec(query, surface.Name, surface.Kind, surface.Endpoint, lastRun); err != nil {
		return fmt.Errorf("failed to upsert surface %s: %w", surface.Name, err)
	}

	return nil
}

// TouchSurface updates a surface's last-run timestamp.
func (s *Store) TouchSurface(name string, t time.Time) error {
	if _, err := s.db.Exec(`UPDATE surfaces SET last_run_at = ? WHERE name = ?`, t.Format(time.RFC3339), name); err != nil {
		return fmt.Errorf("failed to touch surface %s: %w", name, err)
	}
	return nil
}

// ListSurfaces returns all registered surfaces ordered by name.
func (s *Store) ListSurfaces() ([]*Surface, error) {
	query := `
		SELECT name, kind, endpoint, last_run_at
		FROM surfaces
		ORDER BY name
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list surfaces: %w", err)
	}
	defer rows.Close()

	var surfaces []*Surface
	for rows.Next() {
		var surface Surface
		var endpoint sql.NullString
		var lastRun sql.NullString

		if err := rows.Scan(&surface.Name, &surface.Kind, &endpoint, &lastRun); err != nil {
			return nil, fmt.Errorf("failed to scan surface row: %w", err)
		}
		surface.Endpoint = endpoint.String

		if lastRun.Valid {
			t, err := time.Parse(time.RFC3339, lastRun.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse last_run_at for %s: %w", surface.Name, err)
			}
			surface.LastRunAt = &t
		}

		surfaces = append(surfaces, &surface)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating surfaces: %w", err)
	}

	return surfaces, nil
}
