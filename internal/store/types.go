package store

import "time"

// SnapshotRecord is the database index entry for a persisted snapshot.
// The item payload lives in a JSON file at SnapshotPath and, redundantly,
// in snapshot_items rows so that pruned files remain inspectable.
type SnapshotRecord struct {
	ID           int64
	Label        string
	SavedAt      time.Time
	ItemCount    int
	SnapshotPath string
}

// Surface is a registered collection target.
type Surface struct {
	Name      string
	Kind      string // "html", "json" or "file"
	Endpoint  string
	LastRunAt *time.Time
}

// Run records one completed collection run for the history command.
type Run struct {
	ID         string // ULID, lexically sortable by creation time
	Label      string
	StartedAt  time.Time
	Duration   time.Duration
	Passes     int
	PassErrors int
	ItemCount  int
	Added      int
	Removed    int
	Reason     string
}
