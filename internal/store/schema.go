package store

const schema = `
CREATE TABLE IF NOT EXISTS surfaces (
    name TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    endpoint TEXT,
    last_run_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS snapshots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    label TEXT NOT NULL,
    saved_at TIMESTAMP NOT NULL,
    item_count INTEGER NOT NULL,
    snapshot_path TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshot_items (
    snapshot_id INTEGER NOT NULL,
    item_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    fields TEXT,
    PRIMARY KEY (snapshot_id, item_id),
    FOREIGN KEY (snapshot_id) REFERENCES snapshots(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    label TEXT NOT NULL,
    started_at TIMESTAMP NOT NULL,
    duration_ms INTEGER NOT NULL,
    passes INTEGER NOT NULL,
    pass_errors INTEGER NOT NULL,
    item_count INTEGER NOT NULL,
    added INTEGER NOT NULL,
    removed INTEGER NOT NULL,
    reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_label ON snapshots(label, saved_at);
CREATE INDEX IF NOT EXISTS idx_snapshot_items ON snapshot_items(snapshot_id, position);
CREATE INDEX IF NOT EXISTS idx_runs_label ON runs(label, started_at);
`
