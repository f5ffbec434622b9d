// Package snapshot persists labeled, timestamped collections of items.
//
// A snapshot is written as a JSON file under the snapshot directory and
// indexed in the database, mirroring each other: the file is the
// canonical durable layout, the database rows keep snapshots inspectable
// after their files have been pruned. Snapshots are immutable; a new run
// under the same label supersedes the old one, it never mutates it.
package snapshot

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/saltmarsh-systems/driftwatch/internal/drift"
)

// Snapshot is a named point-in-time collection of items.
type Snapshot struct {
	Label   string
	SavedAt time.Time
	Items   *drift.Set
}

// fileLayout is the durable JSON structure. The items map alone loses
// insertion order, so the order array carries it across round-trips.
type fileLayout struct {
	Label   string                    `json:"label"`
	SavedAt time.Time                 `json:"saved_at"`
	Order   []string                  `json:"order"`
	Items   map[string]map[string]any `json:"items"`
}

// Encode renders the snapshot into its durable JSON form.
func Encode(snap *Snapshot) ([]byte, error) {
	layout := fileLayout{
		Label:   snap.Label,
		SavedAt: snap.SavedAt,
		Order:   snap.Items.IDs(),
		Items:   make(map[string]map[string]any, snap.Items.Len()),
	}
	for _, it := range snap.Items.Items() {
		layout.Items[it.ID] = it.Fields
	}

	data, err := json.MarshalIndent(layout, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot %s: %w", snap.Label, err)
	}
	return data, nil
}

// Decode parses a snapshot from its durable JSON form. Files written
// without an order array (or hand-edited ones) still decode; any items
// missing from the order array are appended afterwards.
func Decode(data []byte) (*Snapshot, error) {
	var layout fileLayout
	if err := json.Unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	set := drift.NewSet()
	for _, id := range layout.Order {
		if fields, ok := layout.Items[id]; ok {
			set.Add(drift.Item{ID: id, Fields: fields})
		}
	}
	for id, fields := range layout.Items {
		if !set.Has(id) {
			set.Add(drift.Item{ID: id, Fields: fields})
		}
	}

	return &Snapshot{
		Label:   layout.Label,
		SavedAt: layout.SavedAt,
		Items:   set,
	}, nil
}
