package source

import (
	"context"
	"fmt"
	"os"

	"github.com/saltmarsh-systems/driftwatch/internal/config"
	"github.com/saltmarsh-systems/driftwatch/internal/drift"
)

// DefaultWindow is how many entries a file surface reveals per pass when
// no window is configured.
const DefaultWindow = 100

// FileSource treats a local JSON export (an array of objects, optionally
// nested under ItemsKey) as a paged surface: each pass sees a prefix of
// the file, and Advance widens the visible window. The file is re-read
// every pass, so an export refreshed mid-run behaves like any other
// dynamically loading surface.
type FileSource struct {
	path     string
	itemsKey string
	idField  string
	fields   []string
	window   int
	visible  int
}

// NewFile creates a file surface adapter from its configuration.
func NewFile(surface config.Surface) (*FileSource, error) {
	if surface.Path == "" {
		return nil, fmt.Errorf("file surface requires path")
	}
	if surface.IDField == "" {
		return nil, fmt.Errorf("file surface requires id_field")
	}

	window := surface.Window
	if window <= 0 {
		window = DefaultWindow
	}

	return &FileSource{
		path:     surface.Path,
		itemsKey: surface.ItemsKey,
		idField:  surface.IDField,
		fields:   surface.Fields,
		window:   window,
		visible:  window,
	}, nil
}

// Extract reads the export file and returns the currently visible prefix.
func (s *FileSource) Extract(ctx context.Context) ([]drift.Item, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read export %s: %w", s.path, err)
	}

	rows, err := decodeRows(data, s.itemsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode export %s: %w", s.path, err)
	}

	if len(rows) > s.visible {
		rows = rows[:s.visible]
	}

	return rowsToItems(rows, s.idField, s.fields), nil
}

// Advance widens the visible window by one window size.
func (s *FileSource) Advance(ctx context.Context) error {
	s.visible += s.window
	return nil
}
