// Package output provides terminal output utilities for driftwatch.
//
// This package includes:
//   - Table rendering for snapshots, runs, and configured surfaces
//   - Colored added/removed listings for drift reports
//   - A spinner for indeterminate operations such as collection passes
//   - Human-readable formatting for counts and relative times
//
// All rendering uses ASCII characters and ANSI color codes for terminal
// output. Colors are suppressed when stdout is not a TTY or NO_COLOR is
// set.
package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/saltmarsh-systems/driftwatch/internal/drift"
	"github.com/saltmarsh-systems/driftwatch/internal/store"
)

// ANSI color codes for drift report display
const (
	colorReset = "\033[0m"
	colorGreen = "\033[32m"
	colorRed   = "\033[31m"
	colorGray  = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// RenderSnapshotTable renders a table of snapshot index records.
func RenderSnapshotTable(records []*store.SnapshotRecord) string {
	if len(records) == 0 {
		return "No snapshots found.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-6s %-20s %-8s %-15s %s\n",
		"ID", "Label", "Items", "Saved", "File"))
	sb.WriteString(strings.Repeat("─", 76))
	sb.WriteString("\n")

	for _, rec := range records {
		file := rec.SnapshotPath
		if file == "" {
			file = "(pruned)"
		}
		sb.WriteString(fmt.Sprintf("%-6d %-20s %-8d %-15s %s\n",
			rec.ID,
			truncate(rec.Label, 20),
			rec.ItemCount,
			formatRelativeTime(rec.SavedAt),
			file))
	}

	return sb.String()
}

// RenderRunTable renders run history, newest first.
func RenderRunTable(runs []*store.Run) string {
	if len(runs) == 0 {
		return "No runs recorded.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-20s %-15s %-7s %-7s %-7s %-7s %-10s %s\n",
		"Label", "Started", "Passes", "Items", "Added", "Gone", "Reason", "Duration"))
	sb.WriteString(strings.Repeat("─", 90))
	sb.WriteString("\n")

	for _, run := range runs {
		sb.WriteString(fmt.Sprintf("%-20s %-15s %-7d %-7d %-7d %-7d %-10s %s\n",
			truncate(run.Label, 20),
			formatRelativeTime(run.StartedAt),
			run.Passes,
			run.ItemCount,
			run.Added,
			run.Removed,
			run.Reason,
			run.Duration.Round(time.Millisecond)))
	}

	return sb.String()
}

// RenderSurfaceTable renders the configured surfaces and their last runs.
func RenderSurfaceTable(surfaces []*store.Surface) string {
	if len(surfaces) == 0 {
		return "No surfaces registered. Add one to surfaces.yaml and run 'driftwatch collect'.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-20s %-6s %-40s %s\n",
		"Surface", "Kind", "Endpoint", "Last Run"))
	sb.WriteString(strings.Repeat("─", 86))
	sb.WriteString("\n")

	for _, surface := range surfaces {
		lastRun := "never"
		if surface.LastRunAt != nil {
			lastRun = formatRelativeTime(*surface.LastRunAt)
		}
		sb.WriteString(fmt.Sprintf("%-20s %-6s %-40s %s\n",
			truncate(surface.Name, 20),
			surface.Kind,
			truncate(surface.Endpoint, 40),
			lastRun))
	}

	return sb.String()
}

// RenderDiff renders a drift report: one +line per added item, one -line
// per removed item, colored when enabled.
func RenderDiff(res drift.DiffResult, colored bool) string {
	if len(res.Added) == 0 && len(res.Removed) == 0 {
		return "No changes.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%d added, %d removed\n", len(res.Added), len(res.Removed)))

	for _, it := range res.Added {
		line := "+ " + it.ID
		if colored {
			line = colorGreen + line + colorReset
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	for _, it := range res.Removed {
		line := "- " + it.ID
		if colored {
			line = colorRed + line + colorReset
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	return sb.String()
}

// formatRelativeTime converts a timestamp to a short relative description.
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}

// truncate shortens s to max characters, appending "…" when cut.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 1 {
		return s[:max]
	}
	return s[:max-1] + "…"
}
