// Package source provides the concrete surface adapters behind the
// collector's Extract/Advance contract: paginated HTML list pages, JSON
// endpoints, and local JSON export files.
package source

import (
	"fmt"

	"github.com/saltmarsh-systems/driftwatch/internal/collector"
	"github.com/saltmarsh-systems/driftwatch/internal/config"
)

// Browser-like user agent, matching what list pages expect to serve.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// New builds the surface adapter for a configured surface. Each adapter
// is single-use: it carries paging state for exactly one collection run.
func New(surface config.Surface) (collector.Source, error) {
	switch surface.Kind {
	case "html":
		return NewHTML(surface)
	case "json":
		return NewJSON(surface)
	case "file":
		return NewFile(surface)
	default:
		return nil, fmt.Errorf("unknown surface kind %q", surface.Kind)
	}
}
