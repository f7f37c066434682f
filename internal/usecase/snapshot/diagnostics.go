package snapshot

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"media-observer/internal/archive"
)

// Diagnostics dumps unparseable captures to disk so a failing extractor can
// be reproduced against the exact HTML that broke it.
type Diagnostics struct {
	dir string
}

// NewDiagnostics roots the dump tree at dir, creating it if needed.
func NewDiagnostics(dir string) (*Diagnostics, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create diagnostics dir: %w", err)
	}
	return &Diagnostics{dir: dir}, nil
}

// Dump writes snapshot.html, exception.txt and url.txt under a directory
// keyed by the capture's original URL and timestamp, both URL-escaped to
// stay filesystem safe. Returns the directory written to.
func (d *Diagnostics) Dump(snap archive.Snapshot, cause error) (string, error) {
	ts, err := snap.ID.Time()
	if err != nil {
		return "", err
	}
	sub := filepath.Join(d.dir,
		url.QueryEscape(snap.ID.Original),
		url.QueryEscape(ts.Format(time.RFC3339)))
	if err := os.MkdirAll(sub, 0o755); err != nil {
		return "", fmt.Errorf("create dump dir: %w", err)
	}

	files := map[string]string{
		"snapshot.html": snap.Text,
		"exception.txt": cause.Error(),
		"url.txt":       snap.ID.URL(),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(sub, name), []byte(content), 0o644); err != nil {
			return "", fmt.Errorf("write %s: %w", name, err)
		}
	}
	return sub, nil
}
