package reconcile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Writer persists reconciliation reports to a directory as JSON files, one
// file per run, for audit.
type Writer struct {
	dir   string
	seq   int
	nowFn func() time.Time
}

// NewWriter constructs a report writer rooted at dir.
func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = "reconcile"
	}
	_ = os.MkdirAll(dir, 0o755)
	return &Writer{dir: dir, nowFn: time.Now}
}

// WriteReport stamps GeneratedAt and writes the report to a timestamped
// JSON file, returning the path.
func (w *Writer) WriteReport(rep *Report) (string, error) {
	if rep == nil {
		return "", fmt.Errorf("reconcile: nil report")
	}
	if rep.GeneratedAt.IsZero() {
		rep.GeneratedAt = w.nowFn()
	}
	w.seq++
	name := fmt.Sprintf("report_%s_%05d.json", rep.GeneratedAt.UTC().Format("20060102_150405"), w.seq)
	path := filepath.Join(w.dir, name)
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
