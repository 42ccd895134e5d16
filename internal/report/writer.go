package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Writer persists the report and run log under timestamped names in Dir.
type Writer struct {
	Dir   string
	Stamp string
}

// NewWriter returns a Writer whose file names carry a timestamp taken
// from now.
func NewWriter(dir string, now time.Time) *Writer {
	if dir == "" {
		dir = "."
	}
	return &Writer{Dir: dir, Stamp: Timestamp(now)}
}

// Timestamp formats now as yyMMddHHmmssSSS in UTC.
func Timestamp(now time.Time) string {
	now = now.UTC()
	return now.Format("060102150405") + fmt.Sprintf("%03d", now.Nanosecond()/int(time.Millisecond))
}

// ReportPath is where WriteReport writes.
func (w *Writer) ReportPath() string {
	return filepath.Join(w.Dir, "report_"+w.Stamp+".json")
}

// LogPath is where WriteLog writes.
func (w *Writer) LogPath() string {
	return filepath.Join(w.Dir, "scano_log_"+w.Stamp+".log")
}

// WriteReport writes r as indented JSON.
func (w *Writer) WriteReport(r *Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("report: encode: %w", err)
	}
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("report: create %s: %w", w.Dir, err)
	}
	if err := os.WriteFile(w.ReportPath(), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("report: write: %w", err)
	}
	return nil
}

// WriteLog writes the transcript with styling stripped.
func (w *Writer) WriteLog(t *Transcript) error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("report: create %s: %w", w.Dir, err)
	}
	if err := os.WriteFile(w.LogPath(), []byte(t.Plain()), 0o644); err != nil {
		return fmt.Errorf("report: write log: %w", err)
	}
	return nil
}

// Read loads a previously written report.
func Read(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("report: read %s: %w", path, err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("report: decode %s: %w", path, err)
	}
	return &r, nil
}
