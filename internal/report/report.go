// Package report groups detections by feature, joins them with support
// verdicts, renders the console summary and persists the JSON report and
// plaintext run log.
package report

import (
	"fmt"
	"strings"

	"github.com/jward/scano/internal/detect"
	"github.com/jward/scano/internal/registry"
)

// Report statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Report is the machine-readable scan artifact.
type Report struct {
	Status       string         `json:"status"`
	Error        string         `json:"error,omitempty"`
	ScannedFiles []string       `json:"scannedFiles"`
	Features     []FeatureEntry `json:"features"`

	// Unsafe is set when at least one detected feature lacks support.
	Unsafe bool `json:"-"`
}

// FeatureEntry is one feature group of a report.
type FeatureEntry struct {
	FeatureID   string            `json:"featureId"`
	Title       string            `json:"title"`
	Supported   bool              `json:"supported"`
	Unsupported []string          `json:"unsupported"`
	Versions    map[string]string `json:"versions"`
	Occurrences []Occurrence      `json:"occurrences"`
}

// Occurrence is one detection site within a feature group.
type Occurrence struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Keyword string `json:"keyword"`
}

// Empty returns a successful report with no features.
func Empty(scanned []string) *Report {
	return &Report{Status: StatusSuccess, ScannedFiles: nonNil(scanned), Features: []FeatureEntry{}}
}

// Failed returns the report emitted on a fatal error.
func Failed(err error, scanned []string) *Report {
	return &Report{
		Status:       StatusError,
		Error:        err.Error(),
		ScannedFiles: nonNil(scanned),
		Features:     []FeatureEntry{},
	}
}

// ExitCode maps a report to the process exit status: 1 when any feature is
// unsupported or the run failed, 0 otherwise.
func ExitCode(r *Report) int {
	if r == nil || r.Status == StatusError || r.Unsafe {
		return 1
	}
	return 0
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

type group struct {
	featureID string
	items     []detect.Detection
}

// groupByFeature groups detections by feature ID in first-seen order.
// Detections without a feature ID are returned separately.
func groupByFeature(records []detect.Detection) (groups []*group, orphans []detect.Detection) {
	byID := make(map[string]*group)
	for _, d := range records {
		if d.FeatureID == "" {
			orphans = append(orphans, d)
			continue
		}
		g, ok := byID[d.FeatureID]
		if !ok {
			g = &group{featureID: d.FeatureID}
			byID[d.FeatureID] = g
			groups = append(groups, g)
		}
		g.items = append(g.items, d)
	}
	return groups, orphans
}

// Aggregate groups records, resolves support per group, renders the
// console summary to sc.Log and returns the report.
func Aggregate(sc *ScanContext, reg *registry.Registry, records []detect.Detection, scanned []string) *Report {
	log := sc.Log
	rep := &Report{Status: StatusSuccess, ScannedFiles: nonNil(scanned), Features: []FeatureEntry{}}

	groups, orphans := groupByFeature(records)
	for _, d := range orphans {
		log.Warnf("Detection without feature id skipped: %s:%d %q", d.File, d.Line, d.Keyword)
	}

	log.Println(boldStyle.Sprint("\n🔍 Feature Scan Report:\n"))

	for _, g := range groups {
		v := reg.Resolve(g.featureID)
		if v.Warning != "" {
			log.Warnf("⚠️ %s", v.Warning)
		}

		icon, style := "✅", okStyle
		if !v.Supported {
			icon, style = "❌", badStyle
			rep.Unsafe = true
		}
		log.Printf("%s %s: %s", icon, style.Sprint(g.featureID), v.Title)

		if v.Supported && len(v.Ordered) > 0 {
			parts := make([]string, len(v.Ordered))
			for i, row := range v.Ordered {
				parts[i] = row.Env + " " + row.Version
			}
			log.Printf("   Supported: %s", infoStyle.Sprint(strings.Join(parts, ", ")))
		}
		if !v.Supported {
			log.Printf("   %s %s", badStyle.Sprint("Missing:"), strings.Join(v.Unsupported, ", "))
		}

		entry := FeatureEntry{
			FeatureID:   g.featureID,
			Title:       v.Title,
			Supported:   v.Supported,
			Unsupported: v.Unsupported,
			Versions:    v.Versions,
			Occurrences: make([]Occurrence, 0, len(g.items)),
		}
		for _, d := range g.items {
			log.Printf("   - %s:%d → \"%s\"", pathStyle.Sprint(d.File), d.Line, noteStyle.Sprint(d.Keyword))
			entry.Occurrences = append(entry.Occurrences, Occurrence{File: d.File, Line: d.Line, Keyword: d.Keyword})
		}
		rep.Features = append(rep.Features, entry)
	}

	if rep.Unsafe {
		log.Println(badBoldStyle.Sprint("❗ Some features are not safe to use."))
	} else {
		log.Println(okBoldStyle.Sprint("✅ All detected features are safe."))
	}
	return rep
}

// Summary returns a one-line description of a report.
func Summary(r *Report) string {
	unsafe := 0
	for _, f := range r.Features {
		if !f.Supported {
			unsafe++
		}
	}
	return fmt.Sprintf("%d file(s), %d feature(s), %d unsupported", len(r.ScannedFiles), len(r.Features), unsafe)
}
