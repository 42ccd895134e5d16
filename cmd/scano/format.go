package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/jward/scano/internal/store"
)

// CLIRun is the JSON form of a recorded scan.
type CLIRun struct {
	ID               int64  `json:"id"`
	StartedAt        string `json:"started_at"`
	Root             string `json:"root"`
	Status           string `json:"status"`
	FileCount        int    `json:"file_count"`
	UnsupportedCount int    `json:"unsupported_count"`
	ReportPath       string `json:"report_path,omitempty"`
	Error            string `json:"error,omitempty"`
}

// CLIRunFeature is the JSON form of one feature row of a scan.
type CLIRunFeature struct {
	FeatureID   string `json:"feature_id"`
	Title       string `json:"title"`
	Supported   bool   `json:"supported"`
	Occurrences int    `json:"occurrences"`
}

func runsToCLI(runs []*store.Run) []CLIRun {
	out := make([]CLIRun, 0, len(runs))
	for _, r := range runs {
		out = append(out, CLIRun{
			ID:               r.ID,
			StartedAt:        r.StartedAt.UTC().Format(time.RFC3339),
			Root:             r.Root,
			Status:           r.Status,
			FileCount:        r.FileCount,
			UnsupportedCount: r.UnsupportedCount,
			ReportPath:       r.ReportPath,
			Error:            r.Error,
		})
	}
	return out
}

func featuresToCLI(features []*store.RunFeature) []CLIRunFeature {
	out := make([]CLIRunFeature, 0, len(features))
	for _, f := range features {
		out = append(out, CLIRunFeature{
			FeatureID:   f.FeatureID,
			Title:       f.Title,
			Supported:   f.Supported,
			Occurrences: f.Occurrences,
		})
	}
	return out
}

// formatRunsText formats runs as aligned columns.
func formatRunsText(w io.Writer, runs []*store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No scans recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tSTATUS\tFILES\tUNSUPPORTED\tROOT")
	for _, r := range runs {
		status := r.Status
		if r.Error != "" {
			status += " (" + r.Error + ")"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), status, r.FileCount, r.UnsupportedCount, r.Root)
	}
	tw.Flush()
}

// formatRunFeaturesText formats a run's feature rows as aligned columns.
func formatRunFeaturesText(w io.Writer, features []*store.RunFeature) {
	if len(features) == 0 {
		fmt.Fprintln(w, "No features recorded for this scan.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FEATURE\tTITLE\tSUPPORTED\tOCCURRENCES")
	for _, f := range features {
		supported := "yes"
		if !f.Supported {
			supported = "no"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", f.FeatureID, f.Title, supported, f.Occurrences)
	}
	tw.Flush()
}
