package store

import "time"

// Detection cache types

type File struct {
	ID          int64
	Path        string
	Language    string
	Hash        string
	IndexHash   string
	ParseError  string
	LastScanned time.Time
}

type Detection struct {
	ID        int64
	FileID    int64
	FeatureID string
	Keyword   string
	Line      int
}

// Run history types

type Run struct {
	ID               int64
	StartedAt        time.Time
	Root             string
	Status           string
	FileCount        int
	UnsupportedCount int
	ReportPath       string
	Error            string
}

type RunFeature struct {
	ID          int64
	RunID       int64
	FeatureID   string
	Title       string
	Supported   bool
	Occurrences int
}
