package scano

import (
	"github.com/jward/scano/internal/detect"
	"github.com/jward/scano/internal/keyword"
	"github.com/jward/scano/internal/report"
	"github.com/jward/scano/internal/store"
)

// Public type aliases re-exported from internal packages.
type Store = store.Store
type Run = store.Run
type RunFeature = store.RunFeature
type Report = report.Report
type FeatureEntry = report.FeatureEntry
type Occurrence = report.Occurrence
type Detection = detect.Detection
type Override = keyword.Override
