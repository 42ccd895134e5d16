package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

// saveTestFile stores a file with the given detections.
func saveTestFile(t *testing.T, s *Store, path, hash string, dets ...*Detection) *File {
	t.Helper()
	f := &File{
		Path:        path,
		Language:    "javascript",
		Hash:        hash,
		IndexHash:   "idx1",
		LastScanned: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, s.SaveFile(f, dets))
	require.Positive(t, f.ID)
	return f
}

// =============================================================================
// Schema & Lifecycle
// =============================================================================

func TestMigrate_AllTablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, table := range []string{"metadata", "files", "detections", "runs", "run_features"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
}

func TestMetadata_RoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	v, err := s.GetMetadata("missing")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, s.SetMetadata("index_hash", "a"))
	require.NoError(t, s.SetMetadata("index_hash", "b"))
	v, err = s.GetMetadata("index_hash")
	require.NoError(t, err)
	assert.Equal(t, "b", v)
}

// =============================================================================
// Detection cache
// =============================================================================

func TestCachedDetections_Hit(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	saveTestFile(t, s, "a.js", "h1",
		&Detection{FeatureID: "js-nullish-coalescing", Keyword: "??", Line: 3},
		&Detection{FeatureID: "js-top-level-await", Keyword: "await", Line: 5},
	)

	f, dets, ok, err := s.CachedDetections("a.js", "h1", "idx1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a.js", f.Path)
	require.Len(t, dets, 2)
	assert.Equal(t, "??", dets[0].Keyword)
	assert.Equal(t, 5, dets[1].Line)
}

func TestCachedDetections_MissOnHashChange(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	saveTestFile(t, s, "a.js", "h1")

	_, _, ok, err := s.CachedDetections("a.js", "h2", "idx1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, ok, err = s.CachedDetections("a.js", "h1", "idx2")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, ok, err = s.CachedDetections("other.js", "h1", "idx1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSaveFile_ReplacesPrevious(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	first := saveTestFile(t, s, "a.js", "h1", &Detection{FeatureID: "f", Keyword: "k", Line: 1})
	second := saveTestFile(t, s, "a.js", "h2")

	assert.NotEqual(t, first.ID, second.ID)
	dets, err := s.DetectionsByFile(first.ID)
	require.NoError(t, err)
	assert.Empty(t, dets, "old detections cascade away")

	f, err := s.FileByPath("a.js")
	require.NoError(t, err)
	assert.Equal(t, "h2", f.Hash)
}

func TestSaveFile_ParseError(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := &File{Path: "bad.js", Language: "javascript", Hash: "h", IndexHash: "i", ParseError: "unexpected token (1:7)", LastScanned: time.Now().UTC()}
	require.NoError(t, s.SaveFile(f, nil))

	got, err := s.FileByPath("bad.js")
	require.NoError(t, err)
	assert.Equal(t, "unexpected token (1:7)", got.ParseError)
}

func TestPruneFiles(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	saveTestFile(t, s, "/p/a.js", "h")
	saveTestFile(t, s, "/p/b.js", "h")
	saveTestFile(t, s, "/p/c.css", "h")
	saveTestFile(t, s, "/q/d.js", "h")

	n, err := s.PruneFiles("/p/", []string{"/p/a.js", "/p/c.css"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	f, err := s.FileByPath("/p/b.js")
	require.NoError(t, err)
	assert.Nil(t, f)

	n, err = s.PruneFiles("/p/", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	f, err = s.FileByPath("/q/d.js")
	require.NoError(t, err)
	require.NotNil(t, f, "files outside the prefix are kept")

	n, err = s.PruneFiles("", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

// =============================================================================
// Run history
// =============================================================================

func TestRuns_InsertAndList(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	_, err := s.InsertRun(&Run{StartedAt: base, Root: "/p", Status: "success", FileCount: 2}, nil)
	require.NoError(t, err)

	run := &Run{StartedAt: base.Add(time.Hour), Root: "/p", Status: "success", FileCount: 3, UnsupportedCount: 1, ReportPath: "report.json"}
	id, err := s.InsertRun(run, []*RunFeature{
		{FeatureID: "has", Title: ":has()", Supported: true, Occurrences: 2},
		{FeatureID: "web-bluetooth", Title: "Web Bluetooth", Supported: false, Occurrences: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, id, run.ID)

	runs, err := s.Runs(0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, id, runs[0].ID, "newest first")
	assert.Equal(t, "report.json", runs[0].ReportPath)
	assert.Equal(t, 1, runs[0].UnsupportedCount)

	limited, err := s.Runs(1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	features, err := s.RunFeatures(id)
	require.NoError(t, err)
	require.Len(t, features, 2)
	assert.Equal(t, "has", features[0].FeatureID)
	assert.True(t, features[0].Supported)
	assert.False(t, features[1].Supported)
	assert.Equal(t, 1, features[1].Occurrences)
}

func TestRuns_ErrorRun(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	_, err := s.InsertRun(&Run{StartedAt: time.Now().UTC(), Status: "error", Error: "disk full"}, nil)
	require.NoError(t, err)

	runs, err := s.Runs(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "disk full", runs[0].Error)
	assert.Empty(t, runs[0].Root)
}
