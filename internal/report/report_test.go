package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/scano/internal/detect"
	"github.com/jward/scano/internal/registry"
)

func fooRegistry() *registry.Registry {
	return registry.New(
		&registry.Feature{
			ID: "foo", Title: "Foo", HasSupport: true,
			Support: []registry.EnvSupport{
				{Env: "E1"},
				{Env: "E2", Version: "10", Supported: true},
			},
		},
		&registry.Feature{
			ID: "bar", Title: "Bar", HasSupport: true,
			Support: []registry.EnvSupport{
				{Env: "E1", Version: "1", Supported: true},
				{Env: "E2", Version: "2", Supported: true},
			},
		},
	)
}

func newContext() (*ScanContext, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return NewScanContext(NewTranscript(&out, &errOut)), &out, &errOut
}

// =============================================================================
// Aggregation
// =============================================================================

func TestAggregate_UnsupportedFeature(t *testing.T) {
	t.Parallel()
	sc, _, _ := newContext()
	records := []detect.Detection{{FeatureID: "foo", Keyword: "foo", File: "a.js", Line: 4}}

	rep := Aggregate(sc, fooRegistry(), records, []string{"a.js"})

	require.Len(t, rep.Features, 1)
	entry := rep.Features[0]
	assert.Equal(t, "foo", entry.FeatureID)
	assert.False(t, entry.Supported)
	assert.Equal(t, []string{"E1"}, entry.Unsupported)
	assert.Equal(t, map[string]string{"E2": "10"}, entry.Versions)
	assert.Equal(t, []Occurrence{{File: "a.js", Line: 4, Keyword: "foo"}}, entry.Occurrences)
	assert.True(t, rep.Unsafe)
	assert.Equal(t, 1, ExitCode(rep))
}

func TestAggregate_AllSupported(t *testing.T) {
	t.Parallel()
	sc, out, _ := newContext()
	records := []detect.Detection{
		{FeatureID: "bar", Keyword: "bar", File: "a.js", Line: 1},
		{FeatureID: "bar", Keyword: "bar", File: "b.js", Line: 2},
	}

	rep := Aggregate(sc, fooRegistry(), records, []string{"a.js", "b.js"})

	require.Len(t, rep.Features, 1)
	assert.True(t, rep.Features[0].Supported)
	assert.Empty(t, rep.Features[0].Unsupported)
	assert.Len(t, rep.Features[0].Occurrences, 2)
	assert.False(t, rep.Unsafe)
	assert.Equal(t, 0, ExitCode(rep))

	plain := sc.Log.Plain()
	assert.Contains(t, plain, "Supported: E1 1, E2 2")
	assert.Contains(t, plain, `- a.js:1 → "bar"`)
	assert.Contains(t, plain, "All detected features are safe.")
	assert.Contains(t, out.String(), "Feature Scan Report")
}

func TestAggregate_GroupsInFirstSeenOrder(t *testing.T) {
	t.Parallel()
	sc, _, _ := newContext()
	records := []detect.Detection{
		{FeatureID: "bar", Keyword: "bar", File: "a.js", Line: 1},
		{FeatureID: "foo", Keyword: "foo", File: "a.js", Line: 2},
		{FeatureID: "bar", Keyword: "bar", File: "a.js", Line: 3},
	}

	rep := Aggregate(sc, fooRegistry(), records, nil)

	require.Len(t, rep.Features, 2)
	assert.Equal(t, "bar", rep.Features[0].FeatureID)
	assert.Equal(t, "foo", rep.Features[1].FeatureID)
	assert.Len(t, rep.Features[0].Occurrences, 2)
	assert.NotNil(t, rep.ScannedFiles)
}

func TestAggregate_UnknownFeatureWarns(t *testing.T) {
	t.Parallel()
	sc, _, errOut := newContext()
	records := []detect.Detection{{FeatureID: "ghost", Keyword: "boo", File: "a.css", Line: 1}}

	rep := Aggregate(sc, fooRegistry(), records, []string{"a.css"})

	require.Len(t, rep.Features, 1)
	assert.Equal(t, "ghost", rep.Features[0].Title)
	assert.Equal(t, []string{registry.UntrackedEnvironment}, rep.Features[0].Unsupported)
	assert.True(t, rep.Unsafe)
	assert.Contains(t, errOut.String(), "Feature data not found for: ghost")
	assert.Equal(t, 1, sc.Log.Warnings())
}

func TestAggregate_SkipsMissingFeatureID(t *testing.T) {
	t.Parallel()
	sc, _, _ := newContext()
	records := []detect.Detection{
		{FeatureID: "", Keyword: "optional chaining", File: "a.js", Line: 1},
		{FeatureID: "bar", Keyword: "bar", File: "a.js", Line: 1},
	}

	rep := Aggregate(sc, fooRegistry(), records, nil)

	require.Len(t, rep.Features, 1)
	assert.Equal(t, "bar", rep.Features[0].FeatureID)
	assert.Equal(t, 1, sc.Log.Warnings())
}

// =============================================================================
// Constructors and exit codes
// =============================================================================

func TestEmptyAndFailed(t *testing.T) {
	t.Parallel()
	e := Empty(nil)
	assert.Equal(t, StatusSuccess, e.Status)
	assert.NotNil(t, e.ScannedFiles)
	assert.NotNil(t, e.Features)
	assert.Equal(t, 0, ExitCode(e))

	f := Failed(errors.New("disk full"), []string{"a.js"})
	assert.Equal(t, StatusError, f.Status)
	assert.Equal(t, "disk full", f.Error)
	assert.Empty(t, f.Features)
	assert.Equal(t, 1, ExitCode(f))
}

func TestReportJSONShape(t *testing.T) {
	t.Parallel()
	data, err := json.Marshal(Failed(errors.New("boom"), nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"error","error":"boom","scannedFiles":[],"features":[]}`, string(data))

	data, err = json.Marshal(Empty([]string{"a.js"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"success","scannedFiles":["a.js"],"features":[]}`, string(data))
}

func TestSummary(t *testing.T) {
	t.Parallel()
	sc, _, _ := newContext()
	rep := Aggregate(sc, fooRegistry(), []detect.Detection{
		{FeatureID: "foo", Keyword: "foo", File: "a.js", Line: 1},
		{FeatureID: "bar", Keyword: "bar", File: "a.js", Line: 1},
	}, []string{"a.js"})
	assert.Equal(t, "1 file(s), 2 feature(s), 1 unsupported", Summary(rep))
}

// =============================================================================
// Transcript and writer
// =============================================================================

func TestTranscript_PlainStripsStyling(t *testing.T) {
	t.Parallel()
	tr := NewTranscript(nil, nil)
	tr.Println("\x1b[31mred\x1b[0m", "text")
	tr.Printf("n=%d", 3)
	assert.Equal(t, "red text\nn=3\n", tr.Plain())
}

func TestTranscript_WarningsGoToStderr(t *testing.T) {
	t.Parallel()
	var out, errOut bytes.Buffer
	tr := NewTranscript(&out, &errOut)
	tr.Warnf("careful %s", "now")
	assert.Empty(t, out.String())
	assert.Equal(t, "[scano] WARN: careful now\n", errOut.String())
	assert.Contains(t, tr.String(), "careful now")
}

func TestTimestamp(t *testing.T) {
	t.Parallel()
	ts := time.Date(2026, 3, 4, 5, 6, 7, 89*int(time.Millisecond), time.UTC)
	assert.Equal(t, "260304050607089", Timestamp(ts))
}

func TestWriter_WritesReportAndLog(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "out")
	w := NewWriter(dir, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	assert.Equal(t, filepath.Join(dir, "report_260102030405000.json"), w.ReportPath())
	assert.Equal(t, filepath.Join(dir, "scano_log_260102030405000.log"), w.LogPath())

	tr := NewTranscript(nil, nil)
	tr.Println(Header("banner"))
	require.NoError(t, w.WriteReport(Empty([]string{"a.js"})))
	require.NoError(t, w.WriteLog(tr))

	got, err := Read(w.ReportPath())
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, got.Status)
	assert.Equal(t, []string{"a.js"}, got.ScannedFiles)

	logData, err := os.ReadFile(w.LogPath())
	require.NoError(t, err)
	assert.Equal(t, "banner\n", string(logData))
	assert.False(t, strings.Contains(string(logData), "\x1b["))
}

func TestRead_Invalid(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "r.json")
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o644))
	_, err := Read(path)
	assert.Error(t, err)
}
