package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRegistry = `{
  "zeta": {
    "name": "Zeta",
    "api": ["ZetaThing", "zetathing", ""],
    "cssProperties": "zeta-prop",
    "status": {"support": {"chrome": "100", "firefox": false, "safari": null}}
  },
  "alpha": {
    "title": "Alpha Title",
    "name": "Alpha Name",
    "keywords": ["Shared", 42, null],
    "status": {"support": {"chrome": "1", "edge": true, "safari": 16}}
  },
  "broken-support": {
    "name": "Broken",
    "status": {"support": "yes"}
  },
  "no-status": {"name": "Missing"},
  "not-an-object": "skip me"
}`

// =============================================================================
// Parsing
// =============================================================================

func TestParse_PreservesDocumentOrder(t *testing.T) {
	t.Parallel()
	r, err := Parse([]byte(sampleRegistry))
	require.NoError(t, err)

	assert.Equal(t, []string{"zeta", "alpha", "broken-support", "no-status"}, r.IDs())
	assert.Equal(t, 4, r.Len())
}

func TestParse_WebFeaturesLayout(t *testing.T) {
	t.Parallel()
	r, err := Parse([]byte(`{"browsers": {}, "features": {"b": {"name": "B"}, "a": {"name": "A"}}}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, r.IDs())
}

func TestParse_RejectsNonObject(t *testing.T) {
	t.Parallel()
	_, err := Parse([]byte(`["a", "b"]`))
	assert.ErrorIs(t, err, ErrNotObject)
}

func TestParse_KeywordsLowercasedAndDeduplicated(t *testing.T) {
	t.Parallel()
	r, err := Parse([]byte(sampleRegistry))
	require.NoError(t, err)

	zeta, ok := r.Feature("zeta")
	require.True(t, ok)
	assert.Equal(t, []string{"zetathing", "zeta-prop", "zeta"}, zeta.Keywords)

	alpha, ok := r.Feature("alpha")
	require.True(t, ok)
	assert.Equal(t, []string{"shared", "alpha title", "alpha name"}, alpha.Keywords)
}

func TestParse_TitleFallbacks(t *testing.T) {
	t.Parallel()
	r, err := Parse([]byte(`{"t": {"title": "T", "name": "N"}, "n": {"name": "N"}, "bare": {}}`))
	require.NoError(t, err)

	for id, want := range map[string]string{"t": "T", "n": "N", "bare": "bare"} {
		f, ok := r.Feature(id)
		require.True(t, ok)
		assert.Equal(t, want, f.Title, id)
	}
}

func TestLoad_FromDisk(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleRegistry), 0o644))

	r, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, r.Len())
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestDefault_ContainsSyntaxFeatures(t *testing.T) {
	t.Parallel()
	r := Default()
	for _, id := range []string{"js-optional-chaining", "js-nullish-coalescing", "js-top-level-await", "js-dynamic-import", "has"} {
		_, ok := r.Feature(id)
		assert.True(t, ok, "embedded registry should contain %s", id)
	}
}

func TestNew_DuplicateKeepsPosition(t *testing.T) {
	t.Parallel()
	r := New(&Feature{ID: "a", Title: "first"}, &Feature{ID: "b"}, &Feature{ID: "a", Title: "second"})
	assert.Equal(t, []string{"a", "b"}, r.IDs())
	f, _ := r.Feature("a")
	assert.Equal(t, "second", f.Title)
}

// =============================================================================
// Support resolution
// =============================================================================

func TestResolve_PartitionsSupportTable(t *testing.T) {
	t.Parallel()
	r, err := Parse([]byte(sampleRegistry))
	require.NoError(t, err)

	v := r.Resolve("zeta")
	assert.False(t, v.Supported)
	assert.Equal(t, "Zeta", v.Title)
	assert.Equal(t, []string{"firefox", "safari"}, v.Unsupported)
	assert.Equal(t, map[string]string{"chrome": "100"}, v.Versions)
	assert.Empty(t, v.Warning)
}

func TestResolve_TruthyValues(t *testing.T) {
	t.Parallel()
	r, err := Parse([]byte(sampleRegistry))
	require.NoError(t, err)

	v := r.Resolve("alpha")
	assert.True(t, v.Supported)
	assert.Empty(t, v.Unsupported)
	assert.Equal(t, map[string]string{"chrome": "1", "edge": "true", "safari": "16"}, v.Versions)
	require.Len(t, v.Ordered, 3)
	assert.Equal(t, "chrome", v.Ordered[0].Env)
}

func TestResolve_EmptyTableIsSupported(t *testing.T) {
	t.Parallel()
	r := New(&Feature{ID: "empty", Title: "Empty", HasSupport: true})
	v := r.Resolve("empty")
	assert.True(t, v.Supported)
	assert.Empty(t, v.Unsupported)
}

func TestResolve_UnknownFeature(t *testing.T) {
	t.Parallel()
	r := New()
	v := r.Resolve("ghost")
	assert.False(t, v.Supported)
	assert.Equal(t, "ghost", v.Title)
	assert.Equal(t, []string{UntrackedEnvironment}, v.Unsupported)
	assert.Empty(t, v.Versions)
	assert.Contains(t, v.Warning, "ghost")
}

func TestResolve_MalformedSupport(t *testing.T) {
	t.Parallel()
	r, err := Parse([]byte(sampleRegistry))
	require.NoError(t, err)

	for _, id := range []string{"broken-support", "no-status"} {
		v := r.Resolve(id)
		assert.False(t, v.Supported, id)
		assert.Equal(t, []string{UntrackedEnvironment}, v.Unsupported, id)
		assert.NotEmpty(t, v.Warning, id)
	}
	assert.Equal(t, "Broken", r.Resolve("broken-support").Title)
}

func TestResolve_SupportedIffAllTruthy(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name  string
		table []EnvSupport
		want  bool
	}{
		{"empty", nil, true},
		{"all truthy", []EnvSupport{{Env: "a", Version: "1", Supported: true}, {Env: "b", Version: "2", Supported: true}}, true},
		{"one falsy", []EnvSupport{{Env: "a", Version: "1", Supported: true}, {Env: "b"}}, false},
		{"all falsy", []EnvSupport{{Env: "a"}, {Env: "b"}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := New(&Feature{ID: "f", Title: "F", Support: tc.table, HasSupport: true})
			assert.Equal(t, tc.want, r.Resolve("f").Supported)
		})
	}
}
