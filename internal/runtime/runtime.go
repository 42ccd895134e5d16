// Package runtime runs Risor rule scripts that extend the keyword index.
//
// A rule script sees the loaded registry and contributes keyword overrides,
// either by calling override(keyword, feature_id) or by evaluating to a map
// of keyword → feature ID.
package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"

	"github.com/jward/scano/internal/keyword"
	"github.com/jward/scano/internal/registry"
)

// Runtime embeds a Risor VM and exposes registry lookups and override
// collection to rule scripts.
type Runtime struct {
	reg        *registry.Registry
	scriptsDir string
	fsys       fs.FS
	log        Logger
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS loads scripts and imports from fsys instead of disk.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithLogger routes the script log global to l.
func WithLogger(l Logger) RuntimeOption {
	return func(r *Runtime) {
		r.log = l
	}
}

// NewRuntime creates a Runtime over reg. Relative script paths and imports
// resolve against scriptsDir.
func NewRuntime(reg *registry.Registry, scriptsDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		reg:        reg,
		scriptsDir: scriptsDir,
		log:        stderrLogger{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.reg == nil {
		r.reg = registry.New()
	}
	return r
}

// RunRules loads and executes a rule script and returns the overrides it
// contributed, in the order they were declared.
func (r *Runtime) RunRules(ctx context.Context, scriptPath string) ([]keyword.Override, error) {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return nil, err
	}
	return r.eval(ctx, src, scriptPath, nil)
}

// RunSource executes Risor source directly with the standard globals plus
// any extras.
func (r *Runtime) RunSource(ctx context.Context, source string, extraGlobals map[string]any) ([]keyword.Override, error) {
	return r.eval(ctx, source, "<inline>", extraGlobals)
}

func (r *Runtime) eval(ctx context.Context, source, label string, extraGlobals map[string]any) ([]keyword.Override, error) {
	col := &collector{}
	globals := r.buildGlobals(col, extraGlobals)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	result, err := risor.Eval(ctx, source, opts...)
	if err != nil {
		return nil, fmt.Errorf("runtime: script %s: %w", label, err)
	}
	if err := col.addResult(result); err != nil {
		return nil, fmt.Errorf("runtime: script %s: %w", label, err)
	}
	return col.overrides, nil
}

// buildImporter returns a Risor importer for the configured script source,
// or nil when neither an fs.FS nor a scripts directory is set.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// LoadScript reads a .risor file. With an fs.FS configured the path is
// resolved inside it; otherwise relative paths resolve against scriptsDir.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil {
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading script %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := path
	if !filepath.IsAbs(path) {
		fullPath = filepath.Join(r.scriptsDir, path)
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

// buildGlobals constructs the globals exposed to rule scripts.
func (r *Runtime) buildGlobals(col *collector, extra map[string]any) map[string]any {
	ids := r.reg.IDs()
	idObjs := make([]object.Object, len(ids))
	for i, id := range ids {
		idObjs[i] = object.NewString(id)
	}

	globals := map[string]any{
		"feature_ids": object.NewList(idObjs),
		"feature":     makeFeatureFn(r.reg),
		"override":    makeOverrideFn(col),
		"log":         mustProxy(&logObject{prefix: "scano", out: r.log}),
	}
	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

// collector accumulates overrides for a single evaluation.
type collector struct {
	overrides []keyword.Override
}

func (c *collector) add(kw, id string) {
	c.overrides = append(c.overrides, keyword.Override{Keyword: kw, FeatureID: id})
}

// addResult appends the entries of a script's result map in key order.
// Results of any other type are ignored.
func (c *collector) addResult(result object.Object) error {
	m, ok := result.(*object.Map)
	if !ok {
		return nil
	}
	entries := m.Value()
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		id, err := toString(entries[k])
		if err != nil {
			return fmt.Errorf("override %q: %w", k, err)
		}
		if strings.TrimSpace(k) == "" || id == "" {
			continue
		}
		c.add(k, id)
	}
	return nil
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
