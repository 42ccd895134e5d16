package scano

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/jward/scano/internal/detect"
	"github.com/jward/scano/internal/keyword"
	"github.com/jward/scano/internal/registry"
	"github.com/jward/scano/internal/report"
	"github.com/jward/scano/internal/runtime"
	"github.com/jward/scano/internal/store"
)

// Engine orchestrates a scan: file discovery, per-file detection, support
// resolution and report emission.
type Engine struct {
	registry  *registry.Registry
	index     *keyword.Index
	detectors *detect.Detectors

	overrides []keyword.Override
	rules     []string
	ignore    []string
	outputDir string
	now       func() time.Time
	stdout    io.Writer
	stderr    io.Writer

	dbPath string
	store  *store.Store
}

// Option configures an Engine.
type Option func(*Engine)

// WithRegistry replaces the embedded feature registry.
func WithRegistry(reg *registry.Registry) Option {
	return func(e *Engine) {
		e.registry = reg
	}
}

// WithOverrides adds keyword overrides applied after the built-in table.
func WithOverrides(overrides ...keyword.Override) Option {
	return func(e *Engine) {
		e.overrides = append(e.overrides, overrides...)
	}
}

// WithRules evaluates Risor rule scripts at construction time and applies
// the overrides they contribute after WithOverrides.
func WithRules(paths ...string) Option {
	return func(e *Engine) {
		e.rules = append(e.rules, paths...)
	}
}

// WithIgnore adds doublestar patterns, matched against root-relative slash
// paths, that exclude files from discovery.
func WithIgnore(patterns ...string) Option {
	return func(e *Engine) {
		e.ignore = append(e.ignore, patterns...)
	}
}

// WithOutputDir sets the directory that receives the report and run log.
func WithOutputDir(dir string) Option {
	return func(e *Engine) {
		e.outputDir = dir
	}
}

// WithClock overrides the time source used for artifact names and run
// history.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithOutput sets the console writers. Either may be nil to suppress echo;
// the run log is still recorded.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(e *Engine) {
		e.stdout = stdout
		e.stderr = stderr
	}
}

// WithDatabase enables the SQLite detection cache and run history at path.
func WithDatabase(path string) Option {
	return func(e *Engine) {
		e.dbPath = path
	}
}

// New creates an Engine. It fails when an ignore pattern is malformed, a
// rule script fails, or the keyword index cannot be built.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		outputDir: ".",
		now:       time.Now,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = registry.Default()
	}

	for _, p := range e.ignore {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("scano: invalid ignore pattern %q", p)
		}
	}

	overrides := append([]keyword.Override{}, e.overrides...)
	if len(e.rules) > 0 {
		rt := runtime.NewRuntime(e.registry, "", runtime.WithLogger(report.NewTranscript(e.stderr, e.stderr)))
		for _, path := range e.rules {
			extra, err := rt.RunRules(context.Background(), path)
			if err != nil {
				return nil, fmt.Errorf("scano: rules: %w", err)
			}
			overrides = append(overrides, extra...)
		}
	}

	idx, err := keyword.Build(e.registry, overrides...)
	if err != nil {
		return nil, fmt.Errorf("scano: keyword index: %w", err)
	}
	e.index = idx
	e.detectors = detect.New(idx)

	if e.dbPath != "" {
		s, err := store.NewStore(e.dbPath)
		if err != nil {
			return nil, fmt.Errorf("scano: create store: %w", err)
		}
		if err := s.Migrate(); err != nil {
			s.Close()
			return nil, fmt.Errorf("scano: migrate: %w", err)
		}
		if err := resetStaleCache(s); err != nil {
			s.Close()
			return nil, fmt.Errorf("scano: %w", err)
		}
		e.store = s
	}
	return e, nil
}

// resetStaleCache drops cached detections written by a different scano
// version, whose detectors may have matched differently.
func resetStaleCache(s *store.Store) error {
	prev, err := s.GetMetadata("scano_version")
	if err != nil {
		return err
	}
	if prev == Version {
		return nil
	}
	if _, err := s.PruneFiles("", nil); err != nil {
		return err
	}
	return s.SetMetadata("scano_version", Version)
}

// Close releases the Engine's database, if any.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// Store returns the history store, or nil when none is configured.
func (e *Engine) Store() *Store {
	return e.store
}

// Registry returns the feature registry the Engine resolves against.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Index returns the keyword index the detectors use.
func (e *Engine) Index() *keyword.Index {
	return e.index
}

// Outcome is the result of a run.
type Outcome struct {
	Report     *report.Report
	ReportPath string
	LogPath    string
	ExitCode   int
	RunID      int64
}

// Run scans files, given relative to root, strictly one at a time in the
// order given. It always writes a report and a run log. On a fatal error it
// emits an error report on a best-effort basis and returns both the
// Outcome and the error.
func (e *Engine) Run(ctx context.Context, root string, files []string) (*Outcome, error) {
	return e.run(ctx, root, files, false)
}

// Scan discovers every supported file under root and runs them. Since the
// file set is complete, cached entries under root that were not scanned
// are pruned.
func (e *Engine) Scan(ctx context.Context, root string) (*Outcome, error) {
	files, err := e.DiscoverFiles(root)
	if err != nil {
		return nil, fmt.Errorf("scano: discover: %w", err)
	}
	return e.run(ctx, root, files, true)
}

func (e *Engine) run(ctx context.Context, root string, files []string, prune bool) (out *Outcome, err error) {
	started := e.now()
	w := report.NewWriter(e.outputDir, started)
	log := report.NewTranscript(e.stdout, e.stderr)
	sc := report.NewScanContext(log)
	var scanned []string

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scano: panic: %v", r)
		}
		if err != nil {
			out = e.fail(sc, w, err, root, scanned, started)
		}
	}()

	log.Println(report.Header("🌐 Running Web Feature Baseline Scan...\n"))

	if len(files) == 0 {
		log.Println(report.Note("⚠️  No .js, .css, or .html files found."))
		log.Println("📄 Empty report written to: " + report.Info(w.ReportPath()))
		return e.finish(sc, w, report.Empty(nil), root, started)
	}

	scanned = files
	log.Println(report.Bold(fmt.Sprintf("📂 Scanning %d file(s):", len(files))))
	for _, f := range files {
		log.Println("  - " + f)
	}

	for _, f := range files {
		if err := e.scanFile(ctx, sc, root, f); err != nil {
			return nil, err
		}
	}
	if prune {
		e.prune(sc, root, files)
	}

	records := sc.Detections.Drain()
	if len(records) == 0 {
		log.Println(report.OK("\n✅ No modern web features detected."))
		log.Println("\n📄 Log written to: " + report.Info(w.LogPath()))
		log.Println("📄 Empty report written to: " + report.Info(w.ReportPath()) + "\n")
		return e.finish(sc, w, report.Empty(scanned), root, started)
	}

	rep := report.Aggregate(sc, e.registry, records, scanned)
	log.Println("\n📄 Log written to: " + report.Info(w.LogPath()))
	log.Println("📄 Report written to: " + report.Info(w.ReportPath()) + "\n")
	return e.finish(sc, w, rep, root, started)
}

// scanFile reads and detects one file, consulting the cache when a store
// is configured. Read failures are fatal; parse failures are warnings.
func (e *Engine) scanFile(ctx context.Context, sc *report.ScanContext, root, rel string) error {
	content, err := os.ReadFile(resolvePath(root, rel))
	if err != nil {
		return fmt.Errorf("scano: read %s: %w", rel, err)
	}
	if !detect.Supported(rel) {
		return nil
	}

	var key, hash string
	if e.store != nil {
		key = cacheKey(root, rel)
		hash = fmt.Sprintf("%x", sha256.Sum256(content))
		cached, dets, ok, err := e.store.CachedDetections(key, hash, e.index.Hash())
		if err != nil {
			return fmt.Errorf("scano: cache lookup %s: %w", rel, err)
		}
		if ok {
			if cached.ParseError != "" {
				sc.Log.Warnf("⚠️  Failed to parse %s: %s", rel, cached.ParseError)
			}
			for _, d := range dets {
				sc.Detections.Add(detect.Detection{FeatureID: d.FeatureID, Keyword: d.Keyword, File: rel, Line: d.Line})
			}
			return nil
		}
	}

	res := e.detectors.Detect(ctx, rel, content)
	if res.Err != nil {
		sc.Log.Warnf("⚠️  Failed to parse %s: %s", rel, parseReason(res.Err))
	}
	sc.Detections.AddAll(res.Detections)

	if e.store != nil {
		if err := e.cache(key, hash, res); err != nil {
			sc.Log.Warnf("cache %s: %v", rel, err)
		}
	}
	return nil
}

func (e *Engine) cache(path, hash string, res detect.FileResult) error {
	f := &store.File{
		Path:        path,
		Language:    res.Language,
		Hash:        hash,
		IndexHash:   e.index.Hash(),
		LastScanned: e.now().UTC(),
	}
	if res.Err != nil {
		f.ParseError = parseReason(res.Err)
	}
	dets := make([]*store.Detection, len(res.Detections))
	for i, d := range res.Detections {
		dets[i] = &store.Detection{FeatureID: d.FeatureID, Keyword: d.Keyword, Line: d.Line}
	}
	return e.store.SaveFile(f, dets)
}

// prune drops cached entries under root that were not part of this run.
func (e *Engine) prune(sc *report.ScanContext, root string, files []string) {
	if e.store == nil {
		return
	}
	keep := make([]string, len(files))
	for i, f := range files {
		keep[i] = cacheKey(root, f)
	}
	prefix := cacheKey(root, "") + string(filepath.Separator)
	if _, err := e.store.PruneFiles(prefix, keep); err != nil {
		sc.Log.Warnf("cache prune: %v", err)
	}
}

// finish persists the report, records history and writes the run log last
// so it holds every line printed before it.
func (e *Engine) finish(sc *report.ScanContext, w *report.Writer, rep *report.Report, root string, started time.Time) (*Outcome, error) {
	if err := w.WriteReport(rep); err != nil {
		return nil, err
	}
	out := &Outcome{
		Report:     rep,
		ReportPath: w.ReportPath(),
		LogPath:    w.LogPath(),
		ExitCode:   report.ExitCode(rep),
	}
	out.RunID = e.recordRun(sc, rep, root, out.ReportPath, started)
	if err := w.WriteLog(sc.Log); err != nil {
		return nil, err
	}
	return out, nil
}

// fail emits the fatal message, then the error report and run log on a
// best-effort basis.
func (e *Engine) fail(sc *report.ScanContext, w *report.Writer, err error, root string, scanned []string, started time.Time) *Outcome {
	sc.Log.Errorf("💥 Fatal error: %v", err)
	rep := report.Failed(err, scanned)
	out := &Outcome{Report: rep, ExitCode: 1}

	if werr := w.WriteReport(rep); werr != nil {
		sc.Log.Errorf("❌ Failed to write logs: %v", werr)
	} else {
		out.ReportPath = w.ReportPath()
	}
	out.RunID = e.recordRun(sc, rep, root, out.ReportPath, started)
	if werr := w.WriteLog(sc.Log); werr != nil {
		sc.Log.Errorf("❌ Failed to write logs: %v", werr)
	} else {
		out.LogPath = w.LogPath()
	}
	return out
}

// recordRun stores the run in history. Failures only warn.
func (e *Engine) recordRun(sc *report.ScanContext, rep *report.Report, root, reportPath string, started time.Time) int64 {
	if e.store == nil {
		return 0
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	run := &store.Run{
		StartedAt:  started.UTC(),
		Root:       root,
		Status:     rep.Status,
		FileCount:  len(rep.ScannedFiles),
		ReportPath: reportPath,
		Error:      rep.Error,
	}
	features := make([]*store.RunFeature, len(rep.Features))
	for i, f := range rep.Features {
		if !f.Supported {
			run.UnsupportedCount++
		}
		features[i] = &store.RunFeature{
			FeatureID:   f.FeatureID,
			Title:       f.Title,
			Supported:   f.Supported,
			Occurrences: len(f.Occurrences),
		}
	}
	id, err := e.store.InsertRun(run, features)
	if err != nil {
		sc.Log.Warnf("run history: %v", err)
		return 0
	}
	return id
}

// parseReason drops the path a ParseError carries, since callers print it.
func parseReason(err error) string {
	var pe *detect.ParseError
	if errors.As(err, &pe) {
		return pe.Detail()
	}
	return err.Error()
}

// cacheKey is the absolute path a file is cached under.
func cacheKey(root, rel string) string {
	p := resolvePath(root, rel)
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

func resolvePath(root, rel string) string {
	if root == "" || filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(root, rel)
}
