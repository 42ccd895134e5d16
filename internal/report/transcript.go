package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/fatih/color"

	"github.com/jward/scano/internal/detect"
)

// Console styles.
var (
	boldStyle    = color.New(color.Bold)
	headerStyle  = color.New(color.FgCyan, color.Bold)
	okStyle      = color.New(color.FgGreen)
	okBoldStyle  = color.New(color.FgGreen, color.Bold)
	badStyle     = color.New(color.FgRed)
	badBoldStyle = color.New(color.FgRed, color.Bold)
	noteStyle    = color.New(color.FgYellow)
	pathStyle    = color.New(color.FgHiBlack)
	infoStyle    = color.New(color.FgCyan)
)

// Transcript is the run's console sink. Lines go to stdout, warnings to
// stderr, and both are recorded for the run log.
type Transcript struct {
	stdout io.Writer
	stderr io.Writer
	buf    strings.Builder
	warns  int
}

// NewTranscript writes console output to stdout and warnings to stderr.
// Either may be nil to record without echoing.
func NewTranscript(stdout, stderr io.Writer) *Transcript {
	return &Transcript{stdout: stdout, stderr: stderr}
}

// Println writes one line, joining args with spaces.
func (t *Transcript) Println(args ...any) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprint(a)
	}
	t.line(t.stdout, strings.Join(parts, " "))
}

// Printf writes one formatted line.
func (t *Transcript) Printf(format string, args ...any) {
	t.line(t.stdout, fmt.Sprintf(format, args...))
}

// Warnf writes a prefixed warning to stderr.
func (t *Transcript) Warnf(format string, args ...any) {
	t.warns++
	t.line(t.stderr, "[scano] WARN: "+fmt.Sprintf(format, args...))
}

// Errorf writes a prefixed error to stderr.
func (t *Transcript) Errorf(format string, args ...any) {
	t.line(t.stderr, "[scano] ERROR: "+badStyle.Sprintf(format, args...))
}

func (t *Transcript) line(w io.Writer, s string) {
	t.buf.WriteString(s)
	t.buf.WriteByte('\n')
	if w != nil {
		fmt.Fprintln(w, s)
	}
}

// Warnings returns how many warnings were written.
func (t *Transcript) Warnings() int {
	return t.warns
}

// String returns the transcript as written, styling included.
func (t *Transcript) String() string {
	return t.buf.String()
}

// Plain returns the transcript with ANSI styling removed.
func (t *Transcript) Plain() string {
	return ansi.Strip(t.buf.String())
}

// ScanContext carries the per-run mutable state shared by the scan and
// aggregation phases.
type ScanContext struct {
	Log        *Transcript
	Detections *detect.Set
}

// NewScanContext returns a context with an empty detection set.
func NewScanContext(log *Transcript) *ScanContext {
	return &ScanContext{Log: log, Detections: detect.NewSet()}
}

// Header styles a run banner.
func Header(s string) string { return headerStyle.Sprint(s) }

// Bold styles a section title.
func Bold(s string) string { return boldStyle.Sprint(s) }

// Info styles a path or value worth highlighting.
func Info(s string) string { return infoStyle.Sprint(s) }

// Note styles a cautionary message.
func Note(s string) string { return noteStyle.Sprint(s) }

// OK styles a success message.
func OK(s string) string { return okStyle.Sprint(s) }
