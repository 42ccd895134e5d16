// Package detect finds platform-feature usage in script, style and markup
// sources.
package detect

import (
	"fmt"
	"sort"
)

// Detection is one observed occurrence of a feature-indicating token.
type Detection struct {
	FeatureID string `json:"featureId"`
	Keyword   string `json:"keyword"`
	File      string `json:"file"`
	Line      int    `json:"line"`
}

func (d Detection) String() string {
	return fmt.Sprintf("%s:%d %s (%s)", d.File, d.Line, d.Keyword, d.FeatureID)
}

// Set accumulates detections with set semantics keyed on the full
// (FeatureID, Keyword, File, Line) tuple, preserving first-insertion order.
type Set struct {
	seen  map[Detection]struct{}
	items []Detection
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{seen: make(map[Detection]struct{})}
}

// Add inserts d and reports whether it was new.
func (s *Set) Add(d Detection) bool {
	if _, ok := s.seen[d]; ok {
		return false
	}
	s.seen[d] = struct{}{}
	s.items = append(s.items, d)
	return true
}

// AddAll inserts every detection in ds.
func (s *Set) AddAll(ds []Detection) {
	for _, d := range ds {
		s.Add(d)
	}
}

// Len returns the number of distinct detections.
func (s *Set) Len() int {
	return len(s.items)
}

// Items returns the detections in insertion order.
func (s *Set) Items() []Detection {
	out := make([]Detection, len(s.items))
	copy(out, s.items)
	return out
}

// Drain returns the detections and empties the set.
func (s *Set) Drain() []Detection {
	out := s.items
	s.items = nil
	s.seen = make(map[Detection]struct{})
	return out
}

// Sorted returns the detections ordered by file, line, keyword.
func Sorted(ds []Detection) []Detection {
	out := make([]Detection, len(ds))
	copy(out, ds)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Keyword < out[j].Keyword
	})
	return out
}

// FileResult is the outcome of scanning one file. Err is non-nil when the
// file could not be analyzed; Detections is then empty.
type FileResult struct {
	Path       string
	Language   string
	Detections []Detection
	Err        error
}

// ParseError reports a script that tree-sitter could not parse cleanly.
type ParseError struct {
	Path   string
	Line   int
	Column int
	Msg    string
}

func (e *ParseError) Error() string {
	return e.Path + ": " + e.Detail()
}

// Detail is the message and position without the path.
func (e *ParseError) Detail() string {
	if e.Line == 0 {
		return e.Msg
	}
	return fmt.Sprintf("%s (%d:%d)", e.Msg, e.Line, e.Column)
}
