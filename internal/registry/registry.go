// Package registry adapts a feature-support database (the web-features
// data.json layout) into an ordered, read-only set of features that the
// keyword index and the support resolver consume.
package registry

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// ErrNotObject is returned when a registry document is not a JSON object.
var ErrNotObject = errors.New("registry: expected JSON object")

// keywordFields lists the feature metadata fields that contribute keywords,
// in extraction order.
var keywordFields = []string{
	"api", "aliases", "cssProperties", "htmlElements", "htmlAttributes",
	"keywords", "title", "name",
}

// EnvSupport is one row of a feature's support table.
type EnvSupport struct {
	Env       string
	Version   string
	Supported bool
}

// Feature is a single registry entry.
type Feature struct {
	ID       string
	Title    string
	Keywords []string

	// Support holds the support table in document order. HasSupport is
	// false when the table is missing or is not an object.
	Support    []EnvSupport
	HasSupport bool
}

// Registry is an ordered, immutable collection of features.
type Registry struct {
	ids      []string
	features map[string]*Feature
}

// New builds a Registry from features in the given order. A later feature
// with a duplicate ID replaces the earlier one but keeps its position.
func New(features ...*Feature) *Registry {
	r := &Registry{features: make(map[string]*Feature, len(features))}
	for _, f := range features {
		r.add(f)
	}
	return r
}

func (r *Registry) add(f *Feature) {
	if _, exists := r.features[f.ID]; !exists {
		r.ids = append(r.ids, f.ID)
	}
	r.features[f.ID] = f
}

// IDs returns feature IDs in registry iteration order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

// Feature returns the feature with the given ID.
func (r *Registry) Feature(id string) (*Feature, bool) {
	f, ok := r.features[id]
	return f, ok
}

// Len returns the number of features.
func (r *Registry) Len() int {
	return len(r.ids)
}

//go:embed data/features.json
var defaultData []byte

var (
	defaultRegistry *Registry
	defaultOnce     sync.Once
)

// Default returns the registry embedded in the binary: a sample of
// commonly used features in web-features data.json format, not the full
// dataset. Use Load for complete coverage.
func Default() *Registry {
	defaultOnce.Do(func() {
		r, err := Parse(defaultData)
		if err != nil {
			panic(fmt.Sprintf("registry: embedded data: %v", err))
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

// Load reads a registry document from disk.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry: read %s: %w", path, err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("registry: parse %s: %w", path, err)
	}
	return r, nil
}

// Parse decodes a registry document. Both a bare {id: feature} object and
// the web-features layout {"features": {id: feature}} are accepted. Entries
// that are not objects are skipped.
func Parse(data []byte) (*Registry, error) {
	top, err := decodeObject(data)
	if err != nil {
		return nil, err
	}

	entries := top
	for _, m := range top {
		if m.Key == "features" && isObject(m.Value) {
			entries, err = decodeObject(m.Value)
			if err != nil {
				return nil, fmt.Errorf("registry: features: %w", err)
			}
			break
		}
	}

	r := &Registry{features: make(map[string]*Feature, len(entries))}
	for _, m := range entries {
		f, ok := parseFeature(m.Key, m.Value)
		if !ok {
			continue
		}
		r.add(f)
	}
	return r, nil
}

func parseFeature(id string, raw json.RawMessage) (*Feature, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, false
	}

	f := &Feature{ID: id, Keywords: extractKeywords(fields)}

	f.Title = id
	if t := stringField(fields["title"]); t != "" {
		f.Title = t
	} else if n := stringField(fields["name"]); n != "" {
		f.Title = n
	}

	f.Support, f.HasSupport = parseSupport(fields["status"])
	return f, true
}

// extractKeywords gathers scalar or array string values from keywordFields,
// lowercased and deduplicated in first-seen order.
func extractKeywords(fields map[string]json.RawMessage) []string {
	seen := make(map[string]bool)
	var out []string
	for _, name := range keywordFields {
		for _, v := range stringValues(fields[name]) {
			k := strings.ToLower(v)
			if k == "" || seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

func stringField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// stringValues reads a field that is either a string or an array. Non-string
// array members are ignored.
func stringValues(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	if s := stringField(raw); s != "" {
		return []string{s}
	}
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseSupport(status json.RawMessage) ([]EnvSupport, bool) {
	if !isObject(status) {
		return nil, false
	}
	members, err := decodeObject(status)
	if err != nil {
		return nil, false
	}
	for _, m := range members {
		if m.Key != "support" {
			continue
		}
		if !isObject(m.Value) {
			return nil, false
		}
		rows, err := decodeObject(m.Value)
		if err != nil {
			return nil, false
		}
		table := make([]EnvSupport, 0, len(rows))
		for _, row := range rows {
			version, ok := truthyVersion(row.Value)
			table = append(table, EnvSupport{Env: row.Key, Version: version, Supported: ok})
		}
		return table, true
	}
	return nil, false
}

// truthyVersion reports whether a support-table value counts as a recorded
// version: a non-empty string, true, or a non-zero number.
func truthyVersion(raw json.RawMessage) (string, bool) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, t != ""
	case bool:
		if t {
			return "true", true
		}
	case float64:
		if t != 0 {
			return strconv.FormatFloat(t, 'f', -1, 64), true
		}
	}
	return "", false
}
