// Package keyword builds the lowercase keyword → feature ID index used by
// the detectors.
package keyword

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"github.com/jward/scano/internal/registry"
)

// Phrases looked up by the script detector's structural matchers. Each must
// map to a feature ID once the index is built.
const (
	OptionalChaining   = "optional chaining"
	NullishCoalescing  = "nullish coalescing"
	TopLevelAwait      = "top-level await"
	DynamicImport      = "dynamic import"
	NavigatorBluetooth = "navigator.bluetooth"
)

// SyntaxPhrases are the override keywords the script detector depends on.
var SyntaxPhrases = []string{OptionalChaining, NullishCoalescing, TopLevelAwait, DynamicImport}

// ErrMissingSyntaxFeature is returned by Build when a syntax phrase has no
// feature ID.
var ErrMissingSyntaxFeature = errors.New("keyword: syntax phrase has no feature id")

// Override maps a keyword to a feature ID unconditionally.
type Override struct {
	Keyword   string
	FeatureID string
}

// Index maps lowercase keywords to feature IDs. Iteration order is
// insertion order; replacing a keyword keeps its original slot.
type Index struct {
	ids   map[string]string
	order []string
}

// Build derives the index from a registry, then applies DefaultOverrides
// followed by extra overrides. Registry keywords are first-writer-wins in
// registry order; overrides always replace.
func Build(reg *registry.Registry, extra ...Override) (*Index, error) {
	idx := &Index{ids: make(map[string]string)}

	for _, id := range reg.IDs() {
		f, _ := reg.Feature(id)
		for _, kw := range f.Keywords {
			if kw == "" {
				continue
			}
			if _, exists := idx.ids[kw]; !exists {
				idx.set(kw, id)
			}
		}
	}

	for _, o := range DefaultOverrides {
		idx.set(strings.ToLower(o.Keyword), o.FeatureID)
	}
	for _, o := range extra {
		kw := strings.ToLower(o.Keyword)
		if kw == "" {
			continue
		}
		idx.set(kw, o.FeatureID)
	}

	for _, phrase := range SyntaxPhrases {
		if idx.ids[phrase] == "" {
			return nil, fmt.Errorf("%w: %q", ErrMissingSyntaxFeature, phrase)
		}
	}
	return idx, nil
}

func (idx *Index) set(kw, id string) {
	if _, exists := idx.ids[kw]; !exists {
		idx.order = append(idx.order, kw)
	}
	idx.ids[kw] = id
}

// Lookup returns the feature ID for a lowercase keyword.
func (idx *Index) Lookup(kw string) (string, bool) {
	id, ok := idx.ids[kw]
	return id, ok
}

// FeatureFor returns the feature ID for a keyword, or "" when absent.
func (idx *Index) FeatureFor(kw string) string {
	return idx.ids[kw]
}

// Len returns the number of indexed keywords.
func (idx *Index) Len() int {
	return len(idx.order)
}

// Keywords returns the indexed keywords in iteration order.
func (idx *Index) Keywords() []string {
	out := make([]string, len(idx.order))
	copy(out, idx.order)
	return out
}

// Each calls fn for every entry in iteration order.
func (idx *Index) Each(fn func(keyword, featureID string)) {
	for _, kw := range idx.order {
		fn(kw, idx.ids[kw])
	}
}

// Map returns a copy of the index as a plain map.
func (idx *Index) Map() map[string]string {
	out := make(map[string]string, len(idx.ids))
	for k, v := range idx.ids {
		out[k] = v
	}
	return out
}

// Hash returns a digest of the index contents in iteration order. Cached
// detections are only valid for the index that produced them.
func (idx *Index) Hash() string {
	h := sha256.New()
	for _, kw := range idx.order {
		fmt.Fprintf(h, "%s\x00%s\n", kw, idx.ids[kw])
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
