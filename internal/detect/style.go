package detect

import (
	"regexp"
	"strings"

	"github.com/jward/scano/internal/keyword"
)

// stylePattern is a compiled keyword for line matching.
type stylePattern struct {
	keyword   string
	featureID string
	substring bool
	re        *regexp.Regexp
}

// StyleDetector scans style sheets and markup line by line. There is no
// parse step: every keyword in the index is tried against every line.
type StyleDetector struct {
	patterns []stylePattern
}

// NewStyleDetector compiles one pattern per indexed keyword. Keywords
// starting with ':' or '@' match as plain substrings; all others must sit
// on word boundaries.
func NewStyleDetector(idx *keyword.Index) *StyleDetector {
	d := &StyleDetector{}
	idx.Each(func(kw, id string) {
		p := stylePattern{keyword: kw, featureID: id}
		if strings.HasPrefix(kw, ":") || strings.HasPrefix(kw, "@") {
			p.substring = true
		} else {
			p.re = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b`)
		}
		d.patterns = append(d.patterns, p)
	})
	return d
}

// Detect scans one style or markup file.
func (d *StyleDetector) Detect(path string, content []byte) FileResult {
	lang, _ := LanguageForFile(path)
	res := FileResult{Path: path, Language: lang}
	if len(content) == 0 {
		return res
	}

	set := NewSet()
	lines := strings.Split(strings.ToLower(string(content)), "\n")
	for i, line := range lines {
		for _, p := range d.patterns {
			// Both sides are lowercase, so containment is a safe prefilter
			// for the boundary regexp.
			if !strings.Contains(line, p.keyword) {
				continue
			}
			if !p.substring && !p.re.MatchString(line) {
				continue
			}
			set.Add(Detection{FeatureID: p.featureID, Keyword: p.keyword, File: path, Line: i + 1})
		}
	}
	res.Detections = set.Items()
	return res
}
