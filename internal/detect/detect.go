package detect

import (
	"context"

	"github.com/jward/scano/internal/keyword"
)

// Detectors routes files to the script or style/markup detector by
// extension.
type Detectors struct {
	Script *ScriptDetector
	Style  *StyleDetector
}

// New builds both detectors over the same index.
func New(idx *keyword.Index) *Detectors {
	return &Detectors{
		Script: NewScriptDetector(idx),
		Style:  NewStyleDetector(idx),
	}
}

// Supported reports whether path has an extension either detector handles.
func Supported(path string) bool {
	_, ok := LanguageForFile(path)
	return ok
}

// Detect scans one file. Files with unsupported extensions yield an empty
// result.
func (d *Detectors) Detect(ctx context.Context, path string, content []byte) FileResult {
	lang, ok := LanguageForFile(path)
	if !ok {
		return FileResult{Path: path}
	}
	if IsScript(lang) {
		return d.Script.Detect(ctx, path, content)
	}
	return d.Style.Detect(path, content)
}
