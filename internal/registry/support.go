package registry

import "fmt"

// UntrackedEnvironment is the synthetic environment reported for features
// without usable support data.
const UntrackedEnvironment = "Unknown (feature not tracked in baseline)"

// Verdict is the support determination for one feature.
type Verdict struct {
	Supported   bool
	Title       string
	Unsupported []string
	Versions    map[string]string

	// Versions in support-table order, for rendering.
	Ordered []EnvSupport

	// Warning is set on the degraded path (unknown feature or malformed
	// support table). It is informational; the verdict is still usable.
	Warning string
}

// Resolve computes the support verdict for a feature ID. It is recomputed
// on every call.
func (r *Registry) Resolve(id string) Verdict {
	f, ok := r.features[id]
	if !ok {
		return degraded(id, fmt.Sprintf("Feature data not found for: %s", id))
	}
	if !f.HasSupport {
		return degraded(f.Title, fmt.Sprintf("Support info missing or invalid for: %s", id))
	}

	v := Verdict{
		Title:       f.Title,
		Unsupported: []string{},
		Versions:    make(map[string]string),
	}
	for _, row := range f.Support {
		if row.Supported {
			v.Versions[row.Env] = row.Version
			v.Ordered = append(v.Ordered, row)
		} else {
			v.Unsupported = append(v.Unsupported, row.Env)
		}
	}
	v.Supported = len(v.Unsupported) == 0
	return v
}

func degraded(title, warning string) Verdict {
	return Verdict{
		Supported:   false,
		Title:       title,
		Unsupported: []string{UntrackedEnvironment},
		Versions:    map[string]string{},
		Warning:     warning,
	}
}
