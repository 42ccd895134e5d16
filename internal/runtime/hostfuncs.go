package runtime

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/risor-io/risor/object"

	"github.com/jward/scano/internal/registry"
)

// Logger receives script log output. report.Transcript satisfies it.
type Logger interface {
	Printf(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type stderrLogger struct{}

func (stderrLogger) Printf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

func (stderrLogger) Warnf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "[scano] WARN: "+format+"\n", args...)
}

func (stderrLogger) Errorf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "[scano] ERROR: "+format+"\n", args...)
}

// makeFeatureFn creates the "feature" host function.
//
// feature(id) → {id, title, keywords, supported} or nil
func makeFeatureFn(reg *registry.Registry) *object.Builtin {
	return object.NewBuiltin("feature", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("feature", 1, len(args))
		}
		id, err := toString(args[0])
		if err != nil {
			return object.Errorf("feature: id: %v", err)
		}

		f, ok := reg.Feature(id)
		if !ok {
			return object.Nil
		}
		kws := make([]object.Object, len(f.Keywords))
		for i, kw := range f.Keywords {
			kws[i] = object.NewString(kw)
		}
		return object.NewMap(map[string]object.Object{
			"id":        object.NewString(f.ID),
			"title":     object.NewString(f.Title),
			"keywords":  object.NewList(kws),
			"supported": object.NewBool(reg.Resolve(id).Supported),
		})
	})
}

// makeOverrideFn creates the "override" host function.
//
// override(keyword, feature_id)
func makeOverrideFn(col *collector) *object.Builtin {
	return object.NewBuiltin("override", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("override", 2, len(args))
		}
		kw, err := toString(args[0])
		if err != nil {
			return object.Errorf("override: keyword: %v", err)
		}
		id, err := toString(args[1])
		if err != nil {
			return object.Errorf("override: feature_id: %v", err)
		}
		if strings.TrimSpace(kw) == "" {
			return object.Errorf("override: keyword must not be empty")
		}
		if id == "" {
			return object.Errorf("override: feature_id must not be empty for %q", kw)
		}
		col.add(kw, id)
		return object.Nil
	})
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}

// logObject provides log.Info/Warn/Error methods for Risor scripts.
type logObject struct {
	prefix string
	out    Logger
}

func (l *logObject) Info(msg string) {
	l.out.Printf("[%s] INFO: %s", l.prefix, msg)
}

func (l *logObject) Warn(msg string) {
	l.out.Warnf("%s", msg)
}

func (l *logObject) Error(msg string) {
	l.out.Errorf("%s", msg)
}
