package scano

import (
	"bufio"
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/jward/scano/internal/detect"
)

// skipDirs are never descended into by the filesystem walk.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
}

// Target splits a scan argument into a root directory and, when the
// argument names a single supported file, that file relative to the root.
func Target(path string) (root, file string, err error) {
	if path == "" {
		path = "."
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", "", fmt.Errorf("scano: unrecognized command or path %q", path)
	}
	if info.IsDir() {
		return path, "", nil
	}
	if !detect.Supported(path) {
		return "", "", fmt.Errorf("scano: unsupported file type %q", path)
	}
	return filepath.Dir(path), filepath.Base(path), nil
}

// DiscoverFiles returns the supported files under root, relative to root
// and sorted. Inside a git work tree it uses git ls-files so .gitignore is
// honored; otherwise it walks the filesystem, skipping hidden directories,
// node_modules, vendor and dist. Ignore patterns are applied to both.
func (e *Engine) DiscoverFiles(root string) ([]string, error) {
	paths, err := gitListFiles(root)
	if err != nil {
		paths, err = walkListFiles(root)
		if err != nil {
			return nil, err
		}
	}
	return e.filter(paths), nil
}

// ReadManifest reads a file list, one path per line relative to root.
// Blank lines and lines starting with # are skipped. Entries pass through
// the same extension and ignore filters as discovery, keeping manifest
// order.
func (e *Engine) ReadManifest(root, manifest string) ([]string, error) {
	data, err := os.ReadFile(manifest)
	if err != nil {
		return nil, fmt.Errorf("scano: read manifest: %w", err)
	}

	var paths []string
	seen := make(map[string]bool)
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rel := filepath.ToSlash(filepath.Clean(strings.TrimPrefix(line, "./")))
		if filepath.IsAbs(line) {
			if r, err := filepath.Rel(root, line); err == nil && !strings.HasPrefix(r, "..") {
				rel = filepath.ToSlash(r)
			}
		}
		if seen[rel] || !detect.Supported(rel) || e.ignored(rel) {
			continue
		}
		seen[rel] = true
		paths = append(paths, rel)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scano: read manifest: %w", err)
	}
	return paths, nil
}

// filter keeps supported, non-ignored paths and sorts them.
func (e *Engine) filter(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if detect.Supported(p) && !e.ignored(p) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// ignored reports whether a root-relative path matches any ignore pattern.
func (e *Engine) ignored(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, pattern := range e.ignore {
		pattern = strings.TrimPrefix(pattern, "./")
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// gitListFiles lists tracked and untracked, non-ignored files under root.
func gitListFiles(root string) ([]string, error) {
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// Deleted but still tracked files are listed by --cached.
		if _, err := os.Stat(filepath.Join(root, line)); err != nil {
			continue
		}
		paths = append(paths, line)
	}
	return paths, nil
}

// walkListFiles lists files under root when git is unavailable.
func walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}
