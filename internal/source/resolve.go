package source

import (
	"path/filepath"

	"huffdbg/internal/huff"
	"huffdbg/internal/logging"
)

// ResolveIncludes turns the raw include directives of currentFile into
// absolute paths, in directive order, with currentFile's own path last.
// Each directive is resolved relative to the directory of currentFile;
// currentFile itself is resolved relative to workDir when not absolute.
//
// No cycle detection is done here.
func ResolveIncludes(workDir, currentFile string, imports []string) []string {
	current := absPath(workDir, currentFile)
	dir := filepath.Dir(current)

	paths := make([]string, 0, len(imports)+1)
	for _, raw := range imports {
		rel := huff.IncludePath(raw)
		if filepath.IsAbs(rel) {
			paths = append(paths, filepath.Clean(rel))
			continue
		}
		paths = append(paths, filepath.Join(dir, rel))
	}
	return append(paths, current)
}

// Closure expands currentFile's includes transitively. Every included file
// comes before the files that include it and each path appears once, so a
// cyclic include set terminates. For a file whose includes have no
// includes of their own the result equals ResolveIncludes.
func Closure(r *Reader, workDir, currentFile string) ([]string, error) {
	var (
		order   []string
		visited = make(map[string]bool)
		walk    func(path string) error
	)

	walk = func(path string) error {
		if visited[path] {
			return nil
		}
		visited[path] = true

		u, err := r.Read(path)
		if err != nil {
			return err
		}
		resolved := ResolveIncludes(workDir, path, huff.Includes(u.Content))
		for _, dep := range resolved[:len(resolved)-1] {
			if err := walk(dep); err != nil {
				return err
			}
		}
		order = append(order, path)
		return nil
	}

	if err := walk(absPath(workDir, currentFile)); err != nil {
		return nil, err
	}
	logging.Source("Resolved %d source files for %s", len(order), currentFile)
	return order, nil
}

func absPath(workDir, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	if workDir == "" {
		if abs, err := filepath.Abs(p); err == nil {
			return abs
		}
	}
	return filepath.Join(workDir, p)
}
