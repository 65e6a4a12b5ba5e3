// Package pathutil resolves user-supplied paths before any store opens
// them, so the data, cache, and config directories behave the same no
// matter how they were written in configuration.
package pathutil

import (
	"os"
	"path/filepath"
)

// ResolveAbsolutePath expands a leading ~, makes the path absolute, and
// resolves symlinks in the portion of the path that already exists. Any
// non-existent trailing components are appended unresolved, which covers
// directories that are created on first use.
func ResolveAbsolutePath(path string) (string, error) {
	if path == "" {
		return os.Getwd()
	}

	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = home + path[1:]
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		return resolved, nil
	}

	// Walk up to the deepest existing ancestor, resolve it, and re-append
	// the components that do not exist yet.
	current := absPath
	var remainder []string
	for {
		if _, err := os.Stat(current); err == nil {
			resolved, err := filepath.EvalSymlinks(current)
			if err != nil {
				resolved = current
			}
			for i := len(remainder) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, remainder[i])
			}
			return resolved, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			return absPath, nil
		}
		remainder = append(remainder, filepath.Base(current))
		current = parent
	}
}
