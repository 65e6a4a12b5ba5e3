// Package validation guards against hostile names and paths coming from
// remote listings. Share servers are untrusted input: an HTML index or an
// SMB directory entry can carry names crafted to escape the local cache or
// mount root.
package validation

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateFilename rejects entry names that could traverse out of their
// directory when joined onto a local path: empty names, names with path
// separators, the ".." entry, and names with null bytes. Names like
// "photo..2024.jpg" are legitimate and pass.
func ValidateFilename(filename string) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}
	if strings.ContainsRune(filename, 0) {
		return fmt.Errorf("filename contains null byte: %s", filename)
	}
	if strings.ContainsRune(filename, '/') || strings.ContainsRune(filename, '\\') {
		return fmt.Errorf("filename cannot contain path separators: %s", filename)
	}
	if filename == ".." {
		return fmt.Errorf("filename cannot be '..': %s", filename)
	}
	return nil
}

// ValidatePathInDirectory verifies that path, resolved against baseDir,
// stays inside baseDir.
func ValidatePathInDirectory(path string, baseDir string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if baseDir == "" {
		return fmt.Errorf("base directory cannot be empty")
	}

	cleanPath := filepath.Clean(filepath.FromSlash(path))
	cleanBase := filepath.Clean(baseDir)

	var err error
	if !filepath.IsAbs(cleanBase) {
		cleanBase, err = filepath.Abs(cleanBase)
		if err != nil {
			return fmt.Errorf("failed to resolve base directory: %w", err)
		}
	}

	resolvedPath := cleanPath
	if !filepath.IsAbs(resolvedPath) {
		resolvedPath = filepath.Join(cleanBase, resolvedPath)
	}
	resolvedPath = filepath.Clean(resolvedPath)

	relPath, err := filepath.Rel(cleanBase, resolvedPath)
	if err != nil {
		return fmt.Errorf("failed to compute relative path: %w", err)
	}
	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path escapes base directory: %s (base: %s)", path, baseDir)
	}
	return nil
}
