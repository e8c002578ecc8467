// Package validation guards local paths built from names chosen by the
// other side of the connection.
package validation

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateFilename checks a bare file name received from a server listing
// or request URL before it is joined onto a local directory. It rejects
// empty names, "." and "..", null bytes and either path separator.
func ValidateFilename(filename string) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}
	if strings.ContainsRune(filename, 0) {
		return fmt.Errorf("filename contains null byte: %q", filename)
	}
	if strings.ContainsAny(filename, `/\`) {
		return fmt.Errorf("filename cannot contain path separators: %s", filename)
	}
	// Names like "data..v2.csv" are fine once separators are gone.
	if filename == ".." || filename == "." {
		return fmt.Errorf("filename cannot be %q", filename)
	}
	return nil
}

// ValidatePathInDirectory checks that path, resolved against baseDir when
// relative, stays inside baseDir.
//
//	ValidatePathInDirectory("../../etc/passwd", "/srv/files") // error
//	ValidatePathInDirectory("sub/file.txt", "/srv/files")     // ok
func ValidatePathInDirectory(path string, baseDir string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if baseDir == "" {
		return fmt.Errorf("base directory cannot be empty")
	}

	cleanBase, err := filepath.Abs(filepath.Clean(baseDir))
	if err != nil {
		return fmt.Errorf("failed to resolve base directory: %w", err)
	}

	resolved := filepath.Clean(path)
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(cleanBase, resolved)
	}

	rel, err := filepath.Rel(cleanBase, resolved)
	if err != nil {
		return fmt.Errorf("failed to compute relative path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path escapes base directory: %s (base: %s)", path, baseDir)
	}
	return nil
}
