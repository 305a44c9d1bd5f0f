// Package pathutil confines file writes requested over MCP to a set of
// allowed directories.
package pathutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExportsDir is the default export directory under the spikenet home.
const ExportsDir = "exports"

// RedactPath shortens a path to .../<parent>/<base> for error messages.
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	clean := filepath.Clean(path)
	parent := filepath.Base(filepath.Dir(clean))
	if parent == "." || parent == string(filepath.Separator) {
		return filepath.Base(clean)
	}
	return ".../" + parent + "/" + filepath.Base(clean)
}

// ValidatePath reports whether path, after cleaning and resolving symlinks
// on its existing ancestors, lies inside one of allowedDirs.
func ValidatePath(path string, allowedDirs []string) error {
	switch {
	case path == "":
		return errors.New("path validation failed: path is empty")
	case len(allowedDirs) == 0:
		return errors.New("path validation failed: no allowed directories configured")
	case strings.ContainsRune(path, 0):
		return errors.New("path validation failed: path contains null byte")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("path validation failed: cannot resolve absolute path: %w", err)
	}
	parent, err := resolve(filepath.Dir(abs))
	if err != nil {
		return fmt.Errorf("path validation failed: %w", err)
	}
	target := filepath.Join(parent, filepath.Base(abs))

	for _, dir := range allowedDirs {
		dirAbs, err := filepath.Abs(dir)
		if err != nil {
			continue
		}
		root, err := resolve(dirAbs)
		if err != nil {
			continue
		}
		if target == root || strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return nil
		}
	}
	return fmt.Errorf("path validation failed: %q is outside allowed directories", RedactPath(abs))
}

// resolve evaluates symlinks on the deepest existing ancestor of dir and
// re-appends the missing tail.
func resolve(dir string) (string, error) {
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		return resolved, nil
	}
	up := filepath.Dir(dir)
	if up == dir {
		return "", fmt.Errorf("cannot resolve %s", RedactPath(dir))
	}
	parent, err := resolve(up)
	if err != nil {
		return "", err
	}
	return filepath.Join(parent, filepath.Base(dir)), nil
}

// AllowedExportDirs returns ~/.spikenet/exports plus any extra directories
// (typically the configured export dir). Empty extras are skipped.
func AllowedExportDirs(extra ...string) ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	dirs := []string{filepath.Join(home, ".spikenet", ExportsDir)}
	for _, d := range extra {
		if d != "" {
			dirs = append(dirs, d)
		}
	}
	return dirs, nil
}
