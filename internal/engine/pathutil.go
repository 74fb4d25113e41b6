package engine

import (
	"fmt"
	"path/filepath"
	"strings"
)

// projectRelative turns a path typed on the command line into a
// slash-separated path relative to root. Relative input is taken from cwd.
// The root itself, paths outside it, and paths inside any reserved directory
// (skillctl's own state and skill sources) are rejected.
func projectRelative(userPath, cwd, root string, reserved ...string) (string, error) {
	abs := userPath
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(cwd, abs)
	}
	abs = filepath.Clean(abs)

	rel, err := filepath.Rel(filepath.Clean(root), abs)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %q against the project: %w", userPath, err)
	}
	switch {
	case rel == ".":
		return "", fmt.Errorf("%q is the project root", userPath)
	case rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)):
		return "", fmt.Errorf("%q (%s) is outside the project", userPath, abs)
	}

	for _, dir := range reserved {
		if r, err := filepath.Rel(filepath.Clean(dir), abs); err == nil && (r == "." || !strings.HasPrefix(r, "..")) {
			return "", fmt.Errorf("%q is inside %s, which skillctl manages", userPath, dir)
		}
	}

	return filepath.ToSlash(rel), nil
}
