package diagfmt

import (
	"os"
	"path/filepath"
	"strings"
)

// autoPathLimit is the longest path PathModeAuto prints unchanged.
const autoPathLimit = 40

func formatPath(path string, mode PathMode, base string) string {
	switch {
	case path == "":
		return "<unknown>"
	case mode == PathModeBasename, mode == PathModeAuto && len(path) > autoPathLimit:
		return filepath.Base(path)
	case mode == PathModeAuto:
		return path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	abs = filepath.ToSlash(abs)
	if mode == PathModeRelative {
		if rel, ok := relativeTo(base, abs); ok {
			return rel
		}
	}
	return abs
}

// relativeTo returns abs relative to base (the working directory when base
// is empty). Paths outside base are not shortened.
func relativeTo(base, abs string) (string, bool) {
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", false
		}
		base = wd
	}
	rel, err := filepath.Rel(base, filepath.FromSlash(abs))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
