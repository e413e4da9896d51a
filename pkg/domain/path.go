package domain

import (
	"fmt"
	"path"
	"strings"
)

// CleanPath validates a scene path and returns its canonical form.
// Paths are absolute and slash-delimited; empty segments, "." and ".."
// are rejected rather than resolved.
func CleanPath(p string) (string, error) {
	if p == RootPath {
		return p, nil
	}
	if !strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("%w: %q is not absolute", ErrInvalidPath, p)
	}
	trimmed := strings.TrimSuffix(p, "/")
	for _, seg := range strings.Split(trimmed[1:], "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("%w: %q has an empty or relative segment", ErrInvalidPath, p)
		}
	}
	return trimmed, nil
}

// ParentPath returns the parent of a clean path. The root is its own parent.
func ParentPath(p string) string {
	return path.Dir(p)
}

// JoinPath appends name to a parent path.
func JoinPath(parent, name string) string {
	return path.Join(parent, name)
}

// IsDescendant reports whether p lies strictly below ancestor.
func IsDescendant(p, ancestor string) bool {
	if ancestor == RootPath {
		return p != RootPath
	}
	return strings.HasPrefix(p, ancestor+"/")
}
