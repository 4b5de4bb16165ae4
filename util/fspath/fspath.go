// Package fspath holds small filesystem-path predicates shared across the
// planner's directory-scoped operations (pruning, secondary-output scans).
package fspath

import (
	"os"
	"path/filepath"
	"strings"
)

// IsParent reports whether c is a direct or indirect child of parent.
func IsParent(parent, c string) bool {
	parent = filepath.Clean(parent)
	c = filepath.Clean(c)
	return strings.HasPrefix(c, parent+string(os.PathSeparator))
}
