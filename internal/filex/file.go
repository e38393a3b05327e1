// Package filex holds small filesystem helpers for the on-disk database.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureParentDir creates the directory that will hold path, if missing,
// and returns it as an absolute path.
func EnsureParentDir(path string) (string, error) {
	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", path, err)
	}

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// DBFilePath returns the file behind a SQLite DSN, which may be a plain
// path or a file: URI, both with optional query parameters. In-memory
// databases report false.
func DBFilePath(dsn string) (string, bool) {
	path, query, _ := strings.Cut(dsn, "?")
	if rest, ok := strings.CutPrefix(path, "file:"); ok {
		path = rest
		if strings.Contains(query, "mode=memory") {
			return "", false
		}
	}
	if path == "" || path == ":memory:" {
		return "", false
	}
	return path, true
}
