package archive

import (
	"path/filepath"
)

// CleanFileName normalizes an archive-relative path for catalog
// lookups: shortest equivalent path (no `..`, `.` or doubled
// separators), always using `/` as the separator regardless of
// platform.
func CleanFileName(fileName string) string {
	return filepath.ToSlash(filepath.Clean(fileName))
}
