// Package fileinfo answers metadata queries about paths on the local
// filesystem. It is the one place the rest of burrow goes through to
// stat things, so codecs and the session agree on what "exists" means.
package fileinfo

import (
	"os"
	"time"

	"github.com/pkg/errors"
)

// Info describes a single path.
type Info struct {
	Path    string
	Size    int64
	Dir     bool
	Mode    os.FileMode
	ModTime time.Time
}

// Lookup stats path without following symlinks.
func Lookup(path string) (*Info, error) {
	stats, err := os.Lstat(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return &Info{
		Path:    path,
		Size:    stats.Size(),
		Dir:     stats.IsDir(),
		Mode:    stats.Mode(),
		ModTime: stats.ModTime(),
	}, nil
}

// Exists tells whether path refers to anything at all.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
