package archive

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const dirMode = 0755

// relocator is the second phase of an extraction: it copies each
// staged entry from the staging directory to every destination the
// caller requested for it, creating parent directories as needed.
// Directory entries have no staged bytes and are materialized as empty
// directories directly. The first failure aborts the whole phase;
// earlier copies are left in place.
type relocator struct {
	stageDir  string
	outputDir string
}

func (r *relocator) place(e *Entry) error {
	if !e.selected() {
		return nil
	}

	if e.dir {
		for _, out := range e.outputs {
			target := filepath.Join(r.outputDir, filepath.FromSlash(out))
			if err := os.MkdirAll(target, dirMode); err != nil {
				return errors.Wrapf(err, "error creating output directory %s", target)
			}
		}
		return nil
	}

	staged := filepath.Join(r.stageDir, filepath.FromSlash(e.path))

	for _, out := range e.outputs {
		target := filepath.Join(r.outputDir, filepath.FromSlash(out))

		if err := os.MkdirAll(filepath.Dir(target), dirMode); err != nil {
			return errors.Wrapf(err, "error creating output directory %s", filepath.Dir(target))
		}

		if err := placeOne(staged, target); err != nil {
			return errors.Wrapf(err, "error writing to output file %s", target)
		}
	}

	return nil
}

// placeOne duplicates one staged path at target: symlinks are
// re-created, regular files are copied byte for byte.
func placeOne(staged string, target string) error {
	stats, err := os.Lstat(staged)
	if err != nil {
		return err
	}

	if stats.Mode()&os.ModeSymlink != 0 {
		linkname, err := os.Readlink(staged)
		if err != nil {
			return err
		}
		if err := os.RemoveAll(target); err != nil {
			return err
		}
		return os.Symlink(linkname, target)
	}

	return copyFile(staged, target)
}

func copyFile(src string, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}
