package codec

import (
	"github.com/itchio/savior"
	"github.com/klauspost/compress/zip"
	"github.com/pkg/errors"
)

// zip entries carry their encryption bit in the general purpose flags
const zipFlagEncrypted = 0x1

type zipCodec struct{}

var _ Codec = (*zipCodec)(nil)

func (zc *zipCodec) Name() string { return "zip" }

func (zc *zipCodec) Extensions() []string { return []string{".zip"} }

func (zc *zipCodec) TryOpen(q *OpenQuery) (Handle, error) {
	zr, err := zip.NewReader(q.File(), q.Size())
	if err != nil {
		return nil, errors.Wrap(err, "reading zip directory")
	}

	entries := make([]Entry, len(zr.File))
	for i, f := range zr.File {
		if f.Flags&zipFlagEncrypted != 0 {
			// encrypted zips are not decryptable by this codec, treat
			// like the engine's missing-password failure
			return nil, errors.Wrapf(ErrWrongPassword, "entry '%s' is encrypted", f.Name)
		}

		entries[i] = Entry{
			Path: sanitizePath(f.Name),
			Size: int64(f.UncompressedSize64),
			CRC:  f.CRC32,
			Dir:  f.FileInfo().IsDir(),
		}
	}

	return &zipHandle{q: q, zr: zr, entries: entries}, nil
}

type zipHandle struct {
	q       *OpenQuery
	zr      *zip.Reader
	entries []Entry
}

var _ Handle = (*zipHandle)(nil)

func (zh *zipHandle) Entries() []Entry { return zh.entries }

// Close is a no-op: the archive stream is owned by the session.
func (zh *zipHandle) Close() error { return nil }

func (zh *zipHandle) ExtractTo(dir string, indices []int, cb *ExtractCallbacks) error {
	sink := &savior.FolderSink{
		Directory: dir,
		Consumer:  zh.q.Consumer(),
	}
	defer sink.Close()

	var done int64
	for _, i := range indices {
		if i < 0 || i >= len(zh.entries) {
			return errors.Errorf("entry index %d out of range", i)
		}

		entry := zh.entries[i]
		cb.File(entry.Path)
		if !cb.Tick(done) {
			return errors.WithStack(ErrAborted)
		}

		if entry.Dir {
			if err := sink.Mkdir(saviorEntry(entry)); err != nil {
				return errors.Wrapf(err, "creating directory '%s'", entry.Path)
			}
			continue
		}

		err := zh.extractFile(sink, entry, zh.zr.File[i], cb, &done)
		if err != nil {
			return err
		}
	}

	return nil
}

func (zh *zipHandle) extractFile(sink savior.Sink, entry Entry, f *zip.File, cb *ExtractCallbacks, done *int64) error {
	rc, err := f.Open()
	if err != nil {
		return errors.Wrapf(ErrCorrupt, "opening entry '%s': %s", entry.Path, err.Error())
	}
	defer rc.Close()

	w, err := sink.GetWriter(saviorEntry(entry))
	if err != nil {
		return errors.Wrapf(err, "creating '%s'", entry.Path)
	}
	defer w.Close()

	// zip readers verify the entry's CRC32 on EOF, so a corrupt entry
	// surfaces as a copy error here
	err = copyWithTicks(w, rc, cb, done)
	if err != nil {
		if errors.Cause(err) == ErrAborted {
			return err
		}
		return errors.Wrapf(ErrCorrupt, "decompressing '%s': %s", entry.Path, err.Error())
	}

	return nil
}
