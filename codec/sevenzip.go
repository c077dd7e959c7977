package codec

import (
	"github.com/bodgit/sevenzip"
	"github.com/itchio/savior"
	"github.com/pkg/errors"
)

type sevenZipCodec struct{}

var _ Codec = (*sevenZipCodec)(nil)

func (sc *sevenZipCodec) Name() string { return "7z" }

func (sc *sevenZipCodec) Extensions() []string { return []string{".7z"} }

func (sc *sevenZipCodec) TryOpen(q *OpenQuery) (Handle, error) {
	sr, err := sevenzip.NewReader(q.File(), q.Size())
	if err != nil {
		if !looksLikePasswordError(err) {
			return nil, errors.Wrap(err, "reading 7z header")
		}

		// encrypted headers need the password at open time
		if !q.HasPassword() {
			return nil, errors.Wrap(ErrWrongPassword, "archive is encrypted and no password provider is configured")
		}

		sr, err = sevenzip.NewReaderWithPassword(q.File(), q.Size(), q.Password())
		if err != nil {
			if looksLikePasswordError(err) {
				return nil, errors.Wrap(ErrWrongPassword, err.Error())
			}
			return nil, errors.Wrap(err, "reading encrypted 7z header")
		}
	}

	entries := make([]Entry, len(sr.File))
	for i, f := range sr.File {
		info := f.FileInfo()
		entries[i] = Entry{
			Path: sanitizePath(f.Name),
			Size: info.Size(),
			CRC:  f.CRC32,
			Dir:  info.IsDir(),
		}
	}

	return &sevenZipHandle{q: q, sr: sr, entries: entries}, nil
}

type sevenZipHandle struct {
	q       *OpenQuery
	sr      *sevenzip.Reader
	entries []Entry
}

var _ Handle = (*sevenZipHandle)(nil)

func (sh *sevenZipHandle) Entries() []Entry { return sh.entries }

func (sh *sevenZipHandle) Close() error { return nil }

func (sh *sevenZipHandle) ExtractTo(dir string, indices []int, cb *ExtractCallbacks) error {
	selected := make(map[int]bool, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(sh.entries) {
			return errors.Errorf("entry index %d out of range", i)
		}
		selected[i] = true
	}

	sink := &savior.FolderSink{
		Directory: dir,
		Consumer:  sh.q.Consumer(),
	}
	defer sink.Close()

	// solid 7z streams decompress best in file order, so walk the whole
	// list and skip the entries we don't want
	var done int64
	for i, f := range sh.sr.File {
		if !selected[i] {
			continue
		}

		entry := sh.entries[i]
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

		rc, err := f.Open()
		if err != nil {
			if looksLikePasswordError(err) {
				return errors.Wrap(ErrWrongPassword, err.Error())
			}
			return errors.Wrapf(ErrCorrupt, "opening entry '%s': %s", entry.Path, err.Error())
		}

		w, err := sink.GetWriter(saviorEntry(entry))
		if err != nil {
			rc.Close()
			return errors.Wrapf(err, "creating '%s'", entry.Path)
		}

		err = copyWithTicks(w, rc, cb, &done)
		rc.Close()
		w.Close()
		if err != nil {
			if errors.Cause(err) == ErrAborted {
				return err
			}
			return errors.Wrapf(ErrCorrupt, "decompressing '%s': %s", entry.Path, err.Error())
		}
	}

	return nil
}
