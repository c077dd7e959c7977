package codec

import (
	"io"

	"github.com/itchio/savior"
	"github.com/nwaples/rardecode/v2"
	"github.com/pkg/errors"
)

// rarCodec reads rar archives through nwaples/rardecode. Like tar,
// rar has no random access worth relying on: the catalog is built by
// walking the headers, and extraction walks the stream again.
type rarCodec struct{}

var _ Codec = (*rarCodec)(nil)

func (rc *rarCodec) Name() string { return "rar" }

func (rc *rarCodec) Extensions() []string { return []string{".rar"} }

func isRarPasswordError(err error) bool {
	return errors.Cause(err) == rardecode.ErrArchiveEncrypted ||
		errors.Cause(err) == rardecode.ErrArchivedFileEncrypted ||
		errors.Cause(err) == rardecode.ErrBadPassword
}

// options returns decoder options; the password is only requested from
// the provider once the archive has proven to be encrypted.
func (rc *rarCodec) options(q *OpenQuery, encrypted bool) []rardecode.Option {
	var opts []rardecode.Option
	if encrypted && q.HasPassword() {
		opts = append(opts, rardecode.Password(q.Password()))
	}
	return opts
}

func (rc *rarCodec) TryOpen(q *OpenQuery) (Handle, error) {
	entries, err := rc.enumerate(q, false)
	if err != nil {
		if !isRarPasswordError(err) {
			return nil, err
		}
		if !q.HasPassword() {
			return nil, errors.Wrap(ErrWrongPassword, "archive is encrypted and no password provider is configured")
		}

		entries, err = rc.enumerate(q, true)
		if err != nil {
			if isRarPasswordError(err) {
				return nil, errors.Wrap(ErrWrongPassword, err.Error())
			}
			return nil, err
		}
	}

	return &rarHandle{q: q, rc: rc, entries: entries}, nil
}

func (rc *rarCodec) enumerate(q *OpenQuery, encrypted bool) ([]Entry, error) {
	rr, err := rardecode.NewReader(
		io.NewSectionReader(q.File(), 0, q.Size()),
		rc.options(q, encrypted)...,
	)
	if err != nil {
		return nil, errors.Wrap(err, "reading rar header")
	}

	var entries []Entry
	for {
		hdr, err := rr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "walking rar entries")
		}

		entries = append(entries, Entry{
			Path: sanitizePath(hdr.Name),
			Size: hdr.UnPackedSize,
			Dir:  hdr.IsDir,
		})
	}

	return entries, nil
}

type rarHandle struct {
	q       *OpenQuery
	rc      *rarCodec
	entries []Entry
}

var _ Handle = (*rarHandle)(nil)

func (rh *rarHandle) Entries() []Entry { return rh.entries }

func (rh *rarHandle) Close() error { return nil }

func (rh *rarHandle) ExtractTo(dir string, indices []int, cb *ExtractCallbacks) error {
	selected := make(map[int]bool, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(rh.entries) {
			return errors.Errorf("entry index %d out of range", i)
		}
		selected[i] = true
	}

	// the password was cached during TryOpen if the archive needed one
	rr, err := rardecode.NewReader(
		io.NewSectionReader(rh.q.File(), 0, rh.q.Size()),
		rh.rc.options(rh.q, rh.q.HasPassword())...,
	)
	if err != nil {
		return errors.Wrapf(ErrCorrupt, "reading rar header: %s", err.Error())
	}

	sink := &savior.FolderSink{
		Directory: dir,
		Consumer:  rh.q.Consumer(),
	}
	defer sink.Close()

	var done int64
	for i := 0; ; i++ {
		_, err := rr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if isRarPasswordError(err) {
				return errors.Wrap(ErrWrongPassword, err.Error())
			}
			return errors.Wrapf(ErrCorrupt, "walking rar entries: %s", err.Error())
		}

		if !selected[i] {
			continue
		}
		entry := rh.entries[i]

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

		w, err := sink.GetWriter(saviorEntry(entry))
		if err != nil {
			return errors.Wrapf(err, "creating '%s'", entry.Path)
		}

		err = copyWithTicks(w, rr, cb, &done)
		w.Close()
		if err != nil {
			if errors.Cause(err) == ErrAborted {
				return err
			}
			if isRarPasswordError(err) {
				return errors.Wrap(ErrWrongPassword, err.Error())
			}
			return errors.Wrapf(ErrCorrupt, "decompressing '%s': %s", entry.Path, err.Error())
		}
	}

	return nil
}
