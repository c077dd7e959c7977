package codec

import (
	"archive/tar"
	"compress/bzip2"
	"io"
	"strings"

	"github.com/itchio/savior"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
)

// tarCodec handles .tar containers and their usual compressed
// wrappings. Tarballs have no central directory, so opening reads the
// whole stream once to build the catalog, and extraction reads it
// again from the start.
type tarCodec struct{}

var _ Codec = (*tarCodec)(nil)

func (tc *tarCodec) Name() string { return "tar" }

func (tc *tarCodec) Extensions() []string {
	return []string{
		".tar.gz", ".tgz",
		".tar.bz2", ".tbz2",
		".tar.zst",
		".tar.lz4",
		".tar",
	}
}

func (tc *tarCodec) TryOpen(q *OpenQuery) (Handle, error) {
	src, closeSrc, err := tc.decompressed(q)
	if err != nil {
		return nil, err
	}
	defer closeSrc()

	var entries []Entry
	tr := tar.NewReader(src)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "walking tar entries")
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			entries = append(entries, Entry{
				Path: sanitizePath(hdr.Name),
				Dir:  true,
			})
		case tar.TypeSymlink:
			entries = append(entries, Entry{
				Path:     sanitizePath(hdr.Name),
				Linkname: hdr.Linkname,
			})
		case tar.TypeReg:
			entries = append(entries, Entry{
				Path: sanitizePath(hdr.Name),
				Size: hdr.Size,
			})
		default:
			// hard links, fifos, char devices: nothing we can stage
			q.Consumer().Debugf("tar: skipping entry '%s' of type %d", hdr.Name, hdr.Typeflag)
		}
	}

	return &tarHandle{q: q, tc: tc, entries: entries}, nil
}

// decompressed returns a fresh reader over the tar stream, rewound to
// the start, with the compression layer picked from the display name.
func (tc *tarCodec) decompressed(q *OpenQuery) (io.Reader, func(), error) {
	raw := io.NewSectionReader(q.File(), 0, q.Size())
	noop := func() {}

	name := strings.ToLower(q.DisplayName())
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		zr, err := gzip.NewReader(raw)
		if err != nil {
			return nil, noop, errors.Wrap(err, "reading gzip header")
		}
		return zr, func() { zr.Close() }, nil

	case strings.HasSuffix(name, ".tar.bz2"), strings.HasSuffix(name, ".tbz2"):
		return bzip2.NewReader(raw), noop, nil

	case strings.HasSuffix(name, ".tar.zst"):
		zr, err := zstd.NewReader(raw)
		if err != nil {
			return nil, noop, errors.Wrap(err, "reading zstd header")
		}
		return zr.IOReadCloser(), zr.Close, nil

	case strings.HasSuffix(name, ".tar.lz4"):
		return lz4.NewReader(raw), noop, nil

	default:
		return raw, noop, nil
	}
}

type tarHandle struct {
	q       *OpenQuery
	tc      *tarCodec
	entries []Entry
}

var _ Handle = (*tarHandle)(nil)

func (th *tarHandle) Entries() []Entry { return th.entries }

func (th *tarHandle) Close() error { return nil }

func (th *tarHandle) ExtractTo(dir string, indices []int, cb *ExtractCallbacks) error {
	selected := make(map[string]int, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(th.entries) {
			return errors.Errorf("entry index %d out of range", i)
		}
		selected[th.entries[i].Path] = i
	}

	src, closeSrc, err := th.tc.decompressed(th.q)
	if err != nil {
		return err
	}
	defer closeSrc()

	sink := &savior.FolderSink{
		Directory: dir,
		Consumer:  th.q.Consumer(),
	}
	defer sink.Close()

	var done int64
	tr := tar.NewReader(src)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrapf(ErrCorrupt, "walking tar entries: %s", err.Error())
		}

		i, ok := selected[sanitizePath(hdr.Name)]
		if !ok {
			continue
		}
		entry := th.entries[i]

		cb.File(entry.Path)
		if !cb.Tick(done) {
			return errors.WithStack(ErrAborted)
		}

		switch {
		case entry.Dir:
			if err := sink.Mkdir(saviorEntry(entry)); err != nil {
				return errors.Wrapf(err, "creating directory '%s'", entry.Path)
			}

		case entry.Linkname != "":
			if err := sink.Symlink(saviorEntry(entry), entry.Linkname); err != nil {
				return errors.Wrapf(err, "creating symlink '%s'", entry.Path)
			}

		default:
			w, err := sink.GetWriter(saviorEntry(entry))
			if err != nil {
				return errors.Wrapf(err, "creating '%s'", entry.Path)
			}

			err = copyWithTicks(w, tr, cb, &done)
			w.Close()
			if err != nil {
				if errors.Cause(err) == ErrAborted {
					return err
				}
				return errors.Wrapf(ErrCorrupt, "decompressing '%s': %s", entry.Path, err.Error())
			}
		}
	}

	return nil
}
