// Package codec is the boundary between burrow and the libraries that
// actually understand archive formats. A Codec knows how to recognize
// and open one family of formats; a Handle is one opened archive,
// able to enumerate its entries and decompress a selected subset of
// them into a directory.
package codec

import (
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/itchio/savior"
	"github.com/pkg/errors"
)

var (
	// ErrWrongPassword is returned when an archive is encrypted and the
	// supplied password is missing or does not decrypt it.
	ErrWrongPassword = errors.New("wrong or missing password")

	// ErrCorrupt is returned when an archive's data doesn't check out.
	ErrCorrupt = errors.New("archive data is corrupt")

	// ErrAborted is returned from ExtractTo when the progress callback
	// asked for the extraction to stop.
	ErrAborted = errors.New("extraction aborted by callback")
)

// Entry is one item reported by a Handle, in enumeration order.
type Entry struct {
	// Path is slash-separated, relative to the archive root
	Path string
	// Size is the uncompressed size, 0 when the format doesn't say
	Size int64
	// CRC is the entry's CRC32, 0 when the format doesn't carry one
	CRC uint32
	// Dir is true for directory entries
	Dir bool
	// Linkname is the target when the entry is a symbolic link
	Linkname string
}

// ExtractCallbacks relays extraction events to whoever is driving the
// Handle. Both fields may be nil.
type ExtractCallbacks struct {
	// OnProgress receives the cumulative number of decompressed bytes.
	// Returning false aborts the extraction with ErrAborted.
	OnProgress func(done int64) bool

	// OnFile is invoked once per entry, right before it's materialized.
	OnFile func(path string)
}

// Tick reports progress and says whether extraction should go on.
func (cb *ExtractCallbacks) Tick(done int64) bool {
	if cb == nil || cb.OnProgress == nil {
		return true
	}
	return cb.OnProgress(done)
}

// File announces the entry being materialized.
func (cb *ExtractCallbacks) File(path string) {
	if cb != nil && cb.OnFile != nil {
		cb.OnFile(path)
	}
}

// Handle is one opened archive.
type Handle interface {
	// Entries lists the archive's items in deterministic order.
	Entries() []Entry

	// ExtractTo decompresses the entries at the given indices under dir,
	// using their catalog-relative paths.
	ExtractTo(dir string, indices []int, cb *ExtractCallbacks) error

	Close() error
}

// Codec recognizes and opens one family of archive formats.
type Codec interface {
	Name() string

	// Extensions returns the lowercase filename extensions this codec
	// claims, longest first when they nest (".tar.gz" before ".gz")
	Extensions() []string

	TryOpen(q *OpenQuery) (Handle, error)
}

// Default returns the built-in codec set, in probe order.
func Default() []Codec {
	return []Codec{
		&zipCodec{},
		&sevenZipCodec{},
		&tarCodec{},
		&rarCodec{},
	}
}

// ByExtension returns the codec claiming name's extension, or nil.
func ByExtension(codecs []Codec, name string) Codec {
	lower := strings.ToLower(name)
	for _, c := range codecs {
		for _, ext := range c.Extensions() {
			if strings.HasSuffix(lower, ext) {
				return c
			}
		}
	}
	return nil
}

// TryOpen probes codecs against q: the codec claiming the file's
// extension goes first, then the others in registry order. The first
// one to open the archive wins.
func TryOpen(codecs []Codec, q *OpenQuery) (Handle, error) {
	ordered := codecs
	if first := ByExtension(codecs, q.DisplayName()); first != nil {
		ordered = make([]Codec, 0, len(codecs))
		ordered = append(ordered, first)
		for _, c := range codecs {
			if c != first {
				ordered = append(ordered, c)
			}
		}
	} else {
		q.Consumer().Warnf("codec: unfamiliar extension on '%s', trying everything", q.DisplayName())
	}

	var msgs []string
	for _, c := range ordered {
		handle, err := c.TryOpen(q)
		if err == nil {
			q.Consumer().Debugf("codec: opened '%s' as %s", q.DisplayName(), c.Name())
			return handle, nil
		}

		// a definite password failure is not worth retrying with
		// codecs that don't even claim the format
		if errors.Cause(err) == ErrWrongPassword {
			return nil, err
		}

		msgs = append(msgs, fmt.Sprintf("%s: %s", c.Name(), err.Error()))
	}

	return nil, errors.Errorf("no codec could open '%s': %s", q.DisplayName(), strings.Join(msgs, " ; "))
}

// sanitizePath normalizes an archive-relative path the way 7-zip's CLI
// does, so entries can be addressed uniformly on every platform.
func sanitizePath(inPath string) string {
	outPath := filepath.ToSlash(inPath)

	if runtime.GOOS == "windows" {
		// Replace characters that are illegal in windows paths, see
		// https://msdn.microsoft.com/en-us/library/windows/desktop/aa365247(v=vs.85).aspx
		for i := byte(0); i <= 31; i++ {
			outPath = strings.Replace(outPath, string([]byte{i}), "_", -1)
		}
	}

	return strings.TrimSuffix(outPath, "/")
}

const copyBufferSize = 32 * 1024

// copyWithTicks copies src to dst, adding to *done and ticking cb after
// every chunk. Returns ErrAborted when a tick says stop.
func copyWithTicks(dst io.Writer, src io.Reader, cb *ExtractCallbacks, done *int64) error {
	buf := make([]byte, copyBufferSize)

	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			written, writeErr := dst.Write(buf[:n])
			if writeErr != nil {
				return errors.WithStack(writeErr)
			}
			if written != n {
				return errors.WithStack(io.ErrShortWrite)
			}

			*done += int64(n)
			if !cb.Tick(*done) {
				return errors.WithStack(ErrAborted)
			}
		}

		if readErr != nil {
			if readErr == io.EOF {
				return nil
			}
			return errors.WithStack(readErr)
		}
	}
}

// saviorEntry adapts a codec entry for the staged-write sink.
func saviorEntry(e Entry) *savior.Entry {
	kind := savior.EntryKind(savior.EntryKindFile)
	switch {
	case e.Dir:
		kind = savior.EntryKindDir
	case e.Linkname != "":
		kind = savior.EntryKindSymlink
	}

	return &savior.Entry{
		CanonicalPath:    e.Path,
		Kind:             kind,
		Mode:             0644,
		UncompressedSize: e.Size,
		Linkname:         e.Linkname,
	}
}

// looksLikePasswordError spots engine failures caused by encryption
// when the library doesn't export a sentinel for them.
func looksLikePasswordError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "password") || strings.Contains(msg, "encrypt")
}
