// Package archive provides a uniform façade over multi-format
// compressed archives: open one, enumerate its entries, annotate the
// entries you want with output paths, and extract. Extraction stages
// into a temporary directory first, then relocates each staged entry
// to every destination requested for it, so a single archive entry can
// be materialized at several places at once.
package archive

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/itchio/wharf/eos"
	"github.com/itchio/wharf/eos/option"
	"github.com/itchio/wharf/state"

	"github.com/modstage/burrow/codec"
	"github.com/modstage/burrow/fileinfo"
)

// Session owns one opened archive: its engine handle, its entry
// catalog, and the extraction protocol. A Session is not safe for
// concurrent Open/Extract/Close calls — the caller serializes those.
// Cancel is the exception: it may be called from another goroutine
// while an Extract is in flight.
type Session struct {
	valid     bool
	lastError Error
	cancelled atomic.Bool

	codecs []codec.Codec
	nested bool

	file   eos.File
	query  *codec.OpenQuery
	handle codec.Handle
	cat    *catalog
	total  int64

	// staging dir of a nested inner archive; lives until Close
	nestedStage string

	logFn    LogFunc
	consumer *state.Consumer

	// error callback of the extract call in flight
	onError ErrorFunc
}

// Option configures a Session at construction.
type Option func(s *Session)

// WithCodecs replaces the default codec set. An empty set leaves the
// session permanently invalid with ErrorLibraryNotFound.
func WithCodecs(codecs ...codec.Codec) Option {
	return func(s *Session) {
		s.codecs = codecs
	}
}

// WithNestedContainers enables transparent re-opening of single-entry
// container archives (e.g. a .zip whose only member is another .zip):
// when the freshly opened catalog holds exactly one non-directory
// entry whose extension matches a registered codec, Open stages that
// entry and opens it one level deeper.
func WithNestedContainers() Option {
	return func(s *Session) {
		s.nested = true
	}
}

// WithLogCallback installs the log sink before construction runs, so
// even constructor-time failures are observable.
func WithLogCallback(cb LogFunc) Option {
	return func(s *Session) {
		s.SetLogCallback(cb)
	}
}

// WithConsumer replaces the session's internal state consumer, routing
// engine-level messages and progress labels to the given one instead
// of the log callback.
func WithConsumer(consumer *state.Consumer) Option {
	return func(s *Session) {
		if consumer != nil {
			s.consumer = consumer
		}
	}
}

// New creates a session. The session is valid unless no codec engine
// is available, in which case every subsequent operation fails with
// ErrorLibraryNotFound.
func New(opts ...Option) *Session {
	s := &Session{
		codecs: codec.Default(),
		logFn:  func(LogLevel, string) {},
	}
	s.consumer = &state.Consumer{
		OnMessage: func(level string, message string) {
			s.logf(levelFromString(level), "%s", message)
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	if len(s.codecs) == 0 {
		s.lastError = ErrorLibraryNotFound
		s.logf(LogError, "could not find a usable codec engine")
	} else {
		s.valid = true
	}

	return s
}

// IsValid reports whether the session was constructed with a working
// codec engine. Failures to open or extract archives do not
// invalidate a session.
func (s *Session) IsValid() bool { return s.valid }

// LastError returns the error code of the last operation.
func (s *Session) LastError() Error { return s.lastError }

// SetLogCallback installs the log sink. Passing nil restores the
// default no-op sink, so internal call sites never need to nil-check.
func (s *Session) SetLogCallback(cb LogFunc) {
	if cb == nil {
		cb = func(LogLevel, string) {}
	}
	s.logFn = cb
}

// Open opens the archive at archivePath, replacing whatever archive
// this session had open before. password may be nil; when present it
// is invoked lazily, at most once, and the result is cached until the
// next Close. Returns false on failure, with the cause available via
// LastError.
func (s *Session) Open(archivePath string, password PasswordFunc) bool {
	if !s.valid {
		s.logf(LogError, "cannot open '%s': %s", archivePath, s.lastError)
		return false
	}

	s.Close()

	info, err := fileinfo.Lookup(archivePath)
	if err != nil || info.Dir {
		s.lastError = ErrorArchiveNotFound
		s.logf(LogError, "archive not found: %s", archivePath)
		return false
	}

	f, err := eos.Open(archivePath, option.WithConsumer(s.consumer))
	if err != nil {
		s.lastError = ErrorFailedToOpenArchive
		s.logf(LogError, "opening '%s': %s", archivePath, err.Error())
		return false
	}

	var pw codec.PasswordFunc
	if password != nil {
		pw = codec.PasswordFunc(password)
	}
	q := codec.NewOpenQuery(f, info.Size, filepath.Base(archivePath), pw, s.consumer)

	handle, err := codec.TryOpen(s.codecs, q)
	if err != nil {
		f.Close()
		s.lastError = ErrorFailedToOpenArchive
		s.logf(LogError, "%s", err.Error())
		return false
	}

	s.file = f
	s.query = q
	s.handle = handle
	s.rebuildCatalog()

	if s.nested {
		s.maybeOpenNested()
	}

	s.lastError = ErrorNone
	return true
}

// FileList returns the catalog of the currently opened archive, in
// engine enumeration order. Entries are annotated in place via
// AddOutputPath before calling Extract. Empty after Close.
func (s *Session) FileList() []*Entry {
	if s.cat == nil {
		return nil
	}
	return s.cat.entries
}

// EntryByPath resolves an archive-relative path to its catalog entry.
func (s *Session) EntryByPath(archivePath string) *Entry {
	if s.cat == nil {
		return nil
	}
	if i, ok := s.cat.indexOf(archivePath); ok {
		return s.cat.entries[i]
	}
	return nil
}

// Extract materializes every annotated entry under outputDirectory.
// Entries with no output paths are skipped entirely. All callbacks may
// be nil. Extraction runs in two phases: the engine decompresses the
// selected entries into a staging directory, then each staged entry is
// copied to every destination requested for it. Already-copied files
// are not rolled back on failure. The staging directory is removed on
// every exit path.
func (s *Session) Extract(outputDirectory string, onProgress ProgressFunc, onFileChange FileChangeFunc, onError ErrorFunc) bool {
	if !s.valid || s.handle == nil {
		return false
	}

	s.onError = onError
	defer func() { s.onError = nil }()

	indices, _ := s.cat.selectedIndices()

	stage, ok := s.makeStage()
	if !ok {
		return false
	}
	defer os.RemoveAll(stage)

	cb := &codec.ExtractCallbacks{
		OnProgress: func(done int64) bool {
			if onProgress != nil {
				onProgress(ProgressExtraction, done, s.total)
			}
			return !s.cancelled.Load()
		},
		OnFile: func(entryPath string) {
			if onFileChange != nil {
				onFileChange(FileExtractionStart, entryPath)
			}
		},
	}

	if len(indices) > 0 {
		if err := s.handle.ExtractTo(stage, indices, cb); err != nil {
			if s.cancelled.Load() {
				s.lastError = ErrorExtractCancelled
			} else {
				s.lastError = ErrorLibraryError
			}
			s.reportError(err.Error())
			return false
		}
	}

	r := &relocator{stageDir: stage, outputDir: outputDirectory}
	for _, e := range s.cat.entries {
		if err := r.place(e); err != nil {
			s.lastError = ErrorLibraryError
			s.reportError(err.Error())
			return false
		}
	}

	s.lastError = ErrorNone
	return true
}

// Cancel requests that the extraction in flight stops. Safe to call
// from another goroutine; idempotent; consumed by the next progress
// tick, if any. Reset by Close (and therefore by re-Open).
func (s *Session) Cancel() {
	s.cancelled.Store(true)
}

// Close releases the engine handle, clears the entry catalog, drops
// the cached password and resets the cancellation flag. Safe to call
// repeatedly.
func (s *Session) Close() {
	if s.handle != nil {
		s.handle.Close()
		s.handle = nil
	}
	if s.file != nil {
		s.file.Close()
		s.file = nil
	}
	if s.nestedStage != "" {
		os.RemoveAll(s.nestedStage)
		s.nestedStage = ""
	}

	s.query = nil
	s.cat = nil
	s.total = 0
	s.cancelled.Store(false)
}

func (s *Session) rebuildCatalog() {
	s.cat = newCatalog(s.handle.Entries())
	s.total = 0
	for _, e := range s.cat.entries {
		s.total += e.size
	}
}

// maybeOpenNested peeks at a freshly built catalog: if its only entry
// is itself a container this session can open, stage it and go one
// level deeper. Failures are not fatal — the outer archive stays open.
func (s *Session) maybeOpenNested() {
	if len(s.cat.entries) != 1 {
		return
	}
	inner := s.cat.entries[0]
	if inner.dir || codec.ByExtension(s.codecs, inner.path) == nil {
		return
	}

	s.logf(LogInfo, "extracting nested archive '%s'", inner.path)

	stage, ok := s.makeStage()
	if !ok {
		s.logf(LogWarning, "nested: could not stage '%s', keeping outer archive", inner.path)
		return
	}

	err := s.handle.ExtractTo(stage, []int{0}, &codec.ExtractCallbacks{})
	if err != nil {
		os.RemoveAll(stage)
		s.logf(LogWarning, "nested: extracting '%s': %s", inner.path, err.Error())
		return
	}

	innerPath := filepath.Join(stage, filepath.FromSlash(inner.path))
	innerName := path.Base(inner.path)

	stream, err := s.query.VolumeStream(innerPath)
	if err != nil || stream == nil {
		os.RemoveAll(stage)
		s.logf(LogWarning, "nested: no stream for staged '%s'", inner.path)
		return
	}

	info, err := fileinfo.Lookup(innerPath)
	if err != nil {
		stream.Close()
		os.RemoveAll(stage)
		return
	}

	q := s.query.Derive(stream, info.Size, innerName)
	handle, err := codec.TryOpen(s.codecs, q)
	if err != nil {
		stream.Close()
		os.RemoveAll(stage)
		s.logf(LogWarning, "nested: opening '%s': %s", innerName, err.Error())
		return
	}

	// swap to the inner archive; the stage dir lives until Close
	s.handle.Close()
	s.file.Close()
	s.file = stream
	s.query = q
	s.handle = handle
	s.nestedStage = stage
	s.rebuildCatalog()
}

// makeStage creates a uniquely named staging directory. On failure the
// session error is set to ErrorOutOfMemory and false is returned.
func (s *Session) makeStage() (string, bool) {
	stage := filepath.Join(os.TempDir(), "burrow-stage-"+uuid.New().String())
	if err := os.MkdirAll(stage, 0755); err != nil {
		s.lastError = ErrorOutOfMemory
		s.reportError(fmt.Sprintf("error creating a temporary directory for extraction: %s", err.Error()))
		return "", false
	}
	return stage, true
}

func (s *Session) reportError(message string) {
	if s.onError != nil {
		s.onError(message)
	}
}

func (s *Session) logf(level LogLevel, format string, args ...interface{}) {
	s.logFn(level, fmt.Sprintf(format, args...))
}

func levelFromString(level string) LogLevel {
	switch level {
	case "debug":
		return LogDebug
	case "warning", "warn":
		return LogWarning
	case "error":
		return LogError
	default:
		return LogInfo
	}
}
