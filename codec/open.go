package codec

import (
	"github.com/itchio/wharf/eos"
	"github.com/itchio/wharf/eos/option"
	"github.com/itchio/wharf/state"
	"github.com/pkg/errors"

	"github.com/modstage/burrow/fileinfo"
)

// PasswordFunc supplies an archive password on demand.
type PasswordFunc func() string

// OpenQuery answers the questions a codec asks while opening an
// archive: what is the file called, how big is it, what's the
// password. When a nested sub-archive is being probed, the query
// reports the sub-archive's name instead of the outer file's.
//
// The password provider is invoked at most once per query; the result
// is cached for as long as the query lives (some formats only ask for
// the password when extracting, long after open).
type OpenQuery struct {
	file     eos.File
	size     int64
	name     string
	consumer *state.Consumer

	subMode bool
	subName string

	passwordFunc  PasswordFunc
	password      string
	passwordAsked bool
}

// NewOpenQuery wraps one archive stream for codec probing. password
// may be nil when the caller has no password support.
func NewOpenQuery(file eos.File, size int64, name string, password PasswordFunc, consumer *state.Consumer) *OpenQuery {
	return &OpenQuery{
		file:         file,
		size:         size,
		name:         name,
		consumer:     consumer,
		passwordFunc: password,
	}
}

// File returns the archive's byte stream.
func (q *OpenQuery) File() eos.File { return q.file }

// Size returns the archive's size in bytes.
func (q *OpenQuery) Size() int64 { return q.size }

// Consumer returns the log/progress consumer, never nil.
func (q *OpenQuery) Consumer() *state.Consumer {
	if q.consumer == nil {
		return &state.Consumer{}
	}
	return q.consumer
}

// DisplayName is the name codecs should report and match extensions
// against: the archive file's own name, or the sub-archive name when
// one was pushed.
func (q *OpenQuery) DisplayName() string {
	if q.subMode {
		return q.subName
	}
	return q.name
}

// EnterSubArchive switches the query to sub-archive mode: from now on
// the query describes the nested stream called name (e.g. the inner
// .tar of a .tar.gz).
func (q *OpenQuery) EnterSubArchive(name string) {
	q.subMode = true
	q.subName = name
}

// Derive returns a query over a nested stream, in sub-archive mode,
// sharing this query's password state so the provider is still asked
// at most once per session.
func (q *OpenQuery) Derive(file eos.File, size int64, subName string) *OpenQuery {
	derived := &OpenQuery{
		file:          file,
		size:          size,
		name:          q.name,
		consumer:      q.consumer,
		passwordFunc:  q.passwordFunc,
		password:      q.password,
		passwordAsked: q.passwordAsked,
	}
	derived.EnterSubArchive(subName)
	return derived
}

// SubArchiveMode reports whether a sub-archive name has been pushed.
func (q *OpenQuery) SubArchiveMode() bool { return q.subMode }

// HasPassword reports whether a password provider is configured.
func (q *OpenQuery) HasPassword() bool { return q.passwordFunc != nil }

// Password invokes the password provider on first call and returns the
// cached result afterwards. Empty when no provider is configured.
func (q *OpenQuery) Password() string {
	if !q.passwordAsked {
		q.passwordAsked = true
		if q.passwordFunc != nil {
			q.password = q.passwordFunc()
		}
	}
	return q.password
}

// VolumeStream opens a read-only stream over path, for volume data the
// engine requests during open. Returns (nil, nil) — "no stream" — when
// the path is missing or is a directory, so probing can fail
// gracefully.
func (q *OpenQuery) VolumeStream(path string) (eos.File, error) {
	info, err := fileinfo.Lookup(path)
	if err != nil || info.Dir {
		return nil, nil
	}

	f, err := eos.Open(path, option.WithConsumer(q.Consumer()))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return f, nil
}
