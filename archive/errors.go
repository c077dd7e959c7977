package archive

// Error is the session's closed error taxonomy. Failures inside the
// codec engine or the filesystem never escape raw: each failure path
// maps onto exactly one of these values.
type Error int

const (
	// ErrorNone means the last operation succeeded
	ErrorNone Error = iota
	// ErrorExtractCancelled means the cancellation flag was observed
	// during an aborted extraction
	ErrorExtractCancelled
	// ErrorLibraryNotFound means no codec engine is available at all;
	// the session is permanently invalid
	ErrorLibraryNotFound
	// ErrorArchiveNotFound means the archive path is missing or is a
	// directory
	ErrorArchiveNotFound
	// ErrorFailedToOpenArchive means every codec rejected the file
	// (unreadable, unsupported, or wrong password)
	ErrorFailedToOpenArchive
	// ErrorLibraryError covers any other engine-reported failure,
	// including mid-extraction faults and relocation failures
	ErrorLibraryError
	// ErrorOutOfMemory means the staging directory couldn't be created
	ErrorOutOfMemory
)

func (e Error) String() string {
	switch e {
	case ErrorNone:
		return "no error"
	case ErrorExtractCancelled:
		return "extraction cancelled"
	case ErrorLibraryNotFound:
		return "codec library not found"
	case ErrorArchiveNotFound:
		return "archive not found"
	case ErrorFailedToOpenArchive:
		return "failed to open archive"
	case ErrorLibraryError:
		return "codec library error"
	case ErrorOutOfMemory:
		return "out of memory"
	default:
		return "unknown error"
	}
}
