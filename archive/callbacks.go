package archive

// LogLevel classifies log messages emitted by the session.
type LogLevel int

const (
	LogDebug LogLevel = iota
	LogInfo
	LogWarning
	LogError
)

func (l LogLevel) String() string {
	switch l {
	case LogDebug:
		return "debug"
	case LogInfo:
		return "info"
	case LogWarning:
		return "warning"
	case LogError:
		return "error"
	default:
		return "unknown"
	}
}

// ProgressKind tags a progress tick with what it measures.
type ProgressKind int

const (
	// ProgressArchive tracks how much of the archive has been read.
	// For solid archives this can hit 100% long before files finish
	// landing on disk.
	ProgressArchive ProgressKind = iota

	// ProgressExtraction tracks decompressed bytes written out, the
	// representative measure for an extraction as a whole.
	ProgressExtraction
)

// FileChangeKind tags a file-change notification.
type FileChangeKind int

const (
	// FileExtractionStart fires as the engine begins materializing an
	// entry.
	FileExtractionStart FileChangeKind = iota

	// FileExtractionEnd is defined for completeness; the current
	// engines only report entry starts.
	FileExtractionEnd
)

// LogFunc receives session log messages.
type LogFunc func(level LogLevel, message string)

// ProgressFunc receives extraction progress ticks.
type ProgressFunc func(kind ProgressKind, current int64, total int64)

// FileChangeFunc is invoked when the entry being extracted changes.
type FileChangeFunc func(kind FileChangeKind, path string)

// PasswordFunc supplies an archive password; invoked at most once per
// opened archive, the result is cached for the whole session.
type PasswordFunc func() string

// ErrorFunc receives a human-readable diagnostic on failure paths.
type ErrorFunc func(message string)
