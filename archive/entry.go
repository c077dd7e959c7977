package archive

import "github.com/modstage/burrow/codec"

// Entry is one item of an opened archive's catalog. Its identity
// (path, size, CRC, kind) is fixed at open time; the list of output
// paths is annotated by the caller before extraction. An entry with no
// output paths is not extracted.
type Entry struct {
	path     string
	size     int64
	crc      uint32
	dir      bool
	linkname string

	outputs []string
}

func newEntry(ce codec.Entry) *Entry {
	return &Entry{
		path:     ce.Path,
		size:     ce.Size,
		crc:      ce.CRC,
		dir:      ce.Dir,
		linkname: ce.Linkname,
	}
}

// Path is the entry's slash-separated path inside the archive.
func (e *Entry) Path() string { return e.path }

// Size is the entry's uncompressed size in bytes.
func (e *Entry) Size() int64 { return e.size }

// CRC is the entry's CRC32, or 0 when the format doesn't carry one.
func (e *Entry) CRC() uint32 { return e.crc }

// IsDir reports whether the entry is a directory.
func (e *Entry) IsDir() bool { return e.dir }

// AddOutputPath requests that this entry be materialized at the given
// path, relative to the output directory passed to Extract. A single
// entry may be requested at any number of destinations.
func (e *Entry) AddOutputPath(path string) {
	e.outputs = append(e.outputs, path)
}

// OutputPaths returns the destinations requested so far, in order.
func (e *Entry) OutputPaths() []string { return e.outputs }

// ClearOutputPaths drops all requested destinations.
func (e *Entry) ClearOutputPaths() { e.outputs = nil }

func (e *Entry) selected() bool { return len(e.outputs) > 0 }

// catalog is the ordered entry list of one opened archive, plus a
// path→index lookup: extraction addresses entries by engine index,
// relocation addresses staged files by path. Indices are stable for
// the lifetime of one open() and rebuilt wholesale on the next.
type catalog struct {
	entries []*Entry
	byPath  map[string]int
}

func newCatalog(ces []codec.Entry) *catalog {
	c := &catalog{
		entries: make([]*Entry, len(ces)),
		byPath:  make(map[string]int, len(ces)),
	}
	for i, ce := range ces {
		c.entries[i] = newEntry(ce)
		c.byPath[CleanFileName(ce.Path)] = i
	}
	return c
}

// indexOf resolves an archive-relative path to its engine index.
func (c *catalog) indexOf(path string) (int, bool) {
	i, ok := c.byPath[CleanFileName(path)]
	return i, ok
}

// selectedIndices returns the indices of entries with at least one
// requested output path, in engine order, plus their total size.
func (c *catalog) selectedIndices() ([]int, int64) {
	var indices []int
	var total int64
	for i, e := range c.entries {
		if e.selected() {
			indices = append(indices, i)
			total += e.size
		}
	}
	return indices, total
}
