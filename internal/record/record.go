// Package record holds metadata snapshots of the entries being synchronized.
package record

import (
	"sort"
	"strings"
	"time"

	"github.com/klauern/treesync/internal/fsio"
)

// NoMatch marks a record that has not been paired.
const NoMatch = -1

// ChecksumFunc computes the CRC-32 of the file at path. Implementations report
// read failures themselves and return 0.
type ChecksumFunc func(path string) uint32

// Record is a snapshot of one file or directory. Metadata is fixed at
// construction; only the checksum memo and the match fields change later.
type Record struct {
	// Path is the full path of the entry.
	Path string
	// Name is the base name; directories carry a trailing "/".
	Name string
	// IsDir reports whether the entry is a directory.
	IsDir bool
	// Size in bytes, 0 for directories.
	Size int64
	// ModTime is the last modification time.
	ModTime time.Time

	// Match is the index of the paired record in the other side's list, or NoMatch.
	Match int
	// Similarity flags, valid once Match is set.
	SameName bool
	SameSize bool
	SameTime bool
	SameCRC  bool

	sum    ChecksumFunc
	crc    uint32
	summed bool
}

// New creates a record for an entry located at path. sum may be nil when
// checksums are never needed.
func New(path string, e fsio.Entry, sum ChecksumFunc) *Record {
	r := &Record{
		Path:    path,
		Name:    e.Name,
		IsDir:   e.IsDir(),
		Size:    e.Size,
		ModTime: e.ModTime,
		Match:   NoMatch,
		sum:     sum,
	}
	if r.IsDir {
		r.Size = 0
		if !strings.HasSuffix(r.Name, "/") {
			r.Name += "/"
		}
	}
	return r
}

// Checksum returns the CRC-32 of the file, computing it on first use.
// Directories always return 0.
func (r *Record) Checksum() uint32 {
	if r.IsDir || r.summed {
		return r.crc
	}
	r.summed = true
	if r.sum != nil {
		r.crc = r.sum(r.Path)
	}
	return r.crc
}

// Matched reports whether the record has been paired.
func (r *Record) Matched() bool {
	return r.Match != NoMatch
}

// BaseName returns Name without the directory marker.
func (r *Record) BaseName() string {
	return strings.TrimSuffix(r.Name, "/")
}

// List is the backing store of records for one side of a directory. Records
// are never reordered, so indices stay valid as match references.
type List struct {
	items []*Record
}

// NewList creates a list holding the given records.
func NewList(records ...*Record) *List {
	return &List{items: records}
}

// Add appends a record and returns its index.
func (l *List) Add(r *Record) int {
	l.items = append(l.items, r)
	return len(l.items) - 1
}

// Len returns the number of records.
func (l *List) Len() int {
	return len(l.items)
}

// At returns the record at index i.
func (l *List) At(i int) *Record {
	return l.items[i]
}

// All returns the records in insertion order.
func (l *List) All() []*Record {
	return l.items
}

// Unmatched returns the indices of records without a match.
func (l *List) Unmatched() []int {
	var out []int
	for i, r := range l.items {
		if !r.Matched() {
			out = append(out, i)
		}
	}
	return out
}

// Sorted returns an index permutation ordering the records by cmp.
// The sort is stable so equal records keep insertion order.
func (l *List) Sorted(cmp func(a, b *Record) int) []int {
	idx := make([]int, len(l.items))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return cmp(l.items[idx[i]], l.items[idx[j]]) < 0
	})
	return idx
}

// Reset clears every match so the list can be matched again.
func (l *List) Reset() {
	for _, r := range l.items {
		r.Match = NoMatch
		r.SameName, r.SameSize, r.SameTime, r.SameCRC = false, false, false, false
	}
}

// Pair links src[i] and dst[j] in both directions.
func Pair(src, dst *List, i, j int) {
	src.items[i].Match = j
	dst.items[j].Match = i
}
