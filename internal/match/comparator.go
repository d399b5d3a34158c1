// Package match pairs source records with target records.
//
// Matching is driven by a Comparator configured with the keys the user wants
// to compare on. Size always takes part; name, modification time (with a
// tolerance) and CRC-32 are optional.
package match

import (
	"cmp"
	"fmt"
	"strings"
	"time"

	"github.com/klauern/treesync/internal/record"
)

// Keys selects which record attributes take part in matching.
type Keys struct {
	Name bool
	Size bool
	Time bool
	CRC  bool
}

// AllKeys enables every key.
func AllKeys() Keys {
	return Keys{Name: true, Size: true, Time: true, CRC: true}
}

// ParseKeys parses a comma separated key list such as "name,size,time".
// Size is always enabled whether listed or not.
func ParseKeys(s string) (Keys, error) {
	k := Keys{Size: true}
	for _, part := range strings.Split(s, ",") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "name":
			k.Name = true
		case "size", "":
		case "time", "mtime":
			k.Time = true
		case "crc", "checksum":
			k.CRC = true
		default:
			return Keys{}, fmt.Errorf("unknown match key %q (valid: name, size, time, crc)", part)
		}
	}
	return k, nil
}

// String returns the enabled keys in priority order.
func (k Keys) String() string {
	parts := make([]string, 0, 4)
	if k.Name {
		parts = append(parts, "name")
	}
	parts = append(parts, "size")
	if k.Time {
		parts = append(parts, "time")
	}
	if k.CRC {
		parts = append(parts, "crc")
	}
	return strings.Join(parts, ",")
}

// Comparator orders and matches records by the configured keys.
type Comparator struct {
	Keys Keys
	// Tolerance is the largest modification time difference still considered
	// equal by Matches.
	Tolerance time.Duration
}

// DirComparator compares directories by name only.
func DirComparator() Comparator {
	return Comparator{Keys: Keys{Name: true, Size: true}}
}

// Compare is the full three-way ordering: name, size, time and crc, in that
// priority, using only enabled keys. Times compare exactly.
func (c Comparator) Compare(a, b *record.Record) int {
	if r := c.Search(a, b); r != 0 {
		return r
	}
	if c.Keys.Time {
		if r := a.ModTime.Compare(b.ModTime); r != 0 {
			return r
		}
	}
	if c.Keys.CRC {
		return cmp.Compare(a.Checksum(), b.Checksum())
	}
	return 0
}

// Search compares the cheap search key: name (when enabled) then size.
// It is always a coarsening of Compare.
func (c Comparator) Search(a, b *record.Record) int {
	if c.Keys.Name {
		if r := strings.Compare(a.Name, b.Name); r != 0 {
			return r
		}
	}
	return cmp.Compare(a.Size, b.Size)
}

// Matches reports whether a and b are equivalent under every enabled key,
// allowing times to differ by up to Tolerance.
func (c Comparator) Matches(a, b *record.Record) bool {
	if c.Search(a, b) != 0 {
		return false
	}
	if c.Keys.Time && !c.withinTolerance(a.ModTime, b.ModTime) {
		return false
	}
	if c.Keys.CRC && a.Checksum() != b.Checksum() {
		return false
	}
	return true
}

func (c Comparator) withinTolerance(a, b time.Time) bool {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d <= c.Tolerance
}
