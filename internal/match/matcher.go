package match

import (
	"github.com/klauern/treesync/internal/record"
)

// Match pairs records of src with records of dst using cmp.
//
// The target list is ordered by the search key and each source record is
// located by binary search. Candidates in the tie window are visited starting
// at the found index, then downward, then upward; the first one that matches
// under every key and is not yet paired wins. Both records get their Match
// reference and similarity flags set.
//
// The result is false when the pairing is not unique: some source had more
// than one valid candidate, or lost a full match to an earlier source.
func Match(src, dst *record.List, cmp Comparator) bool {
	order := dst.Sorted(cmp.Search)
	unique := true

	for i := range src.Len() {
		s := src.At(i)
		if s.Matched() {
			continue
		}

		found := search(dst, order, s, cmp)
		if found < 0 {
			continue
		}

		chosen := record.NoMatch
		valid := 0
		claimed := false
		visit := func(k int) {
			j := order[k]
			t := dst.At(j)
			if !cmp.Matches(s, t) {
				return
			}
			if t.Matched() {
				claimed = true
				return
			}
			valid++
			if chosen == record.NoMatch {
				chosen = j
			}
		}

		visit(found)
		for k := found - 1; k >= 0 && cmp.Search(dst.At(order[k]), s) == 0; k-- {
			visit(k)
		}
		for k := found + 1; k < len(order) && cmp.Search(dst.At(order[k]), s) == 0; k++ {
			visit(k)
		}

		if valid > 1 || claimed {
			unique = false
		}
		if chosen != record.NoMatch {
			link(src, dst, i, chosen, cmp)
		}
	}

	return unique
}

// MatchDirs pairs directories by name alone.
func MatchDirs(src, dst *record.List) bool {
	return Match(src, dst, DirComparator())
}

// FindClash reports two records of l that are equal under cmp.Compare.
// Such records make matching against them meaningless. Records whose times
// differ within the tolerance are distinguishable here; pairing against
// them can only turn out ambiguous. ok is false when every record is
// distinguishable.
func FindClash(l *record.List, cmp Comparator) (a, b int, ok bool) {
	order := l.Sorted(cmp.Compare)
	for k := 1; k < len(order); k++ {
		if cmp.Compare(l.At(order[k-1]), l.At(order[k])) == 0 {
			return order[k-1], order[k], true
		}
	}
	return 0, 0, false
}

// search returns a position in order whose record is search-equal to s, or -1.
func search(dst *record.List, order []int, s *record.Record, cmp Comparator) int {
	lo, hi := 0, len(order)-1
	for lo <= hi {
		mid := int(uint(lo+hi) >> 1)
		switch c := cmp.Search(dst.At(order[mid]), s); {
		case c < 0:
			lo = mid + 1
		case c > 0:
			hi = mid - 1
		default:
			return mid
		}
	}
	return -1
}

func link(src, dst *record.List, i, j int, cmp Comparator) {
	record.Pair(src, dst, i, j)
	s, t := src.At(i), dst.At(j)

	sameName := s.Name == t.Name
	sameSize := s.Size == t.Size
	sameTime := s.ModTime.Equal(t.ModTime)
	sameCRC := !cmp.Keys.CRC || s.Checksum() == t.Checksum()

	for _, r := range []*record.Record{s, t} {
		r.SameName, r.SameSize, r.SameTime, r.SameCRC = sameName, sameSize, sameTime, sameCRC
	}
}
