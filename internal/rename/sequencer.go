// Package rename orders a set of renames so they can be executed one at a
// time without any rename overwriting an entry that still has to be moved.
package rename

import (
	"errors"
	"fmt"
	"strconv"

	mapset "github.com/deckarep/golang-set/v2"
)

// TempSuffix is appended to a name to build the temporary name used when
// breaking a rename cycle.
const TempSuffix = ".sync"

// MaxTempSuffix bounds the numeric suffixes probed for a free temporary name.
const MaxTempSuffix = 9999

// ErrNoTempName is returned when no free temporary name could be found.
var ErrNoTempName = errors.New("no unused temporary name available")

// Pair is one rename from Source to Target.
type Pair struct {
	Source string
	Target string
	// Temporary is set on operations that move an entry to a temporary name
	// while a cycle is broken.
	Temporary bool
}

// String returns "source -> target".
func (p Pair) String() string {
	return p.Source + " -> " + p.Target
}

// ClashError reports two renames that cannot both be carried out: they share
// a target, or they move the same source.
type ClashError struct {
	Name   string
	First  Pair
	Second Pair
}

// Error implements error.
func (e *ClashError) Error() string {
	if e.First.Target == e.Second.Target {
		return fmt.Sprintf("rename clash: %q and %q both renamed to %q", e.First.Source, e.Second.Source, e.Name)
	}
	return fmt.Sprintf("rename clash: %q renamed to both %q and %q", e.Name, e.First.Target, e.Second.Target)
}

// Sequencer turns desired renames into an executable order.
type Sequencer struct {
	// Exists reports whether a name is already taken outside the rename set.
	// Temporary names are never chosen among existing names. A nil Exists
	// treats every name as free.
	Exists func(name string) bool
}

// Sequence returns the renames to perform, in order.
//
// Renames are linked into chains where one rename's target is another's
// source. Each chain is emitted from its far end back to its start, so every
// target is vacated before something is moved onto it. A chain that closes on
// itself is a cycle; it is opened by moving one member to a temporary name
// first and from there to its real target last.
//
// Identity renames are dropped. Two renames with the same target, or the same
// source, yield a *ClashError.
func (s Sequencer) Sequence(pairs []Pair) ([]Pair, error) {
	work := make([]Pair, 0, len(pairs))
	bySource := make(map[string]int, len(pairs))
	byTarget := make(map[string]int, len(pairs))
	used := mapset.NewThreadUnsafeSet[string]()

	for _, p := range pairs {
		if p.Source == p.Target {
			continue
		}
		if j, ok := byTarget[p.Target]; ok {
			return nil, &ClashError{Name: p.Target, First: work[j], Second: p}
		}
		if j, ok := bySource[p.Source]; ok {
			return nil, &ClashError{Name: p.Source, First: work[j], Second: p}
		}
		p.Temporary = false
		bySource[p.Source] = len(work)
		byTarget[p.Target] = len(work)
		work = append(work, p)
		used.Add(p.Source)
		used.Add(p.Target)
	}

	done := make([]bool, len(work))
	out := make([]Pair, 0, len(work))

	for i := range work {
		if done[i] {
			continue
		}

		// Walk back to the start of the chain containing i.
		head, cycle := i, false
		for {
			prev, ok := byTarget[work[head].Source]
			if !ok {
				break
			}
			if prev == i {
				cycle = true
				break
			}
			head = prev
		}
		if cycle {
			head = i
		}

		chain := []int{head}
		done[head] = true
		for {
			next, ok := bySource[work[chain[len(chain)-1]].Target]
			if !ok || next == head {
				break
			}
			chain = append(chain, next)
			done[next] = true
		}

		if !cycle {
			for k := len(chain) - 1; k >= 0; k-- {
				out = append(out, work[chain[k]])
			}
			continue
		}

		first := work[head]
		tmp, err := s.tempName(first.Target, used)
		if err != nil {
			return nil, err
		}
		used.Add(tmp)

		out = append(out, Pair{Source: first.Source, Target: tmp, Temporary: true})
		for k := len(chain) - 1; k >= 1; k-- {
			out = append(out, work[chain[k]])
		}
		out = append(out, Pair{Source: tmp, Target: first.Target})
	}

	return out, nil
}

// tempName probes name.sync, name.sync1, name.sync2, ... for a name neither
// planned nor already present.
func (s Sequencer) tempName(name string, used mapset.Set[string]) (string, error) {
	for n := 0; n <= MaxTempSuffix; n++ {
		candidate := name + TempSuffix
		if n > 0 {
			candidate += strconv.Itoa(n)
		}
		if used.Contains(candidate) {
			continue
		}
		if s.Exists != nil && s.Exists(candidate) {
			continue
		}
		return candidate, nil
	}
	return "", fmt.Errorf("%w for %q", ErrNoTempName, name)
}
