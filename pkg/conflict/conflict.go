package conflict

import (
	"cmp"
	"slices"
	"time"

	"github.com/crewplan/timeline/pkg/calendar"
)

// pairwiseLimit is the largest event count scanned pair by pair; above it a
// sweep line is used. Both produce the same pairs in the same order.
const pairwiseLimit = 32

// Pair is two events of one resource whose intervals overlap. First starts
// no later than Second; equal starts are ordered by id.
type Pair struct {
	First        calendar.Event
	Second       calendar.Event
	OverlapStart time.Time
	OverlapEnd   time.Time
}

func (p Pair) Overlap() time.Duration {
	return p.OverlapEnd.Sub(p.OverlapStart)
}

// Involves reports whether the event with the given id is part of the pair.
func (p Pair) Involves(e calendar.Event) bool {
	return p.First.Id == e.Id || p.Second.Id == e.Id
}

// DetectConflicts reports every overlapping pair exactly once. The input is
// not modified and may be in any order.
func DetectConflicts(events []calendar.Event) []Pair {
	sorted := slices.Clone(events)
	calendar.SortByStart(sorted)

	var indexed []indexPair
	if len(sorted) <= pairwiseLimit {
		indexed = pairwise(sorted)
	} else {
		indexed = sweep(sorted)
	}

	pairs := make([]Pair, 0, len(indexed))
	for _, ip := range indexed {
		pairs = append(pairs, newPair(sorted[ip.i], sorted[ip.j]))
	}
	return pairs
}

type indexPair struct {
	i, j int
}

func pairwise(sorted []calendar.Event) []indexPair {
	var out []indexPair
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[i].Overlaps(sorted[j]) {
				out = append(out, indexPair{i, j})
			}
		}
	}
	return out
}

// sweep walks events by start time keeping the set of intervals still open.
// Every open interval overlaps the event being visited.
func sweep(sorted []calendar.Event) []indexPair {
	var out []indexPair
	active := make([]int, 0)
	for j, e := range sorted {
		open := active[:0]
		for _, i := range active {
			if sorted[i].EndTime.After(e.StartTime) {
				open = append(open, i)
			}
		}
		active = open
		for _, i := range active {
			out = append(out, indexPair{i, j})
		}
		active = append(active, j)
	}
	slices.SortFunc(out, func(a, b indexPair) int {
		if c := cmp.Compare(a.i, b.i); c != 0 {
			return c
		}
		return cmp.Compare(a.j, b.j)
	})
	return out
}

func newPair(first, second calendar.Event) Pair {
	start := second.StartTime
	end := first.EndTime
	if second.EndTime.Before(end) {
		end = second.EndTime
	}
	return Pair{First: first, Second: second, OverlapStart: start, OverlapEnd: end}
}
