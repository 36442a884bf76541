// Package interval implements the free/allocated interval bookkeeping that
// underlies the block directory: a first-fit allocator over a half-open
// integer domain [offset, ∞), tracked as an ordered list of free gaps with
// an always-present unbounded tail gap.
//
// This is the lowest layer of the store's space management. It knows nothing
// about blocks, ranges, or payloads, just byte intervals.
package interval

import "fmt"

// gap is one free interval [start, end). A gap with unbounded == true has no
// meaningful end; it represents "everything from start to infinity" and
// there is always exactly one such gap, at the tail of the list.
type gap struct {
	start     int64
	end       int64
	unbounded bool
}

func (g gap) size() int64 {
	if g.unbounded {
		panic("interval: size of unbounded gap requested")
	}
	return g.end - g.start
}

// Set tracks free space in [offset, ∞) as an ordered list of gaps. The zero
// value is not usable; construct with New.
type Set struct {
	offset int64
	gaps   []gap // ordered by start ascending; gaps[len-1].unbounded is always true
}

// New constructs an empty Set whose domain begins at offset. Everything from
// offset onward starts out free.
func New(offset int64) *Set {
	return &Set{
		offset: offset,
		gaps:   []gap{{start: offset, unbounded: true}},
	}
}

// Offset returns the domain's lower bound.
func (s *Set) Offset() int64 {
	return s.offset
}

// Seed appends a live allocation [start, end) during load. Callers must
// present start values in non-decreasing order; Seed coalesces the
// allocation into the tail gap, advancing its lower bound to end. If start
// lies past the tail's lower bound, the space in between is kept as a
// bounded gap.
func (s *Set) Seed(start, end int64) {
	tail := &s.gaps[len(s.gaps)-1]
	if !tail.unbounded || start < tail.start {
		panic(fmt.Sprintf("interval: Seed(%d,%d) out of order against tail gap starting at %d", start, end, tail.start))
	}
	if start > tail.start {
		s.insertGapAt(len(s.gaps)-1, gap{start: tail.start, end: start})
		tail = &s.gaps[len(s.gaps)-1]
	}
	tail.start = end
}

// Alloc finds the first gap (in ascending-start order) that fits size bytes,
// and returns the start of the newly allocated interval. A gap that is
// filled exactly is removed rather than left as a zero-length gap.
func (s *Set) Alloc(size int64) int64 {
	for i := range s.gaps {
		g := &s.gaps[i]
		if g.unbounded {
			start := g.start
			g.start += size
			return start
		}
		if g.size() >= size {
			start := g.start
			if g.size() == size {
				s.removeGapAt(i)
			} else {
				g.start += size
			}
			return start
		}
	}
	panic("interval: unreachable, tail gap is always unbounded and satisfies any size")
}

// Free returns [start, end) to the free list, merging with adjacent gaps.
// It returns (newTailStart, true) if the freed interval coalesced into the
// unbounded tail gap (meaning the allocated region shrank), or (0, false)
// otherwise.
func (s *Set) Free(start, end int64) (int64, bool) {
	// Find insertion point: first gap whose start is >= start.
	idx := len(s.gaps)
	for i, g := range s.gaps {
		if g.unbounded || g.start >= start {
			idx = i
			break
		}
	}

	mergedPrev := idx > 0 && s.gaps[idx-1].end == start && !s.gaps[idx-1].unbounded
	mergedNext := idx < len(s.gaps) && !s.gaps[idx].unbounded && s.gaps[idx].start == end
	mergedIntoTail := idx < len(s.gaps) && s.gaps[idx].unbounded && s.gaps[idx].start == end

	switch {
	case mergedPrev && mergedNext:
		s.gaps[idx-1].end = s.gaps[idx].end
		s.removeGapAt(idx)
	case mergedPrev && mergedIntoTail:
		s.gaps[idx-1].unbounded = true
		s.gaps[idx-1].end = 0
		s.removeGapAt(idx)
	case mergedPrev:
		s.gaps[idx-1].end = end
	case mergedNext:
		s.gaps[idx].start = start
	case mergedIntoTail:
		s.gaps[idx].start = start
	default:
		s.insertGapAt(idx, gap{start: start, end: end})
	}

	if mergedIntoTail {
		return s.gaps[len(s.gaps)-1].start, true
	}
	return 0, false
}

func (s *Set) removeGapAt(i int) {
	s.gaps = append(s.gaps[:i], s.gaps[i+1:]...)
}

func (s *Set) insertGapAt(i int, g gap) {
	s.gaps = append(s.gaps, gap{})
	copy(s.gaps[i+1:], s.gaps[i:])
	s.gaps[i] = g
}

// Range is a half-open allocated interval as reported by AllocatedRanges.
type Range struct {
	Start int64
	End   int64
}

// AllocatedRanges returns the complement of the free-gap list restricted to
// [0, tailStart), with a leading [0, offset) range prepended when offset > 0
// (the region below offset is conceptually always allocated — it holds the
// file's fixed header and is never tracked as a gap).
func (s *Set) AllocatedRanges() []Range {
	var out []Range
	if s.offset > 0 {
		out = append(out, Range{Start: 0, End: s.offset})
	}

	cursor := s.offset
	for _, g := range s.gaps {
		if g.unbounded {
			break
		}
		if g.start > cursor {
			out = append(out, Range{Start: cursor, End: g.start})
		}
		cursor = g.end
	}

	tail := s.gaps[len(s.gaps)-1]
	if tail.start > cursor {
		out = append(out, Range{Start: cursor, End: tail.start})
	}

	// Merge a leading [0,offset) range into an immediately adjacent
	// allocated range starting at offset, so callers see one contiguous
	// span rather than two abutting ones.
	if len(out) >= 2 && out[0].End == out[1].Start {
		out[0].End = out[1].End
		out = append(out[:1], out[2:]...)
	}

	return out
}

// TailStart returns the lower bound of the unbounded tail gap, i.e. the
// first byte past every current allocation. Alloc takes space from here only
// when no earlier bounded gap fits.
func (s *Set) TailStart() int64 {
	return s.gaps[len(s.gaps)-1].start
}
