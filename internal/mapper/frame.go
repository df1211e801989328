package mapper

import (
	"sort"

	"genomap/internal/record"
)

// Frame carries one record through the mapping protocol. It caches the
// count ordering of each sample so that every feature and label mapper
// reading the frame sees the same order. A Frame is not safe for concurrent
// use.
type Frame struct {
	rec        *record.Record
	sortCounts bool
	sorted     map[int][]record.Count
	sortPasses int
}

type FrameOption func(*Frame)

// WithCountSorting orders each sample's counts by descending support.
func WithCountSorting(enabled bool) FrameOption {
	return func(f *Frame) { f.sortCounts = enabled }
}

func NewFrame(rec *record.Record, opts ...FrameOption) *Frame {
	f := &Frame{rec: rec}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Frame) Record() *record.Record { return f.rec }

func (f *Frame) SortsCounts() bool { return f.sortCounts }

// Counts returns the counts of a sample in the frame's order.
func (f *Frame) Counts(sample int) ([]record.Count, bool) {
	s, ok := f.rec.Sample(sample)
	if !ok {
		return nil, false
	}
	if !f.sortCounts {
		return s.Counts, true
	}
	if counts, ok := f.sorted[sample]; ok {
		return counts, true
	}
	if f.sorted == nil {
		f.sorted = make(map[int][]record.Count, len(f.rec.Samples))
	}
	counts := SortCounts(s.Counts)
	f.sorted[sample] = counts
	f.sortPasses++
	return counts, true
}

// Count returns one count of a sample in the frame's order.
func (f *Frame) Count(sample, index int) (record.Count, bool) {
	counts, ok := f.Counts(sample)
	if !ok || index < 0 || index >= len(counts) {
		return record.Count{}, false
	}
	return counts[index], true
}

// SortCounts returns a copy of counts ordered by descending support. Ties
// follow the fixed allele order of record.AlleleLess, then the original
// index, so the result never depends on arrival order.
func SortCounts(counts []record.Count) []record.Count {
	out := make([]record.Count, len(counts))
	copy(out, counts)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Support() != b.Support() {
			return a.Support() > b.Support()
		}
		if a.ToSequence != b.ToSequence {
			return record.AlleleLess(a.ToSequence, b.ToSequence)
		}
		return a.OriginalIndex < b.OriginalIndex
	})
	return out
}
