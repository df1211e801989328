package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genomap/internal/record"
)

func TestSortCountsBreaksTiesByAlleleOrder(t *testing.T) {
	counts := []record.Count{
		{ToSequence: "G", GenotypeCountForwardStrand: 3, OriginalIndex: 0},
		{ToSequence: "C", GenotypeCountForwardStrand: 3, OriginalIndex: 1},
		{ToSequence: "A", GenotypeCountReverseStrand: 1, OriginalIndex: 2},
		{ToSequence: "T", GenotypeCountForwardStrand: 10, OriginalIndex: 3},
		{ToSequence: "AT", GenotypeCountForwardStrand: 1, OriginalIndex: 4},
	}
	sorted := SortCounts(counts)

	order := make([]string, len(sorted))
	for i, c := range sorted {
		order[i] = c.ToSequence
	}
	assert.Equal(t, []string{"T", "C", "G", "A", "AT"}, order)
	assert.Equal(t, "G", counts[0].ToSequence, "input must not be reordered")
}

func TestFrameSortsOncePerSample(t *testing.T) {
	rec := countsRecord(1, 5, 3)
	f := NewFrame(rec, WithCountSorting(true))

	first, ok := f.Count(0, 0)
	require.True(t, ok)
	assert.Equal(t, 5, first.Support())
	for i := 0; i < 3; i++ {
		_, ok := f.Count(0, i)
		require.True(t, ok)
	}
	assert.Equal(t, 1, f.sortPasses)

	_, ok = f.Count(0, 3)
	assert.False(t, ok)
	_, ok = f.Count(1, 0)
	assert.False(t, ok)
}

func TestFrameWithoutSortingKeepsRecordOrder(t *testing.T) {
	f := NewFrame(countsRecord(1, 5))
	c, ok := f.Count(0, 0)
	require.True(t, ok)
	assert.Equal(t, 1, c.Support())
	assert.Zero(t, f.sortPasses)
}
