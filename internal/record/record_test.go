package record

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlleles(t *testing.T) {
	assert.Equal(t, []string{"A", "T"}, Alleles("A|T"))
	assert.Equal(t, []string{"A", "A"}, Alleles("A/A"))
	assert.Equal(t, []string{"AT", "A"}, Alleles(" AT | A "))
	assert.Empty(t, Alleles(""))
	assert.Empty(t, Alleles("|/"))
}

func TestDistinctAlleles(t *testing.T) {
	assert.Equal(t, []string{"A"}, DistinctAlleles("A|A"))
	assert.Equal(t, []string{"A", "T"}, DistinctAlleles("T/A"))
	assert.Equal(t, []string{"A", "C", "G"}, DistinctAlleles("G|C|A|C"))
}

func TestAlleleLess(t *testing.T) {
	alleles := []string{"N", "GT", "G", "c", "T", "A", "AC"}
	slices.SortFunc(alleles, func(a, b string) int {
		switch {
		case AlleleLess(a, b):
			return -1
		case AlleleLess(b, a):
			return 1
		}
		return 0
	})
	assert.Equal(t, []string{"A", "T", "c", "G", "N", "AC", "GT"}, alleles)
}

func TestExpandCompress(t *testing.T) {
	freqs := []NumberWithFrequency{{Number: 3, Frequency: 2}, {Number: 1, Frequency: 1}, {Number: 7, Frequency: 0}}
	values := Expand(freqs)
	assert.Equal(t, []int{3, 3, 1}, values)
	assert.Equal(t, []NumberWithFrequency{{Number: 3, Frequency: 2}, {Number: 1, Frequency: 1}}, Compress(values))
	assert.Equal(t, 2, Distinct(freqs))
	assert.Equal(t, 3, Total(freqs))
	assert.Empty(t, Expand(nil))
}

func TestCountSupportAndSample(t *testing.T) {
	rec := &Record{Samples: []Sample{{Counts: []Count{{GenotypeCountForwardStrand: 4, GenotypeCountReverseStrand: 6}}}}}
	s, ok := rec.Sample(0)
	require.True(t, ok)
	assert.Equal(t, 10, s.Counts[0].Support())

	_, ok = rec.Sample(1)
	assert.False(t, ok)
	_, ok = rec.Sample(-1)
	assert.False(t, ok)
	var missing *Record
	_, ok = missing.Sample(0)
	assert.False(t, ok)
}

func TestLookupField(t *testing.T) {
	c := Count{
		QualityScoresForwardStrand: []NumberWithFrequency{{Number: 30, Frequency: 2}},
		QualityScoresReverseStrand: []NumberWithFrequency{{Number: 20, Frequency: 1}},
	}
	fwd, ok := LookupField("qualityScores.forward")
	require.True(t, ok)
	rev, ok := LookupField("QUALITYSCORES.REVERSE")
	require.True(t, ok)
	assert.Equal(t, []NumberWithFrequency{{Number: 30, Frequency: 2}, {Number: 20, Frequency: 1}}, Both(fwd, rev)(c))

	_, ok = LookupField("noSuchField")
	assert.False(t, ok)

	names := FieldNames()
	assert.True(t, slices.IsSorted(names))
	assert.Contains(t, names, "pairFlags")
}

func TestParseStrand(t *testing.T) {
	for _, name := range []string{"", "forward", "F", "fwd"} {
		s, err := ParseStrand(name)
		require.NoError(t, err, name)
		assert.Equal(t, Forward, s, name)
	}
	for _, name := range []string{"reverse", "R", " rev "} {
		s, err := ParseStrand(name)
		require.NoError(t, err, name)
		assert.Equal(t, Reverse, s, name)
	}
	_, err := ParseStrand("sideways")
	assert.Error(t, err)
	assert.Equal(t, "reverse", Reverse.String())
}

func TestJSONStreamReadsFixture(t *testing.T) {
	f, err := os.Open(filepath.Join("..", "..", "testdata", "fixtures", "records.jsonl"))
	require.NoError(t, err)
	defer f.Close()

	var recs []*Record
	stream := NewJSONStream(f)
	for {
		rec, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		recs = append(recs, rec)
	}
	require.Len(t, recs, 3)
	assert.Equal(t, "chr20", recs[0].ReferenceID)
	assert.Equal(t, 60122, recs[0].Position)
	assert.Equal(t, "A|T", recs[0].TrueGenotype)
	require.Len(t, recs[0].Samples[0].Counts, 2)
	assert.True(t, recs[0].Samples[0].Counts[0].MatchesReference)
	assert.Equal(t, 8, recs[0].Samples[0].Counts[1].Support())
	assert.True(t, recs[2].Mutated)
}

func TestJSONStreamBadLine(t *testing.T) {
	stream := NewJSONStream(strings.NewReader("{\"position\": 1}\n\nnot json\n"))
	rec, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Position)

	_, err = stream.Next()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
}

func TestSliceStream(t *testing.T) {
	a, b := &Record{Position: 1}, &Record{Position: 2}
	stream := NewSliceStream(a, b)
	got, err := stream.Next()
	require.NoError(t, err)
	assert.Same(t, a, got)
	got, err = stream.Next()
	require.NoError(t, err)
	assert.Same(t, b, got)
	_, err = stream.Next()
	assert.ErrorIs(t, err, io.EOF)
}
