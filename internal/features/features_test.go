package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genomap/internal/mapper"
	"genomap/internal/properties"
	"genomap/internal/record"
)

func mapValues(t *testing.T, n *mapper.Node, rec *record.Record) ([]float64, *mapper.State, *mapper.Frame) {
	t.Helper()
	tree, err := mapper.NewTree(n)
	require.NoError(t, err)
	st := tree.NewState()
	f := mapper.NewFrame(rec, mapper.WithCountSorting(true))
	require.NoError(t, st.Prepare(f))
	v, err := st.Values(f)
	require.NoError(t, err)
	return v, st, f
}

func twoAlleles() *record.Record {
	return &record.Record{
		ReferenceBase:          "A",
		GenomicSequenceContext: "ACGTTACGTAACGTTACGTA",
		Samples: []record.Sample{{Counts: []record.Count{
			{ToSequence: "A", MatchesReference: true, GenotypeCountForwardStrand: 3, GenotypeCountReverseStrand: 1,
				ReadIndicesForwardStrand: []record.NumberWithFrequency{{Number: 5, Frequency: 2}, {Number: 7, Frequency: 1}}},
			{ToSequence: "T", OriginalIndex: 1, GenotypeCountForwardStrand: 10,
				ReadIndicesForwardStrand: []record.NumberWithFrequency{{Number: 5, Frequency: 2}, {Number: 7, Frequency: 1}, {Number: 9, Frequency: 0}},
				QueryPositions:           []record.NumberWithFrequency{{Number: 12, Frequency: 4}},
				PairFlags:                []record.NumberWithFrequency{{Number: 0x1 | 0x10, Frequency: 3}, {Number: 0x1, Frequency: 1}}},
		}}},
	}
}

func TestCountLeavesFollowSortedOrder(t *testing.T) {
	rec := twoAlleles()
	root, err := mapper.Concat(
		mapper.NewLeaf(NewGenotypeCount(Slot{Count: 0}, record.Forward)),
		mapper.NewLeaf(NewGenotypeCount(Slot{Count: 1}, record.Reverse)),
		mapper.NewLeaf(NewGenotypeCount(Slot{Count: 2}, record.Forward)),
		mapper.NewLeaf(NewReadIndexCount(Slot{Count: 0}, record.Forward)),
		mapper.NewLeaf(NewMatchesReference(Slot{Count: 1})),
		mapper.NewLeaf(NewIsIndel(Slot{Count: 0})),
		mapper.NewLeaf(NewOriginalIndex(Slot{Count: 0})),
		mapper.NewLeaf(NewOriginalIndex(Slot{Sample: 3})),
	)
	require.NoError(t, err)

	got, _, _ := mapValues(t, root, rec)
	assert.Equal(t, []float64{10, 1, mapper.Sentinel, 2, 1, 0, 1, mapper.Sentinel}, got)
}

func TestCountLeafNames(t *testing.T) {
	assert.Equal(t, "sample0.genotype1.count.reverse", NewGenotypeCount(Slot{Count: 1}, record.Reverse).FeatureName(0))
	assert.Equal(t, "sample1.genotype0.readIndices.forward", NewReadIndexCount(Slot{Sample: 1}, record.Forward).FeatureName(0))
	assert.Equal(t, "sample0.genotype2.isIndel", NewIsIndel(Slot{Count: 2}).FeatureName(0))
}

func TestMaskedSlot(t *testing.T) {
	rec := twoAlleles()
	root, err := mapper.Concat(
		mapper.NewLeaf(NewGenotypeCount(Slot{Count: 0, Masked: true}, record.Forward)),
		mapper.NewLeaf(NewGenotypeCount(Slot{Count: 4, Masked: true}, record.Forward)),
		mapper.NewLeaf(NewGenotypeCount(Slot{Count: 4}, record.Forward)),
	)
	require.NoError(t, err)
	require.True(t, root.HasMask())

	_, st, f := mapValues(t, root, rec)
	for i, want := range []bool{false, true, false} {
		masked, err := st.IsMasked(f, i)
		require.NoError(t, err)
		assert.Equal(t, want, masked, "slot %d", i)
	}
}

func TestDensityPolicies(t *testing.T) {
	values := []record.NumberWithFrequency{{Number: 0, Frequency: 1}, {Number: 15, Frequency: 1}, {Number: 100, Frequency: 2}}
	src := func(*mapper.Frame) ([]record.NumberWithFrequency, bool) { return values, true }

	uncapped, err := NewDensity("q", Histogram{Bins: 4, Min: 0, Max: 40}, src)
	require.NoError(t, err)
	got, _, _ := mapValues(t, mapper.NewLeaf(uncapped), twoAlleles())
	assert.InDeltaSlice(t, []float64{0.25, 0.25, 0, 0.5}, got, 1e-9)

	values = []record.NumberWithFrequency{{Number: 1, Frequency: 1}, {Number: 3, Frequency: 1}, {Number: 7, Frequency: 2}}
	capped, err := NewDensity("d", UnitBins(0, 3), src)
	require.NoError(t, err)
	got, _, _ = mapValues(t, mapper.NewLeaf(capped), twoAlleles())
	assert.InDeltaSlice(t, []float64{0, 0.5, 0, 0.5}, got, 1e-9)
	assert.Equal(t, "d.density[2]", capped.FeatureName(2))
}

func TestDensityMissingSlot(t *testing.T) {
	d, err := NewFieldDensity(properties.Properties{}, Slot{Count: 5, Masked: true}, "queryPosition", Uncapped)
	require.NoError(t, err)
	require.Equal(t, 10, d.NumFeatures())

	got, st, f := mapValues(t, mapper.NewLeaf(d), twoAlleles())
	for _, v := range got {
		assert.Equal(t, mapper.Sentinel, v)
	}
	masked, err := st.IsMasked(f, 0)
	require.NoError(t, err)
	assert.True(t, masked)
}

func TestFieldDensityReadsProperties(t *testing.T) {
	props := properties.Properties{
		properties.BinsKey("queryPosition"):     "3",
		properties.StatsMaxKey("queryPosition"): "30",
	}
	d, err := NewFieldDensity(props, Slot{}, "queryPosition", Uncapped)
	require.NoError(t, err)
	got, _, _ := mapValues(t, mapper.NewLeaf(d), twoAlleles())
	// T sorts first and has all its query positions at 12.
	assert.InDeltaSlice(t, []float64{0, 1, 0}, got, 1e-9)

	_, err = NewFieldDensity(props, Slot{}, "noSuchField", Uncapped)
	assert.ErrorIs(t, err, properties.ErrInvalidValue)

	props[properties.StatsMinKey("queryPosition")] = "50"
	_, err = NewFieldDensity(props, Slot{}, "queryPosition", Uncapped)
	assert.ErrorIs(t, err, properties.ErrInvalidValue)
}

func TestPairFlagFractions(t *testing.T) {
	got, _, _ := mapValues(t, mapper.NewLeaf(NewPairFlags(Slot{})), twoAlleles())
	require.Len(t, got, NumPairFlagBits)
	assert.InDelta(t, 1.0, got[0], 1e-9)
	assert.InDelta(t, 0.75, got[4], 1e-9)
	assert.Zero(t, got[1])

	got, _, _ = mapValues(t, mapper.NewLeaf(NewPairFlags(Slot{Count: 1})), twoAlleles())
	for _, v := range got {
		assert.Zero(t, v)
	}
	assert.Equal(t, "sample0.genotype0.pairFlags.mateReverse", NewPairFlags(Slot{}).FeatureName(5))
}

func TestGenomicContextPadsAndMasks(t *testing.T) {
	gc, err := NewGenomicContext(5)
	require.NoError(t, err)
	rec := &record.Record{GenomicSequenceContext: "ACG"}

	got, st, f := mapValues(t, mapper.NewLeaf(gc), rec)
	require.Len(t, got, 5*NumContextSymbols)
	assert.Equal(t, 1.0, got[1*NumContextSymbols+0])
	assert.Equal(t, 1.0, got[2*NumContextSymbols+1])
	assert.Equal(t, 1.0, got[3*NumContextSymbols+3])
	sum := 0.0
	for _, v := range got {
		sum += v
	}
	assert.Equal(t, 3.0, sum)

	for i, want := range map[int]bool{0: true, 6: false, 18: false, 24: true} {
		masked, err := st.IsMasked(f, i)
		require.NoError(t, err)
		assert.Equal(t, want, masked, "slot %d", i)
	}
}

func TestGenomicContextTrimsAndNormalizesCase(t *testing.T) {
	gc, err := NewGenomicContext(3)
	require.NoError(t, err)
	got, _, _ := mapValues(t, mapper.NewLeaf(gc), &record.Record{GenomicSequenceContext: "GGaXcTT"})
	assert.Equal(t, 1.0, got[0*NumContextSymbols+0])
	assert.Equal(t, 1.0, got[1*NumContextSymbols+5])
	assert.Equal(t, 1.0, got[2*NumContextSymbols+1])
	assert.Equal(t, "genomicContext[1].other", gc.FeatureName(11))

	_, err = NewGenomicContext(-1)
	assert.ErrorIs(t, err, properties.ErrInvalidValue)
}

func presetProps() properties.Properties {
	return properties.Properties{
		properties.KeyPloidy:             "2",
		properties.KeyGenomicContextSize: "20",
	}
}

func TestGenotypeV38Layout(t *testing.T) {
	root, err := GenotypeV38(presetProps())
	require.NoError(t, err)
	assert.Equal(t, 799, root.NumFeatures())
	assert.True(t, root.HasMask())

	tree, err := mapper.NewTree(root)
	require.NoError(t, err)
	names := tree.FeatureNames()
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		require.False(t, seen[name], "duplicate feature name %s", name)
		seen[name] = true
	}
	assert.Equal(t, "sample0.genotype0.matchesReference", names[0])
	assert.Equal(t, "inverse(sample0.genotype0.count.forward)", names[6])
	assert.Equal(t, "ceiling(sample0.genotype0.count.forward)", names[12])

	got, _, _ := mapValues(t, root, twoAlleles())
	// T (10 reads) and A (4 reads) sorted; the third slot is absent.
	assert.Equal(t, []float64{0, 1, mapper.Sentinel}, got[:3])
	assert.InDeltaSlice(t, []float64{1, 0.3, mapper.Sentinel, 0, 0.1, mapper.Sentinel}, got[6:12], 1e-9)
	assert.InDeltaSlice(t, []float64{10.0 / 30, 0.1, mapper.Sentinel}, got[12:15], 1e-9)
}

func TestGenotypeV4RequiresPopulationMaxima(t *testing.T) {
	props := presetProps()
	_, err := GenotypeV4(props)
	assert.ErrorIs(t, err, properties.ErrMissingKey)

	props[properties.NormalizationMaxKey("counts")] = "20"
	props[properties.NormalizationMaxKey("readIndices")] = "4"
	root, err := GenotypeV4(props)
	require.NoError(t, err)
	assert.Equal(t, 195, root.NumFeatures())

	got, _, _ := mapValues(t, root, twoAlleles())
	assert.InDeltaSlice(t, []float64{0.5, 0.15}, got[3:5], 1e-9)
	assert.InDeltaSlice(t, []float64{0.5, 0.5}, got[9:11], 1e-9)
}

func TestPresetsRequirePloidy(t *testing.T) {
	for name, build := range map[string]func(properties.Properties) (*mapper.Node, error){
		"v38":     GenotypeV38,
		"v4":      GenotypeV4,
		"somatic": SomaticCounts,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := build(properties.Properties{properties.KeyGenomicContextSize: "4"})
			assert.ErrorIs(t, err, properties.ErrMissingKey)
		})
	}
}

func TestSomaticCountsMasksMissingTumor(t *testing.T) {
	root, err := SomaticCounts(presetProps())
	require.NoError(t, err)
	require.Equal(t, 12, root.NumFeatures())

	got, st, f := mapValues(t, root, twoAlleles())
	assert.InDeltaSlice(t, []float64{10.0 / 14, 3.0 / 14}, got[:2], 1e-9)
	for i := 6; i < 12; i++ {
		assert.Equal(t, mapper.Sentinel, got[i])
		masked, err := st.IsMasked(f, i)
		require.NoError(t, err)
		assert.True(t, masked)
	}
}
