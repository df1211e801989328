package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"genomap/internal/labels"
	"genomap/internal/mapper"
	"genomap/internal/record"
)

const smallConfig = `
properties:
  genotypes:
    ploidy: 2
  stats:
    genomicContextSize:
      min: 3
  labels:
    smoothing:
      epsilon: 0.1
input:
  concat:
    - kind: genotype-count
      params: {count: 0}
    - kind: genotype-count
      params: {count: 1, masked: true}
    - kind: genomic-context
outputs: [A, T, numDistinctAlleles, metaData]
`

func newSmallDomain(t *testing.T) *Domain {
	t.Helper()
	cfg, err := ParseConfig([]byte(smallConfig))
	require.NoError(t, err)
	d, err := New(cfg)
	require.NoError(t, err)
	return d
}

func hetRecord() *record.Record {
	return &record.Record{
		ReferenceBase:          "A",
		GenomicSequenceContext: "CAG",
		TrueGenotype:           "A|T",
		Samples: []record.Sample{{Counts: []record.Count{
			{ToSequence: "A", GenotypeCountForwardStrand: 2},
			{ToSequence: "T", GenotypeCountForwardStrand: 7},
		}}},
	}
}

func TestDomainShape(t *testing.T) {
	d := newSmallDomain(t)

	assert.Equal(t, 2+3*6, d.NumInputs())
	n, err := d.NumOutputs("numDistinctAlleles")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	_, err = d.NumOutputs("combined")
	assert.ErrorIs(t, err, ErrUnknownOutput)

	shape := d.Shape()
	assert.Equal(t, []int{20}, shape.Input.Sizes())
	assert.True(t, shape.InputMask)
	assert.True(t, shape.SortCounts)
	assert.Equal(t, map[string]int{"A": 2, "T": 2, "numDistinctAlleles": 3, "metaData": 3}, shape.Outputs)
	assert.Equal(t, []string{"metaData"}, shape.Virtual)
	assert.Equal(t, "sample0.genotype1.count.forward", d.FeatureNames()[1])
}

func TestWorkerMapsFeaturesAndLabelsFromOneFrame(t *testing.T) {
	d := newSmallDomain(t)
	w := d.NewWorker()

	features := mat.NewDense(2, d.NumInputs(), nil)
	mask := mat.NewDense(2, d.NumInputs(), nil)
	outs := d.Outputs()
	labelSinks := make([]mapper.Sink, len(outs))
	dense := make([]*mat.Dense, len(outs))
	for i, out := range outs {
		dense[i] = mat.NewDense(2, out.NumLabels(), nil)
		labelSinks[i] = dense[i]
	}

	f := d.NewFrame(hetRecord())
	require.NoError(t, w.Map(f, Sinks{Features: features, Mask: mask, Labels: labelSinks}, 1))

	// T has more support and sorts first.
	assert.Equal(t, []float64{7, 2}, features.RawRowView(1)[:2])
	// Output A asks whether the allele in slot 0 (T) is called.
	assert.InDeltaSlice(t, []float64{0.1, 0.9}, dense[0].RawRowView(1), 1e-9)
	assert.InDeltaSlice(t, []float64{0.05, 0.05, 0.9}, dense[2].RawRowView(1), 1e-9)
	assert.Equal(t, []float64{1, 0, 0}, dense[3].RawRowView(1))
	assert.Zero(t, mask.At(1, 1))
	assert.Zero(t, mat.Sum(features.RowView(0)))
}

func TestWorkerFailureLeavesSinksUntouched(t *testing.T) {
	d := newSmallDomain(t)
	w := d.NewWorker()
	rec := hetRecord()
	rec.TrueGenotype = "A|T|C"

	features := mat.NewDense(1, d.NumInputs(), nil)
	err := w.Map(d.NewFrame(rec), Sinks{Features: features}, 0)
	assert.ErrorIs(t, err, labels.ErrAlleleCountExceedsPloidy)
	assert.Zero(t, mat.Sum(features))
}

func TestUnsortedDomain(t *testing.T) {
	cfg, err := ParseConfig([]byte(smallConfig + "sort_counts: false\n"))
	require.NoError(t, err)
	d, err := New(cfg)
	require.NoError(t, err)

	got := make([]float64, d.NumInputs())
	w := d.NewWorker()
	require.NoError(t, w.Map(d.NewFrame(hetRecord()), Sinks{Features: rowSink(got)}, 0))
	assert.Equal(t, []float64{2, 7}, got[:2])
}

func TestLabelsFollowConfiguredSample(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
properties:
  genotypes: {ploidy: 2}
  input: {sampleIndex: 1}
input:
  kind: genotype-count
  params: {count: 0}
outputs: [A, homozygous]
`))
	require.NoError(t, err)
	d, err := New(cfg)
	require.NoError(t, err)

	rec := &record.Record{
		TrueGenotype: "G|G",
		Samples: []record.Sample{
			{Counts: []record.Count{{ToSequence: "A", GenotypeCountForwardStrand: 5}}},
			{Counts: []record.Count{{ToSequence: "G", GenotypeCountForwardStrand: 4}}},
		},
	}
	features := make([]float64, d.NumInputs())
	alleleA := make([]float64, 2)
	homozygous := make([]float64, labels.NumAlleleSlots+1)
	w := d.NewWorker()
	require.NoError(t, w.Map(d.NewFrame(rec), Sinks{
		Features: rowSink(features),
		Labels:   []mapper.Sink{rowSink(alleleA), rowSink(homozygous)},
	}, 0))

	// Slot 0 of sample 1 holds G, which the site is called for.
	assert.Equal(t, []float64{4}, features)
	assert.Equal(t, []float64{0, 1}, alleleA)
	assert.Equal(t, 1.0, homozygous[1])
	assert.Zero(t, homozygous[0])
}

type rowSink []float64

func (r rowSink) Set(_, col int, v float64) { r[col] = v }

func TestNewRejectsBadConfig(t *testing.T) {
	cases := map[string]string{
		"epsilon":     "properties: {labels: {smoothing: {epsilon: 1.5}}}\ninput: {kind: is-indel}\n",
		"input":       "input: {kind: nope}\n",
		"output":      "input: {kind: is-indel}\noutputs: [nope]\n",
		"duplicate":   "input: {kind: is-indel}\noutputs: [metaData, metaData]\n",
		"no ploidy":   "input: {kind: is-indel}\noutputs: [combined]\n",
		"empty input": "outputs: [metaData]\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg, err := ParseConfig([]byte(doc))
			require.NoError(t, err)
			_, err = New(cfg)
			assert.Error(t, err)
		})
	}
}
