package mapper

import (
	"fmt"

	"genomap/internal/record"
)

// fixedLeaf serves constant values; masked slots are listed explicitly.
type fixedLeaf struct {
	Stateless
	name   string
	values []float64
	mask   []bool
}

func (l *fixedLeaf) NumFeatures() int         { return len(l.values) }
func (l *fixedLeaf) FeatureName(i int) string { return fmt.Sprintf("%s[%d]", l.name, i) }
func (l *fixedLeaf) Produce(_ *Frame, _ []float64, i int) float64 {
	return l.values[i]
}
func (l *fixedLeaf) HasMask() bool { return l.mask != nil }
func (l *fixedLeaf) IsMasked(_ *Frame, _ []float64, i int) bool {
	return l.mask[i]
}

func leaf(name string, values ...float64) *Node {
	return NewLeaf(&fixedLeaf{name: name, values: values})
}

func maskedLeaf(name string, values []float64, mask []bool) *Node {
	return NewLeaf(&fixedLeaf{name: name, values: values, mask: mask})
}

// supportLeaf exposes the per-allele support of sample 0 through a pre-pass
// and logs every Prepare call.
type supportLeaf struct {
	n   int
	log *[]string
}

func (l *supportLeaf) NumFeatures() int         { return l.n }
func (l *supportLeaf) FeatureName(i int) string { return fmt.Sprintf("support[%d]", i) }
func (l *supportLeaf) ScratchSize() int         { return l.n }
func (l *supportLeaf) Prepare(f *Frame, scratch []float64) error {
	if l.log != nil {
		*l.log = append(*l.log, "support")
	}
	for i := range scratch {
		c, ok := f.Count(0, i)
		if !ok {
			scratch[i] = Sentinel
			continue
		}
		scratch[i] = float64(c.Support())
	}
	return nil
}
func (l *supportLeaf) Produce(_ *Frame, scratch []float64, i int) float64 { return scratch[i] }

type shapedLeaf struct {
	fixedLeaf
	dims Dimensions
}

func (l *shapedLeaf) Dimensions() Dimensions { return l.dims }

type recordingSink struct {
	writes int
	cells  map[[2]int]float64
}

func (s *recordingSink) Set(row, col int, v float64) {
	if s.cells == nil {
		s.cells = make(map[[2]int]float64)
	}
	s.writes++
	s.cells[[2]int{row, col}] = v
}

func countsRecord(supports ...int) *record.Record {
	counts := make([]record.Count, len(supports))
	bases := []string{"A", "T", "C", "G", "N"}
	for i, s := range supports {
		counts[i] = record.Count{
			ToSequence:                 bases[i%len(bases)],
			GenotypeCountForwardStrand: s,
			OriginalIndex:              i,
		}
	}
	return &record.Record{Samples: []record.Sample{{Counts: counts}}}
}
