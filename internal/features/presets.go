package features

import (
	"fmt"

	"genomap/internal/mapper"
	"genomap/internal/properties"
	"genomap/internal/record"
)

const countCeiling = 30

// builder collects the first error of a preset so that the layout reads
// top to bottom.
type builder struct {
	props  properties.Properties
	sample int
	slots  int
	err    error
}

func newBuilder(props properties.Properties) (*builder, error) {
	ploidy, err := props.Ploidy()
	if err != nil {
		return nil, err
	}
	sample, err := props.SampleIndex()
	if err != nil {
		return nil, err
	}
	return &builder{props: props, sample: sample, slots: ploidy + 1}, nil
}

func (b *builder) slot(i int) Slot { return Slot{Sample: b.sample, Count: i} }

func (b *builder) concat(children ...*mapper.Node) *mapper.Node {
	if b.err != nil {
		return nil
	}
	n, err := mapper.Concat(children...)
	if err != nil {
		b.err = err
	}
	return n
}

func (b *builder) wrap(child *mapper.Node, norm mapper.Normalization) *mapper.Node {
	if b.err != nil {
		return nil
	}
	n, err := mapper.Wrap(child, norm)
	if err != nil {
		b.err = err
	}
	return n
}

// perSlot concatenates one leaf per count slot.
func (b *builder) perSlot(leaf func(Slot) (mapper.Leaf, error)) *mapper.Node {
	nodes := make([]*mapper.Node, 0, b.slots)
	for i := 0; i < b.slots; i++ {
		if b.err != nil {
			return nil
		}
		l, err := leaf(b.slot(i))
		if err != nil {
			b.err = err
			return nil
		}
		nodes = append(nodes, mapper.NewLeaf(l))
	}
	return b.concat(nodes...)
}

// strands lays out the forward leaves of every slot, then the reverse ones.
func (b *builder) strands(leaf func(Slot, record.Strand) (mapper.Leaf, error)) *mapper.Node {
	fwd := b.perSlot(func(s Slot) (mapper.Leaf, error) { return leaf(s, record.Forward) })
	rev := b.perSlot(func(s Slot) (mapper.Leaf, error) { return leaf(s, record.Reverse) })
	return b.concat(fwd, rev)
}

func (b *builder) counts() *mapper.Node {
	return b.strands(func(s Slot, st record.Strand) (mapper.Leaf, error) { return NewGenotypeCount(s, st), nil })
}

func (b *builder) readIndices() *mapper.Node {
	return b.strands(func(s Slot, st record.Strand) (mapper.Leaf, error) { return NewReadIndexCount(s, st), nil })
}

func (b *builder) density(field string, policy CapPolicy) *mapper.Node {
	return b.perSlot(func(s Slot) (mapper.Leaf, error) { return NewFieldDensity(b.props, s, field, policy) })
}

func (b *builder) unitDensity(name string, acc record.FieldAccessor, min, max int) *mapper.Node {
	return b.perSlot(func(s Slot) (mapper.Leaf, error) {
		return NewDensity(s.prefix()+"."+name, UnitBins(min, max), OneCount(s, acc))
	})
}

func (b *builder) context() *mapper.Node {
	if b.err != nil {
		return nil
	}
	gc, err := NewGenomicContextFromProperties(b.props)
	if err != nil {
		b.err = err
		return nil
	}
	return mapper.NewLeaf(gc)
}

func (b *builder) field(name string) record.FieldAccessor {
	acc, ok := record.LookupField(name)
	if !ok && b.err == nil {
		b.err = fmt.Errorf("%w: unknown field %q", properties.ErrInvalidValue, name)
	}
	return acc
}

func (b *builder) histogram(field string, bins int) Histogram {
	if b.err != nil {
		return Histogram{}
	}
	h, err := HistogramFor(b.props, field, Uncapped)
	if err != nil {
		b.err = err
		return Histogram{}
	}
	if _, set := b.props.Lookup(properties.BinsKey(fieldBase(field))); !set && bins > 0 {
		h.Bins = bins
	}
	return h
}

func (b *builder) leaf(l mapper.Leaf, err error) *mapper.Node {
	if b.err != nil {
		return nil
	}
	if err != nil {
		b.err = err
		return nil
	}
	return mapper.NewLeaf(l)
}

// sampleDensity bins a field over every allele of the configured sample.
func (b *builder) sampleDensity(field string, bins int) *mapper.Node {
	h := b.histogram(field, bins)
	acc := b.field(field)
	if b.err != nil {
		return nil
	}
	return b.leaf(NewDensity(fmt.Sprintf("sample%d.%s", b.sample, field), h, SampleCounts(b.sample, acc)))
}

// allSamplesDensity bins a field over every allele of every sample.
func (b *builder) allSamplesDensity(field string) *mapper.Node {
	h := b.histogram(field, 0)
	acc := b.field(field)
	if b.err != nil {
		return nil
	}
	return b.leaf(NewDensity("allSamples."+field, h, AllCounts(acc)))
}

func (b *builder) populationMax(name string) mapper.Normalization {
	if b.err != nil {
		return mapper.Normalization{}
	}
	v, err := b.props.Float(properties.NormalizationMaxKey(name))
	if err != nil {
		b.err = err
	}
	return mapper.Max(v)
}

func (b *builder) done(root *mapper.Node) (*mapper.Node, error) {
	if b.err != nil {
		return nil, b.err
	}
	return root, nil
}

// GenotypeV38 is the full genotype input layout: ploidy+1 sorted alleles,
// each described by flags, normalized counts, genomic context and read
// level histograms.
func GenotypeV38(props properties.Properties) (*mapper.Node, error) {
	b, err := newBuilder(props)
	if err != nil {
		return nil, err
	}
	contextLen, err := props.GenomicContextSize()
	if err != nil {
		return nil, err
	}
	distances := record.Both(b.field("distancesToReadVariations.forward"), b.field("distancesToReadVariations.reverse"))

	root := b.concat(
		b.perSlot(func(s Slot) (mapper.Leaf, error) { return NewMatchesReference(s), nil }),
		b.perSlot(func(s Slot) (mapper.Leaf, error) { return NewOriginalIndex(s), nil }),
		b.wrap(b.counts(), mapper.Inverse()),
		b.wrap(b.counts(), mapper.Ceiling(countCeiling)),
		b.wrap(b.readIndices(), mapper.Inverse()),
		b.context(),
		b.density("targetAlignedLength", Uncapped),
		b.density("queryAlignedLength", Uncapped),
		b.density("queryPosition", Uncapped),
		b.allSamplesDensity("numVariationsInRead"),
		b.unitDensity("distancesToReadVariations", distances, -50, 50),
		b.unitDensity("distanceToStartOfRead", b.field("distanceToStartOfRead"), 0, contextLen/2),
		b.unitDensity("distanceToEndOfRead", b.field("distanceToEndOfRead"), 0, contextLen/2),
		b.density("numVariationsInRead", Uncapped),
		b.density("readMappingQuality.forward", Uncapped),
		b.density("readMappingQuality.reverse", Uncapped),
		b.density("qualityScores.forward", Uncapped),
		b.density("qualityScores.reverse", Uncapped),
		b.perSlot(func(s Slot) (mapper.Leaf, error) { return NewPairFlags(s), nil }),
	)
	return b.done(root)
}

// GenotypeV4 is the compact genotype layout. Counts are scaled by fixed
// population maxima read from normalization.counts.max and
// normalization.readIndices.max.
func GenotypeV4(props properties.Properties) (*mapper.Node, error) {
	b, err := newBuilder(props)
	if err != nil {
		return nil, err
	}
	root := b.concat(
		b.perSlot(func(s Slot) (mapper.Leaf, error) { return NewMatchesReference(s), nil }),
		b.wrap(b.counts(), b.populationMax("counts")),
		b.wrap(b.readIndices(), b.populationMax("readIndices")),
		b.context(),
		b.sampleDensity("numVariationsInRead", 20),
		b.sampleDensity("readMappingQuality.forward", 10),
		b.sampleDensity("readMappingQuality.reverse", 10),
		b.sampleDensity("qualityScores.forward", 10),
		b.sampleDensity("qualityScores.reverse", 10),
	)
	return b.done(root)
}

// SomaticCounts compares the allele counts of a germline sample (0) and a
// tumor sample (1). Missing alleles are masked rather than reported as
// zero support.
func SomaticCounts(props properties.Properties) (*mapper.Node, error) {
	b, err := newBuilder(props)
	if err != nil {
		return nil, err
	}
	var samples []*mapper.Node
	for sample := 0; sample < 2; sample++ {
		b.sample = sample
		counts := b.strands(func(s Slot, st record.Strand) (mapper.Leaf, error) {
			s.Masked = true
			return NewGenotypeCount(s, st), nil
		})
		samples = append(samples, b.wrap(counts, mapper.Sum()))
	}
	return b.done(b.concat(samples...))
}
