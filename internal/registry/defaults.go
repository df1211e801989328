package registry

import (
	"fmt"

	"genomap/internal/features"
	"genomap/internal/labels"
	"genomap/internal/mapper"
	"genomap/internal/properties"
	"genomap/internal/record"
)

// Feature kinds registered by default.
const (
	KindGenotypeCount    = "genotype-count"
	KindReadIndexCount   = "read-index-count"
	KindMatchesReference = "matches-reference"
	KindIsIndel          = "is-indel"
	KindOriginalIndex    = "original-index"
	KindPairFlags        = "pair-flags"
	KindDensity          = "density"
	KindDensityCapped    = "density-capped"
	KindGenomicContext   = "genomic-context"
	KindGenotypeV38      = "genotype-v38"
	KindGenotypeV4       = "genotype-v4"
	KindSomaticCounts    = "somatic-counts"
)

// Output names registered by default.
const (
	OutputHomozygous         = "homozygous"
	OutputNumDistinctAlleles = "numDistinctAlleles"
	OutputCombined           = "combined"
	OutputMetaData           = "metaData"
)

func init() {
	initializeDefaultComponents()
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func initializeDefaultComponents() {
	slotLeaf := func(build func(features.Slot) mapper.Leaf) FeatureFactory {
		return func(props, params properties.Properties) (*mapper.Node, error) {
			slot, err := slotFrom(props, params)
			if err != nil {
				return nil, err
			}
			return mapper.NewLeaf(build(slot)), nil
		}
	}
	strandLeaf := func(build func(features.Slot, record.Strand) mapper.Leaf) FeatureFactory {
		return func(props, params properties.Properties) (*mapper.Node, error) {
			slot, err := slotFrom(props, params)
			if err != nil {
				return nil, err
			}
			strand, err := record.ParseStrand(params["strand"])
			if err != nil {
				return nil, fmt.Errorf("%w: %v", properties.ErrInvalidValue, err)
			}
			return mapper.NewLeaf(build(slot, strand)), nil
		}
	}
	preset := func(build func(properties.Properties) (*mapper.Node, error)) FeatureFactory {
		return func(props, _ properties.Properties) (*mapper.Node, error) { return build(props) }
	}

	must(RegisterFeature(KindGenotypeCount, strandLeaf(func(s features.Slot, st record.Strand) mapper.Leaf {
		return features.NewGenotypeCount(s, st)
	})))
	must(RegisterFeature(KindReadIndexCount, strandLeaf(func(s features.Slot, st record.Strand) mapper.Leaf {
		return features.NewReadIndexCount(s, st)
	})))
	must(RegisterFeature(KindMatchesReference, slotLeaf(func(s features.Slot) mapper.Leaf { return features.NewMatchesReference(s) })))
	must(RegisterFeature(KindIsIndel, slotLeaf(func(s features.Slot) mapper.Leaf { return features.NewIsIndel(s) })))
	must(RegisterFeature(KindOriginalIndex, slotLeaf(func(s features.Slot) mapper.Leaf { return features.NewOriginalIndex(s) })))
	must(RegisterFeature(KindPairFlags, slotLeaf(func(s features.Slot) mapper.Leaf { return features.NewPairFlags(s) })))
	must(RegisterFeature(KindDensity, densityFactory))
	must(RegisterFeature(KindDensityCapped, cappedDensityFactory))
	must(RegisterFeature(KindGenomicContext, genomicContextFactory))

	must(RegisterFeatureWithSpec(FeatureSpec{
		Name:          KindGenotypeV38,
		Factory:       preset(features.GenotypeV38),
		SchemaVersion: SupportedSchemaVersion,
		CodecVersion:  SupportedCodecVersion,
		Compatible:    requireKeys(properties.KeyPloidy, properties.KeyGenomicContextSize),
	}))
	must(RegisterFeatureWithSpec(FeatureSpec{
		Name:          KindGenotypeV4,
		Factory:       preset(features.GenotypeV4),
		SchemaVersion: SupportedSchemaVersion,
		CodecVersion:  SupportedCodecVersion,
		Compatible: requireKeys(properties.KeyPloidy, properties.KeyGenomicContextSize,
			properties.NormalizationMaxKey("counts"), properties.NormalizationMaxKey("readIndices")),
	}))
	must(RegisterFeatureWithSpec(FeatureSpec{
		Name:          KindSomaticCounts,
		Factory:       preset(features.SomaticCounts),
		SchemaVersion: SupportedSchemaVersion,
		CodecVersion:  SupportedCodecVersion,
		Compatible:    requireKeys(properties.KeyPloidy),
	}))

	for slot, name := range labels.SlotNames {
		must(RegisterOutput(name, func(props properties.Properties) (labels.Output, error) {
			sample, eps, err := labelSettings(props)
			if err != nil {
				return labels.Output{}, err
			}
			return labels.NewOutput(name, labels.Genotype(sample, slot, eps), false)
		}))
	}
	must(RegisterOutput(OutputHomozygous, func(props properties.Properties) (labels.Output, error) {
		sample, eps, err := labelSettings(props)
		if err != nil {
			return labels.Output{}, err
		}
		return labels.NewOutput(OutputHomozygous, labels.Homozygous(sample, eps), false)
	}))
	must(RegisterOutputWithSpec(OutputSpec{
		Name:          OutputNumDistinctAlleles,
		Factory:       ploidyOutput(OutputNumDistinctAlleles, labels.NumDistinctAlleles),
		SchemaVersion: SupportedSchemaVersion,
		CodecVersion:  SupportedCodecVersion,
		Compatible:    requireKeys(properties.KeyPloidy),
	}))
	must(RegisterOutputWithSpec(OutputSpec{
		Name:          OutputCombined,
		Factory:       ploidyOutput(OutputCombined, labels.Combined),
		SchemaVersion: SupportedSchemaVersion,
		CodecVersion:  SupportedCodecVersion,
		Compatible:    requireKeys(properties.KeyPloidy),
	}))
	must(RegisterOutput(OutputMetaData, func(properties.Properties) (labels.Output, error) {
		return labels.NewOutput(OutputMetaData, labels.MetaData{}, true)
	}))
}

// labelSettings reads the sample that per-slot labels describe, which is the
// sample the feature slots default to, and the smoothing amount.
func labelSettings(props properties.Properties) (int, float64, error) {
	sample, err := props.SampleIndex()
	if err != nil {
		return 0, 0, err
	}
	eps, err := props.Epsilon()
	if err != nil {
		return 0, 0, err
	}
	return sample, eps, nil
}

func requireKeys(keys ...string) CompatibilityFn {
	return func(props properties.Properties) error {
		for _, key := range keys {
			if _, ok := props.Lookup(key); !ok {
				return fmt.Errorf("%w: %s", properties.ErrMissingKey, key)
			}
		}
		return nil
	}
}

func ploidyOutput(name string, build func(ploidy int, eps float64) *labels.Classifier) OutputFactory {
	return func(props properties.Properties) (labels.Output, error) {
		ploidy, err := props.Ploidy()
		if err != nil {
			return labels.Output{}, err
		}
		eps, err := props.Epsilon()
		if err != nil {
			return labels.Output{}, err
		}
		return labels.NewOutput(name, build(ploidy, eps), false)
	}
}

// slotFrom reads sample, count and masked from params. The sample
// defaults to input.sampleIndex.
func slotFrom(props, params properties.Properties) (features.Slot, error) {
	def, err := props.SampleIndex()
	if err != nil {
		return features.Slot{}, err
	}
	sample, err := params.IntOr("sample", def)
	if err != nil {
		return features.Slot{}, err
	}
	count, err := params.IntOr("count", 0)
	if err != nil {
		return features.Slot{}, err
	}
	masked, err := params.BoolOr("masked", false)
	if err != nil {
		return features.Slot{}, err
	}
	if sample < 0 || count < 0 {
		return features.Slot{}, fmt.Errorf("%w: negative sample or count", properties.ErrInvalidValue)
	}
	return features.Slot{Sample: sample, Count: count, Masked: masked}, nil
}

// densityFactory bins params["field"]. scope selects one allele ("count",
// the default), every allele of the sample ("sample") or every allele of
// every sample ("all").
func densityFactory(props, params properties.Properties) (*mapper.Node, error) {
	field, err := params.String("field")
	if err != nil {
		return nil, err
	}
	policy := features.Uncapped
	if capped, err := params.BoolOr("capped", false); err != nil {
		return nil, err
	} else if capped {
		policy = features.Capped
	}
	slot, err := slotFrom(props, params)
	if err != nil {
		return nil, err
	}
	scope, _ := params.Lookup("scope")
	if scope == "" || scope == "count" {
		d, err := features.NewFieldDensity(props, slot, field, policy)
		if err != nil {
			return nil, err
		}
		return mapper.NewLeaf(d), nil
	}

	acc, ok := record.LookupField(field)
	if !ok {
		return nil, fmt.Errorf("%w: unknown field %q", properties.ErrInvalidValue, field)
	}
	h, err := features.HistogramFor(props, field, policy)
	if err != nil {
		return nil, err
	}
	var d *features.Density
	switch scope {
	case "sample":
		d, err = features.NewDensity(fmt.Sprintf("sample%d.%s", slot.Sample, field), h, features.SampleCounts(slot.Sample, acc))
	case "all":
		d, err = features.NewDensity("allSamples."+field, h, features.AllCounts(acc))
	default:
		return nil, fmt.Errorf("%w: density scope %q", properties.ErrInvalidValue, scope)
	}
	if err != nil {
		return nil, err
	}
	return mapper.NewLeaf(d), nil
}

// cappedDensityFactory bins params["field"] of one allele with one bin per
// integer in [min, max].
func cappedDensityFactory(props, params properties.Properties) (*mapper.Node, error) {
	field, err := params.String("field")
	if err != nil {
		return nil, err
	}
	acc, ok := record.LookupField(field)
	if !ok {
		return nil, fmt.Errorf("%w: unknown field %q", properties.ErrInvalidValue, field)
	}
	lo, err := params.Int("min")
	if err != nil {
		return nil, err
	}
	hi, err := params.Int("max")
	if err != nil {
		return nil, err
	}
	slot, err := slotFrom(props, params)
	if err != nil {
		return nil, err
	}
	name := fmt.Sprintf("sample%d.genotype%d.%s", slot.Sample, slot.Count, field)
	d, err := features.NewDensity(name, features.UnitBins(lo, hi), features.OneCount(slot, acc))
	if err != nil {
		return nil, err
	}
	d.Mask = slot.Masked
	return mapper.NewLeaf(d), nil
}

func genomicContextFactory(props, params properties.Properties) (*mapper.Node, error) {
	if _, ok := params.Lookup("length"); !ok {
		gc, err := features.NewGenomicContextFromProperties(props)
		if err != nil {
			return nil, err
		}
		return mapper.NewLeaf(gc), nil
	}
	length, err := params.Int("length")
	if err != nil {
		return nil, err
	}
	gc, err := features.NewGenomicContext(length)
	if err != nil {
		return nil, err
	}
	return mapper.NewLeaf(gc), nil
}
