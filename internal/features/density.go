package features

import (
	"fmt"
	"math"
	"strings"

	"genomap/internal/mapper"
	"genomap/internal/properties"
	"genomap/internal/record"
)

// CapPolicy decides what happens to values outside a histogram's range.
type CapPolicy uint8

const (
	// Uncapped values spill into the first or last bin.
	Uncapped CapPolicy = iota
	// Capped values outside [Min, Max] are not counted.
	Capped
)

// Histogram fixes the binning of a density leaf.
type Histogram struct {
	Bins   int
	Min    float64
	Max    float64
	Policy CapPolicy
}

func (h Histogram) Validate() error {
	if h.Bins <= 0 {
		return fmt.Errorf("histogram needs at least one bin, got %d", h.Bins)
	}
	if math.IsNaN(h.Min) || math.IsNaN(h.Max) || h.Max < h.Min {
		return fmt.Errorf("histogram range [%v,%v] is invalid", h.Min, h.Max)
	}
	return nil
}

// UnitBins spans the integers min..max with one bin each, capped.
func UnitBins(min, max int) Histogram {
	if max < min {
		max = min
	}
	return Histogram{Bins: max - min + 1, Min: float64(min), Max: float64(max), Policy: Capped}
}

// bin returns the bin of v, or -1 if v is excluded.
func (h Histogram) bin(v float64) int {
	if h.Policy == Capped && (v < h.Min || v > h.Max) {
		return -1
	}
	width := (h.Max - h.Min) / float64(h.Bins)
	if width <= 0 {
		return 0
	}
	b := int(math.Floor((v - h.Min) / width))
	if b < 0 {
		b = 0
	}
	if b >= h.Bins {
		b = h.Bins - 1
	}
	return b
}

// Source yields the histogram a density leaf bins for the current record.
// ok is false when the record lacks the addressed sample or allele.
type Source func(f *mapper.Frame) (values []record.NumberWithFrequency, ok bool)

// OneCount reads a field of one allele.
func OneCount(slot Slot, field record.FieldAccessor) Source {
	return func(f *mapper.Frame) ([]record.NumberWithFrequency, bool) {
		c, ok := slot.lookup(f)
		if !ok {
			return nil, false
		}
		return field(c), true
	}
}

// SampleCounts reads a field across all alleles of one sample.
func SampleCounts(sample int, field record.FieldAccessor) Source {
	return func(f *mapper.Frame) ([]record.NumberWithFrequency, bool) {
		counts, ok := f.Counts(sample)
		if !ok {
			return nil, false
		}
		var out []record.NumberWithFrequency
		for _, c := range counts {
			out = append(out, field(c)...)
		}
		return out, true
	}
}

// AllCounts reads a field across every allele of every sample.
func AllCounts(field record.FieldAccessor) Source {
	return func(f *mapper.Frame) ([]record.NumberWithFrequency, bool) {
		rec := f.Record()
		var out []record.NumberWithFrequency
		for s := range rec.Samples {
			counts, _ := f.Counts(s)
			for _, c := range counts {
				out = append(out, field(c)...)
			}
		}
		return out, true
	}
}

// Density is the normalized histogram of a field: each slot holds the share
// of observations falling in one bin.
type Density struct {
	Name      string
	Histogram Histogram
	Source    Source
	// Mask reports every bin masked when the source is absent.
	Mask bool
}

func NewDensity(name string, h Histogram, src Source) (*Density, error) {
	if err := h.Validate(); err != nil {
		return nil, fmt.Errorf("density %s: %w", name, err)
	}
	if src == nil {
		return nil, fmt.Errorf("density %s: source is required", name)
	}
	return &Density{Name: name, Histogram: h, Source: src}, nil
}

func (m *Density) NumFeatures() int { return m.Histogram.Bins }

func (m *Density) FeatureName(i int) string {
	return fmt.Sprintf("%s.density[%d]", m.Name, i)
}

// Scratch holds one share per bin plus a trailing presence marker.
func (m *Density) ScratchSize() int { return m.Histogram.Bins + 1 }

func (m *Density) Prepare(f *mapper.Frame, scratch []float64) error {
	bins := scratch[:m.Histogram.Bins]
	values, ok := m.Source(f)
	if !ok {
		for i := range bins {
			bins[i] = mapper.Sentinel
		}
		scratch[m.Histogram.Bins] = 0
		return nil
	}
	scratch[m.Histogram.Bins] = 1
	total := 0.0
	for _, nf := range values {
		if nf.Frequency <= 0 {
			continue
		}
		b := m.Histogram.bin(float64(nf.Number))
		if b < 0 {
			continue
		}
		bins[b] += float64(nf.Frequency)
		total += float64(nf.Frequency)
	}
	if total == 0 {
		return nil
	}
	for i := range bins {
		bins[i] /= total
	}
	return nil
}

func (m *Density) Produce(_ *mapper.Frame, scratch []float64, i int) float64 {
	return scratch[i]
}

func (m *Density) HasMask() bool { return m.Mask }

func (m *Density) IsMasked(_ *mapper.Frame, scratch []float64, _ int) bool {
	return scratch[m.Histogram.Bins] == 0
}

func fieldBase(field string) string {
	return strings.TrimSuffix(strings.TrimSuffix(field, ".forward"), ".reverse")
}

type fieldRange struct{ min, max float64 }

// defaultRanges are used when the configuration has no stats for a field.
var defaultRanges = map[string]fieldRange{
	"queryPosition":             {0, 150},
	"readMappingQuality":        {0, 60},
	"qualityScores":             {0, 40},
	"numVariationsInRead":       {0, 20},
	"targetAlignedLength":       {0, 150},
	"queryAlignedLength":        {0, 150},
	"insertSizes":               {0, 1000},
	"distancesToReadVariations": {0, 150},
	"distanceToStartOfRead":     {0, 150},
	"distanceToEndOfRead":       {0, 150},
}

const defaultBins = 10

// HistogramFor reads the binning of a field from properties. The strand
// suffix of a field name is ignored when looking up its range.
func HistogramFor(props properties.Properties, field string, policy CapPolicy) (Histogram, error) {
	base := fieldBase(field)
	r, ok := defaultRanges[base]
	if !ok {
		r = fieldRange{0, 100}
	}
	bins, err := props.Bins(base, defaultBins)
	if err != nil {
		return Histogram{}, err
	}
	min, err := props.FloatOr(properties.StatsMinKey(base), r.min)
	if err != nil {
		return Histogram{}, err
	}
	max, err := props.FloatOr(properties.StatsMaxKey(base), r.max)
	if err != nil {
		return Histogram{}, err
	}
	h := Histogram{Bins: bins, Min: min, Max: max, Policy: policy}
	if err := h.Validate(); err != nil {
		return Histogram{}, fmt.Errorf("%w: %s: %v", properties.ErrInvalidValue, base, err)
	}
	return h, nil
}

// NewFieldDensity bins a named field of one allele.
func NewFieldDensity(props properties.Properties, slot Slot, field string, policy CapPolicy) (*Density, error) {
	acc, ok := record.LookupField(field)
	if !ok {
		return nil, fmt.Errorf("%w: unknown field %q", properties.ErrInvalidValue, field)
	}
	h, err := HistogramFor(props, field, policy)
	if err != nil {
		return nil, err
	}
	d, err := NewDensity(slot.prefix()+"."+field, h, OneCount(slot, acc))
	if err != nil {
		return nil, err
	}
	d.Mask = slot.Masked
	return d, nil
}
