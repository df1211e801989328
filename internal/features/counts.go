// Package features holds the leaf extraction mappers and the preset trees
// assembled from them.
package features

import (
	"fmt"

	"genomap/internal/mapper"
	"genomap/internal/record"
)

// Slot addresses one allele count of one sample, in the frame's order.
type Slot struct {
	Sample int
	Count  int
	// Masked makes the leaf report the slot as masked when the record has no
	// such sample or count.
	Masked bool
}

func (s Slot) lookup(f *mapper.Frame) (record.Count, bool) {
	return f.Count(s.Sample, s.Count)
}

func (s Slot) HasMask() bool { return s.Masked }

func (s Slot) IsMasked(f *mapper.Frame, _ []float64, _ int) bool {
	_, ok := s.lookup(f)
	return !ok
}

func (s Slot) prefix() string {
	return fmt.Sprintf("sample%d.genotype%d", s.Sample, s.Count)
}

// GenotypeCount is the number of reads supporting the allele on one strand.
type GenotypeCount struct {
	mapper.Stateless
	Slot
	Strand record.Strand
}

func NewGenotypeCount(slot Slot, strand record.Strand) *GenotypeCount {
	return &GenotypeCount{Slot: slot, Strand: strand}
}

func (m *GenotypeCount) NumFeatures() int { return 1 }

func (m *GenotypeCount) FeatureName(int) string {
	return m.prefix() + ".count." + m.Strand.String()
}

func (m *GenotypeCount) Produce(f *mapper.Frame, _ []float64, _ int) float64 {
	c, ok := m.lookup(f)
	if !ok {
		return mapper.Sentinel
	}
	if m.Strand == record.Reverse {
		return float64(c.GenotypeCountReverseStrand)
	}
	return float64(c.GenotypeCountForwardStrand)
}

// ReadIndexCount is the number of distinct read positions the allele was
// observed at on one strand.
type ReadIndexCount struct {
	mapper.Stateless
	Slot
	Strand record.Strand
}

func NewReadIndexCount(slot Slot, strand record.Strand) *ReadIndexCount {
	return &ReadIndexCount{Slot: slot, Strand: strand}
}

func (m *ReadIndexCount) NumFeatures() int { return 1 }

func (m *ReadIndexCount) FeatureName(int) string {
	return m.prefix() + ".readIndices." + m.Strand.String()
}

func (m *ReadIndexCount) Produce(f *mapper.Frame, _ []float64, _ int) float64 {
	c, ok := m.lookup(f)
	if !ok {
		return mapper.Sentinel
	}
	if m.Strand == record.Reverse {
		return float64(record.Distinct(c.ReadIndicesReverseStrand))
	}
	return float64(record.Distinct(c.ReadIndicesForwardStrand))
}

// Flag extracts one boolean property of an allele as 1 or 0.
type Flag struct {
	mapper.Stateless
	Slot
	Name string
	Get  func(record.Count) bool
}

func NewMatchesReference(slot Slot) *Flag {
	return &Flag{Slot: slot, Name: "matchesReference", Get: func(c record.Count) bool { return c.MatchesReference }}
}

func NewIsIndel(slot Slot) *Flag {
	return &Flag{Slot: slot, Name: "isIndel", Get: func(c record.Count) bool { return c.IsIndel }}
}

func (m *Flag) NumFeatures() int { return 1 }

func (m *Flag) FeatureName(int) string { return m.prefix() + "." + m.Name }

func (m *Flag) Produce(f *mapper.Frame, _ []float64, _ int) float64 {
	c, ok := m.lookup(f)
	if !ok {
		return mapper.Sentinel
	}
	if m.Get(c) {
		return 1
	}
	return 0
}

// OriginalIndex reports where the allele sat before counts were sorted.
type OriginalIndex struct {
	mapper.Stateless
	Slot
}

func NewOriginalIndex(slot Slot) *OriginalIndex { return &OriginalIndex{Slot: slot} }

func (m *OriginalIndex) NumFeatures() int { return 1 }

func (m *OriginalIndex) FeatureName(int) string { return m.prefix() + ".originalIndex" }

func (m *OriginalIndex) Produce(f *mapper.Frame, _ []float64, _ int) float64 {
	c, ok := m.lookup(f)
	if !ok {
		return mapper.Sentinel
	}
	return float64(c.OriginalIndex)
}
