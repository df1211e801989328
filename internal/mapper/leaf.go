package mapper

// Sentinel is produced for a slot whose sample or allele is absent from the
// record. Consumers treat it as "absent", never as a measurement.
const Sentinel = -1.0

// Leaf extracts scalars from one part of a record.
//
// ScratchSize declares how many floats of per-record state the leaf needs.
// Prepare receives exactly that many and runs once per record before any
// Produce call; Produce must only read from scratch.
type Leaf interface {
	NumFeatures() int
	FeatureName(i int) string
	ScratchSize() int
	Prepare(f *Frame, scratch []float64) error
	Produce(f *Frame, scratch []float64, i int) float64
}

// Masker is implemented by leaves that can report slots as invalid for a
// record. HasMask must not change after construction.
type Masker interface {
	HasMask() bool
	IsMasked(f *Frame, scratch []float64, i int) bool
}

// Shaped is implemented by leaves whose output is not a flat vector.
type Shaped interface {
	Dimensions() Dimensions
}

// Stateless can be embedded by leaves without a pre-pass.
type Stateless struct{}

func (Stateless) ScratchSize() int { return 0 }

func (Stateless) Prepare(_ *Frame, _ []float64) error { return nil }

// Sink receives mapped values at (row, column). *mat.Dense satisfies it.
type Sink interface {
	Set(row, col int, v float64)
}
