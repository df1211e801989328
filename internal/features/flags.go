package features

import (
	"fmt"

	"genomap/internal/mapper"
	"genomap/internal/record"
)

// NumPairFlagBits covers the SAM flag bits 0x1 through 0x800.
const NumPairFlagBits = 12

var pairFlagNames = [NumPairFlagBits]string{
	"paired", "properPair", "unmapped", "mateUnmapped", "reverse", "mateReverse",
	"first", "second", "secondary", "qcFail", "duplicate", "supplementary",
}

// PairFlags is the fraction of the allele's reads carrying each SAM flag bit.
type PairFlags struct {
	Slot
}

func NewPairFlags(slot Slot) *PairFlags { return &PairFlags{Slot: slot} }

func (m *PairFlags) NumFeatures() int { return NumPairFlagBits }

func (m *PairFlags) FeatureName(i int) string {
	return fmt.Sprintf("%s.pairFlags.%s", m.prefix(), pairFlagNames[i])
}

func (m *PairFlags) ScratchSize() int { return NumPairFlagBits }

func (m *PairFlags) Prepare(f *mapper.Frame, scratch []float64) error {
	c, ok := m.lookup(f)
	if !ok {
		for i := range scratch {
			scratch[i] = mapper.Sentinel
		}
		return nil
	}
	total := record.Total(c.PairFlags)
	if total == 0 {
		return nil
	}
	for _, nf := range c.PairFlags {
		if nf.Frequency <= 0 {
			continue
		}
		for bit := 0; bit < NumPairFlagBits; bit++ {
			if nf.Number&(1<<bit) != 0 {
				scratch[bit] += float64(nf.Frequency)
			}
		}
	}
	for i := range scratch {
		scratch[i] /= float64(total)
	}
	return nil
}

func (m *PairFlags) Produce(_ *mapper.Frame, scratch []float64, i int) float64 {
	return scratch[i]
}
