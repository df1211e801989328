package features

import (
	"fmt"
	"strings"

	"genomap/internal/mapper"
	"genomap/internal/properties"
)

var contextBases = [...]byte{'A', 'C', 'T', 'G', 'N'}

// NumContextSymbols is the one-hot width of a context position: the five
// bases plus one slot for anything else.
const NumContextSymbols = len(contextBases) + 1

// GenomicContext one-hot encodes the reference sequence around the site.
// The record's context is centred in a window of Length positions; a longer
// context is trimmed evenly on both sides, a shorter one leaves padded
// positions that are reported as masked.
type GenomicContext struct {
	mapper.Stateless
	Length int
}

func NewGenomicContext(length int) (*GenomicContext, error) {
	if length < 0 {
		return nil, fmt.Errorf("%w: genomic context length %d", properties.ErrInvalidValue, length)
	}
	return &GenomicContext{Length: length}, nil
}

// NewGenomicContextFromProperties sizes the window from
// stats.genomicContextSize.min.
func NewGenomicContextFromProperties(props properties.Properties) (*GenomicContext, error) {
	n, err := props.GenomicContextSize()
	if err != nil {
		return nil, err
	}
	return NewGenomicContext(n)
}

func (m *GenomicContext) NumFeatures() int { return m.Length * NumContextSymbols }

func (m *GenomicContext) FeatureName(i int) string {
	pos, sym := i/NumContextSymbols, i%NumContextSymbols
	symbol := "other"
	if sym < len(contextBases) {
		symbol = string(contextBases[sym])
	}
	return fmt.Sprintf("genomicContext[%d].%s", pos, symbol)
}

func (m *GenomicContext) HasMask() bool { return true }

// base returns the context character at window position pos, or false when
// pos falls in padding.
func (m *GenomicContext) base(f *mapper.Frame, pos int) (byte, bool) {
	ctx := f.Record().GenomicSequenceContext
	shift := (len(ctx) - m.Length) / 2
	if len(ctx) < m.Length {
		shift = -((m.Length - len(ctx) + 1) / 2)
	}
	at := pos + shift
	if at < 0 || at >= len(ctx) {
		return 0, false
	}
	return ctx[at], true
}

func (m *GenomicContext) Produce(f *mapper.Frame, _ []float64, i int) float64 {
	b, ok := m.base(f, i/NumContextSymbols)
	if !ok {
		return 0
	}
	sym := strings.IndexByte(string(contextBases[:]), upper(b))
	if sym < 0 {
		sym = len(contextBases)
	}
	if sym == i%NumContextSymbols {
		return 1
	}
	return 0
}

func (m *GenomicContext) IsMasked(f *mapper.Frame, _ []float64, i int) bool {
	_, ok := m.base(f, i/NumContextSymbols)
	return !ok
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}
