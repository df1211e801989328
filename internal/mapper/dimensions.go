package mapper

import (
	"fmt"
	"strings"
)

// Dimensions describes the shape of a mapper's output for one record. Most
// mappers are one-dimensional with a single axis of NumFeatures slots.
type Dimensions struct {
	sizes []int
}

func Dims(sizes ...int) Dimensions {
	return Dimensions{sizes: append([]int(nil), sizes...)}
}

func (d Dimensions) NumDimensions() int { return len(d.sizes) }

func (d Dimensions) Size(axis int) int {
	if axis < 0 || axis >= len(d.sizes) {
		return 0
	}
	return d.sizes[axis]
}

func (d Dimensions) Sizes() []int { return append([]int(nil), d.sizes...) }

// NumElements is the product of all axis sizes.
func (d Dimensions) NumElements() int {
	if len(d.sizes) == 0 {
		return 0
	}
	n := 1
	for _, s := range d.sizes {
		n *= s
	}
	return n
}

func (d Dimensions) String() string {
	parts := make([]string, len(d.sizes))
	for i, s := range d.sizes {
		parts[i] = fmt.Sprint(s)
	}
	return "[" + strings.Join(parts, "x") + "]"
}

func (d Dimensions) trailingEqual(o Dimensions) bool {
	if len(d.sizes) != len(o.sizes) {
		return false
	}
	for i := 1; i < len(d.sizes); i++ {
		if d.sizes[i] != o.sizes[i] {
			return false
		}
	}
	return true
}
