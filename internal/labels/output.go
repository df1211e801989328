package labels

import (
	"fmt"

	"genomap/internal/mapper"
)

// Output is one named label tensor of a domain.
type Output struct {
	Name string
	// Virtual outputs are mapped and stored but carry no training loss.
	Virtual bool
	Tree    *mapper.Tree
}

// NewOutput compiles a label leaf into an output.
func NewOutput(name string, l mapper.Leaf, virtual bool) (Output, error) {
	tree, err := mapper.NewTree(mapper.NewLeaf(l))
	if err != nil {
		return Output{}, fmt.Errorf("output %s: %w", name, err)
	}
	return Output{Name: name, Virtual: virtual, Tree: tree}, nil
}

func (o Output) NumLabels() int { return o.Tree.NumFeatures() }
