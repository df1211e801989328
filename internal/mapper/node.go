package mapper

import (
	"fmt"
	"sort"
)

// Kind tags the variant a Node holds.
type Kind uint8

const (
	KindLeaf Kind = iota + 1
	KindWrapper
	KindConcat
)

func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindWrapper:
		return "wrapper"
	case KindConcat:
		return "concat"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Node is one element of a mapper tree: a leaf, a normalization wrapper
// around one child, or a concatenation of children. Every operation on a
// tree recurses structurally over these three variants.
type Node struct {
	kind Kind

	leaf Leaf

	norm  Normalization
	child *Node

	// children retained by a concat (zero-feature children are dropped) and
	// their start offsets; offsets[len(children)] is the total.
	children []*Node
	offsets  []int

	numFeatures int
	dims        Dimensions
	hasMask     bool

	scratchAt  int
	scratchLen int
	owned      bool

	// err records a construction defect; trees refuse nodes that carry one.
	err error
}

// NewLeaf wraps a leaf mapper into a node. A Shaped leaf whose dimensions
// do not hold exactly NumFeatures elements yields a node that Wrap, Concat
// and NewTree reject with ErrInvalidNode.
func NewLeaf(l Leaf) *Node {
	n := &Node{kind: KindLeaf, leaf: l, numFeatures: l.NumFeatures()}
	if shaped, ok := l.(Shaped); ok {
		n.dims = shaped.Dimensions()
		if got := n.dims.NumElements(); got != n.numFeatures {
			n.err = fmt.Errorf("%w: leaf declares dimensions %s (%d elements) for %d features",
				ErrInvalidNode, n.dims, got, n.numFeatures)
		}
	} else {
		n.dims = Dims(n.numFeatures)
	}
	if m, ok := l.(Masker); ok {
		n.hasMask = m.HasMask()
	}
	n.scratchLen = l.ScratchSize()
	return n
}

// Wrap rescales the output of child with the given normalization.
func Wrap(child *Node, norm Normalization) (*Node, error) {
	if child == nil {
		return nil, fmt.Errorf("%w: wrapper child is nil", ErrInvalidNode)
	}
	if child.err != nil {
		return nil, child.err
	}
	if err := norm.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNode, err)
	}
	return &Node{
		kind:        KindWrapper,
		norm:        norm,
		child:       child,
		numFeatures: child.numFeatures,
		dims:        child.dims,
		hasMask:     child.hasMask,
		scratchLen:  1,
	}, nil
}

// Concat lays children out one after the other. Children without features
// are dropped; the remaining ones must agree on their number of dimensions.
// Children whose trailing axes also agree are stacked along the first axis;
// otherwise the result keeps the axis count with every trailing axis
// collapsed to 1, so [3x2] and [2x5] give [16x1].
func Concat(children ...*Node) (*Node, error) {
	n := &Node{kind: KindConcat, offsets: []int{0}}
	stack := true
	for i, c := range children {
		if c == nil {
			return nil, fmt.Errorf("%w: concat child %d is nil", ErrInvalidNode, i)
		}
		if c.err != nil {
			return nil, fmt.Errorf("concat child %d: %w", i, c.err)
		}
		if c.numFeatures == 0 {
			continue
		}
		if len(n.children) > 0 && n.children[0].dims.NumDimensions() != c.dims.NumDimensions() {
			return nil, fmt.Errorf("%w: child %d has %d dimensions %s, expected %d like %s",
				ErrDimensionMismatch, i, c.dims.NumDimensions(), c.dims, n.children[0].dims.NumDimensions(), n.children[0].dims)
		}
		stack = stack && (len(n.children) == 0 || n.children[0].dims.trailingEqual(c.dims))
		n.children = append(n.children, c)
		n.numFeatures += c.numFeatures
		n.offsets = append(n.offsets, n.numFeatures)
		n.hasMask = n.hasMask || c.hasMask
	}
	switch {
	case len(n.children) == 0:
		n.dims = Dims(0)
	case n.children[0].dims.NumDimensions() <= 1:
		n.dims = Dims(n.numFeatures)
	case !stack:
		sizes := make([]int, n.children[0].dims.NumDimensions())
		for axis := range sizes {
			sizes[axis] = 1
		}
		sizes[0] = n.numFeatures
		n.dims = Dims(sizes...)
	default:
		sizes := n.children[0].dims.Sizes()
		sizes[0] = 0
		for _, c := range n.children {
			sizes[0] += c.dims.Size(0)
		}
		n.dims = Dims(sizes...)
	}
	return n, nil
}

func (n *Node) Kind() Kind             { return n.kind }
func (n *Node) NumFeatures() int       { return n.numFeatures }
func (n *Node) Dimensions() Dimensions { return n.dims }
func (n *Node) HasMask() bool          { return n.hasMask }

// Children returns the retained children of a concat, or the wrapped child.
func (n *Node) Children() []*Node {
	switch n.kind {
	case KindConcat:
		return append([]*Node(nil), n.children...)
	case KindWrapper:
		return []*Node{n.child}
	default:
		return nil
	}
}

// Offsets returns a copy of a concat's offset table.
func (n *Node) Offsets() []int { return append([]int(nil), n.offsets...) }

// owner finds the child of a concat holding global slot i: the greatest k
// with offsets[k] <= i.
func (n *Node) owner(i int) (int, int) {
	k := floorIndex(n.offsets, i)
	return k, i - n.offsets[k]
}

// floorIndex returns the index of the greatest element of the ascending
// slice that is <= x, or -1 when x is below every element.
func floorIndex(ascending []int, x int) int {
	return sort.Search(len(ascending), func(k int) bool { return ascending[k] > x }) - 1
}

func (n *Node) region(scratch []float64) []float64 {
	return scratch[n.scratchAt : n.scratchAt+n.scratchLen]
}

func (n *Node) prepare(f *Frame, scratch []float64) error {
	switch n.kind {
	case KindLeaf:
		return n.leaf.Prepare(f, n.region(scratch))
	case KindWrapper:
		if err := n.child.prepare(f, scratch); err != nil {
			return err
		}
		scratch[n.scratchAt] = n.norm.factor(func(yield func(float64)) {
			if !n.norm.perRecord() {
				return
			}
			for i := 0; i < n.child.numFeatures; i++ {
				yield(n.child.produce(f, scratch, i))
			}
		})
		return nil
	default:
		for _, c := range n.children {
			if err := c.prepare(f, scratch); err != nil {
				return err
			}
		}
		return nil
	}
}

func (n *Node) produce(f *Frame, scratch []float64, i int) float64 {
	switch n.kind {
	case KindLeaf:
		return n.leaf.Produce(f, n.region(scratch), i)
	case KindWrapper:
		return n.norm.apply(n.child.produce(f, scratch, i), scratch[n.scratchAt])
	default:
		k, local := n.owner(i)
		return n.children[k].produce(f, scratch, local)
	}
}

func (n *Node) masked(f *Frame, scratch []float64, i int) bool {
	if !n.hasMask {
		return false
	}
	switch n.kind {
	case KindLeaf:
		return n.leaf.(Masker).IsMasked(f, n.region(scratch), i)
	case KindWrapper:
		return n.child.masked(f, scratch, i)
	default:
		k, local := n.owner(i)
		return n.children[k].masked(f, scratch, local)
	}
}

func (n *Node) name(i int) string {
	switch n.kind {
	case KindLeaf:
		return n.leaf.FeatureName(i)
	case KindWrapper:
		return n.norm.Policy.String() + "(" + n.child.name(i) + ")"
	default:
		k, local := n.owner(i)
		return n.children[k].name(local)
	}
}

// write stores every slot of n into dst at columns base..base+numFeatures.
// Concats walk their children directly instead of searching per slot.
func (n *Node) write(f *Frame, scratch []float64, dst Sink, row, base int) {
	if n.kind == KindConcat {
		for k, c := range n.children {
			c.write(f, scratch, dst, row, base+n.offsets[k])
		}
		return
	}
	for i := 0; i < n.numFeatures; i++ {
		dst.Set(row, base+i, n.produce(f, scratch, i))
	}
}

func (n *Node) writeMask(f *Frame, scratch []float64, dst Sink, row, base int) {
	if n.kind == KindConcat {
		for k, c := range n.children {
			c.writeMask(f, scratch, dst, row, base+n.offsets[k])
		}
		return
	}
	for i := 0; i < n.numFeatures; i++ {
		v := 0.0
		if n.masked(f, scratch, i) {
			v = 1
		}
		dst.Set(row, base+i, v)
	}
}
