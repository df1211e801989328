package mapper

import "fmt"

// Tree is a compiled mapper tree. It is immutable and safe to share; all
// per-record state lives in the States it hands out.
type Tree struct {
	root       *Node
	scratchLen int
	nodes      int
}

// NewTree compiles root, assigning each node its scratch region. A node may
// appear only once, in only one tree.
func NewTree(root *Node) (*Tree, error) {
	if root == nil {
		return nil, fmt.Errorf("%w: tree root is nil", ErrInvalidNode)
	}
	t := &Tree{root: root}
	if err := t.assign(root); err != nil {
		return nil, err
	}
	return t, nil
}

// MustTree is NewTree for statically known trees.
func MustTree(root *Node) *Tree {
	t, err := NewTree(root)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Tree) assign(n *Node) error {
	if n.err != nil {
		return n.err
	}
	if n.owned {
		return fmt.Errorf("%w: %s node with %d features", ErrNodeReused, n.kind, n.numFeatures)
	}
	n.owned = true
	n.scratchAt = t.scratchLen
	t.scratchLen += n.scratchLen
	t.nodes++
	switch n.kind {
	case KindWrapper:
		return t.assign(n.child)
	case KindConcat:
		for _, c := range n.children {
			if err := t.assign(c); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *Tree) Root() *Node            { return t.root }
func (t *Tree) NumFeatures() int       { return t.root.numFeatures }
func (t *Tree) Dimensions() Dimensions { return t.root.dims }
func (t *Tree) HasMask() bool          { return t.root.hasMask }

// ScratchSize is the number of floats each State allocates.
func (t *Tree) ScratchSize() int { return t.scratchLen }

func (t *Tree) FeatureName(i int) (string, error) {
	if err := t.checkIndex(i); err != nil {
		return "", err
	}
	return t.root.name(i), nil
}

// FeatureNames lists every slot name in slot order.
func (t *Tree) FeatureNames() []string {
	names := make([]string, t.root.numFeatures)
	for i := range names {
		names[i] = t.root.name(i)
	}
	return names
}

func (t *Tree) checkIndex(i int) error {
	if i < 0 || i >= t.root.numFeatures {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, i, t.root.numFeatures)
	}
	return nil
}

// NewState allocates the per-worker scratch for this tree.
func (t *Tree) NewState() *State {
	return &State{tree: t, scratch: make([]float64, t.scratchLen)}
}
