package mapper

import (
	"errors"
	"fmt"
)

// State is the scratch arena one worker uses to carry records through a
// tree. It must not be used from more than one goroutine at a time.
type State struct {
	tree    *Tree
	scratch []float64
	frame   *Frame
}

func (s *State) Tree() *Tree { return s.tree }

// Prepare runs the normalization pre-pass for f. Leaves are prepared before
// the wrappers above them; concats prepare their children in slot order.
// Each frame may be prepared once.
func (s *State) Prepare(f *Frame) error {
	if f == nil {
		return errors.New("prepare: frame is nil")
	}
	if s.frame == f {
		return ErrAlreadyPrepared
	}
	s.frame = nil
	clear(s.scratch)
	if err := s.tree.root.prepare(f, s.scratch); err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	s.frame = f
	return nil
}

// Prepared reports whether f is the frame the state was last prepared for.
func (s *State) Prepared(f *Frame) bool {
	return f != nil && s.frame == f
}

// Reset forgets the prepared frame.
func (s *State) Reset() {
	s.frame = nil
	clear(s.scratch)
}

func (s *State) check(f *Frame) error {
	if !s.Prepared(f) {
		return ErrNotPrepared
	}
	return nil
}

func (s *State) Feature(f *Frame, i int) (float64, error) {
	if err := s.check(f); err != nil {
		return 0, err
	}
	if err := s.tree.checkIndex(i); err != nil {
		return 0, err
	}
	return s.tree.root.produce(f, s.scratch, i), nil
}

// IsMasked reports whether slot i is invalid for the prepared record.
// Trees without a mask requirement report every slot valid.
func (s *State) IsMasked(f *Frame, i int) (bool, error) {
	if err := s.check(f); err != nil {
		return false, err
	}
	if err := s.tree.checkIndex(i); err != nil {
		return false, err
	}
	return s.tree.root.masked(f, s.scratch, i), nil
}

// MapFeatures writes every slot of the record into dst at row.
func (s *State) MapFeatures(f *Frame, dst Sink, row int) error {
	if err := s.check(f); err != nil {
		return err
	}
	s.tree.root.write(f, s.scratch, dst, row, 0)
	return nil
}

// MaskFeatures writes 1 for masked and 0 for valid slots. When the tree has
// no mask requirement nothing is written: an untouched zeroed buffer already
// reads as valid everywhere.
func (s *State) MaskFeatures(f *Frame, dst Sink, row int) error {
	if err := s.check(f); err != nil {
		return err
	}
	if !s.tree.root.hasMask {
		return nil
	}
	s.tree.root.writeMask(f, s.scratch, dst, row, 0)
	return nil
}

// Values returns all slots of the prepared record.
func (s *State) Values(f *Frame) ([]float64, error) {
	if err := s.check(f); err != nil {
		return nil, err
	}
	out := make(rowSink, s.tree.root.numFeatures)
	s.tree.root.write(f, s.scratch, out, 0, 0)
	return out, nil
}

type rowSink []float64

func (r rowSink) Set(_, col int, v float64) { r[col] = v }
