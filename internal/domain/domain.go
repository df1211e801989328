// Package domain ties a configuration to the feature tree and label outputs
// it describes.
package domain

import (
	"errors"
	"fmt"

	"genomap/internal/labels"
	"genomap/internal/mapper"
	"genomap/internal/properties"
	"genomap/internal/record"
	"genomap/internal/registry"
)

var ErrUnknownOutput = errors.New("unknown output")

// Domain is immutable once built and may be shared by any number of
// workers.
type Domain struct {
	props      properties.Properties
	input      *mapper.Tree
	outputs    []labels.Output
	index      map[string]int
	sortCounts bool
}

func New(cfg Config) (*Domain, error) {
	props, err := cfg.properties()
	if err != nil {
		return nil, err
	}
	if _, err := props.Epsilon(); err != nil {
		return nil, err
	}
	root, err := registry.Build(cfg.Input, props)
	if err != nil {
		return nil, fmt.Errorf("input: %w", err)
	}
	input, err := mapper.NewTree(root)
	if err != nil {
		return nil, fmt.Errorf("input: %w", err)
	}

	d := &Domain{
		props:      props,
		input:      input,
		index:      make(map[string]int, len(cfg.Outputs)),
		sortCounts: cfg.sortCounts(),
	}
	for _, name := range cfg.Outputs {
		out, err := registry.ResolveOutput(name, props)
		if err != nil {
			return nil, err
		}
		if _, dup := d.index[out.Name]; dup {
			return nil, fmt.Errorf("output %s listed twice", out.Name)
		}
		d.index[out.Name] = len(d.outputs)
		d.outputs = append(d.outputs, out)
	}
	return d, nil
}

func (d *Domain) Properties() properties.Properties { return d.props }

func (d *Domain) Input() *mapper.Tree { return d.input }

func (d *Domain) NumInputs() int { return d.input.NumFeatures() }

func (d *Domain) FeatureNames() []string { return d.input.FeatureNames() }

func (d *Domain) Outputs() []labels.Output {
	return append([]labels.Output(nil), d.outputs...)
}

// NumOutputs returns the label count of the named output.
func (d *Domain) NumOutputs(name string) (int, error) {
	i, ok := d.index[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownOutput, name)
	}
	return d.outputs[i].NumLabels(), nil
}

// Shape reports the dimensions of every tensor the domain produces.
type Shape struct {
	Input      mapper.Dimensions
	InputMask  bool
	Outputs    map[string]int
	Virtual    []string
	SortCounts bool
}

func (d *Domain) Shape() Shape {
	s := Shape{
		Input:      d.input.Dimensions(),
		InputMask:  d.input.HasMask(),
		Outputs:    make(map[string]int, len(d.outputs)),
		SortCounts: d.sortCounts,
	}
	for _, out := range d.outputs {
		s.Outputs[out.Name] = out.NumLabels()
		if out.Virtual {
			s.Virtual = append(s.Virtual, out.Name)
		}
	}
	return s
}

// NewFrame wraps rec with the domain's count ordering.
func (d *Domain) NewFrame(rec *record.Record) *mapper.Frame {
	return mapper.NewFrame(rec, mapper.WithCountSorting(d.sortCounts))
}

// Worker holds one State per tree of the domain. Workers are not safe for
// concurrent use; give each goroutine its own.
type Worker struct {
	domain  *Domain
	input   *mapper.State
	outputs []*mapper.State
}

func (d *Domain) NewWorker() *Worker {
	w := &Worker{domain: d, input: d.input.NewState()}
	for _, out := range d.outputs {
		w.outputs = append(w.outputs, out.Tree.NewState())
	}
	return w
}

// Sinks receive one row of a record. Mask may be nil; Labels follow the
// order of Domain.Outputs and entries may be nil to skip an output.
type Sinks struct {
	Features mapper.Sink
	Mask     mapper.Sink
	Labels   []mapper.Sink
}

// Map prepares every tree for f and writes row of each sink. All trees are
// prepared before anything is written, so a failing record leaves the
// sinks untouched.
func (w *Worker) Map(f *mapper.Frame, dst Sinks, row int) error {
	if err := w.input.Prepare(f); err != nil {
		return fmt.Errorf("input: %w", err)
	}
	for i, st := range w.outputs {
		if err := st.Prepare(f); err != nil {
			return fmt.Errorf("output %s: %w", w.domain.outputs[i].Name, err)
		}
	}

	if dst.Features != nil {
		if err := w.input.MapFeatures(f, dst.Features, row); err != nil {
			return err
		}
	}
	if dst.Mask != nil {
		if err := w.input.MaskFeatures(f, dst.Mask, row); err != nil {
			return err
		}
	}
	for i, sink := range dst.Labels {
		if sink == nil || i >= len(w.outputs) {
			continue
		}
		if err := w.outputs[i].MapFeatures(f, sink, row); err != nil {
			return err
		}
	}
	return nil
}

// Reset forgets the last prepared frame of every tree.
func (w *Worker) Reset() {
	w.input.Reset()
	for _, st := range w.outputs {
		st.Reset()
	}
}
