package registry

import (
	"errors"
	"fmt"

	"genomap/internal/mapper"
	"genomap/internal/properties"
)

// NodeSpec describes a feature tree in configuration. Exactly one of Kind,
// Normalize or Concat is set:
//
//	kind: genotype-count
//	params: {count: 0, strand: reverse}
//
//	normalize: inverse
//	child: {concat: [...]}
type NodeSpec struct {
	Kind   string         `yaml:"kind,omitempty" json:"kind,omitempty"`
	Params map[string]any `yaml:"params,omitempty" json:"params,omitempty"`

	Normalize string    `yaml:"normalize,omitempty" json:"normalize,omitempty"`
	Constant  float64   `yaml:"constant,omitempty" json:"constant,omitempty"`
	MaxFrom   string    `yaml:"max_from,omitempty" json:"max_from,omitempty"`
	Child     *NodeSpec `yaml:"child,omitempty" json:"child,omitempty"`

	Concat []NodeSpec `yaml:"concat,omitempty" json:"concat,omitempty"`
}

// Build resolves spec into a node. Each call builds fresh nodes, so a spec
// may be built more than once into the same tree.
func Build(spec NodeSpec, props properties.Properties) (*mapper.Node, error) {
	return build(spec, props, "root")
}

func build(spec NodeSpec, props properties.Properties, path string) (*mapper.Node, error) {
	set := 0
	for _, present := range []bool{spec.Kind != "", spec.Normalize != "", spec.Concat != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("%w: %s: node needs exactly one of kind, normalize or concat", mapper.ErrInvalidNode, path)
	}

	switch {
	case spec.Kind != "":
		params, err := properties.FromMap(spec.Params)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		n, err := ResolveFeature(spec.Kind, props, params)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return n, nil

	case spec.Normalize != "":
		if spec.Child == nil {
			return nil, fmt.Errorf("%w: %s: normalize %s has no child", mapper.ErrInvalidNode, path, spec.Normalize)
		}
		norm, err := normalization(spec, props)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		child, err := build(*spec.Child, props, path+"."+spec.Normalize)
		if err != nil {
			return nil, err
		}
		n, err := mapper.Wrap(child, norm)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return n, nil

	default:
		children := make([]*mapper.Node, 0, len(spec.Concat))
		for i, c := range spec.Concat {
			child, err := build(c, props, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		n, err := mapper.Concat(children...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return n, nil
	}
}

// normalization reads the policy of a wrapper. Max wrappers take their
// population maximum from constant or from normalization.<max_from>.max.
func normalization(spec NodeSpec, props properties.Properties) (mapper.Normalization, error) {
	policy, err := mapper.ParsePolicy(spec.Normalize)
	if err != nil {
		return mapper.Normalization{}, err
	}
	norm := mapper.Normalization{Policy: policy, Constant: spec.Constant}
	if spec.MaxFrom != "" {
		if policy != mapper.PolicyMax && policy != mapper.PolicyCeiling {
			return mapper.Normalization{}, errors.New("max_from applies to max and ceiling only")
		}
		v, err := props.Float(properties.NormalizationMaxKey(spec.MaxFrom))
		if err != nil {
			return mapper.Normalization{}, err
		}
		norm.Constant = v
	}
	return norm, nil
}
