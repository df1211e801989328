// Package registry maps kind names to the factories that build feature
// trees and label outputs, so that domains can be assembled from
// configuration without reflection.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"genomap/internal/kindid"
	"genomap/internal/labels"
	"genomap/internal/mapper"
	"genomap/internal/properties"
)

const (
	SupportedSchemaVersion = 1
	SupportedCodecVersion  = 1
)

var (
	ErrKindExists      = errors.New("kind already registered")
	ErrKindNotFound    = errors.New("kind not found")
	ErrVersionMismatch = errors.New("registry version mismatch")
	ErrIncompatible    = errors.New("kind incompatible with configuration")
)

// CompatibilityFn rejects configurations a kind cannot be built from.
type CompatibilityFn func(props properties.Properties) error

// FeatureFactory builds a feature node. params holds the node's own
// settings; props is the domain configuration.
type FeatureFactory func(props, params properties.Properties) (*mapper.Node, error)

// OutputFactory builds a label output.
type OutputFactory func(props properties.Properties) (labels.Output, error)

type FeatureSpec struct {
	Name          string
	Factory       FeatureFactory
	SchemaVersion int
	CodecVersion  int
	Compatible    CompatibilityFn
}

type OutputSpec struct {
	Name          string
	Factory       OutputFactory
	SchemaVersion int
	CodecVersion  int
	Compatible    CompatibilityFn
}

type registered[F any] struct {
	factory       F
	schemaVersion int
	codecVersion  int
	compatible    CompatibilityFn
}

type table[F any] struct {
	what string
	mu   sync.RWMutex
	m    map[string]registered[F]
}

func newTable[F any](what string) *table[F] {
	return &table[F]{what: what, m: make(map[string]registered[F])}
}

var (
	featureRegistry = newTable[FeatureFactory]("feature")
	outputRegistry  = newTable[OutputFactory]("output")
)

func (t *table[F]) register(name string, entry registered[F], hasFactory bool) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%s name is required", t.what)
	}
	if !hasFactory {
		return fmt.Errorf("%s factory is required", t.what)
	}
	if entry.schemaVersion != SupportedSchemaVersion || entry.codecVersion != SupportedCodecVersion {
		return fmt.Errorf("%w: schema=%d codec=%d", ErrVersionMismatch, entry.schemaVersion, entry.codecVersion)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.m[name]; exists {
		return fmt.Errorf("%w: %s %s", ErrKindExists, t.what, name)
	}
	t.m[name] = entry
	return nil
}

// find looks name up as registered, then by canonical kind name.
func (t *table[F]) find(name string) (registered[F], string, bool) {
	lookup := strings.TrimSpace(name)
	if lookup == "" {
		return registered[F]{}, "", false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	if entry, ok := t.m[lookup]; ok {
		return entry, lookup, true
	}
	canonical := kindid.Normalize(lookup)
	for registeredName, entry := range t.m {
		if kindid.Normalize(registeredName) == canonical {
			return entry, registeredName, true
		}
	}
	return registered[F]{}, "", false
}

func (t *table[F]) resolve(name string, props properties.Properties) (F, string, error) {
	var zero F
	entry, resolved, ok := t.find(name)
	if !ok {
		return zero, "", fmt.Errorf("%w: %s %s", ErrKindNotFound, t.what, name)
	}
	if err := compatibilityError(t.what, resolved, entry.schemaVersion, entry.codecVersion, entry.compatible, props); err != nil {
		return zero, "", err
	}
	return entry.factory, resolved, nil
}

func (t *table[F]) list() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, len(t.m))
	for n := range t.m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (t *table[F]) reset() {
	t.mu.Lock()
	t.m = make(map[string]registered[F])
	t.mu.Unlock()
}

func compatibilityError(what, name string, schema, codec int, compatible CompatibilityFn, props properties.Properties) error {
	if schema != SupportedSchemaVersion || codec != SupportedCodecVersion {
		return fmt.Errorf("%w: %s", ErrVersionMismatch, name)
	}
	if compatible != nil {
		if err := compatible(props); err != nil {
			return fmt.Errorf("%w: %s=%s: %w", ErrIncompatible, what, name, err)
		}
	}
	return nil
}

func RegisterFeature(name string, factory FeatureFactory) error {
	return RegisterFeatureWithSpec(FeatureSpec{
		Name:          name,
		Factory:       factory,
		SchemaVersion: SupportedSchemaVersion,
		CodecVersion:  SupportedCodecVersion,
	})
}

func RegisterFeatureWithSpec(spec FeatureSpec) error {
	return featureRegistry.register(spec.Name, registered[FeatureFactory]{
		factory:       spec.Factory,
		schemaVersion: spec.SchemaVersion,
		codecVersion:  spec.CodecVersion,
		compatible:    spec.Compatible,
	}, spec.Factory != nil)
}

// ResolveFeature builds a feature node of the named kind.
func ResolveFeature(name string, props, params properties.Properties) (*mapper.Node, error) {
	factory, resolved, err := featureRegistry.resolve(name, props)
	if err != nil {
		return nil, err
	}
	n, err := factory(props, params)
	if err != nil {
		return nil, fmt.Errorf("feature %s: %w", resolved, err)
	}
	return n, nil
}

func ListFeatures() []string { return featureRegistry.list() }

func RegisterOutput(name string, factory OutputFactory) error {
	return RegisterOutputWithSpec(OutputSpec{
		Name:          name,
		Factory:       factory,
		SchemaVersion: SupportedSchemaVersion,
		CodecVersion:  SupportedCodecVersion,
	})
}

func RegisterOutputWithSpec(spec OutputSpec) error {
	return outputRegistry.register(spec.Name, registered[OutputFactory]{
		factory:       spec.Factory,
		schemaVersion: spec.SchemaVersion,
		codecVersion:  spec.CodecVersion,
		compatible:    spec.Compatible,
	}, spec.Factory != nil)
}

// ResolveOutput builds the named label output. The output keeps the name
// it was registered under.
func ResolveOutput(name string, props properties.Properties) (labels.Output, error) {
	factory, resolved, err := outputRegistry.resolve(name, props)
	if err != nil {
		return labels.Output{}, err
	}
	out, err := factory(props)
	if err != nil {
		return labels.Output{}, fmt.Errorf("output %s: %w", resolved, err)
	}
	out.Name = resolved
	return out, nil
}

func ListOutputs() []string { return outputRegistry.list() }

func resetRegistriesForTests() {
	featureRegistry.reset()
	outputRegistry.reset()
	initializeDefaultComponents()
}
