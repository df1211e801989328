// Package properties holds the string-keyed configuration values that mapper
// trees are built from.
package properties

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	KeyPloidy             = "genotypes.ploidy"
	KeyGenomicContextSize = "stats.genomicContextSize.min"
	KeyEpsilon            = "labels.smoothing.epsilon"
	KeySampleIndex        = "input.sampleIndex"
)

var (
	ErrMissingKey   = errors.New("missing configuration key")
	ErrInvalidValue = errors.New("invalid configuration value")
)

// BinsKey names the bin count of a histogram field.
func BinsKey(field string) string { return "bins." + field }

// StatsMinKey and StatsMaxKey name the observed range of a field.
func StatsMinKey(field string) string { return "stats." + field + ".min" }
func StatsMaxKey(field string) string { return "stats." + field + ".max" }

// NormalizationMaxKey names a fixed population maximum.
func NormalizationMaxKey(name string) string { return "normalization." + name + ".max" }

// Properties is an immutable-by-convention set of configuration values.
type Properties map[string]string

// Merge returns a copy of p overlaid with other.
func (p Properties) Merge(other map[string]string) Properties {
	out := make(Properties, len(p)+len(other))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

func (p Properties) Lookup(key string) (string, bool) {
	v, ok := p[key]
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (p Properties) String(key string) (string, error) {
	v, ok := p.Lookup(key)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingKey, key)
	}
	return v, nil
}

func (p Properties) Int(key string) (int, error) {
	v, ok := p.Lookup(key)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingKey, key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		// Statistics files store integers as floats ("16.0").
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil || f != math.Trunc(f) {
			return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidValue, key, v)
		}
		if f < math.MinInt || f >= math.MaxInt {
			return 0, fmt.Errorf("%w: %s=%q is out of integer range", ErrInvalidValue, key, v)
		}
		n = int(f)
	}
	return n, nil
}

func (p Properties) IntOr(key string, def int) (int, error) {
	if _, ok := p.Lookup(key); !ok {
		return def, nil
	}
	return p.Int(key)
}

func (p Properties) Float(key string) (float64, error) {
	v, ok := p.Lookup(key)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingKey, key)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %s=%q is not a number", ErrInvalidValue, key, v)
	}
	return f, nil
}

func (p Properties) FloatOr(key string, def float64) (float64, error) {
	if _, ok := p.Lookup(key); !ok {
		return def, nil
	}
	return p.Float(key)
}

func (p Properties) BoolOr(key string, def bool) (bool, error) {
	v, ok := p.Lookup(key)
	if !ok {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalidValue, key, v)
	}
	return b, nil
}

// Ploidy reads the required, positive ploidy.
func (p Properties) Ploidy() (int, error) {
	n, err := p.Int(KeyPloidy)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidValue, KeyPloidy, n)
	}
	return n, nil
}

// GenomicContextSize reads the required, non-negative context length.
func (p Properties) GenomicContextSize() (int, error) {
	n, err := p.Int(KeyGenomicContextSize)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: %s must not be negative, got %d", ErrInvalidValue, KeyGenomicContextSize, n)
	}
	return n, nil
}

// Epsilon reads the label smoothing amount, defaulting to zero.
func (p Properties) Epsilon() (float64, error) {
	eps, err := p.FloatOr(KeyEpsilon, 0)
	if err != nil {
		return 0, err
	}
	if eps < 0 || eps >= 1 {
		return 0, fmt.Errorf("%w: %s must be in [0,1), got %v", ErrInvalidValue, KeyEpsilon, eps)
	}
	return eps, nil
}

// SampleIndex reads which sample of a record is mapped, defaulting to zero.
func (p Properties) SampleIndex() (int, error) {
	n, err := p.IntOr(KeySampleIndex, 0)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: %s must not be negative, got %d", ErrInvalidValue, KeySampleIndex, n)
	}
	return n, nil
}

// Bins reads the bin count for a histogram field.
func (p Properties) Bins(field string, def int) (int, error) {
	n, err := p.IntOr(BinsKey(field), def)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidValue, BinsKey(field), n)
	}
	return n, nil
}

// Keys lists the configured keys in order.
func (p Properties) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Load reads a YAML document of (possibly nested) scalar values. Nested maps
// are flattened with '.' separators.
func Load(path string) (Properties, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (Properties, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse properties: %w", err)
	}
	out := make(Properties)
	if err := flatten(out, "", raw); err != nil {
		return nil, err
	}
	return out, nil
}

// FromMap flattens decoded YAML values.
func FromMap(raw map[string]any) (Properties, error) {
	out := make(Properties)
	if err := flatten(out, "", raw); err != nil {
		return nil, err
	}
	return out, nil
}

func flatten(out Properties, prefix string, raw map[string]any) error {
	for k, v := range raw {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch tv := v.(type) {
		case map[string]any:
			if err := flatten(out, key, tv); err != nil {
				return err
			}
		case nil:
			out[key] = ""
		case string:
			out[key] = tv
		case int, int64, float64, bool:
			out[key] = fmt.Sprint(tv)
		default:
			return fmt.Errorf("%w: %s has unsupported type %T", ErrInvalidValue, key, v)
		}
	}
	return nil
}
