package mapper

import (
	"fmt"
	"math"
	"strings"
)

type Policy uint8

const (
	// PolicyInverse divides by the largest child value of the record.
	PolicyInverse Policy = iota + 1
	// PolicySum divides by the sum of the child values of the record.
	PolicySum
	// PolicyCeiling clamps to a constant and divides by it.
	PolicyCeiling
	// PolicyMax divides by a fixed population maximum.
	PolicyMax
)

func (p Policy) String() string {
	switch p {
	case PolicyInverse:
		return "inverse"
	case PolicySum:
		return "sum"
	case PolicyCeiling:
		return "ceiling"
	case PolicyMax:
		return "max"
	default:
		return fmt.Sprintf("policy(%d)", uint8(p))
	}
}

func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "inverse":
		return PolicyInverse, nil
	case "sum":
		return PolicySum, nil
	case "ceiling", "clamp":
		return PolicyCeiling, nil
	case "max":
		return PolicyMax, nil
	default:
		return 0, fmt.Errorf("unknown normalization policy: %q", name)
	}
}

// Normalization selects how a wrapper rescales its child.
type Normalization struct {
	Policy   Policy
	Constant float64
}

func Inverse() Normalization { return Normalization{Policy: PolicyInverse} }

func Sum() Normalization { return Normalization{Policy: PolicySum} }

func Ceiling(c float64) Normalization { return Normalization{Policy: PolicyCeiling, Constant: c} }

func Max(populationMax float64) Normalization {
	return Normalization{Policy: PolicyMax, Constant: populationMax}
}

func (n Normalization) Validate() error {
	switch n.Policy {
	case PolicyInverse, PolicySum:
		return nil
	case PolicyCeiling:
		if !(n.Constant > 0) || math.IsInf(n.Constant, 0) {
			return fmt.Errorf("ceiling constant must be positive and finite, got %v", n.Constant)
		}
		return nil
	case PolicyMax:
		if math.IsNaN(n.Constant) || math.IsInf(n.Constant, 0) {
			return fmt.Errorf("max constant must be finite, got %v", n.Constant)
		}
		return nil
	default:
		return fmt.Errorf("unknown normalization policy: %s", n.Policy)
	}
}

func (n Normalization) perRecord() bool {
	return n.Policy == PolicyInverse || n.Policy == PolicySum
}

// factor folds the raw child values of one record. Sentinels are skipped.
func (n Normalization) factor(values func(yield func(float64))) float64 {
	switch n.Policy {
	case PolicyInverse:
		largest := 0.0
		values(func(v float64) {
			if v != Sentinel && v > largest {
				largest = v
			}
		})
		return math.Max(largest, 1)
	case PolicySum:
		sum := 0.0
		values(func(v float64) {
			if v != Sentinel {
				sum += v
			}
		})
		return math.Max(sum, 1)
	case PolicyCeiling:
		return n.Constant
	default:
		return math.Max(1, n.Constant)
	}
}

func (n Normalization) apply(v, factor float64) float64 {
	if v == Sentinel {
		return v
	}
	if n.Policy == PolicyCeiling {
		return math.Min(v, factor) / factor
	}
	return v / factor
}
