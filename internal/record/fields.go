package record

import (
	"fmt"
	"sort"
	"strings"
)

// FieldAccessor selects one histogram of a count.
type FieldAccessor func(c Count) []NumberWithFrequency

// Strand selects the strand-specific variant of a field.
type Strand uint8

const (
	Forward Strand = iota
	Reverse
)

func (s Strand) String() string {
	if s == Reverse {
		return "reverse"
	}
	return "forward"
}

var fields = map[string]FieldAccessor{
	"qualityScores.forward":             func(c Count) []NumberWithFrequency { return c.QualityScoresForwardStrand },
	"qualityScores.reverse":             func(c Count) []NumberWithFrequency { return c.QualityScoresReverseStrand },
	"readIndices.forward":               func(c Count) []NumberWithFrequency { return c.ReadIndicesForwardStrand },
	"readIndices.reverse":               func(c Count) []NumberWithFrequency { return c.ReadIndicesReverseStrand },
	"readMappingQuality.forward":        func(c Count) []NumberWithFrequency { return c.ReadMappingQualityForwardStrand },
	"readMappingQuality.reverse":        func(c Count) []NumberWithFrequency { return c.ReadMappingQualityReverseStrand },
	"numVariationsInRead":               func(c Count) []NumberWithFrequency { return c.NumVariationsInReads },
	"insertSizes":                       func(c Count) []NumberWithFrequency { return c.InsertSizes },
	"targetAlignedLength":               func(c Count) []NumberWithFrequency { return c.TargetAlignedLengths },
	"queryAlignedLength":                func(c Count) []NumberWithFrequency { return c.QueryAlignedLengths },
	"queryPosition":                     func(c Count) []NumberWithFrequency { return c.QueryPositions },
	"pairFlags":                         func(c Count) []NumberWithFrequency { return c.PairFlags },
	"distancesToReadVariations.forward": func(c Count) []NumberWithFrequency { return c.DistancesToReadVariationsForwardStrand },
	"distancesToReadVariations.reverse": func(c Count) []NumberWithFrequency { return c.DistancesToReadVariationsReverseStrand },
	"distanceToStartOfRead":             func(c Count) []NumberWithFrequency { return c.DistanceToStartOfRead },
	"distanceToEndOfRead":               func(c Count) []NumberWithFrequency { return c.DistanceToEndOfRead },
}

// LookupField resolves a histogram field by name. Lookup ignores case.
func LookupField(name string) (FieldAccessor, bool) {
	if fn, ok := fields[name]; ok {
		return fn, true
	}
	for key, fn := range fields {
		if strings.EqualFold(key, name) {
			return fn, true
		}
	}
	return nil, false
}

// FieldNames lists the known histogram fields.
func FieldNames() []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Both concatenates the forward and reverse histograms of a strand-split
// field.
func Both(forward, reverse FieldAccessor) FieldAccessor {
	return func(c Count) []NumberWithFrequency {
		f, r := forward(c), reverse(c)
		out := make([]NumberWithFrequency, 0, len(f)+len(r))
		out = append(out, f...)
		return append(out, r...)
	}
}

// ParseStrand accepts "forward"/"reverse" and their first letters.
func ParseStrand(name string) (Strand, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "forward", "f", "fwd":
		return Forward, nil
	case "reverse", "r", "rev":
		return Reverse, nil
	default:
		return Forward, fmt.Errorf("unknown strand %q", name)
	}
}
