package labels

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"genomap/internal/mapper"
	"genomap/internal/record"
)

var (
	ErrAlleleCountExceedsPloidy = errors.New("allele count exceeds ploidy")
	ErrUnknownAllele            = errors.New("unknown allele")
)

// NumAlleleSlots is the number of sorted allele positions that get their own
// genotype output.
const NumAlleleSlots = 10

// SlotNames are the output names of the sorted allele positions.
var SlotNames = [NumAlleleSlots]string{"A", "T", "C", "G", "N", "I1", "I2", "I3", "I4", "I5"}

// Classifier is a smoothed one-hot label. Classify runs once per record
// during Prepare and its result is kept in scratch.
type Classifier struct {
	Name     string
	Classes  []string
	Epsilon  float64
	Classify func(f *mapper.Frame) (int, error)
}

func (c *Classifier) NumFeatures() int { return len(c.Classes) }

func (c *Classifier) FeatureName(i int) string { return c.Name + "." + c.Classes[i] }

func (c *Classifier) ScratchSize() int { return 1 }

func (c *Classifier) Prepare(f *mapper.Frame, scratch []float64) error {
	class, err := c.Classify(f)
	if err != nil {
		return fmt.Errorf("%s: %w", c.Name, err)
	}
	if class < 0 || class >= len(c.Classes) {
		return fmt.Errorf("%s: class %d outside [0,%d)", c.Name, class, len(c.Classes))
	}
	scratch[0] = float64(class)
	return nil
}

func (c *Classifier) Produce(_ *mapper.Frame, scratch []float64, i int) float64 {
	return Smooth(c.Epsilon, len(c.Classes), int(scratch[0]), i)
}

func indexNames(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprint(i)
	}
	return out
}

func trueAlleles(f *mapper.Frame) []string {
	return record.DistinctAlleles(strings.ToUpper(f.Record().TrueGenotype))
}

// NumDistinctAlleles labels how many distinct alleles the true genotype
// has, over the classes 0..ploidy.
func NumDistinctAlleles(ploidy int, eps float64) *Classifier {
	return &Classifier{
		Name:    "numDistinctAlleles",
		Classes: indexNames(ploidy + 1),
		Epsilon: eps,
		Classify: func(f *mapper.Frame) (int, error) {
			n := len(trueAlleles(f))
			if n > ploidy {
				return 0, fmt.Errorf("%w: %q has %d distinct alleles, ploidy is %d",
					ErrAlleleCountExceedsPloidy, f.Record().TrueGenotype, n, ploidy)
			}
			return n, nil
		},
	}
}

// Genotype labels whether the allele at one sorted count position of the
// given sample is part of the true genotype. Class 1 means present.
func Genotype(sample, slot int, eps float64) *Classifier {
	return &Classifier{
		Name:    SlotNames[slot],
		Classes: []string{"absent", "present"},
		Epsilon: eps,
		Classify: func(f *mapper.Frame) (int, error) {
			c, ok := f.Count(sample, slot)
			if !ok {
				return 0, nil
			}
			for _, allele := range trueAlleles(f) {
				if strings.EqualFold(allele, c.ToSequence) {
					return 1, nil
				}
			}
			return 0, nil
		},
	}
}

// Homozygous labels class 0 for heterozygous sites and class k+1 when the
// site is homozygous for the allele at sorted position k of the sample.
func Homozygous(sample int, eps float64) *Classifier {
	classes := make([]string, 0, NumAlleleSlots+1)
	classes = append(classes, "heterozygous")
	for _, name := range SlotNames {
		classes = append(classes, name)
	}
	return &Classifier{
		Name:    "homozygous",
		Classes: classes,
		Epsilon: eps,
		Classify: func(f *mapper.Frame) (int, error) {
			alleles := trueAlleles(f)
			if len(alleles) != 1 {
				return 0, nil
			}
			counts, _ := f.Counts(sample)
			for k, c := range counts {
				if k >= NumAlleleSlots {
					break
				}
				if strings.EqualFold(c.ToSequence, alleles[0]) {
					return k + 1, nil
				}
			}
			return 0, nil
		},
	}
}

// CombinedAlphabet lists the symbols of combined genotypes; "-" stands for
// a deletion.
const CombinedAlphabet = "ACTG-"

// Combinations enumerates the unordered genotypes of the given ploidy over
// CombinedAlphabet, in lexical order of alphabet positions.
func Combinations(ploidy int) []string {
	var out []string
	buf := make([]byte, ploidy)
	var walk func(pos, from int)
	walk = func(pos, from int) {
		if pos == ploidy {
			out = append(out, string(buf))
			return
		}
		for i := from; i < len(CombinedAlphabet); i++ {
			buf[pos] = CombinedAlphabet[i]
			walk(pos+1, i)
		}
	}
	walk(0, 0)
	return out
}

// combinedKey maps a genotype to its entry in Combinations. Genotypes with
// fewer alleles than the ploidy repeat their last allele.
func combinedKey(genotype string, ploidy int) (string, error) {
	alleles := record.Alleles(strings.ToUpper(genotype))
	if len(alleles) == 0 {
		return "", fmt.Errorf("%w: empty genotype", ErrUnknownAllele)
	}
	if len(alleles) > ploidy {
		return "", fmt.Errorf("%w: %q has %d alleles, ploidy is %d",
			ErrAlleleCountExceedsPloidy, genotype, len(alleles), ploidy)
	}
	ranks := make([]int, 0, ploidy)
	for _, a := range alleles {
		r := strings.Index(CombinedAlphabet, a)
		if len(a) != 1 || r < 0 {
			return "", fmt.Errorf("%w: %q in %q", ErrUnknownAllele, a, genotype)
		}
		ranks = append(ranks, r)
	}
	for len(ranks) < ploidy {
		ranks = append(ranks, ranks[len(ranks)-1])
	}
	slices.Sort(ranks)
	key := make([]byte, ploidy)
	for i, r := range ranks {
		key[i] = CombinedAlphabet[r]
	}
	return string(key), nil
}

// Combined labels the whole genotype as one class among all unordered
// allele combinations of size ploidy.
func Combined(ploidy int, eps float64) *Classifier {
	classes := Combinations(ploidy)
	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	return &Classifier{
		Name:    "combined",
		Classes: classes,
		Epsilon: eps,
		Classify: func(f *mapper.Frame) (int, error) {
			key, err := combinedKey(f.Record().TrueGenotype, ploidy)
			if err != nil {
				return 0, err
			}
			return index[key], nil
		},
	}
}

var metaDataNames = [...]string{"isVariant", "isIndel", "mutated"}

// MetaData carries facts about the record that are reported alongside the
// predictions but never trained on.
type MetaData struct {
	mapper.Stateless
}

func (MetaData) NumFeatures() int { return len(metaDataNames) }

func (MetaData) FeatureName(i int) string { return "metaData." + metaDataNames[i] }

func (MetaData) Produce(f *mapper.Frame, _ []float64, i int) float64 {
	rec := f.Record()
	var v bool
	switch i {
	case 0:
		for _, a := range record.Alleles(rec.TrueGenotype) {
			if !strings.EqualFold(a, rec.ReferenceBase) {
				v = true
			}
		}
	case 1:
		for _, a := range record.Alleles(rec.TrueGenotype) {
			if len(a) != 1 || strings.Contains(a, "-") {
				v = true
			}
		}
	case 2:
		v = rec.Mutated
	}
	if v {
		return 1
	}
	return 0
}
