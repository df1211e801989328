package record

import (
	"sort"
	"strings"
)

// Alleles splits a genotype such as "A|T" or "A/T" into allele tokens.
// Empty tokens are dropped; duplicates are kept.
func Alleles(genotype string) []string {
	tokens := strings.FieldsFunc(genotype, func(r rune) bool { return r == '|' || r == '/' })
	out := tokens[:0]
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// DistinctAlleles returns the distinct allele tokens of a genotype, sorted.
func DistinctAlleles(genotype string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, 2)
	for _, tok := range Alleles(genotype) {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

var alleleRank = map[string]int{"A": 0, "T": 1, "C": 2, "G": 3, "N": 4}

// AlleleLess is the fixed allele order used to break ties: A, T, C, G, N,
// then any other sequence in lexical order.
func AlleleLess(a, b string) bool {
	ra, okA := alleleRank[strings.ToUpper(a)]
	rb, okB := alleleRank[strings.ToUpper(b)]
	switch {
	case okA && okB:
		return ra < rb
	case okA:
		return true
	case okB:
		return false
	default:
		return a < b
	}
}
