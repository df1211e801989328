package kindid

import (
	"strings"
	"unicode"
)

// Normalize canonicalizes mapper kind names and their historical aliases,
// so that "GenotypeMapperV38", "genotype_v38" and "genotype-mapper-v38"
// all resolve to "genotype-v38".
func Normalize(name string) string {
	normalized := strings.TrimSpace(kebab(name))
	normalized = strings.ReplaceAll(normalized, "_", "-")
	normalized = strings.ReplaceAll(normalized, " ", "-")
	normalized = collapseDashes(strings.Trim(normalized, "-"))
	if normalized == "" {
		return ""
	}
	for _, candidate := range aliasCandidates(normalized) {
		if canonical, ok := canonicalKind(candidate); ok {
			return canonical
		}
	}
	return normalized
}

// kebab lowercases name and splits camel case humps with dashes.
func kebab(name string) string {
	var b strings.Builder
	runes := []rune(strings.TrimSpace(name))
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('-')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func collapseDashes(value string) string {
	for strings.Contains(value, "--") {
		value = strings.ReplaceAll(value, "--", "-")
	}
	return value
}

func aliasCandidates(normalized string) []string {
	candidates := []string{normalized}
	trimmed := normalized
	for _, suffix := range []string{"-label-mapper", "-labels-mapper", "-feature-mapper", "-mapper", "-label", "-labels"} {
		if strings.HasSuffix(trimmed, suffix) {
			trimmed = strings.TrimSuffix(trimmed, suffix)
			break
		}
	}
	trimmed = strings.Trim(trimmed, "-")
	if trimmed != "" && trimmed != normalized {
		candidates = append(candidates, trimmed)
	}
	inner := strings.Replace(trimmed, "-mapper-", "-", 1)
	if inner != trimmed {
		candidates = append(candidates, inner)
	}
	return candidates
}

func canonicalKind(alias string) (string, bool) {
	switch strings.ReplaceAll(alias, "-", "") {
	case "genotypev38":
		return "genotype-v38", true
	case "genotypev4":
		return "genotype-v4", true
	case "somaticcounts", "somatic":
		return "somatic-counts", true
	case "genotypecount", "singlegenotypecount":
		return "genotype-count", true
	case "readindexcount", "singlereadindexcount":
		return "read-index-count", true
	case "matchesreference":
		return "matches-reference", true
	case "isindel", "indel":
		return "is-indel", true
	case "originalindex", "originalgobycountindex":
		return "original-index", true
	case "pairflags", "bamflag", "bamflags":
		return "pair-flags", true
	case "density":
		return "density", true
	case "densitycapped":
		return "density-capped", true
	case "genomiccontext":
		return "genomic-context", true
	case "numdistinctalleles":
		return "num-distinct-alleles", true
	case "homozygous":
		return "homozygous", true
	case "combined":
		return "combined", true
	case "metadata":
		return "meta-data", true
	default:
		return "", false
	}
}
