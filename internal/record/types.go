package record

// NumberWithFrequency is one bin of a compressed histogram: Number was
// observed Frequency times.
type NumberWithFrequency struct {
	Number    int `json:"number"`
	Frequency int `json:"frequency"`
}

// Record holds the observations collected at one genomic site. Records are
// produced upstream and treated as read-only here.
type Record struct {
	ReferenceID            string   `json:"reference_id"`
	ReferenceIndex         int      `json:"reference_index"`
	Position               int      `json:"position"`
	ReferenceBase          string   `json:"reference_base"`
	GenomicSequenceContext string   `json:"genomic_sequence_context,omitempty"`
	TrueGenotype           string   `json:"true_genotype,omitempty"`
	Mutated                bool     `json:"mutated,omitempty"`
	Samples                []Sample `json:"samples"`
}

type Sample struct {
	IsTumor         bool    `json:"is_tumor,omitempty"`
	FormattedCounts string  `json:"formatted_counts,omitempty"`
	Counts          []Count `json:"counts"`
}

// Count describes one allele observed in a sample.
type Count struct {
	FromSequence               string `json:"from_sequence,omitempty"`
	ToSequence                 string `json:"to_sequence"`
	MatchesReference           bool   `json:"matches_reference,omitempty"`
	IsIndel                    bool   `json:"is_indel,omitempty"`
	GenotypeCountForwardStrand int    `json:"genotype_count_forward_strand,omitempty"`
	GenotypeCountReverseStrand int    `json:"genotype_count_reverse_strand,omitempty"`
	OriginalIndex              int    `json:"original_index,omitempty"`

	QualityScoresForwardStrand             []NumberWithFrequency `json:"quality_scores_forward_strand,omitempty"`
	QualityScoresReverseStrand             []NumberWithFrequency `json:"quality_scores_reverse_strand,omitempty"`
	ReadIndicesForwardStrand               []NumberWithFrequency `json:"read_indices_forward_strand,omitempty"`
	ReadIndicesReverseStrand               []NumberWithFrequency `json:"read_indices_reverse_strand,omitempty"`
	ReadMappingQualityForwardStrand        []NumberWithFrequency `json:"read_mapping_quality_forward_strand,omitempty"`
	ReadMappingQualityReverseStrand        []NumberWithFrequency `json:"read_mapping_quality_reverse_strand,omitempty"`
	NumVariationsInReads                   []NumberWithFrequency `json:"num_variations_in_reads,omitempty"`
	InsertSizes                            []NumberWithFrequency `json:"insert_sizes,omitempty"`
	TargetAlignedLengths                   []NumberWithFrequency `json:"target_aligned_lengths,omitempty"`
	QueryAlignedLengths                    []NumberWithFrequency `json:"query_aligned_lengths,omitempty"`
	QueryPositions                         []NumberWithFrequency `json:"query_positions,omitempty"`
	PairFlags                              []NumberWithFrequency `json:"pair_flags,omitempty"`
	DistancesToReadVariationsForwardStrand []NumberWithFrequency `json:"distances_to_read_variations_forward_strand,omitempty"`
	DistancesToReadVariationsReverseStrand []NumberWithFrequency `json:"distances_to_read_variations_reverse_strand,omitempty"`
	DistanceToStartOfRead                  []NumberWithFrequency `json:"distance_to_start_of_read,omitempty"`
	DistanceToEndOfRead                    []NumberWithFrequency `json:"distance_to_end_of_read,omitempty"`
}

// Support is the number of reads supporting the allele on both strands.
func (c Count) Support() int {
	return c.GenotypeCountForwardStrand + c.GenotypeCountReverseStrand
}

// Sample returns the sample at index i.
func (r *Record) Sample(i int) (Sample, bool) {
	if r == nil || i < 0 || i >= len(r.Samples) {
		return Sample{}, false
	}
	return r.Samples[i], true
}

// Expand turns a compressed histogram back into the list of observed values.
func Expand(freqs []NumberWithFrequency) []int {
	total := 0
	for _, f := range freqs {
		if f.Frequency > 0 {
			total += f.Frequency
		}
	}
	out := make([]int, 0, total)
	for _, f := range freqs {
		for i := 0; i < f.Frequency; i++ {
			out = append(out, f.Number)
		}
	}
	return out
}

// Compress is the inverse of Expand. Bins are emitted in first-seen order.
func Compress(values []int) []NumberWithFrequency {
	index := make(map[int]int, len(values))
	out := make([]NumberWithFrequency, 0, len(values))
	for _, v := range values {
		if at, ok := index[v]; ok {
			out[at].Frequency++
			continue
		}
		index[v] = len(out)
		out = append(out, NumberWithFrequency{Number: v, Frequency: 1})
	}
	return out
}

// Distinct counts the distinct numbers observed at least once.
func Distinct(freqs []NumberWithFrequency) int {
	seen := make(map[int]struct{}, len(freqs))
	for _, f := range freqs {
		if f.Frequency > 0 {
			seen[f.Number] = struct{}{}
		}
	}
	return len(seen)
}

// Total sums frequencies.
func Total(freqs []NumberWithFrequency) int {
	total := 0
	for _, f := range freqs {
		if f.Frequency > 0 {
			total += f.Frequency
		}
	}
	return total
}
