package profile

import (
	"slices"

	"github.com/devrev/langdetect/internal/model"
)

// RankAndTruncate orders records by frequency descending (ties by ascending
// fingerprint), assigns ranks 1..N in that order and keeps the first max.
// The input slice is not modified. max <= 0 yields an empty profile.
func RankAndTruncate(records []model.KmerRecord, max int) Profile {
	if max <= 0 || len(records) == 0 {
		return Profile{}
	}

	sorted := slices.Clone(records)
	slices.SortFunc(sorted, model.CompareKmerRecords)

	if len(sorted) > max {
		sorted = sorted[:max:max]
	}
	for i := range sorted {
		sorted[i].Rank = i + 1
	}
	return fromRanked(sorted)
}

// FromCounts ranks a fingerprint to frequency map
func FromCounts(counts map[model.Fingerprint]int64, max int) Profile {
	records := make([]model.KmerRecord, 0, len(counts))
	for fp, n := range counts {
		records = append(records, model.KmerRecord{Kmer: fp, Frequency: n})
	}
	return RankAndTruncate(records, max)
}

// Rerank applies RankAndTruncate to an already ranked profile. Ranking is
// stable under repetition, so Rerank(p, p.Len()) equals p.
func Rerank(p Profile, max int) Profile {
	return RankAndTruncate(p.ranked, max)
}
