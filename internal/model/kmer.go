package model

import (
	"cmp"
	"fmt"
)

// Fingerprint identifies a kmer by the hash of its text.
// Distinct kmers may share a fingerprint; they are then counted as one.
type Fingerprint uint64

// KmerRecord is one row of a frequency profile
type KmerRecord struct {
	Kmer      Fingerprint
	Frequency int64
	Rank      int // 0 until ranked, then 1-based (1 = most frequent)
}

// String renders the record as [kmer/frequency/rank]
func (r KmerRecord) String() string {
	return fmt.Sprintf("[%d/%d/%d]", r.Kmer, r.Frequency, r.Rank)
}

// CompareKmerRecords orders records by frequency descending.
// Equal frequencies fall back to ascending fingerprint so ranking is reproducible.
func CompareKmerRecords(a, b KmerRecord) int {
	if c := cmp.Compare(b.Frequency, a.Frequency); c != 0 {
		return c
	}
	return cmp.Compare(a.Kmer, b.Kmer)
}

// LanguageDistance pairs a language with its out-of-place distance to a query
type LanguageDistance struct {
	Language Language `json:"language"`
	Distance int64    `json:"distance"`
}

// CompareLanguageDistances orders by distance ascending, then by language name.
func CompareLanguageDistances(a, b LanguageDistance) int {
	if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
		return c
	}
	return cmp.Compare(a.Language, b.Language)
}

// String renders the distance as [lang=..., distance=...]
func (d LanguageDistance) String() string {
	return fmt.Sprintf("[lang=%s, distance=%d]", d.Language, d.Distance)
}
