// Package profile holds ranked, size-bounded kmer frequency profiles and the
// out-of-place distance between them.
package profile

import (
	"github.com/devrev/langdetect/internal/model"
)

// Profile is an immutable ranked kmer table. Records are held in rank order
// and indexed by fingerprint. The zero value is an empty profile.
type Profile struct {
	ranked []model.KmerRecord
	index  map[model.Fingerprint]int
}

// Len returns the number of records
func (p Profile) Len() int {
	return len(p.ranked)
}

// Get looks up the record for a fingerprint
func (p Profile) Get(fp model.Fingerprint) (model.KmerRecord, bool) {
	i, ok := p.index[fp]
	if !ok {
		return model.KmerRecord{}, false
	}
	return p.ranked[i], true
}

// Records returns a copy of the records in rank order
func (p Profile) Records() []model.KmerRecord {
	out := make([]model.KmerRecord, len(p.ranked))
	copy(out, p.ranked)
	return out
}

// equal reports whether both profiles hold the same records with the same ranks
func (p Profile) equal(other Profile) bool {
	if len(p.ranked) != len(other.ranked) {
		return false
	}
	for i, r := range p.ranked {
		if other.ranked[i] != r {
			return false
		}
	}
	return true
}

func fromRanked(ranked []model.KmerRecord) Profile {
	index := make(map[model.Fingerprint]int, len(ranked))
	for i, r := range ranked {
		index[r.Kmer] = i
	}
	return Profile{ranked: ranked, index: index}
}
