package profile

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devrev/langdetect/internal/model"
)

func rec(fp model.Fingerprint, freq int64) model.KmerRecord {
	return model.KmerRecord{Kmer: fp, Frequency: freq}
}

func TestRankAndTruncate(t *testing.T) {
	records := []model.KmerRecord{rec(10, 1), rec(20, 5), rec(30, 3), rec(40, 5), rec(50, 2)}

	tests := []struct {
		name string
		max  int
		want []model.KmerRecord
	}{
		{"zero max", 0, []model.KmerRecord{}},
		{"negative max", -4, []model.KmerRecord{}},
		{"top two", 2, []model.KmerRecord{
			{Kmer: 20, Frequency: 5, Rank: 1},
			{Kmer: 40, Frequency: 5, Rank: 2},
		}},
		{"all", 10, []model.KmerRecord{
			{Kmer: 20, Frequency: 5, Rank: 1},
			{Kmer: 40, Frequency: 5, Rank: 2},
			{Kmer: 30, Frequency: 3, Rank: 3},
			{Kmer: 50, Frequency: 2, Rank: 4},
			{Kmer: 10, Frequency: 1, Rank: 5},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := RankAndTruncate(records, tt.max)
			assert.Equal(t, tt.want, p.Records())
			assert.Equal(t, len(tt.want), p.Len())
		})
	}

	// input untouched
	assert.Zero(t, records[0].Rank)
	assert.Equal(t, model.Fingerprint(10), records[0].Kmer)
}

func TestRankAndTruncate_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for trial := 0; trial < 50; trial++ {
		counts := map[model.Fingerprint]int64{}
		n := rng.Intn(200)
		for i := 0; i < n; i++ {
			counts[model.Fingerprint(rng.Uint64())] = int64(rng.Intn(20) + 1)
		}
		max := rng.Intn(120)

		p := FromCounts(counts, max)
		records := p.Records()

		require.LessOrEqual(t, len(records), max)
		for i, r := range records {
			assert.Equal(t, i+1, r.Rank, "ranks are contiguous from 1")
			if i > 0 {
				assert.LessOrEqual(t, r.Frequency, records[i-1].Frequency, "frequency non-increasing")
			}
			got, ok := p.Get(r.Kmer)
			require.True(t, ok)
			assert.Equal(t, r, got)
		}
	}
}

func TestRerank_Stable(t *testing.T) {
	p := FromCounts(map[model.Fingerprint]int64{1: 4, 2: 4, 3: 9, 4: 1}, 3)

	assert.True(t, p.equal(Rerank(p, 3)))
	assert.True(t, p.equal(Rerank(p, 100)))
	assert.Equal(t, 2, Rerank(p, 2).Len())
}

func TestProfile_Zero(t *testing.T) {
	var p Profile
	assert.Equal(t, 0, p.Len())
	_, ok := p.Get(1)
	assert.False(t, ok)
	assert.Empty(t, p.Records())
	assert.True(t, p.equal(RankAndTruncate(nil, 10)))
}

func TestDistance(t *testing.T) {
	subject := FromCounts(map[model.Fingerprint]int64{1: 9, 2: 7, 3: 5}, 10) // ranks 1,2,3

	tests := []struct {
		name  string
		query map[model.Fingerprint]int64
		want  int64
	}{
		{"empty query", map[model.Fingerprint]int64{}, 0},
		// 2 at rank1 (subject 2): +1; 1 at rank2 (subject 1): -1
		{"swapped ranks cancel", map[model.Fingerprint]int64{2: 5, 1: 3}, 0},
		// 9 absent: +4 each
		{"all missing", map[model.Fingerprint]int64{8: 2, 9: 1}, 8},
		// 3 at rank1 (subject 3): +2; 7 missing: +4
		{"mixed", map[model.Fingerprint]int64{3: 4, 7: 1}, 6},
		// 3 rank1 (+2), 2 rank2 (0), 1 rank3 (-2)
		{"reversed", map[model.Fingerprint]int64{3: 3, 2: 2, 1: 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Distance(FromCounts(tt.query, 10), subject))
		})
	}
}

func TestDistance_SignedContributions(t *testing.T) {
	// query ranks 1 (fp 5) and 2 (fp 6); subject has fp 6 at rank 1 only
	query := FromCounts(map[model.Fingerprint]int64{5: 3, 6: 1}, 10)
	subject := FromCounts(map[model.Fingerprint]int64{6: 1}, 10)

	// fp 5 missing: +2; fp 6: 1-2 = -1; total 1
	assert.Equal(t, int64(1), Distance(query, subject))

	query = FromCounts(map[model.Fingerprint]int64{1: 5, 2: 4, 3: 3}, 10)
	subject = FromCounts(map[model.Fingerprint]int64{3: 9, 1: 1, 2: 1, 4: 8}, 10)
	// subject ranks: 3->1, 4->2, 1->3, 2->4
	// query ranks: 1->1, 2->2, 3->3 => (3-1)+(4-2)+(1-3) = 2
	assert.Equal(t, int64(2), Distance(query, subject))

	query = FromCounts(map[model.Fingerprint]int64{4: 9, 3: 1}, 10)
	subject = FromCounts(map[model.Fingerprint]int64{3: 9, 4: 8}, 10)
	// 4: 2-1 = +1; 3: 1-2 = -1
	assert.Equal(t, int64(0), Distance(query, subject))

	query = FromCounts(map[model.Fingerprint]int64{7: 9, 8: 8, 9: 7}, 10)
	subject = FromCounts(map[model.Fingerprint]int64{7: 9, 8: 8, 9: 7, 1: 1}, 10)
	assert.Equal(t, int64(0), Distance(query, subject))

	query = FromCounts(map[model.Fingerprint]int64{9: 9, 1: 8}, 10)
	subject = FromCounts(map[model.Fingerprint]int64{1: 9, 2: 8, 3: 7, 9: 6}, 10)
	// 9: 4-1 = 3; 1: 1-2 = -1
	assert.Equal(t, int64(2), Distance(query, subject))

	query = FromCounts(map[model.Fingerprint]int64{1: 9, 2: 8, 3: 7, 9: 1}, 10)
	subject = FromCounts(map[model.Fingerprint]int64{9: 9, 1: 8, 2: 7, 3: 6}, 10)
	// 1: 2-1, 2: 3-2, 3: 4-3, 9: 1-4 = 1+1+1-3 = 0
	assert.Equal(t, int64(0), Distance(query, subject))

	query = FromCounts(map[model.Fingerprint]int64{1: 9, 2: 8, 3: 7, 4: 6, 9: 1}, 10)
	subject = FromCounts(map[model.Fingerprint]int64{9: 9, 1: 8}, 10)
	// 1: 2-1 = 1; 2,3,4 missing: 3*3 = 9; 9: 1-5 = -4 => 6
	assert.Equal(t, int64(6), Distance(query, subject))
}

func TestDistance_MissingPenaltyOutweighsDisplacement(t *testing.T) {
	// query ranks 4,5,6 -> 1,2,3 and 1,2,3 -> 4,5,6; subject ranks 1,2,3 -> 1,2,3
	query := FromCounts(map[model.Fingerprint]int64{4: 9, 5: 9, 6: 9, 1: 1, 2: 1, 3: 1}, 10)
	subject := FromCounts(map[model.Fingerprint]int64{1: 1, 2: 1, 3: 1}, 10)
	// 3 misses at 4 each = 12; present (1-4)+(2-5)+(3-6) = -9
	assert.Equal(t, int64(3), Distance(query, subject))

	query = FromCounts(map[model.Fingerprint]int64{9: 9, 8: 8, 1: 1, 2: 1}, 10)
	subject = FromCounts(map[model.Fingerprint]int64{1: 1, 2: 1}, 10)
	// 2 misses at 3 each = 6; present (1-3)+(2-4) = -4
	assert.Equal(t, int64(2), Distance(query, subject))
}

func TestDistance_NonNegativeAndZeroForIdentical(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 100; trial++ {
		a := map[model.Fingerprint]int64{}
		b := map[model.Fingerprint]int64{}
		for i := 0; i < 40; i++ {
			a[model.Fingerprint(rng.Intn(60))] = int64(rng.Intn(10) + 1)
			b[model.Fingerprint(rng.Intn(60))] = int64(rng.Intn(10) + 1)
		}
		pa := FromCounts(a, 25)
		pb := FromCounts(b, 25)

		assert.GreaterOrEqual(t, Distance(pa, pb), int64(0))
		assert.GreaterOrEqual(t, Distance(pb, pa), int64(0))
		assert.Equal(t, int64(0), Distance(pa, pa))
		assert.Equal(t, int64(0), Distance(pb, pb))
	}
}
