package counttable

import (
	"math/bits"
	"sync"

	"github.com/devrev/langdetect/internal/model"
)

// DefaultShards is the shard count used when none is configured
const DefaultShards = 32

// Table is a concurrent kmer frequency table. Fingerprints are spread over a
// power-of-two number of shards, each guarded by its own mutex, so writers
// touching different shards never contend.
type Table struct {
	shards []shard
	mask   uint64
}

type shard struct {
	mu     sync.Mutex
	counts map[model.Fingerprint]int64
	_      [48]byte // pad to 64 bytes so hot shard locks sit on separate cache lines
}

// New creates a table with at least shardCount shards
func New(shardCount int) *Table {
	if shardCount <= 0 {
		shardCount = DefaultShards
	}
	n := 1 << bits.Len(uint(shardCount-1))

	t := &Table{
		shards: make([]shard, n),
		mask:   uint64(n - 1),
	}
	for i := range t.shards {
		t.shards[i].counts = make(map[model.Fingerprint]int64)
	}
	return t
}

// ShardCount returns the number of shards
func (t *Table) ShardCount() int {
	return len(t.shards)
}

func (t *Table) shardFor(fp model.Fingerprint) *shard {
	return &t.shards[uint64(fp)&t.mask]
}

// Increment adds one occurrence of fp and returns the new count
func (t *Table) Increment(fp model.Fingerprint) int64 {
	return t.Add(fp, 1)
}

// Add adds delta occurrences of fp and returns the new count
func (t *Table) Add(fp model.Fingerprint, delta int64) int64 {
	s := t.shardFor(fp)
	s.mu.Lock()
	s.counts[fp] += delta
	n := s.counts[fp]
	s.mu.Unlock()
	return n
}

// Get returns the count for fp
func (t *Table) Get(fp model.Fingerprint) (int64, bool) {
	s := t.shardFor(fp)
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.counts[fp]
	return n, ok
}

// Len returns the number of distinct fingerprints
func (t *Table) Len() int {
	total := 0
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.Lock()
		total += len(s.counts)
		s.mu.Unlock()
	}
	return total
}

// Records returns an unranked snapshot of every entry
func (t *Table) Records() []model.KmerRecord {
	records := make([]model.KmerRecord, 0, t.Len())
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.Lock()
		for fp, n := range s.counts {
			records = append(records, model.KmerRecord{Kmer: fp, Frequency: n})
		}
		s.mu.Unlock()
	}
	return records
}
