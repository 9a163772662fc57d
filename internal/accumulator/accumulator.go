// Package accumulator provides a sharded, concurrency-safe word counter.
//
// Each word lives in exactly one shard, chosen by hashing the word. AddWord
// only ever holds the lock of that shard. Operations that need a view of the
// whole structure (ClearResults, ListTopWords, GetUniqueWordCount) take every
// shard lock in ascending shard order before touching any shard, so they act
// at a single logical instant with respect to concurrent AddWord calls.
package accumulator

import (
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// DefaultShardCount keeps shards short for typical vocabularies.
const DefaultShardCount = 32767

// WordCount is a word and the number of times it has been seen.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

type shard struct {
	mu      sync.Mutex
	entries []WordCount
}

// Accumulator counts word occurrences. The zero value is not usable; call New.
type Accumulator struct {
	shards []shard
}

// Option configures an Accumulator.
type Option func(*options)

type options struct {
	shards int
}

// WithShards sets the number of shards. Values below 1 keep the default.
func WithShards(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.shards = n
		}
	}
}

// New creates an empty Accumulator.
func New(opts ...Option) *Accumulator {
	o := options{shards: DefaultShardCount}
	for _, opt := range opts {
		opt(&o)
	}
	return &Accumulator{
		shards: make([]shard, o.shards),
	}
}

// ShardCount returns the fixed number of shards.
func (a *Accumulator) ShardCount() int {
	return len(a.shards)
}

func (a *Accumulator) shardFor(word string) *shard {
	return &a.shards[xxhash.Sum64String(word)%uint64(len(a.shards))]
}

// AddWord increments the count for word, inserting it with a count of 1 if
// it has not been seen.
func (a *Accumulator) AddWord(word string) {
	s := a.shardFor(word)
	s.mu.Lock()
	defer s.mu.Unlock()

	// Linear scan; shards hold only a handful of words each.
	for i := range s.entries {
		if s.entries[i].Word == word {
			s.entries[i].Count++
			return
		}
	}
	s.entries = append(s.entries, WordCount{Word: word, Count: 1})
}

// Count returns the current count for word, or 0.
func (a *Accumulator) Count(word string) int {
	s := a.shardFor(word)
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.Word == word {
			return e.Count
		}
	}
	return 0
}

// lockAll and unlockAll are the only way multi-shard operations acquire
// locks. Ascending index order is what keeps them deadlock free.
func (a *Accumulator) lockAll() {
	for i := range a.shards {
		a.shards[i].mu.Lock()
	}
}

func (a *Accumulator) unlockAll() {
	for i := len(a.shards) - 1; i >= 0; i-- {
		a.shards[i].mu.Unlock()
	}
}

// ClearResults removes every word.
func (a *Accumulator) ClearResults() {
	a.lockAll()
	defer a.unlockAll()

	for i := range a.shards {
		a.shards[i].entries = nil
	}
}

// GetUniqueWordCount returns the number of distinct words.
func (a *Accumulator) GetUniqueWordCount() int {
	a.lockAll()
	defer a.unlockAll()

	return a.countLocked()
}

func (a *Accumulator) countLocked() int {
	total := 0
	for i := range a.shards {
		total += len(a.shards[i].entries)
	}
	return total
}

// Snapshot returns a copy of every entry in unspecified order.
func (a *Accumulator) Snapshot() []WordCount {
	a.lockAll()
	all := make([]WordCount, 0, a.countLocked())
	for i := range a.shards {
		all = append(all, a.shards[i].entries...)
	}
	a.unlockAll()
	return all
}

// ListTopWords returns at most k words ordered by descending count. Words
// with equal counts are ordered lexicographically.
func (a *Accumulator) ListTopWords(k int) []WordCount {
	if k <= 0 {
		return []WordCount{}
	}

	// Sort outside the locks; the copy is already a consistent snapshot.
	all := a.Snapshot()
	sort.Slice(all, func(i, j int) bool {
		if all[i].Count != all[j].Count {
			return all[i].Count > all[j].Count
		}
		return all[i].Word < all[j].Word
	})

	if len(all) > k {
		all = all[:k]
	}
	return all
}
