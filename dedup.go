package urlhash

import (
	"net/url"
	"sync"

	"github.com/zeebo/xxh3"
)

// dedupShardBits selects the shard from the top bits of the key hash,
// which are independent of the map's own bucket selection on the low bits.
const dedupShardBits = 6

const numDedupShards = 1 << dedupShardBits

// Deduper is an in-process seen-set over canonical URL forms, the fast
// counterpart to Hash for callers that only dedup within a single process.
// It keys on xxHash3-64 of the canonical form, so membership answers are
// NOT portable and can collide at the birthday bound of a 64-bit key space
// (~5 billion entries for a 50% chance of one collision). Anything that
// leaves the process must use Hash instead.
//
// Safe for concurrent use; keys are sharded across independently locked
// maps to keep goroutines from serializing on one mutex.
type Deduper struct {
	shards [numDedupShards]dedupShard
}

type dedupShard struct {
	mu   sync.Mutex
	seen map[uint64]struct{}
}

// NewDeduper returns an empty Deduper.
func NewDeduper() *Deduper {
	d := &Deduper{}
	for i := range d.shards {
		d.shards[i].seen = make(map[uint64]struct{})
	}
	return d
}

// Seen records canonical and reports whether it had already been recorded.
func (d *Deduper) Seen(canonical string) bool {
	key := xxh3.HashString(canonical)
	s := &d.shards[key>>(64-dedupShardBits)]
	s.mu.Lock()
	_, ok := s.seen[key]
	if !ok {
		s.seen[key] = struct{}{}
	}
	s.mu.Unlock()
	return ok
}

// SeenURL canonicalizes u and records it, reporting whether an equivalent
// URL had already been recorded.
func (d *Deduper) SeenURL(u *url.URL) (bool, error) {
	c, err := Canonicalize(u)
	if err != nil {
		return false, err
	}
	return d.Seen(c), nil
}

// Len returns the number of distinct canonical forms recorded.
func (d *Deduper) Len() int {
	n := 0
	for i := range d.shards {
		s := &d.shards[i]
		s.mu.Lock()
		n += len(s.seen)
		s.mu.Unlock()
	}
	return n
}
