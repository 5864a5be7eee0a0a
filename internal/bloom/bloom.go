// Package bloom implements a fixed-geometry bloom filter used as a
// prefilter in front of the on-disk hash set: a negative answer skips the
// binary search entirely, and URL dedup workloads are overwhelmingly
// negative lookups.
//
// Bit positions come from murmur3 128-bit double hashing: position i is
// fastrange(lo + i*hi, m). The filter operates directly on a caller-owned
// byte region, so the same code fills a mmap'd file section at build time
// and reads it zero-copy at query time.
package bloom

import (
	"github.com/spaolacci/murmur3"

	"github.com/tamirms/urlhash/internal/bits"
)

// maxHashes bounds the number of probes per key. Beyond ~16 the false
// positive rate no longer improves for any practical bits-per-key.
const maxHashes = 16

// Filter is a view over a byte region interpreted as a bit array.
// Add mutates the region; Contains only reads. Concurrent Contains calls
// are safe; Add is not safe concurrently with anything.
type Filter struct {
	data []byte
	k    int
}

// SizeBytes returns the region size for n keys at bitsPerKey bits each,
// rounded up to a multiple of 8 bytes with an 8-byte minimum.
func SizeBytes(n uint64, bitsPerKey int) uint64 {
	b := (n*uint64(bitsPerKey) + 7) / 8
	b = (b + 7) &^ 7
	if b < 8 {
		b = 8
	}
	return b
}

// NumHashes returns the probe count for bitsPerKey: bitsPerKey * ln2,
// clamped to [1, maxHashes]. 10 bits/key gives k=6 and ~1% false positives.
func NumHashes(bitsPerKey int) int {
	k := bitsPerKey * 69 / 100
	if k < 1 {
		k = 1
	}
	if k > maxHashes {
		k = maxHashes
	}
	return k
}

// View wraps an existing byte region as a filter with k probes per key.
// The region is not copied; it must outlive the filter.
func View(data []byte, k int) *Filter {
	return &Filter{data: data, k: k}
}

// Add sets the k bits for key.
func (f *Filter) Add(key []byte) {
	lo, hi := murmur3.Sum128(key)
	m := uint64(len(f.data)) * 8
	for i := 0; i < f.k; i++ {
		pos := bits.FastRange64(lo, m)
		f.data[pos>>3] |= 1 << (pos & 7)
		lo += hi
	}
}

// Contains reports whether all k bits for key are set. False positives are
// possible at the configured rate; false negatives are not.
func (f *Filter) Contains(key []byte) bool {
	lo, hi := murmur3.Sum128(key)
	m := uint64(len(f.data)) * 8
	for i := 0; i < f.k; i++ {
		pos := bits.FastRange64(lo, m)
		if f.data[pos>>3]&(1<<(pos&7)) == 0 {
			return false
		}
		lo += hi
	}
	return true
}
