// Package urlhash computes stable, platform-portable fingerprints for URLs.
//
// A URL has many textually distinct but equivalent spellings (case, default
// ports, dot-segments, percent-encoding variance, Unicode hosts). This
// package fixes a single canonical byte form for a URL, hashes it with
// SHA-256, and exposes the digest as four little-endian uint64 values. Any
// conforming implementation, in any language, produces bit-identical values
// for the same URL, which is what makes the hashes usable as cache keys and
// dedup fingerprints across independent systems. Language-native hash
// functions cannot provide this: they are deliberately unstable across
// processes and versions.
//
// # Basic Usage
//
// Hashing a URL:
//
//	u, err := url.Parse("https://example.com/foo/../bar")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	h, err := urlhash.New(u)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(h) // 64 hex chars
//
// Truncated forms trade collision resistance for size and are pure prefix
// projections of the full hash, never a re-hash:
//
//	short := h.Short()          // first 16 bytes
//	very := h.VeryShort()       // first 8 bytes
//	h.StartsWith(short)         // always true
//	h.StartsWithJust(very)      // always true
//
// Persistent membership over many hashes:
//
//	b, err := urlhash.NewSetBuilder(ctx, "seen.uhs")
//	for _, h := range hashes {
//	    b.Add(h)
//	}
//	err = b.Finish()
//
//	set, err := urlhash.Open("seen.uhs")
//	defer set.Close()
//	ok, err := set.Contains(h)
//
// # Package Structure
//
// The implementation is organized as follows:
//
//   - Canonicalization: canonical.go (Canonicalize), ports.go (default-port registry)
//   - Hash types: hash.go (Hash, ShortHash, VeryShortHash, New, Sum)
//   - Persistent set: set.go (Open, Contains), set_builder.go (SetBuilder, HashAll)
//   - Serialization: header.go, internal/encoding (hash wire layout)
//   - Process-local dedup: dedup.go (Deduper)
//   - Configuration: options.go (BuildOption, With* functions)
//   - Platform: fallocate_*.go, fadvise_*.go, prefault_*.go (OS-specific optimizations)
package urlhash
