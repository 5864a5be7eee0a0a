package urlhash

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/edsrzf/mmap-go"

	urlerrors "github.com/tamirms/urlhash/errors"
	"github.com/tamirms/urlhash/internal/bloom"
	"github.com/tamirms/urlhash/internal/encoding"
)

// Set is a read-only, memory-mapped set of URL hashes built by SetBuilder.
// It answers membership for full hashes and prefix probes for the truncated
// forms without loading the file into RAM.
//
// Thread Safety:
// - Contains, LookupShort, LookupVeryShort, Verify, and Stats are safe for concurrent use
// - Close is NOT safe to call concurrently with queries
// - After Close returns, no methods may be called on the Set
type Set struct {
	// Memory map (no file handle needed after mmap)
	mmap mmap.MMap
	data []byte

	// Parsed header
	header *setHeader

	// Region views into data
	bloomRegion []byte
	hashRegion  []byte

	// Bloom prefilter view (nil when the file carries none)
	filter *bloom.Filter

	closed atomic.Bool // Atomic for lock-free close check
}

// SetStats holds set statistics.
type SetStats struct {
	NumHashes  uint64
	BloomBytes uint64
	FileSize   int64
}

// Open opens a set file for querying.
// It opens the file, memory-maps it, and closes the file descriptor.
func Open(path string) (*Set, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open set file: %w", err)
	}
	defer file.Close()
	return OpenFile(file)
}

// OpenFile opens a set by memory-mapping the given file. The caller is
// responsible for closing f. Per POSIX mmap(2), f may be closed immediately
// after OpenFile returns.
func OpenFile(f *os.File) (*Set, error) {
	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat set file: %w", err)
	}
	fileSize := stat.Size()

	if fileSize < int64(minSetFileSize) {
		return nil, urlerrors.ErrTruncatedFile
	}

	// Queries binary-search the hash region, so readahead is wasted work.
	fadviseRandom(int(f.Fd()), 0, fileSize)

	mm, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("mmap set file: %w", err)
	}

	s := &Set{
		mmap: mm,
		data: []byte(mm),
	}
	if err := s.initFromData(); err != nil {
		return nil, errors.Join(err, s.Close())
	}
	return s, nil
}

// OpenBytes creates a Set from an in-memory byte slice. No file is opened
// or memory-mapped; Close is a no-op. The caller must ensure data is not
// modified while the Set is in use.
func OpenBytes(data []byte) (*Set, error) {
	if len(data) < minSetFileSize {
		return nil, urlerrors.ErrTruncatedFile
	}
	s := &Set{
		data: data,
	}
	if err := s.initFromData(); err != nil {
		return nil, err
	}
	return s, nil
}

// initFromData parses the header and computes region views from s.data.
// Footer decoding is deferred to Verify; opening only touches the header.
func (s *Set) initFromData() error {
	hdr, err := decodeSetHeader(s.data[:setHeaderSize])
	if err != nil {
		return err
	}

	// Bound the geometry before any offset arithmetic: a crafted Count or
	// BloomSize would otherwise wrap the uint64 products below, slip past
	// the size checks, and panic on the first query. maxRegionBytes keeps
	// wantSize well under 2^64 while admitting any realizable file.
	const maxRegionBytes = uint64(1) << 62
	if hdr.BloomSize > maxRegionBytes || hdr.Count > maxRegionBytes/HashSize {
		return urlerrors.ErrCorruptedSet
	}

	bloomOffset := uint64(setHeaderSize)
	hashOffset := bloomOffset + hdr.BloomSize
	footerOffset := hashOffset + hdr.Count*HashSize

	wantSize := footerOffset + setFooterSize
	if uint64(len(s.data)) < wantSize {
		return urlerrors.ErrTruncatedFile
	}
	if uint64(len(s.data)) != wantSize {
		return urlerrors.ErrCorruptedSet
	}

	s.header = hdr
	s.bloomRegion = s.data[bloomOffset:hashOffset]
	s.hashRegion = s.data[hashOffset:footerOffset]
	if hdr.hasBloom() {
		s.filter = bloom.View(s.bloomRegion, int(hdr.BloomHashes))
	}
	return nil
}

// Contains reports whether h is in the set.
func (s *Set) Contains(h Hash) (bool, error) {
	if s.closed.Load() {
		return false, urlerrors.ErrSetClosed
	}
	if s.filter != nil {
		key := h.Bytes()
		if !s.filter.Contains(key[:]) {
			return false, nil
		}
	}
	i := s.search(func(i int) int { return s.compareAt(i, h) })
	if i == int(s.header.Count) {
		return false, nil
	}
	return s.hashAt(i) == h, nil
}

// LookupShort returns the first hash in the set whose leading 16 bytes
// equal short, if any. Distinct URLs can share a short prefix, so a hit
// identifies one such hash, not necessarily a unique one.
func (s *Set) LookupShort(short ShortHash) (Hash, bool, error) {
	if s.closed.Load() {
		return Hash{}, false, urlerrors.ErrSetClosed
	}
	i := s.search(func(i int) int {
		e := s.hashAt(i)
		if c := cmp.Compare(e.v1, short.v1); c != 0 {
			return c
		}
		return cmp.Compare(e.v2, short.v2)
	})
	if i == int(s.header.Count) {
		return Hash{}, false, nil
	}
	if h := s.hashAt(i); h.StartsWith(short) {
		return h, true, nil
	}
	return Hash{}, false, nil
}

// LookupVeryShort returns the first hash in the set whose leading 8 bytes
// equal very, if any.
func (s *Set) LookupVeryShort(very VeryShortHash) (Hash, bool, error) {
	if s.closed.Load() {
		return Hash{}, false, urlerrors.ErrSetClosed
	}
	i := s.search(func(i int) int {
		return cmp.Compare(s.hashAt(i).v1, very.v1)
	})
	if i == int(s.header.Count) {
		return Hash{}, false, nil
	}
	if h := s.hashAt(i); h.StartsWithJust(very) {
		return h, true, nil
	}
	return Hash{}, false, nil
}

// search returns the smallest index i for which cmpAt(i) >= 0, or Count
// when there is none. cmpAt must be non-decreasing over the sorted region.
func (s *Set) search(cmpAt func(int) int) int {
	return sort.Search(int(s.header.Count), func(i int) bool {
		return cmpAt(i) >= 0
	})
}

// compareAt compares the i-th stored hash against h, decoding words lazily:
// most comparisons are decided by v1 alone.
func (s *Set) compareAt(i int, h Hash) int {
	off := i * HashSize
	if c := cmp.Compare(encoding.WordAt(s.hashRegion[off:], 0), h.v1); c != 0 {
		return c
	}
	if c := cmp.Compare(encoding.WordAt(s.hashRegion[off:], 1), h.v2); c != 0 {
		return c
	}
	if c := cmp.Compare(encoding.WordAt(s.hashRegion[off:], 2), h.v3); c != 0 {
		return c
	}
	return cmp.Compare(encoding.WordAt(s.hashRegion[off:], 3), h.v4)
}

// hashAt decodes the i-th stored hash.
func (s *Set) hashAt(i int) Hash {
	var w [4]uint64
	encoding.ReadWords(s.hashRegion[i*HashSize:], w[:])
	return Hash{w[0], w[1], w[2], w[3]}
}

// Verify checks the footer checksums over the bloom and hash regions.
// Open does not verify; callers that need corruption detection (e.g. after
// copying files between machines) call Verify once after opening.
func (s *Set) Verify() error {
	if s.closed.Load() {
		return urlerrors.ErrSetClosed
	}
	ftr, err := decodeSetFooter(s.data[len(s.data)-setFooterSize:])
	if err != nil {
		return err
	}
	if xxhash.Sum64(s.bloomRegion) != ftr.BloomRegionHash {
		return urlerrors.ErrChecksumFailed
	}
	if xxhash.Sum64(s.hashRegion) != ftr.HashRegionHash {
		return urlerrors.ErrChecksumFailed
	}
	return nil
}

// Stats returns set statistics.
func (s *Set) Stats() (SetStats, error) {
	if s.closed.Load() {
		return SetStats{}, urlerrors.ErrSetClosed
	}
	return SetStats{
		NumHashes:  s.header.Count,
		BloomBytes: s.header.BloomSize,
		FileSize:   int64(len(s.data)),
	}, nil
}

// Close unmaps the file. Safe to call more than once.
func (s *Set) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if s.mmap != nil {
		mm := s.mmap
		s.mmap = nil
		return mm.Unmap()
	}
	return nil
}
