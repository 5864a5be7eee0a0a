package urlhash

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"slices"

	"github.com/cespare/xxhash/v2"
	"github.com/edsrzf/mmap-go"
	"golang.org/x/sync/errgroup"

	urlerrors "github.com/tamirms/urlhash/errors"
	"github.com/tamirms/urlhash/internal/bloom"
	"github.com/tamirms/urlhash/internal/encoding"
)

// ctxCheckInterval is how many hashes are written between context checks
// during Finish.
const ctxCheckInterval = 1 << 16

// SetBuilder accumulates hashes and writes them as a Set file.
// Add in any order; duplicates are allowed and stored once. Finish sorts,
// dedupes, and writes the file in a single mmap'd pass.
//
// A SetBuilder is not safe for concurrent use. To hash many URLs in
// parallel first, see HashAll.
type SetBuilder struct {
	ctx    context.Context
	path   string
	cfg    *buildConfig
	hashes []Hash
	closed bool
}

// NewSetBuilder creates a builder that will write the set to path.
// The context is checked during Finish, so a cancelled build does not write
// a complete file.
func NewSetBuilder(ctx context.Context, path string, opts ...BuildOption) (*SetBuilder, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := defaultBuildConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.bloomBitsPerKey < 0 {
		return nil, fmt.Errorf("urlhash: negative bloom bits per key: %d", cfg.bloomBitsPerKey)
	}
	return &SetBuilder{
		ctx:  ctx,
		path: path,
		cfg:  cfg,
	}, nil
}

// Add records a hash for inclusion in the set.
func (b *SetBuilder) Add(h Hash) error {
	if b.closed {
		return urlerrors.ErrBuilderClosed
	}
	b.hashes = append(b.hashes, h)
	return nil
}

// AddURL canonicalizes and hashes u, then records the hash.
func (b *SetBuilder) AddURL(u *url.URL) error {
	if b.closed {
		return urlerrors.ErrBuilderClosed
	}
	h, err := New(u)
	if err != nil {
		return err
	}
	b.hashes = append(b.hashes, h)
	return nil
}

// Finish sorts and dedupes the accumulated hashes and writes the set file.
// The builder is closed afterwards whether or not Finish succeeds.
func (b *SetBuilder) Finish() error {
	if b.closed {
		return urlerrors.ErrBuilderClosed
	}
	b.closed = true

	if err := b.ctx.Err(); err != nil {
		return err
	}
	if len(b.hashes) == 0 {
		return urlerrors.ErrEmptySet
	}

	slices.SortFunc(b.hashes, Hash.Compare)
	b.hashes = slices.Compact(b.hashes)
	count := uint64(len(b.hashes))

	var bloomSize uint64
	var bloomHashes uint8
	if b.cfg.bloomBitsPerKey > 0 {
		bloomSize = bloom.SizeBytes(count, b.cfg.bloomBitsPerKey)
		bloomHashes = uint8(bloom.NumHashes(b.cfg.bloomBitsPerKey))
	}

	bloomOffset := uint64(setHeaderSize)
	hashOffset := bloomOffset + bloomSize
	footerOffset := hashOffset + count*HashSize
	fileSize := footerOffset + setFooterSize

	file, err := os.Create(b.path)
	if err != nil {
		return fmt.Errorf("create set file: %w", err)
	}

	// Pre-allocate disk blocks to prevent SIGBUS on disk full.
	if err := fallocateFile(file, int64(fileSize)); err != nil {
		primaryErr := fmt.Errorf("allocate disk space: %w", err)
		return errors.Join(primaryErr, file.Close(), os.Remove(b.path))
	}

	mm, err := mmap.MapRegion(file, int(fileSize), mmap.RDWR, 0, 0)
	if err != nil {
		primaryErr := fmt.Errorf("mmap set file: %w", err)
		return errors.Join(primaryErr, file.Close(), os.Remove(b.path))
	}
	data := []byte(mm)
	if b.cfg.prefault {
		prefaultRegion(data)
	}

	if err := b.writeRegions(data, bloomOffset, hashOffset, footerOffset, bloomHashes); err != nil {
		return errors.Join(err, mm.Unmap(), file.Close(), os.Remove(b.path))
	}

	if err := mm.Flush(); err != nil {
		primaryErr := fmt.Errorf("flush set file: %w", err)
		return errors.Join(primaryErr, mm.Unmap(), file.Close(), os.Remove(b.path))
	}
	if err := mm.Unmap(); err != nil {
		return errors.Join(fmt.Errorf("unmap set file: %w", err), file.Close())
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close set file: %w", err)
	}
	return nil
}

// writeRegions fills the mapped file: header, bloom region, hash region,
// footer. b.hashes must already be sorted and deduped.
func (b *SetBuilder) writeRegions(data []byte, bloomOffset, hashOffset, footerOffset uint64, bloomHashes uint8) error {
	hdr := setHeader{
		Magic:       setMagic,
		Version:     setVersion,
		Count:       uint64(len(b.hashes)),
		BloomSize:   hashOffset - bloomOffset,
		BloomHashes: bloomHashes,
	}
	hdr.encodeTo(data[:setHeaderSize])

	bloomRegion := data[bloomOffset:hashOffset]
	hashRegion := data[hashOffset:footerOffset]

	var filter *bloom.Filter
	if hdr.hasBloom() {
		filter = bloom.View(bloomRegion, int(bloomHashes))
	}

	var words [4]uint64
	for i, h := range b.hashes {
		if i%ctxCheckInterval == 0 {
			if err := b.ctx.Err(); err != nil {
				return err
			}
		}
		words[0], words[1], words[2], words[3] = h.Words()
		dst := hashRegion[i*HashSize : (i+1)*HashSize]
		encoding.PutWords(dst, words[:])
		if filter != nil {
			filter.Add(dst)
		}
	}

	ftr := setFooter{
		BloomRegionHash: xxhash.Sum64(bloomRegion),
		HashRegionHash:  xxhash.Sum64(hashRegion),
	}
	ftr.encodeTo(data[footerOffset:])
	return nil
}

// HashAll canonicalizes and hashes urls on up to workers goroutines,
// returning hashes in input order. It stops at the first invalid URL or on
// context cancellation. workers below 1 is treated as 1.
func HashAll(ctx context.Context, urls []*url.URL, workers int) ([]Hash, error) {
	if workers < 1 {
		workers = 1
	}
	out := make([]Hash, len(urls))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	chunk := (len(urls) + workers - 1) / workers
	for start := 0; start < len(urls); start += chunk {
		end := min(start+chunk, len(urls))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				h, err := New(urls[i])
				if err != nil {
					return fmt.Errorf("url %d: %w", i, err)
				}
				out[i] = h
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
