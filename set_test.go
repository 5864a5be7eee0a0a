package urlhash

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	urlerrors "github.com/tamirms/urlhash/errors"
)

// testURLs returns n parsed URLs with distinct paths.
func testURLs(t *testing.T, n int) []*url.URL {
	t.Helper()
	urls := make([]*url.URL, n)
	for i := range urls {
		urls[i] = mustParse(t, fmt.Sprintf("https://example.com/item/%d?page=%d", i, i%7))
	}
	return urls
}

// buildTestSet builds a set file from the given hashes and returns its path.
func buildTestSet(t *testing.T, hashes []Hash, opts ...BuildOption) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.uhs")
	b, err := NewSetBuilder(context.Background(), path, opts...)
	if err != nil {
		t.Fatalf("NewSetBuilder: %v", err)
	}
	for _, h := range hashes {
		if err := b.Add(h); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if err := b.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	return path
}

// mustContain asserts membership of h in s.
func mustContain(t *testing.T, s *Set, h Hash, want bool) {
	t.Helper()
	got, err := s.Contains(h)
	if err != nil {
		t.Fatalf("Contains: %v", err)
	}
	if got != want {
		t.Fatalf("Contains(%s) = %v, want %v", h, got, want)
	}
}

func TestSetBuildAndQuery(t *testing.T) {
	urls := testURLs(t, 2000)
	hashes, err := HashAll(context.Background(), urls, 4)
	if err != nil {
		t.Fatalf("HashAll: %v", err)
	}

	path := buildTestSet(t, hashes)
	set, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer set.Close()

	if err := set.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	stats, err := set.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.NumHashes != uint64(len(hashes)) {
		t.Errorf("NumHashes = %d, want %d", stats.NumHashes, len(hashes))
	}
	if stats.BloomBytes == 0 {
		t.Error("expected a bloom region by default")
	}

	for _, h := range hashes {
		mustContain(t, set, h, true)
	}

	for _, raw := range []string{
		"https://example.com/item/2000",
		"https://other.example.net/",
	} {
		h, err := New(mustParse(t, raw))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		mustContain(t, set, h, false)
	}
}

func TestSetPrefixLookups(t *testing.T) {
	hashes := generateHashes(500)
	path := buildTestSet(t, hashes)
	set, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer set.Close()

	for _, h := range hashes[:50] {
		got, ok, err := set.LookupShort(h.Short())
		if err != nil {
			t.Fatalf("LookupShort: %v", err)
		}
		if !ok || !got.StartsWith(h.Short()) {
			t.Fatalf("LookupShort(%s) = %v, %v", h.Short(), got, ok)
		}

		got, ok, err = set.LookupVeryShort(h.VeryShort())
		if err != nil {
			t.Fatalf("LookupVeryShort: %v", err)
		}
		if !ok || !got.StartsWithJust(h.VeryShort()) {
			t.Fatalf("LookupVeryShort(%s) = %v, %v", h.VeryShort(), got, ok)
		}
	}

	absent := Sum([]byte("https://absent.example.org/"))
	if _, ok, _ := set.LookupShort(absent.Short()); ok {
		t.Error("LookupShort hit for absent prefix")
	}
	if _, ok, _ := set.LookupVeryShort(absent.VeryShort()); ok {
		t.Error("LookupVeryShort hit for absent prefix")
	}
}

func TestSetWithoutBloom(t *testing.T) {
	hashes := generateHashes(200)
	path := buildTestSet(t, hashes, WithBloomBitsPerKey(0))
	set, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer set.Close()

	stats, err := set.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.BloomBytes != 0 {
		t.Errorf("BloomBytes = %d, want 0", stats.BloomBytes)
	}
	if err := set.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	for _, h := range hashes {
		mustContain(t, set, h, true)
	}
	mustContain(t, set, Sum([]byte("absent")), false)
}

func TestSetDeduplicates(t *testing.T) {
	hashes := generateHashes(100)
	// Every hash added three times.
	tripled := append(append(append([]Hash(nil), hashes...), hashes...), hashes...)
	path := buildTestSet(t, tripled)
	set, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer set.Close()

	stats, err := set.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if got := stats.NumHashes; got != uint64(len(hashes)) {
		t.Errorf("NumHashes = %d, want %d", got, len(hashes))
	}
}

func TestSetOpenBytes(t *testing.T) {
	hashes := generateHashes(50)
	path := buildTestSet(t, hashes)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	set, err := OpenBytes(data)
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	defer set.Close()
	if err := set.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	for _, h := range hashes {
		mustContain(t, set, h, true)
	}
}

func TestSetCorruption(t *testing.T) {
	hashes := generateHashes(100)
	path := buildTestSet(t, hashes)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	t.Run("flipped hash byte fails Verify", func(t *testing.T) {
		corrupt := append([]byte(nil), data...)
		corrupt[len(corrupt)-setFooterSize-1] ^= 0xFF
		set, err := OpenBytes(corrupt)
		if err != nil {
			t.Fatalf("OpenBytes: %v", err)
		}
		if err := set.Verify(); !errors.Is(err, urlerrors.ErrChecksumFailed) {
			t.Errorf("Verify err = %v, want ErrChecksumFailed", err)
		}
	})

	t.Run("bad magic", func(t *testing.T) {
		corrupt := append([]byte(nil), data...)
		corrupt[0] ^= 0xFF
		if _, err := OpenBytes(corrupt); !errors.Is(err, urlerrors.ErrInvalidMagic) {
			t.Errorf("err = %v, want ErrInvalidMagic", err)
		}
	})

	t.Run("bad version", func(t *testing.T) {
		corrupt := append([]byte(nil), data...)
		corrupt[4] ^= 0xFF
		if _, err := OpenBytes(corrupt); !errors.Is(err, urlerrors.ErrInvalidVersion) {
			t.Errorf("err = %v, want ErrInvalidVersion", err)
		}
	})

	t.Run("overflowing count", func(t *testing.T) {
		// A minimal file whose header claims a Count large enough that
		// Count*HashSize wraps uint64. It must be rejected at open time,
		// not fail on the first query.
		crafted := make([]byte, minSetFileSize)
		hdr := setHeader{
			Magic:   setMagic,
			Version: setVersion,
			Count:   1 << 59,
		}
		hdr.encodeTo(crafted[:setHeaderSize])
		if _, err := OpenBytes(crafted); !errors.Is(err, urlerrors.ErrCorruptedSet) {
			t.Fatalf("err = %v, want ErrCorruptedSet", err)
		}
	})

	t.Run("overflowing bloom size", func(t *testing.T) {
		crafted := make([]byte, minSetFileSize)
		hdr := setHeader{
			Magic:       setMagic,
			Version:     setVersion,
			Count:       1,
			BloomSize:   1 << 63,
			BloomHashes: 6,
		}
		hdr.encodeTo(crafted[:setHeaderSize])
		if _, err := OpenBytes(crafted); !errors.Is(err, urlerrors.ErrCorruptedSet) {
			t.Errorf("err = %v, want ErrCorruptedSet", err)
		}
	})

	t.Run("truncated", func(t *testing.T) {
		if _, err := OpenBytes(data[:len(data)-40]); !errors.Is(err, urlerrors.ErrTruncatedFile) {
			t.Errorf("err = %v, want ErrTruncatedFile", err)
		}
	})

	t.Run("tiny file", func(t *testing.T) {
		if _, err := OpenBytes(data[:16]); !errors.Is(err, urlerrors.ErrTruncatedFile) {
			t.Errorf("err = %v, want ErrTruncatedFile", err)
		}
	})

	t.Run("truncated file on disk", func(t *testing.T) {
		truncPath := filepath.Join(t.TempDir(), "trunc.uhs")
		if err := os.WriteFile(truncPath, data[:len(data)-40], 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		if _, err := Open(truncPath); !errors.Is(err, urlerrors.ErrTruncatedFile) {
			t.Errorf("err = %v, want ErrTruncatedFile", err)
		}
	})
}

func TestSetBuilderLifecycle(t *testing.T) {
	t.Run("empty set", func(t *testing.T) {
		b, err := NewSetBuilder(context.Background(), filepath.Join(t.TempDir(), "e.uhs"))
		if err != nil {
			t.Fatalf("NewSetBuilder: %v", err)
		}
		if err := b.Finish(); !errors.Is(err, urlerrors.ErrEmptySet) {
			t.Errorf("Finish err = %v, want ErrEmptySet", err)
		}
	})

	t.Run("add after finish", func(t *testing.T) {
		b, err := NewSetBuilder(context.Background(), filepath.Join(t.TempDir(), "c.uhs"))
		if err != nil {
			t.Fatalf("NewSetBuilder: %v", err)
		}
		if err := b.Add(generateHashes(1)[0]); err != nil {
			t.Fatalf("Add: %v", err)
		}
		if err := b.Finish(); err != nil {
			t.Fatalf("Finish: %v", err)
		}
		if err := b.Add(generateHashes(1)[0]); !errors.Is(err, urlerrors.ErrBuilderClosed) {
			t.Errorf("Add err = %v, want ErrBuilderClosed", err)
		}
		if err := b.Finish(); !errors.Is(err, urlerrors.ErrBuilderClosed) {
			t.Errorf("second Finish err = %v, want ErrBuilderClosed", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		path := filepath.Join(t.TempDir(), "x.uhs")
		b, err := NewSetBuilder(ctx, path)
		if err != nil {
			t.Fatalf("NewSetBuilder: %v", err)
		}
		if err := b.Add(generateHashes(1)[0]); err != nil {
			t.Fatalf("Add: %v", err)
		}
		cancel()
		if err := b.Finish(); !errors.Is(err, context.Canceled) {
			t.Errorf("Finish err = %v, want context.Canceled", err)
		}
	})

	t.Run("negative bloom bits", func(t *testing.T) {
		if _, err := NewSetBuilder(context.Background(), "p", WithBloomBitsPerKey(-1)); err == nil {
			t.Error("expected error for negative bloom bits per key")
		}
	})

	t.Run("add URL", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "u.uhs")
		b, err := NewSetBuilder(context.Background(), path)
		if err != nil {
			t.Fatalf("NewSetBuilder: %v", err)
		}
		if err := b.AddURL(mustParse(t, "https://example.com/")); err != nil {
			t.Fatalf("AddURL: %v", err)
		}
		if err := b.AddURL(mustParse(t, "no-scheme")); !errors.Is(err, urlerrors.ErrInvalidURL) {
			t.Errorf("AddURL err = %v, want ErrInvalidURL", err)
		}
		if err := b.Finish(); err != nil {
			t.Fatalf("Finish: %v", err)
		}

		set, err := Open(path)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		defer set.Close()
		h, _ := New(mustParse(t, "HTTPS://EXAMPLE.COM"))
		mustContain(t, set, h, true)
	})
}

func TestSetClosed(t *testing.T) {
	path := buildTestSet(t, generateHashes(10))
	set, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := set.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Close is idempotent.
	if err := set.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	if _, err := set.Contains(Hash{}); !errors.Is(err, urlerrors.ErrSetClosed) {
		t.Errorf("Contains err = %v, want ErrSetClosed", err)
	}
	if _, _, err := set.LookupShort(ShortHash{}); !errors.Is(err, urlerrors.ErrSetClosed) {
		t.Errorf("LookupShort err = %v, want ErrSetClosed", err)
	}
	if _, _, err := set.LookupVeryShort(VeryShortHash{}); !errors.Is(err, urlerrors.ErrSetClosed) {
		t.Errorf("LookupVeryShort err = %v, want ErrSetClosed", err)
	}
	if err := set.Verify(); !errors.Is(err, urlerrors.ErrSetClosed) {
		t.Errorf("Verify err = %v, want ErrSetClosed", err)
	}
	if _, err := set.Stats(); !errors.Is(err, urlerrors.ErrSetClosed) {
		t.Errorf("Stats err = %v, want ErrSetClosed", err)
	}
}

func TestSetConcurrentQueries(t *testing.T) {
	hashes := generateHashes(500)
	path := buildTestSet(t, hashes)
	set, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer set.Close()

	done := make(chan error, 8)
	for w := range 8 {
		go func() {
			for i := w; i < len(hashes); i += 8 {
				ok, err := set.Contains(hashes[i])
				if err != nil {
					done <- err
					return
				}
				if !ok {
					done <- fmt.Errorf("hash %d missing", i)
					return
				}
			}
			done <- nil
		}()
	}
	for range 8 {
		if err := <-done; err != nil {
			t.Fatal(err)
		}
	}
}

func TestHashAll(t *testing.T) {
	urls := testURLs(t, 333)

	sequential := make([]Hash, len(urls))
	for i, u := range urls {
		h, err := New(u)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		sequential[i] = h
	}

	for _, workers := range []int{0, 1, 3, 8} {
		parallel, err := HashAll(context.Background(), urls, workers)
		if err != nil {
			t.Fatalf("HashAll(workers=%d): %v", workers, err)
		}
		for i := range sequential {
			if parallel[i] != sequential[i] {
				t.Fatalf("workers=%d: hash %d differs", workers, i)
			}
		}
	}

	t.Run("invalid URL fails", func(t *testing.T) {
		bad := append(append([]*url.URL(nil), urls[:3]...), mustParse(t, "no-scheme"))
		if _, err := HashAll(context.Background(), bad, 2); !errors.Is(err, urlerrors.ErrInvalidURL) {
			t.Errorf("err = %v, want ErrInvalidURL", err)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		out, err := HashAll(context.Background(), nil, 4)
		if err != nil || len(out) != 0 {
			t.Errorf("HashAll(nil) = %v, %v", out, err)
		}
	})
}
