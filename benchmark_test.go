package urlhash

import (
	"context"
	"net/url"
	"path/filepath"
	"testing"
)

func benchURL(b *testing.B) *url.URL {
	b.Helper()
	u, err := url.Parse("HTTPS://Example.COM:443/foo/../bar/./baz.jpg?q=hello world#frag")
	if err != nil {
		b.Fatal(err)
	}
	return u
}

func BenchmarkCanonicalize(b *testing.B) {
	u := benchURL(b)
	b.ResetTimer()
	b.ReportAllocs()
	for range b.N {
		if _, err := Canonicalize(u); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSum(b *testing.B) {
	canonical := []byte("https://example.com/bar/baz.jpg?q=hello%20world#frag")
	b.SetBytes(int64(len(canonical)))
	b.ResetTimer()
	b.ReportAllocs()
	for range b.N {
		Sum(canonical)
	}
}

func BenchmarkNew(b *testing.B) {
	u := benchURL(b)
	b.ResetTimer()
	b.ReportAllocs()
	for range b.N {
		if _, err := New(u); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSetContains(b *testing.B) {
	hashes := generateHashes(100000)
	path := filepath.Join(b.TempDir(), "bench.uhs")
	builder, err := NewSetBuilder(context.Background(), path)
	if err != nil {
		b.Fatal(err)
	}
	for _, h := range hashes {
		if err := builder.Add(h); err != nil {
			b.Fatal(err)
		}
	}
	if err := builder.Finish(); err != nil {
		b.Fatal(err)
	}
	set, err := Open(path)
	if err != nil {
		b.Fatal(err)
	}
	defer set.Close()

	b.Run("hit", func(b *testing.B) {
		b.ResetTimer()
		for i := range b.N {
			if _, err := set.Contains(hashes[i%len(hashes)]); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("miss", func(b *testing.B) {
		absent := Sum([]byte("https://absent.example.org/"))
		b.ResetTimer()
		for range b.N {
			if _, err := set.Contains(absent); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func BenchmarkDeduperSeen(b *testing.B) {
	d := NewDeduper()
	const canonical = "https://example.com/bar/baz.jpg"
	b.ResetTimer()
	b.ReportAllocs()
	for range b.N {
		d.Seen(canonical)
	}
}
