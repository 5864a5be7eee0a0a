package urlhash

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	urlerrors "github.com/tamirms/urlhash/errors"
)

func TestDeduperSeen(t *testing.T) {
	d := NewDeduper()

	if d.Seen("https://example.com/") {
		t.Error("first Seen returned true")
	}
	if !d.Seen("https://example.com/") {
		t.Error("second Seen returned false")
	}
	if d.Seen("https://example.com/other") {
		t.Error("distinct canonical reported as seen")
	}
	if d.Len() != 2 {
		t.Errorf("Len() = %d, want 2", d.Len())
	}
}

func TestDeduperSeenURL(t *testing.T) {
	d := NewDeduper()

	seen, err := d.SeenURL(mustParse(t, "HTTPS://EXAMPLE.COM/a/../b"))
	if err != nil || seen {
		t.Fatalf("first SeenURL = %v, %v", seen, err)
	}
	// A differently spelled but equivalent URL is a duplicate.
	seen, err = d.SeenURL(mustParse(t, "https://example.com/b"))
	if err != nil || !seen {
		t.Fatalf("equivalent SeenURL = %v, %v", seen, err)
	}

	if _, err := d.SeenURL(mustParse(t, "no-scheme")); !errors.Is(err, urlerrors.ErrInvalidURL) {
		t.Errorf("err = %v, want ErrInvalidURL", err)
	}
}

func TestDeduperConcurrent(t *testing.T) {
	d := NewDeduper()
	const workers = 8
	const distinct = 1000

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range distinct {
				d.Seen(fmt.Sprintf("https://example.com/item/%d", i))
			}
		}()
	}
	wg.Wait()

	if d.Len() != distinct {
		t.Errorf("Len() = %d, want %d", d.Len(), distinct)
	}
}
