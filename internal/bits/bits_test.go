package bits

import (
	"math"
	"math/rand/v2"
	"testing"
)

func TestFastRange64Bounds(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 0))
	for _, n := range []uint64{1, 2, 3, 10, 1000, 1 << 32, math.MaxUint64} {
		for range 1000 {
			if got := FastRange64(rng.Uint64(), n); got >= n {
				t.Fatalf("FastRange64(_, %d) = %d out of range", n, got)
			}
		}
	}
}

func TestFastRange64Zero(t *testing.T) {
	if got := FastRange64(12345, 0); got != 0 {
		t.Errorf("FastRange64(_, 0) = %d, want 0", got)
	}
}

func TestFastRange64Extremes(t *testing.T) {
	const n = 1000
	if got := FastRange64(0, n); got != 0 {
		t.Errorf("FastRange64(0, %d) = %d, want 0", n, got)
	}
	if got := FastRange64(math.MaxUint64, n); got != n-1 {
		t.Errorf("FastRange64(MaxUint64, %d) = %d, want %d", n, got, n-1)
	}
}

func TestFastRange64Distribution(t *testing.T) {
	// Coarse uniformity check: each decile gets its share.
	const n = 10
	rng := rand.New(rand.NewPCG(11, 0))
	var counts [n]int
	const samples = 100000
	for range samples {
		counts[FastRange64(rng.Uint64(), n)]++
	}
	for i, c := range counts {
		if c < samples/n*8/10 || c > samples/n*12/10 {
			t.Errorf("bucket %d count %d outside 20%% of uniform", i, c)
		}
	}
}
