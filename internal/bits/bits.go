// Package bits provides low-level bit manipulation primitives.
package bits

import "math/bits"

// FastRange64 maps a 64-bit hash uniformly to [0, n).
// Uses the "fastrange" technique: multiply and take the high half.
// This is the standard way to map hashes to ranges without modulo bias.
func FastRange64(hash, n uint64) uint64 {
	if n == 0 {
		return 0
	}
	hi, _ := bits.Mul64(hash, n)
	return hi
}
