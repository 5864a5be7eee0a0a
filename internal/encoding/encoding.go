// Package encoding defines the wire layout shared by hash values and set
// files: consecutive 8-byte groups, each a little-endian uint64. The first
// byte of a group is the least-significant byte of its word. Every place a
// hash crosses a byte boundary (serialization, file regions, hex rendering)
// goes through these helpers so the layout is defined exactly once.
package encoding

import "encoding/binary"

// WordSize is the number of bytes per 64-bit group.
const WordSize = 8

// PutWords writes words into dst, little-endian, 8 bytes per word.
// Precondition: len(dst) >= 8*len(words).
func PutWords(dst []byte, words []uint64) {
	for i, w := range words {
		binary.LittleEndian.PutUint64(dst[i*WordSize:], w)
	}
}

// ReadWords fills words from src, little-endian, 8 bytes per word.
// Precondition: len(src) >= 8*len(words).
func ReadWords(src []byte, words []uint64) {
	for i := range words {
		words[i] = binary.LittleEndian.Uint64(src[i*WordSize:])
	}
}

// WordAt reads the i-th 8-byte group of src as a little-endian uint64.
// Precondition: len(src) >= 8*(i+1).
func WordAt(src []byte, i int) uint64 {
	return binary.LittleEndian.Uint64(src[i*WordSize:])
}
