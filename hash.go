package urlhash

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"net/url"

	urlerrors "github.com/tamirms/urlhash/errors"
	"github.com/tamirms/urlhash/internal/encoding"
)

// Sizes of the serialized hash forms in bytes.
const (
	HashSize          = 32
	ShortHashSize     = 16
	VeryShortHashSize = 8
)

// Hash is the full, portable fingerprint of a URL: the SHA-256 digest of
// its canonical form, held as four uint64 values (v1..v4). Each value is
// the little-endian reading of one 8-byte digest group, in digest order, so
// identical canonical forms yield identical values on every platform and in
// every conforming implementation.
//
// Hash is an immutable comparable value type; == is exact equality on all
// four words.
type Hash struct {
	v1, v2, v3, v4 uint64
}

// ShortHash is the first 16 bytes of a Hash. It is obtained by truncation
// (Hash.Short) or deserialization of a previously truncated value, never by
// hashing: truncation is a prefix projection, not a re-hash.
type ShortHash struct {
	v1, v2 uint64
}

// VeryShortHash is the first 8 bytes of a Hash, with the same truncation-only
// construction discipline as ShortHash.
type VeryShortHash struct {
	v1 uint64
}

// New canonicalizes u and returns the hash of its canonical form.
func New(u *url.URL) (Hash, error) {
	c, err := Canonicalize(u)
	if err != nil {
		return Hash{}, err
	}
	return Sum([]byte(c)), nil
}

// Sum hashes an already-canonical byte form. Callers that need both the
// canonical form and its hash should call Canonicalize once and pass the
// result here rather than calling New.
func Sum(canonical []byte) Hash {
	d := sha256.Sum256(canonical)
	var w [4]uint64
	encoding.ReadWords(d[:], w[:])
	return Hash{w[0], w[1], w[2], w[3]}
}

// Words returns the four 64-bit values in digest order.
func (h Hash) Words() (v1, v2, v3, v4 uint64) {
	return h.v1, h.v2, h.v3, h.v4
}

// Short returns the first half of h. No recomputation occurs.
func (h Hash) Short() ShortHash {
	return ShortHash{h.v1, h.v2}
}

// VeryShort returns the first quarter of h. No recomputation occurs.
func (h Hash) VeryShort() VeryShortHash {
	return VeryShortHash{h.v1}
}

// StartsWith reports whether s is a prefix of h. For any h,
// h.StartsWith(h.Short()) is structurally true.
func (h Hash) StartsWith(s ShortHash) bool {
	return h.v1 == s.v1 && h.v2 == s.v2
}

// StartsWithJust reports whether v is a prefix of h. For any h,
// h.StartsWithJust(h.VeryShort()) is structurally true.
func (h Hash) StartsWithJust(v VeryShortHash) bool {
	return h.v1 == v.v1
}

// Compare orders hashes lexicographically over (v1, v2, v3, v4). The order
// itself carries no meaning beyond being total and consistent; the Set file
// format sorts by it.
func (h Hash) Compare(o Hash) int {
	if c := cmp.Compare(h.v1, o.v1); c != 0 {
		return c
	}
	if c := cmp.Compare(h.v2, o.v2); c != 0 {
		return c
	}
	if c := cmp.Compare(h.v3, o.v3); c != 0 {
		return c
	}
	return cmp.Compare(h.v4, o.v4)
}

// Bytes returns the 32-byte wire form: v1..v4, each little-endian.
// This is byte-for-byte the SHA-256 digest of the canonical form.
func (h Hash) Bytes() [HashSize]byte {
	var b [HashSize]byte
	encoding.PutWords(b[:], []uint64{h.v1, h.v2, h.v3, h.v4})
	return b
}

// String renders the wire form as 64 lower-case hex characters.
// ParseHash reverses it losslessly.
func (h Hash) String() string {
	b := h.Bytes()
	return hex.EncodeToString(b[:])
}

// Words returns the two 64-bit values in digest order.
func (s ShortHash) Words() (v1, v2 uint64) {
	return s.v1, s.v2
}

// VeryShort returns the first half of s. For any h,
// h.Short().VeryShort() == h.VeryShort().
func (s ShortHash) VeryShort() VeryShortHash {
	return VeryShortHash{s.v1}
}

// StartsWith reports whether v is a prefix of s.
func (s ShortHash) StartsWith(v VeryShortHash) bool {
	return s.v1 == v.v1
}

// Bytes returns the 16-byte wire form.
func (s ShortHash) Bytes() [ShortHashSize]byte {
	var b [ShortHashSize]byte
	encoding.PutWords(b[:], []uint64{s.v1, s.v2})
	return b
}

// String renders the wire form as 32 lower-case hex characters.
func (s ShortHash) String() string {
	b := s.Bytes()
	return hex.EncodeToString(b[:])
}

// Word returns the single 64-bit value.
func (v VeryShortHash) Word() uint64 {
	return v.v1
}

// Bytes returns the 8-byte wire form.
func (v VeryShortHash) Bytes() [VeryShortHashSize]byte {
	var b [VeryShortHashSize]byte
	encoding.PutWords(b[:], []uint64{v.v1})
	return b
}

// String renders the wire form as 16 lower-case hex characters.
func (v VeryShortHash) String() string {
	b := v.Bytes()
	return hex.EncodeToString(b[:])
}

// HashFromBytes deserializes a 32-byte wire form previously produced by
// Hash.Bytes (or by any conforming implementation).
func HashFromBytes(b []byte) (Hash, error) {
	if len(b) != HashSize {
		return Hash{}, urlerrors.ErrInvalidHashLength
	}
	var w [4]uint64
	encoding.ReadWords(b, w[:])
	return Hash{w[0], w[1], w[2], w[3]}, nil
}

// ShortHashFromBytes deserializes a 16-byte wire form.
func ShortHashFromBytes(b []byte) (ShortHash, error) {
	if len(b) != ShortHashSize {
		return ShortHash{}, urlerrors.ErrInvalidHashLength
	}
	var w [2]uint64
	encoding.ReadWords(b, w[:])
	return ShortHash{w[0], w[1]}, nil
}

// VeryShortHashFromBytes deserializes an 8-byte wire form.
func VeryShortHashFromBytes(b []byte) (VeryShortHash, error) {
	if len(b) != VeryShortHashSize {
		return VeryShortHash{}, urlerrors.ErrInvalidHashLength
	}
	return VeryShortHash{encoding.WordAt(b, 0)}, nil
}

// ParseHash parses the hex rendering produced by Hash.String.
func ParseHash(s string) (Hash, error) {
	b, err := parseHex(s, HashSize)
	if err != nil {
		return Hash{}, err
	}
	return HashFromBytes(b)
}

// ParseShortHash parses the hex rendering produced by ShortHash.String.
func ParseShortHash(s string) (ShortHash, error) {
	b, err := parseHex(s, ShortHashSize)
	if err != nil {
		return ShortHash{}, err
	}
	return ShortHashFromBytes(b)
}

// ParseVeryShortHash parses the hex rendering produced by VeryShortHash.String.
func ParseVeryShortHash(s string) (VeryShortHash, error) {
	b, err := parseHex(s, VeryShortHashSize)
	if err != nil {
		return VeryShortHash{}, err
	}
	return VeryShortHashFromBytes(b)
}

func parseHex(s string, size int) ([]byte, error) {
	if len(s) != size*2 {
		return nil, urlerrors.ErrInvalidHashString
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, urlerrors.ErrInvalidHashString
	}
	return b, nil
}
