package urlhash

import (
	"encoding/binary"

	urlerrors "github.com/tamirms/urlhash/errors"
)

const (
	// magic number for urlhash set files
	// "URLH" in little-endian
	setMagic = uint32(0x55524C48)

	// setVersion is the current format version
	setVersion = uint16(0x0001)

	// setHeaderSize is the exact size of the serialized header (64 bytes)
	setHeaderSize = 64

	// setFooterSize is the exact size of the serialized footer (32 bytes)
	setFooterSize = 32

	// minSetFileSize is the smallest structurally possible file:
	// header + footer with empty regions. Real files are larger (a set
	// holds at least one 32-byte hash), but anything below this bound is
	// rejected before parsing.
	minSetFileSize = setHeaderSize + setFooterSize
)

// setHeader is the 64-byte set file header.
//
// Layout:
//
//	Offset  Size  Field        Type
//	0       4     Magic        0x55524C48 ("URLH")
//	4       2     Version      0x0001
//	6       8     Count        uint64_le (number of hashes)
//	14      8     BloomSize    uint64_le (bloom region bytes, 0 = no filter)
//	22      1     BloomHashes  uint8 (probes per key, 0 iff BloomSize is 0)
//	23      41    Reserved     [41]byte (zero)
//
// The file is [Header][Bloom Region][Hash Region Count×32B][Footer].
// The hash region holds each Hash in its 32-byte wire form, sorted by
// Hash.Compare, which is what makes prefix probes contiguous.
type setHeader struct {
	Magic       uint32
	Version     uint16
	Count       uint64
	BloomSize   uint64
	BloomHashes uint8
	Reserved    [41]byte
}

// encodeTo serializes the header to an existing buffer.
func (h *setHeader) encodeTo(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint16(buf[4:6], h.Version)
	binary.LittleEndian.PutUint64(buf[6:14], h.Count)
	binary.LittleEndian.PutUint64(buf[14:22], h.BloomSize)
	buf[22] = h.BloomHashes
	copy(buf[23:64], h.Reserved[:])
}

// decodeSetHeader parses a 64-byte header.
func decodeSetHeader(buf []byte) (*setHeader, error) {
	if len(buf) < setHeaderSize {
		return nil, urlerrors.ErrTruncatedFile
	}

	h := &setHeader{
		Magic:       binary.LittleEndian.Uint32(buf[0:4]),
		Version:     binary.LittleEndian.Uint16(buf[4:6]),
		Count:       binary.LittleEndian.Uint64(buf[6:14]),
		BloomSize:   binary.LittleEndian.Uint64(buf[14:22]),
		BloomHashes: buf[22],
	}
	copy(h.Reserved[:], buf[23:64])

	if h.Magic != setMagic {
		return nil, urlerrors.ErrInvalidMagic
	}
	if h.Version != setVersion {
		return nil, urlerrors.ErrInvalidVersion
	}
	if (h.BloomSize == 0) != (h.BloomHashes == 0) {
		return nil, urlerrors.ErrCorruptedSet
	}
	if h.Count == 0 {
		return nil, urlerrors.ErrCorruptedSet
	}

	return h, nil
}

// hasBloom returns true if the set carries a bloom prefilter.
func (h *setHeader) hasBloom() bool {
	return h.BloomSize > 0
}

// setFooter is the 32-byte set file footer.
//
// Layout:
//
//	Offset  Size  Field           Type
//	0       8     BloomRegionHash uint64_le (xxHash64 of bloom region)
//	8       8     HashRegionHash  uint64_le (xxHash64 of hash region)
//	16      16    Reserved        [16]byte (zero)
type setFooter struct {
	BloomRegionHash uint64
	HashRegionHash  uint64
	Reserved        [16]byte
}

// encodeTo serializes the footer into an existing buffer.
func (f *setFooter) encodeTo(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], f.BloomRegionHash)
	binary.LittleEndian.PutUint64(buf[8:16], f.HashRegionHash)
	copy(buf[16:32], f.Reserved[:])
}

// decodeSetFooter parses a 32-byte footer.
func decodeSetFooter(buf []byte) (*setFooter, error) {
	if len(buf) < setFooterSize {
		return nil, urlerrors.ErrTruncatedFile
	}

	f := &setFooter{
		BloomRegionHash: binary.LittleEndian.Uint64(buf[0:8]),
		HashRegionHash:  binary.LittleEndian.Uint64(buf[8:16]),
	}
	copy(f.Reserved[:], buf[16:32])

	return f, nil
}
