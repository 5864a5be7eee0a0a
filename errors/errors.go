// Package errors defines all exported error sentinels for the urlhash library.
//
// This is the single source of truth for error values. Both the top-level
// urlhash package and internal packages import from here, ensuring errors.Is
// checks work across package boundaries.
package errors

import "errors"

// Canonicalization errors
var (
	ErrInvalidURL  = errors.New("urlhash: URL is nil or has no scheme")
	ErrInvalidHost = errors.New("urlhash: host failed IDNA normalization")
)

// Parse/deserialization errors
var (
	ErrInvalidHashLength = errors.New("urlhash: byte slice has wrong length for hash type")
	ErrInvalidHashString = errors.New("urlhash: string is not a valid hex hash rendering")
)

// Set build errors
var (
	ErrBuilderClosed = errors.New("urlhash: set builder is closed")
	ErrEmptySet      = errors.New("urlhash: cannot build set with zero hashes")
)

// Set file errors
var (
	ErrInvalidMagic   = errors.New("urlhash: invalid magic number")
	ErrInvalidVersion = errors.New("urlhash: unsupported version")
	ErrTruncatedFile  = errors.New("urlhash: set file is truncated")
	ErrChecksumFailed = errors.New("urlhash: file checksum verification failed")
	ErrCorruptedSet   = errors.New("urlhash: set file data is corrupted")
	ErrSetClosed      = errors.New("urlhash: set is closed")
)
