//go:build !linux

package urlhash

// fadviseRandom is a no-op on non-Linux platforms.
// FADV_RANDOM is Linux-specific.
func fadviseRandom(fd int, offset, length int64) {
	// No-op
}
