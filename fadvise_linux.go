//go:build linux

package urlhash

import "golang.org/x/sys/unix"

// fadviseRandom hints to the kernel that the file will be accessed at
// random offsets. Applied before mapping a set file: Contains binary-
// searches the hash region, so sequential readahead is wasted work.
// Best-effort: errors are silently ignored.
func fadviseRandom(fd int, offset, length int64) {
	_ = unix.Fadvise(fd, offset, length, unix.FADV_RANDOM)
}
