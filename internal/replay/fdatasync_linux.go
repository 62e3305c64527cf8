//go:build linux

package replay

import "syscall"

// fdatasync issues the fdatasync(2) syscall, distinct from fsync(2) in
// that it need not flush file metadata that doesn't affect a subsequent
// read (spec.md §4.3, FDATASYNC row).
func fdatasync(fd int) error {
	return syscall.Fdatasync(fd)
}
