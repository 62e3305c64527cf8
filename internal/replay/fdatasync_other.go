//go:build !linux

package replay

import "syscall"

// fdatasync falls back to fsync(2) on platforms with no distinct
// fdatasync(2) syscall (e.g. Darwin). The durability guarantee is
// slightly stronger than recorded, which is acceptable for replay timing
// purposes (spec.md §4.3 cares about issuing the corresponding durability
// syscall, not distinguishing the two on every OS).
func fdatasync(fd int) error {
	return syscall.Fsync(fd)
}
