//go:build linux

package vfs

import "syscall"

// posixFadvDontNeed mirrors POSIX_FADV_DONTNEED from <fcntl.h> on Linux.
const posixFadvDontNeed = 4

// DropCache hints the kernel to evict fd's cached pages via
// posix_fadvise(fd, 0, 0, POSIX_FADV_DONTNEED). The whole-file range (0, 0)
// matches the original ioshark_bench.c's per-fd drop before fsync_and_close
// (original_source/ioshark/ioshark_bench.c, files_db_fsync_discard_files).
func DropCache(fd uintptr) error {
	_, _, errno := syscall.Syscall6(syscall.SYS_FADVISE64, fd, 0, 0, posixFadvDontNeed, 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}
