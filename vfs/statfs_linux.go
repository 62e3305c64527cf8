//go:build linux

package vfs

import "syscall"

// FreeBytes returns the scratch filesystem's available bytes (as an
// unprivileged caller would see them), for the Capacity Planner's
// 90%-of-free-space reservation (spec.md §4.7).
func FreeBytes(path string) (uint64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return uint64(stat.Bavail) * uint64(stat.Bsize), nil
}
