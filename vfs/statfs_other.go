//go:build !linux && !darwin

package vfs

import "errors"

// FreeBytes is unsupported on platforms without a statfs-family syscall
// wired here. The Capacity Planner surfaces this as a fatal startup error
// rather than guessing at available space.
func FreeBytes(path string) (uint64, error) {
	return 0, errors.New("vfs: FreeBytes not supported on this platform")
}
