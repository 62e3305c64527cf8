//go:build !linux && !darwin

package vfs

// DropCache does nothing on platforms with no known cache-drop mechanism
// and returns ErrCacheHintUnsupported.
// The File Registry treats this as a best-effort hygiene action (spec.md
// §7) — its failure, including total unavailability, is never fatal.
func DropCache(fd uintptr) error {
	return ErrCacheHintUnsupported
}
