// Package vfs provides the platform-specific Kernel Hook (spec.md §4's
// expansion, component 9): a best-effort "drop this file's cached pages"
// hint issued by the File Registry's fsync_and_discard_all, and a
// free-space query the Capacity Planner uses to size waves.
//
// This package keeps the per-OS fcntl/statfs plumbing of a Direct I/O
// alignment helper but repurposes it to cache-drop hints and capacity
// queries, since the replay engine never opens files with O_DIRECT.
package vfs

import "errors"

// ErrCacheHintUnsupported is returned by DropCache on platforms with no
// known page-cache-drop mechanism. Callers must treat this as a
// best-effort hygiene failure (spec.md §7), never fatal.
var ErrCacheHintUnsupported = errors.New("vfs: cache-drop hint not supported on this platform")
