// Package registry implements the File Registry (spec.md §4.2): a per-trace
// map from trace-local file number to the live state of that file —
// synthesized pathname, recorded size, and current descriptor or "closed".
//
// A Registry is owned by exactly one Trace Worker and is never shared
// across goroutines, so unlike a general-purpose LRU handle table it needs
// no internal locking, no eviction, and no reference counting — every node
// lives for the worker's full pre-create → iterate → teardown lifecycle.
//
// Reference: an LRU cache's Handle/table shape, narrowed to the
// single-owner case original_source/ioshark/ioshark_bench.c calls a
// thread_state_s's file_state table.
package registry

import (
	"fmt"
	"os"

	"github.com/aalhour/ioreplay/internal/logging"
	"github.com/aalhour/ioreplay/vfs"
)

// Node is the live state of one trace-local file: the path synthesized at
// pre-create, its recorded (pre-created) size, and its current descriptor.
// A nil File means "closed" — spec.md §3's fd invariant
// (none → open → none → open → ...).
type Node struct {
	FileNo       uint32
	Path         string
	RecordedSize uint64
	File         *os.File
}

// Registry maps trace-local file numbers to Nodes. Not safe for concurrent
// use — each Trace Worker owns one Registry exclusively (spec.md §4.2).
type Registry struct {
	nodes map[uint32]*Node
}

// New creates an empty Registry sized for numFiles entries.
func New(numFiles uint32) *Registry {
	return &Registry{nodes: make(map[uint32]*Node, numFiles)}
}

// Add creates and inserts a new Node for fileno. Nodes are created
// entirely during pre-create (spec.md §3 invariant); calling Add twice for
// the same fileno replaces the prior node without closing its fd — callers
// must not do this.
func (r *Registry) Add(fileno uint32) *Node {
	n := &Node{FileNo: fileno}
	r.nodes[fileno] = n
	return n
}

// Lookup returns the node for fileno, or nil if absent. Every operation's
// fileno must resolve to a present node (spec.md §3); an absent node at
// dispatch time means the trace is malformed.
func (r *Registry) Lookup(fileno uint32) *Node {
	return r.nodes[fileno]
}

// SetPath sets the node's synthesized pathname.
func (n *Node) SetPath(path string) {
	n.Path = path
}

// SetSize sets the node's recorded (pre-create) size.
func (n *Node) SetSize(size uint64) {
	n.RecordedSize = size
}

// SetFd installs f as the node's live descriptor. Any previously open
// descriptor is not closed here — the Operation Dispatcher's OPEN handling
// (spec.md §4.3, "close any prior fd on the node, then store the new fd")
// is responsible for that ordering.
func (n *Node) SetFd(f *os.File) {
	n.File = f
}

// GetFd returns the node's current descriptor, or nil if closed.
func (n *Node) GetFd() *os.File {
	return n.File
}

// GetPath returns the node's synthesized pathname.
func (n *Node) GetPath() string {
	return n.Path
}

// CloseFd closes the node's descriptor if open and sets it to closed
// regardless of the close result — a failed close still means the fd slot
// must not be reused (spec.md §3: fd transitions to none at teardown).
func (n *Node) CloseFd() error {
	if n.File == nil {
		return nil
	}
	err := n.File.Close()
	n.File = nil
	return err
}

// FsyncAndDiscardAll best-effort fsyncs every still-open node's fd, then
// hints the kernel to drop its cached pages (vfs.DropCache). Errors are
// logged, not returned — this is a best-effort hygiene step (spec.md §7),
// and its wall time is charged by the caller to total_io_time alongside
// CloseAll (spec.md §4.5's replay epilogue).
func (r *Registry) FsyncAndDiscardAll(log logging.Logger) {
	log = logging.OrDefault(log)
	for _, n := range r.nodes {
		if n.File == nil {
			continue
		}
		if err := n.File.Sync(); err != nil {
			log.Warnf("%sfsync %s: %v", logging.NSRegistry, n.Path, err)
		}
		if err := vfs.DropCache(n.File.Fd()); err != nil {
			log.Debugf("%sdrop-cache %s: %v", logging.NSRegistry, n.Path, err)
		}
	}
}

// CloseAll closes every still-open fd. Errors are logged, not returned —
// best-effort hygiene (spec.md §7) — but every node's fd is set to closed
// regardless, satisfying the teardown invariant.
func (r *Registry) CloseAll(log logging.Logger) {
	log = logging.OrDefault(log)
	for _, n := range r.nodes {
		if err := n.CloseFd(); err != nil {
			log.Warnf("%sclose %s: %v", logging.NSRegistry, n.Path, err)
		}
	}
}

// UnlinkAll removes every node's path from disk. Errors are logged, not
// returned — a file that fails to unlink still leaves the registry in a
// freeable state. The caller (Trace Worker teardown driver) is responsible
// for charging the elapsed wall time to remove_time (spec.md §4.8).
func (r *Registry) UnlinkAll(log logging.Logger) {
	log = logging.OrDefault(log)
	for _, n := range r.nodes {
		if err := os.Remove(n.Path); err != nil && !os.IsNotExist(err) {
			log.Warnf("%sunlink %s: %v", logging.NSRegistry, n.Path, err)
		}
	}
}

// Free drops the registry's nodes. Every fd must already be closed
// (CloseAll) before Free is called — violating this is a programming
// error in the Trace Worker, not a runtime condition, so Free panics
// rather than leaking a descriptor silently.
func (r *Registry) Free() {
	for fileno, n := range r.nodes {
		if n.File != nil {
			panic(fmt.Sprintf("registry: Free called with fd still open for fileno %d (%s)", fileno, n.Path))
		}
	}
	r.nodes = nil
}

// Len returns the number of nodes currently registered.
func (r *Registry) Len() int {
	return len(r.nodes)
}
