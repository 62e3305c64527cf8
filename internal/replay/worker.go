//go:build unix

package replay

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aalhour/ioreplay/internal/aggregate"
	"github.com/aalhour/ioreplay/internal/logging"
	"github.com/aalhour/ioreplay/internal/registry"
	"github.com/aalhour/ioreplay/internal/tracefmt"
)

// Trace is one input trace's per-worker state: its reader, the registry
// built for it during pre-create, and the slot index used to synthesize
// unique paths across concurrently-replayed traces (spec.md §3).
type Trace struct {
	Path string
	Slot int

	Reader   *tracefmt.Reader
	Registry *registry.Registry

	closer func() error
}

// Close releases the trace's underlying file handle.
func (t *Trace) Close() error {
	if t.closer == nil {
		return nil
	}
	return t.closer()
}

// OpenTrace opens the trace file at path for the worker owning slot s.
func OpenTrace(path string, slot int) (*Trace, error) {
	r, closer, err := tracefmt.OpenTraceFile(path)
	if err != nil {
		return nil, err
	}
	return &Trace{Path: path, Slot: slot, Reader: r, closer: closer.Close}, nil
}

// Worker is the Trace Worker (spec.md §4.5): it drives one trace at a time
// end-to-end through pre-create, N replay iterations, and teardown,
// merging its local counters into a shared Aggregator after each phase.
//
// A Worker is used by exactly one goroutine at a time (the Work Pump hands
// it traces sequentially), so its DelayGate and ScratchBuffer need no
// locking.
type Worker struct {
	ScratchDir string
	Log        logging.Logger
	Agg        *aggregate.Aggregator
	MmapFn     MmapFunc

	delay *DelayGate
	buf   ScratchBuffer
}

// NewWorker returns a Worker whose Delay Gate is armed according to
// delayEnabled (spec.md §4.4).
func NewWorker(scratchDir string, agg *aggregate.Aggregator, log logging.Logger, delayEnabled bool, mmapFn MmapFunc) *Worker {
	return &Worker{
		ScratchDir: scratchDir,
		Log:        logging.OrDefault(log),
		Agg:        agg,
		MmapFn:     mmapFn,
		delay:      NewDelayGate(delayEnabled),
	}
}

// PreCreate reads trace's file-state table and materializes every file it
// names at its recorded size, registering a Registry node for each
// (spec.md §4.5's pre-create driver).
func (w *Worker) PreCreate(trace *Trace) error {
	header := trace.Reader.Header()
	states, err := trace.Reader.ReadFileStates()
	if err != nil {
		return &FatalError{Err: fmt.Errorf("reading file-state table of %s: %w", trace.Path, err)}
	}

	if digest, err := tracefmt.FileStateDigest(states); err == nil {
		w.Log.Debugf("%sfile-state digest for %s: %x", logging.NSReplay, trace.Path, digest)
	}

	reg := registry.New(header.NumFiles)
	var createTime time.Duration
	var bytesWritten uint64

	for _, fs := range states {
		path := filepath.Join(w.ScratchDir, fmt.Sprintf("file.%d.%d", trace.Slot, fs.FileNo))
		n, elapsed, err := createFile(path, fs.Size)
		createTime += elapsed
		bytesWritten += n
		if err != nil {
			w.Agg.AddTime(aggregate.CreateTime, createTime)
			w.Agg.AddBytes(aggregate.CreateBytesWritten, bytesWritten)
			return &FatalError{Path: path, Err: fmt.Errorf("pre-create: %w", err)}
		}

		node := reg.Add(fs.FileNo)
		node.SetPath(path)
		node.SetSize(fs.Size)
	}

	w.Agg.AddTime(aggregate.CreateTime, createTime)
	w.Agg.AddBytes(aggregate.CreateBytesWritten, bytesWritten)

	trace.Registry = reg
	return nil
}

// createFile materializes path at the given size, writing real content in
// chunks so the pre-create phase's byte accounting reflects the recorded
// size (spec.md §8 scenario 1: create_rw_bytes.written equals the file's
// recorded size).
func createFile(path string, size uint64) (written uint64, elapsed time.Duration, err error) {
	start := time.Now()
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, time.Since(start), err
	}
	defer f.Close()

	const chunkSize = 64 * 1024
	chunk := make([]byte, chunkSize)
	var remaining = size
	for remaining > 0 {
		n := uint64(chunkSize)
		if remaining < n {
			n = remaining
		}
		if _, err := f.Write(chunk[:n]); err != nil {
			return written, time.Since(start), err
		}
		written += n
		remaining -= n
	}
	return written, time.Since(start), nil
}

// Replay runs one full iteration of trace's operation log: rewind, reset
// the delay gate and per-op counters, dispatch every record in order,
// then fsync/discard/close every open file as the iteration's epilogue —
// all charged to io_time (spec.md §4.5's replay driver, §9's retained
// attribution for the epilogue).
func (w *Worker) Replay(trace *Trace) error {
	if err := trace.Reader.RewindToOperations(); err != nil {
		return &FatalError{Err: fmt.Errorf("rewinding %s: %w", trace.Path, err)}
	}
	w.delay.Reset()

	var ioTime, delayTime time.Duration
	var bytesRead, bytesWritten uint64
	var opCounts [tracefmt.NumFileOps]uint64

	mergeAndReturn := func(err error) error {
		w.Agg.AddTime(aggregate.IOTime, ioTime)
		w.Agg.AddTime(aggregate.DelayTime, delayTime)
		w.Agg.AddBytes(aggregate.IOBytesRead, bytesRead)
		w.Agg.AddBytes(aggregate.IOBytesWritten, bytesWritten)
		w.Agg.AddOpCounts(opCounts)
		return err
	}

	err := trace.Reader.IterateOperations(func(rec tracefmt.OpRecord) error {
		delayTime += w.delay.Wait(rec.DeltaUs)

		opCounts[rec.FileOp]++
		res, err := Dispatch(trace.Registry, rec, &w.buf, w.MmapFn)
		ioTime += res.Duration
		bytesRead += res.BytesRead
		bytesWritten += res.BytesWritten
		if err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return mergeAndReturn(err)
	}

	start := time.Now()
	trace.Registry.FsyncAndDiscardAll(w.Log)
	trace.Registry.CloseAll(w.Log)
	ioTime += time.Since(start)

	return mergeAndReturn(nil)
}

// Teardown unlinks every file the trace created and frees its registry,
// charging the unlink wall time to remove_time (spec.md §3 lifecycle,
// §4.2's unlink_all).
func (w *Worker) Teardown(trace *Trace) {
	start := time.Now()
	trace.Registry.UnlinkAll(w.Log)
	elapsed := time.Since(start)
	w.Agg.AddTime(aggregate.RemoveTime, elapsed)

	trace.Registry.Free()
}
