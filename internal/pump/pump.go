// Package pump implements the Work Pump (spec.md §4.6): a shared cursor
// over one wave's trace slots, and the per-phase spawn/join of worker
// goroutines pulling from it.
//
// Reference: original_source/ioshark/ioshark_bench.c's init_work/get_work
// (a mutex-guarded (next, end) cursor pair) for the cursor semantics, and
// GoogleCloudPlatform-gcsfuse's integration tests
// (tools/integration_tests/read_large_files/concurrent_read_files_test.go)
// for the errgroup-based spawn-all/join-all shape used to run one phase
// across every worker.
package pump

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// noSlot is returned by NextTrace once the cursor is exhausted.
const noSlot = -1

// Pump holds (next, end) integer bounds over one wave's trace-slot range.
// One Pump instance is shared by every worker of a single phase; workers
// call NextTrace in a loop until it signals exhaustion (spec.md §4.6).
type Pump struct {
	mu   sync.Mutex
	next int
	end  int
}

// New returns a Pump over the wave [start, start+count).
func New(start, count int) *Pump {
	return &Pump{next: start, end: start + count}
}

// NextTrace atomically returns the slot at the cursor and advances it, or
// ok == false once the wave is exhausted.
func (p *Pump) NextTrace() (slot int, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.next >= p.end {
		return noSlot, false
	}
	slot = p.next
	p.next++
	return slot, true
}

// RunPhase spawns one goroutine per worker (via errgroup), each draining
// the pump by repeatedly calling NextTrace and invoking work on every slot
// it receives, and returns once all workers have joined (spec.md §4.6's
// "phase boundaries synchronize by joining all workers", §5's barrier
// semantics). The first worker error is returned after every worker has
// exited; per spec.md §7 a fatal error aborts the whole process, so
// RunPhase does not attempt to cancel in-flight workers — it only
// propagates the failure once they've all stopped pulling new work.
func RunPhase(ctx context.Context, workers int, p *Pump, work func(slot int) error) error {
	return RunPhasePerWorker(ctx, workers, p, func() func(int) error { return work })
}

// RunPhasePerWorker is RunPhase for work that needs goroutine-local state:
// newWork is called once per spawned goroutine (not once per slot), and the
// closure it returns is reused across every slot that goroutine drains from
// the pump. The Trace Worker's Delay Gate and scratch buffer need exactly
// this — one instance per goroutine, never shared (spec.md §5).
func RunPhasePerWorker(ctx context.Context, workers int, p *Pump, newWork func() func(slot int) error) error {
	eg, _ := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		eg.Go(func() error {
			work := newWork()
			for {
				slot, ok := p.NextTrace()
				if !ok {
					return nil
				}
				if err := work(slot); err != nil {
					return err
				}
			}
		})
	}
	return eg.Wait()
}
