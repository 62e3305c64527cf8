// Package capacity implements the Capacity Planner (spec.md §4.7): it
// carves the input trace list into successive waves sized so each wave's
// pre-create phase fits within the scratch filesystem's free space.
//
// Reference: original_source/ioshark/ioshark_bench.c's get_start_end(),
// which walks the global trace array from a cursor, reserving 90% of
// statfs-reported free space and stopping at the first trace that would
// overrun it.
package capacity

import "github.com/aalhour/ioreplay/internal/tracefmt"

// reservationFraction is the share of the scratch filesystem's free space
// a wave may plan against, leaving 10% slack for metadata and other
// tenants (spec.md §4.7).
const reservationFraction = 0.9

// Trace is the minimal shape the planner needs from each input trace: its
// total file-size footprint, computed once from the file-state table
// during trace discovery.
type Trace struct {
	TotalSize uint64
}

// FreeBytesFunc queries a scratch filesystem's available bytes. Satisfied
// by vfs.FreeBytes; passed explicitly so the planner stays testable
// without touching a real filesystem.
type FreeBytesFunc func() (uint64, error)

// Planner walks traces from a cursor, handing back successive waves each
// sized to fit the scratch filesystem's reserved free space (spec.md
// §4.7). A Planner is used by a single goroutine (the CLI's wave loop);
// it holds no lock of its own.
type Planner struct {
	traces        []Trace
	freeBytes     FreeBytesFunc
	nextUnplanned int
}

// New returns a Planner over traces, querying free space via freeBytes.
func New(traces []Trace, freeBytes FreeBytesFunc) *Planner {
	return &Planner{traces: traces, freeBytes: freeBytes}
}

// Wave is one planned batch: the slice of trace indices [Start, Start+Count).
type Wave struct {
	Start int
	Count int
}

// Done reports whether every trace has been assigned to a wave.
func (p *Planner) Done() bool {
	return p.nextUnplanned >= len(p.traces)
}

// NextWave queries current free space and returns the next wave starting
// at the cursor. A wave whose first trace alone would overrun the
// reservation returns Count == 0 — the caller must treat this as done,
// since no single trace fits (spec.md §4.7's edge case); an implementation
// may additionally log a diagnostic.
func (p *Planner) NextWave() (Wave, error) {
	start := p.nextUnplanned
	if start >= len(p.traces) {
		return Wave{Start: start, Count: 0}, nil
	}

	free, err := p.freeBytes()
	if err != nil {
		return Wave{}, err
	}
	reservation := uint64(float64(free) * reservationFraction)

	i := start
	for i < len(p.traces) {
		size := p.traces[i].TotalSize
		if size > reservation {
			break
		}
		reservation -= size
		i++
	}

	p.nextUnplanned = i
	return Wave{Start: start, Count: i - start}, nil
}

// TotalSize sums a trace's file-state table, for building a Trace entry
// during discovery (before the planner runs).
func TotalSize(states []tracefmt.FileState) uint64 {
	var total uint64
	for _, fs := range states {
		total += fs.Size
	}
	return total
}
