package aggregate

import (
	"sync"
	"testing"
	"time"

	"github.com/aalhour/ioreplay/internal/tracefmt"
)

// Contract: AddTime accumulates across multiple calls.
func TestAggregator_AddTime(t *testing.T) {
	a := New()
	a.AddTime(IOTime, 10*time.Millisecond)
	a.AddTime(IOTime, 5*time.Millisecond)
	a.AddTime(DelayTime, 1*time.Millisecond)

	if got := a.Time(IOTime); got != 15*time.Millisecond {
		t.Errorf("IOTime = %v, want 15ms", got)
	}
	if got := a.Time(DelayTime); got != 1*time.Millisecond {
		t.Errorf("DelayTime = %v, want 1ms", got)
	}
	if got := a.Time(CreateTime); got != 0 {
		t.Errorf("CreateTime = %v, want 0", got)
	}
}

// Contract: AddBytes accumulates independently per ByteKind.
func TestAggregator_AddBytes(t *testing.T) {
	a := New()
	a.AddBytes(IOBytesRead, 1024)
	a.AddBytes(IOBytesRead, 512)
	a.AddBytes(IOBytesWritten, 4096)

	if got := a.Bytes(IOBytesRead); got != 1536 {
		t.Errorf("IOBytesRead = %d, want 1536", got)
	}
	if got := a.Bytes(IOBytesWritten); got != 4096 {
		t.Errorf("IOBytesWritten = %d, want 4096", got)
	}
}

// Contract: AddOpCounts merges per-worker arrays into global totals.
func TestAggregator_AddOpCounts(t *testing.T) {
	a := New()
	var w1, w2 [tracefmt.NumFileOps]uint64
	w1[tracefmt.OpWrite] = 3
	w2[tracefmt.OpWrite] = 2
	w2[tracefmt.OpRead] = 7

	a.AddOpCounts(w1)
	a.AddOpCounts(w2)

	if got := a.OpCount(tracefmt.OpWrite); got != 5 {
		t.Errorf("OpWrite count = %d, want 5", got)
	}
	if got := a.OpCount(tracefmt.OpRead); got != 7 {
		t.Errorf("OpRead count = %d, want 7", got)
	}
}

// Contract: concurrent merges from many workers lose no updates.
func TestAggregator_ConcurrentMerge(t *testing.T) {
	a := New()
	const workers = 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.AddTime(IOTime, time.Millisecond)
			a.AddBytes(IOBytesWritten, 100)
			var counts [tracefmt.NumFileOps]uint64
			counts[tracefmt.OpClose] = 1
			a.AddOpCounts(counts)
		}()
	}
	wg.Wait()

	if got := a.Time(IOTime); got != workers*time.Millisecond {
		t.Errorf("IOTime = %v, want %v", got, workers*time.Millisecond)
	}
	if got := a.Bytes(IOBytesWritten); got != workers*100 {
		t.Errorf("IOBytesWritten = %d, want %d", got, workers*100)
	}
	if got := a.OpCount(tracefmt.OpClose); got != workers {
		t.Errorf("OpClose count = %d, want %d", got, workers)
	}
}
