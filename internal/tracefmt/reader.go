package tracefmt

import (
	"errors"
	"fmt"
	"io"
)

// Reader streams a trace file: header, then NumFiles file-state entries,
// then NumOperations operation records. It exposes the two positions
// spec.md §4.1 requires — "after header" (for the pre-create driver) and
// "after file-state table" (for the replay driver) — and supports
// rewinding to the second one (RewindToOperations) for repeated replay
// iterations; there is no rewind to the header.
//
// Reader is not safe for concurrent use; each Trace Worker owns one Reader
// exclusively, matching the File Registry's single-owner discipline.
type Reader struct {
	src    io.ReadSeeker
	header Header

	// opsOffset is the byte offset of the first operation record, i.e.
	// immediately after the file-state table. Computed once the table has
	// been fully consumed by ReadFileStates.
	opsOffset int64

	opsRead uint64
}

// NewReader reads and validates the header from src, leaving the stream
// positioned immediately after it ("after header").
func NewReader(src io.ReadSeeker) (*Reader, error) {
	h, err := DecodeHeader(src)
	if err != nil {
		return nil, err
	}
	return &Reader{src: src, header: h}, nil
}

// Header returns the trace header read at construction.
func (r *Reader) Header() Header {
	return r.header
}

// ReadFileStates reads exactly Header.NumFiles file-state entries and
// records the stream offset that follows the table, so later calls to
// RewindToOperations can seek directly past it.
func (r *Reader) ReadFileStates() ([]FileState, error) {
	states := make([]FileState, 0, r.header.NumFiles)
	for i := uint32(0); i < r.header.NumFiles; i++ {
		fs, err := DecodeFileState(r.src)
		if err != nil {
			return nil, fmt.Errorf("file-state entry %d/%d: %w", i, r.header.NumFiles, err)
		}
		states = append(states, fs)
	}
	off, err := r.src.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("locating end of file-state table: %w", err)
	}
	r.opsOffset = off
	return states, nil
}

// ReadOperation reads the next operation record. Returns io.EOF once
// Header.NumOperations records have been consumed. Unknown FileOp values
// are reported as ErrUnknownFileOp without consuming further bytes —
// callers must treat this as fatal to the trace (spec.md §4.1, §4.3).
func (r *Reader) ReadOperation() (OpRecord, error) {
	if r.opsRead >= r.header.NumOperations {
		return OpRecord{}, io.EOF
	}
	rec, err := DecodeOpRecord(r.src)
	if err != nil {
		return OpRecord{}, err
	}
	r.opsRead++
	if !rec.FileOp.Valid() {
		return OpRecord{}, fmt.Errorf("%w: %d", ErrUnknownFileOp, uint32(rec.FileOp))
	}
	return rec, nil
}

// IterateOperations calls fn once per operation record in order, stopping
// at the first error fn returns or once all NumOperations records have
// been consumed.
func (r *Reader) IterateOperations(fn func(OpRecord) error) error {
	for {
		rec, err := r.ReadOperation()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}

// RewindToOperations seeks back to the start of this trace's operation
// stream: header, then file-state table (skipped), landing exactly at the
// first operation record. It also resets the operation counter so
// ReadOperation/IterateOperations replay the full NumOperations sequence
// again. ReadFileStates must have been called at least once before the
// first call to RewindToOperations, per spec.md §4.5's replay driver
// (rewind, re-read header, seek past file-state table).
func (r *Reader) RewindToOperations() error {
	if r.opsOffset == 0 && r.header.NumFiles > 0 {
		return fmt.Errorf("tracefmt: RewindToOperations called before ReadFileStates")
	}
	if _, err := r.src.Seek(r.opsOffset, io.SeekStart); err != nil {
		return fmt.Errorf("rewinding to operation stream: %w", err)
	}
	r.opsRead = 0
	return nil
}

// OperationsRead returns the number of operation records consumed since
// construction or the last RewindToOperations.
func (r *Reader) OperationsRead() uint64 {
	return r.opsRead
}
