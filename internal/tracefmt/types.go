// Package tracefmt implements the binary trace file format consumed by the
// replay engine: a fixed header, a table of file-state entries, then an
// ordered stream of fixed-size operation records.
//
// Trace File Format:
//
//	[Header]
//	[File-State Entry 1]
//	[File-State Entry 2]
//	...
//	[Operation Record 1]
//	[Operation Record 2]
//	...
//
// Header (16 bytes):
//
//	NumFiles (4 bytes)
//	NumOperations (8 bytes)
//	Reserved (4 bytes)
//
// File-State Entry (16 bytes):
//
//	FileNo (4 bytes)
//	Padding (4 bytes)
//	Size (8 bytes)
//
// Operation Record (32 bytes):
//
//	FileOp (4 bytes)
//	FileNo (4 bytes)
//	DeltaUs (8 bytes)
//	Payload (16 bytes, interpreted per FileOp)
//
// Reference: adapted from a RocksDB-style trace header/record encoder to
// the ioshark wire schema (original_source/ioshark/ioshark_bench.c).
package tracefmt

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Sizes of the fixed-layout records, in bytes.
const (
	HeaderSize    = 16
	FileStateSize = 16
	OpRecordSize  = 32

	payloadSize = 16
)

var (
	// ErrShortRecord indicates a trace file ended mid-record. Any short read
	// is fatal to the trace per spec.md §4.1.
	ErrShortRecord = errors.New("tracefmt: short read decoding trace record")

	// ErrUnknownFileOp indicates an operation record named a FileOp value
	// outside [0, NumFileOps). Unknown kinds are fatal per spec.md §4.1.
	ErrUnknownFileOp = errors.New("tracefmt: unknown file_op value")
)

// FileOp identifies the kind of filesystem operation a record replays.
type FileOp uint32

const (
	OpLseek FileOp = iota
	OpLlseek
	OpPread
	OpPwrite
	OpRead
	OpWrite
	OpMmap
	OpMmap2
	OpOpen
	OpFsync
	OpFdatasync
	OpClose

	// NumFileOps bounds the valid FileOp range; values >= NumFileOps are
	// unknown and fatal to the trace.
	NumFileOps = 12
)

func (op FileOp) String() string {
	switch op {
	case OpLseek:
		return "LSEEK"
	case OpLlseek:
		return "LLSEEK"
	case OpPread:
		return "PREAD"
	case OpPwrite:
		return "PWRITE"
	case OpRead:
		return "READ"
	case OpWrite:
		return "WRITE"
	case OpMmap:
		return "MMAP"
	case OpMmap2:
		return "MMAP2"
	case OpOpen:
		return "OPEN"
	case OpFsync:
		return "FSYNC"
	case OpFdatasync:
		return "FDATASYNC"
	case OpClose:
		return "CLOSE"
	default:
		return fmt.Sprintf("FileOp(%d)", uint32(op))
	}
}

// Valid reports whether op is within the recognized enum range.
func (op FileOp) Valid() bool {
	return op < NumFileOps
}

// Header is the trace file header: the count of file-state entries and the
// count of operation records that follow it.
type Header struct {
	NumFiles      uint32
	NumOperations uint64
}

// Encode writes the header in its 16-byte wire layout.
func (h Header) Encode(w io.Writer) error {
	var buf [HeaderSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], h.NumFiles)
	binary.LittleEndian.PutUint64(buf[4:12], h.NumOperations)
	_, err := w.Write(buf[:])
	return err
}

// DecodeHeader reads a Header from r.
func DecodeHeader(r io.Reader) (Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return Header{}, fmt.Errorf("%w: header: %v", ErrShortRecord, err)
		}
		return Header{}, err
	}
	return Header{
		NumFiles:      binary.LittleEndian.Uint32(buf[0:4]),
		NumOperations: binary.LittleEndian.Uint64(buf[4:12]),
	}, nil
}

// FileState is one entry of the file-state table: the trace-local file
// number and the size it must be pre-created at.
type FileState struct {
	FileNo uint32
	Size   uint64
}

// Encode writes the file-state entry in its 16-byte wire layout.
func (fs FileState) Encode(w io.Writer) error {
	var buf [FileStateSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], fs.FileNo)
	binary.LittleEndian.PutUint64(buf[8:16], fs.Size)
	_, err := w.Write(buf[:])
	return err
}

// DecodeFileState reads a FileState from r.
func DecodeFileState(r io.Reader) (FileState, error) {
	var buf [FileStateSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return FileState{}, fmt.Errorf("%w: file-state entry: %v", ErrShortRecord, err)
		}
		return FileState{}, err
	}
	return FileState{
		FileNo: binary.LittleEndian.Uint32(buf[0:4]),
		Size:   binary.LittleEndian.Uint64(buf[8:16]),
	}, nil
}

// OpRecord is one operation record: the kind of operation, the file it
// targets, the cumulative microsecond offset from trace start, and a
// 16-byte payload interpreted according to FileOp.
type OpRecord struct {
	FileOp  FileOp
	FileNo  uint32
	DeltaUs uint64
	Payload [payloadSize]byte
}

// Encode writes the operation record in its 32-byte wire layout.
func (op OpRecord) Encode(w io.Writer) error {
	var buf [OpRecordSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(op.FileOp))
	binary.LittleEndian.PutUint32(buf[4:8], op.FileNo)
	binary.LittleEndian.PutUint64(buf[8:16], op.DeltaUs)
	copy(buf[16:32], op.Payload[:])
	_, err := w.Write(buf[:])
	return err
}

// DecodeOpRecord reads an OpRecord from r. The FileOp value is not
// range-checked here; callers (Reader.ReadOperation) reject
// unknown kinds via FileOp.Valid() before dispatch, per spec.md §4.1.
func DecodeOpRecord(r io.Reader) (OpRecord, error) {
	var buf [OpRecordSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return OpRecord{}, fmt.Errorf("%w: operation record: %v", ErrShortRecord, err)
		}
		return OpRecord{}, err
	}
	var rec OpRecord
	rec.FileOp = FileOp(binary.LittleEndian.Uint32(buf[0:4]))
	rec.FileNo = binary.LittleEndian.Uint32(buf[4:8])
	rec.DeltaUs = binary.LittleEndian.Uint64(buf[8:16])
	copy(rec.Payload[:], buf[16:32])
	return rec, nil
}

// SeekPayload interprets an OpRecord's payload for LSEEK/LLSEEK.
type SeekPayload struct {
	Offset int64
	Whence int32
}

// Seek decodes the record's payload as a SeekPayload. Valid only when
// op.FileOp is OpLseek or OpLlseek.
func (rec OpRecord) Seek() SeekPayload {
	return SeekPayload{
		Offset: int64(binary.LittleEndian.Uint64(rec.Payload[0:8])),
		Whence: int32(binary.LittleEndian.Uint32(rec.Payload[8:12])),
	}
}

// EncodeSeek packs a SeekPayload into an OpRecord's payload bytes, for
// trace fixtures written by tests.
func EncodeSeek(p SeekPayload) [payloadSize]byte {
	var buf [payloadSize]byte
	binary.LittleEndian.PutUint64(buf[0:8], uint64(p.Offset))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(p.Whence))
	return buf
}

// RWPayload interprets an OpRecord's payload for PREAD/PWRITE/READ/WRITE.
// Offset is meaningful only for the positional ops (PREAD/PWRITE); it is
// ignored for the sequential ops (READ/WRITE), which act at the
// descriptor's current file position.
type RWPayload struct {
	Len    uint64
	Offset uint64
}

// RW decodes the record's payload as an RWPayload. Valid only when
// op.FileOp is one of OpPread, OpPwrite, OpRead, OpWrite.
func (rec OpRecord) RW() RWPayload {
	return RWPayload{
		Len:    binary.LittleEndian.Uint64(rec.Payload[0:8]),
		Offset: binary.LittleEndian.Uint64(rec.Payload[8:16]),
	}
}

// EncodeRW packs an RWPayload into an OpRecord's payload bytes, for trace
// fixtures written by tests.
func EncodeRW(p RWPayload) [payloadSize]byte {
	var buf [payloadSize]byte
	binary.LittleEndian.PutUint64(buf[0:8], p.Len)
	binary.LittleEndian.PutUint64(buf[8:16], p.Offset)
	return buf
}

// OpenPayload interprets an OpRecord's payload for OPEN.
type OpenPayload struct {
	Flags uint32
	Mode  uint32
}

// Open decodes the record's payload as an OpenPayload. Valid only when
// op.FileOp is OpOpen.
func (rec OpRecord) Open() OpenPayload {
	return OpenPayload{
		Flags: binary.LittleEndian.Uint32(rec.Payload[0:4]),
		Mode:  binary.LittleEndian.Uint32(rec.Payload[4:8]),
	}
}

// EncodeOpen packs an OpenPayload into an OpRecord's payload bytes, for
// trace fixtures written by tests.
func EncodeOpen(p OpenPayload) [payloadSize]byte {
	var buf [payloadSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], p.Flags)
	binary.LittleEndian.PutUint32(buf[4:8], p.Mode)
	return buf
}

// MmapPayload returns the record's raw 16-byte payload, opaque to this
// package. MMAP/MMAP2 dispatch passes it through to the mmap helper
// (spec.md §3, §4.3 — an external collaborator) unexamined.
func (rec OpRecord) MmapPayload() [payloadSize]byte {
	return rec.Payload
}
