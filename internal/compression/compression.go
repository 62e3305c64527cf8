// Package compression provides transparent decompression of trace files
// shipped compressed from the capture device to save transfer bandwidth.
//
// A storage engine compresses each block independently and needs both
// directions plus random access. A trace replay tool only ever consumes
// a whole file someone else already wrote, so this package is
// decompress-only and works as an io.Reader wrapper: internal/tracefmt
// drains the returned reader to recover the plain trace bytes before
// NewReader ever sees them (spec.md expansion §2, component 10).
package compression

import (
	"compress/gzip"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type identifies the codec a compressed trace file was produced with.
type Type uint8

const (
	// NoCompression passes bytes through unchanged.
	NoCompression Type = iota

	// SnappyCompression decodes Google Snappy framed streams.
	SnappyCompression

	// GzipCompression decodes standard gzip streams (RFC 1952).
	GzipCompression

	// LZ4Compression decodes LZ4 frame-format streams (not raw blocks —
	// a whole-file stream has no single known output size to decode a
	// raw block against).
	LZ4Compression

	// ZstdCompression decodes Zstandard streams.
	ZstdCompression
)

// String returns the human-readable name of the compression type.
func (t Type) String() string {
	switch t {
	case NoCompression:
		return "NoCompression"
	case SnappyCompression:
		return "Snappy"
	case GzipCompression:
		return "Gzip"
	case LZ4Compression:
		return "LZ4"
	case ZstdCompression:
		return "ZSTD"
	default:
		return fmt.Sprintf("Unknown(%d)", t)
	}
}

// ForExtension maps a lowercased file extension, dot included, to the
// codec that produced it. The second return is false for an
// unrecognized extension, which callers treat as "not compressed."
func ForExtension(ext string) (Type, bool) {
	switch ext {
	case ".snappy":
		return SnappyCompression, true
	case ".gz":
		return GzipCompression, true
	case ".lz4":
		return LZ4Compression, true
	case ".zst":
		return ZstdCompression, true
	default:
		return NoCompression, false
	}
}

// NewReader wraps r with a decompressing reader for t. The caller is
// responsible for closing the underlying source; any io.Closer on the
// returned reader only releases the codec's internal buffers, not r.
func NewReader(t Type, r io.Reader) (io.Reader, error) {
	switch t {
	case NoCompression:
		return r, nil

	case SnappyCompression:
		return snappy.NewReader(r), nil

	case GzipCompression:
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		return gr, nil

	case LZ4Compression:
		return lz4.NewReader(r), nil

	case ZstdCompression:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		return dec.IOReadCloser(), nil

	default:
		return nil, fmt.Errorf("unsupported compression type: %s", t)
	}
}

// DecodeAll reads r (wrapping it with NewReader first) to completion and
// returns the fully decompressed bytes. internal/tracefmt uses this
// because its Reader needs random access (RewindToOperations) into the
// plain trace, which a streaming decompressor alone can't provide.
func DecodeAll(t Type, r io.Reader) ([]byte, error) {
	dr, err := NewReader(t, r)
	if err != nil {
		return nil, err
	}
	plain, err := io.ReadAll(dr)
	if err != nil {
		return nil, fmt.Errorf("decompressing %s stream: %w", t, err)
	}
	if closer, ok := dr.(io.Closer); ok {
		_ = closer.Close()
	}
	return plain, nil
}
