package tracefmt

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/aalhour/ioreplay/internal/compression"
)

// OpenTraceFile opens the trace at path, transparently decompressing it if
// its extension names a supported codec (component 10, spec.md expansion
// §2), and returns a Reader positioned immediately after the header. The
// returned io.Closer releases the underlying os.File; decompressed traces
// are buffered entirely in memory so the Reader can seek freely between
// replay iterations (spec.md §4.1).
func OpenTraceFile(path string) (*Reader, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	codec, compressed := compression.ForExtension(strings.ToLower(filepath.Ext(path)))
	if !compressed {
		r, err := NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, nil, err
		}
		return r, f, nil
	}

	plain, err := compression.DecodeAll(codec, f)
	_ = f.Close()
	if err != nil {
		return nil, nil, fmt.Errorf("decompressing trace %s (%s): %w", path, codec, err)
	}
	r, err := NewReader(bytes.NewReader(plain))
	if err != nil {
		return nil, nil, err
	}
	return r, io.NopCloser(nil), nil
}

// FileStateDigest computes an xxh3 digest over the wire-encoded file-state
// table. Logged at Debugf by the pre-create driver (internal/replay) so
// operators can confirm two replay runs consumed byte-identical input
// tables without diffing the trace files themselves.
func FileStateDigest(states []FileState) (uint64, error) {
	var buf bytes.Buffer
	buf.Grow(len(states) * FileStateSize)
	for _, fs := range states {
		if err := fs.Encode(&buf); err != nil {
			return 0, err
		}
	}
	return xxh3.Hash(buf.Bytes()), nil
}
