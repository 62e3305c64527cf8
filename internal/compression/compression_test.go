package compression

import (
	"bytes"
	"compress/gzip"
	"io"
	"testing"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// traceBody is a stand-in for a file-state table plus a run of operation
// records: repetitive enough that every codec below actually shrinks it.
func traceBody() []byte {
	return bytes.Repeat([]byte("fileno=7 op=WRITE delta_us=1234 "), 200)
}

func encodeSnappy(t *testing.T, plain []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := snappy.NewBufferedWriter(&buf)
	if _, err := w.Write(plain); err != nil {
		t.Fatalf("snappy write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("snappy close: %v", err)
	}
	return buf.Bytes()
}

func encodeGzip(t *testing.T, plain []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(plain); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

func encodeLZ4(t *testing.T, plain []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(plain); err != nil {
		t.Fatalf("lz4 write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("lz4 close: %v", err)
	}
	return buf.Bytes()
}

func encodeZstd(t *testing.T, plain []byte) []byte {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	defer enc.Close()
	return enc.EncodeAll(plain, nil)
}

func TestForExtension(t *testing.T) {
	tests := []struct {
		ext      string
		wantType Type
		wantOK   bool
	}{
		{".snappy", SnappyCompression, true},
		{".gz", GzipCompression, true},
		{".lz4", LZ4Compression, true},
		{".zst", ZstdCompression, true},
		{".trace", NoCompression, false},
		{"", NoCompression, false},
	}
	for _, tt := range tests {
		got, ok := ForExtension(tt.ext)
		if got != tt.wantType || ok != tt.wantOK {
			t.Errorf("ForExtension(%q) = (%v, %v), want (%v, %v)", tt.ext, got, ok, tt.wantType, tt.wantOK)
		}
	}
}

func TestDecodeAll_RoundTrip(t *testing.T) {
	plain := traceBody()

	tests := []struct {
		name string
		typ  Type
		data []byte
	}{
		{"no compression", NoCompression, plain},
		{"snappy", SnappyCompression, encodeSnappy(t, plain)},
		{"gzip", GzipCompression, encodeGzip(t, plain)},
		{"lz4", LZ4Compression, encodeLZ4(t, plain)},
		{"zstd", ZstdCompression, encodeZstd(t, plain)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeAll(tt.typ, bytes.NewReader(tt.data))
			if err != nil {
				t.Fatalf("DecodeAll(%s): %v", tt.typ, err)
			}
			if !bytes.Equal(got, plain) {
				t.Errorf("DecodeAll(%s) = %d bytes, want the original %d-byte trace body back", tt.typ, len(got), len(plain))
			}
		})
	}
}

func TestNewReader_StreamsIncrementally(t *testing.T) {
	plain := traceBody()
	r, err := NewReader(GzipCompression, bytes.NewReader(encodeGzip(t, plain)))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}

	// A real Trace Reader never needs the whole decompressed stream at
	// once for the header — confirm a header-sized prefix can be read on
	// its own and the remainder then follows intact.
	head := make([]byte, 16)
	if _, err := io.ReadFull(r, head); err != nil {
		t.Fatalf("reading header-sized prefix: %v", err)
	}
	if !bytes.Equal(head, plain[:16]) {
		t.Errorf("first 16 bytes = %q, want %q", head, plain[:16])
	}

	rest, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading remainder: %v", err)
	}
	if !bytes.Equal(rest, plain[16:]) {
		t.Errorf("remaining bytes mismatch after partial read")
	}
}

func TestDecodeAll_EmptyInput(t *testing.T) {
	types := []Type{NoCompression, SnappyCompression, GzipCompression, LZ4Compression, ZstdCompression}
	for _, typ := range types {
		var empty []byte
		switch typ {
		case SnappyCompression:
			empty = encodeSnappy(t, nil)
		case GzipCompression:
			empty = encodeGzip(t, nil)
		case LZ4Compression:
			empty = encodeLZ4(t, nil)
		case ZstdCompression:
			empty = encodeZstd(t, nil)
		}
		got, err := DecodeAll(typ, bytes.NewReader(empty))
		if err != nil {
			t.Errorf("%s: DecodeAll(empty): %v", typ, err)
			continue
		}
		if len(got) != 0 {
			t.Errorf("%s: decoded empty input to %d bytes, want 0", typ, len(got))
		}
	}
}

func TestType_String(t *testing.T) {
	tests := []struct {
		typ  Type
		want string
	}{
		{NoCompression, "NoCompression"},
		{SnappyCompression, "Snappy"},
		{GzipCompression, "Gzip"},
		{LZ4Compression, "LZ4"},
		{ZstdCompression, "ZSTD"},
		{Type(99), "Unknown(99)"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("Type(%d).String() = %q, want %q", tt.typ, got, tt.want)
		}
	}
}

func TestDecodeAll_UnsupportedType(t *testing.T) {
	if _, err := DecodeAll(Type(99), bytes.NewReader([]byte("x"))); err == nil {
		t.Error("expected an error for an unsupported compression type")
	}
}
