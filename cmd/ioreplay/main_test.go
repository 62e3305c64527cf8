package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/aalhour/ioreplay/internal/tracefmt"
)

// Contract: traceTotalSize sums a trace's file-state table without
// consuming its operation stream (the Trace Worker reopens the file fresh).
func TestTraceTotalSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.trace")

	var buf bytes.Buffer
	states := []tracefmt.FileState{{FileNo: 1, Size: 100}, {FileNo: 2, Size: 250}}
	if err := tracefmt.WriteTrace(&buf, states, nil); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := traceTotalSize(path)
	if err != nil {
		t.Fatalf("traceTotalSize: %v", err)
	}
	if got != 350 {
		t.Errorf("traceTotalSize = %d, want 350", got)
	}
}

// Contract: an empty/corrupt trace file fails with an error rather than
// panicking.
func TestTraceTotalSize_ShortFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "short.trace")
	if err := os.WriteFile(path, []byte{1, 2, 3}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := traceTotalSize(path); err == nil {
		t.Error("expected an error decoding a short trace file")
	}
}
