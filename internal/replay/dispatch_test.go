//go:build unix

package replay

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/aalhour/ioreplay/internal/registry"
	"github.com/aalhour/ioreplay/internal/tracefmt"
)

func createAndOpen(t *testing.T, dir, name string) (string, *os.File) {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	return path, f
}

// Contract: scenario 1 — WRITE at current position accounts bytes written.
func TestDispatch_Write(t *testing.T) {
	dir := t.TempDir()
	path, f := createAndOpen(t, dir, "file.0.7")

	reg := registry.New(1)
	n := reg.Add(7)
	n.SetPath(path)
	n.SetFd(f)

	rec := tracefmt.OpRecord{FileOp: tracefmt.OpWrite, FileNo: 7, Payload: tracefmt.EncodeRW(tracefmt.RWPayload{Len: 1024})}
	var buf ScratchBuffer
	res, err := Dispatch(reg, rec, &buf, nil)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.BytesWritten != 1024 {
		t.Errorf("BytesWritten = %d, want 1024", res.BytesWritten)
	}
}

// Contract: a non-OPEN op on a closed node auto-recovers the fd.
func TestDispatch_AutoRecoverMissingFd(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.0.1")
	if err := os.WriteFile(path, make([]byte, 64), 0o644); err != nil {
		t.Fatal(err)
	}

	reg := registry.New(1)
	n := reg.Add(1)
	n.SetPath(path)
	// fd intentionally left nil (none)

	rec := tracefmt.OpRecord{FileOp: tracefmt.OpRead, FileNo: 1, Payload: tracefmt.EncodeRW(tracefmt.RWPayload{Len: 16})}
	var buf ScratchBuffer
	res, err := Dispatch(reg, rec, &buf, nil)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !res.AutoRecovered {
		t.Error("expected AutoRecovered = true")
	}
	if res.BytesRead != 16 {
		t.Errorf("BytesRead = %d, want 16", res.BytesRead)
	}
	if n.GetFd() == nil {
		t.Error("expected fd to be open after auto-recovery")
	}
}

// Contract: OPEN with O_CREAT|O_EXCL tolerates EEXIST without a fatal error.
func TestDispatch_OpenCreateExistsTolerated(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.0.2")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	reg := registry.New(1)
	n := reg.Add(2)
	n.SetPath(path)

	rec := tracefmt.OpRecord{
		FileOp: tracefmt.OpOpen,
		FileNo: 2,
		Payload: tracefmt.EncodeOpen(tracefmt.OpenPayload{
			Flags: uint32(syscall.O_CREAT | syscall.O_EXCL | syscall.O_RDWR),
			Mode:  0o644,
		}),
	}
	var buf ScratchBuffer
	_, err := Dispatch(reg, rec, &buf, nil)
	if err != nil {
		t.Fatalf("expected EEXIST to be tolerated, got error: %v", err)
	}
	if n.GetFd() != nil {
		t.Error("tolerated EEXIST must not update the node's fd")
	}
}

// Contract: an O_DIRECTORY open against a regular file is tolerated.
func TestDispatch_OpenDirectorySemanticsTolerated(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.0.3")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	reg := registry.New(1)
	n := reg.Add(3)
	n.SetPath(path)

	rec := tracefmt.OpRecord{
		FileOp: tracefmt.OpOpen,
		FileNo: 3,
		Payload: tracefmt.EncodeOpen(tracefmt.OpenPayload{
			Flags: uint32(syscall.O_RDONLY | syscall.O_DIRECTORY),
		}),
	}
	var buf ScratchBuffer
	_, err := Dispatch(reg, rec, &buf, nil)
	if err != nil {
		t.Fatalf("expected O_DIRECTORY failure to be tolerated, got: %v", err)
	}
}

// Contract: CLOSE sets the node's fd to none.
func TestDispatch_Close(t *testing.T) {
	dir := t.TempDir()
	path, f := createAndOpen(t, dir, "file.0.4")
	reg := registry.New(1)
	n := reg.Add(4)
	n.SetPath(path)
	n.SetFd(f)

	rec := tracefmt.OpRecord{FileOp: tracefmt.OpClose, FileNo: 4}
	var buf ScratchBuffer
	if _, err := Dispatch(reg, rec, &buf, nil); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if n.GetFd() != nil {
		t.Error("expected fd = none after CLOSE")
	}
}

// Contract: dispatch against an unknown fileno is fatal.
func TestDispatch_UnknownFileno(t *testing.T) {
	reg := registry.New(0)
	rec := tracefmt.OpRecord{FileOp: tracefmt.OpRead, FileNo: 42}
	var buf ScratchBuffer
	if _, err := Dispatch(reg, rec, &buf, nil); err == nil {
		t.Error("expected a fatal error for an unregistered fileno")
	}
}
