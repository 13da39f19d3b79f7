package image

import (
	"bytes"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/funvibe/clox/internal/vm"
)

func sampleChunk(t *testing.T) *vm.Chunk {
	t.Helper()
	chunk := vm.NewChunk()
	for _, v := range []vm.Value{1.2, 3.4, vm.Value(math.Inf(1))} {
		if err := chunk.WriteConstant(v, 122); err != nil {
			t.Fatal(err)
		}
	}
	chunk.WriteOp(vm.OP_ADD, 123)
	chunk.WriteOp(vm.OP_DIVIDE, 123)
	chunk.WriteOp(vm.OP_RETURN, 124)
	return chunk
}

func TestEncodeDecode(t *testing.T) {
	chunk := sampleChunk(t)
	img := New(chunk, "sample")

	data, err := img.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("CLXB\x01")) {
		t.Fatalf("missing header: %q", data[:5])
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != img.ID {
		t.Errorf("id: got %s, want %s", got.ID, img.ID)
	}
	if got.Name != "sample" {
		t.Errorf("name: got %q", got.Name)
	}
	if !bytes.Equal(got.Chunk.Code, chunk.Code) {
		t.Errorf("code: got %v, want %v", got.Chunk.Code, chunk.Code)
	}
	if len(got.Chunk.Constants) != len(chunk.Constants) {
		t.Fatalf("constants: got %v, want %v", got.Chunk.Constants, chunk.Constants)
	}
	for i := range chunk.Constants {
		if got.Chunk.Constants[i] != chunk.Constants[i] {
			t.Errorf("constant %d: got %v, want %v", i, got.Chunk.Constants[i], chunk.Constants[i])
		}
	}
	if len(got.Chunk.Lines) != len(chunk.Lines) {
		t.Fatalf("lines: got %v, want %v", got.Chunk.Lines, chunk.Lines)
	}
	for i := range chunk.Lines {
		if got.Chunk.Lines[i] != chunk.Lines[i] {
			t.Errorf("run %d: got %+v, want %+v", i, got.Chunk.Lines[i], chunk.Lines[i])
		}
	}

	// Same disassembly before and after
	before, _ := vm.Disassemble(chunk, "sample")
	after, _ := vm.Disassemble(got.Chunk, got.Name)
	if before != after {
		t.Errorf("disassembly differs.\nbefore:\n%s\nafter:\n%s", before, after)
	}
}

func TestEncodeDecodeLargeChunk(t *testing.T) {
	const n = 200000
	chunk := vm.NewChunk()
	for i := 0; i < n; i++ {
		// One line per load so the line map is as long as the pool
		if err := chunk.WriteConstant(vm.Value(i), i+1); err != nil {
			t.Fatal(err)
		}
	}
	chunk.WriteOp(vm.OP_RETURN, n+1)
	if err := chunk.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	data, err := New(chunk, "big").Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Chunk.Constants) != n {
		t.Errorf("constants: got %d, want %d", len(got.Chunk.Constants), n)
	}
	if len(got.Chunk.Lines) != n+1 {
		t.Errorf("line runs: got %d, want %d", len(got.Chunk.Lines), n+1)
	}
	if got.Chunk.Constants[n-1] != vm.Value(n-1) {
		t.Errorf("last constant: got %v", got.Chunk.Constants[n-1])
	}
}

func TestNewAssignsDistinctIDs(t *testing.T) {
	chunk := sampleChunk(t)
	if New(chunk, "a").ID == New(chunk, "a").ID {
		t.Errorf("expected distinct image ids")
	}
}

func TestDecodeErrors(t *testing.T) {
	valid, err := New(sampleChunk(t), "x").Encode()
	if err != nil {
		t.Fatal(err)
	}

	wrongVersion := append([]byte(nil), valid...)
	wrongVersion[4] = 0x09

	if _, err := Decode([]byte("CLX")); err == nil {
		t.Errorf("expected error for short data")
	}
	if _, err := Decode(append([]byte("FXYB"), valid[4:]...)); !errors.Is(err, ErrBadMagic) {
		t.Errorf("expected ErrBadMagic, got %v", err)
	}
	if _, err := Decode(wrongVersion); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("expected ErrUnsupportedVersion, got %v", err)
	}
	if _, err := Decode(valid[:len(valid)-3]); err == nil {
		t.Errorf("expected error for truncated body")
	}
}

func TestDecodeRejectsInvalidChunk(t *testing.T) {
	chunk := vm.NewChunk()
	chunk.Write(0xEE, 1)
	chunk.WriteOp(vm.OP_RETURN, 1)

	data, err := New(chunk, "bad").Encode()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Decode(data); !errors.Is(err, vm.ErrUnknownOpcode) {
		t.Errorf("expected ErrUnknownOpcode, got %v", err)
	}
}

func TestWriteReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prog.cloxb")
	img := New(sampleChunk(t), "prog")
	if err := WriteFile(path, img); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.ID != img.ID || got.Name != "prog" {
		t.Errorf("got %s/%q, want %s/%q", got.ID, got.Name, img.ID, "prog")
	}

	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.cloxb")); err == nil {
		t.Errorf("expected error for missing file")
	}
}
