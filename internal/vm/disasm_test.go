package vm

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestDisassembleConstantAndReturn(t *testing.T) {
	chunk := NewChunk()
	idx, err := chunk.AddConstant(1.2)
	if err != nil {
		t.Fatal(err)
	}
	chunk.WriteOp(OP_CONSTANT, 122)
	chunk.Write(idx, 122)
	chunk.WriteOp(OP_RETURN, 122)

	got, err := Disassemble(chunk, "test chunk")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "== test chunk ==\n" +
		"0000  122 OP_CONSTANT" + strings.Repeat(" ", 9) + "0 '1.2'\n" +
		"0002    | OP_RETURN\n"
	if got != want {
		t.Errorf("wrong disassembly.\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestDisassembleLineColumn(t *testing.T) {
	chunk := NewChunk()
	chunk.WriteConstant(1, 1)
	chunk.WriteConstant(2, 1)
	chunk.WriteOp(OP_ADD, 2)
	chunk.WriteOp(OP_NEGATE, 2)
	chunk.WriteConstant(3, 3)
	chunk.WriteOp(OP_DIVIDE, 3)
	chunk.WriteOp(OP_RETURN, 4)

	got, err := Disassemble(chunk, "lines")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows := strings.Split(strings.TrimSuffix(got, "\n"), "\n")[1:]

	tests := []struct {
		offset   string
		line     string
		mnemonic string
		operand  string
	}{
		{"0000", "   1", "OP_CONSTANT", "0 '1'"},
		{"0002", "   |", "OP_CONSTANT", "1 '2'"},
		{"0004", "   2", "OP_ADD", ""},
		{"0005", "   |", "OP_NEGATE", ""},
		{"0006", "   3", "OP_CONSTANT", "2 '3'"},
		{"0008", "   |", "OP_DIVIDE", ""},
		{"0009", "   4", "OP_RETURN", ""},
	}
	if len(rows) != len(tests) {
		t.Fatalf("expected %d instructions, got %d:\n%s", len(tests), len(rows), got)
	}
	for i, tt := range tests {
		row := rows[i]
		if !strings.HasPrefix(row, tt.offset+" "+tt.line+" "+tt.mnemonic) {
			t.Errorf("row %d: %q does not start with offset %s, line %q, %s", i, row, tt.offset, tt.line, tt.mnemonic)
		}
		if tt.operand != "" && !strings.HasSuffix(row, tt.operand) {
			t.Errorf("row %d: %q should end with %q", i, row, tt.operand)
		}
	}
}

func TestDisassembleLongConstant(t *testing.T) {
	chunk := NewChunk()
	for i := 0; i < 256; i++ {
		chunk.Constants = append(chunk.Constants, Value(i))
	}
	chunk.WriteOp(OP_CONSTANT_LONG, 7)
	chunk.Write(0x00, 7)
	chunk.Write(0x00, 7)
	chunk.Write(0xFF, 7)
	chunk.WriteOp(OP_RETURN, 7)

	var buf bytes.Buffer
	next, err := DisassembleInstruction(&buf, chunk, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next != 4 {
		t.Errorf("long constant should advance 4 bytes, got %d", next)
	}
	if want := "0000    7 OP_CONSTANT_LONG  255 '255'\n"; buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestDisassembleFaults(t *testing.T) {
	tests := []struct {
		name  string
		build func(c *Chunk)
		want  error
	}{
		{"unknown opcode", func(c *Chunk) { c.Write(42, 1) }, ErrUnknownOpcode},
		{"truncated operand", func(c *Chunk) { c.WriteOp(OP_CONSTANT, 1) }, ErrTruncatedBytecode},
		{"constant out of pool", func(c *Chunk) {
			c.WriteOp(OP_CONSTANT, 1)
			c.Write(9, 1)
		}, ErrInvalidConstantIndex},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChunk()
			tt.build(c)
			_, err := Disassemble(c, "bad")
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	var buf bytes.Buffer
	if _, err := DisassembleInstruction(&buf, NewChunk(), 0); !errors.Is(err, ErrOffsetOutOfRange) {
		t.Errorf("decoding past the end: expected ErrOffsetOutOfRange, got %v", err)
	}
}
