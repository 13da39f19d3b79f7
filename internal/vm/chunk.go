package vm

import (
	"fmt"

	"github.com/funvibe/clox/internal/config"
)

// LineRun folds consecutive code bytes emitted for the same source line
type LineRun struct {
	Line  int
	Count int
}

// Chunk represents a sequence of bytecode instructions
type Chunk struct {
	// Code is the bytecode instructions
	Code []byte

	// Constants pool; an index is a constant's identity for the chunk's lifetime
	Constants []Value

	// Lines is the run-length encoded offset -> source line map.
	// The counts always sum to len(Code).
	Lines []LineRun
}

// NewChunk creates a new empty chunk
func NewChunk() *Chunk {
	return &Chunk{
		Code:      make([]byte, 0, 256),
		Constants: make([]Value, 0, 64),
		Lines:     make([]LineRun, 0, 16),
	}
}

// Write appends a byte to the chunk with line info
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)

	if n := len(c.Lines); n > 0 && c.Lines[n-1].Line == line {
		c.Lines[n-1].Count++
		return
	}
	c.Lines = append(c.Lines, LineRun{Line: line, Count: 1})
}

// WriteOp writes an opcode to the chunk
func (c *Chunk) WriteOp(op Opcode, line int) {
	c.Write(byte(op), line)
}

// AddConstant adds a constant to the pool and returns its one-byte index.
// It refuses once the pool holds MaxShortConstants entries; use
// WriteConstant to reach the long form.
func (c *Chunk) AddConstant(value Value) (byte, error) {
	if len(c.Constants) >= config.MaxShortConstants {
		return 0, fmt.Errorf("%w: %d entries, short index exhausted", ErrConstantPoolFull, len(c.Constants))
	}
	c.Constants = append(c.Constants, value)
	return byte(len(c.Constants) - 1), nil
}

// AppendConstant adds a constant without emitting a load and returns its
// index, which may need the long operand form.
func (c *Chunk) AppendConstant(value Value) (int, error) {
	if len(c.Constants) >= config.MaxLongConstants {
		return 0, fmt.Errorf("%w: %d entries", ErrConstantPoolFull, len(c.Constants))
	}
	c.Constants = append(c.Constants, value)
	return len(c.Constants) - 1, nil
}

// WriteConstant adds value to the pool and emits the load for it.
// Pools up to MaxShortConstants entries use OP_CONSTANT with a one-byte
// index; larger pools use OP_CONSTANT_LONG with a 24-bit big-endian index.
func (c *Chunk) WriteConstant(value Value, line int) error {
	idx, err := c.AppendConstant(value)
	if err != nil {
		return err
	}

	if len(c.Constants) > config.MaxShortConstants {
		c.WriteOp(OP_CONSTANT_LONG, line)
		c.Write(byte(idx>>16), line)
		c.Write(byte(idx>>8), line)
		c.Write(byte(idx), line)
		return nil
	}

	c.WriteOp(OP_CONSTANT, line)
	c.Write(byte(idx), line)
	return nil
}

// ReadConstantIndex decodes the pool index of the constant load at offset
func (c *Chunk) ReadConstantIndex(op Opcode, offset int) (int, error) {
	end := offset + op.Width()
	if end > len(c.Code) {
		return 0, ErrTruncatedBytecode
	}
	switch op {
	case OP_CONSTANT:
		return int(c.Code[offset+1]), nil
	case OP_CONSTANT_LONG:
		return int(c.Code[offset+1])<<16 | int(c.Code[offset+2])<<8 | int(c.Code[offset+3]), nil
	default:
		return 0, fmt.Errorf("%w: %s has no constant operand", ErrUnknownOpcode, op)
	}
}

// GetLine resolves a code offset to its source line
func (c *Chunk) GetLine(offset int) (int, error) {
	return LineAt(c.Lines, offset)
}

// LineAt walks the run list, accumulating counts until the cumulative
// count passes offset.
func LineAt(lines []LineRun, offset int) (int, error) {
	if offset < 0 {
		return 0, fmt.Errorf("%w: %d", ErrOffsetOutOfRange, offset)
	}

	total := 0
	for _, run := range lines {
		total += run.Count
		if offset < total {
			return run.Line, nil
		}
	}

	return 0, fmt.Errorf("%w: %d (recorded length %d)", ErrOffsetOutOfRange, offset, total)
}

// Len returns the number of bytes in the chunk
func (c *Chunk) Len() int {
	return len(c.Code)
}

// LineCount returns the number of code bytes covered by the line map
func (c *Chunk) LineCount() int {
	total := 0
	for _, run := range c.Lines {
		total += run.Count
	}
	return total
}

// Validate checks that the chunk is something the VM can run: the line map
// covers the code exactly, every opcode decodes with its operands present and
// in range, and the stream ends with OP_RETURN.
func (c *Chunk) Validate() error {
	if n := c.LineCount(); n != len(c.Code) {
		return fmt.Errorf("line map covers %d bytes, code has %d", n, len(c.Code))
	}
	for _, run := range c.Lines {
		if run.Count <= 0 {
			return fmt.Errorf("line map has an empty run for line %d", run.Line)
		}
	}
	if len(c.Code) == 0 {
		return newFault(c, 0, ErrTruncatedBytecode)
	}

	offset := 0
	last := OP_RETURN
	for offset < len(c.Code) {
		op, err := DecodeOpcode(c.Code[offset])
		if err != nil {
			return newFault(c, offset, err)
		}
		if op == OP_CONSTANT || op == OP_CONSTANT_LONG {
			idx, err := c.ReadConstantIndex(op, offset)
			if err != nil {
				return opFault(c, offset, op, err)
			}
			if idx >= len(c.Constants) {
				return opFault(c, offset, op, fmt.Errorf("%w: %d", ErrInvalidConstantIndex, idx))
			}
		}
		last = op
		offset += op.Width()
	}

	if last != OP_RETURN {
		return newFault(c, len(c.Code)-1, fmt.Errorf("%w: chunk does not end with %s", ErrTruncatedBytecode, OP_RETURN))
	}
	return nil
}

func opFault(c *Chunk, offset int, op Opcode, err error) *Fault {
	f := newFault(c, offset, err)
	f.Op = op
	f.HasOp = true
	return f
}
