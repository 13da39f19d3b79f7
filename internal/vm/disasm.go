package vm

import (
	"fmt"
	"io"
	"strings"
)

// Disassemble returns a human-readable representation of the bytecode.
// On a malformed chunk it returns the listing up to the bad instruction
// together with the fault.
func Disassemble(chunk *Chunk, name string) (string, error) {
	var sb strings.Builder
	err := DisassembleTo(&sb, chunk, name)
	return sb.String(), err
}

// DisassembleTo writes the listing of chunk to w
func DisassembleTo(w io.Writer, chunk *Chunk, name string) error {
	fmt.Fprintf(w, "== %s ==\n", name)

	offset := 0
	prevLine, hasPrev := 0, false
	for offset < len(chunk.Code) {
		line, err := chunk.GetLine(offset)
		if err != nil {
			return newFault(chunk, offset, err)
		}
		next, err := disassembleInstruction(w, chunk, offset, line, hasPrev && line == prevLine)
		if err != nil {
			return err
		}
		prevLine, hasPrev = line, true
		offset = next
	}
	return nil
}

// DisassembleInstruction writes the instruction at offset and returns the
// offset of the next one. The line column shows "|" when the line matches
// the byte before offset.
func DisassembleInstruction(w io.Writer, chunk *Chunk, offset int) (int, error) {
	line, err := chunk.GetLine(offset)
	if err != nil {
		return offset, newFault(chunk, offset, err)
	}
	sameLine := false
	if offset > 0 {
		if prev, err := chunk.GetLine(offset - 1); err == nil && prev == line {
			sameLine = true
		}
	}
	return disassembleInstruction(w, chunk, offset, line, sameLine)
}

func disassembleInstruction(w io.Writer, chunk *Chunk, offset, line int, sameLine bool) (int, error) {
	fmt.Fprintf(w, "%04d ", offset)

	// Print line number
	if sameLine {
		io.WriteString(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", line)
	}

	op, err := DecodeOpcode(chunk.Code[offset])
	if err != nil {
		fmt.Fprintf(w, "Unknown opcode %d\n", chunk.Code[offset])
		return offset + 1, newFault(chunk, offset, err)
	}

	switch op {
	case OP_CONSTANT, OP_CONSTANT_LONG:
		return constantInstruction(w, op, chunk, offset)
	default:
		return simpleInstruction(w, op, offset)
	}
}

func simpleInstruction(w io.Writer, op Opcode, offset int) (int, error) {
	fmt.Fprintf(w, "%s\n", op)
	return offset + 1, nil
}

func constantInstruction(w io.Writer, op Opcode, chunk *Chunk, offset int) (int, error) {
	idx, err := chunk.ReadConstantIndex(op, offset)
	if err != nil {
		fmt.Fprintf(w, "%-16s (truncated)\n", op)
		return len(chunk.Code), opFault(chunk, offset, op, err)
	}

	if idx >= len(chunk.Constants) {
		fmt.Fprintf(w, "%-16s %4d (invalid)\n", op, idx)
		return offset + op.Width(), opFault(chunk, offset, op, fmt.Errorf("%w: %d", ErrInvalidConstantIndex, idx))
	}

	fmt.Fprintf(w, "%-16s %4d '%s'\n", op, idx, chunk.Constants[idx])
	return offset + op.Width(), nil
}
