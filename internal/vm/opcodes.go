// Package vm implements the bytecode chunk, disassembler and stack machine for clox
package vm

import "fmt"

// Opcode represents a single VM instruction.
// Byte values are part of the encoding and must never be renumbered.
type Opcode byte

const (
	OP_RETURN        Opcode = iota // Pop and print the result, stop
	OP_CONSTANT                    // Push constant; 1-byte pool index
	OP_CONSTANT_LONG               // Push constant; 3-byte big-endian pool index
	OP_NEGATE                      // Unary minus
	OP_ADD                         // +
	OP_SUBTRACT                    // -
	OP_MULTIPLY                    // *
	OP_DIVIDE                      // /

	opcodeCount
)

// OpcodeNames maps opcodes to their mnemonics (for disassembly and traces)
var OpcodeNames = map[Opcode]string{
	OP_RETURN:        "OP_RETURN",
	OP_CONSTANT:      "OP_CONSTANT",
	OP_CONSTANT_LONG: "OP_CONSTANT_LONG",
	OP_NEGATE:        "OP_NEGATE",
	OP_ADD:           "OP_ADD",
	OP_SUBTRACT:      "OP_SUBTRACT",
	OP_MULTIPLY:      "OP_MULTIPLY",
	OP_DIVIDE:        "OP_DIVIDE",
}

// OperandWidth is the number of operand bytes following each opcode
var OperandWidth = map[Opcode]int{
	OP_CONSTANT:      1,
	OP_CONSTANT_LONG: 3,
}

func (op Opcode) String() string {
	if name, ok := OpcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("OP_UNKNOWN(%d)", byte(op))
}

// Width returns the full instruction length in bytes, opcode included
func (op Opcode) Width() int {
	return 1 + OperandWidth[op]
}

// DecodeOpcode converts a raw code byte into an Opcode.
// Bytes outside the known set are a malformed-encoding fault.
func DecodeOpcode(b byte) (Opcode, error) {
	if b >= byte(opcodeCount) {
		return 0, fmt.Errorf("%w: %d", ErrUnknownOpcode, b)
	}
	return Opcode(b), nil
}
