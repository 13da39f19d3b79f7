package asm

import (
	"fmt"

	"github.com/funvibe/clox/internal/vm"
)

// Assemble emits the listing into a new chunk.
func (l *Listing) Assemble() (*vm.Chunk, error) {
	chunk := vm.NewChunk()

	for i, v := range l.Constants {
		if _, err := chunk.AppendConstant(vm.Value(v)); err != nil {
			return nil, fmt.Errorf("%s: constants[%d]: %w", l.path, i, err)
		}
	}

	line := 1
	for i, in := range l.Instructions {
		op, _ := LookupOpcode(in.Op)
		if in.Line > 0 {
			line = in.Line
		}

		switch {
		case in.Value != nil:
			if err := chunk.WriteConstant(vm.Value(*in.Value), line); err != nil {
				return nil, fmt.Errorf("%s: instructions[%d] (%s): %w", l.path, i, op, err)
			}

		case in.Index != nil:
			idx := *in.Index
			if idx >= len(chunk.Constants) {
				return nil, fmt.Errorf("%s: instructions[%d] (%s): index %d outside %d declared constants",
					l.path, i, op, idx, len(chunk.Constants))
			}
			chunk.WriteOp(op, line)
			if op == vm.OP_CONSTANT_LONG {
				chunk.Write(byte(idx>>16), line)
				chunk.Write(byte(idx>>8), line)
			}
			chunk.Write(byte(idx), line)

		default:
			chunk.WriteOp(op, line)
		}
	}

	return chunk, nil
}

// Build loads and assembles a listing file, returning the chunk and its name.
func Build(path string) (*vm.Chunk, string, error) {
	l, err := LoadListing(path)
	if err != nil {
		return nil, "", err
	}
	chunk, err := l.Assemble()
	if err != nil {
		return nil, "", err
	}
	return chunk, l.Name, nil
}
