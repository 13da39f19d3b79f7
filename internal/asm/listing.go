// Package asm builds chunks from YAML instruction listings.
//
// A listing stands in for the compiler front end: it drives the same
// append-only Chunk API a code generator would use. Example:
//
//	name: arithmetic
//	constants: [10]
//	instructions:
//	  - {op: constant, value: 1.2, line: 1}
//	  - {op: constant, index: 0}
//	  - {op: add}
//	  - {op: return, line: 2}
//
// An instruction with a value goes through Chunk.WriteConstant, which picks
// the short or long load; one with an index references the constants list
// directly. A missing line repeats the previous instruction's line.
package asm

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/funvibe/clox/internal/config"
	"github.com/funvibe/clox/internal/vm"
	"gopkg.in/yaml.v3"
)

// Listing represents a parsed listing file.
type Listing struct {
	// Name labels the chunk in disassembly headers. Defaults to the file name.
	Name string `yaml:"name,omitempty"`

	// Constants are added to the pool, in order, before any instruction.
	Constants []float64 `yaml:"constants,omitempty"`

	// Instructions are emitted in order.
	Instructions []Instruction `yaml:"instructions"`

	path string
}

// Instruction is one listing entry.
type Instruction struct {
	// Op is the mnemonic, with or without the OP_ prefix, in any case.
	Op string `yaml:"op"`

	// Value is a constant to add and load. Only valid for constant.
	Value *float64 `yaml:"value,omitempty"`

	// Index refers to an entry of Constants. Valid for constant and constant_long.
	Index *int `yaml:"index,omitempty"`

	// Line is the source line; 0 or absent repeats the previous line.
	Line int `yaml:"line,omitempty"`
}

var mnemonics = func() map[string]vm.Opcode {
	m := make(map[string]vm.Opcode, len(vm.OpcodeNames))
	for op, name := range vm.OpcodeNames {
		m[strings.TrimPrefix(strings.ToLower(name), "op_")] = op
	}
	return m
}()

// LookupOpcode resolves a mnemonic such as "add" or "OP_ADD"
func LookupOpcode(name string) (vm.Opcode, bool) {
	op, ok := mnemonics[strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), "op_")]
	return op, ok
}

// LoadListing reads and parses a listing file.
func LoadListing(path string) (*Listing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading listing %s: %w", path, err)
	}
	return ParseListing(data, path)
}

// ParseListing parses listing content from bytes.
// The path argument is used for error messages and the default name.
func ParseListing(data []byte, path string) (*Listing, error) {
	var l Listing
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	l.path = path
	if err := l.validate(); err != nil {
		return nil, err
	}
	if l.Name == "" {
		l.Name = config.TrimListingExt(filepath.Base(path))
	}
	return &l, nil
}

func (l *Listing) validate() error {
	if len(l.Instructions) == 0 {
		return fmt.Errorf("%s: no instructions defined", l.path)
	}
	if len(l.Constants) > config.MaxLongConstants {
		return fmt.Errorf("%s: %d constants exceed the pool limit of %d", l.path, len(l.Constants), config.MaxLongConstants)
	}

	for i, in := range l.Instructions {
		op, ok := LookupOpcode(in.Op)
		if !ok {
			return fmt.Errorf("%s: instructions[%d]: unknown op %q", l.path, i, in.Op)
		}
		if in.Line < 0 {
			return fmt.Errorf("%s: instructions[%d] (%s): line must not be negative", l.path, i, op)
		}

		switch op {
		case vm.OP_CONSTANT:
			if (in.Value == nil) == (in.Index == nil) {
				return fmt.Errorf("%s: instructions[%d] (%s): exactly one of value or index is required", l.path, i, op)
			}
			if in.Index != nil && (*in.Index < 0 || *in.Index > config.MaxShortConstants) {
				return fmt.Errorf("%s: instructions[%d] (%s): index %d does not fit one byte", l.path, i, op, *in.Index)
			}
		case vm.OP_CONSTANT_LONG:
			if in.Index == nil || in.Value != nil {
				return fmt.Errorf("%s: instructions[%d] (%s): index is required (use constant with a value for automatic selection)", l.path, i, op)
			}
			if *in.Index < 0 || *in.Index >= config.MaxLongConstants {
				return fmt.Errorf("%s: instructions[%d] (%s): index %d does not fit 24 bits", l.path, i, op, *in.Index)
			}
		default:
			if in.Value != nil || in.Index != nil {
				return fmt.Errorf("%s: instructions[%d] (%s): takes no operand", l.path, i, op)
			}
		}
	}
	return nil
}
