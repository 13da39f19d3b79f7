package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/funvibe/clox/internal/config"
	"github.com/tliron/commonlog"
)

// InterpretResult is the outcome reported to the caller of a run
type InterpretResult int

const (
	InterpretOk InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
)

func (r InterpretResult) String() string {
	switch r {
	case InterpretOk:
		return "ok"
	case InterpretCompileError:
		return "compile error"
	case InterpretRuntimeError:
		return "runtime error"
	default:
		return fmt.Sprintf("InterpretResult(%d)", int(r))
	}
}

// VM executes one chunk. It borrows the chunk and never modifies it, so a
// chunk can be run by several VMs one after another.
type VM struct {
	chunk *Chunk
	ip    int // Index of the next byte to fetch

	stack [config.StackMax]Value
	sp    int // Stack pointer (points to next free slot)

	trace      bool
	traceColor bool

	// Result output (defaults to os.Stdout)
	out io.Writer

	// Trace output (defaults to os.Stderr)
	traceOut io.Writer

	log commonlog.Logger
}

// New creates a VM over chunk. When trace is set every step prints the
// stack and the instruction about to execute.
func New(chunk *Chunk, trace bool) *VM {
	return &VM{
		chunk:    chunk,
		trace:    trace,
		out:      os.Stdout,
		traceOut: os.Stderr,
		log:      commonlog.GetLogger("clox.vm"),
	}
}

// SetOutput sets the writer the result of OP_RETURN is printed to
func (vm *VM) SetOutput(w io.Writer) {
	vm.out = w
}

// SetTraceOutput sets the writer for the execution trace
func (vm *VM) SetTraceOutput(w io.Writer) {
	vm.traceOut = w
}

// SetTraceColor enables ANSI colouring of the trace
func (vm *VM) SetTraceColor(on bool) {
	vm.traceColor = on
}

// Reset rewinds the instruction cursor and empties the stack
func (vm *VM) Reset() {
	vm.ip = 0
	vm.sp = 0
}

// Stack returns a copy of the live stack, bottom first
func (vm *VM) Stack() []Value {
	out := make([]Value, vm.sp)
	copy(out, vm.stack[:vm.sp])
	return out
}

// Interpret runs the chunk and maps the outcome to an InterpretResult.
// A nil chunk means the front end produced nothing and is a compile error.
func (vm *VM) Interpret() (InterpretResult, error) {
	if vm.chunk == nil {
		return InterpretCompileError, errNoChunk
	}
	if _, err := vm.Run(); err != nil {
		vm.log.Debugf("run failed: %s", err)
		return InterpretRuntimeError, err
	}
	return InterpretOk, nil
}

// Interpret is a convenience entry for callers holding a finished chunk
func Interpret(chunk *Chunk, trace bool, out io.Writer) (InterpretResult, error) {
	machine := New(chunk, trace)
	if out != nil {
		machine.SetOutput(out)
	}
	return machine.Interpret()
}

// Run executes from the current cursor until OP_RETURN and returns the
// value it popped. Any fault ends the run and is returned as a *Fault.
func (vm *VM) Run() (Value, error) {
	if vm.chunk == nil {
		return 0, newFault(nil, 0, errNoChunk)
	}
	code := vm.chunk.Code
	vm.log.Debugf("run: %d bytes, %d constants", len(code), len(vm.chunk.Constants))

	for {
		// Every valid chunk ends in OP_RETURN
		if vm.ip >= len(code) {
			return 0, newFault(vm.chunk, vm.ip, ErrTruncatedBytecode)
		}

		if vm.trace {
			vm.traceStep()
		}

		offset := vm.ip
		op, err := DecodeOpcode(code[vm.ip])
		if err != nil {
			return 0, newFault(vm.chunk, offset, err)
		}
		vm.ip++

		switch op {
		case OP_RETURN:
			result, err := vm.pop()
			if err != nil {
				return 0, opFault(vm.chunk, offset, op, err)
			}
			fmt.Fprintln(vm.out, result)
			vm.log.Debugf("run: returned %s", result)
			return result, nil

		case OP_CONSTANT, OP_CONSTANT_LONG:
			err = vm.loadConstant(op, offset)

		case OP_NEGATE:
			var v Value
			if v, err = vm.pop(); err == nil {
				err = vm.push(-v)
			}

		case OP_ADD, OP_SUBTRACT, OP_MULTIPLY, OP_DIVIDE:
			err = vm.binaryOp(op)

		default:
			err = fmt.Errorf("%w: %d", ErrUnknownOpcode, byte(op))
		}

		if err != nil {
			return 0, opFault(vm.chunk, offset, op, err)
		}
	}
}

func (vm *VM) loadConstant(op Opcode, offset int) error {
	idx, err := vm.chunk.ReadConstantIndex(op, offset)
	if err != nil {
		return err
	}
	if idx >= len(vm.chunk.Constants) {
		return fmt.Errorf("%w: %d", ErrInvalidConstantIndex, idx)
	}
	vm.ip = offset + op.Width()
	return vm.push(vm.chunk.Constants[idx])
}

// binaryOp pops the right operand, then the left, and pushes left op right
func (vm *VM) binaryOp(op Opcode) error {
	right, err := vm.pop()
	if err != nil {
		return err
	}
	left, err := vm.pop()
	if err != nil {
		return err
	}

	switch op {
	case OP_ADD:
		return vm.push(left + right)
	case OP_SUBTRACT:
		return vm.push(left - right)
	case OP_MULTIPLY:
		return vm.push(left * right)
	case OP_DIVIDE:
		return vm.push(left / right)
	}
	return fmt.Errorf("%w: %s is not a binary operator", ErrUnknownOpcode, op)
}

func (vm *VM) push(v Value) error {
	if vm.sp >= len(vm.stack) {
		return fmt.Errorf("%w: depth %d", ErrStackOverflow, len(vm.stack))
	}
	vm.stack[vm.sp] = v
	vm.sp++
	return nil
}

func (vm *VM) pop() (Value, error) {
	if vm.sp == 0 {
		return 0, ErrStackUnderflow
	}
	vm.sp--
	return vm.stack[vm.sp], nil
}
