package vm

import (
	"errors"
	"fmt"
)

// Malformed-encoding and stack-discipline faults. These indicate a bug in
// whatever produced the chunk (or in the VM) and end the run.
var (
	ErrUnknownOpcode        = errors.New("unknown opcode")
	ErrOffsetOutOfRange     = errors.New("offset out of range")
	ErrTruncatedBytecode    = errors.New("truncated bytecode")
	ErrInvalidConstantIndex = errors.New("invalid constant index")
	ErrStackUnderflow       = errors.New("stack underflow")
)

var errNoChunk = errors.New("no chunk to run")

// Resource-limit conditions. They are reported as ordinary errors so the
// producer can react (e.g. split a chunk) instead of misencoding.
var (
	ErrStackOverflow    = errors.New("stack overflow")
	ErrConstantPoolFull = errors.New("constant pool full")
)

// Fault is a fatal condition raised while decoding or executing a chunk.
// It wraps one of the sentinel errors above with the location it occurred at.
type Fault struct {
	Err    error
	Offset int
	Line    int
	HasLine bool // false when the offset has no recorded line
	Op      Opcode
	HasOp   bool
}

func (f *Fault) Error() string {
	prefix := fmt.Sprintf("offset %04d", f.Offset)
	if f.HasLine {
		prefix = fmt.Sprintf("[line %d] %s", f.Line, prefix)
	}
	if f.HasOp {
		return fmt.Sprintf("%s (%s): %v", prefix, f.Op, f.Err)
	}
	return fmt.Sprintf("%s: %v", prefix, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// IsFault reports whether err is (or wraps) a Fault
func IsFault(err error) bool {
	var f *Fault
	return errors.As(err, &f)
}

// newFault attaches the chunk location to err
func newFault(chunk *Chunk, offset int, err error) *Fault {
	f := &Fault{Err: err, Offset: offset}
	if chunk != nil {
		if line, lerr := chunk.GetLine(offset); lerr == nil {
			f.Line = line
			f.HasLine = true
		}
	}
	return f
}
