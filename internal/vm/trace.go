package vm

import (
	"io"
	"strings"
)

const (
	ansiDim   = "\x1b[2m"
	ansiReset = "\x1b[0m"
)

// traceStep prints the stack and the instruction at ip without touching VM state
func (vm *VM) traceStep() {
	var sb strings.Builder
	sb.WriteString("          ")
	for _, slot := range vm.stack[:vm.sp] {
		sb.WriteString("[ ")
		sb.WriteString(slot.String())
		sb.WriteString(" ]")
	}

	if vm.traceColor {
		io.WriteString(vm.traceOut, ansiDim+sb.String()+ansiReset+"\n")
	} else {
		io.WriteString(vm.traceOut, sb.String()+"\n")
	}

	// Decode faults are reported by the fetch that follows
	_, _ = DisassembleInstruction(vm.traceOut, vm.chunk, vm.ip)
}
