package vm

import "strconv"

// Value is the runtime datum carried by the operand stack and the constant pool.
// Only numbers exist for now; a tagged representation will replace this type
// without changing the Chunk or VM contracts.
type Value float64

// String renders the shortest text that round-trips the number
func (v Value) String() string {
	return strconv.FormatFloat(float64(v), 'g', -1, 64)
}
