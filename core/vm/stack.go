package vm

import (
	"errors"

	"github.com/holiman/uint256"
)

// StackLimit is the maximum depth of the EVM operand stack (spec §4.4).
const StackLimit = 1024

// ErrStackOverflow and ErrStackUnderflow are the two stack-shape errors
// the interpreter checks before dispatching an opcode.
var (
	ErrStackOverflow  = errors.New("vm: stack overflow")
	ErrStackUnderflow = errors.New("vm: stack underflow")
)

// Stack is the EVM operand stack: up to 1024 256-bit words.
type Stack struct {
	data []uint256.Int
}

func newStack() *Stack { return &Stack{data: make([]uint256.Int, 0, 16)} }

func (st *Stack) push(v *uint256.Int) { st.data = append(st.data, *v) }

func (st *Stack) pop() uint256.Int {
	n := len(st.data) - 1
	v := st.data[n]
	st.data = st.data[:n]
	return v
}

func (st *Stack) peek() *uint256.Int { return &st.data[len(st.data)-1] }

// Back returns the n-th element from the top (0 = top) without popping.
func (st *Stack) Back(n int) *uint256.Int { return &st.data[len(st.data)-1-n] }

func (st *Stack) len() int { return len(st.data) }

func (st *Stack) swap(n int) {
	top := len(st.data) - 1
	st.data[top], st.data[top-n] = st.data[top-n], st.data[top]
}

func (st *Stack) dup(n int) {
	st.data = append(st.data, st.data[len(st.data)-n])
}
