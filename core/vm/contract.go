package vm

import (
	"math/big"

	"github.com/etcnode/core-engine/core/types"
)

// Contract is the running code and execution context of one call frame
// (spec §4.4's ProgramContext): the code being executed, the address it
// runs at (for SLOAD/SSTORE/ADDRESS), the caller, the value attached,
// and the gas allotted to this frame.
type Contract struct {
	Caller   types.Address
	Address  types.Address
	Code     []byte
	CodeHash types.Hash
	Input    []byte
	Gas      uint64
	Value    *big.Int

	jumpdests map[uint64]bool
}

// NewContract builds a fresh call frame.
func NewContract(caller, addr types.Address, value *big.Int, gas uint64) *Contract {
	if value == nil {
		value = new(big.Int)
	}
	return &Contract{Caller: caller, Address: addr, Value: value, Gas: gas}
}

// SetCode attaches code (and its hash, for EXTCODEHASH-equivalent
// bookkeeping) to the frame.
func (c *Contract) SetCode(hash types.Hash, code []byte) {
	c.CodeHash = hash
	c.Code = code
}

// GetOp returns the opcode at position n, or STOP past the end of code
// (the EVM treats code as implicitly STOP-padded).
func (c *Contract) GetOp(n uint64) OpCode {
	if n < uint64(len(c.Code)) {
		return OpCode(c.Code[n])
	}
	return STOP
}

// UseGas deducts gas from the frame's remaining allowance, reporting
// false (out-of-gas) without mutating Gas if insufficient.
func (c *Contract) UseGas(gas uint64) bool {
	if c.Gas < gas {
		return false
	}
	c.Gas -= gas
	return true
}

// validJumpdest reports whether dest is a JUMPDEST opcode that is not
// itself data inside an earlier PUSH's immediate (spec §4.4).
func (c *Contract) validJumpdest(dest *big.Int) bool {
	if dest.BitLen() > 63 {
		return false
	}
	udest := dest.Uint64()
	if udest >= uint64(len(c.Code)) || OpCode(c.Code[udest]) != JUMPDEST {
		return false
	}
	return c.isCode(udest)
}

func (c *Contract) isCode(pos uint64) bool {
	if c.jumpdests == nil {
		c.jumpdests = make(map[uint64]bool)
		for i := uint64(0); i < uint64(len(c.Code)); i++ {
			op := OpCode(c.Code[i])
			if op == JUMPDEST {
				c.jumpdests[i] = true
			}
			if op.IsPush() {
				i += uint64(op.PushSize())
			}
		}
	}
	return c.jumpdests[pos]
}
