package vm

import (
	"github.com/holiman/uint256"
)

// Interpreter runs one Contract's code to completion (spec §4.4's
// "ProgramState" loop: read opcode, dispatch, step pc, stop when
// halted). A fresh Interpreter is created per call frame by EVM.run.
type Interpreter struct {
	evm      *EVM
	contract *Contract
	table    *JumpTable
	readOnly bool

	stack  *Stack
	memory *Memory
	pc     uint64

	returnData []byte
}

func newInterpreter(evm *EVM, contract *Contract, readOnly bool) *Interpreter {
	return &Interpreter{
		evm:      evm,
		contract: contract,
		table:    jumpTableFor(evm.Config.Rules),
		readOnly: readOnly,
		stack:    newStack(),
		memory:   newMemory(),
	}
}

// run executes contract.Code from pc 0 until STOP/RETURN/REVERT/
// SELFDESTRUCT or an error, returning the frame's return data.
func (in *Interpreter) run() ([]byte, error) {
	var (
		lastMemSize uint64
		lastMemCost uint64
	)
	for {
		op := in.contract.GetOp(in.pc)
		operation := in.table[op]
		if operation == nil {
			return nil, ErrInvalidOpcode
		}
		if in.stack.len() < operation.minStack {
			return nil, ErrStackUnderflow
		}
		if in.stack.len() > operation.maxStack {
			return nil, ErrStackOverflow
		}
		if in.readOnly && operation.writes {
			return nil, ErrWriteProtection
		}

		var memSize uint64
		if operation.memorySize != nil {
			size := operation.memorySize(in.stack)
			if size > maxMemorySize {
				return nil, ErrOutOfGas
			}
			memSize = wordAlign(size)
			if memSize > lastMemSize {
				cost := memoryGasCost(memSize)
				delta := cost - lastMemCost
				if !in.contract.UseGas(delta) {
					return nil, ErrOutOfGas
				}
				in.memory.Resize(memSize)
				lastMemSize = memSize
				lastMemCost = cost
			}
		}

		if !in.contract.UseGas(operation.constantGas) {
			return nil, ErrOutOfGas
		}
		if operation.dynamicGas != nil {
			dyn, err := operation.dynamicGas(in.evm, in.contract, in.stack, in.memory, memSize)
			if err != nil {
				return nil, err
			}
			if !in.contract.UseGas(dyn) {
				return nil, ErrOutOfGas
			}
		}

		ret, err := operation.execute(&in.pc, in)
		if err != nil {
			return ret, err
		}
		if operation.halts {
			return ret, nil
		}
		if !operation.jumps {
			in.pc++
		}
	}
}

// maxMemorySize (0xFFFFFFFF words) is the largest memory size whose
// expansion cost memoryGasCost computes without uint64 overflow; run
// rejects any larger request with ErrOutOfGas, since no gas allowance
// could pay for it.
const maxMemorySize = 0x1FFFFFFFE0

// wordAlign rounds size up to the next 32-byte boundary. run only calls
// it with sizes up to maxMemorySize, so the rounding cannot overflow.
func wordAlign(size uint64) uint64 {
	if size == 0 {
		return 0
	}
	return toWordSize(size) * 32
}

func u256(x uint64) *uint256.Int { return new(uint256.Int).SetUint64(x) }
