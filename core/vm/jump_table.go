package vm

import (
	"github.com/etcnode/core-engine/params"
	"github.com/holiman/uint256"
)

// executionFunc implements one opcode. It returns the opcode's return
// data (used by the interpreter only for the halting RETURN/REVERT, or
// alongside an error) and advances *pc itself when
// the operation's jumps flag is set (JUMP/JUMPI); the interpreter loop
// advances pc by 1 for every other non-halting opcode.
type executionFunc func(pc *uint64, in *Interpreter) ([]byte, error)

// dynamicGasFunc computes an opcode's gas cost beyond its constant
// base charge (e.g. SSTORE's set/reset/clear schedule, CALL's value-
// transfer and new-account surcharges, LOG's per-byte charge).
type dynamicGasFunc func(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error)

// memorySizeFunc returns, in bytes, how large memory must be for this
// operation's arguments — the interpreter resizes memory and charges
// the quadratic expansion cost before dispatching.
type memorySizeFunc func(stack *Stack) uint64

type operation struct {
	execute     executionFunc
	constantGas uint64
	dynamicGas  dynamicGasFunc
	minStack    int
	maxStack    int
	memorySize  memorySizeFunc
	halts       bool
	jumps       bool
	writes      bool
}

// JumpTable maps every opcode byte to its operation, or nil for an
// undefined opcode (dispatch then reports ErrInvalidOpcode).
type JumpTable [256]*operation

func minStack(pops, pushes int) int { return pops }
func maxStack(pops, pushes int) int { return StackLimit + pops - pushes }

// jumpTableFor builds the table active under rules. EIP-150/EIP-160
// only change gas costs (sloadGas, callBaseGas, selfdestructGas,
// expByteGas, callGas's 63/64 rule), which the dynamic-gas closures
// read from evm.Config.Rules directly, so one table serves every fork
// in this spec's range; only DELEGATECALL's presence is gated.
func jumpTableFor(rules params.Rules) *JumpTable {
	var t JumpTable

	set := func(op OpCode, o operation) { t[op] = &o }

	set(STOP, operation{execute: opStop, minStack: minStack(0, 0), maxStack: maxStack(0, 0), halts: true})

	binOp := func(fn executionFunc, gas uint64) operation {
		return operation{execute: fn, constantGas: gas, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
	}
	unOp := func(fn executionFunc, gas uint64) operation {
		return operation{execute: fn, constantGas: gas, minStack: minStack(1, 1), maxStack: maxStack(1, 1)}
	}

	set(ADD, binOp(opAdd, constGasTable[ADD]))
	set(MUL, binOp(opMul, constGasTable[MUL]))
	set(SUB, binOp(opSub, constGasTable[SUB]))
	set(DIV, binOp(opDiv, constGasTable[DIV]))
	set(SDIV, binOp(opSdiv, constGasTable[SDIV]))
	set(MOD, binOp(opMod, constGasTable[MOD]))
	set(SMOD, binOp(opSmod, constGasTable[SMOD]))
	set(ADDMOD, operation{execute: opAddmod, constantGas: constGasTable[ADDMOD], minStack: minStack(3, 1), maxStack: maxStack(3, 1)})
	set(MULMOD, operation{execute: opMulmod, constantGas: constGasTable[MULMOD], minStack: minStack(3, 1), maxStack: maxStack(3, 1)})
	set(EXP, operation{execute: opExp, dynamicGas: gasExp, minStack: minStack(2, 1), maxStack: maxStack(2, 1)})
	set(SIGNEXTEND, binOp(opSignExtend, constGasTable[SIGNEXTEND]))

	set(LT, binOp(opLt, constGasTable[LT]))
	set(GT, binOp(opGt, constGasTable[GT]))
	set(SLT, binOp(opSlt, constGasTable[SLT]))
	set(SGT, binOp(opSgt, constGasTable[SGT]))
	set(EQ, binOp(opEq, constGasTable[EQ]))
	set(ISZERO, unOp(opIszero, constGasTable[ISZERO]))
	set(AND, binOp(opAnd, constGasTable[AND]))
	set(OR, binOp(opOr, constGasTable[OR]))
	set(XOR, binOp(opXor, constGasTable[XOR]))
	set(NOT, unOp(opNot, constGasTable[NOT]))
	set(BYTE, binOp(opByte, constGasTable[BYTE]))

	set(KECCAK256, operation{
		execute: opSha3, constantGas: params.Sha3Gas, dynamicGas: gasSha3,
		minStack: minStack(2, 1), maxStack: maxStack(2, 1), memorySize: memoryKeccak256,
	})

	set(ADDRESS, operation{execute: opAddress, constantGas: constGasTable[ADDRESS], minStack: minStack(0, 1), maxStack: maxStack(0, 1)})
	set(BALANCE, operation{execute: opBalance, dynamicGas: gasBalance, minStack: minStack(1, 1), maxStack: maxStack(1, 1)})
	set(ORIGIN, operation{execute: opOrigin, constantGas: constGasTable[ORIGIN], minStack: minStack(0, 1), maxStack: maxStack(0, 1)})
	set(CALLER, operation{execute: opCaller, constantGas: constGasTable[CALLER], minStack: minStack(0, 1), maxStack: maxStack(0, 1)})
	set(CALLVALUE, operation{execute: opCallValue, constantGas: constGasTable[CALLVALUE], minStack: minStack(0, 1), maxStack: maxStack(0, 1)})
	set(CALLDATALOAD, unOp(opCallDataLoad, constGasTable[CALLDATALOAD]))
	set(CALLDATASIZE, operation{execute: opCallDataSize, constantGas: constGasTable[CALLDATASIZE], minStack: minStack(0, 1), maxStack: maxStack(0, 1)})
	set(CALLDATACOPY, operation{
		execute: opCallDataCopy, constantGas: params.CopyGas, dynamicGas: gasCallDataCopy,
		minStack: minStack(3, 0), maxStack: maxStack(3, 0), memorySize: memoryCalldataCopy, writes: false,
	})
	set(CODESIZE, operation{execute: opCodeSize, constantGas: constGasTable[CODESIZE], minStack: minStack(0, 1), maxStack: maxStack(0, 1)})
	set(CODECOPY, operation{
		execute: opCodeCopy, constantGas: params.CopyGas, dynamicGas: gasCodeCopy,
		minStack: minStack(3, 0), maxStack: maxStack(3, 0), memorySize: memoryCodeCopy,
	})
	set(GASPRICE, operation{execute: opGasprice, constantGas: constGasTable[GASPRICE], minStack: minStack(0, 1), maxStack: maxStack(0, 1)})
	set(EXTCODESIZE, operation{execute: opExtCodeSize, dynamicGas: gasExtCodeSize, minStack: minStack(1, 1), maxStack: maxStack(1, 1)})
	set(EXTCODECOPY, operation{
		execute: opExtCodeCopy, dynamicGas: gasExtCodeCopy,
		minStack: minStack(4, 0), maxStack: maxStack(4, 0), memorySize: memoryExtCodeCopy,
	})

	set(BLOCKHASH, unOp(opBlockhash, constGasTable[BLOCKHASH]))
	set(COINBASE, operation{execute: opCoinbase, constantGas: constGasTable[COINBASE], minStack: minStack(0, 1), maxStack: maxStack(0, 1)})
	set(TIMESTAMP, operation{execute: opTimestamp, constantGas: constGasTable[TIMESTAMP], minStack: minStack(0, 1), maxStack: maxStack(0, 1)})
	set(NUMBER, operation{execute: opNumber, constantGas: constGasTable[NUMBER], minStack: minStack(0, 1), maxStack: maxStack(0, 1)})
	set(DIFFICULTY, operation{execute: opDifficulty, constantGas: constGasTable[DIFFICULTY], minStack: minStack(0, 1), maxStack: maxStack(0, 1)})
	set(GASLIMIT, operation{execute: opGasLimit, constantGas: constGasTable[GASLIMIT], minStack: minStack(0, 1), maxStack: maxStack(0, 1)})

	set(POP, operation{execute: opPop, constantGas: constGasTable[POP], minStack: minStack(1, 0), maxStack: maxStack(1, 0)})
	set(MLOAD, operation{
		execute: opMload, constantGas: constGasTable[MLOAD],
		minStack: minStack(1, 1), maxStack: maxStack(1, 1), memorySize: memoryMload,
	})
	set(MSTORE, operation{
		execute: opMstore, constantGas: constGasTable[MSTORE],
		minStack: minStack(2, 0), maxStack: maxStack(2, 0), memorySize: memoryMstore,
	})
	set(MSTORE8, operation{
		execute: opMstore8, constantGas: constGasTable[MSTORE8],
		minStack: minStack(2, 0), maxStack: maxStack(2, 0), memorySize: memoryMstore8,
	})
	set(SLOAD, operation{execute: opSload, dynamicGas: gasSload, minStack: minStack(1, 1), maxStack: maxStack(1, 1)})
	set(SSTORE, operation{execute: opSstore, dynamicGas: gasSstore, minStack: minStack(2, 0), maxStack: maxStack(2, 0), writes: true})
	set(JUMP, operation{execute: opJump, constantGas: constGasTable[JUMP], minStack: minStack(1, 0), maxStack: maxStack(1, 0), jumps: true})
	set(JUMPI, operation{execute: opJumpi, constantGas: constGasTable[JUMPI], minStack: minStack(2, 0), maxStack: maxStack(2, 0), jumps: true})
	set(PC, operation{execute: opPc, constantGas: constGasTable[PC], minStack: minStack(0, 1), maxStack: maxStack(0, 1)})
	set(MSIZE, operation{execute: opMsize, constantGas: constGasTable[MSIZE], minStack: minStack(0, 1), maxStack: maxStack(0, 1)})
	set(GAS, operation{execute: opGas, constantGas: constGasTable[GAS], minStack: minStack(0, 1), maxStack: maxStack(0, 1)})
	set(JUMPDEST, operation{execute: opJumpdest, constantGas: constGasTable[JUMPDEST], minStack: minStack(0, 0), maxStack: maxStack(0, 0)})

	for i := 0; i < 32; i++ {
		op := PUSH1 + OpCode(i)
		size := i + 1
		set(op, operation{execute: makePush(size), constantGas: 3, minStack: minStack(0, 1), maxStack: maxStack(0, 1)})
	}
	for i := 1; i <= 16; i++ {
		op := DUP1 + OpCode(i-1)
		set(op, operation{execute: makeDup(i), constantGas: 3, minStack: minStack(i, i+1), maxStack: maxStack(i, i+1)})
	}
	for i := 1; i <= 16; i++ {
		op := SWAP1 + OpCode(i-1)
		set(op, operation{execute: makeSwap(i), constantGas: 3, minStack: minStack(i+1, i+1), maxStack: maxStack(i+1, i+1)})
	}
	for i := 0; i <= 4; i++ {
		op := LOG0 + OpCode(i)
		n := i
		set(op, operation{
			execute: makeLog(n), dynamicGas: makeGasLog(n),
			minStack: minStack(2+n, 0), maxStack: maxStack(2+n, 0), memorySize: memoryLog, writes: true,
		})
	}

	set(CREATE, operation{
		execute: opCreate, dynamicGas: gasCreate,
		minStack: minStack(3, 1), maxStack: maxStack(3, 1), memorySize: memoryCreate, writes: true,
	})
	set(CALL, operation{
		execute: opCall, dynamicGas: gasCall,
		minStack: minStack(7, 1), maxStack: maxStack(7, 1), memorySize: memoryCall, writes: true,
	})
	set(CALLCODE, operation{
		execute: opCallCode, dynamicGas: gasCallCode,
		minStack: minStack(7, 1), maxStack: maxStack(7, 1), memorySize: memoryCall,
	})
	set(RETURN, operation{execute: opReturn, minStack: minStack(2, 0), maxStack: maxStack(2, 0), memorySize: memoryReturn, halts: true})
	if rules.IsHomestead {
		set(DELEGATECALL, operation{
			execute: opDelegateCall, dynamicGas: gasDelegateCall,
			minStack: minStack(6, 1), maxStack: maxStack(6, 1), memorySize: memoryDelegateCall,
		})
	}
	set(REVERT, operation{execute: opRevert, minStack: minStack(2, 0), maxStack: maxStack(2, 0), memorySize: memoryReturn, halts: true})
	set(SELFDESTRUCT, operation{execute: opSelfdestruct, dynamicGas: gasSelfdestruct, minStack: minStack(1, 0), maxStack: maxStack(1, 0), halts: true, writes: true})

	return &t
}

func memoryMload(stack *Stack) uint64    { return add64(stack.Back(0), u256(32)) }
func memoryMstore(stack *Stack) uint64   { return add64(stack.Back(0), u256(32)) }
func memoryMstore8(stack *Stack) uint64  { return add64(stack.Back(0), u256(1)) }
func memoryReturn(stack *Stack) uint64   { return add64(stack.Back(0), stack.Back(1)) }
func memoryKeccak256(stack *Stack) uint64 { return add64(stack.Back(0), stack.Back(1)) }
func memoryCalldataCopy(stack *Stack) uint64 { return add64(stack.Back(0), stack.Back(2)) }
func memoryCodeCopy(stack *Stack) uint64     { return add64(stack.Back(0), stack.Back(2)) }
func memoryExtCodeCopy(stack *Stack) uint64  { return add64(stack.Back(1), stack.Back(3)) }
func memoryLog(stack *Stack) uint64          { return add64(stack.Back(0), stack.Back(1)) }
func memoryCreate(stack *Stack) uint64       { return add64(stack.Back(1), stack.Back(2)) }
func memoryCall(stack *Stack) uint64 {
	in := add64(stack.Back(3), stack.Back(4))
	out := add64(stack.Back(5), stack.Back(6))
	if in > out {
		return in
	}
	return out
}
func memoryDelegateCall(stack *Stack) uint64 {
	in := add64(stack.Back(2), stack.Back(3))
	out := add64(stack.Back(4), stack.Back(5))
	if in > out {
		return in
	}
	return out
}

// add64 adds two stack words (interpreted as memory offset and length)
// saturating at MaxUint64 so a value too large to ever be affordable
// gas-wise never wraps into a small, cheap one.
func add64(a, b *uint256.Int) uint64 {
	if !a.IsUint64() || !b.IsUint64() {
		return ^uint64(0)
	}
	x, y := a.Uint64(), b.Uint64()
	if x > ^uint64(0)-y {
		return ^uint64(0)
	}
	return x + y
}
