package vm

import (
	"github.com/etcnode/core-engine/core/types"
	"github.com/etcnode/core-engine/crypto"
	"github.com/etcnode/core-engine/params"
	"github.com/holiman/uint256"
)

func opStop(pc *uint64, in *Interpreter) ([]byte, error) { return nil, nil }

func opAdd(pc *uint64, in *Interpreter) ([]byte, error) {
	x, y := in.stack.pop(), in.stack.peek()
	y.Add(&x, y)
	return nil, nil
}

func opMul(pc *uint64, in *Interpreter) ([]byte, error) {
	x, y := in.stack.pop(), in.stack.peek()
	y.Mul(&x, y)
	return nil, nil
}

func opSub(pc *uint64, in *Interpreter) ([]byte, error) {
	x, y := in.stack.pop(), in.stack.peek()
	y.Sub(&x, y)
	return nil, nil
}

func opDiv(pc *uint64, in *Interpreter) ([]byte, error) {
	x, y := in.stack.pop(), in.stack.peek()
	y.Div(&x, y)
	return nil, nil
}

func opSdiv(pc *uint64, in *Interpreter) ([]byte, error) {
	x, y := in.stack.pop(), in.stack.peek()
	y.SDiv(&x, y)
	return nil, nil
}

func opMod(pc *uint64, in *Interpreter) ([]byte, error) {
	x, y := in.stack.pop(), in.stack.peek()
	y.Mod(&x, y)
	return nil, nil
}

func opSmod(pc *uint64, in *Interpreter) ([]byte, error) {
	x, y := in.stack.pop(), in.stack.peek()
	y.SMod(&x, y)
	return nil, nil
}

func opAddmod(pc *uint64, in *Interpreter) ([]byte, error) {
	x, y, z := in.stack.pop(), in.stack.pop(), in.stack.peek()
	z.AddMod(&x, &y, z)
	return nil, nil
}

func opMulmod(pc *uint64, in *Interpreter) ([]byte, error) {
	x, y, z := in.stack.pop(), in.stack.pop(), in.stack.peek()
	z.MulMod(&x, &y, z)
	return nil, nil
}

func opExp(pc *uint64, in *Interpreter) ([]byte, error) {
	base, exponent := in.stack.pop(), in.stack.peek()
	exponent.Exp(&base, exponent)
	return nil, nil
}

func opSignExtend(pc *uint64, in *Interpreter) ([]byte, error) {
	back, num := in.stack.pop(), in.stack.peek()
	num.ExtendSign(num, &back)
	return nil, nil
}

func gasExp(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	exponent := stack.Back(1)
	if exponent.IsZero() {
		return params.ExpGas, nil
	}
	byteLen := uint64((exponent.BitLen() + 7) / 8)
	return params.ExpGas + byteLen*expByteGas(evm.Config.Rules), nil
}

func opLt(pc *uint64, in *Interpreter) ([]byte, error) {
	x, y := in.stack.pop(), in.stack.peek()
	if x.Lt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opGt(pc *uint64, in *Interpreter) ([]byte, error) {
	x, y := in.stack.pop(), in.stack.peek()
	if x.Gt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opSlt(pc *uint64, in *Interpreter) ([]byte, error) {
	x, y := in.stack.pop(), in.stack.peek()
	if x.Slt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opSgt(pc *uint64, in *Interpreter) ([]byte, error) {
	x, y := in.stack.pop(), in.stack.peek()
	if x.Sgt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opEq(pc *uint64, in *Interpreter) ([]byte, error) {
	x, y := in.stack.pop(), in.stack.peek()
	if x.Eq(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opIszero(pc *uint64, in *Interpreter) ([]byte, error) {
	x := in.stack.peek()
	if x.IsZero() {
		x.SetOne()
	} else {
		x.Clear()
	}
	return nil, nil
}

func opAnd(pc *uint64, in *Interpreter) ([]byte, error) {
	x, y := in.stack.pop(), in.stack.peek()
	y.And(&x, y)
	return nil, nil
}

func opOr(pc *uint64, in *Interpreter) ([]byte, error) {
	x, y := in.stack.pop(), in.stack.peek()
	y.Or(&x, y)
	return nil, nil
}

func opXor(pc *uint64, in *Interpreter) ([]byte, error) {
	x, y := in.stack.pop(), in.stack.peek()
	y.Xor(&x, y)
	return nil, nil
}

func opNot(pc *uint64, in *Interpreter) ([]byte, error) {
	x := in.stack.peek()
	x.Not(x)
	return nil, nil
}

func opByte(pc *uint64, in *Interpreter) ([]byte, error) {
	th, val := in.stack.pop(), in.stack.peek()
	val.Byte(&th)
	return nil, nil
}

func opSha3(pc *uint64, in *Interpreter) ([]byte, error) {
	offset, size := in.stack.pop(), in.stack.pop()
	data := in.memory.GetPtr(offset.Uint64(), size.Uint64())
	hash := crypto.Keccak256(data)
	var result uint256.Int
	result.SetBytes(hash)
	in.stack.push(&result)
	return nil, nil
}

func gasSha3(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	size := stack.Back(1)
	words := toWordSize(size.Uint64())
	return words * params.Sha3WordGas, nil
}

func opAddress(pc *uint64, in *Interpreter) ([]byte, error) {
	var v uint256.Int
	v.SetBytes(in.contract.Address.Bytes())
	in.stack.push(&v)
	return nil, nil
}

func opBalance(pc *uint64, in *Interpreter) ([]byte, error) {
	addrWord := in.stack.peek()
	addr := addressFromWord(addrWord)
	bal, err := in.evm.StateDB.GetBalance(addr)
	if err != nil {
		return nil, err
	}
	addrWord.SetFromBig(bal)
	return nil, nil
}

func gasBalance(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	if evm.Config.Rules.IsEIP150 {
		return params.SloadGasEIP150, nil
	}
	return 20, nil
}

func opOrigin(pc *uint64, in *Interpreter) ([]byte, error) {
	var v uint256.Int
	v.SetBytes(in.evm.Tx.Origin.Bytes())
	in.stack.push(&v)
	return nil, nil
}

func opCaller(pc *uint64, in *Interpreter) ([]byte, error) {
	var v uint256.Int
	v.SetBytes(in.contract.Caller.Bytes())
	in.stack.push(&v)
	return nil, nil
}

func opCallValue(pc *uint64, in *Interpreter) ([]byte, error) {
	var v uint256.Int
	v.SetFromBig(in.contract.Value)
	in.stack.push(&v)
	return nil, nil
}

func opCallDataLoad(pc *uint64, in *Interpreter) ([]byte, error) {
	x := in.stack.peek()
	data := getData(in.contract.Input, x.Uint64(), 32)
	x.SetBytes(data)
	return nil, nil
}

func opCallDataSize(pc *uint64, in *Interpreter) ([]byte, error) {
	in.stack.push(u256(uint64(len(in.contract.Input))))
	return nil, nil
}

func opCallDataCopy(pc *uint64, in *Interpreter) ([]byte, error) {
	memOffset, dataOffset, length := in.stack.pop(), in.stack.pop(), in.stack.pop()
	data := getData(in.contract.Input, dataOffset.Uint64(), length.Uint64())
	in.memory.Set(memOffset.Uint64(), length.Uint64(), data)
	return nil, nil
}

func gasCallDataCopy(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	words := toWordSize(stack.Back(2).Uint64())
	return words * params.CopyGas, nil
}

func opCodeSize(pc *uint64, in *Interpreter) ([]byte, error) {
	in.stack.push(u256(uint64(len(in.contract.Code))))
	return nil, nil
}

func opCodeCopy(pc *uint64, in *Interpreter) ([]byte, error) {
	memOffset, codeOffset, length := in.stack.pop(), in.stack.pop(), in.stack.pop()
	data := getData(in.contract.Code, codeOffset.Uint64(), length.Uint64())
	in.memory.Set(memOffset.Uint64(), length.Uint64(), data)
	return nil, nil
}

func gasCodeCopy(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	words := toWordSize(stack.Back(2).Uint64())
	return words * params.CopyGas, nil
}

func opGasprice(pc *uint64, in *Interpreter) ([]byte, error) {
	var v uint256.Int
	v.SetFromBig(in.evm.Tx.GasPrice)
	in.stack.push(&v)
	return nil, nil
}

func opExtCodeSize(pc *uint64, in *Interpreter) ([]byte, error) {
	x := in.stack.peek()
	addr := addressFromWord(x)
	size, err := in.evm.StateDB.GetCodeSize(addr)
	if err != nil {
		return nil, err
	}
	x.SetUint64(uint64(size))
	return nil, nil
}

func gasExtCodeSize(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	if evm.Config.Rules.IsEIP150 {
		return 700, nil
	}
	return 20, nil
}

func opExtCodeCopy(pc *uint64, in *Interpreter) ([]byte, error) {
	addrWord, memOffset, codeOffset, length := in.stack.pop(), in.stack.pop(), in.stack.pop(), in.stack.pop()
	addr := addressFromWord(&addrWord)
	code, err := in.evm.StateDB.GetCode(addr)
	if err != nil {
		return nil, err
	}
	data := getData(code, codeOffset.Uint64(), length.Uint64())
	in.memory.Set(memOffset.Uint64(), length.Uint64(), data)
	return nil, nil
}

func gasExtCodeCopy(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	base := uint64(20)
	if evm.Config.Rules.IsEIP150 {
		base = 700
	}
	words := toWordSize(stack.Back(3).Uint64())
	return base + words*params.CopyGas, nil
}

func opBlockhash(pc *uint64, in *Interpreter) ([]byte, error) {
	num := in.stack.peek()
	hash := in.evm.StateDB.GetBlockHash(num.Uint64())
	num.SetBytes(hash.Bytes())
	return nil, nil
}

func opCoinbase(pc *uint64, in *Interpreter) ([]byte, error) {
	var v uint256.Int
	v.SetBytes(in.evm.Block.Coinbase.Bytes())
	in.stack.push(&v)
	return nil, nil
}

func opTimestamp(pc *uint64, in *Interpreter) ([]byte, error) {
	in.stack.push(u256(in.evm.Block.Time))
	return nil, nil
}

func opNumber(pc *uint64, in *Interpreter) ([]byte, error) {
	var v uint256.Int
	v.SetFromBig(in.evm.Block.BlockNumber)
	in.stack.push(&v)
	return nil, nil
}

func opDifficulty(pc *uint64, in *Interpreter) ([]byte, error) {
	var v uint256.Int
	v.SetFromBig(in.evm.Block.Difficulty)
	in.stack.push(&v)
	return nil, nil
}

func opGasLimit(pc *uint64, in *Interpreter) ([]byte, error) {
	in.stack.push(u256(in.evm.Block.GasLimit))
	return nil, nil
}

func opPop(pc *uint64, in *Interpreter) ([]byte, error) {
	in.stack.pop()
	return nil, nil
}

func opMload(pc *uint64, in *Interpreter) ([]byte, error) {
	x := in.stack.peek()
	x.SetBytes(in.memory.GetPtr(x.Uint64(), 32))
	return nil, nil
}

func opMstore(pc *uint64, in *Interpreter) ([]byte, error) {
	offset, val := in.stack.pop(), in.stack.pop()
	in.memory.Set32(offset.Uint64(), &val)
	return nil, nil
}

func opMstore8(pc *uint64, in *Interpreter) ([]byte, error) {
	offset, val := in.stack.pop(), in.stack.pop()
	in.memory.SetByte(offset.Uint64(), byte(val.Uint64()))
	return nil, nil
}

func opSload(pc *uint64, in *Interpreter) ([]byte, error) {
	loc := in.stack.peek()
	key := types.BytesToHash(loc.Bytes())
	val, err := in.evm.StateDB.GetStorage(in.contract.Address, key)
	if err != nil {
		return nil, err
	}
	loc.SetBytes(val.Bytes())
	return nil, nil
}

func gasSload(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	return sloadGas(evm.Config.Rules), nil
}

func opSstore(pc *uint64, in *Interpreter) ([]byte, error) {
	loc, val := in.stack.pop(), in.stack.pop()
	key := types.BytesToHash(loc.Bytes())
	return nil, in.evm.StateDB.SaveStorage(in.contract.Address, key, types.BytesToHash(val.Bytes()))
}

// gasSstore implements the explicit set/reset/clear schedule (spec
// §4.4): writing a zero slot to non-zero costs SstoreSetGas; changing
// an existing non-zero slot costs SstoreResetGas; clearing a non-zero
// slot to zero additionally refunds SstoreRefundGas.
func gasSstore(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	loc := stack.Back(0)
	newVal := stack.Back(1)
	key := types.BytesToHash(loc.Bytes())
	current, err := evm.StateDB.GetStorage(contract.Address, key)
	if err != nil {
		return 0, err
	}
	newIsZero := newVal.IsZero()
	currentIsZero := current.IsZero()

	switch {
	case currentIsZero && !newIsZero:
		return params.SstoreSetGas, nil
	case !currentIsZero && newIsZero:
		evm.StateDB.AddRefund(params.SstoreRefundGas)
		return params.SstoreClearGas, nil
	default:
		return params.SstoreResetGas, nil
	}
}

func opJump(pc *uint64, in *Interpreter) ([]byte, error) {
	dest := in.stack.pop()
	destBig := dest.ToBig()
	if !in.contract.validJumpdest(destBig) {
		return nil, ErrInvalidJump
	}
	*pc = destBig.Uint64()
	return nil, nil
}

func opJumpi(pc *uint64, in *Interpreter) ([]byte, error) {
	dest, cond := in.stack.pop(), in.stack.pop()
	if !cond.IsZero() {
		destBig := dest.ToBig()
		if !in.contract.validJumpdest(destBig) {
			return nil, ErrInvalidJump
		}
		*pc = destBig.Uint64()
		return nil, nil
	}
	*pc++
	return nil, nil
}

func opPc(pc *uint64, in *Interpreter) ([]byte, error) {
	in.stack.push(u256(*pc))
	return nil, nil
}

func opMsize(pc *uint64, in *Interpreter) ([]byte, error) {
	in.stack.push(u256(uint64(in.memory.Len())))
	return nil, nil
}

func opGas(pc *uint64, in *Interpreter) ([]byte, error) {
	in.stack.push(u256(in.contract.Gas))
	return nil, nil
}

func opJumpdest(pc *uint64, in *Interpreter) ([]byte, error) { return nil, nil }

func makePush(size int) executionFunc {
	return func(pc *uint64, in *Interpreter) ([]byte, error) {
		start := *pc + 1
		data := getData(in.contract.Code, start, uint64(size))
		var v uint256.Int
		v.SetBytes(data)
		in.stack.push(&v)
		*pc += uint64(size)
		return nil, nil
	}
}

func makeDup(n int) executionFunc {
	return func(pc *uint64, in *Interpreter) ([]byte, error) {
		in.stack.dup(n)
		return nil, nil
	}
}

func makeSwap(n int) executionFunc {
	return func(pc *uint64, in *Interpreter) ([]byte, error) {
		in.stack.swap(n)
		return nil, nil
	}
}

func makeLog(n int) executionFunc {
	return func(pc *uint64, in *Interpreter) ([]byte, error) {
		offset, size := in.stack.pop(), in.stack.pop()
		topics := make([]types.Hash, n)
		for i := 0; i < n; i++ {
			t := in.stack.pop()
			topics[i] = types.BytesToHash(t.Bytes())
		}
		data := in.memory.GetCopy(offset.Uint64(), size.Uint64())
		in.evm.StateDB.AddLog(types.NewLog(in.contract.Address, topics, data))
		return nil, nil
	}
}

// makeGasLog returns LOGn's dynamic-gas function: a flat per-log charge
// plus n*LogTopicGas plus LogDataGas per byte logged.
func makeGasLog(n int) dynamicGasFunc {
	return func(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
		size := stack.Back(1).Uint64()
		return params.LogGas + uint64(n)*params.LogTopicGas + params.LogDataGas*size, nil
	}
}

func opReturn(pc *uint64, in *Interpreter) ([]byte, error) {
	offset, size := in.stack.pop(), in.stack.pop()
	return in.memory.GetCopy(offset.Uint64(), size.Uint64()), nil
}

func opRevert(pc *uint64, in *Interpreter) ([]byte, error) {
	offset, size := in.stack.pop(), in.stack.pop()
	ret := in.memory.GetCopy(offset.Uint64(), size.Uint64())
	return ret, ErrExecutionReverted
}

func opSelfdestruct(pc *uint64, in *Interpreter) ([]byte, error) {
	beneficiaryWord := in.stack.pop()
	beneficiary := addressFromWord(&beneficiaryWord)
	bal, err := in.evm.StateDB.GetBalance(in.contract.Address)
	if err != nil {
		return nil, err
	}
	if bal.Sign() != 0 {
		if err := in.evm.StateDB.AddBalance(beneficiary, bal); err != nil {
			return nil, err
		}
	}
	if err := in.evm.StateDB.DeleteAccount(in.contract.Address); err != nil {
		return nil, err
	}
	in.evm.StateDB.AddRefund(params.SelfdestructRefundGas)
	return nil, nil
}

func opCreate(pc *uint64, in *Interpreter) ([]byte, error) {
	value, offset, size := in.stack.pop(), in.stack.pop(), in.stack.pop()
	initcode := in.memory.GetCopy(offset.Uint64(), size.Uint64())

	gas := in.contract.Gas
	gas = callGas(in.evm.Config.Rules, gas, gas)
	in.contract.UseGas(gas)

	ret, addr, returnGas, err := in.evm.Create(in.contract.Address, initcode, gas, value.ToBig())
	in.contract.Gas += returnGas
	in.returnData = ret

	var result uint256.Int
	if err == nil {
		result.SetBytes(addr.Bytes())
	}
	in.stack.push(&result)
	if err == ErrExecutionReverted {
		return ret, nil
	}
	return nil, nil
}

func gasCreate(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	return params.CreateGas, nil
}

func opCall(pc *uint64, in *Interpreter) ([]byte, error) {
	gasWord := in.stack.pop()
	addrWord := in.stack.pop()
	value := in.stack.pop()
	argsOffset, argsSize := in.stack.pop(), in.stack.pop()
	retOffset, retSize := in.stack.pop(), in.stack.pop()

	addr := addressFromWord(&addrWord)
	args := in.memory.GetCopy(argsOffset.Uint64(), argsSize.Uint64())

	gas := callGas(in.evm.Config.Rules, in.contract.Gas, gasWord.Uint64())
	if gas > in.contract.Gas {
		gas = in.contract.Gas
	}
	in.contract.UseGas(gas)
	if value.Sign() != 0 {
		gas += params.CallStipend
	}

	ret, returnGas, err := in.evm.Call(in.contract.Address, addr, args, gas, value.ToBig())
	in.contract.Gas += returnGas
	in.returnData = ret
	in.memory.Set(retOffset.Uint64(), retSize.Uint64(), fitTo(ret, retSize.Uint64()))

	var result uint256.Int
	if err == nil {
		result.SetOne()
	}
	in.stack.push(&result)
	return nil, nil
}

func gasCall(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	value := stack.Back(2)
	addr := addressFromWord(stack.Back(1))
	gas := callBaseGas(evm.Config.Rules)
	if !value.IsZero() {
		gas += params.CallValueTransferGas
		exists, err := evm.StateDB.Exist(addr)
		if err != nil {
			return 0, err
		}
		if !exists {
			gas += params.CallNewAccountGas
		}
	}
	return gas, nil
}

func opCallCode(pc *uint64, in *Interpreter) ([]byte, error) {
	gasWord := in.stack.pop()
	addrWord := in.stack.pop()
	value := in.stack.pop()
	argsOffset, argsSize := in.stack.pop(), in.stack.pop()
	retOffset, retSize := in.stack.pop(), in.stack.pop()

	addr := addressFromWord(&addrWord)
	args := in.memory.GetCopy(argsOffset.Uint64(), argsSize.Uint64())

	gas := callGas(in.evm.Config.Rules, in.contract.Gas, gasWord.Uint64())
	if gas > in.contract.Gas {
		gas = in.contract.Gas
	}
	in.contract.UseGas(gas)
	if value.Sign() != 0 {
		gas += params.CallStipend
	}

	ret, returnGas, err := in.evm.CallCode(in.contract.Address, addr, args, gas, value.ToBig())
	in.contract.Gas += returnGas
	in.returnData = ret
	in.memory.Set(retOffset.Uint64(), retSize.Uint64(), fitTo(ret, retSize.Uint64()))

	var result uint256.Int
	if err == nil {
		result.SetOne()
	}
	in.stack.push(&result)
	return nil, nil
}

func gasCallCode(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	value := stack.Back(2)
	gas := callBaseGas(evm.Config.Rules)
	if !value.IsZero() {
		gas += params.CallValueTransferGas
	}
	return gas, nil
}

func opDelegateCall(pc *uint64, in *Interpreter) ([]byte, error) {
	gasWord := in.stack.pop()
	addrWord := in.stack.pop()
	argsOffset, argsSize := in.stack.pop(), in.stack.pop()
	retOffset, retSize := in.stack.pop(), in.stack.pop()

	addr := addressFromWord(&addrWord)
	args := in.memory.GetCopy(argsOffset.Uint64(), argsSize.Uint64())

	gas := callGas(in.evm.Config.Rules, in.contract.Gas, gasWord.Uint64())
	if gas > in.contract.Gas {
		gas = in.contract.Gas
	}
	in.contract.UseGas(gas)

	ret, returnGas, err := in.evm.DelegateCall(in.contract.Caller, in.contract.Value, addr, args, gas)
	in.contract.Gas += returnGas
	in.returnData = ret
	in.memory.Set(retOffset.Uint64(), retSize.Uint64(), fitTo(ret, retSize.Uint64()))

	var result uint256.Int
	if err == nil {
		result.SetOne()
	}
	in.stack.push(&result)
	return nil, nil
}

func gasDelegateCall(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	return callBaseGas(evm.Config.Rules), nil
}

// fitTo returns ret truncated or zero-padded to exactly size bytes, the
// shape CALL-family opcodes write into the caller's output region.
func fitTo(ret []byte, size uint64) []byte {
	out := make([]byte, size)
	copy(out, ret)
	return out
}

func gasSelfdestruct(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	gas := selfdestructGas(evm.Config.Rules)
	if evm.Config.Rules.IsEIP150 {
		beneficiaryWord := stack.Back(0)
		beneficiary := addressFromWord(beneficiaryWord)
		exists, err := evm.StateDB.Exist(beneficiary)
		if err != nil {
			return 0, err
		}
		if !exists {
			gas += params.CreateBySelfdestructGas
		}
	}
	return gas, nil
}

// addressFromWord extracts the low 20 bytes of a 256-bit stack word as
// an Address, per EVM convention for all address-valued opcodes.
func addressFromWord(w *uint256.Int) types.Address {
	b := w.Bytes20()
	return types.BytesToAddress(b[:])
}

// getData returns a size-length slice of data starting at offset,
// zero-padding past the end — the EVM's implicit-zero convention for
// CALLDATA*/CODE*/EXTCODE* reads past the end of their source buffer.
func getData(data []byte, offset, size uint64) []byte {
	out := make([]byte, size)
	if offset >= uint64(len(data)) {
		return out
	}
	end := offset + size
	if end > uint64(len(data)) {
		end = uint64(len(data))
	}
	copy(out, data[offset:end])
	return out
}
