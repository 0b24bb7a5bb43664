package vm

import (
	"errors"
	"math/big"

	"github.com/etcnode/core-engine/core/types"
	"github.com/etcnode/core-engine/params"
)

// StateDB is the capability interface the EVM needs from the
// World-State Proxy (spec §4.3/§9's "polymorphism over EVM world-state
// and storage"). core/state.StateDB implements it; tests may supply a
// plain-map backend instead.
type StateDB interface {
	GetAccount(addr types.Address) (*types.Account, error)
	Exist(addr types.Address) (bool, error)
	Empty(addr types.Address) (bool, error)
	DeleteAccount(addr types.Address) error

	GetBalance(addr types.Address) (*big.Int, error)
	AddBalance(addr types.Address, amount *big.Int) error
	SubBalance(addr types.Address, amount *big.Int) error
	Transfer(from, to types.Address, value *big.Int) error

	GetNonce(addr types.Address) (uint64, error)
	SetNonce(addr types.Address, nonce uint64) error

	GetCode(addr types.Address) ([]byte, error)
	GetCodeHash(addr types.Address) (types.Hash, error)
	GetCodeSize(addr types.Address) (int, error)
	SaveCode(addr types.Address, code []byte) error

	GetStorage(addr types.Address, key types.Hash) (types.Hash, error)
	SaveStorage(addr types.Address, key, value types.Hash) error

	GetBlockHash(number uint64) types.Hash
	CreateAddress(creator types.Address) (types.Address, error)
	NewEmptyAccount(addr types.Address) error

	AddLog(log *types.Log)
	AddRefund(gas uint64)
	SubRefund(gas uint64)
	Refund() uint64

	Snapshot() int
	RevertToSnapshot(id int)
}

// BlockContext carries the per-block values several opcodes read
// (COINBASE, NUMBER, TIMESTAMP, DIFFICULTY, GASLIMIT, BLOCKHASH).
type BlockContext struct {
	Coinbase    types.Address
	BlockNumber *big.Int
	Time        uint64
	Difficulty  *big.Int
	GasLimit    uint64
}

// TxContext carries the per-transaction values ORIGIN and GASPRICE read.
type TxContext struct {
	Origin   types.Address
	GasPrice *big.Int
}

// Config selects the fork-gated behaviour (Rules) and chain ID an EVM
// instance runs with; it is computed once per block (spec §4.4's
// "Fork selection").
type Config struct {
	ChainID *big.Int
	Rules   params.Rules
}

// Errors surfaced by the interpreter (spec §7's "Execution" error kind);
// all of them cause the current frame to revert, never the enclosing
// call, except where explicitly noted.
var (
	ErrOutOfGas                 = errors.New("vm: out of gas")
	ErrInvalidOpcode            = errors.New("vm: invalid opcode")
	ErrInvalidJump              = errors.New("vm: invalid jump destination")
	ErrWriteProtection          = errors.New("vm: write protection")
	ErrInsufficientBalance = errors.New("vm: insufficient balance for transfer")
	ErrDepthLimit          = errors.New("vm: max call depth exceeded")
	ErrExecutionReverted   = errors.New("vm: execution reverted")
	ErrCodeStoreOutOfGas   = errors.New("vm: contract creation code storage out of gas")
)

// EVM is one execution engine bound to a StateDB and a block/fork
// context; it is reused across every transaction of a block (fresh
// TxContext per transaction) and recurses into itself for CALL/CREATE.
type EVM struct {
	StateDB StateDB
	Block   BlockContext
	Tx      TxContext
	Config  Config

	depth int
}

// NewEVM constructs an EVM bound to state for one block; call
// SetTxContext before each transaction.
func NewEVM(state StateDB, block BlockContext, cfg Config) *EVM {
	return &EVM{StateDB: state, Block: block, Config: cfg}
}

// SetTxContext must be called before executing each transaction.
func (evm *EVM) SetTxContext(tx TxContext) { evm.Tx = tx }

// Call executes the code at addr as a message call from caller,
// carrying value and input, metered against gas. On success it returns
// the call's return data and leftover gas; on failure it returns the
// error and whatever gas the frame had remaining (which the caller must
// still account for per spec §4.5's all-but-nonce-and-payment revert).
func (evm *EVM) Call(caller types.Address, addr types.Address, input []byte, gas uint64, value *big.Int) (ret []byte, leftOverGas uint64, err error) {
	if evm.depth > params.CallCreateDepthLimit {
		return nil, gas, ErrDepthLimit
	}
	if value.Sign() != 0 {
		bal, err := evm.StateDB.GetBalance(caller)
		if err != nil {
			return nil, gas, err
		}
		if bal.Cmp(value) < 0 {
			return nil, gas, ErrInsufficientBalance
		}
	}

	snapshot := evm.StateDB.Snapshot()

	exists, err := evm.StateDB.Exist(addr)
	if err != nil {
		return nil, gas, err
	}
	if !exists {
		if err := evm.StateDB.NewEmptyAccount(addr); err != nil {
			return nil, gas, err
		}
	}

	if value.Sign() != 0 {
		if err := evm.StateDB.Transfer(caller, addr, value); err != nil {
			evm.StateDB.RevertToSnapshot(snapshot)
			return nil, gas, err
		}
	}

	if IsPrecompiledContract(addr) {
		ret, gas, err = RunPrecompiledContract(addr, input, gas)
		if err != nil {
			evm.StateDB.RevertToSnapshot(snapshot)
		}
		return ret, gas, err
	}

	code, err := evm.StateDB.GetCode(addr)
	if err != nil {
		return nil, gas, err
	}
	if len(code) == 0 {
		return nil, gas, nil
	}

	codeHash, err := evm.StateDB.GetCodeHash(addr)
	if err != nil {
		return nil, gas, err
	}
	contract := NewContract(caller, addr, value, gas)
	contract.SetCode(codeHash, code)
	contract.Input = input

	ret, err = evm.run(contract, false)
	if err != nil {
		evm.StateDB.RevertToSnapshot(snapshot)
		if err != ErrExecutionReverted {
			contract.Gas = 0
		}
	}
	return ret, contract.Gas, err
}

// CallCode is like Call but executes addr's code in the caller's own
// storage context (the address/storage seen by SLOAD/SSTORE stays the
// caller's).
func (evm *EVM) CallCode(caller types.Address, addr types.Address, input []byte, gas uint64, value *big.Int) (ret []byte, leftOverGas uint64, err error) {
	if evm.depth > params.CallCreateDepthLimit {
		return nil, gas, ErrDepthLimit
	}
	if value.Sign() != 0 {
		bal, err := evm.StateDB.GetBalance(caller)
		if err != nil {
			return nil, gas, err
		}
		if bal.Cmp(value) < 0 {
			return nil, gas, ErrInsufficientBalance
		}
	}
	snapshot := evm.StateDB.Snapshot()

	if IsPrecompiledContract(addr) {
		ret, gas, err = RunPrecompiledContract(addr, input, gas)
		if err != nil {
			evm.StateDB.RevertToSnapshot(snapshot)
		}
		return ret, gas, err
	}

	code, err := evm.StateDB.GetCode(addr)
	if err != nil {
		return nil, gas, err
	}
	codeHash, err := evm.StateDB.GetCodeHash(addr)
	if err != nil {
		return nil, gas, err
	}
	contract := NewContract(caller, caller, value, gas)
	contract.SetCode(codeHash, code)
	contract.Input = input

	ret, err = evm.run(contract, false)
	if err != nil {
		evm.StateDB.RevertToSnapshot(snapshot)
		if err != ErrExecutionReverted {
			contract.Gas = 0
		}
	}
	return ret, contract.Gas, err
}

// DelegateCall is like CallCode but additionally inherits the parent
// frame's caller and value (no value transfer occurs) — Homestead's
// addition for library-style reuse (spec §4.4).
func (evm *EVM) DelegateCall(originalCaller types.Address, originalValue *big.Int, addr types.Address, input []byte, gas uint64) (ret []byte, leftOverGas uint64, err error) {
	if evm.depth > params.CallCreateDepthLimit {
		return nil, gas, ErrDepthLimit
	}
	snapshot := evm.StateDB.Snapshot()

	if IsPrecompiledContract(addr) {
		ret, gas, err = RunPrecompiledContract(addr, input, gas)
		if err != nil {
			evm.StateDB.RevertToSnapshot(snapshot)
		}
		return ret, gas, err
	}

	code, err := evm.StateDB.GetCode(addr)
	if err != nil {
		return nil, gas, err
	}
	codeHash, err := evm.StateDB.GetCodeHash(addr)
	if err != nil {
		return nil, gas, err
	}
	contract := NewContract(originalCaller, originalCaller, originalValue, gas)
	contract.SetCode(codeHash, code)
	contract.Input = input

	ret, err = evm.run(contract, false)
	if err != nil {
		evm.StateDB.RevertToSnapshot(snapshot)
		if err != ErrExecutionReverted {
			contract.Gas = 0
		}
	}
	return ret, contract.Gas, err
}

// Create runs initcode as a contract-creation frame, derives the new
// contract's address from creator's nonce, deposits the returned code
// if the frame finishes normally, and returns the new address.
func (evm *EVM) Create(creator types.Address, initcode []byte, gas uint64, value *big.Int) (ret []byte, contractAddr types.Address, leftOverGas uint64, err error) {
	if evm.depth > params.CallCreateDepthLimit {
		return nil, types.Address{}, gas, ErrDepthLimit
	}
	if value.Sign() != 0 {
		bal, err := evm.StateDB.GetBalance(creator)
		if err != nil {
			return nil, types.Address{}, gas, err
		}
		if bal.Cmp(value) < 0 {
			return nil, types.Address{}, gas, ErrInsufficientBalance
		}
	}

	snapshot := evm.StateDB.Snapshot()

	contractAddr, err = evm.StateDB.CreateAddress(creator)
	if err != nil {
		return nil, types.Address{}, gas, err
	}

	if value.Sign() != 0 {
		if err := evm.StateDB.Transfer(creator, contractAddr, value); err != nil {
			evm.StateDB.RevertToSnapshot(snapshot)
			return nil, contractAddr, gas, err
		}
	}

	contract := NewContract(creator, contractAddr, value, gas)
	contract.Code = initcode

	ret, err = evm.run(contract, false)

	if err == nil {
		createDataGas := uint64(len(ret)) * params.CreateDataGas
		if contract.UseGas(createDataGas) {
			if err := evm.StateDB.SaveCode(contractAddr, ret); err != nil {
				return nil, contractAddr, contract.Gas, err
			}
		} else if evm.Config.Rules.IsHomestead {
			// Homestead: OOG on code deposit reverts the whole creation
			// (spec §4.4's "contract-creation code-deposit failure on OOG").
			err = ErrCodeStoreOutOfGas
		}
	}

	if err != nil {
		evm.StateDB.RevertToSnapshot(snapshot)
		if err != ErrExecutionReverted {
			contract.Gas = 0
		}
		return nil, contractAddr, contract.Gas, err
	}
	return ret, contractAddr, contract.Gas, nil
}

// run drives the interpreter loop over contract, tracking recursion
// depth for the nested calls contract's own code may issue.
func (evm *EVM) run(contract *Contract, readOnly bool) ([]byte, error) {
	evm.depth++
	defer func() { evm.depth-- }()
	in := newInterpreter(evm, contract, readOnly)
	return in.run()
}
