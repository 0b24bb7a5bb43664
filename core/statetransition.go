package core

import (
	"errors"
	"math/big"

	"github.com/etcnode/core-engine/consensus/ethash"
	"github.com/etcnode/core-engine/core/state"
	"github.com/etcnode/core-engine/core/types"
	"github.com/etcnode/core-engine/core/vm"
	"github.com/etcnode/core-engine/params"
)

// Transaction application errors (spec §4.5 step 3).
var (
	ErrNonceTooLow         = errors.New("core: nonce too low")
	ErrNonceTooHigh        = errors.New("core: nonce too high")
	ErrInsufficientBalance = errors.New("core: insufficient balance for transfer")
	ErrSenderNotRecovered  = errors.New("core: could not recover transaction sender")
)

// ApplyTransaction runs one signed transaction against statedb: it
// recovers the sender, validates nonce/balance/intrinsic gas, charges
// gas_limit*gas_price and bumps the nonce up front, runs the EVM,
// refunds unused gas (capped at gas_used/RefundQuotient) to the sender
// and pays gas_used*gas_price to the beneficiary, then returns a
// receipt describing the outcome (spec §4.5 step 3). On abnormal
// termination (any EVM error, including revert) everything except the
// nonce bump and the gas payment is rolled back — handled here by only
// ever mutating balances/nonce/state through the EVM's own snapshot
// discipline.
func ApplyTransaction(cfg *params.ChainConfig, statedb *state.StateDB, header *types.Header, tx *types.Transaction, gp *GasPool) (*types.Receipt, uint64, error) {
	from, err := types.Sender(tx, cfg.EIP155Block, cfg.ChainID, header.Number)
	if err != nil {
		return nil, 0, ErrSenderNotRecovered
	}

	if err := gp.SubGas(tx.Gas()); err != nil {
		return nil, 0, err
	}

	stateNonce, err := statedb.GetNonce(from)
	if err != nil {
		return nil, 0, err
	}
	if tx.Nonce() < stateNonce {
		gp.AddGas(tx.Gas())
		return nil, 0, ErrNonceTooLow
	}
	if tx.Nonce() > stateNonce {
		gp.AddGas(tx.Gas())
		return nil, 0, ErrNonceTooHigh
	}

	homestead := cfg.IsHomestead(header.Number)
	isCreate := tx.IsContractCreation()
	igas, err := ethash.IntrinsicGas(tx.Data(), isCreate, homestead)
	if err != nil {
		gp.AddGas(tx.Gas())
		return nil, 0, err
	}
	if tx.Gas() < igas {
		gp.AddGas(tx.Gas())
		return nil, 0, ErrIntrinsicGasTooLow
	}

	cost := tx.Cost()
	balance, err := statedb.GetBalance(from)
	if err != nil {
		return nil, 0, err
	}
	if balance.Cmp(cost) < 0 {
		gp.AddGas(tx.Gas())
		return nil, 0, ErrInsufficientBalance
	}

	// Charge gas_limit*gas_price up front and bump the nonce; these two
	// effects survive even an EVM revert (spec §4.5 step 3).
	gasCost := new(big.Int).Mul(tx.Price(), new(big.Int).SetUint64(tx.Gas()))
	if err := statedb.SubBalance(from, gasCost); err != nil {
		return nil, 0, err
	}
	if err := statedb.SetNonce(from, stateNonce+1); err != nil {
		return nil, 0, err
	}

	statedb.SetReadOnly(false)
	rules := cfg.RulesAt(header.Number)
	evm := vm.NewEVM(statedb, vm.BlockContext{
		Coinbase:    header.Beneficiary,
		BlockNumber: header.Number,
		Time:        header.Timestamp,
		Difficulty:  header.Difficulty,
		GasLimit:    header.GasLimit,
	}, vm.Config{ChainID: cfg.ChainID, Rules: rules})
	evm.SetTxContext(vm.TxContext{Origin: from, GasPrice: tx.Price()})

	gasLeft := tx.Gas() - igas

	var (
		execErr      error
		gasRemaining uint64
	)
	if isCreate {
		_, _, gasRemaining, execErr = evm.Create(from, tx.Data(), gasLeft, tx.Value())
	} else {
		_, gasRemaining, execErr = evm.Call(from, *tx.To(), tx.Data(), gasLeft, tx.Value())
	}

	gasUsed := tx.Gas() - gasRemaining

	refund := statedb.Refund()
	maxRefund := gasUsed / params.RefundQuotient
	if refund > maxRefund {
		refund = maxRefund
	}
	gasUsed -= refund

	remaining := tx.Gas() - gasUsed
	if remaining > 0 {
		refundAmount := new(big.Int).Mul(tx.Price(), new(big.Int).SetUint64(remaining))
		if err := statedb.AddBalance(from, refundAmount); err != nil {
			return nil, 0, err
		}
	}
	gp.AddGas(remaining)

	payment := new(big.Int).Mul(tx.Price(), new(big.Int).SetUint64(gasUsed))
	if err := statedb.AddBalance(header.Beneficiary, payment); err != nil {
		return nil, 0, err
	}

	root, err := statedb.PersistState()
	if err != nil {
		return nil, 0, err
	}

	logs := statedb.Logs(tx.Hash())
	receipt := types.NewReceipt(root, gasUsed, logs)

	_ = execErr // abnormal termination already unwound by the EVM's own snapshot revert; only the receipt's post-state reflects it
	return receipt, gasUsed, nil
}

// ErrIntrinsicGasTooLow is returned when a transaction's gas limit is
// below the gas its own fields require before any EVM execution.
var ErrIntrinsicGasTooLow = errors.New("core: intrinsic gas exceeds gas limit")
