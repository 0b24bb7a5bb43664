package core

import "errors"

// ErrGasPoolExhausted is returned when a transaction's gas limit would
// push cumulative block gas usage past the block's gas limit.
var ErrGasPoolExhausted = errors.New("core: gas pool exhausted")

// GasPool tracks the gas remaining in a block while its transactions
// are applied one by one (spec §4.5's "sum(gas_limits) <= block.gas_limit"
// check, enforced incrementally).
type GasPool uint64

// AddGas increases the pool by amount.
func (gp *GasPool) AddGas(amount uint64) *GasPool {
	*gp += GasPool(amount)
	return gp
}

// SubGas removes amount from the pool, failing if it would go negative.
func (gp *GasPool) SubGas(amount uint64) error {
	if uint64(*gp) < amount {
		return ErrGasPoolExhausted
	}
	*gp -= GasPool(amount)
	return nil
}

// Gas returns the amount of gas remaining in the pool.
func (gp *GasPool) Gas() uint64 { return uint64(*gp) }
