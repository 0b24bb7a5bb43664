package ethash

import (
	"errors"
	"math/big"

	"github.com/etcnode/core-engine/core/types"
	"github.com/etcnode/core-engine/params"
)

// Transaction validation errors.
var (
	ErrNegativeValue   = errors.New("ethash: negative transaction value")
	ErrOversizedData   = errors.New("ethash: transaction data exceeds the 32KB limit")
	ErrIntrinsicGas    = errors.New("ethash: intrinsic gas exceeds gas limit")
	ErrInvalidSignature = errors.New("ethash: invalid transaction signature")
)

// maxTxDataSize bounds payload length, matching the network's transaction
// propagation limit so no single transaction can bloat a block without
// bound (spec §4.7).
const maxTxDataSize = 32 * 1024

// ValidateTransaction checks one transaction's well-formedness and
// signature in isolation: non-negative value, bounded payload, a
// recoverable signature valid under the fork active at blockNumber, and
// intrinsic gas no greater than the transaction's own gas limit. It does
// not check nonce or balance against state; that is the ledger's job
// during execution.
func ValidateTransaction(tx *types.Transaction, cfg *params.ChainConfig, blockNumber *big.Int) error {
	if tx.Value() == nil || tx.Value().Sign() < 0 {
		return ErrNegativeValue
	}
	if len(tx.Data()) > maxTxDataSize {
		return ErrOversizedData
	}

	if _, err := types.Sender(tx, cfg.EIP155Block, cfg.ChainID, blockNumber); err != nil {
		return ErrInvalidSignature
	}

	homestead := cfg.IsHomestead(blockNumber)
	igas, err := IntrinsicGas(tx.Data(), tx.IsContractCreation(), homestead)
	if err != nil {
		return err
	}
	if tx.Gas() < igas {
		return ErrIntrinsicGas
	}
	return nil
}

// IntrinsicGas computes the up-front gas charge a transaction owes before
// any EVM execution: the flat per-transaction cost (higher for contract
// creation from Homestead on), plus a per-byte charge over the payload
// that differs for zero and non-zero bytes (spec §4.4/§4.7, Yellow Paper
// appendix G).
func IntrinsicGas(data []byte, isContractCreation, homestead bool) (uint64, error) {
	gas := params.TxGas
	if isContractCreation && homestead {
		gas = params.TxGasContractCreation
	}
	if len(data) == 0 {
		return gas, nil
	}

	var nz uint64
	for _, b := range data {
		if b != 0 {
			nz++
		}
	}
	zeroBytes := uint64(len(data)) - nz

	if (gasUint64Max-gas)/params.TxDataNonZeroGas < nz {
		return 0, ErrGasUintOverflow
	}
	gas += nz * params.TxDataNonZeroGas

	if (gasUint64Max-gas)/params.TxDataZeroGas < zeroBytes {
		return 0, ErrGasUintOverflow
	}
	gas += zeroBytes * params.TxDataZeroGas

	return gas, nil
}

const gasUint64Max = ^uint64(0)

// ErrGasUintOverflow is returned when the intrinsic gas calculation would
// overflow a uint64 (an adversarially large payload).
var ErrGasUintOverflow = errors.New("ethash: intrinsic gas computation overflowed")
