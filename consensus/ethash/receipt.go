package ethash

import (
	"errors"

	"github.com/etcnode/core-engine/core/types"
)

// Receipt validation errors.
var (
	ErrInvalidReceiptsRoot = errors.New("ethash: receipts root mismatch")
	ErrInvalidLogsBloom    = errors.New("ethash: logs bloom mismatch")
	ErrInvalidGasUsed      = errors.New("ethash: header gas used does not match receipts")
)

// ValidateReceipts checks header's receipts root, logs bloom and gas
// used against the receipts produced by executing the block (spec §4.5
// post-execution checks, verified here as a standalone function of the
// header and receipt list so the ledger can reuse it without importing
// a validator type).
func ValidateReceipts(header *types.Header, receipts types.Receipts) error {
	items := make([]interface{}, len(receipts))
	for i, r := range receipts {
		items[i] = r
	}
	root := DeriveRoot(items)
	if root != header.ReceiptsRoot {
		return ErrInvalidReceiptsRoot
	}

	if receipts.Bloom() != header.LogsBloom {
		return ErrInvalidLogsBloom
	}

	if receipts.TotalGasUsed() != header.GasUsed {
		return ErrInvalidGasUsed
	}
	return nil
}
