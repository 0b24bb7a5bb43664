// Package ethash validates blocks against the PoW consensus rules: the
// header, body, receipts and each signed transaction (spec §4.7).
// Validators are pure functions of a header/body/receipt set and the
// active ChainConfig; they hold no chain state of their own.
package ethash

import (
	"errors"
	"math/big"

	"github.com/etcnode/core-engine/core/types"
	"github.com/etcnode/core-engine/params"
)

// Header validation errors.
var (
	ErrInvalidParentHash   = errors.New("ethash: parent hash mismatch")
	ErrInvalidNumber       = errors.New("ethash: block number is not parent+1")
	ErrInvalidTimestamp    = errors.New("ethash: timestamp not after parent")
	ErrInvalidGasLimit     = errors.New("ethash: gas limit out of bounds")
	ErrGasUsedExceedsLimit = errors.New("ethash: gas used exceeds gas limit")
	ErrExtraDataTooLong    = errors.New("ethash: extra data exceeds 32 bytes")
	ErrInvalidDifficulty   = errors.New("ethash: difficulty mismatch")
	ErrInvalidPoW          = errors.New("ethash: PoW check failed")
	ErrNilHeader           = errors.New("ethash: header is nil")
	ErrNilParent           = errors.New("ethash: parent header is nil")
)

// ValidateHeader checks header against parent and cfg: parent linkage,
// number continuity, timestamp ordering, gas-limit drift bound, gas
// usage, extra-data length, the difficulty formula (including the
// ECIP-1010 bomb pause/continue), and the simplified PoW inequality
// spec §4.7 permits in place of full dataset verification.
func ValidateHeader(header, parent *types.Header, cfg *params.ChainConfig) error {
	if header == nil {
		return ErrNilHeader
	}
	if parent == nil {
		return ErrNilParent
	}
	if header.ParentHash != parent.Hash() {
		return ErrInvalidParentHash
	}
	if header.Number == nil || parent.Number == nil {
		return ErrInvalidNumber
	}
	expected := new(big.Int).Add(parent.Number, big.NewInt(1))
	if header.Number.Cmp(expected) != 0 {
		return ErrInvalidNumber
	}
	if header.Timestamp <= parent.Timestamp {
		return ErrInvalidTimestamp
	}
	if !ValidateGasLimit(parent.GasLimit, header.GasLimit) {
		return ErrInvalidGasLimit
	}
	if header.GasUsed > header.GasLimit {
		return ErrGasUsedExceedsLimit
	}
	if len(header.ExtraData) > params.MaxExtraDataSize {
		return ErrExtraDataTooLong
	}

	wantDifficulty := cfg.CalcDifficulty(header.Timestamp, parent)
	if header.Difficulty == nil || header.Difficulty.Cmp(wantDifficulty) != 0 {
		return ErrInvalidDifficulty
	}

	if !VerifyPoW(header) {
		return ErrInvalidPoW
	}
	return nil
}

// ValidateGasLimit reports whether the gas-limit change from parent to
// child is within +-parentLimit/GasLimitBoundDivisor and at least
// params.MinGasLimit.
func ValidateGasLimit(parentLimit, headerLimit uint64) bool {
	if headerLimit < params.MinGasLimit {
		return false
	}
	bound := parentLimit / params.GasLimitBoundDivisor
	if bound == 0 {
		bound = 1
	}
	var diff uint64
	if headerLimit > parentLimit {
		diff = headerLimit - parentLimit
	} else {
		diff = parentLimit - headerLimit
	}
	return diff < bound
}
