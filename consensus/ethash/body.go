package ethash

import (
	"errors"

	"github.com/etcnode/core-engine/core/types"
	"github.com/etcnode/core-engine/crypto"
	"github.com/etcnode/core-engine/rlp"
)

// Body validation errors.
var (
	ErrInvalidTxRoot       = errors.New("ethash: transactions root mismatch")
	ErrInvalidOmmersHash   = errors.New("ethash: ommers hash mismatch")
	ErrTooManyOmmers       = errors.New("ethash: more than two ommers")
	ErrDuplicateOmmer      = errors.New("ethash: duplicate ommer")
	ErrOmmerIsAncestor     = errors.New("ethash: ommer is an ancestor")
	ErrOmmerAlreadyIncluded = errors.New("ethash: ommer already included by a prior block")
	ErrOmmerUnknownParent  = errors.New("ethash: ommer parent is not part of the chain")
	ErrOmmerTooOld         = errors.New("ethash: ommer is more than six generations removed")
	ErrOmmerInvalidPoW     = errors.New("ethash: ommer fails PoW check")
)

// ChainReader is the minimal chain-lookup capability the body validator
// needs to check ommers: resolving ancestors of the block being
// validated and telling whether a candidate ommer hash was already used
// as a block or ommer somewhere in the last six generations.
type ChainReader interface {
	// GetHeader returns the header with the given hash and number, if
	// known.
	GetHeader(hash types.Hash, number uint64) (*types.Header, bool)
	// IsOmmerKnown reports whether hash has already appeared as a block
	// or as an ommer of some ancestor within the lookback window.
	IsOmmerKnown(hash types.Hash) bool
}

// maxOmmerDepth is the number of generations back an ommer's including
// block may reach to claim it (spec §4.7, matching the Yellow Paper's
// seven-block uncle window).
const maxOmmerDepth = 6

// ValidateBody checks that block's header commitments over its body
// match: the transactions root, and the ommers (at most two, distinct,
// not already claimed, each within six generations of block and with a
// known parent, each itself a valid PoW header). chain may be nil, in
// which case only the self-contained checks (root hashes, ommer count,
// distinctness, not the block's parent, generation depth, PoW) run.
func ValidateBody(block *types.Block, chain ChainReader) error {
	txRoot := deriveTxRoot(block.Transactions())
	if txRoot != block.Header().TransactionsRoot {
		return ErrInvalidTxRoot
	}

	ommers := block.Ommers()
	ommersHash := deriveOmmersHash(ommers)
	if ommersHash != block.Header().OmmersHash {
		return ErrInvalidOmmersHash
	}
	if len(ommers) > 2 {
		return ErrTooManyOmmers
	}

	seen := make(map[types.Hash]bool, len(ommers))
	for _, ommer := range ommers {
		h := ommer.Hash()
		if seen[h] {
			return ErrDuplicateOmmer
		}
		seen[h] = true

		if h == block.Header().ParentHash {
			return ErrOmmerIsAncestor
		}
		if chain != nil && chain.IsOmmerKnown(h) {
			return ErrOmmerAlreadyIncluded
		}

		if block.NumberU64() < ommer.Number.Uint64() ||
			block.NumberU64()-ommer.Number.Uint64() > maxOmmerDepth {
			return ErrOmmerTooOld
		}

		if chain != nil {
			if _, ok := chain.GetHeader(ommer.ParentHash, ommer.Number.Uint64()-1); !ok {
				return ErrOmmerUnknownParent
			}
		}

		if !VerifyPoW(ommer) {
			return ErrOmmerInvalidPoW
		}
	}
	return nil
}

func deriveTxRoot(txs types.Transactions) types.Hash {
	items := make([]interface{}, len(txs))
	for i, tx := range txs {
		items[i] = tx
	}
	return DeriveRoot(items)
}

func deriveOmmersHash(ommers []*types.Header) types.Hash {
	if len(ommers) == 0 {
		return types.EmptyOmmersHash
	}
	enc, err := rlp.EncodeToBytes(ommers)
	if err != nil {
		panic("ethash: ommers RLP encode: " + err.Error())
	}
	return crypto.Keccak256Hash(enc)
}
