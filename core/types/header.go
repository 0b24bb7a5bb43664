package types

import (
	"math/big"
	"sync/atomic"

	"github.com/etcnode/core-engine/crypto"
	"github.com/etcnode/core-engine/rlp"
)

// Header is the block header: the part of a block that carries the
// consensus-observable commitments (state root, transaction root, receipt
// root, difficulty, proof-of-work) and is hashed to identify the block.
type Header struct {
	ParentHash       Hash
	OmmersHash       Hash
	Beneficiary      Address
	StateRoot        Hash
	TransactionsRoot Hash
	ReceiptsRoot     Hash
	LogsBloom        Bloom
	Difficulty       *big.Int
	Number           *big.Int
	GasLimit         uint64
	GasUsed          uint64
	Timestamp        uint64
	ExtraData        []byte
	MixHash          Hash
	Nonce            BlockNonce

	hash atomic.Value // cached Hash, lazily computed
}

// EmptyOmmersHash is kec256(RLP([])), the OmmersHash of a block with no
// ommers.
var EmptyOmmersHash = func() Hash {
	enc, _ := rlp.EncodeToBytes([]Header{})
	return crypto.Keccak256Hash(enc)
}()

// Hash returns kec256(RLP(header)), memoized after first computation. The
// memoized value is never invalidated: callers must not mutate a Header
// after taking its Hash.
func (h *Header) Hash() Hash {
	if v := h.hash.Load(); v != nil {
		return v.(Hash)
	}
	// Header's only unexported field is the memoization cell itself, so
	// the reflective RLP encoder already sees exactly the consensus
	// fields in declaration order.
	enc, err := rlp.EncodeToBytes(h)
	if err != nil {
		panic("types: header RLP encode: " + err.Error())
	}
	hash := crypto.Keccak256Hash(enc)
	h.hash.Store(hash)
	return hash
}

// HashNoNonce returns kec256 of the header's RLP encoding with MixHash and
// Nonce omitted, the pre-image used by the Ethash PoW check (spec §4.7).
func (h *Header) HashNoNonce() Hash {
	enc, err := rlp.EncodeToBytes(struct {
		ParentHash       Hash
		OmmersHash       Hash
		Beneficiary      Address
		StateRoot        Hash
		TransactionsRoot Hash
		ReceiptsRoot     Hash
		LogsBloom        Bloom
		Difficulty       *big.Int
		Number           *big.Int
		GasLimit         uint64
		GasUsed          uint64
		Timestamp        uint64
		ExtraData        []byte
	}{
		h.ParentHash, h.OmmersHash, h.Beneficiary, h.StateRoot, h.TransactionsRoot,
		h.ReceiptsRoot, h.LogsBloom, h.Difficulty, h.Number, h.GasLimit, h.GasUsed,
		h.Timestamp, h.ExtraData,
	})
	if err != nil {
		panic("types: header RLP (no nonce) encode: " + err.Error())
	}
	return crypto.Keccak256Hash(enc)
}

// Copy returns a deep copy of the header, uncached.
func (h *Header) Copy() *Header {
	cp := &Header{
		ParentHash:       h.ParentHash,
		OmmersHash:       h.OmmersHash,
		Beneficiary:      h.Beneficiary,
		StateRoot:        h.StateRoot,
		TransactionsRoot: h.TransactionsRoot,
		ReceiptsRoot:     h.ReceiptsRoot,
		LogsBloom:        h.LogsBloom,
		GasLimit:         h.GasLimit,
		GasUsed:          h.GasUsed,
		Timestamp:        h.Timestamp,
		MixHash:          h.MixHash,
		Nonce:            h.Nonce,
	}
	if h.Difficulty != nil {
		cp.Difficulty = new(big.Int).Set(h.Difficulty)
	}
	if h.Number != nil {
		cp.Number = new(big.Int).Set(h.Number)
	}
	if len(h.ExtraData) > 0 {
		cp.ExtraData = append([]byte(nil), h.ExtraData...)
	}
	return cp
}
