package ethash

import (
	"math/big"

	"github.com/etcnode/core-engine/core/types"
	"github.com/etcnode/core-engine/crypto"
)

// two256 is 2**256, the modulus the PoW inequality divides by.
var two256 = new(big.Int).Lsh(big.NewInt(1), 256)

// VerifyPoW checks the simplified proof-of-work inequality spec §4.7
// permits in place of full Ethash DAG/dataset verification:
// kec256(kec512(kec256(header_without_nonce) || nonce_le) || mix_hash),
// read as a big-endian 256-bit integer, must be <= 2^256 / difficulty.
func VerifyPoW(header *types.Header) bool {
	if header.Difficulty == nil || header.Difficulty.Sign() <= 0 {
		return false
	}
	seedHash := header.HashNoNonce()
	// header.Nonce holds the nonce big-endian; the seed takes it little-endian.
	var nonce [8]byte
	for i := range nonce {
		nonce[i] = header.Nonce[len(header.Nonce)-1-i]
	}
	inner := crypto.Keccak512(seedHash[:], nonce[:])
	digest := crypto.Keccak256(inner, header.MixHash[:])

	result := new(big.Int).SetBytes(digest)
	target := new(big.Int).Div(two256, header.Difficulty)
	return result.Cmp(target) <= 0
}
