package crypto

import (
	"math/big"

	"github.com/etcnode/core-engine/core/types"
	"github.com/etcnode/core-engine/rlp"
)

// CreateAddress derives the address of a contract created by `creator` at
// account nonce `nonce` (the nonce value *before* the creation-triggered
// increment): kec256(rlp([creator, nonce]))[12:32].
func CreateAddress(creator types.Address, nonce uint64) types.Address {
	enc, err := rlp.EncodeToBytes([]interface{}{creator, new(big.Int).SetUint64(nonce)})
	if err != nil {
		panic("crypto: CreateAddress RLP encode: " + err.Error())
	}
	return types.BytesToAddress(Keccak256(enc)[12:])
}
