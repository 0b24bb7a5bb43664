// Package crypto provides the hashing, signing and address-derivation
// primitives used by the consensus layer: Keccak-256 hashing and
// secp256k1 ECDSA signing/recovery.
package crypto

import (
	"golang.org/x/crypto/sha3"

	"github.com/etcnode/core-engine/core/types"
)

// Keccak256 returns the Keccak-256 hash of the concatenation of data.
func Keccak256(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

// Keccak256Hash returns Keccak256 as a types.Hash.
func Keccak256Hash(data ...[]byte) types.Hash {
	return types.BytesToHash(Keccak256(data...))
}

// Keccak512 returns the Keccak-512 hash of the concatenation of data,
// the inner hash of the Ethash PoW mix (spec §4.7).
func Keccak512(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak512()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}
