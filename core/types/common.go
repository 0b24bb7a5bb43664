// Package types defines the core data structures of the Ethereum-Classic
// execution layer: hashes, addresses, accounts, headers, blocks,
// transactions, receipts and logs.
package types

import (
	"encoding/hex"
	"fmt"
)

const (
	HashLength    = 32
	AddressLength = 20
	BloomLength   = 256
	NonceLength   = 8
)

// Hash represents the 32-byte Keccak256 hash of arbitrary data.
type Hash [HashLength]byte

// Address represents the 20-byte identifier of an account.
type Address [AddressLength]byte

// Bloom represents a 2048-bit log bloom filter.
type Bloom [BloomLength]byte

// BlockNonce is the 8-byte PoW nonce.
type BlockNonce [NonceLength]byte

// EmptyRootHash is the root hash of an empty MPT: Keccak256(RLP("")).
var EmptyRootHash = HexToHash("56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")

// EmptyCodeHash is Keccak256 of the empty byte string, the code hash of
// an account with no code.
var EmptyCodeHash = HexToHash("c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470")

func fromHex(s string) []byte {
	if len(s) >= 2 && (s[0:2] == "0x" || s[0:2] == "0X") {
		s = s[2:]
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, _ := hex.DecodeString(s)
	return b
}

// BytesToHash converts b to a Hash, left-padding or truncating on the left
// if b is not exactly HashLength bytes.
func BytesToHash(b []byte) Hash {
	var h Hash
	h.SetBytes(b)
	return h
}

// HexToHash converts a hex string (with optional 0x prefix) to a Hash.
func HexToHash(s string) Hash { return BytesToHash(fromHex(s)) }

// Bytes returns the raw bytes of the hash.
func (h Hash) Bytes() []byte { return h[:] }

// Hex returns the 0x-prefixed hex encoding of the hash.
func (h Hash) Hex() string { return fmt.Sprintf("0x%x", h[:]) }

// String implements fmt.Stringer.
func (h Hash) String() string { return h.Hex() }

// SetBytes sets the hash from b, left-padding with zero bytes if b is
// shorter than HashLength and truncating from the left if longer.
func (h *Hash) SetBytes(b []byte) {
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
}

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool { return h == Hash{} }

// BytesToAddress converts b to an Address, left-padding or truncating on
// the left if b is not exactly AddressLength bytes.
func BytesToAddress(b []byte) Address {
	var a Address
	a.SetBytes(b)
	return a
}

// HexToAddress converts a hex string (with optional 0x prefix) to an Address.
func HexToAddress(s string) Address { return BytesToAddress(fromHex(s)) }

// Bytes returns the raw bytes of the address.
func (a Address) Bytes() []byte { return a[:] }

// Hex returns the 0x-prefixed hex encoding of the address.
func (a Address) Hex() string { return fmt.Sprintf("0x%x", a[:]) }

// String implements fmt.Stringer.
func (a Address) String() string { return a.Hex() }

// SetBytes sets the address from b, left-padding with zero bytes if
// necessary.
func (a *Address) SetBytes(b []byte) {
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
}

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool { return a == Address{} }

// BytesToBloom converts b to a Bloom, left-padding if necessary.
func BytesToBloom(b []byte) Bloom {
	var bl Bloom
	if len(b) > BloomLength {
		b = b[len(b)-BloomLength:]
	}
	copy(bl[BloomLength-len(b):], b)
	return bl
}

// Bytes returns the raw bytes of the bloom filter.
func (b Bloom) Bytes() []byte { return b[:] }

// OrWith ORs other into a copy of b and returns the result.
func (b Bloom) OrWith(other Bloom) Bloom {
	var out Bloom
	for i := range b {
		out[i] = b[i] | other[i]
	}
	return out
}

// Test reports whether every bit set in sub is also set in b.
func (b Bloom) Test(sub Bloom) bool {
	for i := range b {
		if b[i]&sub[i] != sub[i] {
			return false
		}
	}
	return true
}
