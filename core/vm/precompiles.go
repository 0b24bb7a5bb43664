package vm

import (
	"crypto/sha256"
	"errors"
	"math/big"

	"github.com/etcnode/core-engine/core/types"
	"github.com/etcnode/core-engine/crypto"
	"golang.org/x/crypto/ripemd160"
)

// PrecompiledContract is the interface for the four native contracts
// present from Frontier onward (spec §4.4's "built-in contracts").
type PrecompiledContract interface {
	RequiredGas(input []byte) uint64
	Run(input []byte) ([]byte, error)
}

// PrecompiledContracts is the fixed address->contract map for this
// fork range (ECRECOVER through IDENTITY; no BN254/BLAKE2/KZG additions).
var PrecompiledContracts = map[types.Address]PrecompiledContract{
	types.BytesToAddress([]byte{1}): &ecrecover{},
	types.BytesToAddress([]byte{2}): &sha256hash{},
	types.BytesToAddress([]byte{3}): &ripemd160hash{},
	types.BytesToAddress([]byte{4}): &dataCopy{},
}

// IsPrecompiledContract reports whether addr names one of the four
// built-in contracts.
func IsPrecompiledContract(addr types.Address) bool {
	_, ok := PrecompiledContracts[addr]
	return ok
}

// RunPrecompiledContract executes the precompile at addr, deducting its
// required gas from gas and returning whatever remains.
func RunPrecompiledContract(addr types.Address, input []byte, gas uint64) ([]byte, uint64, error) {
	p, ok := PrecompiledContracts[addr]
	if !ok {
		return nil, gas, errors.New("vm: not a precompiled contract")
	}
	cost := p.RequiredGas(input)
	if gas < cost {
		return nil, 0, ErrOutOfGas
	}
	output, err := p.Run(input)
	return output, gas - cost, err
}

func wordCount(n int) uint64 { return (uint64(n) + 31) / 32 }

func padRight(data []byte, minLen int) []byte {
	if len(data) >= minLen {
		return data
	}
	padded := make([]byte, minLen)
	copy(padded, data)
	return padded
}

type ecrecover struct{}

func (c *ecrecover) RequiredGas(input []byte) uint64 { return 3000 }

func (c *ecrecover) Run(input []byte) ([]byte, error) {
	input = padRight(input, 128)

	hash := input[0:32]
	v := new(big.Int).SetBytes(input[32:64])
	r := new(big.Int).SetBytes(input[64:96])
	s := new(big.Int).SetBytes(input[96:128])

	if v.BitLen() > 8 {
		return nil, nil
	}
	vByte := byte(v.Uint64())
	if vByte != 27 && vByte != 28 {
		return nil, nil
	}
	if !crypto.ValidateSignatureValues(vByte-27, r, s, true) {
		return nil, nil
	}

	sig := make([]byte, 65)
	rBytes, sBytes := r.Bytes(), s.Bytes()
	copy(sig[32-len(rBytes):32], rBytes)
	copy(sig[64-len(sBytes):64], sBytes)
	sig[64] = vByte - 27

	pub, err := crypto.Ecrecover(hash, sig)
	if err != nil {
		return nil, nil
	}
	addr := crypto.Keccak256(pub[1:])

	result := make([]byte, 32)
	copy(result[12:], addr[12:])
	return result, nil
}

type sha256hash struct{}

func (c *sha256hash) RequiredGas(input []byte) uint64 { return 60 + 12*wordCount(len(input)) }

func (c *sha256hash) Run(input []byte) ([]byte, error) {
	h := sha256.Sum256(input)
	return h[:], nil
}

type ripemd160hash struct{}

func (c *ripemd160hash) RequiredGas(input []byte) uint64 { return 600 + 120*wordCount(len(input)) }

func (c *ripemd160hash) Run(input []byte) ([]byte, error) {
	h := ripemd160.New()
	h.Write(input)
	digest := h.Sum(nil)

	result := make([]byte, 32)
	copy(result[12:], digest)
	return result, nil
}

type dataCopy struct{}

func (c *dataCopy) RequiredGas(input []byte) uint64 { return 15 + 3*wordCount(len(input)) }

func (c *dataCopy) Run(input []byte) ([]byte, error) {
	out := make([]byte, len(input))
	copy(out, input)
	return out, nil
}
