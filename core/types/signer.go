package types

import (
	"crypto/ecdsa"
	"errors"
	"math/big"

	"github.com/etcnode/core-engine/crypto"
)

// ErrInvalidChainID is returned when an EIP-155 transaction's V does not
// encode the expected chain ID.
var ErrInvalidChainID = errors.New("types: transaction chain id mismatch")

// ErrInvalidSig is returned when R, S or V fail the bounds spec §4.7
// requires (and, from Homestead, the low-S rule).
var ErrInvalidSig = errors.New("types: invalid transaction signature")

// Signer recovers the sender of, and produces signing hashes for, a
// transaction. EIP155Signer mixes the configured chain ID into V;
// HomesteadSigner and FrontierSigner are pre-EIP-155 variants that differ
// only in whether the low-S rule is enforced.
type Signer interface {
	Sender(tx *Transaction) (Address, error)
	SigningHash(tx *Transaction) Hash
	ChainID() *big.Int
}

type eip155Signer struct{ chainID *big.Int }

// NewEIP155Signer returns a Signer that requires EIP-155 replay protection
// for the given chain ID.
func NewEIP155Signer(chainID *big.Int) Signer { return eip155Signer{chainID: chainID} }

func (s eip155Signer) ChainID() *big.Int { return s.chainID }

func (s eip155Signer) SigningHash(tx *Transaction) Hash { return tx.SigningHash(s.chainID) }

func (s eip155Signer) Sender(tx *Transaction) (Address, error) {
	if tx.V == nil || tx.R == nil || tx.S == nil {
		return Address{}, ErrInvalidSig
	}
	rawV, chainID := crypto.NormalizeV(tx.V)
	if chainID.Sign() == 0 {
		return Address{}, ErrInvalidChainID
	}
	if chainID.Cmp(s.chainID) != 0 {
		return Address{}, ErrInvalidChainID
	}
	if tx.S.Cmp(secp256k1halfN) > 0 {
		return Address{}, ErrInvalidSig
	}
	hash := tx.SigningHash(s.chainID)
	sr := crypto.NewSigRecover()
	sig := make([]byte, 65)
	tx.R.FillBytes(sig[:32])
	tx.S.FillBytes(sig[32:64])
	sig[64] = rawV
	cs, err := crypto.ParseCompactSignature(sig)
	if err != nil {
		return Address{}, err
	}
	return sr.SignatureToAddress(hash[:], cs)
}

// homesteadSigner is the pre-EIP-155 signer with the Homestead low-S
// restriction; V is either 27 or 28.
type homesteadSigner struct{}

// NewHomesteadSigner returns the pre-EIP-155, low-S-enforcing Signer.
func NewHomesteadSigner() Signer { return homesteadSigner{} }

func (homesteadSigner) ChainID() *big.Int { return nil }

func (homesteadSigner) SigningHash(tx *Transaction) Hash { return tx.SigningHash(nil) }

func (homesteadSigner) Sender(tx *Transaction) (Address, error) {
	return recoverLegacy(tx, true)
}

// frontierSigner is the original pre-Homestead signer: no low-S
// restriction, so a signature with high S is still accepted.
type frontierSigner struct{}

// NewFrontierSigner returns the Frontier-era Signer (no low-S rule).
func NewFrontierSigner() Signer { return frontierSigner{} }

func (frontierSigner) ChainID() *big.Int { return nil }

func (frontierSigner) SigningHash(tx *Transaction) Hash { return tx.SigningHash(nil) }

func (frontierSigner) Sender(tx *Transaction) (Address, error) {
	return recoverLegacy(tx, false)
}

func recoverLegacy(tx *Transaction, requireLowS bool) (Address, error) {
	if tx.V == nil || tx.R == nil || tx.S == nil {
		return Address{}, ErrInvalidSig
	}
	vu := tx.V.Uint64()
	if vu != 27 && vu != 28 {
		return Address{}, ErrInvalidSig
	}
	if requireLowS && tx.S.Cmp(secp256k1halfN) > 0 {
		return Address{}, ErrInvalidSig
	}
	hash := tx.SigningHash(nil)
	sr := crypto.NewSigRecover()
	sig := make([]byte, 65)
	tx.R.FillBytes(sig[:32])
	tx.S.FillBytes(sig[32:64])
	sig[64] = byte(vu - 27)
	if !requireLowS {
		// SigRecover rejects high S, so the Frontier path recovers directly.
		if !crypto.ValidateSignatureValues(sig[64], tx.R, tx.S, false) {
			return Address{}, ErrInvalidSig
		}
		pub, err := crypto.SigToPub(hash[:], sig)
		if err != nil {
			return Address{}, ErrInvalidSig
		}
		return crypto.PubkeyToAddress(*pub), nil
	}
	cs, err := crypto.ParseCompactSignature(sig)
	if err != nil {
		return Address{}, err
	}
	return sr.SignatureToAddress(hash[:], cs)
}

// secp256k1N and its half are needed here (not re-exported by crypto) for
// the low-S rule; they mirror the constants crypto/secp256k1.go defines.
var secp256k1N, _ = new(big.Int).SetString("fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141", 16)
var secp256k1halfN = new(big.Int).Rsh(secp256k1N, 1)

// SignTx signs tx with prv using the given Signer and returns the signed
// copy.
func SignTx(tx *Transaction, s Signer, prv *ecdsa.PrivateKey) (*Transaction, error) {
	hash := s.SigningHash(tx)
	sig, err := crypto.Sign(hash[:], prv)
	if err != nil {
		return nil, err
	}
	cs, err := crypto.ParseCompactSignature(sig)
	if err != nil {
		return nil, err
	}
	r, sVal := cs.RBigInt(), cs.SBigInt()
	var v *big.Int
	if chainID := s.ChainID(); chainID != nil {
		v = crypto.EncodeVEIP155(cs.V, chainID)
	} else {
		v = big.NewInt(int64(crypto.EncodeVLegacy(cs.V)))
	}
	return tx.WithSignature(v, r, sVal), nil
}

// Sender recovers the sender of tx under the signer appropriate for
// block number, given the configured EIP-155 activation block and chain
// ID (spec §4.7, §8 scenario 2).
func Sender(tx *Transaction, eip155Block *big.Int, chainID *big.Int, blockNumber *big.Int) (Address, error) {
	if cached := tx.from.Load(); cached != nil {
		return cached.(Address), nil
	}
	var signer Signer
	if eip155Block != nil && blockNumber.Cmp(eip155Block) >= 0 {
		signer = NewEIP155Signer(chainID)
	} else {
		signer = NewHomesteadSigner()
	}
	addr, err := signer.Sender(tx)
	if err != nil {
		return Address{}, err
	}
	tx.from.Store(addr)
	return addr, nil
}
