package types

import (
	"math/big"
	"sync/atomic"

	"github.com/etcnode/core-engine/crypto"
	"github.com/etcnode/core-engine/rlp"
)

// Transaction is a signed message authorizing a state transition: a plain
// value transfer, a contract call, or a contract creation (To == nil).
// Pre-EIP-155 and post-EIP-155 transactions share this one struct; the
// ChainID method derives the chain ID from V when V indicates an EIP-155
// signature and returns nil otherwise.
type Transaction struct {
	AccountNonce uint64
	GasPrice     *big.Int
	GasLimit     uint64
	Recipient    *Address // nil means contract creation
	Amount       *big.Int
	Payload      []byte
	V            *big.Int
	R            *big.Int
	S            *big.Int

	hash atomic.Value
	from atomic.Value
}

// NewTransaction creates an unsigned value-transfer or call transaction.
func NewTransaction(nonce uint64, to Address, amount *big.Int, gasLimit uint64, gasPrice *big.Int, data []byte) *Transaction {
	return &Transaction{
		AccountNonce: nonce,
		Recipient:    &to,
		Amount:       amount,
		GasLimit:     gasLimit,
		GasPrice:     gasPrice,
		Payload:      data,
	}
}

// NewContractCreation creates an unsigned contract-creation transaction.
func NewContractCreation(nonce uint64, amount *big.Int, gasLimit uint64, gasPrice *big.Int, data []byte) *Transaction {
	return &Transaction{
		AccountNonce: nonce,
		Recipient:    nil,
		Amount:       amount,
		GasLimit:     gasLimit,
		GasPrice:     gasPrice,
		Payload:      data,
	}
}

// To returns the recipient address, or nil for contract creation.
func (tx *Transaction) To() *Address { return tx.Recipient }

// IsContractCreation reports whether tx creates a new contract.
func (tx *Transaction) IsContractCreation() bool { return tx.Recipient == nil }

// Nonce, GasPrice, Gas, Value, Data are plain accessors following the
// yellow paper's transaction field names.
func (tx *Transaction) Nonce() uint64      { return tx.AccountNonce }
func (tx *Transaction) Gas() uint64        { return tx.GasLimit }
func (tx *Transaction) Value() *big.Int    { return tx.Amount }
func (tx *Transaction) Data() []byte       { return tx.Payload }
func (tx *Transaction) Price() *big.Int    { return tx.GasPrice }

// Cost returns gasLimit*gasPrice + value, the up-front balance an account
// must hold to have the transaction considered for inclusion.
func (tx *Transaction) Cost() *big.Int {
	total := new(big.Int).Mul(tx.GasPrice, new(big.Int).SetUint64(tx.GasLimit))
	total.Add(total, tx.Amount)
	return total
}

// Hash returns kec256(RLP(tx)) over the signed fields, memoized.
func (tx *Transaction) Hash() Hash {
	if v := tx.hash.Load(); v != nil {
		return v.(Hash)
	}
	enc, err := rlp.EncodeToBytes(tx)
	if err != nil {
		panic("types: transaction RLP encode: " + err.Error())
	}
	h := crypto.Keccak256Hash(enc)
	tx.hash.Store(h)
	return h
}

// ChainID extracts the chain ID mixed into V by EIP-155. Returns nil for a
// pre-EIP-155 (Homestead/Frontier) signature, where V is 27 or 28.
func (tx *Transaction) ChainID() *big.Int {
	if tx.V == nil {
		return nil
	}
	v := new(big.Int).Set(tx.V)
	if v.Cmp(big.NewInt(35)) < 0 {
		return nil
	}
	// v = chainID*2 + 35 + {0,1}
	v.Sub(v, big.NewInt(35))
	chainID := new(big.Int).Rsh(v, 1)
	return chainID
}

// Protected reports whether the signature is EIP-155 replay protected.
func (tx *Transaction) Protected() bool { return tx.ChainID() != nil }

// SigningHash returns the hash that the ECDSA signature is computed over:
// the RLP of the transaction's unsigned fields, with the chain ID mixed in
// per EIP-155 when chainID is non-nil.
func (tx *Transaction) SigningHash(chainID *big.Int) Hash {
	if chainID != nil && chainID.Sign() != 0 {
		enc, err := rlp.EncodeToBytes([]interface{}{
			tx.AccountNonce, tx.GasPrice, tx.GasLimit, recipientRLP(tx.Recipient), tx.Amount, tx.Payload,
			chainID, uint(0), uint(0),
		})
		if err != nil {
			panic("types: signing hash encode: " + err.Error())
		}
		return crypto.Keccak256Hash(enc)
	}
	enc, err := rlp.EncodeToBytes([]interface{}{
		tx.AccountNonce, tx.GasPrice, tx.GasLimit, recipientRLP(tx.Recipient), tx.Amount, tx.Payload,
	})
	if err != nil {
		panic("types: signing hash encode: " + err.Error())
	}
	return crypto.Keccak256Hash(enc)
}

// recipientRLP yields the value []interface{} encoding needs in place of a
// possibly-nil *Address: a nil interface encodes as the RLP empty string,
// matching what the reflective encoder writes for a nil Recipient field.
func recipientRLP(to *Address) interface{} {
	if to == nil {
		return nil
	}
	return *to
}

// WithSignature returns a copy of tx with v, r, s set.
func (tx *Transaction) WithSignature(v, r, s *big.Int) *Transaction {
	cp := *tx
	cp.V, cp.R, cp.S = v, r, s
	cp.hash = atomic.Value{}
	cp.from = atomic.Value{}
	return &cp
}

// Transactions is a list of transactions, used to compute the block's
// transactions-root trie and for wire messages.
type Transactions []*Transaction

// Len returns the number of transactions in the list.
func (t Transactions) Len() int { return len(t) }
