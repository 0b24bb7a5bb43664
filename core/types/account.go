package types

import "math/big"

// Account is the per-address state stored in the world-state trie: a
// balance, a transaction counter, and pointers to two other tries/blobs
// (the account's storage trie root and its code hash).
type Account struct {
	Nonce       uint64
	Balance     *big.Int
	StorageRoot Hash
	CodeHash    Hash
}

// NewEmptyAccount returns an account with the values prescribed for an
// account that has never been touched: zero nonce and balance, the empty
// storage trie root, and the hash of zero-length code.
func NewEmptyAccount() *Account {
	return &Account{
		Nonce:       0,
		Balance:     new(big.Int),
		StorageRoot: EmptyRootHash,
		CodeHash:    EmptyCodeHash,
	}
}

// IsEmpty reports whether the account matches the yellow paper's EMPTY
// predicate: zero nonce, zero balance, and no code. Used by the post-EIP-161
// state-clearing rule; pre-EIP-161 chains never consult it.
func (a *Account) IsEmpty() bool {
	return a.Nonce == 0 && (a.Balance == nil || a.Balance.Sign() == 0) && a.CodeHash == EmptyCodeHash
}

// Copy returns a deep copy of the account.
func (a *Account) Copy() *Account {
	cp := *a
	if a.Balance != nil {
		cp.Balance = new(big.Int).Set(a.Balance)
	} else {
		cp.Balance = new(big.Int)
	}
	return &cp
}
