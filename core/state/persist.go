package state

import (
	"math/big"
	"sort"

	"github.com/etcnode/core-engine/core/types"
	"github.com/etcnode/core-engine/crypto"
	"github.com/etcnode/core-engine/rawdb"
	"github.com/etcnode/core-engine/rlp"
)

// accountRLP is the consensus encoding of an account:
// [nonce, balance, storageRoot, codeHash].
type accountRLP struct {
	Nonce       uint64
	Balance     *big.Int
	StorageRoot types.Hash
	CodeHash    types.Hash
}

// buildRoot folds every dirty account into the account trie (and every
// dirty storage slot into its per-account storage trie) and returns the
// resulting root. It does not write anything to the node database or
// code store; call flush afterwards to do that.
func (s *StateDB) buildRoot() (types.Hash, error) {
	addrs := make([]types.Address, 0, len(s.objects))
	for addr := range s.objects {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i].Hex() < addrs[j].Hex() })

	for _, addr := range addrs {
		obj := s.objects[addr]

		if obj.selfDestructed {
			if err := s.trie.Delete(crypto.Keccak256(addr.Bytes())); err != nil {
				return types.Hash{}, err
			}
			continue
		}

		storageRoot, err := obj.updateStorageTrie(s.db)
		if err != nil {
			return types.Hash{}, err
		}
		obj.account.StorageRoot = storageRoot

		enc, err := rlp.EncodeToBytes(accountRLP{
			Nonce:       obj.account.Nonce,
			Balance:     obj.account.Balance,
			StorageRoot: obj.account.StorageRoot,
			CodeHash:    obj.account.CodeHash,
		})
		if err != nil {
			return types.Hash{}, err
		}
		if err := s.trie.Put(crypto.Keccak256(addr.Bytes()), enc); err != nil {
			return types.Hash{}, err
		}
	}

	return s.trie.Hash(), nil
}

// flush persists the storage tries, contract code and account trie
// staged by buildRoot to the node database, then clears the overlay.
func (s *StateDB) flush() (types.Hash, error) {
	for _, obj := range s.objects {
		if obj.selfDestructed {
			continue
		}
		if s.db != nil && obj.codeLoaded && len(obj.code) > 0 {
			if err := rawdb.WriteCode(s.db.Disk(), obj.account.CodeHash, obj.code); err != nil {
				return types.Hash{}, err
			}
		}
		if err := obj.commitStorageTrie(s.db); err != nil {
			return types.Hash{}, err
		}
	}

	root, err := s.trie.Commit()
	if err != nil {
		return types.Hash{}, err
	}
	if s.db != nil {
		if err := s.db.Commit(); err != nil {
			return types.Hash{}, err
		}
	}

	s.objects = make(map[types.Address]*stateObject)
	s.journal = newJournal()
	return root, nil
}

// PersistState writes every dirty account (and its storage and code)
// into the underlying account trie and node database, and returns the
// new state root. Self-destructed accounts are removed from the trie
// entirely. A read-only proxy computes the same root without writing
// anything to disk (spec §4.3).
func (s *StateDB) PersistState() (types.Hash, error) {
	if _, err := s.buildRoot(); err != nil {
		return types.Hash{}, err
	}
	if s.readOnly {
		return s.trie.Hash(), nil
	}
	return s.flush()
}

// PersistIfHashMatches folds the overlay into the trie and compares the
// resulting root against expected before touching disk: on a mismatch
// nothing is written and ErrStateMismatch is returned, leaving the
// caller free to discard this StateDB (spec §4.3).
func (s *StateDB) PersistIfHashMatches(expected types.Hash) (types.Hash, error) {
	root, err := s.buildRoot()
	if err != nil {
		return types.Hash{}, err
	}
	if root != expected {
		return types.Hash{}, ErrStateMismatch
	}
	if s.readOnly {
		return root, nil
	}
	return s.flush()
}
