package state

import (
	"bytes"

	"github.com/etcnode/core-engine/core/types"
	"github.com/etcnode/core-engine/crypto"
	"github.com/etcnode/core-engine/rlp"
	"github.com/etcnode/core-engine/trie"
)

// stateObject is the in-memory overlay for one account: its account
// record plus whatever storage slots and code have been read or
// written this block.
type stateObject struct {
	address types.Address
	account types.Account

	code         []byte
	codeLoaded   bool
	dirtyStorage map[types.Hash]types.Hash

	storageTrie *trie.ResolvableTrie // lazily opened, rooted at account.StorageRoot

	selfDestructed bool
	newlyCreated   bool // true if CreateAccount ran this block (no prior trie entry)
}

func newStateObject(addr types.Address) *stateObject {
	return &stateObject{
		address:      addr,
		account:      *types.NewEmptyAccount(),
		dirtyStorage: make(map[types.Hash]types.Hash),
	}
}

func (o *stateObject) empty() bool {
	return o.account.Nonce == 0 &&
		(o.account.Balance == nil || o.account.Balance.Sign() == 0) &&
		o.account.CodeHash == types.EmptyCodeHash
}

// openStorageTrie resolves the account's storage trie against db, or
// returns an empty trie for an account with no storage yet.
func (o *stateObject) openStorageTrie(db *trie.NodeDatabase) (*trie.ResolvableTrie, error) {
	if o.storageTrie != nil {
		return o.storageTrie, nil
	}
	t, err := trie.NewResolvableTrie(o.account.StorageRoot, db)
	if err != nil {
		return nil, err
	}
	o.storageTrie = t
	return t, nil
}

// getCommittedStorage reads a slot from the account's persisted storage
// trie (bypassing the dirty overlay), trimming the RLP-encoded value
// back to a left-zero-padded 32-byte word.
func (o *stateObject) getCommittedStorage(db *trie.NodeDatabase, key types.Hash) (types.Hash, error) {
	t, err := o.openStorageTrie(db)
	if err != nil {
		return types.Hash{}, err
	}
	enc, err := t.Get(crypto.Keccak256(key.Bytes()))
	if err != nil {
		if err == trie.ErrNotFound {
			return types.Hash{}, nil
		}
		return types.Hash{}, err
	}
	var trimmed []byte
	if err := rlp.DecodeBytes(enc, &trimmed); err != nil {
		return types.Hash{}, err
	}
	return types.BytesToHash(trimmed), nil
}

// updateStorageTrie writes every dirty slot into the account's storage
// trie (deleting zero-valued slots) and returns the account's new
// storage root. It does not commit the trie to disk.
func (o *stateObject) updateStorageTrie(db *trie.NodeDatabase) (types.Hash, error) {
	if len(o.dirtyStorage) == 0 {
		if o.storageTrie == nil {
			return o.account.StorageRoot, nil
		}
		return o.storageTrie.Hash(), nil
	}

	t, err := o.openStorageTrie(db)
	if err != nil {
		return types.Hash{}, err
	}
	for key, value := range o.dirtyStorage {
		hashedKey := crypto.Keccak256(key.Bytes())
		if value.IsZero() {
			if err := t.Delete(hashedKey); err != nil {
				return types.Hash{}, err
			}
			continue
		}
		trimmed := bytes.TrimLeft(value.Bytes(), "\x00")
		enc, err := rlp.EncodeToBytes(trimmed)
		if err != nil {
			return types.Hash{}, err
		}
		if err := t.Put(hashedKey, enc); err != nil {
			return types.Hash{}, err
		}
	}
	return t.Hash(), nil
}

// commitStorageTrie stages the storage trie's dirty nodes in db and
// updates account.StorageRoot; call db.Commit to flush to disk.
func (o *stateObject) commitStorageTrie(db *trie.NodeDatabase) error {
	if o.storageTrie == nil || len(o.dirtyStorage) == 0 {
		return nil
	}
	root, err := o.storageTrie.Commit()
	if err != nil {
		return err
	}
	o.account.StorageRoot = root
	o.dirtyStorage = make(map[types.Hash]types.Hash)
	return nil
}

func (o *stateObject) deepCopy() *stateObject {
	cp := &stateObject{
		address:        o.address,
		account:        *o.account.Copy(),
		code:           append([]byte(nil), o.code...),
		codeLoaded:     o.codeLoaded,
		dirtyStorage:   make(map[types.Hash]types.Hash, len(o.dirtyStorage)),
		selfDestructed: o.selfDestructed,
		newlyCreated:   o.newlyCreated,
	}
	for k, v := range o.dirtyStorage {
		cp.dirtyStorage[k] = v
	}
	return cp
}
