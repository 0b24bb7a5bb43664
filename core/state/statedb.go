// Package state implements the World-State Proxy: an overlay of dirty
// accounts, code and storage sitting in front of the Merkle-Patricia
// account trie, with journal-based snapshot/revert so a failed call or
// EVM revert can unwind exactly its own changes (spec §4.3).
package state

import (
	"errors"
	"math/big"
	"sort"

	"github.com/etcnode/core-engine/core/types"
	"github.com/etcnode/core-engine/crypto"
	"github.com/etcnode/core-engine/rawdb"
	"github.com/etcnode/core-engine/rlp"
	"github.com/etcnode/core-engine/trie"
)

// ErrStateMismatch is returned by PersistIfHashMatches when the
// computed root disagrees with the caller's expectation.
var ErrStateMismatch = errors.New("state: resulting root does not match expected root")

// GetHashFunc resolves a block number to its hash, for the BLOCKHASH
// opcode; it must only answer for the 256 blocks below the current one
// (spec §4.3) and return the zero hash otherwise.
type GetHashFunc func(number uint64) types.Hash

// StateDB is the World-State Proxy: reads fall through the dirty
// overlay to the underlying account trie; writes land in the overlay
// until PersistState or PersistIfHashMatches is called.
type StateDB struct {
	db      *trie.NodeDatabase
	trie    *trie.ResolvableTrie
	objects map[types.Address]*stateObject

	journal *journal
	refund  uint64

	logs    map[types.Hash][]*types.Log
	logSize uint

	thash types.Hash // current transaction hash, for log attribution
	tidx  uint

	getHash  GetHashFunc
	readOnly bool
}

// New opens the world state rooted at root. db may be nil for a purely
// in-memory, non-persisted state (used by tests and by ledger dry-runs).
func New(root types.Hash, db *trie.NodeDatabase, getHash GetHashFunc) (*StateDB, error) {
	t, err := trie.NewResolvableTrie(root, db)
	if err != nil {
		return nil, err
	}
	return &StateDB{
		db:      db,
		trie:    t,
		objects: make(map[types.Address]*stateObject),
		journal: newJournal(),
		logs:    make(map[types.Hash][]*types.Log),
		getHash: getHash,
	}, nil
}

// SetReadOnly marks the proxy read-only: saves remain visible through
// the overlay for the rest of this execution but are never persisted
// (spec §4.3's "a proxy may be created read-only").
func (s *StateDB) SetReadOnly(ro bool) { s.readOnly = ro }

// Snapshot records a journal checkpoint; RevertToSnapshot undoes every
// change made since.
func (s *StateDB) Snapshot() int { return s.journal.snapshot() }

// RevertToSnapshot undoes every journalled change since id was taken.
func (s *StateDB) RevertToSnapshot(id int) { s.journal.revertToSnapshot(id, s) }

func (s *StateDB) getStateObject(addr types.Address) (*stateObject, error) {
	if obj, ok := s.objects[addr]; ok {
		return obj, nil
	}
	enc, err := s.trie.Get(crypto.Keccak256(addr.Bytes()))
	if err != nil {
		if err == trie.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	var acc types.Account
	if err := rlp.DecodeBytes(enc, &acc); err != nil {
		return nil, err
	}
	obj := &stateObject{address: addr, account: acc, dirtyStorage: make(map[types.Hash]types.Hash)}
	s.objects[addr] = obj
	return obj, nil
}

func (s *StateDB) getOrNewStateObject(addr types.Address) (*stateObject, error) {
	obj, err := s.getStateObject(addr)
	if err != nil {
		return nil, err
	}
	if obj != nil {
		return obj, nil
	}
	return s.createStateObject(addr), nil
}

func (s *StateDB) createStateObject(addr types.Address) *stateObject {
	prev := s.objects[addr]
	s.journal.append(createAccountChange{addr: addr, prev: prev})
	obj := newStateObject(addr)
	obj.newlyCreated = true
	s.objects[addr] = obj
	return obj
}

// GetAccount returns a copy of addr's account record, or an empty
// account if it does not exist.
func (s *StateDB) GetAccount(addr types.Address) (*types.Account, error) {
	obj, err := s.getStateObject(addr)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return types.NewEmptyAccount(), nil
	}
	return obj.account.Copy(), nil
}

// SaveAccount overwrites the nonce and balance of addr's account record in
// the overlay; acc's code hash and storage root are not applied.
func (s *StateDB) SaveAccount(addr types.Address, acc *types.Account) error {
	obj, err := s.getOrNewStateObject(addr)
	if err != nil {
		return err
	}
	s.journal.append(balanceChange{addr: addr, prev: obj.account.Balance})
	s.journal.append(nonceChange{addr: addr, prev: obj.account.Nonce})
	obj.account.Nonce = acc.Nonce
	obj.account.Balance = new(big.Int).Set(acc.Balance)
	return nil
}

// DeleteAccount marks addr as self-destructed; it disappears from the
// next PersistState call.
func (s *StateDB) DeleteAccount(addr types.Address) error {
	obj, err := s.getOrNewStateObject(addr)
	if err != nil {
		return err
	}
	s.journal.append(selfDestructChange{addr: addr, prevDestructed: obj.selfDestructed, prevBalance: obj.account.Balance})
	obj.selfDestructed = true
	obj.account.Balance = new(big.Int)
	return nil
}

// Exist reports whether addr has any state (account, code or storage).
func (s *StateDB) Exist(addr types.Address) (bool, error) {
	obj, err := s.getStateObject(addr)
	if err != nil {
		return false, err
	}
	return obj != nil && !obj.selfDestructed, nil
}

// Empty reports whether addr is EMPTY per the yellow paper (zero nonce,
// zero balance, no code).
func (s *StateDB) Empty(addr types.Address) (bool, error) {
	obj, err := s.getStateObject(addr)
	if err != nil {
		return false, err
	}
	return obj == nil || obj.empty(), nil
}

// GetBalance returns addr's balance, or zero if the account doesn't exist.
func (s *StateDB) GetBalance(addr types.Address) (*big.Int, error) {
	obj, err := s.getStateObject(addr)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return new(big.Int), nil
	}
	return new(big.Int).Set(obj.account.Balance), nil
}

// AddBalance credits addr with amount, creating the account if needed.
func (s *StateDB) AddBalance(addr types.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		_, err := s.getOrNewStateObject(addr)
		return err
	}
	obj, err := s.getOrNewStateObject(addr)
	if err != nil {
		return err
	}
	s.journal.append(balanceChange{addr: addr, prev: new(big.Int).Set(obj.account.Balance)})
	obj.account.Balance = new(big.Int).Add(obj.account.Balance, amount)
	return nil
}

// SubBalance debits addr by amount.
func (s *StateDB) SubBalance(addr types.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	obj, err := s.getOrNewStateObject(addr)
	if err != nil {
		return err
	}
	s.journal.append(balanceChange{addr: addr, prev: new(big.Int).Set(obj.account.Balance)})
	obj.account.Balance = new(big.Int).Sub(obj.account.Balance, amount)
	return nil
}

// Transfer moves value from "from" to "to". Callers must have already
// validated that "from" can afford it.
func (s *StateDB) Transfer(from, to types.Address, value *big.Int) error {
	if err := s.SubBalance(from, value); err != nil {
		return err
	}
	return s.AddBalance(to, value)
}

// GetNonce returns addr's nonce.
func (s *StateDB) GetNonce(addr types.Address) (uint64, error) {
	obj, err := s.getStateObject(addr)
	if err != nil {
		return 0, err
	}
	if obj == nil {
		return 0, nil
	}
	return obj.account.Nonce, nil
}

// SetNonce overwrites addr's nonce.
func (s *StateDB) SetNonce(addr types.Address, nonce uint64) error {
	obj, err := s.getOrNewStateObject(addr)
	if err != nil {
		return err
	}
	s.journal.append(nonceChange{addr: addr, prev: obj.account.Nonce})
	obj.account.Nonce = nonce
	return nil
}

// GetCode returns addr's contract code.
func (s *StateDB) GetCode(addr types.Address) ([]byte, error) {
	obj, err := s.getStateObject(addr)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, nil
	}
	if !obj.codeLoaded && obj.code == nil && obj.account.CodeHash != types.EmptyCodeHash && s.db != nil {
		code, err := s.loadCode(obj.account.CodeHash)
		if err != nil {
			return nil, err
		}
		obj.code = code
		obj.codeLoaded = true
	}
	return obj.code, nil
}

// GetCodeHash returns addr's code hash.
func (s *StateDB) GetCodeHash(addr types.Address) (types.Hash, error) {
	obj, err := s.getStateObject(addr)
	if err != nil {
		return types.Hash{}, err
	}
	if obj == nil {
		return types.Hash{}, nil
	}
	return obj.account.CodeHash, nil
}

// GetCodeSize returns the length of addr's contract code.
func (s *StateDB) GetCodeSize(addr types.Address) (int, error) {
	code, err := s.GetCode(addr)
	if err != nil {
		return 0, err
	}
	return len(code), nil
}

// SaveCode sets addr's contract code.
func (s *StateDB) SaveCode(addr types.Address, code []byte) error {
	obj, err := s.getOrNewStateObject(addr)
	if err != nil {
		return err
	}
	s.journal.append(codeChange{addr: addr, prevCode: obj.code, prevHash: obj.account.CodeHash})
	obj.code = code
	obj.codeLoaded = true
	if len(code) == 0 {
		obj.account.CodeHash = types.EmptyCodeHash
	} else {
		obj.account.CodeHash = crypto.Keccak256Hash(code)
	}
	return nil
}

// GetStorage loads the value at key in addr's storage, overlay first
// then falling through to the persisted storage trie.
func (s *StateDB) GetStorage(addr types.Address, key types.Hash) (types.Hash, error) {
	obj, err := s.getStateObject(addr)
	if err != nil {
		return types.Hash{}, err
	}
	if obj == nil {
		return types.Hash{}, nil
	}
	if v, ok := obj.dirtyStorage[key]; ok {
		return v, nil
	}
	return obj.getCommittedStorage(s.db, key)
}

// SaveStorage writes a single slot of addr's storage.
func (s *StateDB) SaveStorage(addr types.Address, key, value types.Hash) error {
	obj, err := s.getOrNewStateObject(addr)
	if err != nil {
		return err
	}
	prev, existed := obj.dirtyStorage[key]
	if !existed {
		prev, err = obj.getCommittedStorage(s.db, key)
		if err != nil {
			return err
		}
	}
	s.journal.append(storageChange{addr: addr, key: key, prev: prev, prevExists: existed})
	obj.dirtyStorage[key] = value
	return nil
}

// GetBlockHash resolves a historical block's hash for the BLOCKHASH
// opcode. Only valid for the 256 blocks below the current one; callers
// outside that window get the zero hash from getHash itself.
func (s *StateDB) GetBlockHash(number uint64) types.Hash {
	if s.getHash == nil {
		return types.Hash{}
	}
	return s.getHash(number)
}

// CreateAddress derives a new contract address from creator's current
// nonce, increments creator's nonce, and clears any pre-existing code
// and storage at that address while retaining its balance (spec §4.3 —
// a prior balance can exist if value was sent to the address before
// it was a contract).
func (s *StateDB) CreateAddress(creator types.Address) (types.Address, error) {
	nonce, err := s.GetNonce(creator)
	if err != nil {
		return types.Address{}, err
	}
	if err := s.SetNonce(creator, nonce+1); err != nil {
		return types.Address{}, err
	}
	addr := crypto.CreateAddress(creator, nonce)

	existing, err := s.getStateObject(addr)
	if err != nil {
		return types.Address{}, err
	}
	if existing != nil {
		balance := new(big.Int).Set(existing.account.Balance)
		s.createStateObject(addr)
		obj := s.objects[addr]
		obj.account.Balance = balance
	} else {
		s.createStateObject(addr)
	}
	return addr, nil
}

// NewEmptyAccount materialises an empty account at addr (used when a
// CALL or value-transfer targets a previously unseen address).
func (s *StateDB) NewEmptyAccount(addr types.Address) error {
	_, err := s.getOrNewStateObject(addr)
	return err
}

// AddLog appends a log entry, attributing it to the current
// transaction context set by SetTxContext.
func (s *StateDB) AddLog(log *types.Log) {
	log.SetContext(0, types.Hash{}, s.thash, s.tidx, s.logSize)
	s.logs[s.thash] = append(s.logs[s.thash], log)
	s.logSize++
	s.journal.append(logChange{txHash: s.thash, prevLen: len(s.logs[s.thash]) - 1})
}

// SetTxContext records which transaction (by hash and index within the
// block) subsequent AddLog calls belong to.
func (s *StateDB) SetTxContext(hash types.Hash, index uint) {
	s.thash = hash
	s.tidx = index
}

// Logs returns every log emitted by txHash.
func (s *StateDB) Logs(txHash types.Hash) []*types.Log { return s.logs[txHash] }

// AllLogs returns every log emitted across all transactions processed
// by this StateDB, in emission order grouped by transaction.
func (s *StateDB) AllLogs() []*types.Log {
	var all []*types.Log
	for _, logs := range s.logs {
		all = append(all, logs...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Index() < all[j].Index() })
	return all
}

// AddRefund increases the gas-refund counter (e.g. SSTORE clearing a slot).
func (s *StateDB) AddRefund(gas uint64) {
	s.journal.append(refundChange{prev: s.refund})
	s.refund += gas
}

// SubRefund decreases the gas-refund counter (e.g. re-setting a
// previously cleared slot).
func (s *StateDB) SubRefund(gas uint64) {
	s.journal.append(refundChange{prev: s.refund})
	if gas > s.refund {
		s.refund = 0
		return
	}
	s.refund -= gas
}

// Refund returns the current gas-refund counter.
func (s *StateDB) Refund() uint64 { return s.refund }

func (s *StateDB) loadCode(hash types.Hash) ([]byte, error) {
	disk := s.db.Disk()
	if disk == nil {
		return nil, nil
	}
	code, err := rawdb.ReadCode(disk, hash)
	if err != nil {
		return nil, nil
	}
	return code, nil
}
