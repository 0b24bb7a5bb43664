package state

import (
	"math/big"

	"github.com/etcnode/core-engine/core/types"
)

// journalEntry is a revertible state change recorded by the StateDB,
// letting a failed call or an EVM revert unwind exactly the changes it
// made without touching anything older.
type journalEntry interface {
	revert(s *StateDB)
}

type journal struct {
	entries   []journalEntry
	snapshots map[int]int
	nextID    int
}

func newJournal() *journal {
	return &journal{snapshots: make(map[int]int)}
}

func (j *journal) append(entry journalEntry) { j.entries = append(j.entries, entry) }

func (j *journal) snapshot() int {
	id := j.nextID
	j.nextID++
	j.snapshots[id] = len(j.entries)
	return id
}

func (j *journal) revertToSnapshot(id int, s *StateDB) {
	idx, ok := j.snapshots[id]
	if !ok {
		return
	}
	for i := len(j.entries) - 1; i >= idx; i-- {
		j.entries[i].revert(s)
	}
	j.entries = j.entries[:idx]
	for sid := range j.snapshots {
		if sid >= id {
			delete(j.snapshots, sid)
		}
	}
}

type createAccountChange struct {
	addr types.Address
	prev *stateObject
}

func (ch createAccountChange) revert(s *StateDB) {
	if ch.prev == nil {
		delete(s.objects, ch.addr)
	} else {
		s.objects[ch.addr] = ch.prev
	}
}

type balanceChange struct {
	addr types.Address
	prev *big.Int
}

func (ch balanceChange) revert(s *StateDB) {
	if obj := s.objects[ch.addr]; obj != nil {
		obj.account.Balance = ch.prev
	}
}

type nonceChange struct {
	addr types.Address
	prev uint64
}

func (ch nonceChange) revert(s *StateDB) {
	if obj := s.objects[ch.addr]; obj != nil {
		obj.account.Nonce = ch.prev
	}
}

type codeChange struct {
	addr     types.Address
	prevCode []byte
	prevHash types.Hash
}

func (ch codeChange) revert(s *StateDB) {
	if obj := s.objects[ch.addr]; obj != nil {
		obj.code = ch.prevCode
		obj.account.CodeHash = ch.prevHash
	}
}

type storageChange struct {
	addr       types.Address
	key        types.Hash
	prev       types.Hash
	prevExists bool
}

func (ch storageChange) revert(s *StateDB) {
	obj := s.objects[ch.addr]
	if obj == nil {
		return
	}
	if ch.prevExists {
		obj.dirtyStorage[ch.key] = ch.prev
	} else {
		delete(obj.dirtyStorage, ch.key)
	}
}

type selfDestructChange struct {
	addr           types.Address
	prevDestructed bool
	prevBalance    *big.Int
}

func (ch selfDestructChange) revert(s *StateDB) {
	if obj := s.objects[ch.addr]; obj != nil {
		obj.selfDestructed = ch.prevDestructed
		obj.account.Balance = ch.prevBalance
	}
}

type refundChange struct {
	prev uint64
}

func (ch refundChange) revert(s *StateDB) { s.refund = ch.prev }

type logChange struct {
	txHash  types.Hash
	prevLen int
}

func (ch logChange) revert(s *StateDB) {
	logs := s.logs[ch.txHash]
	s.logs[ch.txHash] = logs[:ch.prevLen]
	if ch.prevLen == 0 {
		delete(s.logs, ch.txHash)
	}
}
