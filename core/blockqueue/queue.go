// Package blockqueue holds the tree of non-canonical blocks the sync
// engine has downloaded but not yet been able to execute onto the
// canonical chain: blocks whose parent is itself still pending, or
// side-branches competing for the head (spec §4.6).
package blockqueue

import (
	"errors"
	"math/big"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/etcnode/core-engine/core/types"
)

// ErrOutOfRange is returned by Insert when a block's number falls
// outside [best-behind, best+ahead] (spec §4.6).
var ErrOutOfRange = errors.New("blockqueue: block number out of the queued window")

// entry is one queued block plus its total difficulty, if known. TD is
// nil until some ancestor's TD becomes known and is propagated down
// (spec §3's block-queue invariant).
type entry struct {
	block *types.Block
	td    *big.Int
}

// Queue is the two-map block tree of spec §9's design note: a forward
// map from hash to entry and a reverse map from parent hash to the set
// of its queued children. Every exported method is safe for concurrent
// use.
type Queue struct {
	mu       sync.Mutex
	entries  map[types.Hash]*entry
	children map[types.Hash]mapset.Set[types.Hash]

	best   uint64
	ahead  uint64
	behind uint64
}

// New creates an empty queue bounded to [best-behind, best+ahead]
// around whatever SetBest is called with (spec §6's
// max_queued_block_number_ahead/behind).
func New(ahead, behind uint64) *Queue {
	return &Queue{
		entries:  make(map[types.Hash]*entry),
		children: make(map[types.Hash]mapset.Set[types.Hash]),
		ahead:    ahead,
		behind:   behind,
	}
}

// SetBest updates the queue's notion of the canonical best block number
// and evicts any entry that now falls outside the queued window.
func (q *Queue) SetBest(best uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.best = best
	q.evictStaleLocked()
}

// Has reports whether hash is currently queued.
func (q *Queue) Has(hash types.Hash) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.entries[hash]
	return ok
}

// Get returns the queued block for hash, if present.
func (q *Queue) Get(hash types.Hash) (*types.Block, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries[hash]
	if !ok {
		return nil, false
	}
	return e.block, true
}

// Insert adds block to the queue. parentTD is the parent's total
// difficulty if known (nil otherwise); when non-nil, Insert computes
// this block's own TD and propagates it to every already-queued
// descendant, returning the maximum-TD leaf in the affected subtree —
// the caller's candidate for a canonical-chain switch (spec §4.6).
// Insert rejects (ErrOutOfRange) a block whose number falls outside the
// queue's window, and is a no-op if the block's hash is already queued.
func (q *Queue) Insert(block *types.Block, parentTD *big.Int) (types.Hash, *big.Int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	num := block.NumberU64()
	if num > q.best+q.ahead || (q.best > q.behind && num < q.best-q.behind) {
		return types.Hash{}, nil, ErrOutOfRange
	}

	hash := block.Hash()
	if _, ok := q.entries[hash]; ok {
		return hash, q.entries[hash].td, nil
	}

	var td *big.Int
	if parentTD != nil {
		td = new(big.Int).Add(parentTD, block.Header().Difficulty)
	}
	q.entries[hash] = &entry{block: block, td: td}

	parent := block.ParentHash()
	if q.children[parent] == nil {
		q.children[parent] = mapset.NewSet[types.Hash]()
	}
	q.children[parent].Add(hash)

	q.evictStaleLocked()

	if td == nil {
		return hash, nil, nil
	}
	maxHash, maxTD := q.propagateTDLocked(hash, td)
	return maxHash, maxTD, nil
}

// propagateTDLocked pushes a newly-known td down to every queued
// descendant of root (each one's td is recomputed as its parent's td plus
// its own difficulty, replacing any earlier value), and returns the hash/td of
// the maximum-td leaf found in root's subtree (including root itself).
func (q *Queue) propagateTDLocked(root types.Hash, rootTD *big.Int) (types.Hash, *big.Int) {
	type frame struct {
		hash types.Hash
		td   *big.Int
	}
	maxHash, maxTD := root, rootTD
	stack := []frame{{root, rootTD}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		kids := q.children[f.hash]
		if kids == nil {
			if f.td.Cmp(maxTD) > 0 {
				maxHash, maxTD = f.hash, f.td
			}
			continue
		}
		isLeaf := true
		for _, child := range kids.ToSlice() {
			isLeaf = false
			childEntry := q.entries[child]
			if childEntry == nil {
				continue
			}
			childTD := new(big.Int).Add(f.td, childEntry.block.Header().Difficulty)
			childEntry.td = childTD
			stack = append(stack, frame{child, childTD})
		}
		if isLeaf && f.td.Cmp(maxTD) > 0 {
			maxHash, maxTD = f.hash, f.td
		}
	}
	return maxHash, maxTD
}

// evictStaleLocked removes every entry whose number falls outside
// [best-behind, best+ahead]. Caller must hold q.mu.
func (q *Queue) evictStaleLocked() {
	for hash, e := range q.entries {
		num := e.block.NumberU64()
		tooNew := num > q.best+q.ahead
		tooOld := q.best > q.behind && num < q.best-q.behind
		if tooNew || tooOld {
			q.removeSubtreeLocked(hash)
		}
	}
}

// GetBranch returns the root-to-leaf chain of blocks ending at leaf,
// walking parent pointers back until a block whose parent is not
// itself queued (spec §4.6). If dequeue is true, entries along the
// branch that are "private" — whose child set does not fork to any
// other queued block — are removed from the queue once collected.
func (q *Queue) GetBranch(leaf types.Hash, dequeue bool) ([]*types.Block, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var branch []*types.Block
	cur := leaf
	for {
		e, ok := q.entries[cur]
		if !ok {
			break
		}
		branch = append([]*types.Block{e.block}, branch...)
		cur = e.block.ParentHash()
	}
	if len(branch) == 0 {
		return nil, nil
	}

	if dequeue {
		for _, b := range branch {
			hash := b.Hash()
			if kids, ok := q.children[hash]; !ok || kids.Cardinality() <= 1 {
				q.removeEntryLocked(hash)
			}
		}
	}
	return branch, nil
}

// RemoveSubtree deletes ancestor and every block queued beneath it
// (used when an ancestor fails validation or execution and its
// descendants can never be valid either, spec §4.6).
func (q *Queue) RemoveSubtree(ancestor types.Hash) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.removeSubtreeLocked(ancestor)
}

func (q *Queue) removeSubtreeLocked(root types.Hash) {
	stack := []types.Hash{root}
	for len(stack) > 0 {
		hash := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if kids, ok := q.children[hash]; ok {
			for _, child := range kids.ToSlice() {
				stack = append(stack, child)
			}
		}
		q.removeEntryLocked(hash)
	}
}

// removeEntryLocked deletes a single entry and its membership in its
// parent's child set, but not its own children (the caller walks those
// separately when removing a whole subtree).
func (q *Queue) removeEntryLocked(hash types.Hash) {
	e, ok := q.entries[hash]
	if !ok {
		delete(q.children, hash)
		return
	}
	parent := e.block.ParentHash()
	if kids, ok := q.children[parent]; ok {
		kids.Remove(hash)
		if kids.Cardinality() == 0 {
			delete(q.children, parent)
		}
	}
	delete(q.entries, hash)
	delete(q.children, hash)
}

// TD returns the queued block's cached total difficulty, if it is both
// queued and reachable from a block whose td was known at insert time.
func (q *Queue) TD(hash types.Hash) (*big.Int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries[hash]
	if !ok || e.td == nil {
		return nil, false
	}
	return new(big.Int).Set(e.td), true
}

// Len returns the number of blocks currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
