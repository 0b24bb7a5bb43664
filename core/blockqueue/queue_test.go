package blockqueue

import (
	"math/big"
	"testing"

	"github.com/etcnode/core-engine/core/types"
)

func mkBlock(number uint64, parent types.Hash, difficulty int64, extra byte) *types.Block {
	h := &types.Header{
		ParentHash: parent,
		Number:     big.NewInt(int64(number)),
		Difficulty: big.NewInt(difficulty),
		GasLimit:   8_000_000,
		ExtraData:  []byte{extra},
	}
	return types.NewBlock(h, nil, nil)
}

func TestInsertRejectsOutOfRangeBlock(t *testing.T) {
	q := New(5, 5)
	q.SetBest(100)

	far := mkBlock(1000, types.Hash{}, 1, 0)
	if _, _, err := q.Insert(far, nil); err != ErrOutOfRange {
		t.Fatalf("Insert(far future) err = %v, want ErrOutOfRange", err)
	}
}

func TestInsertIsIdempotentOnDuplicateHash(t *testing.T) {
	q := New(100, 100)
	b := mkBlock(1, types.Hash{}, 1, 0)

	h1, _, err := q.Insert(b, big.NewInt(0))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	h2, _, err := q.Insert(b, big.NewInt(0))
	if err != nil {
		t.Fatalf("Insert (duplicate): %v", err)
	}
	if h1 != h2 {
		t.Fatalf("duplicate insert produced a different hash")
	}
	if q.Len() != 1 {
		t.Fatalf("Len() = %d after duplicate insert, want 1", q.Len())
	}
}

// TestGetBranchReturnsContiguousParentChain builds a 3-block chain and
// verifies GetBranch(leaf, false) returns the blocks root-to-leaf, each
// one's ParentHash matching the previous entry's Hash (the invariant
// named for get_branch across any sequence of enqueues/removeSubtree).
func TestGetBranchReturnsContiguousParentChain(t *testing.T) {
	q := New(100, 100)

	genesis := mkBlock(0, types.Hash{}, 1, 0)
	b1 := mkBlock(1, genesis.Hash(), 1, 1)
	b2 := mkBlock(2, b1.Hash(), 1, 2)
	b3 := mkBlock(3, b2.Hash(), 1, 3)

	for _, b := range []*types.Block{genesis, b1, b2, b3} {
		if _, _, err := q.Insert(b, big.NewInt(0)); err != nil {
			t.Fatalf("Insert(%d): %v", b.NumberU64(), err)
		}
	}

	branch, err := q.GetBranch(b3.Hash(), false)
	if err != nil {
		t.Fatalf("GetBranch: %v", err)
	}
	if len(branch) != 4 {
		t.Fatalf("branch length = %d, want 4", len(branch))
	}
	for i := 1; i < len(branch); i++ {
		if branch[i].ParentHash() != branch[i-1].Hash() {
			t.Fatalf("branch[%d].ParentHash() != branch[%d].Hash(): chain is not contiguous", i, i-1)
		}
	}
	if branch[len(branch)-1].Hash() != b3.Hash() {
		t.Fatalf("branch does not end at the requested leaf")
	}
}

func TestGetBranchAfterRemoveSubtreeStillContiguous(t *testing.T) {
	q := New(100, 100)

	genesis := mkBlock(0, types.Hash{}, 1, 0)
	b1 := mkBlock(1, genesis.Hash(), 1, 1)
	b2a := mkBlock(2, b1.Hash(), 1, 0xa)
	b2b := mkBlock(2, b1.Hash(), 1, 0xb)
	b3 := mkBlock(3, b2b.Hash(), 1, 3)

	for _, b := range []*types.Block{genesis, b1, b2a, b2b, b3} {
		if _, _, err := q.Insert(b, big.NewInt(0)); err != nil {
			t.Fatalf("Insert(%x): %v", b.Hash(), err)
		}
	}

	q.RemoveSubtree(b2a.Hash())
	if q.Has(b2a.Hash()) {
		t.Fatalf("b2a still present after RemoveSubtree")
	}

	branch, err := q.GetBranch(b3.Hash(), false)
	if err != nil {
		t.Fatalf("GetBranch: %v", err)
	}
	if len(branch) != 4 {
		t.Fatalf("branch length = %d, want 4", len(branch))
	}
	for i := 1; i < len(branch); i++ {
		if branch[i].ParentHash() != branch[i-1].Hash() {
			t.Fatalf("branch not contiguous at index %d", i)
		}
	}
}

func TestInsertPropagatesTotalDifficultyToDescendants(t *testing.T) {
	q := New(100, 100)

	genesis := mkBlock(0, types.Hash{}, 100, 0)

	b1 := mkBlock(1, genesis.Hash(), 50, 1)
	if _, _, err := q.Insert(b1, nil); err != nil {
		t.Fatalf("Insert(b1, unknown parent TD): %v", err)
	}

	b2 := mkBlock(2, b1.Hash(), 50, 2)
	if _, _, err := q.Insert(b2, nil); err != nil {
		t.Fatalf("Insert(b2, unknown parent TD): %v", err)
	}

	// Now genesis arrives with a known parentTD and roots the queued
	// subtree, so its TD must propagate down through b1 and b2.
	maxHash, maxTD, err := q.Insert(genesis, big.NewInt(0))
	if err != nil {
		t.Fatalf("Insert(genesis): %v", err)
	}
	if maxTD == nil {
		t.Fatalf("propagated TD is nil")
	}
	if maxHash != b2.Hash() || maxTD.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("max leaf = %x, td %s, want b2 with td 200", maxHash, maxTD)
	}
}

func TestSetBestEvictsStaleEntries(t *testing.T) {
	q := New(2, 2)
	q.SetBest(10)

	old := mkBlock(9, types.Hash{}, 1, 0)
	if _, _, err := q.Insert(old, big.NewInt(0)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if !q.Has(old.Hash()) {
		t.Fatalf("entry within window was not retained")
	}

	q.SetBest(100)
	if q.Has(old.Hash()) {
		t.Fatalf("stale entry survived SetBest eviction")
	}
}

func TestRemoveSubtreeRemovesAllDescendants(t *testing.T) {
	q := New(100, 100)

	root := mkBlock(1, types.Hash{}, 1, 0)
	child := mkBlock(2, root.Hash(), 1, 1)
	grandchild := mkBlock(3, child.Hash(), 1, 2)

	for _, b := range []*types.Block{root, child, grandchild} {
		if _, _, err := q.Insert(b, big.NewInt(0)); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	q.RemoveSubtree(root.Hash())
	if q.Has(root.Hash()) || q.Has(child.Hash()) || q.Has(grandchild.Hash()) {
		t.Fatalf("RemoveSubtree left descendants queued")
	}
	if q.Len() != 0 {
		t.Fatalf("Len() = %d after RemoveSubtree, want 0", q.Len())
	}
}

// TestGetBranchDequeueKeepsSharedAncestorOnForkingSibling builds a fork
// X -> {A, B} with A extended to A1 -> A2 and B left queued as A's
// sibling, then calls GetBranch(A2, true) the way Ledger.reorganise does
// on every reorg. X forks into two children (A and B) so it must be
// kept for B's branch even though it's now also A2's ancestor; A has a
// single child (A1) so it is private to this branch and must go.
func TestGetBranchDequeueKeepsSharedAncestorOnForkingSibling(t *testing.T) {
	q := New(100, 100)

	x := mkBlock(1, types.Hash{}, 1, 0)
	a := mkBlock(2, x.Hash(), 1, 0xa)
	b := mkBlock(2, x.Hash(), 1, 0xb)
	a1 := mkBlock(3, a.Hash(), 1, 0xa1)
	a2 := mkBlock(4, a1.Hash(), 1, 0xa2)

	for _, blk := range []*types.Block{x, a, b, a1, a2} {
		if _, _, err := q.Insert(blk, big.NewInt(0)); err != nil {
			t.Fatalf("Insert(%x): %v", blk.Hash(), err)
		}
	}

	branch, err := q.GetBranch(a2.Hash(), true)
	if err != nil {
		t.Fatalf("GetBranch: %v", err)
	}
	if len(branch) != 4 {
		t.Fatalf("branch length = %d, want 4", len(branch))
	}

	if !q.Has(x.Hash()) {
		t.Fatalf("x was dequeued despite still forking to b")
	}
	if !q.Has(b.Hash()) {
		t.Fatalf("b was dequeued though it was never part of the requested branch")
	}
	if q.Has(a.Hash()) || q.Has(a1.Hash()) || q.Has(a2.Hash()) {
		t.Fatalf("private branch entries survived dequeue")
	}
}

func TestGetBranchOnUnknownLeafReturnsEmpty(t *testing.T) {
	q := New(100, 100)
	branch, err := q.GetBranch(types.HexToHash("0xdead"), false)
	if err != nil {
		t.Fatalf("GetBranch: %v", err)
	}
	if branch != nil {
		t.Fatalf("GetBranch(unknown leaf) = %v, want nil", branch)
	}
}
