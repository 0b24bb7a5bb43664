package eth

import (
	"math/big"
	"testing"

	"github.com/etcnode/core-engine/core/types"
)

func mkPeer(id string, td int64, maxBlock uint64, forkAccepted bool) *Peer {
	p := NewPeer(id, &stubTransport{}, 63)
	p.SetStatus(types.HexToHash("0x01"), big.NewInt(td), forkAccepted)
	p.UpdateHead(types.HexToHash("0x01"), big.NewInt(td), maxBlock)
	return p
}

func TestPeerSetRegisterRejectsDuplicateID(t *testing.T) {
	ps := NewPeerSet()
	if err := ps.Register(mkPeer("p1", 1, 1, true)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := ps.Register(mkPeer("p1", 2, 2, true)); err != ErrPeerExists {
		t.Fatalf("Register (duplicate) err = %v, want ErrPeerExists", err)
	}
}

func TestPeerSetUnregisterMissingPeer(t *testing.T) {
	ps := NewPeerSet()
	if err := ps.Unregister("ghost"); err != ErrPeerMissing {
		t.Fatalf("Unregister(missing) err = %v, want ErrPeerMissing", err)
	}
}

func TestPeerSetSelectableExcludesForkRejected(t *testing.T) {
	ps := NewPeerSet()
	ps.Register(mkPeer("good", 10, 10, true))
	ps.Register(mkPeer("bad", 20, 20, false))

	sel := ps.Selectable()
	if len(sel) != 1 || sel[0].ID() != "good" {
		t.Fatalf("Selectable = %v, want only [good]", sel)
	}
}

func TestPeerSetSelectableForStateExcludesBlockchainOnly(t *testing.T) {
	ps := NewPeerSet()
	normal := mkPeer("normal", 10, 10, true)
	bco := mkPeer("bco", 10, 10, true)
	bco.MarkBlockchainOnly()
	ps.Register(normal)
	ps.Register(bco)

	sel := ps.SelectableForState()
	if len(sel) != 1 || sel[0].ID() != "normal" {
		t.Fatalf("SelectableForState = %v, want only [normal]", sel)
	}
	if len(ps.Selectable()) != 2 {
		t.Fatalf("Selectable should still include the blockchain-only peer")
	}
}

func TestPeerSetBestPeerPicksHighestTotalDifficulty(t *testing.T) {
	ps := NewPeerSet()
	ps.Register(mkPeer("low", 10, 5, true))
	ps.Register(mkPeer("high", 100, 5, true))
	ps.Register(mkPeer("mid", 50, 5, true))

	best := ps.BestPeer()
	if best == nil || best.ID() != "high" {
		t.Fatalf("BestPeer = %v, want high", best)
	}
}

func TestPeerSetBestPeerNilWhenNoneSelectable(t *testing.T) {
	ps := NewPeerSet()
	ps.Register(mkPeer("rejected", 100, 5, false))
	if best := ps.BestPeer(); best != nil {
		t.Fatalf("BestPeer = %v, want nil", best)
	}
}

func TestPeerSetMedianBestBlockNumber(t *testing.T) {
	ps := NewPeerSet()
	ps.Register(mkPeer("a", 1, 10, true))
	ps.Register(mkPeer("b", 1, 20, true))
	ps.Register(mkPeer("c", 1, 30, true))

	if got := ps.MedianBestBlockNumber(); got != 20 {
		t.Fatalf("MedianBestBlockNumber = %d, want 20", got)
	}
}

func TestPeerSetMedianBestBlockNumberZeroWhenEmpty(t *testing.T) {
	ps := NewPeerSet()
	if got := ps.MedianBestBlockNumber(); got != 0 {
		t.Fatalf("MedianBestBlockNumber (empty) = %d, want 0", got)
	}
}
