package sync

import (
	"bytes"
	"math/big"
	"testing"
	"time"

	"github.com/etcnode/core-engine/core"
	"github.com/etcnode/core-engine/core/types"
	"github.com/etcnode/core-engine/crypto"
	"github.com/etcnode/core-engine/eth"
	"github.com/etcnode/core-engine/ethdb"
	"github.com/etcnode/core-engine/params"
	"github.com/etcnode/core-engine/rawdb"
	"github.com/etcnode/core-engine/rlp"
)

type fakeLedger struct {
	number uint64
	hash   types.Hash
	td     *big.Int
}

func (f *fakeLedger) CurrentBlock() (uint64, types.Hash, *big.Int) { return f.number, f.hash, f.td }
func (f *fakeLedger) GetHeader(hash types.Hash, number uint64) (*types.Header, bool) {
	return nil, false
}
func (f *fakeLedger) ImportBlock(block *types.Block) *core.ImportResult {
	return &core.ImportResult{Kind: core.ImportedToTop}
}
func (f *fakeLedger) ResolveBranch(headers []*types.Header) core.BranchResolution {
	return core.BranchResolution{Kind: core.NoChainSwitch}
}

func testSyncConfig() *params.SyncConfig {
	cfg := *params.DefaultSyncConfig()
	cfg.BlockHeadersPerRequest = 4
	cfg.NodesPerRequest = 4
	return &cfg
}

// mkChain builds n parent-linked headers with empty bodies, starting at
// block number from with the given parent hash.
func mkChain(parent types.Hash, from uint64, n int) []*types.Header {
	headers := make([]*types.Header, n)
	for i := range headers {
		h := &types.Header{
			ParentHash:       parent,
			OmmersHash:       types.EmptyOmmersHash,
			StateRoot:        types.EmptyRootHash,
			TransactionsRoot: types.EmptyRootHash,
			ReceiptsRoot:     types.EmptyRootHash,
			Difficulty:       big.NewInt(1),
			Number:           new(big.Int).SetUint64(from + uint64(i)),
		}
		headers[i] = h
		parent = h.Hash()
	}
	return headers
}

func TestFastSyncHeaderPipelineAdvancesToTarget(t *testing.T) {
	cfg := testSyncConfig()
	disk := ethdb.NewMemoryDB()
	ledger := &fakeLedger{number: 0, hash: types.Hash{}, td: big.NewInt(1)}
	f := newFastSync(cfg, ledger, eth.NewPeerSet(), nil, disk)

	if err := f.ElectTarget(5); err != nil {
		t.Fatalf("ElectTarget: %v", err)
	}
	if got, ok := f.Target(); !ok || got != 5 {
		t.Fatalf("Target() = %d, %v, want 5, true", got, ok)
	}

	from, count, done := f.NextHeaderBatch()
	if done || from != 1 || count != 4 {
		t.Fatalf("NextHeaderBatch = %d, %d, %v, want 1, 4, false", from, count, done)
	}

	chain := mkChain(types.Hash{}, 1, 5)
	if err := f.SubmitHeaders(1, chain[:4]); err != nil {
		t.Fatalf("SubmitHeaders: %v", err)
	}
	if f.HeadersComplete() {
		t.Fatalf("HeadersComplete = true after only 4/5 headers fetched")
	}

	from, count, done = f.NextHeaderBatch()
	if done || from != 5 || count != 1 {
		t.Fatalf("NextHeaderBatch (final) = %d, %d, %v, want 5, 1, false", from, count, done)
	}
	if err := f.SubmitHeaders(5, chain[4:]); err != nil {
		t.Fatalf("SubmitHeaders (final): %v", err)
	}
	if !f.HeadersComplete() {
		t.Fatalf("HeadersComplete = false after fetching the full range")
	}
	if _, _, done := f.NextHeaderBatch(); !done {
		t.Fatalf("NextHeaderBatch after completion should report done")
	}

	// Each accepted header is persisted with its cumulative difficulty:
	// starting td 1 plus five headers of difficulty 1 each.
	td, err := rawdb.ReadTotalDifficulty(disk, 5, chain[4].Hash())
	if err != nil {
		t.Fatalf("ReadTotalDifficulty: %v", err)
	}
	if td.Cmp(big.NewInt(6)) != 0 {
		t.Fatalf("persisted td = %v, want 6", td)
	}
	stored, err := rawdb.ReadHeader(disk, 3, chain[2].Hash())
	if err != nil || stored.Hash() != chain[2].Hash() {
		t.Fatalf("ReadHeader(3) = %v, %v, want the submitted header", stored, err)
	}
}

func TestFastSyncSubmitHeadersRejectsBrokenChains(t *testing.T) {
	cfg := testSyncConfig()
	ledger := &fakeLedger{td: big.NewInt(1)}
	f := newFastSync(cfg, ledger, eth.NewPeerSet(), nil, ethdb.NewMemoryDB())
	f.ElectTarget(10)

	chain := mkChain(types.Hash{}, 1, 3)

	if err := f.SubmitHeaders(1, []*types.Header{chain[0], chain[2]}); err != ErrNonContiguous {
		t.Fatalf("SubmitHeaders(number gap) err = %v, want ErrNonContiguous", err)
	}
	// The gap case above accepted header 1 before failing, so the cursor
	// is at 2: submit header 2 with a parent that is not header 1.
	unlinked := mkChain(types.HexToHash("0xdeadbeef"), 2, 1)
	if err := f.SubmitHeaders(2, unlinked); err != ErrNonContiguous {
		t.Fatalf("SubmitHeaders(wrong parent) err = %v, want ErrNonContiguous", err)
	}
	if err := f.SubmitHeaders(7, mkChain(types.Hash{}, 7, 1)); err != ErrNonContiguous {
		t.Fatalf("SubmitHeaders(out of order) err = %v, want ErrNonContiguous", err)
	}
	if err := f.SubmitHeaders(1, nil); err != ErrEmptyResponse {
		t.Fatalf("SubmitHeaders(empty) err = %v, want ErrEmptyResponse", err)
	}
}

func TestFastSyncBodyAndReceiptPipelinesFollowHeaders(t *testing.T) {
	cfg := testSyncConfig()
	disk := ethdb.NewMemoryDB()
	ledger := &fakeLedger{td: big.NewInt(1)}
	f := newFastSync(cfg, ledger, eth.NewPeerSet(), nil, disk)
	f.ElectTarget(2)
	chain := mkChain(types.Hash{}, 1, 2)
	if err := f.SubmitHeaders(1, chain); err != nil {
		t.Fatalf("SubmitHeaders: %v", err)
	}

	hashes := f.NextBodyBatch()
	if len(hashes) != 2 {
		t.Fatalf("NextBodyBatch = %d hashes, want 2", len(hashes))
	}
	if err := f.SubmitBodies([]*types.Body{{}, {}}); err != nil {
		t.Fatalf("SubmitBodies: %v", err)
	}
	if !f.BodiesComplete() {
		t.Fatalf("BodiesComplete = false after submitting both bodies")
	}
	if _, err := rawdb.ReadBody(disk, 1, chain[0].Hash()); err != nil {
		t.Fatalf("ReadBody after SubmitBodies: %v", err)
	}

	hashes = f.NextReceiptBatch()
	if len(hashes) != 2 {
		t.Fatalf("NextReceiptBatch = %d hashes, want 2", len(hashes))
	}
	if err := f.SubmitReceipts([]types.Receipts{nil, nil}); err != nil {
		t.Fatalf("SubmitReceipts: %v", err)
	}
	if !f.ReceiptsComplete() {
		t.Fatalf("ReceiptsComplete = false after submitting both receipt sets")
	}
}

func TestFastSyncSubmitBodiesRejectsHeaderMismatch(t *testing.T) {
	cfg := testSyncConfig()
	ledger := &fakeLedger{td: big.NewInt(1)}
	f := newFastSync(cfg, ledger, eth.NewPeerSet(), nil, ethdb.NewMemoryDB())
	f.ElectTarget(1)
	if err := f.SubmitHeaders(1, mkChain(types.Hash{}, 1, 1)); err != nil {
		t.Fatalf("SubmitHeaders: %v", err)
	}

	// The header commits to an empty ommer list; a body carrying one
	// must fail its ommers-hash check.
	bad := &types.Body{Ommers: mkChain(types.Hash{}, 1, 1)}
	if err := f.SubmitBodies([]*types.Body{bad}); err == nil {
		t.Fatalf("SubmitBodies accepted a body that does not match its header")
	}
	if f.BodiesComplete() {
		t.Fatalf("BodiesComplete = true after a rejected body")
	}
}

// leafNodeRLP and branchNodeRLP hand-build raw MPT node encodings, so
// the worklist expansion is exercised against the same wire shapes a
// peer would serve.
type leafNodeRLP struct {
	Key []byte
	Val []byte
}

func encodeLeaf(t *testing.T, pathByte byte, val []byte) []byte {
	t.Helper()
	// 0x20 hex-prefix flag: leaf with even-length path.
	blob, err := rlp.EncodeToBytes(leafNodeRLP{Key: []byte{0x20, pathByte}, Val: val})
	if err != nil {
		t.Fatalf("encode leaf: %v", err)
	}
	return blob
}

func encodeBranch(t *testing.T, child0 types.Hash) []byte {
	t.Helper()
	elems := make([][]byte, 17)
	elems[0] = child0.Bytes()
	blob, err := rlp.EncodeToBytes(elems)
	if err != nil {
		t.Fatalf("encode branch: %v", err)
	}
	return blob
}

// TestFastSyncStateFetchDiscoversCodeAndStorage exercises spec §8
// scenario 6: a branch root leading to an account leaf whose code hash
// and storage root spawn two further fetches; exactly the four blobs
// end up stored under their Keccak hashes and the worklist drains.
func TestFastSyncStateFetchDiscoversCodeAndStorage(t *testing.T) {
	cfg := testSyncConfig()
	disk := ethdb.NewMemoryDB()
	ledger := &fakeLedger{td: big.NewInt(1)}
	f := newFastSync(cfg, ledger, eth.NewPeerSet(), nil, disk)
	f.ElectTarget(1)

	code := []byte{0x60, 0x00, 0x60, 0x00, 0xf3}
	codeHash := crypto.Keccak256Hash(code)

	storageLeaf := encodeLeaf(t, 0xaa, []byte{0x07})
	storageRoot := crypto.Keccak256Hash(storageLeaf)

	acct := types.Account{
		Nonce:       1,
		Balance:     big.NewInt(1000),
		StorageRoot: storageRoot,
		CodeHash:    codeHash,
	}
	acctRLP, err := rlp.EncodeToBytes(acct)
	if err != nil {
		t.Fatalf("encode account: %v", err)
	}
	accountLeaf := encodeLeaf(t, 0xbb, acctRLP)
	leafHash := crypto.Keccak256Hash(accountLeaf)

	rootNode := encodeBranch(t, leafHash)
	root := crypto.Keccak256Hash(rootNode)

	f.SeedStateNode(root)

	batch := f.NextNodeBatch("peer1")
	if len(batch) != 1 || batch[0] != root {
		t.Fatalf("NextNodeBatch = %v, want [state root]", batch)
	}
	if n, err := f.SubmitNodes(map[types.Hash][]byte{root: rootNode}); err != nil || n != 1 {
		t.Fatalf("SubmitNodes(root) = %d, %v, want 1, nil", n, err)
	}

	batch = f.NextNodeBatch("peer1")
	if len(batch) != 1 || batch[0] != leafHash {
		t.Fatalf("NextNodeBatch = %v, want [account leaf]", batch)
	}
	if n, err := f.SubmitNodes(map[types.Hash][]byte{leafHash: accountLeaf}); err != nil || n != 1 {
		t.Fatalf("SubmitNodes(leaf) = %d, %v, want 1, nil", n, err)
	}

	// The account leaf spawns exactly its code blob and storage root.
	batch = f.NextNodeBatch("peer1")
	if len(batch) != 2 {
		t.Fatalf("NextNodeBatch after account leaf = %v, want code hash + storage root", batch)
	}
	if n, err := f.SubmitNodes(map[types.Hash][]byte{codeHash: code, storageRoot: storageLeaf}); err != nil || n != 2 {
		t.Fatalf("SubmitNodes(code+storage) = %d, %v, want 2, nil", n, err)
	}

	if !f.StateComplete() {
		t.Fatalf("StateComplete = false after draining the worklist")
	}
	if got := f.DownloadedNodeCount(); got != 4 {
		t.Fatalf("DownloadedNodeCount = %d, want 4", got)
	}
	if batch := f.NextNodeBatch("peer1"); len(batch) != 0 {
		t.Fatalf("NextNodeBatch after completion = %v, want empty", batch)
	}

	for _, tc := range []struct {
		hash types.Hash
		blob []byte
	}{{root, rootNode}, {leafHash, accountLeaf}, {storageRoot, storageLeaf}} {
		stored, err := rawdb.ReadTrieNode(disk, tc.hash)
		if err != nil || !bytes.Equal(stored, tc.blob) {
			t.Fatalf("ReadTrieNode(%x) = %x, %v, want the submitted blob", tc.hash, stored, err)
		}
	}
	storedCode, err := rawdb.ReadCode(disk, codeHash)
	if err != nil || !bytes.Equal(storedCode, code) {
		t.Fatalf("ReadCode = %x, %v, want the submitted code", storedCode, err)
	}
}

func TestFastSyncSubmitNodesRejectsHashMismatch(t *testing.T) {
	cfg := testSyncConfig()
	ledger := &fakeLedger{td: big.NewInt(1)}
	f := newFastSync(cfg, ledger, eth.NewPeerSet(), nil, ethdb.NewMemoryDB())

	root := crypto.Keccak256Hash([]byte("real node"))
	f.SeedStateNode(root)
	f.NextNodeBatch("peer1")

	if n, err := f.SubmitNodes(map[types.Hash][]byte{root: []byte("forged blob")}); err != nil || n != 0 {
		t.Fatalf("SubmitNodes(forged) = %d, %v, want 0, nil", n, err)
	}
	if f.StateComplete() {
		t.Fatalf("StateComplete = true after rejecting a forged node")
	}
}

func TestFastSyncSubmitNodesIgnoresUnrequestedHashes(t *testing.T) {
	cfg := testSyncConfig()
	ledger := &fakeLedger{td: big.NewInt(1)}
	f := newFastSync(cfg, ledger, eth.NewPeerSet(), nil, ethdb.NewMemoryDB())

	blob := []byte{0x01}
	if n, err := f.SubmitNodes(map[types.Hash][]byte{crypto.Keccak256Hash(blob): blob}); err != nil || n != 0 {
		t.Fatalf("SubmitNodes(unrequested) = %d, %v, want 0, nil", n, err)
	}
	if !f.StateComplete() {
		t.Fatalf("StateComplete = false after submitting an unrequested node")
	}
}

func TestFastSyncExpireTimeoutsBlacklistsAndRequeues(t *testing.T) {
	cfg := testSyncConfig()
	cfg.PeerResponseTimeout = 1 * time.Millisecond
	ledger := &fakeLedger{td: big.NewInt(1)}
	peers := eth.NewPeerSet()
	peers.Register(eth.NewPeer("slow", nil, 63))

	f := newFastSync(cfg, ledger, peers, nil, ethdb.NewMemoryDB())
	root := types.HexToHash("0xroot")
	f.SeedStateNode(root)
	f.NextNodeBatch("slow")

	time.Sleep(5 * time.Millisecond)
	f.ExpireTimeouts()

	if !peers.IsBlacklisted("slow") {
		t.Fatalf("ExpireTimeouts did not blacklist the unresponsive peer")
	}
	batch := f.NextNodeBatch("retrier")
	if len(batch) != 1 || batch[0] != root {
		t.Fatalf("expired request was not requeued: batch = %v", batch)
	}
}

func TestFastSyncPersistAndResumeRoundTrip(t *testing.T) {
	cfg := testSyncConfig()
	disk := ethdb.NewMemoryDB()
	ledger := &fakeLedger{number: 3, hash: types.Hash{}, td: big.NewInt(5)}
	f := newFastSync(cfg, ledger, eth.NewPeerSet(), nil, disk)
	f.ElectTarget(100)
	if err := f.SubmitHeaders(4, mkChain(types.Hash{}, 4, 1)); err != nil {
		t.Fatalf("SubmitHeaders: %v", err)
	}
	pending := types.HexToHash("0xpending")
	f.SeedStateNode(pending)

	if err := f.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	resumed := newFastSync(cfg, ledger, eth.NewPeerSet(), nil, disk)
	if err := resumed.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	target, ok := resumed.Target()
	if !ok || target != 100 {
		t.Fatalf("resumed Target = %d, %v, want 100, true", target, ok)
	}
	from, _, _ := resumed.NextHeaderBatch()
	if from != 5 {
		t.Fatalf("resumed NextHeaderBatch from = %d, want 5", from)
	}
	batch := resumed.NextNodeBatch("peer1")
	if len(batch) != 1 || batch[0] != pending {
		t.Fatalf("resumed pending node batch = %v, want [pending]", batch)
	}
}

func TestFastSyncFinishMarksCompleteAndDropsState(t *testing.T) {
	cfg := testSyncConfig()
	disk := ethdb.NewMemoryDB()
	ledger := &fakeLedger{td: big.NewInt(1)}
	f := newFastSync(cfg, ledger, eth.NewPeerSet(), nil, disk)
	f.ElectTarget(1)
	f.Persist()

	if err := f.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	resumed := newFastSync(cfg, ledger, eth.NewPeerSet(), nil, disk)
	if err := resumed.Resume(); err != ethdb.ErrNotFound {
		t.Fatalf("Resume after Finish err = %v, want ErrNotFound", err)
	}
}
