package sync

import (
	"math/big"
	"sync"
	"time"

	"github.com/etcnode/core-engine/consensus/ethash"
	"github.com/etcnode/core-engine/core/types"
	"github.com/etcnode/core-engine/crypto"
	"github.com/etcnode/core-engine/eth"
	"github.com/etcnode/core-engine/ethdb"
	"github.com/etcnode/core-engine/params"
	"github.com/etcnode/core-engine/rawdb"
	"github.com/etcnode/core-engine/rlp"
	"github.com/etcnode/core-engine/trie"
)

// NodeKind tags an entry in the state-node worklist so a fetched blob
// is interpreted correctly: world-state trie nodes carry accounts whose
// leaves spawn code and storage fetches, contract-storage trie nodes
// carry plain values, and code blobs are not trie nodes at all.
type NodeKind uint8

const (
	// NodeStateMpt is a node of the world-state trie.
	NodeStateMpt NodeKind = iota
	// NodeContractMpt is a node of some contract's storage trie.
	NodeContractMpt
	// NodeEvmCode is a contract bytecode blob referenced by an
	// account's code hash.
	NodeEvmCode
	// NodeStorageRoot is the root node of a contract's storage trie,
	// discovered from an account leaf; once fetched it expands like any
	// other contract-trie node.
	NodeStorageRoot
)

// requestState is where a single outstanding request sits in its
// lifecycle (spec §4.8: "requested -> sent -> {response | timeout |
// peer-terminated}").
type requestState int

const (
	requestPending requestState = iota
	requestSent
)

// nodeRequest tracks one outstanding state-node fetch.
type nodeRequest struct {
	hash   types.Hash
	kind   NodeKind
	state  requestState
	peer   string
	sentAt time.Time
}

// pendingNodeRLP is the persisted form of one worklist entry.
type pendingNodeRLP struct {
	Kind NodeKind
	Hash types.Hash
}

// fastSyncState is the persisted snapshot written periodically so a
// restarted node can resume fast-sync without re-downloading what it
// already has (spec §4.8's "periodic sync-state persistence").
type fastSyncState struct {
	Target          uint64
	StartingBlock   uint64
	NextHeader      uint64
	NextBody        uint64
	NextReceipt     uint64
	DownloadedNodes uint64
	PendingNodes    []pendingNodeRLP
}

// FastSync drives the pipelined header/body/receipt/state-node
// download up to an elected target block (spec §4.8 steps 1-4).
// Header, body and receipt fetching are sequential pipelines keyed by
// block number; state-node fetching is a tagged worklist seeded by the
// target block's state root and grown as each fetched node's children,
// code references and storage roots are discovered, matching how the
// world-state trie is laid out (spec §3's MPT).
type FastSync struct {
	cfg       *params.SyncConfig
	ledger    Ledger
	peers     *eth.PeerSet
	requester PeerRequester
	disk      ethdb.Database

	mu            sync.Mutex
	active        bool
	target        uint64
	targetElected bool
	startingBlock uint64

	nextHeader     uint64
	nextBody       uint64
	nextReceipt    uint64
	lastHeaderHash types.Hash
	headerTD       *big.Int

	headers map[uint64]*types.Header

	pendingNodes    map[types.Hash]*nodeRequest
	haveNodes       map[types.Hash]bool
	downloadedNodes uint64
}

// newFastSync builds a FastSync driver bound to disk for persisting
// its resumable state (spec §4.8's "persist sync state periodically").
func newFastSync(cfg *params.SyncConfig, ledger Ledger, peers *eth.PeerSet, requester PeerRequester, disk ethdb.Database) *FastSync {
	return &FastSync{
		cfg:          cfg,
		ledger:       ledger,
		peers:        peers,
		requester:    requester,
		disk:         disk,
		headers:      make(map[uint64]*types.Header),
		pendingNodes: make(map[types.Hash]*nodeRequest),
		haveNodes:    make(map[types.Hash]bool),
	}
}

// Active reports whether a fast-sync run is in progress.
func (f *FastSync) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

// ElectTarget fixes the fast-sync target block once enough peers are
// selectable (spec §4.8 steps 1-2). Calling it again before the
// pipeline completes is a no-op: the target does not move mid-sync.
func (f *FastSync) ElectTarget(target uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.targetElected {
		return nil
	}
	startNumber, startHash, startTD := f.ledger.CurrentBlock()
	if err := rawdb.WriteFastSyncTargetBlock(f.disk, target); err != nil {
		return err
	}
	if err := rawdb.WriteSyncStartingBlock(f.disk, startNumber); err != nil {
		return err
	}
	if err := rawdb.WriteFastSyncComplete(f.disk, false); err != nil {
		return err
	}
	f.target = target
	f.startingBlock = startNumber
	f.nextHeader = startNumber + 1
	f.nextBody = startNumber + 1
	f.nextReceipt = startNumber + 1
	f.lastHeaderHash = startHash
	f.headerTD = new(big.Int)
	if startTD != nil {
		f.headerTD.Set(startTD)
	}
	f.targetElected = true
	f.active = true
	return nil
}

// Target returns the elected target block number and whether one has
// been elected yet.
func (f *FastSync) Target() (uint64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.target, f.targetElected
}

// HeaderAt returns a downloaded header by number, falling back to disk
// for headers persisted by an earlier, interrupted run.
func (f *FastSync) HeaderAt(number uint64) (*types.Header, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := f.headerByNumberLocked(number)
	return h, h != nil
}

func (f *FastSync) headerByNumberLocked(number uint64) *types.Header {
	if h, ok := f.headers[number]; ok {
		return h
	}
	hash, err := rawdb.ReadCanonicalHash(f.disk, number)
	if err != nil {
		return nil
	}
	h, err := rawdb.ReadHeader(f.disk, number, hash)
	if err != nil {
		return nil
	}
	f.headers[number] = h
	return h
}

// Resume loads a previously-persisted fast-sync state, if any, so a
// restarted node continues instead of starting over.
func (f *FastSync) Resume() error {
	target, err := rawdb.ReadFastSyncTargetBlock(f.disk)
	if err != nil {
		return err
	}
	starting, err := rawdb.ReadSyncStartingBlock(f.disk)
	if err != nil {
		return err
	}
	var state fastSyncState
	if err := rawdb.ReadFastSyncState(f.disk, &state); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.target = target
	f.startingBlock = starting
	f.nextHeader = state.NextHeader
	f.nextBody = state.NextBody
	f.nextReceipt = state.NextReceipt
	f.downloadedNodes = state.DownloadedNodes
	for _, pn := range state.PendingNodes {
		f.pendingNodes[pn.Hash] = &nodeRequest{hash: pn.Hash, kind: pn.Kind, state: requestPending}
	}
	f.headerTD = new(big.Int)
	if state.NextHeader > 0 {
		if last := f.headerByNumberLocked(state.NextHeader - 1); last != nil {
			f.lastHeaderHash = last.Hash()
			if td, err := rawdb.ReadTotalDifficulty(f.disk, state.NextHeader-1, f.lastHeaderHash); err == nil {
				f.headerTD.Set(td)
			}
		}
	}
	f.targetElected = true
	f.active = true
	return nil
}

// Persist writes the current pipeline offsets and the outstanding
// state-node worklist to disk (spec §4.8's periodic persistence, called
// by the Controller on a timer).
func (f *FastSync) Persist() error {
	f.mu.Lock()
	state := fastSyncState{
		Target:          f.target,
		StartingBlock:   f.startingBlock,
		NextHeader:      f.nextHeader,
		NextBody:        f.nextBody,
		NextReceipt:     f.nextReceipt,
		DownloadedNodes: f.downloadedNodes,
	}
	for h, req := range f.pendingNodes {
		state.PendingNodes = append(state.PendingNodes, pendingNodeRLP{Kind: req.kind, Hash: h})
	}
	f.mu.Unlock()
	return rawdb.WriteFastSyncState(f.disk, state)
}

// NextHeaderBatch returns the next range of headers still to fetch,
// bounded by the configured per-request count and the elected target.
func (f *FastSync) NextHeaderBatch() (from, count uint64, done bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.targetElected || f.nextHeader > f.target {
		return 0, 0, true
	}
	remaining := f.target - f.nextHeader + 1
	count = f.cfg.BlockHeadersPerRequest
	if remaining < count {
		count = remaining
	}
	return f.nextHeader, count, false
}

// SubmitHeaders records a fetched batch of headers starting at from.
// Each header must continue the chain built so far (number and parent
// hash); accepted headers are persisted together with their total
// difficulty and canonical-number mapping, so the body and receipt
// pipelines and a resumed run can find them (spec §4.8: "look up
// parent's total difficulty; persist and enqueue body + receipt
// hashes").
func (f *FastSync) SubmitHeaders(from uint64, headers []*types.Header) error {
	if len(headers) == 0 {
		return ErrEmptyResponse
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if from != f.nextHeader {
		// The parent of an out-of-order batch has no known total
		// difficulty yet, so nothing in it can be persisted.
		return ErrNonContiguous
	}
	for _, h := range headers {
		if h.Number.Uint64() != f.nextHeader || h.ParentHash != f.lastHeaderHash {
			return ErrNonContiguous
		}
		f.headerTD.Add(f.headerTD, h.Difficulty)
		hash := h.Hash()
		if err := rawdb.WriteHeader(f.disk, h); err != nil {
			return err
		}
		if err := rawdb.WriteTotalDifficulty(f.disk, f.nextHeader, hash, f.headerTD); err != nil {
			return err
		}
		if err := rawdb.WriteCanonicalHash(f.disk, f.nextHeader, hash); err != nil {
			return err
		}
		f.headers[f.nextHeader] = h
		f.lastHeaderHash = hash
		f.nextHeader++
	}
	return nil
}

// NextBodyBatch returns the next range of block hashes needing bodies,
// drawn from already-downloaded headers.
func (f *FastSync) NextBodyBatch() []types.Hash {
	f.mu.Lock()
	defer f.mu.Unlock()
	var hashes []types.Hash
	n := f.nextBody
	for uint64(len(hashes)) < f.cfg.BlockBodiesPerRequest && n < f.nextHeader {
		h := f.headerByNumberLocked(n)
		if h == nil {
			break
		}
		hashes = append(hashes, h.Hash())
		n++
	}
	return hashes
}

// SubmitBodies verifies a batch of fetched bodies against their
// headers (transactions root, ommers hash) and persists the ones that
// match, advancing the body cursor. A short response simply leaves the
// tail in the queue for the next request; a body that fails its header
// commitment aborts the batch so the caller can black-list the peer.
func (f *FastSync) SubmitBodies(bodies []*types.Body) error {
	if len(bodies) == 0 {
		return ErrEmptyResponse
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, body := range bodies {
		h := f.headerByNumberLocked(f.nextBody)
		if h == nil {
			break
		}
		block := types.NewBlock(h, body.Transactions, body.Ommers)
		if err := ethash.ValidateBody(block, nil); err != nil {
			return err
		}
		if err := rawdb.WriteBody(f.disk, f.nextBody, h.Hash(), block.ToBodyRLP()); err != nil {
			return err
		}
		f.nextBody++
	}
	return nil
}

// NextReceiptBatch returns the next range of block hashes needing
// receipts.
func (f *FastSync) NextReceiptBatch() []types.Hash {
	f.mu.Lock()
	defer f.mu.Unlock()
	var hashes []types.Hash
	n := f.nextReceipt
	for uint64(len(hashes)) < f.cfg.ReceiptsPerRequest && n < f.nextBody {
		h := f.headerByNumberLocked(n)
		if h == nil {
			break
		}
		hashes = append(hashes, h.Hash())
		n++
	}
	return hashes
}

// SubmitReceipts verifies fetched receipt sets against their headers
// (receipts root, logs bloom, gas used) and persists the ones that
// match, advancing the receipt cursor.
func (f *FastSync) SubmitReceipts(sets []types.Receipts) error {
	if len(sets) == 0 {
		return ErrEmptyResponse
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, receipts := range sets {
		h := f.headerByNumberLocked(f.nextReceipt)
		if h == nil {
			break
		}
		if err := ethash.ValidateReceipts(h, receipts); err != nil {
			return err
		}
		if err := rawdb.WriteReceipts(f.disk, f.nextReceipt, h.Hash(), receipts); err != nil {
			return err
		}
		f.nextReceipt++
	}
	return nil
}

// SeedStateNode enqueues the state root node the fast-sync pivot needs
// to resolve; everything else in the worklist is discovered from it
// (spec §4.8's state-node download).
func (f *FastSync) SeedStateNode(root types.Hash) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueueNodeLocked(NodeStateMpt, root)
}

func (f *FastSync) enqueueNodeLocked(kind NodeKind, hash types.Hash) {
	if f.haveNodes[hash] {
		return
	}
	if _, ok := f.pendingNodes[hash]; ok {
		return
	}
	f.pendingNodes[hash] = &nodeRequest{hash: hash, kind: kind, state: requestPending}
}

// NextNodeBatch returns up to NodesPerRequest hashes still pending,
// marking them sent against peer.
func (f *FastSync) NextNodeBatch(peerID string) []types.Hash {
	f.mu.Lock()
	defer f.mu.Unlock()
	var hashes []types.Hash
	for h, req := range f.pendingNodes {
		if uint64(len(hashes)) >= f.cfg.NodesPerRequest {
			break
		}
		if req.state != requestPending {
			continue
		}
		req.state = requestSent
		req.peer = peerID
		req.sentAt = time.Now()
		hashes = append(hashes, h)
	}
	return hashes
}

// SubmitNodes checks each returned blob against the hash it was
// requested under, stores verified blobs by that hash, and expands the
// worklist: world-state trie nodes contribute their child hashes and,
// at account leaves, the referenced code hash and storage root;
// contract-trie nodes contribute child hashes of the same kind (spec
// §4.8 step 4). It returns how many blobs were accepted. Hashes absent
// from the response, and blobs that fail hash verification or do not
// decode, are left pending for retry by another peer.
func (f *FastSync) SubmitNodes(nodes map[types.Hash][]byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	accepted := 0
	for h, blob := range nodes {
		req, ok := f.pendingNodes[h]
		if !ok {
			continue
		}
		if crypto.Keccak256Hash(blob) != h {
			continue
		}
		if req.kind == NodeEvmCode {
			if err := rawdb.WriteCode(f.disk, h, blob); err != nil {
				return accepted, err
			}
		} else {
			children, values, err := trie.DecodeSyncNode(blob)
			if err != nil {
				continue
			}
			if err := rawdb.WriteTrieNode(f.disk, h, blob); err != nil {
				return accepted, err
			}
			childKind := NodeContractMpt
			if req.kind == NodeStateMpt {
				childKind = NodeStateMpt
			}
			for _, child := range children {
				f.enqueueNodeLocked(childKind, child)
			}
			if req.kind == NodeStateMpt {
				for _, value := range values {
					var acct types.Account
					if err := rlp.DecodeBytes(value, &acct); err != nil {
						continue
					}
					if acct.CodeHash != types.EmptyCodeHash {
						f.enqueueNodeLocked(NodeEvmCode, acct.CodeHash)
					}
					if acct.StorageRoot != types.EmptyRootHash {
						f.enqueueNodeLocked(NodeStorageRoot, acct.StorageRoot)
					}
				}
			}
		}
		delete(f.pendingNodes, h)
		f.haveNodes[h] = true
		f.downloadedNodes++
		accepted++
	}
	return accepted, nil
}

// DownloadedNodeCount reports how many state entries (trie nodes and
// code blobs) have been fetched and stored so far.
func (f *FastSync) DownloadedNodeCount() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.downloadedNodes
}

// ExpireTimeouts reclaims node requests that have been sent but not
// answered within the configured timeout, black-listing the peer they
// were sent to (spec §4.8's "timeout -> black-list the peer").
func (f *FastSync) ExpireTimeouts() {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	for _, req := range f.pendingNodes {
		if req.state != requestSent {
			continue
		}
		if now.Sub(req.sentAt) < f.cfg.PeerResponseTimeout {
			continue
		}
		if req.peer != "" {
			f.peers.Blacklist(req.peer, f.cfg.BlacklistDuration)
		}
		req.state = requestPending
		req.peer = ""
	}
}

// StateComplete reports whether every discovered state entry has been
// fetched, i.e. the state-node worklist has drained.
func (f *FastSync) StateComplete() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pendingNodes) == 0
}

// HeadersComplete, BodiesComplete and ReceiptsComplete report whether
// their respective pipelines have reached the elected target.
func (f *FastSync) HeadersComplete() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.targetElected && f.nextHeader > f.target
}

func (f *FastSync) BodiesComplete() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.targetElected && f.nextBody > f.target
}

func (f *FastSync) ReceiptsComplete() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.targetElected && f.nextReceipt > f.target
}

// Complete reports whether all four pipelines have drained, meaning
// fast-sync is done and the node can switch to regular sync.
func (f *FastSync) Complete() bool {
	return f.HeadersComplete() && f.BodiesComplete() && f.ReceiptsComplete() && f.StateComplete()
}

// Finish marks fast-sync complete on disk and drops the resumable
// state, since it is no longer needed.
func (f *FastSync) Finish() error {
	if err := rawdb.WriteFastSyncComplete(f.disk, true); err != nil {
		return err
	}
	return rawdb.DeleteFastSyncState(f.disk)
}
