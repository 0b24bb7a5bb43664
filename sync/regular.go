package sync

import (
	"math"
	"math/big"
	"sync"

	"github.com/etcnode/core-engine/core"
	"github.com/etcnode/core-engine/core/types"
	"github.com/etcnode/core-engine/eth"
	"github.com/etcnode/core-engine/params"
)

// regularState is a step in the regular-sync state machine (spec
// §4.8: "idle -> awaiting_headers -> awaiting_bodies ->
// resolving_branch -> idle").
type regularState int

const (
	stateIdle regularState = iota
	stateAwaitingHeaders
	stateAwaitingBodies
	stateResolvingBranch
)

func (s regularState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateAwaitingHeaders:
		return "awaiting_headers"
	case stateAwaitingBodies:
		return "awaiting_bodies"
	case stateResolvingBranch:
		return "resolving_branch"
	default:
		return "unknown"
	}
}

// RegularSync follows the chain tip once fast-sync has caught the node
// up: it reacts to new-block announcements from peers, fetches any
// branch it does not already hold, classifies it against the current
// head, and hands accepted branches to the Ledger (spec §4.8's
// regular-sync state machine, grounded on the teacher's sync.Syncer
// fetch/validate/insert loop).
type RegularSync struct {
	cfg       *params.SyncConfig
	ledger    Ledger
	peers     *eth.PeerSet
	requester PeerRequester
	bcast     Broadcaster

	mu    sync.Mutex
	state regularState

	// ommerCandidates collects side-chain headers that lost a race for
	// inclusion; a miner would reference them for partial reward (spec
	// §4.8: "NoChainSwitch: add the first header as an ommer candidate",
	// "mined blocks arriving while syncing are added to the ommers pool
	// instead").
	ommerCandidates map[types.Hash]*types.Header
}

func newRegularSync(cfg *params.SyncConfig, ledger Ledger, peers *eth.PeerSet, requester PeerRequester, bcast Broadcaster) *RegularSync {
	return &RegularSync{
		cfg:             cfg,
		ledger:          ledger,
		peers:           peers,
		requester:       requester,
		bcast:           bcast,
		state:           stateIdle,
		ommerCandidates: make(map[types.Hash]*types.Header),
	}
}

// State returns the current step of the state machine.
func (r *RegularSync) State() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.String()
}

// AnnounceNewBlock handles a peer's new-block-hash or new-block
// announcement: unless the head is already the current block, the state
// machine asks the announcing peer for headers ending at the head,
// walking back until it holds a header whose parent is known; a head
// whose parent is known is still fetched, as a one-request branch
// (spec §4.8's "a new block announcement whose
// parent is unknown triggers a headers request back to the fork
// point").
func (r *RegularSync) AnnounceNewBlock(peer *eth.Peer, head types.Hash, number uint64) (BranchOutcome, error) {
	r.mu.Lock()
	if r.state != stateIdle {
		r.mu.Unlock()
		return BranchOutcome{}, ErrAlreadySyncing
	}
	r.state = stateAwaitingHeaders
	r.mu.Unlock()

	_, curHash, _ := r.ledger.CurrentBlock()
	if head == curHash {
		r.toIdle()
		return BranchOutcome{Kind: core.NoChainSwitch}, nil
	}

	headers, err := r.fetchBranchHeaders(peer, head, number)
	if err != nil {
		if err == ErrBranchResolution {
			r.peers.Blacklist(peer.ID(), r.cfg.BlacklistDuration)
		}
		r.toIdle()
		return BranchOutcome{}, err
	}
	return r.resolveAndImport(peer, headers)
}

// fetchBranchHeaders walks backward from the announced head, one
// request at a time, until it reaches a header whose parent the
// Ledger already knows, or until MaxBranchResolutionRequests is
// exceeded (spec §4.8's bound on branch-resolution fetches, guarding
// against an attacker feeding an unbounded fork).
func (r *RegularSync) fetchBranchHeaders(peer *eth.Peer, head types.Hash, number uint64) ([]*types.Header, error) {
	var branch []*types.Header
	cursor := head
	cursorNumber := number
	for requests := uint64(0); ; requests++ {
		if requests >= r.cfg.MaxBranchResolutionRequests {
			return nil, ErrBranchResolution
		}
		count := r.cfg.BlockHeadersPerRequest
		if count == 0 || count > cursorNumber+1 {
			count = cursorNumber + 1
		}
		from := cursorNumber + 1 - count
		headers, err := r.requester.RequestHeaders(peer, from, count)
		if err != nil {
			return nil, err
		}
		if len(headers) == 0 {
			return nil, ErrEmptyResponse
		}
		if headers[len(headers)-1].Hash() != cursor {
			return nil, ErrNonContiguous
		}
		branch = append(headers, branch...)
		oldest := headers[0]
		if _, ok := r.ledger.GetHeader(oldest.ParentHash, oldest.Number.Uint64()-1); ok {
			return branch, nil
		}
		if oldest.Number.Uint64() == 0 {
			return nil, ErrNonContiguous
		}
		cursor = oldest.ParentHash
		cursorNumber = oldest.Number.Uint64() - 1
	}
}

// BranchOutcome reports what became of a fetched branch.
type BranchOutcome struct {
	Kind   core.BranchKind
	Result *core.ImportResult
}

// resolveAndImport classifies a fetched header branch against the
// Ledger, fetches bodies for it if the branch looks worth taking, and
// imports each block in order (spec §4.8's "resolving_branch" step).
func (r *RegularSync) resolveAndImport(peer *eth.Peer, headers []*types.Header) (BranchOutcome, error) {
	r.mu.Lock()
	r.state = stateResolvingBranch
	r.mu.Unlock()
	defer r.toIdle()

	resolution := r.ledger.ResolveBranch(headers)
	switch resolution.Kind {
	case core.InvalidBranch:
		r.peers.Blacklist(peer.ID(), r.cfg.BlacklistDuration)
		return BranchOutcome{Kind: resolution.Kind}, nil
	case core.NoChainSwitch:
		r.addOmmerCandidate(headers[0])
		return BranchOutcome{Kind: resolution.Kind}, nil
	case core.UnknownBranch:
		return BranchOutcome{Kind: resolution.Kind}, nil
	}

	r.mu.Lock()
	r.state = stateAwaitingBodies
	r.mu.Unlock()

	hashes := make([]types.Hash, len(headers))
	for i, h := range headers {
		hashes[i] = h.Hash()
	}
	bodies, err := r.requester.RequestBodies(peer, hashes)
	if err != nil {
		return BranchOutcome{}, err
	}
	if len(bodies) != len(headers) {
		r.peers.Blacklist(peer.ID(), r.cfg.BlacklistDuration)
		return BranchOutcome{}, ErrNonContiguous
	}

	var (
		lastResult *core.ImportResult
		lastBlock  *types.Block
	)
	for i, h := range headers {
		block := types.NewBlock(h, bodies[i].Transactions, bodies[i].Ommers)
		lastResult = r.ledger.ImportBlock(block)
		if lastResult.Kind == core.ImportFailed {
			r.peers.Blacklist(peer.ID(), r.cfg.BlacklistDuration)
			return BranchOutcome{Result: lastResult}, lastResult.Err
		}
		lastBlock = block
	}

	if lastResult != nil && (lastResult.Kind == core.ImportedToTop || lastResult.Kind == core.ChainReorganised) {
		r.broadcastHead(lastBlock)
	}

	return BranchOutcome{Kind: resolution.Kind, Result: lastResult}, nil
}

// broadcastHead propagates a freshly-imported chain tip: the full block
// with its total difficulty to a random sqrt(N) subset of peers, and
// the lighter hash announcement to everyone (spec §4.8's gossip split).
func (r *RegularSync) broadcastHead(block *types.Block) {
	peers := r.peers.Selectable()
	if len(peers) == 0 {
		return
	}
	_, _, td := r.ledger.CurrentBlock()
	subset := int(math.Ceil(math.Sqrt(float64(len(peers)))))
	r.bcast.BroadcastBlock(block, td, peers[:subset])
	r.bcast.AnnounceHashes(block.Hash(), block.NumberU64(), peers)
}

// NewBlockFromPeer handles a full NewBlock(block, td) gossip message: it
// is imported only while the state machine is idle; blocks arriving
// mid-sync are remembered as ommer candidates instead (spec §4.8's
// new-block gossip rule).
func (r *RegularSync) NewBlockFromPeer(peer *eth.Peer, block *types.Block, td *big.Int) *core.ImportResult {
	r.mu.Lock()
	if r.state != stateIdle {
		r.mu.Unlock()
		r.addOmmerCandidate(block.Header())
		return nil
	}
	r.state = stateResolvingBranch
	r.mu.Unlock()
	defer r.toIdle()

	peer.UpdateHead(block.Hash(), td, block.NumberU64())

	result := r.ledger.ImportBlock(block)
	switch result.Kind {
	case core.ImportFailed:
		r.peers.Blacklist(peer.ID(), r.cfg.BlacklistDuration)
	case core.ImportedToTop, core.ChainReorganised:
		r.broadcastHead(block)
	}
	return result
}

func (r *RegularSync) addOmmerCandidate(header *types.Header) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ommerCandidates[header.Hash()] = header
}

// OmmerCandidates returns the side-chain headers collected so far.
func (r *RegularSync) OmmerCandidates() []*types.Header {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*types.Header, 0, len(r.ommerCandidates))
	for _, h := range r.ommerCandidates {
		out = append(out, h)
	}
	return out
}

func (r *RegularSync) toIdle() {
	r.mu.Lock()
	r.state = stateIdle
	r.mu.Unlock()
}
