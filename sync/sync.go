// Package sync implements the node's two sync strategies over an
// untrusted peer set: a fast-sync pipeline that downloads headers,
// bodies, receipts and state-trie nodes concurrently up to an elected
// target block, and a regular-sync state machine that follows the
// chain tip afterward, resolving competing branches against the
// Ledger (spec §4.8).
package sync

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/etcnode/core-engine/core"
	"github.com/etcnode/core-engine/core/types"
	"github.com/etcnode/core-engine/eth"
	"github.com/etcnode/core-engine/ethdb"
	"github.com/etcnode/core-engine/params"
	"github.com/etcnode/core-engine/rawdb"
)

// Sync engine errors (spec §4.8/§7's peer-protocol error kind).
var (
	ErrNoPeers          = errors.New("sync: no selectable peers")
	ErrEmptyResponse    = errors.New("sync: peer returned an empty response")
	ErrNonContiguous    = errors.New("sync: headers are not contiguous")
	ErrBranchResolution = errors.New("sync: exceeded max branch resolution requests")
	ErrAlreadySyncing   = errors.New("sync: already syncing")
)

// HeaderRequester asks a specific peer for a batch of headers.
type HeaderRequester interface {
	RequestHeaders(peer *eth.Peer, from uint64, count uint64) ([]*types.Header, error)
}

// BodyRequester asks a specific peer for the bodies of the given
// header hashes, in the same order.
type BodyRequester interface {
	RequestBodies(peer *eth.Peer, hashes []types.Hash) ([]*types.Body, error)
}

// ReceiptRequester asks a specific peer for the receipts of the given
// block hashes, in the same order.
type ReceiptRequester interface {
	RequestReceipts(peer *eth.Peer, hashes []types.Hash) ([]types.Receipts, error)
}

// NodeRequester asks a specific peer for trie nodes by hash; a missing
// entry in the response for a requested hash is a protocol-level
// "don't have it", not an error.
type NodeRequester interface {
	RequestNodes(peer *eth.Peer, hashes []types.Hash) (map[types.Hash][]byte, error)
}

// PeerRequester is the union of everything a peer can be asked for;
// the Controller only needs this much to drive both sync strategies
// (spec's network-layer cryptography and transport are out of scope —
// this interface is where that boundary sits).
type PeerRequester interface {
	HeaderRequester
	BodyRequester
	ReceiptRequester
	NodeRequester
}

// Broadcaster announces newly-imported chain tips to other peers
// (spec §4.8's "broadcast imported top-of-chain blocks").
type Broadcaster interface {
	BroadcastBlock(block *types.Block, td *big.Int, to []*eth.Peer)
	AnnounceHashes(hash types.Hash, number uint64, to []*eth.Peer)
}

// Controller owns both sync strategies and the shared peer set; it is
// the single caller of Ledger.ImportBlock/ResolveBranch for blocks
// that arrive via sync (spec §5's "writes come only from the sync
// engine and the ledger, serialised by the controller").
type Controller struct {
	cfg       *params.SyncConfig
	ledger    Ledger
	peers     *eth.PeerSet
	requester PeerRequester
	bcast     Broadcaster
	disk      ethdb.Database

	fast    *FastSync
	regular *RegularSync
}

// CheckNewBlockInterval is how often the Controller should poll
// ReadyForTarget/ElectTarget while waiting for enough peers, and how
// often FastSync.Persist should be called once a sync is running.
func (c *Controller) CheckNewBlockInterval() time.Duration {
	if c.cfg.CheckForNewBlockInterval > 0 {
		return c.cfg.CheckForNewBlockInterval
	}
	return defaultNewBlockCheckInterval
}

// Ledger is the subset of *core.Ledger the sync engine depends on, kept
// as an interface so tests can substitute a fake without driving a real
// trie-backed state database.
type Ledger interface {
	CurrentBlock() (number uint64, hash types.Hash, td *big.Int)
	GetHeader(hash types.Hash, number uint64) (*types.Header, bool)
	ImportBlock(block *types.Block) *core.ImportResult
	ResolveBranch(headers []*types.Header) core.BranchResolution
}

// NewController wires a Controller from its dependencies. disk backs
// the fast-sync engine's resumable state (spec §4.8's periodic
// persistence).
func NewController(cfg *params.SyncConfig, ledger Ledger, peers *eth.PeerSet, requester PeerRequester, bcast Broadcaster, disk ethdb.Database) *Controller {
	if cfg == nil {
		cfg = params.DefaultSyncConfig()
	}
	c := &Controller{cfg: cfg, ledger: ledger, peers: peers, requester: requester, bcast: bcast, disk: disk}
	c.fast = newFastSync(cfg, ledger, peers, requester, disk)
	c.regular = newRegularSync(cfg, ledger, peers, requester, bcast)
	return c
}

// ReadyForTarget reports whether enough peers have completed the
// handshake with fork_accepted=true to elect a fast-sync target (spec
// §4.8 step 1).
func (c *Controller) ReadyForTarget() bool {
	return uint(len(c.peers.Selectable())) >= c.cfg.MinPeersToChooseTarget
}

// ElectTarget computes the fast-sync target block number: the median of
// the selectable peers' MaxBlockSeen, minus TargetBlockOffset as a
// safety offset, or 0 when that median is not above the offset (spec
// §4.8 step 2).
func (c *Controller) ElectTarget() uint64 {
	median := c.peers.MedianBestBlockNumber()
	if median <= c.cfg.TargetBlockOffset {
		return 0
	}
	return median - c.cfg.TargetBlockOffset
}

// FastSync returns the fast-sync pipeline driver.
func (c *Controller) FastSync() *FastSync { return c.fast }

// RegularSync returns the regular-sync state machine driver.
func (c *Controller) RegularSync() *RegularSync { return c.regular }

// RunFastSync elects a target and drives the header, body, receipt and
// state-node pipelines to completion (spec §4.8 steps 1-4). It returns
// once the node has caught up to the elected pivot, at which point the
// caller should switch to feeding block announcements through
// RegularSync. The pivot's world state is established by the
// state-node pipeline against the pivot header's state root; bodies
// and receipts are downloaded alongside for header-chain validation,
// not re-executed (the Ledger always re-derives state by execution
// from a known state root, so blocks after the pivot are re-executed
// normally once regular sync takes over).
func (c *Controller) RunFastSync(ctx context.Context) error {
	if !c.ReadyForTarget() {
		return ErrNoPeers
	}
	if err := c.fast.ElectTarget(c.ElectTarget()); err != nil {
		return err
	}
	highest := uint64(0)
	for _, p := range c.peers.Selectable() {
		if seen := p.MaxBlockSeen(); seen > highest {
			highest = seen
		}
	}
	if err := rawdb.WriteEstimatedHighestBlock(c.disk, highest); err != nil {
		return err
	}

	persist := time.NewTicker(c.CheckNewBlockInterval())
	defer persist.Stop()

	for !c.fast.HeadersComplete() {
		if err := ctxDone(ctx); err != nil {
			return err
		}
		from, count, done := c.fast.NextHeaderBatch()
		if done {
			break
		}
		peer := c.peers.BestPeer()
		if peer == nil {
			return ErrNoPeers
		}
		headers, err := c.requester.RequestHeaders(peer, from, count)
		if err != nil || c.fast.SubmitHeaders(from, headers) != nil {
			c.peers.Blacklist(peer.ID(), c.cfg.BlacklistDuration)
			continue
		}
		drainTick(persist, c.fast.Persist)
	}

	target, _ := c.fast.Target()
	if pivot, ok := c.fast.HeaderAt(target); ok {
		c.fast.SeedStateNode(pivot.StateRoot)
	}

	for !c.fast.BodiesComplete() {
		if err := ctxDone(ctx); err != nil {
			return err
		}
		hashes := c.fast.NextBodyBatch()
		if len(hashes) == 0 {
			break
		}
		peer := c.peers.BestPeer()
		if peer == nil {
			return ErrNoPeers
		}
		bodies, err := c.requester.RequestBodies(peer, hashes)
		if err != nil || c.fast.SubmitBodies(bodies) != nil {
			c.peers.Blacklist(peer.ID(), c.cfg.BlacklistDuration)
			continue
		}
		drainTick(persist, c.fast.Persist)
	}

	for !c.fast.ReceiptsComplete() {
		if err := ctxDone(ctx); err != nil {
			return err
		}
		hashes := c.fast.NextReceiptBatch()
		if len(hashes) == 0 {
			break
		}
		peer := c.peers.BestPeer()
		if peer == nil {
			return ErrNoPeers
		}
		receipts, err := c.requester.RequestReceipts(peer, hashes)
		if err != nil || c.fast.SubmitReceipts(receipts) != nil {
			c.peers.Blacklist(peer.ID(), c.cfg.BlacklistDuration)
			continue
		}
		drainTick(persist, c.fast.Persist)
	}

	for !c.fast.StateComplete() {
		if err := ctxDone(ctx); err != nil {
			return err
		}
		c.fast.ExpireTimeouts()
		peers := c.peers.SelectableForState()
		if len(peers) == 0 {
			return ErrNoPeers
		}
		for _, peer := range peers {
			hashes := c.fast.NextNodeBatch(peer.ID())
			if len(hashes) == 0 {
				continue
			}
			nodes, err := c.requester.RequestNodes(peer, hashes)
			if err != nil {
				c.peers.Blacklist(peer.ID(), c.cfg.BlacklistDuration)
				continue
			}
			if len(nodes) == 0 {
				peer.MarkBlockchainOnly()
				continue
			}
			accepted, err := c.fast.SubmitNodes(nodes)
			if err != nil {
				return err
			}
			if accepted == 0 {
				c.peers.Blacklist(peer.ID(), c.cfg.BlacklistDuration)
			}
		}
		drainTick(persist, c.fast.Persist)
	}

	return c.fast.Finish()
}

func ctxDone(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func drainTick(t *time.Ticker, fn func() error) {
	select {
	case <-t.C:
		fn()
	default:
	}
}

const defaultNewBlockCheckInterval = 10 * time.Second
