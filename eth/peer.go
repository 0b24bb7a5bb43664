// Package eth tracks the sync engine's view of each connected peer:
// its claimed chain head, whether it passed fork validation, and
// whether it has stopped answering state requests (spec §4.8's "peer
// view").
package eth

import (
	"math/big"
	"sync"
	"time"

	"github.com/etcnode/core-engine/core/types"
)

// Transport is the minimal send/receive surface a Peer needs; the wire
// codec and the underlying p2p connection live outside this package.
type Transport interface {
	WriteMsg(code uint64, payload interface{}) error
}

// Peer is this engine's view of one connected remote node: its
// negotiated protocol version plus the mutable fields the sync engine
// updates as status and block announcements arrive.
type Peer struct {
	id        string
	transport Transport
	version   uint32

	mu             sync.RWMutex
	bestHash       types.Hash
	bestTD         *big.Int
	forkAccepted   bool
	maxBlockSeen   uint64
	blockchainOnly bool
}

// NewPeer wraps transport as a tracked peer identified by id.
func NewPeer(id string, transport Transport, version uint32) *Peer {
	return &Peer{id: id, transport: transport, version: version, bestTD: new(big.Int)}
}

// ID returns the peer's unique identifier.
func (p *Peer) ID() string { return p.id }

// Version returns the peer's negotiated protocol version.
func (p *Peer) Version() uint32 { return p.version }

// SetStatus records the head/total-difficulty/fork-acceptance a status
// handshake or announcement reported.
func (p *Peer) SetStatus(bestHash types.Hash, bestTD *big.Int, forkAccepted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bestHash = bestHash
	p.bestTD = bestTD
	p.forkAccepted = forkAccepted
}

// UpdateHead records a newly-announced head, bumping MaxBlockSeen if
// number exceeds what was previously seen.
func (p *Peer) UpdateHead(hash types.Hash, td *big.Int, number uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bestHash = hash
	p.bestTD = td
	if number > p.maxBlockSeen {
		p.maxBlockSeen = number
	}
}

// Head returns the peer's last-reported best hash and total difficulty.
func (p *Peer) Head() (types.Hash, *big.Int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.bestHash, p.bestTD
}

// ForkAccepted reports whether the peer's handshake passed fork
// validation (spec §4.8 step 1's handshake gate).
func (p *Peer) ForkAccepted() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.forkAccepted
}

// MaxBlockSeen returns the highest block number this peer has ever
// announced.
func (p *Peer) MaxBlockSeen() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.maxBlockSeen
}

// MarkBlockchainOnly records that this peer returned an empty
// state-node response for a hash it should have known, per spec
// §4.8's request-handler lifecycle: no further state requests go to it.
func (p *Peer) MarkBlockchainOnly() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blockchainOnly = true
}

// BlockchainOnly reports whether state requests should be skipped for
// this peer.
func (p *Peer) BlockchainOnly() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.blockchainOnly
}

// blacklistEntry is when a peer's exclusion from scheduling expires.
type blacklistEntry struct {
	until time.Time
}

// nowFunc is overridden in tests so blacklist expiry is deterministic.
var nowFunc = time.Now
