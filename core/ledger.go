package core

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/etcnode/core-engine/consensus/ethash"
	"github.com/etcnode/core-engine/core/blockqueue"
	"github.com/etcnode/core-engine/core/state"
	"github.com/etcnode/core-engine/core/types"
	"github.com/etcnode/core-engine/ethdb"
	"github.com/etcnode/core-engine/params"
	"github.com/etcnode/core-engine/rawdb"
	"github.com/etcnode/core-engine/trie"
)

// Ledger errors (spec §4.5/§7).
var (
	ErrUnknownParent   = errors.New("core: parent block unknown")
	ErrBlockTooOld     = errors.New("core: block number below the queued window")
	ErrGasUsedMismatch = errors.New("core: block header gas_used disagrees with execution")
	ErrDuplicateBlock  = errors.New("core: block already imported or queued")
)

// ImportKind is the tag of the five-way result spec §4.5's import_block
// returns.
type ImportKind int

const (
	ImportedToTop ImportKind = iota
	ChainReorganised
	Enqueued
	Duplicate
	ImportFailed
)

func (k ImportKind) String() string {
	switch k {
	case ImportedToTop:
		return "ImportedToTop"
	case ChainReorganised:
		return "ChainReorganised"
	case Enqueued:
		return "Enqueued"
	case Duplicate:
		return "Duplicate"
	case ImportFailed:
		return "ImportFailed"
	default:
		return "Unknown"
	}
}

// ImportResult is the outcome of Ledger.ImportBlock (spec §4.5).
type ImportResult struct {
	Kind            ImportKind
	TotalDifficulty *big.Int
	OldBranch       []*types.Block // populated only for ChainReorganised
	NewBranch       []*types.Block // populated only for ChainReorganised
	Err             error          // populated only for ImportFailed
}

// Ledger executes blocks against the world-state trie and maintains the
// canonical chain, delegating non-canonical branches to a blockqueue.Queue
// (spec §4.5/§4.6). It is the component the sync engine calls into for
// every block it assembles.
type Ledger struct {
	// importMu serializes ImportBlock/Init so a reorg's read-execute-commit
	// sequence can't interleave with another import.
	importMu sync.Mutex

	cfg   *params.ChainConfig
	disk  ethdb.Database
	db    *trie.NodeDatabase
	queue *blockqueue.Queue

	// headMu guards headNumber/headHash/headTD on their own: ExecuteBlock
	// reads them (via GetHashFn, for BLOCKHASH) while importMu is already
	// held by the in-progress ImportBlock call that invoked it, so those
	// reads cannot themselves wait on importMu.
	headMu     sync.RWMutex
	headNumber uint64
	headHash   types.Hash
	headTD     *big.Int

	// ommerMu guards ommerClaims on its own for the same reason: IsOmmerKnown
	// is called from inside ethash.ValidateBody while importMu is held.
	ommerMu sync.Mutex
	// ommerClaims remembers, for the lookback window, which block
	// claimed which ommer hash — spec §4.7's "already included by a
	// prior block" check.
	ommerClaims map[types.Hash]uint64
}

// NewLedger opens a Ledger over disk, initialising its canonical-chain
// position from whatever head is already persisted there (rawdb's
// "BestBlockNumber"/"BestBlockHash"). Call Init with a genesis block
// first if disk holds no chain yet.
func NewLedger(cfg *params.ChainConfig, disk ethdb.Database, queueAhead, queueBehind uint64) *Ledger {
	l := &Ledger{
		cfg:         cfg,
		disk:        disk,
		db:          trie.NewNodeDatabase(disk),
		queue:       blockqueue.New(queueAhead, queueBehind),
		ommerClaims: make(map[types.Hash]uint64),
	}
	if num, err := rawdb.ReadHeadBlockNumber(disk); err == nil {
		if hash, err := rawdb.ReadHeadBlockHash(disk); err == nil {
			if td, err := rawdb.ReadTotalDifficulty(disk, num, hash); err == nil {
				l.headNumber, l.headHash, l.headTD = num, hash, td
				l.queue.SetBest(num)
			}
		}
	}
	return l
}

// Init registers genesis as the chain's block 0, if no head is known yet.
func (l *Ledger) Init(genesis *types.Block) error {
	l.importMu.Lock()
	defer l.importMu.Unlock()
	l.headMu.RLock()
	known := l.headTD != nil
	l.headMu.RUnlock()
	if known {
		return nil
	}
	hash := genesis.Hash()
	if err := rawdb.WriteBlock(l.disk, genesis); err != nil {
		return err
	}
	if err := rawdb.WriteCanonicalHash(l.disk, 0, hash); err != nil {
		return err
	}
	if err := rawdb.WriteTotalDifficulty(l.disk, 0, hash, genesis.Header().Difficulty); err != nil {
		return err
	}
	if err := rawdb.WriteHeadBlockNumber(l.disk, 0); err != nil {
		return err
	}
	if err := rawdb.WriteHeadBlockHash(l.disk, hash); err != nil {
		return err
	}
	l.headMu.Lock()
	l.headNumber, l.headHash = 0, hash
	l.headTD = new(big.Int).Set(genesis.Header().Difficulty)
	l.headMu.Unlock()
	l.queue.SetBest(0)
	return nil
}

// CurrentBlock returns the canonical head's number, hash and total
// difficulty.
func (l *Ledger) CurrentBlock() (number uint64, hash types.Hash, td *big.Int) {
	l.headMu.RLock()
	defer l.headMu.RUnlock()
	return l.headNumber, l.headHash, l.headTD
}

// GetHeader implements ethash.ChainReader: it resolves a header by hash
// and number from the canonical chain or from a block still sitting in
// the queue.
func (l *Ledger) GetHeader(hash types.Hash, number uint64) (*types.Header, bool) {
	if canon, err := rawdb.ReadCanonicalHash(l.disk, number); err == nil && canon == hash {
		if h, err := rawdb.ReadHeader(l.disk, number, hash); err == nil {
			return h, true
		}
	}
	if b, ok := l.queue.Get(hash); ok {
		return b.Header(), true
	}
	return nil, false
}

// IsOmmerKnown implements ethash.ChainReader: an ommer hash is known if
// it is itself a canonical block, or if some recent block has already
// claimed it as an ommer.
func (l *Ledger) IsOmmerKnown(hash types.Hash) bool {
	if _, err := rawdb.ReadBlockNumber(l.disk, hash); err == nil {
		return true
	}
	l.ommerMu.Lock()
	defer l.ommerMu.Unlock()
	_, claimed := l.ommerClaims[hash]
	return claimed
}

// GetHashFn returns a state.GetHashFunc resolving a canonical block
// number to its hash, for the BLOCKHASH opcode (spec §4.3/§4.4); it only
// answers within the 256-block lookback window relative to the current
// head, per spec.
func (l *Ledger) GetHashFn() state.GetHashFunc {
	return func(number uint64) types.Hash {
		l.headMu.RLock()
		head := l.headNumber
		l.headMu.RUnlock()
		if number > head || head-number >= 256 {
			return types.Hash{}
		}
		hash, err := rawdb.ReadCanonicalHash(l.disk, number)
		if err != nil {
			return types.Hash{}
		}
		return hash
	}
}

// totalDifficultyOf resolves a block's total difficulty, checking the
// canonical store first and falling back to the queue (which carries a
// td once it has been propagated from a known ancestor).
func (l *Ledger) totalDifficultyOf(hash types.Hash, number uint64) (*big.Int, bool) {
	if canon, err := rawdb.ReadCanonicalHash(l.disk, number); err == nil && canon == hash {
		if td, err := rawdb.ReadTotalDifficulty(l.disk, number, hash); err == nil {
			return td, true
		}
	}
	l.headMu.RLock()
	if number == l.headNumber && hash == l.headHash {
		td := l.headTD
		l.headMu.RUnlock()
		return td, true
	}
	l.headMu.RUnlock()
	return l.queue.TD(hash)
}

// ExecuteBlock runs block's full execution pipeline against the state
// rooted at its parent (spec §4.5 steps 1-4): pre-validates the header
// and body, applies the DAO-fork drain when configured, applies every
// transaction in order via ApplyTransaction, accumulates the block and
// ommer rewards, persists the resulting state only if its root matches
// the header's declared StateRoot, and validates the resulting receipts
// against the header's ReceiptsRoot/LogsBloom/GasUsed. It does not touch
// the canonical chain index; callers decide what to do with the result.
func (l *Ledger) ExecuteBlock(block *types.Block) (types.Receipts, error) {
	header := block.Header()
	num := header.Number.Uint64()

	if num == 0 {
		return nil, nil
	}
	parentHeader, ok := l.GetHeader(header.ParentHash, num-1)
	if !ok {
		return nil, ErrUnknownParent
	}
	return l.executeBlockOnParent(block, parentHeader)
}

// executeBlockOnParent is ExecuteBlock's body once the parent header is
// in hand. It is split out so reorganise can re-execute a whole branch
// of blocks the queue has already dequeued (and so are no longer
// resolvable via GetHeader) by threading each block's own just-computed
// header forward as the next block's parent.
func (l *Ledger) executeBlockOnParent(block *types.Block, parentHeader *types.Header) (types.Receipts, error) {
	header := block.Header()

	if err := ethash.ValidateHeader(header, parentHeader, l.cfg); err != nil {
		return nil, fmt.Errorf("header validation: %w", err)
	}
	if err := ethash.ValidateBody(block, l); err != nil {
		return nil, fmt.Errorf("body validation: %w", err)
	}

	statedb, err := state.New(parentHeader.StateRoot, l.db, l.GetHashFn())
	if err != nil {
		return nil, fmt.Errorf("open state at parent: %w", err)
	}

	if err := ApplyDAOFork(l.cfg, statedb, header.Number); err != nil {
		return nil, fmt.Errorf("dao fork: %w", err)
	}

	gp := new(GasPool).AddGas(header.GasLimit)
	var (
		receipts   types.Receipts
		cumulative uint64
	)
	for i, tx := range block.Transactions() {
		statedb.SetTxContext(tx.Hash(), uint(i))
		receipt, gasUsed, err := ApplyTransaction(l.cfg, statedb, header, tx, gp)
		if err != nil {
			return nil, fmt.Errorf("apply tx %d: %w", i, err)
		}
		cumulative += gasUsed
		receipt.CumulativeGasUsed = cumulative
		receipts = append(receipts, receipt)
	}
	if cumulative != header.GasUsed {
		return nil, ErrGasUsedMismatch
	}

	if err := AccumulateRewards(l.cfg, statedb, header, block.Ommers()); err != nil {
		return nil, fmt.Errorf("accumulate rewards: %w", err)
	}

	if _, err := statedb.PersistIfHashMatches(header.StateRoot); err != nil {
		return nil, fmt.Errorf("persist state: %w", err)
	}

	if err := ethash.ValidateReceipts(header, receipts); err != nil {
		return nil, fmt.Errorf("receipt validation: %w", err)
	}

	return receipts, nil
}

// ImportBlock is the Ledger's single entry point for a newly-assembled
// block, whatever its relationship to the current canonical chain (spec
// §4.5's import_block).
func (l *Ledger) ImportBlock(block *types.Block) *ImportResult {
	l.importMu.Lock()
	defer l.importMu.Unlock()

	hash := block.Hash()
	num := block.NumberU64()

	_, headHash, headTD := l.CurrentBlock()
	if hash == headHash {
		return &ImportResult{Kind: Duplicate}
	}
	if canon, err := rawdb.ReadCanonicalHash(l.disk, num); err == nil && canon == hash {
		return &ImportResult{Kind: Duplicate}
	}
	if l.queue.Has(hash) {
		return &ImportResult{Kind: Duplicate}
	}

	parentTD, parentKnown := l.totalDifficultyOf(block.ParentHash(), num-1)
	if !parentKnown {
		if _, _, err := l.queue.Insert(block, nil); err != nil {
			return &ImportResult{Kind: ImportFailed, Err: err}
		}
		return &ImportResult{Kind: Enqueued}
	}

	if block.ParentHash() == headHash {
		receipts, err := l.ExecuteBlock(block)
		if err != nil {
			return &ImportResult{Kind: ImportFailed, Err: err}
		}
		td := new(big.Int).Add(parentTD, block.Header().Difficulty)
		if err := l.commitCanonical(block, receipts, td); err != nil {
			return &ImportResult{Kind: ImportFailed, Err: err}
		}
		return &ImportResult{Kind: ImportedToTop, TotalDifficulty: td}
	}

	// Side block: stage it in the queue and see whether its subtree now
	// carries more total difficulty than the current head.
	maxLeaf, maxTD, err := l.queue.Insert(block, parentTD)
	if err != nil {
		return &ImportResult{Kind: ImportFailed, Err: err}
	}
	if maxTD == nil || maxTD.Cmp(headTD) <= 0 {
		return &ImportResult{Kind: Enqueued, TotalDifficulty: maxTD}
	}
	return l.reorganise(maxLeaf)
}

// BranchKind is the tag of ResolveBranch's four-way result (spec
// §4.8's regular-sync "resolve_branch").
type BranchKind int

const (
	NewBetterBranch BranchKind = iota
	NoChainSwitch
	UnknownBranch
	InvalidBranch
)

// BranchResolution is the outcome of Ledger.ResolveBranch.
type BranchResolution struct {
	Kind BranchKind
	// OldBranch holds the canonical blocks a NewBetterBranch result
	// would need to roll back (fork point exclusive), so the caller can
	// request bodies for the new branch's equivalent prefix.
	OldBranch []*types.Block
}

// ResolveBranch classifies a contiguous run of newly-downloaded headers
// against the current canonical chain (spec §4.8's regular-sync
// resolve_branch): whether they extend or beat it, fail to connect to
// anything known yet, or are internally invalid.
func (l *Ledger) ResolveBranch(headers []*types.Header) BranchResolution {
	if len(headers) == 0 {
		return BranchResolution{Kind: InvalidBranch}
	}

	parent, ok := l.GetHeader(headers[0].ParentHash, headers[0].Number.Uint64()-1)
	if !ok {
		return BranchResolution{Kind: UnknownBranch}
	}
	prev := parent
	for _, h := range headers {
		if err := ethash.ValidateHeader(h, prev, l.cfg); err != nil {
			return BranchResolution{Kind: InvalidBranch}
		}
		prev = h
	}

	curNumber, curHash, curTD := l.CurrentBlock()
	forkNumber := headers[0].Number.Uint64() - 1
	forkHash := headers[0].ParentHash

	if forkHash == curHash {
		return BranchResolution{Kind: NewBetterBranch}
	}

	canon, err := rawdb.ReadCanonicalHash(l.disk, forkNumber)
	if err != nil || canon != forkHash {
		return BranchResolution{Kind: UnknownBranch}
	}

	parentTD, ok := l.totalDifficultyOf(forkHash, forkNumber)
	if !ok {
		return BranchResolution{Kind: UnknownBranch}
	}
	candidateTD := new(big.Int).Set(parentTD)
	for _, h := range headers {
		candidateTD.Add(candidateTD, h.Difficulty)
	}
	if candidateTD.Cmp(curTD) <= 0 {
		return BranchResolution{Kind: NoChainSwitch}
	}

	var oldBranch []*types.Block
	for n := curNumber; n > forkNumber; n-- {
		hash, err := rawdb.ReadCanonicalHash(l.disk, n)
		if err != nil {
			break
		}
		b, err := rawdb.ReadBlock(l.disk, n, hash)
		if err != nil {
			break
		}
		oldBranch = append([]*types.Block{b}, oldBranch...)
	}
	return BranchResolution{Kind: NewBetterBranch, OldBranch: oldBranch}
}

// commitCanonical writes block, its receipts, and the chain pointers
// for a straight canonical-chain extension (no reorg).
func (l *Ledger) commitCanonical(block *types.Block, receipts types.Receipts, td *big.Int) error {
	if err := rawdb.WriteBlock(l.disk, block); err != nil {
		return err
	}
	if err := rawdb.WriteReceipts(l.disk, block.NumberU64(), block.Hash(), receipts); err != nil {
		return err
	}
	if err := rawdb.WriteTotalDifficulty(l.disk, block.NumberU64(), block.Hash(), td); err != nil {
		return err
	}
	if err := rawdb.WriteCanonicalHash(l.disk, block.NumberU64(), block.Hash()); err != nil {
		return err
	}
	if err := rawdb.WriteHeadBlockNumber(l.disk, block.NumberU64()); err != nil {
		return err
	}
	if err := rawdb.WriteHeadBlockHash(l.disk, block.Hash()); err != nil {
		return err
	}
	for _, tx := range block.Transactions() {
		if err := rawdb.WriteTxLookup(l.disk, tx.Hash(), block.NumberU64()); err != nil {
			return err
		}
	}
	l.ommerMu.Lock()
	for _, ommer := range block.Ommers() {
		l.ommerClaims[ommer.Hash()] = block.NumberU64()
	}
	l.ommerMu.Unlock()
	l.headMu.Lock()
	l.headNumber, l.headHash, l.headTD = block.NumberU64(), block.Hash(), td
	l.headMu.Unlock()
	l.queue.SetBest(block.NumberU64())
	return nil
}

// reorganise switches the canonical chain to the branch ending at
// newLeaf, which the caller has already determined carries more total
// difficulty than the current head (spec §4.5's ChainReorganised / §8
// scenario 5). It first re-executes every block of the new branch in
// order against the fork point, then rolls the old branch's canonical
// pointers back and commits the new branch; on the first execution
// failure it aborts, drops the failing subtree from the queue, and
// reports ImportFailed without having moved the head.
func (l *Ledger) reorganise(newLeaf types.Hash) *ImportResult {
	newBranch, err := l.queue.GetBranch(newLeaf, true)
	if err != nil || len(newBranch) == 0 {
		return &ImportResult{Kind: ImportFailed, Err: errors.New("core: empty reorg branch")}
	}

	forkParent := newBranch[0].ParentHash()
	forkNumber := newBranch[0].NumberU64() - 1
	curNumber, _, _ := l.CurrentBlock()

	var oldBranch []*types.Block
	for n := curNumber; n > forkNumber; n-- {
		hash, err := rawdb.ReadCanonicalHash(l.disk, n)
		if err != nil {
			break
		}
		b, err := rawdb.ReadBlock(l.disk, n, hash)
		if err != nil {
			break
		}
		oldBranch = append([]*types.Block{b}, oldBranch...)
	}

	// Re-execute the new branch against the fork-point state before
	// touching any canonical pointer, so a failure leaves the old
	// canonical chain untouched.
	type staged struct {
		block    *types.Block
		receipts types.Receipts
		td       *big.Int
	}
	var plan []staged
	td, ok := l.totalDifficultyOf(forkParent, forkNumber)
	if !ok {
		l.queue.RemoveSubtree(newBranch[0].Hash())
		return &ImportResult{Kind: ImportFailed, Err: ErrUnknownParent}
	}
	parentHeader, ok := l.GetHeader(forkParent, forkNumber)
	if !ok {
		l.queue.RemoveSubtree(newBranch[0].Hash())
		return &ImportResult{Kind: ImportFailed, Err: ErrUnknownParent}
	}
	for _, b := range newBranch {
		receipts, err := l.executeBlockOnParent(b, parentHeader)
		if err != nil {
			l.queue.RemoveSubtree(b.Hash())
			return &ImportResult{Kind: ImportFailed, Err: err}
		}
		td = new(big.Int).Add(td, b.Header().Difficulty)
		plan = append(plan, staged{block: b, receipts: receipts, td: new(big.Int).Set(td)})
		parentHeader = b.Header()
	}

	for n := forkNumber + 1; n <= curNumber; n++ {
		if err := rawdb.DeleteCanonicalHash(l.disk, n); err != nil {
			return &ImportResult{Kind: ImportFailed, Err: err}
		}
	}
	for _, s := range plan {
		if err := l.commitCanonical(s.block, s.receipts, s.td); err != nil {
			return &ImportResult{Kind: ImportFailed, Err: err}
		}
	}

	_, _, finalTD := l.CurrentBlock()
	return &ImportResult{
		Kind:            ChainReorganised,
		TotalDifficulty: finalTD,
		OldBranch:       oldBranch,
		NewBranch:       newBranch,
	}
}
