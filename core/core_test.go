package core_test

import (
	"math/big"
	"testing"

	"github.com/etcnode/core-engine/consensus/ethash"
	"github.com/etcnode/core-engine/core"
	"github.com/etcnode/core-engine/core/state"
	"github.com/etcnode/core-engine/core/types"
	"github.com/etcnode/core-engine/crypto"
	"github.com/etcnode/core-engine/ethdb"
	"github.com/etcnode/core-engine/params"
	"github.com/etcnode/core-engine/rawdb"
	"github.com/etcnode/core-engine/trie"
)

func newTestStateDB(t *testing.T) *state.StateDB {
	t.Helper()
	ndb := trie.NewNodeDatabase(ethdb.NewMemoryDB())
	sdb, err := state.New(types.Hash{}, ndb, nil)
	if err != nil {
		t.Fatalf("state.New: %v", err)
	}
	return sdb
}

func testConfig() *params.ChainConfig {
	cfg := *params.TestConfig
	return &cfg
}

func TestGasPoolAddSubAndExhaustion(t *testing.T) {
	gp := new(core.GasPool).AddGas(1000)
	if gp.Gas() != 1000 {
		t.Fatalf("Gas() = %d, want 1000", gp.Gas())
	}
	if err := gp.SubGas(400); err != nil {
		t.Fatalf("SubGas: %v", err)
	}
	if gp.Gas() != 600 {
		t.Fatalf("Gas() = %d, want 600", gp.Gas())
	}
	if err := gp.SubGas(601); err != core.ErrGasPoolExhausted {
		t.Fatalf("SubGas(over-budget) err = %v, want ErrGasPoolExhausted", err)
	}
}

func TestAccumulateRewardsBeneficiaryOnly(t *testing.T) {
	cfg := testConfig()
	sdb := newTestStateDB(t)
	beneficiary := types.HexToAddress("0xb100000000000000000000000000000000000b")
	header := &types.Header{Number: big.NewInt(1), Beneficiary: beneficiary}

	if err := core.AccumulateRewards(cfg, sdb, header, nil); err != nil {
		t.Fatalf("AccumulateRewards: %v", err)
	}
	bal, err := sdb.GetBalance(beneficiary)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if bal.Cmp(cfg.MonetaryPolicy.FirstEraBlockReward) != 0 {
		t.Fatalf("beneficiary balance = %s, want era base reward %s", bal, cfg.MonetaryPolicy.FirstEraBlockReward)
	}
}

// TestAccumulateRewardsWithOmmers exercises spec §8 scenario 4: a block
// with two ommers pays its beneficiary the era reward plus 1/32 per
// ommer, and each ommer's own miner gets era*(8-distance)/8.
func TestAccumulateRewardsWithOmmers(t *testing.T) {
	cfg := testConfig()
	sdb := newTestStateDB(t)

	beneficiary := types.HexToAddress("0xb200000000000000000000000000000000000b")
	ommerMiner1 := types.HexToAddress("0x0100000000000000000000000000000000000a")
	ommerMiner2 := types.HexToAddress("0x0200000000000000000000000000000000000b")

	header := &types.Header{Number: big.NewInt(3), Beneficiary: beneficiary}
	ommers := []*types.Header{
		{Number: big.NewInt(2), Beneficiary: ommerMiner1},
		{Number: big.NewInt(1), Beneficiary: ommerMiner2},
	}

	if err := core.AccumulateRewards(cfg, sdb, header, ommers); err != nil {
		t.Fatalf("AccumulateRewards: %v", err)
	}

	eraBase := cfg.MonetaryPolicy.FirstEraBlockReward
	wantBeneficiary := new(big.Int).Mul(eraBase, big.NewInt(32+2))
	wantBeneficiary.Div(wantBeneficiary, big.NewInt(32))
	gotBeneficiary, _ := sdb.GetBalance(beneficiary)
	if gotBeneficiary.Cmp(wantBeneficiary) != 0 {
		t.Fatalf("beneficiary balance = %s, want %s", gotBeneficiary, wantBeneficiary)
	}

	wantOmmer1 := new(big.Int).Mul(eraBase, big.NewInt(7)) // distance 1: 8-1=7
	wantOmmer1.Div(wantOmmer1, big.NewInt(8))
	gotOmmer1, _ := sdb.GetBalance(ommerMiner1)
	if gotOmmer1.Cmp(wantOmmer1) != 0 {
		t.Fatalf("ommer1 balance = %s, want %s", gotOmmer1, wantOmmer1)
	}

	wantOmmer2 := new(big.Int).Mul(eraBase, big.NewInt(6)) // distance 2: 8-2=6
	wantOmmer2.Div(wantOmmer2, big.NewInt(8))
	gotOmmer2, _ := sdb.GetBalance(ommerMiner2)
	if gotOmmer2.Cmp(wantOmmer2) != 0 {
		t.Fatalf("ommer2 balance = %s, want %s", gotOmmer2, wantOmmer2)
	}
}

func TestEraBlockRewardReductionAppliesAcrossEras(t *testing.T) {
	cfg := testConfig()
	sdb := newTestStateDB(t)
	beneficiary := types.HexToAddress("0xb300000000000000000000000000000000000b")
	header := &types.Header{Number: big.NewInt(cfg.MonetaryPolicy.EraDuration + 1), Beneficiary: beneficiary}

	if err := core.AccumulateRewards(cfg, sdb, header, nil); err != nil {
		t.Fatalf("AccumulateRewards: %v", err)
	}
	bal, _ := sdb.GetBalance(beneficiary)
	want := new(big.Int).Mul(cfg.MonetaryPolicy.FirstEraBlockReward, big.NewInt(4))
	want.Div(want, big.NewInt(5))
	if bal.Cmp(want) != 0 {
		t.Fatalf("second-era reward = %s, want %s", bal, want)
	}
}

// TestApplyDAOForkDrainsListedAccounts exercises spec §8 scenario 3: at
// the configured DAO fork block, every drain-list account's balance
// moves to the refund address, and ApplyDAOFork is a no-op at any other
// block number.
func TestApplyDAOForkDrainsListedAccounts(t *testing.T) {
	drainAddr := types.HexToAddress("0xda0000000000000000000000000000000000da")
	refundAddr := types.HexToAddress("0x0a00000000000000000000000000000000000a")
	cfg := &params.ChainConfig{
		DAOForkBlock:      big.NewInt(10),
		DAOForkRefundAddr: refundAddr.Hex(),
		DAOForkDrainList:  []string{drainAddr.Hex()},
	}

	sdb := newTestStateDB(t)
	sdb.AddBalance(drainAddr, big.NewInt(5000))

	if err := core.ApplyDAOFork(cfg, sdb, big.NewInt(9)); err != nil {
		t.Fatalf("ApplyDAOFork (not yet): %v", err)
	}
	bal, _ := sdb.GetBalance(drainAddr)
	if bal.Cmp(big.NewInt(5000)) != 0 {
		t.Fatalf("drain account touched before the fork block: balance = %s", bal)
	}

	if err := core.ApplyDAOFork(cfg, sdb, big.NewInt(10)); err != nil {
		t.Fatalf("ApplyDAOFork: %v", err)
	}
	drained, _ := sdb.GetBalance(drainAddr)
	refunded, _ := sdb.GetBalance(refundAddr)
	if drained.Sign() != 0 {
		t.Fatalf("drain account balance after fork = %s, want 0", drained)
	}
	if refunded.Cmp(big.NewInt(5000)) != 0 {
		t.Fatalf("refund account balance = %s, want 5000", refunded)
	}
}

func TestApplyDAOForkNoOpWhenUnconfigured(t *testing.T) {
	cfg := testConfig() // DAOForkBlock is nil
	sdb := newTestStateDB(t)
	addr := types.HexToAddress("0x01")
	sdb.AddBalance(addr, big.NewInt(1))
	if err := core.ApplyDAOFork(cfg, sdb, big.NewInt(0)); err != nil {
		t.Fatalf("ApplyDAOFork: %v", err)
	}
	bal, _ := sdb.GetBalance(addr)
	if bal.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("unconfigured DAO fork touched state: balance = %s", bal)
	}
}

func signedValueTransfer(t *testing.T, cfg *params.ChainConfig, nonce uint64, to types.Address, value, gasPrice *big.Int, gas uint64) (*types.Transaction, types.Address) {
	t.Helper()
	priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	tx := types.NewTransaction(nonce, to, value, gas, gasPrice, nil)
	signed, err := types.SignTx(tx, types.NewEIP155Signer(cfg.ChainID), priv)
	if err != nil {
		t.Fatalf("SignTx: %v", err)
	}
	return signed, crypto.PubkeyToAddress(priv.PublicKey)
}

func TestApplyTransactionValueTransfer(t *testing.T) {
	cfg := testConfig()
	sdb := newTestStateDB(t)
	to := types.HexToAddress("0x00000000000000000000000000000000aaaaaa")
	beneficiary := types.HexToAddress("0x00000000000000000000000000000000bbbbbb")
	header := &types.Header{Number: big.NewInt(1), Beneficiary: beneficiary, GasLimit: 8_000_000, Difficulty: big.NewInt(1)}

	tx, from := signedValueTransfer(t, cfg, 0, to, big.NewInt(1000), big.NewInt(1), 21000)
	sdb.AddBalance(from, big.NewInt(1_000_000))

	gp := new(core.GasPool).AddGas(header.GasLimit)
	receipt, gasUsed, err := core.ApplyTransaction(cfg, sdb, header, tx, gp)
	if err != nil {
		t.Fatalf("ApplyTransaction: %v", err)
	}
	if gasUsed != 21000 {
		t.Fatalf("gasUsed = %d, want 21000", gasUsed)
	}
	if receipt.CumulativeGasUsed != gasUsed {
		t.Fatalf("receipt.CumulativeGasUsed = %d, want %d", receipt.CumulativeGasUsed, gasUsed)
	}

	toBal, _ := sdb.GetBalance(to)
	if toBal.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("recipient balance = %s, want 1000", toBal)
	}
	minerBal, _ := sdb.GetBalance(beneficiary)
	if minerBal.Cmp(big.NewInt(21000)) != 0 {
		t.Fatalf("beneficiary balance = %s, want 21000 (gasUsed*gasPrice)", minerBal)
	}
	fromBal, _ := sdb.GetBalance(from)
	want := big.NewInt(1_000_000)
	want.Sub(want, big.NewInt(1000))
	want.Sub(want, big.NewInt(21000))
	if fromBal.Cmp(want) != 0 {
		t.Fatalf("sender balance = %s, want %s", fromBal, want)
	}
	nonce, _ := sdb.GetNonce(from)
	if nonce != 1 {
		t.Fatalf("sender nonce = %d, want 1", nonce)
	}
}

func TestApplyTransactionRejectsNonceTooLow(t *testing.T) {
	cfg := testConfig()
	sdb := newTestStateDB(t)
	to := types.HexToAddress("0x01")
	header := &types.Header{Number: big.NewInt(1), GasLimit: 8_000_000, Difficulty: big.NewInt(1)}

	tx, from := signedValueTransfer(t, cfg, 0, to, big.NewInt(1), big.NewInt(1), 21000)
	sdb.AddBalance(from, big.NewInt(1_000_000))
	sdb.SetNonce(from, 1) // state already past this tx's nonce

	gp := new(core.GasPool).AddGas(header.GasLimit)
	if _, _, err := core.ApplyTransaction(cfg, sdb, header, tx, gp); err != core.ErrNonceTooLow {
		t.Fatalf("ApplyTransaction err = %v, want ErrNonceTooLow", err)
	}
	if gp.Gas() != header.GasLimit {
		t.Fatalf("gas pool not refunded on rejected tx: %d, want %d", gp.Gas(), header.GasLimit)
	}
}

func TestApplyTransactionRejectsInsufficientBalance(t *testing.T) {
	cfg := testConfig()
	sdb := newTestStateDB(t)
	to := types.HexToAddress("0x01")
	header := &types.Header{Number: big.NewInt(1), GasLimit: 8_000_000, Difficulty: big.NewInt(1)}

	tx, _ := signedValueTransfer(t, cfg, 0, to, big.NewInt(1_000_000), big.NewInt(1), 21000)
	gp := new(core.GasPool).AddGas(header.GasLimit)
	if _, _, err := core.ApplyTransaction(cfg, sdb, header, tx, gp); err != core.ErrInsufficientBalance {
		t.Fatalf("ApplyTransaction err = %v, want ErrInsufficientBalance", err)
	}
}

func TestApplyTransactionRejectsGasPoolExhaustion(t *testing.T) {
	cfg := testConfig()
	sdb := newTestStateDB(t)
	to := types.HexToAddress("0x01")
	header := &types.Header{Number: big.NewInt(1), GasLimit: 21000, Difficulty: big.NewInt(1)}

	tx, from := signedValueTransfer(t, cfg, 0, to, big.NewInt(1), big.NewInt(1), 21000)
	sdb.AddBalance(from, big.NewInt(1_000_000))
	gp := new(core.GasPool).AddGas(10000) // less than the single tx's gas limit

	if _, _, err := core.ApplyTransaction(cfg, sdb, header, tx, gp); err != core.ErrGasPoolExhausted {
		t.Fatalf("ApplyTransaction err = %v, want ErrGasPoolExhausted", err)
	}
}

func mkLowDifficultyGenesis(beneficiary types.Address, gasLimit uint64) *core.Genesis {
	return &core.Genesis{
		Coinbase:   beneficiary,
		Difficulty: big.NewInt(1),
		GasLimit:   gasLimit,
		Timestamp:  1000,
		Alloc:      core.GenesisAlloc{},
	}
}

// withLoweredMinimumDifficulty temporarily floors difficulty at 1 instead
// of params.MinimumDifficulty, so CalcDifficulty-derived headers stay at
// the trivially-PoW-passable difficulty of 1 across several blocks
// without mining. Restores the original value on return.
func withLoweredMinimumDifficulty(t *testing.T) {
	t.Helper()
	orig := params.MinimumDifficulty
	params.MinimumDifficulty = big.NewInt(1)
	t.Cleanup(func() { params.MinimumDifficulty = orig })
}

func TestLedgerInitSetsGenesisHead(t *testing.T) {
	withLoweredMinimumDifficulty(t)
	cfg := testConfig()
	disk := ethdb.NewMemoryDB()
	ndb := trie.NewNodeDatabase(disk)

	genesis := mkLowDifficultyGenesis(types.HexToAddress("0xc0ffee"), 5_000_000)
	genesisBlock, err := genesis.ToBlock(ndb)
	if err != nil {
		t.Fatalf("ToBlock: %v", err)
	}

	ledger := core.NewLedger(cfg, disk, 100, 100)
	if err := ledger.Init(genesisBlock); err != nil {
		t.Fatalf("Init: %v", err)
	}

	num, hash, td := ledger.CurrentBlock()
	if num != 0 || hash != genesisBlock.Hash() || td.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("CurrentBlock = %d, %s, %s, want 0, %s, 1", num, hash.Hex(), td, genesisBlock.Hash().Hex())
	}
}

// simulateChild runs the exact same deterministic state transition
// ExecuteBlock will run (DAO fork, transactions, rewards, persist) on a
// disposable StateDB rooted at parent, to discover what the child
// header's StateRoot/ReceiptsRoot/LogsBloom/GasUsed must be. Because
// ExecuteBlock performs the identical, purely-deterministic sequence of
// calls starting from the same parent root, the real import reproduces
// this result exactly.
func simulateChild(t *testing.T, cfg *params.ChainConfig, disk ethdb.Database, parent *types.Header, header *types.Header, txs types.Transactions, ommers []*types.Header) types.Receipts {
	t.Helper()
	ndb := trie.NewNodeDatabase(disk)
	sdb, err := state.New(parent.StateRoot, ndb, nil)
	if err != nil {
		t.Fatalf("simulateChild state.New: %v", err)
	}
	if err := core.ApplyDAOFork(cfg, sdb, header.Number); err != nil {
		t.Fatalf("simulateChild ApplyDAOFork: %v", err)
	}
	gp := new(core.GasPool).AddGas(header.GasLimit)
	var (
		receipts   types.Receipts
		cumulative uint64
	)
	for i, tx := range txs {
		sdb.SetTxContext(tx.Hash(), uint(i))
		receipt, gasUsed, err := core.ApplyTransaction(cfg, sdb, header, tx, gp)
		if err != nil {
			t.Fatalf("simulateChild ApplyTransaction %d: %v", i, err)
		}
		cumulative += gasUsed
		receipt.CumulativeGasUsed = cumulative
		receipts = append(receipts, receipt)
	}
	header.GasUsed = cumulative
	if err := core.AccumulateRewards(cfg, sdb, header, ommers); err != nil {
		t.Fatalf("simulateChild AccumulateRewards: %v", err)
	}
	root, err := sdb.PersistState()
	if err != nil {
		t.Fatalf("simulateChild PersistState: %v", err)
	}
	header.StateRoot = root
	header.ReceiptsRoot = ethash.DeriveRoot(receiptsToItems(receipts))
	header.LogsBloom = receipts.Bloom()
	return receipts
}

func receiptsToItems(receipts types.Receipts) []interface{} {
	items := make([]interface{}, len(receipts))
	for i, r := range receipts {
		items[i] = r
	}
	return items
}

func txsToItems(txs types.Transactions) []interface{} {
	items := make([]interface{}, len(txs))
	for i, tx := range txs {
		items[i] = tx
	}
	return items
}

// buildChild assembles a valid, importable child block with no ommers:
// its header's difficulty, transactions root and every post-execution
// field are all computed rather than guessed, so ExecuteBlock accepts
// it without needing a mined proof-of-work (paired with
// withLoweredMinimumDifficulty so difficulty stays at 1, see VerifyPoW).
func buildChild(t *testing.T, cfg *params.ChainConfig, disk ethdb.Database, parent *types.Header, beneficiary types.Address, txs types.Transactions, timestampDelta uint64) *types.Block {
	t.Helper()
	header := &types.Header{
		ParentHash:  parent.Hash(),
		OmmersHash:  types.EmptyOmmersHash,
		Beneficiary: beneficiary,
		Number:      new(big.Int).Add(parent.Number, big.NewInt(1)),
		GasLimit:    parent.GasLimit,
		Timestamp:   parent.Timestamp + timestampDelta,
	}
	header.Difficulty = cfg.CalcDifficulty(header.Timestamp, parent)
	header.TransactionsRoot = ethash.DeriveRoot(txsToItems(txs))

	simulateChild(t, cfg, disk, parent, header, txs, nil)
	return types.NewBlock(header, txs, nil)
}

func TestLedgerImportBlockExtendsCanonicalChain(t *testing.T) {
	withLoweredMinimumDifficulty(t)
	cfg := testConfig()
	disk := ethdb.NewMemoryDB()
	ndb := trie.NewNodeDatabase(disk)

	minerAddr := types.HexToAddress("0x00000000000000000000000000000000c0ffee")
	genesis := mkLowDifficultyGenesis(minerAddr, 5_000_000)
	genesisBlock, err := genesis.ToBlock(ndb)
	if err != nil {
		t.Fatalf("ToBlock: %v", err)
	}

	ledger := core.NewLedger(cfg, disk, 100, 100)
	if err := ledger.Init(genesisBlock); err != nil {
		t.Fatalf("Init: %v", err)
	}

	child := buildChild(t, cfg, disk, genesisBlock.Header(), minerAddr, nil, 15)
	result := ledger.ImportBlock(child)
	if result.Kind != core.ImportedToTop {
		t.Fatalf("ImportBlock kind = %v, err = %v, want ImportedToTop", result.Kind, result.Err)
	}

	num, hash, _ := ledger.CurrentBlock()
	if num != 1 || hash != child.Hash() {
		t.Fatalf("CurrentBlock = %d, %s, want 1, %s", num, hash.Hex(), child.Hash().Hex())
	}

	sdb, err := state.New(child.Header().StateRoot, ndb, nil)
	if err != nil {
		t.Fatalf("reopen state at new head: %v", err)
	}
	bal, err := sdb.GetBalance(minerAddr)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if bal.Cmp(cfg.MonetaryPolicy.FirstEraBlockReward) != 0 {
		t.Fatalf("miner balance after import = %s, want era reward %s", bal, cfg.MonetaryPolicy.FirstEraBlockReward)
	}
}

func TestLedgerImportBlockDuplicateDetection(t *testing.T) {
	withLoweredMinimumDifficulty(t)
	cfg := testConfig()
	disk := ethdb.NewMemoryDB()
	ndb := trie.NewNodeDatabase(disk)

	minerAddr := types.HexToAddress("0x00000000000000000000000000000000c0ffee")
	genesis := mkLowDifficultyGenesis(minerAddr, 5_000_000)
	genesisBlock, _ := genesis.ToBlock(ndb)

	ledger := core.NewLedger(cfg, disk, 100, 100)
	ledger.Init(genesisBlock)

	child := buildChild(t, cfg, disk, genesisBlock.Header(), minerAddr, nil, 15)
	if result := ledger.ImportBlock(child); result.Kind != core.ImportedToTop {
		t.Fatalf("first import kind = %v, want ImportedToTop", result.Kind)
	}
	if result := ledger.ImportBlock(child); result.Kind != core.Duplicate {
		t.Fatalf("second import kind = %v, want Duplicate", result.Kind)
	}
}

func TestLedgerImportBlockEnqueuesOnUnknownParent(t *testing.T) {
	withLoweredMinimumDifficulty(t)
	cfg := testConfig()
	disk := ethdb.NewMemoryDB()
	ndb := trie.NewNodeDatabase(disk)

	minerAddr := types.HexToAddress("0x00000000000000000000000000000000c0ffee")
	genesis := mkLowDifficultyGenesis(minerAddr, 5_000_000)
	genesisBlock, _ := genesis.ToBlock(ndb)

	ledger := core.NewLedger(cfg, disk, 100, 100)
	ledger.Init(genesisBlock)

	orphanParent := &types.Header{
		Number:     big.NewInt(1),
		Difficulty: big.NewInt(1),
		GasLimit:   5_000_000,
		Timestamp:  1,
	}
	orphan := buildChild(t, cfg, disk, orphanParent, minerAddr, nil, 15)
	result := ledger.ImportBlock(orphan)
	if result.Kind != core.Enqueued {
		t.Fatalf("ImportBlock(orphan) kind = %v, err = %v, want Enqueued", result.Kind, result.Err)
	}
}

func TestLedgerImportBlockReorganisesToHeavierSideBranch(t *testing.T) {
	withLoweredMinimumDifficulty(t)
	cfg := testConfig()
	disk := ethdb.NewMemoryDB()
	ndb := trie.NewNodeDatabase(disk)

	minerA := types.HexToAddress("0x00000000000000000000000000000000000aaaaa")
	minerB := types.HexToAddress("0x00000000000000000000000000000000000bbbbb")
	genesis := mkLowDifficultyGenesis(minerA, 5_000_000)
	genesisBlock, _ := genesis.ToBlock(ndb)

	ledger := core.NewLedger(cfg, disk, 100, 100)
	ledger.Init(genesisBlock)

	canonical := buildChild(t, cfg, disk, genesisBlock.Header(), minerA, nil, 15)
	if result := ledger.ImportBlock(canonical); result.Kind != core.ImportedToTop {
		t.Fatalf("ImportBlock(canonical) kind = %v, want ImportedToTop", result.Kind)
	}

	// A competing child of genesis with the same difficulty only ties the
	// head's total difficulty, so it must be staged, not switched to.
	side := buildChild(t, cfg, disk, genesisBlock.Header(), minerB, nil, 15)
	if result := ledger.ImportBlock(side); result.Kind != core.Enqueued {
		t.Fatalf("ImportBlock(side) kind = %v, err = %v, want Enqueued", result.Kind, result.Err)
	}

	// Its child tips the balance: the side branch now carries more total
	// difficulty than the canonical head and must take over.
	sideChild := buildChild(t, cfg, disk, side.Header(), minerB, nil, 15)
	result := ledger.ImportBlock(sideChild)
	if result.Kind != core.ChainReorganised {
		t.Fatalf("ImportBlock(sideChild) kind = %v, err = %v, want ChainReorganised", result.Kind, result.Err)
	}
	if len(result.OldBranch) != 1 || result.OldBranch[0].Hash() != canonical.Hash() {
		t.Fatalf("OldBranch = %v, want the rolled-back canonical block", result.OldBranch)
	}
	if len(result.NewBranch) != 2 || result.NewBranch[0].Hash() != side.Hash() || result.NewBranch[1].Hash() != sideChild.Hash() {
		t.Fatalf("NewBranch = %v, want [side, sideChild]", result.NewBranch)
	}

	num, hash, td := ledger.CurrentBlock()
	if num != 2 || hash != sideChild.Hash() {
		t.Fatalf("CurrentBlock after reorg = %d, %s, want 2, %s", num, hash.Hex(), sideChild.Hash().Hex())
	}
	if td.Cmp(big.NewInt(3)) != 0 {
		t.Fatalf("total difficulty after reorg = %s, want 3", td)
	}

	canon, err := rawdb.ReadCanonicalHash(disk, 1)
	if err != nil || canon != side.Hash() {
		t.Fatalf("canonical hash at 1 = %s, %v, want the side block", canon.Hex(), err)
	}
}

func TestLedgerExecuteBlockRejectsGasUsedMismatch(t *testing.T) {
	withLoweredMinimumDifficulty(t)
	cfg := testConfig()
	disk := ethdb.NewMemoryDB()
	ndb := trie.NewNodeDatabase(disk)

	minerAddr := types.HexToAddress("0x00000000000000000000000000000000c0ffee")
	genesis := mkLowDifficultyGenesis(minerAddr, 5_000_000)
	genesisBlock, _ := genesis.ToBlock(ndb)

	ledger := core.NewLedger(cfg, disk, 100, 100)
	ledger.Init(genesisBlock)

	child := buildChild(t, cfg, disk, genesisBlock.Header(), minerAddr, nil, 15)
	child.Header().GasUsed = 999 // deliberately wrong; no transactions actually ran

	if _, err := ledger.ExecuteBlock(child); err == nil {
		t.Fatalf("ExecuteBlock accepted a block with a bogus GasUsed")
	}
}

func TestLedgerResolveBranchDetectsBetterBranch(t *testing.T) {
	withLoweredMinimumDifficulty(t)
	cfg := testConfig()
	disk := ethdb.NewMemoryDB()
	ndb := trie.NewNodeDatabase(disk)

	minerAddr := types.HexToAddress("0x00000000000000000000000000000000c0ffee")
	genesis := mkLowDifficultyGenesis(minerAddr, 5_000_000)
	genesisBlock, _ := genesis.ToBlock(ndb)

	ledger := core.NewLedger(cfg, disk, 100, 100)
	ledger.Init(genesisBlock)

	b1 := buildChild(t, cfg, disk, genesisBlock.Header(), minerAddr, nil, 15)
	if result := ledger.ImportBlock(b1); result.Kind != core.ImportedToTop {
		t.Fatalf("ImportBlock(b1) kind = %v, want ImportedToTop", result.Kind)
	}

	// A two-header branch off genesis carries more total difficulty
	// (1+1+1=3) than the current one-block head (1+1=2), and should be
	// reported as a better branch (spec §8 scenario 5 / §4.8).
	alt1 := &types.Header{
		ParentHash: genesisBlock.Hash(),
		Number:     big.NewInt(1),
		GasLimit:   genesisBlock.Header().GasLimit,
		Timestamp:  genesisBlock.Header().Timestamp + 15,
		ExtraData:  []byte{0x01},
	}
	alt1.Difficulty = cfg.CalcDifficulty(alt1.Timestamp, genesisBlock.Header())
	alt2 := &types.Header{
		ParentHash: alt1.Hash(),
		Number:     big.NewInt(2),
		GasLimit:   alt1.GasLimit,
		Timestamp:  alt1.Timestamp + 15,
	}
	alt2.Difficulty = cfg.CalcDifficulty(alt2.Timestamp, alt1)

	resolution := ledger.ResolveBranch([]*types.Header{alt1, alt2})
	if resolution.Kind != core.NewBetterBranch {
		t.Fatalf("ResolveBranch kind = %v, want NewBetterBranch", resolution.Kind)
	}
	if len(resolution.OldBranch) != 1 || resolution.OldBranch[0].Hash() != b1.Hash() {
		t.Fatalf("ResolveBranch OldBranch = %v, want [b1]", resolution.OldBranch)
	}
}

func TestLedgerResolveBranchNoChainSwitchWhenNotHeavier(t *testing.T) {
	withLoweredMinimumDifficulty(t)
	cfg := testConfig()
	disk := ethdb.NewMemoryDB()
	ndb := trie.NewNodeDatabase(disk)

	minerAddr := types.HexToAddress("0x00000000000000000000000000000000c0ffee")
	genesis := mkLowDifficultyGenesis(minerAddr, 5_000_000)
	genesisBlock, _ := genesis.ToBlock(ndb)

	ledger := core.NewLedger(cfg, disk, 100, 100)
	ledger.Init(genesisBlock)

	b1 := buildChild(t, cfg, disk, genesisBlock.Header(), minerAddr, nil, 15)
	ledger.ImportBlock(b1)

	alt1 := &types.Header{
		ParentHash: genesisBlock.Hash(),
		Number:     big.NewInt(1),
		GasLimit:   genesisBlock.Header().GasLimit,
		Timestamp:  genesisBlock.Header().Timestamp + 15,
		ExtraData:  []byte{0x02},
	}
	alt1.Difficulty = cfg.CalcDifficulty(alt1.Timestamp, genesisBlock.Header())

	resolution := ledger.ResolveBranch([]*types.Header{alt1})
	if resolution.Kind != core.NoChainSwitch {
		t.Fatalf("ResolveBranch kind = %v, want NoChainSwitch", resolution.Kind)
	}
}

func TestLedgerResolveBranchRejectsEmptyInput(t *testing.T) {
	cfg := testConfig()
	disk := ethdb.NewMemoryDB()
	ledger := core.NewLedger(cfg, disk, 100, 100)
	resolution := ledger.ResolveBranch(nil)
	if resolution.Kind != core.InvalidBranch {
		t.Fatalf("ResolveBranch(nil) kind = %v, want InvalidBranch", resolution.Kind)
	}
}
