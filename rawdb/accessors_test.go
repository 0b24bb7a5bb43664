package rawdb_test

import (
	"math/big"
	"testing"

	"github.com/etcnode/core-engine/core/types"
	"github.com/etcnode/core-engine/ethdb"
	"github.com/etcnode/core-engine/rawdb"
)

func testHeader(number int64) *types.Header {
	return &types.Header{
		ParentHash:       types.HexToHash("0xaa"),
		OmmersHash:       types.EmptyOmmersHash,
		Number:           big.NewInt(number),
		Difficulty:       big.NewInt(131072),
		GasLimit:         5_000_000,
		TransactionsRoot: types.EmptyRootHash,
		ReceiptsRoot:     types.EmptyRootHash,
	}
}

func TestWriteReadHeaderRoundTrip(t *testing.T) {
	db := ethdb.NewMemoryDB()
	header := testHeader(7)

	if err := rawdb.WriteHeader(db, header); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	got, err := rawdb.ReadHeader(db, 7, header.Hash())
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if got.Hash() != header.Hash() {
		t.Fatalf("ReadHeader returned a different header: %s, want %s", got.Hash().Hex(), header.Hash().Hex())
	}

	if err := rawdb.DeleteHeader(db, 7, header.Hash()); err != nil {
		t.Fatalf("DeleteHeader: %v", err)
	}
	if _, err := rawdb.ReadHeader(db, 7, header.Hash()); err != ethdb.ErrNotFound {
		t.Fatalf("ReadHeader after delete err = %v, want ErrNotFound", err)
	}
}

func TestWriteReadBlockRoundTrip(t *testing.T) {
	db := ethdb.NewMemoryDB()
	header := testHeader(3)
	block := types.NewBlock(header, nil, nil)

	if err := rawdb.WriteBlock(db, block); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}
	got, err := rawdb.ReadBlock(db, 3, block.Hash())
	if err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	if got.Hash() != block.Hash() {
		t.Fatalf("ReadBlock hash = %s, want %s", got.Hash().Hex(), block.Hash().Hex())
	}
	if len(got.Transactions()) != 0 || len(got.Ommers()) != 0 {
		t.Fatalf("ReadBlock body not empty as expected")
	}
}

func TestWriteReadReceiptsRoundTrip(t *testing.T) {
	db := ethdb.NewMemoryDB()
	receipts := types.Receipts{
		&types.Receipt{PostState: types.HexToHash("0x01"), CumulativeGasUsed: 21000},
		&types.Receipt{PostState: types.HexToHash("0x02"), CumulativeGasUsed: 42000},
	}
	hash := types.HexToHash("0xdeadbeef")

	if err := rawdb.WriteReceipts(db, 1, hash, receipts); err != nil {
		t.Fatalf("WriteReceipts: %v", err)
	}
	got, err := rawdb.ReadReceipts(db, 1, hash)
	if err != nil {
		t.Fatalf("ReadReceipts: %v", err)
	}
	if len(got) != 2 || got[1].CumulativeGasUsed != 42000 {
		t.Fatalf("ReadReceipts = %+v, want 2 entries ending at 42000", got)
	}
}

func TestWriteReadTotalDifficulty(t *testing.T) {
	db := ethdb.NewMemoryDB()
	hash := types.HexToHash("0x01")
	if err := rawdb.WriteTotalDifficulty(db, 10, hash, big.NewInt(999)); err != nil {
		t.Fatalf("WriteTotalDifficulty: %v", err)
	}
	got, err := rawdb.ReadTotalDifficulty(db, 10, hash)
	if err != nil {
		t.Fatalf("ReadTotalDifficulty: %v", err)
	}
	if got.Cmp(big.NewInt(999)) != 0 {
		t.Fatalf("ReadTotalDifficulty = %s, want 999", got)
	}
}

func TestCanonicalHashRoundTripAndDelete(t *testing.T) {
	db := ethdb.NewMemoryDB()
	hash := types.HexToHash("0xc0ffee")

	if err := rawdb.WriteCanonicalHash(db, 5, hash); err != nil {
		t.Fatalf("WriteCanonicalHash: %v", err)
	}
	got, err := rawdb.ReadCanonicalHash(db, 5)
	if err != nil || got != hash {
		t.Fatalf("ReadCanonicalHash = %s, %v, want %s, nil", got.Hex(), err, hash.Hex())
	}
	num, err := rawdb.ReadBlockNumber(db, hash)
	if err != nil || num != 5 {
		t.Fatalf("ReadBlockNumber = %d, %v, want 5, nil", num, err)
	}

	if err := rawdb.DeleteCanonicalHash(db, 5); err != nil {
		t.Fatalf("DeleteCanonicalHash: %v", err)
	}
	if _, err := rawdb.ReadCanonicalHash(db, 5); err != ethdb.ErrNotFound {
		t.Fatalf("ReadCanonicalHash after delete err = %v, want ErrNotFound", err)
	}
}

func TestHeadBlockPointersRoundTrip(t *testing.T) {
	db := ethdb.NewMemoryDB()
	hash := types.HexToHash("0xbeef")

	if err := rawdb.WriteHeadBlockNumber(db, 42); err != nil {
		t.Fatalf("WriteHeadBlockNumber: %v", err)
	}
	if err := rawdb.WriteHeadBlockHash(db, hash); err != nil {
		t.Fatalf("WriteHeadBlockHash: %v", err)
	}
	num, err := rawdb.ReadHeadBlockNumber(db)
	if err != nil || num != 42 {
		t.Fatalf("ReadHeadBlockNumber = %d, %v, want 42, nil", num, err)
	}
	got, err := rawdb.ReadHeadBlockHash(db)
	if err != nil || got != hash {
		t.Fatalf("ReadHeadBlockHash = %s, %v, want %s, nil", got.Hex(), err, hash.Hex())
	}
}

func TestReadHeadBlockNumberNotFoundBeforeFirstWrite(t *testing.T) {
	db := ethdb.NewMemoryDB()
	if _, err := rawdb.ReadHeadBlockNumber(db); err != ethdb.ErrNotFound {
		t.Fatalf("ReadHeadBlockNumber on fresh db err = %v, want ErrNotFound", err)
	}
}

func TestFastSyncCompleteDefaultsFalse(t *testing.T) {
	db := ethdb.NewMemoryDB()
	complete, err := rawdb.ReadFastSyncComplete(db)
	if err != nil {
		t.Fatalf("ReadFastSyncComplete: %v", err)
	}
	if complete {
		t.Fatalf("ReadFastSyncComplete on fresh db = true, want false")
	}

	if err := rawdb.WriteFastSyncComplete(db, true); err != nil {
		t.Fatalf("WriteFastSyncComplete: %v", err)
	}
	complete, err = rawdb.ReadFastSyncComplete(db)
	if err != nil || !complete {
		t.Fatalf("ReadFastSyncComplete after write = %v, %v, want true, nil", complete, err)
	}
}

type fastSyncStateStub struct {
	Pending []uint64
}

func TestFastSyncStateRoundTripAndDelete(t *testing.T) {
	db := ethdb.NewMemoryDB()
	want := fastSyncStateStub{Pending: []uint64{1, 2, 3}}

	if err := rawdb.WriteFastSyncState(db, &want); err != nil {
		t.Fatalf("WriteFastSyncState: %v", err)
	}
	var got fastSyncStateStub
	if err := rawdb.ReadFastSyncState(db, &got); err != nil {
		t.Fatalf("ReadFastSyncState: %v", err)
	}
	if len(got.Pending) != 3 || got.Pending[2] != 3 {
		t.Fatalf("ReadFastSyncState = %+v, want %+v", got, want)
	}

	if err := rawdb.DeleteFastSyncState(db); err != nil {
		t.Fatalf("DeleteFastSyncState: %v", err)
	}
	if err := rawdb.ReadFastSyncState(db, &got); err != ethdb.ErrNotFound {
		t.Fatalf("ReadFastSyncState after delete err = %v, want ErrNotFound", err)
	}
}
