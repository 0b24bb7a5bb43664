package rawdb

import (
	"encoding/binary"
	"math/big"

	"github.com/etcnode/core-engine/core/types"
	"github.com/etcnode/core-engine/ethdb"
	"github.com/etcnode/core-engine/rlp"
)

// encodeBlockNumber turns a block number into its canonical big-endian
// 8-byte key component, so that keys in the same namespace sort by
// block number.
func encodeBlockNumber(number uint64) []byte {
	enc := make([]byte, 8)
	binary.BigEndian.PutUint64(enc, number)
	return enc
}

func headerKey(number uint64, hash types.Hash) []byte {
	return append(encodeBlockNumber(number), hash.Bytes()...)
}

// WriteHeader stores a block header indexed by number and hash.
func WriteHeader(db ethdb.Database, header *types.Header) error {
	enc, err := rlp.EncodeToBytes(header)
	if err != nil {
		return err
	}
	t := NewTable(db, headerPrefix)
	return t.Put(headerKey(header.Number.Uint64(), header.Hash()), enc)
}

// ReadHeader loads a block header by number and hash.
func ReadHeader(db ethdb.Database, number uint64, hash types.Hash) (*types.Header, error) {
	t := NewTable(db, headerPrefix)
	data, err := t.Get(headerKey(number, hash))
	if err != nil {
		return nil, err
	}
	header := new(types.Header)
	if err := rlp.DecodeBytes(data, header); err != nil {
		return nil, err
	}
	return header, nil
}

// DeleteHeader removes a stored header.
func DeleteHeader(db ethdb.Database, number uint64, hash types.Hash) error {
	return NewTable(db, headerPrefix).Delete(headerKey(number, hash))
}

// WriteBody stores a block's body (transactions and ommers) indexed by
// number and hash, separately from its header.
func WriteBody(db ethdb.Database, number uint64, hash types.Hash, body types.BodyRLP) error {
	enc, err := rlp.EncodeToBytes(body)
	if err != nil {
		return err
	}
	return NewTable(db, bodyPrefix).Put(headerKey(number, hash), enc)
}

// ReadBody loads a block body by number and hash.
func ReadBody(db ethdb.Database, number uint64, hash types.Hash) (*types.BodyRLP, error) {
	data, err := NewTable(db, bodyPrefix).Get(headerKey(number, hash))
	if err != nil {
		return nil, err
	}
	body := new(types.BodyRLP)
	if err := rlp.DecodeBytes(data, body); err != nil {
		return nil, err
	}
	return body, nil
}

// DeleteBody removes a stored body.
func DeleteBody(db ethdb.Database, number uint64, hash types.Hash) error {
	return NewTable(db, bodyPrefix).Delete(headerKey(number, hash))
}

// WriteBlock is a convenience that stores both the header and the body
// of a full block.
func WriteBlock(db ethdb.Database, block *types.Block) error {
	if err := WriteHeader(db, block.Header()); err != nil {
		return err
	}
	return WriteBody(db, block.NumberU64(), block.Hash(), block.ToBodyRLP())
}

// ReadBlock reassembles a full block from its separately stored header
// and body.
func ReadBlock(db ethdb.Database, number uint64, hash types.Hash) (*types.Block, error) {
	header, err := ReadHeader(db, number, hash)
	if err != nil {
		return nil, err
	}
	body, err := ReadBody(db, number, hash)
	if err != nil {
		return nil, err
	}
	return types.NewBlockFromRLP(types.BlockRLP{Header: header, Transactions: body.Transactions, Ommers: body.Ommers}), nil
}

// WriteReceipts stores the receipts produced by executing a block.
func WriteReceipts(db ethdb.Database, number uint64, hash types.Hash, receipts types.Receipts) error {
	enc, err := rlp.EncodeToBytes(receipts)
	if err != nil {
		return err
	}
	return NewTable(db, receiptsPrefix).Put(headerKey(number, hash), enc)
}

// ReadReceipts loads the receipts for a block.
func ReadReceipts(db ethdb.Database, number uint64, hash types.Hash) (types.Receipts, error) {
	data, err := NewTable(db, receiptsPrefix).Get(headerKey(number, hash))
	if err != nil {
		return nil, err
	}
	var receipts types.Receipts
	if err := rlp.DecodeBytes(data, &receipts); err != nil {
		return nil, err
	}
	return receipts, nil
}

// WriteTrieNode stores a raw (already RLP-encoded) trie node keyed by
// its content hash.
func WriteTrieNode(db ethdb.Database, hash types.Hash, blob []byte) error {
	return NewTable(db, nodePrefix).Put(hash.Bytes(), blob)
}

// ReadTrieNode loads a raw trie node by its content hash.
func ReadTrieNode(db ethdb.Database, hash types.Hash) ([]byte, error) {
	return NewTable(db, nodePrefix).Get(hash.Bytes())
}

// DeleteTrieNode removes a trie node.
func DeleteTrieNode(db ethdb.Database, hash types.Hash) error {
	return NewTable(db, nodePrefix).Delete(hash.Bytes())
}

// WriteCode stores contract bytecode keyed by its Keccak-256 hash.
func WriteCode(db ethdb.Database, hash types.Hash, code []byte) error {
	return NewTable(db, codePrefix).Put(hash.Bytes(), code)
}

// ReadCode loads contract bytecode by hash.
func ReadCode(db ethdb.Database, hash types.Hash) ([]byte, error) {
	return NewTable(db, codePrefix).Get(hash.Bytes())
}

// WriteTotalDifficulty stores the cumulative chain difficulty at a
// given block.
func WriteTotalDifficulty(db ethdb.Database, number uint64, hash types.Hash, td *big.Int) error {
	enc, err := rlp.EncodeToBytes(td)
	if err != nil {
		return err
	}
	return NewTable(db, tdPrefix).Put(headerKey(number, hash), enc)
}

// ReadTotalDifficulty loads the cumulative chain difficulty at a block.
func ReadTotalDifficulty(db ethdb.Database, number uint64, hash types.Hash) (*big.Int, error) {
	data, err := NewTable(db, tdPrefix).Get(headerKey(number, hash))
	if err != nil {
		return nil, err
	}
	td := new(big.Int)
	if err := rlp.DecodeBytes(data, td); err != nil {
		return nil, err
	}
	return td, nil
}

// WriteCanonicalHash records the canonical block hash at a given
// number, and the reverse number lookup by hash.
func WriteCanonicalHash(db ethdb.Database, number uint64, hash types.Hash) error {
	if err := NewTable(db, numberToHashPrefix).Put(encodeBlockNumber(number), hash.Bytes()); err != nil {
		return err
	}
	return NewTable(db, hashToNumberPrefix).Put(hash.Bytes(), encodeBlockNumber(number))
}

// ReadCanonicalHash returns the canonical block hash at a given number.
func ReadCanonicalHash(db ethdb.Database, number uint64) (types.Hash, error) {
	data, err := NewTable(db, numberToHashPrefix).Get(encodeBlockNumber(number))
	if err != nil {
		return types.Hash{}, err
	}
	return types.BytesToHash(data), nil
}

// ReadBlockNumber returns the canonical block number for a hash.
func ReadBlockNumber(db ethdb.Database, hash types.Hash) (uint64, error) {
	data, err := NewTable(db, hashToNumberPrefix).Get(hash.Bytes())
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(data), nil
}

// DeleteCanonicalHash removes the canonical number->hash mapping at a
// given number (used when reorganising away from a branch).
func DeleteCanonicalHash(db ethdb.Database, number uint64) error {
	return NewTable(db, numberToHashPrefix).Delete(encodeBlockNumber(number))
}

// WriteTxLookup records which block number contains a transaction, so
// the transaction can be located by hash alone.
func WriteTxLookup(db ethdb.Database, txHash types.Hash, blockNumber uint64) error {
	return NewTable(db, txLookupPrefix).Put(txHash.Bytes(), encodeBlockNumber(blockNumber))
}

// ReadTxLookup returns the block number containing a transaction.
func ReadTxLookup(db ethdb.Database, txHash types.Hash) (uint64, error) {
	data, err := NewTable(db, txLookupPrefix).Get(txHash.Bytes())
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(data), nil
}

// DeleteTxLookup removes a transaction lookup entry, e.g. after a
// reorg drops the block that contained it.
func DeleteTxLookup(db ethdb.Database, txHash types.Hash) error {
	return NewTable(db, txLookupPrefix).Delete(txHash.Bytes())
}

func appStateTable(db ethdb.Database) *Table { return NewTable(db, appStatePrefix) }

// WriteHeadBlockNumber records the number of the current best block.
func WriteHeadBlockNumber(db ethdb.Database, number uint64) error {
	return appStateTable(db).Put([]byte(keyBestBlockNumber), encodeBlockNumber(number))
}

// ReadHeadBlockNumber returns the number of the current best block, or
// ethdb.ErrNotFound before any block has been imported.
func ReadHeadBlockNumber(db ethdb.Database) (uint64, error) {
	data, err := appStateTable(db).Get([]byte(keyBestBlockNumber))
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(data), nil
}

// WriteHeadBlockHash records the hash of the current best block.
func WriteHeadBlockHash(db ethdb.Database, hash types.Hash) error {
	return appStateTable(db).Put([]byte(keyBestBlockHash), hash.Bytes())
}

// ReadHeadBlockHash returns the hash of the current best block.
func ReadHeadBlockHash(db ethdb.Database) (types.Hash, error) {
	data, err := appStateTable(db).Get([]byte(keyBestBlockHash))
	if err != nil {
		return types.Hash{}, err
	}
	return types.BytesToHash(data), nil
}

// WriteFastSyncTargetBlock records the block number the fast-sync
// pivot is targeting.
func WriteFastSyncTargetBlock(db ethdb.Database, number uint64) error {
	return appStateTable(db).Put([]byte(keyFastSyncTargetBlock), encodeBlockNumber(number))
}

// ReadFastSyncTargetBlock returns the fast-sync pivot target number.
func ReadFastSyncTargetBlock(db ethdb.Database) (uint64, error) {
	data, err := appStateTable(db).Get([]byte(keyFastSyncTargetBlock))
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(data), nil
}

// WriteSyncStartingBlock records the block number sync began from, for
// progress reporting.
func WriteSyncStartingBlock(db ethdb.Database, number uint64) error {
	return appStateTable(db).Put([]byte(keySyncStartingBlock), encodeBlockNumber(number))
}

// ReadSyncStartingBlock returns the block number sync began from.
func ReadSyncStartingBlock(db ethdb.Database) (uint64, error) {
	data, err := appStateTable(db).Get([]byte(keySyncStartingBlock))
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(data), nil
}

// WriteEstimatedHighestBlock records the highest block number observed
// across all peers, for progress reporting.
func WriteEstimatedHighestBlock(db ethdb.Database, number uint64) error {
	return appStateTable(db).Put([]byte(keyEstimatedHighestBlock), encodeBlockNumber(number))
}

// ReadEstimatedHighestBlock returns the highest block number observed
// across all peers.
func ReadEstimatedHighestBlock(db ethdb.Database) (uint64, error) {
	data, err := appStateTable(db).Get([]byte(keyEstimatedHighestBlock))
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(data), nil
}

// WriteFastSyncComplete marks whether the fast-sync pivot has been
// reached and the node has switched to regular sync.
func WriteFastSyncComplete(db ethdb.Database, complete bool) error {
	v := byte(0)
	if complete {
		v = 1
	}
	return appStateTable(db).Put([]byte(keyFastSyncComplete), []byte{v})
}

// ReadFastSyncComplete reports whether fast-sync has completed.
func ReadFastSyncComplete(db ethdb.Database) (bool, error) {
	data, err := appStateTable(db).Get([]byte(keyFastSyncComplete))
	if err != nil {
		if err == ethdb.ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return len(data) == 1 && data[0] == 1, nil
}

// WriteFastSyncState persists the queue state of an in-progress
// fast-sync (pending header/body/receipt/state-node requests), so it
// can resume after a restart.
func WriteFastSyncState(db ethdb.Database, state interface{}) error {
	enc, err := rlp.EncodeToBytes(state)
	if err != nil {
		return err
	}
	return NewTable(db, fastSyncStatePrefix).Put([]byte("state"), enc)
}

// ReadFastSyncState loads a persisted fast-sync queue state into out.
func ReadFastSyncState(db ethdb.Database, out interface{}) error {
	data, err := NewTable(db, fastSyncStatePrefix).Get([]byte("state"))
	if err != nil {
		return err
	}
	return rlp.DecodeBytes(data, out)
}

// DeleteFastSyncState removes the persisted fast-sync queue state,
// once fast-sync has completed.
func DeleteFastSyncState(db ethdb.Database) error {
	return NewTable(db, fastSyncStatePrefix).Delete([]byte("state"))
}
