package rawdb

// Namespace prefixes, one byte each, partitioning the underlying
// key-value store into the ten record kinds of spec §4.1; the canonical
// block-number mapping takes two of the eleven prefixes, one per
// direction (number->hash and hash->number). Keeping them
// single bytes matches the teacher's own schema.go convention of cheap,
// grep-able prefixes.
var (
	headerPrefix        = []byte{0x00} // headerPrefix + num (8 bytes BE) + hash -> rlp(Header)
	bodyPrefix          = []byte{0x01} // bodyPrefix + num (8 bytes BE) + hash -> rlp(BodyRLP)
	receiptsPrefix      = []byte{0x02} // receiptsPrefix + num (8 bytes BE) + hash -> rlp(Receipts)
	nodePrefix          = []byte{0x03} // nodePrefix + node hash -> rlp-encoded trie node
	codePrefix          = []byte{0x04} // codePrefix + code hash -> contract bytecode
	tdPrefix            = []byte{0x05} // tdPrefix + num (8 bytes BE) + hash -> rlp(*big.Int)
	numberToHashPrefix  = []byte{0x06} // numberToHashPrefix + num (8 bytes BE) -> hash
	hashToNumberPrefix  = []byte{0x07} // hashToNumberPrefix + hash -> num (8 bytes BE)
	txLookupPrefix      = []byte{0x08} // txLookupPrefix + tx hash -> num (8 bytes BE)
	appStatePrefix      = []byte{0x09} // appStatePrefix + ascii key -> raw value
	fastSyncStatePrefix = []byte{0x0a} // fastSyncStatePrefix + ascii key -> rlp blob
)

// Well-known app_state keys (spec §4.1's "small named values").
const (
	keyBestBlockNumber      = "BestBlockNumber"
	keyBestBlockHash        = "BestBlockHash"
	keyFastSyncTargetBlock  = "FastSyncTargetBlock"
	keySyncStartingBlock    = "SyncStartingBlock"
	keyEstimatedHighestBlock = "EstimatedHighestBlock"
	keyFastSyncComplete     = "FastSyncComplete"
)
