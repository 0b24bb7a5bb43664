package types

// Log is a single event emitted by LOG0..LOG4 during contract execution.
// Only Address, Topics and Data are part of the consensus RLP encoding
// (spec §3); the remaining fields are filter/receipt bookkeeping set by
// the ledger after execution and are unexported so the reflective RLP
// encoder (which only visits exported fields) never serializes them.
type Log struct {
	Address Address
	Topics  []Hash
	Data    []byte

	blockNumber uint64
	txHash      Hash
	txIndex     uint
	blockHash   Hash
	index       uint
	removed     bool
}

// NewLog constructs a Log with the consensus fields set.
func NewLog(address Address, topics []Hash, data []byte) *Log {
	return &Log{Address: address, Topics: topics, Data: data}
}

// SetContext fills in the bookkeeping fields once the log's position in
// the chain is known.
func (l *Log) SetContext(blockNumber uint64, blockHash, txHash Hash, txIndex, index uint) {
	l.blockNumber = blockNumber
	l.blockHash = blockHash
	l.txHash = txHash
	l.txIndex = txIndex
	l.index = index
}

func (l *Log) BlockNumber() uint64 { return l.blockNumber }
func (l *Log) TxHash() Hash        { return l.txHash }
func (l *Log) TxIndex() uint       { return l.txIndex }
func (l *Log) BlockHash() Hash     { return l.blockHash }
func (l *Log) Index() uint         { return l.index }
func (l *Log) Removed() bool       { return l.removed }
func (l *Log) SetRemoved(r bool)   { l.removed = r }
