package types

// Body is the part of a block beyond the header: its transactions and,
// at most two, ommer (uncle) headers (spec §3).
type Body struct {
	Transactions Transactions
	Ommers       []*Header
}

// Block couples a header with its body. Block is the unit the sync
// engine assembles and the ledger executes.
type Block struct {
	header *Header
	body   Body
}

// NewBlock assembles a block from header, transactions and ommers. The
// caller is responsible for having set header.TransactionsRoot,
// header.OmmersHash and header.ReceiptsRoot beforehand; NewBlock does not
// compute them.
func NewBlock(header *Header, txs Transactions, ommers []*Header) *Block {
	return &Block{header: header, body: Body{Transactions: txs, Ommers: ommers}}
}

func (b *Block) Header() *Header            { return b.header }
func (b *Block) Body() *Body                { return &b.body }
func (b *Block) Transactions() Transactions { return b.body.Transactions }
func (b *Block) Ommers() []*Header          { return b.body.Ommers }
func (b *Block) Hash() Hash                 { return b.header.Hash() }
func (b *Block) NumberU64() uint64 {
	if b.header.Number == nil {
		return 0
	}
	return b.header.Number.Uint64()
}
func (b *Block) ParentHash() Hash { return b.header.ParentHash }
func (b *Block) GasLimit() uint64 { return b.header.GasLimit }
func (b *Block) GasUsed() uint64  { return b.header.GasUsed }

// BlockRLP is the wire/storage encoding of a block body plus header:
// [header, transactions, ommers]. Block's own header/body fields are
// unexported, so rawdb encodes/decodes through this mirror explicitly
// rather than relying on reflection over Block itself.
type BlockRLP struct {
	Header       *Header
	Transactions Transactions
	Ommers       []*Header
}

// ToRLP returns the storage encoding of the block.
func (b *Block) ToRLP() BlockRLP {
	return BlockRLP{Header: b.header, Transactions: b.body.Transactions, Ommers: b.body.Ommers}
}

// NewBlockFromRLP reassembles a Block from a decoded BlockRLP.
func NewBlockFromRLP(r BlockRLP) *Block {
	return &Block{header: r.Header, body: Body{Transactions: r.Transactions, Ommers: r.Ommers}}
}

// BodyRLP is the storage encoding of just a block body: [transactions,
// ommers], used when the header is stored separately (rawdb namespace
// "block_bodies").
type BodyRLP struct {
	Transactions Transactions
	Ommers       []*Header
}

// ToBodyRLP returns the body-only storage encoding.
func (b *Block) ToBodyRLP() BodyRLP {
	return BodyRLP{Transactions: b.body.Transactions, Ommers: b.body.Ommers}
}
