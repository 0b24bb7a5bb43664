package types

// Receipt records the outcome of executing one transaction: the resulting
// (pre-Byzantium) state root, gas accounting, and the logs it emitted
// (spec §3). PostState is the intermediate state root after this
// transaction within the block, per the pre-Byzantium receipt format this
// spec targets (no status byte).
type Receipt struct {
	PostState         Hash
	CumulativeGasUsed uint64
	Bloom             Bloom
	Logs              []*Log
}

// NewReceipt builds a receipt from the logs emitted by one transaction
// and fills in its bloom filter.
func NewReceipt(postState Hash, cumulativeGasUsed uint64, logs []*Log) *Receipt {
	return &Receipt{
		PostState:         postState,
		CumulativeGasUsed: cumulativeGasUsed,
		Bloom:             CreateBloom(logs),
		Logs:              logs,
	}
}

// GasUsed computes the gas used by this transaction alone, given the
// cumulative gas used by the previous receipt in the block (0 for the
// first transaction).
func (r *Receipt) GasUsed(prevCumulative uint64) uint64 {
	return r.CumulativeGasUsed - prevCumulative
}

// Receipts is a list of receipts, used to compute the block's receipts
// root trie and the block-level logs bloom.
type Receipts []*Receipt

// Bloom returns the OR of every receipt's bloom filter.
func (rs Receipts) Bloom() Bloom {
	blooms := make([]Bloom, len(rs))
	for i, r := range rs {
		blooms[i] = r.Bloom
	}
	return MergeBlooms(blooms)
}

// TotalGasUsed returns the gas used by the last receipt, i.e. the block's
// total gas used (spec §4.5 post-execution check).
func (rs Receipts) TotalGasUsed() uint64 {
	if len(rs) == 0 {
		return 0
	}
	return rs[len(rs)-1].CumulativeGasUsed
}
