package types

import "github.com/etcnode/core-engine/crypto"

// CreateBloom builds the 2048-bit log bloom filter for a list of log
// entries: each log's address and topics contribute 3 set bits, located at
// the low-11-bits of three non-overlapping 2-byte slices of that value's
// Keccak-256 hash (spec §3).
func CreateBloom(logs []*Log) Bloom {
	var b Bloom
	for _, l := range logs {
		b.add(l.Address.Bytes())
		for _, t := range l.Topics {
			b.add(t.Bytes())
		}
	}
	return b
}

// add ORs in the 3 bits that data's bloom contribution sets.
func (b *Bloom) add(data []byte) {
	hash := crypto.Keccak256(data)
	for i := 0; i < 6; i += 2 {
		bit := (uint(hash[i+1]) + (uint(hash[i]) << 8)) & 0x7ff
		byteIdx := BloomLength - 1 - bit/8
		bitMask := byte(1) << (bit % 8)
		b[byteIdx] |= bitMask
	}
}

// MergeBlooms ORs a set of per-receipt blooms into one block-level bloom,
// spec §3/§4.5's logs_bloom.
func MergeBlooms(blooms []Bloom) Bloom {
	var out Bloom
	for _, bl := range blooms {
		out = out.OrWith(bl)
	}
	return out
}
