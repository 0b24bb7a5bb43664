package ethash

import (
	"github.com/etcnode/core-engine/core/types"
	"github.com/etcnode/core-engine/rlp"
	"github.com/etcnode/core-engine/trie"
)

// DeriveRoot builds the ordered (RLP(index) -> RLP(item)) trie the
// Yellow Paper uses for both the transactions root and the receipts
// root, and returns its hash.
func DeriveRoot(items []interface{}) types.Hash {
	t := trie.New()
	for i, item := range items {
		key, err := rlp.EncodeToBytes(uint64(i))
		if err != nil {
			panic("ethash: index encode: " + err.Error())
		}
		val, err := rlp.EncodeToBytes(item)
		if err != nil {
			panic("ethash: item encode: " + err.Error())
		}
		if err := t.Put(key, val); err != nil {
			panic("ethash: trie put: " + err.Error())
		}
	}
	return t.Hash()
}
