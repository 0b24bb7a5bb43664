package trie

import "github.com/etcnode/core-engine/core/types"

// DecodeSyncNode splits a raw trie node blob into the hashes of children
// stored as separate nodes and the values carried at this node (a leaf's
// value or a branch's own value slot), so a state-sync worklist can
// expand breadth-first and classify account leaves without holding a
// full *NodeDatabase. Inlined children are walked through transparently:
// their own references and values surface in the same two lists.
func DecodeSyncNode(blob []byte) (children []types.Hash, values [][]byte, err error) {
	n, err := decodeNode(nil, blob)
	if err != nil {
		return nil, nil, err
	}
	collectSyncRefs(n, &children, &values)
	return children, values, nil
}

// ChildHashes is DecodeSyncNode restricted to the child references,
// tolerating undecodable blobs by returning nothing.
func ChildHashes(blob []byte) []types.Hash {
	children, _, err := DecodeSyncNode(blob)
	if err != nil {
		return nil
	}
	return children
}

func collectSyncRefs(n node, children *[]types.Hash, values *[][]byte) {
	switch n := n.(type) {
	case *shortNode:
		collectSyncRefs(n.Val, children, values)
	case *fullNode:
		for _, child := range n.Children {
			if child != nil {
				collectSyncRefs(child, children, values)
			}
		}
	case hashNode:
		if len(n) == len(types.Hash{}) {
			*children = append(*children, types.BytesToHash(n))
		}
	case valueNode:
		if len(n) > 0 {
			*values = append(*values, []byte(n))
		}
	}
}
