package trie

// node is implemented by every trie node shape: fullNode, shortNode,
// and the two leaf-level markers hashNode and valueNode.
type node interface {
	// cache reports the node's memoized hash (nil if never hashed) and
	// whether it has been mutated since that hash was computed.
	cache() (hashNode, bool)
}

// nodeFlag is embedded in the two mutable node shapes to memoize their
// Keccak hash across calls to CommitTrie; it is reset to dirty whenever
// the node it's attached to is replaced by an insert or delete.
type nodeFlag struct {
	hash  hashNode
	dirty bool
}

func (f nodeFlag) cache() (hashNode, bool) { return f.hash, f.dirty }

// fullNode is the 17-slot branch: Children[0:16] index by nibble value,
// Children[16] holds a value placed at the branch itself (a key that
// terminates exactly at this depth).
type fullNode struct {
	Children [17]node
	flags    nodeFlag
}

// shortNode collapses a run of nodes with no branching into a single
// path segment. Key is an expanded nibble path; a trailing terminator
// nibble (see encoding.go) distinguishes the two roles this type plays:
// an extension (Val points further into the trie) or a leaf (Val is a
// valueNode). Only the copies the hasher and commit pass encode carry
// the HP-compacted form.
type shortNode struct {
	Key   []byte
	Val   node
	flags nodeFlag
}

// hashNode is a 32-byte Keccak reference to a node that must be read
// back from the node database before it can be traversed further.
type hashNode []byte

// valueNode is the raw stored bytes at the end of a path; it never
// itself points further into the trie.
type valueNode []byte

func (n *fullNode) cache() (hashNode, bool)  { return n.flags.cache() }
func (n *shortNode) cache() (hashNode, bool) { return n.flags.cache() }
func (n hashNode) cache() (hashNode, bool)   { return nil, true }
func (n valueNode) cache() (hashNode, bool)  { return nil, true }

// copy shallow-clones a fullNode so the original can keep serving reads
// while the clone is mutated in place during an insert/delete.
func (n *fullNode) copy() *fullNode {
	cp := *n
	return &cp
}

// copy shallow-clones a shortNode for the same reason.
func (n *shortNode) copy() *shortNode {
	cp := *n
	return &cp
}
