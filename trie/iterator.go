package trie

// Depth-first key-value iteration over a trie, in lexicographic key
// order. Both exported iterator types share one traversal engine below
// (iterState.advance); they differ only in what happens when the walk
// reaches a hashNode. A plain *Trie has nothing to resolve it against
// and iteration fails; a *ResolvableTrie reads the referenced node from
// its backing database and keeps going.
//
//	it := NewIterator(t)
//	for it.Next() {
//	    key, value := it.Key, it.Value
//	}
//	if err := it.Err(); err != nil {
//	    // handle error
//	}

// iterFrame is one level of the traversal stack.
type iterFrame struct {
	node  node
	path  []byte // accumulated hex nibble path to this node
	index int    // fullNode: next slot to visit (0=value, 1-16=children); shortNode: 0 or 1
}

// iterState holds the walk position and last-emitted pair; it is
// embedded by both Iterator and ResolvableIterator.
type iterState struct {
	Key   []byte
	Value []byte
	stack []iterFrame
	err   error
}

func newIterState(root node) iterState {
	if root == nil {
		return iterState{}
	}
	return iterState{stack: []iterFrame{{node: root}}}
}

// resolveFunc turns a hashNode into the node it references, or reports
// why it couldn't. A nil resolveFunc means hash nodes are unsupported.
type resolveFunc func(hashNode) (node, error)

// advance runs one step of the shared depth-first walk and reports
// whether a new key-value pair is now available in Key/Value.
func (s *iterState) advance(resolve resolveFunc) bool {
	for len(s.stack) > 0 {
		top := &s.stack[len(s.stack)-1]

		switch n := top.node.(type) {
		case *shortNode:
			if top.index > 0 {
				s.stack = s.stack[:len(s.stack)-1]
				continue
			}
			top.index = 1
			path := concat(top.path, n.Key)

			if v, ok := n.Val.(valueNode); ok {
				s.emitLeaf(path, v)
				return true
			}
			s.stack = append(s.stack, iterFrame{node: n.Val, path: path})

		case *fullNode:
			if !s.descendFull(top, n) {
				s.stack = s.stack[:len(s.stack)-1]
				continue
			}
			if s.Key != nil {
				return true
			}

		case valueNode:
			s.stack = s.stack[:len(s.stack)-1]
			if !s.emitAtPath(top.path, n) {
				continue
			}
			return true

		case hashNode:
			if resolve == nil {
				s.err = ErrNotFound
				s.stack = s.stack[:0]
				return false
			}
			resolved, err := resolve(n)
			if err != nil {
				s.err = err
				s.stack = s.stack[:0]
				return false
			}
			top.node = resolved

		default:
			s.stack = s.stack[:len(s.stack)-1]
		}
	}
	return false
}

// descendFull advances a fullNode frame by one slot: emitting the
// branch's own value (slot 0) or pushing the next non-nil child. It
// reports whether the frame still has work left (false means the
// caller should pop it); s.Key is left non-nil only when a value was
// just emitted.
func (s *iterState) descendFull(top *iterFrame, n *fullNode) bool {
	s.Key = nil
	for top.index <= 16 {
		idx := top.index
		top.index++

		if idx == 0 {
			if v, ok := n.Children[16].(valueNode); ok && len(top.path)%2 == 0 {
				s.emitLeaf(top.path, v)
				return true
			}
			continue
		}

		childIdx := idx - 1
		child := n.Children[childIdx]
		if child == nil {
			continue
		}
		s.stack = append(s.stack, iterFrame{
			node: child,
			path: concat(top.path, []byte{byte(childIdx)}),
		})
		return true
	}
	return false
}

// emitLeaf records path/value as the current pair, stripping the
// terminator nibble from path if present.
func (s *iterState) emitLeaf(path, value valueNode) {
	if hasTerm(path) {
		s.Key = hexToKeybytes(path[:len(path)-1])
	} else {
		s.Key = hexToKeybytes(path)
	}
	s.Value = append([]byte(nil), value...)
}

// emitAtPath handles a bare valueNode found directly on the stack: it
// only represents a real key when the path already carries a
// terminator, or has even nibble count (no dangling half-byte).
func (s *iterState) emitAtPath(path []byte, v valueNode) bool {
	switch {
	case hasTerm(path):
		s.Key = hexToKeybytes(path[:len(path)-1])
	case len(path)%2 == 0:
		s.Key = hexToKeybytes(path)
	default:
		s.stack = s.stack[:0]
		return false
	}
	s.Value = append([]byte(nil), v...)
	return true
}

func (s *iterState) Err() error { return s.err }

// NodeCount reports how many frames remain on the traversal stack, a
// rough gauge of how much of the trie is left to walk.
func (s *iterState) NodeCount() int { return len(s.stack) }

// Iterator walks an in-memory trie. It cannot cross a hashNode: a trie
// holding unresolved hash references needs ResolvableIterator instead.
type Iterator struct {
	iterState
	trie *Trie
}

// NewIterator starts an iterator positioned before the trie's first
// key. Call Next to advance.
func NewIterator(t *Trie) *Iterator {
	return &Iterator{iterState: newIterState(t.root), trie: t}
}

func (it *Iterator) Next() bool { return it.advance(nil) }

// ResolvableIterator walks a database-backed trie, fetching hash nodes
// from the trie's node database as the walk reaches them.
type ResolvableIterator struct {
	iterState
	trie *ResolvableTrie
}

// NewResolvableIterator starts an iterator over a database-backed trie.
func NewResolvableIterator(t *ResolvableTrie) *ResolvableIterator {
	return &ResolvableIterator{iterState: newIterState(t.root), trie: t}
}

func (it *ResolvableIterator) Next() bool { return it.advance(it.trie.resolveHash) }
