package trie

import (
	"errors"
	"sync"

	"github.com/VictoriaMetrics/fastcache"

	"github.com/etcnode/core-engine/core/types"
	"github.com/etcnode/core-engine/crypto"
	"github.com/etcnode/core-engine/ethdb"
	"github.com/etcnode/core-engine/rawdb"
)

// ErrNodeNotFound is returned when a hash-referenced node cannot be
// located in either the dirty cache or the backing database.
var ErrNodeNotFound = errors.New("trie: node not found in database")

// defaultCleanCacheSize bounds the clean-node read cache. Sized small by
// default since most deployments of this package are tests or short-lived
// tooling, not a long-running archive node; NewNodeDatabaseWithCache lets
// a caller raise it.
const defaultCleanCacheSize = 8 * 1024 * 1024

// NodeDatabase stores trie nodes in a two-layer cache: nodes produced
// since the last commit live in the dirty map, everything older is
// read through a fastcache clean-node cache to the backing key-value
// store's "nodes" namespace (spec §4.1). A NodeDatabase with a nil
// backing store is purely in-memory, useful for scratch tries such as
// a block's receipt trie, and skips the clean cache entirely.
type NodeDatabase struct {
	mu    sync.RWMutex
	dirty map[types.Hash][]byte
	disk  ethdb.Database
	clean *fastcache.Cache
	size  int
}

// NewNodeDatabase creates a trie node database backed by disk. Pass nil
// for an in-memory-only database.
func NewNodeDatabase(disk ethdb.Database) *NodeDatabase {
	return NewNodeDatabaseWithCache(disk, defaultCleanCacheSize)
}

// NewNodeDatabaseWithCache is NewNodeDatabase with an explicit clean-node
// cache size in bytes; cleanCacheSize <= 0 disables the cache.
func NewNodeDatabaseWithCache(disk ethdb.Database, cleanCacheSize int) *NodeDatabase {
	db := &NodeDatabase{dirty: make(map[types.Hash][]byte), disk: disk}
	if disk != nil && cleanCacheSize > 0 {
		db.clean = fastcache.New(cleanCacheSize)
	}
	return db
}

// Disk returns the backing key-value store, or nil for an in-memory-only
// database. core/state uses this to read and write contract code, which
// lives in the same store under the "evm_code" namespace rather than
// among trie nodes.
func (db *NodeDatabase) Disk() ethdb.Database { return db.disk }

// Node retrieves the RLP-encoded trie node with the given hash, dirty
// cache first and falling back to disk.
func (db *NodeDatabase) Node(hash types.Hash) ([]byte, error) {
	if hash.IsZero() {
		return nil, ErrNodeNotFound
	}

	db.mu.RLock()
	if data, ok := db.dirty[hash]; ok {
		db.mu.RUnlock()
		return data, nil
	}
	db.mu.RUnlock()

	if db.disk == nil {
		return nil, ErrNodeNotFound
	}

	if db.clean != nil {
		if data, found := db.clean.HasGet(nil, hash[:]); found {
			return data, nil
		}
	}

	data, err := rawdb.ReadTrieNode(db.disk, hash)
	if err != nil {
		return nil, ErrNodeNotFound
	}
	if db.clean != nil {
		db.clean.Set(hash[:], data)
	}
	return data, nil
}

// InsertNode stages a trie node in the dirty cache, pending Commit.
func (db *NodeDatabase) InsertNode(hash types.Hash, data []byte) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.dirty[hash]; !ok {
		db.size += len(data)
	}
	db.dirty[hash] = data
}

// DirtySize returns the total byte size of uncommitted nodes.
func (db *NodeDatabase) DirtySize() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.size
}

// DirtyCount returns the number of uncommitted nodes.
func (db *NodeDatabase) DirtyCount() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.dirty)
}

// Commit writes every dirty node to the backing database and clears the
// cache. A nil backing store makes Commit a pure cache flush.
func (db *NodeDatabase) Commit() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.disk != nil {
		for hash, data := range db.dirty {
			if err := rawdb.WriteTrieNode(db.disk, hash, data); err != nil {
				return err
			}
			if db.clean != nil {
				db.clean.Set(hash[:], data)
			}
		}
	}
	db.dirty = make(map[types.Hash][]byte)
	db.size = 0
	return nil
}

// CommitTrie hashes every dirty node of t, stages the encodings in db,
// and returns the new root hash. Call db.Commit afterwards to persist.
func CommitTrie(t *Trie, db *NodeDatabase) (types.Hash, error) {
	if t.root == nil {
		return EmptyRoot, nil
	}

	h := newHasher()
	root, cached := commitNode(h, t.root, db)
	t.root = cached

	switch n := root.(type) {
	case hashNode:
		return types.BytesToHash(n), nil
	default:
		enc, err := encodeNode(root)
		if err != nil {
			return types.Hash{}, err
		}
		hash := crypto.Keccak256Hash(enc)
		db.InsertNode(hash, enc)
		return hash, nil
	}
}

func commitNode(h *hasher, n node, db *NodeDatabase) (node, node) {
	switch n := n.(type) {
	case nil:
		return nil, nil

	case valueNode:
		return n, n

	case hashNode:
		return n, n

	case *shortNode:
		collapsed := n.copy()
		collapsed.Key = hexToCompact(n.Key)

		cached := n.copy()
		if _, ok := n.Val.(valueNode); !ok {
			childH, childC := commitNode(h, n.Val, db)
			collapsed.Val = childH
			cached.Val = childC
		}

		enc, err := encodeNode(collapsed)
		if err != nil {
			return collapsed, cached
		}
		if len(enc) >= 32 {
			hash := crypto.Keccak256(enc)
			db.InsertNode(types.BytesToHash(hash), enc)
			hn := hashNode(hash)
			cached.flags.hash = hn
			cached.flags.dirty = false
			return hn, cached
		}
		return collapsed, cached

	case *fullNode:
		collapsed := n.copy()
		cached := n.copy()

		for i := 0; i < 16; i++ {
			if n.Children[i] != nil {
				childH, childC := commitNode(h, n.Children[i], db)
				collapsed.Children[i] = childH
				cached.Children[i] = childC
			}
		}

		enc, err := encodeNode(collapsed)
		if err != nil {
			return collapsed, cached
		}
		if len(enc) >= 32 {
			hash := crypto.Keccak256(enc)
			db.InsertNode(types.BytesToHash(hash), enc)
			hn := hashNode(hash)
			cached.flags.hash = hn
			cached.flags.dirty = false
			return hn, cached
		}
		return collapsed, cached
	}

	return n, n
}

// ResolvableTrie is a Trie whose hashNode references resolve on demand
// against a NodeDatabase, so a trie can be reopened from a state root
// alone (spec §4.2's world-state trie, account storage tries, the
// transactions and receipts tries of a block).
type ResolvableTrie struct {
	Trie
	db *NodeDatabase
}

// NewResolvableTrie opens the trie rooted at root. The empty root hash
// (and the zero hash) both yield an empty trie with no database read.
// Get, Put and Delete are the embedded Trie's own algorithms: the trie's
// resolve hook fetches any hashNode the walk reaches from the node
// database, however deep in the path it sits.
func NewResolvableTrie(root types.Hash, db *NodeDatabase) (*ResolvableTrie, error) {
	t := &ResolvableTrie{db: db}
	t.Trie.resolve = t.resolveHash
	if root == EmptyRoot || root.IsZero() {
		return t, nil
	}

	rootNode, err := t.resolveHash(hashNode(root.Bytes()))
	if err != nil {
		return nil, err
	}
	t.root = rootNode
	return t, nil
}

func (t *ResolvableTrie) resolveHash(hash hashNode) (node, error) {
	h := types.BytesToHash(hash)
	data, err := t.db.Node(h)
	if err != nil {
		return nil, err
	}
	return decodeNode(hash, data)
}

// Commit stages all dirty nodes in the underlying NodeDatabase and
// returns the new root hash; call db.Commit to flush them to disk.
func (t *ResolvableTrie) Commit() (types.Hash, error) {
	return CommitTrie(&t.Trie, t.db)
}
