// Package ethdb defines the low-level key-value storage interface used by
// every persistence layer in the node (headers, bodies, receipts, trie
// nodes, code, sync state) and the in-memory/LevelDB backends that
// implement it (spec §4.1).
package ethdb

import "errors"

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("ethdb: not found")

// KeyValueReader wraps the read side of a key-value store.
type KeyValueReader interface {
	Has(key []byte) (bool, error)
	Get(key []byte) ([]byte, error)
}

// KeyValueWriter wraps the write side of a key-value store.
type KeyValueWriter interface {
	Put(key, value []byte) error
	Delete(key []byte) error
}

// KeyValueStore is a synchronous, namespaced-by-convention key-value
// store (the namespaces of spec §4.1 are implemented as key prefixes).
type KeyValueStore interface {
	KeyValueReader
	KeyValueWriter
	Close() error
}

// Iterator walks a key range in ascending lexicographic key order.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
}

// Iteratee wraps the NewIterator method.
type Iteratee interface {
	NewIterator(prefix []byte) Iterator
}

// Batch collects writes for atomic application, spec §4.1's
// `batch(updates)` operation.
type Batch interface {
	KeyValueWriter
	ValueSize() int
	Write() error
	Reset()
}

// Batcher wraps the NewBatch method.
type Batcher interface {
	NewBatch() Batch
}

// Database is the full interface a backend must satisfy.
type Database interface {
	KeyValueStore
	Batcher
	Iteratee
}
