// Package rawdb implements the namespaced accessor functions for every
// persisted record kind the core needs (spec §4.1): block headers and
// bodies, receipts, trie/contract-code nodes, total difficulty, the
// canonical number->hash and tx->block mappings, and small named
// "app_state" values such as the best block number.
package rawdb

import "github.com/etcnode/core-engine/ethdb"

// Table namespaces an ethdb.Database by prepending prefix to every key,
// mirroring go-ethereum's own rawdb table pattern. Namespaces never
// expose cross-namespace key ordering (spec §4.1).
type Table struct {
	db     ethdb.Database
	prefix []byte
}

// NewTable returns a Table restricted to keys under prefix.
func NewTable(db ethdb.Database, prefix []byte) *Table {
	return &Table{db: db, prefix: prefix}
}

func (t *Table) key(k []byte) []byte {
	buf := make([]byte, len(t.prefix)+len(k))
	copy(buf, t.prefix)
	copy(buf[len(t.prefix):], k)
	return buf
}

func (t *Table) Has(key []byte) (bool, error) { return t.db.Has(t.key(key)) }
func (t *Table) Get(key []byte) ([]byte, error) { return t.db.Get(t.key(key)) }
func (t *Table) Put(key, value []byte) error  { return t.db.Put(t.key(key), value) }
func (t *Table) Delete(key []byte) error      { return t.db.Delete(t.key(key)) }

func (t *Table) NewIterator(prefix []byte) ethdb.Iterator {
	return &tableIterator{it: t.db.NewIterator(t.key(prefix)), skip: len(t.prefix)}
}

type tableIterator struct {
	it   ethdb.Iterator
	skip int
}

func (it *tableIterator) Next() bool  { return it.it.Next() }
func (it *tableIterator) Key() []byte { return it.it.Key()[it.skip:] }
func (it *tableIterator) Value() []byte { return it.it.Value() }
func (it *tableIterator) Release()    { it.it.Release() }

// tableBatch batches writes destined for one table.
type tableBatch struct {
	b      ethdb.Batch
	prefix []byte
}

func (t *Table) NewBatch() ethdb.Batch {
	return &tableBatch{b: t.db.(ethdb.Batcher).NewBatch(), prefix: t.prefix}
}

func (tb *tableBatch) key(k []byte) []byte {
	buf := make([]byte, len(tb.prefix)+len(k))
	copy(buf, tb.prefix)
	copy(buf[len(tb.prefix):], k)
	return buf
}

func (tb *tableBatch) Put(key, value []byte) error { return tb.b.Put(tb.key(key), value) }
func (tb *tableBatch) Delete(key []byte) error     { return tb.b.Delete(tb.key(key)) }
func (tb *tableBatch) ValueSize() int              { return tb.b.ValueSize() }
func (tb *tableBatch) Write() error                { return tb.b.Write() }
func (tb *tableBatch) Reset()                      { tb.b.Reset() }
