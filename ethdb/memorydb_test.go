package ethdb_test

import (
	"bytes"
	"testing"

	"github.com/etcnode/core-engine/ethdb"
)

func TestMemoryDBPutGetHasDelete(t *testing.T) {
	db := ethdb.NewMemoryDB()

	if ok, _ := db.Has([]byte("k")); ok {
		t.Fatalf("Has on empty db = true")
	}
	if _, err := db.Get([]byte("k")); err != ethdb.ErrNotFound {
		t.Fatalf("Get on missing key err = %v, want ErrNotFound", err)
	}

	if err := db.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if ok, _ := db.Has([]byte("k")); !ok {
		t.Fatalf("Has after Put = false")
	}
	got, err := db.Get([]byte("k"))
	if err != nil || !bytes.Equal(got, []byte("v")) {
		t.Fatalf("Get = %q, %v, want %q, nil", got, err, "v")
	}

	if err := db.Delete([]byte("k")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if ok, _ := db.Has([]byte("k")); ok {
		t.Fatalf("Has after Delete = true")
	}
}

func TestMemoryDBGetReturnsACopyNotTheStoredSlice(t *testing.T) {
	db := ethdb.NewMemoryDB()
	db.Put([]byte("k"), []byte("v"))

	got, _ := db.Get([]byte("k"))
	got[0] = 'x'

	got2, _ := db.Get([]byte("k"))
	if !bytes.Equal(got2, []byte("v")) {
		t.Fatalf("mutating a Get result corrupted stored data: %q", got2)
	}
}

func TestMemoryDBBatchAppliesAtomicallyOnWrite(t *testing.T) {
	db := ethdb.NewMemoryDB()
	db.Put([]byte("existing"), []byte("old"))

	batch := db.NewBatch()
	batch.Put([]byte("new"), []byte("1"))
	batch.Delete([]byte("existing"))

	if ok, _ := db.Has([]byte("new")); ok {
		t.Fatalf("batched Put visible before Write")
	}
	if ok, _ := db.Has([]byte("existing")); !ok {
		t.Fatalf("batched Delete visible before Write")
	}

	if err := batch.Write(); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if ok, _ := db.Has([]byte("new")); !ok {
		t.Fatalf("batched Put not applied after Write")
	}
	if ok, _ := db.Has([]byte("existing")); ok {
		t.Fatalf("batched Delete not applied after Write")
	}
}

func TestMemoryDBBatchResetClearsPendingOps(t *testing.T) {
	db := ethdb.NewMemoryDB()
	batch := db.NewBatch()
	batch.Put([]byte("k"), []byte("v"))
	batch.Reset()
	if err := batch.Write(); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if ok, _ := db.Has([]byte("k")); ok {
		t.Fatalf("reset batch still wrote its discarded op")
	}
}

func TestMemoryDBIteratorRespectsPrefixAndOrder(t *testing.T) {
	db := ethdb.NewMemoryDB()
	db.Put([]byte("a-1"), []byte("1"))
	db.Put([]byte("a-2"), []byte("2"))
	db.Put([]byte("b-1"), []byte("3"))

	it := db.NewIterator([]byte("a-"))
	defer it.Release()

	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	if len(keys) != 2 || keys[0] != "a-1" || keys[1] != "a-2" {
		t.Fatalf("iterator keys = %v, want [a-1 a-2] in order", keys)
	}
}
