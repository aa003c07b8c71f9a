package cache

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/table"
)

func newTestCache(t *testing.T) *TableCache {
	t.Helper()

	c := &TableCache{DBPath: filepath.Join(t.TempDir(), "sub", "cache.bolt")}
	if err := c.Init(); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestTableCachePutGet(t *testing.T) {
	c := newTestCache(t)

	tables := []table.Table{
		{Columns: []string{"Khasra", "Owner"}, Rows: [][]string{{"1", "ਰਾਮ"}, {"2", ""}}, Page: 1},
		{Columns: []string{"A"}, Rows: [][]string{}, Page: 2},
	}

	if _, ok, err := c.Get("abc"); err != nil || ok {
		t.Fatalf("Get on empty cache = ok %v, err %v", ok, err)
	}

	if err := c.Put("abc", tables); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	got, ok, err := c.Get("abc")
	if err != nil || !ok {
		t.Fatalf("Get = ok %v, err %v", ok, err)
	}
	if !reflect.DeepEqual(got, tables) {
		t.Errorf("Get = %+v, want %+v", got, tables)
	}
}

func TestTableCacheDeleteAndClear(t *testing.T) {
	c := newTestCache(t)

	one := []table.Table{{Columns: []string{"A"}, Rows: [][]string{{"x"}}}}
	for _, key := range []string{"a", "b", "c"} {
		if err := c.Put(key, one); err != nil {
			t.Fatal(err)
		}
	}

	if err := c.Delete("a"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, ok, _ := c.Get("a"); ok {
		t.Error("entry a should be gone after Delete")
	}
	if _, ok, _ := c.Get("b"); !ok {
		t.Error("entry b should survive Delete of a")
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}
	for _, key := range []string{"b", "c"} {
		if _, ok, _ := c.Get(key); ok {
			t.Errorf("entry %s should be gone after Clear", key)
		}
	}
}

func TestTableCacheReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.bolt")

	c := &TableCache{DBPath: path}
	if err := c.Init(); err != nil {
		t.Fatal(err)
	}
	if err := c.Put("k", []table.Table{{Columns: []string{"A"}, Rows: [][]string{}}}); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	c2 := &TableCache{DBPath: path}
	if err := c2.Init(); err != nil {
		t.Fatal(err)
	}
	defer c2.Close()

	if _, ok, err := c2.Get("k"); err != nil || !ok {
		t.Errorf("entry should persist across reopen, ok %v err %v", ok, err)
	}
}
