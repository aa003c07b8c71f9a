package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BerylCAtieno/jamabandi-table-extractor/internal/table"
	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("tables")

// TableCache stores extracted tables keyed by document digest so a PDF that
// was already parsed is not parsed again.
type TableCache struct {
	DBPath string
	db     *bolt.DB
	mu     sync.RWMutex
}

// Init opens the BoltDB file and creates the bucket.
func (c *TableCache) Init() error {
	dbDir := filepath.Dir(c.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory for BoltDB: %w", err)
	}

	db, err := bolt.Open(c.DBPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to open BoltDB: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to create bucket: %w", err)
	}

	c.db = db
	return nil
}

// Get returns the cached tables for key. ok is false on a miss.
func (c *TableCache) Get(key string) (tables []table.Table, ok bool, err error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	err = c.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName).Get([]byte(key))
		if v == nil {
			return nil
		}
		ok = true
		return json.Unmarshal(v, &tables)
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}
	return tables, ok, nil
}

func (c *TableCache) Put(key string, tables []table.Table) error {
	data, err := json.Marshal(tables)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), data)
	})
}

func (c *TableCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(key))
	})
}

// Clear removes every entry.
func (c *TableCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketName); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketName)
		return err
	})
}

// Close closes the BoltDB database
func (c *TableCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
