package imagestore

import (
	"encoding/binary"
	"fmt"

	"github.com/containust/containust/internal/ctsterr"
	"github.com/containust/containust/internal/identity"
	bolt "go.etcd.io/bbolt"
)

var refcountBucket = []byte("layer_refcounts")

// refcounts wraps the bbolt-backed layer reference count table. One image
// build acquires a reference to every layer it resolves; removing an image
// releases them. A layer is only eligible for eviction once its count
// reaches zero, keeping the layer/image relationship acyclic per the
// reference-counting data model.
type refcounts struct {
	db *bolt.DB
}

func openRefcounts(path string) (*refcounts, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, ctsterr.IOFailure(path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(refcountBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, ctsterr.Wrap(err, ctsterr.CategoryIO, ctsterr.CodeIOFailure, "failed to initialise refcount store")
	}
	return &refcounts{db: db}, nil
}

func (r *refcounts) Close() error {
	return r.db.Close()
}

// Acquire increments the reference count for hash and returns the new count.
func (r *refcounts) Acquire(hash identity.ContentHash) (int, error) {
	var count int
	err := r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(refcountBucket)
		count = getCount(b, hash) + 1
		return putCount(b, hash, count)
	})
	if err != nil {
		return 0, ctsterr.Wrap(err, ctsterr.CategoryIO, ctsterr.CodeIOFailure, "failed to acquire layer reference")
	}
	return count, nil
}

// Release decrements the reference count for hash and returns the new
// count. It never goes below zero; releasing an already-zero count is a
// no-op that returns zero, which callers should generally not hit but which
// avoids a negative count if image bookkeeping is ever inconsistent.
func (r *refcounts) Release(hash identity.ContentHash) (int, error) {
	var count int
	err := r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(refcountBucket)
		count = getCount(b, hash)
		if count > 0 {
			count--
		}
		return putCount(b, hash, count)
	})
	if err != nil {
		return 0, ctsterr.Wrap(err, ctsterr.CategoryIO, ctsterr.CodeIOFailure, "failed to release layer reference")
	}
	return count, nil
}

// Count returns the current reference count for hash without mutating it.
func (r *refcounts) Count(hash identity.ContentHash) (int, error) {
	var count int
	err := r.db.View(func(tx *bolt.Tx) error {
		count = getCount(tx.Bucket(refcountBucket), hash)
		return nil
	})
	if err != nil {
		return 0, ctsterr.Wrap(err, ctsterr.CategoryIO, ctsterr.CodeIOFailure, "failed to read layer reference count")
	}
	return count, nil
}

func getCount(b *bolt.Bucket, hash identity.ContentHash) int {
	v := b.Get([]byte(hash.String()))
	if v == nil {
		return 0
	}
	return int(binary.BigEndian.Uint64(v))
}

func putCount(b *bolt.Bucket, hash identity.ContentHash, count int) error {
	if count < 0 {
		return fmt.Errorf("negative refcount for %s", hash)
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(count))
	return b.Put([]byte(hash.String()), buf)
}
