// Package bboltstore is a durable imagestore.Store backed by
// go.etcd.io/bbolt, namespaced into one bucket per library instance name
// so multiple msgist instances can safely share a single database file.
package bboltstore

import (
	"fmt"

	"go.etcd.io/bbolt"
)

// Store is a bbolt-backed imagestore.Store scoped to a single bucket.
type Store struct {
	db     *bbolt.DB
	bucket []byte
}

// Open opens (creating if necessary) the bbolt database at path and
// ensures a bucket named after instanceName exists.
func Open(path, instanceName string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("bboltstore: open %s: %w", path, err)
	}

	bucket := []byte(instanceName)
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("bboltstore: create bucket %s: %w", instanceName, err)
	}

	return &Store{db: db, bucket: bucket}, nil
}

// Close releases the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Put(uid, fileID []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).Put(uid, fileID)
	})
}

func (s *Store) Get(uid []byte) ([]byte, bool, error) {
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(s.bucket).Get(uid)
		if v != nil {
			out = make([]byte, len(v))
			copy(out, v)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("bboltstore: get: %w", err)
	}
	return out, out != nil, nil
}
