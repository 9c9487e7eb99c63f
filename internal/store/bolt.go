package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketBulbs = []byte("bulbs")

// BoltStore implements Store using BoltDB.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens or creates a BoltDB database.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketBulbs)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func key(address string) []byte {
	return []byte(strings.ToUpper(address))
}

func (s *BoltStore) SaveBulb(rec *Bulb) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBulbs)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketBulbs)
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put(key(rec.Address), data)
	})
}

func (s *BoltStore) GetBulb(address string) (*Bulb, error) {
	var rec Bulb
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBulbs)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketBulbs)
		}
		data := b.Get(key(address))
		if data == nil {
			return fmt.Errorf("bulb %s: %w", address, ErrNotFound)
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *BoltStore) DeleteBulb(address string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBulbs)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketBulbs)
		}
		return b.Delete(key(address))
	})
}

func (s *BoltStore) ListBulbs() ([]*Bulb, error) {
	var bulbs []*Bulb
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBulbs)
		if b == nil {
			return nil // no bucket = no bulbs
		}
		bulbs = make([]*Bulb, 0, b.Stats().KeyN)
		return b.ForEach(func(k, v []byte) error {
			var rec Bulb
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			bulbs = append(bulbs, &rec)
			return nil
		})
	})
	return bulbs, err
}

func (s *BoltStore) UpdateBulb(address string, fn func(rec *Bulb) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBulbs)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketBulbs)
		}
		data := b.Get(key(address))
		if data == nil {
			return fmt.Errorf("bulb %s: %w", address, ErrNotFound)
		}
		var rec Bulb
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		if err := fn(&rec); err != nil {
			return err
		}
		updated, err := json.Marshal(&rec)
		if err != nil {
			return err
		}
		return b.Put(key(address), updated)
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
