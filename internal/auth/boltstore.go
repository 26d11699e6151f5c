package auth

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/drivefetch/drivefetch/internal/misc"
	bolt "go.etcd.io/bbolt"
)

var (
	boltBucket = []byte("tokens")
	boltKey    = []byte(tokenType)
)

// BoltTokenStore persists the token in a single-bucket bbolt database. The
// database is opened per operation so the file is never held across the long
// waits of the consent flow.
type BoltTokenStore struct {
	path string
}

// NewBoltTokenStore creates a token store backed by a bbolt database at the
// given path.
func NewBoltTokenStore(path string) *BoltTokenStore {
	return &BoltTokenStore{path: path}
}

// Load reads the cached token from the database.
func (s *BoltTokenStore) Load(ctx context.Context) (*TokenStorage, error) {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return nil, ErrTokenNotFound
	}

	db, err := bolt.Open(s.path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("token store: open bolt db: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	var data []byte
	err = db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		if bucket == nil {
			return ErrTokenNotFound
		}
		value := bucket.Get(boltKey)
		if value == nil {
			return ErrTokenNotFound
		}
		data = append(data, value...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	ts, err := DecodeTokenStorage(data)
	if err != nil {
		return nil, fmt.Errorf("token store: %w", err)
	}
	return ts, nil
}

// Save writes the token into the database, creating it if needed.
func (s *BoltTokenStore) Save(ctx context.Context, ts *TokenStorage) error {
	data, err := ts.Encode()
	if err != nil {
		return fmt.Errorf("token store: %w", err)
	}
	misc.LogSavingCredentials(s.path)
	if err = os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("token store: create dir failed: %w", err)
	}

	db, err := bolt.Open(s.path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return fmt.Errorf("token store: open bolt db: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	return db.Update(func(tx *bolt.Tx) error {
		bucket, errBucket := tx.CreateBucketIfNotExists(boltBucket)
		if errBucket != nil {
			return fmt.Errorf("token store: create bucket: %w", errBucket)
		}
		return bucket.Put(boltKey, data)
	})
}

// Delete removes the cached token from the database.
func (s *BoltTokenStore) Delete(ctx context.Context) error {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return nil
	}

	db, err := bolt.Open(s.path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return fmt.Errorf("token store: open bolt db: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	return db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		if bucket == nil {
			return nil
		}
		return bucket.Delete(boltKey)
	})
}
