package auth

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/drivefetch/drivefetch/internal/config"
	"github.com/drivefetch/drivefetch/internal/misc"
)

// Token file names below the configured auth directory.
const (
	fileStoreName = "token.json"
	boltStoreName = "tokens.db"
)

// TokenStore persists the cached OAuth token between runs. Implementations
// are not safe for concurrent process instances; drivefetch is a single-user
// local tool.
type TokenStore interface {
	// Load returns the cached token, or ErrTokenNotFound when none exists.
	Load(ctx context.Context) (*TokenStorage, error)
	// Save persists the token, replacing any previous one.
	Save(ctx context.Context, ts *TokenStorage) error
	// Delete removes the cached token. Deleting an absent token is not an error.
	Delete(ctx context.Context) error
}

// NewStore builds the token store selected by the configuration.
func NewStore(cfg *config.Config) (TokenStore, error) {
	switch cfg.TokenStore {
	case "file":
		return NewFileTokenStore(filepath.Join(cfg.AuthDir, fileStoreName)), nil
	case "bolt":
		return NewBoltTokenStore(filepath.Join(cfg.AuthDir, boltStoreName)), nil
	default:
		return nil, fmt.Errorf("unknown token store backend %q", cfg.TokenStore)
	}
}

// FileTokenStore persists the token as a JSON file on disk.
type FileTokenStore struct {
	mu   sync.Mutex
	path string
}

// NewFileTokenStore creates a token store backed by the given file path.
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// Load reads and decodes the token file.
func (s *FileTokenStore) Load(ctx context.Context) (*TokenStorage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("token store: read failed: %w", err)
	}
	ts, err := DecodeTokenStorage(data)
	if err != nil {
		return nil, fmt.Errorf("token store: %w", err)
	}
	return ts, nil
}

// Save writes the token with a temp-file rename so a crash never leaves a
// truncated token behind.
func (s *FileTokenStore) Save(ctx context.Context, ts *TokenStorage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := ts.Encode()
	if err != nil {
		return fmt.Errorf("token store: %w", err)
	}
	misc.LogSavingCredentials(s.path)
	if err = os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("token store: create dir failed: %w", err)
	}
	tmp := s.path + ".tmp"
	if err = os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("token store: write temp failed: %w", err)
	}
	if err = os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("token store: rename failed: %w", err)
	}
	return nil
}

// Delete removes the token file.
func (s *FileTokenStore) Delete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("token store: delete failed: %w", err)
	}
	return nil
}

// MemoryTokenStore keeps the token in memory. It exists for tests.
type MemoryTokenStore struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryTokenStore creates an empty in-memory token store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

// Load decodes the held token, or returns ErrTokenNotFound.
func (s *MemoryTokenStore) Load(ctx context.Context) (*TokenStorage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return nil, ErrTokenNotFound
	}
	return DecodeTokenStorage(s.data)
}

// Save encodes and holds the token.
func (s *MemoryTokenStore) Save(ctx context.Context, ts *TokenStorage) error {
	data, err := ts.Encode()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}

// Delete drops the held token.
func (s *MemoryTokenStore) Delete(ctx context.Context) error {
	s.mu.Lock()
	s.data = nil
	s.mu.Unlock()
	return nil
}
