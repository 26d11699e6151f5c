package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/drivefetch/drivefetch/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func sampleStorage() *TokenStorage {
	return &TokenStorage{
		Token: &oauth2.Token{
			AccessToken:  "access",
			RefreshToken: "refresh",
			TokenType:    "Bearer",
			Expiry:       time.Now().Add(time.Hour).Truncate(time.Second),
		},
		ClientID: "client-id",
		TokenURI: "https://oauth2.googleapis.com/token",
		Scopes:   oauthScopes,
	}
}

func testStores(t *testing.T) map[string]TokenStore {
	t.Helper()
	return map[string]TokenStore{
		"file":   NewFileTokenStore(filepath.Join(t.TempDir(), "token.json")),
		"bolt":   NewBoltTokenStore(filepath.Join(t.TempDir(), "tokens.db")),
		"memory": NewMemoryTokenStore(),
	}
}

func TestTokenStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Load(ctx)
			require.ErrorIs(t, err, ErrTokenNotFound)

			require.NoError(t, store.Save(ctx, sampleStorage()))

			ts, err := store.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, "access", ts.Token.AccessToken)
			assert.Equal(t, "refresh", ts.Token.RefreshToken)
			assert.Equal(t, "client-id", ts.ClientID)
			assert.ElementsMatch(t, oauthScopes, ts.Scopes)
		})
	}
}

func TestTokenStoreDelete(t *testing.T) {
	ctx := context.Background()
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			// Deleting an absent token is not an error.
			require.NoError(t, store.Delete(ctx))

			require.NoError(t, store.Save(ctx, sampleStorage()))
			require.NoError(t, store.Delete(ctx))

			_, err := store.Load(ctx)
			require.ErrorIs(t, err, ErrTokenNotFound)
		})
	}
}

func TestTokenStoreSaveReplacesPrevious(t *testing.T) {
	ctx := context.Background()
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Save(ctx, sampleStorage()))

			updated := sampleStorage()
			updated.Token.AccessToken = "rotated"
			require.NoError(t, store.Save(ctx, updated))

			ts, err := store.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, "rotated", ts.Token.AccessToken)
		})
	}
}

func TestNewStoreSelectsBackend(t *testing.T) {
	cfg := &config.Config{TokenStore: "file", AuthDir: t.TempDir()}
	store, err := NewStore(cfg)
	require.NoError(t, err)
	assert.IsType(t, &FileTokenStore{}, store)

	cfg.TokenStore = "bolt"
	store, err = NewStore(cfg)
	require.NoError(t, err)
	assert.IsType(t, &BoltTokenStore{}, store)

	cfg.TokenStore = "redis"
	_, err = NewStore(cfg)
	require.Error(t, err)
}
