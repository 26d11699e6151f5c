package auth

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"golang.org/x/oauth2"
)

// tokenType tags persisted tokens so the store can reject foreign files.
const tokenType = "google-drive"

// TokenStorage carries an OAuth2 token together with the provider fields
// stamped into the serialized form, matching the token layout the Google
// client libraries produce for authorized-user files.
type TokenStorage struct {
	// Token holds the raw OAuth2 token data, including access and refresh tokens.
	Token *oauth2.Token

	// ClientID is the OAuth client the token was issued to.
	ClientID string

	// TokenURI is the endpoint used to refresh the token.
	TokenURI string

	// Scopes are the scopes granted during consent.
	Scopes []string
}

// Encode serializes the token and stamps the provider fields into the JSON
// document.
func (ts *TokenStorage) Encode() ([]byte, error) {
	if ts.Token == nil {
		return nil, fmt.Errorf("token storage has no token")
	}
	data, err := json.Marshal(ts.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal token: %w", err)
	}
	if data, err = sjson.SetBytes(data, "client_id", ts.ClientID); err != nil {
		return nil, fmt.Errorf("failed to stamp client_id: %w", err)
	}
	if data, err = sjson.SetBytes(data, "token_uri", ts.TokenURI); err != nil {
		return nil, fmt.Errorf("failed to stamp token_uri: %w", err)
	}
	if data, err = sjson.SetBytes(data, "scopes", ts.Scopes); err != nil {
		return nil, fmt.Errorf("failed to stamp scopes: %w", err)
	}
	if data, err = sjson.SetBytes(data, "type", tokenType); err != nil {
		return nil, fmt.Errorf("failed to stamp type: %w", err)
	}
	return data, nil
}

// DecodeTokenStorage parses a serialized token produced by Encode.
func DecodeTokenStorage(data []byte) (*TokenStorage, error) {
	if typ := gjson.GetBytes(data, "type").String(); typ != tokenType {
		return nil, fmt.Errorf("unexpected token type %q", typ)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}
	if token.RefreshToken == "" && token.AccessToken == "" {
		return nil, fmt.Errorf("stored token carries neither an access nor a refresh token")
	}

	ts := &TokenStorage{
		Token:    &token,
		ClientID: gjson.GetBytes(data, "client_id").String(),
		TokenURI: gjson.GetBytes(data, "token_uri").String(),
	}
	for _, scope := range gjson.GetBytes(data, "scopes").Array() {
		ts.Scopes = append(ts.Scopes, scope.String())
	}
	return ts, nil
}

// HasScopes reports whether every required scope was granted to this token.
func (ts *TokenStorage) HasScopes(required []string) bool {
	granted := make(map[string]bool, len(ts.Scopes))
	for _, scope := range ts.Scopes {
		granted[scope] = true
	}
	for _, scope := range required {
		if !granted[scope] {
			return false
		}
	}
	return true
}
