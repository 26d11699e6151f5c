package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2/google"
)

func writeClientSecret(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "client_secret.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadClientCredentialInstalled(t *testing.T) {
	path := writeClientSecret(t, `{
		"installed": {
			"client_id": "id.apps.googleusercontent.com",
			"client_secret": "secret",
			"auth_uri": "https://accounts.google.com/o/oauth2/auth",
			"token_uri": "https://oauth2.googleapis.com/token"
		}
	}`)

	credential, err := LoadClientCredential(path)
	require.NoError(t, err)
	assert.Equal(t, "id.apps.googleusercontent.com", credential.ClientID)
	assert.Equal(t, "secret", credential.ClientSecret)
	assert.Equal(t, "https://accounts.google.com/o/oauth2/auth", credential.AuthURI)
	assert.Equal(t, "https://oauth2.googleapis.com/token", credential.TokenURI)
}

func TestLoadClientCredentialWeb(t *testing.T) {
	path := writeClientSecret(t, `{"web": {"client_id": "web-id", "client_secret": "web-secret"}}`)

	credential, err := LoadClientCredential(path)
	require.NoError(t, err)
	assert.Equal(t, "web-id", credential.ClientID)
	// Missing endpoints fall back to the Google defaults.
	assert.Equal(t, google.Endpoint.AuthURL, credential.AuthURI)
	assert.Equal(t, google.Endpoint.TokenURL, credential.TokenURI)
}

func TestLoadClientCredentialRejectsUnknownShape(t *testing.T) {
	path := writeClientSecret(t, `{"service_account": {"client_id": "x"}}`)
	_, err := LoadClientCredential(path)
	require.Error(t, err)
}

func TestLoadClientCredentialRejectsMissingFields(t *testing.T) {
	path := writeClientSecret(t, `{"installed": {"client_secret": "secret"}}`)
	_, err := LoadClientCredential(path)
	require.ErrorContains(t, err, "client_id")

	path = writeClientSecret(t, `{"installed": {"client_id": "id"}}`)
	_, err = LoadClientCredential(path)
	require.ErrorContains(t, err, "client_secret")
}

func TestLoadClientCredentialMissingFile(t *testing.T) {
	_, err := LoadClientCredential(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestOAuthConfig(t *testing.T) {
	credential := &ClientCredential{
		ClientID:     "id",
		ClientSecret: "secret",
		AuthURI:      "https://example.com/auth",
		TokenURI:     "https://example.com/token",
	}

	conf := credential.OAuthConfig(29999)
	assert.Equal(t, "http://localhost:29999/oauth2callback", conf.RedirectURL)
	assert.Equal(t, "https://example.com/auth", conf.Endpoint.AuthURL)
	assert.ElementsMatch(t, []string{
		"https://www.googleapis.com/auth/drive.readonly",
		"https://www.googleapis.com/auth/drive.metadata.readonly",
	}, conf.Scopes)
}
