// Package auth provides OAuth2 authentication functionality for the Google
// Drive API. It handles the complete OAuth2 flow including client secret
// loading, token persistence, the web-based consent flow with a loopback
// callback listener, and automatic token refresh.
package auth

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
)

// Scopes requested during consent. Both are required for the download to be
// accepted by the Drive API.
var oauthScopes = []string{
	drive.DriveReadonlyScope,
	drive.DriveMetadataReadonlyScope,
}

// ClientCredential holds the OAuth client descriptor loaded from the client
// secret JSON downloaded from the Google Cloud Console. It is read-only for
// the process lifetime.
type ClientCredential struct {
	ClientID     string
	ClientSecret string
	AuthURI      string
	TokenURI     string
}

// LoadClientCredential reads a client secret file and extracts the OAuth
// client descriptor. Both the "installed" and "web" client shapes are
// accepted; endpoint URIs fall back to the Google defaults when absent.
func LoadClientCredential(path string) (*ClientCredential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read client secret file: %w", err)
	}

	section := gjson.GetBytes(data, "installed")
	if !section.Exists() {
		section = gjson.GetBytes(data, "web")
	}
	if !section.Exists() {
		return nil, fmt.Errorf("client secret file %s has neither an \"installed\" nor a \"web\" section", path)
	}

	credential := &ClientCredential{
		ClientID:     section.Get("client_id").String(),
		ClientSecret: section.Get("client_secret").String(),
		AuthURI:      section.Get("auth_uri").String(),
		TokenURI:     section.Get("token_uri").String(),
	}
	if credential.ClientID == "" {
		return nil, fmt.Errorf("client secret file %s is missing client_id", path)
	}
	if credential.ClientSecret == "" {
		return nil, fmt.Errorf("client secret file %s is missing client_secret", path)
	}
	if credential.AuthURI == "" {
		credential.AuthURI = google.Endpoint.AuthURL
	}
	if credential.TokenURI == "" {
		credential.TokenURI = google.Endpoint.TokenURL
	}

	return credential, nil
}

// OAuthConfig builds the oauth2 configuration for this client, pointing the
// redirect at the loopback listener on the given port.
func (c *ClientCredential) OAuthConfig(port int) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  fmt.Sprintf("http://localhost:%d/oauth2callback", port),
		Scopes:       oauthScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  c.AuthURI,
			TokenURL: c.TokenURI,
		},
	}
}
