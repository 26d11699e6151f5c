package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/drivefetch/drivefetch/internal/browser"
	"github.com/drivefetch/drivefetch/internal/config"
	"github.com/drivefetch/drivefetch/internal/misc"
	"github.com/drivefetch/drivefetch/internal/util"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// Authorizer owns the OAuth token lifecycle: reuse a cached token, refresh an
// expired one, or run the interactive consent flow and persist the result.
type Authorizer struct {
	credential *ClientCredential
	store      TokenStore
	cfg        *config.Config
	httpClient *http.Client

	// openURL launches the consent URL; replaced in tests.
	openURL func(string) error
}

// NewAuthorizer creates an authorizer for the given client credential and
// token store. Outbound OAuth calls honor the configured proxy.
func NewAuthorizer(credential *ClientCredential, store TokenStore, cfg *config.Config) *Authorizer {
	return &Authorizer{
		credential: credential,
		store:      store,
		cfg:        cfg,
		httpClient: util.NewHTTPClient(cfg),
		openURL:    browser.OpenURL,
	}
}

// oauthContext routes the oauth2 library's internal HTTP calls through the
// proxy-aware client.
func (a *Authorizer) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
}

// EnsureToken returns a valid OAuth token. A cached token with the required
// scopes is reused, refreshed through its refresh token when expired; in every
// other case the interactive consent flow runs and its result is persisted.
func (a *Authorizer) EnsureToken(ctx context.Context) (*oauth2.Token, error) {
	conf := a.credential.OAuthConfig(a.cfg.OAuthPort)
	ctx = a.oauthContext(ctx)

	ts, err := a.store.Load(ctx)
	switch {
	case err == nil:
		if !ts.HasScopes(conf.Scopes) {
			log.Warn("Cached token is missing required scopes, starting consent flow.")
		} else {
			token, errCached := a.reuseOrRefresh(ctx, conf, ts.Token)
			if errCached == nil {
				return token, nil
			}
			log.Warnf("Cached token unusable, starting consent flow: %v", errCached)
		}
	case errors.Is(err, ErrTokenNotFound):
		log.Info("No cached token found, starting OAuth consent flow.")
	default:
		log.Warnf("Failed to load cached token, starting consent flow: %v", err)
	}

	token, err := a.tokenFromWeb(ctx, conf)
	if err != nil {
		return nil, err
	}
	if err = a.persist(ctx, conf, token); err != nil {
		return nil, err
	}
	log.Info("Authentication successful.")
	return token, nil
}

// GetAuthenticatedClient returns an HTTP client that attaches the access token
// to every request and refreshes it transparently when it expires.
func (a *Authorizer) GetAuthenticatedClient(ctx context.Context) (*http.Client, error) {
	conf := a.credential.OAuthConfig(a.cfg.OAuthPort)
	token, err := a.EnsureToken(ctx)
	if err != nil {
		return nil, err
	}
	return conf.Client(a.oauthContext(ctx), token), nil
}

// reuseOrRefresh returns the cached token as-is while it is valid, otherwise
// exchanges the refresh token for a fresh one and persists it.
func (a *Authorizer) reuseOrRefresh(ctx context.Context, conf *oauth2.Config, token *oauth2.Token) (*oauth2.Token, error) {
	if token.Valid() {
		log.Debug("Reusing cached access token.")
		return token, nil
	}
	if token.RefreshToken == "" {
		return nil, errors.New("cached token is expired and has no refresh token")
	}

	log.Debug("Cached access token expired, refreshing.")
	refreshed, err := conf.TokenSource(ctx, token).Token()
	if err != nil {
		return nil, err
	}
	if err = a.persist(ctx, conf, refreshed); err != nil {
		return nil, err
	}
	return refreshed, nil
}

// tokenFromWeb runs the interactive consent flow: it binds the loopback
// listener, opens the consent URL, blocks for the single redirect, verifies
// the anti-CSRF state, and exchanges the authorization code.
func (a *Authorizer) tokenFromWeb(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	state, err := misc.GenerateRandomState()
	if err != nil {
		return nil, err
	}

	server := NewCallbackServer(a.cfg.OAuthPort)
	if err = server.Start(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if errStop := server.Stop(ctx); errStop != nil {
			log.Errorf("Failed to shut down callback server: %v", errStop)
		}
	}()

	authURL := conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	if a.cfg.NoBrowser {
		log.Infof("Please open this URL in your browser to authorize access:\n\n%s\n", authURL)
	} else if errOpen := a.openURL(authURL); errOpen != nil {
		log.Errorf("Failed to open browser: %v. Please open the URL manually:\n\n%s\n", errOpen, authURL)
	}

	timeout := time.Duration(a.cfg.AuthTimeoutSeconds) * time.Second
	result, err := server.WaitForCallback(ctx, timeout)
	if err != nil {
		return nil, err
	}
	if result.Error != "" {
		if result.Error == "access_denied" {
			return nil, ErrConsentDenied
		}
		return nil, NewAuthenticationError(ErrConsentDenied, errors.New(result.Error))
	}
	if result.State != state {
		return nil, ErrInvalidState
	}

	token, err := conf.Exchange(ctx, result.Code)
	if err != nil {
		return nil, NewAuthenticationError(ErrInvalidGrant, err)
	}
	return token, nil
}

func (a *Authorizer) persist(ctx context.Context, conf *oauth2.Config, token *oauth2.Token) error {
	return a.store.Save(ctx, &TokenStorage{
		Token:    token,
		ClientID: conf.ClientID,
		TokenURI: conf.Endpoint.TokenURL,
		Scopes:   conf.Scopes,
	})
}
