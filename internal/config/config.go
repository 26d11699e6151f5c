// Package config provides configuration management for the drivefetch tool.
// It handles loading and parsing the YAML configuration file, and provides
// structured access to application settings including the OAuth client secret
// location, the target file ID, the save directory, proxy configuration, and
// the loopback redirect port.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults applied by LoadConfig when the corresponding field is absent.
const (
	// DefaultOAuthPort is the loopback redirect port. It must match the
	// redirect URI registered on the OAuth client in the Google Cloud Console.
	DefaultOAuthPort = 29999

	// DefaultAuthTimeoutSeconds bounds the wait for the OAuth redirect.
	DefaultAuthTimeoutSeconds = 300

	// DefaultTokenStore selects the on-disk JSON token store.
	DefaultTokenStore = "file"
)

// ErrInvalid is wrapped by every validation failure reported by Validate.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	// CredentialsFile is the path to the OAuth client secret JSON downloaded
	// from the Google Cloud Console.
	CredentialsFile string `yaml:"credentials-file"`

	// FileID is the Google Drive file ID to download.
	FileID string `yaml:"file-id"`

	// SaveDir is the directory the downloaded file is written to.
	SaveDir string `yaml:"save-dir"`

	// AuthDir is the directory where the cached OAuth token is stored.
	AuthDir string `yaml:"auth-dir"`

	// TokenStore selects the token persistence backend: "file" or "bolt".
	TokenStore string `yaml:"token-store"`

	// OAuthPort is the network port the loopback redirect listener binds to.
	OAuthPort int `yaml:"oauth-port"`

	// AuthTimeoutSeconds is how long the interactive consent flow waits for
	// the redirect before giving up.
	AuthTimeoutSeconds int `yaml:"auth-timeout-seconds"`

	// ProxyURL is the URL of an optional proxy server to use for outbound
	// requests. SOCKS5, HTTP and HTTPS proxies are supported.
	ProxyURL string `yaml:"proxy-url"`

	// Debug enables debug-level logging.
	Debug bool `yaml:"debug"`

	// LoggingToFile redirects logs to a rotating file instead of stdout.
	LoggingToFile bool `yaml:"logging-to-file"`

	// NoBrowser suppresses the automatic browser launch during consent; the
	// authorization URL is logged instead.
	NoBrowser bool `yaml:"no-browser"`

	// Overwrite allows replacing an existing file with the same name in the
	// save directory.
	Overwrite bool `yaml:"overwrite"`
}

// LoadConfig reads a YAML configuration file from the given path, unmarshals
// it into a Config struct, applies defaults, and expands "~" in path fields.
func LoadConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err = yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()

	if config.AuthDir, err = expandHome(config.AuthDir); err != nil {
		return nil, err
	}
	if config.SaveDir, err = expandHome(config.SaveDir); err != nil {
		return nil, err
	}
	if config.CredentialsFile, err = expandHome(config.CredentialsFile); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.OAuthPort == 0 {
		c.OAuthPort = DefaultOAuthPort
	}
	if c.AuthTimeoutSeconds == 0 {
		c.AuthTimeoutSeconds = DefaultAuthTimeoutSeconds
	}
	if c.TokenStore == "" {
		c.TokenStore = DefaultTokenStore
	}
	if c.AuthDir == "" {
		c.AuthDir = "~/.drivefetch"
	}
	if c.SaveDir == "" {
		c.SaveDir = "."
	}
}

// Validate checks that the configuration carries everything a download run
// needs. All failures wrap ErrInvalid.
func (c *Config) Validate() error {
	if c.CredentialsFile == "" {
		return fmt.Errorf("%w: credentials-file is required", ErrInvalid)
	}
	if c.FileID == "" {
		return fmt.Errorf("%w: file-id is required", ErrInvalid)
	}
	if c.OAuthPort < 1 || c.OAuthPort > 65535 {
		return fmt.Errorf("%w: oauth-port %d is out of range", ErrInvalid, c.OAuthPort)
	}
	if c.TokenStore != "file" && c.TokenStore != "bolt" {
		return fmt.Errorf("%w: unknown token-store %q", ErrInvalid, c.TokenStore)
	}
	return nil
}

// expandHome replaces a leading "~" with the current user's home directory.
func expandHome(p string) (string, error) {
	if !strings.HasPrefix(p, "~") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	rest := strings.TrimPrefix(p, "~")
	rest = strings.TrimPrefix(rest, string(os.PathSeparator))
	if rest == "" {
		return home, nil
	}
	return filepath.Join(home, rest), nil
}
