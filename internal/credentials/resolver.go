package credentials

import (
	"fmt"
	"net/url"

	"offlinetasks/internal/utils"
)

// Source indicates where credentials were found
type Source string

const (
	SourceKeyring Source = "keyring"
	SourceEnv     Source = "env"
	SourceURL     Source = "url"
	SourceNone    Source = "none"
)

// Credentials is the resolved remote endpoint and its bearer token.
type Credentials struct {
	URL     string // endpoint with any userinfo stripped
	Account string // keyring account, the endpoint host
	Token   string
	Source  Source
}

// Resolver handles credential resolution from multiple sources with priority order
type Resolver struct {
	// keyringAvailable is replaced in tests
	keyringAvailable func() bool
}

// NewResolver creates a new credential resolver
func NewResolver() *Resolver {
	return &Resolver{keyringAvailable: IsAvailable}
}

// Resolve finds the token for remoteURL using the priority order:
//  1. Environment variable OFFLINETASKS_REMOTE_TOKEN
//  2. Keyring entry for the URL host
//  3. Password part of the URL userinfo (https://:token@host/...)
//
// OFFLINETASKS_REMOTE_URL overrides remoteURL when set.
func (r *Resolver) Resolve(remoteURL string) (*Credentials, error) {
	if env := GetRemoteURL(); env != "" {
		remoteURL = env
	}
	if remoteURL == "" {
		return nil, utils.ErrSyncNotConfigured()
	}

	parsed, err := url.Parse(remoteURL)
	if err != nil || parsed.Host == "" {
		return nil, utils.ErrInvalidConfig("remote.url", fmt.Sprintf("cannot parse %q", remoteURL))
	}

	creds := &Credentials{Account: parsed.Host, Source: SourceNone}
	userinfo := parsed.User
	parsed.User = nil
	creds.URL = parsed.String()

	if token := GetToken(); token != "" {
		creds.Token = token
		creds.Source = SourceEnv
		return creds, nil
	}

	if r.keyringAvailable != nil && r.keyringAvailable() {
		token, err := Get(creds.Account)
		if err == nil {
			creds.Token = token
			creds.Source = SourceKeyring
			return creds, nil
		}
		utils.Debugf("Keyring lookup for %s failed: %v", creds.Account, err)
	}

	if userinfo != nil {
		if token, ok := userinfo.Password(); ok && token != "" {
			creds.Token = token
			creds.Source = SourceURL
			return creds, nil
		}
	}

	return nil, utils.ErrCredentialsNotFound()
}

// Account returns the keyring account name for remoteURL.
func Account(remoteURL string) (string, error) {
	parsed, err := url.Parse(remoteURL)
	if err != nil || parsed.Host == "" {
		return "", fmt.Errorf("invalid remote URL %q", remoteURL)
	}
	return parsed.Host, nil
}
