package credentials

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name for all offlinetasks keyring entries
	KeyringService = "offlinetasks-remote"
)

// ErrNotFound is returned when the keyring has no token for an account.
var ErrNotFound = errors.New("no token found in keyring")

// Set stores a token in the OS keyring under account (the remote host)
func Set(account, token string) error {
	if account == "" {
		return fmt.Errorf("account cannot be empty")
	}
	if token == "" {
		return fmt.Errorf("token cannot be empty")
	}

	if err := keyring.Set(KeyringService, account, token); err != nil {
		return fmt.Errorf("failed to store token in keyring: %w", err)
	}
	return nil
}

// Get retrieves the token for account from the OS keyring
func Get(account string) (string, error) {
	if account == "" {
		return "", fmt.Errorf("account cannot be empty")
	}

	token, err := keyring.Get(KeyringService, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("%w for %q", ErrNotFound, account)
		}
		return "", fmt.Errorf("failed to retrieve token from keyring: %w", err)
	}
	return token, nil
}

// Delete removes the token for account from the OS keyring
func Delete(account string) error {
	if account == "" {
		return fmt.Errorf("account cannot be empty")
	}

	if err := keyring.Delete(KeyringService, account); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("%w for %q", ErrNotFound, account)
		}
		return fmt.Errorf("failed to delete token from keyring: %w", err)
	}
	return nil
}

// IsAvailable checks if the keyring is accessible
func IsAvailable() bool {
	// A missing item still proves the keyring answered
	_, err := keyring.Get("offlinetasks-keyring-test", "test")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
