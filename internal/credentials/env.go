package credentials

import (
	"os"
	"strings"
)

// EnvPrefix is prepended to every credential environment variable.
const EnvPrefix = "OFFLINETASKS_"

// getEnvVarName returns the environment variable name for a field,
// e.g. "remote-token" becomes OFFLINETASKS_REMOTE_TOKEN.
func getEnvVarName(field string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(field, "-", "_"))
}

// GetToken retrieves the bearer token from OFFLINETASKS_REMOTE_TOKEN
func GetToken() string {
	return strings.TrimSpace(os.Getenv(getEnvVarName("remote_token")))
}

// GetRemoteURL retrieves an endpoint override from OFFLINETASKS_REMOTE_URL
func GetRemoteURL() string {
	return strings.TrimSpace(os.Getenv(getEnvVarName("remote_url")))
}

// HasCredentials checks if a token exists in the environment
func HasCredentials() bool {
	return GetToken() != ""
}
