package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultAPIURL = "http://localhost:8080"
	tokenFileName = ".custody_token"
)

// ErrNotLoggedIn is returned by LoadToken when no token is stored.
var ErrNotLoggedIn = errors.New("not logged in; run `custody login` first")

// APIURL returns the base URL for the custody API.
// It can be overridden with the CUSTODY_API_URL environment variable.
func APIURL() string {
	if v := os.Getenv("CUSTODY_API_URL"); v != "" {
		return strings.TrimRight(v, "/")
	}
	return defaultAPIURL
}

// TokenPath is where the session token is stored. CUSTODY_TOKEN_FILE overrides
// the default of ~/.custody_token.
func TokenPath() string {
	if v := os.Getenv("CUSTODY_TOKEN_FILE"); v != "" {
		return v
	}
	dir, err := os.UserHomeDir()
	if err != nil {
		return tokenFileName
	}
	return filepath.Join(dir, tokenFileName)
}

// SaveToken stores token readable only by the current user.
func SaveToken(token string) error {
	return os.WriteFile(TokenPath(), []byte(token), 0o600)
}

// LoadToken returns the stored token.
func LoadToken() (string, error) {
	data, err := os.ReadFile(TokenPath())
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNotLoggedIn
	}
	if err != nil {
		return "", err
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNotLoggedIn
	}
	return token, nil
}

// ClearToken removes the stored token. It reports false when none was stored.
func ClearToken() (bool, error) {
	err := os.Remove(TokenPath())
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}
