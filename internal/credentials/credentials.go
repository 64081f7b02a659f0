// Package credentials loads and stores Bamboo server credentials.
//
// Environment variables BAMBOO_URL and BAMBOO_TOKEN take precedence over the
// stored file so CI and one-off automation never need `bmb init`.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	// EnvURL and EnvToken override the credentials file when set.
	EnvURL   = "BAMBOO_URL"
	EnvToken = "BAMBOO_TOKEN"

	fileName = "credentials.toml"
)

// ErrNotConfigured is returned when neither the environment nor the
// credentials file provides a URL and token.
var ErrNotConfigured = errors.New("bamboo credentials not configured")

// Credentials identify one Bamboo server.
type Credentials struct {
	URL   string `toml:"url"`
	Token string `toml:"token"`
}

// File returns the path of the per-user credentials file.
func File() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving user config dir: %w", err)
	}
	return filepath.Join(dir, "bmb", fileName), nil
}

// Load resolves credentials, preferring environment variables and falling
// back to the stored file field by field.
func Load() (Credentials, error) {
	creds := Credentials{
		URL:   os.Getenv(EnvURL),
		Token: os.Getenv(EnvToken),
	}
	if creds.URL != "" && creds.Token != "" {
		return creds, nil
	}

	path, err := File()
	if err != nil {
		return Credentials{}, err
	}
	var stored Credentials
	if _, err := toml.DecodeFile(path, &stored); err != nil && !os.IsNotExist(err) {
		return Credentials{}, fmt.Errorf("reading %s: %w", path, err)
	}
	if creds.URL == "" {
		creds.URL = stored.URL
	}
	if creds.Token == "" {
		creds.Token = stored.Token
	}

	if creds.URL == "" || creds.Token == "" {
		return Credentials{}, ErrNotConfigured
	}
	return creds, nil
}

// Save writes credentials to the per-user file with owner-only permissions.
func Save(creds Credentials) (string, error) {
	path, err := File()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(creds); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
