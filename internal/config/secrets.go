package config

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const keyringService = "vizql"

// SavePassword stores a profile password in the OS keyring.
func SavePassword(profile, password string) error {
	if err := keyring.Set(keyringService, profile, password); err != nil {
		return fmt.Errorf("store password for %q: %w", profile, err)
	}
	return nil
}

// LoadPassword returns the stored password for a profile, or "" when none is stored.
func LoadPassword(profile string) (string, error) {
	pw, err := keyring.Get(keyringService, profile)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("read password for %q: %w", profile, err)
	}
	return pw, nil
}

// DeletePassword removes a stored password. Missing entries are not an error.
func DeletePassword(profile string) error {
	if err := keyring.Delete(keyringService, profile); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("delete password for %q: %w", profile, err)
	}
	return nil
}

// WithPassword returns conn with its password filled from the keyring when
// the profile does not already carry one.
func WithPassword(conn Connection) (Connection, error) {
	if conn.Password != "" {
		return conn, nil
	}
	pw, err := LoadPassword(conn.Name)
	if err != nil {
		return conn, err
	}
	conn.Password = pw
	return conn, nil
}
