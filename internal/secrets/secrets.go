// Package secrets keeps credentials in the OS keychain so they stay out of
// config.yaml.
package secrets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

// Service groups jobwatch's entries in the OS keychain.
const Service = "jobwatch"

// Known keychain accounts, by short name.
var accounts = map[string]string{
	"oracle": "jobwatch:oracle:api_key",
}

// Account returns the keychain account for a short name such as "oracle".
func Account(name string) (string, error) {
	acct, ok := accounts[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("unknown secret %q", name)
	}
	return acct, nil
}

// Lookup returns the stored secret for name. A missing entry is not an error
// and yields "".
func Lookup(name string) (string, error) {
	acct, err := Account(name)
	if err != nil {
		return "", err
	}
	v, err := keyring.Get(Service, acct)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("keychain lookup %s: %w", name, err)
	}
	return strings.TrimSpace(v), nil
}

// Set stores value for name.
func Set(name, value string) error {
	acct, err := Account(name)
	if err != nil {
		return err
	}
	if strings.TrimSpace(value) == "" {
		return errors.New("secret is empty")
	}
	return keyring.Set(Service, acct, strings.TrimSpace(value))
}

// Delete removes the entry for name. Deleting a missing entry is a no-op.
func Delete(name string) error {
	acct, err := Account(name)
	if err != nil {
		return err
	}
	if err := keyring.Delete(Service, acct); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}
