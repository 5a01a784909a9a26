// Package credential keeps the session token and mailbox password in the
// system keyring.
package credential

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/99designs/keyring"
)

const serviceName = "carehub"

// ErrMissing is returned when no value is stored under a key.
var ErrMissing = errors.New("credential not found")

// Vault reads and writes secrets by key.
type Vault struct {
	ring keyring.Keyring
}

// Open returns a Vault backed by the first available system keyring,
// falling back to an encrypted file under configDir.
func Open(configDir string) (*Vault, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  filepath.Join(configDir, "credentials"),
		FilePasswordFunc:         keyring.FixedStringPrompt("carehub-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return &Vault{ring: ring}, nil
}

// NewVault wraps an existing keyring, e.g. keyring.NewArrayKeyring in tests.
func NewVault(ring keyring.Keyring) *Vault {
	return &Vault{ring: ring}
}

// Get retrieves a credential value by key.
func (v *Vault) Get(key string) (string, error) {
	item, err := v.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("getting credential %q: %w", key, ErrMissing)
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key.
func (v *Vault) Set(key string, value string) error {
	err := v.ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: "carehub " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key. Deleting a missing key succeeds.
func (v *Vault) Delete(key string) error {
	err := v.ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}

// MailboxPasswordKey is the key under which the IMAP password for
// username is stored.
func MailboxPasswordKey(username string) string {
	return "mailbox-password:" + username
}
