// Package keyring manages the single process-wide API key.
package keyring

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"sync"
)

// keyBytes is the entropy of a generated key before encoding.
const keyBytes = 32

// Persister stores the key outside the process (the settings blob).
type Persister interface {
	SaveAPIKey(key string) error
}

// Keyring holds the API key and answers verification requests in constant
// time. Rotation swaps the key under the same lock Verify reads it, so no
// moment exists where both old and new keys validate.
type Keyring struct {
	persister Persister

	mu  sync.Mutex
	key string
}

// New creates a Keyring seeded with the persisted key, which may be empty.
func New(existing string, persister Persister) *Keyring {
	return &Keyring{persister: persister, key: existing}
}

// GetOrCreate returns the current key, generating and persisting one on
// first use.
func (k *Keyring) GetOrCreate() (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.key != "" {
		return k.key, nil
	}

	key, err := generate()
	if err != nil {
		return "", err
	}
	if err := k.persister.SaveAPIKey(key); err != nil {
		return "", fmt.Errorf("persisting api key: %w", err)
	}
	k.key = key
	return key, nil
}

// Rotate replaces the key, invalidating the previous one immediately.
func (k *Keyring) Rotate() (string, error) {
	key, err := generate()
	if err != nil {
		return "", err
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.persister.SaveAPIKey(key); err != nil {
		return "", fmt.Errorf("persisting api key: %w", err)
	}
	k.key = key
	return key, nil
}

// Verify reports whether candidate matches the stored key. The comparison
// runs in constant time with respect to the key content. An empty candidate
// or an absent key never verifies.
func (k *Keyring) Verify(candidate string) bool {
	k.mu.Lock()
	key := k.key
	k.mu.Unlock()

	if key == "" || candidate == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(candidate)) == 1
}

func generate() (string, error) {
	b := make([]byte, keyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating api key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
