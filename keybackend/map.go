// Package keybackend provides secret stores used to sign and verify presigned
// blob URLs and bearer tokens.
package keybackend

import (
	"fmt"
	"slices"

	"github.com/sagarc03/filevault"
)

// MapSecretStore retrieves secrets from an in-memory map keyed by access key
// or token key id.
type MapSecretStore struct {
	keys map[string]string
}

// NewMapSecretStore creates a new map-based secret store with the given key id to secret mapping.
func NewMapSecretStore(keys map[string]string) *MapSecretStore {
	return &MapSecretStore{keys: keys}
}

// Lookup retrieves the secret for the given key id. The error matches both
// ErrKeyNotFound and filevault.ErrUnauthorized.
func (s *MapSecretStore) Lookup(keyID string) (string, error) {
	secret, found := s.keys[keyID]
	if !found {
		return "", fmt.Errorf("lookup %q: %w: %w", keyID, ErrKeyNotFound, filevault.ErrUnauthorized)
	}
	return secret, nil
}

// Find adapts Lookup to the signature verifier's lookup function.
func (s *MapSecretStore) Find(keyID string) (string, bool) {
	secret, err := s.Lookup(keyID)
	return secret, err == nil
}

// Len returns the number of keys held.
func (s *MapSecretStore) Len() int {
	return len(s.keys)
}

// First returns the lexically smallest key pair, used when a single signing
// key is needed and none was named.
func (s *MapSecretStore) First() (KeyPair, bool) {
	var best KeyPair
	found := false
	for k, v := range s.keys {
		if !found || k < best.AccessKey {
			best = KeyPair{AccessKey: k, SecretKey: v}
			found = true
		}
	}
	return best, found
}

// SharedSecrets returns the key ids in s whose secret also appears in other,
// sorted. Stores guarding different capabilities must not share any. A nil
// store shares nothing.
func (s *MapSecretStore) SharedSecrets(other *MapSecretStore) []string {
	if s == nil || other == nil {
		return nil
	}

	secrets := make(map[string]struct{}, len(other.keys))
	for _, v := range other.keys {
		secrets[v] = struct{}{}
	}

	var shared []string
	for k, v := range s.keys {
		if _, ok := secrets[v]; ok {
			shared = append(shared, k)
		}
	}
	slices.Sort(shared)
	return shared
}
