package keybackend

import (
	"encoding/json"
	"fmt"
	"os"
)

// KeyPair represents a key id and its secret. For blob signing the id is an
// access key; for bearer tokens it is the token's kid header.
type KeyPair struct {
	AccessKey string `json:"access_key" mapstructure:"access_key"`
	SecretKey string `json:"secret_key" mapstructure:"secret_key"`
}

// LoadKeysFromFile loads key pairs from a JSON file.
// The file should contain an array of key pairs:
//
//	[
//	  {"access_key": "FVLOCALEXAMPLE", "secret_key": "c2VjcmV0..."},
//	  {"access_key": "token-2026-10", "secret_key": "another_secret"}
//	]
//
// Pairs with an empty id or secret are skipped. Returns a map of id to secret.
func LoadKeysFromFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is from trusted config file
	if err != nil {
		return nil, fmt.Errorf("read keys file: %w", err)
	}

	var pairs []KeyPair
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("parse keys file: %w", err)
	}

	keys := make(map[string]string, len(pairs))
	for _, p := range pairs {
		if p.AccessKey != "" && p.SecretKey != "" {
			keys[p.AccessKey] = p.SecretKey
		}
	}

	return keys, nil
}
