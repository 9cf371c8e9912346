package keybackend_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/filevault/keybackend"
)

func TestLoadKeysFromFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    map[string]string
	}{
		{
			name: "access keys and token kids",
			content: `[
				{"access_key": "FVLOCALEXAMPLE", "secret_key": "local/secret+key="},
				{"access_key": "token-2026-10", "secret_key": "hmac secret"}
			]`,
			want: map[string]string{
				"FVLOCALEXAMPLE": "local/secret+key=",
				"token-2026-10":  "hmac secret",
			},
		},
		{
			name:    "empty array",
			content: `[]`,
			want:    map[string]string{},
		},
		{
			name: "skips incomplete pairs",
			content: `[
				{"access_key": "", "secret_key": "secret1"},
				{"access_key": "key2", "secret_key": ""},
				{"access_key": "valid_key", "secret_key": "valid_secret"}
			]`,
			want: map[string]string{"valid_key": "valid_secret"},
		},
		{
			name: "last duplicate wins",
			content: `[
				{"access_key": "DUPLICATE", "secret_key": "first_secret"},
				{"access_key": "DUPLICATE", "secret_key": "second_secret"}
			]`,
			want: map[string]string{"DUPLICATE": "second_secret"},
		},
		{
			name:    "extra fields ignored",
			content: `[{"access_key": "KEY1", "secret_key": "secret1", "note": "rotated", "n": 1}]`,
			want:    map[string]string{"KEY1": "secret1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			keys, err := keybackend.LoadKeysFromFile(writeKeysFile(t, tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.want, keys)
		})
	}
}

func TestLoadKeysFromFile_FileNotFound(t *testing.T) {
	t.Parallel()

	_, err := keybackend.LoadKeysFromFile("/nonexistent/path/keys.json")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "read keys file")
}

func TestLoadKeysFromFile_InvalidJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{name: "not json", content: "this is not json"},
		{name: "object instead of array", content: `{"access_key": "key", "secret_key": "secret"}`},
		{name: "malformed", content: `[{"access_key": "key", "secret_key": "secret"`},
		{name: "array of strings", content: `["key1", "key2"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := keybackend.LoadKeysFromFile(writeKeysFile(t, tt.content))

			assert.Error(t, err)
			assert.Contains(t, err.Error(), "parse keys file")
		})
	}
}

// writeKeysFile creates a temporary keys file with the given content.
func writeKeysFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "keys.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}
