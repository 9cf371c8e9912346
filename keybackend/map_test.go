package keybackend_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/filevault"
	"github.com/sagarc03/filevault/keybackend"
)

func TestMapSecretStore_Lookup(t *testing.T) {
	tests := []struct {
		name    string
		keys    map[string]string
		keyID   string
		wantKey string
		wantErr bool
	}{
		{
			name:    "returns secret when key exists",
			keys:    map[string]string{"access1": "secret1", "access2": "secret2"},
			keyID:   "access1",
			wantKey: "secret1",
		},
		{
			name:    "missing key",
			keys:    map[string]string{"access1": "secret1"},
			keyID:   "nonexistent",
			wantErr: true,
		},
		{
			name:    "nil store",
			keys:    nil,
			keyID:   "anykey",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := keybackend.NewMapSecretStore(tt.keys)
			gotKey, err := store.Lookup(tt.keyID)

			if tt.wantErr {
				require.ErrorIs(t, err, keybackend.ErrKeyNotFound)
				require.ErrorIs(t, err, filevault.ErrUnauthorized)
				assert.Empty(t, gotKey)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, gotKey)
		})
	}
}

func TestMapSecretStore_Find(t *testing.T) {
	store := keybackend.NewMapSecretStore(map[string]string{"k": "s"})

	secret, ok := store.Find("k")
	assert.True(t, ok)
	assert.Equal(t, "s", secret)

	_, ok = store.Find("missing")
	assert.False(t, ok)
}

func TestMapSecretStore_First(t *testing.T) {
	store := keybackend.NewMapSecretStore(map[string]string{"zeta": "z", "alpha": "a", "mid": "m"})

	pair, ok := store.First()
	require.True(t, ok)
	assert.Equal(t, keybackend.KeyPair{AccessKey: "alpha", SecretKey: "a"}, pair)
	assert.Equal(t, 3, store.Len())

	_, ok = keybackend.NewMapSecretStore(nil).First()
	assert.False(t, ok)
}

func TestMapSecretStore_SharedSecrets(t *testing.T) {
	tokens := keybackend.NewMapSecretStore(map[string]string{"default": "token-secret", "rotated": "old-secret"})

	disjoint := keybackend.NewMapSecretStore(map[string]string{"FVBLOB": "blob-secret"})
	assert.Empty(t, disjoint.SharedSecrets(tokens))

	reused := keybackend.NewMapSecretStore(map[string]string{"FVBLOB": "blob-secret", "default": "token-secret", "OTHER": "old-secret"})
	assert.Equal(t, []string{"OTHER", "default"}, reused.SharedSecrets(tokens))

	assert.Empty(t, reused.SharedSecrets(nil))

	var none *keybackend.MapSecretStore
	assert.Empty(t, none.SharedSecrets(tokens))
}
