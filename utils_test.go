package filevault_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sagarc03/filevault"
)

func TestIsValidFileName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"simple", "report.pdf", true},
		{"spaces inside", "my report.pdf", true},
		{"unicode", "résumé.pdf", true},
		{"empty", "", false},
		{"dot", ".", false},
		{"dot dot", "..", false},
		{"slash", "a/b.pdf", false},
		{"backslash", `a\b.pdf`, false},
		{"query", "a?.pdf", false},
		{"fragment", "a#.pdf", false},
		{"leading space", " a.pdf", false},
		{"trailing space", "a.pdf ", false},
		{"null byte", "a\x00.pdf", false},
		{"tab", "a\t.pdf", false},
		{"del", "a\x7f.pdf", false},
		{"invalid utf8", "a\xff.pdf", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, filevault.IsValidFileName(tt.input))
		})
	}
}

func TestIsValidOwnerID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"simple", "alice", true},
		{"email", "alice@example.com", true},
		{"uuid", "1f0b2c3d-0000-4000-8000-000000000000", true},
		{"empty", "", false},
		{"dot", ".", false},
		{"dot dot", "..", false},
		{"slash", "alice/bob", false},
		{"control", "alice\n", false},
		{"max length", strings.Repeat("a", 256), true},
		{"too long", strings.Repeat("a", 257), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, filevault.IsValidOwnerID(tt.input))
		})
	}
}

func TestNewFileID(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		id := filevault.NewFileID()
		assert.True(t, filevault.IsValidFileID(id), id)
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestIsValidFileID(t *testing.T) {
	assert.True(t, filevault.IsValidFileID("2b6f0cc9-4f0d-4a58-9c25-5f3c0e0b61aa"))
	assert.False(t, filevault.IsValidFileID("2B6F0CC9-4F0D-4A58-9C25-5F3C0E0B61AA"))
	assert.False(t, filevault.IsValidFileID("{2b6f0cc9-4f0d-4a58-9c25-5f3c0e0b61aa}"))
	assert.False(t, filevault.IsValidFileID("not-a-uuid"))
	assert.False(t, filevault.IsValidFileID(""))
}

func TestStorageKey(t *testing.T) {
	assert.Equal(t, "alice/f1/a.pdf", filevault.StorageKey("alice", "f1", "a.pdf"))
}
