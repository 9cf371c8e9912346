package filevault

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// NewFileID returns a random 128-bit identifier (UUIDv4) in canonical form.
func NewFileID() string {
	return uuid.NewString()
}

// StorageKey derives the object key for a file: ownerID/fileID/fileName.
func StorageKey(ownerID, fileID, fileName string) string {
	return ownerID + "/" + fileID + "/" + fileName
}

// IsValidFileName validates that a name can be used as the last segment of a
// storage key. It checks that the name:
//   - is not empty, "." or ".."
//   - does not contain "/" or "\"
//   - does not contain "?" or "#"
//   - is valid UTF-8
//   - has no leading or trailing whitespace
//   - does not contain null bytes, control characters (< 0x20) or DEL (0x7f)
func IsValidFileName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}

	if strings.ContainsAny(name, `/\?#`) {
		return false
	}

	if !utf8.ValidString(name) {
		return false
	}

	if strings.TrimSpace(name) != name {
		return false
	}

	for _, r := range name {
		if r < 0x20 || r == 0x7f || (unicode.IsSpace(r) && r != ' ') {
			return false
		}
	}

	return true
}

// IsValidOwnerID reports whether id can partition metadata and prefix storage
// keys. The id must be non-empty, at most 256 bytes of valid UTF-8, and must
// not be "." or "..". It must not contain "/" or control characters.
func IsValidOwnerID(id string) bool {
	if id == "" || id == "." || id == ".." || len(id) > 256 {
		return false
	}

	if !utf8.ValidString(id) || strings.Contains(id, "/") {
		return false
	}

	for _, r := range id {
		if r < 0x20 || r == 0x7f {
			return false
		}
	}

	return true
}

// IsValidFileID reports whether id is a canonical UUID as produced by NewFileID.
func IsValidFileID(id string) bool {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return false
	}
	return parsed.String() == id
}
