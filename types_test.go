package filevault_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/filevault"
)

func TestUploadRequest_WithDefaults(t *testing.T) {
	got := filevault.UploadRequest{}.WithDefaults()
	assert.Equal(t, filevault.UploadRequest{FileName: "test.pdf", FileSize: 1024, ContentType: "application/pdf"}, got)

	explicit := filevault.UploadRequest{FileName: "a.png", FileSize: 7, ContentType: "image/png"}
	assert.Equal(t, explicit, explicit.WithDefaults())
}

func TestListQuery_Normalized(t *testing.T) {
	tests := []struct {
		limit int
		want  int
	}{
		{0, filevault.DefaultListLimit},
		{-5, filevault.DefaultListLimit},
		{1, 1},
		{filevault.MaxListLimit, filevault.MaxListLimit},
		{filevault.MaxListLimit + 1, filevault.MaxListLimit},
	}

	for _, tt := range tests {
		got := filevault.ListQuery{Limit: tt.limit, Cursor: "c"}.Normalized()
		assert.Equal(t, tt.want, got.Limit)
		assert.Equal(t, "c", got.Cursor)
	}
}

func TestParseFileStatus(t *testing.T) {
	status, err := filevault.ParseFileStatus("confirmed")
	require.NoError(t, err)
	assert.Equal(t, filevault.StatusConfirmed, status)

	_, err = filevault.ParseFileStatus("deleted")
	assert.ErrorContains(t, err, "invalid file status")
}

func TestFileRecord_SummaryOmitsStorageKey(t *testing.T) {
	record := filevault.FileRecord{
		OwnerID:     "alice",
		FileID:      "f1",
		FileName:    "a.pdf",
		ContentType: "application/pdf",
		FileSize:    2048,
		StorageKey:  "alice/f1/a.pdf",
		Status:      filevault.StatusPending,
		CreatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	data, err := json.Marshal(record.Summary())
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.NotContains(t, fields, "storageKey")
	assert.NotContains(t, fields, "ownerId")
	assert.Equal(t, "a.pdf", fields["fileName"])
	assert.Equal(t, "pending", fields["status"])
}

func TestTables_Validate(t *testing.T) {
	assert.NoError(t, filevault.Tables{Files: "files", Orphans: "orphans"}.Validate())
	assert.ErrorContains(t, filevault.Tables{Orphans: "orphans"}.Validate(), "files table name cannot be empty")
	assert.ErrorContains(t, filevault.Tables{Files: "files"}.Validate(), "orphans table name cannot be empty")
	assert.ErrorContains(t, filevault.Tables{Files: "Files", Orphans: "orphans"}.Validate(), "invalid table name")
	assert.ErrorContains(t, filevault.Tables{Files: "same", Orphans: "same"}.Validate(), "must differ")
}
