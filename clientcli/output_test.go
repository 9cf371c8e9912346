package clientcli_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/filevault"
	"github.com/sagarc03/filevault/clientcli"
)

func TestNewFormatter(t *testing.T) {
	_, ok := clientcli.NewFormatter(true, false).(*clientcli.JSONFormatter)
	assert.True(t, ok)

	hf, ok := clientcli.NewFormatter(false, true).(*clientcli.HumanFormatter)
	require.True(t, ok)
	assert.True(t, hf.Quiet)
}

func TestHumanFormatter_FormatUpload(t *testing.T) {
	result := &clientcli.UploadResult{
		FileID:    testFileID,
		FileName:  "test.pdf",
		Size:      1024,
		Confirmed: true,
	}

	var buf bytes.Buffer
	require.NoError(t, (&clientcli.HumanFormatter{}).FormatUpload(&buf, result))
	assert.Contains(t, buf.String(), "Uploaded: test.pdf (1.0 KB)")
	assert.Contains(t, buf.String(), "File ID: "+testFileID)
	assert.Contains(t, buf.String(), "confirmed")

	buf.Reset()
	require.NoError(t, (&clientcli.HumanFormatter{Quiet: true}).FormatUpload(&buf, result))
	assert.Equal(t, testFileID+"\n", buf.String())
}

func TestHumanFormatter_FormatDelete(t *testing.T) {
	results := []clientcli.DeleteResult{
		{FileID: "a", FileName: "a.pdf", Deleted: true},
		{FileID: "b", Err: errors.New("boom")},
	}

	var buf bytes.Buffer
	require.NoError(t, (&clientcli.HumanFormatter{}).FormatDelete(&buf, results))
	assert.Contains(t, buf.String(), "Deleted: a.pdf (a)")
	assert.Contains(t, buf.String(), "Error: b - boom")
}

func TestHumanFormatter_FormatList(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, (&clientcli.HumanFormatter{}).FormatList(&buf, &clientcli.ListResult{}))
		assert.Equal(t, "No files found\n", buf.String())
	})

	t.Run("rows and cursor", func(t *testing.T) {
		result := &clientcli.ListResult{
			Files: []filevault.FileSummary{
				{FileID: testFileID, FileName: "test.pdf", FileSize: 2048, Status: filevault.StatusPending, CreatedAt: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)},
			},
			NextCursor: "next",
		}

		var buf bytes.Buffer
		require.NoError(t, (&clientcli.HumanFormatter{}).FormatList(&buf, result))
		output := buf.String()
		assert.Contains(t, output, "FILE ID")
		assert.Contains(t, output, testFileID)
		assert.Contains(t, output, "2.0 KB")
		assert.Contains(t, output, "pending")
		assert.Contains(t, output, "2026-03-14 09:26:53")
		assert.Contains(t, output, "1 file(s) (2.0 KB total)")
		assert.Contains(t, output, `--cursor "next"`)
	})
}

func TestJSONFormatter(t *testing.T) {
	t.Run("list without files is an empty array", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, (&clientcli.JSONFormatter{}).FormatList(&buf, &clientcli.ListResult{}))

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, []any{}, decoded["files"])
	})

	t.Run("delete errors become strings", func(t *testing.T) {
		var buf bytes.Buffer
		err := (&clientcli.JSONFormatter{}).FormatDelete(&buf, []clientcli.DeleteResult{{FileID: "b", Err: errors.New("boom")}})
		require.NoError(t, err)
		assert.JSONEq(t, `{"results":[{"fileId":"b","deleted":false,"error":"boom"}]}`, buf.String())
	})

	t.Run("error", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, (&clientcli.JSONFormatter{}).FormatError(&buf, errors.New("bad")))
		assert.JSONEq(t, `{"error":"bad"}`, buf.String())
	})

	t.Run("profile show masks token", func(t *testing.T) {
		var buf bytes.Buffer
		err := (&clientcli.JSONFormatter{}).FormatProfileShow(&buf, clientcli.Profile{
			Name:     "prod",
			Endpoint: "https://vault.example.com",
			Token:    "abcd1234efgh5678",
		}, true, false)
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"prod","endpoint":"https://vault.example.com","token":"abcd...5678","default":true}`, buf.String())
	})
}

func TestHumanFormatter_FormatProfileList(t *testing.T) {
	profiles := []clientcli.Profile{
		{Name: "local", Endpoint: "http://localhost:5708"},
		{Name: "prod", Endpoint: "https://vault.example.com", Token: "short"},
	}

	var buf bytes.Buffer
	require.NoError(t, (&clientcli.HumanFormatter{}).FormatProfileList(&buf, profiles, "prod", false))
	output := buf.String()
	assert.Contains(t, output, "(not set)")
	assert.Contains(t, output, "********")
	assert.Contains(t, output, "* prod")
}
