package clientcli

import (
	"time"

	"github.com/sagarc03/filevault"
)

// UploadOptions configures an upload operation.
type UploadOptions struct {
	LocalPath   string
	FileName    string // optional, defaults to the base name of LocalPath
	ContentType string // optional, auto-detect if empty
	Confirm     bool   // confirm the upload once the PUT succeeds
}

// UploadResult represents the result of uploading a single file.
type UploadResult struct {
	LocalPath   string    `json:"localPath"`
	FileID      string    `json:"fileId"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"fileSize"`
	ETag        string    `json:"etag,omitempty"`
	Confirmed   bool      `json:"confirmed"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// DownloadOptions configures a download operation.
type DownloadOptions struct {
	FileID    string
	LocalPath string // empty = the stored file name, "-" = stdout
}

// DownloadResult represents the result of downloading a file.
type DownloadResult struct {
	FileID      string `json:"fileId"`
	FileName    string `json:"fileName"`
	LocalPath   string `json:"localPath"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"fileSize"`
}

// DeleteOptions configures a delete operation.
type DeleteOptions struct {
	FileIDs []string
}

// DeleteResult represents the result of deleting a single file.
type DeleteResult struct {
	FileID   string `json:"fileId"`
	FileName string `json:"fileName,omitempty"`
	Deleted  bool   `json:"deleted"`
	Err      error  `json:"-"` // nil on success
}

// ListOptions configures a list operation.
type ListOptions struct {
	Limit  int
	Cursor string
	All    bool // auto-paginate through all results
}

// ListResult contains paginated list results.
type ListResult struct {
	Files      []filevault.FileSummary `json:"files"`
	NextCursor string                  `json:"nextCursor,omitempty"`
}

// serverError mirrors the JSON error envelope returned by the API.
type serverError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type serverUploadResponse struct {
	FileID    string    `json:"fileId"`
	UploadURL string    `json:"uploadUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type serverDownloadResponse struct {
	DownloadURL string `json:"downloadUrl"`
	FileName    string `json:"fileName"`
	FileSize    int64  `json:"fileSize"`
}

type serverListResponse struct {
	Files      []filevault.FileSummary `json:"files"`
	NextCursor string                  `json:"nextCursor,omitempty"`
}

type serverDeleteResponse struct {
	DeletedFile struct {
		FileID   string `json:"fileId"`
		FileName string `json:"fileName"`
	} `json:"deletedFile"`
}
