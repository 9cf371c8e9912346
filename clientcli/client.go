package clientcli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultTimeout is the default HTTP client timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultListLimit is the page size used when ListOptions.Limit is unset.
	DefaultListLimit = 100
)

// Client performs operations against a filevault server.
//
// API calls carry the configured bearer token. Object transfers go straight
// to the presigned URLs the server issues and carry no credentials.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// New creates a new Client with the given config and options.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}

	cfg = cfg.WithDefaults()

	c := &Client{
		config: &Config{
			Endpoint: strings.TrimSuffix(cfg.Endpoint, "/"),
			Token:    cfg.Token,
		},
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Upload registers an upload intent for a local file and streams the file to
// the returned upload URL. The PUT carries the same content type the intent
// declared, since the URL is bound to it.
func (c *Client) Upload(ctx context.Context, opts UploadOptions) (*UploadResult, error) {
	if opts.LocalPath == "" {
		return nil, fmt.Errorf("upload: %w", ErrEmptyPath)
	}

	file, err := os.Open(opts.LocalPath) //#nosec G304 -- LocalPath is user-provided input
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}

	fileName := opts.FileName
	if fileName == "" {
		fileName = filepath.Base(opts.LocalPath)
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = detectContentType(opts.LocalPath)
	}

	intentBody, err := json.Marshal(map[string]any{
		"fileName":    fileName,
		"fileSize":    info.Size(),
		"contentType": contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	var intent serverUploadResponse
	if err := c.call(ctx, http.MethodPost, "/upload", bytes.NewReader(intentBody), &intent); err != nil {
		return nil, fmt.Errorf("upload intent: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, intent.UploadURL, file)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = info.Size()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("put object: %w", parseServerError(resp.StatusCode, body))
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	result := &UploadResult{
		LocalPath:   opts.LocalPath,
		FileID:      intent.FileID,
		FileName:    fileName,
		ContentType: contentType,
		Size:        info.Size(),
		ETag:        strings.Trim(resp.Header.Get("ETag"), `"`),
		ExpiresAt:   intent.ExpiresAt,
	}

	if opts.Confirm {
		if err := c.call(ctx, http.MethodPost, "/files/"+url.PathEscape(intent.FileID)+"/confirm", nil, nil); err != nil {
			return result, fmt.Errorf("confirm upload: %w", err)
		}
		result.Confirmed = true
	}

	return result, nil
}

// Download resolves a download URL for fileID and fetches the object.
// If opts.LocalPath is "-", the content is returned via the io.ReadCloser and
// must be closed by the caller. Otherwise the content is written to the file
// and the io.ReadCloser is nil.
func (c *Client) Download(ctx context.Context, opts DownloadOptions) (*DownloadResult, io.ReadCloser, error) {
	if opts.FileID == "" {
		return nil, nil, fmt.Errorf("download: %w", ErrEmptyFileID)
	}

	var target serverDownloadResponse
	if err := c.call(ctx, http.MethodGet, "/files/"+url.PathEscape(opts.FileID)+"/download", nil, &target); err != nil {
		return nil, nil, fmt.Errorf("download target: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.DownloadURL, http.NoBody)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("get object: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, nil, fmt.Errorf("get object: %w", parseServerError(resp.StatusCode, body))
	}

	result := &DownloadResult{
		FileID:      opts.FileID,
		FileName:    target.FileName,
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
	}

	if opts.LocalPath == "-" {
		result.LocalPath = "-"
		return result, resp.Body, nil
	}

	localPath := opts.LocalPath
	if localPath == "" {
		localPath = filepath.Base(target.FileName)
	}
	result.LocalPath = localPath

	dir := filepath.Dir(localPath)
	if dir != "" && dir != "." {
		if mkdirErr := os.MkdirAll(dir, 0o750); mkdirErr != nil {
			_ = resp.Body.Close()
			return nil, nil, fmt.Errorf("create directory: %w", mkdirErr)
		}
	}

	file, createErr := os.Create(localPath) //#nosec G304 -- localPath is user-provided input
	if createErr != nil {
		_ = resp.Body.Close()
		return nil, nil, fmt.Errorf("create file: %w", createErr)
	}

	written, copyErr := io.Copy(file, resp.Body)
	_ = resp.Body.Close()
	if copyErr != nil {
		_ = file.Close()
		return nil, nil, fmt.Errorf("write file: %w", copyErr)
	}

	if closeErr := file.Close(); closeErr != nil {
		return nil, nil, fmt.Errorf("close file: %w", closeErr)
	}

	result.Size = written
	return result, nil, nil
}

// Delete deletes one or more files, continuing past failures.
func (c *Client) Delete(ctx context.Context, opts DeleteOptions) ([]DeleteResult, error) {
	if len(opts.FileIDs) == 0 {
		return nil, ErrNoFileIDs
	}

	results := make([]DeleteResult, 0, len(opts.FileIDs))

	for _, fileID := range opts.FileIDs {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		var resp serverDeleteResponse
		if err := c.call(ctx, http.MethodDelete, "/files/"+url.PathEscape(fileID), nil, &resp); err != nil {
			results = append(results, DeleteResult{FileID: fileID, Err: err})
			continue
		}

		results = append(results, DeleteResult{
			FileID:   fileID,
			FileName: resp.DeletedFile.FileName,
			Deleted:  true,
		})
	}

	return results, nil
}

// HasDeleteErrors returns true if any delete operation failed.
func HasDeleteErrors(results []DeleteResult) bool {
	for _, r := range results {
		if r.Err != nil {
			return true
		}
	}
	return false
}

// List lists the caller's files, newest first.
// If opts.All is true, paginates through all results.
func (c *Client) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	if opts.All {
		return c.listAll(ctx, opts)
	}
	return c.listPage(ctx, opts)
}

func (c *Client) listPage(ctx context.Context, opts ListOptions) (*ListResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if opts.Cursor != "" {
		query.Set("cursor", opts.Cursor)
	}

	var resp serverListResponse
	if err := c.call(ctx, http.MethodGet, "/files?"+query.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	return &ListResult{Files: resp.Files, NextCursor: resp.NextCursor}, nil
}

func (c *Client) listAll(ctx context.Context, opts ListOptions) (*ListResult, error) {
	result := &ListResult{}
	cursor := opts.Cursor

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := c.listPage(ctx, ListOptions{Limit: opts.Limit, Cursor: cursor})
		if err != nil {
			return nil, err
		}

		result.Files = append(result.Files, page.Files...)

		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	return result, nil
}

// TotalSize returns the sum of the declared file sizes in bytes.
func (r *ListResult) TotalSize() int64 {
	var total int64
	for _, f := range r.Files {
		total += f.FileSize
	}
	return total
}

// call sends an authenticated API request and decodes a 2xx JSON response
// into out when out is non-nil.
func (c *Client) call(ctx context.Context, method, path string, body io.Reader, out any) error {
	if body == nil {
		body = http.NoBody
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.Endpoint+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}
	if body != http.NoBody {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseServerError(resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// detectContentType returns MIME type based on file extension.
func detectContentType(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return "application/octet-stream"
	}

	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		return "application/octet-stream"
	}

	return mimeType
}

// parseServerError builds an APIError, pulling code and message out of the
// API's JSON error envelope when the body carries one.
func parseServerError(statusCode int, body []byte) error {
	apiErr := &APIError{
		StatusCode: statusCode,
		Body:       string(body),
	}

	var envelope serverError
	if json.Unmarshal(body, &envelope) == nil {
		apiErr.Code = envelope.Error
		apiErr.Message = envelope.Message
	}

	return apiErr
}

// APIError represents an error response from the server or object store.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return "server error: " + strconv.Itoa(e.StatusCode) + " - " + e.Message
	}
	return "server error: " + strconv.Itoa(e.StatusCode) + " - " + e.Body
}

// Is reports whether target is an *APIError with the same StatusCode.
func (e *APIError) Is(target error) bool {
	var t *APIError
	ok := errors.As(target, &t)
	if !ok {
		return false
	}
	return t.StatusCode == e.StatusCode
}

// IsNotFound returns true if the error is a 404.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Sentinel errors for common API error conditions.
// Use errors.Is() to check for these conditions.
var (
	// ErrNotFound is returned when the file does not exist for the caller (404).
	ErrNotFound = &APIError{StatusCode: http.StatusNotFound}

	// ErrUnauthorized is returned when the bearer token is missing or invalid (401).
	ErrUnauthorized = &APIError{StatusCode: http.StatusUnauthorized}

	// ErrForbidden is returned when a presigned URL is rejected (403).
	ErrForbidden = &APIError{StatusCode: http.StatusForbidden}

	// ErrConflict is returned when an upload intent collides (409).
	ErrConflict = &APIError{StatusCode: http.StatusConflict}
)
