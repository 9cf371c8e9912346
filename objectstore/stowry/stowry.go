// Package stowry implements an object gateway backed by a Stowry server using
// its native presigned URLs. Stowry signs only method, path and validity, so
// upload URLs carry the declared content type as an unsigned query value.
package stowry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	stowryclient "github.com/sagarc03/stowry-go"

	"github.com/sagarc03/filevault"
)

type Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// deleteURLTTL bounds the URL used for our own DELETE request.
const deleteURLTTL = time.Minute

// ContentTypeParam names the informational content type on upload URLs.
const ContentTypeParam = "content-type"

// Gateway implements filevault.ObjectGateway.
type Gateway struct {
	signer     *stowryclient.Client
	httpClient *http.Client
}

// New creates a gateway. A nil httpClient uses one with a 30 second timeout.
func New(cfg Config, httpClient *http.Client) (*Gateway, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("new stowry gateway: endpoint is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Gateway{
		signer:     stowryclient.NewClient(cfg.Endpoint, cfg.AccessKey, cfg.SecretKey),
		httpClient: httpClient,
	}, nil
}

// presign calls a stowry-go presign method with ttl in whole seconds.
func presign[E ~int | ~int64](fn func(string, E) string, key string, ttl time.Duration) string {
	return fn("/"+key, E(ttl/time.Second))
}

func (g *Gateway) IssueUploadTarget(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return presign(g.signer.PresignPut, key, ttl) + "&" + ContentTypeParam + "=" + url.QueryEscape(contentType), nil
}

func (g *Gateway) IssueDownloadTarget(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return presign(g.signer.PresignGet, key, ttl), nil
}

// DeleteObject sends a presigned DELETE. A 404 means the object is already gone.
func (g *Gateway) DeleteObject(ctx context.Context, key string) error {
	deleteURL := presign(g.signer.PresignDelete, key, deleteURLTTL)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, deleteURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("delete object: create request: %w: %w", filevault.ErrStorage, err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete object: %w: %w", filevault.ErrStorage, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	default:
		return fmt.Errorf("delete object: %w: unexpected status %d", filevault.ErrStorage, resp.StatusCode)
	}
}
