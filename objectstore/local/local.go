// Package local implements an object gateway whose objects live on the local
// file system and are served by this process under a blob route. URLs are
// AWS Signature V4 presigned and verified by the blob handler.
package local

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sagarc03/filevault"
	"github.com/sagarc03/filevault/filesystem"
)

// Gateway implements filevault.ObjectGateway over a filesystem.Store.
type Gateway struct {
	presigner *filevault.Presigner
	blobs     *filesystem.Store
}

func New(presigner *filevault.Presigner, blobs *filesystem.Store) *Gateway {
	return &Gateway{presigner: presigner, blobs: blobs}
}

// Blobs returns the store the blob handler reads and writes.
func (g *Gateway) Blobs() *filesystem.Store {
	return g.blobs
}

// RoutePrefix returns the path under which signed URLs point, e.g. "/blobs".
func (g *Gateway) RoutePrefix() string {
	return strings.TrimSuffix(g.presigner.Endpoint.Path, "/")
}

// IssueUploadTarget signs a PUT bound to key and to the Content-Type header.
func (g *Gateway) IssueUploadTarget(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	signed := http.Header{}
	signed.Set("Content-Type", contentType)

	u, err := g.presigner.Presign(http.MethodPut, key, ttl, signed)
	if err != nil {
		return "", fmt.Errorf("issue upload target: %w", err)
	}
	return u, nil
}

func (g *Gateway) IssueDownloadTarget(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	u, err := g.presigner.Presign(http.MethodGet, key, ttl, nil)
	if err != nil {
		return "", fmt.Errorf("issue download target: %w", err)
	}
	return u, nil
}

func (g *Gateway) DeleteObject(ctx context.Context, key string) error {
	if err := g.blobs.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete object: %w: %w", filevault.ErrStorage, err)
	}
	return nil
}
