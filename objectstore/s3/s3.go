// Package s3 implements an object gateway for S3-compatible stores using
// minio-go. URL issuance signs locally; only DeleteObject contacts the store.
package s3

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/sagarc03/filevault"
)

type Config struct {
	Endpoint  string `mapstructure:"endpoint"` // host[:port], no scheme
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// Gateway implements filevault.ObjectGateway.
type Gateway struct {
	client *minio.Client
	bucket string
}

// New creates a gateway. Region must be set so presigning never needs a
// bucket location lookup.
func New(cfg Config) (*Gateway, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("new s3 gateway: endpoint and bucket are required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("new s3 gateway: %w", err)
	}

	return &Gateway{client: client, bucket: cfg.Bucket}, nil
}

// EnsureBucket creates the bucket if it does not exist.
func (g *Gateway) EnsureBucket(ctx context.Context) error {
	exists, err := g.client.BucketExists(ctx, g.bucket)
	if err != nil {
		return fmt.Errorf("ensure bucket: %w: %w", filevault.ErrStorage, err)
	}
	if exists {
		return nil
	}

	if err := g.client.MakeBucket(ctx, g.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("ensure bucket: %w: %w", filevault.ErrStorage, err)
	}
	return nil
}

// IssueUploadTarget presigns a PUT with Content-Type as a signed header, so
// the upload must declare the same type.
func (g *Gateway) IssueUploadTarget(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	headers := http.Header{}
	headers.Set("Content-Type", contentType)

	u, err := g.client.PresignHeader(ctx, http.MethodPut, g.bucket, key, ttl, nil, headers)
	if err != nil {
		return "", fmt.Errorf("issue upload target: %w: %w", filevault.ErrStorage, err)
	}
	return u.String(), nil
}

func (g *Gateway) IssueDownloadTarget(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := g.client.PresignedGetObject(ctx, g.bucket, key, ttl, nil)
	if err != nil {
		return "", fmt.Errorf("issue download target: %w: %w", filevault.ErrStorage, err)
	}
	return u.String(), nil
}

// DeleteObject removes key. S3 reports success for missing keys; a NoSuchKey
// response from other implementations is treated the same.
func (g *Gateway) DeleteObject(ctx context.Context, key string) error {
	err := g.client.RemoveObject(ctx, g.bucket, key, minio.RemoveObjectOptions{})
	if err == nil {
		return nil
	}

	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return nil
	}

	return fmt.Errorf("delete object: %w: %w", filevault.ErrStorage, err)
}
