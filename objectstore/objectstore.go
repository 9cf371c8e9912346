// Package objectstore selects and wires the object gateway: the local blob
// store, an S3-compatible bucket, or a Stowry server.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sagarc03/filevault"
	"github.com/sagarc03/filevault/filesystem"
	"github.com/sagarc03/filevault/keybackend"
	"github.com/sagarc03/filevault/objectstore/local"
	"github.com/sagarc03/filevault/objectstore/s3"
	"github.com/sagarc03/filevault/objectstore/stowry"
)

// Config selects the gateway backend.
type Config struct {
	Type    string        `mapstructure:"type" validate:"required,oneof=local s3 stowry"`
	Local   LocalConfig   `mapstructure:"local"`
	S3      s3.Config     `mapstructure:"s3"`
	Stowry  stowry.Config `mapstructure:"stowry"`
	Breaker BreakerConfig `mapstructure:"breaker"`
}

// LocalConfig configures the built-in blob store.
type LocalConfig struct {
	Path      string `mapstructure:"path"`       // Root directory for blobs
	PublicURL string `mapstructure:"public_url"` // Absolute URL of the blob route, e.g. http://localhost:5708/blobs
	Region    string `mapstructure:"region"`
	Service   string `mapstructure:"service"`
	AccessKey string `mapstructure:"access_key"` // Signing key id; defaults to the first key in Keys

	// Keys sign and verify blob URLs. They are separate from the bearer token
	// keys so that neither secret can stand in for the other.
	Keys keybackend.KeysConfig `mapstructure:"keys"`
}

// Backend is an opened gateway. Local and SigningKeys are set only for the
// local type and carry what the HTTP layer needs to serve and verify blobs.
type Backend struct {
	Gateway     filevault.ObjectGateway
	Local       *local.Gateway
	SigningKeys *keybackend.MapSecretStore
	close       func() error
}

// Close releases resources held by the backend.
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// Open builds the configured gateway. When cfg.Breaker.Enabled the gateway is
// wrapped in a Breaker.
func Open(ctx context.Context, cfg Config) (*Backend, error) {
	backend, err := open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Breaker.Enabled {
		backend.Gateway = NewBreaker("objectstore-"+cfg.Type, backend.Gateway, cfg.Breaker)
	}

	return backend, nil
}

func open(ctx context.Context, cfg Config) (*Backend, error) {
	switch cfg.Type {
	case "local":
		return openLocal(cfg.Local)
	case "s3":
		gw, err := s3.New(cfg.S3)
		if err != nil {
			return nil, err
		}
		if err := gw.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("open s3: %w", err)
		}
		return &Backend{Gateway: gw}, nil
	case "stowry":
		gw, err := stowry.New(cfg.Stowry, nil)
		if err != nil {
			return nil, err
		}
		return &Backend{Gateway: gw}, nil
	default:
		return nil, fmt.Errorf("unsupported objectstore type: %s", cfg.Type)
	}
}

func openLocal(cfg LocalConfig) (*Backend, error) {
	keys, err := keybackend.NewSecretStore(cfg.Keys)
	if err != nil {
		return nil, fmt.Errorf("open local: load signing keys: %w", err)
	}
	if keys.Len() == 0 {
		return nil, errors.New("open local: at least one signing key is required")
	}

	pair, ok := keys.First()
	if cfg.AccessKey != "" {
		secret, err := keys.Lookup(cfg.AccessKey)
		if err != nil {
			return nil, fmt.Errorf("open local: signing key: %w", err)
		}
		pair, ok = keybackend.KeyPair{AccessKey: cfg.AccessKey, SecretKey: secret}, true
	}
	if !ok {
		return nil, errors.New("open local: no signing key")
	}

	presigner, err := filevault.NewPresigner(cfg.PublicURL, pair.AccessKey, pair.SecretKey, cfg.Region, cfg.Service)
	if err != nil {
		return nil, fmt.Errorf("open local: %w", err)
	}

	if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
		return nil, fmt.Errorf("open local: create root: %w", err)
	}

	root, err := os.OpenRoot(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open local: open root: %w", err)
	}

	gw := local.New(presigner, filesystem.NewStore(root))
	return &Backend{Gateway: gw, Local: gw, SigningKeys: keys, close: root.Close}, nil
}
