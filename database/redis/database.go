package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/sagarc03/filevault"
)

// DefaultKeyPrefix namespaces every key written by this backend.
const DefaultKeyPrefix = "filevault"

// Database provides Redis-backed metadata operations.
type Database struct {
	client *goredis.Client
	keys   keys
}

// Connect parses a redis:// URL, opens a client and pings the server.
func Connect(ctx context.Context, dsn, keyPrefix string) (*Database, error) {
	opts, err := goredis.ParseURL(dsn)
	if err != nil {
		return nil, fmt.Errorf("connect redis: parse dsn: %w", err)
	}

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: ping: %w", err)
	}

	return New(client, keyPrefix), nil
}

// New wraps an existing client. An empty keyPrefix uses DefaultKeyPrefix.
func New(client *goredis.Client, keyPrefix string) *Database {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &Database{client: client, keys: keys{prefix: keyPrefix}}
}

func (d *Database) Ping(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}

// Migrate is a no-op; Redis keys need no schema.
func (d *Database) Migrate(context.Context) error {
	return nil
}

// Validate checks that the server is reachable.
func (d *Database) Validate(ctx context.Context) error {
	if err := d.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	return nil
}

func (d *Database) Store() filevault.MetadataStore {
	return &Repo{client: d.client, keys: d.keys}
}

func (d *Database) Ledger() filevault.OrphanLedger {
	return &Ledger{client: d.client, keys: d.keys}
}

func (d *Database) Close() error {
	return d.client.Close()
}

type keys struct {
	prefix string
}

func (k keys) file(ownerID, fileID string) string {
	return k.prefix + ":file:" + ownerID + ":" + fileID
}

func (k keys) owner(ownerID string) string {
	return k.prefix + ":owner:" + ownerID
}

func (k keys) orphans() string {
	return k.prefix + ":orphans"
}

func (k keys) orphanQueue() string {
	return k.prefix + ":orphans:queue"
}
