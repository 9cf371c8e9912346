package database

import (
	"context"
	"fmt"

	"github.com/sagarc03/filevault"
	"github.com/sagarc03/filevault/database/memory"
	"github.com/sagarc03/filevault/database/postgres"
	"github.com/sagarc03/filevault/database/redis"
	"github.com/sagarc03/filevault/database/sqlite"
)

// Config holds the configuration for connecting to a metadata backend.
type Config struct {
	// Type specifies the backend: "sqlite", "postgres", "redis" or "memory"
	Type string `mapstructure:"type" validate:"required,oneof=sqlite postgres redis memory"`
	// DSN is the data source name (connection string or redis:// URL)
	DSN string `mapstructure:"dsn"`
	// Tables names the SQL tables. Ignored by redis and memory.
	Tables filevault.Tables `mapstructure:"tables"`
	// KeyPrefix namespaces redis keys. Ignored by the SQL backends.
	KeyPrefix string `mapstructure:"key_prefix"`
	// AutoMigrate creates missing tables when the server starts.
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// Database is a connected metadata backend.
type Database interface {
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Validate(ctx context.Context) error
	Store() filevault.MetadataStore
	Ledger() filevault.OrphanLedger
	Close() error
}

// Connect opens the configured backend. It does not migrate; callers run
// Migrate and Validate as their deployment requires.
func Connect(ctx context.Context, cfg Config) (Database, error) {
	switch cfg.Type {
	case "sqlite", "postgres":
		if err := cfg.Tables.Validate(); err != nil {
			return nil, fmt.Errorf("connect: %w", err)
		}
	}

	switch cfg.Type {
	case "sqlite":
		return sqlite.Connect(ctx, cfg.DSN, cfg.Tables)
	case "postgres":
		return postgres.Connect(ctx, cfg.DSN, cfg.Tables)
	case "redis":
		return redis.Connect(ctx, cfg.DSN, cfg.KeyPrefix)
	case "memory":
		return &memoryDatabase{store: memory.NewStore()}, nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}

type memoryDatabase struct {
	store *memory.Store
}

func (m *memoryDatabase) Ping(context.Context) error     { return nil }
func (m *memoryDatabase) Migrate(context.Context) error  { return nil }
func (m *memoryDatabase) Validate(context.Context) error { return nil }
func (m *memoryDatabase) Store() filevault.MetadataStore { return m.store }
func (m *memoryDatabase) Ledger() filevault.OrphanLedger { return m.store }
func (m *memoryDatabase) Close() error                   { return nil }
