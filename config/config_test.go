package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/filevault/config"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	// Load with no config files should use defaults
	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 5708, cfg.Server.Port)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 300*time.Second, cfg.Service.URLTTL)
	assert.Equal(t, 30*time.Second, cfg.Service.CleanupTimeout)
	assert.False(t, cfg.Service.ConfirmUploads)
	assert.Equal(t, 255, cfg.Service.Policy.MaxFileNameLength)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "filevault.db", cfg.Database.DSN)
	assert.Equal(t, "filevault_files", cfg.Database.Tables.Files)
	assert.Equal(t, "filevault_orphans", cfg.Database.Tables.Orphans)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, "local", cfg.ObjectStore.Type)
	assert.Equal(t, "./data", cfg.ObjectStore.Local.Path)
	assert.Equal(t, "http://localhost:5708/blobs", cfg.ObjectStore.Local.PublicURL)
	assert.True(t, cfg.ObjectStore.Breaker.Enabled)
	assert.Equal(t, uint32(5), cfg.ObjectStore.Breaker.MinRequests)
	assert.Equal(t, 0.6, cfg.ObjectStore.Breaker.FailureRate)
	assert.Equal(t, "jwt", cfg.Auth.Mode)
	assert.Equal(t, "X-Authenticated-Subject", cfg.Auth.Header)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_ConfigFile(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
server:
  port: 8080
service:
  url_ttl: 120s
  confirm_uploads: true
  policy:
    max_file_size: 10485760
    allowed_content_types:
      - application/pdf
      - image/png
database:
  type: postgres
  dsn: postgres://localhost/test
  tables:
    files: custom_files
    orphans: custom_orphans
objectstore:
  type: s3
  s3:
    endpoint: minio:9000
    bucket: uploads
    access_key: minioadmin
    secret_key: minioadmin
    use_ssl: false
  breaker:
    enabled: false
auth:
  mode: header
  header: X-User
log:
  level: debug
  env: prod
`)

	cfg, err := config.Load([]string{configPath}, nil)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 120*time.Second, cfg.Service.URLTTL)
	assert.True(t, cfg.Service.ConfirmUploads)
	assert.Equal(t, int64(10485760), cfg.Service.Policy.MaxFileSize)
	assert.Equal(t, []string{"application/pdf", "image/png"}, cfg.Service.Policy.AllowedContentTypes)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "postgres://localhost/test", cfg.Database.DSN)
	assert.Equal(t, "custom_files", cfg.Database.Tables.Files)
	assert.Equal(t, "custom_orphans", cfg.Database.Tables.Orphans)
	assert.Equal(t, "s3", cfg.ObjectStore.Type)
	assert.Equal(t, "minio:9000", cfg.ObjectStore.S3.Endpoint)
	assert.Equal(t, "uploads", cfg.ObjectStore.S3.Bucket)
	assert.False(t, cfg.ObjectStore.S3.UseSSL)
	assert.False(t, cfg.ObjectStore.Breaker.Enabled)
	assert.Equal(t, "header", cfg.Auth.Mode)
	assert.Equal(t, "X-User", cfg.Auth.Header)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "prod", cfg.Log.Env)

	policy := cfg.Service.Policy.Policy()
	assert.Equal(t, int64(10485760), policy.MaxFileSize)
	assert.Equal(t, []string{"application/pdf", "image/png"}, policy.AllowedContentTypes)
}

func TestLoad_ConfigFileMerge(t *testing.T) {
	basePath := writeConfig(t, "base.yaml", `
server:
  port: 5708
database:
  type: sqlite
  dsn: base.db
auth:
  mode: jwt
log:
  level: info
`)

	overridePath := writeConfig(t, "override.yaml", `
server:
  port: 9000
auth:
  mode: header
`)

	// Load with merge (later files override earlier)
	cfg, err := config.Load([]string{basePath, overridePath}, nil)
	require.NoError(t, err)

	// Overridden values
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "header", cfg.Auth.Mode)

	// Preserved values from base
	assert.Equal(t, "base.db", cfg.Database.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "invalid port",
			content: "server:\n  port: 99999\n",
			wantErr: "validate config",
		},
		{
			name:    "invalid auth mode",
			content: "auth:\n  mode: basic\n",
			wantErr: "validate config",
		},
		{
			name:    "invalid database type",
			content: "database:\n  type: mongo\n",
			wantErr: "validate config",
		},
		{
			name:    "invalid objectstore type",
			content: "objectstore:\n  type: gcs\n",
			wantErr: "validate config",
		},
		{
			name:    "url ttl too long",
			content: "service:\n  url_ttl: 200h\n",
			wantErr: "validate config",
		},
		{
			name:    "invalid log level",
			content: "log:\n  level: verbose\n",
			wantErr: "validate config",
		},
		{
			name:    "same table names",
			content: "database:\n  tables:\n    files: same\n    orphans: same\n",
			wantErr: "must differ",
		},
		{
			name:    "empty dsn",
			content: "database:\n  type: postgres\n  dsn: \"\"\n",
			wantErr: "database.dsn is required",
		},
		{
			name:    "empty public url",
			content: "objectstore:\n  local:\n    public_url: \"\"\n",
			wantErr: "public_url is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load([]string{writeConfig(t, "config.yaml", tt.content)}, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MemoryDatabaseWithoutDSN(t *testing.T) {
	cfg, err := config.Load([]string{writeConfig(t, "config.yaml", "database:\n  type: memory\n  dsn: \"\"\n")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Database.Type)
}

func TestLoad_WithInlineKeys(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
auth:
  keys:
    inline:
      - access_key: default
        secret_key: jwtsecret
objectstore:
  local:
    keys:
      inline:
        - access_key: FVLOCALKEY
          secret_key: blobsecret
`)

	cfg, err := config.Load([]string{configPath}, nil)
	require.NoError(t, err)

	require.Len(t, cfg.Auth.Keys.Inline, 1)
	assert.Equal(t, "default", cfg.Auth.Keys.Inline[0].AccessKey)
	assert.Equal(t, "jwtsecret", cfg.Auth.Keys.Inline[0].SecretKey)

	require.Len(t, cfg.ObjectStore.Local.Keys.Inline, 1)
	assert.Equal(t, "FVLOCALKEY", cfg.ObjectStore.Local.Keys.Inline[0].AccessKey)
	assert.Equal(t, "blobsecret", cfg.ObjectStore.Local.Keys.Inline[0].SecretKey)
}

func TestLoad_WithCORS(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
cors:
  enabled: true
  allowed_origins:
    - https://example.com
    - https://app.example.com
  allowed_methods:
    - GET
    - POST
  allowed_headers:
    - Authorization
  max_age: 600
`)

	cfg, err := config.Load([]string{configPath}, nil)
	require.NoError(t, err)

	assert.True(t, cfg.CORS.Enabled)
	assert.Equal(t, []string{"https://example.com", "https://app.example.com"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, []string{"GET", "POST"}, cfg.CORS.AllowedMethods)
	assert.Equal(t, []string{"Authorization"}, cfg.CORS.AllowedHeaders)
	assert.Equal(t, 600, cfg.CORS.MaxAge)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("FILEVAULT_SERVER_PORT", "9090")
	t.Setenv("FILEVAULT_DATABASE_TYPE", "postgres")
	t.Setenv("FILEVAULT_DATABASE_DSN", "postgres://env/test")
	t.Setenv("FILEVAULT_OBJECTSTORE_S3_SECRET_KEY", "from-env")
	t.Setenv("FILEVAULT_SERVICE_URL_TTL", "60s")

	cfg, err := config.Load(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "postgres://env/test", cfg.Database.DSN)
	assert.Equal(t, "from-env", cfg.ObjectStore.S3.SecretKey)
	assert.Equal(t, 60*time.Second, cfg.Service.URLTTL)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("FILEVAULT_SERVER_PORT", "9090")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("port", 5708, "")
	flags.String("db-type", "", "")
	flags.String("log-level", "", "")
	require.NoError(t, flags.Parse([]string{"--port=7000", "--db-type=memory"}))

	cfg, err := config.Load(nil, flags)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Database.Type)
	// Unset flags do not override defaults
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestConfig_YAMLRedactsSecrets(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
database:
  type: postgres
  dsn: postgres://app:hunter2@db:5432/filevault
objectstore:
  s3:
    secret_key: s3secret
  local:
    keys:
      inline:
        - access_key: FVLOCALKEY
          secret_key: blobsecret
auth:
  keys:
    inline:
      - access_key: default
        secret_key: jwtsecret
`)

	cfg, err := config.Load([]string{configPath}, nil)
	require.NoError(t, err)

	out, err := cfg.YAML()
	require.NoError(t, err)

	text := string(out)
	assert.NotContains(t, text, "hunter2")
	assert.NotContains(t, text, "s3secret")
	assert.NotContains(t, text, "jwtsecret")
	assert.NotContains(t, text, "blobsecret")
	assert.Contains(t, text, "postgres://app:REDACTED@db:5432/filevault")
	assert.Contains(t, text, "access_key: default")
	assert.Contains(t, text, "port: 5708")
}

func TestConfig_YAMLRedactsKeyValueDSN(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
database:
  type: postgres
  dsn: host=db user=app password=hunter2 dbname=filevault
`)

	cfg, err := config.Load([]string{configPath}, nil)
	require.NoError(t, err)

	out, err := cfg.YAML()
	require.NoError(t, err)
	assert.NotContains(t, string(out), "hunter2")
	assert.Contains(t, string(out), "password=REDACTED")
}

func TestFromContext(t *testing.T) {
	_, err := config.FromContext(context.Background())
	assert.ErrorContains(t, err, "config not found")

	cfg := &config.Config{}
	got, err := config.FromContext(config.WithContext(context.Background(), cfg))
	require.NoError(t, err)
	assert.Same(t, cfg, got)
}
