package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sagarc03/filevault"
	"github.com/sagarc03/filevault/database"
	fvhttp "github.com/sagarc03/filevault/http"
	"github.com/sagarc03/filevault/keybackend"
	"github.com/sagarc03/filevault/objectstore"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for filevault.
type Config struct {
	Server      ServerConfig       `mapstructure:"server"`
	Service     ServiceConfig      `mapstructure:"service"`
	Database    database.Config    `mapstructure:"database"`
	ObjectStore objectstore.Config `mapstructure:"objectstore"`
	Auth        AuthConfig         `mapstructure:"auth"`
	CORS        fvhttp.CORSConfig  `mapstructure:"cors"`
	Metrics     MetricsConfig      `mapstructure:"metrics"`
	Log         LogConfig          `mapstructure:"log"`

	// settings is the merged key tree the struct was decoded from.
	settings map[string]any
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes" validate:"min=0"`
	MaxBlobBytes    int64         `mapstructure:"max_blob_bytes" validate:"min=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=1s"`
}

// ServiceConfig holds file lifecycle configuration.
type ServiceConfig struct {
	URLTTL         time.Duration `mapstructure:"url_ttl" validate:"min=1s,max=168h"`
	CleanupTimeout time.Duration `mapstructure:"cleanup_timeout" validate:"min=1s"`
	ConfirmUploads bool          `mapstructure:"confirm_uploads"`
	Policy         PolicyConfig  `mapstructure:"policy"`
}

// PolicyConfig bounds upload intents. Zero values mean no limit.
type PolicyConfig struct {
	MaxFileSize         int64    `mapstructure:"max_file_size" validate:"min=0"`
	AllowedContentTypes []string `mapstructure:"allowed_content_types"`
	MaxFileNameLength   int      `mapstructure:"max_file_name_length" validate:"min=0,max=1024"`
}

// Policy converts the config into a filevault.Policy.
func (p PolicyConfig) Policy() filevault.Policy {
	return filevault.Policy{
		MaxFileSize:         p.MaxFileSize,
		AllowedContentTypes: p.AllowedContentTypes,
		MaxFileNameLength:   p.MaxFileNameLength,
	}
}

// AuthConfig holds caller identity configuration. Keys are JWT secrets looked
// up by kid. Blob URL signing keys live under objectstore.local.keys.
type AuthConfig struct {
	Mode     string                `mapstructure:"mode" validate:"required,oneof=jwt header"`
	Header   string                `mapstructure:"header"`
	Issuer   string                `mapstructure:"issuer"`
	Audience string                `mapstructure:"audience"`
	Leeway   time.Duration         `mapstructure:"leeway" validate:"min=0"`
	Keys     keybackend.KeysConfig `mapstructure:"keys"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Env   string `mapstructure:"env" validate:"omitempty,oneof=dev prod production"`
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"db-type":          "database.type",
	"db-dsn":           "database.dsn",
	"objectstore-type": "objectstore.type",
	"blob-path":        "objectstore.local.path",
	"port":             "server.port",
	"auth-mode":        "auth.mode",
	"log-level":        "log.level",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		// Use custom mapping if it exists, otherwise use flag name as-is
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance. Keys without a
// meaningful default are registered empty so environment variables reach them.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5708)
	v.SetDefault("server.max_body_bytes", fvhttp.DefaultMaxBodyBytes)
	v.SetDefault("server.max_blob_bytes", 0) // 0 means no limit
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("service.url_ttl", filevault.DefaultURLTTL.String())
	v.SetDefault("service.cleanup_timeout", "30s")
	v.SetDefault("service.confirm_uploads", false)
	v.SetDefault("service.policy.max_file_size", 0)
	v.SetDefault("service.policy.max_file_name_length", 255)

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "filevault.db")
	v.SetDefault("database.tables.files", "filevault_files")
	v.SetDefault("database.tables.orphans", "filevault_orphans")
	v.SetDefault("database.key_prefix", "filevault")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("objectstore.type", "local")
	v.SetDefault("objectstore.local.path", "./data")
	v.SetDefault("objectstore.local.public_url", "http://localhost:5708/blobs")
	v.SetDefault("objectstore.local.region", "us-east-1")
	v.SetDefault("objectstore.local.service", "s3")
	v.SetDefault("objectstore.local.access_key", "")
	v.SetDefault("objectstore.local.keys.file", "")
	v.SetDefault("objectstore.s3.endpoint", "")
	v.SetDefault("objectstore.s3.region", "us-east-1")
	v.SetDefault("objectstore.s3.bucket", "filevault")
	v.SetDefault("objectstore.s3.access_key", "")
	v.SetDefault("objectstore.s3.secret_key", "")
	v.SetDefault("objectstore.s3.use_ssl", true)
	v.SetDefault("objectstore.stowry.endpoint", "")
	v.SetDefault("objectstore.stowry.access_key", "")
	v.SetDefault("objectstore.stowry.secret_key", "")
	v.SetDefault("objectstore.breaker.enabled", true)
	v.SetDefault("objectstore.breaker.max_requests", 1)
	v.SetDefault("objectstore.breaker.interval", "60s")
	v.SetDefault("objectstore.breaker.timeout", "30s")
	v.SetDefault("objectstore.breaker.min_requests", 5)
	v.SetDefault("objectstore.breaker.failure_rate", 0.6)

	v.SetDefault("auth.mode", "jwt")
	v.SetDefault("auth.header", fvhttp.DefaultIdentityHeader)
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.audience", "")
	v.SetDefault("auth.leeway", "0s")
	v.SetDefault("auth.keys.file", "")

	v.SetDefault("metrics.enabled", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.env", "dev")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix("FILEVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.settings = v.AllSettings()
	return &cfg, nil
}

// Validate checks struct tags and the cross-field rules they cannot express.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	switch c.Database.Type {
	case "sqlite", "postgres":
		if err := c.Database.Tables.Validate(); err != nil {
			return fmt.Errorf("validate config: database: %w", err)
		}
	}

	if c.Database.Type != "memory" && c.Database.DSN == "" {
		return errors.New("validate config: database.dsn is required")
	}

	if c.ObjectStore.Type == "local" && c.ObjectStore.Local.PublicURL == "" {
		return errors.New("validate config: objectstore.local.public_url is required")
	}

	return nil
}
