// Package config provides configuration loading and validation for filevault.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (FILEVAULT_ prefix)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Store in context for subcommands
//	ctx = config.WithContext(ctx, cfg)
//
//	// Retrieve later
//	cfg, err = config.FromContext(ctx)
//
// # Environment Variables
//
// All config keys map to environment variables with FILEVAULT_ prefix:
//   - server.port → FILEVAULT_SERVER_PORT
//   - database.dsn → FILEVAULT_DATABASE_DSN
//   - objectstore.s3.secret_key → FILEVAULT_OBJECTSTORE_S3_SECRET_KEY
//
// # Configuration Structure
//
// The Config struct contains:
//   - Server: port, body limits and shutdown timeout
//   - Service: URL lifetime, cleanup timeout, upload confirmation and policy
//   - Database: metadata backend type, DSN, table names and redis key prefix
//   - ObjectStore: gateway type (local, s3, stowry), its settings and the circuit breaker
//   - Auth: identity mode (jwt or header) and bearer token keys
//   - CORS: cross-origin resource sharing settings
//   - Metrics: Prometheus endpoint toggle
//   - Log: level and environment (dev or prod)
//
// Config.YAML renders the effective configuration with secrets redacted.
package config
