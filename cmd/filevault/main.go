package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/filevault/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "filevault",
	Short:   "Per-user file vault backed by presigned object store URLs",
	Long: `filevault tracks per-user file metadata and hands out short-lived
presigned URLs so clients move file bytes directly to and from the
object store.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var files []string
		if configFile, _ := cmd.Flags().GetString("config"); configFile != "" {
			files = append(files, configFile)
		}

		cfg, err := config.Load(files, cmd.Flags())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		setupLogging(cfg.Log)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("db-type", "", "metadata backend: sqlite, postgres, redis, memory (env: FILEVAULT_DATABASE_TYPE)")
	rootCmd.PersistentFlags().String("db-dsn", "", "metadata backend connection string (env: FILEVAULT_DATABASE_DSN)")
	rootCmd.PersistentFlags().String("objectstore-type", "", "object store: local, s3, stowry (env: FILEVAULT_OBJECTSTORE_TYPE)")
	rootCmd.PersistentFlags().String("blob-path", "", "local object store directory (env: FILEVAULT_OBJECTSTORE_LOCAL_PATH)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (env: FILEVAULT_LOG_LEVEL)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
