package main

import (
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/filevault/clientcli"
)

var (
	version = "dev"

	cfgFile    string
	profile    string
	endpoint   string
	token      string
	jsonOutput bool
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:     "filevault-cli",
	Version: version,
	Short:   "Client for the filevault API",
	Long: `filevault-cli - client for a filevault server

Uploads register an intent with the API and then send the bytes straight to
the presigned URL the server returns. Downloads work the same way in reverse.

Credentials are resolved in this order, later wins:
  1. the profile in ~/.filevault/config.yaml (--profile or FILEVAULT_PROFILE)
  2. FILEVAULT_ENDPOINT and FILEVAULT_TOKEN
  3. --endpoint and --token`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.filevault/config.yaml, env: FILEVAULT_CONFIG)")
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "profile name (env: FILEVAULT_PROFILE)")
	rootCmd.PersistentFlags().StringVarP(&endpoint, "endpoint", "e", "", "server URL (default: http://localhost:5708, env: FILEVAULT_ENDPOINT)")
	rootCmd.PersistentFlags().StringVarP(&token, "token", "t", "", "bearer token (env: FILEVAULT_TOKEN)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")

	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(configureCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exit *exitError
		if !errors.As(err, &exit) {
			_ = getFormatter().FormatError(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if path := clientcli.ConfigPathFromEnv(); path != "" {
		return path
	}
	return clientcli.DefaultConfigPath()
}

// buildConfig merges the selected profile, env vars and flags.
// A missing default config file is not an error; a missing explicit one is.
func buildConfig() (*clientcli.Config, error) {
	var configs []*clientcli.Config

	explicit := cfgFile != "" || clientcli.ConfigPathFromEnv() != ""
	configPath := getConfigPath()

	if configPath != "" {
		file, err := clientcli.LoadConfigFile(configPath)
		switch {
		case err != nil && explicit:
			return nil, err
		case err == nil:
			name := profile
			if name == "" {
				name = clientcli.ProfileFromEnv()
			}
			p, profileErr := file.GetProfile(name)
			if profileErr != nil && name != "" {
				return nil, profileErr
			}
			if profileErr == nil {
				configs = append(configs, clientcli.ConfigFromProfile(p))
			}
		}
	}

	configs = append(configs,
		clientcli.ConfigFromEnv(),
		&clientcli.Config{Endpoint: endpoint, Token: token},
	)

	return clientcli.MergeConfig(configs...), nil
}

func getFormatter() clientcli.Formatter {
	return clientcli.NewFormatter(jsonOutput, quiet)
}

// getClient builds a client and requires a token, since every API route
// needs one.
func getClient() (*clientcli.Client, error) {
	cfg, err := buildConfig()
	if err != nil {
		return nil, err
	}

	if err := cfg.ValidateWithAuth(); err != nil {
		return nil, err
	}

	return clientcli.New(cfg)
}

// handleError prints err once and tells main not to print it again.
func handleError(w io.Writer, err error) error {
	_ = getFormatter().FormatError(w, err)
	return &exitError{code: 1}
}

// exitError is returned when the error has already been reported.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return ""
}
