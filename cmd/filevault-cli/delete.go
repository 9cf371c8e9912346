package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/filevault/clientcli"
)

var deleteCmd = &cobra.Command{
	Use:     "delete <file-id> [file-id...]",
	Aliases: []string{"rm"},
	Short:   "Delete files",
	Long: `Delete one or more of your files. Each id is attempted even if an
earlier one fails; the exit code is non-zero if any failed.

Examples:
  filevault-cli delete 2b6f0cc9-4f0d-4a58-9c25-5f3c0e0b61aa
  filevault-cli delete -q <id> <id> <id>`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	results, err := client.Delete(cmd.Context(), clientcli.DeleteOptions{FileIDs: args})
	if err != nil {
		return handleError(os.Stderr, err)
	}

	if err := getFormatter().FormatDelete(os.Stdout, results); err != nil {
		return err
	}

	if clientcli.HasDeleteErrors(results) {
		return &exitError{code: 1}
	}

	return nil
}
