package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/filevault/clientcli"
)

var (
	uploadName        string
	uploadContentType string
	uploadConfirm     bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload <local-path>",
	Short: "Upload a file",
	Long: `Upload a file to the vault.

The file name and content type default to the local file's base name and
the type implied by its extension.

Examples:
  filevault-cli upload ./report.pdf
  filevault-cli upload --name q3.pdf ./report.pdf
  filevault-cli upload --content-type application/json --confirm ./data`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVarP(&uploadName, "name", "n", "", "file name to register (default: base name of local-path)")
	uploadCmd.Flags().StringVar(&uploadContentType, "content-type", "", "override content-type")
	uploadCmd.Flags().BoolVar(&uploadConfirm, "confirm", false, "confirm the upload after the transfer succeeds")
}

func runUpload(cmd *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	result, err := client.Upload(cmd.Context(), clientcli.UploadOptions{
		LocalPath:   args[0],
		FileName:    uploadName,
		ContentType: uploadContentType,
		Confirm:     uploadConfirm,
	})
	if err != nil {
		return handleError(os.Stderr, err)
	}

	return getFormatter().FormatUpload(os.Stdout, result)
}
