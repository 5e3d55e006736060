package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/guardian/internal/cli"
	"github.com/cloo-solutions/guardian/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "guardian",
		Short: "Guardian CLI - policy document assistant",
		Long: `Guardian CLI uploads policy documents, asks questions about them, and runs web research.

Environment variables:
  GUARDIAN_API_URL     API base URL (default: http://localhost:8080)
  GUARDIAN_API_TOKEN   Bearer token, when the server requires one`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	client.AddGlobalFlags(rootCmd)
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.UploadCmd())
	rootCmd.AddCommand(client.QueryCmd())
	rootCmd.AddCommand(client.StatusCmd())
	rootCmd.AddCommand(client.DownloadCmd())
	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.AuthCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
