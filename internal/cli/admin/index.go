package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cloo-solutions/guardian/internal/config"
	"github.com/spf13/cobra"
)

func IndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index <file.pdf>...",
		Short: "Index local PDF files",
		Long:  "Parse, chunk, embed and store local PDF files without going through the API. Already indexed documents are skipped.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runIndex,
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.Flags().Bool("no-migrate", false, "Skip database migrations before indexing")

	return cmd
}

type indexResult struct {
	File     string `json:"file"`
	SourceID string `json:"source_id"`
	Chunks   int    `json:"chunks"`
	Reused   bool   `json:"reused"`
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	outputFormat, _ := cmd.Flags().GetString("output")
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	app, err := NewApp(ctx, cfg, appOptions{migrate: !noMigrate})
	if err != nil {
		return err
	}
	defer app.Close()

	results := make([]indexResult, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		ingested, err := app.Ingest.Ingest(ctx, data, filepath.Base(path))
		if err != nil {
			return fmt.Errorf("failed to index %s: %w", path, err)
		}

		results = append(results, indexResult{
			File:     path,
			SourceID: ingested.SourceID,
			Chunks:   len(ingested.Chunks),
			Reused:   ingested.Reused,
		})
	}

	out := cmd.OutOrStdout()
	if outputFormat == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	for _, r := range results {
		state := "indexed"
		if r.Reused {
			state = "already indexed"
		}
		fmt.Fprintf(out, "%s\t%s\t%d chunks\t%s\n", r.File, r.SourceID, r.Chunks, state)
	}
	return nil
}
