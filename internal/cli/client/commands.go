package client

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// AddGlobalFlags registers the flags every client command reads.
func AddGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().Bool("output", false, "Output as JSON")
	cmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cmd.PersistentFlags().String("api-token", "", "API token (overrides env and config)")
}

type UploadResponse struct {
	Status   string `json:"status"`
	DocType  string `json:"doc_type"`
	Insights string `json:"insights"`
	SourceID string `json:"source_id"`
}

// UploadCmd creates the upload command.
func UploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file.pdf>",
		Short: "Upload a policy document",
		Long:  "Uploads a PDF, indexes it if it is new, and prints its document type and advisories.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open file: %w", err)
			}
			defer file.Close()

			raw, err := api.PostFile(cmd.Context(), "/upload", filepath.Base(args[0]), file)
			if err != nil {
				return err
			}

			return render(cmd, raw, func(w io.Writer, resp UploadResponse) {
				fmt.Fprintf(w, "Source: %s\n", resp.SourceID)
				fmt.Fprintf(w, "Type: %s\n\n", resp.DocType)
				fmt.Fprintln(w, resp.Insights)
			})
		},
	}
}

type QueryRequest struct {
	Question string `json:"question"`
	Filename string `json:"filename"`
}

type AnswerResponse struct {
	Answer string `json:"answer"`
}

// QueryCmd creates the query command.
func QueryCmd() *cobra.Command {
	var filename string

	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Ask a question about uploaded documents",
		Long:  "Answers a question from the two most similar chunks. --file restricts retrieval to one uploaded document.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			raw, err := api.Post(cmd.Context(), "/query", QueryRequest{
				Question: strings.Join(args, " "),
				Filename: filename,
			})
			if err != nil {
				return err
			}

			return render(cmd, raw, func(w io.Writer, resp AnswerResponse) {
				fmt.Fprintln(w, resp.Answer)
			})
		},
	}

	cmd.Flags().StringVarP(&filename, "file", "f", "", "Document to search (file name, extension optional)")

	return cmd
}

type StatusResponse struct {
	SourceID string `json:"source_id"`
	Indexed  bool   `json:"indexed"`
	Chunks   int    `json:"chunks"`
}

// StatusCmd creates the status command.
func StatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <filename>",
		Short: "Show whether a document is indexed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			raw, err := api.Get(cmd.Context(), "/documents/"+pathEscape(args[0]))
			if err != nil {
				return err
			}

			return render(cmd, raw, func(w io.Writer, resp StatusResponse) {
				fmt.Fprintf(w, "%s: indexed, %d chunks\n", resp.SourceID, resp.Chunks)
			})
		},
	}
}

type DownloadResponse struct {
	URL string `json:"url"`
}

// DownloadCmd creates the download command.
func DownloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download <filename>",
		Short: "Print a download link for an archived upload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			raw, err := api.Get(cmd.Context(), "/documents/"+pathEscape(args[0])+"/download")
			if err != nil {
				return err
			}

			return render(cmd, raw, func(w io.Writer, resp DownloadResponse) {
				fmt.Fprintln(w, resp.URL)
			})
		},
	}
}
