package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

type WebSearchRequest struct {
	Query string `json:"query"`
}

type WebSearchResponse struct {
	Summary string `json:"summary"`
}

// ConversationTurn is one prior exchange passed to ask --history.
type ConversationTurn struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

type WebQARequest struct {
	Query   string             `json:"query"`
	Context string             `json:"context"`
	History []ConversationTurn `json:"history"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Research a topic on the web",
		Long:  "Searches the web and prints a summary with key insights drawn from the top sources.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			raw, err := api.Post(cmd.Context(), "/web/search", WebSearchRequest{Query: strings.Join(args, " ")})
			if err != nil {
				return err
			}

			return render(cmd, raw, func(w io.Writer, resp WebSearchResponse) {
				fmt.Fprintln(w, resp.Summary)
			})
		},
	}
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var (
		webContext  string
		historyPath string
	)

	cmd := &cobra.Command{
		Use:   "ask <query>",
		Short: "Ask a follow-up question about a web search",
		Long: `Asks a follow-up question grounded in earlier research.

--context takes the research summary as text, or @path to read it from a file.
--history points to a JSON array of {"user": ..., "assistant": ...} turns.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contextText, err := readArg(webContext)
			if err != nil {
				return err
			}

			history, err := loadHistory(historyPath)
			if err != nil {
				return err
			}

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			raw, err := api.Post(cmd.Context(), "/web/qa", WebQARequest{
				Query:   strings.Join(args, " "),
				Context: contextText,
				History: history,
			})
			if err != nil {
				return err
			}

			return render(cmd, raw, func(w io.Writer, resp AnswerResponse) {
				fmt.Fprintln(w, resp.Answer)
			})
		},
	}

	cmd.Flags().StringVarP(&webContext, "context", "c", "", "Research summary text, or @file")
	cmd.Flags().StringVar(&historyPath, "history", "", "JSON file with previous turns")

	return cmd
}

// readArg returns value, or the contents of the file when value starts with @.
func readArg(value string) (string, error) {
	path, ok := strings.CutPrefix(value, "@")
	if !ok {
		return value, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func loadHistory(path string) ([]ConversationTurn, error) {
	if path == "" {
		return []ConversationTurn{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	var history []ConversationTurn
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("failed to parse history: %w", err)
	}
	return history, nil
}

func pathEscape(filename string) string {
	return url.PathEscape(filename)
}
