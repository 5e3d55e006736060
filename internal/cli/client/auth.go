package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// AuthCmd creates the auth parent command
func AuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage saved API settings",
		Long:  "Save, clear, and inspect the API URL and token used by the guardian CLI",
	}

	cmd.AddCommand(AuthLoginCmd())
	cmd.AddCommand(AuthLogoutCmd())
	cmd.AddCommand(AuthStatusCmd())

	return cmd
}

// AuthLoginCmd creates the auth login command
func AuthLoginCmd() *cobra.Command {
	var token string
	var apiURL string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save the API URL and token",
		Long:  "Store the API URL and token in the global config (~/.config/guardian/config.json). Leave the token empty for open servers.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("token") {
				fmt.Fprint(cmd.OutOrStdout(), "Enter API token (empty for none): ")
				input, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && err != io.EOF {
					return fmt.Errorf("failed to read API token: %w", err)
				}
				token = input
			}

			config := &GlobalConfig{
				APIToken: strings.TrimSpace(token),
				APIURL:   strings.TrimSpace(apiURL),
			}
			if err := SaveGlobalConfig(config); err != nil {
				return fmt.Errorf("failed to save credentials: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Saved settings for", config.APIURL)
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "API token")
	cmd.Flags().StringVar(&apiURL, "url", defaultAPIURL, "API URL")

	return cmd
}

// AuthLogoutCmd creates the auth logout command
func AuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear saved settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := DeleteGlobalConfig(); err != nil {
				return fmt.Errorf("failed to logout: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Successfully logged out")
			return nil
		},
	}
}

// AuthStatusCmd creates the auth status command
func AuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the resolved API settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flagURL, _ := cmd.Flags().GetString("api-url")
			flagToken, _ := cmd.Flags().GetString("api-token")

			settings, err := ResolveSettings(flagURL, flagToken)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outputJSON, _ := cmd.Flags().GetBool("output"); outputJSON {
				data, err := json.MarshalIndent(map[string]any{
					"api_url":   settings.APIURL,
					"source":    string(settings.URLSource),
					"has_token": settings.APIToken != "",
					"api_token": maskToken(settings.APIToken),
				}, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal status: %w", err)
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			fmt.Fprintf(out, "API URL: %s (%s)\n", settings.APIURL, settings.URLSource)
			if settings.APIToken == "" {
				fmt.Fprintln(out, "API Token: none")
			} else {
				fmt.Fprintf(out, "API Token: %s\n", maskToken(settings.APIToken))
			}
			return nil
		},
	}
}

func maskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) < 8 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
