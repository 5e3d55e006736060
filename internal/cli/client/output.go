package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// render prints raw as indented JSON when --output is set, otherwise
// decodes it into v and calls text.
func render[T any](cmd *cobra.Command, raw json.RawMessage, text func(w io.Writer, v T)) error {
	out := cmd.OutOrStdout()

	if outputJSON, _ := cmd.Flags().GetBool("output"); outputJSON {
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err != nil {
			return fmt.Errorf("failed to format response: %w", err)
		}
		buf.WriteByte('\n')
		_, err := buf.WriteTo(out)
		return err
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	text(out, v)
	return nil
}
