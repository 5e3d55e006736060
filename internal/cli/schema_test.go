package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoot() *cobra.Command {
	root := &cobra.Command{Use: "guardian", Short: "Guardian CLI"}
	root.PersistentFlags().Bool("output", false, "Output as JSON")
	AddHelpJSONFlag(root)

	query := &cobra.Command{Use: "query <question>", Short: "Ask a question", Run: func(*cobra.Command, []string) {}}
	query.Flags().StringP("file", "f", "", "Document to search")
	root.AddCommand(query)

	hidden := &cobra.Command{Use: "debug", Hidden: true, Run: func(*cobra.Command, []string) {}}
	root.AddCommand(hidden)

	return root
}

func TestGenerateSchema(t *testing.T) {
	schema := GenerateSchema(testRoot())

	assert.Equal(t, "guardian", schema.Name)
	require.Len(t, schema.Subcommands, 1)

	query := schema.Subcommands[0]
	assert.Equal(t, "query", query.Name)
	assert.Equal(t, "query <question>", query.Use)
	require.Len(t, query.Flags, 1)
	assert.Equal(t, "file", query.Flags[0].Name)
	assert.Equal(t, "f", query.Flags[0].Shorthand)
	assert.Equal(t, "string", query.Flags[0].Type)

	var names []string
	for _, f := range schema.Flags {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "output")
	assert.NotContains(t, names, "help-json")
}

func TestHandleHelpJSON(t *testing.T) {
	root := testRoot()

	var buf bytes.Buffer
	handled, err := HandleHelpJSON(root, []string{"query", "--help-json"}, &buf)
	require.NoError(t, err)
	assert.True(t, handled)

	var schema CommandSchema
	require.NoError(t, json.Unmarshal(buf.Bytes(), &schema))
	assert.Equal(t, "query", schema.Name)
}

func TestHandleHelpJSON_SkipsFlagsBeforeCommand(t *testing.T) {
	var buf bytes.Buffer
	handled, err := HandleHelpJSON(testRoot(), []string{"--output", "query", "--help-json"}, &buf)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Contains(t, buf.String(), `"name": "query"`)
}

func TestHandleHelpJSON_NotRequested(t *testing.T) {
	var buf bytes.Buffer
	handled, err := HandleHelpJSON(testRoot(), []string{"query", "x"}, &buf)
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Empty(t, buf.String())
}
