// Package prompts holds the instructions sent to the language model. Every
// prompt is a text/template so deployments can reword them through a YAML file
// without rebuilding the daemon.
package prompts

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

const defaultSystem = `You are Guardian, a contextual safety tutor.
Do not go outside the scope of Guardian. If user goes outside the scope of Guardian,
tell the user that you are Guardian. You only specialize in scrutinizing policies/legal documents.`

const defaultUser = `Context:
{{.Context}}

Question: {{.Question}}`

const defaultClassify = `You are Guardian, a contextual safety & document analysis assistant.
Classify the following document into one of these types:
{{.Labels}}.
Return only the most likely type.

Document text:
{{.Sample}}`

const defaultAdvise = `You are Guardian, a contextual safety assistant.
The document is classified as: {{.DocType}}.
Identify the top 3 risks, ambiguities, or points of caution in this section (batch {{.Batch}}) of the document.
Explain in plain English and cite relevant section/page if possible.

Document section:
{{.Section}}`

const defaultResearch = `Research query: {{.Query}}

Sources:
{{range .Sources}}{{.Index}}. {{.Title}}: {{.Excerpt}}...

{{end}}
Based on these sources, provide:
1. A comprehensive summary (2-3 sentences)
2. Three key insights as bullet points

Format your response exactly like this:
SUMMARY: [your summary here]

INSIGHTS:
- [insight 1]
- [insight 2]
- [insight 3]`

const defaultFollowUp = `Context from web search:
{{.Context}}

Conversation so far:
{{.Conversation}}

Now user asks: {{.Query}}`

// Fixed questions paired with the generated context in the user message.
const (
	ClassifyQuestion = "classify the document type."
	AdviseQuestion   = "Provide top advisories for this section."
)

// Source is one numbered entry of the research listing.
type Source struct {
	Index   int
	Title   string
	Excerpt string
}

// Set is a compiled group of prompt templates.
type Set struct {
	System string

	user     *template.Template
	classify *template.Template
	advise   *template.Template
	research *template.Template
	followUp *template.Template
}

// File is the YAML layout of a prompt override file. Empty fields keep the
// built-in wording.
type File struct {
	System   string `yaml:"system"`
	User     string `yaml:"user"`
	Classify string `yaml:"classify"`
	Advise   string `yaml:"advise"`
	Research string `yaml:"research"`
	FollowUp string `yaml:"follow_up"`
}

func defaultFile() File {
	return File{
		System:   defaultSystem,
		User:     defaultUser,
		Classify: defaultClassify,
		Advise:   defaultAdvise,
		Research: defaultResearch,
		FollowUp: defaultFollowUp,
	}
}

// Default returns the built-in prompts.
func Default() *Set {
	set, err := compile(defaultFile())
	if err != nil {
		panic(fmt.Sprintf("prompts: built-in templates invalid: %v", err))
	}
	return set
}

// Load overlays the YAML file at path on the built-in prompts. An empty path
// returns the defaults.
func Load(path string) (*Set, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}
	return Parse(data)
}

// Parse overlays YAML data on the built-in prompts.
func Parse(data []byte) (*Set, error) {
	var overrides File
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse prompts file: %w", err)
	}

	merged := defaultFile()
	overlay(&merged.System, overrides.System)
	overlay(&merged.User, overrides.User)
	overlay(&merged.Classify, overrides.Classify)
	overlay(&merged.Advise, overrides.Advise)
	overlay(&merged.Research, overrides.Research)
	overlay(&merged.FollowUp, overrides.FollowUp)

	return compile(merged)
}

func overlay(dst *string, value string) {
	if strings.TrimSpace(value) != "" {
		*dst = value
	}
}

func compile(f File) (*Set, error) {
	set := &Set{System: strings.TrimSpace(f.System)}
	var errs []error
	parse := func(name, text string) *template.Template {
		t, err := template.New(name).Option("missingkey=error").Parse(text)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
		return t
	}

	set.user = parse("user", f.User)
	set.classify = parse("classify", f.Classify)
	set.advise = parse("advise", f.Advise)
	set.research = parse("research", f.Research)
	set.followUp = parse("follow_up", f.FollowUp)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return set, nil
}

func execute(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// User renders the user message that pairs a context block with a question.
func (s *Set) User(context, question string) (string, error) {
	return execute(s.user, map[string]any{"Context": context, "Question": question})
}

func (s *Set) Classify(labels, sample string) (string, error) {
	return execute(s.classify, map[string]any{"Labels": labels, "Sample": sample})
}

// Advise renders the advisory prompt for one batch; batch numbers start at 1.
func (s *Set) Advise(docType string, batch int, section string) (string, error) {
	return execute(s.advise, map[string]any{"DocType": docType, "Batch": batch, "Section": section})
}

func (s *Set) Research(query string, sources []Source) (string, error) {
	return execute(s.research, map[string]any{"Query": query, "Sources": sources})
}

func (s *Set) FollowUp(context, conversation, query string) (string, error) {
	return execute(s.followUp, map[string]any{"Context": context, "Conversation": conversation, "Query": query})
}
