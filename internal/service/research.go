package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/guardian/internal/domain"
	"github.com/cloo-solutions/guardian/internal/prompts"
	"github.com/cloo-solutions/guardian/internal/telemetry"
)

// NoSourcesFound is returned instead of a summary when the search produced no
// usable pages.
const NoSourcesFound = "No sources found"

const (
	// ResearchResults is how many pages are requested from the search provider.
	ResearchResults = 5
	// MinSourceChars is the length a page's text must exceed to be used.
	MinSourceChars = 200
	// MaxListedSources caps the sources shown to the model.
	MaxListedSources = 4
	// SourceExcerptChars is the length of each listed source excerpt.
	SourceExcerptChars = 400
)

// WebSearcher finds pages on the web.
type WebSearcher interface {
	Search(ctx context.Context, query string, numResults int) ([]domain.WebResult, error)
}

// ResearchService summarizes web results and answers follow-up questions on
// them.
type ResearchService struct {
	searcher  WebSearcher
	inference *Inference
}

// NewResearchService creates the service. searcher may be nil when no search
// provider is configured; Research then fails with ErrWebSearchNotConfigured.
func NewResearchService(searcher WebSearcher, inference *Inference) *ResearchService {
	return &ResearchService{searcher: searcher, inference: inference}
}

// Research searches the web for query and asks the model for a summary with
// three insights.
func (s *ResearchService) Research(ctx context.Context, query string) (Completion, error) {
	if s.searcher == nil {
		return Completion{}, domain.ErrWebSearchNotConfigured
	}

	ctx, span := telemetry.StartSpan(ctx, "research", telemetry.SpanAttributes{Operation: "research"})
	defer span.End()

	results, err := s.searcher.Search(ctx, query, ResearchResults)
	if err != nil {
		err = fmt.Errorf("web search failed: %w", err)
		span.SetError(err)
		return Completion{}, err
	}

	sources := usableSources(results)
	log.Printf("research: %d of %d sources usable", len(sources), len(results))
	span.SetData("sources", len(sources))
	if len(sources) == 0 {
		return Completion{Text: NoSourcesFound}, nil
	}

	prompt, err := s.inference.Prompts().Research(query, sources)
	if err != nil {
		span.SetError(err)
		return Completion{}, err
	}

	completion := s.inference.Run(ctx, query, prompt)
	if completion.Err != nil {
		span.SetError(completion.Err)
	}
	return completion, nil
}

// FollowUp answers query using previously gathered web context and the
// conversation so far.
func (s *ResearchService) FollowUp(ctx context.Context, query, webContext string, history []domain.ConversationTurn) Completion {
	ctx, span := telemetry.StartSpan(ctx, "follow_up", telemetry.SpanAttributes{Operation: "follow_up"})
	defer span.End()

	prompt, err := s.inference.Prompts().FollowUp(webContext, FormatConversation(history), query)
	if err != nil {
		span.SetError(err)
		return Completion{Err: err}
	}

	completion := s.inference.Run(ctx, query, prompt)
	if completion.Err != nil {
		span.SetError(completion.Err)
	}
	return completion
}

// FormatConversation renders turns as "User: ...\nAssistant: ..." blocks.
func FormatConversation(history []domain.ConversationTurn) string {
	turns := make([]string, len(history))
	for i, turn := range history {
		turns[i] = fmt.Sprintf("User: %s\nAssistant: %s", turn.User, turn.Assistant)
	}
	return strings.Join(turns, "\n")
}

// usableSources keeps results with enough text and numbers the first few.
func usableSources(results []domain.WebResult) []prompts.Source {
	sources := make([]prompts.Source, 0, MaxListedSources)
	for _, r := range results {
		if utf8.RuneCountInString(r.Text) <= MinSourceChars {
			continue
		}
		if len(sources) == MaxListedSources {
			break
		}
		sources = append(sources, prompts.Source{
			Index:   len(sources) + 1,
			Title:   r.Title,
			Excerpt: truncateRunes(r.Text, SourceExcerptChars),
		})
	}
	return sources
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
