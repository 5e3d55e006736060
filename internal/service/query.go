package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloo-solutions/guardian/internal/domain"
	"github.com/cloo-solutions/guardian/internal/telemetry"
)

// QueryService answers questions about indexed documents.
type QueryService struct {
	index     *IndexGateway
	inference *Inference
	topK      int
}

func NewQueryService(index *IndexGateway, inference *Inference) *QueryService {
	return &QueryService{index: index, inference: inference, topK: DefaultTopK}
}

// Answer retrieves the chunks closest to question, restricted to filename when
// given, and asks the model. Retrieval failures are returned as errors; model
// failures are carried in the Completion.
func (s *QueryService) Answer(ctx context.Context, question, filename string) (Completion, error) {
	sourceID := domain.NormalizeFilename(filename)

	ctx, span := telemetry.StartSpan(ctx, "query", telemetry.SpanAttributes{
		SourceID:  sourceID,
		Operation: "query",
	})
	defer span.End()

	hits, err := s.index.Query(ctx, question, s.topK, sourceID)
	if err != nil {
		span.SetError(err)
		return Completion{}, err
	}
	span.SetData("hits", len(hits))

	completion := s.inference.Run(ctx, question, FormatContext(hits))
	if completion.Err != nil {
		span.SetError(completion.Err)
	}
	return completion, nil
}

// FormatContext renders retrieval hits as the context block of a question.
func FormatContext(hits domain.RetrievalResult) string {
	parts := make([]string, len(hits))
	for i, h := range hits {
		parts[i] = fmt.Sprintf("Page Content: %s \nPage Number: %d", h.Text, h.PageNumber)
	}
	return strings.Join(parts, "\n\n")
}
