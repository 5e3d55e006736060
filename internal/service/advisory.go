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

const (
	// ClassificationSampleChunks is how many leading chunks are shown to the
	// model when classifying.
	ClassificationSampleChunks = 4
	// MaxCharsPerBatch bounds the document text sent in one advise call.
	MaxCharsPerBatch = 6000

	batchJoin = "\n\n"
)

// AdvisoryService produces the "first look" of an uploaded document: its type
// and the main points of caution.
type AdvisoryService struct {
	inference *Inference
	maxChars  int
}

func NewAdvisoryService(inference *Inference) *AdvisoryService {
	return &AdvisoryService{inference: inference, maxChars: MaxCharsPerBatch}
}

// FirstLook classifies the document and then advises on it.
func (s *AdvisoryService) FirstLook(ctx context.Context, chunks []domain.DocumentChunk) (domain.DocumentType, string, error) {
	docType, err := s.Classify(ctx, chunks)
	if err != nil {
		return "", "", err
	}

	insights, err := s.Advise(ctx, chunks, docType)
	if err != nil {
		return "", "", err
	}
	return docType, insights, nil
}

// Classify labels the document from its first chunks. The label comes back as
// the model wrote it; labels outside the known set are only logged.
func (s *AdvisoryService) Classify(ctx context.Context, chunks []domain.DocumentChunk) (domain.DocumentType, error) {
	ctx, span := telemetry.StartSpan(ctx, "classify", telemetry.SpanAttributes{
		SourceID:  sourceOf(chunks),
		Operation: "classify",
	})
	defer span.End()

	sample := domain.Texts(chunks[:min(len(chunks), ClassificationSampleChunks)])
	prompt, err := s.inference.Prompts().Classify(domain.DocumentTypeLabels(), strings.Join(sample, "\n\n"))
	if err != nil {
		span.SetError(err)
		return "", err
	}

	completion := s.inference.Run(ctx, prompts.ClassifyQuestion, prompt)
	if completion.Err != nil {
		err := fmt.Errorf("failed to classify document: %w", completion.Err)
		span.SetError(err)
		return "", err
	}

	docType := domain.DocumentType(strings.TrimSpace(completion.Text))
	if !docType.Known() {
		log.Printf("advisory: model returned unknown document type %q", docType)
		telemetry.CaptureMessage(ctx, fmt.Sprintf("unknown document type %q", docType))
	}
	return docType, nil
}

// Advise asks for the top risks of each batch of chunks, one call per batch in
// order, and joins the answers with blank lines.
func (s *AdvisoryService) Advise(ctx context.Context, chunks []domain.DocumentChunk, docType domain.DocumentType) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "advise", telemetry.SpanAttributes{
		SourceID:  sourceOf(chunks),
		DocType:   string(docType),
		Operation: "advise",
	})
	defer span.End()

	batches := packBatches(domain.Texts(chunks), s.maxChars)
	span.SetData("batches", len(batches))

	insights := make([]string, 0, len(batches))
	for i, batch := range batches {
		prompt, err := s.inference.Prompts().Advise(string(docType), i+1, batch)
		if err != nil {
			span.SetError(err)
			return "", err
		}

		completion := s.inference.Run(ctx, prompts.AdviseQuestion, prompt)
		if completion.Err != nil {
			err := fmt.Errorf("failed to advise on batch %d of %d: %w", i+1, len(batches), completion.Err)
			span.SetError(err)
			return "", err
		}
		insights = append(insights, completion.Text)
	}

	return strings.Join(insights, "\n\n"), nil
}

// packBatches greedily groups texts so that no batch exceeds maxChars runes,
// counting the separators between texts. A text is never split, so one longer
// than maxChars forms a batch of its own.
func packBatches(texts []string, maxChars int) []string {
	var (
		batches []string
		current []string
		size    int
	)
	sepLen := utf8.RuneCountInString(batchJoin)

	for _, text := range texts {
		n := utf8.RuneCountInString(text)
		added := n
		if len(current) > 0 {
			added += sepLen
		}
		if len(current) > 0 && size+added > maxChars {
			batches = append(batches, strings.Join(current, batchJoin))
			current = nil
			size = 0
			added = n
		}
		current = append(current, text)
		size += added
	}
	if len(current) > 0 {
		batches = append(batches, strings.Join(current, batchJoin))
	}
	return batches
}

func sourceOf(chunks []domain.DocumentChunk) string {
	if len(chunks) == 0 {
		return ""
	}
	return chunks[0].SourceID
}
