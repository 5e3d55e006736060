package service

import (
	"context"
	"fmt"
	"log"

	"github.com/cloo-solutions/guardian/internal/domain"
	"github.com/cloo-solutions/guardian/internal/telemetry"
)

// DocumentLoader extracts page text from raw document bytes.
type DocumentLoader interface {
	Load(ctx context.Context, data []byte) ([]domain.Page, error)
}

// Archiver keeps a copy of the uploaded file.
type Archiver interface {
	Archive(ctx context.Context, sourceID string, data []byte) error
}

// IngestResult describes the chunks that now back a document.
type IngestResult struct {
	SourceID string
	Chunks   []domain.DocumentChunk
	// Reused is true when the document was already indexed and its stored
	// chunks were read back instead of parsing the upload.
	Reused bool
}

// IngestService turns an uploaded document into indexed chunks exactly once
// per source id.
type IngestService struct {
	loader   DocumentLoader
	splitter *Splitter
	index    *IndexGateway
	archiver Archiver
}

func NewIngestService(loader DocumentLoader, splitter *Splitter, index *IndexGateway) *IngestService {
	if splitter == nil {
		splitter = NewSplitter(DefaultSplitterConfig())
	}
	return &IngestService{
		loader:   loader,
		splitter: splitter,
		index:    index,
	}
}

// WithArchiver stores every newly indexed upload through a.
func (s *IngestService) WithArchiver(a Archiver) *IngestService {
	s.archiver = a
	return s
}

// Ingest indexes data under the normalized filename, or returns the chunks
// already stored for it.
func (s *IngestService) Ingest(ctx context.Context, data []byte, filename string) (IngestResult, error) {
	sourceID := domain.NormalizeFilename(filename)

	ctx, span := telemetry.StartSpan(ctx, "ingest", telemetry.SpanAttributes{
		SourceID:  sourceID,
		Operation: "ingest",
	})
	defer span.End()

	result, err := s.ingest(ctx, data, sourceID)
	if err != nil {
		span.SetError(err)
		return IngestResult{}, err
	}
	span.SetData("chunks", len(result.Chunks))
	span.SetData("reused", result.Reused)
	return result, nil
}

func (s *IngestService) ingest(ctx context.Context, data []byte, sourceID string) (IngestResult, error) {
	exists, err := s.index.Exists(ctx, sourceID)
	if err != nil {
		return IngestResult{}, err
	}

	if exists {
		log.Printf("ingest: %s already indexed, reusing stored chunks", sourceID)
		telemetry.AddBreadcrumb(ctx, "ingest", "reused indexed document "+sourceID)
		chunks, err := s.index.FetchAll(ctx, sourceID)
		if err != nil {
			return IngestResult{}, err
		}
		return IngestResult{SourceID: sourceID, Chunks: chunks, Reused: true}, nil
	}

	log.Printf("ingest: indexing new document %s", sourceID)
	pages, err := s.loader.Load(ctx, data)
	if err != nil {
		return IngestResult{}, fmt.Errorf("failed to load %s: %w", sourceID, err)
	}

	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, sourceID, data); err != nil {
			return IngestResult{}, fmt.Errorf("failed to archive %s: %w", sourceID, err)
		}
	}

	chunks := s.splitter.Split(pages, sourceID)
	inserted, err := s.index.Insert(ctx, chunks)
	if err != nil {
		return IngestResult{}, err
	}
	log.Printf("ingest: added %d chunks for %s", inserted.Added, sourceID)

	// A concurrent upload of the same source won the insert.
	reused := inserted.Added == 0 && len(chunks) > 0
	return IngestResult{SourceID: sourceID, Chunks: chunks, Reused: reused}, nil
}
