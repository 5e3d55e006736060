package repository

import (
	"context"
	"fmt"
	"slices"

	"github.com/cloo-solutions/guardian/internal/domain"
	"github.com/cloo-solutions/guardian/internal/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ChunkRepository stores document chunks and their embeddings in PostgreSQL
// with pgvector.
type ChunkRepository struct {
	db dbtx
	tx *TxRunner
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool, tx: NewTxRunner(pool)}
}

func NewChunkRepositoryWithTx(tx pgx.Tx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

func (r *ChunkRepository) HasSource(ctx context.Context, sourceID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM document_chunks WHERE source_id = $1)`,
		sourceID,
	).Scan(&exists)
	return exists, err
}

// InsertChunks writes chunks of sources that are not stored yet. Each source is
// locked for the duration of the transaction and checked again, so two uploads
// of the same file racing past the existence check store it once.
func (r *ChunkRepository) InsertChunks(ctx context.Context, chunks []domain.DocumentChunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	if r.tx == nil {
		return r.insert(ctx, chunks)
	}

	var added int
	err := r.tx.WithTx(ctx, func(repo *ChunkRepository) error {
		n, err := repo.insert(ctx, chunks)
		added = n
		return err
	})
	return added, err
}

func (r *ChunkRepository) insert(ctx context.Context, chunks []domain.DocumentChunk) (int, error) {
	bySource := map[string][]domain.DocumentChunk{}
	for _, c := range chunks {
		bySource[c.SourceID] = append(bySource[c.SourceID], c)
	}
	sources := make([]string, 0, len(bySource))
	for id := range bySource {
		sources = append(sources, id)
	}
	slices.Sort(sources)

	added := 0
	for _, sourceID := range sources {
		if _, err := r.db.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, sourceID); err != nil {
			return 0, fmt.Errorf("failed to lock source %q: %w", sourceID, err)
		}

		exists, err := r.HasSource(ctx, sourceID)
		if err != nil {
			return 0, err
		}
		if exists {
			continue
		}

		for _, c := range bySource[sourceID] {
			tag, err := r.db.Exec(ctx,
				`INSERT INTO document_chunks
					(source_id, chunk_index, page_number, file_type, content, embedding)
				 VALUES
					($1, $2, $3, $4, $5, $6)
				 ON CONFLICT (source_id, chunk_index) DO NOTHING`,
				c.SourceID,
				c.ChunkIndex,
				c.PageNumber,
				c.FileType,
				c.Text,
				pgvector.NewVector(c.Embedding),
			)
			if err != nil {
				return 0, err
			}
			added += int(tag.RowsAffected())
		}
	}

	return added, nil
}

// SearchChunks returns the k chunks nearest to vector by cosine distance.
// Score is cosine similarity.
func (r *ChunkRepository) SearchChunks(ctx context.Context, vector []float32, k int, sourceID string) (domain.RetrievalResult, error) {
	if k <= 0 {
		k = 2
	}

	query := `
		SELECT content, page_number, source_id, 1 - (embedding <=> $1) AS score
		FROM document_chunks`
	args := []any{pgvector.NewVector(vector), k}
	if sourceID != "" {
		query += ` WHERE source_id = $3`
		args = append(args, sourceID)
	}
	query += ` ORDER BY embedding <=> $1 LIMIT $2`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := domain.RetrievalResult{}
	for rows.Next() {
		var (
			hit   domain.RetrievalHit
			score float64
		)
		if err := rows.Scan(&hit.Text, &hit.PageNumber, &hit.SourceID, &score); err != nil {
			return nil, err
		}
		hit.Score = float32(score)
		results = append(results, hit)
	}

	return results, rows.Err()
}

// ScrollChunks pages through a source's chunks in chunk index order.
func (r *ChunkRepository) ScrollChunks(ctx context.Context, sourceID, cursor string, limit int) ([]domain.DocumentChunk, string, error) {
	if limit <= 0 {
		limit = 100
	}

	after, err := pagination.After(cursor, sourceID)
	if err != nil {
		return nil, "", err
	}

	rows, err := r.db.Query(ctx,
		`SELECT source_id, chunk_index, page_number, file_type, content
		 FROM document_chunks
		 WHERE source_id = $1 AND chunk_index > $2
		 ORDER BY chunk_index
		 LIMIT $3`,
		sourceID, after, limit,
	)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var chunks []domain.DocumentChunk
	for rows.Next() {
		var c domain.DocumentChunk
		if err := rows.Scan(&c.SourceID, &c.ChunkIndex, &c.PageNumber, &c.FileType, &c.Text); err != nil {
			return nil, "", err
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	next := pagination.CreateNextCursor(chunks, limit, sourceID, func(c domain.DocumentChunk) int {
		return c.ChunkIndex
	})
	return chunks, next, nil
}

func (r *ChunkRepository) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM document_chunks`).Scan(&count)
	return count, err
}
