package vector

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	apperrors "github.com/Taichi-iskw/yt-rag/internal/errors"
	"github.com/Taichi-iskw/yt-rag/internal/model"
	"github.com/Taichi-iskw/yt-rag/internal/repository/common"
	"github.com/Taichi-iskw/yt-rag/internal/service/index"
)

var copyColumns = []string{
	"video_id", "row_index", "chunk_id", "text", "start_time", "end_time",
	"segments", "embedding", "embedding_model", "run_id", "created_at",
}

// PgvectorStore keeps index rows in the chunk_embeddings table and searches
// them with the pgvector L2 distance operator
type PgvectorStore struct {
	pool common.Pool
}

// NewPgvectorStore creates a new PgvectorStore
func NewPgvectorStore(pool common.Pool) *PgvectorStore {
	return &PgvectorStore{pool: pool}
}

var _ index.Store = (*PgvectorStore)(nil)

// Save replaces every row of the video in one transaction
func (s *PgvectorStore) Save(ctx context.Context, ref index.Ref, manifest index.Manifest, entries []model.IndexedChunk, vectors [][]float32) (err error) {
	if len(entries) != len(vectors) {
		return apperrors.Newf(apperrors.CodeInternal, "metadata has %d entries but %d vectors were given", len(entries), len(vectors))
	}

	dim := manifest.Dimension
	rows := make([][]any, len(entries))
	for i, entry := range entries {
		if dim == 0 {
			dim = len(vectors[i])
		}
		if len(vectors[i]) != dim || dim == 0 {
			return apperrors.Newf(apperrors.CodeDimension, "vector %d has dimension %d, expected %d", i, len(vectors[i]), dim)
		}
		segments, err := json.Marshal(entry.Segments)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternal, "failed to encode segments")
		}
		rows[i] = []any{
			ref.VideoID, i, entry.ID, entry.Text, entry.StartTime, entry.EndTime,
			segments, pgvector.NewVector(vectors[i]), manifest.EmbeddingModel, manifest.RunID, manifest.CreatedAt,
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return common.HandlePostgreSQLError(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, "DELETE FROM chunk_embeddings WHERE video_id = $1", ref.VideoID); err != nil {
		return common.HandlePostgreSQLError(err, "failed to clear previous index")
	}
	if _, err = tx.CopyFrom(ctx, pgx.Identifier{"chunk_embeddings"}, copyColumns, pgx.CopyFromRows(rows)); err != nil {
		return common.HandlePostgreSQLError(err, "failed to store index rows")
	}
	if err = tx.Commit(ctx); err != nil {
		return common.HandlePostgreSQLError(err, "failed to commit index")
	}
	return nil
}

// Manifest summarizes the stored rows of the video
func (s *PgvectorStore) Manifest(ctx context.Context, ref index.Ref) (*index.Manifest, error) {
	sql := `SELECT embedding_model, vector_dims(embedding), COUNT(*) OVER (), run_id, created_at
		FROM chunk_embeddings WHERE video_id = $1 ORDER BY row_index LIMIT 1`

	var m index.Manifest
	var count int64
	err := s.pool.QueryRow(ctx, sql, ref.VideoID).Scan(&m.EmbeddingModel, &m.Dimension, &count, &m.RunID, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.Newf(apperrors.CodeIndexIO, "no index stored for video %s", ref.VideoID)
		}
		return nil, common.HandlePostgreSQLError(err, "failed to read index manifest")
	}
	m.Count = int(count)
	return &m, nil
}

// Search returns the k nearest rows in ascending squared L2 distance, matching the file index; ties keep row order
func (s *PgvectorStore) Search(ctx context.Context, ref index.Ref, query []float32, k int) ([]model.RetrievedChunk, error) {
	if k <= 0 {
		return nil, apperrors.Newf(apperrors.CodeInvalidArg, "k must be positive, got %d", k)
	}

	sql := `SELECT chunk_id, text, start_time, end_time, segments, (embedding <-> $2) ^ 2 AS distance
		FROM chunk_embeddings WHERE video_id = $1
		ORDER BY distance, row_index LIMIT $3`

	rows, err := s.pool.Query(ctx, sql, ref.VideoID, pgvector.NewVector(query), k)
	if err != nil {
		return nil, common.HandlePostgreSQLError(err, "failed to search index")
	}
	defer rows.Close()

	results := []model.RetrievedChunk{}
	for rows.Next() {
		var chunk model.RetrievedChunk
		var segments []byte
		if err := rows.Scan(&chunk.ID, &chunk.Text, &chunk.StartTime, &chunk.EndTime, &segments, &chunk.Distance); err != nil {
			return nil, common.HandlePostgreSQLError(err, "failed to scan index row")
		}
		if err := json.Unmarshal(segments, &chunk.Segments); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeIndexIO, "corrupt segments in index row")
		}
		results = append(results, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, common.HandlePostgreSQLError(err, "failed to iterate index rows")
	}
	return results, nil
}

// Delete removes every row of the video
func (s *PgvectorStore) Delete(ctx context.Context, ref index.Ref) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM chunk_embeddings WHERE video_id = $1", ref.VideoID); err != nil {
		return common.HandlePostgreSQLError(err, "failed to delete index")
	}
	return nil
}
