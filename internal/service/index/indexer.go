package index

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Taichi-iskw/yt-rag/internal/errors"
	"github.com/Taichi-iskw/yt-rag/internal/model"
	"github.com/Taichi-iskw/yt-rag/internal/service/embedding"
)

// DefaultK is the default number of chunks returned by a search
const DefaultK = 3

// ChunkID returns the id of the n-th chunk (1-based)
func ChunkID(n int) string {
	return fmt.Sprintf("chunk_%03d", n)
}

// BuildResult summarizes a built index
type BuildResult struct {
	Manifest Manifest
	Entries  []model.IndexedChunk
}

// Indexer embeds chunks into a Store and searches it with embedded queries
type Indexer struct {
	embedder embedding.Embedder
	store    Store
	logger   *slog.Logger
	now      func() time.Time
}

// NewIndexer creates a new Indexer
func NewIndexer(embedder embedding.Embedder, store Store, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		embedder: embedder,
		store:    store,
		logger:   logger,
		now:      time.Now,
	}
}

// Embedder returns the embedder used for chunks and queries
func (ix *Indexer) Embedder() embedding.Embedder {
	return ix.embedder
}

// Build embeds every chunk in order and replaces the stored index for ref.
// Every vector must have the dimension of the first one.
func (ix *Indexer) Build(ctx context.Context, ref Ref, runID string, chunks []model.Chunk) (*BuildResult, error) {
	if len(chunks) == 0 {
		return nil, errors.New(errors.CodeInvalidArg, "no chunks to index")
	}

	entries := make([]model.IndexedChunk, 0, len(chunks))
	vectors := make([][]float32, 0, len(chunks))
	dim := 0

	for i, chunk := range chunks {
		if len(chunk.Segments) == 0 {
			return nil, errors.Newf(errors.CodeInvalidArg, "chunk %d has no segments", i+1)
		}

		text := chunkText(chunk)
		vec, err := ix.embedder.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		if dim == 0 {
			dim = len(vec)
		}
		if len(vec) != dim {
			return nil, errors.Newf(errors.CodeDimension,
				"embedding for %s has dimension %d, expected %d", ChunkID(i+1), len(vec), dim)
		}

		entries = append(entries, model.IndexedChunk{
			ID:        ChunkID(i + 1),
			Text:      text,
			StartTime: chunk.Segments[0].Start,
			EndTime:   chunk.Segments[len(chunk.Segments)-1].End,
			Segments:  chunk.Segments,
		})
		vectors = append(vectors, vec)
		ix.logger.Debug("chunk embedded", slog.String("video_id", ref.VideoID), slog.String("chunk_id", ChunkID(i+1)))
	}

	manifest := Manifest{
		EmbeddingModel: ix.embedder.Model(),
		Dimension:      dim,
		Count:          len(entries),
		RunID:          runID,
		CreatedAt:      ix.now().UTC(),
	}
	if err := ix.store.Save(ctx, ref, manifest, entries, vectors); err != nil {
		return nil, err
	}

	ix.logger.Info("index built",
		slog.String("video_id", ref.VideoID),
		slog.Int("chunks", len(entries)),
		slog.Int("dimension", dim),
		slog.String("embedding_model", manifest.EmbeddingModel))

	return &BuildResult{Manifest: manifest, Entries: entries}, nil
}

// Search embeds query with the index's embedding model and returns the k nearest chunks.
// It fails with EMBEDDING_MODEL_MISMATCH if the index was built with another model.
func (ix *Indexer) Search(ctx context.Context, ref Ref, query string, k int) ([]model.RetrievedChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New(errors.CodeInvalidArg, "query is required")
	}
	if k <= 0 {
		return nil, errors.Newf(errors.CodeInvalidArg, "k must be positive, got %d", k)
	}

	manifest, err := ix.store.Manifest(ctx, ref)
	if err != nil {
		return nil, err
	}
	if manifest.EmbeddingModel != ix.embedder.Model() {
		return nil, errors.Newf(errors.CodeModelMismatch,
			"index was built with embedding model %q but queries use %q; reprocess the video",
			manifest.EmbeddingModel, ix.embedder.Model())
	}

	vec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(vec) != manifest.Dimension {
		return nil, errors.Newf(errors.CodeDimension,
			"query embedding has dimension %d, index has %d", len(vec), manifest.Dimension)
	}

	return ix.store.Search(ctx, ref, vec, k)
}

// chunkText joins segment texts with single spaces
func chunkText(chunk model.Chunk) string {
	texts := make([]string, len(chunk.Segments))
	for i, seg := range chunk.Segments {
		texts[i] = seg.Text
	}
	return strings.Join(texts, " ")
}
