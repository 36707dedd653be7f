package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Taichi-iskw/yt-rag/internal/errors"
	"github.com/Taichi-iskw/yt-rag/internal/model"
	"github.com/Taichi-iskw/yt-rag/internal/service/answer"
	"github.com/Taichi-iskw/yt-rag/internal/service/chunker"
	"github.com/Taichi-iskw/yt-rag/internal/service/index"
	"github.com/Taichi-iskw/yt-rag/internal/service/transcript"
)

// ChunksDirName is the chunk directory inside a video directory
const ChunksDirName = "chunks"

// Pipeline runs fetch -> chunk -> embed/index for a video and answers questions
// against the resulting index. Every artifact lives under <dataDir>/<videoID>.
type Pipeline struct {
	dataDir     string
	transcripts transcript.TranscriptService
	chunker     chunker.ChunkerService
	indexer     *index.Indexer
	store       index.Store
	answerer    *answer.Answerer
	logger      *slog.Logger
	now         func() time.Time
}

// NewPipeline creates a new Pipeline
func NewPipeline(
	dataDir string,
	transcripts transcript.TranscriptService,
	chunks chunker.ChunkerService,
	indexer *index.Indexer,
	store index.Store,
	answerer *answer.Answerer,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		dataDir:     dataDir,
		transcripts: transcripts,
		chunker:     chunks,
		indexer:     indexer,
		store:       store,
		answerer:    answerer,
		logger:      logger,
		now:         time.Now,
	}
}

// VideoDir returns the artifact directory of a video
func (p *Pipeline) VideoDir(videoID string) string {
	return filepath.Join(p.dataDir, videoID)
}

// ChunksDir returns the chunk directory of a video
func (p *Pipeline) ChunksDir(videoID string) string {
	return filepath.Join(p.VideoDir(videoID), ChunksDirName)
}

func (p *Pipeline) ref(videoID string) index.Ref {
	return index.Ref{VideoID: videoID, Dir: p.VideoDir(videoID)}
}

// Run processes a video under a fresh run id
func (p *Pipeline) Run(ctx context.Context, videoID string) (*model.RunResult, error) {
	return p.RunWithID(ctx, videoID, uuid.NewString())
}

// RunWithID processes a video. Any stage failure aborts the run; files of a
// previous run are replaced stage by stage.
func (p *Pipeline) RunWithID(ctx context.Context, videoID, runID string) (*model.RunResult, error) {
	videoID, err := model.ParseVideoID(videoID)
	if err != nil {
		return nil, err
	}

	start := p.now()
	logger := p.logger.With(slog.String("video_id", videoID), slog.String("run_id", runID))
	logger.Info("pipeline started")

	dir := p.VideoDir(videoID)
	tr, err := p.transcripts.Generate(ctx, videoID, dir)
	if err != nil {
		return nil, p.stageFailed(logger, "transcript", err)
	}

	chunked, err := p.chunker.ChunkFile(ctx, tr.Path, p.ChunksDir(videoID))
	if err != nil {
		return nil, p.stageFailed(logger, "chunk", err)
	}
	if len(chunked.Chunks) == 0 {
		err := errors.Newf(errors.CodeProvider, "transcript for video %s has no usable captions", videoID)
		return nil, p.stageFailed(logger, "chunk", err)
	}

	built, err := p.indexer.Build(ctx, p.ref(videoID), runID, chunked.Chunks)
	if err != nil {
		return nil, p.stageFailed(logger, "index", err)
	}

	result := &model.RunResult{
		VideoID:        videoID,
		RunID:          runID,
		DataDir:        dir,
		ChunkCount:     len(chunked.Chunks),
		SegmentCount:   chunked.SegmentCount,
		SkippedLines:   chunked.SkippedLines,
		Dimension:      built.Manifest.Dimension,
		EmbeddingModel: built.Manifest.EmbeddingModel,
		Duration:       p.now().Sub(start),
	}
	logger.Info("pipeline completed",
		slog.Int("chunks", result.ChunkCount),
		slog.Int("skipped_lines", result.SkippedLines),
		slog.Duration("duration", result.Duration))
	return result, nil
}

// Reindex embeds the chunks already persisted for a video and rebuilds its index
func (p *Pipeline) Reindex(ctx context.Context, videoID string) (*index.BuildResult, error) {
	videoID, err := model.ParseVideoID(videoID)
	if err != nil {
		return nil, err
	}
	chunks, err := chunker.LoadChunks(p.ChunksDir(videoID))
	if err != nil {
		return nil, err
	}
	return p.indexer.Build(ctx, p.ref(videoID), uuid.NewString(), chunks)
}

// Query answers a question from the video's index. It does not check whether
// the video was processed; a missing index surfaces as INDEX_IO_ERROR.
func (p *Pipeline) Query(ctx context.Context, videoID, query string, k int) (*model.QueryResult, error) {
	videoID, err := model.ParseVideoID(videoID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return nil, errors.New(errors.CodeInvalidArg, "query is required")
	}

	result, err := p.answerer.Answer(ctx, p.ref(videoID), query, k)
	if err != nil {
		p.logger.Error("query failed", slog.String("video_id", videoID), slog.Any("error", err))
		return nil, err
	}
	return result, nil
}

// Purge removes the index and every file of a video
func (p *Pipeline) Purge(ctx context.Context, videoID string) error {
	if err := p.store.Delete(ctx, p.ref(videoID)); err != nil {
		return err
	}
	if err := os.RemoveAll(p.VideoDir(videoID)); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "failed to remove video directory")
	}
	return nil
}

// HasArtifacts reports whether a video directory exists on disk
func (p *Pipeline) HasArtifacts(videoID string) bool {
	_, err := os.Stat(p.VideoDir(videoID))
	return err == nil
}

func (p *Pipeline) stageFailed(logger *slog.Logger, stage string, err error) error {
	logger.Error("pipeline stage failed",
		slog.String("stage", stage),
		slog.String("code", errors.CodeOf(err)),
		slog.Any("error", err))
	return err
}
