package pipeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Taichi-iskw/yt-rag/internal/errors"
	"github.com/Taichi-iskw/yt-rag/internal/model"
	pipelinerepo "github.com/Taichi-iskw/yt-rag/internal/repository/pipeline"
)

// NotProcessedMessage is reported when a video has no ready index
const NotProcessedMessage = "Video not processed. Please process the video first."

// Service guards the pipeline with a registry so that one run per video is
// active at a time and queries only reach ready videos
type Service struct {
	pipeline *Pipeline
	registry pipelinerepo.Repository
	logger   *slog.Logger
	newRunID func() string
}

// NewService creates a new Service
func NewService(p *Pipeline, registry pipelinerepo.Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		pipeline: p,
		registry: registry,
		logger:   logger,
		newRunID: uuid.NewString,
	}
}

// Process runs the pipeline for a video. CONFLICT if the video is already being processed.
func (s *Service) Process(ctx context.Context, videoID string) (*model.RunResult, error) {
	videoID, err := model.ParseVideoID(videoID)
	if err != nil {
		return nil, err
	}

	runID := s.newRunID()
	if _, err := s.registry.Acquire(ctx, videoID, runID, s.pipeline.VideoDir(videoID)); err != nil {
		return nil, err
	}

	result, err := s.pipeline.RunWithID(ctx, videoID, runID)
	if err != nil {
		// record the failure even when the request context is gone
		if markErr := s.registry.MarkFailed(context.WithoutCancel(ctx), videoID, runID, err.Error()); markErr != nil {
			s.logger.Warn("failed to record pipeline failure",
				slog.String("video_id", videoID), slog.String("run_id", runID), slog.Any("error", markErr))
		}
		return nil, err
	}

	info := pipelinerepo.ReadyInfo{
		ChunkCount:     result.ChunkCount,
		EmbeddingModel: result.EmbeddingModel,
		Dimension:      result.Dimension,
	}
	// record completion even when the request context is gone
	if err := s.registry.MarkReady(context.WithoutCancel(ctx), videoID, runID, info); err != nil {
		return nil, err
	}
	return result, nil
}

// Query answers a question about a ready video.
// NOT_PROCESSED when the video was never processed or its last run failed;
// CONFLICT while a run is in progress.
func (s *Service) Query(ctx context.Context, videoID, query string, k int) (*model.QueryResult, error) {
	videoID, err := model.ParseVideoID(videoID)
	if err != nil {
		return nil, err
	}

	rec, err := s.registry.Get(ctx, videoID)
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return nil, errors.New(errors.CodeNotProcessed, NotProcessedMessage)
		}
		return nil, err
	}

	switch rec.Status {
	case model.StatusReady:
		return s.pipeline.Query(ctx, videoID, query, k)
	case model.StatusProcessing:
		return nil, errors.Newf(errors.CodeConflict, "video %s is still being processed", videoID)
	default:
		msg := NotProcessedMessage
		if rec.ErrorMessage != nil {
			msg = "The last processing run failed: " + *rec.ErrorMessage + ". Please process the video again."
		}
		return nil, errors.New(errors.CodeNotProcessed, msg)
	}
}

// Status returns the registry record of a video
func (s *Service) Status(ctx context.Context, videoID string) (*model.PipelineRecord, error) {
	videoID, err := model.ParseVideoID(videoID)
	if err != nil {
		return nil, err
	}
	return s.registry.Get(ctx, videoID)
}

// List returns every registry record
func (s *Service) List(ctx context.Context) ([]*model.PipelineRecord, error) {
	return s.registry.List(ctx)
}

// Delete removes a video's record and artifacts. Artifacts without a record
// (left by an earlier process with an in-memory registry) are removed too.
func (s *Service) Delete(ctx context.Context, videoID string) error {
	videoID, err := model.ParseVideoID(videoID)
	if err != nil {
		return err
	}

	rec, err := s.registry.Get(ctx, videoID)
	switch {
	case err == nil && rec.Status == model.StatusProcessing:
		return errors.Newf(errors.CodeConflict, "video %s is being processed", videoID)
	case err != nil && !errors.Is(err, errors.CodeNotFound):
		return err
	case err != nil && !s.pipeline.HasArtifacts(videoID):
		return errors.Newf(errors.CodeNotFound, "video %s not found", videoID)
	}

	if err := s.pipeline.Purge(ctx, videoID); err != nil {
		return err
	}
	if rec != nil {
		if err := s.registry.Delete(ctx, videoID); err != nil && !errors.Is(err, errors.CodeNotFound) {
			return err
		}
	}
	s.logger.Info("video deleted", slog.String("video_id", videoID))
	return nil
}
