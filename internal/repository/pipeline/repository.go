package pipeline

import (
	"context"
	"time"

	"github.com/Taichi-iskw/yt-rag/internal/model"
)

// ReadyInfo is recorded when a run finishes successfully
type ReadyInfo struct {
	ChunkCount     int
	EmbeddingModel string
	Dimension      int
}

// Repository tracks the pipeline state of each video.
// A video moves processing -> ready | failed; a missing record means unprocessed.
type Repository interface {
	// Acquire marks videoID as processing by runID. It fails with CONFLICT while
	// another run holds a non-stale processing record.
	Acquire(ctx context.Context, videoID, runID, dataDir string) (*model.PipelineRecord, error)

	// MarkReady completes the run; CONFLICT if runID no longer owns the record
	MarkReady(ctx context.Context, videoID, runID string, info ReadyInfo) error

	// MarkFailed records a failed run; CONFLICT if runID no longer owns the record
	MarkFailed(ctx context.Context, videoID, runID, message string) error

	// Get retrieves the record of a video (NOT_FOUND when absent)
	Get(ctx context.Context, videoID string) (*model.PipelineRecord, error)

	// List retrieves every record, most recently updated first
	List(ctx context.Context) ([]*model.PipelineRecord, error)

	// Delete removes the record of a video (NOT_FOUND when absent)
	Delete(ctx context.Context, videoID string) error
}

// isStale reports whether a processing record may be taken over
func isStale(rec *model.PipelineRecord, now time.Time, staleAfter time.Duration) bool {
	return staleAfter > 0 && now.Sub(rec.UpdatedAt) >= staleAfter
}
