package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Taichi-iskw/yt-rag/internal/errors"
	"github.com/Taichi-iskw/yt-rag/internal/model"
)

// MemoryRepository keeps records in process memory; they are lost on restart
type MemoryRepository struct {
	mu         sync.Mutex
	records    map[string]*model.PipelineRecord
	staleAfter time.Duration
	now        func() time.Time
}

// NewMemoryRepository creates a new MemoryRepository
func NewMemoryRepository(staleAfter time.Duration) *MemoryRepository {
	return &MemoryRepository{
		records:    make(map[string]*model.PipelineRecord),
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

var _ Repository = (*MemoryRepository)(nil)

func (r *MemoryRepository) Acquire(ctx context.Context, videoID, runID, dataDir string) (*model.PipelineRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	existing, ok := r.records[videoID]
	if ok && existing.Status == model.StatusProcessing && !isStale(existing, now, r.staleAfter) {
		return nil, errors.Newf(errors.CodeConflict, "video %s is already being processed", videoID)
	}

	rec := &model.PipelineRecord{
		VideoID:   videoID,
		Status:    model.StatusProcessing,
		RunID:     runID,
		DataDir:   dataDir,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if ok {
		rec.CreatedAt = existing.CreatedAt
	}
	r.records[videoID] = rec

	out := *rec
	return &out, nil
}

func (r *MemoryRepository) MarkReady(ctx context.Context, videoID, runID string, info ReadyInfo) error {
	return r.finish(videoID, runID, func(rec *model.PipelineRecord) {
		rec.Status = model.StatusReady
		rec.ChunkCount = info.ChunkCount
		rec.EmbeddingModel = info.EmbeddingModel
		rec.Dimension = info.Dimension
		rec.ErrorMessage = nil
	})
}

func (r *MemoryRepository) MarkFailed(ctx context.Context, videoID, runID, message string) error {
	return r.finish(videoID, runID, func(rec *model.PipelineRecord) {
		rec.Status = model.StatusFailed
		rec.ErrorMessage = &message
	})
}

func (r *MemoryRepository) finish(videoID, runID string, apply func(rec *model.PipelineRecord)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[videoID]
	if !ok || rec.RunID != runID || rec.Status != model.StatusProcessing {
		return errors.Newf(errors.CodeConflict, "run %s no longer owns video %s", runID, videoID)
	}
	apply(rec)
	rec.UpdatedAt = r.now().UTC()
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, videoID string) (*model.PipelineRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[videoID]
	if !ok {
		return nil, errors.Newf(errors.CodeNotFound, "no pipeline record for video %s", videoID)
	}
	out := *rec
	return &out, nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]*model.PipelineRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records := make([]*model.PipelineRecord, 0, len(r.records))
	for _, rec := range r.records {
		out := *rec
		records = append(records, &out)
	}
	sortByUpdated(records)
	return records, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, videoID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[videoID]; !ok {
		return errors.Newf(errors.CodeNotFound, "no pipeline record for video %s", videoID)
	}
	delete(r.records, videoID)
	return nil
}

// sortByUpdated orders records most recently updated first, then by video id
func sortByUpdated(records []*model.PipelineRecord) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].UpdatedAt.Equal(records[j].UpdatedAt) {
			return records[i].UpdatedAt.After(records[j].UpdatedAt)
		}
		return records[i].VideoID < records[j].VideoID
	})
}
