package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	apperrors "github.com/Taichi-iskw/yt-rag/internal/errors"
	"github.com/Taichi-iskw/yt-rag/internal/model"
	"github.com/Taichi-iskw/yt-rag/internal/repository/common"
)

const selectColumns = "video_id, status, run_id::text, data_dir, chunk_count, embedding_model, dimension, error_message, created_at, updated_at"

// PostgresRepository stores records in the pipelines table
type PostgresRepository struct {
	pool       common.Pool
	staleAfter time.Duration
	now        func() time.Time
}

// NewPostgresRepository creates a new PostgresRepository
func NewPostgresRepository(pool common.Pool, staleAfter time.Duration) *PostgresRepository {
	return &PostgresRepository{
		pool:       pool,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

var _ Repository = (*PostgresRepository)(nil)

// Acquire inserts or takes over the record in one statement; the conditional
// DO UPDATE returns no row when a live run holds it.
func (r *PostgresRepository) Acquire(ctx context.Context, videoID, runID, dataDir string) (*model.PipelineRecord, error) {
	sql := `INSERT INTO pipelines
		(video_id, status, run_id, data_dir, chunk_count, embedding_model, dimension, error_message, created_at, updated_at)
		VALUES ($1, 'processing', $2, $3, 0, '', 0, NULL, $4, $4)
		ON CONFLICT (video_id) DO UPDATE SET
			status = 'processing',
			run_id = EXCLUDED.run_id,
			data_dir = EXCLUDED.data_dir,
			chunk_count = 0,
			embedding_model = '',
			dimension = 0,
			error_message = NULL,
			updated_at = EXCLUDED.updated_at
		WHERE pipelines.status <> 'processing' OR pipelines.updated_at < $5
		RETURNING ` + selectColumns

	now := r.now().UTC()
	rec, err := scanRecord(r.pool.QueryRow(ctx, sql, videoID, runID, dataDir, now, r.staleBefore(now)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.Newf(apperrors.CodeConflict, "video %s is already being processed", videoID)
		}
		return nil, common.HandlePostgreSQLError(err, "failed to acquire pipeline")
	}
	return rec, nil
}

func (r *PostgresRepository) MarkReady(ctx context.Context, videoID, runID string, info ReadyInfo) error {
	sql := `UPDATE pipelines
		SET status = 'ready', chunk_count = $3, embedding_model = $4, dimension = $5, error_message = NULL, updated_at = $6
		WHERE video_id = $1 AND run_id = $2 AND status = 'processing'`

	tag, err := r.pool.Exec(ctx, sql, videoID, runID, info.ChunkCount, info.EmbeddingModel, info.Dimension, r.now().UTC())
	if err != nil {
		return common.HandlePostgreSQLError(err, "failed to mark pipeline ready")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.Newf(apperrors.CodeConflict, "run %s no longer owns video %s", runID, videoID)
	}
	return nil
}

func (r *PostgresRepository) MarkFailed(ctx context.Context, videoID, runID, message string) error {
	sql := `UPDATE pipelines
		SET status = 'failed', error_message = $3, updated_at = $4
		WHERE video_id = $1 AND run_id = $2 AND status = 'processing'`

	tag, err := r.pool.Exec(ctx, sql, videoID, runID, message, r.now().UTC())
	if err != nil {
		return common.HandlePostgreSQLError(err, "failed to mark pipeline failed")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.Newf(apperrors.CodeConflict, "run %s no longer owns video %s", runID, videoID)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, videoID string) (*model.PipelineRecord, error) {
	sql := "SELECT " + selectColumns + " FROM pipelines WHERE video_id = $1"

	rec, err := scanRecord(r.pool.QueryRow(ctx, sql, videoID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.Wrap(err, apperrors.CodeNotFound, "no pipeline record for video "+videoID)
		}
		return nil, common.HandlePostgreSQLError(err, "failed to get pipeline")
	}
	return rec, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*model.PipelineRecord, error) {
	sql := "SELECT " + selectColumns + " FROM pipelines ORDER BY updated_at DESC, video_id"
	rows, err := r.pool.Query(ctx, sql)
	if err != nil {
		return nil, common.HandlePostgreSQLError(err, "failed to list pipelines")
	}
	defer rows.Close()

	records := []*model.PipelineRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, common.HandlePostgreSQLError(err, "failed to scan pipeline row")
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, common.HandlePostgreSQLError(err, "failed to iterate pipeline rows")
	}
	return records, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, videoID string) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM pipelines WHERE video_id = $1", videoID)
	if err != nil {
		return common.HandlePostgreSQLError(err, "failed to delete pipeline")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.Newf(apperrors.CodeNotFound, "no pipeline record for video %s", videoID)
	}
	return nil
}

// staleBefore is the updated_at bound below which a processing record is stale.
// The zero time disables takeover.
func (r *PostgresRepository) staleBefore(now time.Time) time.Time {
	if r.staleAfter <= 0 {
		return time.Time{}
	}
	return now.Add(-r.staleAfter)
}

func scanRecord(row pgx.Row) (*model.PipelineRecord, error) {
	var rec model.PipelineRecord
	var status string
	err := row.Scan(
		&rec.VideoID,
		&status,
		&rec.RunID,
		&rec.DataDir,
		&rec.ChunkCount,
		&rec.EmbeddingModel,
		&rec.Dimension,
		&rec.ErrorMessage,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Status = model.PipelineStatus(status)
	return &rec, nil
}
