package pipeline

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Taichi-iskw/yt-rag/internal/errors"
	"github.com/Taichi-iskw/yt-rag/internal/model"
)

const (
	redisKeyPrefix  = "ytrag:pipeline:"
	redisLockPrefix = "ytrag:pipeline-lock:"
	redisIndexKey   = "ytrag:pipelines"
)

// finishScript applies a terminal update only while the caller still owns the run.
// KEYS[1] lock, KEYS[2] record; ARGV[1] run id, ARGV[2..] field/value pairs.
var finishScript = redis.NewScript(`
local owner = redis.call('GET', KEYS[1])
if owner and owner ~= ARGV[1] then
	return 0
end
if redis.call('HGET', KEYS[2], 'run_id') ~= ARGV[1] then
	return 0
end
if redis.call('HGET', KEYS[2], 'status') ~= 'processing' then
	return 0
end
redis.call('HSET', KEYS[2], unpack(ARGV, 2))
redis.call('DEL', KEYS[1])
return 1
`)

// RedisRepository stores each record in a hash and guards processing runs with
// a SET NX lock whose TTL is the stale-lock age
type RedisRepository struct {
	client     redis.UniversalClient
	staleAfter time.Duration
	now        func() time.Time
}

// NewRedisRepository creates a new RedisRepository
func NewRedisRepository(client redis.UniversalClient, staleAfter time.Duration) *RedisRepository {
	return &RedisRepository{
		client:     client,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// NewRedisClient creates a client from a redis:// URL
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConfig, "invalid REDIS_URL")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to connect to redis")
	}
	return client, nil
}

var _ Repository = (*RedisRepository)(nil)

func recordKey(videoID string) string { return redisKeyPrefix + videoID }
func lockKey(videoID string) string   { return redisLockPrefix + videoID }

func (r *RedisRepository) Acquire(ctx context.Context, videoID, runID, dataDir string) (*model.PipelineRecord, error) {
	ok, err := r.client.SetNX(ctx, lockKey(videoID), runID, r.staleAfter).Result()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to acquire pipeline lock")
	}
	if !ok {
		return nil, errors.Newf(errors.CodeConflict, "video %s is already being processed", videoID)
	}

	now := formatTime(r.now())
	key := recordKey(videoID)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, map[string]any{
			"video_id":        videoID,
			"status":          string(model.StatusProcessing),
			"run_id":          runID,
			"data_dir":        dataDir,
			"chunk_count":     0,
			"embedding_model": "",
			"dimension":       0,
			"error_message":   "",
			"updated_at":      now,
		})
		pipe.HSetNX(ctx, key, "created_at", now)
		pipe.SAdd(ctx, redisIndexKey, videoID)
		return nil
	})
	if err != nil {
		r.client.Del(ctx, lockKey(videoID))
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to store pipeline record")
	}

	return r.Get(ctx, videoID)
}

func (r *RedisRepository) MarkReady(ctx context.Context, videoID, runID string, info ReadyInfo) error {
	return r.finish(ctx, videoID, runID,
		"status", string(model.StatusReady),
		"chunk_count", info.ChunkCount,
		"embedding_model", info.EmbeddingModel,
		"dimension", info.Dimension,
		"error_message", "",
		"updated_at", formatTime(r.now()),
	)
}

func (r *RedisRepository) MarkFailed(ctx context.Context, videoID, runID, message string) error {
	return r.finish(ctx, videoID, runID,
		"status", string(model.StatusFailed),
		"error_message", message,
		"updated_at", formatTime(r.now()),
	)
}

func (r *RedisRepository) finish(ctx context.Context, videoID, runID string, fields ...any) error {
	args := append([]any{runID}, fields...)
	applied, err := finishScript.Run(ctx, r.client, []string{lockKey(videoID), recordKey(videoID)}, args...).Int()
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "failed to update pipeline record")
	}
	if applied == 0 {
		return errors.Newf(errors.CodeConflict, "run %s no longer owns video %s", runID, videoID)
	}
	return nil
}

func (r *RedisRepository) Get(ctx context.Context, videoID string) (*model.PipelineRecord, error) {
	fields, err := r.client.HGetAll(ctx, recordKey(videoID)).Result()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to get pipeline record")
	}
	if len(fields) == 0 {
		return nil, errors.Newf(errors.CodeNotFound, "no pipeline record for video %s", videoID)
	}
	return decodeRecord(fields)
}

func (r *RedisRepository) List(ctx context.Context) ([]*model.PipelineRecord, error) {
	ids, err := r.client.SMembers(ctx, redisIndexKey).Result()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to list pipelines")
	}

	records := make([]*model.PipelineRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := r.Get(ctx, id)
		if err != nil {
			if errors.Is(err, errors.CodeNotFound) {
				continue
			}
			return nil, err
		}
		records = append(records, rec)
	}
	sortByUpdated(records)
	return records, nil
}

func (r *RedisRepository) Delete(ctx context.Context, videoID string) error {
	removed, err := r.client.Del(ctx, recordKey(videoID)).Result()
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "failed to delete pipeline record")
	}
	r.client.Del(ctx, lockKey(videoID))
	r.client.SRem(ctx, redisIndexKey, videoID)
	if removed == 0 {
		return errors.Newf(errors.CodeNotFound, "no pipeline record for video %s", videoID)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// decodeRecord converts a record hash into a PipelineRecord
func decodeRecord(fields map[string]string) (*model.PipelineRecord, error) {
	rec := &model.PipelineRecord{
		VideoID:        fields["video_id"],
		Status:         model.PipelineStatus(fields["status"]),
		RunID:          fields["run_id"],
		DataDir:        fields["data_dir"],
		EmbeddingModel: fields["embedding_model"],
	}
	var err error
	if rec.ChunkCount, err = atoiField(fields, "chunk_count"); err != nil {
		return nil, err
	}
	if rec.Dimension, err = atoiField(fields, "dimension"); err != nil {
		return nil, err
	}
	if rec.CreatedAt, err = timeField(fields, "created_at"); err != nil {
		return nil, err
	}
	if rec.UpdatedAt, err = timeField(fields, "updated_at"); err != nil {
		return nil, err
	}
	if msg := fields["error_message"]; msg != "" {
		rec.ErrorMessage = &msg
	}
	return rec, nil
}

func atoiField(fields map[string]string, name string) (int, error) {
	v, ok := fields[name]
	if !ok || v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeInternal, "corrupt pipeline field "+name)
	}
	return n, nil
}

func timeField(fields map[string]string, name string) (time.Time, error) {
	v, ok := fields[name]
	if !ok || v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, errors.Wrap(err, errors.CodeInternal, "corrupt pipeline field "+name)
	}
	return t, nil
}
