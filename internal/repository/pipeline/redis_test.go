package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Taichi-iskw/yt-rag/internal/errors"
	"github.com/Taichi-iskw/yt-rag/internal/model"
)

func TestDecodeRecord(t *testing.T) {
	created := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	updated := created.Add(90 * time.Second)

	tests := []struct {
		name     string
		fields   map[string]string
		want     *model.PipelineRecord
		wantCode string
	}{
		{
			name: "ready record",
			fields: map[string]string{
				"video_id": "vid", "status": "ready", "run_id": "run-1", "data_dir": "/data/vid",
				"chunk_count": "5", "embedding_model": "m", "dimension": "1024", "error_message": "",
				"created_at": formatTime(created), "updated_at": formatTime(updated),
			},
			want: &model.PipelineRecord{
				VideoID: "vid", Status: model.StatusReady, RunID: "run-1", DataDir: "/data/vid",
				ChunkCount: 5, EmbeddingModel: "m", Dimension: 1024, CreatedAt: created, UpdatedAt: updated,
			},
		},
		{
			name: "failed record keeps message",
			fields: map[string]string{
				"video_id": "vid", "status": "failed", "run_id": "run-1", "error_message": "boom",
				"created_at": formatTime(created), "updated_at": formatTime(updated),
			},
			want: &model.PipelineRecord{
				VideoID: "vid", Status: model.StatusFailed, RunID: "run-1",
				ErrorMessage: func() *string { s := "boom"; return &s }(), CreatedAt: created, UpdatedAt: updated,
			},
		},
		{
			name:     "corrupt count",
			fields:   map[string]string{"video_id": "vid", "chunk_count": "many"},
			wantCode: errors.CodeInternal,
		},
		{
			name:     "corrupt time",
			fields:   map[string]string{"video_id": "vid", "updated_at": "yesterday"},
			wantCode: errors.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := decodeRecord(tt.fields)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, errors.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec)
		})
	}
}

func TestRedisKeys(t *testing.T) {
	assert.Equal(t, "ytrag:pipeline:15_pppse4fY", recordKey("15_pppse4fY"))
	assert.Equal(t, "ytrag:pipeline-lock:15_pppse4fY", lockKey("15_pppse4fY"))
}
