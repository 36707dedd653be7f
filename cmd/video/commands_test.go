package video

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Taichi-iskw/yt-rag/internal/errors"
	"github.com/Taichi-iskw/yt-rag/internal/model"
)

type mockRegistry struct {
	StatusFunc func(ctx context.Context, videoID string) (*model.PipelineRecord, error)
	ListFunc   func(ctx context.Context) ([]*model.PipelineRecord, error)
	DeleteFunc func(ctx context.Context, videoID string) error
}

func (m *mockRegistry) Status(ctx context.Context, videoID string) (*model.PipelineRecord, error) {
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx, videoID)
	}
	return nil, nil
}

func (m *mockRegistry) List(ctx context.Context) ([]*model.PipelineRecord, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

func (m *mockRegistry) Delete(ctx context.Context, videoID string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, videoID)
	}
	return nil
}

func readyRecord(videoID string) *model.PipelineRecord {
	return &model.PipelineRecord{
		VideoID:        videoID,
		Status:         model.StatusReady,
		RunID:          "run-1",
		DataDir:        "/data/" + videoID,
		ChunkCount:     7,
		EmbeddingModel: "mxbai-embed-large",
		Dimension:      1024,
		UpdatedAt:      time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func run(t *testing.T, registry *mockRegistry, args ...string) (string, error) {
	t.Helper()
	cmd := NewVideoCommand(func(ctx context.Context) (Registry, func(), error) {
		return registry, func() {}, nil
	})
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVideoCommands(t *testing.T) {
	tests := []struct {
		name           string
		args           []string
		setupMock      func(*mockRegistry)
		expectedOutput string
		wantErr        bool
	}{
		{
			name: "status text",
			args: []string{"status", "15_pppse4fY"},
			setupMock: func(m *mockRegistry) {
				m.StatusFunc = func(ctx context.Context, videoID string) (*model.PipelineRecord, error) {
					return readyRecord(videoID), nil
				}
			},
			expectedOutput: "Embedding: mxbai-embed-large (1024 dimensions)",
		},
		{
			name: "status json",
			args: []string{"status", "15_pppse4fY", "--format", "json"},
			setupMock: func(m *mockRegistry) {
				m.StatusFunc = func(ctx context.Context, videoID string) (*model.PipelineRecord, error) {
					return readyRecord(videoID), nil
				}
			},
			expectedOutput: `"status": "ready"`,
		},
		{
			name: "status unknown video",
			args: []string{"status", "15_pppse4fY"},
			setupMock: func(m *mockRegistry) {
				m.StatusFunc = func(ctx context.Context, videoID string) (*model.PipelineRecord, error) {
					return nil, errors.New(errors.CodeNotFound, "pipeline record not found")
				}
			},
			wantErr: true,
		},
		{
			name: "list",
			args: []string{"list"},
			setupMock: func(m *mockRegistry) {
				m.ListFunc = func(ctx context.Context) ([]*model.PipelineRecord, error) {
					return []*model.PipelineRecord{readyRecord("15_pppse4fY"), readyRecord("dQw4w9WgXcQ")}, nil
				}
			},
			expectedOutput: "dQw4w9WgXcQ",
		},
		{
			name:           "list empty",
			args:           []string{"list"},
			setupMock:      func(m *mockRegistry) {},
			expectedOutput: "No videos found.",
		},
		{
			name: "delete",
			args: []string{"delete", "15_pppse4fY"},
			setupMock: func(m *mockRegistry) {
				m.DeleteFunc = func(ctx context.Context, videoID string) error { return nil }
			},
			expectedOutput: "Video 15_pppse4fY deleted",
		},
		{
			name: "delete dry run",
			args: []string{"delete", "15_pppse4fY", "--dry-run"},
			setupMock: func(m *mockRegistry) {
				m.DeleteFunc = func(ctx context.Context, videoID string) error {
					t.Fatal("delete must not be called in dry-run mode")
					return nil
				}
			},
			expectedOutput: "DRY RUN",
		},
		{
			name: "delete while processing",
			args: []string{"delete", "15_pppse4fY"},
			setupMock: func(m *mockRegistry) {
				m.DeleteFunc = func(ctx context.Context, videoID string) error {
					return errors.New(errors.CodeConflict, "video is being processed")
				}
			},
			wantErr: true,
		},
		{
			name:    "status without id",
			args:    []string{"status"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := &mockRegistry{}
			if tt.setupMock != nil {
				tt.setupMock(registry)
			}

			output, err := run(t, registry, tt.args...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, output, tt.expectedOutput)
		})
	}
}
