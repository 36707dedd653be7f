package rag

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Taichi-iskw/yt-rag/internal/model"
)

type mockProcessor struct {
	ProcessFunc func(ctx context.Context, videoID string) (*model.RunResult, error)
}

func (m *mockProcessor) Process(ctx context.Context, videoID string) (*model.RunResult, error) {
	if m.ProcessFunc != nil {
		return m.ProcessFunc(ctx, videoID)
	}
	return nil, nil
}

type mockQuerier struct {
	QueryFunc func(ctx context.Context, videoID, query string, k int) (*model.QueryResult, error)
	queries   []string
}

func (m *mockQuerier) Query(ctx context.Context, videoID, query string, k int) (*model.QueryResult, error) {
	m.queries = append(m.queries, query)
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, videoID, query, k)
	}
	return nil, nil
}

func sampleResult() *model.QueryResult {
	return &model.QueryResult{
		Answer: "They talk about testing.",
		RetrievedChunks: []model.RetrievedChunk{
			{IndexedChunk: model.IndexedChunk{ID: "chunk_002", StartTime: "00:00:30.000", EndTime: "00:01:00.000"}, Distance: 0.12345},
		},
	}
}

func TestProcessCommand(t *testing.T) {
	tests := []struct {
		name           string
		args           []string
		setupMock      func(*mockProcessor)
		factoryErr     error
		expectedOutput string
		wantErr        bool
	}{
		{
			name: "successful run",
			args: []string{"15_pppse4fY"},
			setupMock: func(m *mockProcessor) {
				m.ProcessFunc = func(ctx context.Context, videoID string) (*model.RunResult, error) {
					return &model.RunResult{VideoID: videoID, RunID: "run-1", ChunkCount: 4, SegmentCount: 12, Dimension: 1024, EmbeddingModel: "mxbai-embed-large"}, nil
				}
			},
			expectedOutput: "Chunks: 4 (12 segments)",
		},
		{
			name: "pipeline failure",
			args: []string{"15_pppse4fY"},
			setupMock: func(m *mockProcessor) {
				m.ProcessFunc = func(ctx context.Context, videoID string) (*model.RunResult, error) {
					return nil, errors.New("no captions")
				}
			},
			wantErr: true,
		},
		{
			name:       "factory failure",
			args:       []string{"15_pppse4fY"},
			factoryErr: errors.New("failed to connect to database"),
			wantErr:    true,
		},
		{
			name:    "missing video id",
			args:    []string{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			processor := &mockProcessor{}
			if tt.setupMock != nil {
				tt.setupMock(processor)
			}
			cleaned := false
			cmd := NewProcessCommand(func(ctx context.Context) (Processor, func(), error) {
				if tt.factoryErr != nil {
					return nil, nil, tt.factoryErr
				}
				return processor, func() { cleaned = true }, nil
			})

			var buf bytes.Buffer
			cmd.SetOut(&buf)
			cmd.SetErr(&buf)
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, buf.String(), tt.expectedOutput)
			assert.True(t, cleaned)
		})
	}
}

func TestQueryCommand_SingleQuestion(t *testing.T) {
	querier := &mockQuerier{
		QueryFunc: func(ctx context.Context, videoID, query string, k int) (*model.QueryResult, error) {
			assert.Equal(t, "15_pppse4fY", videoID)
			assert.Equal(t, 5, k)
			return sampleResult(), nil
		},
	}
	cmd := NewQueryCommand(func(ctx context.Context) (Querier, func(), error) {
		return querier, func() {}, nil
	})

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{"15_pppse4fY", "what is it about?", "-k", "5"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, []string{"what is it about?"}, querier.queries)
	assert.Contains(t, buf.String(), "Answer: They talk about testing.")
	assert.Contains(t, buf.String(), "- [00:00:30.000 --> 00:01:00.000] (distance: 0.1235)")
}

func TestQueryCommand_Interactive(t *testing.T) {
	calls := 0
	querier := &mockQuerier{
		QueryFunc: func(ctx context.Context, videoID, query string, k int) (*model.QueryResult, error) {
			calls++
			if calls == 1 {
				return nil, errors.New("completion failed")
			}
			return sampleResult(), nil
		},
	}
	cmd := NewQueryCommand(func(ctx context.Context) (Querier, func(), error) {
		return querier, func() {}, nil
	})

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetIn(strings.NewReader("first?\n\nsecond?\nQUIT\nnever asked\n"))
	cmd.SetArgs([]string{"15_pppse4fY"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, []string{"first?", "second?"}, querier.queries)
	assert.Contains(t, buf.String(), "Error: completion failed")
	assert.Contains(t, buf.String(), "Answer: They talk about testing.")
	assert.Contains(t, buf.String(), "Exiting...")
}

func TestQueryCommand_InteractiveEOF(t *testing.T) {
	querier := &mockQuerier{}
	cmd := NewQueryCommand(func(ctx context.Context) (Querier, func(), error) {
		return querier, func() {}, nil
	})

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs([]string{"15_pppse4fY"})

	require.NoError(t, cmd.Execute())
	assert.Empty(t, querier.queries)
}

func TestQueryCommand_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no arguments", args: []string{}},
		{name: "too many arguments", args: []string{"a", "b", "c"}},
		{name: "unknown format", args: []string{"15_pppse4fY", "q", "--format", "xml"}},
		{name: "query failure", args: []string{"15_pppse4fY", "q"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			querier := &mockQuerier{
				QueryFunc: func(ctx context.Context, videoID, query string, k int) (*model.QueryResult, error) {
					return nil, errors.New("index missing")
				},
			}
			cmd := NewQueryCommand(func(ctx context.Context) (Querier, func(), error) {
				return querier, func() {}, nil
			})
			var buf bytes.Buffer
			cmd.SetOut(&buf)
			cmd.SetErr(&buf)
			cmd.SetArgs(tt.args)

			assert.Error(t, cmd.Execute())
		})
	}
}
