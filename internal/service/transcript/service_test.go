package transcript

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Taichi-iskw/yt-rag/internal/errors"
	"github.com/Taichi-iskw/yt-rag/internal/logger"
	"github.com/Taichi-iskw/yt-rag/internal/model"
)

func TestTranscriptService_Generate(t *testing.T) {
	tests := []struct {
		name      string
		videoID   string
		setupMock func(m *mockProvider)
		wantCode  string
		wantCues  int
	}{
		{
			name:    "writes transcript file",
			videoID: "15_pppse4fY",
			setupMock: func(m *mockProvider) {
				m.On("Fetch", mock.Anything, "15_pppse4fY", []string{"en"}).Return([]model.CaptionEntry{
					{Text: "one", Start: 0, Duration: 15},
					{Text: "two", Start: 15, Duration: 15},
				}, nil)
			},
			wantCues: 2,
		},
		{
			name:    "provider error is propagated",
			videoID: "15_pppse4fY",
			setupMock: func(m *mockProvider) {
				m.On("Fetch", mock.Anything, "15_pppse4fY", []string{"en"}).
					Return(nil, errors.New(errors.CodeNotFound, "no transcript"))
			},
			wantCode: errors.CodeNotFound,
		},
		{
			name:      "empty video id",
			videoID:   "",
			setupMock: func(m *mockProvider) {},
			wantCode:  errors.CodeInvalidArg,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &mockProvider{}
			tt.setupMock(provider)

			dir := filepath.Join(t.TempDir(), "15_pppse4fY")
			service := NewTranscriptService(provider, []string{"en"}, logger.Discard())

			result, err := service.Generate(context.Background(), tt.videoID, dir)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, errors.CodeOf(err))
				return
			}
			require.NoError(t, err)

			assert.Equal(t, filepath.Join(dir, FileName), result.Path)
			assert.Equal(t, "mock", result.Provider)
			assert.Len(t, result.Entries, tt.wantCues)

			data, err := os.ReadFile(result.Path)
			require.NoError(t, err)
			assert.Contains(t, string(data), "2\n00:00:15.000 --> 00:00:30.000\ntwo\n")
			provider.AssertExpectations(t)
		})
	}
}
