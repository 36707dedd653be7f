package transcript

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Taichi-iskw/yt-rag/internal/model"
)

// mockCmdRunner is a mock implementation of common.CmdRunner for testing
type mockCmdRunner struct {
	mock.Mock
}

func (m *mockCmdRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	arguments := m.Called(ctx, name, args)
	if arguments.Get(0) == nil {
		return nil, arguments.Error(1)
	}
	return arguments.Get(0).([]byte), arguments.Error(1)
}

// mockProvider is a mock implementation of Provider for testing
type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Name() string {
	return "mock"
}

func (m *mockProvider) Fetch(ctx context.Context, videoID string, languages []string) ([]model.CaptionEntry, error) {
	args := m.Called(ctx, videoID, languages)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CaptionEntry), args.Error(1)
}
