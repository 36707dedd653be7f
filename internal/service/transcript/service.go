package transcript

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Taichi-iskw/yt-rag/internal/errors"
	"github.com/Taichi-iskw/yt-rag/internal/model"
	"github.com/Taichi-iskw/yt-rag/internal/service/common"
)

// FileName is the transcript file written into each video directory
const FileName = "transcript.vtt"

// Transcript describes a transcript written to disk
type Transcript struct {
	VideoID  string
	Path     string
	Provider string
	Entries  []model.CaptionEntry
}

// TranscriptService fetches transcripts and writes them as WebVTT
type TranscriptService interface {
	Generate(ctx context.Context, videoID, dir string) (*Transcript, error)
}

// transcriptService implements TranscriptService
type transcriptService struct {
	provider  Provider
	languages []string
	logger    *slog.Logger
}

// NewTranscriptService creates a new TranscriptService
func NewTranscriptService(provider Provider, languages []string, logger *slog.Logger) TranscriptService {
	if logger == nil {
		logger = slog.Default()
	}
	if len(languages) == 0 {
		languages = []string{"en"}
	}
	return &transcriptService{
		provider:  provider,
		languages: languages,
		logger:    logger,
	}
}

// Generate fetches the transcript for videoID and writes dir/transcript.vtt.
// The file is replaced atomically so a concurrent reader never sees a partial transcript.
func (s *transcriptService) Generate(ctx context.Context, videoID, dir string) (*Transcript, error) {
	if videoID == "" {
		return nil, errors.New(errors.CodeInvalidArg, "video ID is required")
	}

	entries, err := s.provider.Fetch(ctx, videoID, s.languages)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := WriteVTT(&buf, entries); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to render transcript")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to create video directory")
	}
	path := filepath.Join(dir, FileName)
	if err := common.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to write transcript file")
	}

	s.logger.Info("transcript saved",
		slog.String("video_id", videoID),
		slog.String("provider", s.provider.Name()),
		slog.Int("entries", len(entries)),
		slog.String("path", path))

	return &Transcript{
		VideoID:  videoID,
		Path:     path,
		Provider: s.provider.Name(),
		Entries:  entries,
	}, nil
}
