package answer

import (
	"context"
	"log/slog"
	"time"

	"github.com/Taichi-iskw/yt-rag/internal/model"
	"github.com/Taichi-iskw/yt-rag/internal/service/index"
)

// Searcher retrieves the chunks nearest to a query
type Searcher interface {
	Search(ctx context.Context, ref index.Ref, query string, k int) ([]model.RetrievedChunk, error)
}

// Answerer retrieves context for a question and asks the completion model
type Answerer struct {
	searcher  Searcher
	completer Completer
	logger    *slog.Logger
	now       func() time.Time
}

// NewAnswerer creates a new Answerer
func NewAnswerer(searcher Searcher, completer Completer, logger *slog.Logger) *Answerer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Answerer{
		searcher:  searcher,
		completer: completer,
		logger:    logger,
		now:       time.Now,
	}
}

// Answer returns the generated answer with the chunks it was grounded on
func (a *Answerer) Answer(ctx context.Context, ref index.Ref, query string, k int) (*model.QueryResult, error) {
	chunks, err := a.searcher.Search(ctx, ref, query, k)
	if err != nil {
		return nil, err
	}

	prompt := BuildPrompt(query, chunks)
	a.logger.Debug("prompt built", slog.String("video_id", ref.VideoID), slog.Int("chunks", len(chunks)), slog.Int("length", len(prompt)))

	text, err := a.completer.Complete(ctx, prompt)
	if err != nil {
		a.logger.Error("completion failed", slog.String("video_id", ref.VideoID), slog.Any("error", err))
		return nil, err
	}

	return &model.QueryResult{
		Answer:          text,
		RetrievedChunks: chunks,
		Timestamp:       a.now().UTC(),
	}, nil
}
