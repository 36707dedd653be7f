package index

import (
	"context"
	"strings"

	"github.com/Taichi-iskw/yt-rag/internal/errors"
	"github.com/Taichi-iskw/yt-rag/internal/model"
)

// fakeEmbedder maps text to letter-frequency vectors over "a".."d", or to fixed vectors when configured
type fakeEmbedder struct {
	model   string
	vectors map[string][]float32
	failOn  string
	calls   []string
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{model: "fake-embed", vectors: map[string][]float32{}}
}

func (f *fakeEmbedder) Model() string { return f.model }

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls = append(f.calls, text)
	if f.failOn != "" && text == f.failOn {
		return nil, errors.New(errors.CodeEmbedding, "error getting embedding: status 500: boom")
	}
	if vec, ok := f.vectors[text]; ok {
		return vec, nil
	}
	vec := make([]float32, 4)
	for i, letter := range []string{"a", "b", "c", "d"} {
		vec[i] = float32(strings.Count(text, letter))
	}
	return vec, nil
}

func chunkOf(texts ...string) model.Chunk {
	segments := make([]model.Segment, len(texts))
	for i, text := range texts {
		start := model.FormatTimestamp(float64(i) * 10)
		end := model.FormatTimestamp(float64(i+1) * 10)
		segments[i] = model.Segment{Text: text, Start: start, End: end}
	}
	return model.NewChunk(segments)
}
