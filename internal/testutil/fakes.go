// Package testutil provides in-process stand-ins for the external services
// (transcript provider, embedding endpoint, completion model) used by tests.
package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/Taichi-iskw/yt-rag/internal/model"
	"github.com/Taichi-iskw/yt-rag/internal/service/answer"
	"github.com/Taichi-iskw/yt-rag/internal/service/chunker"
	"github.com/Taichi-iskw/yt-rag/internal/service/index"
	"github.com/Taichi-iskw/yt-rag/internal/service/pipeline"
	"github.com/Taichi-iskw/yt-rag/internal/service/transcript"
)

// Words are distinct caption texts used to build transcripts
var Words = []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf", "hotel"}

// Captions returns n caption entries, each lasting step seconds
func Captions(n int, step float64) []model.CaptionEntry {
	entries := make([]model.CaptionEntry, n)
	for i := range entries {
		entries[i] = model.CaptionEntry{
			Text:     Words[i%len(Words)],
			Start:    float64(i) * step,
			Duration: step,
		}
	}
	return entries
}

// StaticProvider returns fixed caption entries
type StaticProvider struct {
	mu      sync.Mutex
	Entries []model.CaptionEntry
	Err     error
	Calls   int
}

func (p *StaticProvider) Name() string { return "static" }

func (p *StaticProvider) Fetch(ctx context.Context, videoID string, languages []string) ([]model.CaptionEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls++
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Entries, nil
}

// LetterEmbedder embeds text as its letter frequencies over a..z
type LetterEmbedder struct {
	ModelName string
	Err       error
}

func (e *LetterEmbedder) Model() string {
	if e.ModelName == "" {
		return "letter-embed"
	}
	return e.ModelName
}

func (e *LetterEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	vec := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			vec[r-'a']++
		}
	}
	return vec, nil
}

// RecordingCompleter returns Answer and keeps every prompt it received
type RecordingCompleter struct {
	mu      sync.Mutex
	Answer  string
	Err     error
	Prompts []string
}

func (c *RecordingCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Prompts = append(c.Prompts, prompt)
	if c.Err != nil {
		return "", c.Err
	}
	if c.Answer == "" {
		return "It is in the transcript.", nil
	}
	return c.Answer, nil
}

// Fakes bundles the stand-ins wired into a pipeline
type Fakes struct {
	Provider  *StaticProvider
	Embedder  *LetterEmbedder
	Completer *RecordingCompleter
}

// NewFakes returns stand-ins serving entries
func NewFakes(entries []model.CaptionEntry) *Fakes {
	return &Fakes{
		Provider:  &StaticProvider{Entries: entries},
		Embedder:  &LetterEmbedder{},
		Completer: &RecordingCompleter{},
	}
}

// NewPipeline wires the real chunker, indexer and file store around the fakes
func NewPipeline(dataDir string, fakes *Fakes, duration float64, logger *slog.Logger) *pipeline.Pipeline {
	store := index.NewFileStore()
	indexer := index.NewIndexer(fakes.Embedder, store, logger)
	return pipeline.NewPipeline(
		dataDir,
		transcript.NewTranscriptService(fakes.Provider, []string{"en"}, logger),
		chunker.NewChunkerService(duration, false, logger),
		indexer,
		store,
		answer.NewAnswerer(indexer, fakes.Completer, logger),
		logger,
	)
}
