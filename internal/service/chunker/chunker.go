package chunker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/Taichi-iskw/yt-rag/internal/errors"
	"github.com/Taichi-iskw/yt-rag/internal/model"
	"github.com/Taichi-iskw/yt-rag/internal/service/common"
)

// DefaultDuration is the default chunk duration threshold in seconds
const DefaultDuration = 30.0

// chunkFilePattern matches persisted chunk files
const chunkFilePattern = "chunk_*.json"

// ChunkFileName returns the file name of the n-th chunk (1-based)
func ChunkFileName(n int) string {
	return fmt.Sprintf("chunk_%03d.json", n)
}

// Result describes the chunks produced from one subtitle file
type Result struct {
	Chunks       []model.Chunk
	Files        []string
	SegmentCount int
	Skipped      []ParseIssue
	SkippedLines int
}

// ChunkerService splits subtitle files into time-bounded chunks
type ChunkerService interface {
	ChunkFile(ctx context.Context, vttPath, outDir string) (*Result, error)
}

// chunkerService implements ChunkerService
type chunkerService struct {
	duration float64
	strict   bool
	logger   *slog.Logger
}

// NewChunkerService creates a new ChunkerService; duration <= 0 selects DefaultDuration
func NewChunkerService(duration float64, strict bool, logger *slog.Logger) ChunkerService {
	if duration <= 0 {
		duration = DefaultDuration
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &chunkerService{
		duration: duration,
		strict:   strict,
		logger:   logger,
	}
}

// Split groups segments into chunks. A chunk is flushed as soon as its accumulated
// (end - start) duration reaches threshold; a non-empty remainder becomes the last chunk.
func Split(segments []model.Segment, threshold float64) []model.Chunk {
	var chunks []model.Chunk
	var current []model.Segment
	accumulated := 0.0

	for _, seg := range segments {
		current = append(current, seg)
		accumulated += seg.Duration()
		if accumulated >= threshold {
			chunks = append(chunks, model.NewChunk(current))
			current = nil
			accumulated = 0
		}
	}
	if len(current) > 0 {
		chunks = append(chunks, model.NewChunk(current))
	}
	return chunks
}

// ChunkFile parses vttPath, removes stale chunk files from outDir and writes chunk_NNN.json per chunk
func (s *chunkerService) ChunkFile(ctx context.Context, vttPath, outDir string) (*Result, error) {
	f, err := os.Open(vttPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(err, errors.CodeNotFound, "subtitle file not found")
		}
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to open subtitle file")
	}
	defer f.Close()

	parsed, err := ParseVTT(f, s.strict)
	if err != nil {
		return nil, err
	}
	for _, issue := range parsed.Skipped {
		s.logger.Warn("skipped malformed cue",
			slog.String("file", vttPath), slog.Int("line", issue.Line), slog.String("reason", issue.Reason))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	chunks := Split(parsed.Segments, s.duration)

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to create chunk directory")
	}
	if err := removeChunkFiles(outDir); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to remove stale chunk files")
	}

	files := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		data, err := json.MarshalIndent(chunk, "", "  ")
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "failed to encode chunk")
		}
		path := filepath.Join(outDir, ChunkFileName(i+1))
		if err := common.WriteFileAtomic(path, data); err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "failed to write chunk file")
		}
		files = append(files, path)
	}

	s.logger.Info("transcript chunked",
		slog.String("file", vttPath),
		slog.Int("segments", len(parsed.Segments)),
		slog.Int("chunks", len(chunks)),
		slog.Int("skipped_lines", parsed.SkippedLines()))

	return &Result{
		Chunks:       chunks,
		Files:        files,
		SegmentCount: len(parsed.Segments),
		Skipped:      parsed.Skipped,
		SkippedLines: parsed.SkippedLines(),
	}, nil
}

// LoadChunks reads persisted chunk files from dir in chunk order
func LoadChunks(dir string) ([]model.Chunk, error) {
	paths, err := filepath.Glob(filepath.Join(dir, chunkFilePattern))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to list chunk files")
	}
	if len(paths) == 0 {
		return nil, errors.Newf(errors.CodeNotFound, "no chunk files in %s", dir)
	}
	paths, err = sortChunkPaths(paths)
	if err != nil {
		return nil, err
	}

	chunks := make([]model.Chunk, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "failed to read chunk file")
		}
		var chunk model.Chunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			return nil, errors.Wrap(err, errors.CodeParse, fmt.Sprintf("invalid chunk file %s", filepath.Base(path)))
		}
		if len(chunk.Segments) == 0 {
			return nil, errors.Newf(errors.CodeParse, "chunk file %s has no segments", filepath.Base(path))
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// sortChunkPaths orders chunk files by their number and requires the numbers
// to run 1..n, since chunk ids are derived from position
func sortChunkPaths(paths []string) ([]string, error) {
	type numbered struct {
		n    int
		path string
	}
	files := make([]numbered, 0, len(paths))
	for _, path := range paths {
		digits := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), "chunk_"), ".json")
		n, err := strconv.Atoi(digits)
		if err != nil || n < 1 || strings.TrimLeft(digits, "0123456789") != "" {
			return nil, errors.Newf(errors.CodeParse, "unexpected chunk file name %s", filepath.Base(path))
		}
		files = append(files, numbered{n: n, path: path})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].n < files[j].n })

	sorted := make([]string, len(files))
	for i, f := range files {
		if f.n != i+1 {
			return nil, errors.Newf(errors.CodeParse, "chunk files are not contiguous: expected %s, found %s",
				ChunkFileName(i+1), filepath.Base(f.path))
		}
		sorted[i] = f.path
	}
	return sorted, nil
}

// removeChunkFiles deletes every chunk_*.json in dir
func removeChunkFiles(dir string) error {
	paths, err := filepath.Glob(filepath.Join(dir, chunkFilePattern))
	if err != nil {
		return err
	}
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
