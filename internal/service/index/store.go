package index

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/Taichi-iskw/yt-rag/internal/errors"
	"github.com/Taichi-iskw/yt-rag/internal/model"
	"github.com/Taichi-iskw/yt-rag/internal/service/common"
)

const (
	// IndexFileName is the vector index file in a video directory
	IndexFileName = "transcript.index"
	// MetadataFileName is the chunk metadata file, parallel to the index rows
	MetadataFileName = "chunk_data.json"
)

// Ref locates the index of one video
type Ref struct {
	VideoID string
	Dir     string
}

// Store persists an index and its metadata, and answers nearest-neighbor queries
type Store interface {
	// Save replaces the index for ref; entries[i] describes vectors[i]
	Save(ctx context.Context, ref Ref, manifest Manifest, entries []model.IndexedChunk, vectors [][]float32) error
	// Manifest returns the manifest of the stored index (INDEX_IO_ERROR when missing)
	Manifest(ctx context.Context, ref Ref) (*Manifest, error)
	// Search returns the k nearest entries in ascending distance order
	Search(ctx context.Context, ref Ref, query []float32, k int) ([]model.RetrievedChunk, error)
	// Delete removes the stored index
	Delete(ctx context.Context, ref Ref) error
}

// FileStore keeps transcript.index and chunk_data.json in the video directory.
// Every search loads both files from disk.
type FileStore struct{}

// NewFileStore creates a new FileStore
func NewFileStore() *FileStore {
	return &FileStore{}
}

var _ Store = (*FileStore)(nil)

// Save writes the metadata file and the index file
func (s *FileStore) Save(ctx context.Context, ref Ref, manifest Manifest, entries []model.IndexedChunk, vectors [][]float32) error {
	if len(entries) != len(vectors) {
		return errors.Newf(errors.CodeInternal, "metadata has %d entries but %d vectors were given", len(entries), len(vectors))
	}

	flat := NewFlatIndex(manifest.Dimension)
	for _, vec := range vectors {
		if err := flat.Add(vec); err != nil {
			return err
		}
	}
	manifest.Dimension = flat.Dimension()
	manifest.Count = flat.Len()

	encoded, err := encodeIndex(manifest, flat)
	if err != nil {
		return errors.Wrap(err, errors.CodeIndexIO, "failed to encode index")
	}
	metadata, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.CodeIndexIO, "failed to encode chunk metadata")
	}

	if err := os.MkdirAll(ref.Dir, 0755); err != nil {
		return errors.Wrap(err, errors.CodeIndexIO, "failed to create index directory")
	}
	if err := common.WriteFileAtomic(filepath.Join(ref.Dir, MetadataFileName), metadata); err != nil {
		return errors.Wrap(err, errors.CodeIndexIO, "failed to write chunk metadata")
	}
	if err := common.WriteFileAtomic(filepath.Join(ref.Dir, IndexFileName), encoded); err != nil {
		return errors.Wrap(err, errors.CodeIndexIO, "failed to write index")
	}
	return nil
}

// Manifest reads only the header of the index file
func (s *FileStore) Manifest(ctx context.Context, ref Ref) (*Manifest, error) {
	f, err := os.Open(filepath.Join(ref.Dir, IndexFileName))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIndexIO, "failed to open index")
	}
	defer f.Close()

	m, err := decodeHeader(bufio.NewReader(f))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIndexIO, "corrupt index file")
	}
	return m, nil
}

// Search loads the index and metadata and returns the k nearest entries
func (s *FileStore) Search(ctx context.Context, ref Ref, query []float32, k int) ([]model.RetrievedChunk, error) {
	flat, entries, err := s.load(ref)
	if err != nil {
		return nil, err
	}

	hits, err := flat.Search(query, k)
	if err != nil {
		return nil, err
	}

	results := make([]model.RetrievedChunk, len(hits))
	for i, hit := range hits {
		results[i] = model.RetrievedChunk{
			IndexedChunk: entries[hit.Row],
			Distance:     hit.Distance,
		}
	}
	return results, nil
}

// Delete removes both index files
func (s *FileStore) Delete(ctx context.Context, ref Ref) error {
	for _, name := range []string{IndexFileName, MetadataFileName} {
		if err := os.Remove(filepath.Join(ref.Dir, name)); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, errors.CodeIndexIO, "failed to delete index")
		}
	}
	return nil
}

// load reads both files and checks that they stay in lock-step
func (s *FileStore) load(ref Ref) (*FlatIndex, []model.IndexedChunk, error) {
	f, err := os.Open(filepath.Join(ref.Dir, IndexFileName))
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeIndexIO, "failed to open index")
	}
	defer f.Close()

	_, flat, err := decodeIndex(f)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeIndexIO, "corrupt index file")
	}

	data, err := os.ReadFile(filepath.Join(ref.Dir, MetadataFileName))
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeIndexIO, "failed to read chunk metadata")
	}
	var entries []model.IndexedChunk
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeIndexIO, "corrupt chunk metadata")
	}

	if len(entries) != flat.Len() {
		return nil, nil, errors.Newf(errors.CodeIndexIO, "index has %d rows but metadata has %d entries", flat.Len(), len(entries))
	}
	return flat, entries, nil
}
