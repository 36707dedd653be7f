package index

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"
)

// indexMagic identifies a transcript.index file
var indexMagic = [8]byte{'Y', 'T', 'R', 'A', 'G', 'I', 'D', 'X'}

const (
	formatVersion uint32 = 1
	maxStringLen         = 1 << 16
)

// Manifest describes a persisted index
type Manifest struct {
	EmbeddingModel string    `json:"embedding_model"`
	Dimension      int       `json:"dimension"`
	Count          int       `json:"count"`
	RunID          string    `json:"run_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// header is the fixed-size part of the file
type header struct {
	Magic     [8]byte
	Version   uint32
	Dimension uint32
	Count     uint32
	CreatedAt int64
}

// encodeIndex serializes a manifest and the index rows:
// header, length-prefixed model name and run id, then little-endian float32 rows.
func encodeIndex(m Manifest, x *FlatIndex) ([]byte, error) {
	var buf bytes.Buffer
	h := header{
		Magic:     indexMagic,
		Version:   formatVersion,
		Dimension: uint32(x.Dimension()),
		Count:     uint32(x.Len()),
		CreatedAt: m.CreatedAt.UnixMilli(),
	}
	if err := binary.Write(&buf, binary.LittleEndian, h); err != nil {
		return nil, err
	}
	for _, s := range []string{m.EmbeddingModel, m.RunID} {
		if err := writeString(&buf, s); err != nil {
			return nil, err
		}
	}
	if err := binary.Write(&buf, binary.LittleEndian, x.data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeHeader reads the manifest part of an index file
func decodeHeader(r io.Reader) (*Manifest, error) {
	var h header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if h.Magic != indexMagic {
		return nil, fmt.Errorf("not a transcript index file")
	}
	if h.Version != formatVersion {
		return nil, fmt.Errorf("unsupported index version %d", h.Version)
	}

	model, err := readString(r)
	if err != nil {
		return nil, fmt.Errorf("read model name: %w", err)
	}
	runID, err := readString(r)
	if err != nil {
		return nil, fmt.Errorf("read run id: %w", err)
	}

	return &Manifest{
		EmbeddingModel: model,
		Dimension:      int(h.Dimension),
		Count:          int(h.Count),
		RunID:          runID,
		CreatedAt:      time.UnixMilli(h.CreatedAt).UTC(),
	}, nil
}

// decodeIndex reads a whole index file
func decodeIndex(r io.Reader) (*Manifest, *FlatIndex, error) {
	br := bufio.NewReader(r)
	m, err := decodeHeader(br)
	if err != nil {
		return nil, nil, err
	}

	total := uint64(m.Dimension) * uint64(m.Count)
	if total > math.MaxInt32 {
		return nil, nil, fmt.Errorf("index too large: %d values", total)
	}
	data := make([]float32, total)
	if err := binary.Read(br, binary.LittleEndian, data); err != nil {
		return nil, nil, fmt.Errorf("read vectors: %w", err)
	}
	if _, err := br.ReadByte(); err != io.EOF {
		return nil, nil, fmt.Errorf("trailing data after %d vectors", m.Count)
	}

	return m, &FlatIndex{dim: m.Dimension, data: data}, nil
}

func writeString(w io.Writer, s string) error {
	if len(s) >= maxStringLen {
		return fmt.Errorf("string too long: %d bytes", len(s))
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
