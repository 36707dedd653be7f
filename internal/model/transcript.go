package model

import (
	"strings"
	"time"
)

// Segment represents a single caption line with timing
type Segment struct {
	Text  string `json:"text"`
	Start string `json:"start"` // HH:MM:SS.mmm
	End   string `json:"end"`   // HH:MM:SS.mmm
}

// Duration returns End - Start in seconds; unparseable timestamps count as zero
func (s Segment) Duration() float64 {
	start, err := ParseTimestamp(s.Start)
	if err != nil {
		return 0
	}
	end, err := ParseTimestamp(s.End)
	if err != nil || end < start {
		return 0
	}
	return end - start
}

// Chunk is a contiguous group of segments persisted as chunk_NNN.json
type Chunk struct {
	Segments     []Segment `json:"segments"`
	StartTime    string    `json:"start_time"`
	EndTime      string    `json:"end_time"`
	MergedText   string    `json:"merged_text"`
	SegmentCount int       `json:"segment_count"`
}

// NewChunk builds a chunk from a non-empty, ordered list of segments
func NewChunk(segments []Segment) Chunk {
	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = seg.Text
	}
	return Chunk{
		Segments:     segments,
		StartTime:    segments[0].Start,
		EndTime:      segments[len(segments)-1].End,
		MergedText:   strings.Join(texts, " "),
		SegmentCount: len(segments),
	}
}

// IndexedChunk is a chunk's metadata entry, parallel to its row in the vector index
type IndexedChunk struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Segments  []Segment `json:"segments"`
}

// RetrievedChunk is an indexed chunk returned by a search, with its squared L2 distance to the query
type RetrievedChunk struct {
	IndexedChunk
	Distance float64 `json:"distance"`
}

// QueryResult is the answer to a question about a processed video
type QueryResult struct {
	Answer          string           `json:"answer"`
	RetrievedChunks []RetrievedChunk `json:"retrieved_chunks"`
	Timestamp       time.Time        `json:"timestamp"`
}
