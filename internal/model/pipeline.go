package model

import "time"

// PipelineStatus represents the processing state of a video
type PipelineStatus string

const (
	StatusProcessing PipelineStatus = "processing"
	StatusReady      PipelineStatus = "ready"
	StatusFailed     PipelineStatus = "failed"
)

// PipelineRecord represents the registry entry for a video
type PipelineRecord struct {
	VideoID        string         `json:"video_id" db:"video_id"`
	Status         PipelineStatus `json:"status" db:"status"`
	RunID          string         `json:"run_id" db:"run_id"`
	DataDir        string         `json:"data_dir" db:"data_dir"`
	ChunkCount     int            `json:"chunk_count" db:"chunk_count"`
	EmbeddingModel string         `json:"embedding_model,omitempty" db:"embedding_model"`
	Dimension      int            `json:"dimension,omitempty" db:"dimension"`
	ErrorMessage   *string        `json:"error_message,omitempty" db:"error_message"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}

// RunResult summarizes a completed pipeline run
type RunResult struct {
	VideoID        string        `json:"video_id"`
	RunID          string        `json:"run_id"`
	DataDir        string        `json:"data_dir"`
	ChunkCount     int           `json:"chunk_count"`
	SegmentCount   int           `json:"segment_count"`
	SkippedLines   int           `json:"skipped_lines"`
	Dimension      int           `json:"dimension"`
	EmbeddingModel string        `json:"embedding_model"`
	Duration       time.Duration `json:"duration"`
}
