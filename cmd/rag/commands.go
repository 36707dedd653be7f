// Package rag holds the process and query commands.
package rag

import (
	"context"

	"github.com/Taichi-iskw/yt-rag/internal/model"
)

// Processor runs the pipeline for a video
type Processor interface {
	Process(ctx context.Context, videoID string) (*model.RunResult, error)
}

// Querier answers questions about a processed video
type Querier interface {
	Query(ctx context.Context, videoID, query string, k int) (*model.QueryResult, error)
}

// ProcessorFactory builds a Processor and returns a cleanup func
type ProcessorFactory func(ctx context.Context) (Processor, func(), error)

// QuerierFactory builds a Querier and returns a cleanup func
type QuerierFactory func(ctx context.Context) (Querier, func(), error)
