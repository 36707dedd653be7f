package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewChunk(t *testing.T) {
	segments := []Segment{
		{Text: "hello", Start: "00:00:00.000", End: "00:00:10.000"},
		{Text: "world", Start: "00:00:10.000", End: "00:00:20.500"},
	}

	chunk := NewChunk(segments)

	assert.Equal(t, "hello world", chunk.MergedText)
	assert.Equal(t, "00:00:00.000", chunk.StartTime)
	assert.Equal(t, "00:00:20.500", chunk.EndTime)
	assert.Equal(t, 2, chunk.SegmentCount)
	assert.Equal(t, segments, chunk.Segments)
}

func TestSegmentDuration(t *testing.T) {
	assert.InDelta(t, 15.0, Segment{Start: "00:00:00.000", End: "00:00:15.000"}.Duration(), 1e-9)
	assert.Zero(t, Segment{Start: "bad", End: "00:00:15.000"}.Duration())
	assert.Zero(t, Segment{Start: "00:00:15.000", End: "00:00:10.000"}.Duration())
}
