package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	t.Run("error without cause", func(t *testing.T) {
		err := New(CodeNotProcessed, "video not processed")
		assert.Equal(t, "NOT_PROCESSED: video not processed", err.Error())
		assert.Nil(t, err.Unwrap())
	})

	t.Run("error with cause", func(t *testing.T) {
		cause := fmt.Errorf("connection refused")
		err := Wrap(cause, CodeEmbedding, "embedding request failed")
		assert.Equal(t, "EMBEDDING_SERVICE_ERROR: embedding request failed (caused by: connection refused)", err.Error())
		assert.ErrorIs(t, err, cause)
	})
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "app error", err: New(CodeIndexIO, "missing"), want: CodeIndexIO},
		{name: "wrapped app error", err: fmt.Errorf("stage: %w", New(CodeParse, "bad cue")), want: CodeParse},
		{name: "plain error", err: fmt.Errorf("boom"), want: CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestIs(t *testing.T) {
	assert.True(t, Is(New(CodeConflict, "locked"), CodeConflict))
	assert.False(t, Is(New(CodeConflict, "locked"), CodeNotFound))
	assert.False(t, Is(nil, CodeInternal))
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "no captions", MessageOf(New(CodeNotFound, "no captions")))
	assert.Equal(t, "fetch failed: timeout", MessageOf(Wrap(fmt.Errorf("timeout"), CodeProvider, "fetch failed")))
	assert.Equal(t, "plain", MessageOf(fmt.Errorf("plain")))
}
