package rag

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Taichi-iskw/yt-rag/internal/model"
)

// AnswerFormatter renders a query result
type AnswerFormatter interface {
	Format(result *model.QueryResult) (string, error)
}

// RunFormatter renders a pipeline run summary
type RunFormatter interface {
	Format(result *model.RunResult) (string, error)
}

// TextFormatter formats output as plain text
type TextFormatter struct{}

// Format renders the answer followed by the retrieved segments
func (f *TextFormatter) Format(result *model.QueryResult) (string, error) {
	var output strings.Builder

	output.WriteString("\nAnswer: ")
	output.WriteString(result.Answer)
	output.WriteString("\n\nRetrieved from segments:\n")
	for _, chunk := range result.RetrievedChunks {
		output.WriteString(FormatSource(chunk))
		output.WriteString("\n")
	}

	return strings.TrimRight(output.String(), "\n"), nil
}

// FormatSource renders one retrieved chunk as "- [start --> end] (distance: d)"
func FormatSource(chunk model.RetrievedChunk) string {
	return fmt.Sprintf("- [%s --> %s] (distance: %.4f)", chunk.StartTime, chunk.EndTime, chunk.Distance)
}

// JSONFormatter formats output as JSON
type JSONFormatter struct{}

// Format renders the query result as indented JSON
func (f *JSONFormatter) Format(result *model.QueryResult) (string, error) {
	return marshal(result)
}

// RunTextFormatter formats a run summary as plain text
type RunTextFormatter struct{}

// Format renders the run summary
func (f *RunTextFormatter) Format(result *model.RunResult) (string, error) {
	var output strings.Builder
	output.WriteString("Video processed successfully\n")
	output.WriteString(fmt.Sprintf("Video ID: %s\n", result.VideoID))
	output.WriteString(fmt.Sprintf("Run ID: %s\n", result.RunID))
	output.WriteString(fmt.Sprintf("Directory: %s\n", result.DataDir))
	output.WriteString(fmt.Sprintf("Chunks: %d (%d segments", result.ChunkCount, result.SegmentCount))
	if result.SkippedLines > 0 {
		output.WriteString(fmt.Sprintf(", %d lines skipped", result.SkippedLines))
	}
	output.WriteString(")\n")
	output.WriteString(fmt.Sprintf("Embedding: %s (%d dimensions)\n", result.EmbeddingModel, result.Dimension))
	output.WriteString(fmt.Sprintf("Duration: %s", result.Duration.Round(10*time.Millisecond)))
	return output.String(), nil
}

// RunJSONFormatter formats a run summary as JSON
type RunJSONFormatter struct{}

// Format renders the run summary as indented JSON
func (f *RunJSONFormatter) Format(result *model.RunResult) (string, error) {
	return marshal(result)
}

func marshal(v any) (string, error) {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(jsonBytes), nil
}

// GetAnswerFormatter returns the answer formatter for a format name
func GetAnswerFormatter(format string) (AnswerFormatter, error) {
	switch strings.ToLower(format) {
	case "text", "txt":
		return &TextFormatter{}, nil
	case "json":
		return &JSONFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// GetRunFormatter returns the run formatter for a format name
func GetRunFormatter(format string) (RunFormatter, error) {
	switch strings.ToLower(format) {
	case "text", "txt":
		return &RunTextFormatter{}, nil
	case "json":
		return &RunJSONFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}
