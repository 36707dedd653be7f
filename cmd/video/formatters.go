package video

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Taichi-iskw/yt-rag/internal/model"
)

// Formatter renders pipeline records
type Formatter interface {
	FormatRecord(rec *model.PipelineRecord) (string, error)
	FormatList(records []*model.PipelineRecord) (string, error)
}

// TextFormatter formats output as plain text
type TextFormatter struct{}

// FormatRecord renders one record as labelled lines
func (f *TextFormatter) FormatRecord(rec *model.PipelineRecord) (string, error) {
	var output strings.Builder

	output.WriteString(fmt.Sprintf("Video ID: %s\n", rec.VideoID))
	output.WriteString(fmt.Sprintf("Status: %s\n", rec.Status))
	output.WriteString(fmt.Sprintf("Run ID: %s\n", rec.RunID))
	output.WriteString(fmt.Sprintf("Directory: %s\n", rec.DataDir))
	if rec.Status == model.StatusReady {
		output.WriteString(fmt.Sprintf("Chunks: %d\n", rec.ChunkCount))
		output.WriteString(fmt.Sprintf("Embedding: %s (%d dimensions)\n", rec.EmbeddingModel, rec.Dimension))
	}
	if rec.ErrorMessage != nil {
		output.WriteString(fmt.Sprintf("Error: %s\n", *rec.ErrorMessage))
	}
	output.WriteString(fmt.Sprintf("Updated At: %s", rec.UpdatedAt.Format(time.RFC3339)))

	return output.String(), nil
}

// FormatList renders records as an aligned table
func (f *TextFormatter) FormatList(records []*model.PipelineRecord) (string, error) {
	var output strings.Builder
	w := tabwriter.NewWriter(&output, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VIDEO ID\tSTATUS\tCHUNKS\tMODEL\tUPDATED")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			rec.VideoID, rec.Status, rec.ChunkCount, truncateString(rec.EmbeddingModel, 24), rec.UpdatedAt.Format(time.RFC3339))
	}
	if err := w.Flush(); err != nil {
		return "", err
	}
	return strings.TrimRight(output.String(), "\n"), nil
}

// JSONFormatter formats output as JSON
type JSONFormatter struct{}

// FormatRecord renders one record as indented JSON
func (f *JSONFormatter) FormatRecord(rec *model.PipelineRecord) (string, error) {
	return marshal(rec)
}

// FormatList renders records as an indented JSON array
func (f *JSONFormatter) FormatList(records []*model.PipelineRecord) (string, error) {
	return marshal(records)
}

func marshal(v any) (string, error) {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(jsonBytes), nil
}

// truncateString truncates a string to the specified length
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// GetFormatter returns the appropriate formatter based on format string
func GetFormatter(format string) (Formatter, error) {
	switch strings.ToLower(format) {
	case "text", "txt":
		return &TextFormatter{}, nil
	case "json":
		return &JSONFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}
