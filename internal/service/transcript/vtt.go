package transcript

import (
	"bufio"
	"fmt"
	"io"

	"github.com/Taichi-iskw/yt-rag/internal/model"
)

// WriteVTT writes caption entries as WebVTT with sequential numeric cue indices
func WriteVTT(w io.Writer, entries []model.CaptionEntry) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("WEBVTT\n\n"); err != nil {
		return err
	}
	for i, entry := range entries {
		if _, err := fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n\n",
			i+1,
			model.FormatTimestamp(entry.Start),
			model.FormatTimestamp(entry.End()),
			entry.Text,
		); err != nil {
			return err
		}
	}
	return bw.Flush()
}
