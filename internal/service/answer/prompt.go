package answer

import (
	"fmt"
	"strings"

	"github.com/Taichi-iskw/yt-rag/internal/model"
)

const contextHeader = "Here are the relevant transcript segments:\n\n"

const promptTemplate = `You are a helpful AI assistant. Use the following transcript segments to answer the question.
Only use information from the provided segments. If you cannot find the answer in the segments, say so.

%s

Question: %s

Answer: `

// FormatContext renders retrieved chunks as numbered, time-stamped segments
func FormatContext(chunks []model.RetrievedChunk) string {
	var b strings.Builder
	b.WriteString(contextHeader)
	for i, chunk := range chunks {
		fmt.Fprintf(&b, "Segment %d [%s --> %s]:\n%s\n\n", i+1, chunk.StartTime, chunk.EndTime, chunk.Text)
	}
	return b.String()
}

// BuildPrompt places the retrieved context and the question into the instruction template
func BuildPrompt(query string, chunks []model.RetrievedChunk) string {
	return fmt.Sprintf(promptTemplate, FormatContext(chunks), query)
}
