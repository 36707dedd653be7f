package chunker

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/Taichi-iskw/yt-rag/internal/errors"
	"github.com/Taichi-iskw/yt-rag/internal/model"
)

// ParseIssue describes a cue block that could not be parsed
type ParseIssue struct {
	Line   int    `json:"line"`  // 1-based line where the block starts
	Lines  int    `json:"lines"` // number of lines in the block
	Reason string `json:"reason"`
}

// ParseResult holds the segments of a subtitle file and the blocks that were skipped
type ParseResult struct {
	Segments []model.Segment
	Skipped  []ParseIssue
}

// SkippedLines returns the total number of lines in skipped blocks
func (r *ParseResult) SkippedLines() int {
	total := 0
	for _, issue := range r.Skipped {
		total += issue.Lines
	}
	return total
}

// block is a run of non-blank lines
type block struct {
	line  int
	lines []string
}

// ParseVTT parses WebVTT (or SRT-like) cues: an optional index line, a
// "start --> end" timestamp line and one or more text lines.
// In strict mode the first malformed block fails with PARSE_ERROR; otherwise it is recorded in Skipped.
func ParseVTT(r io.Reader, strict bool) (*ParseResult, error) {
	blocks, err := readBlocks(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to read subtitle file")
	}

	result := &ParseResult{}
	for i, b := range blocks {
		if i == 0 && strings.HasPrefix(b.lines[0], "WEBVTT") {
			continue
		}
		if isMetadataBlock(b.lines[0]) {
			continue
		}

		segment, reason := parseCue(b.lines)
		if reason != "" {
			if strict {
				return nil, errors.Newf(errors.CodeParse, "line %d: %s", b.line, reason)
			}
			result.Skipped = append(result.Skipped, ParseIssue{Line: b.line, Lines: len(b.lines), Reason: reason})
			continue
		}
		result.Segments = append(result.Segments, segment)
	}

	return result, nil
}

// readBlocks splits the input into blank-line separated blocks
func readBlocks(r io.Reader) ([]block, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var blocks []block
	var current *block
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}

		if strings.TrimSpace(line) == "" {
			current = nil
			continue
		}
		if current == nil {
			blocks = append(blocks, block{line: lineNo})
			current = &blocks[len(blocks)-1]
		}
		current.lines = append(current.lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return blocks, nil
}

func isMetadataBlock(first string) bool {
	return first == "NOTE" || strings.HasPrefix(first, "NOTE ") ||
		first == "STYLE" || first == "REGION"
}

// parseCue returns the cue's segment, or a reason it is malformed
func parseCue(lines []string) (model.Segment, string) {
	tsIdx := -1
	switch {
	case strings.Contains(lines[0], "-->"):
		tsIdx = 0
	case len(lines) > 1 && strings.Contains(lines[1], "-->"):
		tsIdx = 1
	default:
		return model.Segment{}, "missing timestamp line"
	}

	start, end, err := parseTimestampLine(lines[tsIdx])
	if err != nil {
		return model.Segment{}, err.Error()
	}

	textLines := lines[tsIdx+1:]
	if len(textLines) == 0 {
		return model.Segment{}, "missing text line"
	}
	text := strings.Join(strings.Fields(strings.Join(textLines, " ")), " ")

	return model.Segment{
		Text:  text,
		Start: model.FormatTimestamp(start),
		End:   model.FormatTimestamp(end),
	}, ""
}

// parseTimestampLine parses "HH:MM:SS.mmm --> HH:MM:SS.mmm [cue settings]"
func parseTimestampLine(line string) (float64, float64, error) {
	left, right, found := strings.Cut(line, "-->")
	if !found {
		return 0, 0, fmt.Errorf("missing timestamp separator")
	}
	fields := strings.Fields(right)
	if len(fields) == 0 {
		return 0, 0, fmt.Errorf("missing end timestamp")
	}

	start, err := model.ParseTimestamp(left)
	if err != nil {
		return 0, 0, err
	}
	end, err := model.ParseTimestamp(fields[0])
	if err != nil {
		return 0, 0, err
	}
	if end < start {
		return 0, 0, fmt.Errorf("end timestamp before start")
	}
	return start, end, nil
}
