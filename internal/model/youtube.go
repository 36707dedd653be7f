package model

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/Taichi-iskw/yt-rag/internal/errors"
)

// videoIDPattern matches a YouTube video identifier
var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// CaptionEntry represents a single caption returned by a transcript provider
type CaptionEntry struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`    // Start time in seconds
	Duration float64 `json:"duration"` // Duration in seconds
}

// End returns the end time of the caption in seconds
func (c CaptionEntry) End() float64 {
	return c.Start + c.Duration
}

// ParseVideoID extracts a video ID from a bare ID or a YouTube URL
func ParseVideoID(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", errors.New(errors.CodeInvalidArg, "video ID is required")
	}
	if videoIDPattern.MatchString(input) {
		return input, nil
	}

	u, err := url.Parse(input)
	if err != nil || u.Host == "" {
		return "", errors.Newf(errors.CodeInvalidArg, "invalid video ID: %s", input)
	}

	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	host = strings.TrimPrefix(host, "m.")

	var candidate string
	switch host {
	case "youtu.be":
		candidate = strings.Trim(u.Path, "/")
	case "youtube.com", "music.youtube.com", "youtube-nocookie.com":
		if u.Path == "/watch" {
			candidate = u.Query().Get("v")
			break
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) == 2 && (parts[0] == "shorts" || parts[0] == "embed" || parts[0] == "live" || parts[0] == "v") {
			candidate = parts[1]
		}
	}

	if !videoIDPattern.MatchString(candidate) {
		return "", errors.Newf(errors.CodeInvalidArg, "invalid video ID: %s", input)
	}
	return candidate, nil
}

// WatchURL returns the watch page URL for a video ID
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
