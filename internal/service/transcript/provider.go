package transcript

import (
	"context"
	"html"
	"strings"

	"github.com/Taichi-iskw/yt-rag/internal/model"
)

// Provider fetches caption entries for a video from an external source
type Provider interface {
	Name() string
	Fetch(ctx context.Context, videoID string, languages []string) ([]model.CaptionEntry, error)
}

// captionTrack is a caption track advertised by YouTube
type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" = auto-generated
}

// needsPoToken reports whether a caption track URL requires a PoToken (browser-only)
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

// pickTrack selects the best usable caption track for the given language preferences:
// a manual track in a preferred language, then an auto-generated one, then any English track.
func pickTrack(tracks []captionTrack, languages []string) (captionTrack, bool) {
	usable := make([]captionTrack, 0, len(tracks))
	for _, t := range tracks {
		if !needsPoToken(t.BaseURL) {
			usable = append(usable, t)
		}
	}
	if len(usable) == 0 {
		return captionTrack{}, false
	}

	for _, lang := range languages {
		for _, t := range usable {
			if t.LanguageCode == lang && t.Kind != "asr" {
				return t, true
			}
		}
	}
	for _, lang := range languages {
		for _, t := range usable {
			if t.LanguageCode == lang {
				return t, true
			}
		}
	}
	for _, t := range usable {
		if strings.HasPrefix(t.LanguageCode, "en") {
			return t, true
		}
	}
	return captionTrack{}, false
}

// cleanCaptionText unescapes entities and collapses whitespace
func cleanCaptionText(text string) string {
	text = html.UnescapeString(html.UnescapeString(text))
	return strings.Join(strings.Fields(text), " ")
}
