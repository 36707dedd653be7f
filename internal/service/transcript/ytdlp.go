package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Taichi-iskw/yt-rag/internal/errors"
	"github.com/Taichi-iskw/yt-rag/internal/model"
	"github.com/Taichi-iskw/yt-rag/internal/retry"
	"github.com/Taichi-iskw/yt-rag/internal/service/common"
)

// YtDlpProvider resolves caption tracks with yt-dlp and downloads them in json3 format
type YtDlpProvider struct {
	cmdRunner common.CmdRunner
	client    *http.Client
	retry     retry.Config
}

// NewYtDlpProvider creates a new YtDlpProvider
func NewYtDlpProvider(rc retry.Config) *YtDlpProvider {
	return NewYtDlpProviderWithCmdRunner(common.NewCmdRunner(), &http.Client{Timeout: 30 * time.Second}, rc)
}

// NewYtDlpProviderWithCmdRunner creates a new YtDlpProvider with custom CmdRunner (for testing)
func NewYtDlpProviderWithCmdRunner(cmdRunner common.CmdRunner, client *http.Client, rc retry.Config) *YtDlpProvider {
	return &YtDlpProvider{
		cmdRunner: cmdRunner,
		client:    client,
		retry:     rc,
	}
}

var _ Provider = (*YtDlpProvider)(nil)

// Name returns the provider name
func (p *YtDlpProvider) Name() string {
	return "ytdlp"
}

// ytDlpSubtitle is one subtitle format entry in yt-dlp JSON output
type ytDlpSubtitle struct {
	Ext string `json:"ext"`
	URL string `json:"url"`
}

// ytDlpVideoInfo represents the yt-dlp JSON fields used for captions
type ytDlpVideoInfo struct {
	ID                string                     `json:"id"`
	Subtitles         map[string][]ytDlpSubtitle `json:"subtitles"`
	AutomaticCaptions map[string][]ytDlpSubtitle `json:"automatic_captions"`
}

// json3Transcript is YouTube's json3 caption format
type json3Transcript struct {
	Events []struct {
		TStartMs    float64 `json:"tStartMs"`
		DDurationMs float64 `json:"dDurationMs"`
		Segs        []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

// Fetch returns caption entries in the best available language
func (p *YtDlpProvider) Fetch(ctx context.Context, videoID string, languages []string) ([]model.CaptionEntry, error) {
	output, err := p.cmdRunner.Run(ctx, "yt-dlp", "--dump-json", "--skip-download", "--no-warnings", model.WatchURL(videoID))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeProvider, "failed to fetch video info with yt-dlp")
	}

	var info ytDlpVideoInfo
	if err := json.Unmarshal(output, &info); err != nil {
		return nil, errors.Wrap(err, errors.CodeProvider, "failed to parse yt-dlp output")
	}

	trackURL, ok := pickJSON3Track(info, languages)
	if !ok {
		return nil, errors.Newf(errors.CodeNotFound, "no transcript in languages %v for video %s", languages, videoID)
	}

	body, err := p.download(ctx, trackURL)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeProvider, "failed to download json3 captions")
	}

	entries, err := parseJSON3(body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeProvider, "failed to parse json3 captions")
	}
	if len(entries) == 0 {
		return nil, errors.Newf(errors.CodeNotFound, "transcript for video %s is empty", videoID)
	}
	return entries, nil
}

// pickJSON3Track prefers manual subtitles over automatic captions, in language order
func pickJSON3Track(info ytDlpVideoInfo, languages []string) (string, bool) {
	for _, tracks := range []map[string][]ytDlpSubtitle{info.Subtitles, info.AutomaticCaptions} {
		for _, lang := range languages {
			for _, sub := range tracks[lang] {
				if sub.Ext == "json3" && sub.URL != "" {
					return sub.URL, true
				}
			}
		}
	}
	return "", false
}

// parseJSON3 converts json3 events into caption entries, skipping window and blank events
func parseJSON3(body []byte) ([]model.CaptionEntry, error) {
	var transcript json3Transcript
	if err := json.Unmarshal(body, &transcript); err != nil {
		return nil, err
	}

	entries := make([]model.CaptionEntry, 0, len(transcript.Events))
	for _, event := range transcript.Events {
		if len(event.Segs) == 0 {
			continue
		}
		var sb strings.Builder
		for _, seg := range event.Segs {
			sb.WriteString(seg.UTF8)
		}
		text := cleanCaptionText(sb.String())
		if text == "" {
			continue
		}
		entries = append(entries, model.CaptionEntry{
			Text:     text,
			Start:    event.TStartMs / 1000,
			Duration: event.DDurationMs / 1000,
		})
	}
	return entries, nil
}

func (p *YtDlpProvider) download(ctx context.Context, url string) ([]byte, error) {
	resp, err := retry.DoHTTP(ctx, p.retry, func(ctx context.Context) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		return p.client.Do(req)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxTimedTextBytes))
}
