package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Taichi-iskw/yt-rag/internal/errors"
	"github.com/Taichi-iskw/yt-rag/internal/model"
	"github.com/Taichi-iskw/yt-rag/internal/retry"
)

const (
	defaultYouTubeBaseURL = "https://www.youtube.com"
	androidClientVersion  = "20.10.38"
	androidUserAgent      = "com.google.android.youtube/" + androidClientVersion + " (Linux; U; Android 11) gzip"
	browserUserAgent      = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

	playerResponseMarker = "ytInitialPlayerResponse = "
	maxWatchPageBytes    = 6 * 1024 * 1024
	maxTimedTextBytes    = 4 * 1024 * 1024
)

// errNoCaptions marks a video that has no usable caption track
var errNoCaptions = fmt.Errorf("no captions available")

// InnertubeProvider fetches captions straight from YouTube:
// watch page ytInitialPlayerResponse first, Android Innertube /player as fallback.
type InnertubeProvider struct {
	client  *http.Client
	baseURL string
	retry   retry.Config
	logger  *slog.Logger
}

// InnertubeOption configures an InnertubeProvider
type InnertubeOption func(*InnertubeProvider)

// WithHTTPClient sets the HTTP client
func WithHTTPClient(client *http.Client) InnertubeOption {
	return func(p *InnertubeProvider) {
		p.client = client
	}
}

// WithBaseURL overrides https://www.youtube.com (used by tests)
func WithBaseURL(baseURL string) InnertubeOption {
	return func(p *InnertubeProvider) {
		p.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithRetry sets the retry policy for every request
func WithRetry(rc retry.Config) InnertubeOption {
	return func(p *InnertubeProvider) {
		p.retry = rc
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) InnertubeOption {
	return func(p *InnertubeProvider) {
		p.logger = logger
	}
}

// NewInnertubeProvider creates a new InnertubeProvider
func NewInnertubeProvider(opts ...InnertubeOption) *InnertubeProvider {
	p := &InnertubeProvider{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: defaultYouTubeBaseURL,
		retry:   retry.DefaultConfig,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ Provider = (*InnertubeProvider)(nil)

// Name returns the provider name
func (p *InnertubeProvider) Name() string {
	return "innertube"
}

// Fetch returns caption entries in the best available language
func (p *InnertubeProvider) Fetch(ctx context.Context, videoID string, languages []string) ([]model.CaptionEntry, error) {
	tracks, err := p.tracksFromWatchPage(ctx, videoID)
	if err != nil {
		p.logger.Warn("watch page scrape failed, trying innertube player",
			slog.String("video_id", videoID), slog.Any("error", err))
		tracks, err = p.tracksFromPlayer(ctx, videoID)
	}
	if err != nil {
		if err == errNoCaptions {
			return nil, errors.Newf(errors.CodeNotFound, "no transcript available for video %s", videoID)
		}
		return nil, errors.Wrap(err, errors.CodeProvider, "failed to list caption tracks")
	}

	track, ok := pickTrack(tracks, languages)
	if !ok {
		return nil, errors.Newf(errors.CodeNotFound, "no transcript in languages %v for video %s", languages, videoID)
	}

	entries, err := p.fetchTimedText(ctx, track.BaseURL)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeProvider, "failed to fetch timed text")
	}
	if len(entries) == 0 {
		return nil, errors.Newf(errors.CodeNotFound, "transcript for video %s is empty", videoID)
	}
	return entries, nil
}

// playerResponse is the subset of the Innertube player response we need
type playerResponse struct {
	Captions *struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
}

func (r *playerResponse) tracks() ([]captionTrack, error) {
	if r.Captions == nil || len(r.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks) == 0 {
		if r.PlayabilityStatus != nil && r.PlayabilityStatus.Status != "" && r.PlayabilityStatus.Status != "OK" {
			return nil, fmt.Errorf("video unplayable: %s %s", r.PlayabilityStatus.Status, r.PlayabilityStatus.Reason)
		}
		return nil, errNoCaptions
	}
	return r.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks, nil
}

// tracksFromWatchPage scrapes ytInitialPlayerResponse from the watch page HTML
func (p *InnertubeProvider) tracksFromWatchPage(ctx context.Context, videoID string) ([]captionTrack, error) {
	watchURL := p.baseURL + "/watch?v=" + videoID

	body, err := p.get(ctx, watchURL, browserUserAgent, maxWatchPageBytes)
	if err != nil {
		return nil, fmt.Errorf("watch page: %w", err)
	}

	idx := bytes.Index(body, []byte(playerResponseMarker))
	if idx < 0 {
		return nil, fmt.Errorf("ytInitialPlayerResponse not found in watch page")
	}
	jsonData := extractJSON(body[idx+len(playerResponseMarker):])
	if jsonData == nil {
		return nil, fmt.Errorf("failed to extract ytInitialPlayerResponse JSON")
	}

	var resp playerResponse
	if err := json.Unmarshal(jsonData, &resp); err != nil {
		return nil, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	return resp.tracks()
}

// tracksFromPlayer asks the Android Innertube /player endpoint for caption tracks
func (p *InnertubeProvider) tracksFromPlayer(ctx context.Context, videoID string) ([]captionTrack, error) {
	reqBody, err := json.Marshal(map[string]any{
		"videoId": videoID,
		"context": map[string]any{
			"client": map[string]any{
				"clientName":        "ANDROID",
				"clientVersion":     androidClientVersion,
				"androidSdkVersion": 30,
				"hl":                "en",
				"gl":                "US",
			},
		},
		"racyCheckOk":    true,
		"contentCheckOk": true,
	})
	if err != nil {
		return nil, err
	}

	resp, err := retry.DoHTTP(ctx, p.retry, func(ctx context.Context) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/youtubei/v1/player?prettyPrint=false", bytes.NewReader(reqBody))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", androidUserAgent)
		req.Header.Set("X-Youtube-Client-Name", "3")
		req.Header.Set("X-Youtube-Client-Version", androidClientVersion)
		return p.client.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("innertube player: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("innertube player: status %d", resp.StatusCode)
	}

	var player playerResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxWatchPageBytes)).Decode(&player); err != nil {
		return nil, fmt.Errorf("decode player: %w", err)
	}
	return player.tracks()
}

// timedText covers both the legacy <transcript><text start dur> and srv3 <timedtext><body><p t d> formats
type timedText struct {
	Texts []struct {
		Start string `xml:"start,attr"`
		Dur   string `xml:"dur,attr"`
		Body  string `xml:",chardata"`
	} `xml:"text"`
	Paragraphs []struct {
		T     string `xml:"t,attr"`
		D     string `xml:"d,attr"`
		Inner string `xml:",innerxml"`
	} `xml:"body>p"`
}

var xmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// fetchTimedText downloads and parses a caption track
func (p *InnertubeProvider) fetchTimedText(ctx context.Context, trackURL string) ([]model.CaptionEntry, error) {
	body, err := p.get(ctx, trackURL, browserUserAgent, maxTimedTextBytes)
	if err != nil {
		return nil, err
	}
	return parseTimedText(body)
}

// parseTimedText converts timed text XML into caption entries
func parseTimedText(body []byte) ([]model.CaptionEntry, error) {
	var tt timedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return nil, fmt.Errorf("parse timedtext XML: %w", err)
	}

	entries := make([]model.CaptionEntry, 0, len(tt.Texts)+len(tt.Paragraphs))
	for _, line := range tt.Texts {
		text := cleanCaptionText(line.Body)
		if text == "" {
			continue
		}
		start, _ := strconv.ParseFloat(line.Start, 64)
		dur, _ := strconv.ParseFloat(line.Dur, 64)
		entries = append(entries, model.CaptionEntry{Text: text, Start: start, Duration: dur})
	}
	for _, para := range tt.Paragraphs {
		text := cleanCaptionText(xmlTagPattern.ReplaceAllString(para.Inner, ""))
		if text == "" {
			continue
		}
		startMs, _ := strconv.ParseFloat(para.T, 64)
		durMs, _ := strconv.ParseFloat(para.D, 64)
		entries = append(entries, model.CaptionEntry{Text: text, Start: startMs / 1000, Duration: durMs / 1000})
	}
	return entries, nil
}

// get performs a GET with retry and returns at most limit bytes of a 200 response
func (p *InnertubeProvider) get(ctx context.Context, url, userAgent string, limit int64) ([]byte, error) {
	resp, err := retry.DoHTTP(ctx, p.retry, func(ctx context.Context) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		return p.client.Do(req)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, limit))
}

// extractJSON extracts a complete JSON object starting at b[0] == '{' by tracking brace depth
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr := false
	escaped := false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}
