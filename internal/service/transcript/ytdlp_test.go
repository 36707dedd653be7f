package transcript

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Taichi-iskw/yt-rag/internal/errors"
)

const json3Body = `{"events":[
{"tStartMs":0,"dDurationMs":4000,"id":1,"wpWinPosId":1},
{"tStartMs":500,"dDurationMs":2000,"segs":[{"utf8":"All right,"},{"utf8":" so here"}]},
{"tStartMs":2500,"dDurationMs":1500,"segs":[{"utf8":"\n"}]},
{"tStartMs":4000,"dDurationMs":2500,"segs":[{"utf8":"we are"}]}
]}`

func TestYtDlpProvider_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "manual", r.URL.Query().Get("src"))
		fmt.Fprint(w, json3Body)
	}))
	defer srv.Close()

	info := fmt.Sprintf(`{"id":"15_pppse4fY",
"subtitles":{"en":[{"ext":"vtt","url":"%[1]s/vtt"},{"ext":"json3","url":"%[1]s/json3?src=manual"}]},
"automatic_captions":{"en":[{"ext":"json3","url":"%[1]s/json3?src=auto"}]}}`, srv.URL)

	runner := &mockCmdRunner{}
	runner.On("Run", mock.Anything, "yt-dlp", mock.MatchedBy(func(args []string) bool {
		return len(args) > 0 && args[len(args)-1] == "https://www.youtube.com/watch?v=15_pppse4fY"
	})).Return([]byte(info), nil)

	p := NewYtDlpProviderWithCmdRunner(runner, srv.Client(), testRetry)
	entries, err := p.Fetch(context.Background(), "15_pppse4fY", []string{"en"})
	require.NoError(t, err)

	require.Len(t, entries, 2)
	assert.Equal(t, "All right, so here", entries[0].Text)
	assert.InDelta(t, 0.5, entries[0].Start, 1e-9)
	assert.InDelta(t, 2.0, entries[0].Duration, 1e-9)
	assert.Equal(t, "we are", entries[1].Text)
	runner.AssertExpectations(t)
}

func TestYtDlpProvider_Errors(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(m *mockCmdRunner)
		wantCode string
	}{
		{
			name: "yt-dlp fails",
			setup: func(m *mockCmdRunner) {
				m.On("Run", mock.Anything, "yt-dlp", mock.Anything).Return(nil, fmt.Errorf("exit status 1"))
			},
			wantCode: errors.CodeProvider,
		},
		{
			name: "invalid json",
			setup: func(m *mockCmdRunner) {
				m.On("Run", mock.Anything, "yt-dlp", mock.Anything).Return([]byte("not json"), nil)
			},
			wantCode: errors.CodeProvider,
		},
		{
			name: "no json3 track in language",
			setup: func(m *mockCmdRunner) {
				m.On("Run", mock.Anything, "yt-dlp", mock.Anything).
					Return([]byte(`{"id":"x","subtitles":{"de":[{"ext":"json3","url":"http://x"}]}}`), nil)
			},
			wantCode: errors.CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &mockCmdRunner{}
			tt.setup(runner)

			p := NewYtDlpProviderWithCmdRunner(runner, http.DefaultClient, testRetry)
			_, err := p.Fetch(context.Background(), "15_pppse4fY", []string{"en"})
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, errors.CodeOf(err))
		})
	}
}

func TestPickJSON3Track(t *testing.T) {
	info := ytDlpVideoInfo{
		Subtitles:         map[string][]ytDlpSubtitle{"ja": {{Ext: "json3", URL: "manual-ja"}}},
		AutomaticCaptions: map[string][]ytDlpSubtitle{"en": {{Ext: "json3", URL: "auto-en"}}},
	}

	url, ok := pickJSON3Track(info, []string{"en", "ja"})
	require.True(t, ok)
	assert.Equal(t, "manual-ja", url, "manual subtitles win over automatic captions")

	url, ok = pickJSON3Track(info, []string{"en"})
	require.True(t, ok)
	assert.Equal(t, "auto-en", url)

	_, ok = pickJSON3Track(info, []string{"fr"})
	assert.False(t, ok)
}
