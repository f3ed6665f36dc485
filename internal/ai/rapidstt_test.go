package ai

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingora/backend/internal/config"
)

func sttConfig(baseURL string) config.DriverConfig {
	return config.DriverConfig{
		BaseURL:  baseURL,
		Host:     "stt.example.test",
		APIKey:   "stt-key",
		Endpoint: "/transcribe",
		Timeout:  5 * time.Second,
		Retry:    config.RetryConfig{Times: 1, Sleep: time.Millisecond},
		WantsURL: true,
	}
}

func TestRapidSTT_TranscribeURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "stt-key", r.Header.Get("x-rapidapi-key"))
		assert.Equal(t, "stt.example.test", r.Header.Get("x-rapidapi-host"))

		q := r.URL.Query()
		assert.Equal(t, "https://cdn.example.com/a.wav", q.Get("url"))
		assert.Equal(t, "en", q.Get("lang"))
		assert.Equal(t, "transcribe", q.Get("task"))

		w.Write([]byte(`{"text":"hello world","language":"en","duration":2.5}`))
	}))
	defer srv.Close()

	d := newRapidSTTDriver(sttConfig(srv.URL), srv.Client())

	res, err := d.Transcribe(context.Background(), TranscribeRequest{URL: "https://cdn.example.com/a.wav"})
	require.NoError(t, err)

	assert.True(t, res.Success)
	require.NotNil(t, res.Data)
	assert.Equal(t, "hello world", res.Data.Text)
	assert.Equal(t, "en", res.Data.Language)
	assert.InDelta(t, 2.5, res.Data.Duration, 1e-9)
}

func TestRapidSTT_TranscribeURL_LanguageAndTaskHints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "fa", q.Get("lang"))
		assert.Equal(t, "translate", q.Get("task"))
		w.Write([]byte(`{"text":"ok"}`))
	}))
	defer srv.Close()

	d := newRapidSTTDriver(sttConfig(srv.URL), srv.Client())

	res, err := d.Transcribe(context.Background(), TranscribeRequest{
		URL:      "https://cdn.example.com/a.wav",
		Language: "fa",
		Task:     "translate",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestRapidSTT_TranscribeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF-fake-audio"), 0o644))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()

		assert.Equal(t, "clip.wav", header.Filename)
		data, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, "RIFF-fake-audio", string(data))

		w.Write([]byte(`{"transcript":"from the file"}`))
	}))
	defer srv.Close()

	d := newRapidSTTDriver(sttConfig(srv.URL), srv.Client())

	res, err := d.Transcribe(context.Background(), TranscribeRequest{FilePath: path})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "from the file", res.Data.Text)
}

func TestRapidSTT_MissingInput(t *testing.T) {
	d := newRapidSTTDriver(sttConfig("http://unused"), http.DefaultClient)

	_, err := d.Transcribe(context.Background(), TranscribeRequest{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRapidSTT_ChatUnsupported(t *testing.T) {
	d := newRapidSTTDriver(sttConfig("http://unused"), http.DefaultClient)

	_, err := d.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestRapidSTT_UpstreamErrorPreserved(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"message":"quota exceeded"}`))
	}))
	defer srv.Close()

	d := newRapidSTTDriver(sttConfig(srv.URL), srv.Client())

	res, err := d.Transcribe(context.Background(), TranscribeRequest{URL: "https://cdn.example.com/a.wav"})
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, http.StatusPaymentRequired, res.Status)
	assert.Contains(t, res.Error, "quota exceeded")
}
