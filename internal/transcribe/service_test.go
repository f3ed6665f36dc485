package transcribe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingora/backend/internal/ai"
	"github.com/lingora/backend/internal/config"
)

// countingDriver records every transcription request.
type countingDriver struct {
	result   ai.Result
	err      error
	requests []ai.TranscribeRequest
}

func (d *countingDriver) Name() string { return "counting" }

func (d *countingDriver) Chat(ctx context.Context, req ai.ChatRequest) (ai.Result, error) {
	return ai.Result{}, ai.ErrUnsupported
}

func (d *countingDriver) Transcribe(ctx context.Context, req ai.TranscribeRequest) (ai.Result, error) {
	d.requests = append(d.requests, req)
	if d.err != nil {
		return ai.Result{}, d.err
	}
	return d.result, nil
}

type staticResolver struct {
	driver   ai.Driver
	settings config.DriverConfig
}

func (r *staticResolver) Driver(name string) (ai.Driver, error) {
	return r.driver, nil
}

func (r *staticResolver) Settings(name string) (config.DriverConfig, error) {
	return r.settings, nil
}

// fakeStore records staged objects and their lifecycle.
type fakeStore struct {
	uploads   []string
	deletes   []string
	uploadErr error
	deleteErr error
}

func (s *fakeStore) Upload(ctx context.Context, bucket, path string, r io.Reader, contentType string) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	s.uploads = append(s.uploads, path)
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, bucket, path string) error {
	s.deletes = append(s.deletes, path)
	return s.deleteErr
}

func (s *fakeStore) PublicURL(bucket, path string) string {
	return "https://cdn.example.com/" + bucket + "/" + path
}

// noNetwork fails every request so preflight probes never leave the
// test process.
type noNetwork struct{}

func (noNetwork) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, fmt.Errorf("network disabled in tests")
}

func newStubbedService(resolver ai.Resolver, store *fakeStore) *Service {
	svc := NewService(resolver, "counting", store, "audio")
	svc.probe = &http.Client{Transport: noNetwork{}}
	return svc
}

func sttResult(text string) ai.Result {
	return ai.Result{
		Success: true,
		Status:  200,
		Data:    &ai.Payload{Text: text, Language: "en", Confidence: 0.92, Duration: 3.1},
	}
}

func TestWordCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"hello world", 2},
		{"  hello,   world!  ", 2},
		{"don't stop", 3},
		{"سلام دنیا", 2},
		{"mixed سلام text42", 3},
		{"... !!! ---", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, WordCount(tt.in), "input %q", tt.in)
	}
}

func TestTranscribeURL_RejectsLoopback(t *testing.T) {
	driver := &countingDriver{result: sttResult("hi")}
	svc := newStubbedService(&staticResolver{driver: driver}, &fakeStore{})

	for _, raw := range []string{
		"http://127.0.0.1/a.wav",
		"http://localhost:8080/a.wav",
		"https://LOCALHOST/clip.mp3",
	} {
		_, err := svc.TranscribeURL(context.Background(), raw)
		assert.ErrorIs(t, err, ErrUnreachableURL, "url %s", raw)
	}

	// The rejection happens before any vendor call.
	assert.Empty(t, driver.requests)
}

func TestTranscribeURL_Normalizes(t *testing.T) {
	driver := &countingDriver{result: sttResult("hello brave new world")}
	svc := newStubbedService(&staticResolver{driver: driver}, &fakeStore{})

	res, err := svc.TranscribeURL(context.Background(), "https://cdn.example.com/a.wav")
	require.NoError(t, err)

	assert.Equal(t, "hello brave new world", res.Text)
	assert.Equal(t, "en", res.Language)
	assert.InDelta(t, 0.92, res.Confidence, 1e-9)
	assert.Equal(t, 4, res.WordCount)
	assert.Equal(t, "counting", res.Provider)
	assert.False(t, res.ProcessedAt.IsZero())

	require.Len(t, driver.requests, 1)
	assert.Equal(t, "https://cdn.example.com/a.wav", driver.requests[0].URL)
}

func TestTranscribeURL_VendorFailure(t *testing.T) {
	driver := &countingDriver{result: ai.Result{Success: false, Status: 503, Error: "overloaded"}}
	svc := newStubbedService(&staticResolver{driver: driver}, &fakeStore{})

	_, err := svc.TranscribeURL(context.Background(), "https://cdn.example.com/a.wav")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
	assert.Contains(t, err.Error(), "overloaded")
}

func TestTranscribeFile_UnsupportedFormat(t *testing.T) {
	driver := &countingDriver{result: sttResult("hi")}
	svc := newStubbedService(&staticResolver{driver: driver}, &fakeStore{})

	for _, name := range []string{"doc.pdf", "clip.aiff", "noext"} {
		_, err := svc.TranscribeFile(context.Background(), []byte("data"), name)
		assert.ErrorIs(t, err, ErrUnsupportedFormat, "file %s", name)
	}
	assert.Empty(t, driver.requests)
}

func TestTranscribeFile_StagedForURLDriver(t *testing.T) {
	driver := &countingDriver{result: sttResult("one two three")}
	store := &fakeStore{}
	svc := NewService(&staticResolver{
		driver:   driver,
		settings: config.DriverConfig{WantsURL: true},
	}, "counting", store, "audio")

	res, err := svc.TranscribeFile(context.Background(), []byte("audio-bytes"), "clip.mp3")
	require.NoError(t, err)
	assert.Equal(t, 3, res.WordCount)

	// Staged under the temp prefix, handed to the driver as a public
	// URL, then removed.
	require.Len(t, store.uploads, 1)
	assert.True(t, strings.HasPrefix(store.uploads[0], "temp/audio/temp_audio_"))
	assert.True(t, strings.HasSuffix(store.uploads[0], ".mp3"))

	require.Len(t, driver.requests, 1)
	assert.Equal(t, "https://cdn.example.com/audio/"+store.uploads[0], driver.requests[0].URL)
	assert.Empty(t, driver.requests[0].FilePath)

	assert.Equal(t, store.uploads, store.deletes)
}

func TestTranscribeFile_StagedCleanupOnFailure(t *testing.T) {
	driver := &countingDriver{err: fmt.Errorf("vendor exploded")}
	store := &fakeStore{}
	svc := NewService(&staticResolver{
		driver:   driver,
		settings: config.DriverConfig{WantsURL: true},
	}, "counting", store, "audio")

	_, err := svc.TranscribeFile(context.Background(), []byte("audio-bytes"), "clip.wav")
	require.Error(t, err)

	// The staged object is removed even when the driver call fails.
	require.Len(t, store.uploads, 1)
	assert.Equal(t, store.uploads, store.deletes)
}

func TestTranscribeFile_StagingFailure(t *testing.T) {
	driver := &countingDriver{result: sttResult("hi")}
	store := &fakeStore{uploadErr: fmt.Errorf("bucket gone")}
	svc := NewService(&staticResolver{
		driver:   driver,
		settings: config.DriverConfig{WantsURL: true},
	}, "counting", store, "audio")

	_, err := svc.TranscribeFile(context.Background(), []byte("audio-bytes"), "clip.wav")
	assert.ErrorContains(t, err, "stage audio")
	assert.Empty(t, driver.requests)
	assert.Empty(t, store.deletes)
}

func TestTranscribeFile_LocalTempForFileDriver(t *testing.T) {
	driver := &countingDriver{result: sttResult("local path")}
	svc := NewService(&staticResolver{
		driver:   driver,
		settings: config.DriverConfig{WantsURL: false},
	}, "counting", &fakeStore{}, "audio")

	res, err := svc.TranscribeFile(context.Background(), []byte("audio-bytes"), "clip.flac")
	require.NoError(t, err)
	assert.Equal(t, "local path", res.Text)

	require.Len(t, driver.requests, 1)
	path := driver.requests[0].FilePath
	require.NotEmpty(t, path)
	assert.True(t, strings.HasSuffix(path, ".flac"))

	// Temp file is gone after the call.
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestNormalize_DefaultsLanguage(t *testing.T) {
	driver := &countingDriver{result: ai.Result{
		Success: true, Status: 200,
		Data: &ai.Payload{Text: "hi there"},
	}}
	svc := newStubbedService(&staticResolver{driver: driver}, &fakeStore{})

	res, err := svc.TranscribeURL(context.Background(), "https://cdn.example.com/a.wav")
	require.NoError(t, err)
	assert.Equal(t, "auto", res.Language)
	assert.Equal(t, 2, res.WordCount)
}
