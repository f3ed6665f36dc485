package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lingora/backend/internal/ai"
	"github.com/lingora/backend/internal/storage"
)

var (
	// ErrUnreachableURL rejects loopback targets before any driver
	// call. Safety policy, not a vendor requirement.
	ErrUnreachableURL = errors.New("transcribe: audio URL must be publicly reachable (not localhost/127.0.0.1)")

	// ErrUnsupportedFormat rejects audio formats no vendor accepts.
	ErrUnsupportedFormat = errors.New("transcribe: unsupported audio format")
)

var supportedExtensions = map[string]bool{
	".wav": true, ".mp3": true, ".m4a": true,
	".ogg": true, ".webm": true, ".flac": true,
}

var wordRuns = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Result is the normalized transcription envelope. WordCount is
// computed locally; vendor word counts are not trusted.
type Result struct {
	Text        string    `json:"text"`
	Language    string    `json:"language"`
	Confidence  float64   `json:"confidence"`
	Duration    float64   `json:"duration,omitempty"`
	WordCount   int       `json:"word_count"`
	Provider    string    `json:"provider"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Service orchestrates speech-to-text: input validation, staging file
// input for URL-only vendors, the driver call and normalization.
type Service struct {
	resolver   ai.Resolver
	driverName string
	store      storage.ObjectStore
	bucket     string
	probe      *http.Client
	now        func() time.Time
}

func NewService(resolver ai.Resolver, driverName string, store storage.ObjectStore, bucket string) *Service {
	return &Service{
		resolver:   resolver,
		driverName: driverName,
		store:      store,
		bucket:     bucket,
		probe:      &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
	}
}

// TranscribeURL transcribes audio the vendor fetches itself.
func (s *Service) TranscribeURL(ctx context.Context, audioURL string) (*Result, error) {
	if isLoopbackURL(audioURL) {
		return nil, ErrUnreachableURL
	}

	// Cheap existence probe; unreliable, so failure is logged and the
	// real call is attempted regardless.
	s.preflight(ctx, audioURL)

	driver, err := s.resolver.Driver(s.driverName)
	if err != nil {
		return nil, err
	}

	res, err := driver.Transcribe(ctx, ai.TranscribeRequest{URL: audioURL})
	if err != nil {
		return nil, err
	}
	return s.normalize(res, driver.Name())
}

// TranscribeFile transcribes uploaded audio bytes. When the driver
// wants a fetchable URL the bytes are staged at a public location and
// removed afterward on every exit path; drivers that take raw files
// get a local temp file instead.
func (s *Service) TranscribeFile(ctx context.Context, data []byte, filename string) (*Result, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !supportedExtensions[ext] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	settings, err := s.resolver.Settings(s.driverName)
	if err != nil {
		return nil, err
	}
	driver, err := s.resolver.Driver(s.driverName)
	if err != nil {
		return nil, err
	}

	if settings.WantsURL {
		return s.transcribeStaged(ctx, driver, data, ext)
	}
	return s.transcribeLocal(ctx, driver, data, ext)
}

func stagedName(ext string) string {
	u := uuid.New()
	return fmt.Sprintf("temp_audio_%d_%x%s", time.Now().Unix(), u[:4], ext)
}

func (s *Service) transcribeStaged(ctx context.Context, driver ai.Driver, data []byte, ext string) (*Result, error) {
	path := "temp/audio/" + stagedName(ext)

	if err := s.store.Upload(ctx, s.bucket, path, bytes.NewReader(data), "application/octet-stream"); err != nil {
		return nil, fmt.Errorf("stage audio: %w", err)
	}
	defer func() {
		// Cleanup must survive request cancellation.
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.store.Delete(cleanupCtx, s.bucket, path); err != nil {
			slog.Warn("staged audio cleanup failed", "path", path, "error", err)
		}
	}()

	publicURL := s.store.PublicURL(s.bucket, path)
	slog.Info("staged audio for transcription", "url", publicURL)

	res, err := driver.Transcribe(ctx, ai.TranscribeRequest{URL: publicURL})
	if err != nil {
		return nil, err
	}
	return s.normalize(res, driver.Name())
}

func (s *Service) transcribeLocal(ctx context.Context, driver ai.Driver, data []byte, ext string) (*Result, error) {
	f, err := os.CreateTemp("", "audio-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("create temp audio file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return nil, fmt.Errorf("write temp audio file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close temp audio file: %w", err)
	}

	res, err := driver.Transcribe(ctx, ai.TranscribeRequest{FilePath: path})
	if err != nil {
		return nil, err
	}
	return s.normalize(res, driver.Name())
}

func (s *Service) preflight(ctx context.Context, audioURL string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, audioURL, nil)
	if err != nil {
		slog.Warn("transcribe preflight failed", "url", audioURL, "error", err)
		return
	}
	resp, err := s.probe.Do(req)
	if err != nil {
		slog.Warn("transcribe preflight failed", "url", audioURL, "error", err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		slog.Warn("transcribe preflight returned error status", "url", audioURL, "status", resp.StatusCode)
		return
	}
	slog.Info("transcribe preflight ok",
		"url", audioURL,
		"content_type", resp.Header.Get("Content-Type"),
		"content_length", resp.Header.Get("Content-Length"),
	)
}

func (s *Service) normalize(res ai.Result, provider string) (*Result, error) {
	if !res.Success {
		return nil, fmt.Errorf("transcription failed (status %d): %s", res.Status, res.Error)
	}

	text := ""
	lang := "auto"
	confidence := 0.0
	duration := 0.0
	if res.Data != nil {
		text = res.Data.Text
		if res.Data.Language != "" {
			lang = res.Data.Language
		}
		confidence = res.Data.Confidence
		duration = res.Data.Duration
	}

	return &Result{
		Text:        text,
		Language:    lang,
		Confidence:  confidence,
		Duration:    duration,
		WordCount:   WordCount(text),
		Provider:    provider,
		ProcessedAt: s.now().UTC(),
	}, nil
}

// WordCount counts Unicode letter/number runs.
func WordCount(s string) int {
	return len(wordRuns.FindAllString(s, -1))
}

func isLoopbackURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == "localhost" || host == "127.0.0.1"
}
