package ai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/lingora/backend/internal/config"
)

// rapidSTTDriver talks to a speech-to-text vendor hosted on RapidAPI.
// A public URL is passed straight through as a query parameter; a local
// file goes up as a multipart upload.
type rapidSTTDriver struct {
	cfg    config.DriverConfig
	caller *httpCaller
}

func newRapidSTTDriver(cfg config.DriverConfig, client *http.Client) Driver {
	return &rapidSTTDriver{
		cfg:    cfg,
		caller: &httpCaller{client: client, timeout: cfg.Timeout, retry: cfg.Retry},
	}
}

func (d *rapidSTTDriver) Name() string { return "rapidstt" }

func (d *rapidSTTDriver) Chat(ctx context.Context, req ChatRequest) (Result, error) {
	return Result{}, fmt.Errorf("rapidstt: chat: %w", ErrUnsupported)
}

func (d *rapidSTTDriver) Transcribe(ctx context.Context, req TranscribeRequest) (Result, error) {
	if req.URL == "" && req.FilePath == "" {
		return Result{}, fmt.Errorf("rapidstt: either url or file is required: %w", ErrInvalidInput)
	}

	if req.URL != "" {
		return d.transcribeURL(ctx, req), nil
	}
	return d.transcribeFile(ctx, req)
}

func (d *rapidSTTDriver) query(req TranscribeRequest) url.Values {
	q := url.Values{}
	lang := req.Language
	if lang == "" {
		lang = "en"
	}
	task := req.Task
	if task == "" {
		task = "transcribe"
	}
	q.Set("lang", lang)
	q.Set("task", task)
	return q
}

func (d *rapidSTTDriver) endpointURL() string {
	if d.cfg.BaseURL != "" {
		return d.cfg.BaseURL + d.cfg.Endpoint
	}
	return "https://" + d.cfg.Host + d.cfg.Endpoint
}

func (d *rapidSTTDriver) setAuth(req *http.Request) {
	req.Header.Set("x-rapidapi-key", d.cfg.APIKey)
	req.Header.Set("x-rapidapi-host", d.cfg.Host)
}

func (d *rapidSTTDriver) transcribeURL(ctx context.Context, req TranscribeRequest) Result {
	q := d.query(req)
	q.Set("url", req.URL)
	endpoint := d.endpointURL() + "?" + q.Encode()

	resp, err := d.caller.do(ctx, func() (*http.Request, error) {
		httpReq, err := http.NewRequest(http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		d.setAuth(httpReq)
		return httpReq, nil
	})

	return toResult(resp, err, extractSTT)
}

func (d *rapidSTTDriver) transcribeFile(ctx context.Context, req TranscribeRequest) (Result, error) {
	// Build the multipart body once; retries replay the buffered bytes.
	f, err := os.Open(req.FilePath)
	if err != nil {
		return Result{}, fmt.Errorf("rapidstt: open audio file: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filepath.Base(req.FilePath))
	if err != nil {
		return Result{}, fmt.Errorf("rapidstt: create form file: %w", err)
	}
	if _, err := io.Copy(fw, f); err != nil {
		return Result{}, fmt.Errorf("rapidstt: copy audio data: %w", err)
	}
	if err := mw.Close(); err != nil {
		return Result{}, fmt.Errorf("rapidstt: close multipart writer: %w", err)
	}

	endpoint := d.endpointURL() + "?" + d.query(req).Encode()
	contentType := mw.FormDataContentType()
	payload := body.Bytes()

	resp, callErr := d.caller.do(ctx, func() (*http.Request, error) {
		httpReq, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", contentType)
		d.setAuth(httpReq)
		return httpReq, nil
	})

	return toResult(resp, callErr, extractSTT), nil
}
