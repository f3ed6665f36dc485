package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/lingora/backend/internal/config"
)

// openAIDriver covers both chat completions and Whisper transcription.
// It accepts raw file input directly, so no staging is needed.
type openAIDriver struct {
	cfg    config.DriverConfig
	client *openai.Client
}

func newOpenAIDriver(cfg config.DriverConfig, httpClient *http.Client) Driver {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = httpClient
	return &openAIDriver{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientCfg),
	}
}

func (d *openAIDriver) Name() string { return "openai" }

// sdkCall runs an SDK call under the driver retry policy. Transient
// failures (transport errors, 5xx, opted-in 429) are retried; other API
// errors are final.
func sdkCall(ctx context.Context, retry config.RetryConfig, call func(ctx context.Context) (status int, err error)) (int, error) {
	var lastStatus int
	var lastErr error

	for attempt := 0; attempt <= retry.Times; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(retry.Sleep * time.Duration(attempt)):
			}
		}

		status, err := call(ctx)
		if err == nil {
			return status, nil
		}
		lastStatus, lastErr = status, err

		if status != 0 && !retryableStatus(status, retry) {
			break
		}
	}
	return lastStatus, lastErr
}

func (d *openAIDriver) Chat(ctx context.Context, req ChatRequest) (Result, error) {
	if len(req.Messages) == 0 {
		return Result{}, fmt.Errorf("openai: empty messages: %w", ErrInvalidInput)
	}

	model := req.Model
	if model == "" {
		model = d.cfg.DefaultModel
	}

	msgs := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	oReq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: msgs,
	}
	if req.Temperature > 0 {
		oReq.Temperature = float32(req.Temperature)
	}
	if req.MaxTokens > 0 {
		oReq.MaxTokens = req.MaxTokens
	}

	var content string
	status, err := sdkCall(ctx, d.cfg.Retry, func(ctx context.Context) (int, error) {
		callCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()

		resp, err := d.client.CreateChatCompletion(callCtx, oReq)
		if err != nil {
			return apiStatus(err), err
		}
		if len(resp.Choices) > 0 {
			content = resp.Choices[0].Message.Content
		}
		return 200, nil
	})
	if err != nil {
		return failureResult(status, nil, err.Error()), nil
	}

	if content == "" {
		content = chatFallback
	}
	return successResult(status, nil, &Payload{Text: content}), nil
}

func (d *openAIDriver) Transcribe(ctx context.Context, req TranscribeRequest) (Result, error) {
	if req.FilePath == "" {
		return Result{}, fmt.Errorf("openai: transcription requires file input: %w", ErrInvalidInput)
	}

	oReq := openai.AudioRequest{
		Model:    "whisper-1",
		FilePath: req.FilePath,
		Language: req.Language,
		Format:   openai.AudioResponseFormatVerboseJSON,
	}

	var payload *Payload
	status, err := sdkCall(ctx, d.cfg.Retry, func(ctx context.Context) (int, error) {
		callCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()

		resp, err := d.client.CreateTranscription(callCtx, oReq)
		if err != nil {
			return apiStatus(err), err
		}
		payload = &Payload{
			Text:     resp.Text,
			Language: resp.Language,
			Duration: resp.Duration,
		}
		return 200, nil
	})
	if err != nil {
		return failureResult(status, nil, err.Error()), nil
	}

	return successResult(status, nil, payload), nil
}

// apiStatus pulls the HTTP status out of an SDK error, 0 for transport
// failures.
func apiStatus(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
