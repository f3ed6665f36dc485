package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/lingora/backend/internal/config"
)

// anthropicDriver is chat-only. The Messages API takes system content
// as a dedicated parameter, so no folding is ever needed here.
type anthropicDriver struct {
	cfg    config.DriverConfig
	client anthropic.Client
}

func newAnthropicDriver(cfg config.DriverConfig, httpClient *http.Client) Driver {
	return &anthropicDriver{
		cfg: cfg,
		client: anthropic.NewClient(
			option.WithAPIKey(cfg.APIKey),
			option.WithHTTPClient(httpClient),
		),
	}
}

func (d *anthropicDriver) Name() string { return "anthropic" }

func (d *anthropicDriver) Transcribe(ctx context.Context, req TranscribeRequest) (Result, error) {
	return Result{}, fmt.Errorf("anthropic: transcribe: %w", ErrUnsupported)
}

func (d *anthropicDriver) Chat(ctx context.Context, req ChatRequest) (Result, error) {
	if len(req.Messages) == 0 {
		return Result{}, fmt.Errorf("anthropic: empty messages: %w", ErrInvalidInput)
	}

	model := req.Model
	if model == "" {
		model = d.cfg.DefaultModel
	}

	var systemText string
	var msgs []anthropic.MessageParam
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			systemText = m.Content
		case RoleUser:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case RoleAssistant:
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	maxTokens := int64(req.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 1024
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages:  msgs,
	}
	if systemText != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemText}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	var content string
	status, err := sdkCall(ctx, d.cfg.Retry, func(ctx context.Context) (int, error) {
		callCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()

		resp, err := d.client.Messages.New(callCtx, params)
		if err != nil {
			return anthropicStatus(err), err
		}
		content = ""
		for _, block := range resp.Content {
			if block.Type == "text" {
				content += block.Text
			}
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

func anthropicStatus(err error) int {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
