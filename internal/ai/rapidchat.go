package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/lingora/backend/internal/config"
)

// foldedPrefix marks system content carried inside a user message for
// vendors that reject the system role.
const foldedPrefix = "SYSTEM: "

// rapidChatDriver talks to an OpenAI-shaped chat completion vendor
// hosted on RapidAPI. The vendor's quirks (no system role, minimal
// payload tolerance) are config flags, not code paths per vendor.
type rapidChatDriver struct {
	cfg    config.DriverConfig
	caller *httpCaller
}

func newRapidChatDriver(cfg config.DriverConfig, client *http.Client) Driver {
	return &rapidChatDriver{
		cfg:    cfg,
		caller: &httpCaller{client: client, timeout: cfg.Timeout, retry: cfg.Retry},
	}
}

func (d *rapidChatDriver) Name() string { return "rapidchat" }

func (d *rapidChatDriver) Transcribe(ctx context.Context, req TranscribeRequest) (Result, error) {
	return Result{}, fmt.Errorf("rapidchat: transcribe: %w", ErrUnsupported)
}

type rapidChatPayload struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

func (d *rapidChatDriver) Chat(ctx context.Context, req ChatRequest) (Result, error) {
	if len(req.Messages) == 0 {
		return Result{}, fmt.Errorf("rapidchat: empty messages: %w", ErrInvalidInput)
	}

	model := req.Model
	if model == "" {
		model = d.cfg.DefaultModel
	}

	msgs := req.Messages
	switch {
	case d.cfg.StrictMinimal:
		msgs = collapseMinimal(msgs, d.cfg.AllowSystem)
	case !d.cfg.AllowSystem:
		msgs = foldSystem(msgs)
	}

	payload := rapidChatPayload{
		Model:       model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("rapidchat: marshal payload: %w", err)
	}

	resp, callErr := d.caller.do(ctx, func() (*http.Request, error) {
		httpReq, err := http.NewRequest(http.MethodPost, d.chatURL(), bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-rapidapi-key", d.cfg.APIKey)
		httpReq.Header.Set("x-rapidapi-host", d.cfg.Host)
		return httpReq, nil
	})

	return toResult(resp, callErr, extractChat), nil
}

func (d *rapidChatDriver) chatURL() string {
	if d.cfg.BaseURL != "" {
		return d.cfg.BaseURL + d.cfg.Endpoint
	}
	return "https://" + d.cfg.Host + d.cfg.Endpoint
}

// lastSystem returns the content of the last system message; when
// several are present the last one wins.
func lastSystem(msgs []Message) string {
	sys := ""
	for _, m := range msgs {
		if m.Role == RoleSystem {
			sys = m.Content
		}
	}
	return sys
}

// foldSystem removes system messages and carries their content into the
// leading user message with a distinguishing prefix. The instruction is
// never dropped.
func foldSystem(msgs []Message) []Message {
	sys := lastSystem(msgs)
	if sys == "" {
		return msgs
	}

	out := make([]Message, 0, len(msgs))
	folded := false
	for _, m := range msgs {
		if m.Role == RoleSystem {
			continue
		}
		if !folded && m.Role == RoleUser {
			m.Content = foldedPrefix + sys + "\n\n" + m.Content
			folded = true
		}
		out = append(out, m)
	}
	if !folded {
		out = append([]Message{{Role: RoleUser, Content: foldedPrefix + sys}}, out...)
	}
	return out
}

// collapseMinimal reduces the conversation to the latest user utterance
// plus the instruction, for vendors that choke on full history.
func collapseMinimal(msgs []Message, allowSystem bool) []Message {
	sys := lastSystem(msgs)
	lastUser := ""
	for _, m := range msgs {
		if m.Role == RoleUser {
			lastUser = m.Content
		}
	}

	switch {
	case sys == "":
		return []Message{{Role: RoleUser, Content: lastUser}}
	case allowSystem:
		return []Message{
			{Role: RoleSystem, Content: sys},
			{Role: RoleUser, Content: lastUser},
		}
	default:
		return []Message{{Role: RoleUser, Content: foldedPrefix + sys + "\n\n" + lastUser}}
	}
}
