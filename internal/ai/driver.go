package ai

import (
	"context"
	"errors"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	// ErrUnsupported means the driver does not implement the requested
	// capability. A setup defect: the caller picked the wrong driver.
	ErrUnsupported = errors.New("ai: operation not supported by driver")

	// ErrNoDefault means no default driver name is configured.
	ErrNoDefault = errors.New("ai: default driver is not set")

	// ErrNotConfigured means the requested driver name has no
	// configuration entry or no known implementation.
	ErrNotConfigured = errors.New("ai: driver not configured")

	// ErrInvalidInput means the request is malformed (e.g. neither file
	// nor URL supplied). Rejected before any network call.
	ErrInvalidInput = errors.New("ai: invalid input")
)

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the input for chat completions.
type ChatRequest struct {
	Model       string    `json:"model,omitempty"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// TranscribeRequest is the input for speech-to-text. Exactly one of
// FilePath or URL must be set.
type TranscribeRequest struct {
	FilePath string `json:"file_path,omitempty"`
	URL      string `json:"url,omitempty"`
	Language string `json:"language,omitempty"`
	Task     string `json:"task,omitempty"` // transcribe or translate
}

// Driver adapts one external AI vendor to the uniform call surface.
// Transport and upstream failures are reported inside the Result, never
// as a returned error; returned errors are reserved for setup defects
// (unsupported operation, malformed input). Drivers are safe for
// concurrent use once constructed.
type Driver interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (Result, error)
	Transcribe(ctx context.Context, req TranscribeRequest) (Result, error)
}
