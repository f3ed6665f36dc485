package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractSTT_FieldPriority(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "text field",
			body: `{"text":"hello world"}`,
			want: "hello world",
		},
		{
			name: "result field",
			body: `{"result":"hello from result"}`,
			want: "hello from result",
		},
		{
			name: "nested data.text",
			body: `{"data":{"text":"nested hello"}}`,
			want: "nested hello",
		},
		{
			name: "transcript field",
			body: `{"transcript":"transcribed hello"}`,
			want: "transcribed hello",
		},
		{
			name: "text wins over result",
			body: `{"result":"loser","text":"winner"}`,
			want: "winner",
		},
		{
			name: "result wins over transcript",
			body: `{"transcript":"loser","result":"winner"}`,
			want: "winner",
		},
		{
			name: "empty text falls through to result",
			body: `{"text":"","result":"fallback"}`,
			want: "fallback",
		},
		{
			name: "no match yields empty string",
			body: `{"status":"done"}`,
			want: "",
		},
		{
			name: "non-string text ignored",
			body: `{"text":42,"result":"actual"}`,
			want: "actual",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := extractSTT([]byte(tt.body))
			assert.Equal(t, tt.want, p.Text)
		})
	}
}

func TestExtractSTT_Metadata(t *testing.T) {
	p := extractSTT([]byte(`{"text":"hi","language":"en","confidence":0.93,"duration":4.2}`))

	assert.Equal(t, "hi", p.Text)
	assert.Equal(t, "en", p.Language)
	assert.InDelta(t, 0.93, p.Confidence, 1e-9)
	assert.InDelta(t, 4.2, p.Duration, 1e-9)
}

func TestExtractChat_FieldPriority(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "openai choice shape",
			body: `{"choices":[{"message":{"role":"assistant","content":"Hi there"}}]}`,
			want: "Hi there",
		},
		{
			name: "bare content",
			body: `{"content":"plain content"}`,
			want: "plain content",
		},
		{
			name: "choice shape wins over bare content",
			body: `{"content":"loser","choices":[{"message":{"content":"winner"}}]}`,
			want: "winner",
		},
		{
			name: "response field last resort",
			body: `{"response":"from response"}`,
			want: "from response",
		},
		{
			name: "no match yields sentinel",
			body: `{"usage":{"total_tokens":12}}`,
			want: chatFallback,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := extractChat([]byte(tt.body))
			assert.Equal(t, tt.want, p.Text)
		})
	}
}
