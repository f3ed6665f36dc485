package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingora/backend/internal/config"
)

func testDriverConfig(baseURL string) config.DriverConfig {
	return config.DriverConfig{
		BaseURL:      baseURL,
		Host:         "vendor.example.test",
		APIKey:       "test-key",
		Endpoint:     "/v1/chat/completions",
		DefaultModel: "gpt-4o",
		Timeout:      5 * time.Second,
		Retry:        config.RetryConfig{Times: 2, Sleep: time.Millisecond},
		AllowSystem:  true,
	}
}

func chatMessages() []Message {
	return []Message{
		{Role: RoleSystem, Content: "be helpful"},
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: "hi!"},
		{Role: RoleUser, Content: "how are you?"},
	}
}

func TestRapidChat_Success(t *testing.T) {
	var gotPayload rapidChatPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-rapidapi-key"))
		assert.Equal(t, "vendor.example.test", r.Header.Get("x-rapidapi-host"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"Fine!\nFA: خوبم!"}}]}`))
	}))
	defer srv.Close()

	d := newRapidChatDriver(testDriverConfig(srv.URL), srv.Client())

	res, err := d.Chat(context.Background(), ChatRequest{
		Messages:    chatMessages(),
		Temperature: 0.3,
		MaxTokens:   80,
	})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Empty(t, res.Error)
	assert.Equal(t, http.StatusOK, res.Status)
	require.NotNil(t, res.Data)
	assert.Equal(t, "Fine!\nFA: خوبم!", res.Data.Text)

	assert.Equal(t, "gpt-4o", gotPayload.Model)
	assert.Len(t, gotPayload.Messages, 4)
	assert.InDelta(t, 0.3, gotPayload.Temperature, 1e-9)
	assert.Equal(t, 80, gotPayload.MaxTokens)
}

func TestRapidChat_FoldsSystemWhenDisallowed(t *testing.T) {
	var gotPayload rapidChatPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.Write([]byte(`{"content":"ok"}`))
	}))
	defer srv.Close()

	cfg := testDriverConfig(srv.URL)
	cfg.AllowSystem = false
	d := newRapidChatDriver(cfg, srv.Client())

	_, err := d.Chat(context.Background(), ChatRequest{Messages: chatMessages()})
	require.NoError(t, err)

	require.Len(t, gotPayload.Messages, 3)
	for _, m := range gotPayload.Messages {
		assert.NotEqual(t, RoleSystem, m.Role)
	}
	assert.Equal(t, RoleUser, gotPayload.Messages[0].Role)
	assert.Equal(t, "SYSTEM: be helpful\n\nhello", gotPayload.Messages[0].Content)
}

func TestRapidChat_StrictMinimal(t *testing.T) {
	var gotPayload rapidChatPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.Write([]byte(`{"content":"ok"}`))
	}))
	defer srv.Close()

	cfg := testDriverConfig(srv.URL)
	cfg.AllowSystem = false
	cfg.StrictMinimal = true
	d := newRapidChatDriver(cfg, srv.Client())

	_, err := d.Chat(context.Background(), ChatRequest{Messages: chatMessages()})
	require.NoError(t, err)

	require.Len(t, gotPayload.Messages, 1)
	assert.Equal(t, RoleUser, gotPayload.Messages[0].Role)
	assert.Equal(t, "SYSTEM: be helpful\n\nhow are you?", gotPayload.Messages[0].Content)
}

func TestRapidChat_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"content":"recovered"}`))
	}))
	defer srv.Close()

	d := newRapidChatDriver(testDriverConfig(srv.URL), srv.Client())

	res, err := d.Chat(context.Background(), ChatRequest{Messages: chatMessages()})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "recovered", res.Data.Text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRapidChat_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad model"}`))
	}))
	defer srv.Close()

	d := newRapidChatDriver(testDriverConfig(srv.URL), srv.Client())

	res, err := d.Chat(context.Background(), ChatRequest{Messages: chatMessages()})
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Nil(t, res.Data)
	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.Contains(t, res.Error, "bad model")
	assert.Equal(t, int32(1), calls.Load())
}

func TestRapidChat_429RetryIsOptIn(t *testing.T) {
	tests := []struct {
		name      string
		on429     bool
		wantCalls int32
	}{
		{name: "not retried by default", on429: false, wantCalls: 1},
		{name: "retried when opted in", on429: true, wantCalls: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(http.StatusTooManyRequests)
			}))
			defer srv.Close()

			cfg := testDriverConfig(srv.URL)
			cfg.Retry.On429 = tt.on429
			d := newRapidChatDriver(cfg, srv.Client())

			res, err := d.Chat(context.Background(), ChatRequest{Messages: chatMessages()})
			require.NoError(t, err)

			assert.False(t, res.Success)
			assert.Equal(t, http.StatusTooManyRequests, res.Status)
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestRapidChat_TransportFailureBecomesResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	d := newRapidChatDriver(testDriverConfig(srv.URL), http.DefaultClient)

	res, err := d.Chat(context.Background(), ChatRequest{Messages: chatMessages()})
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, 0, res.Status)
	assert.NotEmpty(t, res.Error)
}

func TestRapidChat_UnsupportedAndInvalid(t *testing.T) {
	d := newRapidChatDriver(testDriverConfig("http://unused"), http.DefaultClient)

	_, err := d.Transcribe(context.Background(), TranscribeRequest{URL: "http://example.com/a.wav"})
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = d.Chat(context.Background(), ChatRequest{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
