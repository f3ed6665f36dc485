package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lingora/backend/internal/ai"
	"github.com/lingora/backend/internal/models"
	"github.com/lingora/backend/internal/prompt"
	"github.com/lingora/backend/internal/transcribe"
)

// apology is the fixed bilingual reply used when the chat vendor is
// down mid-conversation; the learner gets a turn, not an error page.
const apology = "Sorry, I'm having trouble right now. Try again!\nFA: ببخشید، الان مشکل دارم. دوباره امتحان کن!"

// Transcriber is the voice entry point; transcribe.Service implements it.
type Transcriber interface {
	TranscribeFile(ctx context.Context, data []byte, filename string) (*transcribe.Result, error)
}

// StartResponse is the session snapshot handed back to the caller.
type StartResponse struct {
	ConversationID string       `json:"conversation_id"`
	Message        string       `json:"message"`
	Translation    string       `json:"translation"`
	Level          models.Level `json:"level"`
	ExpiresAt      time.Time    `json:"expires_at"`
}

// MessageResponse is one completed exchange.
type MessageResponse struct {
	ConversationID string       `json:"conversation_id"`
	Message        string       `json:"message"`
	Translation    string       `json:"translation"`
	Level          models.Level `json:"level"`
}

// Service orchestrates tutoring conversations: session lifecycle,
// prompt shaping, the vendor call and history writes.
type Service struct {
	store       *Store
	resolver    ai.Resolver
	chatDriver  string
	transcriber Transcriber
}

func NewService(store *Store, resolver ai.Resolver, chatDriver string, transcriber Transcriber) *Service {
	return &Service{
		store:       store,
		resolver:    resolver,
		chatDriver:  chatDriver,
		transcriber: transcriber,
	}
}

// StartConversation creates a session and returns the fixed greeting
// pair for the level. A non-nil assessment pins a personalized system
// prompt to the session in place of the per-level one.
func (s *Service) StartConversation(ctx context.Context, userID int64, level models.Level, assessment *prompt.Assessment) (StartResponse, error) {
	systemPrompt := ""
	if assessment != nil {
		systemPrompt = prompt.BuildAssessmentPrompt(*assessment)
	}

	conv, err := s.store.Start(ctx, userID, level, systemPrompt)
	if err != nil {
		return StartResponse{}, err
	}

	greeting, translation := level.Greeting()
	slog.Info("conversation started", "conversation_id", conv.ID, "user_id", userID, "level", level)

	return StartResponse{
		ConversationID: conv.ID,
		Message:        greeting,
		Translation:    translation,
		Level:          level,
		ExpiresAt:      conv.ExpiresAt,
	}, nil
}

// SendMessage runs one exchange: shape the payload for the resolved
// driver, call the vendor, parse the bilingual reply and append the
// turn to history.
func (s *Service) SendMessage(ctx context.Context, conversationID, text string) (MessageResponse, error) {
	conv, err := s.store.Get(ctx, conversationID)
	if err != nil {
		return MessageResponse{}, err
	}

	settings, err := s.resolver.Settings(s.chatDriver)
	if err != nil {
		return MessageResponse{}, err
	}
	driver, err := s.resolver.Driver(s.chatDriver)
	if err != nil {
		return MessageResponse{}, err
	}

	system := conv.SystemPrompt
	if system == "" {
		system = prompt.BuildSystemPrompt(conv.Level)
	}
	msgs := prompt.PrepareMessages(system, conv.History, text, settings.AllowSystem)

	res, err := driver.Chat(ctx, ai.ChatRequest{
		Messages:    msgs,
		Temperature: conv.Level.Temperature(),
		MaxTokens:   conv.Level.MaxTokens(),
	})
	if err != nil {
		return MessageResponse{}, fmt.Errorf("chat driver: %w", err)
	}

	content := apology
	if res.Success {
		content = res.Data.Text
	} else {
		slog.Warn("chat vendor call failed", "conversation_id", conversationID, "status", res.Status, "error", res.Error)
	}

	message, translation := prompt.ParseResponse(content)

	conv, err = s.store.AppendTurn(ctx, conversationID, models.Turn{
		User:        text,
		AI:          message,
		Translation: translation,
		Timestamp:   time.Now().UTC(),
	})
	if err != nil {
		return MessageResponse{}, err
	}

	return MessageResponse{
		ConversationID: conv.ID,
		Message:        message,
		Translation:    translation,
		Level:          conv.Level,
	}, nil
}

// SendVoiceMessage transcribes the audio then runs the exchange with
// the transcribed text.
func (s *Service) SendVoiceMessage(ctx context.Context, conversationID string, audio []byte, filename string) (MessageResponse, error) {
	tr, err := s.transcriber.TranscribeFile(ctx, audio, filename)
	if err != nil {
		return MessageResponse{}, fmt.Errorf("transcribe voice message: %w", err)
	}
	return s.SendMessage(ctx, conversationID, tr.Text)
}
