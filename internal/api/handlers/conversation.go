package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lingora/backend/internal/ai"
	"github.com/lingora/backend/internal/auth"
	"github.com/lingora/backend/internal/conversation"
	"github.com/lingora/backend/internal/models"
	"github.com/lingora/backend/internal/prompt"
)

// maxVoiceUpload bounds voice message uploads (16 MiB).
const maxVoiceUpload = 16 << 20

type ConversationHandler struct {
	svc *conversation.Service
}

func NewConversationHandler(svc *conversation.Service) *ConversationHandler {
	return &ConversationHandler{svc: svc}
}

type startConversationRequest struct {
	Level      string             `json:"level"`
	Assessment *assessmentPayload `json:"assessment,omitempty"`
}

type assessmentPayload struct {
	TargetLanguage string   `json:"target_language"`
	NativeLanguage string   `json:"native_language"`
	SelfLevel      string   `json:"self_level"`
	Motivations    []string `json:"motivations"`
	Topics         []string `json:"topics"`
	ImproveAreas   []string `json:"improve_areas"`
	Timeline       string   `json:"timeline"`
	DailyWords     string   `json:"daily_words"`
}

func (p *assessmentPayload) toAssessment() *prompt.Assessment {
	if p == nil {
		return nil
	}
	return &prompt.Assessment{
		TargetLanguage: p.TargetLanguage,
		NativeLanguage: p.NativeLanguage,
		SelfLevel:      p.SelfLevel,
		Motivations:    p.Motivations,
		Topics:         p.Topics,
		ImproveAreas:   p.ImproveAreas,
		Timeline:       p.Timeline,
		DailyWords:     p.DailyWords,
	}
}

func (h *ConversationHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	level, err := models.ParseLevel(req.Level)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}

	resp, err := h.svc.StartConversation(r.Context(), auth.UserID(r.Context()), level, req.Assessment.toAssessment())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to start conversation"})
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

type sendMessageRequest struct {
	Message string `json:"message"`
}

func (h *ConversationHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Message == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "message is required"})
		return
	}

	resp, err := h.svc.SendMessage(r.Context(), conversationID, req.Message)
	if err != nil {
		writeConversationError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *ConversationHandler) SendVoiceMessage(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	if err := r.ParseMultipartForm(maxVoiceUpload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "audio file is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxVoiceUpload))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read audio file"})
		return
	}

	resp, err := h.svc.SendVoiceMessage(r.Context(), conversationID, data, header.Filename)
	if err != nil {
		writeConversationError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeConversationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, conversation.ErrNotFoundOrExpired):
		writeJSON(w, http.StatusGone, map[string]string{"error": "conversation not found or expired"})
	case errors.Is(err, ai.ErrInvalidInput):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
}
