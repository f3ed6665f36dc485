package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lingora/backend/internal/cache"
	"github.com/lingora/backend/internal/queue"
	"github.com/lingora/backend/internal/transcribe"
)

const maxAudioUpload = 32 << 20

type TranscriptionHandler struct {
	svc   *transcribe.Service
	queue *queue.Client
	cache *cache.Cache
}

func NewTranscriptionHandler(svc *transcribe.Service, q *queue.Client, c *cache.Cache) *TranscriptionHandler {
	return &TranscriptionHandler{svc: svc, queue: q, cache: c}
}

type transcribeURLRequest struct {
	AudioURL string `json:"audio_url"`
	Language string `json:"language,omitempty"`
}

// Transcribe handles the synchronous path: either a multipart file
// upload or a JSON body with a public audio URL.
func (h *TranscriptionHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		h.transcribeUpload(w, r)
		return
	}

	var req transcribeURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.AudioURL == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "either an audio file or audio_url is required"})
		return
	}

	res, err := h.svc.TranscribeURL(r.Context(), req.AudioURL)
	if err != nil {
		writeTranscribeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": res})
}

func (h *TranscriptionHandler) transcribeUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxAudioUpload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "either an audio file or audio_url is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxAudioUpload))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read audio file"})
		return
	}

	res, err := h.svc.TranscribeFile(r.Context(), data, header.Filename)
	if err != nil {
		writeTranscribeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": res})
}

// TranscribeAsync enqueues a URL transcription job and returns the job
// id immediately.
func (h *TranscriptionHandler) TranscribeAsync(w http.ResponseWriter, r *http.Request) {
	var req transcribeURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.AudioURL == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "audio_url is required"})
		return
	}

	jobID := uuid.NewString()
	if err := h.queue.EnqueueTranscription(queue.TranscriptionProcessPayload{
		JobID:    jobID,
		AudioURL: req.AudioURL,
		Language: req.Language,
	}); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to enqueue transcription"})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID, "status": queue.JobPending})
}

// JobStatus polls a queued transcription by job id.
func (h *TranscriptionHandler) JobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	var result queue.TranscriptionJobResult
	err := h.cache.Get(r.Context(), queue.ResultKey(jobID), &result)
	if errors.Is(err, cache.ErrMiss) {
		writeJSON(w, http.StatusOK, map[string]string{"job_id": jobID, "status": queue.JobPending})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load job status"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"job_id": jobID, "status": result.Status, "error": result.Error, "result": result.Result})
}

func writeTranscribeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, transcribe.ErrUnreachableURL),
		errors.Is(err, transcribe.ErrUnsupportedFormat):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
}
