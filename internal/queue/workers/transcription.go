package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/lingora/backend/internal/cache"
	"github.com/lingora/backend/internal/queue"
	"github.com/lingora/backend/internal/transcribe"
)

// resultTTL bounds how long a finished job result can be polled.
const resultTTL = 30 * time.Minute

// TranscriptionWorker runs queued STT jobs and parks the outcome in
// redis for the polling endpoint.
type TranscriptionWorker struct {
	svc   *transcribe.Service
	cache *cache.Cache
}

func NewTranscriptionWorker(svc *transcribe.Service, c *cache.Cache) *TranscriptionWorker {
	return &TranscriptionWorker{svc: svc, cache: c}
}

func (w *TranscriptionWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.TranscriptionProcessPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal transcription payload: %w: %w", err, asynq.SkipRetry)
	}

	slog.Info("processing transcription job", "job_id", payload.JobID, "url", payload.AudioURL)

	res, err := w.svc.TranscribeURL(ctx, payload.AudioURL)
	if err != nil {
		w.record(ctx, payload.JobID, queue.TranscriptionJobResult{
			Status: queue.JobFailed,
			Error:  err.Error(),
		})
		if errors.Is(err, transcribe.ErrUnreachableURL) {
			return fmt.Errorf("transcription job %s rejected: %w: %w", payload.JobID, err, asynq.SkipRetry)
		}
		return fmt.Errorf("transcription job %s: %w", payload.JobID, err)
	}

	w.record(ctx, payload.JobID, queue.TranscriptionJobResult{
		Status: queue.JobDone,
		Result: res,
	})
	slog.Info("transcription job done", "job_id", payload.JobID, "word_count", res.WordCount)
	return nil
}

func (w *TranscriptionWorker) record(ctx context.Context, jobID string, result queue.TranscriptionJobResult) {
	if err := w.cache.Set(ctx, queue.ResultKey(jobID), result, resultTTL); err != nil {
		slog.Error("failed to record transcription result", "job_id", jobID, "error", err)
	}
}
