package queue

import "github.com/lingora/backend/internal/transcribe"

const TypeTranscriptionProcess = "transcription:process"

// TranscriptionProcessPayload is the queued unit of STT work. Only
// URL-addressable audio is queued; uploads are handled in-request.
type TranscriptionProcessPayload struct {
	JobID    string `json:"job_id"`
	AudioURL string `json:"audio_url"`
	Language string `json:"language,omitempty"`
}

// Job status values parked in redis while the worker runs.
const (
	JobPending = "pending"
	JobDone    = "done"
	JobFailed  = "failed"
)

type TranscriptionJobResult struct {
	Status string             `json:"status"`
	Error  string             `json:"error,omitempty"`
	Result *transcribe.Result `json:"result,omitempty"`
}

func ResultKey(jobID string) string {
	return "transcription:result:" + jobID
}
