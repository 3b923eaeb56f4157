package transcriber

import "context"

// Service is the asynchronous speech-recognition collaborator. One batch
// of audio URLs becomes one remote job; the job's per-file results carry a
// file_url identity hint used to re-associate them with their items.
type Service interface {
	// SubmitBatch starts one transcription job and returns its task id.
	SubmitBatch(ctx context.Context, urls []string) (string, error)

	// Await blocks until the job finishes and returns its per-file results.
	Await(ctx context.Context, taskID string) ([]Result, error)

	// FetchTranscript downloads and decodes one result's transcript payload.
	FetchTranscript(ctx context.Context, url string) (*Transcription, error)
}

// Result is one file's outcome within a finished job.
type Result struct {
	FileURL          string `json:"file_url"`
	SubtaskStatus    string `json:"subtask_status"`
	TranscriptionURL string `json:"transcription_url"`
	Message          string `json:"message,omitempty"`
}

// Succeeded reports whether this file's subtask completed.
func (r Result) Succeeded() bool { return r.SubtaskStatus == "SUCCEEDED" }

// Transcription is the decoded transcript payload for one audio file.
type Transcription struct {
	Transcripts []Transcript `json:"transcripts"`
}

type Transcript struct {
	Sentences []Sentence `json:"sentences"`
}

type Sentence struct {
	BeginTime int64  `json:"begin_time"`
	SpeakerID int    `json:"speaker_id"`
	Text      string `json:"text"`
}
