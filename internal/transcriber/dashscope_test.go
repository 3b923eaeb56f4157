package transcriber

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/nguyentantai21042004/audio-digest/internal/config"
	"github.com/nguyentantai21042004/audio-digest/internal/logger"
)

func dashscopeTestService(t *testing.T, handler http.Handler) Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.TranscribeConfig{
		APIKey:              "sk-test",
		Model:               "fun-asr",
		LanguageHints:       []string{"zh"},
		Diarization:         true,
		PollIntervalSeconds: 0, // poll immediately in tests
	}
	return NewDashScope(cfg, srv.URL, logger.New("error"))
}

func TestSubmitBatch(t *testing.T) {
	var gotAsync, gotAuth string
	var gotBody submitRequest

	svc := dashscopeTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/services/audio/asr/transcription" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotAsync = r.Header.Get("X-DashScope-Async")
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatal(err)
		}
		json.NewEncoder(w).Encode(taskResponse{Output: taskOutput{TaskID: "task-1", TaskStatus: "PENDING"}})
	}))

	id, err := svc.SubmitBatch(context.Background(), []string{"https://oss/a.mp3", "https://oss/b.mp3"})
	if err != nil {
		t.Fatalf("SubmitBatch() error = %v", err)
	}

	if id != "task-1" {
		t.Errorf("task id = %q, want task-1", id)
	}
	if gotAsync != "enable" {
		t.Errorf("X-DashScope-Async = %q, want enable", gotAsync)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody.Model != "fun-asr" || len(gotBody.Input.FileURLs) != 2 {
		t.Errorf("body = %+v", gotBody)
	}
	if !gotBody.Parameters.DiarizationEnabled {
		t.Error("diarization not enabled in request")
	}
}

func TestSubmitBatchServerError(t *testing.T) {
	svc := dashscopeTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))

	if _, err := svc.SubmitBatch(context.Background(), []string{"u"}); err == nil {
		t.Error("SubmitBatch() should surface HTTP errors")
	}
}

func TestAwaitPollsUntilDone(t *testing.T) {
	var polls atomic.Int64

	svc := dashscopeTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tasks/task-9" {
			t.Errorf("path = %s", r.URL.Path)
		}
		n := polls.Add(1)
		out := taskOutput{TaskID: "task-9", TaskStatus: "RUNNING"}
		if n >= 3 {
			out.TaskStatus = "SUCCEEDED"
			out.Results = []Result{{FileURL: "u", SubtaskStatus: "SUCCEEDED", TranscriptionURL: "t"}}
		}
		json.NewEncoder(w).Encode(taskResponse{Output: out})
	}))

	results, err := svc.Await(context.Background(), "task-9")
	if err != nil {
		t.Fatalf("Await() error = %v", err)
	}
	if polls.Load() < 3 {
		t.Errorf("polled %d times, want at least 3", polls.Load())
	}
	if len(results) != 1 || results[0].FileURL != "u" {
		t.Errorf("results = %+v", results)
	}
}

func TestAwaitTaskFailed(t *testing.T) {
	svc := dashscopeTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(taskResponse{Output: taskOutput{
			TaskID: "task-2", TaskStatus: "FAILED", Message: "invalid audio",
		}})
	}))

	if _, err := svc.Await(context.Background(), "task-2"); err == nil {
		t.Error("Await() should fail for a FAILED task")
	}
}

func TestFetchTranscript(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Transcription{
			Transcripts: []Transcript{{Sentences: []Sentence{
				{BeginTime: 0, SpeakerID: 0, Text: "hi"},
			}}},
		})
	}))
	defer srv.Close()

	svc := dashscopeTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	tr, err := svc.FetchTranscript(context.Background(), srv.URL+"/result.json")
	if err != nil {
		t.Fatalf("FetchTranscript() error = %v", err)
	}
	if Format(tr) != "1: hi" {
		t.Errorf("Format = %q, want \"1: hi\"", Format(tr))
	}
}
