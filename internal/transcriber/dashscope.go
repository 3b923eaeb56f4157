package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nguyentantai21042004/audio-digest/internal/config"
	"github.com/nguyentantai21042004/audio-digest/internal/logger"
)

// DefaultBaseURL is the DashScope API root (Beijing region).
const DefaultBaseURL = "https://dashscope.aliyuncs.com/api/v1"

type implService struct {
	baseURL      string
	apiKey       string
	model        string
	hints        []string
	diarization  bool
	pollInterval time.Duration
	httpClient   *http.Client
	logger       logger.Logger
}

// NewDashScope creates a Service talking to the DashScope async
// transcription API. baseURL overrides the production endpoint when
// non-empty (tests point it at a local server).
func NewDashScope(cfg config.TranscribeConfig, baseURL string, log logger.Logger) Service {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &implService{
		baseURL:      baseURL,
		apiKey:       cfg.APIKey,
		model:        cfg.Model,
		hints:        cfg.LanguageHints,
		diarization:  cfg.Diarization,
		pollInterval: time.Duration(cfg.PollIntervalSeconds) * time.Second,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		logger:       log,
	}
}

type submitRequest struct {
	Model      string           `json:"model"`
	Input      submitInput      `json:"input"`
	Parameters submitParameters `json:"parameters"`
}

type submitInput struct {
	FileURLs []string `json:"file_urls"`
}

type submitParameters struct {
	LanguageHints      []string `json:"language_hints,omitempty"`
	DiarizationEnabled bool     `json:"diarization_enabled"`
}

type taskResponse struct {
	RequestID string     `json:"request_id"`
	Output    taskOutput `json:"output"`
}

type taskOutput struct {
	TaskID     string   `json:"task_id"`
	TaskStatus string   `json:"task_status"`
	Results    []Result `json:"results"`
	Message    string   `json:"message,omitempty"`
}

func (s *implService) SubmitBatch(ctx context.Context, urls []string) (string, error) {
	body, err := json.Marshal(submitRequest{
		Model: s.model,
		Input: submitInput{FileURLs: urls},
		Parameters: submitParameters{
			LanguageHints:      s.hints,
			DiarizationEnabled: s.diarization,
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode submit request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/services/audio/asr/transcription", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build submit request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-DashScope-Async", "enable")

	var resp taskResponse
	if err := s.do(req, &resp); err != nil {
		return "", fmt.Errorf("submit batch: %w", err)
	}
	if resp.Output.TaskID == "" {
		return "", fmt.Errorf("submit batch: no task id in response")
	}

	s.logger.Debug(ctx, "[transcribe] submitted task %s for %d files", resp.Output.TaskID, len(urls))
	return resp.Output.TaskID, nil
}

func (s *implService) Await(ctx context.Context, taskID string) ([]Result, error) {
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/tasks/"+taskID, nil)
		if err != nil {
			return nil, fmt.Errorf("build poll request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+s.apiKey)

		var resp taskResponse
		if err := s.do(req, &resp); err != nil {
			return nil, fmt.Errorf("poll task %s: %w", taskID, err)
		}

		switch resp.Output.TaskStatus {
		case "SUCCEEDED":
			return resp.Output.Results, nil
		case "FAILED", "CANCELED":
			return nil, fmt.Errorf("task %s ended as %s: %s", taskID, resp.Output.TaskStatus, resp.Output.Message)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.pollInterval):
		}
	}
}

func (s *implService) FetchTranscript(ctx context.Context, url string) (*Transcription, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build transcript request: %w", err)
	}

	var tr Transcription
	if err := s.do(req, &tr); err != nil {
		return nil, fmt.Errorf("fetch transcript: %w", err)
	}
	return &tr, nil
}

func (s *implService) do(req *http.Request, out interface{}) error {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
