package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nguyentantai21042004/audio-digest/internal/checkpoint"
	"github.com/nguyentantai21042004/audio-digest/internal/config"
	"github.com/nguyentantai21042004/audio-digest/internal/extractor"
	"github.com/nguyentantai21042004/audio-digest/internal/finder"
	"github.com/nguyentantai21042004/audio-digest/internal/itemlist"
	"github.com/nguyentantai21042004/audio-digest/internal/logger"
	"github.com/nguyentantai21042004/audio-digest/internal/oss"
	"github.com/nguyentantai21042004/audio-digest/internal/stage"
	"github.com/nguyentantai21042004/audio-digest/internal/summarizer"
	"github.com/nguyentantai21042004/audio-digest/internal/transcriber"
	"github.com/nguyentantai21042004/audio-digest/pkg/executor"
)

// Layout under the output directory. Item lists and the checkpoint live
// in intermediates/ so a re-run against the same output resumes in place.
const (
	IntermediatesDir = "intermediates"

	audiosFile      = "audios.json"
	inputsFile      = "inputs.json"
	ossURLsFile     = "oss_urls.json"
	transcriptsFile = "transcripts.json"
	summariesFile   = "summaries.json"
	checkpointFile  = "checkpoint.txt"

	extractedDir  = "audios"
	transcriptDir = "audio_text"
	summaryDir    = "summaries"
)

// Deps carries the external collaborators the stages talk to. Tests
// substitute fakes; the CLI wires the real clients.
type Deps struct {
	Exec       executor.Executor
	Storage    oss.Client
	Transcribe transcriber.Service
	Summarize  summarizer.Provider
}

// Build assembles the five-stage pipeline for the given configuration.
// audioOnly makes the extract stage pass media through untouched.
func Build(cfg *config.Config, deps Deps, audioOnly bool, log logger.Logger) (*Pipeline, error) {
	interm := filepath.Join(cfg.Paths.Output, IntermediatesDir)
	if err := os.MkdirAll(interm, 0755); err != nil {
		return nil, fmt.Errorf("create intermediates dir: %w", err)
	}

	workers := cfg.Performance.MaxConcurrent
	file := func(name string) string { return filepath.Join(interm, name) }

	steps := []Step{
		{
			Ordinal:    1,
			OutputFile: file(audiosFile),
			Make: func(ctx context.Context) (stage.Processor, error) {
				return finder.New(cfg.Paths.Input, log), nil
			},
		},
		{
			Ordinal:    2,
			InputFile:  file(audiosFile),
			OutputFile: file(inputsFile),
			Make: func(ctx context.Context) (stage.Processor, error) {
				return extractor.New(cfg.FFmpeg, deps.Exec, filepath.Join(interm, extractedDir), workers, audioOnly, log), nil
			},
		},
		{
			Ordinal:    3,
			InputFile:  file(inputsFile),
			OutputFile: file(ossURLsFile),
			Make: func(ctx context.Context) (stage.Processor, error) {
				return oss.NewUploader(deps.Storage, cfg.OSS, workers, log), nil
			},
		},
		{
			Ordinal:    4,
			InputFile:  file(ossURLsFile),
			OutputFile: file(transcriptsFile),
			Make: func(ctx context.Context) (stage.Processor, error) {
				return transcriber.New(deps.Transcribe, cfg.Transcribe, filepath.Join(cfg.Paths.Output, transcriptDir), workers, log), nil
			},
		},
		{
			Ordinal:    5,
			InputFile:  file(transcriptsFile),
			OutputFile: file(summariesFile),
			Make: func(ctx context.Context) (stage.Processor, error) {
				// Source links in the summaries point at the original
				// media; a missing list just means no links.
				origins, _, err := itemlist.Load(file(audiosFile))
				if err != nil {
					log.Warn(ctx, "[summarize] No original media list, summaries will not link sources: %v", err)
					origins = nil
				}
				return summarizer.New(deps.Summarize, filepath.Join(cfg.Paths.Output, summaryDir), origins, workers, cfg.Summary.ExportDocx, log), nil
			},
		},
	}

	tracker := checkpoint.New(file(checkpointFile), log)
	return New(steps, tracker, log), nil
}
