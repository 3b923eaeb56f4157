// Package extractor implements the audio-extraction stage: video inputs
// are transcoded to mp3 with ffmpeg, audio inputs pass through unchanged.
// Artifacts are named by 1-based item number (001.mp3) so reruns can find
// and validate prior work.
package extractor

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nguyentantai21042004/audio-digest/internal/config"
	"github.com/nguyentantai21042004/audio-digest/internal/logger"
	"github.com/nguyentantai21042004/audio-digest/internal/stage"
	"github.com/nguyentantai21042004/audio-digest/pkg/executor"
)

// durationTolerance is the allowed gap between source and extracted
// duration before an artifact is considered corrupt.
const durationTolerance = 5.0

const probeTimeout = 10 * time.Second

// audioExtensions are inputs that need no transcoding.
var audioExtensions = map[string]bool{
	".mp3": true, ".wav": true, ".m4a": true, ".aac": true,
	".flac": true, ".ogg": true, ".opus": true,
}

type Extractor struct {
	cfg       config.FFmpegConfig
	executor  executor.Executor
	outputDir string
	audioOnly bool
	logger    logger.Logger
	runner    *stage.Runner
}

// New creates the extraction stage writing artifacts into outputDir.
// In audio-only mode every item passes through untouched.
func New(cfg config.FFmpegConfig, exec executor.Executor, outputDir string, workers int, audioOnly bool, log logger.Logger) *Extractor {
	e := &Extractor{
		cfg:       cfg,
		executor:  exec,
		outputDir: outputDir,
		audioOnly: audioOnly,
		logger:    log,
	}
	e.runner = stage.NewRunner(e, workers, log)
	return e
}

func (e *Extractor) Name() string { return "extract" }

// Run processes the item list through the worker pool. Failing to create
// the artifact directory is the only stage-level (fatal) error.
func (e *Extractor) Run(ctx context.Context, items []string) ([]string, stage.Stats, error) {
	if err := os.MkdirAll(e.outputDir, 0755); err != nil {
		return nil, stage.Stats{}, fmt.Errorf("create extraction dir: %w", err)
	}
	out, stats := e.runner.Run(ctx, items)
	return out, stats, nil
}

func isAudio(path string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(path))]
}

func (e *Extractor) artifactPath(idx int) string {
	return filepath.Join(e.outputDir, stage.ItemNumber(idx)+".mp3")
}

// Reuse passes audio inputs through and accepts a prior extract whose
// duration matches the source within tolerance.
func (e *Extractor) Reuse(ctx context.Context, idx int, input string) (string, bool) {
	if e.audioOnly {
		return input, true
	}

	if isAudio(input) {
		if _, err := os.Stat(input); err != nil {
			return "", false // surfaced as a failure by Process
		}
		return input, true
	}

	out := e.artifactPath(idx)
	if _, err := os.Stat(out); err != nil {
		return "", false
	}
	if e.durationsMatch(ctx, input, out) {
		return out, true
	}

	e.logger.Debug(ctx, "[extract] item %s: prior artifact fails validation, re-extracting", stage.ItemNumber(idx))
	return "", false
}

// Process transcodes one video to mp3 and validates the result, retrying
// once after deleting a bad artifact.
func (e *Extractor) Process(ctx context.Context, idx int, input string) (string, error) {
	if _, err := os.Stat(input); err != nil {
		return "", fmt.Errorf("source missing: %s", input)
	}

	if isAudio(input) {
		// Reuse declined because its stat failed, but the file is back.
		return input, nil
	}

	out := e.artifactPath(idx)

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			if err := os.Remove(out); err != nil && !os.IsNotExist(err) {
				e.logger.Debug(ctx, "[extract] item %s: cannot remove bad artifact: %v", stage.ItemNumber(idx), err)
			}
			e.logger.Warn(ctx, "[extract] item %s: validation failed, retrying once", stage.ItemNumber(idx))
		}

		if err := e.transcode(ctx, input, out); err != nil {
			return "", err
		}

		if e.durationsMatch(ctx, input, out) {
			return out, nil
		}
		lastErr = fmt.Errorf("post-extraction validation failed: duration mismatch over %.0fs", durationTolerance)
	}

	os.Remove(out)
	return "", lastErr
}

func (e *Extractor) transcode(ctx context.Context, input, out string) error {
	args := []string{
		"-i", input,
		"-vn", // strip video
		"-acodec", e.cfg.AudioCodec,
		"-q:a", e.cfg.AudioQuality,
		"-y",
		out,
	}

	timeout := time.Duration(e.cfg.TimeoutSeconds) * time.Second
	if _, err := e.executor.ExecuteTimeout(ctx, timeout, e.cfg.BinaryPath, args...); err != nil {
		return fmt.Errorf("ffmpeg extract: %w", err)
	}
	if _, err := os.Stat(out); err != nil {
		return fmt.Errorf("ffmpeg produced no output: %w", err)
	}
	return nil
}

// Duration probes a media file and returns its length in seconds
func (e *Extractor) Duration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	out, err := e.executor.ExecuteTimeout(ctx, probeTimeout, e.cfg.ProbePath, args...)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	d, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", strings.TrimSpace(out), err)
	}
	return d, nil
}

func (e *Extractor) durationsMatch(ctx context.Context, src, out string) bool {
	srcDur, err := e.Duration(ctx, src)
	if err != nil {
		e.logger.Debug(ctx, "[extract] probe %s: %v", src, err)
		return false
	}
	outDur, err := e.Duration(ctx, out)
	if err != nil {
		e.logger.Debug(ctx, "[extract] probe %s: %v", out, err)
		return false
	}
	return math.Abs(srcDur-outDur) <= durationTolerance
}
