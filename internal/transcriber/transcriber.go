// Package transcriber implements the transcription stage: signed audio
// URLs are grouped into batches, each batch becomes one asynchronous
// speech-recognition job, and the per-file results are re-associated with
// their original item indices by URL identity.
package transcriber

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nguyentantai21042004/audio-digest/internal/config"
	"github.com/nguyentantai21042004/audio-digest/internal/logger"
	"github.com/nguyentantai21042004/audio-digest/internal/stage"
)

type Transcriber struct {
	svc       Service
	outputDir string
	batchCap  int
	workers   int
	logger    logger.Logger
}

// New creates the transcription stage writing per-item transcripts into
// outputDir as {item number}.txt
func New(svc Service, cfg config.TranscribeConfig, outputDir string, workers int, log logger.Logger) *Transcriber {
	if workers < 1 {
		workers = 1
	}
	return &Transcriber{
		svc:       svc,
		outputDir: outputDir,
		batchCap:  cfg.BatchSize,
		workers:   workers,
		logger:    log,
	}
}

func (t *Transcriber) Name() string { return "transcribe" }

func (t *Transcriber) transcriptPath(idx int) string {
	return filepath.Join(t.outputDir, stage.ItemNumber(idx)+".txt")
}

// batchOutcome maps item indices of one batch to transcript text ("" on
// per-item failure).
type batchOutcome struct {
	texts map[int]string
	err   error // submit-level failure for the whole batch
}

// Run groups pending items into batches, runs each batch as one remote
// job on a bounded pool, and writes transcripts back by item index. The
// stage fails only when every batch submission failed outright.
func (t *Transcriber) Run(ctx context.Context, items []string) ([]string, stage.Stats, error) {
	start := time.Now()
	stats := stage.Stats{Total: len(items)}
	outputs := make([]string, len(items))

	if err := os.MkdirAll(t.outputDir, 0755); err != nil {
		return nil, stats, fmt.Errorf("create transcript dir: %w", err)
	}

	var pending []int
	for i, it := range items {
		switch {
		case it == "":
			stats.Blank++
		case t.hasTranscript(i):
			outputs[i] = t.transcriptPath(i)
			stats.Reused++
			t.logger.Info(ctx, "[transcribe] item %s already transcribed, reused", stage.ItemNumber(i))
		default:
			pending = append(pending, i)
		}
	}

	if len(pending) == 0 {
		stats.Elapsed = time.Since(start)
		return outputs, stats, nil
	}

	batches := t.makeBatches(pending)
	t.logger.Info(ctx, "[transcribe] %d items in %d batches (%d workers)",
		len(pending), len(batches), t.workers)

	outcomes := make(chan batchOutcome)
	sem := make(chan struct{}, t.workers)
	var wg sync.WaitGroup

	for _, batch := range batches {
		wg.Add(1)
		go func(batch []int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			outcomes <- t.processBatch(ctx, batch, items)
		}(batch)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	// Single collector owns outputs, files, and counters.
	submitFailures := 0
	processed := 0
	for oc := range outcomes {
		if oc.err != nil {
			submitFailures++
		}
		for idx, text := range oc.texts {
			processed++
			if text == "" {
				stats.Failed++
			} else {
				path := t.transcriptPath(idx)
				if err := os.WriteFile(path, []byte(text), 0644); err != nil {
					t.logger.Error(ctx, "[transcribe] item %s: write transcript: %v", stage.ItemNumber(idx), err)
					stats.Failed++
				} else {
					outputs[idx] = path
					stats.Succeeded++
					t.logger.Info(ctx, "[transcribe] item %s done (%d lines)",
						stage.ItemNumber(idx), strings.Count(text, "\n")+1)
				}
			}

			if processed%progressEvery == 0 {
				t.logProgress(ctx, processed, len(pending), start, stats)
			}
		}
	}

	stats.Elapsed = time.Since(start)
	t.logger.Info(ctx, "[transcribe] Finished: %d ok, %d failed, %d reused, %d blank in %s",
		stats.Succeeded, stats.Failed, stats.Reused, stats.Blank, stats.Elapsed.Round(time.Second))

	// A single unreachable batch blanks its items; the service being
	// unreachable for every batch is a stage-level failure.
	if submitFailures == len(batches) {
		return nil, stats, fmt.Errorf("all %d transcription batches failed to submit", len(batches))
	}

	return outputs, stats, nil
}

// progressEvery matches the generic runner's aggregate-progress cadence.
const progressEvery = 10

func (t *Transcriber) logProgress(ctx context.Context, processed, total int, start time.Time, stats stage.Stats) {
	elapsed := time.Since(start)
	perItem := elapsed / time.Duration(processed)
	eta := perItem * time.Duration(total-processed)

	t.logger.Info(ctx, "[transcribe] Progress %d/%d (%.1f%%) | ok: %d | failed: %d",
		processed, total, float64(processed)/float64(total)*100,
		stats.Succeeded, stats.Failed)
	t.logger.Info(ctx, "[transcribe] Elapsed %s | ETA %s",
		elapsed.Round(time.Second), eta.Round(time.Second))
}

func (t *Transcriber) hasTranscript(idx int) bool {
	info, err := os.Stat(t.transcriptPath(idx))
	return err == nil && info.Size() > 0
}

// makeBatches splits pending indices into chunks no larger than the batch
// cap, and no larger than needed to give every worker at least one batch.
func (t *Transcriber) makeBatches(pending []int) [][]int {
	size := (len(pending) + t.workers - 1) / t.workers
	if size > t.batchCap {
		size = t.batchCap
	}
	if size < 1 {
		size = 1
	}

	var batches [][]int
	for i := 0; i < len(pending); i += size {
		end := i + size
		if end > len(pending) {
			end = len(pending)
		}
		batches = append(batches, pending[i:end])
	}
	return batches
}

// processBatch runs one remote job and aligns its results with the
// batch's item indices by file_url identity, falling back to position
// only when no identity match exists.
func (t *Transcriber) processBatch(ctx context.Context, batch []int, items []string) batchOutcome {
	urls := make([]string, len(batch))
	for i, idx := range batch {
		urls[i] = items[idx]
	}

	blanks := func() map[int]string {
		texts := make(map[int]string, len(batch))
		for _, idx := range batch {
			texts[idx] = ""
		}
		return texts
	}

	taskID, err := t.svc.SubmitBatch(ctx, urls)
	if err != nil {
		t.logger.Error(ctx, "[transcribe] batch submit failed: %v", err)
		return batchOutcome{texts: blanks(), err: err}
	}

	results, err := t.svc.Await(ctx, taskID)
	if err != nil {
		// Whole-job failure blanks every item of this batch.
		t.logger.Error(ctx, "[transcribe] task %s failed: %v", taskID, err)
		return batchOutcome{texts: blanks()}
	}

	urlToIdx := make(map[string]int, len(batch))
	for i, idx := range batch {
		urlToIdx[urls[i]] = idx
	}

	texts := blanks()

	for pos, res := range results {
		idx, ok := urlToIdx[res.FileURL]
		if !ok {
			// The service does not guarantee order; position is a last resort.
			if pos >= len(batch) {
				t.logger.Warn(ctx, "[transcribe] task %s: unmatched extra result %q dropped", taskID, res.FileURL)
				continue
			}
			idx = batch[pos]
			t.logger.Warn(ctx, "[transcribe] task %s: result %q has no matching url, assigned by position to item %s",
				taskID, res.FileURL, stage.ItemNumber(idx))
		}

		if !res.Succeeded() {
			t.logger.Error(ctx, "[transcribe] item %s: subtask %s: %s",
				stage.ItemNumber(idx), res.SubtaskStatus, res.Message)
			continue
		}

		tr, err := t.svc.FetchTranscript(ctx, res.TranscriptionURL)
		if err != nil {
			t.logger.Error(ctx, "[transcribe] item %s: %v", stage.ItemNumber(idx), err)
			continue
		}
		texts[idx] = Format(tr)
	}

	return batchOutcome{texts: texts}
}
