package stage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nguyentantai21042004/audio-digest/internal/logger"
)

// progressEvery is the completed-item cadence for aggregate progress lines.
const progressEvery = 10

// ItemNumber formats a zero-based index as the 1-based, zero-padded item
// number used in artifact names and log lines: 0 -> "001".
func ItemNumber(idx int) string {
	return fmt.Sprintf("%03d", idx+1)
}

// Runner executes a Strategy over an item list with a fixed-size worker
// pool. Results are written back by item index, never by completion order,
// so the output list always aligns with the input list.
type Runner struct {
	strat   Strategy
	workers int
	logger  logger.Logger
}

// NewRunner creates a Runner with the given concurrency degree (minimum 1)
func NewRunner(strat Strategy, workers int, log logger.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{strat: strat, workers: workers, logger: log}
}

type itemResult struct {
	idx    int
	output string
	reused bool
	err    error
}

// Run dispatches every non-blank item to the pool and collects results.
// Blank inputs propagate as blank outputs; per-item errors blank the slot
// and are counted, never aborting the run. len(output) == len(items) always.
func (r *Runner) Run(ctx context.Context, items []string) ([]string, Stats) {
	start := time.Now()
	stats := Stats{Total: len(items)}
	outputs := make([]string, len(items))

	pending := make([]int, 0, len(items))
	for i, it := range items {
		if it == "" {
			stats.Blank++
			continue
		}
		pending = append(pending, i)
	}

	r.logger.Info(ctx, "[%s] Processing %d items (%d blank) with %d workers",
		r.strat.Name(), len(pending), stats.Blank, r.workers)

	if len(pending) == 0 {
		stats.Elapsed = time.Since(start)
		return outputs, stats
	}

	tasks := make(chan int)
	results := make(chan itemResult)

	var wg sync.WaitGroup
	for w := 0; w < r.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range tasks {
				results <- r.processOne(ctx, idx, items[idx])
			}
		}()
	}

	go func() {
		defer close(tasks)
		for _, idx := range pending {
			select {
			case tasks <- idx:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	// The collector alone updates counters and the output list, so the
	// workers share nothing mutable.
	processed := 0
	for res := range results {
		processed++

		switch {
		case res.err != nil:
			stats.Failed++
			r.logger.Error(ctx, "[%s] item %s failed: %v", r.strat.Name(), ItemNumber(res.idx), res.err)
		case res.reused:
			stats.Reused++
			outputs[res.idx] = res.output
			r.logger.Info(ctx, "[%s] item %s already done, reused", r.strat.Name(), ItemNumber(res.idx))
		default:
			stats.Succeeded++
			outputs[res.idx] = res.output
			r.logger.Info(ctx, "[%s] item %s done", r.strat.Name(), ItemNumber(res.idx))
		}

		if processed%progressEvery == 0 {
			r.logProgress(ctx, processed, len(pending), start, stats)
		}
	}

	stats.Elapsed = time.Since(start)
	r.logger.Info(ctx, "[%s] Finished: %d ok, %d failed, %d reused, %d blank in %s",
		r.strat.Name(), stats.Succeeded, stats.Failed, stats.Reused, stats.Blank,
		stats.Elapsed.Round(time.Second))

	return outputs, stats
}

func (r *Runner) processOne(ctx context.Context, idx int, input string) itemResult {
	if out, ok := r.strat.Reuse(ctx, idx, input); ok {
		return itemResult{idx: idx, output: out, reused: true}
	}

	out, err := r.strat.Process(ctx, idx, input)
	if err != nil {
		return itemResult{idx: idx, err: err}
	}
	return itemResult{idx: idx, output: out}
}

func (r *Runner) logProgress(ctx context.Context, processed, total int, start time.Time, stats Stats) {
	elapsed := time.Since(start)
	perItem := elapsed / time.Duration(processed)
	eta := perItem * time.Duration(total-processed)

	r.logger.Info(ctx, "[%s] Progress %d/%d (%.1f%%) | ok: %d | failed: %d | reused: %d",
		r.strat.Name(), processed, total, float64(processed)/float64(total)*100,
		stats.Succeeded, stats.Failed, stats.Reused)
	r.logger.Info(ctx, "[%s] Elapsed %s | ETA %s",
		r.strat.Name(), elapsed.Round(time.Second), eta.Round(time.Second))
}
