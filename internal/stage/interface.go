package stage

import (
	"context"
	"time"
)

// Processor maps one item list to another of equal length. Per-item
// failures are absorbed into blank output slots and the Stats; a non-nil
// error means the stage itself could not run and the pipeline must halt.
type Processor interface {
	Name() string
	Run(ctx context.Context, items []string) ([]string, Stats, error)
}

// Strategy supplies the per-stage behavior the generic Runner is
// parameterized with: an idempotent-skip predicate and the per-item
// external operation.
type Strategy interface {
	Name() string

	// Reuse reports whether a valid prior artifact exists for item idx,
	// returning its output value. A true result means Process is not called.
	Reuse(ctx context.Context, idx int, input string) (string, bool)

	// Process performs the external per-item operation and returns the
	// output value for item idx.
	Process(ctx context.Context, idx int, input string) (string, error)
}

// Stats aggregates per-item outcomes for one stage run.
type Stats struct {
	Total     int // items in the input list
	Succeeded int // processed successfully
	Failed    int // per-item failures (blank output slots)
	Reused    int // prior artifacts reused without recomputation
	Blank     int // blank inputs propagated unchanged
	Elapsed   time.Duration
}

// Skipped is the count of items that required no work this run.
func (s Stats) Skipped() int { return s.Reused + s.Blank }
