// Package pipeline sequences the five processing stages over persisted
// item lists, gated by a durable checkpoint so an interrupted run resumes
// at the last completed stage boundary.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nguyentantai21042004/audio-digest/internal/checkpoint"
	"github.com/nguyentantai21042004/audio-digest/internal/itemlist"
	"github.com/nguyentantai21042004/audio-digest/internal/logger"
	"github.com/nguyentantai21042004/audio-digest/internal/stage"
)

// State labels the checkpoint values: State(k) means stages 1..k are done.
type State int

const (
	StateInit State = iota
	StateFound
	StateExtracted
	StateUploaded
	StateTranscribed
	StateSummarized
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateFound:
		return "FOUND"
	case StateExtracted:
		return "EXTRACTED"
	case StateUploaded:
		return "UPLOADED"
	case StateTranscribed:
		return "TRANSCRIBED"
	case StateSummarized:
		return "SUMMARIZED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Step is one stage of the pipeline. Make builds the processor when the
// stage is about to run, so late stages can read artifacts produced by
// earlier ones. InputFile is empty only for the discovery stage.
type Step struct {
	Ordinal    int // 1-based stage number; checkpoint value after success
	InputFile  string
	OutputFile string
	Make       func(ctx context.Context) (stage.Processor, error)
}

// StepReport is the per-stage outcome of one pipeline run.
type StepReport struct {
	Ordinal int
	Name    string
	Skipped bool // skipped entirely because the checkpoint covered it
	Stats   stage.Stats
}

type Pipeline struct {
	steps   []Step
	tracker *checkpoint.Tracker
	logger  logger.Logger
	runID   string
}

// New creates an orchestrator over the given steps
func New(steps []Step, tracker *checkpoint.Tracker, log logger.Logger) *Pipeline {
	return &Pipeline{
		steps:   steps,
		tracker: tracker,
		logger:  log,
		runID:   uuid.NewString(),
	}
}

// RunID identifies this orchestrator instance in logs and reports
func (p *Pipeline) RunID() string { return p.runID }

// Run executes every stage past the checkpoint. Any stage-level failure
// (input list unreadable, processor fatal error, output list unwritable)
// halts the run with the checkpoint untouched; per-item failures inside a
// stage only blank their slots.
func (p *Pipeline) Run(ctx context.Context) ([]StepReport, error) {
	start := time.Now()
	cp := p.tracker.Read(ctx)

	p.logger.Info(ctx, "Pipeline run %s starting from state %s (checkpoint %d)",
		p.runID, State(cp), cp)

	reports := make([]StepReport, 0, len(p.steps))

	for _, step := range p.steps {
		if step.Ordinal <= cp {
			p.logger.Info(ctx, "Stage %d already complete, skipping", step.Ordinal)
			reports = append(reports, StepReport{Ordinal: step.Ordinal, Name: stepName(step), Skipped: true})
			continue
		}

		proc, err := step.Make(ctx)
		if err != nil {
			return reports, fmt.Errorf("stage %d: %w", step.Ordinal, err)
		}

		var items []string
		if step.InputFile != "" {
			var blanks int
			items, blanks, err = itemlist.Load(step.InputFile)
			if err != nil {
				return reports, fmt.Errorf("stage %d (%s): %w", step.Ordinal, proc.Name(), err)
			}
			if blanks > 0 {
				p.logger.Info(ctx, "[%s] Input has %d blank items from earlier failures", proc.Name(), blanks)
			}
		}

		out, stats, err := proc.Run(ctx, items)
		if err != nil {
			return reports, fmt.Errorf("stage %d (%s): %w", step.Ordinal, proc.Name(), err)
		}
		// A cancelled run leaves undispatched items blank; persisting that
		// list would record them as failed, so the stage counts as not run.
		if err := ctx.Err(); err != nil {
			return reports, fmt.Errorf("stage %d (%s) interrupted: %w", step.Ordinal, proc.Name(), err)
		}
		if items != nil && len(out) != len(items) {
			return reports, fmt.Errorf("stage %d (%s): output length %d != input length %d",
				step.Ordinal, proc.Name(), len(out), len(items))
		}

		if err := itemlist.Save(step.OutputFile, out); err != nil {
			return reports, fmt.Errorf("stage %d (%s): %w", step.Ordinal, proc.Name(), err)
		}

		// Advance only after the stage's output is durable.
		if err := p.tracker.Write(ctx, step.Ordinal); err != nil {
			return reports, fmt.Errorf("stage %d (%s): %w", step.Ordinal, proc.Name(), err)
		}

		p.logger.Info(ctx, "Stage %d (%s) complete, state now %s",
			step.Ordinal, proc.Name(), State(step.Ordinal))
		reports = append(reports, StepReport{Ordinal: step.Ordinal, Name: proc.Name(), Stats: stats})
	}

	p.logger.Info(ctx, "Pipeline run %s complete in %s", p.runID, time.Since(start).Round(time.Second))
	return reports, nil
}

// stepName resolves a display name for a skipped step without building
// its processor.
func stepName(s Step) string {
	names := map[int]string{
		1: "discover",
		2: "extract",
		3: "upload",
		4: "transcribe",
		5: "summarize",
	}
	if n, ok := names[s.Ordinal]; ok {
		return n
	}
	return fmt.Sprintf("stage-%d", s.Ordinal)
}
