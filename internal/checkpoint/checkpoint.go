// Package checkpoint persists the pipeline's stage cursor: a single
// non-negative integer recording the last fully completed stage. The
// orchestrator reads it once at startup and overwrites it after each
// successful stage, never before, so a crash mid-stage leaves the cursor
// at the last known-good boundary.
package checkpoint

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/nguyentantai21042004/audio-digest/internal/logger"
)

type Tracker struct {
	path   string
	logger logger.Logger
}

// New creates a Tracker backed by the file at path
func New(path string, log logger.Logger) *Tracker {
	return &Tracker{path: path, logger: log}
}

// Read returns the persisted stage cursor. An absent, unreadable, or
// unparsable file is treated as a fresh start (0) and logged, never an error.
func (t *Tracker) Read(ctx context.Context) int {
	data, err := os.ReadFile(t.path)
	if err != nil {
		if !os.IsNotExist(err) {
			t.logger.Warn(ctx, "Cannot read checkpoint %s, starting fresh: %v", t.path, err)
		}
		return 0
	}

	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || n < 0 {
		t.logger.Warn(ctx, "Checkpoint %s is malformed (%q), starting fresh", t.path, strings.TrimSpace(string(data)))
		return 0
	}

	return n
}

// Write overwrites the stage cursor
func (t *Tracker) Write(ctx context.Context, stage int) error {
	if stage < 0 {
		return fmt.Errorf("checkpoint stage must be non-negative, got %d", stage)
	}
	if err := os.WriteFile(t.path, []byte(strconv.Itoa(stage)+"\n"), 0644); err != nil {
		return fmt.Errorf("write checkpoint %s: %w", t.path, err)
	}
	t.logger.Debug(ctx, "Checkpoint advanced to %d", stage)
	return nil
}
