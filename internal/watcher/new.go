package watcher

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nguyentantai21042004/audio-digest/internal/logger"
)

// New creates a Watcher that schedules a pipeline run whenever a media
// file appears in inputDir. Runs never overlap: events arriving while a
// run is in progress coalesce into a single follow-up run.
func New(inputDir string, handler RunHandler, settle time.Duration, log logger.Logger) (Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	if err := fw.Add(inputDir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}

	if settle <= 0 {
		settle = 2 * time.Second
	}

	return &implWatcher{
		inputDir: inputDir,
		handler:  handler,
		settle:   settle,
		logger:   log,
		watcher:  fw,
		trigger:  make(chan struct{}, 1),
	}, nil
}
