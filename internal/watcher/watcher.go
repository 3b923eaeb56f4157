package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nguyentantai21042004/audio-digest/internal/finder"
	"github.com/nguyentantai21042004/audio-digest/internal/logger"
)

type implWatcher struct {
	inputDir string
	handler  RunHandler
	settle   time.Duration
	logger   logger.Logger
	watcher  *fsnotify.Watcher
	trigger  chan struct{}
	wg       sync.WaitGroup
}

// Start begins monitoring the input directory for new media files.
// It blocks until ctx is cancelled or the watcher breaks.
func (w *implWatcher) Start(ctx context.Context) error {
	w.logger.Info(ctx, "File watcher started. Monitoring: %s", w.inputDir)

	w.wg.Add(1)
	go w.runLoop(ctx)
	defer w.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info(ctx, "Waiting for the current run to complete...")
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}

			if event.Op&fsnotify.Create == fsnotify.Create && w.isMediaFile(event.Name) {
				w.logger.Info(ctx, "New media detected: %s", event.Name)
				w.schedule()
			} else {
				w.logger.Debug(ctx, "Ignoring event: %s", event)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error(ctx, "Watcher error: %v", err)
		}
	}
}

// Stop closes the file watcher
func (w *implWatcher) Stop() error {
	return w.watcher.Close()
}

// schedule requests a run. The buffered channel coalesces requests that
// arrive while a run is already pending or in progress.
func (w *implWatcher) schedule() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// runLoop serializes pipeline runs: one at a time, each after a settle
// delay so the triggering file is fully written.
func (w *implWatcher) runLoop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.trigger:
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.settle):
		}

		if err := w.handler(ctx); err != nil {
			w.logger.Error(ctx, "Run failed: %v", err)
		}
	}
}

func (w *implWatcher) isMediaFile(path string) bool {
	return finder.SupportedExtensions[strings.ToLower(filepath.Ext(path))]
}
