// Package finder implements the discovery stage: a recursive scan of the
// input directory collecting absolute paths of audio/video files. It
// produces the pipeline's initial item list.
package finder

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/nguyentantai21042004/audio-digest/internal/logger"
	"github.com/nguyentantai21042004/audio-digest/internal/stage"
)

// SupportedExtensions is the audio/video allow-list, lowercase with dot.
var SupportedExtensions = map[string]bool{
	// audio
	".mp3": true, ".wav": true, ".flac": true, ".aac": true,
	".ogg": true, ".m4a": true, ".wma": true, ".opus": true,
	// video
	".mp4": true, ".avi": true, ".mkv": true, ".mov": true,
	".wmv": true, ".flv": true, ".webm": true, ".m4v": true,
	".mpg": true, ".mpeg": true,
}

// skipDirs are directory names never worth descending into.
var skipDirs = map[string]bool{
	"$recycle.bin": true, "recycle.bin": true, "system volume information": true,
	"temp": true, "tmp": true, "cache": true, "logs": true, "log": true,
	"backup": true, "backups": true,
	".git": true, ".svn": true, ".hg": true, ".idea": true, ".vscode": true,
	"__pycache__": true, "node_modules": true,
	"venv": true, "env": true, ".env": true, "virtualenv": true,
}

type Finder struct {
	inputDir string
	logger   logger.Logger
}

// New creates the discovery stage over inputDir
func New(inputDir string, log logger.Logger) *Finder {
	return &Finder{inputDir: inputDir, logger: log}
}

func (f *Finder) Name() string { return "discover" }

// Run walks the input tree and returns the initial item list. The incoming
// items are ignored; discovery is the first stage. Permission failures and
// unreadable subtrees are logged and skipped, never fatal. Symlinked
// directories are not followed, so cycles cannot occur.
func (f *Finder) Run(ctx context.Context, _ []string) ([]string, stage.Stats, error) {
	start := time.Now()
	stats := stage.Stats{}

	root, err := filepath.Abs(f.inputDir)
	if err != nil {
		return nil, stats, fmt.Errorf("resolve input dir: %w", err)
	}

	f.logger.Info(ctx, "[discover] Scanning %s", root)

	var found []string
	skippedDirs := 0

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			// Permission denied or vanished entry: skip the subtree and move on
			f.logger.Warn(ctx, "[discover] Skipping %s: %v", path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path == root {
				return nil
			}
			name := strings.ToLower(d.Name())
			if skipDirs[name] || strings.HasPrefix(name, ".") {
				f.logger.Debug(ctx, "[discover] Skipping directory %s", path)
				skippedDirs++
				return fs.SkipDir
			}
			return nil
		}

		if SupportedExtensions[strings.ToLower(filepath.Ext(d.Name()))] {
			found = append(found, path)
			if len(found)%100 == 0 {
				f.logger.Info(ctx, "[discover] Found %d media files so far", len(found))
			}
		}
		return nil
	})
	if walkErr != nil {
		return nil, stats, fmt.Errorf("scan %s: %w", root, walkErr)
	}

	stats.Total = len(found)
	stats.Succeeded = len(found)
	stats.Elapsed = time.Since(start)

	f.logger.Info(ctx, "[discover] Found %d media files, skipped %d directories in %s",
		len(found), skippedDirs, stats.Elapsed.Round(time.Millisecond))

	if len(found) == 0 {
		return nil, stats, fmt.Errorf("no audio/video files found under %s", root)
	}

	return found, stats, nil
}
