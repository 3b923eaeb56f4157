package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/nguyentantai21042004/audio-digest/internal/config"
	"github.com/nguyentantai21042004/audio-digest/internal/logger"
	"github.com/nguyentantai21042004/audio-digest/internal/oss"
	"github.com/nguyentantai21042004/audio-digest/internal/pipeline"
	"github.com/nguyentantai21042004/audio-digest/internal/summarizer"
	"github.com/nguyentantai21042004/audio-digest/internal/transcriber"
	"github.com/nguyentantai21042004/audio-digest/internal/watcher"
	"github.com/nguyentantai21042004/audio-digest/pkg/executor"
)

const (
	lockFileName = ".pipeline.lock"
	logFileName  = "audio_digest.log"
)

type rootFlags struct {
	configPath  string
	input       string
	output      string
	concurrency int
	audioOnly   bool
	watch       bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Batch audio transcription and summarization pipeline",
		Long: `Scans a directory for audio/video files, extracts audio with ffmpeg,
uploads it to object storage, transcribes it through a speech service and
summarizes each transcript into a Markdown report.

Progress is checkpointed after every stage, so an interrupted run picks up
where it left off when pointed at the same output directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "config.yaml", "path to the YAML config file")
	cmd.Flags().StringVarP(&flags.input, "input", "i", "", "input directory (overrides paths.input)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output directory (overrides paths.output)")
	cmd.Flags().IntVarP(&flags.concurrency, "concurrency", "n", 0, "worker count per stage (overrides performance.max_concurrent)")
	cmd.Flags().BoolVar(&flags.audioOnly, "audio-only", false, "inputs are already audio, skip extraction")
	cmd.Flags().BoolVarP(&flags.watch, "watch", "w", false, "keep running and re-process when new media appears")

	return cmd
}

func run(ctx context.Context, flags *rootFlags) error {
	cfg, err := config.Load(flags.configPath, func(c *config.Config) {
		if flags.input != "" {
			c.Paths.Input = flags.input
		}
		if flags.output != "" {
			c.Paths.Output = flags.output
		}
		if flags.concurrency > 0 {
			c.Performance.MaxConcurrent = flags.concurrency
		}
	})
	if err != nil {
		return err
	}

	if err := ensureDirectories(cfg); err != nil {
		return err
	}

	log, err := logger.NewWithFile(cfg.Logging.Level, cfg.Paths.Output, logFileName)
	if err != nil {
		// stdout-only logger is already usable, just note the missing file sink
		log.Warn(ctx, "Log file unavailable: %v", err)
	}

	// One pipeline per output directory at a time.
	lock := flock.New(filepath.Join(cfg.Paths.Output, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another pipeline is already running against %s", cfg.Paths.Output)
	}
	defer lock.Unlock()

	log.Info(ctx, "========================================")
	log.Info(ctx, "Audio Digest Pipeline")
	log.Info(ctx, "========================================")
	log.Info(ctx, "System: %s/%s, CPU cores: %d", runtime.GOOS, runtime.GOARCH, runtime.NumCPU())
	log.Info(ctx, "Input: %s", cfg.Paths.Input)
	log.Info(ctx, "Output: %s", cfg.Paths.Output)
	log.Info(ctx, "Workers per stage: %d", cfg.Performance.MaxConcurrent)

	deps, err := buildDeps(cfg, log)
	if err != nil {
		return err
	}

	runOnce := func(ctx context.Context) error {
		p, err := pipeline.Build(cfg, deps, flags.audioOnly, log)
		if err != nil {
			return err
		}
		reports, runErr := p.Run(ctx)
		if len(reports) > 0 {
			fmt.Println(pipeline.RenderSummary(reports))
		}
		return runErr
	}

	if !flags.watch {
		return runOnce(ctx)
	}

	return runWatch(ctx, cfg, runOnce, log)
}

// buildDeps wires the real external clients.
func buildDeps(cfg *config.Config, log logger.Logger) (pipeline.Deps, error) {
	storage, err := oss.NewAliyun(cfg.OSS)
	if err != nil {
		return pipeline.Deps{}, fmt.Errorf("object storage: %w", err)
	}

	var provider summarizer.Provider
	if cfg.Summary.Provider == "gemini" {
		provider = summarizer.NewGemini(cfg.GeminiKeys(), cfg.Summary.Model, log)
	} else {
		provider = summarizer.NewDeepSeek(cfg.Summary, log)
	}

	return pipeline.Deps{
		Exec:       executor.New(),
		Storage:    storage,
		Transcribe: transcriber.NewDashScope(cfg.Transcribe, "", log),
		Summarize:  provider,
	}, nil
}

// runWatch runs the pipeline once, then keeps watching the input directory
// and re-runs whenever new media lands, until interrupted.
func runWatch(ctx context.Context, cfg *config.Config, runOnce watcher.RunHandler, log logger.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := runOnce(ctx); err != nil {
		log.Error(ctx, "Initial run failed: %v", err)
	}

	w, err := watcher.New(cfg.Paths.Input, runOnce, 2*time.Second, log)
	if err != nil {
		return err
	}
	defer w.Stop()

	errChan := make(chan error, 1)
	go func() {
		if err := w.Start(ctx); err != nil && err != context.Canceled {
			errChan <- err
		}
	}()

	log.Info(ctx, "Watching %s for new media. Press Ctrl+C to stop", cfg.Paths.Input)

	select {
	case <-sigChan:
		log.Info(ctx, "Shutdown signal received")
		cancel()
		return nil
	case err := <-errChan:
		return err
	}
}

// ensureDirectories creates required directories if they don't exist
func ensureDirectories(cfg *config.Config) error {
	dirs := []string{
		cfg.Paths.Input,
		cfg.Paths.Output,
		filepath.Join(cfg.Paths.Output, pipeline.IntermediatesDir),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}
