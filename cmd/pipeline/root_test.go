package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nguyentantai21042004/audio-digest/internal/config"
)

func TestRootCmdFlags(t *testing.T) {
	cmd := newRootCmd()

	for _, name := range []string{"config", "input", "output", "concurrency", "audio-only", "watch"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("flag --%s not registered", name)
		}
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := &config.Config{}
	cfg.Paths.Input = filepath.Join(base, "in")
	cfg.Paths.Output = filepath.Join(base, "out")

	if err := ensureDirectories(cfg); err != nil {
		t.Fatalf("ensureDirectories() error = %v", err)
	}

	for _, dir := range []string{
		cfg.Paths.Input,
		cfg.Paths.Output,
		filepath.Join(cfg.Paths.Output, "intermediates"),
	} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("directory %s missing", dir)
		}
	}
}
