package watcher

import "context"

// Watcher defines the interface for file system monitoring
type Watcher interface {
	Start(ctx context.Context) error
	Stop() error
}

// RunHandler executes one pipeline run over the input directory
type RunHandler func(ctx context.Context) error
