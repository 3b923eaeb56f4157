package oss

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/nguyentantai21042004/audio-digest/internal/config"
	"github.com/nguyentantai21042004/audio-digest/internal/logger"
	"github.com/nguyentantai21042004/audio-digest/internal/stage"
)

// Uploader is the upload stage: each local audio file goes to object
// storage under a deterministic key derived from its item number, and the
// item's output value is a signed retrieval URL. An object whose recorded
// content hash matches the local file is not transferred again.
type Uploader struct {
	client Client
	prefix string
	ttl    time.Duration
	logger logger.Logger
	runner *stage.Runner
}

// NewUploader creates the upload stage
func NewUploader(client Client, cfg config.OSSConfig, workers int, log logger.Logger) *Uploader {
	u := &Uploader{
		client: client,
		prefix: cfg.Prefix,
		ttl:    time.Duration(cfg.URLTTLSeconds) * time.Second,
		logger: log,
	}
	u.runner = stage.NewRunner(u, workers, log)
	return u
}

func (u *Uploader) Name() string { return "upload" }

func (u *Uploader) Run(ctx context.Context, items []string) ([]string, stage.Stats, error) {
	out, stats := u.runner.Run(ctx, items)
	return out, stats, nil
}

// Key returns the deterministic object key for item idx
func (u *Uploader) Key(idx int, localPath string) string {
	ext := strings.ToLower(filepath.Ext(localPath))
	if ext == "" {
		ext = ".mp3"
	}
	return u.prefix + "/" + stage.ItemNumber(idx) + ext
}

// Reuse skips the transfer when the stored object's hash matches the
// local file; the signed URL is still refreshed.
func (u *Uploader) Reuse(ctx context.Context, idx int, input string) (string, bool) {
	key := u.Key(idx, input)

	exists, err := u.client.Exists(ctx, key)
	if err != nil || !exists {
		return "", false
	}

	localHash, err := FileHash(input)
	if err != nil {
		return "", false
	}

	remoteHash, err := u.client.ContentHash(ctx, key)
	if err != nil || remoteHash == "" || remoteHash != localHash {
		return "", false
	}

	url, err := u.client.SignURL(ctx, key, u.ttl)
	if err != nil {
		u.logger.Warn(ctx, "[upload] item %s: object matches but signing failed: %v", stage.ItemNumber(idx), err)
		return "", false
	}
	return url, true
}

func (u *Uploader) Process(ctx context.Context, idx int, input string) (string, error) {
	key := u.Key(idx, input)

	hash, err := FileHash(input)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", input, err)
	}

	if err := u.client.Put(ctx, input, key, hash); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	url, err := u.client.SignURL(ctx, key, u.ttl)
	if err != nil {
		return "", fmt.Errorf("sign %s: %w", key, err)
	}
	return url, nil
}
