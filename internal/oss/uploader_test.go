package oss

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nguyentantai21042004/audio-digest/internal/config"
	"github.com/nguyentantai21042004/audio-digest/internal/logger"
)

// fakeClient is an in-memory object store.
type fakeClient struct {
	mu      sync.Mutex
	objects map[string]string // key -> content hash
	puts    int
	putErr  error
}

func newFakeClient() *fakeClient {
	return &fakeClient{objects: make(map[string]string)}
}

func (f *fakeClient) Put(ctx context.Context, localPath, key, contentHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.objects[key] = contentHash
	f.puts++
	return nil
}

func (f *fakeClient) Exists(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeClient) ContentHash(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objects[key], nil
}

func (f *fakeClient) SignURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "https://bucket.example.com/" + key + "?signed", nil
}

func ossCfg() config.OSSConfig {
	return config.OSSConfig{Prefix: "audio_transcription", URLTTLSeconds: 86400}
}

func audioFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestUploadProducesSignedURLs(t *testing.T) {
	client := newFakeClient()
	u := NewUploader(client, ossCfg(), 2, logger.New("error"))

	a := audioFile(t, "a.mp3", "aaa")
	b := audioFile(t, "b.wav", "bbb")

	out, stats, err := u.Run(context.Background(), []string{a, "", b})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if out[0] != "https://bucket.example.com/audio_transcription/001.mp3?signed" {
		t.Errorf("out[0] = %q", out[0])
	}
	if out[1] != "" {
		t.Errorf("out[1] = %q, want empty (blank input)", out[1])
	}
	if out[2] != "https://bucket.example.com/audio_transcription/003.wav?signed" {
		t.Errorf("out[2] = %q", out[2])
	}
	if stats.Succeeded != 2 || stats.Blank != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if client.puts != 2 {
		t.Errorf("puts = %d, want 2", client.puts)
	}
}

func TestUploadSkipsIdenticalObject(t *testing.T) {
	client := newFakeClient()
	u := NewUploader(client, ossCfg(), 1, logger.New("error"))

	a := audioFile(t, "a.mp3", "same content")
	hash, err := FileHash(a)
	if err != nil {
		t.Fatal(err)
	}
	client.objects["audio_transcription/001.mp3"] = hash

	out, stats, err := u.Run(context.Background(), []string{a})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if client.puts != 0 {
		t.Errorf("puts = %d, want 0 (identical object skipped)", client.puts)
	}
	if stats.Reused != 1 {
		t.Errorf("stats.Reused = %d, want 1", stats.Reused)
	}
	if out[0] == "" {
		t.Error("out[0] should still carry a signed URL")
	}
}

func TestUploadReplacesChangedObject(t *testing.T) {
	client := newFakeClient()
	u := NewUploader(client, ossCfg(), 1, logger.New("error"))

	a := audioFile(t, "a.mp3", "new content")
	client.objects["audio_transcription/001.mp3"] = "stale-hash"

	_, stats, err := u.Run(context.Background(), []string{a})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if client.puts != 1 {
		t.Errorf("puts = %d, want 1 (hash mismatch forces re-upload)", client.puts)
	}
	if stats.Succeeded != 1 {
		t.Errorf("stats.Succeeded = %d, want 1", stats.Succeeded)
	}
}

func TestUploadFailureBlanksSlot(t *testing.T) {
	client := newFakeClient()
	client.putErr = errors.New("network down")
	u := NewUploader(client, ossCfg(), 1, logger.New("error"))

	a := audioFile(t, "a.mp3", "aaa")
	out, stats, err := u.Run(context.Background(), []string{a})
	if err != nil {
		t.Fatalf("Run() error = %v (per-item failures must not abort)", err)
	}

	if out[0] != "" || stats.Failed != 1 {
		t.Errorf("out = %v, stats = %+v, want one blank failure", out, stats)
	}
}

func TestUploadMissingLocalFile(t *testing.T) {
	u := NewUploader(newFakeClient(), ossCfg(), 1, logger.New("error"))

	out, stats, err := u.Run(context.Background(), []string{"/nonexistent/a.mp3"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out[0] != "" || stats.Failed != 1 {
		t.Errorf("out = %v, stats = %+v", out, stats)
	}
}

func TestKeyDeterministic(t *testing.T) {
	u := NewUploader(newFakeClient(), ossCfg(), 1, logger.New("error"))

	tests := []struct {
		idx  int
		path string
		want string
	}{
		{0, "/x/a.mp3", "audio_transcription/001.mp3"},
		{11, "/x/b.WAV", "audio_transcription/012.wav"},
		{2, "/x/noext", "audio_transcription/003.mp3"},
	}
	for _, tt := range tests {
		if got := u.Key(tt.idx, tt.path); got != tt.want {
			t.Errorf("Key(%d, %q) = %q, want %q", tt.idx, tt.path, got, tt.want)
		}
	}
}

func TestFileHashStable(t *testing.T) {
	a := audioFile(t, "a.bin", "content")

	h1, err := FileHash(a)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := FileHash(a)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Errorf("hash not stable: %q vs %q", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(h1))
	}
}
