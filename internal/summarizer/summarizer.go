// Package summarizer implements the final stage: each transcript goes to
// a text-generation service and comes back as a Markdown summary, with an
// optional link to the item's original media file prepended.
package summarizer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nguyentantai21042004/audio-digest/internal/logger"
	"github.com/nguyentantai21042004/audio-digest/internal/stage"
)

const systemPrompt = `请总结以下逐字稿的主要内容，每一行是一句话，冒号前是说话人ID，冒号后是说话内容。
要求：使用Markdown格式输出总结，把说话人的意思表达清楚，重要的语段详细一些，6000字以内即可。如果能推断出说话人身份，可以省略说话人ID，直接用身份称呼，并在结尾注明身份对应的说话人ID。
注意：以下文字是AI从音频中识别的，可能会有一些不必要的语气词，请适当忽略。说话人普通话不标准、说话不流利等因素都可能导致识别不准，遇到错误时请适当根据上下文推测。`

type Summarizer struct {
	provider   Provider
	outputDir  string
	origins    []string // per-index original media paths, may be empty
	exportDocx bool
	logger     logger.Logger
	runner     *stage.Runner
}

// New creates the summary stage writing {item number}_summary.md files
// into outputDir. origins supplies the original media path per index for
// the source link; pass nil to omit links.
func New(provider Provider, outputDir string, origins []string, workers int, exportDocx bool, log logger.Logger) *Summarizer {
	s := &Summarizer{
		provider:   provider,
		outputDir:  outputDir,
		origins:    origins,
		exportDocx: exportDocx,
		logger:     log,
	}
	s.runner = stage.NewRunner(s, workers, log)
	return s
}

func (s *Summarizer) Name() string { return "summarize" }

func (s *Summarizer) Run(ctx context.Context, items []string) ([]string, stage.Stats, error) {
	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return nil, stage.Stats{}, fmt.Errorf("create summary dir: %w", err)
	}
	out, stats := s.runner.Run(ctx, items)
	return out, stats, nil
}

func (s *Summarizer) summaryPath(idx int) string {
	return filepath.Join(s.outputDir, stage.ItemNumber(idx)+"_summary.md")
}

// Reuse accepts a non-empty prior summary file.
func (s *Summarizer) Reuse(ctx context.Context, idx int, input string) (string, bool) {
	path := s.summaryPath(idx)
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return "", false
	}
	return path, true
}

func (s *Summarizer) Process(ctx context.Context, idx int, input string) (string, error) {
	transcript, err := os.ReadFile(input)
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}
	if len(strings.TrimSpace(string(transcript))) == 0 {
		return "", fmt.Errorf("transcript %s is empty", input)
	}

	summary, err := s.provider.Complete(ctx, systemPrompt, string(transcript))
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}

	content := strings.TrimSpace(summary) + "\n"
	if origin := s.originFor(idx); origin != "" {
		content = fmt.Sprintf("[%s](%s)\n\n%s", filepath.Base(origin), origin, content)
	}

	path := s.summaryPath(idx)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}

	if s.exportDocx {
		docxPath := strings.TrimSuffix(path, ".md") + ".docx"
		title := stage.ItemNumber(idx)
		if origin := s.originFor(idx); origin != "" {
			title = strings.TrimSuffix(filepath.Base(origin), filepath.Ext(origin))
		}
		if err := markdownToDocx(title, content, docxPath); err != nil {
			// docx export is best-effort; the markdown summary is the artifact
			s.logger.Warn(ctx, "[summarize] item %s: docx export failed: %v", stage.ItemNumber(idx), err)
		}
	}

	return path, nil
}

func (s *Summarizer) originFor(idx int) string {
	if idx < 0 || idx >= len(s.origins) {
		return ""
	}
	return s.origins[idx]
}
