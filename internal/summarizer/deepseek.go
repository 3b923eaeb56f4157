package summarizer

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nguyentantai21042004/audio-digest/internal/config"
	"github.com/nguyentantai21042004/audio-digest/internal/logger"
)

const completionRetries = 3

type implDeepSeek struct {
	client *openai.Client
	model  string
	logger logger.Logger
}

// NewDeepSeek creates a Provider for DeepSeek's OpenAI-compatible chat API
func NewDeepSeek(cfg config.SummaryConfig, log logger.Logger) Provider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	return &implDeepSeek{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: log,
	}
}

func (p *implDeepSeek) Complete(ctx context.Context, systemPrompt, userText string) (string, error) {
	var lastErr error

	for attempt := 0; attempt < completionRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(1<<(attempt-1)) * time.Second
			p.logger.Warn(ctx, "Completion attempt %d failed, retrying in %s: %v", attempt, wait, lastErr)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(wait):
			}
		}

		resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: p.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: userText},
			},
			Temperature: 0.3,
		})
		if err != nil {
			lastErr = err
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("empty completion response")
			continue
		}
		return resp.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("completion failed after %d attempts: %w", completionRetries, lastErr)
}
