package summarizer

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/nguyentantai21042004/audio-digest/internal/logger"
)

type implGemini struct {
	apiKeys []string
	model   string
	logger  logger.Logger

	mu         sync.Mutex
	currentKey int
}

// NewGemini creates a Provider that rotates through the supplied Gemini
// API keys on quota errors
func NewGemini(apiKeys []string, model string, log logger.Logger) Provider {
	return &implGemini{
		apiKeys: apiKeys,
		model:   model,
		logger:  log,
	}
}

func (p *implGemini) Complete(ctx context.Context, systemPrompt, userText string) (string, error) {
	prompt := systemPrompt + "\n\n" + userText

	attempts := len(p.apiKeys)
	var lastErr error

	for range attempts {
		key, keyIdx := p.activeKey()

		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			lastErr = fmt.Errorf("create client: %w", err)
			p.rotateKey(keyIdx)
			continue
		}

		result, err := client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), nil)
		if err != nil {
			errMsg := err.Error()
			if strings.Contains(errMsg, "429") || strings.Contains(errMsg, "quota") || strings.Contains(errMsg, "RESOURCE_EXHAUSTED") {
				p.logger.Warn(ctx, "Key %d rate limited, rotating...", keyIdx+1)
				p.rotateKey(keyIdx)
				lastErr = err
				continue
			}
			return "", fmt.Errorf("generate content: %w", err)
		}

		if result != nil && len(result.Candidates) > 0 && result.Candidates[0].Content != nil {
			var text string
			for _, part := range result.Candidates[0].Content.Parts {
				if part.Text != "" {
					text += part.Text
				}
			}
			return text, nil
		}

		return "", fmt.Errorf("empty response from Gemini")
	}

	return "", fmt.Errorf("all API keys exhausted: %w", lastErr)
}

func (p *implGemini) activeKey() (string, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.apiKeys[p.currentKey], p.currentKey
}

// rotateKey advances past keyIdx unless another worker already did
func (p *implGemini) rotateKey(keyIdx int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.currentKey == keyIdx {
		p.currentKey = (p.currentKey + 1) % len(p.apiKeys)
	}
}
