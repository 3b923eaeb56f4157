package summarizer

import "context"

// Provider is the text-generation collaborator behind the summary stage.
type Provider interface {
	// Complete sends a system instruction and user text to the service
	// and returns the generated text.
	Complete(ctx context.Context, systemPrompt, userText string) (string, error)
}
