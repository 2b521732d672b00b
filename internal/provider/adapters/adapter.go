package adapters

import (
	"context"
	"errors"
	"fmt"
)

// Message is a single chat turn sent to a provider.
type Message struct {
	Role    string
	Content string
}

// CompletionRequest is a provider-neutral, non-streaming chat request.
type CompletionRequest struct {
	Model       string
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float32
	// JSON asks the provider for a single JSON object as the reply.
	JSON bool
}

// Completion is the text a provider returned plus usage accounting.
type Completion struct {
	Content      string
	Model        string
	InputTokens  int
	OutputTokens int
}

// Adapter sends completion requests to one upstream provider.
type Adapter interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// ErrEmptyCompletion is returned when a provider answers without any content.
var ErrEmptyCompletion = errors.New("provider returned no content")

// StatusError is returned for non-2xx upstream responses.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}
