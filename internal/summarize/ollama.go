package summarize

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

// OllamaCompleter runs completions against a local or remote Ollama host.
type OllamaCompleter struct {
	client *api.Client
	model  string
}

// NewOllamaCompleter builds a completer. The OLLAMA_HOST environment variable
// wins; host is the fallback.
func NewOllamaCompleter(host, model string) (*OllamaCompleter, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("ollama model is required")
	}

	client, err := api.ClientFromEnvironment()
	if err != nil {
		parsedURL, parseErr := url.Parse(host)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid ollama host %q: %w", host, parseErr)
		}
		client = api.NewClient(parsedURL, nil)
	}

	return &OllamaCompleter{client: client, model: model}, nil
}

func (c *OllamaCompleter) Model() string { return c.model }

// Complete sends one non-streaming generate request and maps Ollama's eval
// counts onto token accounting.
func (c *OllamaCompleter) Complete(ctx context.Context, prompt string) (*Completion, error) {
	req := &api.GenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: new(bool), // false
		Options: map[string]interface{}{
			"temperature": 0.3,
		},
	}

	started := time.Now()
	var text strings.Builder
	var promptTokens, completionTokens int
	err := c.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		text.WriteString(resp.Response)
		if resp.PromptEvalCount > 0 {
			promptTokens = resp.PromptEvalCount
		}
		if resp.EvalCount > 0 {
			completionTokens = resp.EvalCount
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama generate failed: %w", err)
	}

	return &Completion{
		Text:             text.String(),
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		Latency:          time.Since(started),
	}, nil
}
