package providers

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ChamsBouzaiene/dodo-plan/internal/engine"
)

// Transport adapts an engine.LLMClient to the conversation controller's
// Chatter: it prepends the system prompt and returns the complete reply.
type Transport struct {
	Client       engine.LLMClient
	Model        string
	SystemPrompt string
	Options      engine.ChatOptions

	// Stream requests incremental delivery; each fragment is passed to OnDelta.
	Stream  bool
	OnDelta func(text string)

	// Logger receives token accounting; nil disables it.
	Logger *log.Logger
}

// Chat sends the history and returns the full assistant text.
func (t *Transport) Chat(ctx context.Context, history []engine.ChatMessage) (string, error) {
	if t.Client == nil {
		return "", fmt.Errorf("no LLM client configured")
	}

	messages := make([]engine.ChatMessage, 0, len(history)+1)
	if t.SystemPrompt != "" {
		messages = append(messages, engine.ChatMessage{Role: engine.RoleSystem, Content: t.SystemPrompt})
	}
	for _, m := range history {
		if err := m.Validate(); err != nil {
			return "", err
		}
		messages = append(messages, m)
	}

	if t.Stream {
		return t.stream(ctx, messages)
	}

	resp, err := t.Client.Chat(ctx, t.Model, messages, t.Options)
	if err != nil {
		return "", err
	}
	t.logUsage(messages, resp.Usage)
	if resp.FinishReason == "length" && t.Logger != nil {
		t.Logger.Printf("⚠️  reply truncated at the output token limit")
	}
	return resp.Assistant.Content, nil
}

func (t *Transport) stream(ctx context.Context, messages []engine.ChatMessage) (string, error) {
	deltaCh, errCh := t.Client.Stream(ctx, t.Model, messages, t.Options)

	var text strings.Builder
	var usage engine.Usage
	for deltaCh != nil || errCh != nil {
		select {
		case ev, ok := <-deltaCh:
			if !ok {
				deltaCh = nil
				continue
			}
			switch ev.Type {
			case engine.EventTextDelta:
				text.WriteString(ev.Text)
				if t.OnDelta != nil {
					t.OnDelta(ev.Text)
				}
			case engine.EventUsage:
				usage = ev.Usage
			}
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return "", err
			}
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	t.logUsage(messages, usage)
	return text.String(), nil
}

func (t *Transport) logUsage(messages []engine.ChatMessage, usage engine.Usage) {
	if t.Logger == nil {
		return
	}
	if usage.Total > 0 {
		t.Logger.Printf("📊 tokens: prompt=%d completion=%d total=%d", usage.Prompt, usage.Completion, usage.Total)
		return
	}
	t.Logger.Printf("📊 tokens: prompt≈%d (estimated)", engine.EstimateHistoryTokens(messages))
}
