package assistant

import (
	"context"
	"fmt"
	"strings"

	"spendchat/internal/llm"
)

// Summarizer turns a query plus retrieved expense texts into a natural
// language answer. The reply is presentation, not data; it is returned as-is.
type Summarizer struct {
	completer llm.Completer
	invoker   *llm.Invoker
}

// NewSummarizer creates a summarizer whose model calls go through the invoker.
func NewSummarizer(completer llm.Completer, invoker *llm.Invoker) *Summarizer {
	return &Summarizer{completer: completer, invoker: invoker}
}

// Summarize composes the answer from the matched expense texts, in rank order.
func (s *Summarizer) Summarize(ctx context.Context, query string, matchedTexts []string) (string, error) {
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(query)
	b.WriteString("\n\nMatched expense entries:\n")
	for i, t := range matchedTexts {
		fmt.Fprintf(&b, "%d. %s\n", i+1, t)
	}

	reply, err := s.invoker.Do(ctx, func(ctx context.Context) (string, error) {
		return s.completer.Generate(ctx, summarySystemPrompt, b.String())
	})
	if err != nil {
		return "", fmt.Errorf("Summarize: %w", err)
	}
	return reply, nil
}
