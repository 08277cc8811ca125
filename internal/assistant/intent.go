// Package assistant implements the conversational pipeline: intent routing,
// structured expense extraction, retrieval summarization, and the interaction
// loop that ties them to the store and the semantic index.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"spendchat/internal/llm"
)

// Intent is the user's high-level goal for one input.
type Intent int

const (
	// IntentAdd records a new expense.
	IntentAdd Intent = iota + 1
	// IntentRetrieve queries past expenses.
	IntentRetrieve
)

// ErrIntentParse indicates the model returned something other than the two
// expected tokens. The caller decides how to handle it; this implementation
// surfaces it to the user and aborts the cycle.
var ErrIntentParse = errors.New("assistant: unrecognized intent token")

// Classifier maps free text to an Intent using the model.
type Classifier struct {
	completer llm.Completer
	invoker   *llm.Invoker
}

// NewClassifier creates a classifier whose model calls go through the invoker.
func NewClassifier(completer llm.Completer, invoker *llm.Invoker) *Classifier {
	return &Classifier{completer: completer, invoker: invoker}
}

// Classify asks the model for a single bare token and matches it after
// lower-casing and trimming.
func (c *Classifier) Classify(ctx context.Context, text string) (Intent, error) {
	reply, err := c.invoker.Do(ctx, func(ctx context.Context) (string, error) {
		return c.completer.Generate(ctx, intentSystemPrompt, text)
	})
	if err != nil {
		return 0, fmt.Errorf("Classify: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(reply)) {
	case "add":
		return IntentAdd, nil
	case "retrieve":
		return IntentRetrieve, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrIntentParse, reply)
	}
}
