package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"spendchat/internal/domain"
	"spendchat/internal/llm"
	"spendchat/internal/taxonomy"
)

// ErrExtractionParse indicates the model reply was not the strict JSON object
// the extractor asked for, or a required field was missing.
var ErrExtractionParse = errors.New("assistant: extraction reply is not a valid expense")

// Extractor maps free text to a currency-normalized expense candidate. It does
// not validate category membership; that happens at promotion time.
type Extractor struct {
	completer llm.Completer
	invoker   *llm.Invoker
	prompt    string
}

// NewExtractor builds the extraction prompt from the taxonomy once and reuses
// it for every call.
func NewExtractor(completer llm.Completer, invoker *llm.Invoker, tax *taxonomy.Taxonomy) *Extractor {
	return &Extractor{
		completer: completer,
		invoker:   invoker,
		prompt:    buildExtractionPrompt(tax),
	}
}

// extractionReply is the strict JSON shape requested from the model.
type extractionReply struct {
	Amount        json.Number `json:"amount"`
	Category      string      `json:"category"`
	Subcategories []string    `json:"sub-category"`
	Response      string      `json:"response"`
}

// Extract invokes the model and decodes its reply into a candidate. The reply
// is untrusted: category and subcategories may not exist in the taxonomy.
func (x *Extractor) Extract(ctx context.Context, text string) (domain.Candidate, error) {
	reply, err := x.invoker.Do(ctx, func(ctx context.Context) (string, error) {
		return x.completer.Generate(ctx, x.prompt, text)
	})
	if err != nil {
		return domain.Candidate{}, fmt.Errorf("Extract: %w", err)
	}

	return parseExtractionReply(reply)
}

func parseExtractionReply(reply string) (domain.Candidate, error) {
	clean := cleanModelJSON(reply)

	dec := json.NewDecoder(strings.NewReader(clean))
	dec.UseNumber()
	var parsed extractionReply
	if err := dec.Decode(&parsed); err != nil {
		return domain.Candidate{}, fmt.Errorf("%w: %v", ErrExtractionParse, err)
	}

	if parsed.Amount == "" {
		return domain.Candidate{}, fmt.Errorf("%w: missing field \"amount\"", ErrExtractionParse)
	}
	if parsed.Category == "" {
		return domain.Candidate{}, fmt.Errorf("%w: missing field \"category\"", ErrExtractionParse)
	}
	if len(parsed.Subcategories) == 0 {
		return domain.Candidate{}, fmt.Errorf("%w: missing field \"sub-category\"", ErrExtractionParse)
	}
	if parsed.Response == "" {
		return domain.Candidate{}, fmt.Errorf("%w: missing field \"response\"", ErrExtractionParse)
	}

	amount, err := decimal.NewFromString(parsed.Amount.String())
	if err != nil {
		return domain.Candidate{}, fmt.Errorf("%w: invalid amount %q", ErrExtractionParse, parsed.Amount)
	}

	return domain.Candidate{
		Amount:        amount,
		Category:      parsed.Category,
		Subcategories: parsed.Subcategories,
		Confirmation:  parsed.Response,
	}, nil
}
