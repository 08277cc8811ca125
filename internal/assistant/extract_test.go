package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"spendchat/internal/llm"
	"spendchat/internal/taxonomy"
)

const testDefinition = `1. Food
- Groceries
- Dining out
- Food delivery

2. Transportation
- Fuel
- Cab rides
`

func testTaxonomy(t *testing.T) *taxonomy.Taxonomy {
	t.Helper()
	tax, err := taxonomy.Parse(strings.NewReader(testDefinition))
	if err != nil {
		t.Fatalf("taxonomy.Parse failed: %v", err)
	}
	return tax
}

func TestParseExtractionReply(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		wantAmount string
		wantErr    error
	}{
		{
			name:       "plain json",
			reply:      `{"amount": 500, "category": "Food", "sub-category": ["Dining out"], "response": "Recorded 500 for lunch"}`,
			wantAmount: "500",
		},
		{
			name: "fenced json",
			reply: "```json\n" +
				`{"amount": 2490, "category": "Food", "sub-category": ["Groceries"], "response": "Recorded $30 as 2490"}` +
				"\n```",
			wantAmount: "2490",
		},
		{
			name:       "json surrounded by chatter",
			reply:      `Sure! {"amount": 120.5, "category": "Transportation", "sub-category": ["Cab rides"], "response": "Recorded a cab ride"} Hope that helps.`,
			wantAmount: "120.5",
		},
		{
			name:    "not json",
			reply:   "I could not find an expense in that.",
			wantErr: ErrExtractionParse,
		},
		{
			name:    "missing amount",
			reply:   `{"category": "Food", "sub-category": ["Dining out"], "response": "ok"}`,
			wantErr: ErrExtractionParse,
		},
		{
			name:    "missing category",
			reply:   `{"amount": 500, "sub-category": ["Dining out"], "response": "ok"}`,
			wantErr: ErrExtractionParse,
		},
		{
			name:    "empty subcategory array",
			reply:   `{"amount": 500, "category": "Food", "sub-category": [], "response": "ok"}`,
			wantErr: ErrExtractionParse,
		},
		{
			name:    "missing response",
			reply:   `{"amount": 500, "category": "Food", "sub-category": ["Dining out"]}`,
			wantErr: ErrExtractionParse,
		},
		{
			name:    "amount not a number",
			reply:   `{"amount": "five hundred", "category": "Food", "sub-category": ["Dining out"], "response": "ok"}`,
			wantErr: ErrExtractionParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseExtractionReply(tt.reply)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("parseExtractionReply() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseExtractionReply() failed: %v", err)
			}
			want := decimal.RequireFromString(tt.wantAmount)
			if !got.Amount.Equal(want) {
				t.Errorf("Amount = %s, want %s", got.Amount, want)
			}
			if got.Confirmation == "" {
				t.Error("expected a confirmation text")
			}
		})
	}
}

// The extractor itself performs no taxonomy validation; an unknown category
// passes through and is rejected at promotion time.
func TestExtractDoesNotValidateTaxonomy(t *testing.T) {
	completer := &fakeCompleter{
		generateFunc: func(ctx context.Context, systemPrompt, userText string) (string, error) {
			return `{"amount": 100, "category": "Gambling", "sub-category": ["Poker"], "response": "ok"}`, nil
		},
	}
	x := NewExtractor(completer, llm.NewInvoker(1), testTaxonomy(t))

	candidate, err := x.Extract(context.Background(), "lost 100 at poker")
	if err != nil {
		t.Fatalf("Extract() failed: %v", err)
	}
	if candidate.Category != "Gambling" {
		t.Errorf("Category = %q, want Gambling", candidate.Category)
	}
}

func TestExtractionPromptContent(t *testing.T) {
	prompt := buildExtractionPrompt(testTaxonomy(t))

	for _, want := range []string{
		"1 USD = 83 INR",
		"1 EUR = 90 INR",
		"1 GBP = 105 INR",
		"Food:",
		"- Dining out",
		"Transportation:",
		"- Cab rides",
		`"sub-category"`,
		"STRICT JSON",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("extraction prompt missing %q", want)
		}
	}
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "already clean", input: `{"a":1}`, want: `{"a":1}`},
		{name: "json fence", input: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "bare fence", input: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "leading and trailing prose", input: `here you go {"a":1} done`, want: `{"a":1}`},
		{name: "whitespace", input: "  {\"a\":1}\n", want: `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanModelJSON(tt.input); got != tt.want {
				t.Errorf("cleanModelJSON(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
