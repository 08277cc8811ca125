package assistant

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"spendchat/internal/domain"
	"spendchat/internal/taxonomy"
	"spendchat/internal/vecindex"
)

// QuitToken ends the interaction loop cleanly.
const QuitToken = "q"

// DefaultTopK is how many index matches a retrieval cycle requests.
const DefaultTopK = 5

// ExpenseStore is the slice of the persistence contract the loop needs.
type ExpenseStore interface {
	SaveExpense(ctx context.Context, e *domain.Expense) (string, error)
}

// ExpenseIndex is the slice of the semantic index contract the loop needs.
type ExpenseIndex interface {
	AddExpense(ctx context.Context, e *domain.Expense) error
	SimilaritySearch(ctx context.Context, query string, k int) []vecindex.Document
}

// Session drives one conversation: each input line runs to completion through
// classification and either the record path or the retrieval path. Cycles are
// independent; only the store and index handles persist across them.
type Session struct {
	classifier *Classifier
	extractor  *Extractor
	summarizer *Summarizer
	store      ExpenseStore
	index      ExpenseIndex
	taxonomy   *taxonomy.Taxonomy
	log        zerolog.Logger
	topK       int
}

// NewSession wires the pipeline components together.
func NewSession(
	classifier *Classifier,
	extractor *Extractor,
	summarizer *Summarizer,
	store ExpenseStore,
	index ExpenseIndex,
	tax *taxonomy.Taxonomy,
	log zerolog.Logger,
) *Session {
	return &Session{
		classifier: classifier,
		extractor:  extractor,
		summarizer: summarizer,
		store:      store,
		index:      index,
		taxonomy:   tax,
		log:        log,
		topK:       DefaultTopK,
	}
}

// Run reads one line at a time until EOF or the quit token. Any error inside
// a cycle is reported and the loop continues; a single bad input never
// terminates the process.
func (s *Session) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	fmt.Fprintln(w, "Tell me about an expense, or ask about past ones. Enter 'q' to quit.")

	scanner := bufio.NewScanner(r)
	for {
		fmt.Fprint(w, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == QuitToken {
			fmt.Fprintln(w, "Bye.")
			break
		}

		reply, err := s.HandleLine(ctx, line)
		if err != nil {
			s.log.Error().Err(err).Str("input", line).Msg("Cycle failed")
			fmt.Fprintf(w, "Sorry, that didn't work: %v\n", err)
			continue
		}
		fmt.Fprintln(w, reply)
	}
	return scanner.Err()
}

// HandleLine runs one full cycle for a single input and returns the text to
// show the user.
func (s *Session) HandleLine(ctx context.Context, line string) (string, error) {
	intent, err := s.classifier.Classify(ctx, line)
	if err != nil {
		return "", err
	}

	switch intent {
	case IntentAdd:
		return s.recordExpense(ctx, line)
	case IntentRetrieve:
		return s.answerQuery(ctx, line)
	default:
		return "", fmt.Errorf("%w: %d", ErrIntentParse, intent)
	}
}

// recordExpense extracts a candidate, promotes it against the taxonomy,
// persists the record, and mirrors it into the semantic index. Store and
// index writes are sequential with no rollback: at-least-once, not
// exactly-once.
func (s *Session) recordExpense(ctx context.Context, line string) (string, error) {
	candidate, err := s.extractor.Extract(ctx, line)
	if err != nil {
		return "", err
	}

	// Promotion gate: nothing is persisted or indexed unless the candidate
	// fits the taxonomy.
	if err := s.taxonomy.Validate(candidate.Category, candidate.Subcategories); err != nil {
		return "", err
	}

	expense := domain.FromCandidate(candidate)
	id, err := s.store.SaveExpense(ctx, expense)
	if err != nil {
		return "", fmt.Errorf("saving expense: %w", err)
	}

	if err := s.index.AddExpense(ctx, expense); err != nil {
		return "", fmt.Errorf("expense %s saved but indexing failed: %w", id, err)
	}

	s.log.Info().
		Str("expense_id", id).
		Str("category", expense.Category).
		Str("amount", expense.Amount.StringFixed(2)).
		Msg("Expense recorded")

	return fmt.Sprintf("%s (₹%s, %s)", expense.Confirmation, expense.Amount.StringFixed(2), expense.Category), nil
}

// answerQuery retrieves the nearest expense entries and has the model compose
// an answer. Both the summary and the raw matches are reported.
func (s *Session) answerQuery(ctx context.Context, line string) (string, error) {
	docs := s.index.SimilaritySearch(ctx, line, s.topK)
	if len(docs) == 0 {
		return "No matching expenses found.", nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}

	summary, err := s.summarizer.Summarize(ctx, line, texts)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(summary)
	b.WriteString("\n\nMatched entries:\n")
	for _, t := range texts {
		b.WriteString("  - " + t + "\n")
	}
	return b.String(), nil
}
