// Package vecindex maintains the semantic index over expense records: a text
// rendering plus a metadata mirror of each record, embedded and stored for
// nearest-neighbor search. The index is derived state, reconstructible from
// the authoritative store at any time.
//
// On disk the index is a directory holding two artifacts: vectors.db (the
// index structure, SQLite) and index_store.json (the companion manifest).
// Both are written on every mutating call; the manifest's existence is the
// sole signal used to decide "load existing" vs "create new".
package vecindex

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"spendchat/internal/domain"
)

const (
	dbFileName       = "vectors.db"
	manifestFileName = "index_store.json"

	// sentinelID keys the initialization document required to bootstrap an
	// empty index. It is excluded from every query result.
	sentinelID   = "__init__"
	sentinelText = "spendchat semantic index initialization document"
)

// Embedder turns texts into embedding vectors.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Metadata mirrors the fields of the authoritative expense record.
type Metadata struct {
	Identifier     string   `json:"identifier"`
	Amount         string   `json:"amount"`
	Category       string   `json:"category"`
	Subcategories  []string `json:"subcategories"`
	ISODate        string   `json:"iso_date"`
	Initialization bool     `json:"initialization,omitempty"`
}

// Document is one indexed entry. Score is populated on search results.
type Document struct {
	ID       string
	Text     string
	Metadata Metadata
	Score    float64
}

type manifest struct {
	Documents int       `json:"documents"`
	Dimension int       `json:"dimension"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Index is the semantic index adapter. It assumes a single process owns the
// on-disk artifacts; concurrent multi-process mutation is not supported.
type Index struct {
	dir      string
	embedder Embedder
	log      zerolog.Logger

	mu          sync.Mutex
	db          *sql.DB
	man         manifest
	initialized bool
}

// New creates an index rooted at dir. No I/O happens until Initialize or the
// first operation (lazy init).
func New(dir string, embedder Embedder, log zerolog.Logger) *Index {
	return &Index{dir: dir, embedder: embedder, log: log}
}

// Initialize loads the persisted index if the manifest exists, otherwise
// creates a new index seeded with the sentinel document and persists it.
// Repeated calls after a successful load are no-ops.
func (ix *Index) Initialize(ctx context.Context) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.initializeLocked(ctx)
}

func (ix *Index) initializeLocked(ctx context.Context) error {
	if ix.initialized {
		return nil
	}

	manifestPath := filepath.Join(ix.dir, manifestFileName)
	if _, err := os.Stat(manifestPath); err == nil {
		return ix.loadLocked(manifestPath)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("initialize: stat manifest: %w", err)
	}
	return ix.createLocked(ctx, manifestPath)
}

func (ix *Index) loadLocked(manifestPath string) error {
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		return fmt.Errorf("initialize: read manifest: %w", err)
	}
	var man manifest
	if err := json.Unmarshal(raw, &man); err != nil {
		return fmt.Errorf("initialize: decode manifest: %w", err)
	}

	db, err := openDB(filepath.Join(ix.dir, dbFileName))
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	ix.db = db
	ix.man = man
	ix.initialized = true
	ix.log.Info().Str("dir", ix.dir).Int("documents", man.Documents).Msg("Loaded existing semantic index")
	return nil
}

func (ix *Index) createLocked(ctx context.Context, manifestPath string) error {
	if err := os.MkdirAll(ix.dir, 0o755); err != nil {
		return fmt.Errorf("initialize: create index dir: %w", err)
	}

	db, err := openDB(filepath.Join(ix.dir, dbFileName))
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	vectors, err := ix.embedder.EmbedTexts(ctx, []string{sentinelText})
	if err != nil {
		db.Close()
		return fmt.Errorf("initialize: embed sentinel: %w", err)
	}

	sentinel := Document{
		ID:       sentinelID,
		Text:     sentinelText,
		Metadata: Metadata{Identifier: sentinelID, Initialization: true},
	}
	if err := insertDocument(ctx, db, sentinel, vectors[0]); err != nil {
		db.Close()
		return fmt.Errorf("initialize: insert sentinel: %w", err)
	}

	now := time.Now().UTC()
	ix.db = db
	ix.man = manifest{Documents: 1, Dimension: len(vectors[0]), CreatedAt: now, UpdatedAt: now}
	if err := ix.writeManifestLocked(); err != nil {
		db.Close()
		ix.db = nil
		return err
	}
	ix.initialized = true
	ix.log.Info().Str("dir", ix.dir).Msg("Created new semantic index")
	return nil
}

// AddExpense renders the record, embeds it, and appends it to the index.
// The category tag in the rendering keeps similarity search from bleeding
// across categories.
func (ix *Index) AddExpense(ctx context.Context, e *domain.Expense) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if err := ix.initializeLocked(ctx); err != nil {
		return err
	}

	doc := Document{
		ID:   e.ID,
		Text: RenderText(e),
		Metadata: Metadata{
			Identifier:    e.ID,
			Amount:        e.Amount.StringFixed(2),
			Category:      e.Category,
			Subcategories: e.Subcategories,
			ISODate:       e.CreatedAt.UTC().Format(time.RFC3339),
		},
	}

	vectors, err := ix.embedder.EmbedTexts(ctx, []string{doc.Text})
	if err != nil {
		return fmt.Errorf("AddExpense: embed document: %w", err)
	}
	if err := insertDocument(ctx, ix.db, doc, vectors[0]); err != nil {
		return fmt.Errorf("AddExpense: %w", err)
	}

	count, err := countDocuments(ctx, ix.db)
	if err != nil {
		return fmt.Errorf("AddExpense: %w", err)
	}
	ix.man.Documents = count
	ix.man.UpdatedAt = time.Now().UTC()
	return ix.writeManifestLocked()
}

// SimilaritySearch returns up to k documents nearest to the query, sentinel
// excluded. Errors never propagate: the search degrades to an empty result
// with a log line, while write failures elsewhere are surfaced.
func (ix *Index) SimilaritySearch(ctx context.Context, query string, k int) []Document {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if err := ix.initializeLocked(ctx); err != nil {
		ix.log.Error().Err(err).Msg("Semantic search unavailable, returning no matches")
		return nil
	}
	if k <= 0 {
		k = 5
	}

	vectors, err := ix.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		ix.log.Error().Err(err).Msg("Query embedding failed, returning no matches")
		return nil
	}

	docs, err := searchDocuments(ctx, ix.db, vectors[0], k)
	if err != nil {
		ix.log.Error().Err(err).Msg("Semantic search failed, returning no matches")
		return nil
	}
	return docs
}

// DeleteExpense removes the document for the given identifier. Deleting an
// unknown identifier is a no-op.
func (ix *Index) DeleteExpense(ctx context.Context, identifier string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if err := ix.initializeLocked(ctx); err != nil {
		return err
	}

	res, err := ix.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, identifier)
	if err != nil {
		return fmt.Errorf("DeleteExpense: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		count, err := countDocuments(ctx, ix.db)
		if err != nil {
			return fmt.Errorf("DeleteExpense: %w", err)
		}
		ix.man.Documents = count
		ix.man.UpdatedAt = time.Now().UTC()
		return ix.writeManifestLocked()
	}
	return nil
}

// Close releases the underlying database handle.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.db == nil {
		return nil
	}
	err := ix.db.Close()
	ix.db = nil
	ix.initialized = false
	return err
}

// ArtifactPaths returns the on-disk artifact pair, index structure first.
func (ix *Index) ArtifactPaths() (string, string) {
	return filepath.Join(ix.dir, dbFileName), filepath.Join(ix.dir, manifestFileName)
}

func (ix *Index) writeManifestLocked() error {
	raw, err := json.MarshalIndent(ix.man, "", "  ")
	if err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	path := filepath.Join(ix.dir, manifestFileName)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// RenderText produces the indexed text for an expense: upper-cased category
// tag, amount, confirmation text, subcategory list, and the creation date.
func RenderText(e *domain.Expense) string {
	return fmt.Sprintf("[%s] %s | amount: INR %s | subcategories: %s | date: %s",
		strings.ToUpper(e.Category),
		e.Confirmation,
		e.Amount.StringFixed(2),
		strings.Join(e.Subcategories, ", "),
		e.CreatedAt.Format("02 Jan 2006"),
	)
}
