package vecindex

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// One writer at a time is all this process needs.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			id        TEXT PRIMARY KEY,
			content   TEXT NOT NULL,
			metadata  TEXT NOT NULL,
			embedding TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create documents table: %w", err)
	}
	return db, nil
}

func insertDocument(ctx context.Context, db *sql.DB, doc Document, vector []float32) error {
	meta, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	emb, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("encode embedding: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT OR REPLACE INTO documents (id, content, metadata, embedding)
		VALUES (?, ?, ?, ?)
	`, doc.ID, doc.Text, string(meta), string(emb))
	if err != nil {
		return fmt.Errorf("insert document %s: %w", doc.ID, err)
	}
	return nil
}

// countDocuments reports how many documents the table holds, sentinel
// included. INSERT OR REPLACE makes insert counting ambiguous, so the
// manifest count is always derived from here.
func countDocuments(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// searchDocuments scans all stored vectors and ranks them by cosine
// similarity to the query vector. The initialization sentinel never appears
// in results.
func searchDocuments(ctx context.Context, db *sql.DB, query []float32, k int) ([]Document, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, content, metadata, embedding FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			doc      Document
			metaRaw  string
			embRaw   string
			embedded []float32
		)
		if err := rows.Scan(&doc.ID, &doc.Text, &metaRaw, &embRaw); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		if err := json.Unmarshal([]byte(metaRaw), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for %s: %w", doc.ID, err)
		}
		if doc.Metadata.Initialization {
			continue
		}
		if err := json.Unmarshal([]byte(embRaw), &embedded); err != nil {
			return nil, fmt.Errorf("decode embedding for %s: %w", doc.ID, err)
		}
		doc.Score = cosineSimilarity(query, embedded)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	sort.SliceStable(docs, func(i, j int) bool { return docs[i].Score > docs[j].Score })
	if len(docs) > k {
		docs = docs[:k]
	}
	return docs, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
