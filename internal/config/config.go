// Package config loads process configuration from environment variables.
// A .env file in the working directory is honored when present.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// ErrCredentialMissing indicates a required credential is not configured.
// This is fatal at startup.
var ErrCredentialMissing = errors.New("config: required credential missing")

// Config holds all runtime configuration for the assistant.
type Config struct {
	// Gemini
	GeminiAPIKey string
	Model        string
	EmbedModel   string
	MaxAttempts  int

	// BigQuery
	ProjectID string
	Dataset   string

	// Semantic index
	IndexDir     string
	BackupBucket string // optional GCS bucket for index snapshots

	// Taxonomy override
	TaxonomyFile string // optional, embedded definition used when empty

	// Notion sync (required by the sync binary only)
	NotionToken      string
	NotionDatabaseID string
}

// Load reads configuration from the environment. Missing optional values get
// defaults; required values are checked by Validate.
func Load() *Config {
	// Ignore the error: a missing .env file just means plain env vars.
	_ = godotenv.Load()

	return &Config{
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		Model:        getEnv("SPENDCHAT_MODEL", "gemini-2.5-flash"),
		EmbedModel:   getEnv("SPENDCHAT_EMBED_MODEL", "gemini-embedding-001"),
		MaxAttempts:  getEnvInt("SPENDCHAT_MAX_ATTEMPTS", 5),

		ProjectID: getEnv("BIGQUERY_PROJECT_ID", ""),
		Dataset:   getEnv("BIGQUERY_DATASET", "spendchat"),

		IndexDir:     getEnv("SPENDCHAT_INDEX_DIR", "./index"),
		BackupBucket: getEnv("SPENDCHAT_BACKUP_BUCKET", ""),

		TaxonomyFile: getEnv("SPENDCHAT_TAXONOMY_FILE", ""),

		NotionToken:      getEnv("NOTION_TOKEN", ""),
		NotionDatabaseID: getEnv("NOTION_DATABASE_ID", ""),
	}
}

// Validate checks the configuration the interactive assistant needs.
func (c *Config) Validate() error {
	var missing []string
	if c.GeminiAPIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	if c.ProjectID == "" {
		missing = append(missing, "BIGQUERY_PROJECT_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrCredentialMissing, strings.Join(missing, ", "))
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("config: SPENDCHAT_MAX_ATTEMPTS must be at least 1, got %d", c.MaxAttempts)
	}
	return nil
}

// ValidateNotion checks the configuration the Notion sync binary needs.
func (c *Config) ValidateNotion() error {
	var missing []string
	if c.NotionToken == "" {
		missing = append(missing, "NOTION_TOKEN")
	}
	if c.NotionDatabaseID == "" {
		missing = append(missing, "NOTION_DATABASE_ID")
	}
	if c.ProjectID == "" {
		missing = append(missing, "BIGQUERY_PROJECT_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrCredentialMissing, strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
