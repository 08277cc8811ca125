// Command spendchat is the conversational expense tracker. It reads one line
// of input at a time: free text describing an expense is extracted and
// recorded; questions about past expenses are answered from the semantic
// index. 'q' quits.
package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"

	"spendchat/internal/assistant"
	"spendchat/internal/backup"
	"spendchat/internal/config"
	"spendchat/internal/llm"
	"spendchat/internal/logger"
	storebq "spendchat/internal/store/bigquery"
	"spendchat/internal/taxonomy"
	"spendchat/internal/vecindex"
)

func main() {
	log := logger.New()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Configuration invalid")
	}

	ctx := logger.WithContext(context.Background(), log)

	tax, err := loadTaxonomy(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load category taxonomy")
	}

	client, err := llm.NewClient(ctx, cfg.GeminiAPIKey, cfg.Model, cfg.EmbedModel)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create model client")
	}
	invoker := llm.NewInvoker(cfg.MaxAttempts)

	repo, err := storebq.NewExpenseRepository(ctx, cfg.ProjectID, cfg.Dataset, tax)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to the expense store")
	}
	defer repo.Close()

	index := vecindex.New(cfg.IndexDir, client, log)
	defer index.Close()

	session := assistant.NewSession(
		assistant.NewClassifier(client, invoker),
		assistant.NewExtractor(client, invoker, tax),
		assistant.NewSummarizer(client, invoker),
		repo,
		index,
		tax,
		log,
	)

	if err := session.Run(ctx, os.Stdin, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("Reading input failed")
	}

	snapshotIndex(ctx, cfg, index, log)
}

func loadTaxonomy(cfg *config.Config) (*taxonomy.Taxonomy, error) {
	if cfg.TaxonomyFile != "" {
		return taxonomy.LoadFile(cfg.TaxonomyFile)
	}
	return taxonomy.Load()
}

// snapshotIndex uploads the index artifacts on clean shutdown when a backup
// bucket is configured. Failures are logged, not fatal.
func snapshotIndex(ctx context.Context, cfg *config.Config, index *vecindex.Index, log zerolog.Logger) {
	if cfg.BackupBucket == "" {
		return
	}
	dbPath, manifestPath := index.ArtifactPaths()
	if _, err := os.Stat(manifestPath); err != nil {
		return // nothing was ever indexed
	}
	if err := backup.Snapshot(ctx, cfg.BackupBucket, dbPath, manifestPath); err != nil {
		log.Error().Err(err).Str("bucket", cfg.BackupBucket).Msg("Index snapshot failed")
		return
	}
	log.Info().Str("bucket", cfg.BackupBucket).Msg("Index snapshot uploaded")
}
