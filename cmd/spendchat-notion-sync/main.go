// Command spendchat-notion-sync exports every persisted expense record to a
// Notion database. Pages are keyed by the Record ID property: reruns update
// existing pages instead of creating duplicates.
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"spendchat/internal/config"
	"spendchat/internal/logger"
	"spendchat/internal/notion"
	storebq "spendchat/internal/store/bigquery"
	"spendchat/internal/taxonomy"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "list the records that would be exported without creating pages")
	flag.Parse()

	log := logger.New()

	cfg := config.Load()
	if err := cfg.ValidateNotion(); err != nil {
		log.Fatal().Err(err).Msg("Configuration invalid")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	tax, err := taxonomy.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load category taxonomy")
	}

	repo, err := storebq.NewExpenseRepository(ctx, cfg.ProjectID, cfg.Dataset, tax)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to the expense store")
	}
	defer repo.Close()

	expenses, err := repo.ListExpenses(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list expenses")
	}
	log.Info().Int("count", len(expenses)).Msg("Loaded expense records")

	if *dryRun {
		for _, e := range expenses {
			fmt.Printf("%s  %s  %s  %s\n", e.ID, e.CreatedAt.Format("2006-01-02"), e.Category, e.Amount.StringFixed(2))
		}
		return
	}

	client := notion.NewClient(cfg.NotionToken)
	created, updated, err := notion.SyncExpenses(ctx, client, cfg.NotionDatabaseID, expenses)
	if err != nil {
		log.Fatal().Err(err).Msg("Export failed")
	}
	fmt.Printf("Exported %d expense records to Notion (%d created, %d updated).\n", len(expenses), created, updated)
}
