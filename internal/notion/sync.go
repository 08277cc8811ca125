package notion

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"spendchat/internal/domain"
	"spendchat/internal/logger"
)

// ExpenseToProperties maps one expense record to Notion page properties.
// The confirmation text becomes the page title; the record identifier is kept
// in a text property for traceability.
func ExpenseToProperties(e *domain.Expense) notionapi.Properties {
	amount, _ := e.Amount.Float64()
	created := notionapi.Date(e.CreatedAt)

	options := make([]notionapi.Option, 0, len(e.Subcategories))
	for _, s := range e.Subcategories {
		options = append(options, notionapi.Option{Name: s})
	}

	return notionapi.Properties{
		"Expense": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{Content: e.Confirmation},
				},
			},
		},
		"Amount": notionapi.NumberProperty{
			Number: amount,
		},
		"Category": notionapi.SelectProperty{
			Select: notionapi.Option{Name: e.Category},
		},
		"Subcategories": notionapi.MultiSelectProperty{
			MultiSelect: options,
		},
		"Date": notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &created},
		},
		"Record ID": notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{Content: e.ID},
				},
			},
		},
	}
}

// SyncExpenses exports records to the database, keyed by the Record ID
// property: a record already present gets its page updated, everything else
// gets a new page created, so reruns never duplicate. A failed page is logged
// and skipped so one bad record does not abort the whole export.
func SyncExpenses(ctx context.Context, client PageService, databaseID string, expenses []*domain.Expense) (created, updated int, err error) {
	log := logger.FromContext(ctx)

	if databaseID == "" {
		return 0, 0, fmt.Errorf("SyncExpenses: database ID is empty")
	}

	pages, err := queryAllPages(ctx, client, databaseID)
	if err != nil {
		return 0, 0, fmt.Errorf("SyncExpenses: %w", err)
	}

	// Record ID -> page ID for every page already exported.
	existing := make(map[string]string)
	for _, page := range pages {
		if id := extractRecordID(page); id != "" {
			existing[id] = string(page.ID)
		}
	}
	log.Info().Int("existing_pages", len(existing)).Msg("Queried existing Notion pages")

	for _, e := range expenses {
		props := ExpenseToProperties(e)

		if pageID, ok := existing[e.ID]; ok {
			if _, err := client.UpdatePage(ctx, pageID, props); err != nil {
				log.Error().Err(err).Str("expense_id", e.ID).Msg("Failed to update Notion page")
				continue
			}
			updated++
			continue
		}

		if _, err := client.CreatePage(ctx, databaseID, props); err != nil {
			log.Error().Err(err).Str("expense_id", e.ID).Msg("Failed to create Notion page")
			continue
		}
		created++
	}

	log.Info().
		Int("created", created).
		Int("updated", updated).
		Int("total", len(expenses)).
		Msg("Notion export finished")
	return created, updated, nil
}

// queryAllPages pages through the whole database with the cursor protocol.
func queryAllPages(ctx context.Context, client PageService, databaseID string) ([]notionapi.Page, error) {
	var all []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: 100}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := client.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllPages: %w", err)
		}

		all = append(all, resp.Results...)
		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}
	return all, nil
}

// extractRecordID reads the Record ID property from a page. Returns the empty
// string for pages created outside the sync.
func extractRecordID(page notionapi.Page) string {
	prop, ok := page.Properties["Record ID"]
	if !ok {
		return ""
	}
	richText, ok := prop.(*notionapi.RichTextProperty)
	if !ok || len(richText.RichText) == 0 {
		return ""
	}
	return richText.RichText[0].PlainText
}
