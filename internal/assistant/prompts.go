package assistant

import (
	"fmt"
	"strings"

	"spendchat/internal/taxonomy"
)

// Fixed approximate conversion rates into the reporting currency (INR).
const (
	usdToINR = 83
	eurToINR = 90
	gbpToINR = 105
)

const intentSystemPrompt = "You are an intent router for a conversational expense tracker.\n" +
	"Decide whether the user's message records a new expense or asks about past expenses.\n\n" +
	"Respond with exactly one bare token:\n" +
	"- add       (the message records a new expense)\n" +
	"- retrieve  (the message asks about past expenses)\n\n" +
	"No punctuation, no quotes, no explanation. Output must be the single token only."

const summarySystemPrompt = "You are an expense summary assistant. Answer the user's question using ONLY\n" +
	"the matched expense entries provided with it.\n\n" +
	"Rules:\n" +
	"- Never merge amounts across categories. Report a separate total under each\n" +
	"  category heading, even when the same vendor appears in more than one category.\n" +
	"- Under each category heading, itemize every matched expense.\n" +
	"- Use the ₹ symbol consistently for all amounts."

// buildExtractionPrompt enumerates every category with its subcategories plus
// the currency and disambiguation rules, formatted for model consumption.
func buildExtractionPrompt(tax *taxonomy.Taxonomy) string {
	var b strings.Builder

	b.WriteString("You are an expense recording assistant. Extract one expense from the user's message.\n\n")
	b.WriteString("Output STRICT JSON only (no comments, no trailing commas, no extra text).\n")
	b.WriteString("Do NOT wrap the response in code fences. Output must begin with \"{\" and end with \"}\".\n\n")
	b.WriteString("The object must have exactly these fields:\n")
	b.WriteString("- \"amount\": number, the amount in INR\n")
	b.WriteString("- \"category\": string, one of the predefined categories below\n")
	b.WriteString("- \"sub-category\": array of strings, from the chosen category's subcategories\n")
	b.WriteString("- \"response\": string, a short human-readable confirmation of what was recorded\n\n")

	b.WriteString("CURRENCY RULES:\n")
	b.WriteString("1. All amounts are reported in INR.\n")
	b.WriteString("2. Convert foreign currency mentions with these approximate rates:\n")
	fmt.Fprintf(&b, "   1 USD = %d INR, 1 EUR = %d INR, 1 GBP = %d INR.\n\n", usdToINR, eurToINR, gbpToINR)

	b.WriteString("CATEGORY ASSIGNMENT RULES:\n")
	b.WriteString("1. Category must be EXACTLY one of the category names shown below (case-sensitive).\n")
	b.WriteString("2. Every \"sub-category\" entry must come from the chosen category's list, spelled exactly.\n")
	b.WriteString("3. Prepared food and raw groceries are different kinds of spending even at the\n")
	b.WriteString("   same vendor: use \"Dining out\" or \"Food delivery\" for prepared food and\n")
	b.WriteString("   \"Groceries\" for raw ingredients. Never put both kinds under one purchase.\n\n")

	b.WriteString("Use ONLY the following Categories and Subcategories:\n\n")
	for _, cat := range tax.Categories() {
		b.WriteString(cat.Name + ":\n")
		for _, s := range cat.Subcategories {
			b.WriteString("  - " + s + "\n")
		}
		b.WriteString("\n")
	}

	return b.String()
}

// cleanModelJSON strips Markdown fences and surrounding junk the model may
// emit despite instructions, keeping the outermost JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
