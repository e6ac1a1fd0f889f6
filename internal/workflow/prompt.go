package workflow

import (
	"fmt"
	"strings"
)

// BuildPrompt renders the task message for one question.
func BuildPrompt(s Settings, query string) string {
	s = s.withDefaults()

	var b strings.Builder
	b.WriteString("You are an AI assistant that can read from Google Sheets and send emails via Gmail.\n\n")
	b.WriteString("Google Sheet:\n")
	fmt.Fprintf(&b, "- Spreadsheet ID: %s\n", s.SpreadsheetID)
	fmt.Fprintf(&b, "- Sheet name: \"%s\"\n", s.SheetName)
	fmt.Fprintf(&b, "- Columns: %s\n", strings.Join(s.Columns, ", "))
	b.WriteString("- IMPORTANT: Only READ from the sheet, never write to it.\n\n")
	b.WriteString("Instructions:\n")
	b.WriteString("1. Read data from the Google Sheet to answer the question.\n")
	b.WriteString("2. Calculate the answer.\n")
	fmt.Fprintf(&b, "3. Send the final answer as an email to: %s\n", s.EmailTo)
	fmt.Fprintf(&b, "   - Subject: \"%s\"\n", Subject(query))
	b.WriteString("   - Body: Include the question and the calculated answer clearly formatted\n\n")
	fmt.Fprintf(&b, "Question: %s\n", query)
	return b.String()
}

// Subject returns the email subject for a question.
func Subject(query string) string {
	runes := []rune(query)
	if len(runes) > SubjectQueryRunes {
		runes = runes[:SubjectQueryRunes]
	}
	return "Query Result: " + string(runes)
}
