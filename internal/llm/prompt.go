package llm

import "fmt"

// SystemPrompt is the fixed instruction sent with every summarization call.
const SystemPrompt = "You extract key facts from Colombo Stock Exchange corporate disclosures. " +
	"Write 2-3 sentences with SPECIFIC details. " +
	"Include: share quantities, rupee amounts, percentages, dates, positions/titles. " +
	"NEVER include person names — use position/title instead. " +
	"Focus ONLY on what the company is announcing. " +
	"NEVER include: addresses, phone/fax, emails, signatures, person names. " +
	"NEVER start with 'Here are the facts' — just write the summary directly."

// UserPrompt frames the cleaned document text for a single disclosure.
func UserPrompt(company, category, text string) string {
	return fmt.Sprintf("Company: %s\nCategory: %s\n\nExtract specific facts:\n%s", company, category, text)
}

// Combined folds the system instruction into the user message for providers
// called without a separate system role.
func Combined(req Request) string {
	if req.System == "" {
		return req.User
	}
	return req.System + "\n\n" + req.User
}
