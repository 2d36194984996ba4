package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsGood(t *testing.T) {
	t.Parallel()

	good := "ACME PLC declared an interim dividend of Rs. 2.50 per share payable on 15 May 2024."
	assert.True(t, IsGood(good))

	cases := map[string]string{
		"empty":       "",
		"too short":   "Dividend declared.",
		"too long":    strings.Repeat("dividend ", 100),
		"few words":   "Dividend-of-Rs.2.50-declared-today-by-board",
		"salutation":  "Dear Sir, the company declared a dividend of Rs. 2.50 per share.",
		"address":     "The company at Echelon Square declared a dividend of Rs. 2 per share.",
		"fax":         "Dividend of Rs. 2 per share declared. Fax: 0112345678 for details.",
		"refusal":     "Unfortunately, the document does not include the dividend amount.",
		"preface":     "Here are the specific facts: a dividend of Rs. 2 per share.",
		"officer":     "Letter to Nilupa Perera regarding a dividend of Rs. 2 per share.",
		"given text":  "The given text describes a dividend of Rs. 2 per share.",
		"insufficient":"The document does not contain sufficient detail about the dividend.",
	}
	for name, s := range cases {
		assert.False(t, IsGood(s), name)
	}
}

func TestIsGood_CaseInsensitive(t *testing.T) {
	t.Parallel()
	assert.False(t, IsGood("YOURS FAITHFULLY the board declared a dividend of Rs. 2."))
}

func TestIsFallback(t *testing.T) {
	t.Parallel()

	assert.True(t, IsFallback(""))
	assert.True(t, IsFallback("   "))
	assert.True(t, IsFallback("I don't see any specific facts in this disclosure."))
	assert.True(t, IsFallback("ACME PLC: Company Registration Number PQ 123"))
	assert.True(t, IsFallback("The provided text is a cover letter."))
	assert.True(t, IsFallback("Unfortunately, the provided text does not contain enough information."))
	assert.False(t, IsFallback("ACME PLC — Rights Issue."))
	assert.False(t, IsFallback("X declared a final cash dividend of Rs. 3/- per voting share."))
}

func TestClean(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "The board approved a bonus issue. Two for one.",
		Clean("  **Summary:** The board approved a **bonus** issue.\n\nTwo for one.  "))
	assert.Equal(t, "ACME acquired 51% of XYZ.",
		Clean("Here are the specific facts from the disclosure:\nACME acquired 51% of XYZ."))
	assert.Equal(t, "Plain text.", Clean("Plain text."))
	assert.Equal(t, "", Clean(" \n "))
}
