package cleantext

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_StripsLetterBoilerplate(t *testing.T) {
	t.Parallel()

	raw := `Mrs. Nilupa Perara
Chief Regulatory Officer
Colombo Stock Exchange
West Block, World Trade Centre, Echelon Square, Colombo 01.

Dear Madam,

The Board of Directors of ACME PLC has declared an interim dividend of Rs. 2.50 per share...
Tel: +94 11 2345678   Fax: 011-2345679   Email: secretary@acme.lk

Yours faithfully,
BY ORDER OF THE BOARD
P W Corporate Secretarial (Pvt) Ltd`

	got := Normalize(raw)

	assert.Equal(t, "The Board of Directors of ACME PLC has declared an interim dividend of Rs. 2.50 per share.", got)
}

func TestNormalize_TrailerSpansLines(t *testing.T) {
	t.Parallel()

	got := Normalize("Share purchase of 1,000 shares completed.\nFor and on behalf of\nACME PLC\nCompany Secretaries")
	assert.Equal(t, "Share purchase of 1,000 shares completed.", got)
}

func TestNormalize_CaseInsensitive(t *testing.T) {
	t.Parallel()

	got := Normalize("Notice of rights issue at Rs. 10 per share. YOURS SINCERELY, someone")
	assert.Equal(t, "Notice of rights issue at Rs. 10 per share.", got)
}

func TestNormalize_MarkupAndTerminators(t *testing.T) {
	t.Parallel()

	got := Normalize("Results {Q1} [2024] | revenue up 10%!!! profit ~ flat...\n\n\tend")
	assert.Equal(t, "Results Q1 2024 revenue up 10%. profit flat. end", got)
}

func TestNormalize_AddressesAndBoxes(t *testing.T) {
	t.Parallel()

	got := Normalize("Registered office 25 Galle Road. P.O. Box 123. Sri Lanka. Dividend approved by shareholders.")
	assert.NotContains(t, got, "Galle Road")
	assert.NotContains(t, got, "Box 123")
	assert.NotContains(t, got, "Sri Lanka")
}

func TestNormalize_Cap(t *testing.T) {
	t.Parallel()

	got := Normalize(strings.Repeat("word ", 1000))
	assert.Equal(t, MaxLength, utf8.RuneCountInString(got))
}

func TestNormalize_Empty(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "", Normalize(""))
	assert.Equal(t, "", Normalize("   \n\t "))
}

func TestCollapse(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a b c", Collapse("  a \n b\t\tc  ", 0))
	assert.Equal(t, "a b", Collapse("a   b   c", 3))
}

func TestForModel_FallsBackToCollapse(t *testing.T) {
	t.Parallel()

	// Everything here is boilerplate, so normalization leaves nothing usable.
	raw := "Dear Sir,\nYours faithfully,\nCompany Secretary of ACME PLC and others"
	got := ForModel(raw, 2000)
	assert.Equal(t, "Dear Sir, Yours faithfully, Company Secretary of ACME PLC and others", got)
}

func TestForModel_UsesNormalized(t *testing.T) {
	t.Parallel()

	raw := "Dear Sir, The company acquired 51% of XYZ Ltd for Rs. 100 million.\nYours faithfully, ABC"
	assert.Equal(t, "The company acquired 51% of XYZ Ltd for Rs. 100 million.", ForModel(raw, 2000))
	assert.Equal(t, "The company", ForModel(raw, 11))
}
