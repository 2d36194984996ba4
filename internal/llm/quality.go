package llm

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	minGoodLength = 20
	maxGoodLength = 800
	minGoodWords  = 5
)

// Letter boilerplate that means the model echoed the document instead of
// summarizing it.
var junkPhrases = []string{
	"dear madam",
	"dear sir",
	"dear madan",
	"yours faithfully",
	"yours sincerely",
	"chief regulatory officer",
	"west block",
	"echelon square",
	"world trade centre",
	"p w corporate",
	"heed oltrce",
	"tel:",
	"fax:",
}

// Refusals and prefaces.
var lazyPhrases = []string{
	"key details were not provided",
	"key details are not provided",
	"unfortunately",
	"does not contain sufficient",
	"not enough information",
	"cannot extract specific",
	"the provided text does not",
	"the given text",
	"here are the specific facts",
	"nilupa perera",
}

// Stored summaries containing any of these are re-resolved by backfill.
var fallbackPhrases = []string{
	"i don't see",
	"unfortunately",
	"does not contain",
	"not enough information",
	"cannot extract",
	"the provided text",
	"key details were not provided",
	"here are the specific facts",
	"nilupa perera",
	"company registration number",
}

var (
	emphasisRe = regexp.MustCompile(`\*+`)
	newlineRe  = regexp.MustCompile(`\n+`)
	prefaceRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^here are the specific facts[^:]*:\s*`),
		regexp.MustCompile(`(?i)^summary:\s*`),
	}
)

// Clean strips emphasis markers, joins lines and removes known prefaces
// from raw model output.
func Clean(s string) string {
	s = emphasisRe.ReplaceAllString(strings.TrimSpace(s), "")
	s = newlineRe.ReplaceAllString(s, " ")
	for _, re := range prefaceRes {
		s = re.ReplaceAllString(s, "")
	}
	return strings.TrimSpace(s)
}

// IsGood reports whether a cleaned summary is usable: between 20 and 800
// characters, at least five words, and free of letter boilerplate and
// refusal phrasing.
func IsGood(s string) bool {
	n := utf8.RuneCountInString(s)
	if n < minGoodLength || n > maxGoodLength {
		return false
	}
	if len(strings.Fields(s)) < minGoodWords {
		return false
	}
	lower := strings.ToLower(s)
	return !containsAny(lower, junkPhrases) && !containsAny(lower, lazyPhrases)
}

// IsFallback reports whether a stored summary is empty or degenerate and
// should be re-resolved.
func IsFallback(s string) bool {
	if strings.TrimSpace(s) == "" {
		return true
	}
	return containsAny(strings.ToLower(s), fallbackPhrases)
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
