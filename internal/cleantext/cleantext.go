// Package cleantext strips letter boilerplate from disclosure text before it
// reaches a summarizer.
package cleantext

import (
	"regexp"
	"strings"
)

const (
	// MaxLength caps normalized output, in runes.
	MaxLength = 3000
	// MinUsable is the shortest normalized text worth summarizing. Callers
	// fall back to Collapse on the original below it.
	MinUsable = 30
)

// Everything from the first sign-off marker to the end is dropped.
var trailers = []*regexp.Regexp{
	regexp.MustCompile(`(?is)Yours\s+(faithfully|sincerely|truly).*`),
	regexp.MustCompile(`(?is)BY\s+ORDER\s+OF\s+THE\s+BOARD.*`),
	regexp.MustCompile(`(?is)For\s+and\s+on\s+behalf\s+of.*`),
}

// Salutations, the regulator's address block, contact lines and company
// secretary letterheads. Each match is replaced with a space.
var fragments = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Dear\s+(Sir|Madam|Madan-?r?|Sirs?)[\s,]*`),
	regexp.MustCompile(`(?i)Mr?s\.?\s+Nilupa\s+Perar?a.{0,100}`),
	regexp.MustCompile(`(?i)Chief\s+Regulatory\s+Officer.{0,100}`),
	regexp.MustCompile(`(?i)Colombo\s+Stock\s+Exc[a-z]*.{0,100}`),
	regexp.MustCompile(`(?i)Echelon\s+Square.{0,60}`),
	regexp.MustCompile(`(?i)World\s*'?Trade\s+Centr?e.{0,60}`),
	regexp.MustCompile(`(?i)West\s+Block.{0,60}`),
	regexp.MustCompile(`(?i)#?\d+[-/]?\d*,?\s*\w+\s+(Road|Street|Lane|Mawatha|Place).{0,80}`),
	regexp.MustCompile(`(?i)Colombo\s*\d{1,2}.{0,40}`),
	regexp.MustCompile(`(?i)Sri\s+Lanka\.?`),
	regexp.MustCompile(`(?i)Tel(?:ephone)?:?\s*[+\d\s\-()']{5,30}`),
	regexp.MustCompile(`(?i)Fax:?\s*[+\d\s\-()']{5,30}`),
	regexp.MustCompile(`(?i)E-?mail:?\s*\S+@\S+`),
	regexp.MustCompile(`(?i)P\.?O\.?\s*Box\s*\d+`),
	regexp.MustCompile(`(?i)P\s*W\s*(?:Corporate|Gorporate)\s*Secretarial.{0,80}`),
	regexp.MustCompile(`(?i)M&S\s*Managers\s*&\s*Secretaries.{0,80}`),
	regexp.MustCompile(`(?i)JACEY\s*&?\s*(?:COMPANY|GOMPANY).{0,80}`),
	regexp.MustCompile(`(?i)JULIUS\s*&?\s*CREASY.{0,80}`),
}

var (
	markupRe     = regexp.MustCompile("[{}\\[\\]|\\\\@#$^~`]")
	terminatorRe = regexp.MustCompile(`[!.]{2,}`)
)

// Normalize removes sign-offs, addresses, contact details and markup
// punctuation from raw document text, collapses whitespace and repeated
// terminators, and caps the result at MaxLength runes. The result may be
// empty.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	text := raw
	for _, re := range trailers {
		if loc := re.FindStringIndex(text); loc != nil {
			text = text[:loc[0]]
		}
	}
	for _, re := range fragments {
		text = re.ReplaceAllString(text, " ")
	}
	text = markupRe.ReplaceAllString(text, "")
	text = terminatorRe.ReplaceAllString(text, ".")
	return truncate(collapseSpace(text), MaxLength)
}

// Collapse is the whitespace-only normalization: runs of whitespace become
// one space, the ends are trimmed and the result is capped at max runes.
func Collapse(raw string, max int) string {
	return truncate(collapseSpace(raw), max)
}

// ForModel normalizes raw for a summarizer prompt. When normalization leaves
// fewer than MinUsable runes it substitutes Collapse(raw, max).
func ForModel(raw string, max int) string {
	cleaned := Normalize(raw)
	if len([]rune(cleaned)) < MinUsable {
		return Collapse(raw, max)
	}
	return truncate(cleaned, max)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
